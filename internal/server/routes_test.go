package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aihttpanalyzer/internal/config"
	"aihttpanalyzer/internal/core"
	"aihttpanalyzer/internal/metrics"
	"aihttpanalyzer/internal/storage"

	"github.com/bytedance/sonic"
)

type testServerOptions struct {
	clientKeys []string
	rateLimit  int
}

func newTestServer(t *testing.T, opts testServerOptions) (*Server, *storage.MemoryStorage) {
	t.Helper()

	st := storage.NewMemoryStorage()
	cfg := config.ServerConfig{
		Port:          "0",
		GinMode:       "test",
		ClientAPIKeys: opts.clientKeys,
		RateLimit:     opts.rateLimit,
		HTTPClientSettings: config.HTTPClientSettings{
			MaxIdleConns:        1,
			MaxIdleConnsPerHost: 1,
			MaxConnsPerHost:     1,
			IdleConnTimeout:     time.Second,
			TLSHandshakeTimeout: time.Second,
			RequestTimeout:      5 * time.Second,
		},
		Storage: st,
		Logger:  &core.NopLogger{},
		Metrics: metrics.NewMetricsService(),
	}

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("创建测试 Server 失败: %v", err)
	}

	t.Cleanup(func() {
		_ = server.Close()
		_ = st.Close()
	})

	return server, st
}

// newFakeOllama serves chat, generate, version and tags like a local model server
func newFakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case core.OllamaChatPath:
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"role":"system"`) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = io.WriteString(w, `{"message":{"role":"assistant","content":"The session cookie lacks HttpOnly."},"done":true}`)
		case core.OllamaVersionPath:
			_, _ = io.WriteString(w, `{"version":"0.5.7"}`)
		case core.OllamaTagsPath:
			_, _ = io.WriteString(w, `{"models":[{"name":"llama3.2:latest"},{"name":"codellama:7b"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(backend.Close)
	return backend
}

func doRequest(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServerRoutes_PublicAccess(t *testing.T) {
	server, _ := newTestServer(t, testServerOptions{clientKeys: []string{"test-key"}})

	for _, path := range []string{"/health", "/metrics", "/api/stats"} {
		w := doRequest(server, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s 应公开访问，实际 %d", path, w.Code)
		}
		if w.Header().Get(core.HeaderRequestID) == "" {
			t.Errorf("%s 响应应包含 X-Request-ID", path)
		}
	}
}

func TestServerRoutes_APIRequiresAuthWhenKeysConfigured(t *testing.T) {
	server, _ := newTestServer(t, testServerOptions{clientKeys: []string{"test-key"}})

	w := doRequest(server, http.MethodGet, "/api/settings", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("未携带 key 应返回 401，实际 %d", w.Code)
	}

	w = doRequest(server, http.MethodGet, "/api/settings", "", map[string]string{"Authorization": "Bearer test-key"})
	if w.Code != http.StatusOK {
		t.Fatalf("携带有效 key 应返回 200，实际 %d", w.Code)
	}
}

func TestServerRoutes_AnalyzeWhenDisabled(t *testing.T) {
	server, _ := newTestServer(t, testServerOptions{})

	w := doRequest(server, http.MethodPost, "/api/analyze", `{"prompt":"hi"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 %d: %s", w.Code, w.Body.String())
	}

	var resp analyzeResponse
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Content != core.UnavailablePrefix+core.AIDisabledMessage {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestServerRoutes_AnalyzeThroughChat(t *testing.T) {
	backend := newFakeOllama(t)
	server, st := newTestServer(t, testServerOptions{})
	_ = st.PutBool(core.PrefEnabled, true)
	_ = st.PutString(core.PrefBaseURL, backend.URL)

	body := `{"prompt":"Any issues?","request":"GET / HTTP/1.1","response":"HTTP/1.1 200 OK\r\nSet-Cookie: sid=1"}`
	w := doRequest(server, http.MethodPost, "/api/analyze", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 %d: %s", w.Code, w.Body.String())
	}

	var resp analyzeResponse
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Content != "The session cookie lacks HttpOnly." || resp.ParseAnomaly {
		t.Errorf("响应不正确: %+v", resp)
	}

	stats := server.metricsService.GetDispatchStats()
	if stats.ChatRequests != 1 || stats.Fallbacks != 0 {
		t.Errorf("统计不正确: %+v", stats)
	}
}

func TestServerRoutes_AnalyzeBadRequest(t *testing.T) {
	server, _ := newTestServer(t, testServerOptions{})

	tests := []struct {
		name string
		body string
	}{
		{"空请求体", ""},
		{"非法 JSON", "{not json"},
		{"全部为空", `{"prompt":"  ","request":"","response":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(server, http.MethodPost, "/api/analyze", tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("期望 400，实际 %d", w.Code)
			}
		})
	}
}

func TestServerRoutes_GetSettingsDefaults(t *testing.T) {
	server, _ := newTestServer(t, testServerOptions{})

	w := doRequest(server, http.MethodGet, "/api/settings", "", nil)
	var settings core.EndpointSettings
	if err := sonic.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if settings.Enabled || settings.BaseURL != core.DefaultBaseURL || settings.Model != core.DefaultModel {
		t.Errorf("默认配置不正确: %+v", settings)
	}
}

func TestServerRoutes_UpdateSettingsPersists(t *testing.T) {
	server, st := newTestServer(t, testServerOptions{})

	w := doRequest(server, http.MethodPut, "/api/settings",
		`{"enabled":true,"baseUrl":"http://10.0.0.5:11434/","model":"mistral"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 %d: %s", w.Code, w.Body.String())
	}

	if !st.GetBool(core.PrefEnabled, false) {
		t.Error("enabled 应已保存")
	}
	if got := st.GetString(core.PrefBaseURL, ""); got != "http://10.0.0.5:11434/" {
		t.Errorf("baseUrl = %q", got)
	}
	if got := st.GetString(core.PrefModel, ""); got != "mistral" {
		t.Errorf("model = %q", got)
	}

	// omitted fields keep their value
	w = doRequest(server, http.MethodPut, "/api/settings", `{"model":"qwen2.5"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 %d", w.Code)
	}
	if !st.GetBool(core.PrefEnabled, false) || st.GetString(core.PrefModel, "") != "qwen2.5" {
		t.Error("部分更新不应覆盖未提供的字段")
	}
}

func TestServerRoutes_UpdateSettingsValidation(t *testing.T) {
	server, st := newTestServer(t, testServerOptions{})

	tests := []struct {
		name string
		body string
	}{
		{"空 baseUrl", `{"baseUrl":""}`},
		{"非 http 协议", `{"baseUrl":"ftp://host"}`},
		{"相对地址", `{"baseUrl":"localhost:11434"}`},
		{"空 model", `{"model":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(server, http.MethodPut, "/api/settings", tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("期望 400，实际 %d", w.Code)
			}
		})
	}
	if got := st.GetString(core.PrefBaseURL, "unset"); got != "unset" {
		t.Errorf("校验失败时不应保存，实际 %q", got)
	}
}

func TestServerRoutes_TestConnectionAndModels(t *testing.T) {
	backend := newFakeOllama(t)
	server, st := newTestServer(t, testServerOptions{})

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_ = st.PutString(core.PrefBaseURL, closed.URL)

	w := doRequest(server, http.MethodPost, "/api/settings/test", "", nil)
	if !strings.Contains(w.Body.String(), `"connected":false`) {
		t.Errorf("地址不可达时应为 false: %s", w.Body.String())
	}

	_ = st.PutString(core.PrefBaseURL, backend.URL)

	w = doRequest(server, http.MethodPost, "/api/settings/test", "", nil)
	if !strings.Contains(w.Body.String(), `"connected":true`) {
		t.Errorf("应连接成功: %s", w.Body.String())
	}

	w = doRequest(server, http.MethodGet, "/api/settings/models", "", nil)
	var resp struct {
		Models []string `json:"models"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(resp.Models) != 2 || resp.Models[0] != "llama3.2:latest" || resp.Models[1] != "codellama:7b" {
		t.Errorf("models = %v", resp.Models)
	}
}

func TestServerRoutes_RateLimit(t *testing.T) {
	server, _ := newTestServer(t, testServerOptions{rateLimit: 1})

	if w := doRequest(server, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("第一次请求应成功，实际 %d", w.Code)
	}
	if w := doRequest(server, http.MethodGet, "/health", "", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("超出限额应返回 429，实际 %d", w.Code)
	}
}

func TestNewServer_RequiresLogger(t *testing.T) {
	if _, err := NewServer(config.ServerConfig{Storage: storage.NewMemoryStorage()}); err == nil {
		t.Error("缺少 Logger 时应返回错误")
	}
	if _, err := NewServer(config.ServerConfig{Logger: &core.NopLogger{}}); err == nil {
		t.Error("缺少 Storage 与 Endpoint 时应返回错误")
	}
}

func TestServerClose_Idempotent(t *testing.T) {
	server, _ := newTestServer(t, testServerOptions{})
	if err := server.Close(); err != nil {
		t.Fatalf("第一次 Close 失败: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("第二次 Close 失败: %v", err)
	}
}

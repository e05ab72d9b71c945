package client

import (
	"fmt"
	"net/http"
	"time"

	"aihttpanalyzer/internal/codec"
	"aihttpanalyzer/internal/config"
	"aihttpanalyzer/internal/core"
	"aihttpanalyzer/internal/util"

	"github.com/bytedance/sonic"
)

// Config wires a Client to its collaborators
type Config struct {
	Endpoint   *config.EndpointConfig
	HTTPClient *http.Client
	Logger     core.Logger
	Metrics    core.MetricsCollector
}

// Client talks to an Ollama-style model server. Every operation re-reads the
// endpoint configuration first so saved settings apply without a restart.
type Client struct {
	endpoint   *config.EndpointConfig
	httpClient *http.Client
	logger     core.Logger
	metrics    core.MetricsCollector
}

// NewClient creates a Client; nil collaborators get working defaults.
func NewClient(cfg Config) *Client {
	c := &Client{
		endpoint:   cfg.Endpoint,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
	if c.endpoint == nil {
		c.endpoint = config.NewEndpointConfig(nil)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(config.DefaultHTTPClientSettings())
	}
	if c.logger == nil {
		c.logger = &core.NopLogger{}
	}
	if c.metrics == nil {
		c.metrics = &core.NopMetrics{}
	}
	return c
}

// NewHTTPClient builds the pooled HTTP client used for model server calls
func NewHTTPClient(settings config.HTTPClientSettings) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		ResponseHeaderTimeout: core.HTTPResponseHeaderTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   settings.RequestTimeout,
	}
}

// currentSettings reloads the endpoint configuration and returns a copy.
func (c *Client) currentSettings() core.EndpointSettings {
	c.endpoint.Load()
	return c.endpoint.Snapshot()
}

func endpointURL(s core.EndpointSettings, path string) string {
	return config.NormalizeBaseURL(s.BaseURL) + path
}

// Completion calls POST /api/generate with a prompt and a system instruction.
// A 200 reply without a "response" field yields a parse-anomaly response, not an error.
func (c *Client) Completion(prompt, system string) (core.ModelResponse, error) {
	s := c.currentSettings()
	url := endpointURL(s, core.OllamaGeneratePath)

	body := fmt.Sprintf(`{"model":"%s","prompt":"%s","system":"%s","stream":false}`,
		codec.Escape(s.Model), codec.Escape(prompt), codec.Escape(system))

	c.logger.Info("Sending request to Ollama API: %s with model: %s", url, s.Model)

	raw, err := c.post(core.EndpointGenerate, url, body)
	if err != nil {
		return core.ModelResponse{}, err
	}

	if text, ok := decodeGenerate(raw); ok {
		return core.NewModelResponse(text), nil
	}

	c.logger.Warn("Received response from Ollama API without %q field: %s", core.FieldResponse, truncateForLog(raw))
	c.metrics.RecordParseAnomaly(core.EndpointGenerate)
	return core.NewParseAnomalyResponse(raw), nil
}

// ChatCompletion calls POST /api/chat with a caller-built JSON message array.
// A 200 reply without a "content" field yields a parse-anomaly response, not an error.
func (c *Client) ChatCompletion(messagesJSON string) (core.ModelResponse, error) {
	s := c.currentSettings()
	url := endpointURL(s, core.OllamaChatPath)

	body := fmt.Sprintf(`{"model":"%s","messages":%s,"stream":false}`,
		codec.Escape(s.Model), messagesJSON)

	c.logger.Info("Sending chat request to Ollama API: %s with model: %s", url, s.Model)

	raw, err := c.post(core.EndpointChat, url, body)
	if err != nil {
		return core.ModelResponse{}, err
	}

	if text, ok := decodeChat(raw); ok {
		return core.NewModelResponse(text), nil
	}

	c.logger.Warn("Received chat response from Ollama API without %q field: %s", core.FieldContent, truncateForLog(raw))
	c.metrics.RecordParseAnomaly(core.EndpointChat)
	return core.NewParseAnomalyResponse(raw), nil
}

// TestConnection reports whether GET /api/version answers 200. Failures are
// logged and reported as false.
func (c *Client) TestConnection() bool {
	s := c.currentSettings()
	url := endpointURL(s, core.OllamaVersionPath)

	start := time.Now()
	resp, err := c.get(url)
	if err != nil {
		c.metrics.RecordUpstreamRequest(core.EndpointVersion, false, time.Since(start))
		c.logger.Error("Error testing connection to Ollama API: %v", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode == http.StatusOK
	c.metrics.RecordUpstreamRequest(core.EndpointVersion, ok, time.Since(start))
	return ok
}

// ListModels returns the model names from GET /api/tags in server order, or
// an empty slice on any failure.
func (c *Client) ListModels() []string {
	s := c.currentSettings()
	url := endpointURL(s, core.OllamaTagsPath)

	start := time.Now()
	resp, err := c.get(url)
	if err != nil {
		c.metrics.RecordUpstreamRequest(core.EndpointTags, false, time.Since(start))
		c.logger.Error("Error listing models from Ollama API: %v", err)
		return []string{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamRequest(core.EndpointTags, false, time.Since(start))
		return []string{}
	}

	raw, err := util.ReadBody(resp)
	if err != nil {
		c.metrics.RecordUpstreamRequest(core.EndpointTags, false, time.Since(start))
		c.logger.Error("Error listing models from Ollama API: %v", err)
		return []string{}
	}
	c.metrics.RecordUpstreamRequest(core.EndpointTags, true, time.Since(start))

	return decodeModelNames(raw)
}

// post sends a JSON body and returns the raw 200 reply. Non-200 replies become
// *core.RemoteError; connection and read failures become *core.TransportError.
func (c *Client) post(endpoint, url, body string) (string, error) {
	start := time.Now()

	req, err := util.NewJSONRequest(http.MethodPost, url, body)
	if err != nil {
		c.metrics.RecordUpstreamRequest(endpoint, false, time.Since(start))
		return "", &core.TransportError{Op: http.MethodPost, URL: url, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest(endpoint, false, time.Since(start))
		return "", &core.TransportError{Op: http.MethodPost, URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := util.ReadBody(resp)
	if err != nil {
		c.metrics.RecordUpstreamRequest(endpoint, false, time.Since(start))
		return "", &core.TransportError{Op: http.MethodPost, URL: url, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		c.metrics.RecordUpstreamRequest(endpoint, false, time.Since(start))
		c.logger.Error("Ollama API error: %s", truncateForLog(raw))
		return "", &core.RemoteError{StatusCode: resp.StatusCode, Body: raw}
	}

	c.metrics.RecordUpstreamRequest(endpoint, true, time.Since(start))
	return raw, nil
}

func (c *Client) get(url string) (*http.Response, error) {
	req, err := util.NewJSONRequest(http.MethodGet, url, "")
	if err != nil {
		return nil, &core.TransportError{Op: http.MethodGet, URL: url, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.TransportError{Op: http.MethodGet, URL: url, Err: err}
	}
	return resp, nil
}

// decodeGenerate reads the "response" field, decoding structurally first and
// falling back to the tolerant extractor for bodies that are not one JSON value.
func decodeGenerate(raw string) (string, bool) {
	var resp core.OllamaGenerateResponse
	if err := sonic.UnmarshalString(raw, &resp); err == nil {
		if resp.Response == nil {
			return "", false
		}
		return *resp.Response, true
	}
	return codec.ExtractField(raw, core.FieldResponse)
}

// decodeChat reads message.content the same way decodeGenerate reads response.
func decodeChat(raw string) (string, bool) {
	var resp core.OllamaChatResponse
	if err := sonic.UnmarshalString(raw, &resp); err == nil {
		if resp.Message == nil || resp.Message.Content == nil {
			return "", false
		}
		return *resp.Message.Content, true
	}
	return codec.ExtractField(raw, core.FieldContent)
}

// decodeModelNames reads models[].name, falling back to scanning every "name" string.
func decodeModelNames(raw string) []string {
	var resp core.OllamaTagsResponse
	if err := sonic.UnmarshalString(raw, &resp); err == nil && resp.Models != nil {
		names := make([]string, 0, len(resp.Models))
		for _, m := range resp.Models {
			names = append(names, m.Name)
		}
		return names
	}
	return codec.ExtractAll(raw, core.FieldName)
}

func truncateForLog(body string) string {
	return util.TruncateString(body, 512, 128, " ... ")
}

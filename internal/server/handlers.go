package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"aihttpanalyzer/internal/core"
	"aihttpanalyzer/internal/dispatch"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
)

type analyzeRequest struct {
	Prompt   string `json:"prompt"`
	Request  string `json:"request"`
	Response string `json:"response"`
}

type analyzeResponse struct {
	Content      string `json:"content"`
	ParseAnomaly bool   `json:"parse_anomaly"`
}

// settingsUpdate uses pointers so omitted fields keep their current value
type settingsUpdate struct {
	Enabled *bool   `json:"enabled"`
	BaseURL *string `json:"baseUrl"`
	Model   *string `json:"model"`
}

func respondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// bindJSON decodes the request body with sonic
func bindJSON(c *gin.Context, v any) error {
	body, err := c.GetRawData()
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return sonic.Unmarshal(body, v)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.Request) == "" && strings.TrimSpace(req.Response) == "" {
		respondWithError(c, http.StatusBadRequest, "prompt, request or response is required")
		return
	}

	userPrompt := dispatch.ComposeAnalysisPrompt(req.Prompt, req.Request, req.Response)
	s.logger.Debug("[%s] analyze prompt of %d bytes", requestID(c), len(userPrompt))

	resp := s.provider().SendWithSystemMessage(userPrompt)

	c.JSON(http.StatusOK, analyzeResponse{
		Content:      resp.Content(),
		ParseAnomaly: resp.IsParseAnomaly(),
	})
}

func (s *Server) getSettings(c *gin.Context) {
	s.endpoint.Load()
	c.JSON(http.StatusOK, s.endpoint.Snapshot())
}

func (s *Server) updateSettings(c *gin.Context) {
	var update settingsUpdate
	if err := bindJSON(c, &update); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if update.BaseURL != nil {
		if err := validateBaseURL(*update.BaseURL); err != nil {
			respondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if update.Model != nil && strings.TrimSpace(*update.Model) == "" {
		respondWithError(c, http.StatusBadRequest, "model must not be empty")
		return
	}

	settings, err := s.endpoint.Update(func(cur *core.EndpointSettings) {
		if update.Enabled != nil {
			cur.Enabled = *update.Enabled
		}
		if update.BaseURL != nil {
			cur.BaseURL = strings.TrimSpace(*update.BaseURL)
		}
		if update.Model != nil {
			cur.Model = strings.TrimSpace(*update.Model)
		}
	})
	if err != nil {
		s.logger.Error("[%s] Failed to save settings: %v", requestID(c), err)
		respondWithError(c, http.StatusInternalServerError, "failed to save settings")
		return
	}

	s.logger.Info("[%s] Settings updated: enabled=%v baseUrl=%s model=%s", requestID(c), settings.Enabled, settings.BaseURL, settings.Model)
	c.JSON(http.StatusOK, settings)
}

func (s *Server) testConnection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connected": s.client.TestConnection()})
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.client.ListModels()})
}

// validateBaseURL accepts absolute http(s) URLs only
func validateBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("baseUrl must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("baseUrl is not a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("baseUrl must be an absolute http or https URL")
	}
	return nil
}

package dispatch

import (
	"strings"

	"aihttpanalyzer/internal/codec"
	"aihttpanalyzer/internal/config"
	"aihttpanalyzer/internal/core"
)

// ModelClient is the subset of the model server client the dispatcher needs
type ModelClient interface {
	Completion(prompt, system string) (core.ModelResponse, error)
	ChatCompletion(messagesJSON string) (core.ModelResponse, error)
}

// Config wires a provider to its collaborators
type Config struct {
	Endpoint   *config.EndpointConfig
	Client     ModelClient
	SystemText string
	Logger     core.Logger
	Metrics    core.MetricsCollector
}

// Dispatcher sends prompts through the chat endpoint and falls back to the
// completion endpoint once when chat fails.
type Dispatcher struct {
	client     ModelClient
	systemText string
	logger     core.Logger
	metrics    core.MetricsCollector
}

// NewDispatcher creates a Dispatcher; an empty SystemText selects core.SystemMessage.
func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{
		client:     cfg.Client,
		systemText: cfg.SystemText,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
	if d.systemText == "" {
		d.systemText = core.SystemMessage
	}
	if d.logger == nil {
		d.logger = &core.NopLogger{}
	}
	if d.metrics == nil {
		d.metrics = &core.NopMetrics{}
	}
	return d
}

// SendWithSystemMessage never fails: when both endpoints fail the returned
// content is "Error: " followed by the completion failure.
func (d *Dispatcher) SendWithSystemMessage(userPrompt string) core.ModelResponse {
	req := core.PromptRequest{SystemText: d.systemText, UserText: userPrompt}

	resp, err := d.client.ChatCompletion(codec.BuildMessages(req.SystemText, req.UserText))
	if err == nil {
		return resp
	}

	d.logger.Warn("Chat API failed, falling back to generate API: %v", err)
	d.metrics.RecordFallback()

	resp, err = d.client.Completion(req.UserText, req.SystemText)
	if err == nil {
		return resp
	}

	d.logger.Error("Error sending prompt to Ollama API: %v", err)
	d.metrics.RecordDispatchFailure()
	return core.NewModelResponse(core.DispatchErrorPrefix + err.Error())
}

// UnavailableProvider answers every prompt with the reason AI is unavailable
type UnavailableProvider struct {
	Reason string
}

func (p UnavailableProvider) SendWithSystemMessage(string) core.ModelResponse {
	return core.NewModelResponse(core.UnavailablePrefix + p.Reason)
}

// NewProvider re-reads the endpoint settings and returns a Dispatcher when AI
// is enabled, or an UnavailableProvider otherwise.
func NewProvider(cfg Config) core.AIProvider {
	if cfg.Endpoint == nil || cfg.Client == nil {
		return UnavailableProvider{Reason: core.AIDisabledMessage}
	}

	cfg.Endpoint.Load()
	if !cfg.Endpoint.IsEnabled() {
		return UnavailableProvider{Reason: core.AIDisabledMessage}
	}
	return NewDispatcher(cfg)
}

// ComposeAnalysisPrompt joins a question with captured HTTP traffic. Empty
// sections are left out; a missing question asks for a general analysis.
func ComposeAnalysisPrompt(question, request, response string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		question = DefaultAnalysisQuestion
	}

	var b strings.Builder
	b.WriteString(question)
	if strings.TrimSpace(request) != "" {
		b.WriteString("\n\nHTTP Request:\n")
		b.WriteString(request)
	}
	if strings.TrimSpace(response) != "" {
		b.WriteString("\n\nHTTP Response:\n")
		b.WriteString(response)
	}
	return b.String()
}

// DefaultAnalysisQuestion is used when the caller supplies traffic but no question
const DefaultAnalysisQuestion = "Analyze this HTTP traffic for security issues."

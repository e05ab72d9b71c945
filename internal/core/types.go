package core

import "time"

// ModelResponse is the normalized text returned to AIProvider callers.
type ModelResponse struct {
	content      string
	parseAnomaly bool
}

// NewModelResponse wraps model output text.
func NewModelResponse(content string) ModelResponse {
	return ModelResponse{content: content}
}

// NewParseAnomalyResponse builds the diagnostic response used when a successful
// reply lacks the expected field. The text keeps the "Error parsing response: "
// prefix followed by the raw body.
func NewParseAnomalyResponse(rawBody string) ModelResponse {
	return ModelResponse{content: ParseErrorPrefix + rawBody, parseAnomaly: true}
}

// Content returns the response text.
func (r ModelResponse) Content() string {
	return r.content
}

// IsParseAnomaly reports whether Content is a parse diagnostic rather than model output.
func (r ModelResponse) IsParseAnomaly() bool {
	return r.parseAnomaly
}

// PromptRequest is a system + user prompt pair.
type PromptRequest struct {
	SystemText string
	UserText   string
}

// EndpointSettings is a point-in-time copy of the endpoint configuration.
type EndpointSettings struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`
}

// DispatchStats holds aggregated dispatcher counters for monitoring.
type DispatchStats struct {
	ChatRequests      int64     `json:"chat_requests"`
	GenerateRequests  int64     `json:"generate_requests"`
	FailedRequests    int64     `json:"failed_requests"`
	Fallbacks         int64     `json:"fallbacks"`
	DispatchFailures  int64     `json:"dispatch_failures"`
	ParseAnomalies    int64     `json:"parse_anomalies"`
	TotalResponseTime int64     `json:"total_response_time_ms"`
	LastRequestTime   time.Time `json:"last_request_time"`
}

package core

import "time"

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// PreferenceStore persistent key-value store backing the endpoint settings.
// Getters return the supplied default when the key is missing or the backend fails.
type PreferenceStore interface {
	GetBool(key string, def bool) bool
	GetString(key, def string) string
	PutBool(key string, value bool) error
	PutString(key, value string) error
	Close() error
}

// AIProvider sends a user prompt, prefixed by a fixed system instruction, and
// always returns a displayable response.
type AIProvider interface {
	SendWithSystemMessage(userPrompt string) ModelResponse
}

// MetricsCollector interface
type MetricsCollector interface {
	RecordUpstreamRequest(endpoint string, success bool, duration time.Duration)
	RecordFallback()
	RecordDispatchFailure()
	RecordParseAnomaly(endpoint string)
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}

// NopMetrics empty metrics collector implementation
type NopMetrics struct{}

func (*NopMetrics) RecordUpstreamRequest(endpoint string, success bool, duration time.Duration) {}
func (*NopMetrics) RecordFallback()                                                             {}
func (*NopMetrics) RecordDispatchFailure()                                                      {}
func (*NopMetrics) RecordParseAnomaly(endpoint string)                                          {}

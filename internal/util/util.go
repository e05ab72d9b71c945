package util

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"aihttpanalyzer/internal/core"
)

// NewJSONRequest creates an HTTP request with a raw JSON body and standard headers
func NewJSONRequest(method, url, body string) (*http.Request, error) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	}
	req.Header.Set("Accept", core.ContentTypeJSON)

	return req, nil
}

// ReadBody reads a response body up to core.MaxResponseBodySize. A longer
// body yields core.ErrResponseTooLarge instead of a silently cut string.
func ReadBody(resp *http.Response) (string, error) {
	return ReadBodyLimit(resp, core.MaxResponseBodySize)
}

// ReadBodyLimit reads at most limit bytes, reading one more to detect overflow.
func ReadBodyLimit(resp *http.Response, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w (%d bytes)", core.ErrResponseTooLarge, limit)
	}
	return string(data), nil
}

// TruncateString truncates string and adds replacement text in the middle
func TruncateString(s string, prefixLen, suffixLen int, replacement string) string {
	if len(s) > prefixLen+suffixLen {
		return s[:prefixLen] + replacement + s[len(s)-suffixLen:]
	}
	return s
}

// ParseEnvList parses comma-separated env var to trimmed slice
func ParseEnvList(envVar string) []string {
	if envVar == "" {
		return nil
	}
	parts := strings.Split(envVar, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// GetEnvWithDefault gets env var with default value
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntWithDefault gets a positive integer env var, warning on invalid values
func GetEnvIntWithDefault(key string, defaultValue int, logger core.Logger) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		logger.Warn("Invalid %s value '%s', using default %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

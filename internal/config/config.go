package config

import (
	"os"
	"time"

	"aihttpanalyzer/internal/core"
	"aihttpanalyzer/internal/util"
)

// ServerConfig server configuration
type ServerConfig struct {
	Port               string
	GinMode            string
	ClientAPIKeys      []string
	SettingsPath       string
	RateLimit          int
	HTTPClientSettings HTTPClientSettings
	Endpoint           *EndpointConfig
	Storage            core.PreferenceStore
	Logger             core.Logger
	Metrics            core.MetricsCollector
}

// HTTPClientSettings HTTP client configuration
type HTTPClientSettings struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	RequestTimeout      time.Duration
}

// DefaultHTTPClientSettings default HTTP client settings
func DefaultHTTPClientSettings() HTTPClientSettings {
	return HTTPClientSettings{
		MaxIdleConns:        core.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: core.HTTPMaxIdleConnsPerHost,
		MaxConnsPerHost:     core.HTTPMaxConnsPerHost,
		IdleConnTimeout:     core.HTTPIdleConnTimeout,
		TLSHandshakeTimeout: core.HTTPTLSHandshakeTimeout,
		RequestTimeout:      core.HTTPRequestTimeout,
	}
}

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	clientAPIKeys := util.ParseEnvList(os.Getenv("CLIENT_API_KEYS"))
	if len(clientAPIKeys) == 0 {
		logger.Warn("CLIENT_API_KEYS is empty, API routes are open to any local caller")
	} else {
		logger.Info("Loaded %d client API keys", len(clientAPIKeys))
	}

	httpSettings := DefaultHTTPClientSettings()
	if raw := os.Getenv("OLLAMA_REQUEST_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			logger.Warn("Invalid OLLAMA_REQUEST_TIMEOUT value '%s', using default %s", raw, core.HTTPRequestTimeout)
		} else {
			httpSettings.RequestTimeout = timeout
		}
	}

	config := ServerConfig{
		Port:               util.GetEnvWithDefault("PORT", core.DefaultPort),
		GinMode:            util.GetEnvWithDefault("GIN_MODE", core.DefaultGinMode),
		ClientAPIKeys:      clientAPIKeys,
		SettingsPath:       util.GetEnvWithDefault("SETTINGS_FILE", core.DefaultSettingsFilePath),
		RateLimit:          util.GetEnvIntWithDefault("RATE_LIMIT", core.DefaultRateLimit, logger),
		HTTPClientSettings: httpSettings,
	}

	return config, nil
}

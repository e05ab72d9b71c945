package core

import "time"

// HTTP client config constants
const (
	HTTPMaxIdleConns          = 50
	HTTPMaxIdleConnsPerHost   = 10
	HTTPMaxConnsPerHost       = 20
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 10 * time.Second
	HTTPResponseHeaderTimeout = 5 * time.Minute
	HTTPExpectContinueTimeout = 1 * time.Second
	HTTPRequestTimeout        = 5 * time.Minute
)

// Response body size limits
const (
	MaxResponseBodySize = 10 * 1024 * 1024
)

// Logging config constants
const (
	MaxDebugFilePathLength = 260
)

// File permission constants
const (
	FilePermissionReadWrite = 0644
)

// Time format constants
const (
	TimeFormatDateTime = "2006-01-02 15:04:05"
)

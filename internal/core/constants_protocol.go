package core

// Default config constants
const (
	DefaultPort             = "7860"
	DefaultGinMode          = "release"
	DefaultSettingsFilePath = "settings.json"
	DefaultRateLimit        = 120
	CORSMaxAge              = "86400"
)

// Endpoint preference defaults and keys
const (
	PreferenceNamespace = "ai.httpanal.ollama"
	PrefEnabled         = "enabled"
	PrefBaseURL         = "baseUrl"
	PrefModel           = "model"

	DefaultEnabled = false
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
)

// Ollama REST paths
const (
	OllamaGeneratePath = "/api/generate"
	OllamaChatPath     = "/api/chat"
	OllamaVersionPath  = "/api/version"
	OllamaTagsPath     = "/api/tags"
)

// Endpoint labels used in logs and metrics
const (
	EndpointGenerate = "generate"
	EndpointChat     = "chat"
	EndpointVersion  = "version"
	EndpointTags     = "tags"
)

// Response field names extracted from the two known response shapes
const (
	FieldResponse = "response"
	FieldContent  = "content"
	FieldName     = "name"
)

// Content type and header constants
const (
	ContentTypeJSON     = "application/json"
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXAPIKey       = "x-api-key"
	HeaderRequestID     = "X-Request-ID"
	AuthBearerPrefix    = "Bearer "
)

// Role constants
const (
	RoleUser   = "user"
	RoleSystem = "system"
)

// User-visible text prefixes
const (
	ParseErrorPrefix       = "Error parsing response: "
	DispatchErrorPrefix    = "Error: "
	UnavailablePrefix      = "AI functionality is not available. Error: "
	AIDisabledMessage      = "Please enable AI functionality."
	ProviderDisplayName    = "AI HTTP Analyzer"
	ProviderDisplayVersion = "2025.1.0"
)

// SystemMessage is the fixed instruction prepended to every analysis request.
const SystemMessage = "You are AI HTTP Analyzer, an advanced security analysis assistant integrated into Burp Suite. " +
	"Your role is to examine HTTP requests and responses for potential security vulnerabilities, " +
	"such as SQL injection, XSS, CSRF, and other threats. " +
	"Provide a focused technical analysis including: " +
	"1. Quick identification of detected vulnerabilities " +
	"2. Clear technical steps for exploitation " +
	"3. PoC examples and payloads where applicable " +
	"Keep responses concise and technical, focusing on exploitation methods. " +
	"Avoid theoretical discussions or lengthy explanations. " +
	"Additionally, provide direct answers to any user questions or inputs related to security testing."

package core

// OllamaGenerateResponse is the non-streaming /api/generate reply.
// Response is a pointer so an absent field can be told apart from an empty answer.
type OllamaGenerateResponse struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// OllamaChatMessage is a single role-tagged chat message.
type OllamaChatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// OllamaChatResponse is the non-streaming /api/chat reply.
type OllamaChatResponse struct {
	Model   string             `json:"model"`
	Message *OllamaChatMessage `json:"message"`
	Done    bool               `json:"done"`
}

// OllamaModel is a single entry of the /api/tags listing.
type OllamaModel struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// OllamaTagsResponse is the /api/tags reply.
type OllamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}

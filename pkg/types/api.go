package types

// LoadRequest is the payload for POST /load.
type LoadRequest struct {
	// Filesystem path to a .gguf model file.
	Path string `json:"path"`
	// Context window in tokens. Zero or negative selects the default (2048).
	NCtx int `json:"n_ctx,omitempty"`
	// Decode thread count. Zero or negative selects the default (4).
	NThreads int `json:"n_threads,omitempty"`
}

// LoadResponse is returned by POST /load and POST /unload.
type LoadResponse struct {
	Loaded bool `json:"loaded"`
}

// GenerateRequest is the payload for POST /generate.
type GenerateRequest struct {
	// Required prompt text.
	Prompt string `json:"prompt"`
	// Maximum number of new tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`
	// Sampling temperature; zero or negative means greedy argmax.
	Temperature float32 `json:"temperature,omitempty"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	// Full generated text (no streaming across this surface).
	Output string `json:"output"`
	// Number of tokens emitted.
	Tokens int `json:"tokens"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Loaded        bool   `json:"loaded"`
	Engine        string `json:"engine"`
	ModelPath     string `json:"model_path,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

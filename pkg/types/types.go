package types

// Model describes a discoverable GGUF model file.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ModelInfo is the introspection view of the currently loaded model.
// Field order matters: the serialized form is part of the bridge contract.
type ModelInfo struct {
	VocabSize   int  `json:"vocab_size"`
	ContextSize int  `json:"context_size"`
	Loaded      bool `json:"loaded"`
}

package session

// Engine abstracts the model runtime behind the session. Concrete variants
// (direct cgo bindings, go-llama.cpp, stub) are selected at compile time;
// tests inject scripted engines.
//
// Engines are not safe for concurrent use. The Session serializes every call
// behind its mutex; the only concurrency an engine observes is the stop
// callback, which must stay non-blocking.
type Engine interface {
	// Init prepares the underlying library. Idempotent.
	Init() error

	// Load builds a model and decoding context from a .gguf file. nCtx and
	// nThreads arrive already resolved to their effective values. On failure
	// the engine must release anything it acquired before returning.
	Load(path string, nCtx, nThreads int) error

	// Generate runs the tokenize→prefill→decode→sample loop. stop is polled
	// between sampling steps; when it reports true the loop exits and the
	// partial result is returned with a nil error. A per-token decode
	// failure likewise ends the loop with the partial result. Errors are
	// returned only for the failure modes that map to boundary sentinels.
	Generate(prompt string, maxTokens int, temperature float32, stop func() bool) (Result, error)

	// Unload releases the context then the model, in reverse construction
	// order. Safe to call when nothing is loaded.
	Unload()

	// InfoJSON returns the introspection payload for the current state.
	// The serialized form is part of the bridge contract.
	InfoJSON() string

	// Free releases global library resources. The session unloads first.
	Free()

	// Name identifies the runtime variant for status reporting.
	Name() string
}

// Result is the outcome of one generation call.
type Result struct {
	// Text is the concatenation of emitted token pieces. Pieces are raw
	// bytes; only the full concatenation is guaranteed to be valid UTF-8.
	Text string
	// Tokens is the number of tokens emitted.
	Tokens int
}

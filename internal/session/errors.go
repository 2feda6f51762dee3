package session

import "fmt"

// notLoadedError signals generate was invoked before a successful load.
type notLoadedError struct{}

func (notLoadedError) Error() string { return "model not loaded" }

// ErrNotLoaded constructs a notLoadedError.
func ErrNotLoaded() error { return notLoadedError{} }

// IsNotLoaded reports whether err indicates a missing model.
func IsNotLoaded(err error) bool {
	_, ok := err.(notLoadedError)
	return ok
}

// notInitializedError signals null model/context handles despite the loaded
// flag.
type notInitializedError struct{}

func (notInitializedError) Error() string { return "context not initialized" }

// ErrNotInitialized constructs a notInitializedError.
func ErrNotInitialized() error { return notInitializedError{} }

// IsNotInitialized reports whether err indicates null native handles.
func IsNotInitialized(err error) bool {
	_, ok := err.(notInitializedError)
	return ok
}

// tokenizeError signals the tokenizer returned a negative count.
type tokenizeError struct{}

func (tokenizeError) Error() string { return "tokenization failed" }

// ErrTokenizeFailed constructs a tokenizeError.
func ErrTokenizeFailed() error { return tokenizeError{} }

// IsTokenizeFailed reports whether err is a tokenizer failure.
func IsTokenizeFailed(err error) bool {
	_, ok := err.(tokenizeError)
	return ok
}

// decodeError signals the prompt prefill batch failed to decode. Per-token
// decode failures mid-loop are not surfaced as errors; the loop returns the
// partial output instead.
type decodeError struct{ code int }

func (e decodeError) Error() string { return fmt.Sprintf("decoding failed (status %d)", e.code) }

// ErrDecodeFailed constructs a decodeError with the native status code.
func ErrDecodeFailed(code int) error { return decodeError{code: code} }

// IsDecodeFailed reports whether err is a prefill decode failure.
func IsDecodeFailed(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

// loadError wraps a model or context construction failure.
type loadError struct {
	stage string // "model" or "context"
	path  string
}

func (e loadError) Error() string { return fmt.Sprintf("failed to load %s from %s", e.stage, e.path) }

// ErrLoadFailed constructs a loadError for the given stage.
func ErrLoadFailed(stage, path string) error { return loadError{stage: stage, path: path} }

// IsLoadFailed reports whether err is a model/context construction failure.
func IsLoadFailed(err error) bool {
	_, ok := err.(loadError)
	return ok
}

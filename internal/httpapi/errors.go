package httpapi

import (
	"net/http"

	"llamabridge/internal/session"
)

// statusFor maps session errors onto HTTP statuses for the control surface.
// The FFI boundary has its own mapping (booleans and sentinel strings); this
// one exists so curl and host test harnesses see meaningful codes.
func statusFor(err error) int {
	switch {
	case session.IsNotLoaded(err):
		return http.StatusConflict
	case session.IsTokenizeFailed(err):
		return http.StatusUnprocessableEntity
	case session.IsDecodeFailed(err):
		return http.StatusBadGateway
	case session.IsLoadFailed(err), session.IsNotInitialized(err):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// resultLabel names the failure mode for the generation counter.
func resultLabel(err error) string {
	switch {
	case session.IsNotLoaded(err):
		return "not_loaded"
	case session.IsTokenizeFailed(err):
		return "tokenize_failed"
	case session.IsDecodeFailed(err):
		return "decode_failed"
	case session.IsNotInitialized(err):
		return "not_initialized"
	}
	return "error"
}

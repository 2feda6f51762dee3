// Command libllamabridge builds the shared library the managed-runtime host
// loads over its foreign-function interface:
//
//	go build -buildmode=c-shared -o libllamabridge.so ./cmd/libllamabridge
//
// Build with -tags=llama for the real runtime; the default build exposes the
// identical symbol set backed by the deterministic stub engine.
//
// Boundary contract: strings arrive as null-terminated UTF-8 and are copied
// to Go-owned memory before any native call; returned strings are C buffers
// with an explicit length out-parameter, released by the host through
// llamabridge_free_string. Errors never cross as exceptions, only as booleans
// and sentinel-prefixed strings.
package main

/*
#include <stdlib.h>
#include <stdint.h>
#include <stdbool.h>
*/
import "C"

import (
	"unsafe"

	"llamabridge/internal/bridgelog"
	"llamabridge/internal/session"
)

// The process-global inference session. All FFI entry points funnel into it;
// its internal mutex provides the serialization the host relies on.
var sess = session.New()

// cOut copies s into a C buffer and reports its byte length. The buffer also
// carries a trailing NUL for hosts that ignore the length.
func cOut(s string, outLen *C.int32_t) *C.char {
	if outLen != nil {
		*outLen = C.int32_t(len(s))
	}
	return C.CString(s)
}

//export llamabridge_init
func llamabridge_init() C.bool {
	return C.bool(sess.Init() == nil)
}

//export llamabridge_load_model
func llamabridge_load_model(path *C.char, nCtx C.int32_t, nThreads C.int32_t) C.bool {
	err := sess.Load(C.GoString(path), int(nCtx), int(nThreads))
	return C.bool(err == nil)
}

//export llamabridge_generate
func llamabridge_generate(prompt *C.char, maxTokens C.int32_t, temperature C.float, outLen *C.int32_t) *C.char {
	out := sess.GenerateText(C.GoString(prompt), int(maxTokens), float32(temperature))
	return cOut(out, outLen)
}

//export llamabridge_cancel_generation
func llamabridge_cancel_generation() {
	sess.Cancel()
}

//export llamabridge_unload_model
func llamabridge_unload_model() {
	sess.Unload()
}

//export llamabridge_is_model_loaded
func llamabridge_is_model_loaded() C.bool {
	return C.bool(sess.Loaded())
}

//export llamabridge_free
func llamabridge_free() {
	sess.Free()
}

//export llamabridge_get_model_info
func llamabridge_get_model_info(outLen *C.int32_t) *C.char {
	return cOut(sess.InfoJSON(), outLen)
}

//export llamabridge_free_string
func llamabridge_free_string(p *C.char) {
	C.free(unsafe.Pointer(p))
}

func main() {
	// Required for c-shared builds; never invoked by the host.
	bridgelog.L().Warn().Msg("libllamabridge is a shared library, not an executable")
}

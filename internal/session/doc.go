// Package session owns the process-wide inference session: one loaded model,
// one decoding context, one mutex. It is structured into small files by
// concern:
//
//   - session.go: Session type, lifecycle ops (Init/Load/Unload/Free), locking.
//   - config.go: package defaults for context size and thread count.
//   - engine.go: Engine capability set shared by all runtime variants.
//   - generate.go: Generate entry point, cancellation flag, sentinel mapping.
//   - errors.go: typed errors and Is* helpers.
//
// Build tags and runtimes:
//
//   - Direct llama.cpp (cgo): the primary runtime. Enabled with `-tags=llama`.
//     Files: engine_llama.go (bindings + decode loop), llama_cgo.go (linker
//     rpath hints).
//
//   - go-llama.cpp: an alternate in-process runtime using the go-skynet
//     binding's coarse Predict API. Enabled with `-tags=gollama`.
//     File: engine_gollama.go.
//
//   - Stub: compiled when neither tag is set. Keeps every entry point and
//     returns deterministic placeholder output so host integration suites
//     can run without the native library. File: engine_stub.go.
//
// All mutating operations serialize on the session mutex. Cancellation is an
// atomic flag written without the lock and polled by the decode loop between
// sampling steps.
package session

//go:build !llama && !gollama

package session

import (
	"llamabridge/internal/bridgelog"
)

// This file provides the default engine compiled when no llama runtime tag
// is set. Unlike a fail-fast stub, its outputs are deliberately stable: host
// integration suites assert on them, so the strings below are contract.

const stubResponsePrefix = "[Stub Response] Model not compiled. Your prompt was: "

type stubEngine struct {
	loaded bool
	path   string
}

func newEngine() Engine { return &stubEngine{} }

func (e *stubEngine) Name() string { return "stub" }

func (e *stubEngine) Init() error {
	bridgelog.L().Warn().Msg("using stub implementation - llama runtime not compiled")
	return nil
}

// Load records the logically-loaded state without touching the filesystem.
// It never fails, so repeated loads with different paths simply land on the
// last path.
func (e *stubEngine) Load(path string, nCtx, nThreads int) error {
	e.loaded = true
	e.path = path
	bridgelog.L().Warn().Str("path", path).Msg("stub: model would be loaded")
	return nil
}

func (e *stubEngine) Generate(prompt string, maxTokens int, temperature float32, stop func() bool) (Result, error) {
	bridgelog.L().Warn().Msg("stub: would generate response")
	return Result{Text: stubResponsePrefix + firstN(prompt, 50) + "..."}, nil
}

func (e *stubEngine) Unload() {
	e.loaded = false
	e.path = ""
}

func (e *stubEngine) InfoJSON() string {
	return `{"stub":true,"loaded":false}`
}

func (e *stubEngine) Free() {}

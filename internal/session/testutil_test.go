package session

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"llamabridge/pkg/types"
)

// fakeEngine is a scripted runtime for session tests. It emits pieces from a
// fixed script, honors the stop callback between steps, and records every
// lifecycle call. The inflight counter trips the test if the session ever
// lets two engine calls overlap.
type fakeEngine struct {
	t *testing.T

	inflight atomic.Int32

	initCalls   atomic.Int32
	loadCalls   atomic.Int32
	unloadCalls atomic.Int32
	freeCalls   atomic.Int32

	lastPath     string
	lastNCtx     int
	lastNThreads int

	initErr error
	loadErr error
	genErr  error

	pieces    []string
	stepDelay time.Duration
}

func newFakeEngine(t *testing.T) *fakeEngine {
	return &fakeEngine{t: t}
}

func (e *fakeEngine) enter() {
	if e.inflight.Add(1) != 1 {
		e.t.Error("engine entered concurrently")
	}
}

func (e *fakeEngine) leave() { e.inflight.Add(-1) }

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Init() error {
	e.enter()
	defer e.leave()
	e.initCalls.Add(1)
	return e.initErr
}

func (e *fakeEngine) Load(path string, nCtx, nThreads int) error {
	e.enter()
	defer e.leave()
	e.loadCalls.Add(1)
	if e.loadErr != nil {
		return e.loadErr
	}
	e.lastPath = path
	e.lastNCtx = nCtx
	e.lastNThreads = nThreads
	return nil
}

func (e *fakeEngine) Generate(prompt string, maxTokens int, temperature float32, stop func() bool) (Result, error) {
	e.enter()
	defer e.leave()
	if e.genErr != nil {
		return Result{}, e.genErr
	}
	var sb strings.Builder
	n := 0
	for n < maxTokens && !stop() {
		if n >= len(e.pieces) {
			break
		}
		sb.WriteString(e.pieces[n])
		n++
		if e.stepDelay > 0 {
			time.Sleep(e.stepDelay)
		}
	}
	return Result{Text: sb.String(), Tokens: n}, nil
}

func (e *fakeEngine) Unload() {
	e.enter()
	defer e.leave()
	e.unloadCalls.Add(1)
	e.lastPath = ""
}

func (e *fakeEngine) InfoJSON() string {
	b, _ := json.Marshal(types.ModelInfo{VocabSize: 32000, ContextSize: e.lastNCtx, Loaded: e.lastPath != ""})
	return string(b)
}

func (e *fakeEngine) Free() {
	e.enter()
	defer e.leave()
	e.freeCalls.Add(1)
}

// loadedSession returns a session with the fake engine initialized and a
// model logically loaded.
func loadedSession(t *testing.T, eng *fakeEngine) *Session {
	t.Helper()
	s := NewWithEngine(eng)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.Load("/models/test.gguf", 0, 0); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

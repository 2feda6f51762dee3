//go:build gollama && !llama

package session

import (
	"encoding/json"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"llamabridge/internal/bridgelog"
	"llamabridge/pkg/types"
)

// gollamaEngine is an alternate in-process runtime on the go-skynet binding.
// Its Predict API is coarser than the direct bindings: sampling runs inside
// the library and cancellation rides the token callback. Vocab size is not
// exposed by that binding, so introspection reports 0 for it.
type gollamaEngine struct {
	model   *llama.LLama
	nCtx    int
	threads int
}

func newEngine() Engine { return &gollamaEngine{} }

func (e *gollamaEngine) Name() string { return "gollama" }

// Init is a no-op: go-llama.cpp initializes the backend on model load.
func (e *gollamaEngine) Init() error { return nil }

func (e *gollamaEngine) Free() {}

func (e *gollamaEngine) Load(path string, nCtx, nThreads int) error {
	if strings.TrimSpace(path) == "" {
		return ErrLoadFailed("model", path)
	}
	m, err := llama.New(path, llama.SetContext(nCtx))
	if err != nil {
		bridgelog.L().Error().Err(err).Str("path", path).Msg("go-llama load failed")
		return ErrLoadFailed("model", path)
	}
	e.model = m
	e.nCtx = nCtx
	e.threads = nThreads
	return nil
}

func (e *gollamaEngine) Unload() {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
}

func (e *gollamaEngine) Generate(prompt string, maxTokens int, temperature float32, stop func() bool) (Result, error) {
	if e.model == nil {
		return Result{}, ErrNotInitialized()
	}
	if maxTokens <= 0 {
		return Result{}, nil
	}

	var sb strings.Builder
	tokens := 0
	e.model.SetTokenCallback(func(tok string) bool {
		if stop() {
			return false
		}
		sb.WriteString(tok)
		tokens++
		return true
	})

	po := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(e.threads),
		llama.SetTemperature(temperature),
	}
	if _, err := e.model.Predict(prompt, po...); err != nil {
		// Callback-driven stops surface as errors from Predict; either way
		// the pieces already emitted are the result.
		if sb.Len() == 0 && tokens == 0 {
			return Result{}, ErrDecodeFailed(-1)
		}
		bridgelog.L().Error().Err(err).Msg("predict ended early")
	}
	return Result{Text: sb.String(), Tokens: tokens}, nil
}

func (e *gollamaEngine) InfoJSON() string {
	if e.model == nil {
		return "{}"
	}
	b, _ := json.Marshal(types.ModelInfo{ContextSize: e.nCtx, Loaded: true})
	return string(b)
}

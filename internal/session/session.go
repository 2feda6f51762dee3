package session

import (
	"sync"
	"sync/atomic"

	"llamabridge/internal/bridgelog"
)

// Session is the process-wide inference session. It owns the engine handles
// exclusively; nothing native is ever aliased to callers. All mutating
// operations serialize on mu, so a load issued while a generation holds the
// lock waits rather than preempting.
type Session struct {
	mu  sync.Mutex
	eng Engine

	backendReady bool
	loaded       atomic.Bool // mirrors model+context presence; lock-free read
	cancel       atomic.Bool // write-release by Cancel, acquire-read in the decode loop

	modelPath string
	nCtx      int
	nThreads  int
}

// New constructs a session around the compile-time engine variant.
func New() *Session {
	return &Session{eng: newEngine()}
}

// NewWithEngine constructs a session around an explicit engine. Used by
// tests to inject scripted runtimes.
func NewWithEngine(eng Engine) *Session {
	return &Session{eng: eng}
}

// Init prepares the underlying library. Safe to call repeatedly; a second
// init after a matching Free is permitted.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := bridgelog.L()
	log.Info().Msg("initializing llama backend")
	if err := s.eng.Init(); err != nil {
		log.Error().Err(err).Msg("backend init failed")
		return err
	}
	s.backendReady = true
	log.Info().Msg("llama backend initialized")
	return nil
}

// Load builds a model and decoding context from the given .gguf path. A
// previously loaded model is torn down first. On any failure the session is
// left in the "no model" state; partial state is impossible.
func (s *Session) Load(path string, nCtx, nThreads int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := bridgelog.L()
	log.Info().Str("path", path).Msg("loading model")

	if s.loaded.Load() {
		s.eng.Unload()
		s.loaded.Store(false)
		s.modelPath = ""
	}

	ctxLen := resolveNCtx(nCtx)
	threads := resolveNThreads(nThreads)
	if err := s.eng.Load(path, ctxLen, threads); err != nil {
		log.Error().Err(err).Str("path", path).Msg("model load failed")
		return err
	}

	s.loaded.Store(true)
	s.modelPath = path
	s.nCtx = ctxLen
	s.nThreads = threads
	log.Info().Int("n_ctx", ctxLen).Int("n_threads", threads).Msg("model loaded")
	return nil
}

// Unload releases the context then the model. No-op when nothing is loaded.
func (s *Session) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	bridgelog.L().Info().Msg("unloading model")
	s.eng.Unload()
	s.loaded.Store(false)
	s.modelPath = ""
	bridgelog.L().Info().Msg("model unloaded")
}

// Loaded reports whether a model and context are present. Lock-free so hosts
// can poll it during a long generation.
func (s *Session) Loaded() bool {
	return s.loaded.Load()
}

// ModelPath returns the path of the loaded model, or "" when none.
func (s *Session) ModelPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelPath
}

// InfoJSON returns the introspection payload for the current state.
func (s *Session) InfoJSON() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.InfoJSON()
}

// EngineName identifies the compiled runtime variant.
func (s *Session) EngineName() string {
	return s.eng.Name()
}

// Free releases global library resources, unloading first so no handles
// outlive the backend.
func (s *Session) Free() {
	s.mu.Lock()
	defer s.mu.Unlock()
	bridgelog.L().Info().Msg("freeing llama backend")
	s.eng.Unload()
	s.loaded.Store(false)
	s.modelPath = ""
	s.eng.Free()
	s.backendReady = false
	bridgelog.L().Info().Msg("llama backend freed")
}

package session

import (
	"llamabridge/internal/bridgelog"
)

// Sentinel strings crossing the foreign-function boundary. Errors never
// cross as exceptions; the boundary layers map typed errors onto these.
const (
	SentinelNotLoaded      = "[Error: Model not loaded]"
	SentinelNotInitialized = "[Error: Context not initialized]"
	SentinelTokenizeFailed = "[Error: Tokenization failed]"
	SentinelDecodeFailed   = "[Error: Decoding failed]"
)

// Sentinel maps a generation error to its boundary string. ok is false for
// nil or unrecognized errors.
func Sentinel(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case IsNotLoaded(err):
		return SentinelNotLoaded, true
	case IsNotInitialized(err):
		return SentinelNotInitialized, true
	case IsTokenizeFailed(err):
		return SentinelTokenizeFailed, true
	case IsDecodeFailed(err):
		return SentinelDecodeFailed, true
	}
	return "", false
}

// Generate runs one full generation. It holds the session lock for the whole
// call, so concurrent generations queue. The cancel flag is reset on entry;
// a cancel observed mid-loop ends the call with the partial output and a nil
// error; the host correlates partial results with its own cancel call.
func (s *Session) Generate(prompt string, maxTokens int, temperature float32) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded.Load() {
		bridgelog.L().Error().Msg("generate called with no model loaded")
		return Result{}, ErrNotLoaded()
	}

	s.cancel.Store(false)

	log := bridgelog.L()
	log.Info().Str("prompt", firstN(prompt, 50)).Msg("generation start")

	res, err := s.eng.Generate(prompt, maxTokens, temperature, s.cancel.Load)
	if err != nil {
		log.Error().Err(err).Msg("generation failed")
		return Result{}, err
	}
	log.Info().Int("tokens", res.Tokens).Msg("generation complete")
	return res, nil
}

// GenerateText is the boundary-shaped variant: it folds errors into their
// sentinel strings so the caller always receives a string.
func (s *Session) GenerateText(prompt string, maxTokens int, temperature float32) string {
	res, err := s.Generate(prompt, maxTokens, temperature)
	if sent, ok := Sentinel(err); ok {
		return sent
	}
	return res.Text
}

// Cancel requests that an in-flight generation stop. It never takes the
// session lock and never blocks; the decode loop observes the flag between
// sampling steps, so at most one additional token is produced.
func (s *Session) Cancel() {
	bridgelog.L().Info().Msg("cancelling generation")
	s.cancel.Store(true)
}

// firstN truncates s to at most n bytes. Byte truncation matches the
// original host contract even when it splits a multibyte rune.
func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

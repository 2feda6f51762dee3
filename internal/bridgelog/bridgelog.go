// Package bridgelog provides the shared structured logger for the bridge.
// Every line carries the fixed component tag so host-side log filters can
// isolate bridge output, mirroring the single log category the mobile host
// expects.
package bridgelog

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Component is the fixed tag attached to every log line.
const Component = "llama_bridge"

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", Component).Logger()
)

// L returns the current bridge logger. The pointer refers to a private copy,
// so callers can chain level methods and hold it across a SetOutput.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// SetOutput replaces the log sink. Tests pass io.Discard.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = zerolog.New(w).With().Timestamp().Str("component", Component).Logger()
}

// SetLevel applies a global level by name; unknown names fall back to info.
func SetLevel(name string) {
	switch strings.ToLower(name) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// FileOutput returns a rotating file writer suitable for SetOutput.
func FileOutput(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
	}
}

// ConsoleOutput returns a human-friendly writer for interactive use.
func ConsoleOutput() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr}
}

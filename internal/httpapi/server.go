package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"llamabridge/internal/bridgelog"
	"llamabridge/internal/registry"
	"llamabridge/internal/session"
	"llamabridge/pkg/types"
)

// Service defines the session methods required by the HTTP layer. The
// routes mirror the foreign-function surface one-to-one so host teams can
// exercise the same contract over localhost during development.
type Service interface {
	Load(path string, nCtx, nThreads int) error
	Generate(prompt string, maxTokens int, temperature float32) (session.Result, error)
	Cancel()
	Unload()
	Loaded() bool
	InfoJSON() string
	EngineName() string
	ModelPath() string
}

// zlog is an optional structured logger. If unset, falls back to the bridge
// logger.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l *zerolog.Logger) { zlog = l }

func httpLog() *zerolog.Logger {
	if zlog != nil {
		return zlog
	}
	return bridgelog.L()
}

// modelsDir is scanned by GET /models. Empty disables discovery.
var modelsDir string

// SetModelsDir configures the directory scanned for *.gguf files.
func SetModelsDir(dir string) { modelsDir = dir }

// maxBodyBytes controls the maximum allowed request body size for JSON
// endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

var serverStart = time.Now()

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	// Local tooling (web UIs on another port) talks to this surface.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)

	r.Post("/load", func(w http.ResponseWriter, r *http.Request) {
		var req types.LoadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Path) == "" {
			writeJSONError(w, http.StatusBadRequest, "path is required")
			return
		}
		if err := svc.Load(req.Path, req.NCtx, req.NThreads); err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, types.LoadResponse{Loaded: true})
	})

	r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		// An empty prompt is valid: the tokenizer still emits the leading
		// BOS token and generation proceeds from it.
		start := time.Now()
		res, err := svc.Generate(req.Prompt, req.MaxTokens, req.Temperature)
		generationDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			generationsTotal.WithLabelValues(resultLabel(err)).Inc()
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		generationsTotal.WithLabelValues("ok").Inc()
		generatedTokensTotal.Add(float64(res.Tokens))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			httpLog().Info().Str("request_id", rid).Int("tokens", res.Tokens).
				Dur("dur", time.Since(start)).Msg("generate end")
		}
		writeJSON(w, types.GenerateResponse{Output: res.Text, Tokens: res.Tokens})
	})

	r.Post("/cancel", func(w http.ResponseWriter, r *http.Request) {
		svc.Cancel()
		w.WriteHeader(http.StatusAccepted)
	})

	r.Post("/unload", func(w http.ResponseWriter, r *http.Request) {
		svc.Unload()
		writeJSON(w, types.LoadResponse{Loaded: false})
	})

	r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(svc.InfoJSON()))
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		if modelsDir == "" {
			writeJSON(w, types.ModelsResponse{})
			return
		}
		models, err := registry.LoadDir(modelsDir)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, types.ModelsResponse{Models: models})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.StatusResponse{
			Loaded:        svc.Loaded(),
			Engine:        svc.EngineName(),
			ModelPath:     svc.ModelPath(),
			UptimeSeconds: int64(time.Since(serverStart).Seconds()),
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Loaded() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no model"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// decodeJSON enforces content type and body limits, then decodes into dst.
// It writes the error response itself and reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

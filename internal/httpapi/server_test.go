package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"llamabridge/internal/session"
	"llamabridge/pkg/types"
)

// mockService implements Service with scripted results.
type mockService struct {
	loaded    bool
	loadErr   error
	genRes    session.Result
	genErr    error
	cancelled  int
	unloaded   int
	genCalls   int
	lastPrompt string
	lastLoad   types.LoadRequest
}

func (m *mockService) Load(path string, nCtx, nThreads int) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	m.lastLoad = types.LoadRequest{Path: path, NCtx: nCtx, NThreads: nThreads}
	m.loaded = true
	return nil
}

func (m *mockService) Generate(prompt string, maxTokens int, temperature float32) (session.Result, error) {
	m.genCalls++
	m.lastPrompt = prompt
	if m.genErr != nil {
		return session.Result{}, m.genErr
	}
	return m.genRes, nil
}

func (m *mockService) Cancel()          { m.cancelled++ }
func (m *mockService) Unload()          { m.unloaded++; m.loaded = false }
func (m *mockService) Loaded() bool     { return m.loaded }
func (m *mockService) InfoJSON() string { return `{"vocab_size":32000,"context_size":2048,"loaded":true}` }
func (m *mockService) EngineName() string { return "mock" }
func (m *mockService) ModelPath() string {
	if m.loaded {
		return "/models/m.gguf"
	}
	return ""
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func getPath(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLoadEndpoint(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)

	rr := postJSON(t, h, "/load", `{"path":"/models/m.gguf","n_ctx":4096,"n_threads":8}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp types.LoadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Loaded {
		t.Error("loaded = false")
	}
	if svc.lastLoad.NCtx != 4096 || svc.lastLoad.NThreads != 8 {
		t.Errorf("load params = %+v", svc.lastLoad)
	}
}

func TestLoadRequiresPath(t *testing.T) {
	h := NewMux(&mockService{})
	rr := postJSON(t, h, "/load", `{"path":"  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Code != http.StatusBadRequest || e.Error == "" {
		t.Errorf("error payload = %+v", e)
	}
}

func TestLoadFailureStatus(t *testing.T) {
	svc := &mockService{loadErr: session.ErrLoadFailed("model", "/models/bad.gguf")}
	h := NewMux(svc)
	rr := postJSON(t, h, "/load", `{"path":"/models/bad.gguf"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	svc := &mockService{loaded: true, genRes: session.Result{Text: "hello back", Tokens: 3}}
	h := NewMux(svc)

	rr := postJSON(t, h, "/generate", `{"prompt":"hello","max_tokens":32,"temperature":0.7}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp types.GenerateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Output != "hello back" || resp.Tokens != 3 {
		t.Errorf("response = %+v", resp)
	}
}

func TestGenerateWithoutModelConflicts(t *testing.T) {
	svc := &mockService{genErr: session.ErrNotLoaded()}
	h := NewMux(svc)
	rr := postJSON(t, h, "/generate", `{"prompt":"hello"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestGenerateErrorStatuses(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"tokenize", session.ErrTokenizeFailed(), http.StatusUnprocessableEntity},
		{"decode", session.ErrDecodeFailed(1), http.StatusBadGateway},
		{"not_initialized", session.ErrNotInitialized(), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewMux(&mockService{genErr: tc.err})
			rr := postJSON(t, h, "/generate", `{"prompt":"hello"}`)
			if rr.Code != tc.want {
				t.Errorf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestGenerateAllowsEmptyPrompt(t *testing.T) {
	// An empty prompt tokenizes to the BOS token alone, so the route hands
	// it to the core instead of rejecting it.
	svc := &mockService{loaded: true, genRes: session.Result{Text: "from bos", Tokens: 2}}
	h := NewMux(svc)
	rr := postJSON(t, h, "/generate", `{"max_tokens":32}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if svc.genCalls != 1 || svc.lastPrompt != "" {
		t.Errorf("generate calls = %d, prompt = %q", svc.genCalls, svc.lastPrompt)
	}
	var resp types.GenerateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Output != "from bos" {
		t.Errorf("output = %q", resp.Output)
	}
}

func TestGenerateRejectsWrongContentType(t *testing.T) {
	h := NewMux(&mockService{loaded: true})
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rr.Code)
	}
}

func TestGenerateRejectsInvalidJSON(t *testing.T) {
	h := NewMux(&mockService{loaded: true})
	rr := postJSON(t, h, "/generate", `{"prompt":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSetLoggerReceivesGenerateLines(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	SetLogger(&l)
	defer SetLogger(nil)

	svc := &mockService{loaded: true, genRes: session.Result{Text: "out", Tokens: 1}}
	h := NewMux(svc)
	rr := postJSON(t, h, "/generate", `{"prompt":"hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(buf.String(), "generate end") {
		t.Errorf("installed logger missed the generate line: %s", buf.String())
	}
}

func TestCancelEndpoint(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	rr := postJSON(t, h, "/cancel", `{}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rr.Code)
	}
	if svc.cancelled != 1 {
		t.Errorf("cancel calls = %d", svc.cancelled)
	}
}

func TestUnloadEndpoint(t *testing.T) {
	svc := &mockService{loaded: true}
	h := NewMux(svc)
	rr := postJSON(t, h, "/unload", `{}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp types.LoadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Loaded {
		t.Error("loaded = true after unload")
	}
	if svc.unloaded != 1 {
		t.Errorf("unload calls = %d", svc.unloaded)
	}
}

func TestInfoEndpointPassesRawJSON(t *testing.T) {
	h := NewMux(&mockService{loaded: true})
	rr := getPath(t, h, "/info")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Body.String(); got != `{"vocab_size":32000,"context_size":2048,"loaded":true}` {
		t.Errorf("body = %s", got)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := NewMux(&mockService{loaded: true})
	rr := getPath(t, h, "/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp types.StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Loaded || resp.Engine != "mock" || resp.ModelPath != "/models/m.gguf" {
		t.Errorf("status = %+v", resp)
	}
}

func TestModelsEndpoint(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.gguf", "b.GGUF", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	SetModelsDir(dir)
	defer SetModelsDir("")

	h := NewMux(&mockService{})
	rr := getPath(t, h, "/models")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp types.ModelsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) != 2 {
		t.Fatalf("models = %d, want 2", len(resp.Models))
	}
}

func TestModelsEndpointNoDirConfigured(t *testing.T) {
	SetModelsDir("")
	h := NewMux(&mockService{})
	rr := getPath(t, h, "/models")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := NewMux(&mockService{})
	rr := getPath(t, h, "/healthz")
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("healthz = (%d, %q)", rr.Code, rr.Body.String())
	}
}

func TestReadyzTracksModelState(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)
	if rr := getPath(t, h, "/readyz"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with no model = %d, want 503", rr.Code)
	}
	svc.loaded = true
	if rr := getPath(t, h, "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("readyz with model = %d, want 200", rr.Code)
	}
}

func TestBodyLimitEnforced(t *testing.T) {
	SetMaxBodyBytes(64)
	defer SetMaxBodyBytes(0)

	h := NewMux(&mockService{loaded: true})
	big := `{"prompt":"` + strings.Repeat("a", 200) + `"}`
	rr := postJSON(t, h, "/generate", big)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

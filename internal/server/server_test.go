package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raidstats/raid-chat/internal/cache"
	"github.com/raidstats/raid-chat/internal/chat"
	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/monitor"
	"github.com/raidstats/raid-chat/internal/pkg/logger"
	"github.com/raidstats/raid-chat/internal/session"
	"github.com/raidstats/raid-chat/internal/statdb"
)

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, int, error) {
	return "SELECT COUNT(*) FROM \"S_RBR\"", 40, nil
}

type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, query string) (string, error) {
	return "count\n42", nil
}

type stubFormatter struct{}

func (stubFormatter) Format(ctx context.Context, question, query, result string) (string, int, error) {
	return "There were 42 raids.", 20, nil
}

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	log := logger.Default()
	queryCache := cache.NewStore(cache.Options{Name: "query", MaxSize: 50})
	resultCache := cache.NewStore(cache.Options{Name: "result", MaxSize: 50})
	registry := session.NewRegistry(config.SessionConfig{MaxTurns: 10, MaxSessions: 100}, log)
	mon := monitor.New(100)

	svc := chat.NewService(chat.Options{
		Log:         log,
		QueryCache:  queryCache,
		ResultCache: resultCache,
		Registry:    registry,
		Monitor:     mon,
		Generator:   stubGenerator{},
		Executor:    stubExecutor{},
		Formatter:   stubFormatter{},
	})

	h := NewChatHandler(svc, queryCache, resultCache, registry, mon, config.MonitorConfig{
		MaxResponseSec:  5.0,
		MaxErrorRate:    0.15,
		MinCacheHitRate: 0.4,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	mux.ServeHTTP(w, r)
	return w
}

func TestHandleChat(t *testing.T) {
	mux := newTestMux(t)

	w := postJSON(t, mux, "/v1/chat", ChatRequest{Question: "How many raids were there?", SessionID: "s1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp chat.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Answer != "There were 42 raids." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.SessionID != "s1" {
		t.Errorf("expected session id s1, got %q", resp.SessionID)
	}
}

func TestHandleChatMissingQuestion(t *testing.T) {
	mux := newTestMux(t)

	w := postJSON(t, mux, "/v1/chat", ChatRequest{Question: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandleChatInvalidBody(t *testing.T) {
	mux := newTestMux(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader([]byte("{not json")))
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestHandleFeedback(t *testing.T) {
	mux := newTestMux(t)

	// Feedback requires an existing conversation.
	postJSON(t, mux, "/v1/chat", ChatRequest{Question: "How many raids were there?", SessionID: "s1"})

	w := postJSON(t, mux, "/v1/feedback", FeedbackRequest{SessionID: "s1", Feedback: "great answer"})
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, mux, "/v1/feedback", FeedbackRequest{SessionID: "missing", Feedback: "great"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown session, got %d", w.Code)
	}

	w = postJSON(t, mux, "/v1/feedback", FeedbackRequest{SessionID: "s1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for empty feedback, got %d", w.Code)
	}
}

func TestHandleSuggestions(t *testing.T) {
	mux := newTestMux(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/suggestions?count=3", nil)
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(resp.Suggestions))
	}

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/v1/suggestions?count=zero", nil)
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad count, got %d", w.Code)
	}
}

func TestHandleStats(t *testing.T) {
	mux := newTestMux(t)

	postJSON(t, mux, "/v1/chat", ChatRequest{Question: "How many raids were there?", SessionID: "s1"})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Sessions != 1 {
		t.Errorf("expected 1 session, got %d", resp.Sessions)
	}
	if resp.Performance.TotalOperations != 1 {
		t.Errorf("expected 1 recorded operation, got %d", resp.Performance.TotalOperations)
	}
	if resp.QueryCache.Size != 1 {
		t.Errorf("expected 1 cached query, got %d", resp.QueryCache.Size)
	}
}

func TestHandleSession(t *testing.T) {
	mux := newTestMux(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/sessions/unknown", nil)
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown session, got %d", w.Code)
	}

	postJSON(t, mux, "/v1/chat", ChatRequest{Question: "How many raids were there?", SessionID: "s9"})

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/v1/sessions/s9", nil)
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		SessionID string         `json:"session_id"`
		History   []session.Turn `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "s9" {
		t.Errorf("expected session id s9, got %q", resp.SessionID)
	}
	if len(resp.History) != 1 {
		t.Errorf("expected 1 turn, got %d", len(resp.History))
	}
}

func TestHealthEndpoints(t *testing.T) {
	db, err := statdb.Open(config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	log := logger.Default()
	registry := session.NewRegistry(config.SessionConfig{MaxTurns: 10, MaxSessions: 100}, log)
	h := NewHealthHandler(db, registry, monitor.New(100), "1.2.3")

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	for _, path := range []string{"/healthz", "/readyz", "/v1/health"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, path, nil)
		mux.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
	mux.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var version map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &version); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if version["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", version["version"])
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/v1/chat", nil)
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for OPTIONS, got %d", w.Code)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected Access-Control-Allow-Origin *, got %s", origin)
	}
}

func TestResponseWrapperMiddleware(t *testing.T) {
	handler := ResponseWrapperMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"answer": "ok"})
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
	handler.ServeHTTP(w, r)

	var wrapped WrappedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &wrapped); err != nil {
		t.Fatalf("decode wrapped response: %v", err)
	}
	if wrapped.Meta.RequestID == "" {
		t.Error("expected a request id")
	}
	if wrapped.Data == nil {
		t.Error("expected wrapped data")
	}

	// Non-API paths pass through untouched.
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	ResponseWrapperMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})).ServeHTTP(w, r)

	var plain map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &plain); err != nil {
		t.Fatalf("decode passthrough response: %v", err)
	}
	if plain["status"] != "ok" {
		t.Errorf("expected passthrough body, got %s", w.Body.String())
	}
}

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("unexpected base URL: %s", cfg.BaseURL)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("unexpected timeout: %s", cfg.Timeout)
	}
}

func TestClientNew(t *testing.T) {
	c := New(Config{})
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected default base URL, got %s", c.baseURL)
	}

	c = New(Config{BaseURL: "http://example.com:9090"})
	if c.baseURL != "http://example.com:9090" {
		t.Errorf("expected custom base URL, got %s", c.baseURL)
	}
}

func TestClientAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Question != "How many raids were there?" {
			t.Errorf("unexpected question: %q", req.Question)
		}

		// The server wraps API responses in a data/meta envelope.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": ChatResponse{
				Success:   true,
				Answer:    "There were 42 raids.",
				SessionID: req.SessionID,
			},
			"meta": map[string]interface{}{"request_id": "abc123"},
		})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	resp, err := c.Ask(context.Background(), "How many raids were there?", "s1")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Answer != "There were 42 raids." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.SessionID != "s1" {
		t.Errorf("unexpected session id: %q", resp.SessionID)
	}
}

func TestClientAskUnwrapped(t *testing.T) {
	// Responses without the envelope decode too.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{Success: true, Answer: "plain"})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	resp, err := c.Ask(context.Background(), "question", "")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if resp.Answer != "plain" {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
}

func TestClientAskError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "question: is required"})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	_, err := c.Ask(context.Background(), "", "")
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected status: %d", apiErr.StatusCode)
	}
	if apiErr.Message != "question: is required" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}

func TestClientFeedback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/feedback" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]bool{"recorded": true})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	if err := c.Feedback(context.Background(), "s1", "great answer"); err != nil {
		t.Fatalf("feedback: %v", err)
	}
}

func TestClientSuggestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/suggestions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("team"); got != "PU" {
			t.Errorf("unexpected team: %q", got)
		}
		if got := r.URL.Query().Get("count"); got != "3" {
			t.Errorf("unexpected count: %q", got)
		}
		json.NewEncoder(w).Encode(map[string][]string{
			"suggestions": {"a", "b", "c"},
		})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	got, err := c.Suggestions(context.Background(), "", "PU", 3)
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(got))
	}
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("unexpected status: %q", resp.Status)
	}
}

func TestClientVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"version": "1.2.3"})
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	version, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != "1.2.3" {
		t.Errorf("unexpected version: %q", version)
	}
}

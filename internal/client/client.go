// Package client provides an HTTP client for the raid-chat API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is an HTTP client for the raid-chat API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config configures the client.
type Config struct {
	// BaseURL is the base URL of the API server.
	BaseURL string

	// Timeout is the request timeout. Chat requests can take a while when
	// the answer is not cached, so the default is generous.
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle (keep-alive) connections
	// across all hosts. Zero means no limit.
	MaxIdleConns int

	// MaxConnsPerHost limits the total number of connections per host.
	// Zero means no limit.
	MaxConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle (keep-alive)
	// connection will remain idle before closing itself.
	IdleConnTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:8080",
		Timeout:         60 * time.Second,
		MaxIdleConns:    100,
		MaxConnsPerHost: 100,
		IdleConnTimeout: 90 * time.Second,
	}
}

// New creates a new API client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = 100
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost / 5,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// ChatRequest represents a chat request.
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse represents a chat response.
type ChatResponse struct {
	Success     bool     `json:"success"`
	Answer      string   `json:"answer"`
	Query       string   `json:"query,omitempty"`
	Elapsed     float64  `json:"elapsed"`
	TokensUsed  int      `json:"tokens_used"`
	CacheHit    bool     `json:"cache_hit"`
	SessionID   string   `json:"session_id,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// APIError represents an API error response.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Ask sends a question and returns the answer.
func (c *Client) Ask(ctx context.Context, question, sessionID string) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.post(ctx, "/v1/chat", ChatRequest{Question: question, SessionID: sessionID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Feedback attaches feedback to the most recent answer in a session.
func (c *Client) Feedback(ctx context.Context, sessionID, feedback string) error {
	req := map[string]string{
		"session_id": sessionID,
		"feedback":   feedback,
	}
	return c.post(ctx, "/v1/feedback", req, nil)
}

// Suggestions fetches suggested questions, optionally biased toward a
// session's conversation or a team code.
func (c *Client) Suggestions(ctx context.Context, sessionID, team string, count int) ([]string, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	if team != "" {
		q.Set("team", team)
	}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}

	path := "/v1/suggestions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}

// Stats returns cache and pipeline statistics as raw JSON.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/v1/stats", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Health checks if the API is healthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/healthz", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Version returns the server version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp map[string]string
	if err := c.get(ctx, "/v1/version", &resp); err != nil {
		return "", err
	}
	return resp["version"], nil
}

// get performs a GET request.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// post performs a POST request.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, result)
}

// do executes a request and decodes the response, unwrapping the
// server's data/meta envelope when present.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(body)
		}
		return &apiErr
	}

	if result == nil || len(body) == 0 {
		return nil
	}

	// API responses arrive wrapped as {"data": ..., "meta": {...}}.
	var envelope struct {
		Data json.RawMessage `json:"data"`
		Meta json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Meta) > 0 && len(envelope.Data) > 0 {
		body = envelope.Data
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

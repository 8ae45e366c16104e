// Package chat orchestrates the conversational analytics pipeline:
// greeting short-circuit, follow-up rewriting, cached query generation,
// cached execution, and answer formatting.
package chat

import (
	"context"
	"time"
)

// Request is one question within an optional session.
type Request struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// Response is the outcome of one orchestrated request. The pipeline
// always produces a Response; external failures degrade to a guided
// answer rather than an error.
type Response struct {
	Success     bool          `json:"success"`
	Answer      string        `json:"response"`
	Query       string        `json:"sql_query,omitempty"`
	Elapsed     time.Duration `json:"total_time"`
	TokensUsed  int           `json:"tokens_used"`
	CacheHit    bool          `json:"cache_hit"`
	SessionID   string        `json:"session_id,omitempty"`
	Suggestions []string      `json:"suggestions"`
}

// Generator produces raw query text from a prompt. Returns the text
// and the token count consumed.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, int, error)
}

// Executor runs a query and returns its result as text.
type Executor interface {
	Execute(ctx context.Context, query string) (string, error)
}

// Formatter renders a raw result into a user-facing answer. Returns
// the answer and the token count consumed.
type Formatter interface {
	Format(ctx context.Context, question, query, result string) (string, int, error)
}

// Sanitizer turns raw generation output into executable query text.
type Sanitizer interface {
	Clean(raw string) string
}

// SchemaProvider describes the queryable tables for prompt assembly.
type SchemaProvider interface {
	SchemaDescription(ctx context.Context) (string, error)
}

// SuggestionGenerator produces follow-up question suggestions from a
// prompt. Optional; the suggester falls back to fixed lists without it.
type SuggestionGenerator interface {
	SuggestQuestions(ctx context.Context, prompt string, limit int) ([]string, error)
}

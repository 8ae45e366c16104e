package security

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation limits for API input.
const (
	// MaxQuestionLength is the maximum length of a user question.
	MaxQuestionLength = 2000

	// MaxFeedbackLength is the maximum length of a feedback message.
	MaxFeedbackLength = 2000

	// MaxSessionIDLength is the maximum length of a session identifier.
	MaxSessionIDLength = 128
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateQuestion validates a user question.
// Requirements: required, at most MaxQuestionLength chars, valid UTF-8,
// no null bytes.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return &ValidationError{Field: "question", Reason: "is required"}
	}
	if len(question) > MaxQuestionLength {
		return &ValidationError{Field: "question", Reason: fmt.Sprintf("exceeds maximum length of %d", MaxQuestionLength)}
	}
	if !utf8.ValidString(question) {
		return &ValidationError{Field: "question", Reason: "is not valid UTF-8"}
	}
	if strings.Contains(question, "\x00") {
		return &ValidationError{Field: "question", Reason: "contains null byte"}
	}
	return nil
}

// ValidateSessionID validates a session identifier. Empty session IDs are
// allowed; they mean a stateless one-shot request.
// Requirements: at most MaxSessionIDLength chars, alphanumeric plus
// hyphen and underscore.
func ValidateSessionID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > MaxSessionIDLength {
		return &ValidationError{Field: "session_id", Reason: fmt.Sprintf("exceeds maximum length of %d", MaxSessionIDLength)}
	}
	for _, r := range id {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return &ValidationError{Field: "session_id", Reason: "contains invalid characters"}
	}
	return nil
}

// ValidateFeedback validates a feedback message.
func ValidateFeedback(feedback string) error {
	if strings.TrimSpace(feedback) == "" {
		return &ValidationError{Field: "feedback", Reason: "is required"}
	}
	if len(feedback) > MaxFeedbackLength {
		return &ValidationError{Field: "feedback", Reason: fmt.Sprintf("exceeds maximum length of %d", MaxFeedbackLength)}
	}
	if !utf8.ValidString(feedback) {
		return &ValidationError{Field: "feedback", Reason: "is not valid UTF-8"}
	}
	return nil
}

// writeVerbs are SQL keywords that modify data or schema. Generated
// queries must be read-only.
var writeVerbs = []string{
	"insert", "update", "delete", "drop", "alter", "create",
	"replace", "attach", "detach", "vacuum", "reindex", "pragma",
}

// EnsureReadOnlyQuery checks that a generated SQL query is a single
// read-only statement. Model output is not trusted: anything that is not
// a plain SELECT (or WITH ... SELECT) is rejected before execution.
func EnsureReadOnlyQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return &ValidationError{Field: "query", Reason: "is empty"}
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return &ValidationError{Field: "query", Reason: "only SELECT statements are allowed"}
	}

	// Reject multi-statement input. A single trailing semicolon is fine.
	if rest := strings.TrimRight(trimmed, "; \t\n"); strings.Contains(rest, ";") {
		return &ValidationError{Field: "query", Reason: "multiple statements are not allowed"}
	}

	// Write verbs may only appear inside string literals; strip literals
	// before scanning.
	scrubbed := stripStringLiterals(lower)
	for _, verb := range writeVerbs {
		if containsWord(scrubbed, verb) {
			return &ValidationError{Field: "query", Reason: fmt.Sprintf("statement %q is not allowed", verb)}
		}
	}

	return nil
}

// stripStringLiterals removes single-quoted SQL string literals.
func stripStringLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			inString = !inString
			continue
		}
		if !inString {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// containsWord reports whether word occurs in s on its own, not as part
// of a longer identifier.
func containsWord(s, word string) bool {
	for start := 0; ; {
		idx := strings.Index(s[start:], word)
		if idx < 0 {
			return false
		}
		idx += start

		before := idx == 0 || !isIdentChar(s[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(s) || !isIdentChar(s[afterIdx])
		if before && after {
			return true
		}
		start = idx + len(word)
	}
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}

// Package session holds per-session conversational state: a bounded
// history of turns, follow-up detection, and best-effort rephrasing of
// referential questions into standalone ones.
package session

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// contextAnswerLimit caps how much of a stored answer is rendered into
// the generation context for each turn.
const contextAnswerLimit = 200

// Turn is a single question/answer exchange within a session.
type Turn struct {
	Timestamp    time.Time     `json:"timestamp"`
	Question     string        `json:"question"`
	Query        string        `json:"query"`
	Result       string        `json:"result"`
	Answer       string        `json:"answer"`
	TokensUsed   int           `json:"tokens_used"`
	ResponseTime time.Duration `json:"response_time"`
	Feedback     string        `json:"feedback,omitempty"`
}

// Entities holds the vocabulary matches found in recent question text,
// in first-seen order within each category.
type Entities struct {
	Teams     []string
	Players   []string
	Positions []string
	Actions   []string
}

// Stats summarizes a session.
type Stats struct {
	Duration          time.Duration `json:"session_duration"`
	TotalQuestions    int           `json:"total_questions"`
	TotalTokens       int           `json:"total_tokens"`
	AvgTokensPerQuery float64       `json:"avg_tokens_per_question"`
	TurnCount         int           `json:"conversation_turns"`
}

// Memory is the bounded conversational history for one session. It is
// safe for concurrent use; concurrent requests against the same session
// append turns in completion order.
type Memory struct {
	mu             sync.Mutex
	turns          []Turn
	maxTurns       int
	start          time.Time
	totalQuestions int
	totalTokens    int
}

// NewMemory creates a Memory retaining at most maxTurns turns.
func NewMemory(maxTurns int) *Memory {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &Memory{
		turns:    make([]Turn, 0, maxTurns),
		maxTurns: maxTurns,
		start:    time.Now(),
	}
}

// AddTurn appends a turn, dropping the oldest when capacity is exceeded.
func (m *Memory) AddTurn(t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.turns) >= m.maxTurns {
		m.turns = append(m.turns[:0], m.turns[1:]...)
	}
	m.turns = append(m.turns, t)
	m.totalQuestions++
	m.totalTokens += t.TokensUsed
}

// RecentContext renders the last n turns as alternating User/AI lines
// for inclusion in a generation prompt. Answers are truncated. Returns
// an empty string when no turns exist.
func (m *Memory) RecentContext(n int) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.turns) == 0 {
		return ""
	}

	start := len(m.turns) - n
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for i, t := range m.turns[start:] {
		if i > 0 {
			b.WriteByte('\n')
		}
		answer := t.Answer
		if len(answer) > contextAnswerLimit {
			answer = answer[:contextAnswerLimit] + "..."
		}
		fmt.Fprintf(&b, "User: %s\nAI: %s", t.Question, answer)
	}
	return b.String()
}

// IsFollowUp reports whether the question relies on a referential cue
// instead of naming its subject. The test is lexical, and a follow-up
// requires history: with zero prior turns this is always false.
func (m *Memory) IsFollowUp(question string) bool {
	m.mu.Lock()
	empty := len(m.turns) == 0
	m.mu.Unlock()

	if empty {
		return false
	}

	lower := strings.ToLower(question)
	for _, cue := range followUpCues {
		if containsPhrase(lower, cue) {
			return true
		}
	}
	return false
}

// RecentEntities scans the last 3 turns' question text against the
// fixed vocabularies and returns matches in first-seen order.
func (m *Memory) RecentEntities() Entities {
	m.mu.Lock()
	defer m.mu.Unlock()

	var e Entities
	if len(m.turns) == 0 {
		return e
	}

	start := len(m.turns) - 3
	if start < 0 {
		start = 0
	}
	var parts []string
	for _, t := range m.turns[start:] {
		parts = append(parts, strings.ToLower(t.Question))
	}
	text := strings.Join(parts, " ")

	e.Teams = matchVocabulary(text, TeamCodes, true)
	e.Players = matchVocabulary(text, Players, false)
	e.Positions = matchVocabulary(text, Positions, true)
	e.Actions = matchVocabulary(text, Actions, true)
	return e
}

// matchVocabulary returns the vocabulary terms present in text, ordered
// by first occurrence. text must be lowercased; terms are matched
// case-insensitively, on word boundaries when wholeWord is set.
func matchVocabulary(text string, vocabulary []string, wholeWord bool) []string {
	type match struct {
		term string
		pos  int
	}
	var found []match
	for _, term := range vocabulary {
		lower := strings.ToLower(term)
		pos := strings.Index(text, lower)
		if pos < 0 {
			continue
		}
		if wholeWord && !containsPhrase(text, lower) {
			continue
		}
		found = append(found, match{term, pos})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	out := make([]string, 0, len(found))
	for _, m := range found {
		out = append(out, m.term)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// RephraseFollowUp substitutes referential pronouns with the most
// recently mentioned matching entity. A question that is not a
// follow-up, or contains no recognized pronouns, is returned unchanged;
// the operation is idempotent on such text.
func (m *Memory) RephraseFollowUp(question string) string {
	if !m.IsFollowUp(question) {
		return question
	}

	entities := m.RecentEntities()
	rephrased := question

	if len(entities.Teams) > 0 {
		team := entities.Teams[len(entities.Teams)-1]
		for _, pronoun := range teamPronouns {
			rephrased = replacePhrase(rephrased, pronoun, "team "+team)
		}
	}
	if len(entities.Players) > 0 {
		player := entities.Players[len(entities.Players)-1]
		for _, pronoun := range playerPronouns {
			rephrased = replacePhrase(rephrased, pronoun, player)
		}
	}
	return rephrased
}

// Stats returns running session statistics.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	avg := 0.0
	if m.totalQuestions > 0 {
		avg = float64(m.totalTokens) / float64(m.totalQuestions)
	}
	return Stats{
		Duration:          time.Since(m.start),
		TotalQuestions:    m.totalQuestions,
		TotalTokens:       m.totalTokens,
		AvgTokensPerQuery: avg,
		TurnCount:         len(m.turns),
	}
}

// AttachFeedback sets free-text feedback on the most recent turn.
// Returns false when the session has no turns.
func (m *Memory) AttachFeedback(feedback string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.turns) == 0 {
		return false
	}
	m.turns[len(m.turns)-1].Feedback = feedback
	return true
}

// LastTurn returns the most recent turn, if any.
func (m *Memory) LastTurn() (Turn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.turns) == 0 {
		return Turn{}, false
	}
	return m.turns[len(m.turns)-1], true
}

// History returns a copy of the retained turns, oldest first.
func (m *Memory) History() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// containsPhrase reports whether phrase occurs in text on word
// boundaries. Both arguments must already be lowercased.
func containsPhrase(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordChar(text[i-1])
		end := i + len(phrase)
		after := end == len(text) || !isWordChar(text[end])
		if before && after {
			return true
		}
		idx = i + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

var phrasePatterns = map[string]*regexp.Regexp{}

func init() {
	for _, p := range append(append([]string{}, teamPronouns...), playerPronouns...) {
		phrasePatterns[p] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `\b`)
	}
}

// replacePhrase substitutes every whole-word occurrence of phrase in
// text, case-insensitively, with replacement.
func replacePhrase(text, phrase, replacement string) string {
	return phrasePatterns[phrase].ReplaceAllLiteralString(text, replacement)
}

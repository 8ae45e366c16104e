package chat

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/raidstats/raid-chat/internal/llm"
	"github.com/raidstats/raid-chat/internal/session"
)

// fallbackQuestions are served when no model is available or a model
// call fails. They are all answerable with simple queries.
var fallbackQuestions = []string{
	"Show me the top raiders with most successful raids",
	"How many points did Bengaluru Bulls score in this season?",
	"Show me all raids by Pawan Sehrawat",
	"Compare raid success rates between TT and BB teams",
	"List all do-or-die raids in the season",
	"Show me super tackle opportunities by team",
	"How many successful raids did each team have?",
	"Show me raids in period 1 vs period 2",
	"Which players scored the most raid points?",
	"Show me all bonus point raids",
	"Compare final scores between teams",
	"Show me raids with successful defense",
}

// errorSuggestions accompany a degraded response so the user has a
// concrete next step.
var errorSuggestions = []string{
	"Show all successful raids by [Player Name]",
	"What are the top raiders by total points?",
	"Which teams have won the most matches?",
}

// greetingSuggestions prime an empty conversation.
var greetingSuggestions = []string{
	"Show me the top raiders with most successful raids",
	"How many points did Bengaluru Bulls score this season?",
	"Show me all raids by Pawan Sehrawat",
}

// teamTemplates generate team-focused suggestions; %s is the team.
var teamTemplates = []string{
	"Show me all raids by %s",
	"How many points did %s score this season?",
	"Who are the top raiders for %s?",
	"Show %s's successful raids vs failed raids",
	"List all do-or-die raids by %s",
	"Show super tackle opportunities by %s",
	"Breakdown %s's points by period",
	"Show bonus point raids by %s",
}

// Suggester produces follow-up question suggestions, using a model
// when one is wired and fixed lists otherwise.
type Suggester struct {
	generator SuggestionGenerator
}

// NewSuggester creates a Suggester. generator may be nil.
func NewSuggester(generator SuggestionGenerator) *Suggester {
	return &Suggester{generator: generator}
}

// Suggest returns up to count question suggestions. When mem is
// non-nil the conversation context steers the model; when team is
// non-empty suggestions are constrained to that team. Model failures
// fall back to the fixed lists.
func (s *Suggester) Suggest(ctx context.Context, mem *session.Memory, team string, count int) []string {
	if count <= 0 {
		count = 4
	}

	if s.generator != nil {
		conversation := ""
		if mem != nil {
			conversation = mem.RecentContext(3)
		}
		prompt := llm.SuggestionPrompt(conversation, count, team)
		if suggestions, err := s.generator.SuggestQuestions(ctx, prompt, count); err == nil && len(suggestions) > 0 {
			return pad(suggestions, s.fallback(team, count), count)
		}
	}
	return s.fallback(team, count)
}

func (s *Suggester) fallback(team string, count int) []string {
	if team != "" {
		out := make([]string, 0, count)
		for i := 0; len(out) < count; i++ {
			out = append(out, fmt.Sprintf(teamTemplates[i%len(teamTemplates)], team))
		}
		return out
	}

	n := count
	if n > len(fallbackQuestions) {
		n = len(fallbackQuestions)
	}
	perm := rand.Perm(len(fallbackQuestions))
	out := make([]string, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, fallbackQuestions[idx])
	}
	return out
}

// pad tops up primary with entries from extra until count is reached.
func pad(primary, extra []string, count int) []string {
	for _, e := range extra {
		if len(primary) >= count {
			break
		}
		primary = append(primary, e)
	}
	if len(primary) > count {
		primary = primary[:count]
	}
	return primary
}

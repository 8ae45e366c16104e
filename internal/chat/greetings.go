package chat

import (
	"regexp"
	"strings"
)

// greetingPatterns match conversational openers at the start of the
// input. Matching is against the lowercased, trimmed question.
var greetingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^hi\b`),
	regexp.MustCompile(`^hello\b`),
	regexp.MustCompile(`^hey\b`),
	regexp.MustCompile(`^good morning\b`),
	regexp.MustCompile(`^good afternoon\b`),
	regexp.MustCompile(`^good evening\b`),
	regexp.MustCompile(`^goodbye\b`),
	regexp.MustCompile(`^bye\b`),
	regexp.MustCompile(`^see you\b`),
	regexp.MustCompile(`^take care\b`),
	regexp.MustCompile(`^thanks\b`),
	regexp.MustCompile(`^thank you\b`),
	regexp.MustCompile(`^how are you\b`),
	regexp.MustCompile(`^what's up\b`),
	regexp.MustCompile(`^sup\b`),
}

// IsGreeting reports whether the input is conversational small talk
// rather than an analytics question.
func IsGreeting(input string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(input))
	for _, pattern := range greetingPatterns {
		if pattern.MatchString(cleaned) {
			return true
		}
	}
	return false
}

// GreetingReply returns the canned response for a conversational input.
func GreetingReply(input string) string {
	cleaned := strings.ToLower(strings.TrimSpace(input))

	switch {
	case containsAny(cleaned, "bye", "goodbye", "see you", "take care"):
		return "Goodbye! Feel free to come back anytime to analyze player performance, match statistics, team strategies, and more kabaddi insights!"
	case containsAny(cleaned, "thanks", "thank you"):
		return "You're welcome! I'm here to help with all your kabaddi analytics needs. Ask me about player performance, match statistics, team strategies, or anything else in the data."
	case containsAny(cleaned, "how are you", "what's up", "sup"):
		return "I'm doing great and ready to dig into the data! I can help you explore player performance, match statistics, and team strategies. What would you like to analyze today?"
	default:
		return "Hello! I can help you analyze player performance, match statistics, team strategies, and much more from the kabaddi data. What would you like to know?"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

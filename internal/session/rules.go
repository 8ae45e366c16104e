package session

// Fixed vocabularies used for lexical entity extraction from question
// text. These are rule tables, not heuristics baked into control flow,
// so they can be tested and tuned independently.

// TeamCodes are the two-letter team abbreviations recognized in questions.
var TeamCodes = []string{"BW", "BB", "DD", "GG", "HS", "JP", "PP", "PU", "TN", "TT", "UM", "UP"}

// Positions are the playing-position terms recognized in questions.
var Positions = []string{"raider", "defender", "left", "right", "corner", "cover", "middle"}

// Actions are the gameplay terms recognized in questions.
var Actions = []string{"raid", "tackle", "bonus", "super tackle", "all out", "successful", "unsuccessful"}

// Players are well-known player names recognized in questions. Matching
// is case-insensitive on the full name.
var Players = []string{
	"Pawan Sehrawat",
	"Pardeep Narwal",
	"Maninder Singh",
	"Naveen Kumar",
	"Fazel Atrachali",
}

// followUpCues are the referential phrases whose presence marks a
// question as a follow-up. The test is lexical: a cue must appear as a
// whole word (or whole phrase) in the lowercased question.
var followUpCues = []string{
	"what about", "how about", "and", "also", "what if", "can you",
	"show me", "tell me", "what are", "which", "who", "when",
	"they", "them", "that team", "those players", "this", "these",
}

// Referential pronouns resolved during follow-up rephrasing.
// Substitution happens on whole words only.
var teamPronouns = []string{"they", "them", "that team"}

var playerPronouns = []string{"he", "him", "that player"}

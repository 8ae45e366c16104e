// Package cleaner sanitizes model-generated SQL and normalizes user
// question phrasing toward the dataset's vocabulary.
package cleaner

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe = regexp.MustCompile("(?s)```(?:sql|SQL|SQLQuery|mysql|postgresql)?\\s*(.*?)\\s*```")
	labelRe     = regexp.MustCompile(`(?i)^(?:sqlite|ite|SQL\s*Query|SQLQuery|MySQL|PostgreSQL|SQL)\s*:?\s*`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Cleaner sanitizes raw generation output into executable query text.
type Cleaner struct{}

// New returns a Cleaner.
func New() *Cleaner {
	return &Cleaner{}
}

// Clean strips markdown code fences, leading dialect labels, and
// collapses whitespace from a raw generated query.
func (c *Cleaner) Clean(raw string) string {
	text := codeFenceRe.ReplaceAllString(raw, "$1")
	text = labelRe.ReplaceAllString(strings.TrimSpace(text), "")
	return spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
}

// questionReplacements maps common user phrasings to the terms the
// dataset uses. Matching is case-insensitive on word boundaries.
var questionReplacements = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bdod\b`), "do-or-die"},
	{regexp.MustCompile(`(?i)\bd\.o\.d\b`), "do-or-die"},
	{regexp.MustCompile(`(?i)\bdo or die\b`), "do-or-die"},
	{regexp.MustCompile(`(?i)\bperiod 1\b`), "first half"},
	{regexp.MustCompile(`(?i)\bperiod 2\b`), "second half"},
	{regexp.MustCompile(`(?i)\bplaying seven\b`), "playing 7"},
	{regexp.MustCompile(`(?i)\bplaying eleven\b`), "playing 11"},
	{regexp.MustCompile(`(?i)raider\s+skills?`), "attacking skills"},
	{regexp.MustCompile(`(?i)(?:defender|defence|defense)\s+skills?`), "defense skills"},
}

// NormalizeQuestion rewrites common abbreviations and phrasings in a
// user question so the generation prompt sees dataset terminology.
func NormalizeQuestion(question string) string {
	if question == "" {
		return question
	}
	for _, r := range questionReplacements {
		question = r.pattern.ReplaceAllString(question, r.replacement)
	}
	return question
}

var (
	skillSuffixRe = regexp.MustCompile(`(On|Under|By|With)[A-Z].*$`)
	lobbyOutRe    = regexp.MustCompile(`\bLobbyOut[A-Za-z]*`)
	techniqueRe   = regexp.MustCompile(`[A-Z][a-zA-Z]*(?:[A-Z][a-z]+)*?(?:On|Under|By|With)[A-Z][A-Za-z]*`)
	techniqueCols = regexp.MustCompile(`"(?:Attack|Defense)_Techniques_Used"`)
	dupCommaRe    = regexp.MustCompile(`\s*,\s*,+`)
	multiSpaceRe  = regexp.MustCompile(`\s{2,}`)
)

// NormalizeSkillName strips trailing positional context (OnRCV,
// UnderLIN, ByRCNR, WithLCV) from a raw technique token. Returns an
// empty string for non-skill tokens such as LobbyOut variants.
func NormalizeSkillName(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" || lobbyOutRe.MatchString(token) {
		return ""
	}
	base := skillSuffixRe.ReplaceAllString(token, "")
	if base == "" {
		return token
	}
	return base
}

// NormalizeSkillsInResult rewrites technique tokens inside a textual
// query result to their base skill names. It only runs when the query
// touched a techniques column, to avoid mangling unrelated text.
func NormalizeSkillsInResult(query, result string) string {
	if result == "" || !techniqueCols.MatchString(query) {
		return result
	}

	cleaned := lobbyOutRe.ReplaceAllString(result, "")
	cleaned = techniqueRe.ReplaceAllStringFunc(cleaned, func(full string) string {
		if loc := skillSuffixRe.FindStringIndex(full); loc != nil {
			return full[:loc[0]]
		}
		return full
	})
	cleaned = dupCommaRe.ReplaceAllString(cleaned, ", ")
	return multiSpaceRe.ReplaceAllString(cleaned, " ")
}

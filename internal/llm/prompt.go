package llm

import (
	"fmt"
	"strings"
)

// generationPrompt instructs the model to translate a question into a
// single SQLite query against the raid-by-raid table. The schema
// description is supplied by the storage layer so prompt text and
// table layout cannot drift apart.
const generationPrompt = `You are a specialized kabaddi domain analyst and an expert in SQLite. Convert the user's natural language question into one precise, executable SQLite query.

Rules:
- Use ONLY the exact, case-sensitive, double-quoted column names from the schema below.
- Decide whether the question is QUANTITATIVE ("how many", "total", "count") and needs a single aggregated value, or QUALITATIVE ("show me", "list", "which") and needs rows of records.
- Use a WITH clause for anything beyond a simple SELECT ... FROM ... WHERE.
- Output the SQL only: no commentary, no markdown fences, no label prefixes.

Domain mappings:
- successful raid -> "Attack_Result_Status" LIKE 'Successful'
- unsuccessful raid -> "Attack_Result_Status" LIKE 'Failed/Unsuccessful'
- raid points -> "Points_Scored_By_Attacker"
- defense points -> "Points_Scored_By_Defenders"
- do-or-die raid -> "Do_Or_Die_Mandatory_Raid" = 1
- bonus point available -> "Bonus_Point_Available" = 1
- super tackle chance -> "Super_Tackle_Opportunity" = 1
- first half / period 1 -> "Game_Half_Period" LIKE 'FirstHalf'
- second half / period 2 -> "Game_Half_Period" LIKE 'SecondHalf'
- raider -> "Attacking_Player_Name"
- primary defender -> "Primary_Defender_Name"
- match winner -> "Match_Winner_Team"

Schema:
%s
%s
Question: %s`

// GenerationPrompt assembles the query-generation prompt. recentContext
// may be empty; when present it is included so follow-up questions can
// be answered against prior turns.
func GenerationPrompt(question, schema, recentContext string) string {
	contextBlock := ""
	if recentContext != "" {
		contextBlock = fmt.Sprintf("\nRecent conversation:\n%s\n", recentContext)
	}
	return fmt.Sprintf(generationPrompt, schema, contextBlock, question)
}

const answerPrompt = `You are a kabaddi data analyst presenting query results to a user. Formulate a clear, concise answer from the raw result below.

Rules:
- A single numeric result gets one direct sentence restating the core of the question, no table.
- A list of records gets a brief introduction followed by a Markdown table with human-readable headers.
- Strip trailing positional context from technique names (RunningHandTouchOnRCV -> RunningHandTouch); never present LobbyOut values as skills.
- Never invent information that is not in the result, and never editorialize about it.

Question: %s
Query: %s
Result:
%s`

// AnswerPrompt assembles the result-formatting prompt.
func AnswerPrompt(question, query, result string) string {
	return fmt.Sprintf(answerPrompt, question, query, result)
}

const suggestionPrompt = `You are a kabaddi analytics assistant. Based on the conversation below, generate %d simple follow-up questions answerable with basic SQL against a raid-by-raid table (teams, players, raid points, tackle points, halves, do-or-die raids, bonus points, super tackles).

Conversation:
%s

Guidelines:
- Keep each question simple and specific.
- Use common kabaddi terms: raids, points, teams, players, successful, failed.
- Output one question per line with no numbering.%s`

// SuggestionPrompt assembles the follow-up suggestion prompt. When team
// is non-empty the suggestions are constrained to that team.
func SuggestionPrompt(conversation string, count int, team string) string {
	if strings.TrimSpace(conversation) == "" {
		conversation = "No previous conversation."
	}
	teamBlock := ""
	if team != "" {
		teamBlock = fmt.Sprintf("\n- Every question must relate to team %q, its players, or its matches. Do not mention any other team.", team)
	}
	return fmt.Sprintf(suggestionPrompt, count, conversation, teamBlock)
}

package cleaner

import "testing"

func TestCleaner_Clean(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain query untouched",
			raw:  "SELECT * FROM raids",
			want: "SELECT * FROM raids",
		},
		{
			name: "sql code fence",
			raw:  "```sql\nSELECT * FROM raids\n```",
			want: "SELECT * FROM raids",
		},
		{
			name: "bare code fence",
			raw:  "```\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "leading label",
			raw:  "SQLQuery: SELECT COUNT(*) FROM raids",
			want: "SELECT COUNT(*) FROM raids",
		},
		{
			name: "sqlite label",
			raw:  "sqlite\nSELECT 1",
			want: "SELECT 1",
		},
		{
			name: "whitespace collapsed",
			raw:  "SELECT *\n  FROM raids\n  WHERE team = 'PU'",
			want: "SELECT * FROM raids WHERE team = 'PU'",
		},
		{
			name: "fenced query with leading label",
			raw:  "```sql\nSQL: SELECT name FROM players\n```",
			want: "SELECT name FROM players",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Clean(tt.raw); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeQuestion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"dod abbreviation", "show me all dod raids", "show me all do-or-die raids"},
		{"do or die phrase", "list do or die raids", "list do-or-die raids"},
		{"period mapping", "points in period 1 vs period 2", "points in first half vs second half"},
		{"playing seven", "show the playing seven", "show the playing 7"},
		{"raider skills", "top raider skills used", "top attacking skills used"},
		{"defender skills", "best defender skill", "best defense skills"},
		{"no change", "how many points did PU score", "how many points did PU score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeQuestion(tt.in); got != tt.want {
				t.Errorf("NormalizeQuestion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeSkillName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RunningHandTouchOnRCV", "RunningHandTouch"},
		{"DubkiUnderLIN", "Dubki"},
		{"ToeTouchByRCNR", "ToeTouch"},
		{"BlockWithLCV", "Block"},
		{"LobbyOutRaider", ""},
		{"", ""},
		{"AnkleHold", "AnkleHold"},
	}

	for _, tt := range tests {
		if got := NormalizeSkillName(tt.in); got != tt.want {
			t.Errorf("NormalizeSkillName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSkillsInResult(t *testing.T) {
	query := `SELECT "Attack_Techniques_Used" FROM raids`

	got := NormalizeSkillsInResult(query, "RunningHandTouchOnRCV, DubkiUnderLIN")
	want := "RunningHandTouch, Dubki"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// Untouched when the query did not select techniques.
	plain := NormalizeSkillsInResult("SELECT * FROM raids", "RunningHandTouchOnRCV")
	if plain != "RunningHandTouchOnRCV" {
		t.Errorf("expected result untouched, got %q", plain)
	}
}

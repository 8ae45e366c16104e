package statdb

import (
	"context"
	"strings"
	"testing"

	"github.com/raidstats/raid-chat/internal/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	d, err := Open(config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	setup := []string{
		`CREATE TABLE "S_RBR" (
			"Season" TEXT,
			"Attacking_Player_Name" TEXT,
			"Attacking_Team_Code" TEXT,
			"Attack_Result_Status" TEXT,
			"Points_Scored_By_Attacker" INTEGER
		)`,
		`INSERT INTO "S_RBR" VALUES
			('PKL11', 'Pawan Sehrawat', 'TT', 'Successful', 2),
			('PKL11', 'Pardeep Narwal', 'PU', 'Failed/Unsuccessful', 0),
			('PKL11', 'Pawan Sehrawat', 'TT', 'Successful', 1)`,
	}
	for _, stmt := range setup {
		if _, err := d.db.Exec(stmt); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	return d
}

func TestDB_Execute(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	result, err := d.Execute(ctx, `SELECT "Attacking_Player_Name", "Points_Scored_By_Attacker" FROM "S_RBR" WHERE "Attacking_Team_Code" = 'TT' ORDER BY "Points_Scored_By_Attacker" DESC`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	lines := strings.Split(result, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), result)
	}
	if lines[0] != "Attacking_Player_Name | Points_Scored_By_Attacker" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "Pawan Sehrawat | 2" {
		t.Errorf("unexpected first row: %s", lines[1])
	}
}

func TestDB_ExecuteAggregate(t *testing.T) {
	d := newTestDB(t)

	result, err := d.Execute(context.Background(), `SELECT COUNT(*) AS total FROM "S_RBR" WHERE "Attack_Result_Status" = 'Successful'`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result, "total") || !strings.Contains(result, "2") {
		t.Errorf("unexpected aggregate result: %s", result)
	}
}

func TestDB_ExecuteEmptyResult(t *testing.T) {
	d := newTestDB(t)

	result, err := d.Execute(context.Background(), `SELECT * FROM "S_RBR" WHERE "Attacking_Team_Code" = 'ZZ'`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result != "" {
		t.Errorf("expected empty string for empty result, got %q", result)
	}
}

func TestDB_ExecuteBadQuery(t *testing.T) {
	d := newTestDB(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing table", `SELECT * FROM "NoSuchTable"`},
		{"missing column", `SELECT "No_Such_Column" FROM "S_RBR"`},
		{"syntax error", `SELEC * FROM "S_RBR"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Execute(context.Background(), tt.query); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDB_ExecuteRejectsWrites(t *testing.T) {
	d := newTestDB(t)

	tests := []struct {
		name  string
		query string
	}{
		{"insert", `INSERT INTO "S_RBR" VALUES ('PKL11', 'x', 'XX', 'Successful', 1)`},
		{"drop", `DROP TABLE "S_RBR"`},
		{"stacked", `SELECT 1; DELETE FROM "S_RBR"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Execute(context.Background(), tt.query); err == nil {
				t.Error("expected error")
			}
		})
	}

	// The table is still intact afterwards.
	result, err := d.Execute(context.Background(), `SELECT COUNT(*) AS total FROM "S_RBR"`)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result, "3") {
		t.Errorf("expected 3 rows to survive, got %s", result)
	}
}

func TestDB_SchemaDescription(t *testing.T) {
	d := newTestDB(t)

	schema, err := d.SchemaDescription(context.Background())
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, col := range []string{"Season", "Attacking_Player_Name", "Points_Scored_By_Attacker"} {
		if !strings.Contains(schema, col) {
			t.Errorf("expected column %s in schema description", col)
		}
	}
}

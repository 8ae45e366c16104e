// Package statdb executes generated queries against the raid-by-raid
// SQLite database and renders rows as pipe-separated text for caching
// and display.
package statdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/raidstats/raid-chat/internal/config"
	"github.com/raidstats/raid-chat/internal/pkg/security"
)

// maxRows caps how many result rows are rendered into text. Generated
// queries occasionally select whole tables; nobody reads past this.
const maxRows = 200

// DB wraps the stats database connection.
type DB struct {
	db *sql.DB
}

// Open opens the SQLite database at the configured path.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	return &DB{db: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping verifies the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Execute runs a query and renders the result as text: a header line
// of column names followed by one pipe-separated line per row. An
// empty result renders as an empty string.
func (d *DB) Execute(ctx context.Context, query string) (string, error) {
	// Generated queries are model output; refuse anything that writes.
	if err := security.EnsureReadOnlyQuery(query); err != nil {
		return "", fmt.Errorf("rejected query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	var b strings.Builder
	count := 0
	for rows.Next() {
		if count == maxRows {
			break
		}
		if err := rows.Scan(pointers...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}
		if count == 0 {
			b.WriteString(strings.Join(columns, " | "))
		}
		b.WriteByte('\n')
		for i, v := range values {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(renderValue(v))
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}

	if count == 0 {
		return "", nil
	}
	return b.String(), nil
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// SchemaDescription returns the column list of the raid table for
// inclusion in generation prompts.
func (d *DB) SchemaDescription(ctx context.Context) (string, error) {
	rows, err := d.db.QueryContext(ctx, `PRAGMA table_info("S_RBR")`)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(`Table "S_RBR":` + "\n")
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return "", fmt.Errorf("scan column: %w", err)
		}
		fmt.Fprintf(&b, "  %q %s\n", name, typ)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate schema: %w", err)
	}
	return b.String(), nil
}

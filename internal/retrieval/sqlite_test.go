package retrieval

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestValidateReadOnlyQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"simple select", "SELECT * FROM facts", false},
		{"select with trailing semicolon", "SELECT count(*) FROM facts;", false},
		{"cte", "WITH t AS (SELECT 1) SELECT * FROM t", false},
		{"lowercase", "select category, period from facts where category = 'X'", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"insert", "INSERT INTO facts VALUES (1)", true},
		{"update", "UPDATE facts SET n = 0", true},
		{"delete", "DELETE FROM facts", true},
		{"drop", "DROP TABLE facts", true},
		{"pragma", "PRAGMA journal_mode=DELETE", true},
		{"attach", "ATTACH DATABASE 'x.db' AS x", true},
		{"stacked statements", "SELECT 1; DROP TABLE facts", true},
		{"cte smuggling insert", "WITH t AS (SELECT 1) INSERT INTO facts SELECT * FROM t", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReadOnlyQuery(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateReadOnlyQuery(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

// newTestDB creates a populated SQLite file and returns its path.
func newTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facts.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE facts (category TEXT, period TEXT, students INTEGER)`,
		`INSERT INTO facts VALUES ('X', 'Y', 120)`,
		`INSERT INTO facts VALUES ('X', 'Z', 80)`,
		`INSERT INTO facts VALUES ('W', 'Y', 10)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func staticQuery(q string) QueryGenerator {
	return QueryFunc(func(context.Context, string) (string, error) {
		return q, nil
	})
}

func TestSQLiteBackendAnswer(t *testing.T) {
	backend, err := NewSQLite(newTestDB(t), staticQuery(
		"SELECT category, SUM(students) AS total FROM facts WHERE category = 'X' GROUP BY category",
	))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer backend.Close()

	payload, query, err := backend.Answer(context.Background(), "how many students in category X?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.HasPrefix(query, "SELECT") {
		t.Errorf("query = %q", query)
	}
	if !strings.Contains(payload, "category\ttotal") {
		t.Errorf("payload missing header: %q", payload)
	}
	if !strings.Contains(payload, "X\t200") {
		t.Errorf("payload missing aggregated row: %q", payload)
	}
}

func TestSQLiteBackendEmptyResult(t *testing.T) {
	backend, err := NewSQLite(newTestDB(t), staticQuery(
		"SELECT * FROM facts WHERE category = 'missing'",
	))
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	payload, _, err := backend.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if payload != "(no rows)" {
		t.Errorf("payload = %q, want %q", payload, "(no rows)")
	}
}

func TestSQLiteBackendRejectsMutation(t *testing.T) {
	path := newTestDB(t)
	backend, err := NewSQLite(path, staticQuery("DELETE FROM facts"))
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	_, query, err := backend.Answer(context.Background(), "wipe everything")
	if err == nil {
		t.Fatal("mutation statement must be rejected")
	}
	if query != "DELETE FROM facts" {
		t.Errorf("rejected query should still be reported for logging, got %q", query)
	}

	// The data must be untouched.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT count(*) FROM facts").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("row count after rejected mutation = %d, want 3", n)
	}
}

func TestSQLiteBackendGeneratorError(t *testing.T) {
	gen := QueryFunc(func(context.Context, string) (string, error) {
		return "", context.DeadlineExceeded
	})
	backend, err := NewSQLite(newTestDB(t), gen)
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	if _, _, err := backend.Answer(context.Background(), "q"); err == nil {
		t.Error("generator error must propagate")
	}
}

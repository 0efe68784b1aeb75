package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// QueryGenerator turns a natural-language sub-question into a single
// SQL statement over the domain schema.
type QueryGenerator interface {
	GenerateQuery(ctx context.Context, question string) (string, error)
}

// QueryFunc adapts a function to the QueryGenerator interface.
type QueryFunc func(ctx context.Context, question string) (string, error)

// GenerateQuery implements QueryGenerator.
func (f QueryFunc) GenerateQuery(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// SQLiteBackend answers sub-questions by generating a SELECT statement
// and executing it against a locally downloaded database file. The
// connection is opened read-only and every statement is validated
// before execution; generated SQL is model output and is never trusted.
type SQLiteBackend struct {
	db  *sql.DB
	gen QueryGenerator
}

// NewSQLite opens the database file read-only.
func NewSQLite(dbPath string, gen QueryGenerator) (*SQLiteBackend, error) {
	dsn := "file:" + dbPath + "?mode=ro&_pragma=query_only(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteBackend{db: db, gen: gen}, nil
}

// Answer generates, validates, and executes one query for the question.
func (b *SQLiteBackend) Answer(ctx context.Context, question string) (string, string, error) {
	query, err := b.gen.GenerateQuery(ctx, question)
	if err != nil {
		return "", "", fmt.Errorf("generate query: %w", err)
	}

	if err := ValidateReadOnlyQuery(query); err != nil {
		return "", query, err
	}

	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return "", query, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	payload, err := renderRows(rows)
	if err != nil {
		return "", query, err
	}
	return payload, query, nil
}

// Ping verifies the database file is still readable.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// mutationKeywords are statement keywords that can change the database
// or its configuration. The read-only connection mode is the backstop;
// this check keeps model-generated statements from even reaching it.
var mutationKeywords = []string{
	"insert", "update", "delete", "replace", "drop", "alter", "create",
	"pragma", "attach", "detach", "vacuum", "reindex", "begin", "commit",
	"rollback", "savepoint", "release",
}

// ValidateReadOnlyQuery checks that q is a single SELECT statement.
// Anything else — multiple statements, mutation verbs, pragmas — is
// rejected.
func ValidateReadOnlyQuery(q string) error {
	trimmed := strings.TrimSpace(q)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if trimmed == "" {
		return fmt.Errorf("empty query")
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("multiple SQL statements are not allowed")
	}

	fields := strings.Fields(strings.ToLower(trimmed))
	switch fields[0] {
	case "select", "with":
	default:
		return fmt.Errorf("only SELECT statements are allowed, got %q", fields[0])
	}
	for _, f := range fields {
		word := strings.Trim(f, "(),")
		for _, kw := range mutationKeywords {
			if word == kw {
				return fmt.Errorf("statement contains forbidden keyword %q", kw)
			}
		}
	}
	return nil
}

// renderRows formats a result set as a tab-separated text table with a
// header row, the shape the synthesis prompt consumes.
func renderRows(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("result columns: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(cols, "\t"))
	b.WriteString("\n")

	values := make([]any, len(cols))
	scanTargets := make([]any, len(cols))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return "", fmt.Errorf("scan result row: %w", err)
		}
		cells := make([]string, len(cols))
		for i, v := range values {
			cells[i] = renderValue(v)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteString("\n")
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate result rows: %w", err)
	}

	if count == 0 {
		return "(no rows)", nil
	}
	return b.String(), nil
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

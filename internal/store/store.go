package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codepb/fluentqueries/pkg/expr"
	"github.com/codepb/fluentqueries/pkg/querysql"
)

// IDColumn is the primary key column of every imported table.
const IDColumn = "id"

// Store is a SQLite database of imported records.
type Store struct {
	db *sqlx.DB
}

// Open creates or opens a SQLite database at the given path. ":memory:"
// opens a private in-memory database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
func Open(path string) (*Store, error) {
	// Open database (creates file if doesn't exist)
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and an in-memory database
	// lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db.DB
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// Import replaces table with records. Columns are the union of the records'
// top-level keys; a record without a key stores NULL there.
func (s *Store) Import(ctx context.Context, table string, records []map[string]any) error {
	if table == "" {
		return fmt.Errorf("import: table name is required")
	}
	cols, err := columns(records)
	if err != nil {
		return fmt.Errorf("import %s: %w", table, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import %s: begin: %w", table, err)
	}
	defer tx.Rollback()

	name := querysql.QuoteIdent(table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("import %s: drop: %w", table, err)
	}

	defs := []string{querysql.QuoteIdent(IDColumn) + " INTEGER PRIMARY KEY"}
	for _, c := range cols {
		defs = append(defs, querysql.QuoteIdent(c))
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("import %s: create: %w", table, err)
	}

	quoted := []string{querysql.QuoteIdent(IDColumn)}
	for _, c := range cols {
		quoted = append(quoted, querysql.QuoteIdent(c))
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?%s)",
		name, strings.Join(quoted, ", "), strings.Repeat(", ?", len(cols)))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("import %s: prepare: %w", table, err)
	}
	defer stmt.Close()

	args := make([]any, len(cols)+1)
	for i, rec := range records {
		args[0] = i + 1
		for j, c := range cols {
			if args[j+1], err = column(rec[c]); err != nil {
				return fmt.Errorf("import %s: record %d: %s: %w", table, i, c, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("import %s: record %d: %w", table, i, err)
		}
	}

	return tx.Commit()
}

// Match returns the ids of the rows of table that satisfy filter, in
// ascending order. A nil filter matches every row.
func (s *Store) Match(ctx context.Context, table string, filter *expr.Lambda) ([]int, error) {
	stmt, params, err := querysql.Compile(querysql.Select{
		From:    table,
		Filter:  filter,
		Columns: []string{IDColumn},
	})
	if err != nil {
		return nil, err
	}
	if err := s.checkColumns(ctx, table, querysql.Columns(filter)); err != nil {
		return nil, fmt.Errorf("match %s: %w", table, err)
	}

	var ids []int
	if err := s.db.SelectContext(ctx, &ids, stmt, params...); err != nil {
		return nil, fmt.Errorf("match %s: %w", table, err)
	}
	return ids, nil
}

// checkColumns fails unless table has every column in cols. SQLite reads an
// unknown double-quoted identifier as a string literal, so a missing column
// would otherwise filter on its own name.
func (s *Store) checkColumns(ctx context.Context, table string, cols []string) error {
	if len(cols) == 0 {
		return nil
	}
	var have []string
	if err := s.db.SelectContext(ctx, &have, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		return fmt.Errorf("table info: %w", err)
	}
	if len(have) == 0 {
		return fmt.Errorf("no such table: %s", table)
	}
	for _, c := range cols {
		if !slices.Contains(have, c) {
			return fmt.Errorf("no such column: %s", c)
		}
	}
	return nil
}

// columns returns the sorted union of the records' keys.
func columns(records []map[string]any) ([]string, error) {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for k := range rec {
			if seen[k] {
				continue
			}
			if strings.EqualFold(k, IDColumn) {
				return nil, fmt.Errorf("column %q is reserved", k)
			}
			seen[k] = true
			cols = append(cols, k)
		}
	}
	slices.Sort(cols)
	return cols, nil
}

// column converts a decoded JSON value to its stored form.
func column(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64, int, int64:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

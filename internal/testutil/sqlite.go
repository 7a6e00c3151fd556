package testutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// PeopleSchema creates the table LoadPeople fills. Sequences and nested
// structs are stored as JSON text, matching what querysql emits.
const PeopleSchema = `CREATE TABLE people (
	id INTEGER PRIMARY KEY,
	Name TEXT NOT NULL,
	Age INTEGER NOT NULL,
	Email TEXT,
	Active INTEGER NOT NULL,
	Tags TEXT,
	Address TEXT NOT NULL,
	Manager TEXT
)`

// OpenDB opens a SQLite database in a temporary directory with the pragmas
// used in production code. The database is closed when the test ends.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to connect to database: %v", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			t.Fatalf("failed to execute %q: %v", pragma, err)
		}
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// LoadPeople creates the people table and inserts people with ids 1..n in
// slice order.
func LoadPeople(t testing.TB, db *sql.DB, people []Person) {
	t.Helper()

	if _, err := db.Exec(PeopleSchema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	for i, p := range people {
		tags, err := jsonOrNull(p.Tags, p.Tags == nil)
		if err != nil {
			t.Fatalf("person %d: %v", i, err)
		}
		addr, err := jsonOrNull(p.Address, false)
		if err != nil {
			t.Fatalf("person %d: %v", i, err)
		}
		mgr, err := jsonOrNull(p.Manager, p.Manager == nil)
		if err != nil {
			t.Fatalf("person %d: %v", i, err)
		}

		_, err = db.Exec(
			`INSERT INTO people (id, Name, Age, Email, Active, Tags, Address, Manager) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			i+1, p.Name, p.Age, p.Email, p.Active, tags, addr, mgr,
		)
		if err != nil {
			t.Fatalf("failed to insert person %d: %v", i, err)
		}
	}
}

// QueryIDs runs a statement selecting the id column and returns the ids.
func QueryIDs(t testing.TB, db *sql.DB, query string, args ...any) []int {
	t.Helper()

	rows, err := db.Query(query, args...)
	if err != nil {
		t.Fatalf("query failed: %v\n%s", err, query)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows failed: %v", err)
	}
	return ids
}

func jsonOrNull(v any, null bool) (any, error) {
	if null {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return string(b), nil
}

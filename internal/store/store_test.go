package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/codepb/fluentqueries/internal/store"
	"github.com/codepb/fluentqueries/internal/testutil"
	"github.com/codepb/fluentqueries/pkg/query"
)

type Record = map[string]any

func people(t *testing.T) []Record {
	t.Helper()
	data, err := json.Marshal(testutil.People())
	if err != nil {
		t.Fatalf("marshal people: %v", err)
	}
	var out []Record
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal people: %v", err)
	}
	return out
}

func openMemory(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, expected %q", mode, "wal")
	}
}

func TestImport_KeepsDataAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := store.Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if err := s1.Import(ctx, "people", people(t)); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	s1.Close()

	s2, err := store.Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	ids, err := s2.Match(ctx, "people", nil)
	if err != nil {
		t.Fatalf("Match() failed: %v", err)
	}
	if want := []int{1, 2, 3, 4, 5, 6}; !slices.Equal(ids, want) {
		t.Errorf("ids = %v, expected %v", ids, want)
	}
}

func TestMatch_AgreesWithMemory(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	records := people(t)
	if err := s.Import(ctx, "people", records); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}

	age := query.Field[Record, float64]("Age")
	name := query.Field[Record, string]("Name")
	email := query.Field[Record, any]("Email")
	active := query.Field[Record, bool]("Active")
	tags := query.Field[Record, []string]("Tags")
	city := query.Then(query.Field[Record, any]("Address"), query.Field[any, string]("City"))

	queries := map[string]query.Query[Record]{
		"age over 40":       query.Ordered(query.Has(age)).GreaterThan(40),
		"email set":         query.Has(email).NotNull(),
		"inactive":          query.Bool(query.Has(active)).False(),
		"tagged ops":        query.Sequence(query.Has(tags)).Containing("ops"),
		"no tags":           query.Sequence(query.Has(tags)).Empty(),
		"london or blank":   query.Text(query.Has(city)).StartingWith("Lon").Or().Satisfying(query.Text(query.Has(name)).NullOrWhitespace()),
		"all tags short":    query.Sequence(query.Has(tags)).WithAll(query.Ordered(query.Is[string]()).LessThan("n")),
		"named with umlaut": query.Text(query.Has(name)).Containing("ë"),
	}

	for label, q := range queries {
		t.Run(label, func(t *testing.T) {
			var want []int
			for i, r := range records {
				ok, err := q.IsSatisfiedBy(r)
				if err != nil {
					t.Fatalf("IsSatisfiedBy(%d) failed: %v", i, err)
				}
				if ok {
					want = append(want, i+1)
				}
			}

			got, err := s.Match(ctx, "people", q.AsExpression())
			if err != nil {
				t.Fatalf("Match() failed: %v", err)
			}
			if !slices.Equal(got, want) {
				t.Errorf("Match() = %v, in memory %v", got, want)
			}
		})
	}
}

func TestImport_ReplacesTable(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	if err := s.Import(ctx, "t", []Record{{"a": 1.0}, {"a": 2.0}, {"a": 3.0}}); err != nil {
		t.Fatalf("first Import() failed: %v", err)
	}
	if err := s.Import(ctx, "t", []Record{{"b": "x"}}); err != nil {
		t.Fatalf("second Import() failed: %v", err)
	}

	ids, err := s.Match(ctx, "t", nil)
	if err != nil {
		t.Fatalf("Match() failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected 1 row after replace, got %v", ids)
	}
}

func TestImport_Errors(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	tests := []struct {
		name    string
		table   string
		records []Record
		wantErr string
	}{
		{"no table", "", []Record{{"a": 1.0}}, "table name is required"},
		{"reserved id", "t", []Record{{"ID": 1.0}}, `column "ID" is reserved`},
		{"unencodable", "t", []Record{{"f": func() {}}}, "record 0: f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Import(ctx, tt.table, tt.records)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestMatch_Errors(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	if err := s.Import(ctx, "t", []Record{{"a": 1.0}, {"a": 2.0}}); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}

	// Quoted unknown identifiers are string literals in SQLite.
	missing := query.Ordered(query.Has(query.Field[Record, float64]("b"))).GreaterThan(0)
	ids, err := s.Match(ctx, "t", missing.AsExpression())
	if err == nil {
		t.Fatalf("expected error for unknown column, got ids %v", ids)
	}
	if !strings.Contains(err.Error(), "no such column: b") {
		t.Errorf("error = %v, want no such column: b", err)
	}

	// Column names are matched exactly, as record keys are.
	upper := query.Ordered(query.Has(query.Field[Record, float64]("A"))).GreaterThan(0)
	if _, err := s.Match(ctx, "t", upper.AsExpression()); err == nil {
		t.Error("expected error for column differing in case")
	}

	if _, err := s.Match(ctx, "absent", missing.AsExpression()); err == nil {
		t.Error("expected error for unknown table")
	}

	if _, err := s.Match(ctx, "", nil); err == nil {
		t.Error("expected error for empty table name")
	}
}

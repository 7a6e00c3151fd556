package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepb/fluentqueries/internal/testutil"
	"github.com/codepb/fluentqueries/pkg/expr"
	"github.com/codepb/fluentqueries/pkg/querysql"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseYAML(t *testing.T) {
	f, err := ParseYAML([]byte(`
queries:
  - name: adults
    description: People of age
    where: {field: Age, op: greaterThanOrEqualTo, value: 18}
`))
	require.NoError(t, err)
	require.Len(t, f.Queries, 1)

	spec := f.Queries[0]
	assert.Equal(t, "adults", spec.Name)
	assert.Equal(t, "People of age", spec.Description)
	assert.Equal(t, Condition{Field: "Age", Op: OpGreaterThanOrEqualTo, Value: 18}, spec.Where)
}

func TestParseYAML_RejectsUnknownFields(t *testing.T) {
	_, err := ParseYAML([]byte(`
queries:
  - name: adults
    where: {field: Age, opp: greaterThan, value: 18}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "opp")
}

func TestParseYAML_NullOperator(t *testing.T) {
	_, err := ParseYAML([]byte(`
queries:
  - name: no-email
    where:
      any:
        - {field: Email, op: null}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 6: op is a YAML null")
	assert.Contains(t, err.Error(), `op: "null"`)

	f, err := ParseYAML([]byte(`queries: [{name: no-email, where: {field: Email, op: "null"}}]`))
	require.NoError(t, err)
	require.Len(t, f.Queries, 1)
	assert.Equal(t, OpNull, f.Queries[0].Where.Op)
}

func TestParseCUE(t *testing.T) {
	f, err := ParseCUE([]byte(`
queries: {
	b: where: {field: "Age", op: "lessThan", value: 30}
	a: {
		description: "first in file order is b"
		where: "not": {field: "Name", op: "null"}
	}
}
`), "inline.cue")
	require.NoError(t, err)
	require.Len(t, f.Queries, 2)

	assert.Equal(t, "b", f.Queries[0].Name)
	assert.Equal(t, Condition{Field: "Age", Op: OpLessThan, Value: 30}, f.Queries[0].Where)

	assert.Equal(t, "a", f.Queries[1].Name)
	assert.Equal(t, "first in file order is b", f.Queries[1].Description)
	require.NotNil(t, f.Queries[1].Where.Not)
	assert.Equal(t, OpNull, f.Queries[1].Where.Not.Op)
}

func TestParseCUE_Empty(t *testing.T) {
	f, err := ParseCUE([]byte(`// nothing yet`), "empty.cue")
	require.NoError(t, err)
	assert.Empty(t, f.Queries)
}

func TestParseCUE_ClosedSchema(t *testing.T) {
	_, err := ParseCUE([]byte(`queries: adults: where: {field: "Age", opp: "greaterThan"}`), "closed.cue")
	require.Error(t, err)

	var defErr *Error
	require.ErrorAs(t, err, &defErr)
	assert.True(t, defErr.Pos.IsValid())
	assert.Contains(t, err.Error(), "closed.cue:1:")
}

func TestParseCUE_IncompleteValue(t *testing.T) {
	_, err := ParseCUE([]byte(`queries: adults: where: {field: "Age", op: string}`), "open.cue")
	require.Error(t, err)
}

func TestParseCUE_SyntaxError(t *testing.T) {
	_, err := ParseCUE([]byte(`queries: {`), "broken.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestLoadFile_UnknownExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "queries.json", `{}`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown definition format")
}

func TestLoadFile_AddsFileToErrors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "queries: [{name: x, wher: {}}]\n")

	_, err := LoadFile(path)
	require.Error(t, err)

	var defErr *Error
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, path, defErr.File)
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yml", "")
	writeFile(t, dir, "a.cue", "")
	writeFile(t, dir, "notes.txt", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeFile(t, filepath.Join(dir, "nested"), "c.yaml", "")

	files, err := FindFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)
}

func TestLoad_Testdata(t *testing.T) {
	reg, err := Load("testdata")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"active-gophers",
		"adults",
		"londoners",
		"managed-by-seniors",
		"no-email",
		"not-named-a",
	}, reg.Names())

	want := map[string][]string{
		"adults":             {"Ada", "Bob", "Anna", "Zoë", "Dmitri", " "},
		"londoners":          {"Ada", "Anna", "Dmitri"},
		"active-gophers":     {"Anna", "Dmitri"},
		"no-email":           {"Bob", "Zoë", " "},
		"managed-by-seniors": {"Zoë"},
		"not-named-a":        {"Bob", "Zoë", "Dmitri", " "},
	}
	for name, expected := range want {
		t.Run(name, func(t *testing.T) {
			q, ok := reg.Lookup(name)
			require.True(t, ok)
			assert.Equal(t, expected, names(t, q))
		})
	}
}

func TestLoad_MatchesSQL(t *testing.T) {
	reg, err := Load("testdata")
	require.NoError(t, err)

	db := testutil.OpenDB(t)
	testutil.LoadPeople(t, db, testutil.People())

	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			q, _ := reg.Lookup(name)

			matched := names(t, q)

			sql, params, err := querysql.Compile(querysql.Select{
				From:    "people",
				Filter:  q.AsExpression(),
				Columns: []string{"id"},
			})
			require.NoError(t, err)

			got := []string{}
			people := testutil.People()
			for _, id := range testutil.QueryIDs(t, db, sql, params...) {
				got = append(got, people[id-1].Name)
			}
			assert.Equal(t, matched, got, sql)
		})
	}
}

func TestLoad_DuplicateNameAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "queries: [{name: adults, where: {field: Age, op: notNull}}]\n")
	second := writeFile(t, dir, "b.cue", `queries: adults: where: {field: "Age", op: "null"}`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, expr.IsDefinitionConflict(err), "got %v", err)

	var defErr *Error
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, second, defErr.File)
	assert.Equal(t, "adults", defErr.Query)
}

func TestLoad_BuildErrorNamesFileAndQuery(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "q.yaml", "queries: [{name: broken, where: {field: Age, op: between}}]\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, expr.IsInvalidDefinition(err))
	assert.Contains(t, err.Error(), path+": query broken:")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definition path")

	_, err = Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no definition files found")
}

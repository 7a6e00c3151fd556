package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_People(t *testing.T) {
	result, err := Run(context.Background(), load(t, "people"), nil)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	var names []string
	for _, o := range result.Outcomes {
		names = append(names, o.Query)
		assert.Len(t, o.Fingerprint, 64, o.Query)
		assert.Empty(t, o.Error, o.Query)
	}
	assert.Equal(t, []string{"adults", "gophers", "londoners", "of-age", "seniors-in-london"}, names)

	adults, ok := result.Outcome("adults")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, adults.Matched)
}

func TestRun_EvaluationFailure(t *testing.T) {
	result, err := Run(context.Background(), load(t, "failing"), nil)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	gophers, ok := result.Outcome("gophers")
	require.True(t, ok)
	assert.Contains(t, gophers.Error, "record 1:")
	assert.Equal(t, []int{0}, gophers.Matched, "matches before the failing record are kept")
}

func TestRun_FailedAssertions(t *testing.T) {
	scenario := load(t, "people")
	scenario.Assertions = []Assertion{
		{Type: AssertMatches, Query: "adults", Records: []int{0}},
		{Type: AssertCount, Query: "gophers", Count: 3},
		{Type: AssertFails, Query: "adults"},
		{Type: AssertMatches, Query: "nobody"},
		{Type: AssertSameFingerprint, Queries: []string{"adults", "gophers"}},
	}

	result, err := Run(context.Background(), scenario, nil)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)

	assert.Contains(t, result.Errors[0], "Assertion failed: matches (query adults)")
	assert.Contains(t, result.Errors[0], "Expected: records [0]")
	assert.Contains(t, result.Errors[0], "Actual: records [0 1 2]")
	assert.Contains(t, result.Errors[1], "Actual: 1 match(es)")
	assert.Contains(t, result.Errors[2], "Expected: evaluation failure")
	assert.Contains(t, result.Errors[3], "query not found")
	assert.Contains(t, result.Errors[4], "adults and gophers to share a fingerprint")
}

func TestRun_PortableNeedsColumns(t *testing.T) {
	scenario := load(t, "people")
	for i := range scenario.Records {
		delete(scenario.Records[i], "Tags")
	}
	scenario.Assertions = []Assertion{{Type: AssertPortable, Query: "gophers"}}

	result, err := Run(context.Background(), scenario, nil)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "query error")
}

func TestRun_BadDefinitions(t *testing.T) {
	scenario := load(t, "people")
	scenario.Defs = []string{filepath.Join(t.TempDir(), "absent")}

	_, err := Run(context.Background(), scenario, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load definitions")
}

func TestEvaluateAssertions_PortableWithoutStore(t *testing.T) {
	result := NewResult()
	result.Outcomes = append(result.Outcomes, Outcome{Query: "adults", Matched: []int{}})

	errs := EvaluateAssertions(result, []Assertion{{Type: AssertPortable, Query: "adults"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "portable requires database context")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{Type: AssertCount, Query: "adults", Expected: "2 match(es)", Actual: "3 match(es)"}
	assert.Equal(t, "Assertion failed: count (query adults)\n  Expected: 2 match(es)\n  Actual: 3 match(es)", err.Error())

	err = &AssertionError{Type: AssertSameFingerprint, Expected: "a", Actual: "b"}
	assert.Equal(t, "Assertion failed: same_fingerprint\n  Expected: a\n  Actual: b", err.Error())
}

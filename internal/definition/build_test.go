package definition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepb/fluentqueries/internal/testutil"
	"github.com/codepb/fluentqueries/pkg/expr"
	"github.com/codepb/fluentqueries/pkg/query"
)

// records returns the fixture people as decoded JSON objects.
func records(t *testing.T) []Record {
	t.Helper()
	data, err := json.Marshal(testutil.People())
	require.NoError(t, err)

	var out []Record
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func names(t *testing.T, q query.Query[Record]) []string {
	t.Helper()
	matched, err := query.Filter(records(t), q)
	require.NoError(t, err)

	out := []string{}
	for _, r := range matched {
		out = append(out, r["Name"].(string))
	}
	return out
}

func TestBuild_Leaves(t *testing.T) {
	testCases := []struct {
		name string
		cond Condition
		want []string
	}{
		{
			name: "equalTo",
			cond: Condition{Field: "Name", Op: OpEqualTo, Value: "Bob"},
			want: []string{"Bob"},
		},
		{
			name: "equalTo number",
			cond: Condition{Field: "Age", Op: OpEqualTo, Value: 41},
			want: []string{"Anna"},
		},
		{
			name: "notEqualTo",
			cond: Condition{Field: "Address.City", Op: OpNotEqualTo, Value: "London"},
			want: []string{"Bob", "Anna", "Zoë", " "},
		},
		{
			name: "equalToAnyOf",
			cond: Condition{Field: "Age", Op: OpEqualToAnyOf, Values: []any{19, 28}},
			want: []string{"Zoë", "Dmitri"},
		},
		{
			name: "notEqualToAnyOf",
			cond: Condition{Field: "Name", Op: OpNotEqualToAnyOf, Values: []any{"Ada", "Bob", " "}},
			want: []string{"Anna", "Zoë", "Dmitri"},
		},
		{
			name: "null",
			cond: Condition{Field: "Manager", Op: OpNull},
			want: []string{"Ada", "Anna", "Dmitri", " "},
		},
		{
			name: "notNull",
			cond: Condition{Field: "Email", Op: OpNotNull},
			want: []string{"Ada", "Anna", "Dmitri"},
		},
		{
			name: "lessThan",
			cond: Condition{Field: "Age", Op: OpLessThan, Value: 30},
			want: []string{"Zoë", "Dmitri"},
		},
		{
			name: "greaterThanOrEqualTo string",
			cond: Condition{Field: "Name", Op: OpGreaterThanOrEqualTo, Value: "D"},
			want: []string{"Zoë", "Dmitri"},
		},
		{
			name: "containing",
			cond: Condition{Field: "Address.Zip", Op: OpContaining, Value: "01"},
			want: []string{"Bob", "Zoë", " "},
		},
		{
			name: "endingWith",
			cond: Condition{Field: "Name", Op: OpEndingWith, Value: "a"},
			want: []string{"Ada", "Anna"},
		},
		{
			name: "nullOrWhitespace",
			cond: Condition{Field: "Name", Op: OpNullOrWhitespace},
			want: []string{" "},
		},
		{
			name: "true",
			cond: Condition{Field: "Active", Op: OpTrue},
			want: []string{"Ada", "Anna", "Zoë"},
		},
		{
			name: "false",
			cond: Condition{Field: "Active", Op: OpFalse},
			want: []string{"Bob", "Dmitri", " "},
		},
		{
			name: "includes",
			cond: Condition{Field: "Tags", Op: OpIncludes, Value: "ops"},
			want: []string{"Anna", "Dmitri"},
		},
		{
			name: "excludes",
			cond: Condition{Field: "Tags", Op: OpExcludes, Value: "ops"},
			want: []string{"Ada", "Bob", "Zoë", " "},
		},
		{
			name: "empty",
			cond: Condition{Field: "Tags", Op: OpEmpty},
			want: []string{"Bob", "Zoë", " "},
		},
		{
			name: "notEmpty",
			cond: Condition{Field: "Tags", Op: OpNotEmpty},
			want: []string{"Ada", "Anna", "Dmitri"},
		},
		{
			name: "withAll",
			cond: Condition{Field: "Tags", Op: OpWithAll, Element: &Condition{Op: OpNotEqualTo, Value: "ops"}},
			want: []string{"Ada", "Bob", "Zoë", " "},
		},
		{
			name: "withoutAny",
			cond: Condition{Field: "Tags", Op: OpWithoutAny, Element: &Condition{Op: OpEndingWith, Value: "s"}},
			want: []string{"Bob", "Zoë", " "},
		},
		{
			name: "withNotAll",
			cond: Condition{Field: "Tags", Op: OpWithNotAll, Element: &Condition{Op: OpEqualTo, Value: "ops"}},
			want: []string{"Ada", "Dmitri"},
		},
		{
			name: "equalToSequence",
			cond: Condition{Field: "Tags", Op: OpEqualToSequence, Values: []any{"go", "ops"}},
			want: []string{"Dmitri"},
		},
		{
			name: "notEqualToSequence",
			cond: Condition{Field: "Tags", Op: OpNotEqualToSequence, Values: []any{"ops"}},
			want: []string{"Ada", "Bob", "Zoë", "Dmitri", " "},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Build(Spec{Name: tc.name, Where: tc.cond})
			require.NoError(t, err)
			assert.Equal(t, tc.want, names(t, q))
		})
	}
}

func TestBuild_Groups(t *testing.T) {
	cond := Condition{
		Any: []Condition{
			{All: []Condition{
				{Field: "Active", Op: OpTrue},
				{Not: &Condition{Field: "Email", Op: OpNull}},
			}},
			{Field: "Age", Op: OpGreaterThan, Value: 60},
		},
	}

	q, err := Build(Spec{Name: "groups", Where: cond})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Anna", " "}, names(t, q))
}

func TestBuild_NestedElementFields(t *testing.T) {
	// Elements that are objects select their own members
	r := Record{"Pets": []any{
		map[string]any{"Kind": "cat", "Age": float64(3)},
		map[string]any{"Kind": "dog", "Age": float64(12)},
	}}

	cond := Condition{Field: "Pets", Op: OpWithAny, Element: &Condition{All: []Condition{
		{Field: "Kind", Op: OpEqualTo, Value: "dog"},
		{Field: "Age", Op: OpGreaterThan, Value: 10},
	}}}
	q, err := Build(Spec{Name: "old-dogs", Where: cond})
	require.NoError(t, err)

	ok, err := q.IsSatisfiedBy(r)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.IsSatisfiedBy(Record{"Pets": nil})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuild_SharesParameterAcrossGroups(t *testing.T) {
	cond := Condition{All: []Condition{
		{Field: "Name", Op: OpStartingWith, Value: "A"},
		{Field: "Age", Op: OpGreaterThan, Value: 40},
	}}
	q, err := Build(Spec{Name: "shared", Where: cond})
	require.NoError(t, err)

	l := q.AsExpression()
	assert.Equal(t, []*expr.Param{l.Param()}, expr.FreeParams(l.Body()))
}

func TestBuild_Errors(t *testing.T) {
	testCases := []struct {
		name string
		spec Spec
		msg  string
	}{
		{
			name: "missing name",
			spec: Spec{Where: Condition{Field: "Age", Op: OpNotNull}},
			msg:  "name is required",
		},
		{
			name: "empty condition",
			spec: Spec{Name: "q"},
			msg:  "exactly one of",
		},
		{
			name: "op and group",
			spec: Spec{Name: "q", Where: Condition{Field: "Age", Op: OpNotNull, All: []Condition{{Field: "Age", Op: OpNull}}}},
			msg:  "exactly one of",
		},
		{
			name: "unknown operator",
			spec: Spec{Name: "q", Where: Condition{Field: "Age", Op: "between"}},
			msg:  `unknown operator "between"`,
		},
		{
			name: "text operator with number",
			spec: Spec{Name: "q", Where: Condition{Field: "Name", Op: OpStartingWith, Value: 3}},
			msg:  "needs a string value",
		},
		{
			name: "ordering with bool",
			spec: Spec{Name: "q", Where: Condition{Field: "Age", Op: OpLessThan, Value: true}},
			msg:  "needs a number or string value",
		},
		{
			name: "subject at top level",
			spec: Spec{Name: "q", Where: Condition{Op: OpStartingWith, Value: "A"}},
			msg:  "subject itself",
		},
		{
			name: "element missing",
			spec: Spec{Name: "q", Where: Condition{Field: "Tags", Op: OpWithAny}},
			msg:  "needs an element condition",
		},
		{
			name: "bad element",
			spec: Spec{Name: "q", Where: Condition{Field: "Tags", Op: OpWithAll, Element: &Condition{Op: "nope"}}},
			msg:  "element:",
		},
		{
			name: "bad group member",
			spec: Spec{Name: "q", Where: Condition{Any: []Condition{{Field: "Age", Op: OpNull}, {Op: "nope", Field: "Age"}}}},
			msg:  "[1]:",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.spec)
			require.Error(t, err)
			assert.True(t, expr.IsInvalidDefinition(err), "got %v", err)
			assert.Contains(t, err.Error(), tc.msg)

			var defErr *Error
			require.ErrorAs(t, err, &defErr)
			assert.Equal(t, tc.spec.Name, defErr.Query)
		})
	}
}

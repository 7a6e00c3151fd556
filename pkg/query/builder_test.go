package query

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepb/fluentqueries/internal/testutil"
	"github.com/codepb/fluentqueries/pkg/expr"
)

func TestBuilder_Leaves(t *testing.T) {
	ada := Person{
		Name:   "Ada",
		Age:    36,
		Email:  testutil.StrPtr("ada@example.com"),
		Active: true,
		Tags:   []string{"math", "engines"},
	}

	testCases := []struct {
		name string
		q    Query[Person]
		want bool
	}{
		{"equal", Has(name).EqualTo("Ada"), true},
		{"not equal", Has(name).NotEqualTo("Ada"), false},
		{"any of", Has(name).EqualToAnyOf("Bob", "Ada"), true},
		{"none of", Has(name).NotEqualToAnyOf("Bob", "Ada"), false},
		{"less", Ordered(Has(age)).LessThan(36), false},
		{"less or equal", Ordered(Has(age)).LessThanOrEqualTo(36), true},
		{"greater", Ordered(Has(age)).GreaterThan(30), true},
		{"greater or equal", Ordered(Has(age)).GreaterThanOrEqualTo(37), false},
		{"null", Has(email).Null(), false},
		{"not null", Has(email).NotNull(), true},
		{"containing", Text(Has(name)).Containing("d"), true},
		{"starting with", Text(Has(name)).StartingWith("Ad"), true},
		{"ending with", Text(Has(name)).EndingWith("x"), false},
		{"null or empty", Text(Has(name)).NullOrEmpty(), false},
		{"null or whitespace", Text(Has(name)).NullOrWhitespace(), false},
		{"true", Bool(Has(active)).True(), true},
		{"false", Bool(Has(active)).False(), false},
		{"tag contained", Sequence(Has(tags)).Containing("math"), true},
		{"tag any", Sequence(Has(tags)).WithAny(Text(Is[string]()).StartingWith("eng")), true},
		{"nested member", Has(Then(addr, city)).EqualTo(""), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mustSatisfy(t, tc.q, ada))
		})
	}
}

func TestBuilder_NegationPairsExclusive(t *testing.T) {
	pairs := []struct {
		name string
		x    Query[Person]
		notX Query[Person]
	}{
		{"StartingWith", Text(Has(name)).StartingWith("A"), Text(Has(name)).NotStartingWith("A")},
		{"EndingWith", Text(Has(name)).EndingWith("a"), Text(Has(name)).NotEndingWith("a")},
		{"Containing", Text(Has(name)).Containing("o"), Text(Has(name)).NotContaining("o")},
		{"Empty", Sequence(Has(tags)).Empty(), Sequence(Has(tags)).NotEmpty()},
		{"Null", Has(email).Null(), Has(email).NotNull()},
		{"NullOrEmpty", Text(Has(name)).NullOrEmpty(), Text(Has(name)).NotNullOrEmpty()},
		{"NullOrWhitespace", Text(Has(name)).NullOrWhitespace(), Text(Has(name)).NotNullOrWhitespace()},
		{"EqualToAnyOf", Has(name).EqualToAnyOf("Ada", "Bob"), Has(name).NotEqualToAnyOf("Ada", "Bob")},
		{"Sequence tag", Sequence(Has(tags)).Containing("ops"), Sequence(Has(tags)).NotContaining("ops")},
	}

	for _, pair := range pairs {
		t.Run(pair.name, func(t *testing.T) {
			for _, p := range testutil.People() {
				x := mustSatisfy(t, pair.x, p)
				notX := mustSatisfy(t, pair.notX, p)
				assert.NotEqual(t, x, notX, p.Name)
			}
		})
	}
}

func TestBuilder_SequencePredicates(t *testing.T) {
	seq := Sequence(Is[[]int]())
	subject := []int{1, 2, 3, 4, 5}

	within := Ordered(Is[int]()).GreaterThan(0).And().Satisfying(Ordered(Is[int]()).LessThan(6))

	testCases := []struct {
		name string
		q    Query[[]int]
		want bool
	}{
		{"Containing(3)", seq.Containing(3), true},
		{"Containing(6)", seq.Containing(6), false},
		{"Empty", seq.Empty(), false},
		{"NotEmpty", seq.NotEmpty(), true},
		{"WithAny(i == 3)", seq.WithAny(Is[int]().EqualTo(3)), true},
		{"WithoutAny(i == 3)", seq.WithoutAny(Is[int]().EqualTo(3)), false},
		{"WithAll(0 < i < 6)", seq.WithAll(within), true},
		{"WithNotAll(0 < i < 6)", seq.WithNotAll(within), false},
		{"EqualToSequence(1..5)", seq.EqualToSequence([]int{1, 2, 3, 4, 5}), true},
		{"EqualToSequence(1,2,4,5)", seq.EqualToSequence([]int{1, 2, 4, 5}), false},
		{"NotEqualToSequence(1,2,4,5)", seq.NotEqualToSequence([]int{1, 2, 4, 5}), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mustSatisfy(t, tc.q, subject))
		})
	}
}

func TestBuilder_ElementPredicateStaysSymbolic(t *testing.T) {
	q := Sequence(Has(tags)).WithAll(Text(Is[string]()).NotNullOrEmpty())

	l := q.AsExpression()
	require.NotNil(t, l)

	var lambdas int
	expr.Walk(l.Body(), func(e expr.Expr) bool {
		if _, ok := e.(*expr.Lambda); ok {
			lambdas++
		}
		return true
	})
	assert.Equal(t, 1, lambdas)
	assert.Equal(t, "x => seq.AllMatch(x.Tags, x1 => !isNullOrEmpty(x1))", q.String())
}

func TestBuilder_SatisfyingChild(t *testing.T) {
	child := Text(Has(city)).StartingWith("Lon")
	q := Has(addr).Satisfying(child)

	for _, p := range testutil.People() {
		want := mustSatisfy(t, child, p.Address)
		assert.Equal(t, want, mustSatisfy(t, q, p), p.Name)
	}
	assert.Equal(t, `x => strings.HasPrefix(x.Address.City, "Lon")`, q.String())
}

func TestBuilder_SatisfyingThroughContinuation(t *testing.T) {
	child := Ordered(Has(age)).GreaterThan(40)
	q := Text(Has(name)).StartingWith("A").Or().Satisfying(child)

	assert.True(t, mustSatisfy(t, q, Person{Name: "Ann"}))
	assert.True(t, mustSatisfy(t, q, Person{Name: "Bob", Age: 50}))
	assert.False(t, mustSatisfy(t, q, Person{Name: "Bob", Age: 20}))
}

func TestBuilder_SatisfyingExpr(t *testing.T) {
	p := expr.ParamFor[int]("a")
	body, err := expr.NewBinary(expr.OpEqual, p, expr.ConstantOf(36))
	require.NoError(t, err)
	l, err := expr.NewLambda(p, body)
	require.NoError(t, err)

	q := Has(age).SatisfyingExpr(l)
	assert.True(t, mustSatisfy(t, q, Person{Age: 36}))

	wrong := Has(name).SatisfyingExpr(l)
	assert.True(t, expr.IsTypeMismatch(wrong.Err()))
}

func TestBuilder_OrderedPointer(t *testing.T) {
	type player struct{ Score *int }
	ptr := func(i int) *int { return &i }
	score := Prop("Score", func(p player) *int { return p.Score })
	ordered := OrderedPtr(Has(score))

	testCases := []struct {
		name string
		q    Query[player]
		want map[*int]bool
	}{
		{"less", ordered.LessThan(5), map[*int]bool{ptr(4): true, ptr(5): false, nil: false}},
		{"less or equal", ordered.LessThanOrEqualTo(5), map[*int]bool{ptr(5): true, ptr(6): false, nil: false}},
		{"greater", ordered.GreaterThan(5), map[*int]bool{ptr(6): true, ptr(5): false, nil: false}},
		{"greater or equal", ordered.GreaterThanOrEqualTo(5), map[*int]bool{ptr(5): true, ptr(4): false, nil: false}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for score, want := range tc.want {
				assert.Equal(t, want, mustSatisfy(t, tc.q, player{Score: score}))
			}
		})
	}

	emails := OrderedPtr(Has(email)).LessThan("b")
	assert.True(t, mustSatisfy(t, emails, Person{Email: testutil.StrPtr("ada@example.com")}))
	assert.False(t, mustSatisfy(t, emails, Person{}))
	assert.Equal(t, `x => (x.Email < "b")`, emails.String())
}

func TestBuilder_NullOnValueType(t *testing.T) {
	q := Has(age).NotNull()
	require.Error(t, q.Err())
	assert.True(t, expr.IsUnsupportedCapability(q.Err()))
}

func TestBuilder_FailedSelector(t *testing.T) {
	q := Has(Prop[Person, string]("Name", nil)).EqualTo("x")
	assert.True(t, expr.IsInvalidDefinition(q.Err()))

	var zero Selector[Person, string]
	assert.True(t, expr.IsInvalidDefinition(Has(zero).EqualTo("x").Err()))
}

func TestSelectorOf(t *testing.T) {
	sel, err := SelectorOf[Person, int](age.AsExpression())
	require.NoError(t, err)
	assert.True(t, mustSatisfy(t, Ordered(Has(sel)).GreaterThan(1), Person{Age: 2}))

	_, err = SelectorOf[Person, string](age.AsExpression())
	assert.True(t, expr.IsTypeMismatch(err))

	_, err = SelectorOf[int, int](age.AsExpression())
	assert.True(t, expr.IsTypeMismatch(err))
}

func TestWhereAndFilter(t *testing.T) {
	q := Ordered(Has(age)).GreaterThanOrEqualTo(40)
	people := testutil.People()

	filtered, err := Filter(people, q)
	require.NoError(t, err)

	var viaWhere []Person
	for p, err := range Where(slices.Values(people), q) {
		require.NoError(t, err)
		viaWhere = append(viaWhere, p)
	}

	require.NotEmpty(t, filtered)
	assert.Equal(t, filtered, viaWhere)
	for _, p := range filtered {
		ok, err := Satisfies(p, q)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestWhere_StopsOnError(t *testing.T) {
	q := Text(Has(Field[Person, string]("Missing"))).StartingWith("a")

	var errs int
	for _, err := range Where(slices.Values([]Person{{}, {}}), q) {
		require.Error(t, err)
		errs++
	}
	assert.Equal(t, 1, errs)

	_, err := Filter([]Person{{}}, q)
	assert.True(t, expr.IsEvaluationFailure(err))
}

package definition

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/codepb/fluentqueries/pkg/expr"
	"github.com/codepb/fluentqueries/pkg/query"
)

// Build compiles a spec into a query over records.
func Build(s Spec) (query.Query[Record], error) {
	if s.Name == "" {
		return query.Query[Record]{}, &Error{Err: invalid("query name is required")}
	}
	q, err := build[Record](s.Where)
	if err != nil {
		return query.Query[Record]{}, &Error{Query: s.Name, Err: err}
	}
	return q, nil
}

func invalid(format string, args ...any) error {
	return expr.NewError(expr.ErrCodeInvalidDefinition, "definition", format, args...)
}

func build[T any](c Condition) (query.Query[T], error) {
	var zero query.Query[T]

	set := 0
	for _, ok := range []bool{c.Op != "", len(c.All) > 0, len(c.Any) > 0, c.Not != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return zero, invalid("condition needs exactly one of op, all, any or not")
	}

	var q query.Query[T]
	var err error
	switch {
	case len(c.All) > 0:
		q, err = fold(c.All, query.Query[T].And)
	case len(c.Any) > 0:
		q, err = fold(c.Any, query.Query[T].Or)
	case c.Not != nil:
		q, err = negate[T](*c.Not)
	default:
		q, err = leaf[T](c)
	}
	if err != nil {
		return zero, err
	}
	return q, q.Err()
}

func fold[T any](conds []Condition, join func(query.Query[T]) query.Continuation[T]) (query.Query[T], error) {
	q, err := build[T](conds[0])
	if err != nil {
		return q, fmt.Errorf("[0]: %w", err)
	}
	for i, c := range conds[1:] {
		next, err := build[T](c)
		if err != nil {
			return next, fmt.Errorf("[%d]: %w", i+1, err)
		}
		q = join(q).Satisfying(next)
	}
	return q, nil
}

func negate[T any](c Condition) (query.Query[T], error) {
	inner, err := build[T](c)
	if err != nil {
		return inner, fmt.Errorf("not: %w", err)
	}
	l := inner.AsExpression()
	body, err := expr.NewNot(l.Body())
	if err != nil {
		return query.Query[T]{}, err
	}
	neg, err := expr.NewLambda(l.Param(), body)
	if err != nil {
		return query.Query[T]{}, err
	}
	return query.New[T](neg)
}

func leaf[T any](c Condition) (query.Query[T], error) {
	var zero query.Query[T]

	switch c.Op {
	case OpEqualTo, OpNotEqualTo, OpEqualToAnyOf, OpNotEqualToAnyOf, OpNull, OpNotNull:
		sel, err := selectorFor[T, any](c.Field)
		if err != nil {
			return zero, err
		}
		b := query.Has(sel)
		switch c.Op {
		case OpEqualTo:
			return b.EqualTo(normalize(c.Value)), nil
		case OpNotEqualTo:
			return b.NotEqualTo(normalize(c.Value)), nil
		case OpEqualToAnyOf:
			return b.EqualToAnyOf(normalizeAll(c.Values)...), nil
		case OpNotEqualToAnyOf:
			return b.NotEqualToAnyOf(normalizeAll(c.Values)...), nil
		case OpNull:
			return b.Null(), nil
		default:
			return b.NotNull(), nil
		}

	case OpLessThan, OpLessThanOrEqualTo, OpGreaterThan, OpGreaterThanOrEqualTo:
		switch v := normalize(c.Value).(type) {
		case float64:
			return ordered[T](c, v)
		case string:
			return ordered[T](c, v)
		default:
			return zero, invalid("%s needs a number or string value, got %T", c.Op, c.Value)
		}

	case OpContaining, OpNotContaining, OpStartingWith, OpNotStartingWith, OpEndingWith, OpNotEndingWith,
		OpNullOrEmpty, OpNotNullOrEmpty, OpNullOrWhitespace, OpNotNullOrWhitespace:
		return text[T](c)

	case OpTrue, OpFalse:
		sel, err := selectorFor[T, bool](c.Field)
		if err != nil {
			return zero, err
		}
		b := query.Bool(query.Has(sel))
		if c.Op == OpTrue {
			return b.True(), nil
		}
		return b.False(), nil

	case OpIncludes, OpExcludes, OpEmpty, OpNotEmpty, OpWithAny, OpWithoutAny, OpWithAll, OpWithNotAll,
		OpEqualToSequence, OpNotEqualToSequence:
		return sequence[T](c)

	default:
		return zero, invalid("unknown operator %q", c.Op)
	}
}

func ordered[T any, P float64 | string](c Condition, v P) (query.Query[T], error) {
	sel, err := selectorFor[T, P](c.Field)
	if err != nil {
		return query.Query[T]{}, err
	}
	b := query.Ordered(query.Has(sel))
	switch c.Op {
	case OpLessThan:
		return b.LessThan(v), nil
	case OpLessThanOrEqualTo:
		return b.LessThanOrEqualTo(v), nil
	case OpGreaterThan:
		return b.GreaterThan(v), nil
	default:
		return b.GreaterThanOrEqualTo(v), nil
	}
}

func text[T any](c Condition) (query.Query[T], error) {
	var zero query.Query[T]

	sel, err := selectorFor[T, string](c.Field)
	if err != nil {
		return zero, err
	}
	b := query.Text(query.Has(sel))

	switch c.Op {
	case OpNullOrEmpty:
		return b.NullOrEmpty(), nil
	case OpNotNullOrEmpty:
		return b.NotNullOrEmpty(), nil
	case OpNullOrWhitespace:
		return b.NullOrWhitespace(), nil
	case OpNotNullOrWhitespace:
		return b.NotNullOrWhitespace(), nil
	}

	s, ok := c.Value.(string)
	if !ok {
		return zero, invalid("%s needs a string value, got %T", c.Op, c.Value)
	}
	switch c.Op {
	case OpContaining:
		return b.Containing(s), nil
	case OpNotContaining:
		return b.NotContaining(s), nil
	case OpStartingWith:
		return b.StartingWith(s), nil
	case OpNotStartingWith:
		return b.NotStartingWith(s), nil
	case OpEndingWith:
		return b.EndingWith(s), nil
	default:
		return b.NotEndingWith(s), nil
	}
}

// sequence picks the element type of the selected sequence and compiles the
// operator over it.
func sequence[T any](c Condition) (query.Query[T], error) {
	switch c.Op {
	case OpWithAny, OpWithoutAny, OpWithAll, OpWithNotAll:
		if c.Element == nil {
			return query.Query[T]{}, invalid("%s needs an element condition", c.Op)
		}
	}
	if c.Field == "" {
		// a nested sequence element is always dynamic
		return sequenceOf[T, any](c)
	}

	var k kind
	switch c.Op {
	case OpWithAny, OpWithoutAny, OpWithAll, OpWithNotAll:
		k = elementKind(*c.Element)
	case OpIncludes, OpExcludes:
		k = literalKind(normalize(c.Value))
	case OpEqualToSequence, OpNotEqualToSequence:
		k = listKind(normalizeAll(c.Values))
	}

	switch k {
	case kindString:
		return sequenceOf[T, string](c)
	case kindNumber:
		return sequenceOf[T, float64](c)
	case kindBool:
		return sequenceOf[T, bool](c)
	case kindSequence:
		return sequenceOf[T, []any](c)
	default:
		return sequenceOf[T, any](c)
	}
}

func sequenceOf[T, E any](c Condition) (query.Query[T], error) {
	var zero query.Query[T]

	sel, err := selectorFor[T, []E](c.Field)
	if err != nil {
		return zero, err
	}
	b := query.Sequence(query.Has(sel))

	switch c.Op {
	case OpIncludes, OpExcludes:
		item, err := literal[E](c.Value)
		if err != nil {
			return zero, err
		}
		if c.Op == OpIncludes {
			return b.Containing(item), nil
		}
		return b.NotContaining(item), nil

	case OpEmpty:
		return b.Empty(), nil
	case OpNotEmpty:
		return b.NotEmpty(), nil

	case OpWithAny, OpWithoutAny, OpWithAll, OpWithNotAll:
		el, err := build[E](*c.Element)
		if err != nil {
			return zero, fmt.Errorf("element: %w", err)
		}
		switch c.Op {
		case OpWithAny:
			return b.WithAny(el), nil
		case OpWithoutAny:
			return b.WithoutAny(el), nil
		case OpWithAll:
			return b.WithAll(el), nil
		default:
			return b.WithNotAll(el), nil
		}

	default:
		items := make([]E, len(c.Values))
		for i, v := range c.Values {
			if items[i], err = literal[E](v); err != nil {
				return zero, fmt.Errorf("values[%d]: %w", i, err)
			}
		}
		if c.Op == OpEqualToSequence {
			return b.EqualToSequence(items), nil
		}
		return b.NotEqualToSequence(items), nil
	}
}

// selectorFor resolves a dotted path to a selector typed P. The empty path
// selects the subject itself and requires P to be T.
func selectorFor[T, P any](path string) (query.Selector[T, P], error) {
	if path == "" {
		sel, ok := any(query.Identity[T]()).(query.Selector[T, P])
		if !ok {
			return sel, invalid("a condition on the subject itself needs a %s subject, got %s",
				reflect.TypeFor[P](), reflect.TypeFor[T]())
		}
		return sel, nil
	}

	segs := strings.Split(path, ".")
	if len(segs) == 1 {
		return query.Field[T, P](path), nil
	}
	head := query.Field[T, any](segs[0])
	for _, seg := range segs[1 : len(segs)-1] {
		head = query.Then(head, query.Field[any, any](seg))
	}
	return query.Then(head, query.Field[any, P](segs[len(segs)-1])), nil
}

// kind is the static type a condition expects of its subject.
type kind int

const (
	kindAny kind = iota
	kindString
	kindNumber
	kindBool
	kindSequence
)

// elementKind decides the element type for an element condition. Conditions
// that select members of the element need dynamic elements; otherwise every
// leaf must agree.
func elementKind(c Condition) kind {
	if usesFields(c) {
		return kindAny
	}
	return subjectKind(c)
}

func usesFields(c Condition) bool {
	if c.Field != "" {
		return true
	}
	for _, sub := range append(append([]Condition{}, c.All...), c.Any...) {
		if usesFields(sub) {
			return true
		}
	}
	return c.Not != nil && usesFields(*c.Not)
}

func subjectKind(c Condition) kind {
	var subs []Condition
	switch {
	case len(c.All) > 0:
		subs = c.All
	case len(c.Any) > 0:
		subs = c.Any
	case c.Not != nil:
		return subjectKind(*c.Not)
	}
	if subs != nil {
		k := subjectKind(subs[0])
		for _, sub := range subs[1:] {
			if subjectKind(sub) != k {
				return kindAny
			}
		}
		return k
	}

	switch c.Op {
	case OpLessThan, OpLessThanOrEqualTo, OpGreaterThan, OpGreaterThanOrEqualTo:
		return literalKind(normalize(c.Value))
	case OpContaining, OpNotContaining, OpStartingWith, OpNotStartingWith, OpEndingWith, OpNotEndingWith,
		OpNullOrEmpty, OpNotNullOrEmpty, OpNullOrWhitespace, OpNotNullOrWhitespace:
		return kindString
	case OpTrue, OpFalse:
		return kindBool
	case OpIncludes, OpExcludes, OpEmpty, OpNotEmpty, OpWithAny, OpWithoutAny, OpWithAll, OpWithNotAll,
		OpEqualToSequence, OpNotEqualToSequence:
		return kindSequence
	default:
		return kindAny
	}
}

func literalKind(v any) kind {
	switch v.(type) {
	case string:
		return kindString
	case float64:
		return kindNumber
	case bool:
		return kindBool
	case []any:
		return kindSequence
	default:
		return kindAny
	}
}

func listKind(vs []any) kind {
	if len(vs) == 0 {
		return kindAny
	}
	k := literalKind(vs[0])
	for _, v := range vs[1:] {
		if literalKind(v) != k {
			return kindAny
		}
	}
	return k
}

// normalize maps decoded numbers to float64, the type encoding/json gives
// record fields.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case []any:
		return normalizeAll(n)
	default:
		return v
	}
}

func normalizeAll(vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = normalize(v)
	}
	return out
}

func literal[P any](v any) (P, error) {
	var zero P
	n := normalize(v)
	if n == nil && reflect.TypeFor[P]().Kind() == reflect.Interface {
		return zero, nil
	}
	p, ok := n.(P)
	if !ok {
		return zero, invalid("value %v is not a %s", v, reflect.TypeFor[P]())
	}
	return p, nil
}

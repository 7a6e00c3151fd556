package query

import (
	"cmp"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// OrderedBuilder adds ordering tests to a Builder.
type OrderedBuilder[T any, P cmp.Ordered] struct {
	Builder[T, P]
}

// Ordered views b as a builder over an ordered type.
func Ordered[T any, P cmp.Ordered](b Builder[T, P]) OrderedBuilder[T, P] {
	return OrderedBuilder[T, P]{b}
}

func (b OrderedBuilder[T, P]) LessThan(value P) Query[T] {
	return b.compare(expr.OpLess, value)
}

func (b OrderedBuilder[T, P]) LessThanOrEqualTo(value P) Query[T] {
	return b.compare(expr.OpLessOrEqual, value)
}

func (b OrderedBuilder[T, P]) GreaterThan(value P) Query[T] {
	return b.compare(expr.OpGreater, value)
}

func (b OrderedBuilder[T, P]) GreaterThanOrEqualTo(value P) Query[T] {
	return b.compare(expr.OpGreaterOrEqual, value)
}

// OrderedPtrBuilder adds ordering tests to a Builder over a pointer to an
// ordered type. A nil pointer fails every ordering test.
type OrderedPtrBuilder[T any, P cmp.Ordered] struct {
	Builder[T, *P]
}

// OrderedPtr views b as a builder over a nullable ordered type.
func OrderedPtr[T any, P cmp.Ordered](b Builder[T, *P]) OrderedPtrBuilder[T, P] {
	return OrderedPtrBuilder[T, P]{b}
}

func (b OrderedPtrBuilder[T, P]) LessThan(value P) Query[T] {
	return b.compare(expr.OpLess, &value)
}

func (b OrderedPtrBuilder[T, P]) LessThanOrEqualTo(value P) Query[T] {
	return b.compare(expr.OpLessOrEqual, &value)
}

func (b OrderedPtrBuilder[T, P]) GreaterThan(value P) Query[T] {
	return b.compare(expr.OpGreater, &value)
}

func (b OrderedPtrBuilder[T, P]) GreaterThanOrEqualTo(value P) Query[T] {
	return b.compare(expr.OpGreaterOrEqual, &value)
}

// TextBuilder adds string tests to a Builder.
type TextBuilder[T any, P ~string] struct {
	Builder[T, P]
}

// Text views b as a builder over a string type.
func Text[T any, P ~string](b Builder[T, P]) TextBuilder[T, P] {
	return TextBuilder[T, P]{b}
}

func (b TextBuilder[T, P]) Containing(s string) Query[T] {
	return b.call(expr.FnStringContains, expr.ConstantOf(s))
}

func (b TextBuilder[T, P]) NotContaining(s string) Query[T] {
	return b.notCall(expr.FnStringContains, expr.ConstantOf(s))
}

func (b TextBuilder[T, P]) StartingWith(prefix string) Query[T] {
	return b.call(expr.FnStringHasPrefix, expr.ConstantOf(prefix))
}

func (b TextBuilder[T, P]) NotStartingWith(prefix string) Query[T] {
	return b.notCall(expr.FnStringHasPrefix, expr.ConstantOf(prefix))
}

func (b TextBuilder[T, P]) EndingWith(suffix string) Query[T] {
	return b.call(expr.FnStringHasSuffix, expr.ConstantOf(suffix))
}

func (b TextBuilder[T, P]) NotEndingWith(suffix string) Query[T] {
	return b.notCall(expr.FnStringHasSuffix, expr.ConstantOf(suffix))
}

// NullOrEmpty tests for nil or "".
func (b TextBuilder[T, P]) NullOrEmpty() Query[T] {
	return b.call(expr.FnIsNullOrEmpty)
}

func (b TextBuilder[T, P]) NotNullOrEmpty() Query[T] {
	return b.notCall(expr.FnIsNullOrEmpty)
}

// NullOrWhitespace tests for nil or a string of Unicode white space only.
func (b TextBuilder[T, P]) NullOrWhitespace() Query[T] {
	return b.call(expr.FnIsNullOrWhiteSpace)
}

func (b TextBuilder[T, P]) NotNullOrWhitespace() Query[T] {
	return b.notCall(expr.FnIsNullOrWhiteSpace)
}

// BoolBuilder adds truth tests to a Builder.
type BoolBuilder[T any, P ~bool] struct {
	Builder[T, P]
}

// Bool views b as a builder over a boolean type.
func Bool[T any, P ~bool](b Builder[T, P]) BoolBuilder[T, P] {
	return BoolBuilder[T, P]{b}
}

func (b BoolBuilder[T, P]) True() Query[T] {
	return b.compare(expr.OpEqual, true)
}

func (b BoolBuilder[T, P]) False() Query[T] {
	return b.compare(expr.OpEqual, false)
}

// SequenceBuilder adds tests over slices to a Builder. Element predicates are
// Queries, so they stay in the expression tree and reach translators.
type SequenceBuilder[T any, S ~[]E, E any] struct {
	Builder[T, S]
}

// Sequence views b as a builder over a slice type.
func Sequence[T any, S ~[]E, E any](b Builder[T, S]) SequenceBuilder[T, S, E] {
	return SequenceBuilder[T, S, E]{b}
}

func (b SequenceBuilder[T, S, E]) Containing(item E) Query[T] {
	return b.call(expr.FnSeqContains, expr.ConstantOf(item))
}

func (b SequenceBuilder[T, S, E]) NotContaining(item E) Query[T] {
	return b.notCall(expr.FnSeqContains, expr.ConstantOf(item))
}

// Empty tests for a sequence without elements. A nil slice is empty.
func (b SequenceBuilder[T, S, E]) Empty() Query[T] {
	return b.notCall(expr.FnSeqAny)
}

func (b SequenceBuilder[T, S, E]) NotEmpty() Query[T] {
	return b.call(expr.FnSeqAny)
}

// WithAny tests that at least one element satisfies q.
func (b SequenceBuilder[T, S, E]) WithAny(q Query[E]) Query[T] {
	return b.elements(expr.FnSeqAnyMatch, false, q)
}

// WithoutAny tests that no element satisfies q.
func (b SequenceBuilder[T, S, E]) WithoutAny(q Query[E]) Query[T] {
	return b.elements(expr.FnSeqAnyMatch, true, q)
}

// WithAll tests that every element satisfies q. It holds for an empty
// sequence.
func (b SequenceBuilder[T, S, E]) WithAll(q Query[E]) Query[T] {
	return b.elements(expr.FnSeqAllMatch, false, q)
}

// WithNotAll tests that at least one element fails q.
func (b SequenceBuilder[T, S, E]) WithNotAll(q Query[E]) Query[T] {
	return b.elements(expr.FnSeqAllMatch, true, q)
}

// EqualToSequence tests element-wise equality with other.
func (b SequenceBuilder[T, S, E]) EqualToSequence(other S) Query[T] {
	return b.call(expr.FnSeqEqual, expr.ConstantOf(other))
}

func (b SequenceBuilder[T, S, E]) NotEqualToSequence(other S) Query[T] {
	return b.notCall(expr.FnSeqEqual, expr.ConstantOf(other))
}

func (b SequenceBuilder[T, S, E]) elements(name string, negate bool, q Query[E]) Query[T] {
	if err := q.Err(); err != nil {
		return b.cont.Resolve(failed[T](err))
	}
	if negate {
		return b.notCall(name, q.s.lambda)
	}
	return b.call(name, q.s.lambda)
}

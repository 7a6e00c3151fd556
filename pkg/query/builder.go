package query

import (
	"reflect"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// Builder creates leaf predicates on the value a Selector picks out of T.
// Every leaf is folded into the Builder's Continuation, so
//
//	q.Or() ... EqualTo(v)
//
// returns q OR (selected == v).
//
// Tests that need a capability of P (ordering, text, booleans, sequences) live
// on the views returned by Ordered, Text, Bool and Sequence.
type Builder[T, P any] struct {
	sel  Selector[T, P]
	cont Continuation[T]
}

// leaf builds a test over the selected value and folds it into the
// continuation.
func (b Builder[T, P]) leaf(build func(subject expr.Expr) (expr.Expr, error)) Query[T] {
	if err := b.sel.Err(); err != nil {
		return b.cont.Resolve(failed[T](err))
	}
	l := b.sel.lambda
	body, err := build(l.Body())
	return b.cont.Resolve(lambdaQuery[T](l.Param(), body, err))
}

func (b Builder[T, P]) call(name string, args ...expr.Expr) Query[T] {
	return b.leaf(func(subject expr.Expr) (expr.Expr, error) {
		return expr.NewCall(expr.MustBuiltin(name), append([]expr.Expr{subject}, args...)...)
	})
}

func (b Builder[T, P]) notCall(name string, args ...expr.Expr) Query[T] {
	return b.leaf(func(subject expr.Expr) (expr.Expr, error) {
		c, err := expr.NewCall(expr.MustBuiltin(name), append([]expr.Expr{subject}, args...)...)
		if err != nil {
			return nil, err
		}
		return expr.NewNot(c)
	})
}

func (b Builder[T, P]) compare(op expr.BinaryOp, value P) Query[T] {
	return b.leaf(func(subject expr.Expr) (expr.Expr, error) {
		return expr.NewBinary(op, subject, expr.ConstantOf(value))
	})
}

// EqualTo tests selected == value.
func (b Builder[T, P]) EqualTo(value P) Query[T] {
	return b.compare(expr.OpEqual, value)
}

// NotEqualTo tests selected != value.
func (b Builder[T, P]) NotEqualTo(value P) Query[T] {
	return b.compare(expr.OpNotEqual, value)
}

// EqualToAnyOf tests that the selected value equals one of values.
func (b Builder[T, P]) EqualToAnyOf(values ...P) Query[T] {
	return b.call(expr.FnIn, expr.ConstantOf(values))
}

// NotEqualToAnyOf tests that the selected value equals none of values.
func (b Builder[T, P]) NotEqualToAnyOf(values ...P) Query[T] {
	return b.notCall(expr.FnIn, expr.ConstantOf(values))
}

// Null tests that the selected value is nil. P must be a nillable type.
func (b Builder[T, P]) Null() Query[T] {
	if err := nillable[P]("Null"); err != nil {
		return b.cont.Resolve(failed[T](err))
	}
	return b.call(expr.FnIsNull)
}

// NotNull tests that the selected value is not nil. P must be a nillable type.
func (b Builder[T, P]) NotNull() Query[T] {
	if err := nillable[P]("NotNull"); err != nil {
		return b.cont.Resolve(failed[T](err))
	}
	return b.notCall(expr.FnIsNull)
}

func nillable[P any](op string) error {
	if t := reflect.TypeFor[P](); !expr.Nillable(t) {
		return expr.NewError(expr.ErrCodeUnsupportedCapability, op, "%s can never be nil", t)
	}
	return nil
}

// Satisfying tests the selected value against a Query over P. The sub-query's
// parameter is replaced by the selector's path, so the result still ranges
// over T only.
func (b Builder[T, P]) Satisfying(sub Query[P]) Query[T] {
	if err := sub.Err(); err != nil {
		return b.cont.Resolve(failed[T](err))
	}
	return b.leaf(func(subject expr.Expr) (expr.Expr, error) {
		return expr.Rebind(sub.s.lambda, subject)
	})
}

// SatisfyingExpr is Satisfying for a raw lambda (P) -> bool.
func (b Builder[T, P]) SatisfyingExpr(l *expr.Lambda) Query[T] {
	return b.Satisfying(From[P](l))
}

package query

import (
	"reflect"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// Selector picks a value of type P out of a subject of type T. It is a lambda
// (T) -> P whose body is the path to the value.
type Selector[T, P any] struct {
	lambda *expr.Lambda
	err    error
}

// Prop selects a named member through a typed accessor. The name is what
// translators and the formatted expression see; get is what evaluation calls.
func Prop[T, P any](name string, get func(T) P) Selector[T, P] {
	if get == nil {
		return Selector[T, P]{err: expr.NewError(expr.ErrCodeInvalidDefinition, "Prop", "accessor for %q is nil", name)}
	}
	p := expr.ParamFor[T](paramName)
	m, err := expr.NewMember(p, name, reflect.TypeFor[P](), func(v any) any {
		t, _ := v.(T)
		return get(t)
	})
	return selector[T, P](p, m, err)
}

// Field selects a member by name without an accessor. Struct fields and
// string-keyed map entries are resolved when the Query is evaluated; a missing
// map entry reads as nil.
func Field[T, P any](name string) Selector[T, P] {
	p := expr.ParamFor[T](paramName)
	m, err := expr.NewMember(p, name, reflect.TypeFor[P](), nil)
	return selector[T, P](p, m, err)
}

// Identity selects the subject itself.
func Identity[T any]() Selector[T, T] {
	p := expr.ParamFor[T](paramName)
	return selector[T, T](p, p, nil)
}

// Then composes two selectors: inner applied to the value outer selects.
func Then[T, P, R any](outer Selector[T, P], inner Selector[P, R]) Selector[T, R] {
	if outer.err != nil {
		return Selector[T, R]{err: outer.err}
	}
	if inner.err != nil {
		return Selector[T, R]{err: inner.err}
	}
	body, err := expr.Rebind(inner.lambda, outer.lambda.Body())
	return selector[T, R](outer.lambda.Param(), body, err)
}

// SelectorOf wraps a lambda of shape (T) -> P.
func SelectorOf[T, P any](l *expr.Lambda) (Selector[T, P], error) {
	if l == nil {
		return Selector[T, P]{}, expr.NewError(expr.ErrCodeInvalidDefinition, "SelectorOf", "selector expression is nil")
	}
	if !reflect.TypeFor[T]().AssignableTo(l.Param().Type()) {
		return Selector[T, P]{}, expr.NewError(expr.ErrCodeTypeMismatch, "SelectorOf",
			"selector parameter is %s, not %s", l.Param().Type(), reflect.TypeFor[T]())
	}
	if !l.Body().Type().AssignableTo(reflect.TypeFor[P]()) {
		return Selector[T, P]{}, expr.NewError(expr.ErrCodeTypeMismatch, "SelectorOf",
			"selector yields %s, not %s", l.Body().Type(), reflect.TypeFor[P]())
	}
	return Selector[T, P]{lambda: l}, nil
}

func selector[T, P any](p *expr.Param, body expr.Expr, err error) Selector[T, P] {
	if err != nil {
		return Selector[T, P]{err: err}
	}
	l, err := expr.NewLambda(p, body)
	if err != nil {
		return Selector[T, P]{err: err}
	}
	return Selector[T, P]{lambda: l}
}

// Err returns the construction error of the selector, if any.
func (s Selector[T, P]) Err() error {
	if s.lambda == nil && s.err == nil {
		return expr.NewError(expr.ErrCodeInvalidDefinition, "Selector", "selector is not defined")
	}
	return s.err
}

// AsExpression returns the selector lambda, or nil if it failed.
func (s Selector[T, P]) AsExpression() *expr.Lambda {
	return s.lambda
}

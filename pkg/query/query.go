package query

import (
	"reflect"
	"sync"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// paramName is the display name of parameters created by this package.
const paramName = "x"

// Query is an immutable predicate over T.
//
// It owns a single lambda (T) -> bool. Composition never modifies a Query; it
// returns a new one. A Query whose construction failed carries the error
// instead of an expression: Err reports it, IsSatisfiedBy returns it, and every
// Query composed from it carries it too.
//
// The zero Query is undefined and behaves like a failed one.
type Query[T any] struct {
	s *state[T]
}

type state[T any] struct {
	lambda *expr.Lambda
	err    error

	once    sync.Once
	pred    func(T) (bool, error)
	predErr error
}

// New wraps a lambda of shape (T) -> bool.
func New[T any](l *expr.Lambda) (Query[T], error) {
	if err := validate[T](l); err != nil {
		return Query[T]{}, err
	}
	return Query[T]{s: &state[T]{lambda: l}}, nil
}

// From wraps a lambda like New. An invalid lambda yields a failed Query
// instead of an error, so From can be used inline.
func From[T any](l *expr.Lambda) Query[T] {
	q, err := New[T](l)
	if err != nil {
		return failed[T](err)
	}
	return q
}

// Of returns a Query with the same expression as q.
func Of[T any](q Query[T]) Query[T] {
	if err := q.Err(); err != nil {
		return failed[T](err)
	}
	return Query[T]{s: &state[T]{lambda: q.s.lambda}}
}

// Func wraps a plain Go predicate. The result evaluates like any other Query
// but is opaque to translators: the expression holds a call to a user
// function named name.
func Func[T any](name string, fn func(T) bool) Query[T] {
	if fn == nil {
		return failed[T](expr.NewError(expr.ErrCodeInvalidDefinition, "Func", "predicate %q is nil", name))
	}
	f := expr.NewFunc(name, 1, expr.BoolType(), func(args []any) (any, error) {
		v, _ := args[0].(T)
		return fn(v), nil
	})
	p := expr.ParamFor[T](paramName)
	call, err := expr.NewCall(f, p)
	if err != nil {
		return failed[T](err)
	}
	return lambdaQuery[T](p, call, nil)
}

func failed[T any](err error) Query[T] {
	return Query[T]{s: &state[T]{err: err}}
}

// lambdaQuery closes body over p, passing through an earlier error.
func lambdaQuery[T any](p *expr.Param, body expr.Expr, err error) Query[T] {
	if err != nil {
		return failed[T](err)
	}
	l, err := expr.NewLambda(p, body)
	if err != nil {
		return failed[T](err)
	}
	return From[T](l)
}

func validate[T any](l *expr.Lambda) error {
	if l == nil {
		return expr.NewError(expr.ErrCodeInvalidDefinition, "New", "query expression is nil")
	}
	want := reflect.TypeFor[T]()
	if !want.AssignableTo(l.Param().Type()) {
		return expr.NewError(expr.ErrCodeTypeMismatch, "New",
			"expression parameter is %s, query is over %s", l.Param().Type(), want)
	}
	if l.Body().Type() != expr.BoolType() {
		return expr.NewError(expr.ErrCodeTypeMismatch, "New",
			"expression body is %s, not bool", l.Body().Type())
	}
	if free := expr.FreeParams(l); len(free) != 0 {
		return expr.NewError(expr.ErrCodeUnboundParameter, "New",
			"expression has free parameter %s", free[0].Name())
	}
	return nil
}

// Err returns the construction error of q, if any.
func (q Query[T]) Err() error {
	if q.s == nil {
		return expr.NewError(expr.ErrCodeInvalidDefinition, "Query", "query is not defined")
	}
	return q.s.err
}

// AsExpression returns the lambda q wraps, or nil if q failed.
func (q Query[T]) AsExpression() *expr.Lambda {
	if q.Err() != nil {
		return nil
	}
	return q.s.lambda
}

// String renders the expression, or the construction error.
func (q Query[T]) String() string {
	if err := q.Err(); err != nil {
		return "<invalid query: " + err.Error() + ">"
	}
	return q.s.lambda.String()
}

// And starts a conjunction with q on the left.
func (q Query[T]) And() Continuation[T] {
	return Continuation[T]{fold: func(right Query[T]) Query[T] {
		return q.combine(right, expr.OpAnd)
	}}
}

// Or starts a disjunction with q on the left.
func (q Query[T]) Or() Continuation[T] {
	return Continuation[T]{fold: func(right Query[T]) Query[T] {
		return q.combine(right, expr.OpOr)
	}}
}

// combine rewrites right onto q's parameter and joins both bodies with op.
func (q Query[T]) combine(right Query[T], op expr.BinaryOp) Query[T] {
	if err := q.Err(); err != nil {
		return failed[T](err)
	}
	if err := right.Err(); err != nil {
		return failed[T](err)
	}

	left := q.s.lambda
	shared, leftBody := left.Param(), left.Body()
	// A parameter wider than T, such as a decoded any, cannot receive the
	// other side's T parameter; both sides move to a fresh T parameter.
	if want := reflect.TypeFor[T](); shared.Type() != want {
		shared = expr.NewParam(shared.Name(), want)
		var err error
		if leftBody, err = expr.Rebind(left, shared); err != nil {
			return failed[T](err)
		}
	}
	rightBody, err := expr.Rebind(right.s.lambda, shared)
	if err != nil {
		return failed[T](err)
	}
	body, err := expr.NewBinary(op, leftBody, rightBody)
	if err != nil {
		return failed[T](err)
	}
	return lambdaQuery[T](shared, body, nil)
}

// IsSatisfiedBy evaluates q against subject. The expression is compiled on
// first use and the result reused by later calls.
func (q Query[T]) IsSatisfiedBy(subject T) (bool, error) {
	if err := q.Err(); err != nil {
		return false, err
	}
	s := q.s
	s.once.Do(func() {
		s.pred, s.predErr = expr.CompilePredicate[T](s.lambda)
	})
	if s.predErr != nil {
		return false, s.predErr
	}
	return s.pred(subject)
}

package expr

import (
	"errors"
	"reflect"
)

// Fn is a compiled single-argument function.
type Fn func(arg any) (any, error)

// env is one frame of parameter bindings. Nested lambdas push a frame.
type env struct {
	param  *Param
	value  any
	parent *env
}

func (e *env) lookup(p *Param) (any, bool) {
	for f := e; f != nil; f = f.parent {
		if f.param == p {
			return f.value, true
		}
	}
	return nil, false
}

type evalFn func(*env) (any, error)

// Compile turns l into a callable closure. The tree is walked once; the
// closure does no further inspection of node types.
func Compile(l *Lambda) (Fn, error) {
	if l == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "Compile", "missing lambda")
	}
	body, err := compile(l.body)
	if err != nil {
		return nil, err
	}
	param := l.param
	return func(arg any) (any, error) {
		return body(&env{param: param, value: arg})
	}, nil
}

// CompilePredicate compiles l into a typed predicate over T.
func CompilePredicate[T any](l *Lambda) (func(T) (bool, error), error) {
	if l == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "CompilePredicate", "missing lambda")
	}
	want := reflect.TypeFor[T]()
	if !want.AssignableTo(l.param.typ) {
		return nil, NewError(ErrCodeTypeMismatch, "CompilePredicate",
			"predicate over %s cannot accept %s", l.param.typ, want)
	}
	if !isBoolType(l.body.Type()) {
		return nil, NewError(ErrCodeTypeMismatch, "CompilePredicate",
			"predicate body is %s, not bool", l.body.Type())
	}
	fn, err := Compile(l)
	if err != nil {
		return nil, err
	}
	return func(subject T) (bool, error) {
		v, err := fn(subject)
		if err != nil {
			return false, err
		}
		return asBool("CompilePredicate", v)
	}, nil
}

func compile(e Expr) (evalFn, error) {
	switch n := e.(type) {
	case *Param:
		return func(en *env) (any, error) {
			v, ok := en.lookup(n)
			if !ok {
				return nil, NewError(ErrCodeUnboundParameter, "Evaluate", "parameter %s is not bound", n.name)
			}
			return v, nil
		}, nil

	case *Const:
		v := n.value
		return func(*env) (any, error) { return v, nil }, nil

	case *Member:
		return compileMember(n)

	case *Binary:
		return compileBinary(n)

	case *Unary:
		operand, err := compile(n.operand)
		if err != nil {
			return nil, err
		}
		return func(en *env) (any, error) {
			v, err := operand(en)
			if err != nil {
				return nil, err
			}
			b, err := asBool("!", v)
			if err != nil {
				return nil, err
			}
			return !b, nil
		}, nil

	case *Call:
		return compileCall(n)

	case *Lambda:
		body, err := compile(n.body)
		if err != nil {
			return nil, err
		}
		param := n.param
		return func(en *env) (any, error) {
			return Fn(func(arg any) (any, error) {
				return body(&env{param: param, value: arg, parent: en})
			}), nil
		}, nil

	default:
		return nil, NewError(ErrCodeInvalidDefinition, "Compile", "unknown node %T", e)
	}
}

func compileMember(m *Member) (evalFn, error) {
	target, err := compile(m.target)
	if err != nil {
		return nil, err
	}
	get, name := m.get, m.name
	if get != nil {
		return func(en *env) (any, error) {
			v, err := target(en)
			if err != nil {
				return nil, err
			}
			return get(v), nil
		}, nil
	}
	return func(en *env) (any, error) {
		v, err := target(en)
		if err != nil {
			return nil, err
		}
		return Lookup(v, name)
	}, nil
}

// Lookup resolves a named member of v: a struct field, or an entry of a map
// keyed by strings. A missing map entry is nil.
func Lookup(v any, name string) (any, error) {
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return nil, NewError(ErrCodeEvaluationFailure, "Lookup", "cannot read %s of nil", name)
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil, NewError(ErrCodeEvaluationFailure, "Lookup", "%s has no exported field %s", rv.Type(), name)
		}
		return f.Interface(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, NewError(ErrCodeEvaluationFailure, "Lookup", "%s is not keyed by strings", rv.Type())
		}
		e := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !e.IsValid() {
			return nil, nil
		}
		return e.Interface(), nil
	default:
		return nil, NewError(ErrCodeEvaluationFailure, "Lookup", "cannot read %s of %s", name, rv.Type())
	}
}

func compileBinary(b *Binary) (evalFn, error) {
	left, err := compile(b.left)
	if err != nil {
		return nil, err
	}
	right, err := compile(b.right)
	if err != nil {
		return nil, err
	}
	op := b.op

	if op.IsLogical() {
		return func(en *env) (any, error) {
			lv, err := left(en)
			if err != nil {
				return nil, err
			}
			l, err := asBool(op.String(), lv)
			if err != nil {
				return nil, err
			}
			if (op == OpAnd && !l) || (op == OpOr && l) {
				return l, nil
			}
			rv, err := right(en)
			if err != nil {
				return nil, err
			}
			return asBool(op.String(), rv)
		}, nil
	}

	return func(en *env) (any, error) {
		lv, err := left(en)
		if err != nil {
			return nil, err
		}
		rv, err := right(en)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpEqual:
			return Equal(lv, rv), nil
		case OpNotEqual:
			return !Equal(lv, rv), nil
		}
		// Ordering against nil is false, as in SQL. NaN is unordered.
		if IsNil(lv) || IsNil(rv) || Unordered(lv) || Unordered(rv) {
			return false, nil
		}
		c, err := Compare(lv, rv)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpLess:
			return c < 0, nil
		case OpLessOrEqual:
			return c <= 0, nil
		case OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}, nil
}

func compileCall(c *Call) (evalFn, error) {
	args := make([]evalFn, len(c.args))
	for i, a := range c.args {
		f, err := compile(a)
		if err != nil {
			return nil, err
		}
		args[i] = f
	}
	fn := c.fn
	return func(en *env) (any, error) {
		vals := make([]any, len(args))
		for i, a := range args {
			v, err := a(en)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out, err := fn.Impl(vals)
		if err != nil {
			var e *Error
			if errors.As(err, &e) {
				return nil, err
			}
			return nil, WrapError(ErrCodeEvaluationFailure, fn.Name, "call failed", err)
		}
		return out, nil
	}, nil
}

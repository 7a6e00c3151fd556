package expr

import (
	"reflect"
	"strings"
	"unicode"
)

// Func is a named function callable from a Call node.
//
// Impl receives the evaluated arguments. A Lambda argument arrives as an Fn.
type Func struct {
	Name   string
	Arity  int
	Result reflect.Type
	Impl   func(args []any) (any, error)

	builtin bool
}

// NewFunc declares a user function. User functions are evaluable but opaque to
// translators.
func NewFunc(name string, arity int, result reflect.Type, impl func(args []any) (any, error)) *Func {
	if result == nil {
		result = anyType
	}
	return &Func{Name: name, Arity: arity, Result: result, Impl: impl}
}

// IsBuiltin reports whether f comes from the builtin table.
func (f *Func) IsBuiltin() bool { return f.builtin }

// Builtin function names.
const (
	FnIn                 = "in"
	FnIsNull             = "isNull"
	FnStringContains     = "strings.Contains"
	FnStringHasPrefix    = "strings.HasPrefix"
	FnStringHasSuffix    = "strings.HasSuffix"
	FnIsNullOrEmpty      = "isNullOrEmpty"
	FnIsNullOrWhiteSpace = "isNullOrWhiteSpace"
	FnSeqContains        = "seq.Contains"
	FnSeqAny             = "seq.Any"
	FnSeqAnyMatch        = "seq.AnyMatch"
	FnSeqAllMatch        = "seq.AllMatch"
	FnSeqEqual           = "seq.Equal"
)

var builtins = map[string]*Func{}

func init() {
	register(FnIn, 2, builtinIn)
	register(FnIsNull, 1, func(args []any) (any, error) {
		return IsNil(args[0]), nil
	})
	register(FnStringContains, 2, stringTest(FnStringContains, strings.Contains))
	register(FnStringHasPrefix, 2, stringTest(FnStringHasPrefix, strings.HasPrefix))
	register(FnStringHasSuffix, 2, stringTest(FnStringHasSuffix, strings.HasSuffix))
	register(FnIsNullOrEmpty, 1, func(args []any) (any, error) {
		if IsNil(args[0]) {
			return true, nil
		}
		s, err := asString(FnIsNullOrEmpty, args[0])
		if err != nil {
			return nil, err
		}
		return s == "", nil
	})
	register(FnIsNullOrWhiteSpace, 1, func(args []any) (any, error) {
		if IsNil(args[0]) {
			return true, nil
		}
		s, err := asString(FnIsNullOrWhiteSpace, args[0])
		if err != nil {
			return nil, err
		}
		return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0, nil
	})
	register(FnSeqContains, 2, builtinSeqContains)
	register(FnSeqAny, 1, func(args []any) (any, error) {
		seq, err := asSequence(FnSeqAny, args[0])
		if err != nil {
			return nil, err
		}
		return seq.Len() > 0, nil
	})
	register(FnSeqAnyMatch, 2, func(args []any) (any, error) {
		return matchElements(FnSeqAnyMatch, args, true)
	})
	register(FnSeqAllMatch, 2, func(args []any) (any, error) {
		return matchElements(FnSeqAllMatch, args, false)
	})
	register(FnSeqEqual, 2, builtinSeqEqual)
}

func register(name string, arity int, impl func([]any) (any, error)) {
	builtins[name] = &Func{Name: name, Arity: arity, Result: boolType, Impl: impl, builtin: true}
}

// Builtin returns the builtin function with the given name.
func Builtin(name string) (*Func, bool) {
	f, ok := builtins[name]
	return f, ok
}

// MustBuiltin is like Builtin but panics on an unknown name.
func MustBuiltin(name string) *Func {
	f, ok := builtins[name]
	if !ok {
		panic("expr: unknown builtin " + name)
	}
	return f
}

func builtinIn(args []any) (any, error) {
	set, err := asSequence(FnIn, args[1])
	if err != nil {
		return nil, err
	}
	for i := range set.Len() {
		if Equal(args[0], set.Index(i).Interface()) {
			return true, nil
		}
	}
	return false, nil
}

func builtinSeqContains(args []any) (any, error) {
	seq, err := asSequence(FnSeqContains, args[0])
	if err != nil {
		return nil, err
	}
	for i := range seq.Len() {
		if Equal(seq.Index(i).Interface(), args[1]) {
			return true, nil
		}
	}
	return false, nil
}

func builtinSeqEqual(args []any) (any, error) {
	a, err := asSequence(FnSeqEqual, args[0])
	if err != nil {
		return nil, err
	}
	b, err := asSequence(FnSeqEqual, args[1])
	if err != nil {
		return nil, err
	}
	if a.Len() != b.Len() {
		return false, nil
	}
	for i := range a.Len() {
		if !Equal(a.Index(i).Interface(), b.Index(i).Interface()) {
			return false, nil
		}
	}
	return true, nil
}

// matchElements implements AnyMatch (short=true) and AllMatch (short=false).
func matchElements(name string, args []any, short bool) (any, error) {
	seq, err := asSequence(name, args[0])
	if err != nil {
		return nil, err
	}
	pred, ok := args[1].(Fn)
	if !ok {
		return nil, NewError(ErrCodeEvaluationFailure, name, "element predicate is %T, not a function", args[1])
	}
	for i := range seq.Len() {
		v, err := pred(seq.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		b, err := asBool(name, v)
		if err != nil {
			return nil, err
		}
		if b == short {
			return short, nil
		}
	}
	return !short, nil
}

func stringTest(name string, test func(s, sub string) bool) func([]any) (any, error) {
	return func(args []any) (any, error) {
		s, err := asString(name, args[0])
		if err != nil {
			return nil, err
		}
		sub, err := asString(name, args[1])
		if err != nil {
			return nil, err
		}
		return test(s, sub), nil
	}
}

func asString(op string, v any) (string, error) {
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return "", NewError(ErrCodeEvaluationFailure, op, "string operand is nil")
	}
	if rv.Kind() != reflect.String {
		return "", NewError(ErrCodeEvaluationFailure, op, "operand of type %s is not a string", rv.Type())
	}
	return rv.String(), nil
}

func asBool(op string, v any) (bool, error) {
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return false, NewError(ErrCodeEvaluationFailure, op, "boolean operand is nil")
	}
	if rv.Kind() != reflect.Bool {
		return false, NewError(ErrCodeEvaluationFailure, op, "operand of type %s is not a bool", rv.Type())
	}
	return rv.Bool(), nil
}

// asSequence returns v as a slice or array value. Nil, whether a nil slice,
// a nil pointer or no value at all, is the empty sequence, as a NULL array
// column is in SQL.
func asSequence(op string, v any) (reflect.Value, error) {
	empty := reflect.ValueOf([]any(nil))
	if v == nil {
		return empty, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return empty, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv, nil
	default:
		return reflect.Value{}, NewError(ErrCodeEvaluationFailure, op, "operand of type %s is not a sequence", rv.Type())
	}
}

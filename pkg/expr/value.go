package expr

import (
	"cmp"
	"math"
	"reflect"
	"strings"
)

type kind int

const (
	kindOther kind = iota
	kindInt
	kindUint
	kindFloat
	kindString
	kindBool
)

func kindClass(k reflect.Kind) kind {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return kindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return kindUint
	case reflect.Float32, reflect.Float64:
		return kindFloat
	case reflect.String:
		return kindString
	case reflect.Bool:
		return kindBool
	default:
		return kindOther
	}
}

func isNumeric(k kind) bool {
	return k == kindInt || k == kindUint || k == kindFloat
}

// Orderable reports whether values of t support <, <=, > and >=.
// Pointers are ordered by their target. Interface types are checked at
// evaluation time.
func Orderable(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return true
	}
	k := kindClass(t.Kind())
	return isNumeric(k) || k == kindString
}

// Nillable reports whether a value of t can be nil.
func Nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// IsNil reports whether v is nil, including typed nils.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	if Nillable(rv.Type()) {
		return rv.IsNil()
	}
	return false
}

// indirect follows pointers and interfaces. It reports false when it meets a
// nil.
func indirect(rv reflect.Value) (reflect.Value, bool) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return rv, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}

// Equal reports whether a and b are equal. Numbers compare by value across
// kinds, strings across named string types, sequences element-wise; anything
// else falls back to reflect.DeepEqual. NaN equals nothing, itself included.
func Equal(a, b any) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}

	va, _ := indirect(reflect.ValueOf(a))
	vb, _ := indirect(reflect.ValueOf(b))
	ka, kb := kindClass(va.Kind()), kindClass(vb.Kind())

	switch {
	case isNumeric(ka) && isNumeric(kb):
		if isNaN(va, ka) || isNaN(vb, kb) {
			return false
		}
		return compareNumbers(va, ka, vb, kb) == 0
	case ka == kindString && kb == kindString:
		return va.String() == vb.String()
	case ka == kindBool && kb == kindBool:
		return va.Bool() == vb.Bool()
	}

	if va.Type() == vb.Type() && va.Comparable() {
		return va.Equal(vb)
	}
	if isSequence(va) && isSequence(vb) {
		if va.Len() != vb.Len() {
			return false
		}
		for i := range va.Len() {
			if !Equal(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(va.Interface(), vb.Interface())
}

func isSequence(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

// Unordered reports whether v is a floating-point NaN. Every ordering and
// equality test involving NaN is false.
func Unordered(v any) bool {
	rv, ok := indirect(reflect.ValueOf(v))
	if !ok || !rv.IsValid() {
		return false
	}
	k := kindClass(rv.Kind())
	return isNaN(rv, k)
}

func isNaN(v reflect.Value, k kind) bool {
	return k == kindFloat && math.IsNaN(v.Float())
}

// Compare orders a and b. Both must be numbers or both strings. Like
// cmp.Compare it sorts NaN before every other number; callers evaluating
// ordering operators check Unordered first.
func Compare(a, b any) (int, error) {
	va, okA := indirect(reflect.ValueOf(a))
	vb, okB := indirect(reflect.ValueOf(b))
	if !okA || !okB {
		return 0, NewError(ErrCodeEvaluationFailure, "Compare", "cannot order a nil value")
	}
	ka, kb := kindClass(va.Kind()), kindClass(vb.Kind())
	switch {
	case isNumeric(ka) && isNumeric(kb):
		return compareNumbers(va, ka, vb, kb), nil
	case ka == kindString && kb == kindString:
		return strings.Compare(va.String(), vb.String()), nil
	default:
		return 0, NewError(ErrCodeEvaluationFailure, "Compare", "cannot order %s and %s", va.Type(), vb.Type())
	}
}

func compareNumbers(va reflect.Value, ka kind, vb reflect.Value, kb kind) int {
	switch {
	case ka == kindInt && kb == kindInt:
		return cmp.Compare(va.Int(), vb.Int())
	case ka == kindUint && kb == kindUint:
		return cmp.Compare(va.Uint(), vb.Uint())
	case ka == kindInt && kb == kindUint:
		if va.Int() < 0 {
			return -1
		}
		return cmp.Compare(uint64(va.Int()), vb.Uint())
	case ka == kindUint && kb == kindInt:
		return -compareNumbers(vb, kb, va, ka)
	default:
		return cmp.Compare(toFloat(va, ka), toFloat(vb, kb))
	}
}

func toFloat(v reflect.Value, k kind) float64 {
	switch k {
	case kindInt:
		return float64(v.Int())
	case kindUint:
		return float64(v.Uint())
	case kindFloat:
		return v.Float()
	default:
		return math.NaN()
	}
}

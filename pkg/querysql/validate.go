package querysql

import (
	"fmt"
	"math"
	"reflect"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// ValidationResult contains portability analysis of a query expression.
//
// A portable expression can be exported as a document and translated by any
// provider that understands the builtin function table. Expressions outside
// the portable fragment still evaluate in memory.
type ValidationResult struct {
	// IsPortable indicates the expression uses only portable features.
	IsPortable bool

	// Warnings lists non-portable features used in the expression.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks whether an expression stays inside the portable fragment.
//
// Portable fragment rules:
//  1. Only builtin functions - user functions are opaque to providers
//  2. Members are named - the row itself is never compared
//  3. No NULL literals - providers disagree on NULL equality
//  4. Finite numbers - NaN and infinities have no literal form
//  5. The expression translates to SQL
//
// Validate is a pure function with no side effects.
func Validate(l *expr.Lambda) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validate(l)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validate(l *expr.Lambda) {
	if l == nil {
		v.addWarning("nil expression - portable fragment requires a lambda")
		return
	}

	root := l.Param()
	expr.Walk(l.Body(), func(e expr.Expr) bool {
		switch n := e.(type) {
		case *expr.Call:
			// Rule 1
			if !n.Func().IsBuiltin() {
				v.addWarning("Function '%s' is opaque - it cannot be exported or translated", n.Func().Name)
				return false
			}
		case *expr.Binary:
			// Rule 2
			if n.Left() == root || n.Right() == root {
				v.addWarning("Parameter '%s' compared as a whole - select a member instead", root.Name())
			}
		case *expr.Const:
			v.validateConst(n.Value())
		}
		return true
	})

	// Rule 5, only meaningful once the rules above hold
	if len(v.warnings) > 0 {
		return
	}
	if _, _, err := CompileWhere(l); err != nil {
		v.addWarning("Not translatable to SQL: %v", err)
	}
}

func (v *validator) validateConst(val any) {
	// Rule 3
	if expr.IsNil(val) {
		v.addWarning("Comparison with NULL literal - portable fragment requires explicit values")
		return
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		// Rule 4
		if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			v.addWarning("Constant %v has no portable literal form", f)
		}
	case reflect.Slice, reflect.Array:
		for i := range rv.Len() {
			v.validateConst(rv.Index(i).Interface())
		}
	}
}

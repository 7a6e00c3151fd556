package ir

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// DocumentVersion is the version of the expression document format.
const DocumentVersion = 1

// Node kinds, stored under the "op" key.
const (
	OpParam  = "param"
	OpConst  = "const"
	OpMember = "member"
	OpBinary = "binary"
	OpNot    = "not"
	OpCall   = "call"
	OpLambda = "lambda"
)

// Encode converts a lambda into a portable document:
//
//	{"version":1,"op":"lambda","param":"p0","body":{...}}
//
// Parameters are renamed p0, p1, ... in order of appearance, so equal trees
// encode identically whatever their display names. Literals that JSON cannot
// carry canonically are tagged objects: {"float":"1.5"} and {"null":true}.
//
// Member getters do not travel: a decoded member is resolved by name. Calls
// to user functions cannot be encoded.
func Encode(l *expr.Lambda) (IRObject, error) {
	if l == nil {
		return nil, expr.NewError(expr.ErrCodeInvalidDefinition, "Encode", "expression is nil")
	}
	enc := &encoder{names: make(map[*expr.Param]string)}
	doc, err := enc.node(l)
	if err != nil {
		return nil, err
	}
	obj := doc.(IRObject)
	obj["version"] = IRInt(DocumentVersion)
	return obj, nil
}

type encoder struct {
	names map[*expr.Param]string
}

func (enc *encoder) node(e expr.Expr) (IRValue, error) {
	switch n := e.(type) {
	case *expr.Param:
		name, ok := enc.names[n]
		if !ok {
			return nil, expr.NewError(expr.ErrCodeUnboundParameter, "Encode", "parameter %s is not bound", n.Name())
		}
		return IRObject{"op": IRString(OpParam), "name": IRString(name)}, nil

	case *expr.Const:
		lit, err := EncodeLiteral(n.Value())
		if err != nil {
			return nil, err
		}
		return IRObject{"op": IRString(OpConst), "value": lit}, nil

	case *expr.Member:
		target, err := enc.node(n.Target())
		if err != nil {
			return nil, err
		}
		return IRObject{"op": IRString(OpMember), "target": target, "name": IRString(n.Name())}, nil

	case *expr.Binary:
		left, err := enc.node(n.Left())
		if err != nil {
			return nil, err
		}
		right, err := enc.node(n.Right())
		if err != nil {
			return nil, err
		}
		return IRObject{
			"op":       IRString(OpBinary),
			"operator": IRString(n.Op().String()),
			"left":     left,
			"right":    right,
		}, nil

	case *expr.Unary:
		operand, err := enc.node(n.Operand())
		if err != nil {
			return nil, err
		}
		return IRObject{"op": IRString(OpNot), "operand": operand}, nil

	case *expr.Call:
		fn := n.Func()
		if !fn.IsBuiltin() {
			return nil, expr.NewError(expr.ErrCodeUnsupportedCapability, "Encode",
				"function %s is not portable", fn.Name)
		}
		args := make(IRArray, 0, len(n.Args()))
		for _, a := range n.Args() {
			v, err := enc.node(a)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return IRObject{"op": IRString(OpCall), "func": IRString(fn.Name), "args": args}, nil

	case *expr.Lambda:
		name := "p" + strconv.Itoa(len(enc.names))
		enc.names[n.Param()] = name
		body, err := enc.node(n.Body())
		if err != nil {
			return nil, err
		}
		return IRObject{"op": IRString(OpLambda), "param": IRString(name), "body": body}, nil

	default:
		return nil, expr.NewError(expr.ErrCodeInvalidDefinition, "Encode", "unknown node %T", e)
	}
}

// EncodeLiteral converts a constant into a document value.
func EncodeLiteral(v any) (IRValue, error) {
	null := IRObject{"null": IRBool(true)}
	if v == nil {
		return null, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return null, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return IRString(rv.String()), nil
	case reflect.Bool:
		return IRBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IRInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return nil, expr.NewError(expr.ErrCodeUnsupportedCapability, "Encode", "%d overflows int64", rv.Uint())
		}
		return IRInt(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, expr.NewError(expr.ErrCodeUnsupportedCapability, "Encode", "%v has no portable form", f)
		}
		return IRObject{"float": IRString(strconv.FormatFloat(f, 'g', -1, 64))}, nil
	case reflect.Slice, reflect.Array:
		arr := make(IRArray, rv.Len())
		for i := range rv.Len() {
			elem, err := EncodeLiteral(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = elem
		}
		return arr, nil
	default:
		return nil, expr.NewError(expr.ErrCodeUnsupportedCapability, "Encode",
			"literal of type %s has no portable form", rv.Type())
	}
}

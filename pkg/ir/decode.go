package ir

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// Decode rebuilds a lambda from a document produced by Encode. The root
// parameter gets paramType (nil means any); nested lambda parameters are
// dynamically typed. Members are resolved by name at evaluation time and calls
// are bound to the builtin table.
func Decode(doc IRObject, paramType reflect.Type) (*expr.Lambda, error) {
	version, ok := doc["version"].(IRInt)
	if !ok {
		return nil, invalid("document has no version")
	}
	if version != DocumentVersion {
		return nil, invalid("unsupported document version %d", version)
	}

	dec := &decoder{scope: make(map[string]*expr.Param), rootType: paramType}
	e, err := dec.node(doc)
	if err != nil {
		return nil, err
	}
	l, ok := e.(*expr.Lambda)
	if !ok {
		return nil, invalid("document root is %s, not a lambda", expr.Format(e))
	}
	return l, nil
}

type decoder struct {
	scope    map[string]*expr.Param
	rootType reflect.Type
	depth    int
}

func invalid(format string, args ...any) error {
	return expr.NewError(expr.ErrCodeInvalidDefinition, "Decode", format, args...)
}

func (dec *decoder) node(v IRValue) (expr.Expr, error) {
	obj, ok := v.(IRObject)
	if !ok {
		return nil, invalid("node is %T, not an object", v)
	}
	op, err := str(obj, "op")
	if err != nil {
		return nil, err
	}

	switch op {
	case OpParam:
		name, err := str(obj, "name")
		if err != nil {
			return nil, err
		}
		p, ok := dec.scope[name]
		if !ok {
			return nil, expr.NewError(expr.ErrCodeUnboundParameter, "Decode", "parameter %s is not bound", name)
		}
		return p, nil

	case OpConst:
		lit, ok := obj["value"]
		if !ok {
			return nil, invalid("const has no value")
		}
		val, err := DecodeLiteral(lit)
		if err != nil {
			return nil, err
		}
		return expr.Constant(val, nil), nil

	case OpMember:
		name, err := str(obj, "name")
		if err != nil {
			return nil, err
		}
		target, err := dec.child(obj, "target")
		if err != nil {
			return nil, err
		}
		return expr.NewMember(target, name, expr.AnyType(), nil)

	case OpBinary:
		opText, err := str(obj, "operator")
		if err != nil {
			return nil, err
		}
		bop, ok := expr.ParseBinaryOp(opText)
		if !ok {
			return nil, invalid("unknown operator %q", opText)
		}
		left, err := dec.child(obj, "left")
		if err != nil {
			return nil, err
		}
		right, err := dec.child(obj, "right")
		if err != nil {
			return nil, err
		}
		return expr.NewBinary(bop, left, right)

	case OpNot:
		operand, err := dec.child(obj, "operand")
		if err != nil {
			return nil, err
		}
		return expr.NewNot(operand)

	case OpCall:
		name, err := str(obj, "func")
		if err != nil {
			return nil, err
		}
		fn, ok := expr.Builtin(name)
		if !ok {
			return nil, invalid("unknown function %q", name)
		}
		raw, ok := obj["args"].(IRArray)
		if !ok {
			return nil, invalid("call %s has no argument list", name)
		}
		args := make([]expr.Expr, len(raw))
		for i, a := range raw {
			if args[i], err = dec.node(a); err != nil {
				return nil, fmt.Errorf("%s argument %d: %w", name, i, err)
			}
		}
		return expr.NewCall(fn, args...)

	case OpLambda:
		return dec.lambda(obj)

	default:
		return nil, invalid("unknown node op %q", op)
	}
}

func (dec *decoder) lambda(obj IRObject) (expr.Expr, error) {
	name, err := str(obj, "param")
	if err != nil {
		return nil, err
	}
	if _, taken := dec.scope[name]; taken {
		return nil, invalid("parameter %s is bound twice", name)
	}

	typ := expr.AnyType()
	if dec.depth == 0 && dec.rootType != nil {
		typ = dec.rootType
	}
	p := expr.NewParam(name, typ)

	dec.scope[name] = p
	dec.depth++
	body, err := dec.child(obj, "body")
	dec.depth--
	delete(dec.scope, name)
	if err != nil {
		return nil, err
	}
	return expr.NewLambda(p, body)
}

func (dec *decoder) child(obj IRObject, key string) (expr.Expr, error) {
	v, ok := obj[key]
	if !ok {
		return nil, invalid("node has no %q", key)
	}
	return dec.node(v)
}

func str(obj IRObject, key string) (string, error) {
	s, ok := obj[key].(IRString)
	if !ok {
		return "", invalid("%q must be a string", key)
	}
	return string(s), nil
}

// DecodeLiteral converts a document value back into a constant. Arrays become
// []any and integers int64.
func DecodeLiteral(v IRValue) (any, error) {
	switch val := v.(type) {
	case IRString:
		return string(val), nil
	case IRInt:
		return int64(val), nil
	case IRBool:
		return bool(val), nil
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			d, err := DecodeLiteral(elem)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case IRObject:
		if f, ok := val["float"].(IRString); ok && len(val) == 1 {
			parsed, err := strconv.ParseFloat(string(f), 64)
			if err != nil {
				return nil, invalid("bad float literal %q", f)
			}
			return parsed, nil
		}
		if b, ok := val["null"].(IRBool); ok && bool(b) && len(val) == 1 {
			return nil, nil
		}
		return nil, invalid("unknown tagged literal")
	default:
		return nil, invalid("unsupported literal %T", v)
	}
}

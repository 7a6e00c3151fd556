package expr

import (
	"reflect"

	"github.com/google/uuid"
)

// Expr is a node of an expression tree.
//
// This is a sealed interface - only types in this package implement it.
// Translators can therefore switch exhaustively over:
//   - *Param: a free variable
//   - *Const: a literal value
//   - *Member: member access on another expression
//   - *Binary: comparison or boolean connective
//   - *Unary: boolean negation
//   - *Call: call of a Func
//   - *Lambda: a parameter bound over a body
//
// Every node reports its static type. Nodes are immutable once built.
type Expr interface {
	// Type returns the static type of the value the node produces.
	Type() reflect.Type

	// String renders the node, see Format.
	String() string

	exprNode() // Marker method - seals interface to this package
}

var (
	boolType = reflect.TypeFor[bool]()
	anyType  = reflect.TypeFor[any]()
)

// BoolType is the type of every predicate body.
func BoolType() reflect.Type { return boolType }

// AnyType is the type of dynamically typed nodes.
func AnyType() reflect.Type { return anyType }

// Param is a free variable placeholder. Every call to NewParam produces a
// distinct variable, even when names and types are equal.
type Param struct {
	id   uuid.UUID
	name string
	typ  reflect.Type
}

// NewParam creates a fresh parameter of the given type.
func NewParam(name string, typ reflect.Type) *Param {
	if typ == nil {
		typ = anyType
	}
	return &Param{
		id:   uuid.Must(uuid.NewV7()),
		name: name,
		typ:  typ,
	}
}

// ParamFor creates a fresh parameter of type T.
func ParamFor[T any](name string) *Param {
	return NewParam(name, reflect.TypeFor[T]())
}

// ID returns the identity of the parameter.
func (p *Param) ID() uuid.UUID { return p.id }

// Name returns the display name of the parameter.
func (p *Param) Name() string { return p.name }

func (p *Param) Type() reflect.Type { return p.typ }
func (p *Param) String() string     { return Format(p) }
func (*Param) exprNode()            {}

// Const is a literal value.
type Const struct {
	value any
	typ   reflect.Type
}

// Constant creates a literal of the given type. A nil typ is taken from the
// value itself.
func Constant(value any, typ reflect.Type) *Const {
	if typ == nil {
		typ = reflect.TypeOf(value)
		if typ == nil {
			typ = anyType
		}
	}
	return &Const{value: value, typ: typ}
}

// ConstantOf creates a literal of type T.
func ConstantOf[T any](value T) *Const {
	return &Const{value: value, typ: reflect.TypeFor[T]()}
}

// Value returns the literal value.
func (c *Const) Value() any { return c.value }

func (c *Const) Type() reflect.Type { return c.typ }
func (c *Const) String() string     { return Format(c) }
func (*Const) exprNode()            {}

// Getter reads a member from an already evaluated target value.
type Getter func(target any) any

// Member is access of a named member of the target's value.
//
// When a Getter is present it is used for evaluation and the name is purely
// symbolic. Without a Getter the member is resolved dynamically: struct field
// by name, map entry by key, dereferencing pointers on the way.
type Member struct {
	target Expr
	name   string
	typ    reflect.Type
	get    Getter
}

// NewMember creates a member access node. get may be nil.
func NewMember(target Expr, name string, typ reflect.Type, get Getter) (*Member, error) {
	if target == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "NewMember", "member %q has no target", name)
	}
	if name == "" {
		return nil, NewError(ErrCodeInvalidDefinition, "NewMember", "member name is empty")
	}
	if typ == nil {
		typ = anyType
	}
	return &Member{target: target, name: name, typ: typ, get: get}, nil
}

// Target returns the expression the member is read from.
func (m *Member) Target() Expr { return m.target }

// Name returns the member name.
func (m *Member) Name() string { return m.name }

// Getter returns the typed accessor, or nil for dynamic members.
func (m *Member) Getter() Getter { return m.get }

func (m *Member) Type() reflect.Type { return m.typ }
func (m *Member) String() string     { return Format(m) }
func (*Member) exprNode()            {}

// BinaryOp is the operator of a Binary node.
type BinaryOp int

const (
	OpEqual BinaryOp = iota
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpAnd
	OpOr
)

var binaryOpNames = map[BinaryOp]string{
	OpEqual:          "==",
	OpNotEqual:       "!=",
	OpLess:           "<",
	OpLessOrEqual:    "<=",
	OpGreater:        ">",
	OpGreaterOrEqual: ">=",
	OpAnd:            "&&",
	OpOr:             "||",
}

func (op BinaryOp) String() string {
	if s, ok := binaryOpNames[op]; ok {
		return s
	}
	return "?"
}

// ParseBinaryOp returns the operator for its textual form.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op, name := range binaryOpNames {
		if name == s {
			return op, true
		}
	}
	return 0, false
}

// IsLogical reports whether op is a boolean connective.
func (op BinaryOp) IsLogical() bool { return op == OpAnd || op == OpOr }

// IsOrdering reports whether op compares by order.
func (op BinaryOp) IsOrdering() bool { return op >= OpLess && op <= OpGreaterOrEqual }

// Binary is a comparison or a boolean connective.
type Binary struct {
	op    BinaryOp
	left  Expr
	right Expr
}

// NewBinary creates a binary node, checking operand types.
func NewBinary(op BinaryOp, left, right Expr) (*Binary, error) {
	if left == nil || right == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "NewBinary", "operator %s is missing an operand", op)
	}
	if _, ok := binaryOpNames[op]; !ok {
		return nil, NewError(ErrCodeInvalidDefinition, "NewBinary", "unknown operator %d", int(op))
	}

	if op.IsLogical() {
		if !isBoolType(left.Type()) || !isBoolType(right.Type()) {
			return nil, NewError(ErrCodeTypeMismatch, "NewBinary",
				"operator %s needs bool operands, got %s and %s", op, left.Type(), right.Type())
		}
		return &Binary{op: op, left: left, right: right}, nil
	}

	if !comparableTypes(left.Type(), right.Type()) {
		return nil, NewError(ErrCodeTypeMismatch, "NewBinary",
			"cannot compare %s with %s", left.Type(), right.Type())
	}
	if op.IsOrdering() && (!Orderable(left.Type()) || !Orderable(right.Type())) {
		return nil, NewError(ErrCodeUnsupportedCapability, "NewBinary",
			"operator %s needs ordered operands, got %s", op, left.Type())
	}
	return &Binary{op: op, left: left, right: right}, nil
}

// Op returns the operator.
func (b *Binary) Op() BinaryOp { return b.op }

// Left returns the left operand.
func (b *Binary) Left() Expr { return b.left }

// Right returns the right operand.
func (b *Binary) Right() Expr { return b.right }

func (b *Binary) Type() reflect.Type { return boolType }
func (b *Binary) String() string     { return Format(b) }
func (*Binary) exprNode()            {}

// Unary is boolean negation. It is the only unary operator.
type Unary struct {
	operand Expr
}

// NewNot negates a boolean expression.
func NewNot(operand Expr) (*Unary, error) {
	if operand == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "NewNot", "missing operand")
	}
	if !isBoolType(operand.Type()) {
		return nil, NewError(ErrCodeTypeMismatch, "NewNot", "cannot negate %s", operand.Type())
	}
	return &Unary{operand: operand}, nil
}

// Operand returns the negated expression.
func (u *Unary) Operand() Expr { return u.operand }

func (u *Unary) Type() reflect.Type { return boolType }
func (u *Unary) String() string     { return Format(u) }
func (*Unary) exprNode()            {}

// Call applies a Func to argument expressions.
type Call struct {
	fn   *Func
	args []Expr
}

// NewCall creates a call node, checking the argument count.
func NewCall(fn *Func, args ...Expr) (*Call, error) {
	if fn == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "NewCall", "missing function")
	}
	if len(args) != fn.Arity {
		return nil, NewError(ErrCodeInvalidDefinition, "NewCall",
			"%s takes %d argument(s), got %d", fn.Name, fn.Arity, len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, NewError(ErrCodeInvalidDefinition, "NewCall", "%s argument %d is nil", fn.Name, i)
		}
	}
	return &Call{fn: fn, args: append([]Expr(nil), args...)}, nil
}

// Func returns the called function.
func (c *Call) Func() *Func { return c.fn }

// Args returns a copy of the argument list.
func (c *Call) Args() []Expr { return append([]Expr(nil), c.args...) }

func (c *Call) Type() reflect.Type { return c.fn.Result }
func (c *Call) String() string     { return Format(c) }
func (*Call) exprNode()            {}

// Lambda binds a single parameter over a body.
type Lambda struct {
	param *Param
	body  Expr
}

// NewLambda creates a lambda. The body may only reference param, or
// parameters bound by lambdas nested inside it.
func NewLambda(param *Param, body Expr) (*Lambda, error) {
	if param == nil || body == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "NewLambda", "lambda needs a parameter and a body")
	}
	for _, p := range FreeParams(body) {
		if p != param {
			return nil, NewError(ErrCodeUnboundParameter, "NewLambda",
				"body references parameter %s which is not bound by this lambda", p.name)
		}
	}
	return &Lambda{param: param, body: body}, nil
}

// Param returns the bound parameter.
func (l *Lambda) Param() *Param { return l.param }

// Body returns the lambda body.
func (l *Lambda) Body() Expr { return l.body }

func (l *Lambda) Type() reflect.Type {
	return reflect.FuncOf([]reflect.Type{l.param.typ}, []reflect.Type{l.body.Type()}, false)
}
func (l *Lambda) String() string { return Format(l) }
func (*Lambda) exprNode()        {}

func isBoolType(t reflect.Type) bool {
	return t.Kind() == reflect.Bool || t == anyType
}

// comparableTypes reports whether values of a and b may be compared for
// equality or order. Interface types defer the check to evaluation.
func comparableTypes(a, b reflect.Type) bool {
	if a == b || a.Kind() == reflect.Interface || b.Kind() == reflect.Interface {
		return true
	}
	if a.AssignableTo(b) || b.AssignableTo(a) {
		return true
	}
	return kindClass(a.Kind()) != kindOther && kindClass(a.Kind()) == kindClass(b.Kind())
}

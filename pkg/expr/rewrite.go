package expr

// Children returns the direct operands of e in evaluation order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Member:
		return []Expr{n.target}
	case *Binary:
		return []Expr{n.left, n.right}
	case *Unary:
		return []Expr{n.operand}
	case *Call:
		return append([]Expr(nil), n.args...)
	case *Lambda:
		return []Expr{n.body}
	default:
		return nil
	}
}

// Walk visits e and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// FreeParams returns the parameters referenced by e that no lambda inside e
// binds, in order of first occurrence.
func FreeParams(e Expr) []*Param {
	var out []*Param
	seen := make(map[*Param]bool)
	var visit func(Expr, map[*Param]bool)
	visit = func(e Expr, bound map[*Param]bool) {
		switch n := e.(type) {
		case *Param:
			if !bound[n] && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		case *Lambda:
			inner := make(map[*Param]bool, len(bound)+1)
			for p := range bound {
				inner[p] = true
			}
			inner[n.param] = true
			visit(n.body, inner)
		default:
			for _, c := range Children(e) {
				visit(c, bound)
			}
		}
	}
	visit(e, map[*Param]bool{})
	return out
}

// Rewrite rebuilds e depth-first. fn is offered every node before its
// children; when it returns (replacement, true) the replacement is used and
// the node's children are not visited. Composite nodes are rebuilt only when
// one of their children changed, so untouched subtrees are shared with e.
func Rewrite(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if r, ok := fn(e); ok {
		return r
	}

	switch n := e.(type) {
	case *Member:
		t := Rewrite(n.target, fn)
		if t == n.target {
			return n
		}
		return &Member{target: t, name: n.name, typ: n.typ, get: n.get}

	case *Binary:
		l, r := Rewrite(n.left, fn), Rewrite(n.right, fn)
		if l == n.left && r == n.right {
			return n
		}
		return &Binary{op: n.op, left: l, right: r}

	case *Unary:
		o := Rewrite(n.operand, fn)
		if o == n.operand {
			return n
		}
		return &Unary{operand: o}

	case *Call:
		var args []Expr
		for i, a := range n.args {
			ra := Rewrite(a, fn)
			if ra != a && args == nil {
				args = append(make([]Expr, 0, len(n.args)), n.args[:i]...)
			}
			if args != nil {
				args = append(args, ra)
			}
		}
		if args == nil {
			return n
		}
		return &Call{fn: n.fn, args: args}

	case *Lambda:
		b := Rewrite(n.body, fn)
		if b == n.body {
			return n
		}
		return &Lambda{param: n.param, body: b}

	default:
		return e
	}
}

// Substitute replaces every free occurrence of p in body by with.
//
// with may be another parameter or any expression producing a value
// assignable to p's type, such as a member access path. The type check
// happens before anything is rebuilt.
func Substitute(body Expr, p *Param, with Expr) (Expr, error) {
	if body == nil || p == nil || with == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "Substitute", "missing operand")
	}
	if !with.Type().AssignableTo(p.typ) {
		return nil, NewError(ErrCodeTypeMismatch, "Substitute",
			"cannot substitute %s for parameter %s of type %s", with.Type(), p.name, p.typ)
	}
	return Rewrite(body, func(e Expr) (Expr, bool) {
		switch n := e.(type) {
		case *Param:
			if n == p {
				return with, true
			}
		case *Lambda:
			if n.param == p {
				return n, true
			}
		}
		return nil, false
	}), nil
}

// Rebind returns l's body with its parameter replaced by with.
func Rebind(l *Lambda, with Expr) (Expr, error) {
	if l == nil {
		return nil, NewError(ErrCodeInvalidDefinition, "Rebind", "missing lambda")
	}
	return Substitute(l.body, l.param, with)
}

package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Format renders e as text. The output is deterministic and is used for
// diagnostics and golden tests; it is not meant to be parsed.
//
//	t => ((t.Name == "ada") && strings.HasPrefix(t.Email, "a"))
//
// A lambda whose parameter name is taken by an enclosing lambda is shown
// with a numeric suffix, e.g. x => seq.AnyMatch(x.Tags, x1 => (x1 == "go")).
func Format(e Expr) string {
	f := &formatter{names: make(map[*Param]string), inScope: make(map[string]int)}
	f.write(e)
	return f.sb.String()
}

type formatter struct {
	sb      strings.Builder
	names   map[*Param]string
	inScope map[string]int
}

// lambda writes l with a display name for its parameter that no enclosing
// lambda uses.
func (f *formatter) lambda(l *Lambda) {
	p := l.param
	name := p.name
	for i := 1; f.inScope[name] > 0; i++ {
		name = p.name + strconv.Itoa(i)
	}
	prev, had := f.names[p]
	f.names[p] = name
	f.inScope[name]++

	f.sb.WriteString(name)
	f.sb.WriteString(" => ")
	f.write(l.body)

	f.inScope[name]--
	if had {
		f.names[p] = prev
	} else {
		delete(f.names, p)
	}
}

func (f *formatter) write(e Expr) {
	sb := &f.sb
	switch n := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Param:
		if name, ok := f.names[n]; ok {
			sb.WriteString(name)
		} else {
			sb.WriteString(n.name)
		}
	case *Const:
		sb.WriteString(FormatValue(n.value))
	case *Member:
		f.write(n.target)
		sb.WriteByte('.')
		sb.WriteString(n.name)
	case *Binary:
		sb.WriteByte('(')
		f.write(n.left)
		sb.WriteByte(' ')
		sb.WriteString(n.op.String())
		sb.WriteByte(' ')
		f.write(n.right)
		sb.WriteByte(')')
	case *Unary:
		sb.WriteByte('!')
		f.write(n.operand)
	case *Call:
		sb.WriteString(n.fn.Name)
		sb.WriteByte('(')
		for i, a := range n.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			f.write(a)
		}
		sb.WriteByte(')')
	case *Lambda:
		f.lambda(n)
	}
}

// FormatValue renders a literal value.
func FormatValue(v any) string {
	if IsNil(v) {
		return "nil"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range rv.Len() {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Pointer:
		return FormatValue(rv.Elem().Interface())
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

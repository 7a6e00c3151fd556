package querysql

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/codepb/fluentqueries/pkg/expr"
)

// Select describes a single-table statement filtered by a query expression.
type Select struct {
	// From is the table name.
	From string

	// Filter is the query expression. Its parameter is the row. Nil selects
	// every row.
	Filter *expr.Lambda

	// Columns lists the selected columns. Empty means *.
	Columns []string
}

// Compile converts a Select to parameterized SQL for SQLite.
// Returns (sql, params, error) tuple.
//
// Every statement ends with ORDER BY id COLLATE BINARY ASC so results are
// deterministic. Values are never interpolated into the SQL text.
func Compile(s Select) (string, []any, error) {
	if s.From == "" {
		return "", nil, expr.NewError(expr.ErrCodeInvalidDefinition, "querysql.Compile", "missing table name")
	}

	var whereClause string
	var params []any
	if s.Filter != nil {
		filterSQL, filterParams, err := CompileWhere(s.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY id COLLATE BINARY ASC",
		compileColumns(s.Columns),
		QuoteIdent(s.From),
		whereClause)

	return sql, params, nil
}

// CompileWhere converts a query expression to a WHERE clause fragment over
// the columns of one row.
//
// Members of the row parameter are columns. Deeper members and sequence
// columns are read from JSON text with json_extract and json_each, and
// element predicates become correlated EXISTS subqueries. Every fragment
// yields 0 or 1, never NULL, so negation agrees with in-memory evaluation.
//
// One difference remains: string tests on a NULL value are false in SQL
// where IsSatisfiedBy reports an evaluation failure.
func CompileWhere(l *expr.Lambda) (string, []any, error) {
	if l == nil {
		return "", nil, expr.NewError(expr.ErrCodeInvalidDefinition, "querysql.CompileWhere", "expression is nil")
	}
	c := &compiler{scope: map[*expr.Param]source{l.Param(): {row: true}}}
	sql, err := c.predicate(l.Body())
	if err != nil {
		return "", nil, err
	}
	return sql, c.params, nil
}

// Columns returns the row columns l reads, sorted. Members below a column
// and members of element parameters are not columns.
func Columns(l *expr.Lambda) []string {
	if l == nil {
		return nil
	}
	row := expr.Expr(l.Param())
	seen := make(map[string]bool)
	var cols []string
	expr.Walk(l.Body(), func(e expr.Expr) bool {
		if m, ok := e.(*expr.Member); ok && m.Target() == row && !seen[m.Name()] {
			seen[m.Name()] = true
			cols = append(cols, m.Name())
		}
		return true
	})
	slices.Sort(cols)
	return cols
}

// compileColumns converts the column list to a SELECT list.
func compileColumns(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = QuoteIdent(col)
	}
	return strings.Join(parts, ", ")
}

// whiteSpaceCodes lists the code points unicode.IsSpace accepts, as
// arguments to SQLite's char().
var whiteSpaceCodes = func() string {
	var codes []string
	for _, r := range unicode.White_Space.R16 {
		for c := int(r.Lo); c <= int(r.Hi); c += int(r.Stride) {
			codes = append(codes, strconv.Itoa(c))
		}
	}
	for _, r := range unicode.White_Space.R32 {
		for c := int(r.Lo); c <= int(r.Hi); c += int(r.Stride) {
			codes = append(codes, strconv.Itoa(c))
		}
	}
	return strings.Join(codes, ", ")
}()

// QuoteIdent quotes a table or column name for SQLite.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// source is what a parameter stands for: the row itself or the value column
// of a json_each alias.
type source struct {
	row   bool
	alias string
}

type compiler struct {
	scope   map[*expr.Param]source
	params  []any
	aliases int
}

func unsupported(format string, args ...any) error {
	return expr.NewError(expr.ErrCodeUnsupportedCapability, "querysql", format, args...)
}

func (c *compiler) bind(v any) (string, error) {
	p, err := sqlParam(v)
	if err != nil {
		return "", err
	}
	c.params = append(c.params, p)
	// Numbered so a fragment may repeat without repeating its arguments.
	return "?" + strconv.Itoa(len(c.params)), nil
}

// predicate compiles a bool expression to a fragment that is 0 or 1.
func (c *compiler) predicate(e expr.Expr) (string, error) {
	switch n := e.(type) {
	case *expr.Binary:
		return c.binary(n)

	case *expr.Unary:
		inner, err := c.predicate(n.Operand())
		if err != nil {
			return "", err
		}
		return "(NOT " + inner + ")", nil

	case *expr.Call:
		return c.call(n)

	case *expr.Const:
		b, ok := n.Value().(bool)
		if !ok {
			return "", unsupported("constant %s is not a predicate", expr.FormatValue(n.Value()))
		}
		if b {
			return "1", nil
		}
		return "0", nil

	default:
		v, err := c.value(e)
		if err != nil {
			return "", err
		}
		return "(COALESCE(" + v + ", 0) <> 0)", nil
	}
}

func (c *compiler) binary(b *expr.Binary) (string, error) {
	if b.Op().IsLogical() {
		left, err := c.predicate(b.Left())
		if err != nil {
			return "", err
		}
		right, err := c.predicate(b.Right())
		if err != nil {
			return "", err
		}
		kw := " AND "
		if b.Op() == expr.OpOr {
			kw = " OR "
		}
		return "(" + left + kw + right + ")", nil
	}

	left, err := c.value(b.Left())
	if err != nil {
		return "", err
	}
	right, err := c.value(b.Right())
	if err != nil {
		return "", err
	}

	switch b.Op() {
	case expr.OpEqual:
		// IS treats two NULLs as equal, like Equal does.
		return "(" + left + " IS " + right + ")", nil
	case expr.OpNotEqual:
		return "(" + left + " IS NOT " + right + ")", nil
	default:
		// An ordering against NULL is false.
		return "COALESCE(" + left + " " + b.Op().String() + " " + right + ", 0)", nil
	}
}

// value compiles a scalar expression.
func (c *compiler) value(e expr.Expr) (string, error) {
	switch n := e.(type) {
	case *expr.Const:
		if isSlice(n.Value()) {
			return "", unsupported("sequence constant %s used as a scalar", expr.FormatValue(n.Value()))
		}
		return c.bind(n.Value())

	case *expr.Param:
		src, ok := c.scope[n]
		if !ok {
			return "", expr.NewError(expr.ErrCodeUnboundParameter, "querysql", "parameter %s is not bound", n.Name())
		}
		if src.row {
			return "", unsupported("the row itself has no SQL value; select a member of %s", n.Name())
		}
		return src.alias + ".value", nil

	case *expr.Member:
		return c.member(n)

	case *expr.Binary, *expr.Unary, *expr.Call:
		return c.predicate(e)

	default:
		return "", unsupported("%s has no SQL form", expr.Format(e))
	}
}

// member resolves a member chain. A member of the row is a column; anything
// below it is a JSON path into that column.
func (c *compiler) member(m *expr.Member) (string, error) {
	var path []string
	var cur expr.Expr = m
	for {
		mm, ok := cur.(*expr.Member)
		if !ok {
			break
		}
		path = append(path, mm.Name())
		cur = mm.Target()
	}
	// path is innermost-last; reverse to root-first
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	p, ok := cur.(*expr.Param)
	if !ok {
		return "", unsupported("member %s is not rooted in a parameter", expr.Format(m))
	}
	src, ok := c.scope[p]
	if !ok {
		return "", expr.NewError(expr.ErrCodeUnboundParameter, "querysql", "parameter %s is not bound", p.Name())
	}

	var base string
	if src.row {
		base = QuoteIdent(path[0])
		path = path[1:]
	} else {
		base = src.alias + ".value"
	}
	if len(path) == 0 {
		return base, nil
	}

	var jp strings.Builder
	jp.WriteString("$")
	for _, seg := range path {
		jp.WriteString(".")
		jp.WriteString(strconv.Quote(seg))
	}
	ph, err := c.bind(jp.String())
	if err != nil {
		return "", err
	}
	return "json_extract(" + base + ", " + ph + ")", nil
}

func (c *compiler) call(call *expr.Call) (string, error) {
	fn := call.Func()
	if !fn.IsBuiltin() {
		return "", unsupported("function %s has no SQL form", fn.Name)
	}
	args := call.Args()

	switch fn.Name {
	case expr.FnIsNull:
		v, err := c.value(args[0])
		if err != nil {
			return "", err
		}
		return "(" + v + " IS NULL)", nil

	case expr.FnIn:
		return c.in(args[0], args[1])

	case expr.FnStringContains, expr.FnStringHasPrefix, expr.FnStringHasSuffix:
		s, err := c.value(args[0])
		if err != nil {
			return "", err
		}
		sub, ok := args[1].(*expr.Const)
		if !ok {
			return "", unsupported("%s needs a constant argument", fn.Name)
		}
		text, ok := stringValue(sub.Value())
		if !ok {
			return "", unsupported("%s needs a string argument", fn.Name)
		}
		pattern := globEscape(text)
		switch fn.Name {
		case expr.FnStringContains:
			pattern = "*" + pattern + "*"
		case expr.FnStringHasPrefix:
			pattern += "*"
		default:
			pattern = "*" + pattern
		}
		ph, err := c.bind(pattern)
		if err != nil {
			return "", err
		}
		// GLOB is case sensitive where LIKE is not
		return "COALESCE(" + s + " GLOB " + ph + ", 0)", nil

	case expr.FnIsNullOrEmpty:
		s, err := c.value(args[0])
		if err != nil {
			return "", err
		}
		return "(COALESCE(" + s + ", '') = '')", nil

	case expr.FnIsNullOrWhiteSpace:
		s, err := c.value(args[0])
		if err != nil {
			return "", err
		}
		return "(trim(COALESCE(" + s + ", ''), char(" + whiteSpaceCodes + ")) = '')", nil

	case expr.FnSeqAny:
		seq, err := c.sequence(args[0])
		if err != nil {
			return "", err
		}
		return "EXISTS (SELECT 1 FROM json_each(" + seq + "))", nil

	case expr.FnSeqContains:
		seq, err := c.sequence(args[0])
		if err != nil {
			return "", err
		}
		alias := c.alias()
		v, err := c.value(args[1])
		if err != nil {
			return "", err
		}
		return "EXISTS (SELECT 1 FROM json_each(" + seq + ") AS " + alias + " WHERE " + alias + ".value IS " + v + ")", nil

	case expr.FnSeqAnyMatch, expr.FnSeqAllMatch:
		return c.match(fn.Name == expr.FnSeqAllMatch, args[0], args[1])

	case expr.FnSeqEqual:
		seq, err := c.sequence(args[0])
		if err != nil {
			return "", err
		}
		other, ok := args[1].(*expr.Const)
		if !ok {
			return "", unsupported("%s needs a constant sequence", fn.Name)
		}
		data, err := jsonArray(other.Value())
		if err != nil {
			return "", err
		}
		ph, err := c.bind(data)
		if err != nil {
			return "", err
		}
		return "(COALESCE(json(" + seq + "), '[]') = json(" + ph + "))", nil

	default:
		return "", unsupported("function %s has no SQL form", fn.Name)
	}
}

// in compiles membership in a constant list. NULL members of the list match
// a NULL value.
func (c *compiler) in(v, list expr.Expr) (string, error) {
	lc, ok := list.(*expr.Const)
	if !ok {
		return "", unsupported("%s needs a constant list", expr.FnIn)
	}
	left, err := c.value(v)
	if err != nil {
		return "", err
	}

	rv := reflect.ValueOf(lc.Value())
	if !isSlice(lc.Value()) {
		return "", unsupported("%s needs a list, got %T", expr.FnIn, lc.Value())
	}

	var phs []string
	var null bool
	for i := range rv.Len() {
		elem := rv.Index(i).Interface()
		if expr.IsNil(elem) {
			null = true
			continue
		}
		ph, err := c.bind(elem)
		if err != nil {
			return "", err
		}
		phs = append(phs, ph)
	}

	var parts []string
	if len(phs) > 0 {
		parts = append(parts, "COALESCE("+left+" IN ("+strings.Join(phs, ", ")+"), 0)")
	}
	if null {
		parts = append(parts, "("+left+" IS NULL)")
	}
	switch len(parts) {
	case 0:
		return "0", nil
	case 1:
		return parts[0], nil
	default:
		return "(" + strings.Join(parts, " OR ") + ")", nil
	}
}

// match compiles AnyMatch and AllMatch over a JSON array.
func (c *compiler) match(all bool, seqExpr, fnExpr expr.Expr) (string, error) {
	seq, err := c.sequence(seqExpr)
	if err != nil {
		return "", err
	}
	l, ok := fnExpr.(*expr.Lambda)
	if !ok {
		return "", unsupported("element predicate %s is not a lambda", expr.Format(fnExpr))
	}

	alias := c.alias()
	c.scope[l.Param()] = source{alias: alias}
	body, err := c.predicate(l.Body())
	delete(c.scope, l.Param())
	if err != nil {
		return "", err
	}

	if all {
		return "NOT EXISTS (SELECT 1 FROM json_each(" + seq + ") AS " + alias + " WHERE NOT " + body + ")", nil
	}
	return "EXISTS (SELECT 1 FROM json_each(" + seq + ") AS " + alias + " WHERE " + body + ")", nil
}

// sequence compiles an expression holding a JSON array.
func (c *compiler) sequence(e expr.Expr) (string, error) {
	switch e.(type) {
	case *expr.Member, *expr.Param:
		return c.value(e)
	default:
		return "", unsupported("sequence %s is not a column", expr.Format(e))
	}
}

func (c *compiler) alias() string {
	c.aliases++
	return "e" + strconv.Itoa(c.aliases)
}

// sqlParam converts a constant to a driver value. Pointers are followed and
// named kinds are converted to their base types.
func sqlParam(v any) (any, error) {
	if expr.IsNil(v) {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > 1<<63-1 {
			return nil, unsupported("%d overflows a SQLite integer", rv.Uint())
		}
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return nil, unsupported("value of type %s cannot be used as a SQL parameter", rv.Type())
	}
}

func stringValue(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func isSlice(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array)
}

// jsonArray encodes a constant sequence the way sequence columns are stored.
// A nil slice is the empty array.
func jsonArray(v any) (string, error) {
	if !isSlice(v) {
		return "", unsupported("%T is not a sequence", v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode sequence: %w", err)
	}
	return string(data), nil
}

// globEscape quotes the GLOB metacharacters in s.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

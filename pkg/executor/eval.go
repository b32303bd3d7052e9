package executor

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// env is the evaluation context of one expression: the current row of a
// FROM frame, the rows of the current group when aggregates are allowed,
// and the enclosing query's env for correlated references.
type env struct {
	frame   *frame
	row     []Value
	group   [][]Value
	grouped bool
	output  *output
	outer   *env
	ctes    *cteScope
}

// output holds a row's projected values, consulted by ORDER BY for aliases.
type output struct {
	names  []string
	values []Value
}

func (x *executor) eval(e *env, expr core.Expr) (Value, error) {
	switch n := expr.(type) {
	case *core.Literal:
		return literalValue(n)
	case *core.ColumnRef:
		return x.column(e, n)
	case *core.ParenExpr:
		return x.eval(e, n.Expr)
	case *core.UnaryExpr:
		return x.evalUnary(e, n)
	case *core.BinaryExpr:
		return x.evalBinary(e, n)
	case *core.FuncCall:
		return x.evalFunc(e, n)
	case *core.CaseExpr:
		return x.evalCase(e, n)
	case *core.CastExpr:
		v, err := x.eval(e, n.Expr)
		if err != nil {
			return nil, err
		}
		return castValue(v, n.Type)
	case *core.InExpr:
		return x.evalIn(e, n)
	case *core.BetweenExpr:
		return x.evalBetween(e, n)
	case *core.IsNullExpr:
		v, err := x.eval(e, n.Expr)
		if err != nil {
			return nil, err
		}
		return (v == nil) != n.Not, nil
	case *core.IsBoolExpr:
		v, err := x.eval(e, n.Expr)
		if err != nil {
			return nil, err
		}
		t, err := truth(v, "IS TRUE/FALSE operand")
		if err != nil {
			return nil, err
		}
		return (t == triOf(n.Value)) != n.Not, nil
	case *core.LikeExpr:
		return x.evalLike(e, n)
	case *core.SubqueryExpr:
		return x.evalScalarSubquery(e, n)
	case *core.ExistsExpr:
		rel, err := x.query(n.Select, e, e.ctes)
		if err != nil {
			return nil, err
		}
		return (len(rel.Rows) > 0) != n.Not, nil
	case *core.ListExpr:
		list := make([]Value, len(n.Elements))
		for i, el := range n.Elements {
			v, err := x.eval(e, el)
			if err != nil {
				return nil, err
			}
			list[i] = v
		}
		return list, nil
	case *core.Placeholder:
		return nil, diag.Newf(diag.UnsupportedConstruct, "bind parameter %s", n.Text)
	case *core.StarExpr:
		return nil, diag.New(diag.UnsupportedConstruct, "* outside a select list")
	default:
		return nil, diag.Newf(diag.UnsupportedConstruct, "%s expression", expr.Kind())
	}
}

// predicate evaluates a WHERE/ON/HAVING condition.
func (x *executor) predicate(e *env, expr core.Expr, clause string) (bool, error) {
	v, err := x.eval(e, expr)
	if err != nil {
		return false, err
	}
	t, err := truth(v, clause)
	if err != nil {
		return false, err
	}
	return t == triTrue, nil
}

func literalValue(l *core.Literal) (Value, error) {
	switch l.Type {
	case core.LiteralNull:
		return nil, nil
	case core.LiteralBool:
		return l.Value == "true", nil
	case core.LiteralString:
		return l.Value, nil
	default:
		v, err := parseNumber(l.Value)
		if err != nil {
			return nil, diag.Newf(diag.EvaluationError, "invalid numeric literal %s", l.Value)
		}
		return v, nil
	}
}

// ---------- Column resolution ----------

func (x *executor) sameName(id core.Ident, name string) bool {
	if id.Quoted || x.d.Identifiers.Normalization == dialect.NormCaseSensitive {
		return id.Name == name
	}
	return strings.EqualFold(id.Name, name)
}

func (x *executor) column(e *env, ref *core.ColumnRef) (Value, error) {
	for cur := e; cur != nil; cur = cur.outer {
		idx, found, err := x.find(cur.frame, ref)
		if err != nil {
			return nil, err
		}
		if found {
			if cur.row == nil {
				return nil, nil
			}
			return cur.row[idx], nil
		}
		if cur.output != nil && ref.Table.IsZero() {
			for i, name := range cur.output.names {
				if x.sameName(ref.Column, name) {
					return cur.output.values[i], nil
				}
			}
		}
	}
	return nil, diag.Newf(diag.EvaluationError, "column %q not found", columnText(ref))
}

// find locates ref in f. found is false when no binding of f can provide
// the column, letting the caller try an enclosing query.
func (x *executor) find(f *frame, ref *core.ColumnRef) (int, bool, error) {
	if f == nil {
		return 0, false, nil
	}

	if !ref.Table.IsZero() {
		matched := false
		for _, b := range f.bindings {
			if b.name == "" || !x.sameName(ref.Table, b.name) {
				continue
			}
			matched = true
			for i, c := range b.columns {
				if x.sameName(ref.Column, c) {
					return b.offset + i, true, nil
				}
			}
		}
		if matched {
			return 0, false, diag.Newf(diag.EvaluationError, "column %q not found", columnText(ref))
		}
		return 0, false, nil
	}

	idx, count := 0, 0
	for _, b := range f.bindings {
		for i, c := range b.columns {
			if b.merged[i] || !x.sameName(ref.Column, c) {
				continue
			}
			idx = b.offset + i
			count++
		}
	}
	switch count {
	case 0:
		return 0, false, nil
	case 1:
		return idx, true, nil
	default:
		return 0, false, diag.Newf(diag.EvaluationError, "column reference %q is ambiguous", ref.Column.Name)
	}
}

func columnText(ref *core.ColumnRef) string {
	parts := make([]string, 0, 3)
	for _, id := range []core.Ident{ref.Schema, ref.Table, ref.Column} {
		if !id.IsZero() {
			parts = append(parts, id.Name)
		}
	}
	return strings.Join(parts, ".")
}

// ---------- Operators ----------

func (x *executor) evalUnary(e *env, n *core.UnaryExpr) (Value, error) {
	v, err := x.eval(e, n.Expr)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.NOT:
		t, err := truth(v, "NOT operand")
		if err != nil {
			return nil, err
		}
		return t.not().value(), nil
	case token.MINUS:
		switch val := v.(type) {
		case nil:
			return nil, nil
		case int64:
			if val == math.MinInt64 {
				return nil, diag.New(diag.EvaluationError, "integer overflow")
			}
			return -val, nil
		case float64:
			return -val, nil
		}
	case token.PLUS:
		switch v.(type) {
		case nil, int64, float64:
			return v, nil
		}
	default:
		return nil, diag.Newf(diag.UnsupportedConstruct, "unary operator %s", n.Op)
	}
	return nil, diag.Newf(diag.EvaluationError, "cannot apply unary %s to %s", n.Op, TypeName(v))
}

func (x *executor) evalBinary(e *env, n *core.BinaryExpr) (Value, error) {
	if n.Op == token.AND || n.Op == token.OR {
		return x.evalLogical(e, n)
	}

	l, err := x.eval(e, n.Left)
	if err != nil {
		return nil, err
	}
	r, err := x.eval(e, n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		if l == nil || r == nil {
			return nil, nil
		}
		c, err := compareValues(l, r)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.EQ:
			return c == 0, nil
		case token.NE:
			return c != 0, nil
		case token.LT:
			return c < 0, nil
		case token.GT:
			return c > 0, nil
		case token.LE:
			return c <= 0, nil
		default:
			return c >= 0, nil
		}
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT:
		return x.arith(n.Op, l, r)
	case token.DPIPE:
		return concatValues(l, r), nil
	default:
		return nil, diag.Newf(diag.UnsupportedConstruct, "operator %s", n.Op)
	}
}

func (x *executor) evalLogical(e *env, n *core.BinaryExpr) (Value, error) {
	l, err := x.eval(e, n.Left)
	if err != nil {
		return nil, err
	}
	lt, err := truth(l, n.Op.String()+" operand")
	if err != nil {
		return nil, err
	}
	if (n.Op == token.AND && lt == triFalse) || (n.Op == token.OR && lt == triTrue) {
		return lt.value(), nil
	}

	r, err := x.eval(e, n.Right)
	if err != nil {
		return nil, err
	}
	rt, err := truth(r, n.Op.String()+" operand")
	if err != nil {
		return nil, err
	}
	if n.Op == token.AND {
		return triAnd(lt, rt).value(), nil
	}
	return triOr(lt, rt).value(), nil
}

func concatValues(l, r Value) Value {
	if l == nil || r == nil {
		return nil
	}
	if ll, ok := l.([]Value); ok {
		if rl, ok := r.([]Value); ok {
			out := make([]Value, 0, len(ll)+len(rl))
			return append(append(out, ll...), rl...)
		}
	}
	return Text(l) + Text(r)
}

// arith applies +, -, *, / or %. Integer operands stay integers except for
// division in dialects without integer division.
func (x *executor) arith(op token.TokenType, l, r Value) (Value, error) {
	if l == nil || r == nil {
		return nil, nil
	}

	if a, ok := l.(int64); ok {
		if b, ok := r.(int64); ok {
			return x.intArith(op, a, b)
		}
	}

	a, lok := toFloat(l)
	b, rok := toFloat(r)
	if !lok || !rok {
		return nil, diag.Newf(diag.EvaluationError, "cannot apply %s to %s and %s", op, TypeName(l), TypeName(r))
	}
	switch op {
	case token.PLUS:
		return a + b, nil
	case token.MINUS:
		return a - b, nil
	case token.STAR:
		return a * b, nil
	case token.SLASH:
		if b == 0 {
			return x.divisionByZero()
		}
		return a / b, nil
	default:
		if b == 0 {
			return x.divisionByZero()
		}
		return math.Mod(a, b), nil
	}
}

func (x *executor) intArith(op token.TokenType, a, b int64) (Value, error) {
	overflow := diag.New(diag.EvaluationError, "integer overflow")
	switch op {
	case token.PLUS:
		s := a + b
		if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
			return nil, overflow
		}
		return s, nil
	case token.MINUS:
		s := a - b
		if (a >= 0 && b < 0 && s < 0) || (a < 0 && b > 0 && s >= 0) {
			return nil, overflow
		}
		return s, nil
	case token.STAR:
		if a == 0 || b == 0 {
			return int64(0), nil
		}
		s := a * b
		if s/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return nil, overflow
		}
		return s, nil
	case token.SLASH:
		if b == 0 {
			return x.divisionByZero()
		}
		if !x.d.IntegerDivision {
			return float64(a) / float64(b), nil
		}
		if a == math.MinInt64 && b == -1 {
			return nil, overflow
		}
		return a / b, nil
	default:
		if b == 0 {
			return x.divisionByZero()
		}
		return a % b, nil
	}
}

func (x *executor) divisionByZero() (Value, error) {
	if x.d.SafeDivision {
		return nil, nil
	}
	return nil, diag.New(diag.EvaluationError, "division by zero")
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// ---------- Predicates ----------

func (x *executor) evalCase(e *env, n *core.CaseExpr) (Value, error) {
	var operand Value
	if n.Operand != nil {
		v, err := x.eval(e, n.Operand)
		if err != nil {
			return nil, err
		}
		operand = v
	}

	for _, w := range n.Whens {
		cond, err := x.eval(e, w.Condition)
		if err != nil {
			return nil, err
		}
		var t tri
		if n.Operand != nil {
			t, err = equalTri(operand, cond)
		} else {
			t, err = truth(cond, "CASE WHEN condition")
		}
		if err != nil {
			return nil, err
		}
		if t == triTrue {
			return x.eval(e, w.Result)
		}
	}
	if n.Else != nil {
		return x.eval(e, n.Else)
	}
	return nil, nil
}

func (x *executor) evalIn(e *env, n *core.InExpr) (Value, error) {
	v, err := x.eval(e, n.Expr)
	if err != nil {
		return nil, err
	}

	var candidates []Value
	if n.Query != nil {
		rel, err := x.query(n.Query, e, e.ctes)
		if err != nil {
			return nil, err
		}
		if len(rel.Columns) != 1 {
			return nil, diag.Newf(diag.EvaluationError, "IN subquery must return one column, got %d", len(rel.Columns))
		}
		for _, row := range rel.Rows {
			candidates = append(candidates, row[0])
		}
	} else {
		for _, el := range n.Values {
			c, err := x.eval(e, el)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, c)
		}
	}

	result := triFalse
	for _, c := range candidates {
		t, err := equalTri(v, c)
		if err != nil {
			return nil, err
		}
		result = triOr(result, t)
		if result == triTrue {
			break
		}
	}
	if n.Not {
		result = result.not()
	}
	return result.value(), nil
}

func (x *executor) evalBetween(e *env, n *core.BetweenExpr) (Value, error) {
	v, err := x.eval(e, n.Expr)
	if err != nil {
		return nil, err
	}
	lo, err := x.eval(e, n.Low)
	if err != nil {
		return nil, err
	}
	hi, err := x.eval(e, n.High)
	if err != nil {
		return nil, err
	}

	bound := func(b Value, ok func(int) bool) (tri, error) {
		if v == nil || b == nil {
			return triUnknown, nil
		}
		c, err := compareValues(v, b)
		if err != nil {
			return triUnknown, err
		}
		return triOf(ok(c)), nil
	}
	lt, err := bound(lo, func(c int) bool { return c >= 0 })
	if err != nil {
		return nil, err
	}
	ht, err := bound(hi, func(c int) bool { return c <= 0 })
	if err != nil {
		return nil, err
	}
	result := triAnd(lt, ht)
	if n.Not {
		result = result.not()
	}
	return result.value(), nil
}

func (x *executor) evalLike(e *env, n *core.LikeExpr) (Value, error) {
	v, err := x.eval(e, n.Expr)
	if err != nil {
		return nil, err
	}
	p, err := x.eval(e, n.Pattern)
	if err != nil {
		return nil, err
	}
	if v == nil || p == nil {
		return nil, nil
	}
	s, ok := v.(string)
	pattern, pok := p.(string)
	if !ok || !pok {
		return nil, diag.Newf(diag.EvaluationError, "LIKE requires TEXT operands, got %s and %s", TypeName(v), TypeName(p))
	}
	if n.CaseInsensitive {
		s, pattern = strings.ToLower(s), strings.ToLower(pattern)
	}
	return likeMatch(s, pattern) != n.Not, nil
}

// likeMatch matches s against a LIKE pattern: % is any run, _ is one
// character and backslash escapes the next pattern character.
func likeMatch(s, pattern string) bool {
	for len(pattern) > 0 {
		r, size := utf8.DecodeRuneInString(pattern)
		switch r {
		case '%':
			rest := pattern[size:]
			for i := 0; i <= len(s); {
				if likeMatch(s[i:], rest) {
					return true
				}
				if i == len(s) {
					break
				}
				_, n := utf8.DecodeRuneInString(s[i:])
				i += n
			}
			return false
		case '_':
			if s == "" {
				return false
			}
			_, n := utf8.DecodeRuneInString(s)
			s, pattern = s[n:], pattern[size:]
			continue
		case '\\':
			if len(pattern) > size {
				pattern = pattern[size:]
				r, size = utf8.DecodeRuneInString(pattern)
			}
		}
		c, n := utf8.DecodeRuneInString(s)
		if s == "" || c != r {
			return false
		}
		s, pattern = s[n:], pattern[size:]
	}
	return s == ""
}

func (x *executor) evalScalarSubquery(e *env, n *core.SubqueryExpr) (Value, error) {
	rel, err := x.query(n.Select, e, e.ctes)
	if err != nil {
		return nil, err
	}
	if len(rel.Columns) != 1 {
		return nil, diag.Newf(diag.EvaluationError, "scalar subquery must return one column, got %d", len(rel.Columns))
	}
	switch len(rel.Rows) {
	case 0:
		return nil, nil
	case 1:
		return rel.Rows[0][0], nil
	default:
		return nil, diag.New(diag.EvaluationError, "more than one row returned by a subquery used as an expression")
	}
}

// ---------- CAST ----------

func castValue(v Value, t *core.DataType) (Value, error) {
	if v == nil {
		return nil, nil
	}
	name := t.Name
	fail := func() (Value, error) {
		return nil, diag.Newf(diag.EvaluationError, "cannot cast %s %q to %s", TypeName(v), Text(v), t.String())
	}

	switch name {
	case "TINYINT", "SMALLINT", "INT", "BIGINT", "HUGEINT", "UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT":
		switch x := v.(type) {
		case int64:
			return x, nil
		case float64:
			r := math.Round(x)
			if math.IsNaN(r) || r < math.MinInt64 || r >= math.MaxInt64 {
				return fail()
			}
			return int64(r), nil
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case string:
			s := strings.TrimSpace(x)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return castValue(f, t)
			}
		}
		return fail()
	case "FLOAT", "DOUBLE", "DECIMAL":
		switch x := v.(type) {
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		}
		return fail()
	case "TEXT", "VARCHAR", "CHAR":
		return Text(v), nil
	case "BOOLEAN":
		switch x := v.(type) {
		case bool:
			return x, nil
		case int64:
			return x != 0, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true", "t", "yes", "y", "1":
				return true, nil
			case "false", "f", "no", "n", "0":
				return false, nil
			}
		}
		return fail()
	default:
		return nil, diag.Newf(diag.UnsupportedConstruct, "CAST to %s", t.String())
	}
}

package optimizer

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/token"
)

var numericTypes = map[string]bool{
	"TINYINT": true, "SMALLINT": true, "INT": true, "BIGINT": true, "HUGEINT": true,
	"UTINYINT": true, "USMALLINT": true, "UINTEGER": true, "UBIGINT": true,
	"DECIMAL": true, "FLOAT": true, "DOUBLE": true,
}

// simplifyIdentities removes arithmetic identities (x + 0, x * 1, x - 0,
// x / 1) when x is a column the schema declares numeric. For other types
// the operator may coerce, so the expression is kept.
func simplifyIdentities(ctx *Context, stmt core.Stmt) bool {
	r := newResolver(stmt, ctx.Schema)
	changed := false
	for _, sc := range selectCores(stmt) {
		s := r.scopeOf(sc)
		numeric := func(e core.Expr) bool {
			c, ok := e.(*core.ColumnRef)
			if !ok {
				return false
			}
			src, ok := s.resolve(c)
			if !ok || src.table == nil {
				return false
			}
			col, ok := src.table.Column(c.Column.Name)
			return ok && isNumericType(ctx.Dialect, col.Type)
		}

		simplify := func(p *core.Expr) {
			if *p == nil {
				return
			}
			*p = rewriteExprShallow(*p, func(e core.Expr) core.Expr {
				out := simplifyIdentity(e, numeric)
				if out != e {
					changed = true
				}
				return out
			})
		}
		forEachCoreExpr(sc, simplify)
	}
	return changed
}

func simplifyIdentity(e core.Expr, numeric func(core.Expr) bool) core.Expr {
	b, ok := e.(*core.BinaryExpr)
	if !ok {
		return e
	}
	switch b.Op {
	case token.PLUS:
		if isNumberLiteral(b.Right, "0") && numeric(b.Left) {
			return b.Left
		}
		if isNumberLiteral(b.Left, "0") && numeric(b.Right) {
			return b.Right
		}
	case token.MINUS:
		if isNumberLiteral(b.Right, "0") && numeric(b.Left) {
			return b.Left
		}
	case token.STAR:
		if isNumberLiteral(b.Right, "1") && numeric(b.Left) {
			return b.Left
		}
		if isNumberLiteral(b.Left, "1") && numeric(b.Right) {
			return b.Right
		}
	case token.SLASH:
		if isNumberLiteral(b.Right, "1") && numeric(b.Left) {
			return b.Left
		}
	}
	return e
}

// isNumberLiteral reports whether e is an integer literal equal to value.
func isNumberLiteral(e core.Expr, value string) bool {
	lit, ok := e.(*core.Literal)
	if !ok || lit.Type != core.LiteralNumber {
		return false
	}
	n, ok := parseNumber(lit.Value)
	return ok && n.isInt && n.literal().Value == value
}

func isNumericType(d *dialect.Dialect, typ string) bool {
	name := strings.ToUpper(strings.TrimSpace(typ))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if numericTypes[name] {
		return true
	}
	return numericTypes[d.CanonicalType(name)]
}

// forEachCoreExpr calls fn with every expression slot owned by sc itself,
// excluding those of nested SELECTs.
func forEachCoreExpr(sc *core.SelectCore, fn func(*core.Expr)) {
	for _, item := range sc.Columns {
		fn(&item.Expr)
	}
	if sc.From != nil {
		for _, j := range fromJoins(sc.From) {
			fn(&j.Condition)
		}
	}
	fn(&sc.Where)
	for i := range sc.GroupBy {
		fn(&sc.GroupBy[i])
	}
	fn(&sc.Having)
	fn(&sc.Qualify)
	for _, o := range sc.OrderBy {
		fn(&o.Expr)
	}
}

// rewriteExprShallow is rewriteExpr without descending into subqueries.
func rewriteExprShallow(e core.Expr, fn rewriteFunc) core.Expr {
	if e == nil {
		return nil
	}
	switch e.(type) {
	case *core.SubqueryExpr, *core.ExistsExpr:
		return fn(e)
	}
	exprs, nodes := slots(e)
	for _, p := range exprs {
		*p = rewriteExprShallow(*p, fn)
	}
	for _, n := range nodes {
		// Window specs belong to the expression; nested SELECTs do not.
		if spec, ok := n.(*core.WindowSpec); ok {
			inner, _ := slots(spec)
			for _, p := range inner {
				*p = rewriteExprShallow(*p, fn)
			}
		}
	}
	return fn(e)
}

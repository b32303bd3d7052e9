package optimizer

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// simplifyBooleans removes boolean identities, double negation and
// redundant parentheses, and drops WHERE TRUE.
func simplifyBooleans(_ *Context, stmt core.Stmt) bool {
	changed := false
	rewrite(stmt, func(e core.Expr) core.Expr {
		out := simplifyBoolean(e)
		if out != e {
			changed = true
		}
		return out
	})

	drop := func(p *core.Expr) {
		if *p != nil && core.IsTrue(*p) {
			*p = nil
			changed = true
		}
	}
	for _, sc := range selectCores(stmt) {
		drop(&sc.Where)
	}
	core.Walk(stmt, func(n core.Node) bool {
		switch s := n.(type) {
		case *core.UpdateStmt:
			drop(&s.Where)
		case *core.DeleteStmt:
			drop(&s.Where)
		}
		return true
	})
	return changed
}

func simplifyBoolean(e core.Expr) core.Expr {
	switch x := e.(type) {
	case *core.ParenExpr:
		switch x.Expr.(type) {
		case *core.Literal, *core.ColumnRef, *core.ParenExpr, *core.FuncCall, *core.Placeholder:
			return x.Expr
		}
	case *core.UnaryExpr:
		if x.Op != token.NOT {
			return e
		}
		inner := x.Expr
		if p, ok := inner.(*core.ParenExpr); ok {
			inner = p.Expr
		}
		if u, ok := inner.(*core.UnaryExpr); ok && u.Op == token.NOT {
			return u.Expr
		}
	case *core.BinaryExpr:
		switch x.Op {
		case token.AND:
			switch {
			case core.IsTrue(x.Right):
				return unparen(x.Left)
			case core.IsTrue(x.Left):
				return unparen(x.Right)
			case core.IsFalse(x.Left) || core.IsFalse(x.Right):
				return core.NewBool(false)
			}
		case token.OR:
			switch {
			case core.IsFalse(x.Right):
				return unparen(x.Left)
			case core.IsFalse(x.Left):
				return unparen(x.Right)
			case core.IsTrue(x.Left) || core.IsTrue(x.Right):
				return core.NewBool(true)
			}
		}
	}
	return e
}

// unparen strips grouping parentheses. The printer adds back those that
// precedence requires.
func unparen(e core.Expr) core.Expr {
	for {
		p, ok := e.(*core.ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

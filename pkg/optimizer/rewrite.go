package optimizer

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// rewriteFunc returns a replacement for e, or e itself when unchanged.
type rewriteFunc func(e core.Expr) core.Expr

// rewrite applies fn bottom-up to every expression reachable from n,
// subqueries included, replacing expressions in place.
func rewrite(n core.Node, fn rewriteFunc) {
	exprs, nodes := slots(n)
	for _, p := range exprs {
		*p = rewriteExpr(*p, fn)
	}
	for _, c := range nodes {
		rewrite(c, fn)
	}
}

func rewriteExpr(e core.Expr, fn rewriteFunc) core.Expr {
	if e == nil {
		return nil
	}
	rewrite(e, fn)
	return fn(e)
}

// slots returns pointers to the expression fields of n and its non-expression
// children.
func slots(n core.Node) (exprs []*core.Expr, nodes []core.Node) {
	expr := func(p *core.Expr) {
		if *p != nil {
			exprs = append(exprs, p)
		}
	}
	list := func(es []core.Expr) {
		for i := range es {
			expr(&es[i])
		}
	}
	node := func(c core.Node, ok bool) {
		if ok {
			nodes = append(nodes, c)
		}
	}
	orderBy := func(items []*core.OrderByItem) {
		for _, o := range items {
			expr(&o.Expr)
		}
	}

	switch n := n.(type) {
	case *core.SelectStmt:
		node(n.With, n.With != nil)
		node(n.Body, n.Body != nil)
		orderBy(n.OrderBy)
		expr(&n.Limit)
		expr(&n.Offset)
	case *core.InsertStmt:
		for _, row := range n.Values {
			list(row)
		}
		node(n.Select, n.Select != nil)
	case *core.UpdateStmt:
		for _, a := range n.Set {
			expr(&a.Value)
		}
		node(n.From, n.From != nil)
		expr(&n.Where)
	case *core.DeleteStmt:
		expr(&n.Where)
	case *core.CreateTableStmt:
		for _, c := range n.Columns {
			expr(&c.Default)
		}
		node(n.As, n.As != nil)
	case *core.WithClause:
		for _, c := range n.CTEs {
			node(c.Select, c.Select != nil)
		}
	case *core.SelectBody:
		node(n.Left, n.Left != nil)
		node(n.Right, n.Right != nil)
	case *core.SelectCore:
		for _, item := range n.Columns {
			expr(&item.Expr)
		}
		node(n.From, n.From != nil)
		expr(&n.Where)
		list(n.GroupBy)
		expr(&n.Having)
		for _, w := range n.Windows {
			node(w.Spec, w.Spec != nil)
		}
		expr(&n.Qualify)
		orderBy(n.OrderBy)
		expr(&n.Limit)
		expr(&n.Offset)
	case *core.FromClause:
		node(n.Source, n.Source != nil)
		for _, j := range n.Joins {
			node(j.Right, j.Right != nil)
			expr(&j.Condition)
		}
	case *core.JoinedTable:
		node(n.Source, n.Source != nil)
		for _, j := range n.Joins {
			node(j.Right, j.Right != nil)
			expr(&j.Condition)
		}
	case *core.DerivedTable:
		node(n.Select, n.Select != nil)
	case *core.WindowSpec:
		list(n.PartitionBy)
		orderBy(n.OrderBy)
		if n.Frame != nil {
			for _, b := range []*core.FrameBound{n.Frame.Start, n.Frame.End} {
				if b != nil {
					expr(&b.Offset)
				}
			}
		}
	case *core.BinaryExpr:
		expr(&n.Left)
		expr(&n.Right)
	case *core.UnaryExpr:
		expr(&n.Expr)
	case *core.FuncCall:
		list(n.Args)
		expr(&n.Filter)
		node(n.Window, n.Window != nil)
	case *core.CaseExpr:
		expr(&n.Operand)
		for _, w := range n.Whens {
			expr(&w.Condition)
			expr(&w.Result)
		}
		expr(&n.Else)
	case *core.CastExpr:
		expr(&n.Expr)
	case *core.InExpr:
		expr(&n.Expr)
		list(n.Values)
		node(n.Query, n.Query != nil)
	case *core.BetweenExpr:
		expr(&n.Expr)
		expr(&n.Low)
		expr(&n.High)
	case *core.IsNullExpr:
		expr(&n.Expr)
	case *core.IsBoolExpr:
		expr(&n.Expr)
	case *core.LikeExpr:
		expr(&n.Expr)
		expr(&n.Pattern)
	case *core.ParenExpr:
		expr(&n.Expr)
	case *core.SubqueryExpr:
		node(n.Select, n.Select != nil)
	case *core.ExistsExpr:
		node(n.Select, n.Select != nil)
	case *core.ListExpr:
		list(n.Elements)
	}
	return exprs, nodes
}

// selectCores returns every SELECT core beneath n, outermost first.
func selectCores(n core.Node) []*core.SelectCore {
	var cores []*core.SelectCore
	core.Walk(n, func(n core.Node) bool {
		if sc, ok := n.(*core.SelectCore); ok {
			cores = append(cores, sc)
		}
		return true
	})
	return cores
}

// conjuncts splits an AND chain into its operands.
func conjuncts(e core.Expr) []core.Expr {
	if b, ok := e.(*core.BinaryExpr); ok && b.Op == token.AND {
		return append(conjuncts(b.Left), conjuncts(b.Right)...)
	}
	if e == nil {
		return nil
	}
	return []core.Expr{e}
}

// and joins expressions into a left-deep AND chain. It returns nil for an
// empty list.
func and(es ...core.Expr) core.Expr {
	var out core.Expr
	for _, e := range es {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = &core.BinaryExpr{Left: out, Op: token.AND, Right: e}
	}
	return out
}

// columnRefs returns the column references in e, not descending into
// subqueries.
func columnRefs(e core.Expr) []*core.ColumnRef {
	var refs []*core.ColumnRef
	core.WalkExprs(e, func(x core.Expr) bool {
		if c, ok := x.(*core.ColumnRef); ok {
			refs = append(refs, c)
		}
		return true
	})
	return refs
}

// hasSubquery reports whether e contains a nested SELECT.
func hasSubquery(e core.Expr) bool {
	found := false
	core.WalkExprs(e, func(x core.Expr) bool {
		switch x.(type) {
		case *core.SubqueryExpr, *core.ExistsExpr:
			found = true
		case *core.InExpr:
			if x.(*core.InExpr).Query != nil {
				found = true
			}
		}
		return !found
	})
	return found
}

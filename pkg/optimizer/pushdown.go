package optimizer

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
)

// pushdownPredicates moves WHERE conjuncts that only reference one derived
// table into that table's own WHERE, rewriting the column references to
// the derived table's projection expressions.
func pushdownPredicates(ctx *Context, stmt core.Stmt) bool {
	changed := false
	for _, sc := range selectCores(stmt) {
		if pushdownCore(ctx, sc) {
			changed = true
		}
	}
	return changed
}

func pushdownCore(ctx *Context, sc *core.SelectCore) bool {
	if sc.Where == nil || sc.From == nil || !innerJoinsOnly(sc.From) {
		return false
	}

	targets := make(map[string]*core.DerivedTable)
	for _, ref := range fromRefs(sc.From) {
		if dt, ok := ref.(*core.DerivedTable); ok && !dt.Alias.IsZero() && !dt.Lateral && pushable(ctx, dt.Select) {
			targets[strings.ToLower(dt.Alias.Name)] = dt
		}
	}
	if len(targets) == 0 {
		return false
	}

	var kept []core.Expr
	changed := false
	for _, c := range conjuncts(sc.Where) {
		dt := pushTarget(c, targets)
		if dt == nil {
			kept = append(kept, c)
			continue
		}
		inner := dt.Select.Body.Left
		moved, ok := substituteProjections(c, inner)
		if !ok {
			kept = append(kept, c)
			continue
		}
		inner.Where = and(inner.Where, moved)
		changed = true
	}
	if changed {
		sc.Where = and(kept...)
	}
	return changed
}

// innerJoinsOnly reports whether no join of from can null-extend a side.
func innerJoinsOnly(from *core.FromClause) bool {
	for _, j := range fromJoins(from) {
		switch j.Type {
		case core.JoinPlain, core.JoinInner, core.JoinCross, core.JoinComma:
		default:
			return false
		}
	}
	return true
}

// fromRefs returns the tables and subqueries of from in order, looking
// through nested joins.
func fromRefs(from *core.FromClause) []core.TableRef {
	return appendRefs(nil, from.Source, from.Joins)
}

func appendRefs(out []core.TableRef, source core.TableRef, joins []*core.Join) []core.TableRef {
	out = appendRef(out, source)
	for _, j := range joins {
		out = appendRef(out, j.Right)
	}
	return out
}

func appendRef(out []core.TableRef, ref core.TableRef) []core.TableRef {
	if jt, ok := ref.(*core.JoinedTable); ok {
		return appendRefs(out, jt.Source, jt.Joins)
	}
	return append(out, ref)
}

// fromJoins returns every join of from, including nested ones.
func fromJoins(from *core.FromClause) []*core.Join {
	var out []*core.Join
	var walk func(joins []*core.Join)
	walk = func(joins []*core.Join) {
		for _, j := range joins {
			if jt, ok := j.Right.(*core.JoinedTable); ok {
				walk(jt.Joins)
			}
			out = append(out, j)
		}
	}
	if jt, ok := from.Source.(*core.JoinedTable); ok {
		walk(jt.Joins)
	}
	walk(from.Joins)
	return out
}

// pushable reports whether filtering a derived table's rows before its
// projection is equivalent to filtering them after.
func pushable(ctx *Context, s *core.SelectStmt) bool {
	if s == nil || s.IsSetOperation() || s.With != nil || len(s.OrderBy) > 0 || s.Limit != nil || s.Offset != nil {
		return false
	}
	sc := s.Body.Left
	if sc == nil || sc.From == nil || sc.Distinct || len(sc.GroupBy) > 0 || sc.Having != nil ||
		sc.Qualify != nil || len(sc.Windows) > 0 || sc.Limit != nil || sc.Offset != nil {
		return false
	}
	for _, item := range sc.Columns {
		if containsAggregateOrWindow(ctx, item.Expr) {
			return false
		}
	}
	return true
}

func containsAggregateOrWindow(ctx *Context, e core.Expr) bool {
	found := false
	core.WalkExprs(e, func(x core.Expr) bool {
		if f, ok := x.(*core.FuncCall); ok && (f.Window != nil || ctx.Dialect.IsAggregate(f.Name)) {
			found = true
		}
		return !found
	})
	return found
}

// pushTarget returns the derived table every column of c is qualified
// with, or nil.
func pushTarget(c core.Expr, targets map[string]*core.DerivedTable) *core.DerivedTable {
	if hasSubquery(c) {
		return nil
	}
	refs := columnRefs(c)
	if len(refs) == 0 {
		return nil
	}
	var target *core.DerivedTable
	for _, ref := range refs {
		if ref.Table.IsZero() || !ref.Schema.IsZero() {
			return nil
		}
		dt, ok := targets[strings.ToLower(ref.Table.Name)]
		if !ok || (target != nil && dt != target) {
			return nil
		}
		target = dt
	}
	return target
}

// substituteProjections returns a copy of c with each column reference
// replaced by the inner projection it names.
func substituteProjections(c core.Expr, inner *core.SelectCore) (core.Expr, bool) {
	projections := make(map[string]core.Expr)
	for _, item := range inner.Columns {
		if _, star := item.Expr.(*core.StarExpr); star {
			return nil, false
		}
		if name := strings.ToLower(item.OutputName()); name != "" {
			if _, dup := projections[name]; dup {
				return nil, false
			}
			projections[name] = item.Expr
		}
	}

	ok := true
	out := rewriteExprShallow(core.CloneExpr(c), func(e core.Expr) core.Expr {
		ref, isRef := e.(*core.ColumnRef)
		if !isRef {
			return e
		}
		proj, found := projections[strings.ToLower(ref.Column.Name)]
		if !found {
			ok = false
			return e
		}
		return core.CloneExpr(proj)
	})
	return out, ok
}

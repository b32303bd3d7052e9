package optimizer

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
)

// pruneProjections removes projections of derived tables and CTEs that no
// outer query reads. It only acts when every reader refers to the relation's
// columns by qualified name, so the set of used columns is known.
func pruneProjections(_ *Context, stmt core.Stmt) bool {
	changed := false

	// Derived tables are read only by the core whose FROM holds them.
	for _, sc := range selectCores(stmt) {
		if sc.From == nil {
			continue
		}
		for _, ref := range fromRefs(sc.From) {
			dt, ok := ref.(*core.DerivedTable)
			if !ok || dt.Alias.IsZero() {
				continue
			}
			used, ok := usedColumns(sc, dt.Alias.Name)
			if ok && pruneSelect(dt.Select, used) {
				changed = true
			}
		}
	}

	core.Walk(stmt, func(n core.Node) bool {
		with, ok := n.(*core.WithClause)
		if !ok || with.Recursive {
			return true
		}
		for _, cte := range with.CTEs {
			if len(cte.Columns) > 0 {
				continue
			}
			used, ok := cteUsedColumns(stmt, cte)
			if ok && pruneSelect(cte.Select, used) {
				changed = true
			}
		}
		return true
	})
	return changed
}

// usedColumns returns the columns of name that sc reads. It reports false
// when sc has a reference that might read name without saying so.
func usedColumns(sc *core.SelectCore, name string) (map[string]bool, bool) {
	if sc.From != nil {
		for _, j := range fromJoins(sc.From) {
			if j.Natural || len(j.Using) > 0 {
				return nil, false
			}
		}
	}

	used := make(map[string]bool)
	ok := true
	core.Walk(sc, func(n core.Node) bool {
		switch x := n.(type) {
		case *core.DerivedTable:
			// The derived table's own body is not a reader of its alias.
			return x.Lateral
		case *core.StarExpr:
			if x.Table.IsZero() || strings.EqualFold(x.Table.Name, name) {
				ok = false
			}
		case *core.ColumnRef:
			switch {
			case x.Table.IsZero():
				ok = false
			case strings.EqualFold(x.Table.Name, name):
				used[strings.ToLower(x.Column.Name)] = true
			}
		}
		return ok
	})
	return used, ok
}

// cteUsedColumns unions the columns read by every core that references cte.
func cteUsedColumns(stmt core.Stmt, cte *core.CTE) (map[string]bool, bool) {
	refersTo := func(t *core.TableName) bool {
		return t.Schema.IsZero() && strings.EqualFold(t.Name.Name, cte.Name.Name)
	}

	total := 0
	core.Walk(stmt, func(n core.Node) bool {
		if t, ok := n.(*core.TableName); ok && refersTo(t) {
			total++
		}
		return true
	})

	used := make(map[string]bool)
	ok := true
	seen := 0
	for _, sc := range selectCores(stmt) {
		if sc.From == nil {
			continue
		}
		for _, ref := range fromRefs(sc.From) {
			t, isTable := ref.(*core.TableName)
			if !isTable || !refersTo(t) {
				continue
			}
			seen++
			cols, found := usedColumns(sc, t.RefName())
			if !found {
				ok = false
				continue
			}
			for c := range cols {
				used[c] = true
			}
		}
	}
	// Readers outside a SELECT core, such as UPDATE ... FROM, are not analyzed.
	return used, ok && seen > 0 && seen == total
}

// pruneSelect drops unused projections of a plain SELECT, keeping at least
// one, and reports whether any were dropped.
func pruneSelect(s *core.SelectStmt, used map[string]bool) bool {
	if s == nil || s.IsSetOperation() || s.Body == nil || s.Body.Left == nil {
		return false
	}
	sc := s.Body.Left
	if sc.Distinct || hasOrdinals(sc.GroupBy) || hasOrdinalItems(sc.OrderBy) || hasOrdinalItems(s.OrderBy) {
		return false
	}

	referencedInside := make(map[string]bool)
	inner := []core.Expr{sc.Having, sc.Qualify}
	inner = append(inner, sc.GroupBy...)
	for _, o := range sc.OrderBy {
		inner = append(inner, o.Expr)
	}
	for _, o := range s.OrderBy {
		inner = append(inner, o.Expr)
	}
	for _, e := range inner {
		for _, c := range columnRefs(e) {
			if c.Table.IsZero() {
				referencedInside[strings.ToLower(c.Column.Name)] = true
			}
		}
	}

	var kept []*core.SelectItem
	for _, item := range sc.Columns {
		if _, star := item.Expr.(*core.StarExpr); star {
			return false
		}
		name := strings.ToLower(item.OutputName())
		if name == "" || used[name] || referencedInside[name] {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		kept = sc.Columns[:1]
	}
	if len(kept) == len(sc.Columns) {
		return false
	}
	sc.Columns = kept
	return true
}

func hasOrdinals(es []core.Expr) bool {
	for _, e := range es {
		if lit, ok := e.(*core.Literal); ok && lit.Type == core.LiteralNumber {
			return true
		}
	}
	return false
}

func hasOrdinalItems(items []*core.OrderByItem) bool {
	for _, o := range items {
		if hasOrdinals([]core.Expr{o.Expr}) {
			return true
		}
	}
	return false
}

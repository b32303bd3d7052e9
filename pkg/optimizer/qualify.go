package optimizer

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
)

// qualifyColumns prefixes unqualified column references with the single
// source that has the column, and expands stars once every source's
// columns are known.
func qualifyColumns(ctx *Context, stmt core.Stmt) bool {
	r := newResolver(stmt, ctx.Schema)
	changed := false
	for _, sc := range selectCores(stmt) {
		s := r.scopeOf(sc)
		if expandStars(sc, s) {
			changed = true
		}
		if qualifyCore(sc, s) {
			changed = true
		}
	}
	return changed
}

func qualifyCore(sc *core.SelectCore, s *scope) bool {
	aliases := make(map[string]bool)
	for _, item := range sc.Columns {
		if !item.Alias.IsZero() {
			aliases[strings.ToLower(item.Alias.Name)] = true
		}
	}

	changed := false
	qualify := func(e core.Expr, allowAlias bool) {
		for _, c := range columnRefs(e) {
			if !c.Table.IsZero() {
				continue
			}
			if allowAlias && aliases[strings.ToLower(c.Column.Name)] {
				continue
			}
			src, ok := s.resolve(c)
			if !ok || src.name == "" {
				continue
			}
			c.Table = core.NewIdent(src.name)
			changed = true
		}
	}

	for _, item := range sc.Columns {
		qualify(item.Expr, false)
	}
	if sc.From != nil {
		for _, j := range fromJoins(sc.From) {
			qualify(j.Condition, false)
		}
	}
	qualify(sc.Where, false)
	for _, g := range sc.GroupBy {
		qualify(g, true)
	}
	qualify(sc.Having, true)
	qualify(sc.Qualify, true)
	for _, o := range sc.OrderBy {
		qualify(o.Expr, true)
	}
	return changed
}

// expandStars replaces * and t.* projections with the columns they stand
// for. Joins with USING or NATURAL merge columns, so they are left alone.
func expandStars(sc *core.SelectCore, s *scope) bool {
	if sc.From != nil {
		for _, j := range fromJoins(sc.From) {
			if j.Natural || len(j.Using) > 0 {
				return false
			}
		}
	}

	changed := false
	var columns []*core.SelectItem
	for _, item := range sc.Columns {
		star, ok := item.Expr.(*core.StarExpr)
		if !ok {
			columns = append(columns, item)
			continue
		}

		var sources []*source
		if star.Table.IsZero() {
			if !s.complete() {
				columns = append(columns, item)
				continue
			}
			sources = s.sources
		} else {
			src, found := s.lookup(star.Table.Name)
			if !found || src.columns == nil {
				columns = append(columns, item)
				continue
			}
			sources = []*source{src}
		}

		for _, src := range sources {
			for _, name := range src.columns {
				columns = append(columns, &core.SelectItem{Expr: &core.ColumnRef{
					Table:  core.NewIdent(src.name),
					Column: core.NewIdent(name),
				}})
			}
		}
		changed = true
	}
	if changed {
		sc.Columns = columns
	}
	return changed
}

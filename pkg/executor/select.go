package executor

import (
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/format"
)

// binding is one FROM item visible to expressions.
type binding struct {
	name    string
	columns []string
	offset  int
	// merged marks columns folded into a left-hand column by USING or
	// NATURAL. They are hidden from * and unqualified lookup.
	merged map[int]bool
}

// frame is the layout of the combined rows a FROM clause produces.
type frame struct {
	bindings []*binding
	width    int
}

func (f *frame) add(name string, columns []string) *binding {
	b := &binding{name: name, columns: columns, offset: f.width, merged: map[int]bool{}}
	f.bindings = append(f.bindings, b)
	f.width += len(columns)
	return b
}

// concat returns the layout of f followed by the layout of r.
func (f *frame) concat(r *frame) *frame {
	next := &frame{bindings: slices.Clone(f.bindings), width: f.width + r.width}
	for _, b := range r.bindings {
		nb := *b
		nb.offset += f.width
		nb.merged = maps.Clone(b.merged)
		next.bindings = append(next.bindings, &nb)
	}
	return next
}

// hide marks the column at frame position pos as merged.
func (f *frame) hide(pos int) {
	for _, b := range f.bindings {
		if pos >= b.offset && pos < b.offset+len(b.columns) {
			b.merged[pos-b.offset] = true
			return
		}
	}
}

// cteScope holds the CTEs visible to a query.
type cteScope struct {
	name   string
	rel    *Relation
	parent *cteScope
}

func (x *executor) lookupCTE(s *cteScope, t *core.TableName) (*Relation, bool) {
	if !t.Schema.IsZero() {
		return nil, false
	}
	for ; s != nil; s = s.parent {
		if x.sameName(t.Name, s.name) {
			return s.rel, true
		}
	}
	return nil, false
}

// query evaluates a SELECT statement. outer is the enclosing row for
// correlated references and may be nil.
func (x *executor) query(s *core.SelectStmt, outer *env, ctes *cteScope) (*Relation, error) {
	if s == nil || s.Body == nil {
		return nil, diag.New(diag.UnsupportedConstruct, "empty SELECT")
	}

	if s.With != nil {
		var err error
		if ctes, err = x.with(s.With, outer, ctes); err != nil {
			return nil, err
		}
	}

	rel, err := x.body(s.Body, outer, ctes)
	if err != nil {
		return nil, err
	}

	if len(s.OrderBy) > 0 {
		if rel, err = x.sortRelation(rel, s.OrderBy, outer, ctes); err != nil {
			return nil, err
		}
	}
	return x.limit(rel, s.Limit, s.Offset, outer, ctes)
}

// body evaluates a chain of set operations left to right.
func (x *executor) body(b *core.SelectBody, outer *env, ctes *cteScope) (*Relation, error) {
	acc, err := x.core(b.Left, outer, ctes)
	if err != nil {
		return nil, err
	}
	for cur := b; cur.Op != core.SetOpNone && cur.Right != nil; cur = cur.Right {
		rhs, err := x.core(cur.Right.Left, outer, ctes)
		if err != nil {
			return nil, err
		}
		if acc, err = setOperation(cur.Op, cur.All, acc, rhs); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (x *executor) with(w *core.WithClause, outer *env, ctes *cteScope) (*cteScope, error) {
	for _, cte := range w.CTEs {
		var (
			rel *Relation
			err error
		)
		if w.Recursive && x.selfReferencing(cte) {
			rel, err = x.recursiveCTE(cte, outer, ctes)
		} else {
			rel, err = x.query(cte.Select, outer, ctes)
		}
		if err != nil {
			return nil, err
		}
		if rel, err = renameColumns(rel, cte); err != nil {
			return nil, err
		}
		ctes = &cteScope{name: cte.Name.Name, rel: rel, parent: ctes}
	}
	return ctes, nil
}

func renameColumns(rel *Relation, cte *core.CTE) (*Relation, error) {
	if len(cte.Columns) == 0 {
		return rel, nil
	}
	if len(cte.Columns) != len(rel.Columns) {
		return nil, diag.Newf(diag.EvaluationError, "CTE %s has %d columns but its query returns %d",
			cte.Name.Name, len(cte.Columns), len(rel.Columns))
	}
	return &Relation{Columns: UniqueNames(core.Names(cte.Columns)), Rows: rel.Rows}, nil
}

func (x *executor) selfReferencing(cte *core.CTE) bool {
	found := false
	core.Walk(cte.Select, func(n core.Node) bool {
		if t, ok := n.(*core.TableName); ok && t.Schema.IsZero() && x.sameName(t.Name, cte.Name.Name) {
			found = true
		}
		return !found
	})
	return found
}

// recursiveCTE evaluates anchor UNION [ALL] step, feeding each step the
// rows the previous one produced until no new rows appear.
func (x *executor) recursiveCTE(cte *core.CTE, outer *env, ctes *cteScope) (*Relation, error) {
	s := cte.Select
	if s.Body == nil || s.Body.Op != core.SetOpUnion || s.Body.Right == nil || s.Body.Right.Op != core.SetOpNone ||
		len(s.OrderBy) > 0 || s.Limit != nil || s.Offset != nil || s.With != nil {
		return nil, diag.Newf(diag.UnsupportedConstruct, "recursive CTE %s must be anchor UNION [ALL] recursive step", cte.Name.Name)
	}

	anchor, err := x.core(s.Body.Left, outer, ctes)
	if err != nil {
		return nil, err
	}
	if anchor, err = renameColumns(anchor, cte); err != nil {
		return nil, err
	}

	result := &Relation{Columns: anchor.Columns}
	seen := make(map[string]bool)
	add := func(rows [][]Value) [][]Value {
		var fresh [][]Value
		for _, row := range rows {
			if !s.Body.All {
				k := rowKey(row)
				if seen[k] {
					continue
				}
				seen[k] = true
			}
			fresh = append(fresh, row)
		}
		result.Rows = append(result.Rows, fresh...)
		return fresh
	}

	working := add(anchor.Rows)
	for i := 0; len(working) > 0; i++ {
		if i >= x.maxRecursion {
			return nil, diag.Newf(diag.EvaluationError, "recursive CTE %s exceeded %d iterations", cte.Name.Name, x.maxRecursion)
		}
		scope := &cteScope{name: cte.Name.Name, rel: &Relation{Columns: result.Columns, Rows: working}, parent: ctes}
		step, err := x.core(s.Body.Right.Left, outer, scope)
		if err != nil {
			return nil, err
		}
		if len(step.Columns) != len(result.Columns) {
			return nil, diag.Newf(diag.EvaluationError, "recursive CTE %s: step returns %d columns, anchor %d",
				cte.Name.Name, len(step.Columns), len(result.Columns))
		}
		working = add(step.Rows)
	}
	return result, nil
}

// ---------- SELECT core ----------

// projection is one output column of a core.
type projection struct {
	name string
	expr core.Expr
	// index is set for star-expanded columns, which read the frame directly.
	index int
	star  bool
}

func (x *executor) core(sc *core.SelectCore, outer *env, ctes *cteScope) (*Relation, error) {
	if sc == nil {
		return nil, diag.New(diag.UnsupportedConstruct, "empty SELECT")
	}
	if sc.Qualify != nil {
		return nil, diag.New(diag.UnsupportedConstruct, "QUALIFY clause")
	}
	if len(sc.Windows) > 0 {
		return nil, diag.New(diag.UnsupportedConstruct, "WINDOW clause")
	}

	f, rows, err := x.from(sc.From, outer, ctes)
	if err != nil {
		return nil, err
	}

	if sc.Where != nil {
		kept := rows[:0:0]
		e := &env{frame: f, outer: outer, ctes: ctes}
		for _, row := range rows {
			e.row = row
			ok, err := x.predicate(e, sc.Where, "WHERE condition")
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	projs, err := x.projections(sc, f)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(projs))
	for i, p := range projs {
		names[i] = p.name
	}

	// Each output row carries the env it was projected in, for ORDER BY.
	type produced struct {
		vals []Value
		env  *env
	}
	var out []produced

	project := func(e *env) ([]Value, error) {
		vals := make([]Value, len(projs))
		for i, p := range projs {
			if p.star {
				if e.row != nil {
					vals[i] = e.row[p.index]
				}
				continue
			}
			v, err := x.eval(e, p.expr)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil
	}

	if x.aggregated(sc) {
		groups, err := x.groups(sc, f, rows, projs, outer, ctes)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			e := &env{frame: f, group: g, grouped: true, outer: outer, ctes: ctes}
			if len(g) > 0 {
				e.row = g[0]
			}
			if sc.Having != nil {
				ok, err := x.predicate(e, sc.Having, "HAVING condition")
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
			}
			vals, err := project(e)
			if err != nil {
				return nil, err
			}
			out = append(out, produced{vals, e})
		}
	} else {
		for _, row := range rows {
			e := &env{frame: f, row: row, outer: outer, ctes: ctes}
			vals, err := project(e)
			if err != nil {
				return nil, err
			}
			out = append(out, produced{vals, e})
		}
	}

	if sc.Distinct {
		seen := make(map[string]bool, len(out))
		kept := out[:0:0]
		for _, p := range out {
			k := rowKey(p.vals)
			if !seen[k] {
				seen[k] = true
				kept = append(kept, p)
			}
		}
		out = kept
	}

	if len(sc.OrderBy) > 0 {
		keyed := make([]sortRow, len(out))
		for i, p := range out {
			p.env.output = &output{names: names, values: p.vals}
			keys, err := x.orderKeys(p.env, sc.OrderBy, names, p.vals)
			if err != nil {
				return nil, err
			}
			keyed[i] = sortRow{vals: p.vals, keys: keys}
		}
		sorted, err := x.sortRows(keyed, sc.OrderBy)
		if err != nil {
			return nil, err
		}
		out = out[:0]
		for _, r := range sorted {
			out = append(out, produced{vals: r})
		}
	}

	rel := &Relation{Columns: UniqueNames(names), Rows: make([][]Value, len(out))}
	for i, p := range out {
		rel.Rows[i] = p.vals
	}
	return x.limit(rel, sc.Limit, sc.Offset, outer, ctes)
}

// aggregated reports whether a core groups its rows.
func (x *executor) aggregated(sc *core.SelectCore) bool {
	if len(sc.GroupBy) > 0 || sc.Having != nil {
		return true
	}
	for _, item := range sc.Columns {
		if x.hasAggregate(item.Expr) {
			return true
		}
	}
	for _, o := range sc.OrderBy {
		if x.hasAggregate(o.Expr) {
			return true
		}
	}
	return false
}

// projections expands stars and names every output column.
func (x *executor) projections(sc *core.SelectCore, f *frame) ([]projection, error) {
	var projs []projection
	for _, item := range sc.Columns {
		star, ok := item.Expr.(*core.StarExpr)
		if !ok {
			name := item.OutputName()
			if name == "" {
				name = format.RenderExpr(item.Expr, x.d, format.Options{})
			}
			projs = append(projs, projection{name: name, expr: item.Expr})
			continue
		}

		matched := false
		for _, b := range f.bindings {
			if !star.Table.IsZero() && (b.name == "" || !x.sameName(star.Table, b.name)) {
				continue
			}
			matched = true
			for i, c := range b.columns {
				if star.Table.IsZero() && b.merged[i] {
					continue
				}
				projs = append(projs, projection{name: c, index: b.offset + i, star: true})
			}
		}
		if !star.Table.IsZero() && !matched {
			return nil, diag.Newf(diag.EvaluationError, "table %q not found in FROM", star.Table.Name)
		}
		if star.Table.IsZero() && len(f.bindings) == 0 {
			return nil, diag.New(diag.EvaluationError, "SELECT * requires a FROM clause")
		}
	}
	return projs, nil
}

// groups partitions rows by the GROUP BY key. Without GROUP BY all rows
// form a single group, even when there are none.
func (x *executor) groups(sc *core.SelectCore, f *frame, rows [][]Value, projs []projection, outer *env, ctes *cteScope) ([][][]Value, error) {
	if len(sc.GroupBy) == 0 {
		return [][][]Value{rows}, nil
	}

	exprs := make([]core.Expr, len(sc.GroupBy))
	for i, g := range sc.GroupBy {
		resolved, err := x.groupExpr(g, f, sc.Columns, projs)
		if err != nil {
			return nil, err
		}
		exprs[i] = resolved
	}

	var groups [][][]Value
	index := make(map[string]int)
	e := &env{frame: f, outer: outer, ctes: ctes}
	key := make([]Value, len(exprs))
	for _, row := range rows {
		e.row = row
		for i, g := range exprs {
			v, err := x.eval(e, g)
			if err != nil {
				return nil, err
			}
			key[i] = v
		}
		k := rowKey(key)
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], row)
	}
	return groups, nil
}

// groupExpr resolves ordinals and output aliases in GROUP BY. A name that
// is also a source column refers to the source column.
func (x *executor) groupExpr(g core.Expr, f *frame, items []*core.SelectItem, projs []projection) (core.Expr, error) {
	if n, ok := ordinal(g); ok {
		if n < 1 || n > len(projs) {
			return nil, diag.Newf(diag.EvaluationError, "GROUP BY position %d is not in select list", n)
		}
		p := projs[n-1]
		if p.star {
			return nil, diag.New(diag.UnsupportedConstruct, "GROUP BY position of a * column")
		}
		return p.expr, nil
	}

	ref, ok := g.(*core.ColumnRef)
	if !ok || !ref.Table.IsZero() {
		return g, nil
	}
	if _, found, err := x.find(f, ref); found || err != nil {
		return g, nil
	}
	for _, item := range items {
		if !item.Alias.IsZero() && x.sameName(ref.Column, item.Alias.Name) {
			if x.hasAggregate(item.Expr) {
				return nil, diag.Newf(diag.EvaluationError, "cannot GROUP BY aggregate %s", item.Alias.Name)
			}
			return item.Expr, nil
		}
	}
	return g, nil
}

func ordinal(e core.Expr) (int, bool) {
	lit, ok := e.(*core.Literal)
	if !ok || lit.Type != core.LiteralNumber {
		return 0, false
	}
	n, err := strconv.Atoi(lit.Value)
	if err != nil {
		return 0, false
	}
	return n, true
}

// UniqueNames suffixes repeated column names: id, id_1, id_2.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for _, n := range names {
		used[n] = true
	}
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if !seen[n] {
			seen[n] = true
			out[i] = n
			continue
		}
		for k := 1; ; k++ {
			candidate := n + "_" + strconv.Itoa(k)
			if !used[candidate] {
				used[candidate] = true
				out[i] = candidate
				break
			}
		}
	}
	return out
}

// ---------- LIMIT / OFFSET ----------

func (x *executor) limit(rel *Relation, limit, offset core.Expr, outer *env, ctes *cteScope) (*Relation, error) {
	if limit == nil && offset == nil {
		return rel, nil
	}
	rows := rel.Rows
	if offset != nil {
		n, err := x.count(offset, "OFFSET", outer, ctes)
		if err != nil {
			return nil, err
		}
		rows = rows[min(n, len(rows)):]
	}
	if limit != nil {
		n, err := x.count(limit, "LIMIT", outer, ctes)
		if err != nil {
			return nil, err
		}
		rows = rows[:min(n, len(rows))]
	}
	return &Relation{Columns: rel.Columns, Rows: rows}, nil
}

func (x *executor) count(e core.Expr, clause string, outer *env, ctes *cteScope) (int, error) {
	v, err := x.eval(&env{outer: outer, ctes: ctes}, e)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok || n < 0 {
		return 0, diag.Newf(diag.EvaluationError, "%s must be a non-negative integer, got %s", clause, Text(v))
	}
	return int(min(n, math.MaxInt)), nil
}

package executor

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
)

// from evaluates a FROM clause into a frame and its combined rows. A
// missing FROM yields one empty row.
func (x *executor) from(fc *core.FromClause, outer *env, ctes *cteScope) (*frame, [][]Value, error) {
	if fc == nil {
		return &frame{}, [][]Value{{}}, nil
	}
	return x.joined(fc.Source, fc.Joins, outer, ctes)
}

// joined evaluates a FROM item followed by the joins applied to it.
func (x *executor) joined(src core.TableRef, joins []*core.Join, outer *env, ctes *cteScope) (*frame, [][]Value, error) {
	if dt, ok := src.(*core.DerivedTable); ok && dt.Lateral {
		return nil, nil, diag.New(diag.UnsupportedConstruct, "LATERAL as the first FROM item")
	}
	f, rows, err := x.item(src, outer, ctes)
	if err != nil {
		return nil, nil, err
	}
	for _, j := range joins {
		if f, rows, err = x.join(f, rows, j, outer, ctes); err != nil {
			return nil, nil, err
		}
	}
	return f, rows, nil
}

// item evaluates a non-lateral FROM item into a frame of its own. A
// nested join is evaluated completely before anything is joined to it.
func (x *executor) item(ref core.TableRef, outer *env, ctes *cteScope) (*frame, [][]Value, error) {
	if jt, ok := ref.(*core.JoinedTable); ok {
		return x.joined(jt.Source, jt.Joins, outer, ctes)
	}
	name, rel, err := x.source(ref, outer, ctes)
	if err != nil {
		return nil, nil, err
	}
	f := &frame{}
	f.add(name, rel.Columns)
	return f, rel.Rows, nil
}

// source evaluates a single table or subquery.
func (x *executor) source(ref core.TableRef, outer *env, ctes *cteScope) (string, *Relation, error) {
	switch t := ref.(type) {
	case *core.TableName:
		if rel, ok := x.lookupCTE(ctes, t); ok {
			return t.RefName(), rel, nil
		}
		rel, ok := x.tables.lookup(t.Qualified(), x.tableMatch(t))
		if !ok && !t.Schema.IsZero() {
			rel, ok = x.tables.lookup(t.Name.Name, x.tableMatch(t))
		}
		if !ok {
			return "", nil, diag.Newf(diag.EvaluationError, "table %q not found", t.Qualified())
		}
		return t.RefName(), rel, nil
	case *core.DerivedTable:
		rel, err := x.query(t.Select, outer, ctes)
		if err != nil {
			return "", nil, err
		}
		return t.Alias.Name, rel, nil
	default:
		return "", nil, diag.Newf(diag.UnsupportedConstruct, "%s in FROM", ref.Kind())
	}
}

func (x *executor) tableMatch(t *core.TableName) func(a, b string) bool {
	return func(key, _ string) bool {
		return x.sameName(t.Name, key) || x.sameName(core.Ident{Name: t.Qualified(), Quoted: t.Name.Quoted}, key)
	}
}

// join combines the rows so far with one more FROM item using nested loops.
func (x *executor) join(left *frame, leftRows [][]Value, j *core.Join, outer *env, ctes *cteScope) (*frame, [][]Value, error) {
	joinType := j.EffectiveType()
	dt, lateral := j.Right.(*core.DerivedTable)
	lateral = lateral && dt.Lateral
	if lateral && (joinType == core.JoinRight || joinType == core.JoinFull) {
		return nil, nil, diag.Newf(diag.UnsupportedConstruct, "%s JOIN LATERAL", joinType)
	}

	// rightFor returns the right-hand rows for one left row.
	var (
		right    *frame
		static   [][]Value
		rightFor func(row []Value) ([][]Value, error)
		err      error
	)
	if lateral {
		rightFor = func(row []Value) ([][]Value, error) {
			rel, err := x.query(dt.Select, &env{frame: left, row: row, outer: outer, ctes: ctes}, ctes)
			if err != nil {
				return nil, err
			}
			return rel.Rows, nil
		}
		// Columns come from evaluating against an all-NULL left row.
		rel, err := x.query(dt.Select, &env{frame: left, row: make([]Value, left.width), outer: outer, ctes: ctes}, ctes)
		if err != nil {
			return nil, nil, err
		}
		right = &frame{}
		right.add(dt.Alias.Name, rel.Columns)
		static = rel.Rows
	} else {
		if right, static, err = x.item(j.Right, outer, ctes); err != nil {
			return nil, nil, err
		}
		rightFor = func([]Value) ([][]Value, error) { return static, nil }
	}

	f := left.concat(right)

	pairs, err := x.joinPairs(left, right, j)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range pairs {
		f.hide(p[1])
	}

	e := &env{frame: f, outer: outer, ctes: ctes}
	matches := func(row []Value) (bool, error) {
		for _, p := range pairs {
			t, err := equalTri(row[p[0]], row[p[1]])
			if err != nil || t != triTrue {
				return false, err
			}
		}
		if j.Condition == nil {
			return true, nil
		}
		e.row = row
		return x.predicate(e, j.Condition, "join condition")
	}

	var rows [][]Value
	var rightMatched []bool
	if !lateral {
		rightMatched = make([]bool, len(static))
	}
	for _, l := range leftRows {
		rightRows := static
		if lateral {
			if rightRows, err = rightFor(l); err != nil {
				return nil, nil, err
			}
		}
		matched := false
		for ri, r := range rightRows {
			row := make([]Value, 0, f.width)
			row = append(append(row, l...), r...)
			ok, err := matches(row)
			if err != nil {
				return nil, nil, err
			}
			if ok {
				matched = true
				if rightMatched != nil {
					rightMatched[ri] = true
				}
				rows = append(rows, row)
			}
		}
		if !matched && (joinType == core.JoinLeft || joinType == core.JoinFull) {
			row := make([]Value, f.width)
			copy(row, l)
			rows = append(rows, row)
		}
	}

	if joinType == core.JoinRight || joinType == core.JoinFull {
		for ri, r := range static {
			if rightMatched[ri] {
				continue
			}
			row := make([]Value, f.width)
			copy(row[left.width:], r)
			// The merged left column takes the right value, as USING coalesces.
			for _, p := range pairs {
				row[p[0]] = row[p[1]]
			}
			rows = append(rows, row)
		}
	}
	return f, rows, nil
}

// joinPairs returns the positions, in the combined frame, of the columns
// equated by USING or NATURAL.
func (x *executor) joinPairs(left, right *frame, j *core.Join) ([][2]int, error) {
	var pairs [][2]int
	switch {
	case len(j.Using) > 0:
		for _, id := range j.Using {
			ref := &core.ColumnRef{Column: id}
			l, found, err := x.find(left, ref)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, diag.Newf(diag.EvaluationError, "USING column %q not found on the left side of the join", id.Name)
			}
			r, found, err := x.find(right, ref)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, diag.Newf(diag.EvaluationError, "USING column %q not found on the right side of the join", id.Name)
			}
			pairs = append(pairs, [2]int{l, left.width + r})
		}
	case j.Natural:
		for _, b := range right.bindings {
			for i, c := range b.columns {
				if b.merged[i] {
					continue
				}
				l, found, err := x.find(left, &core.ColumnRef{Column: core.Ident{Name: c, Quoted: true}})
				if err != nil {
					return nil, err
				}
				if found {
					pairs = append(pairs, [2]int{l, left.width + b.offset + i})
				}
			}
		}
	}
	return pairs, nil
}

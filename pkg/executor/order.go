package executor

import (
	"slices"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
)

// sortRow pairs an output row with its evaluated ORDER BY keys.
type sortRow struct {
	vals []Value
	keys []Value
}

// orderKeys evaluates the ORDER BY items for one output row. Ordinals and
// bare output names read the projected value; anything else is evaluated
// against the row's env.
func (x *executor) orderKeys(e *env, items []*core.OrderByItem, names []string, vals []Value) ([]Value, error) {
	keys := make([]Value, len(items))
	for i, item := range items {
		if n, ok := ordinal(item.Expr); ok {
			if n < 1 || n > len(vals) {
				return nil, diag.Newf(diag.EvaluationError, "ORDER BY position %d is not in select list", n)
			}
			keys[i] = vals[n-1]
			continue
		}
		if ref, ok := item.Expr.(*core.ColumnRef); ok && ref.Table.IsZero() {
			if idx := x.outputIndex(ref.Column, names); idx >= 0 {
				keys[i] = vals[idx]
				continue
			}
		}
		v, err := x.eval(e, item.Expr)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}
	return keys, nil
}

func (x *executor) outputIndex(id core.Ident, names []string) int {
	idx := -1
	for i, name := range names {
		if x.sameName(id, name) {
			if idx >= 0 {
				// Duplicate output names fall back to source resolution.
				return -1
			}
			idx = i
		}
	}
	return idx
}

// sortRows stable-sorts rows by their keys. NULL placement follows the
// item's NULLS FIRST/LAST or, when absent, the dialect default.
func (x *executor) sortRows(rows []sortRow, items []*core.OrderByItem) ([][]Value, error) {
	var sortErr error
	slices.SortStableFunc(rows, func(a, b sortRow) int {
		if sortErr != nil {
			return 0
		}
		for i, item := range items {
			c, err := x.compareKeys(a.keys[i], b.keys[i], item)
			if err != nil {
				sortErr = err
				return 0
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	if sortErr != nil {
		return nil, sortErr
	}

	out := make([][]Value, len(rows))
	for i, r := range rows {
		out[i] = r.vals
	}
	return out, nil
}

func (x *executor) compareKeys(a, b Value, item *core.OrderByItem) (int, error) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, nil
		}
		nullsFirst := x.d.NullsFirst(item.Desc)
		if item.NullsFirst != nil {
			nullsFirst = *item.NullsFirst
		}
		if (a == nil) == nullsFirst {
			return -1, nil
		}
		return 1, nil
	}
	c, err := compareValues(a, b)
	if err != nil {
		return 0, err
	}
	if item.Desc {
		c = -c
	}
	return c, nil
}

// sortRelation orders the result of a set operation. Only output columns
// are visible to its keys.
func (x *executor) sortRelation(rel *Relation, items []*core.OrderByItem, outer *env, ctes *cteScope) (*Relation, error) {
	f := &frame{}
	f.add("", rel.Columns)

	keyed := make([]sortRow, len(rel.Rows))
	for i, row := range rel.Rows {
		e := &env{frame: f, row: row, outer: outer, ctes: ctes}
		keys, err := x.orderKeys(e, items, rel.Columns, row)
		if err != nil {
			return nil, err
		}
		keyed[i] = sortRow{vals: row, keys: keys}
	}
	rows, err := x.sortRows(keyed, items)
	if err != nil {
		return nil, err
	}
	return &Relation{Columns: rel.Columns, Rows: rows}, nil
}

// setOperation combines two relations. Without ALL the result holds
// distinct rows; with ALL, INTERSECT keeps the smaller multiplicity and
// EXCEPT subtracts multiplicities. Column names come from the left side.
func setOperation(op core.SetOpType, all bool, left, right *Relation) (*Relation, error) {
	if len(left.Columns) != len(right.Columns) {
		return nil, diag.Newf(diag.EvaluationError, "each %s query must have the same number of columns: %d and %d",
			op, len(left.Columns), len(right.Columns))
	}

	out := &Relation{Columns: left.Columns}
	switch op {
	case core.SetOpUnion:
		rows := make([][]Value, 0, len(left.Rows)+len(right.Rows))
		rows = append(append(rows, left.Rows...), right.Rows...)
		if !all {
			rows = distinctRows(rows)
		}
		out.Rows = rows
	case core.SetOpIntersect, core.SetOpExcept:
		counts := make(map[string]int, len(right.Rows))
		for _, row := range right.Rows {
			counts[rowKey(row)]++
		}
		emitted := make(map[string]bool)
		for _, row := range left.Rows {
			k := rowKey(row)
			inRight := counts[k] > 0
			if all {
				if inRight {
					counts[k]--
				}
				if inRight == (op == core.SetOpIntersect) {
					out.Rows = append(out.Rows, row)
				}
				continue
			}
			if emitted[k] || inRight != (op == core.SetOpIntersect) {
				continue
			}
			emitted[k] = true
			out.Rows = append(out.Rows, row)
		}
	default:
		return nil, diag.Newf(diag.UnsupportedConstruct, "set operation %s", op)
	}
	return out, nil
}

func distinctRows(rows [][]Value) [][]Value {
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		k := rowKey(row)
		if !seen[k] {
			seen[k] = true
			out = append(out, row)
		}
	}
	return out
}

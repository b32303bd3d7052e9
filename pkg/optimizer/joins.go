package optimizer

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// convertCommaJoins turns comma joins into INNER JOIN ... ON when the WHERE
// clause holds an equality between the joined relation and one on its left.
func convertCommaJoins(_ *Context, stmt core.Stmt) bool {
	changed := false
	for _, sc := range selectCores(stmt) {
		if sc.From == nil || sc.Where == nil {
			continue
		}

		left := map[string]bool{strings.ToLower(core.TableRefName(sc.From.Source)): true}
		for _, j := range sc.From.Joins {
			right := strings.ToLower(core.TableRefName(j.Right))
			if j.Type == core.JoinComma && right != "" {
				var on, kept []core.Expr
				for _, c := range conjuncts(sc.Where) {
					if _, _, ok := equiKey(c, left, right); ok {
						on = append(on, c)
					} else {
						kept = append(kept, c)
					}
				}
				if len(on) > 0 {
					j.Type = core.JoinInner
					j.Condition = and(on...)
					sc.Where = and(kept...)
					changed = true
				}
			}
			left[right] = true
		}
	}
	return changed
}

// equiKey matches l.x = r.y where l is one of left and r is right, in
// either order, and returns the left and right column references.
func equiKey(e core.Expr, left map[string]bool, right string) (*core.ColumnRef, *core.ColumnRef, bool) {
	b, ok := e.(*core.BinaryExpr)
	if !ok || b.Op != token.EQ {
		return nil, nil, false
	}
	l, lok := b.Left.(*core.ColumnRef)
	r, rok := b.Right.(*core.ColumnRef)
	if !lok || !rok || l.Table.IsZero() || r.Table.IsZero() {
		return nil, nil, false
	}
	lt, rt := strings.ToLower(l.Table.Name), strings.ToLower(r.Table.Name)
	switch {
	case left[lt] && rt == right && lt != right:
		return l, r, true
	case left[rt] && lt == right && rt != right:
		return r, l, true
	}
	return nil, nil, false
}

// joinHints suggests a strategy for every join: hash for equi-joins,
// nested loop otherwise. Joins nested on the right of another join are
// hinted before it, as they run first.
func joinHints(stmt core.Stmt) []JoinHint {
	var hints []JoinHint
	for _, sc := range selectCores(stmt) {
		if sc.From != nil {
			hints = appendJoinHints(hints, sc.From.Source, sc.From.Joins)
		}
	}
	return hints
}

func appendJoinHints(hints []JoinHint, source core.TableRef, joins []*core.Join) []JoinHint {
	if jt, ok := source.(*core.JoinedTable); ok {
		hints = appendJoinHints(hints, jt.Source, jt.Joins)
	}
	prev := leadingName(source)
	left := make(map[string]bool)
	for _, ref := range appendRef(nil, source) {
		left[strings.ToLower(core.TableRefName(ref))] = true
	}

	for _, j := range joins {
		if jt, ok := j.Right.(*core.JoinedTable); ok {
			hints = appendJoinHints(hints, jt.Source, jt.Joins)
		}
		rightName := leadingName(j.Right)
		rights := appendRef(nil, j.Right)
		hint := JoinHint{Left: prev, Right: rightName, Strategy: StrategyNestedLoop}

		for _, u := range j.Using {
			hint.Keys = append(hint.Keys, JoinKey{Left: prev + "." + u.Name, Right: rightName + "." + u.Name})
		}
		for _, c := range conjuncts(j.Condition) {
			for _, ref := range rights {
				l, r, ok := equiKey(c, left, strings.ToLower(core.TableRefName(ref)))
				if !ok {
					continue
				}
				if len(hint.Keys) == 0 {
					hint.Left = l.Table.Name
				}
				hint.Keys = append(hint.Keys, JoinKey{
					Left:  l.Table.Name + "." + l.Column.Name,
					Right: r.Table.Name + "." + r.Column.Name,
				})
				break
			}
		}
		if len(hint.Keys) > 0 {
			hint.Strategy = StrategyHash
		}

		hints = append(hints, hint)
		for _, ref := range rights {
			left[strings.ToLower(core.TableRefName(ref))] = true
		}
		prev = rightName
	}
	return hints
}

// leadingName names a FROM item by its first table or subquery.
func leadingName(ref core.TableRef) string {
	for {
		jt, ok := ref.(*core.JoinedTable)
		if !ok {
			return core.TableRefName(ref)
		}
		ref = jt.Source
	}
}

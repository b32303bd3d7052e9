package executor

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
)

// evalAggregate folds an aggregate call over the rows of the current group.
func (x *executor) evalAggregate(e *env, f *core.FuncCall, name string) (Value, error) {
	if !e.grouped {
		return nil, diag.Newf(diag.EvaluationError, "aggregate function %s is not allowed here", name)
	}

	// Arguments see one row at a time and may not nest aggregates.
	inner := &env{frame: e.frame, outer: e.outer, ctes: e.ctes}
	rows := make([][]Value, 0, len(e.group))
	for _, row := range e.group {
		if f.Filter == nil {
			rows = append(rows, row)
			continue
		}
		inner.row = row
		ok, err := x.predicate(inner, f.Filter, "FILTER condition")
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}

	if name == "COUNT" && (f.Star || len(f.Args) == 0) {
		return int64(len(rows)), nil
	}

	argc := 1
	switch name {
	case "STRING_AGG", "GROUP_CONCAT", "LISTAGG":
		if len(f.Args) != 1 && len(f.Args) != 2 {
			return nil, arityError(name, "1 or 2", len(f.Args))
		}
		argc = len(f.Args)
	default:
		if len(f.Args) != 1 {
			return nil, arityError(name, "1", len(f.Args))
		}
	}

	// The separator of STRING_AGG is evaluated once, outside the group.
	sep := ","
	if argc == 2 {
		v, err := x.eval(&env{outer: e.outer, ctes: e.ctes, frame: e.frame, row: e.row}, f.Args[1])
		if err != nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, argError(name, 2, "TEXT", v)
		}
		sep = s
	}

	values := make([]Value, 0, len(rows))
	seen := make(map[string]bool)
	for _, row := range rows {
		inner.row = row
		v, err := x.eval(inner, f.Args[0])
		if err != nil {
			return nil, err
		}
		if f.Distinct {
			k := rowKey([]Value{v})
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		values = append(values, v)
	}

	switch name {
	case "COUNT":
		n := int64(0)
		for _, v := range values {
			if v != nil {
				n++
			}
		}
		return n, nil
	case "SUM":
		return sumValues(name, values)
	case "AVG":
		sum, err := sumValues(name, values)
		if err != nil || sum == nil {
			return nil, err
		}
		total, _ := toFloat(sum)
		return total / float64(countNonNull(values)), nil
	case "MIN", "MAX":
		var best Value
		for _, v := range values {
			if v == nil {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			c, err := compareValues(v, best)
			if err != nil {
				return nil, err
			}
			if (name == "MIN" && c < 0) || (name == "MAX" && c > 0) {
				best = v
			}
		}
		return best, nil
	case "ARRAY_AGG":
		if len(values) == 0 {
			return nil, nil
		}
		return values, nil
	case "STRING_AGG", "GROUP_CONCAT", "LISTAGG":
		parts := make([]string, 0, len(values))
		for _, v := range values {
			if v != nil {
				parts = append(parts, Text(v))
			}
		}
		if len(parts) == 0 {
			return nil, nil
		}
		return strings.Join(parts, sep), nil
	default:
		return nil, diag.Newf(diag.UnsupportedConstruct, "aggregate function %s", name)
	}
}

// sumValues adds integers exactly and switches to float on the first float
// operand. It returns NULL when every value is NULL.
func sumValues(name string, values []Value) (Value, error) {
	var (
		isum    int64
		fsum    float64
		isFloat bool
		nonNull bool
	)
	for _, v := range values {
		switch n := v.(type) {
		case nil:
			continue
		case int64:
			if isFloat {
				fsum += float64(n)
			} else {
				s := isum + n
				if (isum > 0 && n > 0 && s < 0) || (isum < 0 && n < 0 && s >= 0) {
					return nil, diag.Newf(diag.EvaluationError, "%s: integer overflow", name)
				}
				isum = s
			}
		case float64:
			if !isFloat {
				isFloat = true
				fsum = float64(isum)
			}
			fsum += n
		default:
			return nil, diag.Newf(diag.EvaluationError, "%s requires numeric values, got %s", name, TypeName(v))
		}
		nonNull = true
	}
	switch {
	case !nonNull:
		return nil, nil
	case isFloat:
		return fsum, nil
	default:
		return isum, nil
	}
}

func countNonNull(values []Value) int {
	n := 0
	for _, v := range values {
		if v != nil {
			n++
		}
	}
	return n
}

// hasAggregate reports whether e calls an aggregate outside any subquery.
func (x *executor) hasAggregate(e core.Expr) bool {
	found := false
	core.WalkExprs(e, func(n core.Expr) bool {
		if f, ok := n.(*core.FuncCall); ok && f.Window == nil && x.d.IsAggregate(f.Name) {
			found = true
		}
		return !found
	})
	return found
}

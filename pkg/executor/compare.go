package executor

import (
	"cmp"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/diag"
)

// compareValues orders two non-NULL values. Numbers compare across int and
// float; every other pairing must be of the same kind.
func compareValues(a, b Value) (int, error) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), nil
		case float64:
			return cmp.Compare(float64(x), y), nil
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, float64(y)), nil
		case float64:
			return cmp.Compare(x, y), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case []Value:
		if y, ok := b.([]Value); ok {
			for i := 0; i < len(x) && i < len(y); i++ {
				if x[i] == nil || y[i] == nil {
					if c := cmp.Compare(nullRank(x[i]), nullRank(y[i])); c != 0 {
						return c, nil
					}
					continue
				}
				c, err := compareValues(x[i], y[i])
				if err != nil || c != 0 {
					return c, err
				}
			}
			return cmp.Compare(len(x), len(y)), nil
		}
	case *Record:
		if y, ok := b.(*Record); ok {
			return strings.Compare(rowKey([]Value{x}), rowKey([]Value{y})), nil
		}
	}
	return 0, diag.Newf(diag.EvaluationError, "cannot compare %s with %s", TypeName(a), TypeName(b))
}

func nullRank(v Value) int {
	if v == nil {
		return 1
	}
	return 0
}

// tri is a three-valued truth value.
type tri int

const (
	triFalse tri = iota
	triTrue
	triUnknown
)

func triOf(b bool) tri {
	if b {
		return triTrue
	}
	return triFalse
}

// value converts a truth value back to a Value (NULL for unknown).
func (t tri) value() Value {
	switch t {
	case triTrue:
		return true
	case triFalse:
		return false
	default:
		return nil
	}
}

func (t tri) not() tri {
	switch t {
	case triTrue:
		return triFalse
	case triFalse:
		return triTrue
	default:
		return triUnknown
	}
}

func triAnd(a, b tri) tri {
	switch {
	case a == triFalse || b == triFalse:
		return triFalse
	case a == triTrue && b == triTrue:
		return triTrue
	default:
		return triUnknown
	}
}

func triOr(a, b tri) tri {
	switch {
	case a == triTrue || b == triTrue:
		return triTrue
	case a == triFalse && b == triFalse:
		return triFalse
	default:
		return triUnknown
	}
}

// truth reads a boolean operand. Only BOOLEAN and NULL are accepted.
func truth(v Value, context string) (tri, error) {
	switch x := v.(type) {
	case nil:
		return triUnknown, nil
	case bool:
		return triOf(x), nil
	default:
		return triUnknown, diag.Newf(diag.EvaluationError, "%s must be BOOLEAN, got %s", context, TypeName(v))
	}
}

// equalTri compares two values for equality with NULL propagation.
func equalTri(a, b Value) (tri, error) {
	if a == nil || b == nil {
		return triUnknown, nil
	}
	c, err := compareValues(a, b)
	if err != nil {
		return triUnknown, err
	}
	return triOf(c == 0), nil
}

package executor

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
)

// Function is a host-registered scalar function. It receives evaluated
// arguments and returns one of the Value kinds.
type Function func(args []Value) (Value, error)

// builtin is a scalar function with fixed arity bounds. max < 0 means
// variadic.
type builtin struct {
	min, max int
	fn       func(x *executor, name string, args []Value) (Value, error)
}

var builtins = map[string]builtin{
	"UPPER":     {1, 1, textFunc(strings.ToUpper)},
	"LOWER":     {1, 1, textFunc(strings.ToLower)},
	"LENGTH":    {1, 1, lengthFunc},
	"ABS":       {1, 1, absFunc},
	"ROUND":     {1, 2, roundFunc},
	"NULLIF":    {2, 2, nullifFunc},
	"CONCAT":    {1, -1, concatFunc},
	"SUBSTRING": {2, 3, substringFunc},
	"TRIM":      {1, 2, trimFunc(strings.Trim)},
	"LTRIM":     {1, 2, trimFunc(strings.TrimLeft)},
	"RTRIM":     {1, 2, trimFunc(strings.TrimRight)},
	"REPLACE":   {3, 3, replaceFunc},
	"UUID":      {0, 0, uuidFunc},
}

func (x *executor) evalFunc(e *env, f *core.FuncCall) (Value, error) {
	name := x.d.CanonicalFunction(f.Name)
	if f.Window != nil {
		return nil, diag.Newf(diag.UnsupportedConstruct, "window function %s", name)
	}
	if x.d.IsAggregate(name) {
		return x.evalAggregate(e, f, name)
	}
	if f.Distinct || f.Filter != nil || f.Star {
		return nil, diag.Newf(diag.EvaluationError, "%s is not an aggregate function", name)
	}

	// Lazily evaluated functions.
	switch name {
	case "COALESCE":
		for _, arg := range f.Args {
			v, err := x.eval(e, arg)
			if err != nil || v != nil {
				return v, err
			}
		}
		return nil, nil
	case "IF":
		if len(f.Args) != 3 {
			return nil, arityError(name, "3", len(f.Args))
		}
		cond, err := x.eval(e, f.Args[0])
		if err != nil {
			return nil, err
		}
		t, err := truth(cond, "IF condition")
		if err != nil {
			return nil, err
		}
		if t == triTrue {
			return x.eval(e, f.Args[1])
		}
		return x.eval(e, f.Args[2])
	}

	args := make([]Value, len(f.Args))
	for i, arg := range f.Args {
		v, err := x.eval(e, arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if udf, ok := x.funcs[name]; ok {
		v, err := udf(args)
		if err != nil {
			if _, isDiag := diag.As(err); isDiag {
				return nil, err
			}
			return nil, diag.Newf(diag.EvaluationError, "function %s: %v", name, err)
		}
		out, err := normalize(v)
		if err != nil {
			return nil, diag.Newf(diag.EvaluationError, "function %s: %v", name, err)
		}
		return out, nil
	}

	b, ok := builtins[name]
	if !ok {
		return nil, diag.Newf(diag.UnsupportedConstruct, "function %s", name)
	}
	if len(args) < b.min || (b.max >= 0 && len(args) > b.max) {
		want := fmt.Sprintf("%d", b.min)
		switch {
		case b.max < 0:
			want = fmt.Sprintf("at least %d", b.min)
		case b.max != b.min:
			want = fmt.Sprintf("%d to %d", b.min, b.max)
		}
		return nil, arityError(name, want, len(args))
	}
	return b.fn(x, name, args)
}

func arityError(name, want string, got int) error {
	return diag.Newf(diag.EvaluationError, "function %s expects %s arguments, got %d", name, want, got)
}

func argError(name string, pos int, want string, got Value) error {
	return diag.Newf(diag.EvaluationError, "function %s argument %d must be %s, got %s", name, pos, want, TypeName(got))
}

func anyNull(args []Value) bool {
	for _, a := range args {
		if a == nil {
			return true
		}
	}
	return false
}

func textFunc(fn func(string) string) func(*executor, string, []Value) (Value, error) {
	return func(_ *executor, name string, args []Value) (Value, error) {
		if args[0] == nil {
			return nil, nil
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, argError(name, 1, "TEXT", args[0])
		}
		return fn(s), nil
	}
}

func lengthFunc(_ *executor, name string, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return int64(utf8.RuneCountInString(v)), nil
	case []Value:
		return int64(len(v)), nil
	default:
		return nil, argError(name, 1, "TEXT", v)
	}
}

func absFunc(_ *executor, name string, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case int64:
		if v == math.MinInt64 {
			return nil, diag.New(diag.EvaluationError, "integer overflow")
		}
		if v < 0 {
			return -v, nil
		}
		return v, nil
	case float64:
		return math.Abs(v), nil
	default:
		return nil, argError(name, 1, "numeric", v)
	}
}

// roundFunc rounds half away from zero. Integers stay integers.
func roundFunc(_ *executor, name string, args []Value) (Value, error) {
	if anyNull(args) {
		return nil, nil
	}
	places := int64(0)
	if len(args) == 2 {
		p, ok := args[1].(int64)
		if !ok {
			return nil, argError(name, 2, "INTEGER", args[1])
		}
		places = p
	}

	switch v := args[0].(type) {
	case int64:
		if places >= 0 {
			return v, nil
		}
		return roundFloat(float64(v), places), nil
	case float64:
		return roundFloat(v, places), nil
	default:
		return nil, argError(name, 1, "numeric", v)
	}
}

func roundFloat(v float64, places int64) float64 {
	if places > 308 || places < -308 {
		return v
	}
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func nullifFunc(_ *executor, _ string, args []Value) (Value, error) {
	t, err := equalTri(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if t == triTrue {
		return nil, nil
	}
	return args[0], nil
}

// concatFunc joins the text of its arguments. MySQL returns NULL when any
// argument is NULL; other dialects skip NULLs.
func concatFunc(x *executor, _ string, args []Value) (Value, error) {
	var b strings.Builder
	for _, a := range args {
		if a == nil {
			if x.d.Name == "mysql" {
				return nil, nil
			}
			continue
		}
		b.WriteString(Text(a))
	}
	return b.String(), nil
}

// substringFunc takes a 1-based start and an optional length, counted in
// characters.
func substringFunc(_ *executor, name string, args []Value) (Value, error) {
	if anyNull(args) {
		return nil, nil
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, argError(name, 1, "TEXT", args[0])
	}
	start, ok := args[1].(int64)
	if !ok {
		return nil, argError(name, 2, "INTEGER", args[1])
	}

	runes := []rune(s)
	end := int64(len(runes)) + 1
	if len(args) == 3 {
		length, ok := args[2].(int64)
		if !ok {
			return nil, argError(name, 3, "INTEGER", args[2])
		}
		if length < 0 {
			return nil, diag.New(diag.EvaluationError, "negative substring length not allowed")
		}
		if start <= math.MaxInt64-length {
			end = min(end, start+length)
		}
	}
	start = max(start, 1)
	if start >= end {
		return "", nil
	}
	return string(runes[start-1 : end-1]), nil
}

func trimFunc(fn func(string, string) string) func(*executor, string, []Value) (Value, error) {
	return func(_ *executor, name string, args []Value) (Value, error) {
		if anyNull(args) {
			return nil, nil
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, argError(name, 1, "TEXT", args[0])
		}
		cutset := " "
		if len(args) == 2 {
			c, ok := args[1].(string)
			if !ok {
				return nil, argError(name, 2, "TEXT", args[1])
			}
			cutset = c
		}
		return fn(s, cutset), nil
	}
}

func replaceFunc(_ *executor, name string, args []Value) (Value, error) {
	if anyNull(args) {
		return nil, nil
	}
	strs := make([]string, 3)
	for i, a := range args {
		s, ok := a.(string)
		if !ok {
			return nil, argError(name, i+1, "TEXT", a)
		}
		strs[i] = s
	}
	if strs[1] == "" {
		return strs[0], nil
	}
	return strings.ReplaceAll(strs[0], strs[1], strs[2]), nil
}

func uuidFunc(_ *executor, _ string, _ []Value) (Value, error) {
	return uuid.NewString(), nil
}

package udf

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/polysql/pkg/executor"
)

// toStarlark converts an executor value to a Starlark value. Lists become
// lists and records become dicts in key order.
func toStarlark(v executor.Value) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []executor.Value:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case *executor.Record:
		dict := starlark.NewDict(len(val.Keys))
		for i, k := range val.Keys {
			sv, err := toStarlark(val.Values[i])
			if err != nil {
				return nil, fmt.Errorf("record key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("record key %q: %w", k, err)
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlark converts a function result back to an executor value.
// Integers outside int64 range are an error rather than a silent float.
func fromStarlark(v starlark.Value) (executor.Value, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", val.String())
		}
		return i64, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case starlark.Indexable:
		// list and tuple
		out := make([]executor.Value, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := fromStarlark(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case *starlark.Dict:
		rec := &executor.Record{}
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := fromStarlark(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			rec.Keys = append(rec.Keys, string(key))
			rec.Values = append(rec.Values, gv)
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("unsupported result type %s", v.Type())
	}
}

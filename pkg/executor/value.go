package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a single cell. It holds one of:
//
//	nil      NULL
//	bool     BOOLEAN
//	int64    INTEGER
//	float64  FLOAT
//	string   TEXT
//	[]Value  LIST
//	*Record  RECORD
type Value = any

// Record is an ordered set of named values, as loaded from a nested JSON
// object.
type Record struct {
	Keys   []string
	Values []Value
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the record as a JSON object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(jsonSafe(r.Values[i]))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// jsonSafe replaces floats JSON cannot represent with their text form.
func jsonSafe(v Value) Value {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
	case []Value:
		out := make([]Value, len(x))
		for i, e := range x {
			out[i] = jsonSafe(e)
		}
		return out
	}
	return v
}

// TypeName returns the SQL type name of v, used in error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "NULL"
	case bool:
		return "BOOLEAN"
	case int64:
		return "INTEGER"
	case float64:
		return "FLOAT"
	case string:
		return "TEXT"
	case []Value:
		return "LIST"
	case *Record:
		return "RECORD"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Text renders v the way CAST(v AS TEXT) does. NULL renders as "NULL".
func Text(v Value) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case []Value:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Text(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Record:
		parts := make([]string, len(x.Keys))
		for i, k := range x.Keys {
			parts[i] = k + ": " + Text(x.Values[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}

// normalize converts host values (int, float32, map, ...) to the Value set.
func normalize(v any) (Value, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string, *Record:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case json.Number:
		return parseNumber(x.String())
	case []Value:
		out := make([]Value, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// parseNumber returns an int64 for integral text that fits, else a float64.
func parseNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// groupKey appends a kind-tagged encoding of v to b. Two values have the
// same encoding exactly when they are of the same kind and equal, so 1 and
// 1.0 are distinct keys while NULLs share one.
func groupKey(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil:
		b.WriteString("n;")
	case bool:
		if x {
			b.WriteString("b1;")
		} else {
			b.WriteString("b0;")
		}
	case int64:
		b.WriteString("i")
		b.WriteString(strconv.FormatInt(x, 10))
		b.WriteByte(';')
	case float64:
		b.WriteString("f")
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		b.WriteByte(';')
	case string:
		b.WriteString("s")
		b.WriteString(strconv.Itoa(len(x)))
		b.WriteByte(':')
		b.WriteString(x)
	case []Value:
		b.WriteString("l")
		b.WriteString(strconv.Itoa(len(x)))
		b.WriteByte('[')
		for _, e := range x {
			groupKey(b, e)
		}
		b.WriteByte(']')
	case *Record:
		b.WriteString("r")
		b.WriteString(strconv.Itoa(len(x.Keys)))
		b.WriteByte('{')
		for i, k := range x.Keys {
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
			groupKey(b, x.Values[i])
		}
		b.WriteByte('}')
	}
}

// rowKey encodes a tuple for grouping, DISTINCT and set operations.
func rowKey(vals []Value) string {
	var b strings.Builder
	for _, v := range vals {
		groupKey(&b, v)
	}
	return b.String()
}

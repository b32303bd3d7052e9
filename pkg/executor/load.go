package executor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/polysql/pkg/diag"
)

// LoadTables reads table data in either JSON or YAML. Documents starting
// with '{' are read as JSON.
func LoadTables(data []byte) (Tables, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return LoadJSON(trimmed)
	}
	return LoadYAML(data)
}

// LoadJSON reads {"table": [{"col": value, ...}, ...], ...}. Column order
// follows the first appearance of each key; rows missing a key get NULL.
func LoadJSON(data []byte) (Tables, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSON(dec)
	if err != nil {
		return nil, diag.Newf(diag.SchemaParseError, "invalid JSON table data: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, diag.New(diag.SchemaParseError, "invalid JSON table data: unexpected data after the top-level object")
	}
	return tablesFrom(v)
}

func decodeJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			rec := &Record{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				rec.Keys = append(rec.Keys, key)
				rec.Values = append(rec.Values, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return rec, nil
		case '[':
			list := []Value{}
			for dec.More() {
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case json.Number:
		return parseNumber(t.String())
	default:
		return t, nil // string, bool or nil
	}
}

// LoadYAML reads YAML documents of the same shape as LoadJSON.
func LoadYAML(data []byte) (Tables, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, diag.Newf(diag.SchemaParseError, "invalid YAML table data: %v", err)
	}
	if doc.Kind == 0 {
		return Tables{}, nil
	}
	v, err := decodeYAML(&doc)
	if err != nil {
		return nil, diag.Newf(diag.SchemaParseError, "invalid YAML table data: %v", err)
	}
	return tablesFrom(v)
}

func decodeYAML(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeYAML(n.Content[0])
	case yaml.AliasNode:
		return decodeYAML(n.Alias)
	case yaml.MappingNode:
		rec := &Record{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			val, err := decodeYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			rec.Keys = append(rec.Keys, key.Value)
			rec.Values = append(rec.Values, val)
		}
		return rec, nil
	case yaml.SequenceNode:
		list := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := decodeYAML(c)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case yaml.ScalarNode:
		return decodeScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

func decodeScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid integer %q", n.Line, n.Value)
		}
		return f, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		return n.Value, nil
	}
}

// tablesFrom converts the decoded document into relations.
func tablesFrom(v Value) (Tables, error) {
	top, ok := v.(*Record)
	if !ok {
		return nil, diag.Newf(diag.SchemaParseError, "table data must be an object mapping table names to row lists, got %s", TypeName(v))
	}

	tables := make(Tables, len(top.Keys))
	for i, name := range top.Keys {
		rows, ok := top.Values[i].([]Value)
		if !ok {
			return nil, diag.Newf(diag.SchemaParseError, "table %q must be a list of rows, got %s", name, TypeName(top.Values[i]))
		}
		rel, err := relationFromRecords(name, rows)
		if err != nil {
			return nil, err
		}
		tables[name] = rel
	}
	return tables, nil
}

func relationFromRecords(name string, rows []Value) (*Relation, error) {
	rel := &Relation{Rows: make([][]Value, 0, len(rows))}
	index := make(map[string]int)
	records := make([]*Record, len(rows))

	for i, row := range rows {
		rec, ok := row.(*Record)
		if !ok {
			return nil, diag.Newf(diag.SchemaParseError, "table %q row %d must be an object, got %s", name, i, TypeName(row))
		}
		seen := make(map[string]bool, len(rec.Keys))
		for _, k := range rec.Keys {
			if seen[k] {
				return nil, diag.Newf(diag.SchemaParseError, "table %q row %d repeats column %q", name, i, k)
			}
			seen[k] = true
			if _, ok := index[k]; !ok {
				index[k] = len(rel.Columns)
				rel.Columns = append(rel.Columns, k)
			}
		}
		records[i] = rec
	}

	for _, rec := range records {
		out := make([]Value, len(rel.Columns))
		for j, k := range rec.Keys {
			out[index[k]] = rec.Values[j]
		}
		rel.Rows = append(rel.Rows, out)
	}
	return rel, nil
}

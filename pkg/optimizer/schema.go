package optimizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/polysql/pkg/diag"
)

// Schema maps table names to their ordered columns. Lookups are case
// insensitive; a qualified key such as "db.orders" also answers for the
// bare name "orders" unless another table claims it.
type Schema struct {
	tables map[string]*Table
	order  []*Table
}

// Table is one table of a Schema.
type Table struct {
	Name    string    `mapstructure:"name" yaml:"name"`
	Columns []*Column `mapstructure:"columns" yaml:"columns"`
}

// Column is a column name and its declared type.
type Column struct {
	Name string `mapstructure:"name" yaml:"name"`
	Type string `mapstructure:"type" yaml:"type"`
}

// NewSchema builds a schema from tables in declaration order.
func NewSchema(tables ...*Table) *Schema {
	s := &Schema{tables: make(map[string]*Table)}
	for _, t := range tables {
		s.add(t)
	}
	return s
}

// SchemaFromMap builds a schema from a table -> column -> type mapping.
// Go maps are unordered, so columns are sorted by name.
func SchemaFromMap(m map[string]map[string]string) *Schema {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	s := NewSchema()
	for _, name := range names {
		cols := make([]string, 0, len(m[name]))
		for c := range m[name] {
			cols = append(cols, c)
		}
		sort.Strings(cols)

		t := &Table{Name: name}
		for _, c := range cols {
			t.Columns = append(t.Columns, &Column{Name: c, Type: m[name][c]})
		}
		s.add(t)
	}
	return s
}

func (s *Schema) add(t *Table) {
	s.order = append(s.order, t)
	key := strings.ToLower(t.Name)
	s.tables[key] = t
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		bare := key[i+1:]
		if _, taken := s.tables[bare]; !taken {
			s.tables[bare] = t
		}
	}
}

// Tables returns the tables in declaration order.
func (s *Schema) Tables() []*Table {
	if s == nil {
		return nil
	}
	return s.order
}

// Lookup finds a table by qualified or bare name.
func (s *Schema) Lookup(name string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	key := strings.ToLower(name)
	if t, ok := s.tables[key]; ok {
		return t, true
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		t, ok := s.tables[key[i+1:]]
		return t, ok
	}
	return nil, false
}

// Column finds a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// LoadSchema parses a JSON or YAML schema document. Two shapes are
// accepted, a mapping {table: {column: type}} whose key order is kept, and
// a list form {tables: [{name, columns: [{name, type}]}]}.
func LoadSchema(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, diag.Newf(diag.SchemaParseError, "invalid schema document: %v", err)
	}
	if len(doc.Content) == 0 {
		return NewSchema(), nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, diag.New(diag.SchemaParseError, "schema must be an object of tables")
	}

	if isListForm(root) {
		return loadListForm(root)
	}

	s := NewSchema()
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, cols := root.Content[i], root.Content[i+1]
		if cols.Kind != yaml.MappingNode {
			return nil, diag.Newf(diag.SchemaParseError, "table %q: columns must be an object of column types", name.Value)
		}
		t := &Table{Name: name.Value}
		for j := 0; j+1 < len(cols.Content); j += 2 {
			col, typ := cols.Content[j], cols.Content[j+1]
			if typ.Kind != yaml.ScalarNode {
				return nil, diag.Newf(diag.SchemaParseError, "table %q column %q: type must be a string", name.Value, col.Value)
			}
			t.Columns = append(t.Columns, &Column{Name: col.Value, Type: typ.Value})
		}
		s.add(t)
	}
	return s, nil
}

func isListForm(root *yaml.Node) bool {
	return len(root.Content) == 2 && root.Content[0].Value == "tables" && root.Content[1].Kind == yaml.SequenceNode
}

func loadListForm(root *yaml.Node) (*Schema, error) {
	var raw map[string]any
	if err := root.Decode(&raw); err != nil {
		return nil, diag.Newf(diag.SchemaParseError, "invalid schema document: %v", err)
	}

	var doc struct {
		Tables []*Table `mapstructure:"tables"`
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create schema decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, diag.Newf(diag.SchemaParseError, "invalid schema document: %v", err)
	}

	for i, t := range doc.Tables {
		if t == nil || t.Name == "" {
			return nil, diag.Newf(diag.SchemaParseError, "table %d has no name", i)
		}
	}
	return NewSchema(doc.Tables...), nil
}

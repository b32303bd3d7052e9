package executor

import (
	"encoding/json"
	"slices"

	"github.com/leapstack-labs/polysql/pkg/diag"
)

// Relation is an ordered list of uniquely named columns and rows of values.
// Every row has one value per column.
type Relation struct {
	Columns []string
	Rows    [][]Value
}

// Tables maps table names to their data.
type Tables map[string]*Relation

// NewRelation builds a relation, checking column uniqueness and row arity
// and converting host numbers to int64/float64.
func NewRelation(columns []string, rows [][]any) (*Relation, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, diag.Newf(diag.SchemaParseError, "duplicate column %q", c)
		}
		seen[c] = true
	}

	r := &Relation{Columns: columns, Rows: make([][]Value, len(rows))}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, diag.Newf(diag.SchemaParseError, "row %d has %d values, expected %d", i, len(row), len(columns))
		}
		out := make([]Value, len(row))
		for j, v := range row {
			n, err := normalize(v)
			if err != nil {
				return nil, diag.Newf(diag.SchemaParseError, "row %d, column %q: %v", i, columns[j], err)
			}
			out[j] = n
		}
		r.Rows[i] = out
	}
	return r, nil
}

// Len returns the number of rows.
func (r *Relation) Len() int { return len(r.Rows) }

// ColumnIndex returns the position of the named column, or -1.
func (r *Relation) ColumnIndex(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Records returns each row as a record keyed by column name.
func (r *Relation) Records() []*Record {
	out := make([]*Record, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = &Record{Keys: r.Columns, Values: row}
	}
	return out
}

// MarshalJSON writes the relation as an array of objects in column order.
func (r *Relation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Records())
}

// lookup finds a table by exact name, then by fold. Candidates are tried in
// sorted order so a lookup is deterministic.
func (t Tables) lookup(name string, fold func(a, b string) bool) (*Relation, bool) {
	if r, ok := t[name]; ok {
		return r, true
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if fold(k, name) {
			return t[k], true
		}
	}
	return nil, false
}

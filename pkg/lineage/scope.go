package lineage

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
)

// relation is the traced output of a CTE or derived table.
type relation struct {
	columns []*ColumnLineage
}

func (r *relation) column(name string) (*ColumnLineage, bool) {
	for _, c := range r.columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

// entry is one FROM item visible in a scope. Physical tables carry their
// qualified name and, with a schema, their columns; CTEs and derived
// tables carry the relation they produce.
type entry struct {
	ref     string
	table   string
	columns []string
	rel     *relation
}

func (e *entry) hasColumn(name string) bool {
	if e.rel != nil {
		_, ok := e.rel.column(name)
		return ok
	}
	for _, c := range e.columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// scope holds the FROM items and CTEs of one query level. Lookups fall
// back to the parent, which makes correlated references resolve.
type scope struct {
	parent  *scope
	ctes    map[string]*relation
	entries map[string]*entry
	order   []*entry
}

func newScope(parent *scope) *scope {
	return &scope{
		parent:  parent,
		ctes:    make(map[string]*relation),
		entries: make(map[string]*entry),
	}
}

func (s *scope) lookupCTE(name string) (*relation, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if rel, ok := sc.ctes[strings.ToLower(name)]; ok {
			return rel, true
		}
	}
	return nil, false
}

func (s *scope) lookup(ref string) (*entry, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if e, ok := sc.entries[strings.ToLower(ref)]; ok {
			return e, true
		}
	}
	return nil, false
}

func (s *scope) add(e *entry) {
	s.entries[strings.ToLower(e.ref)] = e
	s.order = append(s.order, e)
}

// addTable registers a table name, which is either a CTE reference or a
// physical table.
func (s *scope) addTable(t *core.TableName, schema *optimizer.Schema) *entry {
	e := &entry{ref: t.RefName()}
	if t.Schema.IsZero() && t.Catalog.IsZero() {
		if rel, ok := s.lookupCTE(t.Name.Name); ok {
			e.rel = rel
			s.add(e)
			return e
		}
	}
	e.table = t.Qualified()
	if tbl, ok := schema.Lookup(e.table); ok {
		e.columns = tbl.ColumnNames()
	}
	s.add(e)
	return e
}

// owner finds the entry an unqualified column belongs to: the only entry
// of the innermost level that knows the column, or the only entry at all.
func (s *scope) owner(column string) (*entry, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		var found *entry
		matches := 0
		for _, e := range sc.order {
			if e.hasColumn(column) {
				found = e
				matches++
			}
		}
		if matches == 1 {
			return found, true
		}
		if matches > 1 {
			return nil, false
		}
		if len(sc.order) == 1 && sc.order[0].rel == nil && len(sc.order[0].columns) == 0 {
			return sc.order[0], true
		}
		if len(sc.order) > 0 {
			return nil, false
		}
	}
	return nil, false
}

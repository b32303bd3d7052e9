package optimizer

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
)

// source is one FROM item of a SELECT core as seen by column resolution.
type source struct {
	name    string   // name other clauses refer to it by
	columns []string // output columns, nil when unknown
	table   *Table   // schema entry for base tables
	ref     core.TableRef
}

func (s *source) has(column string) bool {
	for _, c := range s.columns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

// scope lists the sources of one SELECT core.
type scope struct {
	sources []*source
}

// complete reports whether every source's columns are known.
func (s *scope) complete() bool {
	for _, src := range s.sources {
		if src.columns == nil {
			return false
		}
	}
	return len(s.sources) > 0
}

// lookup returns the source referenced by a qualifier.
func (s *scope) lookup(name string) (*source, bool) {
	for _, src := range s.sources {
		if strings.EqualFold(src.name, name) {
			return src, true
		}
	}
	return nil, false
}

// owners returns the sources that have column. Unknown sources never match.
func (s *scope) owners(column string) []*source {
	var out []*source
	for _, src := range s.sources {
		if src.has(column) {
			out = append(out, src)
		}
	}
	return out
}

// resolve returns the source a column reference reads from, when that can
// be decided.
func (s *scope) resolve(c *core.ColumnRef) (*source, bool) {
	if !c.Table.IsZero() {
		return s.lookup(c.Table.Name)
	}
	if !s.complete() {
		return nil, false
	}
	owners := s.owners(c.Column.Name)
	if len(owners) != 1 {
		return nil, false
	}
	return owners[0], true
}

// resolver builds scopes from the schema and the statement's CTEs.
type resolver struct {
	schema *Schema
	ctes   map[string]*core.CTE
}

func newResolver(stmt core.Stmt, schema *Schema) *resolver {
	r := &resolver{schema: schema, ctes: make(map[string]*core.CTE)}
	core.Walk(stmt, func(n core.Node) bool {
		if cte, ok := n.(*core.CTE); ok {
			r.ctes[strings.ToLower(cte.Name.Name)] = cte
		}
		return true
	})
	return r
}

func (r *resolver) scopeOf(sc *core.SelectCore) *scope {
	s := &scope{}
	if sc.From == nil {
		return s
	}
	for _, ref := range fromRefs(sc.From) {
		s.sources = append(s.sources, r.source(ref))
	}
	return s
}

func (r *resolver) source(ref core.TableRef) *source {
	src := &source{name: core.TableRefName(ref), ref: ref}
	switch t := ref.(type) {
	case *core.TableName:
		if t.Schema.IsZero() {
			if cte, ok := r.ctes[strings.ToLower(t.Name.Name)]; ok {
				src.columns = cteColumns(cte)
				return src
			}
		}
		if tbl, ok := r.schema.Lookup(t.Qualified()); ok {
			src.table = tbl
			src.columns = tbl.ColumnNames()
		}
	case *core.DerivedTable:
		src.columns = outputColumns(t.Select)
	}
	return src
}

func cteColumns(cte *core.CTE) []string {
	if len(cte.Columns) > 0 {
		return core.Names(cte.Columns)
	}
	return outputColumns(cte.Select)
}

// outputColumns returns the column names a SELECT produces, or nil when a
// projection has no name or is a star.
func outputColumns(s *core.SelectStmt) []string {
	if s == nil {
		return nil
	}
	cores := s.Cores()
	if len(cores) == 0 {
		return nil
	}
	var out []string
	for _, item := range cores[0].Columns {
		name := item.OutputName()
		if name == "" {
			return nil
		}
		out = append(out, name)
	}
	return out
}

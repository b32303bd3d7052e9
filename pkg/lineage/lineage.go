// Package lineage traces the output columns of a SELECT back to the
// physical table columns they are computed from.
//
// References through CTEs and derived tables are followed to the tables
// underneath, so
//
//	WITH c AS (SELECT id AS user_id FROM users) SELECT user_id FROM c
//
// reports users.id as the source of user_id. SELECT * and t.* expand to
// individual columns when a schema describes the table.
package lineage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
)

// TransformType describes how source columns are transformed.
type TransformType string

const (
	// TransformDirect means the column is a direct copy (no transformation).
	TransformDirect TransformType = ""
	// TransformExpression means the column is derived from an expression.
	TransformExpression TransformType = "EXPR"
)

// SourceColumn is a column of a physical table. Table is empty when an
// unqualified reference could not be attributed.
type SourceColumn struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// String returns "table.column", or the bare column when the table is
// unknown.
func (s SourceColumn) String() string {
	if s.Table == "" {
		return s.Column
	}
	return s.Table + "." + s.Column
}

// ColumnLineage describes the lineage of a single output column.
type ColumnLineage struct {
	Name      string         `json:"name"`
	Sources   []SourceColumn `json:"sources"`
	Transform TransformType  `json:"transform,omitempty"`
	Function  string         `json:"function,omitempty"` // aggregate, window or generator
}

// QueryLineage is the lineage of every output column of a query.
type QueryLineage struct {
	Sources []string         `json:"sources"` // physical tables, sorted
	Columns []*ColumnLineage `json:"columns"`
}

// Extract traces the output columns of stmt, which must be a SELECT.
// schema is optional and only needed to expand stars and to attribute
// unqualified columns when several tables are joined.
func Extract(stmt core.Stmt, d *dialect.Dialect, schema *optimizer.Schema) (*QueryLineage, error) {
	sel, ok := stmt.(*core.SelectStmt)
	if !ok || sel == nil {
		return nil, diag.New(diag.UnsupportedConstruct, "column lineage requires a SELECT statement")
	}
	if d == nil {
		def, ok := dialect.Default()
		if !ok {
			return nil, diag.New(diag.UnknownDialect, "no dialect registered")
		}
		d = def
	}
	x := &extractor{dialect: d, schema: schema, tables: make(map[string]struct{})}
	rel := x.selectStmt(sel, nil)

	sources := make([]string, 0, len(x.tables))
	for t := range x.tables {
		sources = append(sources, t)
	}
	sort.Strings(sources)
	return &QueryLineage{Sources: sources, Columns: rel.columns}, nil
}

type extractor struct {
	dialect *dialect.Dialect
	schema  *optimizer.Schema
	tables  map[string]struct{}
}

// selectStmt traces one SELECT statement in a new scope under parent.
func (x *extractor) selectStmt(sel *core.SelectStmt, parent *scope) *relation {
	s := newScope(parent)
	if sel.With != nil {
		for _, cte := range sel.With.CTEs {
			x.cte(s, cte, sel.With.Recursive)
		}
	}

	cores := sel.Cores()
	if len(cores) == 0 {
		return &relation{}
	}
	columns := x.selectCore(cores[0], s)
	for _, c := range cores[1:] {
		// Set operations take names from the first core and sources from all.
		right := x.selectCore(c, s)
		for i, col := range columns {
			if i < len(right) {
				col.Sources = mergeSources(col.Sources, right[i].Sources)
				if col.Transform == TransformDirect {
					col.Transform = TransformExpression
				}
			}
		}
	}
	return &relation{columns: columns}
}

func (x *extractor) cte(s *scope, cte *core.CTE, recursive bool) {
	rel := &relation{}
	key := strings.ToLower(cte.Name.Name)
	if recursive {
		// The recursive part refers to the CTE itself
		s.ctes[key] = rel
	}
	if cte.Select != nil {
		rel.columns = x.selectStmt(cte.Select, s).columns
	}
	for i, name := range cte.Columns {
		if i < len(rel.columns) {
			rel.columns[i].Name = name.Name
		}
	}
	s.ctes[key] = rel
}

// selectCore registers the FROM items of c in a child scope and traces
// its select list.
func (x *extractor) selectCore(c *core.SelectCore, parent *scope) []*ColumnLineage {
	s := newScope(parent)
	if c.From != nil {
		x.tableRef(s, c.From.Source)
		for _, j := range c.From.Joins {
			x.tableRef(s, j.Right)
			x.subqueries(s, j.Condition)
		}
	}

	// Subqueries in filters contribute tables but no columns.
	for _, e := range []core.Expr{c.Where, c.Having, c.Qualify} {
		x.subqueries(s, e)
	}

	var columns []*ColumnLineage
	for i, item := range c.Columns {
		if star, ok := item.Expr.(*core.StarExpr); ok {
			columns = append(columns, x.expandStar(s, star.Table.Name)...)
			continue
		}
		col := x.expr(s, item.Expr)
		col.Name = item.OutputName()
		if col.Name == "" {
			col.Name = inferName(item.Expr, i)
		}
		columns = append(columns, col)
	}
	return columns
}

func (x *extractor) tableRef(s *scope, ref core.TableRef) {
	switch t := ref.(type) {
	case *core.TableName:
		e := s.addTable(t, x.schema)
		if e.rel == nil {
			x.tables[e.table] = struct{}{}
		}
	case *core.DerivedTable:
		if t.Select == nil {
			return
		}
		// LATERAL subqueries see the FROM items to their left.
		parent := s.parent
		if t.Lateral {
			parent = s
		}
		s.add(&entry{ref: t.Alias.Name, rel: x.selectStmt(t.Select, parent)})
	case *core.JoinedTable:
		x.tableRef(s, t.Source)
		for _, j := range t.Joins {
			x.tableRef(s, j.Right)
			x.subqueries(s, j.Condition)
		}
	}
}

// expandStar lists the columns behind * or t.*. Without column
// information the star stays a single "*" column with no sources.
func (x *extractor) expandStar(s *scope, table string) []*ColumnLineage {
	entries := s.order
	if table != "" {
		e, ok := s.lookup(table)
		if !ok {
			return []*ColumnLineage{{Name: table + ".*"}}
		}
		entries = []*entry{e}
	}

	var out []*ColumnLineage
	for _, e := range entries {
		if e.rel != nil {
			for _, c := range e.rel.columns {
				out = append(out, c.copy())
			}
			continue
		}
		if len(e.columns) == 0 {
			name := "*"
			if table != "" {
				name = table + ".*"
			}
			return []*ColumnLineage{{Name: name}}
		}
		for _, c := range e.columns {
			out = append(out, &ColumnLineage{Name: c, Sources: []SourceColumn{{Table: e.table, Column: c}}})
		}
	}
	return out
}

// expr traces one select-list expression.
func (x *extractor) expr(s *scope, e core.Expr) *ColumnLineage {
	col := &ColumnLineage{}
	switch ex := e.(type) {
	case nil:
		return col

	case *core.ColumnRef:
		// A reference to a traced column inherits how it was computed.
		if inner, ok := x.traced(s, ex); ok {
			col.Sources = append(col.Sources, inner.Sources...)
			col.Transform = inner.Transform
			col.Function = inner.Function
			return col
		}
		if src, ok := x.resolve(s, ex); ok {
			col.Sources = []SourceColumn{src}
		}

	case *core.ParenExpr:
		return x.expr(s, ex.Expr)

	case *core.Literal:
		col.Transform = TransformExpression

	case *core.FuncCall:
		col.Sources = x.sources(s, e)
		name := x.dialect.CanonicalFunction(ex.Name)
		switch {
		case x.dialect.IsGenerator(ex.Name):
			col.Sources = nil
			col.Transform = TransformExpression
			col.Function = name
		case ex.Window != nil || x.dialect.IsAggregate(ex.Name) || x.dialect.IsWindow(ex.Name):
			col.Transform = TransformExpression
			col.Function = name
		case len(col.Sources) != 1:
			col.Transform = TransformExpression
		}

	default:
		col.Sources = x.sources(s, e)
		col.Transform = TransformExpression
	}
	return col
}

// sources collects the distinct source columns referenced by e. Nested
// subqueries are traced for their tables only.
func (x *extractor) sources(s *scope, e core.Expr) []SourceColumn {
	var out []SourceColumn
	core.Walk(e, func(n core.Node) bool {
		switch n := n.(type) {
		case *core.ColumnRef:
			if inner, ok := x.traced(s, n); ok {
				out = mergeSources(out, inner.Sources)
			} else if src, ok := x.resolve(s, n); ok {
				out = mergeSources(out, []SourceColumn{src})
			}
		case *core.SelectStmt:
			x.selectStmt(n, s)
			return false
		}
		return true
	})
	return out
}

// subqueries traces the subqueries inside e for their tables.
func (x *extractor) subqueries(s *scope, e core.Expr) {
	if e == nil {
		return
	}
	core.Walk(e, func(n core.Node) bool {
		if sel, ok := n.(*core.SelectStmt); ok {
			x.selectStmt(sel, s)
			return false
		}
		return true
	})
}

// traced returns the lineage of a column that comes from a CTE or
// derived table.
func (x *extractor) traced(s *scope, ref *core.ColumnRef) (*ColumnLineage, bool) {
	var e *entry
	var ok bool
	if ref.Table.IsZero() {
		e, ok = s.owner(ref.Column.Name)
	} else {
		e, ok = s.lookup(ref.Table.Name)
	}
	if !ok || e.rel == nil {
		return nil, false
	}
	return e.rel.column(ref.Column.Name)
}

// resolve attributes a column reference to a physical table. It reports
// false for references into a CTE or derived table that lacks the column,
// which happens inside a recursive CTE.
func (x *extractor) resolve(s *scope, ref *core.ColumnRef) (SourceColumn, bool) {
	name := ref.Column.Name
	if !ref.Table.IsZero() {
		if e, ok := s.lookup(ref.Table.Name); ok {
			if e.rel != nil {
				return SourceColumn{}, false
			}
			return SourceColumn{Table: e.table, Column: name}, true
		}
		table := ref.Table.Name
		if !ref.Schema.IsZero() {
			table = ref.Schema.Name + "." + table
		}
		return SourceColumn{Table: table, Column: name}, true
	}
	if e, ok := s.owner(name); ok {
		return SourceColumn{Table: e.table, Column: name}, true
	}
	if len(s.order) == 1 && s.order[0].rel != nil {
		return SourceColumn{}, false
	}
	return SourceColumn{Column: name}, true
}

func (c *ColumnLineage) copy() *ColumnLineage {
	out := *c
	out.Sources = append([]SourceColumn(nil), c.Sources...)
	return &out
}

// mergeSources appends the columns of b missing from a.
func mergeSources(a, b []SourceColumn) []SourceColumn {
	for _, src := range b {
		dup := false
		for _, have := range a {
			if strings.EqualFold(have.Table, src.Table) && strings.EqualFold(have.Column, src.Column) {
				dup = true
				break
			}
		}
		if !dup {
			a = append(a, src)
		}
	}
	return a
}

// inferName names an unaliased expression the way DuckDB does for simple
// cases and falls back to a positional name.
func inferName(e core.Expr, index int) string {
	switch ex := e.(type) {
	case *core.FuncCall:
		return strings.ToLower(ex.Name)
	case *core.CastExpr:
		return inferName(ex.Expr, index)
	case *core.ParenExpr:
		return inferName(ex.Expr, index)
	case *core.ColumnRef:
		return ex.Column.Name
	}
	return fmt.Sprintf("column%d", index)
}

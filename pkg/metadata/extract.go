package metadata

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/format"
)

// Extract collects the facts of stmt. Text snapshots are rendered on a
// single line in dialect d, the dialect the statement was parsed with.
func Extract(stmt core.Stmt, d *dialect.Dialect) *Result {
	e := &extractor{
		dialect:   d,
		result:    newResult(),
		tables:    make(map[tableKey]struct{}),
		columns:   make(map[columnKey]struct{}),
		functions: make(map[string]struct{}),
		aliased:   make(map[*core.ColumnRef]string),
	}
	if stmt == nil {
		return e.result
	}

	e.result.QueryType = queryType(stmt)
	e.collectAliases(stmt)
	core.Walk(stmt, e.visit)
	return e.result
}

type tableKey struct {
	name, alias, db, catalog string
}

type columnKey struct {
	name, table, aliasOrName string
}

// extractor walks a statement once and accumulates facts.
type extractor struct {
	dialect *dialect.Dialect
	result  *Result

	tables    map[tableKey]struct{}
	columns   map[columnKey]struct{}
	functions map[string]struct{}

	// aliased maps column references that are a whole projection to the
	// projection's alias.
	aliased map[*core.ColumnRef]string
}

// queryType returns the statement kind tag.
func queryType(stmt core.Stmt) string {
	switch s := stmt.(type) {
	case *core.SelectStmt:
		if s.Body != nil {
			switch s.Body.Op {
			case core.SetOpUnion:
				return QueryTypeUnion
			case core.SetOpIntersect:
				return QueryTypeIntersect
			case core.SetOpExcept:
				return QueryTypeExcept
			}
		}
		return QueryTypeSelect
	case *core.InsertStmt:
		return QueryTypeInsert
	case *core.UpdateStmt:
		return QueryTypeUpdate
	case *core.DeleteStmt:
		return QueryTypeDelete
	case *core.CreateTableStmt:
		return QueryTypeCreate
	case *core.DropTableStmt:
		return QueryTypeDrop
	default:
		return QueryTypeCommand
	}
}

// collectAliases records top-level projection aliases and remembers which
// column references are aliased anywhere in the tree.
func (e *extractor) collectAliases(stmt core.Stmt) {
	if sel, ok := stmt.(*core.SelectStmt); ok {
		for _, sc := range sel.Cores() {
			for _, item := range sc.Columns {
				if item.Alias.IsZero() {
					continue
				}
				e.result.Aliases = append(e.result.Aliases, &Alias{
					Alias:      item.Alias.Name,
					Expression: e.render(item.Expr),
				})
			}
		}
	}

	core.Walk(stmt, func(n core.Node) bool {
		if item, ok := n.(*core.SelectItem); ok && !item.Alias.IsZero() {
			if col, ok := item.Expr.(*core.ColumnRef); ok {
				e.aliased[col] = item.Alias.Name
			}
		}
		return true
	})
}

func (e *extractor) visit(n core.Node) bool {
	switch n := n.(type) {
	case *core.SelectStmt:
		e.addOrderBy(n.OrderBy)
	case *core.SelectCore:
		if n.Where != nil {
			e.result.WhereConditions = append(e.result.WhereConditions, e.render(n.Where))
		}
		for _, g := range n.GroupBy {
			e.result.GroupBy = append(e.result.GroupBy, e.render(g))
		}
		e.addOrderBy(n.OrderBy)
	case *core.UpdateStmt:
		if n.Where != nil {
			e.result.WhereConditions = append(e.result.WhereConditions, e.render(n.Where))
		}
	case *core.DeleteStmt:
		if n.Where != nil {
			e.result.WhereConditions = append(e.result.WhereConditions, e.render(n.Where))
		}
	case *core.CTE:
		e.addSubquery(n.Name.Name, n.Select)
	case *core.TableName:
		e.addTable(n)
	case *core.DerivedTable:
		e.addSubquery(n.Alias.Name, n.Select)
	case *core.Join:
		e.addJoin(n)
	case *core.ColumnRef:
		e.addColumn(n)
	case *core.FuncCall:
		e.addFunction(n)
	case *core.SubqueryExpr:
		e.addSubquery("", n.Select)
	case *core.ExistsExpr:
		e.addSubquery("", n.Select)
	case *core.InExpr:
		if n.Query != nil {
			e.addSubquery("", n.Query)
		}
	}
	return true
}

func (e *extractor) addTable(t *core.TableName) {
	key := tableKey{t.Name.Name, t.Alias.Name, t.Schema.Name, t.Catalog.Name}
	if _, ok := e.tables[key]; ok {
		return
	}
	e.tables[key] = struct{}{}
	e.result.Tables = append(e.result.Tables, &Table{
		Name:    t.Name.Name,
		Alias:   optional(t.Alias.Name),
		DB:      optional(t.Schema.Name),
		Catalog: optional(t.Catalog.Name),
	})
}

func (e *extractor) addColumn(c *core.ColumnRef) {
	col := &Column{
		Name:        c.Column.Name,
		Table:       optional(c.Table.Name),
		AliasOrName: c.Column.Name,
	}
	if alias, ok := e.aliased[c]; ok {
		col.AliasOrName = alias
	}

	key := columnKey{col.Name, deref(col.Table), col.AliasOrName}
	if _, ok := e.columns[key]; ok {
		return
	}
	e.columns[key] = struct{}{}
	e.result.Columns = append(e.result.Columns, col)
}

func (e *extractor) addFunction(f *core.FuncCall) {
	name := strings.ToUpper(f.Name)
	if _, ok := e.functions[name]; ok {
		return
	}
	e.functions[name] = struct{}{}
	e.result.Functions = append(e.result.Functions, &Function{
		Name: name,
		SQL:  e.render(f),
	})
}

func (e *extractor) addJoin(j *core.Join) {
	join := &Join{
		Type:    joinType(j.Type),
		Table:   e.relationName(j.Right),
		Natural: j.Natural,
		Using:   core.Names(j.Using),
	}
	if j.Condition != nil {
		on := e.render(j.Condition)
		join.OnCondition = &on
	}
	e.result.Joins = append(e.result.Joins, join)
}

func joinType(t core.JoinType) string {
	switch t {
	case core.JoinPlain:
		return DefaultJoinType
	case core.JoinComma:
		return string(core.JoinCross)
	default:
		return string(t)
	}
}

// relationName identifies the right side of a join: a table's qualified
// name, a derived table's alias, or the derived table's text. A nested
// join is named after its leading item.
func (e *extractor) relationName(ref core.TableRef) string {
	switch t := ref.(type) {
	case *core.TableName:
		return t.Qualified()
	case *core.DerivedTable:
		if !t.Alias.IsZero() {
			return t.Alias.Name
		}
		return "(" + format.RenderSelect(t.Select, e.dialect, format.Options{}) + ")"
	case *core.JoinedTable:
		return e.relationName(t.Source)
	}
	return ""
}

func (e *extractor) addSubquery(alias string, s *core.SelectStmt) {
	if s == nil {
		return
	}
	e.result.Subqueries = append(e.result.Subqueries, &Subquery{
		Alias: optional(alias),
		SQL:   format.RenderSelect(s, e.dialect, format.Options{}),
	})
}

func (e *extractor) addOrderBy(items []*core.OrderByItem) {
	for _, item := range items {
		e.result.OrderBy = append(e.result.OrderBy, &OrderBy{
			Expression: e.render(item.Expr),
			Desc:       item.Desc,
		})
	}
}

func (e *extractor) render(expr core.Expr) string {
	return format.RenderExpr(expr, e.dialect, format.Options{})
}

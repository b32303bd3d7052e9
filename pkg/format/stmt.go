package format

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// slotOrder is the order SELECT clauses are rendered in. Keywords and
// layout come from the target dialect's clause definitions.
var slotOrder = []spi.ClauseSlot{
	spi.SlotWhere,
	spi.SlotGroupBy,
	spi.SlotHaving,
	spi.SlotWindow,
	spi.SlotQualify,
	spi.SlotOrderBy,
	spi.SlotLimit,
	spi.SlotOffset,
}

// fallbackClauses render clauses the target dialect does not declare.
var fallbackClauses = map[spi.ClauseSlot]dialect.ClauseDef{
	spi.SlotWhere:   dialect.StandardWhere,
	spi.SlotGroupBy: dialect.StandardGroupBy,
	spi.SlotHaving:  dialect.StandardHaving,
	spi.SlotWindow:  dialect.StandardWindow,
	spi.SlotQualify: dialect.StandardQualify,
	spi.SlotOrderBy: dialect.StandardOrderBy,
	spi.SlotLimit:   dialect.StandardLimit,
	spi.SlotOffset:  dialect.StandardOffset,
}

func (p *Printer) formatStmt(stmt core.Stmt) {
	switch s := stmt.(type) {
	case *core.SelectStmt:
		p.formatSelectStmt(s)
	case *core.InsertStmt:
		p.formatInsert(s)
	case *core.UpdateStmt:
		p.formatUpdate(s)
	case *core.DeleteStmt:
		p.formatDelete(s)
	case *core.CreateTableStmt:
		p.formatCreateTable(s)
	case *core.DropTableStmt:
		p.formatDropTable(s)
	case *core.CommandStmt:
		p.formatCommand(s)
	}
}

func (p *Printer) formatSelectStmt(stmt *core.SelectStmt) {
	if stmt == nil {
		return
	}

	if stmt.With != nil {
		p.formatWithClause(stmt.With)
	}

	if stmt.Body != nil {
		p.formatSelectBody(stmt.Body, stmt.IsSetOperation())
	}

	// Set operation ORDER BY / LIMIT / OFFSET
	p.formatSlot(spi.SlotOrderBy, stmt.OrderBy)
	p.formatSlot(spi.SlotLimit, stmt.Limit)
	p.formatSlot(spi.SlotOffset, stmt.Offset)
}

func (p *Printer) formatWithClause(with *core.WithClause) {
	p.kw(token.WITH)
	if with.Recursive {
		p.space()
		p.kw(token.RECURSIVE)
	}
	p.writeln()

	p.indent()
	p.formatList(len(with.CTEs), func(i int) {
		cte := with.CTEs[i]
		p.ident(cte.Name)
		if len(cte.Columns) > 0 {
			p.write(" (")
			p.identList(cte.Columns)
			p.write(")")
		}
		p.space()
		p.kw(token.AS)
		p.write(" (")
		p.writeln()

		p.indent()
		p.formatSelectStmt(cte.Select)
		p.writeln()
		p.dedent()

		p.write(")")
	}, ",", true)
	p.writeln()
	p.dedent()
}

// formatSelectBody prints the chain of cores and set operators. Operands
// carrying their own ORDER BY or LIMIT are parenthesized.
func (p *Printer) formatSelectBody(body *core.SelectBody, setOp bool) {
	for b := body; b != nil; b = b.Right {
		if setOp && hasTrailingClauses(b.Left) {
			p.write("(")
			p.formatSelectCore(b.Left)
			p.write(")")
			p.writeln()
		} else {
			p.formatSelectCore(b.Left)
		}

		if b.Op == core.SetOpNone {
			return
		}
		p.keyword(string(b.Op))
		if b.All {
			p.space()
			p.kw(token.ALL)
		}
		p.writeln()
	}
}

func hasTrailingClauses(sc *core.SelectCore) bool {
	return sc != nil && (len(sc.OrderBy) > 0 || sc.Limit != nil || sc.Offset != nil)
}

func (p *Printer) formatSelectCore(sc *core.SelectCore) {
	if sc == nil {
		return
	}

	// SELECT [DISTINCT]
	p.kw(token.SELECT)
	if sc.Distinct {
		p.space()
		p.kw(token.DISTINCT)
	}
	p.writeln()

	// Columns
	p.indent()
	p.formatList(len(sc.Columns), func(i int) { p.formatSelectItem(sc.Columns[i]) }, ",", true)
	p.writeln()
	p.dedent()

	// FROM
	if sc.From != nil {
		p.kw(token.FROM)
		p.space()
		p.formatFromClause(sc.From)
		p.writeln()
	}

	for _, slot := range slotOrder {
		p.formatSlot(slot, slotValue(sc, slot))
	}
}

// clauseDef returns the target dialect's definition of a clause slot.
func (p *Printer) clauseDef(slot spi.ClauseSlot) dialect.ClauseDef {
	for _, t := range p.dialect.ClauseSequence() {
		if def, ok := p.dialect.ClauseDef(t); ok && def.Slot == slot {
			return def
		}
	}
	return fallbackClauses[slot]
}

func (p *Printer) formatSlot(slot spi.ClauseSlot, val any) {
	if !hasValue(val) {
		return
	}
	def := p.clauseDef(slot)

	// Print keywords
	if len(def.Keywords) > 0 {
		for i, kw := range def.Keywords {
			if i > 0 {
				p.space()
			}
			p.keyword(kw)
		}
	} else {
		p.kw(def.Token)
	}

	if def.Inline {
		p.space()
		p.formatSlotValue(slot, val)
	} else {
		p.writeln()
		p.indent()
		p.formatSlotValue(slot, val)
		p.dedent()
	}
	p.writeln()
}

func hasValue(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case core.Expr:
		return v != nil
	case []core.Expr:
		return len(v) > 0
	case []*core.OrderByItem:
		return len(v) > 0
	case []*core.WindowDef:
		return len(v) > 0
	}
	return true
}

func slotValue(sc *core.SelectCore, slot spi.ClauseSlot) any {
	var val any
	switch slot {
	case spi.SlotWhere:
		val = sc.Where
	case spi.SlotGroupBy:
		val = sc.GroupBy
	case spi.SlotHaving:
		val = sc.Having
	case spi.SlotWindow:
		val = sc.Windows
	case spi.SlotOrderBy:
		val = sc.OrderBy
	case spi.SlotLimit:
		val = sc.Limit
	case spi.SlotOffset:
		val = sc.Offset
	case spi.SlotQualify:
		val = sc.Qualify
	}
	return val
}

func (p *Printer) formatSlotValue(slot spi.ClauseSlot, val any) {
	switch v := val.(type) {
	case core.Expr:
		p.formatExpr(v)
	case []core.Expr:
		p.formatList(len(v), func(i int) { p.formatExpr(v[i]) }, ",", true)
	case []*core.OrderByItem:
		p.formatList(len(v), func(i int) { p.formatOrderByItem(v[i]) }, ",", true)
	case []*core.WindowDef:
		p.formatList(len(v), func(i int) {
			p.ident(v[i].Name)
			p.space()
			p.kw(token.AS)
			p.space()
			p.formatWindowBody(v[i].Spec)
		}, ",", true)
	}
}

func (p *Printer) formatSelectItem(item *core.SelectItem) {
	p.formatExpr(item.Expr)
	if !item.Alias.IsZero() {
		p.space()
		p.kw(token.AS)
		p.space()
		p.ident(item.Alias)
	}
}

func (p *Printer) formatFromClause(from *core.FromClause) {
	if from == nil {
		return
	}

	p.formatJoins(from.Source, from.Joins)
}

func (p *Printer) formatJoins(source core.TableRef, joins []*core.Join) {
	p.formatTableRef(source)

	for _, join := range joins {
		if join.Type == core.JoinComma {
			p.write(", ")
			p.formatTableRef(join.Right)
			continue
		}
		p.writeln()
		p.formatJoin(join)
	}
}

func (p *Printer) formatTableRef(ref core.TableRef) {
	switch t := ref.(type) {
	case *core.TableName:
		p.formatTableName(t)
		if !t.Alias.IsZero() {
			p.space()
			p.ident(t.Alias)
		}
	case *core.DerivedTable:
		p.formatDerivedTable(t)
	case *core.JoinedTable:
		p.write("(")
		p.indent()
		p.formatJoins(t.Source, t.Joins)
		p.dedent()
		p.write(")")
	}
}

func (p *Printer) formatTableName(t *core.TableName) {
	if !t.Catalog.IsZero() {
		p.ident(t.Catalog)
		p.write(".")
	}
	if !t.Schema.IsZero() {
		p.ident(t.Schema)
		p.write(".")
	}
	p.ident(t.Name)
}

func (p *Printer) formatDerivedTable(t *core.DerivedTable) {
	if t.Lateral {
		p.kw(token.LATERAL)
		p.space()
	}
	p.formatSubquery(t.Select)
	if !t.Alias.IsZero() {
		p.space()
		p.ident(t.Alias)
	}
}

// formatSubquery prints a parenthesized SELECT on indented lines.
func (p *Printer) formatSubquery(s *core.SelectStmt) {
	p.write("(")
	p.writeln()
	p.indent()
	p.formatSelectStmt(s)
	p.writeln()
	p.dedent()
	p.write(")")
}

func (p *Printer) formatJoin(join *core.Join) {
	// NATURAL modifier
	if join.Natural {
		p.kw(token.NATURAL)
		p.space()
	}

	// Data-driven: JoinType string IS the keyword
	if join.Type != core.JoinPlain {
		p.keyword(string(join.Type))
		p.space()
	}
	p.kw(token.JOIN)
	p.space()

	p.formatTableRef(join.Right)

	// USING clause (alternative to ON)
	if len(join.Using) > 0 {
		p.writeln()
		p.indent()
		p.kw(token.USING)
		p.write(" (")
		p.identList(join.Using)
		p.write(")")
		p.dedent()
	} else if join.Condition != nil {
		// ON condition (indented)
		p.writeln()
		p.indent()
		p.kw(token.ON)
		p.space()
		p.formatExpr(join.Condition)
		p.dedent()
	}
	// NATURAL JOIN has neither ON nor USING - nothing to add
}

func (p *Printer) formatOrderByItem(item *core.OrderByItem) {
	p.formatExpr(item.Expr)
	switch {
	case item.Desc:
		p.space()
		p.kw(token.DESC)
	case item.Explicit:
		p.space()
		p.kw(token.ASC)
	}
	if item.NullsFirst != nil {
		p.space()
		p.kw(token.NULLS)
		p.space()
		if *item.NullsFirst {
			p.kw(token.FIRST)
		} else {
			p.kw(token.LAST)
		}
	}
}

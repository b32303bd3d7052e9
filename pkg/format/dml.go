package format

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

func (p *Printer) formatInsert(s *core.InsertStmt) {
	p.kw(token.INSERT, token.INTO)
	p.space()
	p.formatTableName(s.Table)
	if len(s.Columns) > 0 {
		p.write(" (")
		p.identList(s.Columns)
		p.write(")")
	}
	p.writeln()

	if s.Select != nil {
		p.formatSelectStmt(s.Select)
		return
	}

	p.kw(token.VALUES)
	p.writeln()
	p.indent()
	p.formatList(len(s.Values), func(i int) {
		row := s.Values[i]
		p.write("(")
		p.formatList(len(row), func(j int) { p.formatExpr(row[j]) }, ", ", false)
		p.write(")")
	}, ",", true)
	p.dedent()
}

func (p *Printer) formatUpdate(s *core.UpdateStmt) {
	p.kw(token.UPDATE)
	p.space()
	p.formatTableRef(s.Table)
	p.writeln()

	p.kw(token.SET)
	p.writeln()
	p.indent()
	p.formatList(len(s.Set), func(i int) {
		a := s.Set[i]
		p.ident(a.Column)
		p.write(" = ")
		p.formatExpr(a.Value)
	}, ",", true)
	p.writeln()
	p.dedent()

	if s.From != nil {
		p.kw(token.FROM)
		p.space()
		p.formatFromClause(s.From)
		p.writeln()
	}
	p.formatSlot(spi.SlotWhere, s.Where)
}

func (p *Printer) formatDelete(s *core.DeleteStmt) {
	p.kw(token.DELETE, token.FROM)
	p.space()
	p.formatTableRef(s.Table)
	p.writeln()
	p.formatSlot(spi.SlotWhere, s.Where)
}

func (p *Printer) formatCreateTable(s *core.CreateTableStmt) {
	p.kw(token.CREATE)
	if s.OrReplace {
		p.space()
		p.kw(token.OR, token.REPLACE)
	}
	if s.Temporary {
		p.space()
		p.kw(token.TEMPORARY)
	}
	p.space()
	p.kw(token.TABLE)
	if s.IfNotExists {
		p.space()
		p.kw(token.IF, token.NOT, token.EXISTS)
	}
	p.space()
	p.formatTableName(s.Table)

	if s.As != nil {
		p.space()
		p.kw(token.AS)
		p.writeln()
		p.formatSelectStmt(s.As)
		return
	}

	p.write(" (")
	p.writeln()
	p.indent()
	count := len(s.Columns)
	if len(s.PrimaryKey) > 0 {
		count++
	}
	p.formatList(count, func(i int) {
		if i < len(s.Columns) {
			p.formatColumnDef(s.Columns[i])
			return
		}
		p.kw(token.PRIMARY, token.KEY)
		p.write(" (")
		p.identList(s.PrimaryKey)
		p.write(")")
	}, ",", true)
	p.writeln()
	p.dedent()
	p.write(")")
}

func (p *Printer) formatColumnDef(c *core.ColumnDef) {
	p.ident(c.Name)
	p.space()
	p.write(p.typeName(c.Type))
	if c.NotNull {
		p.space()
		p.kw(token.NOT, token.NULL)
	}
	if c.PrimaryKey {
		p.space()
		p.kw(token.PRIMARY, token.KEY)
	}
	if c.Default != nil {
		p.space()
		p.kw(token.DEFAULT)
		p.space()
		p.operand(c.Default, spi.PrecedenceAddition)
	}
}

func (p *Printer) formatDropTable(s *core.DropTableStmt) {
	p.kw(token.DROP, token.TABLE)
	if s.IfExists {
		p.space()
		p.kw(token.IF, token.EXISTS)
	}
	p.space()
	p.formatList(len(s.Tables), func(i int) { p.formatTableName(s.Tables[i]) }, ", ", false)
	if s.Cascade {
		p.write(" CASCADE")
	}
}

// formatCommand writes an unparsed statement back verbatim.
func (p *Printer) formatCommand(s *core.CommandStmt) {
	p.write(s.Keyword)
	if s.Text != "" {
		p.space()
		p.write(s.Text)
	}
}

package parser

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// DML and DDL parsing.
//
// Grammar:
//
//	insert        → INSERT INTO table_name ["(" ident_list ")"] (VALUES row ("," row)* | select_stmt)
//	row           → "(" expr_list ")"
//	update        → UPDATE table_name SET assignment ("," assignment)* [FROM from_clause] [WHERE expr]
//	assignment    → column_ref "=" expr
//	delete        → DELETE FROM table_name [WHERE expr]
//	create_table  → CREATE [OR REPLACE] [TEMP|TEMPORARY] TABLE [IF NOT EXISTS] table_name
//	                ("(" table_elem ("," table_elem)* ")" | AS select_stmt)
//	table_elem    → column_def | PRIMARY KEY "(" ident_list ")"
//	column_def    → identifier type [NOT NULL | NULL | PRIMARY KEY | DEFAULT expr]*
//	drop_table    → DROP TABLE [IF EXISTS] table_name ("," table_name)* [CASCADE]

// parseInsert parses an INSERT statement.
func (p *Parser) parseInsert() *core.InsertStmt {
	start := p.token.Pos
	p.nextToken() // consume INSERT
	if !p.expect(token.INTO) {
		return nil
	}

	stmt := &core.InsertStmt{}
	table, ok := p.parseQualifiedName()
	if !ok {
		return nil
	}
	stmt.Table = table

	if p.check(token.LPAREN) {
		stmt.Columns = p.parseIdentList()
		if p.failed() {
			return nil
		}
	}

	switch {
	case p.match(token.VALUES):
		for {
			if !p.expect(token.LPAREN) {
				return nil
			}
			row := p.parseExpressionList()
			if p.failed() || !p.expect(token.RPAREN) {
				return nil
			}
			stmt.Values = append(stmt.Values, row)
			if !p.match(token.COMMA) {
				break
			}
		}
	case p.check(token.SELECT), p.check(token.WITH):
		stmt.Select = p.parseSelectStmt()
		if stmt.Select == nil {
			return nil
		}
	default:
		p.unexpected("VALUES or SELECT")
		return nil
	}

	p.finish(stmt, start)
	return stmt
}

// parseUpdate parses an UPDATE statement.
func (p *Parser) parseUpdate() *core.UpdateStmt {
	start := p.token.Pos
	p.nextToken() // consume UPDATE

	stmt := &core.UpdateStmt{}
	stmt.Table = p.parseTableName()
	if stmt.Table == nil || !p.expect(token.SET) {
		return nil
	}

	for {
		a := p.parseAssignment()
		if a == nil {
			return nil
		}
		stmt.Set = append(stmt.Set, a)
		if !p.match(token.COMMA) {
			break
		}
	}

	if p.match(token.FROM) {
		stmt.From = p.parseFromClause()
		if stmt.From == nil {
			return nil
		}
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
		if stmt.Where == nil {
			return nil
		}
	}

	p.finish(stmt, start)
	return stmt
}

// parseAssignment parses col = expr. A qualified target keeps its last part.
func (p *Parser) parseAssignment() *core.Assignment {
	start := p.token.Pos
	col, ok := p.expectIdent("column name")
	if !ok {
		return nil
	}
	for p.match(token.DOT) {
		if col, ok = p.expectIdent("column name"); !ok {
			return nil
		}
	}
	if !p.expect(token.EQ) {
		return nil
	}
	a := &core.Assignment{Column: col}
	a.Value = p.parseExpression()
	if a.Value == nil {
		return nil
	}
	p.finish(a, start)
	return a
}

// parseDelete parses a DELETE statement.
func (p *Parser) parseDelete() *core.DeleteStmt {
	start := p.token.Pos
	p.nextToken() // consume DELETE
	if !p.expect(token.FROM) {
		return nil
	}

	stmt := &core.DeleteStmt{}
	stmt.Table = p.parseTableName()
	if stmt.Table == nil {
		return nil
	}
	if p.match(token.WHERE) {
		stmt.Where = p.parseExpression()
		if stmt.Where == nil {
			return nil
		}
	}

	p.finish(stmt, start)
	return stmt
}

// isCreateTable looks past CREATE [OR REPLACE] [TEMP] for TABLE. Other
// CREATE statements are kept as commands.
func (p *Parser) isCreateTable() bool {
	lx := NewLexer(p.src[p.token.Pos.Offset:], p.dialect)
	lx.NextToken() // CREATE
	tok := lx.NextToken()
	if tok.Type == token.OR {
		if lx.NextToken().Type != token.REPLACE {
			return false
		}
		tok = lx.NextToken()
	}
	if tok.Type == token.TEMP || tok.Type == token.TEMPORARY {
		tok = lx.NextToken()
	}
	return tok.Type == token.TABLE
}

// parseCreateTable parses a CREATE TABLE statement.
func (p *Parser) parseCreateTable() *core.CreateTableStmt {
	start := p.token.Pos
	p.nextToken() // consume CREATE

	stmt := &core.CreateTableStmt{}
	if p.match(token.OR) {
		if !p.expect(token.REPLACE) {
			return nil
		}
		stmt.OrReplace = true
	}
	if p.match(token.TEMP) || p.match(token.TEMPORARY) {
		stmt.Temporary = true
	}
	if !p.expect(token.TABLE) {
		return nil
	}
	if p.match(token.IF) {
		if !p.expect(token.NOT) || !p.expect(token.EXISTS) {
			return nil
		}
		stmt.IfNotExists = true
	}

	table, ok := p.parseQualifiedName()
	if !ok {
		return nil
	}
	stmt.Table = table

	switch {
	case p.match(token.AS):
		if !p.check(token.SELECT) && !p.check(token.WITH) {
			p.unexpected("SELECT")
			return nil
		}
		stmt.As = p.parseSelectStmt()
		if stmt.As == nil {
			return nil
		}
	case p.match(token.LPAREN):
		if !p.parseTableElements(stmt) || !p.expect(token.RPAREN) {
			return nil
		}
	default:
		p.unexpected("( or AS")
		return nil
	}

	p.finish(stmt, start)
	return stmt
}

// parseTableElements parses the column and constraint list of CREATE TABLE.
func (p *Parser) parseTableElements(stmt *core.CreateTableStmt) bool {
	for {
		if p.check(token.PRIMARY) {
			p.nextToken()
			if !p.expect(token.KEY) {
				return false
			}
			stmt.PrimaryKey = p.parseIdentList()
			if p.failed() {
				return false
			}
		} else {
			col := p.parseColumnDef()
			if col == nil {
				return false
			}
			stmt.Columns = append(stmt.Columns, col)
		}
		if !p.match(token.COMMA) {
			return true
		}
	}
}

// parseColumnDef parses a column definition with its inline constraints.
func (p *Parser) parseColumnDef() *core.ColumnDef {
	start := p.token.Pos
	name, ok := p.expectIdent("column name")
	if !ok {
		return nil
	}
	col := &core.ColumnDef{Name: name}
	col.Type = p.parseDataType()
	if col.Type == nil {
		return nil
	}

	for {
		switch {
		case p.check(token.NOT) && p.checkPeek(token.NULL):
			p.nextToken()
			p.nextToken()
			col.NotNull = true
		case p.match(token.NULL):
			col.NotNull = false
		case p.check(token.PRIMARY):
			p.nextToken()
			if !p.expect(token.KEY) {
				return nil
			}
			col.PrimaryKey = true
		case p.match(token.DEFAULT):
			col.Default = p.parseExpressionWithPrecedence(spi.PrecedenceAddition)
			if col.Default == nil {
				return nil
			}
		default:
			p.finish(col, start)
			return col
		}
	}
}

// parseDropTable parses a DROP TABLE statement.
func (p *Parser) parseDropTable() *core.DropTableStmt {
	start := p.token.Pos
	p.nextToken() // consume DROP
	p.nextToken() // consume TABLE

	stmt := &core.DropTableStmt{}
	if p.match(token.IF) {
		if !p.expect(token.EXISTS) {
			return nil
		}
		stmt.IfExists = true
	}

	for {
		table, ok := p.parseQualifiedName()
		if !ok {
			return nil
		}
		stmt.Tables = append(stmt.Tables, table)
		if !p.match(token.COMMA) {
			break
		}
	}

	if p.check(token.IDENT) && !p.token.Quoted && strings.EqualFold(p.token.Literal, "CASCADE") {
		p.nextToken()
		stmt.Cascade = true
	}

	p.finish(stmt, start)
	return stmt
}

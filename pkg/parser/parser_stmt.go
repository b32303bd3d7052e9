package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// Statement parsing: WITH clause, CTEs, SELECT body, SELECT list, ORDER BY.
//
// Grammar:
//
//	statement     → [WITH cte_list] select_body
//	cte_list      → cte ("," cte)*
//	cte           → identifier ["(" ident_list ")"] AS "(" statement ")"
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL|DISTINCT] select_body]
//	select_core   → SELECT [DISTINCT|ALL] select_list
//	                [FROM from_clause]
//	                [clauses based on dialect sequence]
//	select_list   → select_item ("," select_item)*
//	select_item   → "*" | table "." "*" | expr [[AS] identifier]
//	order_list    → order_item ("," order_item)*
//	order_item    → expr [ASC|DESC] [NULLS FIRST|LAST]
//
// The parser uses dialect.ClauseSequence() and dialect.ClauseDef() to
// parse clauses in the correct order for the current dialect, and to
// reject unsupported clauses (like QUALIFY in Postgres).
//
// ORDER BY, LIMIT and OFFSET written after the last SELECT of a set
// operation apply to the whole statement and are moved onto SelectStmt.

// parseStatement dispatches on the leading keyword.
func (p *Parser) parseStatement() core.Stmt {
	comments := p.takeComments(p.token.Pos.Offset)

	var stmt core.Stmt
	switch p.token.Type {
	case token.SELECT, token.WITH:
		stmt = p.parseSelectStmt()
	case token.INSERT:
		stmt = p.parseInsert()
	case token.UPDATE:
		stmt = p.parseUpdate()
	case token.DELETE:
		stmt = p.parseDelete()
	case token.CREATE:
		if p.isCreateTable() {
			stmt = p.parseCreateTable()
		} else {
			stmt = p.parseCommand()
		}
	case token.DROP:
		if p.checkPeek(token.TABLE) {
			stmt = p.parseDropTable()
		} else {
			stmt = p.parseCommand()
		}
	case token.LPAREN:
		if p.checkPeek(token.SELECT) {
			stmt = p.parseSelectStmt()
			break
		}
		p.unexpected("statement")
		return nil
	default:
		// Only the dialect's command words start an opaque command, so a
		// misspelled keyword is reported instead of accepted.
		word := (p.token.Type == token.IDENT && !p.token.Quoted) || token.IsKeyword(p.token.Type)
		if word && p.dialect.IsCommand(p.token.Literal) {
			stmt = p.parseCommand()
			break
		}
		p.unexpected("statement")
		return nil
	}

	if stmt == nil || p.failed() {
		return nil
	}
	// Comments inside the statement are not kept on any node.
	p.takeComments(p.prevEnd.Offset)
	attachComments(stmt, comments)
	return stmt
}

// attachComments stores leading comments on the statement node.
func attachComments(stmt core.Stmt, comments []*token.Comment) {
	if len(comments) == 0 {
		return
	}
	switch s := stmt.(type) {
	case *core.SelectStmt:
		s.Comments = comments
	case *core.InsertStmt:
		s.Comments = comments
	case *core.UpdateStmt:
		s.Comments = comments
	case *core.DeleteStmt:
		s.Comments = comments
	case *core.CreateTableStmt:
		s.Comments = comments
	case *core.DropTableStmt:
		s.Comments = comments
	case *core.CommandStmt:
		s.Comments = comments
	}
}

// parseSelectStmt parses a complete SELECT statement.
func (p *Parser) parseSelectStmt() *core.SelectStmt {
	ok := p.enter()
	defer p.leave()
	if !ok {
		return nil
	}

	start := p.token.Pos
	stmt := &core.SelectStmt{}

	// Optional WITH clause
	if p.check(token.WITH) {
		stmt.With = p.parseWithClause()
	}

	// Required SELECT body
	stmt.Body = p.parseSelectBody()

	if stmt.IsSetOperation() {
		p.hoistSetOperationClauses(stmt)
	}
	p.finish(stmt, start)
	return stmt
}

// hoistSetOperationClauses moves trailing ORDER BY / LIMIT / OFFSET from the
// last core of a set operation to the statement.
func (p *Parser) hoistSetOperationClauses(stmt *core.SelectStmt) {
	cores := stmt.Cores()
	last := cores[len(cores)-1]
	stmt.OrderBy, last.OrderBy = last.OrderBy, nil
	stmt.Limit, last.Limit = last.Limit, nil
	stmt.Offset, last.Offset = last.Offset, nil
}

// parseWithClause parses a WITH clause with CTEs.
func (p *Parser) parseWithClause() *core.WithClause {
	start := p.token.Pos
	p.expect(token.WITH)
	with := &core.WithClause{}

	// Optional RECURSIVE
	if p.match(token.RECURSIVE) {
		with.Recursive = true
	}

	// Parse CTE list
	for {
		cte := p.parseCTE()
		if cte == nil {
			break
		}
		with.CTEs = append(with.CTEs, cte)

		if !p.match(token.COMMA) {
			break
		}
	}

	p.finish(with, start)
	return with
}

// parseCTE parses a single CTE.
func (p *Parser) parseCTE() *core.CTE {
	start := p.token.Pos
	cte := &core.CTE{}

	// CTE name
	name, ok := p.expectIdent("CTE name")
	if !ok {
		return nil
	}
	cte.Name = name

	// Optional column list
	if p.check(token.LPAREN) {
		cte.Columns = p.parseIdentList()
	}

	// AS ( SelectStatement )
	if !p.expect(token.AS) || !p.expect(token.LPAREN) {
		return nil
	}
	cte.Select = p.parseSelectStmt()
	if cte.Select == nil || !p.expect(token.RPAREN) {
		return nil
	}

	p.finish(cte, start)
	return cte
}

// parseIdentList parses "(" ident ("," ident)* ")".
func (p *Parser) parseIdentList() []core.Ident {
	p.expect(token.LPAREN)
	var ids []core.Ident
	for {
		id, ok := p.expectIdent("column name")
		if !ok {
			return ids
		}
		ids = append(ids, id)
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return ids
}

// parseSelectBody parses a SELECT body with possible set operations.
func (p *Parser) parseSelectBody() *core.SelectBody {
	start := p.token.Pos
	body := &core.SelectBody{}
	body.Left = p.parseSelectCore()
	if body.Left == nil {
		return body
	}

	// Check for set operations
	switch p.token.Type {
	case token.UNION:
		p.nextToken()
		body.Op = core.SetOpUnion
		if p.match(token.ALL) {
			body.All = true
		} else {
			p.match(token.DISTINCT) // optional
		}
	case token.INTERSECT:
		p.nextToken()
		body.Op = core.SetOpIntersect
		body.All = p.match(token.ALL)
	case token.EXCEPT:
		p.nextToken()
		body.Op = core.SetOpExcept
		body.All = p.match(token.ALL)
	}

	if body.Op != core.SetOpNone {
		// Parse the right side (recursively for chained operations)
		body.Right = p.parseSelectBody()
	}

	p.finish(body, start)
	return body
}

// parseSelectCore parses a single SELECT clause. A parenthesized SELECT
// without clauses of its own is accepted as a set operation operand.
func (p *Parser) parseSelectCore() *core.SelectCore {
	if p.check(token.LPAREN) && p.checkPeek(token.SELECT) {
		p.nextToken()
		c := p.parseSelectCore()
		p.expect(token.RPAREN)
		return c
	}

	start := p.token.Pos
	if !p.expect(token.SELECT) {
		return nil
	}
	sc := &core.SelectCore{}

	// DISTINCT / ALL
	if p.match(token.DISTINCT) {
		sc.Distinct = true
	} else {
		p.match(token.ALL) // optional, consume if present
	}

	// SELECT list
	sc.Columns = p.parseSelectList()
	if p.failed() {
		return sc
	}

	if p.match(token.FROM) {
		sc.From = p.parseFromClause()
	}

	// Parse optional clauses using dialect-driven approach
	p.parseClauses(sc)

	p.finish(sc, start)
	return sc
}

// parseClauses parses clauses using dialect.ClauseDef() for both
// parsing logic and slot-based assignment. This is fully declarative -
// no hardcoded clause knowledge in the parser.
func (p *Parser) parseClauses(sc *core.SelectCore) {
	sequence := p.dialect.ClauseSequence()
	next := 0 // clauses must follow the sequence order

	for !p.failed() {
		matched := false

		// Try to match against any remaining clause in the sequence
		for i := next; i < len(sequence); i++ {
			clauseType := sequence[i]
			if !p.check(clauseType) {
				continue
			}
			def, ok := p.dialect.ClauseDef(clauseType)
			if !ok {
				p.addError(fmt.Sprintf(ErrNoClauseHandler, clauseType, p.dialect.Name))
				return
			}

			p.nextToken() // consume clause keyword

			mark := len(p.errors)
			result, err := def.Handler(p)
			if err != nil && len(p.errors) == mark {
				p.addError(err.Error())
			}
			if p.failed() {
				return
			}

			p.assignToSlot(sc, def.Slot, result)
			next = i + 1
			matched = true
			break
		}
		if matched {
			continue
		}

		// Check for unsupported clause (known globally but not in this dialect)
		if name, isKnown := p.knownClause(p.token); isKnown && !p.dialect.IsClauseToken(p.clauseToken(p.token)) {
			p.addError(fmt.Sprintf(ErrUnsupportedClause, name, p.dialect.Name))
		}
		return
	}
}

// clauseToken returns the token a clause keyword would have in a dialect
// that declares it.
func (p *Parser) clauseToken(tok token.Token) token.TokenType {
	if tok.Type == token.IDENT && !tok.Quoted {
		if t, ok := token.LookupDynamicKeyword(tok.Literal); ok {
			return t
		}
	}
	return tok.Type
}

// knownClause reports whether tok starts a clause in any registered dialect.
func (p *Parser) knownClause(tok token.Token) (string, bool) {
	if tok.Type == token.IDENT && tok.Quoted {
		return "", false
	}
	return dialect.IsKnownClause(p.clauseToken(tok))
}

// assignToSlot stores the parsed clause result in the appropriate SelectCore field.
// This uses the declarative ClauseSlot enum to determine where to store data.
func (p *Parser) assignToSlot(sc *core.SelectCore, slot spi.ClauseSlot, result any) {
	if result == nil {
		return
	}

	switch slot {
	case spi.SlotWhere:
		if expr, ok := result.(core.Expr); ok {
			sc.Where = expr
		}

	case spi.SlotGroupBy:
		if exprs, ok := result.([]core.Expr); ok {
			sc.GroupBy = exprs
		}

	case spi.SlotHaving:
		if expr, ok := result.(core.Expr); ok {
			sc.Having = expr
		}

	case spi.SlotWindow:
		if defs, ok := result.([]*core.WindowDef); ok {
			sc.Windows = append(sc.Windows, defs...)
		}

	case spi.SlotQualify:
		if expr, ok := result.(core.Expr); ok {
			sc.Qualify = expr
		}

	case spi.SlotOrderBy:
		if items, ok := result.([]*core.OrderByItem); ok {
			sc.OrderBy = items
		}

	case spi.SlotLimit:
		switch v := result.(type) {
		case *dialect.LimitClause:
			sc.Limit = v.Count
			sc.Offset = v.Offset
		case core.Expr:
			sc.Limit = v
		}

	case spi.SlotOffset:
		if expr, ok := result.(core.Expr); ok {
			sc.Offset = expr
		}
	}
}

// parseSelectList parses the list of SELECT items.
func (p *Parser) parseSelectList() []*core.SelectItem {
	var items []*core.SelectItem

	for {
		item := p.parseSelectItem()
		if item == nil {
			return items
		}
		items = append(items, item)

		if !p.match(token.COMMA) {
			break
		}
	}

	return items
}

// parseSelectItem parses a single SELECT item.
func (p *Parser) parseSelectItem() *core.SelectItem {
	start := p.token.Pos
	item := &core.SelectItem{}

	// Check for *
	if p.check(token.STAR) {
		p.nextToken()
		star := &core.StarExpr{}
		p.finish(star, start)
		item.Expr = star
		p.finish(item, start)
		return item
	}

	// Check for table.* pattern using 3-token lookahead (no rollback needed)
	if p.isName(p.token) && p.checkPeek(token.DOT) && p.checkPeek2(token.STAR) {
		table := p.ident()
		p.nextToken() // consume DOT
		p.nextToken() // consume STAR
		star := &core.StarExpr{Table: table}
		p.finish(star, start)
		item.Expr = star
		p.finish(item, start)
		return item
	}

	// Regular expression
	item.Expr = p.parseExpression()
	if item.Expr == nil {
		return nil
	}

	item.Alias = p.parseAlias()
	p.finish(item, start)
	return item
}

// parseAlias parses an optional [AS] alias. A string literal is accepted as
// an alias after AS.
func (p *Parser) parseAlias() core.Ident {
	if p.match(token.AS) {
		if p.check(token.STRING) {
			id := core.Ident{Name: p.token.Literal, Quoted: true}
			p.nextToken()
			return id
		}
		id, _ := p.expectIdent("alias after AS")
		return id
	}
	if p.isAliasCandidate(p.token) {
		return p.ident()
	}
	return core.Ident{}
}

// parseOrderByList parses a list of ORDER BY items.
func (p *Parser) parseOrderByList() []*core.OrderByItem {
	var items []*core.OrderByItem

	for {
		item := p.parseOrderByItem()
		if item == nil {
			return items
		}
		items = append(items, item)

		if !p.match(token.COMMA) {
			break
		}
	}

	return items
}

// parseOrderByItem parses a single ORDER BY item.
func (p *Parser) parseOrderByItem() *core.OrderByItem {
	start := p.token.Pos
	item := &core.OrderByItem{}
	item.Expr = p.parseExpression()
	if item.Expr == nil {
		return nil
	}

	// ASC / DESC
	if p.match(token.ASC) {
		item.Explicit = true
	} else if p.match(token.DESC) {
		item.Desc = true
		item.Explicit = true
	}

	// NULLS FIRST / LAST
	if p.match(token.NULLS) {
		switch {
		case p.match(token.FIRST):
			b := true
			item.NullsFirst = &b
		case p.match(token.LAST):
			b := false
			item.NullsFirst = &b
		default:
			p.unexpected("FIRST or LAST")
		}
	}

	p.finish(item, start)
	return item
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []core.Expr {
	var exprs []core.Expr

	for {
		expr := p.parseExpression()
		if expr == nil {
			return exprs
		}
		exprs = append(exprs, expr)

		if !p.match(token.COMMA) {
			break
		}
	}

	return exprs
}

// parseCommand captures a statement outside the grammar verbatim up to the
// next top-level semicolon.
func (p *Parser) parseCommand() *core.CommandStmt {
	start := p.token.Pos
	cmd := &core.CommandStmt{Keyword: strings.ToUpper(p.token.Literal)}
	p.nextToken()

	textStart := p.token.Pos.Offset
	depth := 0
	for !p.check(token.EOF) && !p.check(token.ILLEGAL) {
		if p.check(token.SEMICOLON) && depth == 0 {
			break
		}
		switch p.token.Type {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		p.nextToken()
	}
	if p.check(token.ILLEGAL) {
		p.addError(p.token.Literal)
		return nil
	}
	if p.prevEnd.Offset > textStart {
		cmd.Text = strings.TrimSpace(p.src[textStart:p.prevEnd.Offset])
	}
	p.finish(cmd, start)
	return cmd
}

package parser

import (
	"slices"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// FROM clause parsing: table references, derived tables, lateral joins, JOINs.
//
// Grammar:
//
//	from_clause   → table_ref (join | dangling_on)*
//	table_ref     → table_name | derived_table | lateral_table | joined_table
//	table_name    → [catalog "."] [schema "."] identifier [[AS] identifier]
//	derived_table → "(" statement ")" [AS] identifier
//	lateral_table → LATERAL "(" statement ")" [AS] identifier
//	joined_table  → "(" table_ref (join | dangling_on)* ")"
//	join          → [NATURAL] join_type JOIN table_ref [ON expr | USING "(" ident_list ")"]
//	              | "," table_ref
//	join_type     → [INNER] | LEFT [OUTER] | RIGHT [OUTER] | FULL [OUTER] | CROSS
//	dangling_on   → ON expr
//
// A dangling ON closes the nearest preceding join that still lacks a
// condition. The joins after it become its nested right-hand side, so
// a LEFT JOIN b JOIN c ON x ON y reads as a LEFT JOIN (b JOIN c ON x) ON y.

// parseFromClause parses the FROM clause.
func (p *Parser) parseFromClause() *core.FromClause {
	start := p.token.Pos
	from := &core.FromClause{}
	from.Source = p.parseTableRef()
	if from.Source == nil {
		return nil
	}
	var ok bool
	if from.Joins, ok = p.parseJoins(); !ok {
		return nil
	}
	p.finish(from, start)
	return from
}

// parseJoins parses the joins following a FROM item.
func (p *Parser) parseJoins() ([]*core.Join, bool) {
	var joins []*core.Join
	for !p.failed() {
		if p.check(token.ON) {
			var ok bool
			if joins, ok = p.attachDanglingOn(joins); !ok {
				return nil, false
			}
			continue
		}
		join := p.parseJoin()
		if join == nil {
			break
		}
		joins = append(joins, join)
	}
	return joins, !p.failed()
}

// attachDanglingOn parses ON expr and binds it to the nearest preceding
// join without a condition, nesting the joins after it into its right
// side.
func (p *Parser) attachDanglingOn(joins []*core.Join) ([]*core.Join, bool) {
	for i := len(joins) - 1; i >= 0; i-- {
		j := joins[i]
		if !acceptsCondition(j) {
			continue
		}
		if inner := joins[i+1:]; len(inner) > 0 {
			nested := &core.JoinedTable{Source: j.Right, Joins: slices.Clone(inner)}
			nested.Span = token.Span{Start: j.Right.Pos(), End: inner[len(inner)-1].End()}
			j.Right = nested
			joins = joins[:i+1]
		}
		p.nextToken() // consume ON
		j.Condition = p.parseExpression()
		if j.Condition == nil {
			return nil, false
		}
		j.Span = j.Span.Cover(p.span(j.Pos()))
		return joins, true
	}
	p.addError(ErrDanglingOn)
	return nil, false
}

// acceptsCondition reports whether ON may still be attached to j.
func acceptsCondition(j *core.Join) bool {
	if j.Condition != nil || j.Using != nil || j.Natural {
		return false
	}
	return j.Type != core.JoinCross && j.Type != core.JoinComma
}

// parseTableRef parses a table reference.
func (p *Parser) parseTableRef() core.TableRef {
	start := p.token.Pos

	// LATERAL subquery
	if p.match(token.LATERAL) {
		if !p.check(token.LPAREN) {
			p.unexpected("( after LATERAL")
			return nil
		}
		derived := p.parseDerivedTable(start)
		if derived == nil {
			return nil
		}
		derived.Lateral = true
		return derived
	}

	if p.check(token.LPAREN) {
		// Derived table (subquery)
		if p.checkPeek(token.SELECT) || p.checkPeek(token.WITH) {
			return p.parseDerivedTable(start)
		}
		return p.parseJoinedTable(start)
	}

	// Simple table name
	return p.parseTableName()
}

// parseJoinedTable parses a parenthesized join tree. A parenthesized
// single table yields the table itself.
func (p *Parser) parseJoinedTable(start token.Position) core.TableRef {
	ok := p.enter()
	defer p.leave()
	if !ok {
		return nil
	}

	p.expect(token.LPAREN)
	source := p.parseTableRef()
	if source == nil {
		return nil
	}
	joins, ok := p.parseJoins()
	if !ok || !p.expect(token.RPAREN) {
		return nil
	}
	if len(joins) == 0 {
		return source
	}
	jt := &core.JoinedTable{Source: source, Joins: joins}
	p.finish(jt, start)
	return jt
}

// parseTableName parses a table name with optional schema/catalog and alias.
func (p *Parser) parseTableName() *core.TableName {
	start := p.token.Pos
	table, ok := p.parseQualifiedName()
	if !ok {
		return nil
	}
	table.Alias = p.parseAlias()
	if p.failed() {
		return nil
	}
	p.finish(table, start)
	return table
}

// parseQualifiedName parses [catalog "."] [schema "."] name without an alias.
func (p *Parser) parseQualifiedName() (*core.TableName, bool) {
	start := p.token.Pos
	first, ok := p.expectIdent("table name")
	if !ok {
		return nil, false
	}

	// Parse potentially qualified name: catalog.schema.table
	parts := []core.Ident{first}
	for p.match(token.DOT) {
		if p.token.Type != token.IDENT && !token.IsKeyword(p.token.Type) {
			p.unexpected("name after \".\"")
			return nil, false
		}
		parts = append(parts, p.ident())
	}

	table := &core.TableName{}
	switch len(parts) {
	case 1:
		table.Name = parts[0]
	case 2:
		table.Schema = parts[0]
		table.Name = parts[1]
	case 3:
		table.Catalog = parts[0]
		table.Schema = parts[1]
		table.Name = parts[2]
	default:
		p.addError("too many name parts in table reference")
		return nil, false
	}
	p.finish(table, start)
	return table, true
}

// parseDerivedTable parses a derived table (subquery in FROM).
func (p *Parser) parseDerivedTable(start token.Position) *core.DerivedTable {
	p.expect(token.LPAREN)
	if !p.check(token.SELECT) && !p.check(token.WITH) {
		p.unexpected("SELECT")
		return nil
	}
	derived := &core.DerivedTable{}
	derived.Select = p.parseSelectStmt()
	if derived.Select == nil || !p.expect(token.RPAREN) {
		return nil
	}

	derived.Alias = p.parseAlias()
	if p.failed() {
		return nil
	}
	p.finish(derived, start)
	return derived
}

// parseJoin parses a JOIN clause. It returns nil without error when the
// current token does not start a join.
func (p *Parser) parseJoin() *core.Join {
	start := p.token.Pos
	join := &core.Join{}

	// Comma join (implicit cross join) - hardcoded special case
	if p.match(token.COMMA) {
		join.Type = core.JoinComma
		join.Right = p.parseTableRef()
		if join.Right == nil {
			return nil
		}
		p.finish(join, start)
		return join
	}

	if !p.check(token.NATURAL) && !p.check(token.JOIN) && !p.dialect.IsJoinTypeToken(p.token.Type) {
		return nil
	}

	// Check for NATURAL modifier first
	if p.match(token.NATURAL) {
		join.Natural = true
	}

	// Try dialect join type lookup (covers standard + extensions)
	if def, ok := p.dialect.JoinTypeDef(p.token.Type); ok {
		join.Type = core.JoinType(def.Type)
		p.nextToken()

		// Handle optional modifier (OUTER for LEFT/RIGHT/FULL)
		if def.OptionalToken != 0 {
			p.match(def.OptionalToken)
		}
	}

	if !p.expect(token.JOIN) {
		return nil
	}

	join.Right = p.parseTableRef()
	if join.Right == nil {
		return nil
	}
	p.parseJoinCondition(join)
	if p.failed() {
		return nil
	}
	p.finish(join, start)
	return join
}

// parseJoinCondition handles ON/USING/NATURAL validation.
func (p *Parser) parseJoinCondition(join *core.Join) {
	switch {
	case join.Natural:
		// NATURAL JOIN cannot have ON or USING
		if p.check(token.ON) {
			p.addError("NATURAL JOIN cannot have ON clause")
		}
		if p.check(token.USING) {
			p.addError("NATURAL JOIN cannot have USING clause")
		}
	case join.Type == core.JoinCross:
		if p.check(token.USING) {
			p.addError("CROSS JOIN cannot have USING clause")
		}
	case p.match(token.ON):
		join.Condition = p.parseExpression()
	case p.check(token.USING):
		p.nextToken()
		join.Using = p.parseIdentList()
	}
}

package parser

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// Special expression parsing: CASE, CAST, EXISTS, parenthesized expressions, subqueries.
//
// Grammar:
//
//	case_expr     → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
//	cast_expr     → CAST "(" expr AS type_name ")"
//	exists_expr   → [NOT] EXISTS "(" statement ")"
//	paren_expr    → "(" expression ")" | "(" statement ")"  -- subquery if SELECT/WITH
//	type_name     → name [name] ["(" param ("," param)* ")"] ["[" "]"]

// parseCaseExpr parses a CASE expression.
func (p *Parser) parseCaseExpr() core.Expr {
	p.expect(token.CASE)
	caseExpr := &core.CaseExpr{}

	// Simple CASE: CASE expr WHEN ...
	if !p.check(token.WHEN) {
		caseExpr.Operand = p.parseExpression()
		if caseExpr.Operand == nil {
			return nil
		}
	}

	// WHEN clauses
	for p.check(token.WHEN) {
		start := p.token.Pos
		p.nextToken()
		when := &core.WhenClause{}
		when.Condition = p.parseExpression()
		if when.Condition == nil || !p.expect(token.THEN) {
			return nil
		}
		when.Result = p.parseExpression()
		if when.Result == nil {
			return nil
		}
		p.finish(when, start)
		caseExpr.Whens = append(caseExpr.Whens, when)
	}
	if len(caseExpr.Whens) == 0 {
		p.unexpected("WHEN")
		return nil
	}

	// ELSE clause
	if p.match(token.ELSE) {
		caseExpr.Else = p.parseExpression()
		if caseExpr.Else == nil {
			return nil
		}
	}

	if !p.expect(token.END) {
		return nil
	}
	return caseExpr
}

// parseCastExpr parses a CAST expression.
func (p *Parser) parseCastExpr() core.Expr {
	p.expect(token.CAST)
	if !p.expect(token.LPAREN) {
		return nil
	}

	cast := &core.CastExpr{}
	cast.Expr = p.parseExpression()
	if cast.Expr == nil || !p.expect(token.AS) {
		return nil
	}

	cast.Type = p.parseDataType()
	if cast.Type == nil || !p.expect(token.RPAREN) {
		return nil
	}
	return cast
}

// multiWordTypes lists second words that extend a type name.
var multiWordTypes = map[string][]string{
	"DOUBLE":    {"PRECISION"},
	"CHARACTER": {"VARYING"},
}

// parseDataType parses a type name with optional parameters and maps it to
// its canonical name.
func (p *Parser) parseDataType() *core.DataType {
	if p.token.Type != token.IDENT && !token.IsKeyword(p.token.Type) {
		p.unexpected("type name")
		return nil
	}

	name := p.token.Literal
	p.nextToken()

	upper := strings.ToUpper(name)
	for _, next := range multiWordTypes[upper] {
		if p.check(token.IDENT) && strings.EqualFold(p.token.Literal, next) {
			name = upper + " " + next
			p.nextToken()
		}
	}
	// TIMESTAMP WITH TIME ZONE / WITHOUT TIME ZONE
	if (upper == "TIMESTAMP" || upper == "TIME") && p.isTimeZoneSuffix() {
		with := p.check(token.WITH)
		p.nextToken()
		p.nextToken()
		p.nextToken()
		if with {
			name = upper + " WITH TIME ZONE"
		} else {
			name = upper
		}
	}

	dt := &core.DataType{Name: p.dialect.CanonicalType(name)}
	if p.dialect.Identifiers.Normalization == dialect.NormCaseSensitive && dt.Name == strings.ToUpper(name) {
		// Keep spellings like Nullable or LowCardinality.
		dt.Name = name
	}

	// Type parameters like VARCHAR(255), DECIMAL(10, 2) or Nullable(String)
	if p.match(token.LPAREN) {
		for {
			param := p.parseTypeParam()
			if p.failed() {
				return nil
			}
			dt.Params = append(dt.Params, param)
			if !p.match(token.COMMA) {
				break
			}
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
	}

	// Array suffix: INT[]
	for p.check(token.LBRACKET) && p.checkPeek(token.RBRACKET) {
		p.nextToken()
		p.nextToken()
		dt.Name += "[]"
	}
	return dt
}

func (p *Parser) isTimeZoneSuffix() bool {
	first := p.check(token.WITH) || (p.check(token.IDENT) && strings.EqualFold(p.token.Literal, "WITHOUT"))
	return first &&
		p.peek.Type == token.IDENT && strings.EqualFold(p.peek.Literal, "TIME") &&
		p.peek2.Type == token.IDENT && strings.EqualFold(p.peek2.Literal, "ZONE")
}

// parseTypeParam reads one type parameter as text: a number, a name or a
// nested type.
func (p *Parser) parseTypeParam() string {
	switch {
	case p.check(token.NUMBER):
		lit := p.token.Literal
		p.nextToken()
		return lit
	case p.check(token.MINUS) && p.checkPeek(token.NUMBER):
		p.nextToken()
		lit := "-" + p.token.Literal
		p.nextToken()
		return lit
	case p.check(token.STRING):
		lit := "'" + strings.ReplaceAll(p.token.Literal, "'", "''") + "'"
		p.nextToken()
		return lit
	default:
		dt := p.parseDataType()
		if dt == nil {
			return ""
		}
		return dt.String()
	}
}

// parseParenExpr parses a parenthesized expression or a scalar subquery.
func (p *Parser) parseParenExpr() core.Expr {
	p.expect(token.LPAREN)

	// Check if this is a subquery
	if p.check(token.SELECT) || p.check(token.WITH) {
		sel := p.parseSelectStmt()
		if sel == nil || !p.expect(token.RPAREN) {
			return nil
		}
		return &core.SubqueryExpr{Select: sel}
	}

	expr := p.parseExpression()
	if expr == nil || !p.expect(token.RPAREN) {
		return nil
	}
	return &core.ParenExpr{Expr: expr}
}

// parseExistsExpr parses an EXISTS expression; NOT, if any, is consumed.
func (p *Parser) parseExistsExpr(not bool, start token.Position) core.Expr {
	p.expect(token.EXISTS)

	if !p.expect(token.LPAREN) {
		return nil
	}
	sel := p.parseSelectStmt()
	if sel == nil || !p.expect(token.RPAREN) {
		return nil
	}
	exists := &core.ExistsExpr{Not: not, Select: sel}
	p.finish(exists, start)
	return exists
}

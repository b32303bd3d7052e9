package parser

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// Primary expression parsing: literals, column refs, function calls.
//
// Grammar:
//
//	primary       → literal | column_ref | func_call | paren_expr | case_expr
//	              | cast_expr | exists_expr | list_literal | placeholder
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL
//	column_ref    → [[schema "."] table "."] column
//	func_call     → name ["." name] "(" [DISTINCT|ALL] [expr_list | "*"] ")"
//	                [FILTER "(" WHERE expr ")"] [OVER window_spec]
//	list_literal  → ARRAY "[" [expr_list] "]" | dialect prefix handler ("[")

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() core.Expr {
	start := p.token.Pos

	// Check for dialect-specific prefix handlers first
	if handler := p.dialect.PrefixHandler(p.token.Type); handler != nil {
		p.nextToken() // consume the prefix token
		mark := len(p.errors)
		expr, err := handler(p)
		if err != nil {
			if len(p.errors) == mark {
				p.addError(err.Error())
			}
			return nil
		}
		if expr == nil {
			p.unexpected("expression")
			return nil
		}
		if n, ok := expr.(spanned); ok {
			p.finish(n, start)
		}
		return expr
	}

	var expr core.Expr
	switch p.token.Type {
	case token.NUMBER:
		expr = p.parseNumber()

	case token.STRING:
		expr = &core.Literal{Type: core.LiteralString, Value: p.token.Literal}
		p.nextToken()

	case token.TRUE:
		p.nextToken()
		expr = core.NewBool(true)

	case token.FALSE:
		p.nextToken()
		expr = core.NewBool(false)

	case token.NULL:
		p.nextToken()
		expr = core.NewNull()

	case token.PARAM:
		expr = &core.Placeholder{Text: p.token.Literal}
		p.nextToken()

	case token.CASE:
		expr = p.parseCaseExpr()

	case token.CAST:
		expr = p.parseCastExpr()

	case token.EXISTS:
		return p.parseExistsExpr(false, start)

	case token.LPAREN:
		expr = p.parseParenExpr()

	case token.LEFT, token.RIGHT, token.REPLACE, token.IF:
		// Keywords that double as function names
		if !p.checkPeek(token.LPAREN) {
			if p.isName(p.token) {
				expr = p.parseIdentifierExpr()
				break
			}
			p.unexpected("expression")
			return nil
		}
		name := p.token.Literal
		p.nextToken()
		expr = p.parseFuncCall("", name, start)

	default:
		if p.isName(p.token) {
			expr = p.parseIdentifierExpr()
			break
		}
		p.unexpected("expression")
		return nil
	}

	if expr == nil {
		return nil
	}
	if n, ok := expr.(spanned); ok {
		p.finish(n, start)
	}
	return expr
}

// parseNumber parses a numeric literal. A dialect type suffix (10L) becomes
// a cast of the bare number.
func (p *Parser) parseNumber() core.Expr {
	start := p.token.Pos
	text := p.token.Literal
	p.nextToken()

	digits, typ, ok := p.dialect.NumericSuffix(text)
	if !ok {
		return &core.Literal{Type: core.LiteralNumber, Value: text}
	}
	lit := &core.Literal{Type: core.LiteralNumber, Value: digits}
	p.finish(lit, start)
	return &core.CastExpr{Expr: lit, Type: &core.DataType{Name: typ}}
}

// parseIdentifierExpr parses an identifier which could be a column ref, a
// function call, a niladic function or an ARRAY[...] literal.
func (p *Parser) parseIdentifierExpr() core.Expr {
	start := p.token.Pos
	first := p.token
	p.nextToken()

	// Check if it's a function call
	if p.check(token.LPAREN) {
		return p.parseFuncCall("", first.Literal, start)
	}

	if !first.Quoted {
		upper := strings.ToUpper(first.Literal)
		if upper == "ARRAY" && p.check(token.LBRACKET) {
			p.nextToken()
			list, err := dialect.ParseBracketList(p)
			if err != nil {
				return nil
			}
			return list
		}
		if dialect.NiladicFunctions[upper] && !p.check(token.DOT) {
			return &core.FuncCall{Name: upper, Niladic: true}
		}
	}

	// Qualified column reference: table.column or schema.table.column
	if p.check(token.DOT) {
		return p.parseQualifiedRef(first, start)
	}

	// Simple column reference
	return &core.ColumnRef{Column: core.Ident{Name: first.Literal, Quoted: first.Quoted}}
}

// parseQualifiedRef parses a dotted reference after its first part.
func (p *Parser) parseQualifiedRef(first token.Token, start token.Position) core.Expr {
	parts := []core.Ident{{Name: first.Literal, Quoted: first.Quoted}}

	for p.match(token.DOT) {
		// Check for table.*
		if p.check(token.STAR) {
			if len(parts) > 1 {
				p.unexpected("column name")
				return nil
			}
			p.nextToken()
			return &core.StarExpr{Table: parts[0]}
		}

		if p.token.Type != token.IDENT && !token.IsKeyword(p.token.Type) {
			p.unexpected("name after \".\"")
			return nil
		}
		tok := p.token
		p.nextToken()

		// schema.function(...)
		if p.check(token.LPAREN) && len(parts) == 1 {
			return p.parseFuncCall(parts[0].Name, tok.Literal, start)
		}
		parts = append(parts, core.Ident{Name: tok.Literal, Quoted: tok.Quoted})
	}

	// Build column reference
	ref := &core.ColumnRef{}
	switch len(parts) {
	case 2:
		ref.Table = parts[0]
		ref.Column = parts[1]
	case 3:
		ref.Schema = parts[0]
		ref.Table = parts[1]
		ref.Column = parts[2]
	default:
		p.addError("too many name parts in column reference")
		return nil
	}

	return ref
}

// functionName maps a written function name to its canonical name. Names a
// case-sensitive dialect has no mapping for keep their spelling.
func (p *Parser) functionName(written string) string {
	canon := p.dialect.CanonicalFunction(written)
	if p.dialect.Identifiers.Normalization == dialect.NormCaseSensitive && canon == strings.ToUpper(written) {
		return written
	}
	return canon
}

// parseFuncCall parses a function call. The name has been consumed and the
// current token is "(".
func (p *Parser) parseFuncCall(qualifier, name string, start token.Position) core.Expr {
	fn := &core.FuncCall{Name: p.functionName(name)}
	if qualifier != "" {
		fn.Name = qualifier + "." + fn.Name
	}

	if !p.expect(token.LPAREN) {
		return nil
	}

	// Handle COUNT(*) or other aggregate(*)
	if p.check(token.STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(token.RPAREN) {
		// Check for DISTINCT
		if p.match(token.DISTINCT) {
			fn.Distinct = true
		} else {
			p.match(token.ALL)
		}

		fn.Args = p.parseExpressionList()
		if p.failed() {
			return nil
		}
	}

	if !p.expect(token.RPAREN) {
		return nil
	}

	// List function dialects: ARRAY(1, 2) / JSON_ARRAY(1, 2)
	if qualifier == "" && p.dialect.Lists == dialect.ListFunction &&
		strings.EqualFold(name, p.dialect.ListFunction) && !fn.Star && !fn.Distinct {
		list := &core.ListExpr{Elements: fn.Args}
		p.finish(list, start)
		return list
	}

	// FILTER clause (for aggregates)
	if p.check(token.FILTER) && p.checkPeek(token.LPAREN) {
		p.nextToken()
		p.nextToken()
		if !p.expect(token.WHERE) {
			return nil
		}
		fn.Filter = p.parseExpression()
		if fn.Filter == nil || !p.expect(token.RPAREN) {
			return nil
		}
	}

	// OVER clause (window function)
	if p.match(token.OVER) {
		fn.Window = p.parseWindowSpec()
		if fn.Window == nil {
			return nil
		}
	}

	p.finish(fn, start)
	return fn
}

package parser

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// Expression precedence parsing using Pratt parser with dialect-aware precedence.
//
// Precedence levels (from spi package):
//
//	PrecedenceNone       = 0
//	PrecedenceOr         = 1
//	PrecedenceAnd        = 2
//	PrecedenceNot        = 3
//	PrecedenceComparison = 4  (=, !=, <, >, <=, >=, IS, IN, BETWEEN, LIKE, ILIKE)
//	PrecedenceAddition   = 5  (+, -, ||)
//	PrecedenceMultiply   = 6  (*, /, %)
//	PrecedenceUnary      = 7  (-, +, NOT)
//	PrecedencePostfix    = 8  (::, [], ())
//
// The parser uses dialect.Precedence() to look up operator precedence, so
// dialects add operators (ILIKE, ::) or rebind them (MySQL || as OR)
// without parser changes.

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() core.Expr {
	return p.parseExpressionWithPrecedence(spi.PrecedenceNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing with dialect-aware precedence.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) core.Expr {
	ok := p.enter()
	defer p.leave()
	if !ok {
		return nil
	}

	// Parse prefix (unary operators and primary expressions)
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	// Parse infix operators while their precedence is >= minPrecedence
	for !p.failed() {
		prec := p.infixPrecedence()
		if prec == spi.PrecedenceNone || prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			return nil
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() core.Expr {
	start := p.token.Pos

	switch p.token.Type {
	case token.NOT:
		// NOT EXISTS keeps the negation on the EXISTS node
		if p.checkPeek(token.EXISTS) {
			p.nextToken()
			return p.parseExistsExpr(true, start)
		}
		p.nextToken()
		operand := p.parseExpressionWithPrecedence(spi.PrecedenceNot)
		if operand == nil {
			return nil
		}
		u := &core.UnaryExpr{Op: token.NOT, Expr: operand}
		p.finish(u, start)
		return u

	case token.MINUS, token.PLUS:
		op := p.token.Type
		p.nextToken()
		operand := p.parseExpressionWithPrecedence(spi.PrecedenceUnary)
		if operand == nil {
			return nil
		}
		u := &core.UnaryExpr{Op: op, Expr: operand}
		p.finish(u, start)
		return u

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an infix
// operator, or PrecedenceNone.
func (p *Parser) infixPrecedence() int {
	if p.check(token.NOT) {
		// NOT is infix only as NOT IN / NOT BETWEEN / NOT LIKE / NOT ILIKE.
		switch p.peek.Type {
		case token.IN, token.BETWEEN, token.LIKE, dialect.TokenIlike:
		default:
			return spi.PrecedenceNone
		}
	}
	return p.dialect.Precedence(p.token.Type)
}

// parseInfixExpr parses an infix expression given the left operand and current precedence.
func (p *Parser) parseInfixExpr(left core.Expr, prec int) core.Expr {
	start := left.Pos()

	var result core.Expr
	switch p.token.Type {
	case token.NOT:
		// NOT IN, NOT BETWEEN, NOT LIKE, NOT ILIKE
		p.nextToken()
		result = p.parseNegatableInfix(left, true)

	case token.IS:
		result = p.parseIsExpr(left)

	case token.IN, token.BETWEEN, token.LIKE, dialect.TokenIlike:
		result = p.parseNegatableInfix(left, false)

	default:
		// Custom infix handler (dialect-specific operators like ::)
		if handler := p.dialect.InfixHandler(p.token.Type); handler != nil {
			p.nextToken()
			mark := len(p.errors)
			expr, err := handler(p, left)
			if err != nil {
				if len(p.errors) == mark {
					p.addError(err.Error())
				}
				return nil
			}
			result = expr
			break
		}

		// Standard binary operators
		op := p.dialect.OperatorToken(p.token.Type)
		p.nextToken()

		// Parse right operand with higher precedence (left-associative)
		right := p.parseExpressionWithPrecedence(prec + 1)
		if right == nil {
			return nil
		}
		result = &core.BinaryExpr{Left: left, Op: op, Right: right}
	}

	if result == nil {
		return nil
	}
	if n, ok := result.(spanned); ok {
		p.finish(n, start)
	}
	return result
}

// parseNegatableInfix parses IN, BETWEEN, LIKE and ILIKE; the current token
// is the operator.
func (p *Parser) parseNegatableInfix(left core.Expr, not bool) core.Expr {
	switch p.token.Type {
	case token.IN:
		p.nextToken()
		return p.parseInExpr(left, not)

	case token.BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, not)

	case token.LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, not, false)

	case dialect.TokenIlike:
		p.nextToken()
		return p.parseLikeExpr(left, not, true)

	default:
		p.unexpected("IN, BETWEEN, LIKE or ILIKE after NOT")
		return nil
	}
}

// parseIsExpr parses IS [NOT] NULL / IS [NOT] TRUE / IS [NOT] FALSE.
func (p *Parser) parseIsExpr(left core.Expr) core.Expr {
	p.nextToken() // consume IS

	isNot := p.match(token.NOT)

	switch p.token.Type {
	case token.NULL:
		p.nextToken()
		return &core.IsNullExpr{Expr: left, Not: isNot}

	case token.TRUE:
		p.nextToken()
		return &core.IsBoolExpr{Expr: left, Not: isNot, Value: true}

	case token.FALSE:
		p.nextToken()
		return &core.IsBoolExpr{Expr: left, Not: isNot, Value: false}

	default:
		p.unexpected("NULL, TRUE or FALSE after IS")
		return nil
	}
}

// parseInExpr parses an IN expression.
func (p *Parser) parseInExpr(left core.Expr, not bool) core.Expr {
	if !p.expect(token.LPAREN) {
		return nil
	}
	in := &core.InExpr{Expr: left, Not: not}

	// Check if it's a subquery
	if p.check(token.SELECT) || p.check(token.WITH) {
		in.Query = p.parseSelectStmt()
		if in.Query == nil {
			return nil
		}
	} else {
		// List of values
		in.Values = p.parseExpressionList()
		if p.failed() {
			return nil
		}
	}

	if !p.expect(token.RPAREN) {
		return nil
	}
	return in
}

// parseBetweenExpr parses a BETWEEN expression.
func (p *Parser) parseBetweenExpr(left core.Expr, not bool) core.Expr {
	between := &core.BetweenExpr{Expr: left, Not: not}
	// Parse low bound at addition precedence to avoid capturing AND
	between.Low = p.parseExpressionWithPrecedence(spi.PrecedenceAddition)
	if between.Low == nil || !p.expect(token.AND) {
		return nil
	}
	// Parse high bound at addition precedence
	between.High = p.parseExpressionWithPrecedence(spi.PrecedenceAddition)
	if between.High == nil {
		return nil
	}
	return between
}

// parseLikeExpr parses a LIKE/ILIKE expression.
func (p *Parser) parseLikeExpr(left core.Expr, not, insensitive bool) core.Expr {
	like := &core.LikeExpr{Expr: left, Not: not, CaseInsensitive: insensitive}
	// Parse pattern at addition precedence
	like.Pattern = p.parseExpressionWithPrecedence(spi.PrecedenceAddition)
	if like.Pattern == nil {
		return nil
	}
	return like
}

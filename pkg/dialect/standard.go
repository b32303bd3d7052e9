// This file contains pre-built ClauseDef definitions and the stateless
// handlers behind them. Dialects compose their clause sequence from these.

package dialect

import (
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// --- Standard Clause Definitions ---

var (
	// StandardWhere is the standard WHERE clause definition.
	StandardWhere = ClauseDef{
		Token:   token.WHERE,
		Handler: ParseWhere,
		Slot:    spi.SlotWhere,
	}

	// StandardGroupBy is the standard GROUP BY clause definition.
	StandardGroupBy = ClauseDef{
		Token:    token.GROUP,
		Handler:  ParseGroupBy,
		Slot:     spi.SlotGroupBy,
		Keywords: []string{"GROUP", "BY"},
	}

	// StandardHaving is the standard HAVING clause definition.
	StandardHaving = ClauseDef{
		Token:   token.HAVING,
		Handler: ParseHaving,
		Slot:    spi.SlotHaving,
	}

	// StandardWindow is the standard WINDOW clause definition.
	StandardWindow = ClauseDef{
		Token:   token.WINDOW,
		Handler: ParseWindow,
		Slot:    spi.SlotWindow,
	}

	// StandardQualify is the QUALIFY clause (DuckDB, Snowflake, BigQuery, ...).
	StandardQualify = ClauseDef{
		Token:   TokenQualify,
		Handler: ParseQualify,
		Slot:    spi.SlotQualify,
	}

	// StandardOrderBy is the standard ORDER BY clause definition.
	StandardOrderBy = ClauseDef{
		Token:    token.ORDER,
		Handler:  ParseOrderBy,
		Slot:     spi.SlotOrderBy,
		Keywords: []string{"ORDER", "BY"},
	}

	// StandardLimit is the standard LIMIT clause definition.
	StandardLimit = ClauseDef{
		Token:   token.LIMIT,
		Handler: ParseLimit,
		Slot:    spi.SlotLimit,
		Inline:  true,
	}

	// LimitWithComma is LIMIT that also accepts the MySQL "LIMIT offset, count" form.
	LimitWithComma = ClauseDef{
		Token:   token.LIMIT,
		Handler: ParseLimitComma,
		Slot:    spi.SlotLimit,
		Inline:  true,
	}

	// StandardOffset is the standard OFFSET clause definition.
	StandardOffset = ClauseDef{
		Token:   token.OFFSET,
		Handler: ParseOffset,
		Slot:    spi.SlotOffset,
		Inline:  true,
	}
)

// StandardSelectClauses is the ANSI SELECT clause sequence.
var StandardSelectClauses = []ClauseDef{
	StandardWhere,
	StandardGroupBy,
	StandardHaving,
	StandardWindow,
	StandardOrderBy,
	StandardLimit,
	StandardOffset,
}

// LimitClause is the result of "LIMIT offset, count".
type LimitClause struct {
	Count  core.Expr
	Offset core.Expr
}

// ---------- Standard Clause Handlers ----------
// The leading keyword has already been consumed when these are called.

// ParseWhere handles the standard WHERE clause.
func ParseWhere(p spi.ParserOps) (any, error) {
	return p.ParseExpression()
}

// ParseGroupBy handles the standard GROUP BY clause.
func ParseGroupBy(p spi.ParserOps) (any, error) {
	if err := p.Expect(token.BY); err != nil {
		return nil, err
	}
	return p.ParseExpressionList()
}

// ParseHaving handles the standard HAVING clause.
func ParseHaving(p spi.ParserOps) (any, error) {
	return p.ParseExpression()
}

// ParseWindow handles named window definitions.
func ParseWindow(p spi.ParserOps) (any, error) {
	return p.ParseWindowDefs()
}

// ParseQualify handles the QUALIFY clause.
func ParseQualify(p spi.ParserOps) (any, error) {
	return p.ParseExpression()
}

// ParseOrderBy handles the standard ORDER BY clause.
func ParseOrderBy(p spi.ParserOps) (any, error) {
	if err := p.Expect(token.BY); err != nil {
		return nil, err
	}
	return p.ParseOrderByList()
}

// ParseLimit handles the standard LIMIT clause.
func ParseLimit(p spi.ParserOps) (any, error) {
	return p.ParseExpression()
}

// ParseLimitComma handles LIMIT n and LIMIT offset, count.
func ParseLimitComma(p spi.ParserOps) (any, error) {
	first, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if !p.Match(token.COMMA) {
		return first, nil
	}
	count, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	return &LimitClause{Count: count, Offset: first}, nil
}

// ParseOffset handles OFFSET n [ROW | ROWS].
func ParseOffset(p spi.ParserOps) (any, error) {
	e, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if !p.Match(token.ROWS) {
		p.Match(token.ROW)
	}
	return e, nil
}

// ---------- Standard Expression Handlers ----------

// ParseBracketList parses a [a, b, ...] list literal. The [ has been consumed.
func ParseBracketList(p spi.ParserOps) (core.Expr, error) {
	list := &core.ListExpr{}
	if p.Match(token.RBRACKET) {
		return list, nil
	}
	elems, err := p.ParseExpressionList()
	if err != nil {
		return nil, err
	}
	if err := p.Expect(token.RBRACKET); err != nil {
		return nil, err
	}
	list.Elements = elems
	return list, nil
}

// ParseCastOperator parses the type after x::. The :: has been consumed.
func ParseCastOperator(p spi.ParserOps, left core.Expr) (core.Expr, error) {
	typ, err := p.ParseDataType()
	if err != nil {
		return nil, err
	}
	return &core.CastExpr{Expr: left, Type: typ, Shorthand: true}, nil
}

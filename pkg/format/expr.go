package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

const complexityThreshold = 5

// precAtom binds tighter than any operator.
const precAtom = spi.PrecedencePostfix + 1

func (p *Printer) formatExpr(e core.Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *core.Literal:
		p.formatLiteral(expr)
	case *core.ColumnRef:
		p.formatColumnRef(expr)
	case *core.BinaryExpr:
		p.formatBinaryExpr(expr)
	case *core.UnaryExpr:
		p.formatUnaryExpr(expr)
	case *core.FuncCall:
		p.formatFuncCall(expr)
	case *core.CaseExpr:
		p.formatCaseExpr(expr)
	case *core.CastExpr:
		p.formatCastExpr(expr)
	case *core.InExpr:
		p.formatInExpr(expr)
	case *core.BetweenExpr:
		p.formatBetweenExpr(expr)
	case *core.IsNullExpr:
		p.formatIsNullExpr(expr)
	case *core.IsBoolExpr:
		p.formatIsBoolExpr(expr)
	case *core.LikeExpr:
		p.formatLikeExpr(expr)
	case *core.ParenExpr:
		p.formatParenExpr(expr)
	case *core.SubqueryExpr:
		p.formatSubquery(expr.Select)
	case *core.ExistsExpr:
		p.formatExistsExpr(expr)
	case *core.StarExpr:
		p.formatStarExpr(expr)
	case *core.ListExpr:
		p.formatListExpr(expr)
	case *core.Placeholder:
		p.write(expr.Text)
	}
}

// precedence returns how tightly e binds when printed without parentheses.
func precedence(e core.Expr) int {
	switch expr := e.(type) {
	case *core.BinaryExpr:
		return binaryPrecedence(expr.Op)
	case *core.UnaryExpr:
		if expr.Op == token.NOT {
			return spi.PrecedenceNot
		}
		return spi.PrecedenceUnary
	case *core.InExpr, *core.BetweenExpr, *core.IsNullExpr, *core.IsBoolExpr, *core.LikeExpr:
		return spi.PrecedenceComparison
	case *core.CastExpr:
		if expr.Shorthand {
			return spi.PrecedencePostfix
		}
	case *core.Literal:
		if expr.Type == core.LiteralNumber && strings.HasPrefix(expr.Value, "-") {
			return spi.PrecedenceUnary
		}
	}
	return precAtom
}

func binaryPrecedence(op token.TokenType) int {
	switch op {
	case token.OR:
		return spi.PrecedenceOr
	case token.AND:
		return spi.PrecedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return spi.PrecedenceComparison
	case token.PLUS, token.MINUS, token.DPIPE:
		return spi.PrecedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return spi.PrecedenceMultiply
	}
	return spi.PrecedenceComparison
}

// operand prints e, parenthesized when it binds looser than min.
func (p *Printer) operand(e core.Expr, min int) {
	if precedence(e) < min {
		p.parenthesized(e)
		return
	}
	p.formatExpr(e)
}

// parenthesized prints e in parentheses. Lines broken inside the group are
// indented one level past the line that opens it.
func (p *Printer) parenthesized(e core.Expr) {
	p.write("(")
	p.indent()
	p.formatExpr(e)
	p.dedent()
	p.write(")")
}

// leftOperand prints the left side of an operator at prec. Chained
// comparisons are always parenthesized.
func (p *Printer) leftOperand(e core.Expr, prec int) {
	if prec == spi.PrecedenceComparison {
		p.operand(e, prec+1)
		return
	}
	p.operand(e, prec)
}

func (p *Printer) exprComplexity(e core.Expr) int {
	if e == nil {
		return 0
	}

	switch expr := e.(type) {
	case *core.Literal, *core.ColumnRef, *core.StarExpr, *core.Placeholder:
		return 1
	case *core.BinaryExpr:
		return 1 + p.exprComplexity(expr.Left) + p.exprComplexity(expr.Right)
	case *core.UnaryExpr:
		return 1 + p.exprComplexity(expr.Expr)
	case *core.FuncCall:
		score := 2
		for _, arg := range expr.Args {
			score += p.exprComplexity(arg)
		}
		return score
	case *core.ParenExpr:
		return p.exprComplexity(expr.Expr)
	case *core.CaseExpr:
		score := 2
		for _, w := range expr.Whens {
			score += p.exprComplexity(w.Condition) + p.exprComplexity(w.Result)
		}
		return score
	case *core.ListExpr:
		score := 1
		for _, elem := range expr.Elements {
			score += p.exprComplexity(elem)
		}
		return score
	default:
		return 1
	}
}

func isLogicalOp(op token.TokenType) bool {
	return op == token.AND || op == token.OR
}

func (p *Printer) formatLiteral(lit *core.Literal) {
	switch lit.Type {
	case core.LiteralString:
		p.write(p.quoteString(lit.Value))
	case core.LiteralBool:
		if strings.EqualFold(lit.Value, "true") {
			p.kw(token.TRUE)
		} else {
			p.kw(token.FALSE)
		}
	case core.LiteralNull:
		p.kw(token.NULL)
	default:
		if p.opts.Normalize {
			p.write(canonicalNumber(lit.Value))
		} else {
			p.write(lit.Value)
		}
	}
}

// quoteString writes a string literal with the target dialect's escaping.
func (p *Printer) quoteString(s string) string {
	if p.dialect.Strings.BackslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// canonicalNumber strips redundant digits: 007 -> 7, 1.50 -> 1.5, .5 -> 0.5.
func canonicalNumber(s string) string {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		trimmed := strings.TrimLeft(s, "0")
		if trimmed == "" {
			return "0"
		}
		return trimmed
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return s
	}
	if strings.ContainsAny(s, "eE") {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

func (p *Printer) formatColumnRef(col *core.ColumnRef) {
	if !col.Schema.IsZero() {
		p.ident(col.Schema)
		p.write(".")
	}
	if !col.Table.IsZero() {
		p.ident(col.Table)
		p.write(".")
	}
	p.ident(col.Column)
}

func (p *Printer) formatBinaryExpr(expr *core.BinaryExpr) {
	if expr.Op == token.DPIPE && !p.dialect.ConcatOperator {
		p.formatConcatCall(expr)
		return
	}

	prec := binaryPrecedence(expr.Op)
	shouldBreak := p.opts.Pretty && p.exprComplexity(expr) > complexityThreshold && isLogicalOp(expr.Op)

	p.leftOperand(expr.Left, prec)

	if shouldBreak {
		p.writeln()
		p.kw(expr.Op)
		p.space()
	} else {
		p.space()
		p.kw(expr.Op)
		p.space()
	}

	p.operand(expr.Right, prec+1)
}

// formatConcatCall renders a chain of || as CONCAT(...).
func (p *Printer) formatConcatCall(expr *core.BinaryExpr) {
	var args []core.Expr
	var collect func(e core.Expr)
	collect = func(e core.Expr) {
		if b, ok := e.(*core.BinaryExpr); ok && b.Op == token.DPIPE {
			collect(b.Left)
			collect(b.Right)
			return
		}
		args = append(args, e)
	}
	collect(expr)

	p.write(p.functionName("CONCAT"))
	p.write("(")
	p.formatList(len(args), func(i int) { p.formatExpr(args[i]) }, ", ", false)
	p.write(")")
}

func (p *Printer) formatUnaryExpr(expr *core.UnaryExpr) {
	if expr.Op == token.NOT {
		p.kw(token.NOT)
		p.space()
		p.operand(expr.Expr, spi.PrecedenceNot)
		return
	}
	p.kw(expr.Op)
	// -(-x): a doubled minus would start a comment.
	if precedence(expr.Expr) <= spi.PrecedenceUnary {
		p.write("(")
		p.formatExpr(expr.Expr)
		p.write(")")
		return
	}
	p.formatExpr(expr.Expr)
}

// functionName returns the target spelling of a canonical function name.
func (p *Printer) functionName(name string) string {
	qualifier := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		qualifier, name = name[:i+1], name[i+1:]
	}
	name = p.dialect.FunctionName(name)
	if p.opts.Normalize {
		name = strings.ToUpper(name)
	}
	return qualifier + name
}

func (p *Printer) formatFuncCall(fn *core.FuncCall) {
	if fn.Niladic {
		p.write(p.functionName(fn.Name))
		return
	}
	if fn.Name == "IF" && p.dialect.IfFunction == "" && len(fn.Args) == 3 && fn.Window == nil {
		p.formatCaseExpr(&core.CaseExpr{
			Whens: []*core.WhenClause{{Condition: fn.Args[0], Result: fn.Args[1]}},
			Else:  fn.Args[2],
		})
		return
	}

	p.write(p.functionName(fn.Name))
	p.write("(")

	if fn.Distinct {
		p.kw(token.DISTINCT)
		p.space()
	}

	if fn.Star {
		p.write("*")
	} else {
		p.formatList(len(fn.Args), func(i int) { p.formatExpr(fn.Args[i]) }, ", ", false)
	}

	p.write(")")

	// FILTER clause
	if fn.Filter != nil {
		p.space()
		p.kw(token.FILTER)
		p.write(" (")
		p.kw(token.WHERE)
		p.space()
		p.formatExpr(fn.Filter)
		p.write(")")
	}

	// OVER clause (window function)
	if fn.Window != nil {
		p.space()
		p.kw(token.OVER)
		p.space()
		if isNamedWindowRef(fn.Window) {
			p.ident(fn.Window.Name)
			return
		}
		p.formatWindowBody(fn.Window)
	}
}

func isNamedWindowRef(w *core.WindowSpec) bool {
	return !w.Name.IsZero() && len(w.PartitionBy) == 0 && len(w.OrderBy) == 0 && w.Frame == nil
}

// formatWindowBody prints a parenthesized window specification on one line.
func (p *Printer) formatWindowBody(w *core.WindowSpec) {
	p.write("(")
	var parts int
	sep := func() {
		if parts > 0 {
			p.space()
		}
		parts++
	}

	if !w.Name.IsZero() {
		sep()
		p.ident(w.Name)
	}

	if len(w.PartitionBy) > 0 {
		sep()
		p.kw(token.PARTITION, token.BY)
		p.space()
		p.formatList(len(w.PartitionBy), func(i int) { p.formatExpr(w.PartitionBy[i]) }, ", ", false)
	}

	if len(w.OrderBy) > 0 {
		sep()
		p.kw(token.ORDER, token.BY)
		p.space()
		p.formatList(len(w.OrderBy), func(i int) { p.formatOrderByItem(w.OrderBy[i]) }, ", ", false)
	}

	if w.Frame != nil {
		sep()
		p.formatFrameSpec(w.Frame)
	}

	p.write(")")
}

func (p *Printer) formatFrameSpec(f *core.FrameSpec) {
	p.keyword(string(f.Type))
	p.space()
	if f.End == nil {
		p.formatFrameBound(f.Start)
		return
	}
	p.kw(token.BETWEEN)
	p.space()
	p.formatFrameBound(f.Start)
	p.space()
	p.kw(token.AND)
	p.space()
	p.formatFrameBound(f.End)
}

func (p *Printer) formatFrameBound(b *core.FrameBound) {
	if b == nil {
		return
	}
	switch b.Type {
	case core.FrameUnboundedPreceding:
		p.kw(token.UNBOUNDED, token.PRECEDING)
	case core.FrameUnboundedFollowing:
		p.kw(token.UNBOUNDED, token.FOLLOWING)
	case core.FrameCurrentRow:
		p.kw(token.CURRENT, token.ROW)
	case core.FrameExprPreceding:
		p.formatExpr(b.Offset)
		p.space()
		p.kw(token.PRECEDING)
	case core.FrameExprFollowing:
		p.formatExpr(b.Offset)
		p.space()
		p.kw(token.FOLLOWING)
	}
}

func (p *Printer) formatCaseExpr(c *core.CaseExpr) {
	p.kw(token.CASE)

	if c.Operand != nil {
		p.space()
		p.formatExpr(c.Operand)
	}

	p.writeln()
	p.indent()

	for _, w := range c.Whens {
		p.kw(token.WHEN)
		p.space()
		p.formatExpr(w.Condition)
		p.space()
		p.kw(token.THEN)
		p.space()
		p.formatExpr(w.Result)
		p.writeln()
	}

	if c.Else != nil {
		p.kw(token.ELSE)
		p.space()
		p.formatExpr(c.Else)
		p.writeln()
	}

	p.dedent()
	p.kw(token.END)
}

func (p *Printer) formatCastExpr(c *core.CastExpr) {
	if c.Shorthand && p.dialect.SupportsCastOperator {
		p.operand(c.Expr, spi.PrecedencePostfix+1)
		p.write("::")
		p.write(p.typeName(c.Type))
		return
	}
	p.kw(token.CAST)
	p.write("(")
	p.formatExpr(c.Expr)
	p.space()
	p.kw(token.AS)
	p.space()
	p.write(p.typeName(c.Type))
	p.write(")")
}

// typeName returns the target spelling of a canonical type.
func (p *Printer) typeName(t *core.DataType) string {
	if t == nil {
		return ""
	}
	base := t.Name
	suffix := ""
	for strings.HasSuffix(base, "[]") {
		base = strings.TrimSuffix(base, "[]")
		suffix += "[]"
	}
	out := &core.DataType{Name: p.dialect.TypeName(base), Params: t.Params}
	return out.String() + suffix
}

func (p *Printer) formatInExpr(in *core.InExpr) {
	p.leftOperand(in.Expr, spi.PrecedenceComparison)
	if in.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.IN)
	p.space()

	if in.Query != nil {
		p.formatSubquery(in.Query)
		return
	}
	p.write("(")
	p.formatList(len(in.Values), func(i int) { p.formatExpr(in.Values[i]) }, ", ", false)
	p.write(")")
}

func (p *Printer) formatBetweenExpr(b *core.BetweenExpr) {
	p.leftOperand(b.Expr, spi.PrecedenceComparison)
	if b.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.BETWEEN)
	p.space()
	p.operand(b.Low, spi.PrecedenceAddition)
	p.space()
	p.kw(token.AND)
	p.space()
	p.operand(b.High, spi.PrecedenceAddition)
}

func (p *Printer) formatIsNullExpr(is *core.IsNullExpr) {
	p.leftOperand(is.Expr, spi.PrecedenceComparison)
	p.space()
	p.kw(token.IS)
	if is.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	p.kw(token.NULL)
}

func (p *Printer) formatIsBoolExpr(is *core.IsBoolExpr) {
	p.leftOperand(is.Expr, spi.PrecedenceComparison)
	p.space()
	p.kw(token.IS)
	if is.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	if is.Value {
		p.kw(token.TRUE)
	} else {
		p.kw(token.FALSE)
	}
}

// formatLikeExpr prints LIKE or ILIKE. Targets without ILIKE compare
// lower-cased operands instead.
func (p *Printer) formatLikeExpr(like *core.LikeExpr) {
	lower := like.CaseInsensitive && !p.dialect.SupportsIlike
	if lower {
		p.formatLowerCall(like.Expr)
	} else {
		p.leftOperand(like.Expr, spi.PrecedenceComparison)
	}
	if like.Not {
		p.space()
		p.kw(token.NOT)
	}
	p.space()
	if like.CaseInsensitive && !lower {
		p.kw(dialect.TokenIlike)
	} else {
		p.kw(token.LIKE)
	}
	p.space()
	if lower {
		p.formatLowerCall(like.Pattern)
	} else {
		p.operand(like.Pattern, spi.PrecedenceAddition)
	}
}

func (p *Printer) formatLowerCall(e core.Expr) {
	p.write(p.functionName("LOWER"))
	p.write("(")
	p.formatExpr(e)
	p.write(")")
}

func (p *Printer) formatParenExpr(paren *core.ParenExpr) {
	p.parenthesized(paren.Expr)
}

func (p *Printer) formatExistsExpr(ex *core.ExistsExpr) {
	if ex.Not {
		p.kw(token.NOT)
		p.space()
	}
	p.kw(token.EXISTS)
	p.space()
	p.formatSubquery(ex.Select)
}

func (p *Printer) formatStarExpr(star *core.StarExpr) {
	if !star.Table.IsZero() {
		p.ident(star.Table)
		p.write(".")
	}
	p.write("*")
}

// formatListExpr prints a list literal in the target dialect's style.
func (p *Printer) formatListExpr(list *core.ListExpr) {
	open, closing := "[", "]"
	switch p.dialect.Lists {
	case dialect.ListArrayKeyword:
		open = "ARRAY["
	case dialect.ListFunction:
		open, closing = p.dialect.ListFunction+"(", ")"
	}
	p.write(open)
	p.formatList(len(list.Elements), func(i int) { p.formatExpr(list.Elements[i]) }, ", ", false)
	p.write(closing)
}

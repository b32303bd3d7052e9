package optimizer

import (
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// foldConstants evaluates operators whose operands are all literals.
func foldConstants(ctx *Context, stmt core.Stmt) bool {
	changed := false
	rewrite(stmt, func(e core.Expr) core.Expr {
		out := foldExpr(ctx, e)
		if out != e {
			changed = true
		}
		return out
	})
	return changed
}

func foldExpr(ctx *Context, e core.Expr) core.Expr {
	switch x := e.(type) {
	case *core.UnaryExpr:
		lit, ok := x.Expr.(*core.Literal)
		if !ok {
			return e
		}
		switch {
		case x.Op == token.NOT && lit.Type == core.LiteralBool:
			return core.NewBool(!core.IsTrue(lit))
		case x.Op == token.MINUS && lit.Type == core.LiteralNumber:
			if n, ok := parseNumber(lit.Value); ok {
				return n.neg().literal()
			}
		case x.Op == token.PLUS && lit.Type == core.LiteralNumber:
			return lit
		}
	case *core.BinaryExpr:
		l, lok := x.Left.(*core.Literal)
		r, rok := x.Right.(*core.Literal)
		if !lok || !rok {
			return e
		}
		if out := foldBinary(ctx, x.Op, l, r); out != nil {
			return out
		}
	}
	return e
}

func foldBinary(ctx *Context, op token.TokenType, l, r *core.Literal) core.Expr {
	switch {
	case l.Type == core.LiteralNumber && r.Type == core.LiteralNumber:
		a, aok := parseNumber(l.Value)
		b, bok := parseNumber(r.Value)
		if !aok || !bok {
			return nil
		}
		if isComparison(op) {
			return core.NewBool(compareResult(op, a.cmp(b)))
		}
		n, ok := a.arith(op, b, ctx.Dialect.IntegerDivision)
		if !ok {
			return nil
		}
		return n.literal()

	case l.Type == core.LiteralString && r.Type == core.LiteralString:
		if op == token.DPIPE {
			return core.NewString(l.Value + r.Value)
		}
		if isComparison(op) {
			return core.NewBool(compareResult(op, strings.Compare(l.Value, r.Value)))
		}

	case l.Type == core.LiteralBool && r.Type == core.LiteralBool:
		switch op {
		case token.EQ:
			return core.NewBool(core.IsTrue(l) == core.IsTrue(r))
		case token.NE:
			return core.NewBool(core.IsTrue(l) != core.IsTrue(r))
		}
	}
	return nil
}

func isComparison(op token.TokenType) bool {
	switch op {
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return true
	}
	return false
}

func compareResult(op token.TokenType, c int) bool {
	switch op {
	case token.EQ:
		return c == 0
	case token.NE:
		return c != 0
	case token.LT:
		return c < 0
	case token.GT:
		return c > 0
	case token.LE:
		return c <= 0
	default:
		return c >= 0
	}
}

// number is a numeric literal value, integer when isInt.
type number struct {
	isInt bool
	i     int64
	f     float64
}

func parseNumber(s string) (number, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{isInt: true, i: i}, true
	}
	if strings.ContainsAny(s, "xXbBoO_") {
		return number{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return number{}, false
	}
	return number{f: f}, true
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func (n number) neg() number {
	if n.isInt {
		if n.i == math.MinInt64 {
			return number{f: -float64(n.i)}
		}
		return number{isInt: true, i: -n.i}
	}
	return number{f: -n.f}
}

func (n number) cmp(o number) int {
	if n.isInt && o.isInt {
		switch {
		case n.i < o.i:
			return -1
		case n.i > o.i:
			return 1
		}
		return 0
	}
	a, b := n.float(), o.float()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// arith applies an arithmetic operator. It reports false for division by
// zero, integer overflow and non-finite results, which stay unfolded.
func (n number) arith(op token.TokenType, o number, integerDivision bool) (number, bool) {
	if n.isInt && o.isInt {
		a, b := n.i, o.i
		switch op {
		case token.PLUS:
			s := a + b
			if (s > a) == (b > 0) {
				return number{isInt: true, i: s}, true
			}
			return number{}, false
		case token.MINUS:
			s := a - b
			if (s < a) == (b > 0) {
				return number{isInt: true, i: s}, true
			}
			return number{}, false
		case token.STAR:
			if a == 0 || b == 0 {
				return number{isInt: true}, true
			}
			p := a * b
			if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
				return number{}, false
			}
			return number{isInt: true, i: p}, true
		case token.SLASH:
			if b == 0 {
				return number{}, false
			}
			if integerDivision {
				if a == math.MinInt64 && b == -1 {
					return number{}, false
				}
				return number{isInt: true, i: a / b}, true
			}
			return finite(float64(a) / float64(b))
		case token.PERCENT:
			if b == 0 {
				return number{}, false
			}
			if b == -1 {
				return number{isInt: true}, true
			}
			return number{isInt: true, i: a % b}, true
		}
		return number{}, false
	}

	a, b := n.float(), o.float()
	switch op {
	case token.PLUS:
		return finite(a + b)
	case token.MINUS:
		return finite(a - b)
	case token.STAR:
		return finite(a * b)
	case token.SLASH:
		if b == 0 {
			return number{}, false
		}
		return finite(a / b)
	case token.PERCENT:
		if b == 0 {
			return number{}, false
		}
		return finite(math.Mod(a, b))
	}
	return number{}, false
}

func finite(f float64) (number, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return number{}, false
	}
	return number{f: f}, true
}

// literal renders the number so that it parses back to the same kind.
func (n number) literal() *core.Literal {
	if n.isInt {
		return core.NewNumber(strconv.FormatInt(n.i, 10))
	}
	s := strconv.FormatFloat(n.f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return core.NewNumber(s)
}

package core

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/token"
)

// ---------- Expression Types ----------

// ColumnRef represents a column reference (possibly qualified).
type ColumnRef struct {
	NodeInfo
	Schema Ident // optional schema qualifier (schema.table.column)
	Table  Ident // optional table/alias qualifier
	Column Ident
}

func (*ColumnRef) exprNode() {}

// Kind implements Node.
func (*ColumnRef) Kind() Kind { return KindColumnRef }

// Literal represents a literal value. Value holds the unescaped string text,
// the number as written, "true"/"false" or "NULL".
type Literal struct {
	NodeInfo
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// Kind implements Node.
func (*Literal) Kind() Kind { return KindLiteral }

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants for SQL literal value types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// NewNumber returns a synthesized number literal.
func NewNumber(text string) *Literal { return &Literal{Type: LiteralNumber, Value: text} }

// NewString returns a synthesized string literal.
func NewString(s string) *Literal { return &Literal{Type: LiteralString, Value: s} }

// NewBool returns a synthesized boolean literal.
func NewBool(b bool) *Literal {
	if b {
		return &Literal{Type: LiteralBool, Value: "true"}
	}
	return &Literal{Type: LiteralBool, Value: "false"}
}

// NewNull returns a synthesized NULL literal.
func NewNull() *Literal { return &Literal{Type: LiteralNull, Value: "NULL"} }

// IsTrue reports whether e is the literal TRUE.
func IsTrue(e Expr) bool {
	l, ok := e.(*Literal)
	return ok && l.Type == LiteralBool && l.Value == "true"
}

// IsFalse reports whether e is the literal FALSE.
func IsFalse(e Expr) bool {
	l, ok := e.(*Literal)
	return ok && l.Type == LiteralBool && l.Value == "false"
}

// BinaryExpr represents a binary expression (arithmetic, comparison, AND,
// OR, ||).
type BinaryExpr struct {
	NodeInfo
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// Kind implements Node.
func (*BinaryExpr) Kind() Kind { return KindBinary }

// UnaryExpr represents NOT, unary minus and unary plus.
type UnaryExpr struct {
	NodeInfo
	Op   token.TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// Kind implements Node.
func (*UnaryExpr) Kind() Kind { return KindUnary }

// FuncCall represents a function call. Name is the canonical upper-case
// name, possibly dotted (schema.fn). Case-sensitive dialects keep the written
// spelling of names they have no mapping for.
type FuncCall struct {
	NodeInfo
	Name     string
	Distinct bool
	Args     []Expr
	Star     bool        // COUNT(*)
	Niladic  bool        // written without parentheses (CURRENT_DATE)
	Filter   Expr        // FILTER (WHERE ...) clause
	Window   *WindowSpec // OVER clause
}

func (*FuncCall) exprNode() {}

// Kind implements Node.
func (*FuncCall) Kind() Kind { return KindFuncCall }

// WindowSpec represents a window specification (OVER clause).
type WindowSpec struct {
	NodeInfo
	Name        Ident // Named window reference (OVER w)
	PartitionBy []Expr
	OrderBy     []*OrderByItem
	Frame       *FrameSpec
}

// Kind implements Node.
func (*WindowSpec) Kind() Kind { return KindWindowSpec }

// FrameSpec represents a window frame specification.
type FrameSpec struct {
	Type  FrameType
	Start *FrameBound
	End   *FrameBound // nil for single-bound frames
}

// FrameType represents the type of window frame.
type FrameType string

// FrameType constants for window frame specification types.
const (
	FrameRows   FrameType = "ROWS"
	FrameRange  FrameType = "RANGE"
	FrameGroups FrameType = "GROUPS"
)

// FrameBound represents a window frame bound.
type FrameBound struct {
	NodeInfo
	Type   FrameBoundType
	Offset Expr // for N PRECEDING/FOLLOWING
}

// Kind implements Node.
func (*FrameBound) Kind() Kind { return KindFrameBound }

// FrameBoundType represents the type of frame bound.
type FrameBoundType string

// FrameBoundType constants for window frame bound types.
const (
	FrameUnboundedPreceding FrameBoundType = "UNBOUNDED PRECEDING"
	FrameUnboundedFollowing FrameBoundType = "UNBOUNDED FOLLOWING"
	FrameCurrentRow         FrameBoundType = "CURRENT ROW"
	FrameExprPreceding      FrameBoundType = "PRECEDING"
	FrameExprFollowing      FrameBoundType = "FOLLOWING"
)

// CaseExpr represents a CASE expression.
type CaseExpr struct {
	NodeInfo
	Operand Expr // CASE operand WHEN... (optional)
	Whens   []*WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// Kind implements Node.
func (*CaseExpr) Kind() Kind { return KindCase }

// WhenClause represents a WHEN clause in CASE expression.
type WhenClause struct {
	NodeInfo
	Condition Expr
	Result    Expr
}

// Kind implements Node.
func (*WhenClause) Kind() Kind { return KindWhen }

// CastExpr represents CAST(x AS type) or the x::type shorthand.
type CastExpr struct {
	NodeInfo
	Expr      Expr
	Type      *DataType
	Shorthand bool // written as x::type
}

func (*CastExpr) exprNode() {}

// Kind implements Node.
func (*CastExpr) Kind() Kind { return KindCast }

// DataType is a type name with optional parameters. Name is canonical
// (upper-case, dialect spelling mapped).
type DataType struct {
	Name   string
	Params []string
}

// String renders the type as NAME(p1, p2).
func (t *DataType) String() string {
	if t == nil {
		return ""
	}
	if len(t.Params) == 0 {
		return t.Name
	}
	return t.Name + "(" + strings.Join(t.Params, ", ") + ")"
}

// InExpr represents an IN expression.
type InExpr struct {
	NodeInfo
	Expr   Expr
	Not    bool
	Values []Expr      // IN (1, 2, 3)
	Query  *SelectStmt // IN (SELECT ...)
}

func (*InExpr) exprNode() {}

// Kind implements Node.
func (*InExpr) Kind() Kind { return KindIn }

// BetweenExpr represents a BETWEEN expression.
type BetweenExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// Kind implements Node.
func (*BetweenExpr) Kind() Kind { return KindBetween }

// IsNullExpr represents an IS NULL expression.
type IsNullExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// Kind implements Node.
func (*IsNullExpr) Kind() Kind { return KindIsNull }

// IsBoolExpr represents an IS [NOT] TRUE/FALSE expression.
type IsBoolExpr struct {
	NodeInfo
	Expr  Expr
	Not   bool
	Value bool // true for IS TRUE, false for IS FALSE
}

func (*IsBoolExpr) exprNode() {}

// Kind implements Node.
func (*IsBoolExpr) Kind() Kind { return KindIsBool }

// LikeExpr represents a LIKE or ILIKE expression.
type LikeExpr struct {
	NodeInfo
	Expr            Expr
	Not             bool
	Pattern         Expr
	CaseInsensitive bool // ILIKE
}

func (*LikeExpr) exprNode() {}

// Kind implements Node.
func (*LikeExpr) Kind() Kind { return KindLike }

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	NodeInfo
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// Kind implements Node.
func (*ParenExpr) Kind() Kind { return KindParen }

// StarExpr represents * or t.* in a select list.
type StarExpr struct {
	NodeInfo
	Table Ident // optional table qualifier for t.*
}

func (*StarExpr) exprNode() {}

// Kind implements Node.
func (*StarExpr) Kind() Kind { return KindStar }

// SubqueryExpr represents a scalar subquery used as an expression.
type SubqueryExpr struct {
	NodeInfo
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// Kind implements Node.
func (*SubqueryExpr) Kind() Kind { return KindSubquery }

// ExistsExpr represents an EXISTS expression.
type ExistsExpr struct {
	NodeInfo
	Not    bool
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}

// Kind implements Node.
func (*ExistsExpr) Kind() Kind { return KindExists }

// ListExpr represents a list literal: [a, b] or ARRAY[a, b].
type ListExpr struct {
	NodeInfo
	Elements []Expr
}

func (*ListExpr) exprNode() {}

// Kind implements Node.
func (*ListExpr) Kind() Kind { return KindList }

// Placeholder represents a bind parameter: ?, $1 or :name.
type Placeholder struct {
	NodeInfo
	Text string
}

func (*Placeholder) exprNode() {}

// Kind implements Node.
func (*Placeholder) Kind() Kind { return KindPlaceholder }

package core

// ---------- Statement Types ----------

// SelectStmt represents a complete SELECT statement with optional WITH clause.
// OrderBy, Limit and Offset are set only when the body is a set operation;
// for a single SELECT they live on the SelectCore.
type SelectStmt struct {
	StmtInfo
	With    *WithClause
	Body    *SelectBody
	OrderBy []*OrderByItem
	Limit   Expr
	Offset  Expr
}

func (*SelectStmt) stmtNode() {}

// Kind implements Node.
func (*SelectStmt) Kind() Kind { return KindSelect }

// IsSetOperation reports whether the statement combines several SELECT cores.
func (s *SelectStmt) IsSetOperation() bool {
	return s.Body != nil && s.Body.Op != SetOpNone
}

// Cores returns the SELECT cores of the body in source order.
func (s *SelectStmt) Cores() []*SelectCore {
	var cores []*SelectCore
	for b := s.Body; b != nil; b = b.Right {
		if b.Left != nil {
			cores = append(cores, b.Left)
		}
	}
	return cores
}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	NodeInfo
	Recursive bool
	CTEs      []*CTE
}

// Kind implements Node.
func (*WithClause) Kind() Kind { return KindWith }

// CTE represents a Common Table Expression.
type CTE struct {
	NodeInfo
	Name    Ident
	Columns []Ident
	Select  *SelectStmt
}

// Kind implements Node.
func (*CTE) Kind() Kind { return KindCTE }

// SelectBody represents the body of a SELECT with possible set operations.
// A chain a UNION b EXCEPT c is Left=a, Op=UNION, Right={Left=b, Op=EXCEPT,
// Right={Left=c}} and evaluates left to right.
type SelectBody struct {
	NodeInfo
	Left  *SelectCore
	Op    SetOpType   // UNION, INTERSECT, EXCEPT, or empty
	All   bool        // UNION ALL
	Right *SelectBody // For chained set operations
}

// Kind implements Node.
func (*SelectBody) Kind() Kind { return KindSelectBody }

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpType constants for set operations in queries.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore represents the core SELECT clause.
type SelectCore struct {
	NodeInfo
	Distinct bool
	Columns  []*SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	Windows  []*WindowDef // Named window definitions (WINDOW clause)
	Qualify  Expr         // window function filter (DuckDB, Snowflake, ...)
	OrderBy  []*OrderByItem
	Limit    Expr
	Offset   Expr
}

// Kind implements Node.
func (*SelectCore) Kind() Kind { return KindSelectCore }

// SelectItem represents an item in the SELECT list. Star and t.* items hold
// a *StarExpr.
type SelectItem struct {
	NodeInfo
	Expr  Expr
	Alias Ident
}

// Kind implements Node.
func (*SelectItem) Kind() Kind { return KindSelectItem }

// OutputName returns the column name the item produces: the alias, the
// column name of a bare column reference, or "" when it has none.
func (s *SelectItem) OutputName() string {
	if !s.Alias.IsZero() {
		return s.Alias.Name
	}
	if col, ok := s.Expr.(*ColumnRef); ok {
		return col.Column.Name
	}
	return ""
}

// OrderByItem represents an item in ORDER BY clause.
type OrderByItem struct {
	NodeInfo
	Expr       Expr
	Desc       bool
	Explicit   bool  // ASC or DESC was written
	NullsFirst *bool // nil means default, true = NULLS FIRST, false = NULLS LAST
}

// Kind implements Node.
func (*OrderByItem) Kind() Kind { return KindOrderByItem }

// WindowDef represents a named window definition in the WINDOW clause.
// Example: WINDOW w AS (PARTITION BY x ORDER BY y)
type WindowDef struct {
	NodeInfo
	Name Ident
	Spec *WindowSpec
}

// Kind implements Node.
func (*WindowDef) Kind() Kind { return KindWindowDef }

// FromClause represents the FROM clause.
type FromClause struct {
	NodeInfo
	Source TableRef
	Joins  []*Join
}

// Kind implements Node.
func (*FromClause) Kind() Kind { return KindFrom }

// Join represents a JOIN clause.
type Join struct {
	NodeInfo
	Type      JoinType
	Natural   bool // NATURAL JOIN modifier
	Right     TableRef
	Condition Expr    // ON clause (mutually exclusive with Using)
	Using     []Ident // USING (col1, col2) columns
}

// Kind implements Node.
func (*Join) Kind() Kind { return KindJoin }

// EffectiveType returns the join type with the implicit INNER made explicit.
func (j *Join) EffectiveType() JoinType {
	if j.Type == JoinPlain {
		return JoinInner
	}
	return j.Type
}

// JoinType represents the type of join. The value is the SQL keyword.
type JoinType string

// Join types.
const (
	JoinPlain JoinType = ""  // JOIN without a type keyword, evaluated as INNER
	JoinComma JoinType = "," // implicit cross join using comma syntax
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// ---------- DML / DDL ----------

// InsertStmt represents INSERT INTO t [(cols)] VALUES ... | SELECT ...
type InsertStmt struct {
	StmtInfo
	Table   *TableName
	Columns []Ident
	Values  [][]Expr
	Select  *SelectStmt
}

func (*InsertStmt) stmtNode() {}

// Kind implements Node.
func (*InsertStmt) Kind() Kind { return KindInsert }

// UpdateStmt represents UPDATE t SET c = e, ... [FROM ...] [WHERE ...].
type UpdateStmt struct {
	StmtInfo
	Table *TableName
	Set   []*Assignment
	From  *FromClause
	Where Expr
}

func (*UpdateStmt) stmtNode() {}

// Kind implements Node.
func (*UpdateStmt) Kind() Kind { return KindUpdate }

// Assignment is a single SET target = value pair.
type Assignment struct {
	NodeInfo
	Column Ident
	Value  Expr
}

// Kind implements Node.
func (*Assignment) Kind() Kind { return KindAssignment }

// DeleteStmt represents DELETE FROM t [WHERE ...].
type DeleteStmt struct {
	StmtInfo
	Table *TableName
	Where Expr
}

func (*DeleteStmt) stmtNode() {}

// Kind implements Node.
func (*DeleteStmt) Kind() Kind { return KindDelete }

// CreateTableStmt represents CREATE [OR REPLACE] [TEMP] TABLE.
type CreateTableStmt struct {
	StmtInfo
	OrReplace   bool
	Temporary   bool
	IfNotExists bool
	Table       *TableName
	Columns     []*ColumnDef
	PrimaryKey  []Ident // table-level PRIMARY KEY (a, b)
	As          *SelectStmt
}

func (*CreateTableStmt) stmtNode() {}

// Kind implements Node.
func (*CreateTableStmt) Kind() Kind { return KindCreateTable }

// ColumnDef is a column in a CREATE TABLE column list.
type ColumnDef struct {
	NodeInfo
	Name       Ident
	Type       *DataType
	NotNull    bool
	PrimaryKey bool
	Default    Expr
}

// Kind implements Node.
func (*ColumnDef) Kind() Kind { return KindColumnDef }

// DropTableStmt represents DROP TABLE [IF EXISTS] t, ...
type DropTableStmt struct {
	StmtInfo
	IfExists bool
	Tables   []*TableName
	Cascade  bool
}

func (*DropTableStmt) stmtNode() {}

// Kind implements Node.
func (*DropTableStmt) Kind() Kind { return KindDropTable }

// CommandStmt is a statement outside the supported grammar, kept verbatim.
type CommandStmt struct {
	StmtInfo
	Keyword string // leading keyword, upper-cased
	Text    string // remaining raw text, trimmed
}

func (*CommandStmt) stmtNode() {}

// Kind implements Node.
func (*CommandStmt) Kind() Kind { return KindCommand }

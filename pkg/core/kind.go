package core

// Kind is the stable variant tag of an AST node.
type Kind uint8

// Node kinds.
const (
	KindInvalid Kind = iota

	// Statements
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
	KindCreateTable
	KindDropTable
	KindCommand

	// Clauses
	KindWith
	KindCTE
	KindSelectBody
	KindSelectCore
	KindSelectItem
	KindOrderByItem
	KindFrom
	KindJoin
	KindTableName
	KindDerivedTable
	KindWindowDef
	KindWindowSpec
	KindFrameBound
	KindAssignment
	KindColumnDef

	// Expressions
	KindColumnRef
	KindLiteral
	KindFuncCall
	KindBinary
	KindUnary
	KindSubquery
	KindExists
	KindIn
	KindBetween
	KindIsNull
	KindIsBool
	KindLike
	KindCase
	KindWhen
	KindCast
	KindParen
	KindList
	KindPlaceholder
	KindStar

	// Appended to keep the values above stable
	KindJoinedTable
)

var kindNames = [...]string{
	KindInvalid:      "Invalid",
	KindSelect:       "Select",
	KindInsert:       "Insert",
	KindUpdate:       "Update",
	KindDelete:       "Delete",
	KindCreateTable:  "CreateTable",
	KindDropTable:    "DropTable",
	KindCommand:      "Command",
	KindWith:         "With",
	KindCTE:          "CTE",
	KindSelectBody:   "SelectBody",
	KindSelectCore:   "SelectCore",
	KindSelectItem:   "SelectItem",
	KindOrderByItem:  "OrderByItem",
	KindFrom:         "From",
	KindJoin:         "Join",
	KindTableName:    "TableName",
	KindDerivedTable: "DerivedTable",
	KindWindowDef:    "WindowDef",
	KindWindowSpec:   "WindowSpec",
	KindFrameBound:   "FrameBound",
	KindAssignment:   "Assignment",
	KindColumnDef:    "ColumnDef",
	KindColumnRef:    "Column",
	KindLiteral:      "Literal",
	KindFuncCall:     "FunctionCall",
	KindBinary:       "BinaryOp",
	KindUnary:        "UnaryOp",
	KindSubquery:     "Subquery",
	KindExists:       "Exists",
	KindIn:           "In",
	KindBetween:      "Between",
	KindIsNull:       "IsNull",
	KindIsBool:       "IsBool",
	KindLike:         "Like",
	KindCase:         "Case",
	KindWhen:         "When",
	KindCast:         "Cast",
	KindParen:        "Paren",
	KindList:         "List",
	KindPlaceholder:  "Placeholder",
	KindStar:         "Star",
	KindJoinedTable:  "JoinedTable",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Invalid"
}

// IsStatement reports whether k tags a statement node.
func (k Kind) IsStatement() bool {
	return k >= KindSelect && k <= KindCommand
}

// IsExpression reports whether k tags an expression node.
func (k Kind) IsExpression() bool {
	return k >= KindColumnRef && k <= KindStar
}

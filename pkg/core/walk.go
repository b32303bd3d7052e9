package core

// Visitor is called for each node during Walk. Returning false skips the
// node's children.
type Visitor func(n Node) bool

// Walk traverses the tree rooted at n in depth-first source order.
func Walk(n Node, fn Visitor) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// Children returns the direct children of n in source order. Absent optional
// children are omitted.
func Children(n Node) []Node {
	var out []Node
	expr := func(e Expr) {
		if e != nil {
			out = append(out, e)
		}
	}
	exprs := func(es []Expr) {
		for _, e := range es {
			expr(e)
		}
	}
	stmt := func(s *SelectStmt) {
		if s != nil {
			out = append(out, s)
		}
	}
	table := func(t *TableName) {
		if t != nil {
			out = append(out, t)
		}
	}
	from := func(f *FromClause) {
		if f != nil {
			out = append(out, f)
		}
	}
	orderBy := func(items []*OrderByItem) {
		for _, o := range items {
			out = append(out, o)
		}
	}

	switch n := n.(type) {
	// Statements
	case *SelectStmt:
		if n.With != nil {
			out = append(out, n.With)
		}
		if n.Body != nil {
			out = append(out, n.Body)
		}
		orderBy(n.OrderBy)
		expr(n.Limit)
		expr(n.Offset)
	case *InsertStmt:
		table(n.Table)
		for _, row := range n.Values {
			exprs(row)
		}
		stmt(n.Select)
	case *UpdateStmt:
		table(n.Table)
		for _, a := range n.Set {
			out = append(out, a)
		}
		from(n.From)
		expr(n.Where)
	case *DeleteStmt:
		table(n.Table)
		expr(n.Where)
	case *CreateTableStmt:
		table(n.Table)
		for _, c := range n.Columns {
			out = append(out, c)
		}
		stmt(n.As)
	case *DropTableStmt:
		for _, t := range n.Tables {
			out = append(out, t)
		}
	case *CommandStmt:

	// Clauses
	case *WithClause:
		for _, c := range n.CTEs {
			out = append(out, c)
		}
	case *CTE:
		stmt(n.Select)
	case *SelectBody:
		if n.Left != nil {
			out = append(out, n.Left)
		}
		if n.Right != nil {
			out = append(out, n.Right)
		}
	case *SelectCore:
		for _, item := range n.Columns {
			out = append(out, item)
		}
		from(n.From)
		expr(n.Where)
		exprs(n.GroupBy)
		expr(n.Having)
		for _, w := range n.Windows {
			out = append(out, w)
		}
		expr(n.Qualify)
		orderBy(n.OrderBy)
		expr(n.Limit)
		expr(n.Offset)
	case *SelectItem:
		expr(n.Expr)
	case *OrderByItem:
		expr(n.Expr)
	case *WindowDef:
		if n.Spec != nil {
			out = append(out, n.Spec)
		}
	case *FromClause:
		if n.Source != nil {
			out = append(out, n.Source)
		}
		for _, j := range n.Joins {
			out = append(out, j)
		}
	case *Join:
		if n.Right != nil {
			out = append(out, n.Right)
		}
		expr(n.Condition)
	case *TableName:
	case *DerivedTable:
		stmt(n.Select)
	case *JoinedTable:
		if n.Source != nil {
			out = append(out, n.Source)
		}
		for _, j := range n.Joins {
			out = append(out, j)
		}
	case *Assignment:
		expr(n.Value)
	case *ColumnDef:
		expr(n.Default)

	// Expressions
	case *ColumnRef, *Literal, *Placeholder, *StarExpr:
	case *BinaryExpr:
		expr(n.Left)
		expr(n.Right)
	case *UnaryExpr:
		expr(n.Expr)
	case *FuncCall:
		exprs(n.Args)
		expr(n.Filter)
		if n.Window != nil {
			out = append(out, n.Window)
		}
	case *WindowSpec:
		exprs(n.PartitionBy)
		orderBy(n.OrderBy)
		if n.Frame != nil {
			if n.Frame.Start != nil {
				out = append(out, n.Frame.Start)
			}
			if n.Frame.End != nil {
				out = append(out, n.Frame.End)
			}
		}
	case *FrameBound:
		expr(n.Offset)
	case *CaseExpr:
		expr(n.Operand)
		for _, w := range n.Whens {
			out = append(out, w)
		}
		expr(n.Else)
	case *WhenClause:
		expr(n.Condition)
		expr(n.Result)
	case *CastExpr:
		expr(n.Expr)
	case *InExpr:
		expr(n.Expr)
		exprs(n.Values)
		stmt(n.Query)
	case *BetweenExpr:
		expr(n.Expr)
		expr(n.Low)
		expr(n.High)
	case *IsNullExpr:
		expr(n.Expr)
	case *IsBoolExpr:
		expr(n.Expr)
	case *LikeExpr:
		expr(n.Expr)
		expr(n.Pattern)
	case *ParenExpr:
		expr(n.Expr)
	case *SubqueryExpr:
		stmt(n.Select)
	case *ExistsExpr:
		stmt(n.Select)
	case *ListExpr:
		exprs(n.Elements)
	}
	return out
}

// WalkExprs visits e and every expression beneath it without descending
// into subqueries.
func WalkExprs(e Expr, fn func(Expr) bool) {
	if e == nil {
		return
	}
	Walk(e, func(n Node) bool {
		switch n.(type) {
		case *SubqueryExpr, *ExistsExpr:
			if x, ok := n.(Expr); ok {
				fn(x)
			}
			return false
		case *SelectStmt:
			return false
		}
		if x, ok := n.(Expr); ok {
			return fn(x)
		}
		return true
	})
}

package core

// CloneStmt returns a deep copy of s. Source spans are preserved.
func CloneStmt(s Stmt) Stmt {
	switch s := s.(type) {
	case *SelectStmt:
		return CloneSelect(s)
	case *InsertStmt:
		c := *s
		c.Comments = cloneSlice(s.Comments)
		c.Table = cloneTableName(s.Table)
		c.Columns = cloneSlice(s.Columns)
		if s.Values != nil {
			c.Values = make([][]Expr, len(s.Values))
			for i, row := range s.Values {
				c.Values[i] = CloneExprs(row)
			}
		}
		c.Select = CloneSelect(s.Select)
		return &c
	case *UpdateStmt:
		c := *s
		c.Comments = cloneSlice(s.Comments)
		c.Table = cloneTableName(s.Table)
		if s.Set != nil {
			c.Set = make([]*Assignment, len(s.Set))
			for i, a := range s.Set {
				ac := *a
				ac.Value = CloneExpr(a.Value)
				c.Set[i] = &ac
			}
		}
		c.From = cloneFrom(s.From)
		c.Where = CloneExpr(s.Where)
		return &c
	case *DeleteStmt:
		c := *s
		c.Comments = cloneSlice(s.Comments)
		c.Table = cloneTableName(s.Table)
		c.Where = CloneExpr(s.Where)
		return &c
	case *CreateTableStmt:
		c := *s
		c.Comments = cloneSlice(s.Comments)
		c.Table = cloneTableName(s.Table)
		if s.Columns != nil {
			c.Columns = make([]*ColumnDef, len(s.Columns))
			for i, col := range s.Columns {
				cc := *col
				cc.Type = cloneDataType(col.Type)
				cc.Default = CloneExpr(col.Default)
				c.Columns[i] = &cc
			}
		}
		c.PrimaryKey = cloneSlice(s.PrimaryKey)
		c.As = CloneSelect(s.As)
		return &c
	case *DropTableStmt:
		c := *s
		c.Comments = cloneSlice(s.Comments)
		if s.Tables != nil {
			c.Tables = make([]*TableName, len(s.Tables))
			for i, t := range s.Tables {
				c.Tables[i] = cloneTableName(t)
			}
		}
		return &c
	case *CommandStmt:
		c := *s
		c.Comments = cloneSlice(s.Comments)
		return &c
	}
	return nil
}

// CloneSelect returns a deep copy of a SELECT statement.
func CloneSelect(s *SelectStmt) *SelectStmt {
	if s == nil {
		return nil
	}
	c := *s
	c.Comments = cloneSlice(s.Comments)
	if s.With != nil {
		w := *s.With
		w.CTEs = make([]*CTE, len(s.With.CTEs))
		for i, cte := range s.With.CTEs {
			cc := *cte
			cc.Columns = cloneSlice(cte.Columns)
			cc.Select = CloneSelect(cte.Select)
			w.CTEs[i] = &cc
		}
		c.With = &w
	}
	c.Body = cloneBody(s.Body)
	c.OrderBy = cloneOrderBy(s.OrderBy)
	c.Limit = CloneExpr(s.Limit)
	c.Offset = CloneExpr(s.Offset)
	return &c
}

func cloneBody(b *SelectBody) *SelectBody {
	if b == nil {
		return nil
	}
	c := *b
	c.Left = CloneCore(b.Left)
	c.Right = cloneBody(b.Right)
	return &c
}

// CloneCore returns a deep copy of a SELECT core.
func CloneCore(s *SelectCore) *SelectCore {
	if s == nil {
		return nil
	}
	c := *s
	if s.Columns != nil {
		c.Columns = make([]*SelectItem, len(s.Columns))
		for i, item := range s.Columns {
			ic := *item
			ic.Expr = CloneExpr(item.Expr)
			c.Columns[i] = &ic
		}
	}
	c.From = cloneFrom(s.From)
	c.Where = CloneExpr(s.Where)
	c.GroupBy = CloneExprs(s.GroupBy)
	c.Having = CloneExpr(s.Having)
	if s.Windows != nil {
		c.Windows = make([]*WindowDef, len(s.Windows))
		for i, w := range s.Windows {
			wc := *w
			wc.Spec = cloneWindow(w.Spec)
			c.Windows[i] = &wc
		}
	}
	c.Qualify = CloneExpr(s.Qualify)
	c.OrderBy = cloneOrderBy(s.OrderBy)
	c.Limit = CloneExpr(s.Limit)
	c.Offset = CloneExpr(s.Offset)
	return &c
}

func cloneFrom(f *FromClause) *FromClause {
	if f == nil {
		return nil
	}
	c := *f
	c.Source = CloneTableRef(f.Source)
	c.Joins = cloneJoins(f.Joins)
	return &c
}

func cloneJoins(joins []*Join) []*Join {
	if joins == nil {
		return nil
	}
	out := make([]*Join, len(joins))
	for i, j := range joins {
		jc := *j
		jc.Right = CloneTableRef(j.Right)
		jc.Condition = CloneExpr(j.Condition)
		jc.Using = cloneSlice(j.Using)
		out[i] = &jc
	}
	return out
}

// CloneTableRef returns a deep copy of a FROM item.
func CloneTableRef(t TableRef) TableRef {
	switch t := t.(type) {
	case *TableName:
		return cloneTableName(t)
	case *DerivedTable:
		c := *t
		c.Select = CloneSelect(t.Select)
		return &c
	case *JoinedTable:
		c := *t
		c.Source = CloneTableRef(t.Source)
		c.Joins = cloneJoins(t.Joins)
		return &c
	}
	return nil
}

func cloneTableName(t *TableName) *TableName {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneOrderBy(items []*OrderByItem) []*OrderByItem {
	if items == nil {
		return nil
	}
	out := make([]*OrderByItem, len(items))
	for i, o := range items {
		c := *o
		c.Expr = CloneExpr(o.Expr)
		if o.NullsFirst != nil {
			b := *o.NullsFirst
			c.NullsFirst = &b
		}
		out[i] = &c
	}
	return out
}

func cloneWindow(w *WindowSpec) *WindowSpec {
	if w == nil {
		return nil
	}
	c := *w
	c.PartitionBy = CloneExprs(w.PartitionBy)
	c.OrderBy = cloneOrderBy(w.OrderBy)
	if w.Frame != nil {
		f := *w.Frame
		f.Start = cloneBound(w.Frame.Start)
		f.End = cloneBound(w.Frame.End)
		c.Frame = &f
	}
	return &c
}

func cloneBound(b *FrameBound) *FrameBound {
	if b == nil {
		return nil
	}
	c := *b
	c.Offset = CloneExpr(b.Offset)
	return &c
}

func cloneDataType(t *DataType) *DataType {
	if t == nil {
		return nil
	}
	c := *t
	c.Params = cloneSlice(t.Params)
	return &c
}

// CloneExprs returns a deep copy of each expression.
func CloneExprs(es []Expr) []Expr {
	if es == nil {
		return nil
	}
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = CloneExpr(e)
	}
	return out
}

// CloneExpr returns a deep copy of e.
func CloneExpr(e Expr) Expr {
	switch e := e.(type) {
	case nil:
		return nil
	case *ColumnRef:
		c := *e
		return &c
	case *Literal:
		c := *e
		return &c
	case *Placeholder:
		c := *e
		return &c
	case *StarExpr:
		c := *e
		return &c
	case *BinaryExpr:
		c := *e
		c.Left = CloneExpr(e.Left)
		c.Right = CloneExpr(e.Right)
		return &c
	case *UnaryExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		return &c
	case *FuncCall:
		c := *e
		c.Args = CloneExprs(e.Args)
		c.Filter = CloneExpr(e.Filter)
		c.Window = cloneWindow(e.Window)
		return &c
	case *CaseExpr:
		c := *e
		c.Operand = CloneExpr(e.Operand)
		if e.Whens != nil {
			c.Whens = make([]*WhenClause, len(e.Whens))
			for i, w := range e.Whens {
				wc := *w
				wc.Condition = CloneExpr(w.Condition)
				wc.Result = CloneExpr(w.Result)
				c.Whens[i] = &wc
			}
		}
		c.Else = CloneExpr(e.Else)
		return &c
	case *CastExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		c.Type = cloneDataType(e.Type)
		return &c
	case *InExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		c.Values = CloneExprs(e.Values)
		c.Query = CloneSelect(e.Query)
		return &c
	case *BetweenExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		c.Low = CloneExpr(e.Low)
		c.High = CloneExpr(e.High)
		return &c
	case *IsNullExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		return &c
	case *IsBoolExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		return &c
	case *LikeExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		c.Pattern = CloneExpr(e.Pattern)
		return &c
	case *ParenExpr:
		c := *e
		c.Expr = CloneExpr(e.Expr)
		return &c
	case *SubqueryExpr:
		c := *e
		c.Select = CloneSelect(e.Select)
		return &c
	case *ExistsExpr:
		c := *e
		c.Select = CloneSelect(e.Select)
		return &c
	case *ListExpr:
		c := *e
		c.Elements = CloneExprs(e.Elements)
		return &c
	}
	return e
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

package core

import (
	"testing"

	"github.com/leapstack-labs/polysql/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds: SELECT a.x AS y, COUNT(*) FROM t a JOIN (SELECT id FROM u) b ON a.id = b.id WHERE a.x > 1
func sample() *SelectStmt {
	sub := &SelectStmt{Body: &SelectBody{Left: &SelectCore{
		Columns: []*SelectItem{{Expr: &ColumnRef{Column: NewIdent("id")}}},
		From:    &FromClause{Source: &TableName{Name: NewIdent("u")}},
	}}}
	return &SelectStmt{Body: &SelectBody{Left: &SelectCore{
		Columns: []*SelectItem{
			{Expr: &ColumnRef{Table: NewIdent("a"), Column: NewIdent("x")}, Alias: NewIdent("y")},
			{Expr: &FuncCall{Name: "COUNT", Star: true}},
		},
		From: &FromClause{
			Source: &TableName{Name: NewIdent("t"), Alias: NewIdent("a")},
			Joins: []*Join{{
				Right: &DerivedTable{Select: sub, Alias: NewIdent("b")},
				Condition: &BinaryExpr{
					Left:  &ColumnRef{Table: NewIdent("a"), Column: NewIdent("id")},
					Op:    token.EQ,
					Right: &ColumnRef{Table: NewIdent("b"), Column: NewIdent("id")},
				},
			}},
		},
		Where: &BinaryExpr{
			Left:  &ColumnRef{Table: NewIdent("a"), Column: NewIdent("x")},
			Op:    token.GT,
			Right: NewNumber("1"),
		},
	}}}
}

func TestWalk_VisitsEveryColumn(t *testing.T) {
	var cols []string
	Walk(sample(), func(n Node) bool {
		if c, ok := n.(*ColumnRef); ok {
			cols = append(cols, c.Table.Name+"."+c.Column.Name)
		}
		return true
	})
	assert.Equal(t, []string{"a.x", ".id", "a.id", "b.id", "a.x"}, cols)
}

func TestWalk_SkipChildren(t *testing.T) {
	count := 0
	Walk(sample(), func(n Node) bool {
		count++
		return n.Kind() != KindDerivedTable
	})

	var subCount int
	Walk(sample(), func(n Node) bool {
		subCount++
		return true
	})
	assert.Less(t, count, subCount)
}

func TestWalkExprs_StopsAtSubquery(t *testing.T) {
	e := &InExpr{
		Expr:  &ColumnRef{Column: NewIdent("x")},
		Query: &SelectStmt{Body: &SelectBody{Left: &SelectCore{Columns: []*SelectItem{{Expr: &ColumnRef{Column: NewIdent("inner")}}}}}},
	}
	var kinds []Kind
	WalkExprs(e, func(x Expr) bool {
		kinds = append(kinds, x.Kind())
		return true
	})
	assert.Equal(t, []Kind{KindIn, KindColumnRef}, kinds)
}

func TestCloneSelect_IsDeep(t *testing.T) {
	orig := sample()
	c := CloneSelect(orig)
	require.NotSame(t, orig, c)

	where, ok := c.Body.Left.Where.(*BinaryExpr)
	require.True(t, ok)
	where.Right = NewNumber("2")
	c.Body.Left.Columns[0].Alias = NewIdent("z")
	c.Body.Left.From.Source.(*TableName).Name = NewIdent("other")

	origWhere := orig.Body.Left.Where.(*BinaryExpr)
	assert.Equal(t, "1", origWhere.Right.(*Literal).Value)
	assert.Equal(t, "y", orig.Body.Left.Columns[0].Alias.Name)
	assert.Equal(t, "t", orig.Body.Left.From.Source.(*TableName).Name.Name)
}

func TestCloneStmt_AllStatements(t *testing.T) {
	stmts := []Stmt{
		sample(),
		&InsertStmt{Table: &TableName{Name: NewIdent("t")}, Values: [][]Expr{{NewNumber("1")}}},
		&UpdateStmt{Table: &TableName{Name: NewIdent("t")}, Set: []*Assignment{{Column: NewIdent("a"), Value: NewNumber("1")}}},
		&DeleteStmt{Table: &TableName{Name: NewIdent("t")}},
		&CreateTableStmt{Table: &TableName{Name: NewIdent("t")}, Columns: []*ColumnDef{{Name: NewIdent("a"), Type: &DataType{Name: "INT"}}}},
		&DropTableStmt{Tables: []*TableName{{Name: NewIdent("t")}}},
		&CommandStmt{Keyword: "SHOW", Text: "TABLES"},
	}
	for _, s := range stmts {
		t.Run(s.Kind().String(), func(t *testing.T) {
			c := CloneStmt(s)
			require.NotNil(t, c)
			assert.Equal(t, s.Kind(), c.Kind())
			assert.Equal(t, s, c)
			assert.True(t, c.Kind().IsStatement())
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Select", KindSelect.String())
	assert.Equal(t, "Column", KindColumnRef.String())
	assert.Equal(t, "Invalid", Kind(250).String())
	assert.True(t, KindStar.IsExpression())
	assert.False(t, KindJoin.IsExpression())
}

func TestSelectStmt_Cores(t *testing.T) {
	s := &SelectStmt{Body: &SelectBody{
		Left: &SelectCore{},
		Op:   SetOpUnion,
		Right: &SelectBody{
			Left: &SelectCore{},
			Op:   SetOpExcept,
			Right: &SelectBody{Left: &SelectCore{}},
		},
	}}
	assert.Len(t, s.Cores(), 3)
	assert.True(t, s.IsSetOperation())
}

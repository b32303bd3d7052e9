package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/dialects/ansi"
	"github.com/leapstack-labs/polysql/pkg/dialects/clickhouse"
	"github.com/leapstack-labs/polysql/pkg/dialects/databricks"
	"github.com/leapstack-labs/polysql/pkg/dialects/duckdb"
	"github.com/leapstack-labs/polysql/pkg/dialects/mysql"
	"github.com/leapstack-labs/polysql/pkg/dialects/postgres"
	"github.com/leapstack-labs/polysql/pkg/dialects/sqlite"
	"github.com/leapstack-labs/polysql/pkg/parser"
	"github.com/leapstack-labs/polysql/pkg/token"

	_ "github.com/leapstack-labs/polysql/pkg/dialects/all" // register every dialect's clauses
)

// parseSelect parses sql and returns the statement and its first core.
func parseSelect(t *testing.T, sql string, d *dialect.Dialect) (*core.SelectStmt, *core.SelectCore) {
	t.Helper()
	stmt, err := parser.Parse(sql, d)
	require.NoError(t, err)
	sel, ok := stmt.(*core.SelectStmt)
	require.True(t, ok, "expected *core.SelectStmt, got %T", stmt)
	require.NotNil(t, sel.Body)
	require.NotNil(t, sel.Body.Left)
	return sel, sel.Body.Left
}

// firstExpr returns the expression of the first select item.
func firstExpr(t *testing.T, sql string, d *dialect.Dialect) core.Expr {
	t.Helper()
	_, sc := parseSelect(t, sql, d)
	require.NotEmpty(t, sc.Columns)
	return sc.Columns[0].Expr
}

func parseErr(t *testing.T, sql string, d *dialect.Dialect) *diag.Diagnostic {
	t.Helper()
	_, err := parser.Parse(sql, d)
	require.Error(t, err)
	dg, ok := diag.As(err)
	require.True(t, ok, "expected *diag.Diagnostic, got %T", err)
	return dg
}

// ---------- SELECT Tests ----------

func TestParseSimpleSelect(t *testing.T) {
	_, sc := parseSelect(t, "SELECT a, b AS c, d e FROM db.t x WHERE a > 1", ansi.ANSI)

	require.Len(t, sc.Columns, 3)
	assert.Equal(t, "a", sc.Columns[0].OutputName())
	assert.Equal(t, "c", sc.Columns[1].Alias.Name)
	assert.Equal(t, "e", sc.Columns[2].Alias.Name)

	require.NotNil(t, sc.From)
	table, ok := sc.From.Source.(*core.TableName)
	require.True(t, ok)
	assert.Equal(t, "db.t", table.Qualified())
	assert.Equal(t, "x", table.RefName())

	where, ok := sc.Where.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.GT, where.Op)
}

func TestParseStar(t *testing.T) {
	_, sc := parseSelect(t, "SELECT *, t.* FROM t", ansi.ANSI)
	require.Len(t, sc.Columns, 2)

	star, ok := sc.Columns[0].Expr.(*core.StarExpr)
	require.True(t, ok)
	assert.True(t, star.Table.IsZero())

	tstar, ok := sc.Columns[1].Expr.(*core.StarExpr)
	require.True(t, ok)
	assert.Equal(t, "t", tstar.Table.Name)
}

func TestParseDistinct(t *testing.T) {
	_, sc := parseSelect(t, "SELECT DISTINCT a FROM t", ansi.ANSI)
	assert.True(t, sc.Distinct)
}

func TestParseQuotedIdentifiers(t *testing.T) {
	_, sc := parseSelect(t, `SELECT "Order Id" FROM "My Table"`, postgres.Postgres)

	col, ok := sc.Columns[0].Expr.(*core.ColumnRef)
	require.True(t, ok)
	assert.Equal(t, core.Ident{Name: "Order Id", Quoted: true}, col.Column)

	table := sc.From.Source.(*core.TableName)
	assert.True(t, table.Name.Quoted)
}

func TestParseQualifiedColumn(t *testing.T) {
	e := firstExpr(t, "SELECT s.t.c FROM s.t", ansi.ANSI)
	col, ok := e.(*core.ColumnRef)
	require.True(t, ok)
	assert.Equal(t, "s", col.Schema.Name)
	assert.Equal(t, "t", col.Table.Name)
	assert.Equal(t, "c", col.Column.Name)
}

func TestParseGroupByHavingOrderLimit(t *testing.T) {
	_, sc := parseSelect(t, `SELECT a, COUNT(*) FROM t
		GROUP BY a HAVING COUNT(*) > 1
		ORDER BY a DESC NULLS LAST, 2
		LIMIT 10 OFFSET 5`, ansi.ANSI)

	assert.Len(t, sc.GroupBy, 1)
	assert.NotNil(t, sc.Having)
	require.Len(t, sc.OrderBy, 2)
	assert.True(t, sc.OrderBy[0].Desc)
	assert.True(t, sc.OrderBy[0].Explicit)
	require.NotNil(t, sc.OrderBy[0].NullsFirst)
	assert.False(t, *sc.OrderBy[0].NullsFirst)
	assert.False(t, sc.OrderBy[1].Explicit)
	assert.Nil(t, sc.OrderBy[1].NullsFirst)

	assert.Equal(t, "10", sc.Limit.(*core.Literal).Value)
	assert.Equal(t, "5", sc.Offset.(*core.Literal).Value)
}

func TestParseMySQLLimitComma(t *testing.T) {
	_, sc := parseSelect(t, "SELECT a FROM t LIMIT 5, 10", mysql.MySQL)
	assert.Equal(t, "10", sc.Limit.(*core.Literal).Value)
	assert.Equal(t, "5", sc.Offset.(*core.Literal).Value)
}

func TestParseSelectWithoutFrom(t *testing.T) {
	_, sc := parseSelect(t, "SELECT 1 + 1", ansi.ANSI)
	assert.Nil(t, sc.From)
}

// ---------- Expression Tests ----------

func TestParsePrecedence(t *testing.T) {
	e := firstExpr(t, "SELECT 1 + 2 * 3", ansi.ANSI)
	add, ok := e.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, add.Op)

	mul, ok := add.Right.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.STAR, mul.Op)
}

func TestParseLeftAssociative(t *testing.T) {
	e := firstExpr(t, "SELECT 10 - 3 - 2", ansi.ANSI)
	outer := e.(*core.BinaryExpr)
	inner, ok := outer.Left.(*core.BinaryExpr)
	require.True(t, ok, "10 - 3 - 2 must group as (10 - 3) - 2")
	assert.Equal(t, "10", inner.Left.(*core.Literal).Value)
	assert.Equal(t, "2", outer.Right.(*core.Literal).Value)
}

func TestParseBooleanPrecedence(t *testing.T) {
	_, sc := parseSelect(t, "SELECT a FROM t WHERE NOT a = 1 OR b = 2 AND c = 3", ansi.ANSI)

	or, ok := sc.Where.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.OR, or.Op)

	not, ok := or.Left.(*core.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.NOT, not.Op)
	_, ok = not.Expr.(*core.BinaryExpr)
	assert.True(t, ok, "NOT binds looser than comparison")

	and, ok := or.Right.(*core.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.AND, and.Op)
}

func TestParseUnaryMinus(t *testing.T) {
	e := firstExpr(t, "SELECT -a * 2", ansi.ANSI)
	mul := e.(*core.BinaryExpr)
	neg, ok := mul.Left.(*core.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.MINUS, neg.Op)
}

func TestParsePredicates(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		check func(t *testing.T, e core.Expr)
	}{
		{
			name: "between",
			sql:  "SELECT a BETWEEN 1 AND 2 + 3",
			check: func(t *testing.T, e core.Expr) {
				b := e.(*core.BetweenExpr)
				assert.False(t, b.Not)
				_, ok := b.High.(*core.BinaryExpr)
				assert.True(t, ok)
			},
		},
		{
			name: "not between",
			sql:  "SELECT a NOT BETWEEN 1 AND 2",
			check: func(t *testing.T, e core.Expr) {
				assert.True(t, e.(*core.BetweenExpr).Not)
			},
		},
		{
			name: "in list",
			sql:  "SELECT a IN (1, 2, 3)",
			check: func(t *testing.T, e core.Expr) {
				in := e.(*core.InExpr)
				assert.Len(t, in.Values, 3)
				assert.Nil(t, in.Query)
			},
		},
		{
			name: "not in subquery",
			sql:  "SELECT a NOT IN (SELECT b FROM u)",
			check: func(t *testing.T, e core.Expr) {
				in := e.(*core.InExpr)
				assert.True(t, in.Not)
				assert.NotNil(t, in.Query)
			},
		},
		{
			name: "is not null",
			sql:  "SELECT a IS NOT NULL",
			check: func(t *testing.T, e core.Expr) {
				assert.True(t, e.(*core.IsNullExpr).Not)
			},
		},
		{
			name: "is false",
			sql:  "SELECT a IS FALSE",
			check: func(t *testing.T, e core.Expr) {
				b := e.(*core.IsBoolExpr)
				assert.False(t, b.Value)
				assert.False(t, b.Not)
			},
		},
		{
			name: "not like",
			sql:  "SELECT a NOT LIKE 'x%'",
			check: func(t *testing.T, e core.Expr) {
				l := e.(*core.LikeExpr)
				assert.True(t, l.Not)
				assert.False(t, l.CaseInsensitive)
			},
		},
		{
			name: "exists",
			sql:  "SELECT NOT EXISTS (SELECT 1)",
			check: func(t *testing.T, e core.Expr) {
				assert.True(t, e.(*core.ExistsExpr).Not)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, firstExpr(t, tt.sql, ansi.ANSI))
		})
	}
}

func TestParseIlikeByDialect(t *testing.T) {
	e := firstExpr(t, "SELECT a ILIKE 'x'", duckdb.DuckDB)
	like, ok := e.(*core.LikeExpr)
	require.True(t, ok)
	assert.True(t, like.CaseInsensitive)

	// MySQL has no ILIKE: the word becomes an alias and 'x' is trailing input.
	_, err := parser.Parse("SELECT a ILIKE 'x'", mysql.MySQL)
	require.Error(t, err)
}

func TestParseCase(t *testing.T) {
	e := firstExpr(t, "SELECT CASE WHEN a > 0 THEN 'pos' WHEN a < 0 THEN 'neg' ELSE 'zero' END", ansi.ANSI)
	c, ok := e.(*core.CaseExpr)
	require.True(t, ok)
	assert.Nil(t, c.Operand)
	assert.Len(t, c.Whens, 2)
	assert.NotNil(t, c.Else)

	e = firstExpr(t, "SELECT CASE a WHEN 1 THEN 'one' END", ansi.ANSI)
	c = e.(*core.CaseExpr)
	assert.NotNil(t, c.Operand)
	assert.Nil(t, c.Else)
}

func TestParseCaseRequiresWhen(t *testing.T) {
	dg := parseErr(t, "SELECT CASE a END", ansi.ANSI)
	assert.Equal(t, "unexpected token END, expected WHEN", dg.Message)
}

func TestParseCasts(t *testing.T) {
	tests := []struct {
		name      string
		d         *dialect.Dialect
		sql       string
		typ       string
		shorthand bool
	}{
		{"cast integer alias", ansi.ANSI, "SELECT CAST(a AS INTEGER)", "INT", false},
		{"cast with params", ansi.ANSI, "SELECT CAST(a AS DECIMAL(10, 2))", "DECIMAL(10, 2)", false},
		{"double precision", postgres.Postgres, "SELECT CAST(a AS DOUBLE PRECISION)", "DOUBLE", false},
		{"shorthand", duckdb.DuckDB, "SELECT a::varchar(20)", "VARCHAR(20)", true},
		{"array type", postgres.Postgres, "SELECT a::int[]", "INT[]", true},
		{"timestamp with time zone", postgres.Postgres, "SELECT CAST(a AS TIMESTAMP WITH TIME ZONE)", "TIMESTAMP WITH TIME ZONE", false},
		{"bigquery string", ansi.ANSI, "SELECT CAST(a AS STRING)", "TEXT", false},
		{"clickhouse keeps spelling", clickhouse.ClickHouse, "SELECT CAST(a AS LowCardinality(UInt8))", "LowCardinality(UInt8)", false},
		{"clickhouse alias", clickhouse.ClickHouse, "SELECT CAST(a AS Int64)", "BIGINT", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := firstExpr(t, tt.sql, tt.d)
			cast, ok := e.(*core.CastExpr)
			require.True(t, ok, "got %T", e)
			assert.Equal(t, tt.typ, cast.Type.String())
			assert.Equal(t, tt.shorthand, cast.Shorthand)
		})
	}
}

func TestParseNumericSuffix(t *testing.T) {
	e := firstExpr(t, "SELECT 10L", databricks.Databricks)
	cast, ok := e.(*core.CastExpr)
	require.True(t, ok)
	assert.Equal(t, "BIGINT", cast.Type.Name)
	assert.Equal(t, "10", cast.Expr.(*core.Literal).Value)
}

func TestParseFunctionCalls(t *testing.T) {
	e := firstExpr(t, "SELECT COUNT(DISTINCT a)", ansi.ANSI)
	fn := e.(*core.FuncCall)
	assert.Equal(t, "COUNT", fn.Name)
	assert.True(t, fn.Distinct)

	fn = firstExpr(t, "SELECT count(*)", ansi.ANSI).(*core.FuncCall)
	assert.True(t, fn.Star)

	fn = firstExpr(t, "SELECT substr(a, 1, 2)", sqlite.SQLite).(*core.FuncCall)
	assert.Equal(t, "SUBSTRING", fn.Name)
	assert.Len(t, fn.Args, 3)

	fn = firstExpr(t, "SELECT myschema.my_fn(1)", ansi.ANSI).(*core.FuncCall)
	assert.Equal(t, "myschema.MY_FN", fn.Name)

	fn = firstExpr(t, "SELECT CURRENT_DATE", ansi.ANSI).(*core.FuncCall)
	assert.True(t, fn.Niladic)

	fn = firstExpr(t, "SELECT LEFT(a, 2)", ansi.ANSI).(*core.FuncCall)
	assert.Equal(t, "LEFT", fn.Name)
}

func TestParseFunctionNameCaseSensitive(t *testing.T) {
	fn := firstExpr(t, "SELECT toStartOfDay(a)", clickhouse.ClickHouse).(*core.FuncCall)
	assert.Equal(t, "toStartOfDay", fn.Name)

	fn = firstExpr(t, "SELECT groupArray(a)", clickhouse.ClickHouse).(*core.FuncCall)
	assert.Equal(t, "ARRAY_AGG", fn.Name)
}

func TestParseFilterAndWindow(t *testing.T) {
	fn := firstExpr(t, "SELECT COUNT(*) FILTER (WHERE a > 1) FROM t", ansi.ANSI).(*core.FuncCall)
	assert.NotNil(t, fn.Filter)

	fn = firstExpr(t, `SELECT SUM(a) OVER (PARTITION BY b ORDER BY c
		ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) FROM t`, ansi.ANSI).(*core.FuncCall)
	require.NotNil(t, fn.Window)
	assert.Len(t, fn.Window.PartitionBy, 1)
	assert.Len(t, fn.Window.OrderBy, 1)
	require.NotNil(t, fn.Window.Frame)
	assert.Equal(t, core.FrameRows, fn.Window.Frame.Type)
	assert.Equal(t, core.FrameUnboundedPreceding, fn.Window.Frame.Start.Type)
	assert.Equal(t, core.FrameCurrentRow, fn.Window.Frame.End.Type)

	fn = firstExpr(t, "SELECT SUM(a) OVER (RANGE 3 PRECEDING) FROM t", ansi.ANSI).(*core.FuncCall)
	assert.Equal(t, core.FrameExprPreceding, fn.Window.Frame.Start.Type)
	assert.Nil(t, fn.Window.Frame.End)
}

func TestParseNamedWindow(t *testing.T) {
	_, sc := parseSelect(t, "SELECT ROW_NUMBER() OVER w FROM t WINDOW w AS (PARTITION BY a ORDER BY b)", ansi.ANSI)

	fn := sc.Columns[0].Expr.(*core.FuncCall)
	assert.Equal(t, "w", fn.Window.Name.Name)

	require.Len(t, sc.Windows, 1)
	assert.Equal(t, "w", sc.Windows[0].Name.Name)
	assert.Len(t, sc.Windows[0].Spec.PartitionBy, 1)
}

func TestParseListLiterals(t *testing.T) {
	tests := []struct {
		name string
		d    *dialect.Dialect
		sql  string
	}{
		{"duckdb brackets", duckdb.DuckDB, "SELECT [1, 2, 3]"},
		{"postgres array keyword", postgres.Postgres, "SELECT ARRAY[1, 2, 3]"},
		{"mysql json_array", mysql.MySQL, "SELECT JSON_ARRAY(1, 2, 3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := firstExpr(t, tt.sql, tt.d)
			list, ok := e.(*core.ListExpr)
			require.True(t, ok, "got %T", e)
			assert.Len(t, list.Elements, 3)
		})
	}
}

func TestParseMySQLPipesAreOr(t *testing.T) {
	e := firstExpr(t, "SELECT a || b", mysql.MySQL)
	assert.Equal(t, token.OR, e.(*core.BinaryExpr).Op)

	e = firstExpr(t, "SELECT a || b", postgres.Postgres)
	assert.Equal(t, token.DPIPE, e.(*core.BinaryExpr).Op)
}

func TestParsePlaceholders(t *testing.T) {
	_, sc := parseSelect(t, "SELECT a FROM t WHERE a = ? AND b = $2", postgres.Postgres)
	and := sc.Where.(*core.BinaryExpr)
	assert.Equal(t, "?", and.Left.(*core.BinaryExpr).Right.(*core.Placeholder).Text)
	assert.Equal(t, "$2", and.Right.(*core.BinaryExpr).Right.(*core.Placeholder).Text)
}

func TestParseScalarSubquery(t *testing.T) {
	e := firstExpr(t, "SELECT (SELECT MAX(b) FROM u)", ansi.ANSI)
	_, ok := e.(*core.SubqueryExpr)
	assert.True(t, ok)

	e = firstExpr(t, "SELECT (a + 1) * 2", ansi.ANSI)
	_, ok = e.(*core.BinaryExpr).Left.(*core.ParenExpr)
	assert.True(t, ok)
}

// ---------- FROM / JOIN Tests ----------

func TestParseJoinTypes(t *testing.T) {
	tests := []struct {
		sql  string
		want core.JoinType
	}{
		{"SELECT * FROM a JOIN b ON a.id = b.id", core.JoinPlain},
		{"SELECT * FROM a INNER JOIN b ON a.id = b.id", core.JoinInner},
		{"SELECT * FROM a LEFT JOIN b ON a.id = b.id", core.JoinLeft},
		{"SELECT * FROM a LEFT OUTER JOIN b ON a.id = b.id", core.JoinLeft},
		{"SELECT * FROM a RIGHT JOIN b ON a.id = b.id", core.JoinRight},
		{"SELECT * FROM a FULL OUTER JOIN b ON a.id = b.id", core.JoinFull},
		{"SELECT * FROM a CROSS JOIN b", core.JoinCross},
		{"SELECT * FROM a, b", core.JoinComma},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			_, sc := parseSelect(t, tt.sql, ansi.ANSI)
			require.Len(t, sc.From.Joins, 1)
			assert.Equal(t, tt.want, sc.From.Joins[0].Type)
		})
	}
}

func TestParseJoinEffectiveType(t *testing.T) {
	_, sc := parseSelect(t, "SELECT * FROM a JOIN b ON a.id = b.id", ansi.ANSI)
	assert.Equal(t, core.JoinInner, sc.From.Joins[0].EffectiveType())
}

func TestParseJoinUsing(t *testing.T) {
	_, sc := parseSelect(t, "SELECT * FROM a LEFT JOIN b USING (id, k)", ansi.ANSI)
	join := sc.From.Joins[0]
	assert.Equal(t, []string{"id", "k"}, core.Names(join.Using))
	assert.Nil(t, join.Condition)
}

func TestParseNaturalJoin(t *testing.T) {
	_, sc := parseSelect(t, "SELECT * FROM t1 NATURAL LEFT OUTER JOIN t2", ansi.ANSI)
	join := sc.From.Joins[0]
	assert.True(t, join.Natural)
	assert.Equal(t, core.JoinLeft, join.Type)

	dg := parseErr(t, "SELECT * FROM t1 NATURAL JOIN t2 ON t1.id = t2.id", ansi.ANSI)
	assert.Contains(t, dg.Message, "NATURAL JOIN cannot have ON")
}

func TestParseDanglingOn(t *testing.T) {
	_, sc := parseSelect(t, "SELECT * FROM a LEFT JOIN b JOIN c ON b.x = c.x ON a.y = b.y", ansi.ANSI)
	require.Len(t, sc.From.Joins, 1)

	outer := sc.From.Joins[0]
	assert.Equal(t, core.JoinLeft, outer.Type)
	cond := outer.Condition.(*core.BinaryExpr)
	assert.Equal(t, "a", cond.Left.(*core.ColumnRef).Table.Name)

	// b JOIN c ON b.x = c.x is the right-hand side of the LEFT JOIN.
	nested, ok := outer.Right.(*core.JoinedTable)
	require.True(t, ok, "right side is %T", outer.Right)
	assert.Equal(t, "b", core.TableRefName(nested.Source))
	require.Len(t, nested.Joins, 1)
	assert.Equal(t, "c", core.TableRefName(nested.Joins[0].Right))
	inner := nested.Joins[0].Condition.(*core.BinaryExpr)
	assert.Equal(t, "b", inner.Left.(*core.ColumnRef).Table.Name)
}

func TestParseDanglingOn_LastJoin(t *testing.T) {
	// ON right after the join it belongs to leaves the list flat.
	_, sc := parseSelect(t, "SELECT * FROM a JOIN b ON a.x = b.x JOIN c ON b.y = c.y", ansi.ANSI)
	require.Len(t, sc.From.Joins, 2)
	assert.IsType(t, &core.TableName{}, sc.From.Joins[0].Right)
	assert.IsType(t, &core.TableName{}, sc.From.Joins[1].Right)
}

func TestParseParenthesizedJoin(t *testing.T) {
	_, sc := parseSelect(t, "SELECT * FROM a LEFT JOIN (b JOIN c ON b.x = c.x) ON a.y = b.y", ansi.ANSI)
	require.Len(t, sc.From.Joins, 1)
	nested, ok := sc.From.Joins[0].Right.(*core.JoinedTable)
	require.True(t, ok)
	assert.Len(t, nested.Joins, 1)
	assert.NotNil(t, sc.From.Joins[0].Condition)

	// A parenthesized lone table is just the table.
	_, sc = parseSelect(t, "SELECT * FROM (a) JOIN b ON a.x = b.x", ansi.ANSI)
	assert.IsType(t, &core.TableName{}, sc.From.Source)

	parseErr(t, "SELECT * FROM (a JOIN b ON a.x = b.x", ansi.ANSI)
}

func TestParseDanglingOnWithoutJoin(t *testing.T) {
	dg := parseErr(t, "SELECT * FROM a ON a.x = 1", ansi.ANSI)
	assert.Equal(t, parser.ErrDanglingOn, dg.Message)
}

func TestParseDerivedAndLateral(t *testing.T) {
	_, sc := parseSelect(t, `SELECT * FROM (SELECT id FROM a) AS s
		CROSS JOIN LATERAL (SELECT * FROM b WHERE b.id = s.id) l`, postgres.Postgres)

	derived, ok := sc.From.Source.(*core.DerivedTable)
	require.True(t, ok)
	assert.Equal(t, "s", derived.Alias.Name)
	assert.False(t, derived.Lateral)

	lateral, ok := sc.From.Joins[0].Right.(*core.DerivedTable)
	require.True(t, ok)
	assert.True(t, lateral.Lateral)
	assert.Equal(t, "l", core.TableRefName(lateral))
}

func TestParseCatalogQualifiedTable(t *testing.T) {
	_, sc := parseSelect(t, "SELECT * FROM cat.sch.tbl", ansi.ANSI)
	table := sc.From.Source.(*core.TableName)
	assert.Equal(t, "cat", table.Catalog.Name)
	assert.Equal(t, "sch", table.Schema.Name)
	assert.Equal(t, "tbl", table.Name.Name)

	dg := parseErr(t, "SELECT * FROM a.b.c.d", ansi.ANSI)
	assert.Contains(t, dg.Message, "too many name parts")
}

// ---------- WITH / Set Operation Tests ----------

func TestParseCTE(t *testing.T) {
	stmt, _ := parseSelect(t, "WITH RECURSIVE x (n) AS (SELECT 1), y AS (SELECT n FROM x) SELECT n FROM y", ansi.ANSI)
	require.NotNil(t, stmt.With)
	assert.True(t, stmt.With.Recursive)
	require.Len(t, stmt.With.CTEs, 2)
	assert.Equal(t, "x", stmt.With.CTEs[0].Name.Name)
	assert.Equal(t, []string{"n"}, core.Names(stmt.With.CTEs[0].Columns))
}

func TestParseSetOperations(t *testing.T) {
	stmt, _ := parseSelect(t, `SELECT a FROM t UNION ALL SELECT a FROM u
		EXCEPT SELECT a FROM v ORDER BY a LIMIT 5`, ansi.ANSI)

	assert.Equal(t, core.SetOpUnion, stmt.Body.Op)
	assert.True(t, stmt.Body.All)
	assert.Equal(t, core.SetOpExcept, stmt.Body.Right.Op)

	cores := stmt.Cores()
	require.Len(t, cores, 3)
	assert.Len(t, stmt.OrderBy, 1)
	assert.NotNil(t, stmt.Limit)
	assert.Nil(t, cores[2].OrderBy)
	assert.Nil(t, cores[2].Limit)
}

func TestParseParenthesizedSetOperand(t *testing.T) {
	stmt, _ := parseSelect(t, "(SELECT 1) UNION (SELECT 2)", ansi.ANSI)
	assert.Len(t, stmt.Cores(), 2)
}

// ---------- Dialect Clause Tests ----------

func TestQualifyByDialect(t *testing.T) {
	sql := `SELECT name, ROW_NUMBER() OVER (PARTITION BY dept ORDER BY salary DESC) AS rn
		FROM employees
		QUALIFY rn = 1`

	_, sc := parseSelect(t, sql, duckdb.DuckDB)
	assert.NotNil(t, sc.Qualify)

	dg := parseErr(t, sql, postgres.Postgres)
	assert.Equal(t, diag.ParseError, dg.Kind)
	assert.Equal(t, "QUALIFY is not supported in postgres dialect", dg.Message)
	assert.Equal(t, "QUALIFY", dg.Context.Highlight)
}

func TestClauseOrderEnforced(t *testing.T) {
	dg := parseErr(t, "SELECT a FROM t LIMIT 1 WHERE a = 1", ansi.ANSI)
	assert.Equal(t, "WHERE", dg.Context.Highlight)
}

// ---------- DML / DDL Tests ----------

func TestParseInsert(t *testing.T) {
	stmt, err := parser.Parse("INSERT INTO s.t (a, b) VALUES (1, 'x'), (2, 'y')", ansi.ANSI)
	require.NoError(t, err)
	ins, ok := stmt.(*core.InsertStmt)
	require.True(t, ok)
	assert.Equal(t, "s.t", ins.Table.Qualified())
	assert.Equal(t, []string{"a", "b"}, core.Names(ins.Columns))
	assert.Len(t, ins.Values, 2)

	stmt, err = parser.Parse("INSERT INTO t SELECT * FROM u", ansi.ANSI)
	require.NoError(t, err)
	assert.NotNil(t, stmt.(*core.InsertStmt).Select)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := parser.Parse("UPDATE t SET a = a + 1, t.b = 'x' FROM u WHERE t.id = u.id", postgres.Postgres)
	require.NoError(t, err)
	upd := stmt.(*core.UpdateStmt)
	require.Len(t, upd.Set, 2)
	assert.Equal(t, "a", upd.Set[0].Column.Name)
	assert.Equal(t, "b", upd.Set[1].Column.Name)
	assert.NotNil(t, upd.From)
	assert.NotNil(t, upd.Where)
}

func TestParseDelete(t *testing.T) {
	stmt, err := parser.Parse("DELETE FROM t WHERE a IS NULL", ansi.ANSI)
	require.NoError(t, err)
	del := stmt.(*core.DeleteStmt)
	assert.Equal(t, "t", del.Table.Name.Name)
	assert.NotNil(t, del.Where)
}

func TestParseCreateTable(t *testing.T) {
	stmt, err := parser.Parse(`CREATE TABLE IF NOT EXISTS t (
		id INTEGER PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		score DOUBLE DEFAULT 0,
		PRIMARY KEY (id)
	)`, ansi.ANSI)
	require.NoError(t, err)

	ct := stmt.(*core.CreateTableStmt)
	assert.True(t, ct.IfNotExists)
	require.Len(t, ct.Columns, 3)
	assert.True(t, ct.Columns[0].PrimaryKey)
	assert.Equal(t, "INT", ct.Columns[0].Type.Name)
	assert.True(t, ct.Columns[1].NotNull)
	assert.Equal(t, "VARCHAR(50)", ct.Columns[1].Type.String())
	assert.NotNil(t, ct.Columns[2].Default)
	assert.Equal(t, []string{"id"}, core.Names(ct.PrimaryKey))
}

func TestParseCreateTableAs(t *testing.T) {
	stmt, err := parser.Parse("CREATE OR REPLACE TEMP TABLE t AS SELECT 1 AS a", duckdb.DuckDB)
	require.NoError(t, err)
	ct := stmt.(*core.CreateTableStmt)
	assert.True(t, ct.OrReplace)
	assert.True(t, ct.Temporary)
	assert.NotNil(t, ct.As)
}

func TestParseDropTable(t *testing.T) {
	stmt, err := parser.Parse("DROP TABLE IF EXISTS a, s.b CASCADE", postgres.Postgres)
	require.NoError(t, err)
	drop := stmt.(*core.DropTableStmt)
	assert.True(t, drop.IfExists)
	assert.True(t, drop.Cascade)
	assert.Len(t, drop.Tables, 2)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		sql     string
		keyword string
		text    string
	}{
		{"SET search_path = public", "SET", "search_path = public"},
		{"show tables", "SHOW", "tables"},
		{"CREATE VIEW v AS SELECT 1", "CREATE", "VIEW v AS SELECT 1"},
		{"DROP VIEW v", "DROP", "VIEW v"},
		{"VACUUM", "VACUUM", ""},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			stmt, err := parser.Parse(tt.sql, postgres.Postgres)
			require.NoError(t, err)
			cmd, ok := stmt.(*core.CommandStmt)
			require.True(t, ok, "got %T", stmt)
			assert.Equal(t, tt.keyword, cmd.Keyword)
			assert.Equal(t, tt.text, cmd.Text)
		})
	}
}

func TestParseCommand_UnknownWord(t *testing.T) {
	for _, sql := range []string{
		"SELEC * FROM t",
		"HELLO WORLD",
		"FROM t SELECT x",
		"\xff\xfe",
		`"show" tables`,
	} {
		t.Run(sql, func(t *testing.T) {
			dg := parseErr(t, sql, postgres.Postgres)
			assert.Equal(t, diag.ParseError, dg.Kind)
			assert.Contains(t, dg.Message, "statement")
		})
	}
}

func TestParseCommand_PerDialect(t *testing.T) {
	stmt, err := parser.Parse("PRAGMA table_info('t')", duckdb.DuckDB)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA", stmt.(*core.CommandStmt).Keyword)

	stmt, err = parser.Parse("pragma foreign_keys = on", sqlite.SQLite)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA", stmt.(*core.CommandStmt).Keyword)

	// Commands of other dialects are not accepted.
	for _, sql := range []string{"VACUUM", "PRAGMA x"} {
		dg := parseErr(t, sql, ansi.ANSI)
		assert.Equal(t, diag.ParseError, dg.Kind, sql)
	}
	dg := parseErr(t, "PRAGMA x", postgres.Postgres)
	assert.Equal(t, diag.ParseError, dg.Kind)
}

// ---------- Script / Comment / Span Tests ----------

func TestParseScript(t *testing.T) {
	stmts, err := parser.ParseScript("SELECT 1; ; UPDATE t SET a = 1;\nSHOW x;", ansi.ANSI)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.IsType(t, &core.SelectStmt{}, stmts[0])
	assert.IsType(t, &core.UpdateStmt{}, stmts[1])
	assert.IsType(t, &core.CommandStmt{}, stmts[2])

	stmts, err = parser.ParseScript("  ", ansi.ANSI)
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestParseScriptFailureDiscardsAll(t *testing.T) {
	stmts, err := parser.ParseScript("SELECT 1; SELECT FROM", ansi.ANSI)
	require.Error(t, err)
	assert.Nil(t, stmts)
}

func TestParseLeadingComments(t *testing.T) {
	stmts, err := parser.ParseScript("-- first\nSELECT 1;\n/* second */ SELECT 2", ansi.ANSI)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	require.Len(t, stmts[0].LeadingComments(), 1)
	assert.Equal(t, "-- first", stmts[0].LeadingComments()[0].Text)
	require.Len(t, stmts[1].LeadingComments(), 1)
	assert.Equal(t, "/* second */", stmts[1].LeadingComments()[0].Text)
}

func TestParseInteriorComments(t *testing.T) {
	stmts, err := parser.ParseScript("SELECT a /* inner */ FROM t -- tail\nWHERE b = 1;\n-- next\nSELECT 2", ansi.ANSI)
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Empty(t, stmts[0].LeadingComments())
	require.Len(t, stmts[1].LeadingComments(), 1)
	assert.Equal(t, "-- next", stmts[1].LeadingComments()[0].Text)
}

func TestParseSpans(t *testing.T) {
	sql := "SELECT a + b FROM t"
	e := firstExpr(t, sql, ansi.ANSI)
	assert.Equal(t, 7, e.Pos().Offset)
	assert.Equal(t, 12, e.End().Offset)
	assert.Equal(t, "a + b", sql[e.Pos().Offset:e.End().Offset])

	stmt, err := parser.Parse(sql, ansi.ANSI)
	require.NoError(t, err)
	assert.Equal(t, 0, stmt.Pos().Offset)
	assert.Equal(t, len(sql), stmt.End().Offset)
}

// ---------- Error Tests ----------

func TestParseErrorDiagnostic(t *testing.T) {
	dg := parseErr(t, "SELECT FROM", ansi.ANSI)

	assert.Equal(t, diag.ParseError, dg.Kind)
	assert.Equal(t, "unexpected token FROM, expected expression", dg.Message)
	assert.Equal(t, 1, dg.Line)
	assert.Equal(t, 8, dg.Column)
	assert.Equal(t, 7, dg.Offset)
	require.NotNil(t, dg.Context)
	assert.Equal(t, "SELECT ", dg.Context.Before)
	assert.Equal(t, "FROM", dg.Context.Highlight)
	assert.Equal(t, "", dg.Context.After)
}

func TestParseErrorMultiline(t *testing.T) {
	dg := parseErr(t, "SELECT a\nFROM t\nWHERE", ansi.ANSI)
	assert.Equal(t, 3, dg.Line)
	assert.Equal(t, 6, dg.Column)
	assert.Contains(t, dg.Message, "end of input")
}

func TestParseTrailingInput(t *testing.T) {
	dg := parseErr(t, "SELECT 1 2", ansi.ANSI)
	assert.Equal(t, `unexpected token "2" after end of statement`, dg.Message)

	_, err := parser.Parse("SELECT 1;;", ansi.ANSI)
	assert.NoError(t, err)
}

func TestParseLexErrorWins(t *testing.T) {
	dg := parseErr(t, "SELECT 'abc", ansi.ANSI)
	assert.Equal(t, diag.LexError, dg.Kind)
	assert.Equal(t, "unterminated string literal", dg.Message)
}

func TestParseEmptyInput(t *testing.T) {
	dg := parseErr(t, "", ansi.ANSI)
	assert.Equal(t, diag.ParseError, dg.Kind)
	assert.Contains(t, dg.Message, "end of input")
}

func TestParseTooDeep(t *testing.T) {
	sql := "SELECT " + strings.Repeat("(", 400) + "1" + strings.Repeat(")", 400)
	dg := parseErr(t, sql, ansi.ANSI)
	assert.Equal(t, parser.ErrTooDeep, dg.Message)
}

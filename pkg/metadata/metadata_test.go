package metadata_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/dialects/ansi"
	"github.com/leapstack-labs/polysql/pkg/dialects/duckdb"
	"github.com/leapstack-labs/polysql/pkg/dialects/postgres"
	"github.com/leapstack-labs/polysql/pkg/format"
	"github.com/leapstack-labs/polysql/pkg/metadata"
	"github.com/leapstack-labs/polysql/pkg/parser"
)

func extract(t *testing.T, sql string, d *dialect.Dialect) *metadata.Result {
	t.Helper()
	stmt, err := parser.Parse(sql, d)
	require.NoError(t, err)
	return metadata.Extract(stmt, d)
}

func str(s string) *string { return &s }

func TestExtract_ColumnDedup(t *testing.T) {
	r := extract(t, "SELECT a.x, a.x FROM t a", ansi.ANSI)

	require.Len(t, r.Columns, 1)
	assert.Equal(t, &metadata.Column{Name: "x", Table: str("a"), AliasOrName: "x"}, r.Columns[0])
	assert.Equal(t, []*metadata.Table{{Name: "t", Alias: str("a")}}, r.Tables)
}

func TestExtract_Columns(t *testing.T) {
	r := extract(t, "SELECT id AS key, id, t.name FROM t WHERE id > 0", ansi.ANSI)

	assert.Equal(t, []*metadata.Column{
		{Name: "id", AliasOrName: "key"},
		{Name: "id", AliasOrName: "id"},
		{Name: "name", Table: str("t"), AliasOrName: "name"},
	}, r.Columns)
}

func TestExtract_DefaultJoinType(t *testing.T) {
	r := extract(t, "SELECT * FROM a JOIN b ON a.id=b.id", ansi.ANSI)

	require.Len(t, r.Joins, 1)
	j := r.Joins[0]
	assert.Equal(t, "INNER", j.Type)
	assert.Equal(t, "b", j.Table)
	require.NotNil(t, j.OnCondition)
	assert.Equal(t, "a.id = b.id", *j.OnCondition)
	assert.False(t, j.Natural)
}

func TestExtract_Joins(t *testing.T) {
	r := extract(t, `SELECT * FROM a
		LEFT OUTER JOIN s.b bb ON a.id = bb.id
		NATURAL JOIN c
		CROSS JOIN d
		JOIN e USING (id, k), f
		RIGHT JOIN (SELECT 1 AS id) g ON g.id = a.id`, ansi.ANSI)

	require.Len(t, r.Joins, 6)
	types := make([]string, len(r.Joins))
	tables := make([]string, len(r.Joins))
	for i, j := range r.Joins {
		types[i] = j.Type
		tables[i] = j.Table
	}
	assert.Equal(t, []string{"LEFT", "INNER", "CROSS", "INNER", "CROSS", "RIGHT"}, types)
	assert.Equal(t, []string{"s.b", "c", "d", "e", "f", "g"}, tables)

	assert.True(t, r.Joins[1].Natural)
	assert.Nil(t, r.Joins[1].OnCondition)
	assert.Nil(t, r.Joins[2].OnCondition)
	assert.Equal(t, []string{"id", "k"}, r.Joins[3].Using)
}

func TestExtract_NestedJoin(t *testing.T) {
	r := extract(t, "SELECT * FROM a LEFT JOIN b JOIN c ON b.x = c.x ON a.y = b.y", ansi.ANSI)

	require.Len(t, r.Joins, 2)
	assert.Equal(t, "LEFT", r.Joins[0].Type)
	assert.Equal(t, "b", r.Joins[0].Table)
	assert.Equal(t, "a.y = b.y", *r.Joins[0].OnCondition)
	assert.Equal(t, "INNER", r.Joins[1].Type)
	assert.Equal(t, "c", r.Joins[1].Table)
	assert.Equal(t, "b.x = c.x", *r.Joins[1].OnCondition)
	assert.Equal(t, []string{"a", "b", "c"}, r.TableNames())
}

func TestExtract_Tables(t *testing.T) {
	r := extract(t, "SELECT * FROM cat.db.t JOIN t ON 1 = 1 JOIN t ON 2 = 2 JOIN t x ON 3 = 3", ansi.ANSI)

	assert.Equal(t, []*metadata.Table{
		{Name: "t", DB: str("db"), Catalog: str("cat")},
		{Name: "t"},
		{Name: "t", Alias: str("x")},
	}, r.Tables)
	assert.Equal(t, []string{"t"}, r.TableNames())
}

func TestExtract_AliasesTopLevelOnly(t *testing.T) {
	r := extract(t, `SELECT a + 1 AS inc, (SELECT MAX(b) AS m FROM u) AS mx FROM t
		UNION ALL SELECT c AS inc, 2 FROM v`, ansi.ANSI)

	assert.Equal(t, []*metadata.Alias{
		{Alias: "inc", Expression: "a + 1"},
		{Alias: "mx", Expression: "(SELECT MAX(b) AS m FROM u)"},
		{Alias: "inc", Expression: "c"},
	}, r.Aliases)
	assert.Equal(t, metadata.QueryTypeUnion, r.QueryType)
}

func TestExtract_FunctionsFirstOccurrence(t *testing.T) {
	r := extract(t, "SELECT count(a), COUNT(b), upper(name) FROM t", ansi.ANSI)

	assert.Equal(t, []*metadata.Function{
		{Name: "COUNT", SQL: "COUNT(a)"},
		{Name: "UPPER", SQL: "UPPER(name)"},
	}, r.Functions)
}

func TestExtract_Subqueries(t *testing.T) {
	r := extract(t, `WITH c AS (SELECT 1 AS x)
		SELECT * FROM (SELECT x FROM c) d
		WHERE x IN (SELECT y FROM u) AND EXISTS (SELECT 1 FROM v) AND x > (SELECT 0)`, ansi.ANSI)

	assert.Equal(t, []*metadata.Subquery{
		{Alias: str("c"), SQL: "SELECT 1 AS x"},
		{Alias: str("d"), SQL: "SELECT x FROM c"},
		{SQL: "SELECT y FROM u"},
		{SQL: "SELECT 1 FROM v"},
		{SQL: "SELECT 0"},
	}, r.Subqueries)
}

func TestExtract_Clauses(t *testing.T) {
	r := extract(t, `SELECT a, SUM(b) FROM t WHERE a > 1 AND b IS NOT NULL
		GROUP BY a, c HAVING SUM(b) > 0 ORDER BY a DESC, 2`, ansi.ANSI)

	assert.Equal(t, []string{"a > 1 AND b IS NOT NULL"}, r.WhereConditions)
	assert.Equal(t, []string{"a", "c"}, r.GroupBy)
	assert.Equal(t, []*metadata.OrderBy{
		{Expression: "a", Desc: true},
		{Expression: "2", Desc: false},
	}, r.OrderBy)
}

func TestExtract_WindowOrderNotReported(t *testing.T) {
	r := extract(t, "SELECT ROW_NUMBER() OVER (ORDER BY a) FROM t ORDER BY b", ansi.ANSI)
	assert.Equal(t, []*metadata.OrderBy{{Expression: "b"}}, r.OrderBy)
}

func TestExtract_QueryType(t *testing.T) {
	tests := []struct {
		sql      string
		expected string
	}{
		{"SELECT 1", metadata.QueryTypeSelect},
		{"SELECT 1 INTERSECT SELECT 2", metadata.QueryTypeIntersect},
		{"SELECT 1 EXCEPT SELECT 2", metadata.QueryTypeExcept},
		{"INSERT INTO t VALUES (1)", metadata.QueryTypeInsert},
		{"UPDATE t SET a = 1 WHERE b = 2", metadata.QueryTypeUpdate},
		{"DELETE FROM t WHERE a = 1", metadata.QueryTypeDelete},
		{"CREATE TABLE t (a INT)", metadata.QueryTypeCreate},
		{"DROP TABLE t", metadata.QueryTypeDrop},
		{"SHOW TABLES", metadata.QueryTypeCommand},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.expected, extract(t, tt.sql, ansi.ANSI).QueryType)
		})
	}
}

func TestExtract_DML(t *testing.T) {
	r := extract(t, "UPDATE t SET a = b + 1 FROM u WHERE t.id = u.id", postgres.Postgres)

	assert.Equal(t, []string{"t", "u"}, r.TableNames())
	assert.Equal(t, []string{"t.id = u.id"}, r.WhereConditions)
	assert.Len(t, r.Columns, 3)
}

func TestExtract_DialectSnapshots(t *testing.T) {
	r := extract(t, "SELECT a::INT AS n FROM t WHERE a ILIKE 'x%'", duckdb.DuckDB)

	assert.Equal(t, "a::INT", r.Aliases[0].Expression)
	assert.Equal(t, []string{"a ILIKE 'x%'"}, r.WhereConditions)
}

func TestExtract_DoesNotMutate(t *testing.T) {
	stmt, err := parser.Parse("SELECT a, b FROM t JOIN u ON t.id = u.id WHERE a > 1", ansi.ANSI)
	require.NoError(t, err)
	before := format.Render(stmt, ansi.ANSI, format.Options{})
	clone := core.CloneStmt(stmt)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metadata.Extract(stmt, ansi.ANSI)
		}()
	}
	wg.Wait()

	assert.Equal(t, before, format.Render(stmt, ansi.ANSI, format.Options{}))
	assert.Equal(t, metadata.Extract(clone, ansi.ANSI), metadata.Extract(stmt, ansi.ANSI))
}

// Rendering and re-parsing a statement must not change what is extracted.
func TestExtract_RoundTripEquivalent(t *testing.T) {
	inputs := []string{
		"SELECT a.x AS y, COUNT(*) FROM s.t a LEFT JOIN u ON a.id = u.id WHERE a.x > 1 GROUP BY a.x ORDER BY 2 DESC",
		"WITH c AS (SELECT 1 AS one) SELECT one FROM c UNION SELECT 2",
		"SELECT * FROM (SELECT a FROM t) d WHERE a IN (SELECT b FROM u)",
	}

	for _, sql := range inputs {
		for _, pretty := range []bool{false, true} {
			original := extract(t, sql, ansi.ANSI)
			stmt, err := parser.Parse(sql, ansi.ANSI)
			require.NoError(t, err)
			rendered := format.Render(stmt, ansi.ANSI, format.Options{Pretty: pretty})
			assert.Equal(t, original, extract(t, rendered, ansi.ANSI), rendered)
		}
	}
}

func TestResult_JSON(t *testing.T) {
	r := extract(t, "SELECT x FROM t", ansi.ANSI)
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Select", decoded["query_type"])
	assert.Equal(t, []any{}, decoded["joins"])
	assert.Equal(t, []any{map[string]any{"name": "t", "alias": nil, "db": nil, "catalog": nil}}, decoded["tables"])
	assert.Equal(t, []any{map[string]any{"name": "x", "table": nil, "alias_or_name": "x"}}, decoded["columns"])
}

func TestExtract_Nil(t *testing.T) {
	r := metadata.Extract(nil, ansi.ANSI)
	assert.Empty(t, r.Tables)
	assert.Empty(t, r.QueryType)
}

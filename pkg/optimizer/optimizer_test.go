package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/internal/testutil"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/dialects/ansi"
	"github.com/leapstack-labs/polysql/pkg/dialects/postgres"
	"github.com/leapstack-labs/polysql/pkg/format"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
	"github.com/leapstack-labs/polysql/pkg/parser"
)

func optimize(t *testing.T, sql string, d *dialect.Dialect, schema *optimizer.Schema) (*optimizer.Result, string) {
	t.Helper()
	stmt, err := parser.Parse(sql, d)
	require.NoError(t, err)
	res := optimizer.Optimize(stmt, d, schema)
	require.NotNil(t, res.Stmt)
	return res, format.Render(res.Stmt, d, format.Options{})
}

func testSchema() *optimizer.Schema {
	return optimizer.NewSchema(
		&optimizer.Table{Name: "t", Columns: []*optimizer.Column{
			{Name: "id", Type: "INT"}, {Name: "a", Type: "INTEGER"}, {Name: "s", Type: "TEXT"},
		}},
		&optimizer.Table{Name: "db.u", Columns: []*optimizer.Column{
			{Name: "id", Type: "BIGINT"}, {Name: "b", Type: "DOUBLE"},
		}},
	)
}

func TestOptimize_NoSchemaNote(t *testing.T) {
	res, sql := optimize(t, "SELECT 1", ansi.ANSI, nil)

	assert.Equal(t, "SELECT 1", sql)
	assert.Equal(t, []string{"partial optimization: no schema provided; skipped qualify_columns, simplify_identities"}, res.Notes)
	assert.True(t, res.Partial())
	assert.False(t, res.Changed())
}

func TestOptimize_WithSchemaHasNoNote(t *testing.T) {
	res, _ := optimize(t, "SELECT 1", ansi.ANSI, testSchema())
	assert.Empty(t, res.Notes)
}

func TestOptimize_FoldConstants(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		d        *dialect.Dialect
		expected string
	}{
		{"arithmetic", "SELECT 1 + 2 * 3, 1.5 + 1, 10 % 4 FROM t", ansi.ANSI, "SELECT 7, 2.5, 2 FROM t"},
		{"float division", "SELECT 7 / 2 FROM t", ansi.ANSI, "SELECT 3.5 FROM t"},
		{"integer division", "SELECT 7 / 2 FROM t", postgres.Postgres, "SELECT 3 FROM t"},
		{"division by zero", "SELECT 10 / 0 FROM t", ansi.ANSI, "SELECT 10 / 0 FROM t"},
		{"concat", "SELECT 'a' || 'b' FROM t", ansi.ANSI, "SELECT 'ab' FROM t"},
		{"comparison", "SELECT 1 < 2, 'a' = 'b' FROM t", ansi.ANSI, "SELECT TRUE, FALSE FROM t"},
		{"not", "SELECT NOT TRUE FROM t", ansi.ANSI, "SELECT FALSE FROM t"},
		{"parenthesized", "SELECT (1 + 2) * 3 FROM t", ansi.ANSI, "SELECT 9 FROM t"},
		{"columns untouched", "SELECT a + 1 FROM t", ansi.ANSI, "SELECT a + 1 FROM t"},
		{"overflow kept", "SELECT 9223372036854775807 + 1 FROM t", ansi.ANSI, "SELECT 9223372036854775807 + 1 FROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, sql := optimize(t, tt.input, tt.d, nil)
			assert.Equal(t, tt.expected, sql)
		})
	}
}

func TestOptimize_SimplifyBooleans(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT a FROM t WHERE (x = 1 AND TRUE) OR FALSE", "SELECT a FROM t WHERE x = 1"},
		{"SELECT a FROM t WHERE NOT NOT x", "SELECT a FROM t WHERE x"},
		{"SELECT a FROM t WHERE TRUE OR x = 1", "SELECT a FROM t"},
		{"SELECT a FROM t WHERE 1 = 1", "SELECT a FROM t"},
		{"SELECT a FROM t WHERE x = 1 AND FALSE", "SELECT a FROM t WHERE FALSE"},
		{"SELECT (a), ((1)) FROM t", "SELECT a, 1 FROM t"},
		{"DELETE FROM t WHERE TRUE", "DELETE FROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, sql := optimize(t, tt.input, ansi.ANSI, nil)
			assert.Equal(t, tt.expected, sql)
			assert.Contains(t, res.Applied, optimizer.RuleSimplifyBooleans)
		})
	}
}

func TestOptimize_QualifyColumns(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"unique owners",
			"SELECT a, b, id FROM t JOIN db.u ON t.id = u.id",
			"SELECT t.a, u.b, id FROM t JOIN db.u ON t.id = u.id",
		},
		{"aliases", "SELECT x.a FROM t x WHERE s = 'k'", "SELECT x.a FROM t x WHERE x.s = 'k'"},
		{"star", "SELECT * FROM t", "SELECT t.id, t.a, t.s FROM t"},
		{"table star", "SELECT u.*, a FROM t, db.u", "SELECT u.id, u.b, t.a FROM t, db.u"},
		{"order by alias", "SELECT a AS n FROM t ORDER BY n", "SELECT t.a AS n FROM t ORDER BY n"},
		{
			"correlated",
			"SELECT a FROM t WHERE EXISTS (SELECT 1 FROM db.u WHERE b = a)",
			"SELECT t.a FROM t WHERE EXISTS (SELECT 1 FROM db.u WHERE u.b = a)",
		},
		{"unknown table", "SELECT a FROM t JOIN v ON t.id = v.id", "SELECT a FROM t JOIN v ON t.id = v.id"},
		{
			"derived table",
			"SELECT n FROM (SELECT a AS n FROM t) d",
			"SELECT d.n FROM (SELECT t.a AS n FROM t) d",
		},
		{
			"cte",
			"WITH c AS (SELECT id FROM t) SELECT * FROM c",
			"WITH c AS (SELECT t.id FROM t) SELECT c.id FROM c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, sql := optimize(t, tt.input, ansi.ANSI, testSchema())
			assert.Equal(t, tt.expected, sql)
		})
	}
}

func TestOptimize_SimplifyIdentities(t *testing.T) {
	res, sql := optimize(t, "SELECT a + 0, 1 * a, b / 1, s + 0, a - 0 FROM t, db.u", ansi.ANSI, testSchema())

	assert.Equal(t, "SELECT t.a, t.a, u.b, t.s + 0, t.a FROM t, db.u", sql)
	assert.Contains(t, res.Applied, optimizer.RuleSimplifyIdentities)

	_, sql = optimize(t, "SELECT a + 0 FROM t", ansi.ANSI, nil)
	assert.Equal(t, "SELECT a + 0 FROM t", sql)
}

func TestOptimize_PushdownPredicates(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"through aliases",
			"SELECT d.x, d.b FROM (SELECT a AS x, b FROM t) d WHERE d.x > 1 AND d.b = 2",
			"SELECT d.x, d.b FROM (SELECT a AS x, b FROM t WHERE a > 1 AND b = 2) d",
		},
		{
			"keeps cross-relation predicates",
			"SELECT d.x, v.y FROM (SELECT a AS x FROM t WHERE a < 9) d, v WHERE d.x = v.y AND d.x + 1 > 3",
			"SELECT d.x, v.y FROM (SELECT a AS x FROM t WHERE a < 9 AND a + 1 > 3) d INNER JOIN v ON d.x = v.y",
		},
		{
			"aggregation blocks",
			"SELECT d.n FROM (SELECT COUNT(*) AS n FROM t) d WHERE d.n > 1",
			"SELECT d.n FROM (SELECT COUNT(*) AS n FROM t) d WHERE d.n > 1",
		},
		{
			"limit blocks",
			"SELECT d.a FROM (SELECT a FROM t LIMIT 5) d WHERE d.a > 1",
			"SELECT d.a FROM (SELECT a FROM t LIMIT 5) d WHERE d.a > 1",
		},
		{
			"outer join blocks",
			"SELECT t.id, d.a FROM t LEFT JOIN (SELECT a FROM u) d ON t.id = d.a WHERE d.a > 1",
			"SELECT t.id, d.a FROM t LEFT JOIN (SELECT a FROM u) d ON t.id = d.a WHERE d.a > 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, sql := optimize(t, tt.input, ansi.ANSI, nil)
			assert.Equal(t, tt.expected, sql)
		})
	}
}

func TestOptimize_PruneProjections(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"derived table",
			"SELECT d.x FROM (SELECT a AS x, b, c FROM t) d",
			"SELECT d.x FROM (SELECT a AS x FROM t) d",
		},
		{
			"cte",
			"WITH cte AS (SELECT x, y, z FROM t) SELECT cte.x, cte.z FROM cte",
			"WITH cte AS (SELECT x, z FROM t) SELECT cte.x, cte.z FROM cte",
		},
		{
			"unqualified reader blocks",
			"WITH cte AS (SELECT x, y FROM t) SELECT x FROM cte",
			"WITH cte AS (SELECT x, y FROM t) SELECT x FROM cte",
		},
		{
			"distinct blocks",
			"SELECT d.x FROM (SELECT DISTINCT x, y FROM t) d",
			"SELECT d.x FROM (SELECT DISTINCT x, y FROM t) d",
		},
		{
			"inner order by keeps",
			"SELECT d.x FROM (SELECT x, y FROM t ORDER BY y) d",
			"SELECT d.x FROM (SELECT x, y FROM t ORDER BY y) d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, sql := optimize(t, tt.input, ansi.ANSI, nil)
			assert.Equal(t, tt.expected, sql)
		})
	}
}

func TestOptimize_PushdownThenPrune(t *testing.T) {
	res, sql := optimize(t, "SELECT d.x FROM (SELECT a AS x, b FROM t) d WHERE d.x > 1 AND d.b = 2", ansi.ANSI, nil)

	assert.Equal(t, "SELECT d.x FROM (SELECT a AS x FROM t WHERE a > 1 AND b = 2) d", sql)
	assert.Equal(t, []string{optimizer.RulePushdownPredicates, optimizer.RulePruneProjections}, res.Applied)
}

func TestOptimize_JoinHints(t *testing.T) {
	res, sql := optimize(t, "SELECT * FROM a, b WHERE b.id = a.id AND a.v > 1", ansi.ANSI, nil)

	assert.Equal(t, "SELECT * FROM a INNER JOIN b ON b.id = a.id WHERE a.v > 1", sql)
	assert.Contains(t, res.Applied, optimizer.RuleJoinHints)
	assert.Equal(t, []optimizer.JoinHint{{
		Left:     "a",
		Right:    "b",
		Keys:     []optimizer.JoinKey{{Left: "a.id", Right: "b.id"}},
		Strategy: optimizer.StrategyHash,
	}}, res.Hints)

	res, _ = optimize(t, "SELECT * FROM a JOIN b ON a.x < b.y CROSS JOIN c JOIN d USING (k)", ansi.ANSI, nil)
	require.Len(t, res.Hints, 3)
	assert.Equal(t, optimizer.StrategyNestedLoop, res.Hints[0].Strategy)
	assert.Equal(t, optimizer.StrategyNestedLoop, res.Hints[1].Strategy)
	assert.Equal(t, optimizer.StrategyHash, res.Hints[2].Strategy)
	assert.Equal(t, []optimizer.JoinKey{{Left: "c.k", Right: "d.k"}}, res.Hints[2].Keys)
}

func TestOptimize_DoesNotMutateInput(t *testing.T) {
	sql := "SELECT d.x FROM (SELECT a AS x, b FROM t) d, u WHERE d.x = u.x AND 1 + 1 = 2"
	stmt, err := parser.Parse(sql, ansi.ANSI)
	require.NoError(t, err)
	before := format.Render(stmt, ansi.ANSI, format.Options{})

	res := optimizer.Optimize(stmt, ansi.ANSI, testSchema())
	assert.True(t, res.Changed())
	assert.Equal(t, before, format.Render(stmt, ansi.ANSI, format.Options{}))
}

func TestOptimize_FixedPoint(t *testing.T) {
	inputs := []string{
		"SELECT a + 0, 2 * 3 FROM t WHERE TRUE AND a > 1",
		"SELECT d.x FROM (SELECT a AS x, s FROM t) d, db.u WHERE d.x = u.id AND d.s = 'k'",
		"WITH c AS (SELECT id, a FROM t) SELECT c.id FROM c",
	}

	for _, sql := range inputs {
		t.Run(sql, func(t *testing.T) {
			_, once := optimize(t, sql, ansi.ANSI, testSchema())
			res, twice := optimize(t, once, ansi.ANSI, testSchema())
			assert.Equal(t, once, twice)
			assert.Empty(t, res.Applied)
		})
	}
}

func TestOptimizer_Config(t *testing.T) {
	o := optimizer.New(optimizer.Config{
		Rules:  []string{optimizer.RuleFoldConstants},
		Logger: testutil.NewTestLogger(t),
	})
	stmt, err := parser.Parse("SELECT 1 + 1 FROM t WHERE TRUE", ansi.ANSI)
	require.NoError(t, err)

	res := o.Optimize(stmt, ansi.ANSI, nil)
	assert.Equal(t, "SELECT 2 FROM t WHERE TRUE", format.Render(res.Stmt, ansi.ANSI, format.Options{}))
	assert.Equal(t, []string{optimizer.RuleFoldConstants}, res.Applied)
	assert.Empty(t, res.Notes)
	assert.Nil(t, res.Hints)
}

func TestOptimize_OtherStatements(t *testing.T) {
	_, sql := optimize(t, "UPDATE t SET a = 1 + 1 WHERE b = 2 * 2", ansi.ANSI, nil)
	assert.Equal(t, "UPDATE t SET a = 2 WHERE b = 4", sql)

	_, sql = optimize(t, "SHOW TABLES", ansi.ANSI, nil)
	assert.Equal(t, "SHOW TABLES", sql)
}

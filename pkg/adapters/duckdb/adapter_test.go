package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/internal/testutil"
	"github.com/leapstack-labs/polysql/pkg/adapter"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/parser"
)

func connect(t *testing.T, cfg adapter.Config) *Adapter {
	t.Helper()
	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.setupPath(t)
			connect(t, adapter.Config{Path: dbPath})
			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.Error(t, adp.Exec(ctx, "SELECT 1"))
	_, err := adp.Query(ctx, "SELECT 1")
	assert.Error(t, err)
	assert.Error(t, adp.LoadTables(ctx, executor.Tables{}))
	_, err = adp.TableSchema(ctx, "t")
	assert.Error(t, err)
	assert.NoError(t, adp.Close())
}

func TestConnect_WithSettings(t *testing.T) {
	adp := connect(t, adapter.Config{
		Params: map[string]any{"settings": map[string]any{"threads": 2}},
	})

	rel, err := adp.Query(context.Background(), "SELECT current_setting('threads') AS threads")
	require.NoError(t, err)
	require.Len(t, rel.Rows, 1)
	assert.True(t, adapter.ValuesMatch(int64(2), rel.Rows[0][0]))
}

func TestConnect_InvalidParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), adapter.Config{Params: map[string]any{"nope": true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duckdb params")
}

func TestAdapter_LoadTablesAndSchema(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, adapter.Config{})

	tables, err := executor.LoadTables([]byte(`{"orders": [
		{"id": 1, "amount": 10.5, "paid": true, "note": "a"},
		{"id": 2, "amount": 20, "paid": false, "note": null}
	]}`))
	require.NoError(t, err)
	require.NoError(t, adp.LoadTables(ctx, tables))

	table, err := adp.TableSchema(ctx, "orders")
	require.NoError(t, err)
	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "amount", "paid", "note"}, names)
	assert.Equal(t, "BIGINT", table.Columns[0].Type)

	// Loading again replaces the table.
	require.NoError(t, adp.LoadTables(ctx, tables))
	rel, err := adp.Query(ctx, "SELECT COUNT(*) FROM orders")
	require.NoError(t, err)
	assert.Equal(t, [][]executor.Value{{int64(2)}}, rel.Rows)
}

func TestAdapter_MatchesExecutor(t *testing.T) {
	ctx := context.Background()
	adp := connect(t, adapter.Config{})

	tables, err := executor.LoadTables([]byte(`{
		"customers": [{"id": 1, "name": "Alice"}, {"id": 2, "name": "Bob"}, {"id": 3, "name": null}],
		"orders": [
			{"id": 1, "customer_id": 1, "amount": 100},
			{"id": 2, "customer_id": 1, "amount": 150},
			{"id": 3, "customer_id": 2, "amount": 200},
			{"id": 4, "customer_id": 9, "amount": 5}
		]
	}`))
	require.NoError(t, err)
	require.NoError(t, adp.LoadTables(ctx, tables))

	queries := []struct {
		sql     string
		ordered bool
	}{
		{sql: "SELECT c.name, SUM(o.amount) AS total, COUNT(*) AS n FROM customers c JOIN orders o ON c.id = o.customer_id GROUP BY c.name"},
		{sql: "SELECT c.id, o.id FROM customers c LEFT JOIN orders o ON c.id = o.customer_id"},
		{sql: "SELECT name FROM customers ORDER BY name", ordered: true},
		{sql: "SELECT name FROM customers ORDER BY name DESC", ordered: true},
		{sql: "SELECT amount / 4 AS q, amount % 7 AS r FROM orders"},
		{sql: "SELECT customer_id FROM orders EXCEPT SELECT id FROM customers"},
		{sql: "WITH big AS (SELECT * FROM orders WHERE amount > 100) SELECT COUNT(*) FROM big"},
		{sql: "SELECT id FROM customers WHERE id IN (SELECT customer_id FROM orders) ORDER BY id", ordered: true},
		{sql: "SELECT CASE WHEN amount >= 150 THEN 'high' ELSE 'low' END AS band, COUNT(*) FROM orders GROUP BY 1"},
		{sql: "SELECT name || '!' AS shout, COALESCE(name, '?') AS n FROM customers"},
	}

	for _, q := range queries {
		t.Run(q.sql, func(t *testing.T) {
			stmt, err := parser.Parse(q.sql, adp.Dialect())
			require.NoError(t, err)
			want, err := executor.Execute(stmt, tables, adp.Dialect())
			require.NoError(t, err)

			got, err := adp.Query(ctx, q.sql)
			require.NoError(t, err)
			assert.NoError(t, adapter.Compare(want, got, q.ordered))
		})
	}
}

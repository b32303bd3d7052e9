package adapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/pkg/adapter"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/parser"

	// Backends register themselves in init()
	_ "github.com/leapstack-labs/polysql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/polysql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/polysql/pkg/adapters/sqlite"
)

func TestBuiltinBackends(t *testing.T) {
	assert.Equal(t, []string{"duckdb", "postgres", "sqlite"}, adapter.ListAdapters())

	for _, name := range []string{"duckdb", "DuckDB", "postgres", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			factory, ok := adapter.Get(name)
			require.True(t, ok)
			adp := factory(nil)
			require.NotNil(t, adp)
			assert.NotNil(t, adp.Dialect(), "every backend reports the dialect it speaks")
		})
	}
}

func TestNewAdapter_ListsAvailableBackends(t *testing.T) {
	_, err := adapter.NewAdapter(adapter.Config{Type: "oracle"}, nil)

	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
	assert.Equal(t, []string{"duckdb", "postgres", "sqlite"}, unknown.Available)
}

// Verifying an executor result against an embedded backend, the way
// execute --verify does.
func TestOpen_VerifyAgainstBackend(t *testing.T) {
	ctx := context.Background()
	tables, err := executor.LoadTables([]byte(`{"t": [{"k": "a", "v": 10}, {"k": "b", "v": 20}, {"k": "a", "v": 5}]}`))
	require.NoError(t, err)

	for _, backend := range []string{"sqlite", "duckdb"} {
		t.Run(backend, func(t *testing.T) {
			adp, err := adapter.Open(ctx, adapter.Config{Type: backend}, nil)
			require.NoError(t, err)
			defer func() { _ = adp.Close() }()
			require.NoError(t, adp.LoadTables(ctx, tables))

			query := "SELECT k, SUM(v) AS total FROM t GROUP BY k"
			stmt, err := parser.Parse(query, adp.Dialect())
			require.NoError(t, err)
			want, err := executor.Execute(stmt, tables, adp.Dialect())
			require.NoError(t, err)

			got, err := adp.Query(ctx, query)
			require.NoError(t, err)
			assert.NoError(t, adapter.Compare(want, got, false))
		})
	}
}

package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/internal/testutil"
	"github.com/leapstack-labs/polysql/pkg/adapter"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/parser"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name:     "defaults",
			config:   adapter.Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "extra options sorted",
			config: adapter.Config{
				Port:     5433,
				Database: "analytics",
				Options:  map[string]string{"connect_timeout": "5", "application_name": "polysql"},
			},
			expected: "host=localhost port=5433 dbname=analytics sslmode=disable application_name=polysql connect_timeout=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestCopyRows(t *testing.T) {
	rel, err := executor.NewRelation(
		[]string{"id", "score", "tags"},
		[][]any{
			{1, 1, []executor.Value{"a"}},
			{2, 2.5, nil},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, [][]any{
		{int64(1), float64(1), `["a"]`},
		{int64(2), 2.5, nil},
	}, copyRows(rel))
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, "postgres", adp.Dialect().Name)
	assert.Equal(t, "public", adp.schema())
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.ErrorContains(t, adp.Exec(ctx, "SELECT 1"), "not established")
	_, err := adp.Query(ctx, "SELECT 1")
	assert.ErrorContains(t, err, "not established")
	_, err = adp.TableSchema(ctx, "users")
	assert.ErrorContains(t, err, "not established")
	assert.ErrorContains(t, adp.LoadTables(ctx, executor.Tables{}), "not established")
	assert.NoError(t, adp.Close())
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	pg, ok := factory(nil).(*Adapter)
	require.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.Dialect().Name)
}

// liveConfig returns the server named by POLYSQL_TEST_PG_HOST, skipping
// the test when it is unset.
func liveConfig(t *testing.T) adapter.Config {
	t.Helper()
	host := os.Getenv("POLYSQL_TEST_PG_HOST")
	if host == "" {
		t.Skip("POLYSQL_TEST_PG_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("POLYSQL_TEST_PG_PORT"))
	return adapter.Config{
		Type:     "postgres",
		Host:     host,
		Port:     port,
		Database: os.Getenv("POLYSQL_TEST_PG_DATABASE"),
		Username: os.Getenv("POLYSQL_TEST_PG_USER"),
		Password: os.Getenv("POLYSQL_TEST_PG_PASSWORD"),
	}
}

func TestAdapter_MatchesExecutor(t *testing.T) {
	cfg := liveConfig(t)
	ctx := context.Background()

	adp := New(testutil.NewTestLogger(t))
	require.NoError(t, adp.Connect(ctx, cfg))
	defer func() { _ = adp.Close() }()

	tables, err := executor.LoadTables([]byte(`{
		"polysql_t": [{"g": "a", "v": 7}, {"g": "a", "v": 2}, {"g": null, "v": 5}]
	}`))
	require.NoError(t, err)
	require.NoError(t, adp.LoadTables(ctx, tables))

	for _, q := range []string{
		"SELECT g, SUM(v) AS s FROM polysql_t GROUP BY g",
		"SELECT v / 2 AS half FROM polysql_t",
		"SELECT g FROM polysql_t ORDER BY g",
	} {
		t.Run(q, func(t *testing.T) {
			stmt, err := parser.Parse(q, adp.Dialect())
			require.NoError(t, err)
			want, err := executor.Execute(stmt, tables, adp.Dialect())
			require.NoError(t, err)

			got, err := adp.Query(ctx, q)
			require.NoError(t, err)
			assert.NoError(t, adapter.Compare(want, got, false))
		})
	}
}

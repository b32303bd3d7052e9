package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/internal/cli/commands"
	"github.com/leapstack-labs/polysql/internal/cli/config"
	"github.com/leapstack-labs/polysql/internal/cli/testutil"
)

// runCLI executes the root command with args in dir and returns what it
// wrote to stdout and stderr.
func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := NewRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(""))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), root, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m), s)
	return m
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	want := []string{"transpile", "format", "validate", "analyze", "optimize", "execute", "dialects", "repl", "serve", "version", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	for _, flag := range []string{"config", "dialect", "write-dialect", "pretty", "identify", "normalize", "output", "verbose", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestTranspile_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, t.TempDir(), "transpile", "-d", "duckdb", "--write-dialect", "mysql",
		"--pretty=false", "-o", "json", "SELECT a || b FROM t")
	require.NoError(t, err)

	res := decodeJSON(t, stdout)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "SELECT CONCAT(a, b) FROM t", res["transpiled_sql"])
	assert.Equal(t, "duckdb", res["source_dialect"])
	assert.Equal(t, "mysql", res["target_dialect"])
	assert.InDelta(t, 1, res["statement_count"], 0)
}

func TestTranspile_Text(t *testing.T) {
	stdout, _, err := runCLI(t, t.TempDir(), "transpile", "-d", "duckdb", "--write-dialect", "mysql",
		"--pretty=false", "-o", "text", "SELECT a || b FROM t; SELECT UUID()")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SELECT CONCAT(a, b) FROM t;\n\nSELECT UUID()")
	testutil.AssertNoANSI(t, stdout)
}

func TestTranspile_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(`dialect: duckdb
write_dialect: mysql
pretty: false
output: text
`), 0600))

	stdout, _, err := runCLI(t, dir, "transpile", "SELECT a || b FROM t")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SELECT CONCAT(a, b) FROM t")
}

func TestTranspile_UnknownDialect(t *testing.T) {
	stdout, _, err := runCLI(t, t.TempDir(), "transpile", "-d", "nope", "-o", "json", "SELECT 1")
	require.Error(t, err)

	res := decodeJSON(t, stdout)
	assert.Equal(t, false, res["success"])
	assert.NotEmpty(t, res["error_type"])
}

func TestFormat_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sql")
	b := filepath.Join(dir, "b.sql")
	require.NoError(t, os.WriteFile(a, []byte("select a from t"), 0600))
	require.NoError(t, os.WriteFile(b, []byte("select b from u; select c from v"), 0600))

	stdout, _, err := runCLI(t, dir, "format", "-o", "json", "-f", a, "-f", b)
	require.NoError(t, err)

	var res []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &res), stdout)
	require.Len(t, res, 2)
	assert.Equal(t, a, res[0]["file"])
	assert.Equal(t, "SELECT\n  a\nFROM t", res[0]["formatted_sql"])
	assert.Equal(t, b, res[1]["file"])
	assert.InDelta(t, 2, res[1]["statement_count"], 0)
}

func TestFormat_InPlace(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.sql")
	require.NoError(t, os.WriteFile(a, []byte("select a from t"), 0600))

	stdout, _, err := runCLI(t, dir, "format", "-o", "text", "-f", a, "--in-place")
	require.NoError(t, err)
	assert.Contains(t, stdout, "formatted "+a)

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  a\nFROM t\n", string(data))
}

func TestFormat_InPlaceRequiresFile(t *testing.T) {
	_, stderr, err := runCLI(t, t.TempDir(), "format", "-o", "text", "--in-place", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, stderr, "--in-place requires --file")
}

func TestValidate_Invalid(t *testing.T) {
	stdout, stderr, err := runCLI(t, t.TempDir(), "validate", "-o", "text", "SELECT FROM t")
	require.ErrorIs(t, err, commands.ErrValidationFailed)

	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "parse error at line 1, column 8")
	assert.Contains(t, stderr, "  SELECT FROM t")
	assert.NotContains(t, stderr, "Error:")
}

func TestValidate_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, t.TempDir(), "validate", "-o", "json", "SELECT a FROM t; DELETE FROM t")
	require.NoError(t, err)

	res := decodeJSON(t, stdout)
	assert.Equal(t, true, res["valid"])
	assert.InDelta(t, 2, res["statement_count"], 0)
}

func TestAnalyze(t *testing.T) {
	const query = "SELECT u.name, COUNT(*) FROM users u JOIN orders o ON u.id = o.user_id GROUP BY u.name"

	stdout, _, err := runCLI(t, t.TempDir(), "analyze", "-o", "json", query)
	require.NoError(t, err)
	res := decodeJSON(t, stdout)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "Select", res["query_type"])
	assert.Len(t, res["tables"], 2)
	assert.Len(t, res["joins"], 1)

	stdout, _, err = runCLI(t, t.TempDir(), "analyze", "-o", "markdown", query)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Query analysis")
	assert.Contains(t, stdout, "users AS u")
	testutil.AssertValidMarkdown(t, stdout)
}

func TestAnalyze_Lineage(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	const query = "SELECT *, o.amount * 2 AS doubled FROM users u JOIN orders o ON o.user_id = u.id"

	stdout, _, err := runCLI(t, dir, "analyze", "-o", "json", "--lineage", "--schema", testutil.SchemaFile, query)
	require.NoError(t, err)
	res := decodeJSON(t, stdout)
	lin, ok := res["lineage"].(map[string]any)
	require.True(t, ok, stdout)
	assert.Equal(t, []any{"orders", "users"}, lin["sources"])
	assert.Len(t, lin["columns"], 7)

	stdout, _, err = runCLI(t, dir, "analyze", "-o", "text", "--lineage", query)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Column lineage")
	assert.Contains(t, stdout, "orders.amount")

	_, _, err = runCLI(t, dir, "analyze", "-o", "text", "--lineage", "DELETE FROM users")
	require.Error(t, err)
}

func TestOptimize_WithSchema(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCLI(t, dir, "optimize", "-o", "json", "--schema", testutil.SchemaFile,
		"SELECT name FROM users WHERE 1 = 1 AND age > 26")
	require.NoError(t, err)

	res := decodeJSON(t, stdout)
	assert.Equal(t, true, res["schema_provided"])
	assert.Equal(t, true, res["optimization_applied"])
	assert.Contains(t, res["optimized_sql"], "users.name")
	assert.NotContains(t, res["optimized_sql"], "1 = 1")
	assert.Nil(t, res["note"])
}

func TestOptimize_WithoutSchema(t *testing.T) {
	_, stderr, err := runCLI(t, t.TempDir(), "optimize", "-o", "text", "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "partial optimization")
}

func TestExecute(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCLI(t, dir, "execute", "-o", "json", "--tables", testutil.TablesFile,
		"SELECT name FROM users WHERE age > 26")
	require.NoError(t, err)

	res := decodeJSON(t, stdout)
	assert.InDelta(t, 1, res["row_count"], 0)
	data, err := json.Marshal(res["data"])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name": "alice"}]`, string(data))
}

func TestExecute_Text(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCLI(t, dir, "exec", "-o", "text", "--tables", testutil.TablesFile,
		"SELECT user_id, SUM(amount) AS total FROM orders GROUP BY user_id ORDER BY user_id")
	require.NoError(t, err)
	assert.Contains(t, stdout, "total")
	assert.Contains(t, stdout, "30")
	assert.Contains(t, stdout, "(2 rows)")
}

func TestExecute_UDF(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCLI(t, dir, "execute", "-o", "json", "--tables", testutil.TablesFile,
		"--udf", testutil.UDFFile, "SELECT DOUBLE(age) AS d FROM users WHERE id = 1")
	require.NoError(t, err)

	res := decodeJSON(t, stdout)
	data, err := json.Marshal(res["data"])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"d": 60}]`, string(data))
}

func TestExecute_MissingTable(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, stderr, err := runCLI(t, dir, "execute", "-o", "text", "--tables", testutil.TablesFile, "SELECT * FROM nope")
	require.Error(t, err)
	assert.NotEmpty(t, stderr)
}

func TestExecute_VerifySQLite(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	stdout, _, err := runCLI(t, dir, "execute", "-o", "text", "--tables", testutil.TablesFile,
		"--verify", "sqlite", "SELECT name, age FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice")
	assert.Contains(t, stdout, "result matches sqlite")
}

func TestExecute_VerifyUnknownBackend(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, stderr, err := runCLI(t, dir, "execute", "-o", "text", "--tables", testutil.TablesFile,
		"--verify", "oracle", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, stderr, "oracle")
}

func TestDialects(t *testing.T) {
	stdout, _, err := runCLI(t, t.TempDir(), "dialects", "-o", "json")
	require.NoError(t, err)

	res := decodeJSON(t, stdout)
	assert.Contains(t, res["dialects"], "duckdb")
	assert.Contains(t, res["dialects"], "postgres")
	assert.NotEmpty(t, res["default"])
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "polysql v"+Version)
}

func TestCompletion(t *testing.T) {
	stdout, _, err := runCLI(t, t.TempDir(), "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "polysql")
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/internal/cli"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := cli.NewRootCmd()
	var buf bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCommands(t *testing.T) {
	out, err := run(t, "", "--help")
	require.NoError(t, err)
	for _, name := range []string{"transpile", "format", "validate", "analyze", "optimize", "execute", "dialects", "repl", "serve", "version"} {
		assert.Contains(t, out, name)
	}

	out, err = run(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "polysql "+cli.Version)
}

func TestStdinPipeline(t *testing.T) {
	out, err := run(t, "select a from t where b ilike 'x%'", "transpile", "-o", "text", "--pretty=false", "--dialect", "duckdb", "--write-dialect", "mysql")
	require.NoError(t, err)
	assert.Contains(t, out, "LOWER(b) LIKE LOWER('x%')")

	out, err = run(t, "SELECT FROM t", "validate", "-o", "text")
	require.Error(t, err)
	assert.Contains(t, out, "FROM")
}

func TestUnknownCommand(t *testing.T) {
	_, err := run(t, "", "frobnicate")
	assert.Error(t, err)
}

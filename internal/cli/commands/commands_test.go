package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/internal/cli/config"
	"github.com/leapstack-labs/polysql/internal/cli/output"
	clitestutil "github.com/leapstack-labs/polysql/internal/cli/testutil"
	"github.com/leapstack-labs/polysql/internal/testutil"
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewTranspileCommand(), "transpile [SQL]", []string{"file"}},
		{NewFormatCommand(), "format [SQL]", []string{"file", "in-place"}},
		{NewValidateCommand(), "validate [SQL]", []string{"file"}},
		{NewAnalyzeCommand(), "analyze [SQL]", []string{"file", "lineage", "schema"}},
		{NewOptimizeCommand(), "optimize [SQL]", []string{"file", "schema"}},
		{NewExecuteCommand(), "execute [SQL]", []string{"file", "tables", "udf", "verify", "max-recursion"}},
		{NewDialectsCommand(), "dialects", nil},
		{NewREPLCommand(), "repl", nil},
		{NewServeCommand(), "serve", []string{"port", "tables-dir", "watch"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestExecuteCommand_Alias(t *testing.T) {
	assert.Contains(t, NewExecuteCommand().Aliases, "exec")
}

func TestSQLInput_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT 1"), 0600))

	tests := []struct {
		name    string
		file    string
		args    []string
		stdin   string
		want    string
		wantErr string
	}{
		{name: "argument", args: []string{"SELECT a FROM t"}, want: "SELECT a FROM t"},
		{name: "file wins over args", file: path, args: []string{"SELECT 2"}, want: "SELECT 1"},
		{name: "stdin", stdin: "SELECT 3", want: "SELECT 3"},
		{name: "dash reads stdin", args: []string{"-"}, stdin: "SELECT 4", want: "SELECT 4"},
		{name: "empty", stdin: "  \n", wantErr: "no SQL given"},
		{name: "missing file", file: filepath.Join(dir, "nope.sql"), wantErr: "failed to read SQL file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.stdin))
			in := &sqlInput{file: tt.file}

			got, err := in.read(cmd, tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadTables(t *testing.T) {
	dir := clitestutil.SetupTestProject(t)

	tables, err := loadTables("")
	require.NoError(t, err)
	assert.Empty(t, tables)

	tables, err = loadTables(filepath.Join(dir, clitestutil.TablesFile))
	require.NoError(t, err)
	require.Contains(t, tables, "users")
	assert.Equal(t, 3, tables["users"].Len())

	_, err = loadTables(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestIsOrdered(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT a FROM t", false},
		{"SELECT a FROM t ORDER BY a", true},
		{"SELECT a FROM t UNION SELECT a FROM u", false},
		{"SELECT a FROM t UNION SELECT a FROM u ORDER BY a", true},
		{"INSERT INTO t (a) VALUES (1)", false},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			q, err := sql.Parse(tt.sql, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, isOrdered(q.Stmt))
		})
	}
}

func TestIsOrdered_Nil(t *testing.T) {
	assert.False(t, isOrdered(core.Stmt(nil)))
}

// newTestSession builds a REPL session writing plain text to out.
func newTestSession(t *testing.T, out *bytes.Buffer) *replSession {
	t.Helper()
	dir := clitestutil.SetupTestProject(t)
	tables, err := loadTables(filepath.Join(dir, clitestutil.TablesFile))
	require.NoError(t, err)

	logger := testutil.NewTestLogger(t)
	cc := &CommandContext{
		Cfg:      config.Default(),
		Logger:   logger,
		Engine:   sql.New(sql.Config{Logger: logger}),
		Renderer: output.NewRendererWithTTY(out, out, false, output.ModeText),
	}
	return newREPLSession(cc, tables)
}

func TestREPL_ExecutesStatement(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, &out)

	assert.False(t, s.handleLine("SELECT name FROM users WHERE age > 26;"))
	assert.Contains(t, out.String(), "alice")
	assert.NotContains(t, out.String(), "bob")
	assert.Contains(t, out.String(), "(1 row)")
}

func TestREPL_MultiLine(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, &out)

	assert.False(t, s.handleLine("SELECT COUNT(*) AS n"))
	assert.Equal(t, replContPrompt, s.prompt())
	assert.Empty(t, out.String())

	assert.False(t, s.handleLine("FROM orders;"))
	assert.Equal(t, replPrompt, s.prompt())
	assert.Contains(t, out.String(), "3")
}

func TestREPL_Reset(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, &out)

	s.handleLine("SELECT")
	s.reset()
	assert.Equal(t, replPrompt, s.prompt())
}

func TestREPL_ErrorKeepsSession(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, &out)

	assert.False(t, s.handleLine("SELECT FROM users;"))
	assert.Contains(t, out.String(), "parse error")
	assert.Equal(t, replPrompt, s.prompt())
}

func TestREPL_DotCommands(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, &out)

	s.handleLine(".tables")
	assert.Contains(t, out.String(), "orders (3 rows)")
	assert.Contains(t, out.String(), "users (3 rows)")

	out.Reset()
	s.handleLine(".schema users")
	assert.Contains(t, out.String(), "users (id, name, age)")

	out.Reset()
	s.handleLine(".schema nope")
	assert.Contains(t, out.String(), `table "nope" not found`)

	out.Reset()
	s.handleLine(".help")
	assert.Contains(t, out.String(), ".transpile")

	out.Reset()
	s.handleLine(".bogus")
	assert.Contains(t, out.String(), "Unknown command: .bogus")

	assert.True(t, s.handleLine(".quit"))
	assert.True(t, s.handleLine(".EXIT"))
}

func TestREPL_Dialect(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, &out)

	s.handleLine(".dialect duckdb")
	assert.Equal(t, "duckdb", s.dialect)

	out.Reset()
	s.handleLine(".dialect nope")
	assert.Equal(t, "duckdb", s.dialect)
	assert.Contains(t, out.String(), "nope")
}

func TestREPL_Transpile(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, &out)
	s.cc.Cfg.Pretty = false

	s.handleLine(".dialect duckdb")
	s.handleLine(".transpile mysql")
	out.Reset()

	s.handleLine("SELECT a || b FROM t;")
	assert.Contains(t, out.String(), "SELECT CONCAT(a, b) FROM t;")

	s.handleLine(".transpile off")
	assert.Empty(t, s.transpile)
}

func TestREPL_Load(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, &out)

	path := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("items:\n  - {sku: a1}\n  - {sku: b2}\n"), 0600))

	s.handleLine(".load " + path)
	assert.Contains(t, out.String(), "loaded 1 tables")
	require.Contains(t, s.tables, "items")
	assert.Equal(t, 2, s.tables["items"].Len())
	assert.Contains(t, s.tables, "users")
}

func TestNewCompleter(t *testing.T) {
	c := newCompleter(nil)
	require.NotNil(t, c)

	names := make([]string, 0, len(c.GetChildren()))
	for _, child := range c.GetChildren() {
		names = append(names, strings.TrimSpace(string(child.GetName())))
	}
	assert.Contains(t, names, ".dialect")
	assert.Contains(t, names, ".quit")
}

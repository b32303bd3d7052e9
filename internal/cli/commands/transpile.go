package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/internal/server"
	"github.com/leapstack-labs/polysql/pkg/format"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// NewTranspileCommand creates the transpile command.
func NewTranspileCommand() *cobra.Command {
	in := &sqlInput{}

	cmd := &cobra.Command{
		Use:   "transpile [SQL]",
		Short: "Convert SQL from one dialect to another",
		Long: `Parse SQL in the read dialect (--dialect) and write every statement in
the write dialect (--write-dialect). Without a write dialect the SQL is
re-rendered in the read dialect.`,
		Example: `  # DuckDB to Postgres
  polysql transpile -d duckdb --write-dialect postgres "SELECT name FROM users LIMIT 5"

  # Transpile a script file, one line per statement
  polysql transpile -d mysql --write-dialect sqlite --pretty=false -f query.sql

  # As JSON
  polysql transpile "SELECT 1" --output json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranspile(cmd, args, in)
		},
	}
	in.bind(cmd)

	return cmd
}

func runTranspile(cmd *cobra.Command, args []string, in *sqlInput) error {
	src, err := in.read(cmd, args)
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, r := cc.Cfg, cc.Renderer

	queries, err := cc.Engine.ParseScript(src, cfg.Dialect)
	if err != nil {
		return err
	}
	stmts := make([]string, len(queries))
	for i, q := range queries {
		if stmts[i], err = sql.Render(q, cfg.WriteDialect, cc.FormatOptions()); err != nil {
			return err
		}
	}
	out := strings.Join(stmts, format.ScriptSeparator)

	target := cfg.WriteDialect
	if target == "" {
		target = cfg.Dialect
	}
	cc.Logger.Debug("transpiled", "from", sql.DialectLabel(cfg.Dialect), "to", sql.DialectLabel(target), "statements", len(stmts))

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(server.TranspileResponse{
			Success:        true,
			OriginalSQL:    src,
			TranspiledSQL:  out,
			Statements:     stmts,
			SourceDialect:  sql.DialectLabel(cfg.Dialect),
			TargetDialect:  sql.DialectLabel(target),
			StatementCount: len(stmts),
		})
	}
	r.SQL(out)
	return nil
}

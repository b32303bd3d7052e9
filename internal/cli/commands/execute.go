package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/pkg/adapter"
	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/format"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// NewExecuteCommand creates the execute command.
func NewExecuteCommand() *cobra.Command {
	in := &sqlInput{}

	cmd := &cobra.Command{
		Use:     "execute [SQL]",
		Aliases: []string{"exec"},
		Short:   "Run a query against in-memory tables",
		Long: `Evaluate one statement against tables loaded from a JSON or YAML file
(or a directory of them) and print the result.

--udf loads Starlark files whose top-level functions become SQL scalar
functions. --verify loads the same tables into a reference database,
runs the query there in that database's dialect and fails when the
results differ.`,
		Example: `  # Run a query over a table file
  polysql execute --tables tables.json "SELECT name, age FROM users WHERE age > 20"

  # Use Starlark functions
  polysql execute --tables tables.json --udf funcs.star "SELECT DOUBLE(age) FROM users"

  # Cross-check the result with SQLite
  polysql execute --tables tables.json --verify sqlite "SELECT COUNT(*) FROM users"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, in)
		},
	}
	in.bind(cmd)
	cmd.Flags().String("tables", "", "JSON/YAML table file or directory")
	cmd.Flags().StringSlice("udf", nil, "Starlark file defining scalar functions (repeatable)")
	cmd.Flags().String("verify", "", "Cross-check the result with a reference backend (sqlite|duckdb|postgres)")
	cmd.Flags().Int("max-recursion", 0, "Maximum recursive CTE iterations (0 uses the default)")

	_ = cmd.RegisterFlagCompletionFunc("verify", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runExecute(cmd *cobra.Command, args []string, in *sqlInput) error {
	src, err := in.read(cmd, args)
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	tables, err := loadTables(cc.Cfg.Tables)
	if err != nil {
		return err
	}
	q, err := cc.Engine.Parse(src, cc.Cfg.Dialect)
	if err != nil {
		return err
	}
	rel, err := cc.Engine.ExecuteQuery(q, tables)
	if err != nil {
		return err
	}

	if cc.Cfg.Verify != nil {
		if err := verifyResult(cmd.Context(), cc, q, tables, rel); err != nil {
			return err
		}
	}

	if err := r.Relation(rel); err != nil {
		return err
	}
	if cc.Cfg.Verify != nil && r.EffectiveMode() != output.ModeJSON {
		r.Success("result matches " + cc.Cfg.Verify.Type)
	}
	return nil
}

// verifyResult runs q on the configured reference backend and compares the
// rows with want.
func verifyResult(ctx context.Context, cc *CommandContext, q *sql.Query, tables executor.Tables, want *executor.Relation) error {
	a, err := adapter.Open(ctx, *cc.Cfg.Verify, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.LoadTables(ctx, tables); err != nil {
		return fmt.Errorf("failed to load tables into %s: %w", cc.Cfg.Verify.Type, err)
	}

	native := format.Render(q.Stmt, a.Dialect(), format.Options{})
	cc.Logger.Debug("verifying", "backend", cc.Cfg.Verify.Type, "sql", native)

	got, err := a.Query(ctx, native)
	if err != nil {
		return fmt.Errorf("%s rejected %q: %w", cc.Cfg.Verify.Type, native, err)
	}
	if err := adapter.Compare(want, got, isOrdered(q.Stmt)); err != nil {
		return fmt.Errorf("%s disagrees: %w", cc.Cfg.Verify.Type, err)
	}
	return nil
}

// isOrdered reports whether a statement fixes the order of its rows.
func isOrdered(stmt core.Stmt) bool {
	sel, ok := stmt.(*core.SelectStmt)
	if !ok {
		return false
	}
	if len(sel.OrderBy) > 0 {
		return true
	}
	cores := sel.Cores()
	return len(cores) == 1 && len(cores[0].OrderBy) > 0
}

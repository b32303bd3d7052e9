package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/internal/server"
	"github.com/leapstack-labs/polysql/pkg/format"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// OptimizeOptions holds options for the optimize command.
type OptimizeOptions struct {
	Schema string
}

// NewOptimizeCommand creates the optimize command.
func NewOptimizeCommand() *cobra.Command {
	in := &sqlInput{}
	opts := &OptimizeOptions{}

	cmd := &cobra.Command{
		Use:   "optimize [SQL]",
		Short: "Rewrite a query into a simpler equivalent",
		Long: `Run the rule pipeline until the query stops changing: column
qualification, constant folding, boolean simplification, predicate
pushdown, projection pruning and comma-join conversion.

Without --schema the rules that need table columns are skipped and the
result carries a note saying so.`,
		Example: `  polysql optimize "SELECT * FROM (SELECT a FROM t) AS s WHERE 1 = 1"
  polysql optimize --schema schema.yaml -f query.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, args, in, opts)
		},
	}
	in.bind(cmd)
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "JSON or YAML file describing table columns")

	return cmd
}

func runOptimize(cmd *cobra.Command, args []string, in *sqlInput, opts *OptimizeOptions) error {
	src, err := in.read(cmd, args)
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	schema, err := loadSchema(opts.Schema)
	if err != nil {
		return err
	}

	q, err := cc.Engine.Parse(src, cc.Cfg.Dialect)
	if err != nil {
		return err
	}
	res, err := cc.Engine.Optimize(q, cc.Cfg.WriteDialect, schema)
	if err != nil {
		return err
	}
	out, err := sql.Render(res.Query, "", format.Options{Pretty: true, Identify: cc.Cfg.Identify})
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(server.OptimizeResponse{
			Success:             true,
			OriginalSQL:         src,
			OptimizedSQL:        out,
			Dialect:             sql.DialectLabel(cc.Cfg.Dialect),
			SchemaProvided:      schema != nil,
			OptimizationApplied: len(res.Applied) > 0,
			Rules:               res.Applied,
			JoinHints:           res.Hints,
			Note:                strings.Join(res.Notes, " "),
		})
	}

	r.SQL(out)
	if len(res.Applied) > 0 {
		r.Println(r.Muted("-- rules: " + strings.Join(res.Applied, ", ")))
	}
	for _, h := range res.Hints {
		keys := make([]string, len(h.Keys))
		for i, k := range h.Keys {
			keys[i] = k.Left + " = " + k.Right
		}
		r.Println(r.Muted(fmt.Sprintf("-- join %s with %s: %s (%s)", h.Left, h.Right, h.Strategy, strings.Join(keys, ", "))))
	}
	for _, note := range res.Notes {
		r.Warning(note)
	}
	return nil
}

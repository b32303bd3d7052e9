package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/internal/server"
	"github.com/leapstack-labs/polysql/pkg/lineage"
	"github.com/leapstack-labs/polysql/pkg/metadata"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	Lineage bool
	Schema  string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	in := &sqlInput{}
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [SQL]",
		Short: "Extract tables, columns, joins and functions from a query",
		Long: `Parse one statement and report what it references: tables, columns,
projection aliases, function calls, joins, subqueries and the text of its
filter, grouping and ordering clauses.

With --lineage the output columns of a SELECT are traced through CTEs and
derived tables to the table columns they come from. --schema lets SELECT *
expand to individual columns.`,
		Example: `  polysql analyze "SELECT u.name, COUNT(*) FROM users u JOIN orders o ON u.id = o.user_id GROUP BY u.name"
  polysql analyze -f query.sql --output json
  polysql analyze --lineage --schema schema.yaml -f query.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, in, opts)
		},
	}
	in.bind(cmd)
	cmd.Flags().BoolVar(&opts.Lineage, "lineage", false, "Trace output columns to their source columns")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "JSON or YAML file describing table columns (with --lineage)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, in *sqlInput, opts *AnalyzeOptions) error {
	src, err := in.read(cmd, args)
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	q, err := cc.Engine.Parse(src, cc.Cfg.Dialect)
	if err != nil {
		return err
	}
	res := sql.ExtractMetadata(q)

	var lin *lineage.QueryLineage
	if opts.Lineage {
		schema, err := loadSchema(opts.Schema)
		if err != nil {
			return err
		}
		if lin, err = cc.Engine.Lineage(q, schema); err != nil {
			return err
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(server.AnalyzeResponse{
			Success:     true,
			Result:      res,
			Lineage:     lin,
			Dialect:     sql.DialectLabel(cc.Cfg.Dialect),
			OriginalSQL: src,
		})
	}

	r.Header(1, "Query analysis")
	r.KeyValues(analysisRows(res))
	if lin != nil {
		r.Println()
		r.Header(2, "Column lineage")
		r.Lineage(lin)
	}
	return nil
}

func analysisRows(res *metadata.Result) [][2]string {
	tables := make([]string, len(res.Tables))
	for i, t := range res.Tables {
		name := t.Name
		if t.DB != nil {
			name = *t.DB + "." + name
		}
		if t.Alias != nil {
			name += " AS " + *t.Alias
		}
		tables[i] = name
	}

	columns := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		if c.Table != nil {
			columns[i] = *c.Table + "." + c.Name
		} else {
			columns[i] = c.Name
		}
	}

	aliases := make([]string, len(res.Aliases))
	for i, a := range res.Aliases {
		aliases[i] = a.Alias + " = " + a.Expression
	}

	functions := make([]string, len(res.Functions))
	for i, f := range res.Functions {
		functions[i] = f.Name
	}

	joins := make([]string, len(res.Joins))
	for i, j := range res.Joins {
		s := j.Type + " JOIN " + j.Table
		switch {
		case j.OnCondition != nil:
			s += " ON " + *j.OnCondition
		case len(j.Using) > 0:
			s += " USING (" + strings.Join(j.Using, ", ") + ")"
		}
		joins[i] = s
	}

	orderBy := make([]string, len(res.OrderBy))
	for i, o := range res.OrderBy {
		orderBy[i] = o.Expression
		if o.Desc {
			orderBy[i] += " DESC"
		}
	}

	subqueries := ""
	if n := len(res.Subqueries); n > 0 {
		subqueries = fmt.Sprint(n)
	}

	return [][2]string{
		{"Query type", res.QueryType},
		{"Tables", strings.Join(tables, ", ")},
		{"Columns", strings.Join(columns, ", ")},
		{"Aliases", strings.Join(aliases, ", ")},
		{"Functions", strings.Join(functions, ", ")},
		{"Joins", strings.Join(joins, "; ")},
		{"Subqueries", subqueries},
		{"Where", strings.Join(res.WhereConditions, " AND ")},
		{"Group by", strings.Join(res.GroupBy, ", ")},
		{"Order by", strings.Join(orderBy, ", ")},
	}
}

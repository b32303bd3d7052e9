package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/internal/server"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	in := &sqlInput{}

	cmd := &cobra.Command{
		Use:   "validate [SQL]",
		Short: "Check that SQL parses",
		Long: `Parse SQL in the read dialect and report each statement with its type,
or the first error with the offending token highlighted.

Exits with status 1 when the SQL is invalid.`,
		Example: `  polysql validate "SELECT a FROM t"
  polysql validate -d bigquery -f query.sql
  echo "SELECT FROM" | polysql validate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, in)
		},
	}
	in.bind(cmd)

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, in *sqlInput) error {
	src, err := in.read(cmd, args)
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	v := cc.Engine.Validate(src, cc.Cfg.Dialect)
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(server.NewValidateResponse(v, src)); err != nil {
			return err
		}
		if !v.Valid {
			return ErrValidationFailed
		}
		return nil
	}

	if !v.Valid {
		if err := r.Diagnostic(v.Error); err != nil {
			return err
		}
		return ErrValidationFailed
	}

	noun := "statements"
	if len(v.Statements) == 1 {
		noun = "statement"
	}
	r.Success(fmt.Sprintf("valid %s SQL (%d %s)", v.Dialect, len(v.Statements), noun))
	for _, st := range v.Statements {
		r.Println(r.Muted(fmt.Sprintf("%d.", st.Index)) + " " + st.Type)
	}
	return nil
}

package commands

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/internal/server"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// FormatOptions holds options for the format command.
type FormatOptions struct {
	Files   []string
	InPlace bool
}

// formattedFile is the result of formatting one input.
type formattedFile struct {
	Path           string `json:"file,omitempty"`
	FormattedSQL   string `json:"formatted_sql"`
	StatementCount int    `json:"statement_count"`
}

// NewFormatCommand creates the format command.
func NewFormatCommand() *cobra.Command {
	opts := &FormatOptions{}

	cmd := &cobra.Command{
		Use:   "format [SQL]",
		Short: "Pretty-print SQL",
		Long: `Pretty-print every statement of a script. Several files given with
--file are formatted concurrently and written in the order given.

--identify quotes every identifier and --normalize folds unquoted
identifiers and canonicalizes function names and literals.`,
		Example: `  # Format a query
  polysql format "select a,b from t where x=1"

  # Rewrite files in place
  polysql format -f a.sql -f b.sql --in-place

  # Quote and normalize identifiers for Snowflake
  polysql format -d snowflake --identify --normalize -f model.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Files, "file", "f", nil, "Read SQL from file (repeatable)")
	cmd.Flags().BoolVar(&opts.InPlace, "in-place", false, "Write formatted SQL back to the files")

	return cmd
}

func runFormat(cmd *cobra.Command, args []string, opts *FormatOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if opts.InPlace && len(opts.Files) == 0 {
		return fmt.Errorf("--in-place requires --file")
	}

	var results []formattedFile
	if len(opts.Files) == 0 {
		src, err := (&sqlInput{}).read(cmd, args)
		if err != nil {
			return err
		}
		res, err := formatSource(cc, src)
		if err != nil {
			return err
		}
		if cc.Renderer.EffectiveMode() == output.ModeJSON {
			return cc.Renderer.JSON(server.FormatResponse{
				Success:        true,
				OriginalSQL:    src,
				FormattedSQL:   res.FormattedSQL,
				Dialect:        sql.DialectLabel(cc.Cfg.Dialect),
				Options:        server.FormatOptions{Identify: cc.Cfg.Identify, Normalize: cc.Cfg.Normalize},
				StatementCount: res.StatementCount,
			})
		}
		results = []formattedFile{res}
	} else {
		if results, err = formatFiles(cmd, cc, opts.Files); err != nil {
			return err
		}
	}

	return renderFormatted(cc, results, opts.InPlace)
}

func formatSource(cc *CommandContext, src string) (formattedFile, error) {
	opts := cc.FormatOptions()
	out, n, err := cc.Engine.Format(src, cc.Cfg.Dialect, opts)
	if err != nil {
		return formattedFile{}, err
	}
	return formattedFile{FormattedSQL: out, StatementCount: n}, nil
}

// formatFiles formats files concurrently. Results keep the input order; the
// first failure cancels the rest.
func formatFiles(cmd *cobra.Command, cc *CommandContext, files []string) ([]formattedFile, error) {
	results := make([]formattedFile, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path) //nolint:gosec // G304: user-selected SQL file
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			res, err := formatSource(cc, string(data))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			res.Path = path
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	cc.Logger.Debug("formatted files", "count", len(files))
	return results, nil
}

func renderFormatted(cc *CommandContext, results []formattedFile, inPlace bool) error {
	r := cc.Renderer
	if inPlace {
		for _, res := range results {
			if err := os.WriteFile(res.Path, []byte(res.FormattedSQL+"\n"), 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", res.Path, err)
			}
			if r.EffectiveMode() != output.ModeJSON {
				r.Success("formatted " + res.Path)
			}
		}
		if r.EffectiveMode() != output.ModeJSON {
			return nil
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}
	for i, res := range results {
		if len(results) > 1 {
			if i > 0 {
				r.Println()
			}
			r.Header(2, res.Path)
		}
		r.SQL(res.FormattedSQL)
	}
	return nil
}

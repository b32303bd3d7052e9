// Package commands implements the polysql subcommands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/cli/config"
	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/internal/server"
	"github.com/leapstack-labs/polysql/internal/udf"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/format"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// ErrValidationFailed is returned after a failed validation has been
// reported, so the caller only sets the exit status.
var ErrValidationFailed = errors.New("validation failed")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *sql.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an engine carrying the
// configured UDFs.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cc := NewCommandContextWithoutEngine(cmd)

	var functions map[string]executor.Function
	if len(cc.Cfg.UDFs) > 0 {
		loader := udf.NewLoader(udf.Config{Logger: cc.Logger})
		var err error
		if functions, err = loader.LoadFiles(cc.Cfg.UDFs...); err != nil {
			return nil, fmt.Errorf("failed to load UDFs: %w", err)
		}
		cc.Logger.Debug("loaded UDFs", "files", len(cc.Cfg.UDFs), "functions", len(functions))
	}

	cc.Engine = sql.New(sql.Config{
		Functions:    functions,
		MaxRecursion: cc.Cfg.MaxRecursion,
		Logger:       cc.Logger,
	})
	return cc, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// FormatOptions returns the configured rendering options.
func (cc *CommandContext) FormatOptions() format.Options {
	return format.Options{
		Pretty:    cc.Cfg.Pretty,
		Identify:  cc.Cfg.Identify,
		Normalize: cc.Cfg.Normalize,
	}
}

// getConfig returns the loaded configuration, or defaults when commands
// run outside the root command.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// sqlInput reads the SQL text of a command from a file, the arguments or
// standard input.
type sqlInput struct {
	file string
}

func (in *sqlInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.file, "file", "f", "", "Read SQL from file")
}

// read returns the SQL to process. Arguments are joined with spaces; no
// arguments or "-" reads standard input.
func (in *sqlInput) read(cmd *cobra.Command, args []string) (string, error) {
	var src string
	switch {
	case in.file != "":
		data, err := os.ReadFile(in.file)
		if err != nil {
			return "", fmt.Errorf("failed to read SQL file: %w", err)
		}
		src = string(data)
	case len(args) > 0 && !(len(args) == 1 && args[0] == "-"):
		src = strings.Join(args, " ")
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read SQL from stdin: %w", err)
		}
		src = string(data)
	}
	if strings.TrimSpace(src) == "" {
		return "", fmt.Errorf("no SQL given\nHint: pass SQL as an argument, with --file, or on stdin")
	}
	return src, nil
}

// loadTables reads a table file or a directory of table files. An empty
// path yields no tables.
func loadTables(path string) (executor.Tables, error) {
	if path == "" {
		return executor.Tables{}, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	if info.IsDir() {
		return server.LoadTablesDir(path)
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's tables file
	if err != nil {
		return nil, fmt.Errorf("failed to read tables file: %w", err)
	}
	return executor.LoadTables(data)
}

// loadSchema reads a JSON or YAML schema file. An empty path yields a nil
// schema.
func loadSchema(path string) (*optimizer.Schema, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the user's schema file
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return optimizer.LoadSchema(data)
}

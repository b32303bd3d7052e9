// Package cli provides the command-line interface for polysql.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/cli/commands"
	"github.com/leapstack-labs/polysql/internal/cli/config"
	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/pkg/sql"

	// Reference backends for execute --verify
	_ "github.com/leapstack-labs/polysql/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/polysql/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/polysql/pkg/adapters/sqlite"
)

var (
	cfgFile string
	cfg     *config.Config
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "polysql",
		Short: "polysql - multi-dialect SQL toolkit",
		Long: `polysql parses SQL in one dialect and prints it in another.

It also formats and validates SQL, reports the tables and columns a query
references, rewrites queries into simpler equivalents and evaluates them
against in-memory tables.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := config.NewLogger(cmd.ErrOrStderr(), cfg)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, config.LoggerKey(), logger))

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", configFile)
				}
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Multi-dialect SQL parser, transpiler, optimizer and executor
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./polysql.yaml)")
	pf.StringP("dialect", "d", "", "Dialect to read SQL in (default: the generic dialect)")
	pf.String("write-dialect", "", "Dialect to write SQL in (default: --dialect)")
	pf.Bool("pretty", true, "Pretty-print generated SQL")
	pf.Bool("identify", false, "Quote every identifier")
	pf.Bool("normalize", false, "Lowercase unquoted identifiers")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")

	completeDialects := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return sql.Dialects(), cobra.ShellCompDirectiveNoFileComp
	}
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", completeDialects)
	_ = rootCmd.RegisterFlagCompletionFunc("write-dialect", completeDialects)
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(commands.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}))
	rootCmd.AddCommand(commands.NewTranspileCommand())
	rootCmd.AddCommand(commands.NewFormatCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewOptimizeCommand())
	rootCmd.AddCommand(commands.NewExecuteCommand())
	rootCmd.AddCommand(commands.NewDialectsCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return run(ctx, NewRootCmd(), os.Stdout, os.Stderr)
}

// run executes rootCmd and reports a returned error in the configured
// output mode. Validation failures are already reported by the command.
func run(ctx context.Context, rootCmd *cobra.Command, stdout, stderr io.Writer) error {
	cfg = nil
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, commands.ErrValidationFailed) {
		return err
	}

	// Config loading may have failed; fall back to the --output flag
	mode := output.ModeAuto
	if cfg != nil {
		mode = output.Mode(cfg.OutputFormat)
	} else if name, ferr := rootCmd.PersistentFlags().GetString("output"); ferr == nil {
		mode = output.Mode(name)
	}
	_ = output.NewRenderer(stdout, stderr, mode).Error(err)
	return err
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for polysql.

To load completions:

Bash:
  $ source <(polysql completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ polysql completion bash > /etc/bash_completion.d/polysql
  # macOS:
  $ polysql completion bash > $(brew --prefix)/etc/bash_completion.d/polysql

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ polysql completion zsh > "${fpath[1]}/_polysql"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ polysql completion fish | source

  # To load completions for each session, execute once:
  $ polysql completion fish > ~/.config/fish/completions/polysql.fish

PowerShell:
  PS> polysql completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> polysql completion powershell > polysql.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(w)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	}
	return cmd
}

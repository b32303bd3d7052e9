package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

const (
	replPrompt     = "polysql> "
	replContPrompt = "    ...> "
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL shell over in-memory tables",
		Long: `Start an interactive shell. Statements end with a semicolon and run
against the tables loaded with --tables or .load. Switch .transpile on to
print each statement in another dialect instead of running it.`,
		Example: `  polysql repl --tables tables.json
  polysql repl -d duckdb`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

// replSession is the state of one REPL run. It is separate from readline
// so lines can be fed to it directly.
type replSession struct {
	cc        *CommandContext
	out       io.Writer
	dialect   string
	transpile string
	tables    executor.Tables
	buf       strings.Builder
}

func newREPLSession(cc *CommandContext, tables executor.Tables) *replSession {
	return &replSession{cc: cc, out: cc.Renderer.Writer(), dialect: cc.Cfg.Dialect, tables: tables}
}

func (s *replSession) prompt() string {
	if s.buf.Len() > 0 {
		return replContPrompt
	}
	return replPrompt
}

func (s *replSession) reset() {
	s.buf.Reset()
}

// handleLine processes one input line and reports whether the session
// should end.
func (s *replSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if s.buf.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.handleDotCommand(line)
	}

	s.buf.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.buf.WriteString("\n")
		return false
	}
	src := s.buf.String()
	s.buf.Reset()

	if err := s.run(src); err != nil {
		_ = s.cc.Renderer.Error(err)
	}
	_, _ = fmt.Fprintln(s.out)
	return false
}

func (s *replSession) run(src string) error {
	r := s.cc.Renderer
	if s.transpile != "" {
		queries, err := s.cc.Engine.ParseScript(src, s.dialect)
		if err != nil {
			return err
		}
		for _, q := range queries {
			out, err := sql.Render(q, s.transpile, s.cc.FormatOptions())
			if err != nil {
				return err
			}
			r.SQL(out + ";")
		}
		return nil
	}

	q, err := s.cc.Engine.Parse(strings.TrimSuffix(strings.TrimSpace(src), ";"), s.dialect)
	if err != nil {
		return err
	}
	rel, err := s.cc.Engine.ExecuteQuery(q, s.tables)
	if err != nil {
		return err
	}
	return r.Relation(rel)
}

func (s *replSession) handleDotCommand(line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	w := s.out

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(w)

	case ".dialect":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(w, "dialect: %s\n", sql.DialectLabel(s.dialect))
			return false
		}
		if _, err := dialect.Resolve(parts[1]); err != nil {
			_ = s.cc.Renderer.Error(err)
			return false
		}
		s.dialect = parts[1]
		_, _ = fmt.Fprintf(w, "dialect: %s\n", s.dialect)

	case ".transpile":
		switch {
		case len(parts) < 2:
			_, _ = fmt.Fprintln(w, "Usage: .transpile <dialect>|off")
		case strings.EqualFold(parts[1], "off"):
			s.transpile = ""
			_, _ = fmt.Fprintln(w, "executing statements")
		default:
			if _, err := dialect.Resolve(parts[1]); err != nil {
				_ = s.cc.Renderer.Error(err)
				return false
			}
			s.transpile = parts[1]
			_, _ = fmt.Fprintf(w, "transpiling to %s\n", s.transpile)
		}

	case ".tables":
		names := make([]string, 0, len(s.tables))
		for name := range s.tables {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "%s (%d rows)\n", name, s.tables[name].Len())
		}

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(w, "Usage: .schema <table>")
			return false
		}
		rel, ok := s.tables[parts[1]]
		if !ok {
			_, _ = fmt.Fprintf(w, "table %q not found\n", parts[1])
			return false
		}
		_, _ = fmt.Fprintf(w, "%s (%s)\n", parts[1], strings.Join(rel.Columns, ", "))

	case ".load":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(w, "Usage: .load <file|dir>")
			return false
		}
		loaded, err := loadTables(parts[1])
		if err != nil {
			_ = s.cc.Renderer.Error(err)
			return false
		}
		for name, rel := range loaded {
			s.tables[name] = rel
		}
		_, _ = fmt.Fprintf(w, "loaded %d tables\n", len(loaded))

	case ".clear":
		_, _ = fmt.Fprint(w, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(w, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help                 Show this help message
  .dialect [name]       Show or set the read dialect
  .transpile <d>|off    Print statements in dialect d instead of running them
  .tables               List loaded tables
  .schema <table>       Show the columns of a table
  .load <file|dir>      Load tables from JSON/YAML
  .clear                Clear the screen
  .quit / .exit         Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names`
	_, _ = fmt.Fprintln(w, help)
}

// newCompleter creates a readline completer for table names and
// dot-commands.
func newCompleter(tables executor.Tables) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, name := range slices.Sorted(func(yield func(string) bool) {
		for name := range tables {
			if !yield(name) {
				return
			}
		}
	}) {
		items = append(items, readline.PcItem(name))
	}

	dialects := make([]readline.PrefixCompleterInterface, 0, len(dialect.List()))
	for _, name := range dialect.List() {
		dialects = append(dialects, readline.PcItem(name))
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".dialect", dialects...),
		readline.PcItem(".transpile", append(dialects, readline.PcItem("off"))...),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".load"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "polysql")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	tables, err := loadTables(cc.Cfg.Tables)
	if err != nil {
		return err
	}
	s := newREPLSession(cc, tables)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile(),
		AutoComplete:    newCompleter(tables),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "polysql REPL (dialect: %s, %d tables)\n", sql.DialectLabel(s.dialect), len(tables))
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			s.reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if s.handleLine(line) {
			break
		}
		rl.SetPrompt(s.prompt())
	}

	return nil
}

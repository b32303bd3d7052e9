// Package executor evaluates SELECT statements against in-memory tables.
//
// It is a reference evaluator: rows are materialized at every step, joins
// are nested loops and there is no planning. Values are nil, bool, int64,
// float64, string, []Value or *Record. Comparisons between incompatible
// kinds fail instead of coercing through text.
package executor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/dialect"
)

const defaultMaxRecursion = 1000

// Config configures an Executor.
type Config struct {
	// Functions are scalar user-defined functions keyed by name. They
	// shadow built-in functions of the same name.
	Functions map[string]Function
	// MaxRecursion bounds the iterations of a recursive CTE (default 1000).
	MaxRecursion int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Executor runs statements. It is safe for concurrent use.
type Executor struct {
	funcs        map[string]Function
	maxRecursion int
	logger       *slog.Logger
}

// New creates an executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxRecursion := cfg.MaxRecursion
	if maxRecursion <= 0 {
		maxRecursion = defaultMaxRecursion
	}
	funcs := make(map[string]Function, len(cfg.Functions))
	for name, fn := range cfg.Functions {
		funcs[strings.ToUpper(name)] = fn
	}
	return &Executor{funcs: funcs, maxRecursion: maxRecursion, logger: logger}
}

var defaultExecutor = New(Config{})

// Execute runs stmt with a default executor.
func Execute(stmt core.Stmt, tables Tables, d *dialect.Dialect) (*Relation, error) {
	return defaultExecutor.Execute(stmt, tables, d)
}

// executor is the state of one Execute call.
type executor struct {
	d            *dialect.Dialect
	tables       Tables
	funcs        map[string]Function
	maxRecursion int
}

// Execute evaluates stmt against tables. Only SELECT statements run; a nil
// dialect selects the registry default.
func (e *Executor) Execute(stmt core.Stmt, tables Tables, d *dialect.Dialect) (rel *Relation, err error) {
	sel, ok := stmt.(*core.SelectStmt)
	if !ok {
		if stmt == nil {
			return nil, diag.New(diag.UnsupportedConstruct, "empty statement")
		}
		return nil, diag.Newf(diag.UnsupportedConstruct, "%s statement", statementName(stmt))
	}
	if d == nil {
		if d, err = dialect.Resolve(""); err != nil {
			return nil, err
		}
	}

	defer func() {
		if r := recover(); r != nil {
			rel = nil
			err = diag.Newf(diag.EvaluationError, "internal error: %v", r)
			e.logger.Error("executor panic", "panic", fmt.Sprint(r))
		}
	}()

	x := &executor{d: d, tables: tables, funcs: e.funcs, maxRecursion: e.maxRecursion}
	rel, err = x.query(sel, nil, nil)
	if err != nil {
		e.logger.Debug("execute failed", "dialect", d.Name, "error", err)
		return nil, err
	}
	e.logger.Debug("execute completed", "dialect", d.Name, "columns", len(rel.Columns), "rows", len(rel.Rows))
	return rel, nil
}

func statementName(stmt core.Stmt) string {
	switch stmt.Kind() {
	case core.KindInsert:
		return "INSERT"
	case core.KindUpdate:
		return "UPDATE"
	case core.KindDelete:
		return "DELETE"
	case core.KindCreateTable:
		return "CREATE TABLE"
	case core.KindDropTable:
		return "DROP TABLE"
	case core.KindCommand:
		if c, ok := stmt.(*core.CommandStmt); ok && c.Keyword != "" {
			return strings.ToUpper(c.Keyword)
		}
		return "command"
	default:
		return stmt.Kind().String()
	}
}

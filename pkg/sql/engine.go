package sql

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	_ "github.com/leapstack-labs/polysql/pkg/dialects/all" // register every dialect
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/format"
	"github.com/leapstack-labs/polysql/pkg/lineage"
	"github.com/leapstack-labs/polysql/pkg/metadata"
	"github.com/leapstack-labs/polysql/pkg/optimizer"
	"github.com/leapstack-labs/polysql/pkg/parser"
)

// AutoDetected labels results produced without an explicit dialect.
const AutoDetected = "auto-detected"

// Config configures an Engine.
type Config struct {
	// Functions are user-defined scalar functions for Execute.
	Functions map[string]executor.Function
	// MaxRecursion bounds recursive CTE iterations (executor default if 0).
	MaxRecursion int
	// OptimizerRules restricts the optimizer to the named rules.
	OptimizerRules []string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine bundles the parser, optimizer and executor behind one logger.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	optimizer *optimizer.Optimizer
	executor  *executor.Executor
	logger    *slog.Logger
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		optimizer: optimizer.New(optimizer.Config{Rules: cfg.OptimizerRules, Logger: logger}),
		executor:  executor.New(executor.Config{Functions: cfg.Functions, MaxRecursion: cfg.MaxRecursion, Logger: logger}),
		logger:    logger,
	}
}

var defaultEngine = New(Config{})

// Query is a parsed statement together with the dialect it was read in.
type Query struct {
	Stmt    core.Stmt
	Dialect *dialect.Dialect
	// SQL is the source text of the whole input.
	SQL string
}

// DialectLabel returns name, or AutoDetected when name is empty.
func DialectLabel(name string) string {
	if strings.TrimSpace(name) == "" {
		return AutoDetected
	}
	return name
}

// Dialects lists the registered dialect names.
func Dialects() []string {
	return dialect.List()
}

// DefaultDialect returns the name of the dialect used when none is given.
func DefaultDialect() string {
	if d, ok := dialect.Default(); ok {
		return d.Name
	}
	return ""
}

// Parse parses a single statement.
func (e *Engine) Parse(sql, dialectName string) (*Query, error) {
	d, err := dialect.Resolve(dialectName)
	if err != nil {
		return nil, err
	}
	stmt, err := parser.Parse(sql, d)
	if err != nil {
		e.logger.Debug("parse failed", "dialect", d.Name, "error", err)
		return nil, err
	}
	e.logger.Debug("parsed statement", "dialect", d.Name, "kind", stmt.Kind().String())
	return &Query{Stmt: stmt, Dialect: d, SQL: sql}, nil
}

// ParseScript parses semicolon separated statements.
func (e *Engine) ParseScript(sql, dialectName string) ([]*Query, error) {
	d, err := dialect.Resolve(dialectName)
	if err != nil {
		return nil, err
	}
	stmts, err := parser.ParseScript(sql, d)
	if err != nil {
		e.logger.Debug("parse failed", "dialect", d.Name, "error", err)
		return nil, err
	}
	queries := make([]*Query, len(stmts))
	for i, stmt := range stmts {
		queries[i] = &Query{Stmt: stmt, Dialect: d, SQL: sql}
	}
	e.logger.Debug("parsed script", "dialect", d.Name, "statements", len(queries))
	return queries, nil
}

// ExtractMetadata collects the facts of a parsed query.
func ExtractMetadata(q *Query) *metadata.Result {
	if q == nil {
		return metadata.Extract(nil, nil)
	}
	return metadata.Extract(q.Stmt, q.Dialect)
}

// Render writes q in the target dialect. An empty target renders in the
// dialect q was parsed with.
func Render(q *Query, dialectName string, opts format.Options) (string, error) {
	if q == nil || q.Stmt == nil {
		return "", errNoQuery("render")
	}
	d := q.Dialect
	if strings.TrimSpace(dialectName) != "" {
		var err error
		if d, err = dialect.Resolve(dialectName); err != nil {
			return "", err
		}
	}
	return format.Render(q.Stmt, d, opts), nil
}

// OptimizeResult is the rewritten query and what the pipeline did.
type OptimizeResult struct {
	Query   *Query
	Applied []string
	Notes   []string
	Hints   []optimizer.JoinHint
}

// Optimize rewrites a copy of q. schema may be nil, in which case the
// result carries a partial-optimization note. It fails only on an unknown
// dialect name or a nil query.
func (e *Engine) Optimize(q *Query, dialectName string, schema *optimizer.Schema) (*OptimizeResult, error) {
	if q == nil || q.Stmt == nil {
		return nil, errNoQuery("optimize")
	}
	d := q.Dialect
	if strings.TrimSpace(dialectName) != "" {
		var err error
		if d, err = dialect.Resolve(dialectName); err != nil {
			return nil, err
		}
	}
	res := e.optimizer.Optimize(q.Stmt, d, schema)
	return &OptimizeResult{
		Query:   &Query{Stmt: res.Stmt, Dialect: d, SQL: q.SQL},
		Applied: res.Applied,
		Notes:   res.Notes,
		Hints:   res.Hints,
	}, nil
}

// Execute parses sql as one statement and evaluates it against tables.
func (e *Engine) Execute(sql, dialectName string, tables executor.Tables) (*executor.Relation, error) {
	q, err := e.Parse(sql, dialectName)
	if err != nil {
		return nil, err
	}
	return e.ExecuteQuery(q, tables)
}

// ExecuteQuery evaluates a parsed query against tables.
func (e *Engine) ExecuteQuery(q *Query, tables executor.Tables) (*executor.Relation, error) {
	if q == nil || q.Stmt == nil {
		return nil, errNoQuery("execute")
	}
	rel, err := e.executor.Execute(q.Stmt, tables, q.Dialect)
	if err != nil {
		e.logger.Debug("execute failed", "dialect", q.Dialect.Name, "error", err)
		return nil, err
	}
	return rel, nil
}

// Transpile reads every statement of sql in one dialect and writes each in
// another. An empty write dialect keeps the read dialect.
func (e *Engine) Transpile(sql, read, write string, pretty bool) ([]string, error) {
	queries, err := e.ParseScript(sql, read)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(queries))
	for i, q := range queries {
		if out[i], err = Render(q, write, format.Options{Pretty: pretty}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Format pretty-prints every statement of sql and joins them with
// format.ScriptSeparator. It returns the statement count.
func (e *Engine) Format(sql, dialectName string, opts format.Options) (string, int, error) {
	queries, err := e.ParseScript(sql, dialectName)
	if err != nil {
		return "", 0, err
	}
	if len(queries) == 0 {
		return "", 0, diag.New(diag.ParseError, "no SQL statements found")
	}
	opts.Pretty = true
	stmts := make([]core.Stmt, len(queries))
	for i, q := range queries {
		stmts[i] = q.Stmt
	}
	return format.RenderScript(stmts, queries[0].Dialect, opts), len(stmts), nil
}

// Analyze parses one statement and extracts its metadata.
func (e *Engine) Analyze(sql, dialectName string) (*metadata.Result, error) {
	q, err := e.Parse(sql, dialectName)
	if err != nil {
		return nil, err
	}
	return ExtractMetadata(q), nil
}

// Lineage traces the output columns of a parsed SELECT to the table
// columns they come from. schema may be nil.
func (e *Engine) Lineage(q *Query, schema *optimizer.Schema) (*lineage.QueryLineage, error) {
	if q == nil {
		return nil, diag.New(diag.UnsupportedConstruct, "column lineage requires a SELECT statement")
	}
	res, err := lineage.Extract(q.Stmt, q.Dialect, schema)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("traced lineage", "columns", len(res.Columns), "tables", len(res.Sources))
	return res, nil
}

// StatementInfo summarizes one valid statement.
type StatementInfo struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	SQL   string `json:"sql"`
}

// Validation is the outcome of Validate. Error is set exactly when Valid
// is false.
type Validation struct {
	Valid      bool             `json:"valid"`
	Dialect    string           `json:"dialect"`
	Statements []StatementInfo  `json:"statements,omitempty"`
	Error      *diag.Diagnostic `json:"error,omitempty"`
}

// Validate parses sql as a script. A valid script reports each statement
// with its type and pretty form; an invalid one reports the Diagnostic.
func (e *Engine) Validate(sql, dialectName string) *Validation {
	v := &Validation{Dialect: DialectLabel(dialectName)}
	queries, err := e.ParseScript(sql, dialectName)
	if err == nil && len(queries) == 0 {
		err = diag.New(diag.ParseError, "no SQL statements found")
	}
	if err != nil {
		d, ok := diag.As(err)
		if !ok {
			d = diag.New(diag.ParseError, err.Error())
		}
		v.Error = d
		return v
	}

	v.Valid = true
	for i, q := range queries {
		v.Statements = append(v.Statements, StatementInfo{
			Index: i + 1,
			Type:  metadata.Extract(q.Stmt, q.Dialect).QueryType,
			SQL:   format.Render(q.Stmt, q.Dialect, format.Options{Pretty: true}),
		})
	}
	return v
}

// Parse parses a single statement with the default engine.
func Parse(sql, dialectName string) (*Query, error) {
	return defaultEngine.Parse(sql, dialectName)
}

// ParseScript parses a script with the default engine.
func ParseScript(sql, dialectName string) ([]*Query, error) {
	return defaultEngine.ParseScript(sql, dialectName)
}

// Optimize runs the full optimizer pipeline with the default engine.
func Optimize(q *Query, dialectName string, schema *optimizer.Schema) (*OptimizeResult, error) {
	return defaultEngine.Optimize(q, dialectName, schema)
}

// Execute evaluates sql with the default engine.
func Execute(sql, dialectName string, tables executor.Tables) (*executor.Relation, error) {
	return defaultEngine.Execute(sql, dialectName, tables)
}

// Transpile converts sql between dialects with the default engine.
func Transpile(sql, read, write string, pretty bool) ([]string, error) {
	return defaultEngine.Transpile(sql, read, write, pretty)
}

// Format pretty-prints sql with the default engine.
func Format(sql, dialectName string, opts format.Options) (string, int, error) {
	return defaultEngine.Format(sql, dialectName, opts)
}

// Analyze extracts metadata with the default engine.
func Analyze(sql, dialectName string) (*metadata.Result, error) {
	return defaultEngine.Analyze(sql, dialectName)
}

// Lineage traces column lineage with the default engine.
func Lineage(q *Query, schema *optimizer.Schema) (*lineage.QueryLineage, error) {
	return defaultEngine.Lineage(q, schema)
}

// Validate checks sql with the default engine.
func Validate(sql, dialectName string) *Validation {
	return defaultEngine.Validate(sql, dialectName)
}

func errNoQuery(op string) error {
	return diag.New(diag.UnsupportedConstruct, "cannot "+op+" a nil query")
}

// Package optimizer applies rule-based logical rewrites to a parsed
// statement.
//
// Rules run in a fixed order and the whole pipeline repeats until no rule
// reports a change. Every rule is total: when it cannot prove a rewrite is
// safe it leaves the tree alone. The input statement is never modified;
// the pipeline works on a clone.
package optimizer

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
)

// Rule names in pipeline order.
const (
	RuleQualifyColumns     = "qualify_columns"
	RuleFoldConstants      = "fold_constants"
	RuleSimplifyBooleans   = "simplify_booleans"
	RuleSimplifyIdentities = "simplify_identities"
	RulePushdownPredicates = "pushdown_predicates"
	RulePruneProjections   = "prune_projections"
	RuleJoinHints          = "join_hints"
)

const (
	defaultMaxPasses        = 8
	partialOptimizationNote = "partial optimization: no schema provided; skipped "
)

// Rule is one rewrite of the pipeline. Apply rewrites stmt in place and
// reports whether anything changed.
type Rule struct {
	Name        string
	NeedsSchema bool
	Apply       func(ctx *Context, stmt core.Stmt) bool
}

// Context is shared by the rules of one Optimize call.
type Context struct {
	Dialect *dialect.Dialect
	Schema  *Schema
	Logger  *slog.Logger
}

// Rules returns the built-in rules in pipeline order.
func Rules() []Rule {
	return []Rule{
		{Name: RuleQualifyColumns, NeedsSchema: true, Apply: qualifyColumns},
		{Name: RuleFoldConstants, Apply: foldConstants},
		{Name: RuleSimplifyBooleans, Apply: simplifyBooleans},
		{Name: RuleSimplifyIdentities, NeedsSchema: true, Apply: simplifyIdentities},
		{Name: RulePushdownPredicates, Apply: pushdownPredicates},
		{Name: RulePruneProjections, Apply: pruneProjections},
		{Name: RuleJoinHints, Apply: convertCommaJoins},
	}
}

// Strategy is the suggested physical join algorithm.
type Strategy string

// Join strategies.
const (
	StrategyHash       Strategy = "hash"
	StrategyNestedLoop Strategy = "nested_loop"
)

// JoinKey is one equality between the two sides of a join.
type JoinKey struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// JoinHint describes how a join could be executed.
type JoinHint struct {
	Left     string    `json:"left"`
	Right    string    `json:"right"`
	Keys     []JoinKey `json:"keys"`
	Strategy Strategy  `json:"strategy"`
}

// Result is the outcome of Optimize.
type Result struct {
	Stmt    core.Stmt
	Applied []string   // rules that changed the statement, in pipeline order
	Notes   []string   // degradations, such as rules skipped without a schema
	Hints   []JoinHint // join strategies of the final statement
}

// Changed reports whether any rule rewrote the statement.
func (r *Result) Changed() bool { return len(r.Applied) > 0 }

// Partial reports whether rules were skipped.
func (r *Result) Partial() bool { return len(r.Notes) > 0 }

// Config configures an Optimizer.
type Config struct {
	// Rules restricts the pipeline to the named rules. Empty runs all.
	Rules []string
	// MaxPasses bounds pipeline repetitions (default 8).
	MaxPasses int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Optimizer runs a rule pipeline.
type Optimizer struct {
	rules     []Rule
	maxPasses int
	logger    *slog.Logger
}

// New creates an optimizer.
func New(cfg Config) *Optimizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxPasses := cfg.MaxPasses
	if maxPasses <= 0 {
		maxPasses = defaultMaxPasses
	}

	rules := Rules()
	if len(cfg.Rules) > 0 {
		enabled := make(map[string]bool, len(cfg.Rules))
		for _, name := range cfg.Rules {
			enabled[name] = true
		}
		var selected []Rule
		for _, r := range rules {
			if enabled[r.Name] {
				selected = append(selected, r)
			}
		}
		rules = selected
	}

	return &Optimizer{rules: rules, maxPasses: maxPasses, logger: logger}
}

var defaultOptimizer = New(Config{})

// Optimize runs the full pipeline with a default optimizer. schema may be
// nil.
func Optimize(stmt core.Stmt, d *dialect.Dialect, schema *Schema) *Result {
	return defaultOptimizer.Optimize(stmt, d, schema)
}

// Optimize rewrites a clone of stmt. It never fails.
func (o *Optimizer) Optimize(stmt core.Stmt, d *dialect.Dialect, schema *Schema) *Result {
	result := &Result{}
	if stmt == nil {
		return result
	}
	stmt = core.CloneStmt(stmt)
	result.Stmt = stmt
	if d == nil {
		def, ok := dialect.Default()
		if !ok {
			result.Notes = append(result.Notes, "no dialect available; statement left unchanged")
			return result
		}
		d = def
	}

	ctx := &Context{Dialect: d, Schema: schema, Logger: o.logger}

	var rules, skipped []string
	active := make([]Rule, 0, len(o.rules))
	for _, r := range o.rules {
		if r.NeedsSchema && schema == nil {
			skipped = append(skipped, r.Name)
			continue
		}
		active = append(active, r)
		rules = append(rules, r.Name)
	}
	if len(skipped) > 0 {
		result.Notes = append(result.Notes, partialOptimizationNote+strings.Join(skipped, ", "))
	}

	applied := make(map[string]bool)
	for pass := 1; pass <= o.maxPasses; pass++ {
		changed := false
		for _, r := range active {
			if r.Apply(ctx, stmt) {
				changed = true
				applied[r.Name] = true
				o.logger.Debug("optimizer rule applied", "rule", r.Name, "pass", pass)
			}
		}
		if !changed {
			break
		}
		if pass == o.maxPasses {
			o.logger.Debug("optimizer pass limit reached", "passes", pass)
		}
	}

	for _, name := range rules {
		if applied[name] {
			result.Applied = append(result.Applied, name)
		}
	}
	for _, r := range active {
		if r.Name == RuleJoinHints {
			result.Hints = joinHints(stmt)
		}
	}

	o.logger.Debug("optimized statement", "applied", result.Applied, "hints", len(result.Hints))
	return result
}

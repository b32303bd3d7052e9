// Package format renders AST nodes back to SQL text for a target dialect.
//
// Render is lossless for every statement the parser produces: parsing the
// output with the same dialect yields an equivalent tree, and pretty output
// is a fixed point of parse-then-render.
package format

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
)

// Options control the rendered layout.
type Options struct {
	// Pretty renders clause keywords at column 0 and list items indented
	// one per line. Otherwise the statement is written on a single line.
	Pretty bool
	// Identify quotes every identifier.
	Identify bool
	// Normalize folds unquoted identifiers per the target dialect,
	// upper-cases function names and canonicalizes numeric literals.
	Normalize bool
}

// ScriptSeparator joins rendered statements.
const ScriptSeparator = ";\n\n"

// Render renders a statement in the target dialect.
func Render(stmt core.Stmt, d *dialect.Dialect, opts Options) string {
	p := newPrinter(d, opts)
	p.formatComments(stmt.LeadingComments())
	p.formatStmt(stmt)
	return p.String()
}

// RenderScript renders statements joined by ScriptSeparator.
func RenderScript(stmts []core.Stmt, d *dialect.Dialect, opts Options) string {
	out := make([]string, len(stmts))
	for i, stmt := range stmts {
		out[i] = Render(stmt, d, opts)
	}
	return strings.Join(out, ScriptSeparator)
}

// RenderExpr renders a single expression.
func RenderExpr(e core.Expr, d *dialect.Dialect, opts Options) string {
	p := newPrinter(d, opts)
	p.formatExpr(e)
	return p.String()
}

// RenderSelect renders a SELECT statement without its comments.
func RenderSelect(s *core.SelectStmt, d *dialect.Dialect, opts Options) string {
	p := newPrinter(d, opts)
	p.formatSelectStmt(s)
	return p.String()
}

// RenderTableRef renders a FROM item.
func RenderTableRef(ref core.TableRef, d *dialect.Dialect, opts Options) string {
	p := newPrinter(d, opts)
	p.formatTableRef(ref)
	return p.String()
}

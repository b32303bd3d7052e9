// Package sql is the public entry point of the toolkit.
//
// Every operation takes SQL text (or a parsed Query) plus a dialect name
// resolved against the dialect registry. An empty name selects the default
// grammar; an unknown name is an UnknownDialect diagnostic. Failures are
// always *diag.Diagnostic values.
//
// # Features
//
//   - Parse / ParseScript: build dialect-neutral ASTs
//   - ExtractMetadata / Analyze: tables, columns, joins and other facts
//   - Render / Transpile / Format: emit SQL in any registered dialect
//   - Optimize: rule-based rewrites with an optional schema
//   - Execute: evaluate a SELECT against in-memory tables
//   - Validate: per-statement summary or structured error details
//
// # Basic Usage
//
//	q, err := sql.Parse("SELECT id FROM users WHERE active", "postgres")
//	if err != nil {
//	    var d *diag.Diagnostic
//	    if errors.As(err, &d) {
//	        fmt.Println(d.Format())
//	    }
//	    return err
//	}
//	out, _ := sql.Render(q, "mysql", format.Options{Pretty: true})
//
// # Execution
//
//	tables, _ := executor.LoadTables([]byte(`{"t":[{"id":1,"v":10},{"id":2,"v":20}]}`))
//	rel, err := sql.Execute("SELECT SUM(v) AS total FROM t", "", tables)
//
// Package-level functions use a default Engine with a discard logger. Use
// New to attach a logger or user-defined functions.
package sql

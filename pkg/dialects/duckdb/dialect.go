package duckdb

import "github.com/leapstack-labs/polysql/pkg/dialect"

func init() {
	dialect.Register(DuckDB)
}

var duckDBReservedWords = []string{
	"analyse", "analyze", "array", "asymmetric", "both", "check", "collate",
	"column", "constraint", "deferrable", "do", "foreign", "grant", "ilike",
	"initially", "leading", "only", "pivot", "pivot_longer", "pivot_wider",
	"placing", "qualify", "references", "returning", "some", "summarize",
	"symmetric", "trailing", "unique", "unpivot", "variadic",
}

// DuckDB is the DuckDB dialect.
// Builder reads Config flags and auto-wires QUALIFY, ILIKE, :: and [..] lists.
var DuckDB = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	WithReservedWords(duckDBReservedWords...).
	Build()

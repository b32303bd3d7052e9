package bigquery

import "github.com/leapstack-labs/polysql/pkg/dialect"

func init() {
	dialect.Register(BigQuery)
}

var bigQueryReservedWords = []string{
	"any", "array", "assert_rows_modified", "collate", "contains", "cube",
	"define", "enum", "escape", "extract", "following", "grouping", "groups",
	"hash", "if", "ignore", "interval", "lookup", "merge", "new", "no", "nulls",
	"of", "preceding", "proto", "qualify", "range", "recursive", "respect",
	"rollup", "rows", "some", "struct", "tablesample", "to", "treat",
	"unbounded", "within",
}

// BigQuery is the BigQuery dialect.
var BigQuery = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	WithReservedWords(bigQueryReservedWords...).
	Build()

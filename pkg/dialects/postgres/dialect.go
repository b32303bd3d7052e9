package postgres

import "github.com/leapstack-labs/polysql/pkg/dialect"

func init() {
	dialect.Register(Postgres)
}

// Words PostgreSQL reserves beyond the shared list. An identifier spelled
// like one of these is quoted on output.
var postgresReservedWords = []string{
	"analyse", "analyze", "any", "array", "asymmetric", "authorization", "binary",
	"both", "check", "collate", "collation", "column", "concurrently", "constraint",
	"current_catalog", "current_date", "current_role", "current_schema",
	"current_time", "current_timestamp", "current_user", "deferrable", "do",
	"foreign", "freeze", "grant", "ilike", "initially", "isnull", "leading",
	"localtime", "localtimestamp", "notnull", "only", "overlaps", "placing",
	"references", "returning", "session_user", "similar", "some", "symmetric",
	"tablesample", "to", "trailing", "unique", "user", "variadic", "verbose",
}

// Postgres is the PostgreSQL dialect. ILIKE and the :: cast come from
// Config; there is no QUALIFY clause.
var Postgres = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	WithReservedWords(postgresReservedWords...).
	Build()

package snowflake

import "github.com/leapstack-labs/polysql/pkg/dialect"

func init() {
	dialect.Register(Snowflake)
}

var snowflakeReservedWords = []string{
	"account", "alter", "any", "check", "column", "connect", "connection",
	"constraint", "current_date", "current_time", "current_timestamp",
	"current_user", "database", "following", "gscluster", "ilike", "increment",
	"issue", "localtime", "localtimestamp", "minus", "of", "organization",
	"qualify", "regexp", "revoke", "rlike", "row", "rows", "sample", "schema",
	"some", "start", "tablesample", "to", "trigger", "try_cast", "unique",
	"view", "whenever",
}

// Snowflake is the Snowflake dialect.
// Builder reads Config flags and auto-wires QUALIFY, ILIKE, :: and [..] lists.
var Snowflake = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	WithReservedWords(snowflakeReservedWords...).
	Build()

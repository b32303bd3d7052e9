package databricks

import "github.com/leapstack-labs/polysql/pkg/dialect"

func init() {
	dialect.Register(Databricks)
}

var databricksReservedWords = []string{
	"anti", "authorization", "both", "check", "collate", "column", "constraint",
	"current_date", "current_time", "current_timestamp", "current_user",
	"describe", "escape", "foreign", "grant", "ilike", "interval", "leading",
	"minus", "none", "of", "qualify", "references", "revoke", "semi", "some",
	"tablesample", "to", "trailing", "unique", "unknown",
}

// Databricks is the Databricks SQL dialect.
// Builder reads Config flags and auto-wires QUALIFY, ILIKE and ::.
var Databricks = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	WithReservedWords(databricksReservedWords...).
	Build()

package sqlite

import "github.com/leapstack-labs/polysql/pkg/dialect"

func init() {
	dialect.Register(SQLite)
}

var sqliteReservedWords = []string{
	"abort", "action", "add", "after", "alter", "analyze", "attach",
	"autoincrement", "before", "begin", "cascade", "check", "collate", "column",
	"commit", "conflict", "constraint", "database", "deferrable", "deferred",
	"detach", "each", "escape", "exclusive", "explain", "foreign", "glob", "if",
	"ignore", "immediate", "index", "indexed", "initially", "instead", "isnull",
	"key", "match", "no", "notnull", "of", "plan", "pragma", "query", "raise",
	"references", "regexp", "reindex", "release", "rename", "replace",
	"restrict", "rollback", "savepoint", "temp", "temporary", "to",
	"transaction", "trigger", "unique", "vacuum", "view", "virtual",
}

// SQLite is the SQLite dialect.
var SQLite = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	WithReservedWords(sqliteReservedWords...).
	Build()

package mysql

import "github.com/leapstack-labs/polysql/pkg/dialect"

func init() {
	dialect.Register(MySQL)
}

var mysqlReservedWords = []string{
	"accessible", "add", "analyze", "before", "both", "call", "cascade", "change",
	"check", "collate", "column", "condition", "constraint", "continue", "convert",
	"database", "databases", "dec", "declare", "describe", "div", "dual", "each",
	"escaped", "exit", "explain", "fetch", "force", "foreign", "grant", "if",
	"ignore", "index", "infile", "interval", "key", "keys", "kill", "leading",
	"leave", "lines", "load", "lock", "loop", "match", "mod", "modifies",
	"option", "optionally", "outfile", "procedure", "purge", "range", "read",
	"references", "regexp", "release", "rename", "repeat", "replace", "require",
	"restrict", "return", "revoke", "rlike", "schema", "schemas", "separator",
	"show", "spatial", "sql", "ssl", "starting", "straight_join", "terminated",
	"to", "trigger", "undo", "unlock", "unsigned", "usage", "use", "utc_date",
	"values", "varying", "while", "write", "xor", "zerofill",
}

// MySQL is the MySQL dialect.
// Builder reads Config flags and auto-wires:
// - LIMIT offset, count (SupportsLimitComma)
// - || as OR (ConcatOperator false)
var MySQL = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	WithReservedWords(mysqlReservedWords...).
	Build()

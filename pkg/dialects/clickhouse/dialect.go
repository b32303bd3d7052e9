package clickhouse

import "github.com/leapstack-labs/polysql/pkg/dialect"

func init() {
	dialect.Register(ClickHouse)
}

var clickHouseReservedWords = []string{
	"array", "asof", "final", "format", "global", "ilike", "interval", "prewhere",
	"qualify", "sample", "settings", "totals",
}

// ClickHouse is the ClickHouse dialect.
// Builder reads Config flags and auto-wires QUALIFY, ILIKE, :: and [..] lists.
var ClickHouse = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	WithReservedWords(clickHouseReservedWords...).
	Build()

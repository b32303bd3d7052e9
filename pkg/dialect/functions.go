package dialect

import "github.com/leapstack-labs/polysql/pkg/core"

// StandardAggregates are aggregate functions shared by every dialect.
var StandardAggregates = []string{
	"ANY_VALUE", "ARRAY_AGG", "AVG", "BIT_AND", "BIT_OR", "BOOL_AND", "BOOL_OR",
	"CORR", "COUNT", "COUNT_IF", "COVAR_POP", "COVAR_SAMP", "GROUP_CONCAT",
	"LISTAGG", "MAX", "MEDIAN", "MIN", "MODE", "STDDEV", "STDDEV_POP", "STDDEV_SAMP",
	"STRING_AGG", "SUM", "VAR_POP", "VAR_SAMP", "VARIANCE",
}

// StandardWindows are window-only functions shared by every dialect.
var StandardWindows = []string{
	"CUME_DIST", "DENSE_RANK", "FIRST_VALUE", "LAG", "LAST_VALUE", "LEAD",
	"NTH_VALUE", "NTILE", "PERCENT_RANK", "RANK", "ROW_NUMBER",
}

// StandardGenerators are functions that produce values without input columns.
var StandardGenerators = []string{
	"CURRENT_DATE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "LOCALTIME",
	"LOCALTIMESTAMP", "RANDOM", "RAND", "UUID",
}

// NiladicFunctions may be written without parentheses.
var NiladicFunctions = map[string]bool{
	"CURRENT_DATE":      true,
	"CURRENT_TIME":      true,
	"CURRENT_TIMESTAMP": true,
	"CURRENT_USER":      true,
	"LOCALTIME":         true,
	"LOCALTIMESTAMP":    true,
	"SESSION_USER":      true,
}

// StandardReservedWords need quoting as identifiers in every dialect.
var StandardReservedWords = []string{
	"ALL", "AND", "AS", "ASC", "BETWEEN", "BY", "CASE", "CAST", "CREATE", "CROSS",
	"CURRENT", "DEFAULT", "DELETE", "DESC", "DISTINCT", "DROP", "ELSE", "END",
	"EXCEPT", "EXISTS", "FALSE", "FETCH", "FOR", "FROM", "FULL", "GROUP", "HAVING",
	"IN", "INNER", "INSERT", "INTERSECT", "INTO", "IS", "JOIN", "LATERAL", "LEFT",
	"LIKE", "LIMIT", "NATURAL", "NOT", "NULL", "OFFSET", "ON", "OR", "ORDER",
	"OUTER", "OVER", "PARTITION", "PRIMARY", "RIGHT", "SELECT", "SET", "TABLE",
	"THEN", "TRUE", "UNION", "UPDATE", "USING", "VALUES", "WHEN", "WHERE", "WINDOW",
	"WITH",
}

// StandardCommands start statements that every dialect keeps as opaque
// commands. CREATE and DROP of objects other than tables are commands too.
var StandardCommands = []string{
	"ALTER", "BEGIN", "CALL", "COMMENT", "COMMIT", "DESCRIBE", "EXECUTE", "EXPLAIN",
	"GRANT", "MERGE", "RELEASE", "REVOKE", "ROLLBACK", "SAVEPOINT", "SET", "SHOW",
	"START", "TRUNCATE", "USE",
}

// StandardTypeAliases map common type spellings to canonical names.
var StandardTypeAliases = map[string]string{
	"INTEGER":           "INT",
	"INT4":              "INT",
	"SIGNED":            "INT",
	"INT2":              "SMALLINT",
	"INT8":              "BIGINT",
	"INT64":             "BIGINT",
	"LONG":              "BIGINT",
	"INT1":              "TINYINT",
	"FLOAT8":            "DOUBLE",
	"FLOAT64":           "DOUBLE",
	"DOUBLE PRECISION":  "DOUBLE",
	"FLOAT4":            "FLOAT",
	"REAL":              "FLOAT",
	"BOOL":              "BOOLEAN",
	"STRING":            "TEXT",
	"NUMERIC":           "DECIMAL",
	"NUMBER":            "DECIMAL",
	"CHARACTER VARYING": "VARCHAR",
	"CHARACTER":         "CHAR",
	"BYTES":             "BLOB",
	"BYTEA":             "BLOB",
	"BINARY":            "BLOB",
	"DATETIME":          "TIMESTAMP",
}

// StandardFunctionAliases map common function spellings to canonical names.
var StandardFunctionAliases = map[string]string{
	"IFNULL":           "COALESCE",
	"NVL":              "COALESCE",
	"SUBSTR":           "SUBSTRING",
	"UCASE":            "UPPER",
	"LCASE":            "LOWER",
	"CHAR_LENGTH":      "LENGTH",
	"CHARACTER_LENGTH": "LENGTH",
	"LEN":              "LENGTH",
	"NOW":              "CURRENT_TIMESTAMP",
	"GEN_RANDOM_UUID":  "UUID",
	"GENERATE_UUID":    "UUID",
	"UUID_STRING":      "UUID",
	"IFF":              "IF",
	"IIF":              "IF",
	"LIST":             "ARRAY_AGG",
	"STDDEV_SAMP":      "STDDEV",
}

// NeedsQuote reports whether an identifier must be quoted when rendered in
// this dialect: it is reserved, not a plain identifier, or was quoted in the
// source with a spelling that unquoted folding would change.
func (d *Dialect) NeedsQuote(id core.Ident) bool {
	if !IsPlainIdentifier(id.Name) || d.IsReservedWord(id.Name) {
		return true
	}
	return id.Quoted && d.FoldIdentifier(id.Name) != id.Name
}

// Package clickhouse provides the ClickHouse dialect definition.
package clickhouse

import "github.com/leapstack-labs/polysql/pkg/dialect"

// Config is the ClickHouse dialect configuration.
var Config = &dialect.Config{
	Name:          "clickhouse",
	DefaultSchema: "default",
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormCaseSensitive,
		Alternates:    []dialect.QuotePair{{Open: "`", Close: "`"}},
	},
	Strings: dialect.StringConfig{Quotes: "'", BackslashEscapes: true},

	SupportsQualify:      true,
	SupportsIlike:        true,
	SupportsCastOperator: true,
	ConcatOperator:       true,
	Lists:                dialect.ListBracket,
	IfFunction:           "IF",

	NullOrdering: dialect.NullsAreLast,

	Commands: []string{
		"ATTACH", "CHECK", "DETACH", "EXCHANGE", "KILL", "OPTIMIZE", "RENAME", "SYSTEM",
		"WATCH",
	},

	Aggregates: []string{
		"ANY", "ANYLAST", "ARGMAX", "ARGMIN", "GROUPARRAY", "GROUPUNIQARRAY",
		"QUANTILE", "QUANTILES", "SUMIF", "COUNTIF", "UNIQ", "UNIQEXACT", "TOPK",
	},
	Generators: []string{"NOW64", "TODAY", "YESTERDAY", "RAND64", "GENERATEUUIDV4"},

	TypeAliases: map[string]string{
		"Int8":     "TINYINT",
		"Int16":    "SMALLINT",
		"Int32":    "INT",
		"Int64":    "BIGINT",
		"Float32":  "FLOAT",
		"Float64":  "DOUBLE",
		"DateTime": "TIMESTAMP",
	},
	TypeNames: map[string]string{
		"TEXT":      "String",
		"VARCHAR":   "String",
		"CHAR":      "String",
		"TINYINT":   "Int8",
		"SMALLINT":  "Int16",
		"INT":       "Int32",
		"BIGINT":    "Int64",
		"FLOAT":     "Float32",
		"DOUBLE":    "Float64",
		"BOOLEAN":   "Bool",
		"DECIMAL":   "Decimal",
		"DATE":      "Date",
		"TIMESTAMP": "DateTime",
	},
	FunctionAliases: map[string]string{
		"GENERATEUUIDV4": "UUID",
		"GROUPARRAY":     "ARRAY_AGG",
		"COUNTIF":        "COUNT_IF",
	},
	FunctionNames: map[string]string{
		"UUID":      "generateUUIDv4",
		"ARRAY_AGG": "groupArray",
		"COUNT_IF":  "countIf",
	},
}

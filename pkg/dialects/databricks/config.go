// Package databricks provides the Databricks SQL dialect definition.
package databricks

import "github.com/leapstack-labs/polysql/pkg/dialect"

// Config is the Databricks SQL dialect configuration.
// The Builder reads feature flags and auto-wires standard capabilities.
var Config = &dialect.Config{
	Name:          "databricks",
	DefaultSchema: "default",
	Identifiers: dialect.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "``",
		Normalization: dialect.NormCaseInsensitive,
	},
	Strings: dialect.StringConfig{Quotes: `'"`, BackslashEscapes: true},

	// Framework Features (auto-wired by Builder)
	SupportsQualify:      true,
	SupportsIlike:        true,
	SupportsCastOperator: true,
	ConcatOperator:       true,
	Lists:                dialect.ListFunction,
	ListFunction:         "ARRAY",
	IfFunction:           "IF",

	NullOrdering: dialect.NullsAreSmall,
	SafeDivision: true,

	Commands: []string{
		"ANALYZE", "CACHE", "COPY", "FSCK", "MSCK", "OPTIMIZE", "REFRESH", "RESTORE",
		"UNCACHE", "VACUUM",
	},

	Aggregates: []string{
		"APPROX_COUNT_DISTINCT", "APPROX_PERCENTILE", "COLLECT_LIST", "COLLECT_SET",
		"COUNT_MIN_SKETCH", "KURTOSIS", "MAX_BY", "MIN_BY", "PERCENTILE", "SKEWNESS",
	},
	Generators: []string{"CURRENT_CATALOG", "CURRENT_SCHEMA", "RAND", "RANDN"},

	FunctionAliases: map[string]string{
		"COLLECT_LIST": "ARRAY_AGG",
	},
	FunctionNames: map[string]string{
		"ARRAY_AGG": "COLLECT_LIST",
	},
	TypeNames: map[string]string{
		"TEXT":    "STRING",
		"VARCHAR": "STRING",
		"BLOB":    "BINARY",
	},
	NumericSuffixes: map[string]string{
		"L":  "BIGINT",
		"S":  "SMALLINT",
		"Y":  "TINYINT",
		"D":  "DOUBLE",
		"F":  "FLOAT",
		"BD": "DECIMAL",
	},
}

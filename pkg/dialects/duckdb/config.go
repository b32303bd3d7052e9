// Package duckdb provides the DuckDB SQL dialect definition.
package duckdb

import "github.com/leapstack-labs/polysql/pkg/dialect"

// Config is the DuckDB dialect configuration.
// The Builder reads feature flags and auto-wires standard capabilities.
var Config = &dialect.Config{
	Name:          "duckdb",
	DefaultSchema: "main",
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormCaseInsensitive,
	},
	Strings: dialect.StringConfig{Quotes: "'"},

	// Framework Features (auto-wired by Builder)
	SupportsQualify:      true,
	SupportsIlike:        true,
	SupportsCastOperator: true,
	ConcatOperator:       true,
	Lists:                dialect.ListBracket,
	IfFunction:           "IF",

	NullOrdering: dialect.NullsAreLast,

	Commands: []string{
		"ANALYZE", "ATTACH", "CHECKPOINT", "COPY", "DEALLOCATE", "DETACH", "EXPORT",
		"IMPORT", "INSTALL", "LOAD", "PRAGMA", "PREPARE", "SUMMARIZE", "VACUUM",
	},

	Aggregates: duckDBAggregates,
	Generators: duckDBGenerators,
}

var duckDBAggregates = []string{
	"ARG_MAX", "ARG_MIN", "ARBITRARY", "APPROX_COUNT_DISTINCT", "APPROX_QUANTILE",
	"BITSTRING_AGG", "FAVG", "FIRST", "FSUM", "HISTOGRAM", "KURTOSIS", "LAST",
	"MAD", "MAX_BY", "MIN_BY", "PRODUCT", "QUANTILE_CONT", "QUANTILE_DISC",
	"REGR_SLOPE", "SKEWNESS", "STRING_AGG", "SUMKAHAN",
}

var duckDBGenerators = []string{
	"GEN_RANDOM_UUID", "GET_CURRENT_TIMESTAMP", "TODAY", "TRANSACTION_TIMESTAMP",
}

// Package snowflake provides the Snowflake SQL dialect definition.
package snowflake

import "github.com/leapstack-labs/polysql/pkg/dialect"

// Config is the Snowflake dialect configuration.
// The Builder reads feature flags and auto-wires standard capabilities.
var Config = &dialect.Config{
	Name:          "snowflake",
	DefaultSchema: "PUBLIC",
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormUppercase, // Snowflake normalizes unquoted to uppercase
	},
	Strings: dialect.StringConfig{Quotes: "'", BackslashEscapes: true},

	// Framework Features (auto-wired by Builder)
	SupportsQualify:      true,
	SupportsIlike:        true,
	SupportsCastOperator: true,
	ConcatOperator:       true,
	Lists:                dialect.ListBracket,
	IfFunction:           "IFF",

	NullOrdering: dialect.NullsAreLarge,

	Commands: []string{"COPY", "GET", "LIST", "PUT", "REMOVE", "UNDROP", "UNSET"},

	Aggregates: []string{
		"ARRAY_UNIQUE_AGG", "APPROX_COUNT_DISTINCT", "BITAND_AGG", "BITOR_AGG",
		"HASH_AGG", "KURTOSIS", "MAX_BY", "MIN_BY", "OBJECT_AGG", "SKEW",
	},
	Generators: []string{"SYSDATE", "SYSTIMESTAMP", "SEQ4", "SEQ8"},

	TypeNames: map[string]string{
		"DECIMAL": "NUMBER",
		"BLOB":    "BINARY",
	},
	FunctionNames: map[string]string{
		"UUID": "UUID_STRING",
	},
}

// Package postgres provides the PostgreSQL SQL dialect definition.
package postgres

import "github.com/leapstack-labs/polysql/pkg/dialect"

// Config is the PostgreSQL dialect configuration.
// The Builder reads feature flags and auto-wires standard capabilities.
var Config = &dialect.Config{
	Name:          "postgres",
	DefaultSchema: "public",
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormLowercase, // Postgres normalizes unquoted to lowercase
	},
	Strings: dialect.StringConfig{Quotes: "'"},

	// Framework Features (auto-wired by Builder)
	SupportsIlike:        true,
	SupportsCastOperator: true,
	ConcatOperator:       true,
	Lists:                dialect.ListArrayKeyword,
	// PostgreSQL does NOT support QUALIFY or an IF() function.

	NullOrdering:    dialect.NullsAreLarge,
	IntegerDivision: true,

	Commands: []string{
		"ANALYZE", "CLUSTER", "COPY", "DEALLOCATE", "DECLARE", "DISCARD", "LISTEN",
		"LOCK", "NOTIFY", "PREPARE", "REFRESH", "REINDEX", "RESET", "UNLISTEN", "VACUUM",
	},

	Aggregates: []string{
		"JSONB_AGG", "JSONB_OBJECT_AGG", "JSON_AGG", "JSON_OBJECT_AGG", "EVERY",
		"BIT_XOR", "PERCENTILE_CONT", "PERCENTILE_DISC", "XMLAGG",
	},
	Generators: []string{
		"STATEMENT_TIMESTAMP", "TRANSACTION_TIMESTAMP", "CLOCK_TIMESTAMP",
		"PI", "CURRENT_SCHEMA", "CURRENT_DATABASE", "CURRENT_USER", "VERSION",
	},

	TypeAliases: map[string]string{
		"SERIAL":    "INT",
		"BIGSERIAL": "BIGINT",
	},
	TypeNames: map[string]string{
		"DOUBLE":  "DOUBLE PRECISION",
		"BLOB":    "BYTEA",
		"FLOAT":   "REAL",
		"TINYINT": "SMALLINT",
	},
	FunctionNames: map[string]string{
		"UUID": "GEN_RANDOM_UUID",
	},
}

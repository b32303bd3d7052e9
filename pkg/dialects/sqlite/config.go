// Package sqlite provides the SQLite dialect definition.
package sqlite

import "github.com/leapstack-labs/polysql/pkg/dialect"

// Config is the SQLite dialect configuration.
var Config = &dialect.Config{
	Name:          "sqlite",
	DefaultSchema: "main",
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormCaseInsensitive,
		Alternates: []dialect.QuotePair{
			{Open: "`", Close: "`"},
			{Open: "[", Close: "]"},
		},
	},
	Strings: dialect.StringConfig{Quotes: "'"},

	ConcatOperator:     true,
	SupportsLimitComma: true,
	Lists:              dialect.ListFunction,
	ListFunction:       "JSON_ARRAY",
	IfFunction:         "IIF",

	NullOrdering:    dialect.NullsAreSmall,
	IntegerDivision: true,
	SafeDivision:    true,

	Commands: []string{"ANALYZE", "ATTACH", "DETACH", "PRAGMA", "REINDEX", "VACUUM"},

	Aggregates: []string{"TOTAL", "JSON_GROUP_ARRAY", "JSON_GROUP_OBJECT"},
	Generators: []string{"RANDOMBLOB", "CHANGES", "LAST_INSERT_ROWID"},

	FunctionNames: map[string]string{
		"ARRAY_AGG": "JSON_GROUP_ARRAY",
	},
	FunctionAliases: map[string]string{
		"JSON_GROUP_ARRAY": "ARRAY_AGG",
	},
	TypeNames: map[string]string{
		"DOUBLE": "REAL",
		"FLOAT":  "REAL",
	},
}

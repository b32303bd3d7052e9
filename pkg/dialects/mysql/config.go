// Package mysql provides the MySQL dialect definition.
package mysql

import "github.com/leapstack-labs/polysql/pkg/dialect"

// Config is the MySQL dialect configuration.
var Config = &dialect.Config{
	Name: "mysql",
	Identifiers: dialect.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "``",
		Normalization: dialect.NormCaseSensitive,
	},
	Strings: dialect.StringConfig{Quotes: `'"`, BackslashEscapes: true},

	// || is logical OR unless PIPES_AS_CONCAT is set; concatenation renders as CONCAT().
	ConcatOperator:     false,
	SupportsLimitComma: true,
	HashComments:       true,
	Lists:              dialect.ListFunction,
	ListFunction:       "JSON_ARRAY",
	IfFunction:         "IF",

	NullOrdering: dialect.NullsAreSmall,
	SafeDivision: true,

	Commands: []string{
		"ANALYZE", "DEALLOCATE", "DO", "FLUSH", "HANDLER", "KILL", "LOCK", "OPTIMIZE",
		"PREPARE", "RENAME", "REPAIR", "UNLOCK",
	},

	Aggregates: []string{"JSON_ARRAYAGG", "JSON_OBJECTAGG", "BIT_XOR", "STD"},
	Generators: []string{"SYSDATE", "UTC_TIMESTAMP", "UTC_DATE", "CONNECTION_ID"},

	FunctionNames: map[string]string{
		"LENGTH":    "CHAR_LENGTH",
		"ARRAY_AGG": "JSON_ARRAYAGG",
	},
	FunctionAliases: map[string]string{
		"JSON_ARRAYAGG": "ARRAY_AGG",
	},
}

// Package bigquery provides the Google BigQuery dialect definition.
package bigquery

import "github.com/leapstack-labs/polysql/pkg/dialect"

// Config is the BigQuery dialect configuration.
var Config = &dialect.Config{
	Name: "bigquery",
	Identifiers: dialect.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "\\`",
		Normalization: dialect.NormCaseInsensitive,
	},
	Strings: dialect.StringConfig{Quotes: `'"`, BackslashEscapes: true},

	SupportsQualify: true,
	ConcatOperator:  true,
	Lists:           dialect.ListBracket,
	IfFunction:      "IF",

	NullOrdering: dialect.NullsAreSmall,

	Commands: []string{"ASSERT", "DECLARE", "EXPORT", "LOAD"},

	Aggregates: []string{
		"APPROX_COUNT_DISTINCT", "APPROX_QUANTILES", "APPROX_TOP_COUNT", "ARRAY_CONCAT_AGG",
		"COUNTIF", "LOGICAL_AND", "LOGICAL_OR",
	},
	Generators: []string{"CURRENT_DATETIME", "SESSION_USER"},

	FunctionAliases: map[string]string{
		"COUNTIF": "COUNT_IF",
	},
	TypeNames: map[string]string{
		"TEXT":     "STRING",
		"VARCHAR":  "STRING",
		"CHAR":     "STRING",
		"INT":      "INT64",
		"BIGINT":   "INT64",
		"SMALLINT": "INT64",
		"TINYINT":  "INT64",
		"DOUBLE":   "FLOAT64",
		"FLOAT":    "FLOAT64",
		"BOOLEAN":  "BOOL",
		"DECIMAL":  "NUMERIC",
		"BLOB":     "BYTES",
	},
	FunctionNames: map[string]string{
		"UUID":     "GENERATE_UUID",
		"COUNT_IF": "COUNTIF",
	},
}

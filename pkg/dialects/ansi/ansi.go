// Package ansi provides the base ANSI SQL dialect with standard clause sequences,
// handlers, and operator precedence.
//
// ANSI is also the dialect used when none is named, so it accepts the common
// extensions other dialects add (ILIKE, ::, QUALIFY).
package ansi

import (
	"github.com/leapstack-labs/polysql/pkg/dialect"
)

func init() {
	dialect.Register(ANSI)
	dialect.SetDefault(ANSI.Name)
}

// Config is the ANSI dialect configuration.
var Config = &dialect.Config{
	Name: "ansi",
	Identifiers: dialect.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: dialect.NormLowercase,
	},
	Strings: dialect.StringConfig{Quotes: "'"},

	SupportsQualify:      true,
	SupportsIlike:        true,
	SupportsCastOperator: true,
	ConcatOperator:       true,
	Lists:                dialect.ListArrayKeyword,

	NullOrdering: dialect.NullsAreSmall,
}

// ANSI is the base ANSI SQL dialect.
var ANSI = dialect.New(Config).
	Clauses(dialect.StandardSelectClauses...).
	Operators(dialect.ANSIOperators).
	JoinTypes(dialect.ANSIJoinTypes).
	Build()

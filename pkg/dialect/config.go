package dialect

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizationStrategy defines how unquoted identifiers are folded.
type NormalizationStrategy int

// Normalization strategies.
const (
	NormLowercase       NormalizationStrategy = iota // folded to lower case (Postgres)
	NormUppercase                                    // folded to upper case (Snowflake)
	NormCaseInsensitive                              // compared case-insensitively, spelling kept (DuckDB, BigQuery)
	NormCaseSensitive                                // used verbatim (MySQL, ClickHouse)
)

// String returns the strategy name.
func (n NormalizationStrategy) String() string {
	switch n {
	case NormLowercase:
		return "lowercase"
	case NormUppercase:
		return "uppercase"
	case NormCaseInsensitive:
		return "case_insensitive"
	default:
		return "case_sensitive"
	}
}

// QuotePair is an alternative identifier delimiter accepted by the lexer.
type QuotePair struct {
	Open, Close string
}

// IdentifierConfig holds identifier quoting and normalization rules.
type IdentifierConfig struct {
	Quote         string                // Opening quote character
	QuoteEnd      string                // Closing quote character
	Escape        string                // Escape sequence for a closing quote inside a name
	Normalization NormalizationStrategy // How unquoted names are folded
	Alternates    []QuotePair           // Extra delimiters accepted when lexing
}

// StringConfig holds string literal lexing rules.
type StringConfig struct {
	Quotes           string // quote characters that open a string literal
	BackslashEscapes bool   // \n, \t, \' ... are escapes
}

// ListStyle selects how list literals are written.
type ListStyle int

// List literal styles.
const (
	ListArrayKeyword ListStyle = iota // ARRAY[1, 2]
	ListBracket                       // [1, 2]
	ListFunction                      // ARRAY(1, 2) / JSON_ARRAY(1, 2)
)

// NullOrdering is the position of NULLs when ORDER BY gives none.
type NullOrdering int

// Null orderings.
const (
	NullsAreSmall NullOrdering = iota // first ascending, last descending
	NullsAreLarge                     // last ascending, first descending
	NullsAreLast                      // last in both directions
)

// String returns the ordering name.
func (n NullOrdering) String() string {
	switch n {
	case NullsAreLarge:
		return "nulls_are_large"
	case NullsAreLast:
		return "nulls_are_last"
	default:
		return "nulls_are_small"
	}
}

// Config is pure dialect data. The Builder reads its feature flags and
// auto-wires the matching grammar.
type Config struct {
	Name          string
	DefaultSchema string // schema assumed for unqualified tables ("main", "public")
	Identifiers   IdentifierConfig
	Strings       StringConfig

	// Framework Features (auto-wired by Builder)
	SupportsQualify      bool // QUALIFY clause
	SupportsIlike        bool // ILIKE operator
	SupportsCastOperator bool // x::type
	SupportsLimitComma   bool // LIMIT offset, count
	ConcatOperator       bool // || concatenates; false makes it logical OR
	HashComments         bool // # starts a line comment

	Lists        ListStyle
	ListFunction string // function used for ListFunction style
	IfFunction   string // spelling of IF(cond, a, b); "" renders CASE

	// Evaluation semantics
	NullOrdering    NullOrdering
	IntegerDivision bool // int / int truncates
	SafeDivision    bool // division by zero yields NULL

	// Function classifications
	Aggregates    []string
	Generators    []string
	Windows       []string
	ReservedWords []string

	// Leading words of statements kept as opaque commands (SHOW, VACUUM).
	// Any other unknown leading word is a parse error.
	Commands []string

	// Name mappings (keys are case-insensitive)
	TypeAliases     map[string]string // dialect spelling -> canonical
	TypeNames       map[string]string // canonical -> dialect spelling
	FunctionAliases map[string]string // dialect name -> canonical
	FunctionNames   map[string]string // canonical -> dialect name
	NumericSuffixes map[string]string // literal suffix -> canonical type
}

// NormalizeName folds an identifier according to the dialect's rules.
// Case-insensitive dialects fold to lower case for comparison.
func (c *Config) NormalizeName(name string) string {
	switch c.Identifiers.Normalization {
	case NormUppercase:
		return cases.Upper(language.Und).String(name)
	case NormLowercase, NormCaseInsensitive:
		return cases.Lower(language.Und).String(name)
	default:
		return name
	}
}

// FoldIdentifier returns the spelling an unquoted identifier resolves to.
// Unlike NormalizeName, case-insensitive dialects keep the spelling.
func (c *Config) FoldIdentifier(name string) string {
	switch c.Identifiers.Normalization {
	case NormUppercase:
		return cases.Upper(language.Und).String(name)
	case NormLowercase:
		return cases.Lower(language.Und).String(name)
	default:
		return name
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (c *Config) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, c.Identifiers.QuoteEnd, c.Identifiers.Escape)
	return c.Identifiers.Quote + escaped + c.Identifiers.QuoteEnd
}

// NullsFirst reports where NULLs sort when ORDER BY does not say.
func (c *Config) NullsFirst(desc bool) bool {
	switch c.NullOrdering {
	case NullsAreLarge:
		return desc
	case NullsAreLast:
		return false
	default:
		return !desc
	}
}

// IsPlainIdentifier reports whether s can be written without quotes:
// a letter or underscore followed by letters, digits, underscores or $.
func IsPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '$'):
		default:
			return false
		}
	}
	return true
}

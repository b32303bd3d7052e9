// Package token defines the token types for SQL parsing.
//
// Core tokens are defined as constants (IDs 0-999) for switch performance.
// Dialect-specific keywords (QUALIFY, ILIKE, ...) are registered dynamically
// via Register() while dialect packages initialize.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

//nolint:revive // token names are intentionally ALL_CAPS for SQL token conventions
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier, possibly quoted
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'
	PARAM  // ?, $1, :name

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	EQ        // =
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	DOT       // .
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	SEMICOLON // ;
	DCOLON    // :: (registered as a symbol by dialects that support it)

	// Keywords (alphabetical)
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	CREATE
	CROSS
	CURRENT
	DEFAULT
	DELETE
	DESC
	DISTINCT
	DROP
	ELSE
	END
	EXCEPT
	EXISTS
	FALSE
	FILTER
	FIRST
	FOLLOWING
	FROM
	FULL
	GROUP
	GROUPS
	HAVING
	IF
	IN
	INNER
	INSERT
	INTERSECT
	INTO
	IS
	JOIN
	KEY
	LAST
	LATERAL
	LEFT
	LIKE
	LIMIT
	NATURAL
	NOT
	NULL
	NULLS
	OFFSET
	ON
	OR
	ORDER
	OUTER
	OVER
	PARTITION
	PRECEDING
	PRIMARY
	RANGE
	RECURSIVE
	REPLACE
	RIGHT
	ROW
	ROWS
	SELECT
	SET
	TABLE
	TEMP
	TEMPORARY
	THEN
	TRUE
	UNBOUNDED
	UNION
	UPDATE
	USING
	VALUES
	WHEN
	WHERE
	WINDOW
	WITH

	// Sentinel - dynamic tokens start after this
	maxBuiltin TokenType = 999
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := getDynamicName(t); ok {
		return name
	}
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps builtin token types to their string representations.
var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",
	PARAM:  "PARAM",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "<>",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	DOT:       ".",
	COMMA:     ",",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	SEMICOLON: ";",
	DCOLON:    "::",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{}

func init() {
	for t := ALL; t <= WITH; t++ {
		name := keywordNames[t-ALL]
		tokenNames[t] = name
		keywords[lower(name)] = t
	}
}

// keywordNames lists keyword spellings in declaration order (ALL..WITH).
var keywordNames = [...]string{
	"ALL", "AND", "AS", "ASC", "BETWEEN", "BY", "CASE", "CAST", "CREATE", "CROSS",
	"CURRENT", "DEFAULT", "DELETE", "DESC", "DISTINCT", "DROP", "ELSE", "END", "EXCEPT",
	"EXISTS", "FALSE", "FILTER", "FIRST", "FOLLOWING", "FROM", "FULL", "GROUP", "GROUPS",
	"HAVING", "IF", "IN", "INNER", "INSERT", "INTERSECT", "INTO", "IS", "JOIN", "KEY",
	"LAST", "LATERAL", "LEFT", "LIKE", "LIMIT", "NATURAL", "NOT", "NULL", "NULLS",
	"OFFSET", "ON", "OR", "ORDER", "OUTER", "OVER", "PARTITION", "PRECEDING", "PRIMARY",
	"RANGE", "RECURSIVE", "REPLACE", "RIGHT", "ROW", "ROWS", "SELECT", "SET", "TABLE",
	"TEMP", "TEMPORARY", "THEN", "TRUE", "UNBOUNDED", "UNION", "UPDATE", "USING",
	"VALUES", "WHEN", "WHERE", "WINDOW", "WITH",
}

// lower is an ASCII-only lowercase used for keyword tables.
func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a builtin keyword, the keyword token type is returned.
// Otherwise, IDENT is returned. Dialect keywords are resolved by the dialect.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword (builtin or dynamic).
func IsKeyword(t TokenType) bool {
	return (t >= ALL && t <= WITH) || IsDynamic(t)
}

// softKeywords may also be used as plain identifiers (column and alias names).
var softKeywords = map[TokenType]bool{
	FILTER:    true,
	FIRST:     true,
	LAST:      true,
	FOLLOWING: true,
	PRECEDING: true,
	UNBOUNDED: true,
	GROUPS:    true,
	KEY:       true,
	NULLS:     true,
	RANGE:     true,
	ROW:       true,
	ROWS:      true,
	TEMP:      true,
	TEMPORARY: true,
	REPLACE:   true,
	IF:        true,
	RECURSIVE: true,
}

// IsSoftKeyword returns true if the keyword may be used as an identifier.
func IsSoftKeyword(t TokenType) bool {
	return softKeywords[t]
}

// IsOperator returns true if the token type is an operator or punctuation.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= DCOLON
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string // unescaped text for strings and quoted identifiers
	Pos     Position
	End     Position // position immediately after the token
	Quoted  bool     // IDENT was delimited by quote characters
}

// Span returns the source range covered by the token.
func (t Token) Span() Span {
	return Span{Start: t.Pos, End: t.End}
}

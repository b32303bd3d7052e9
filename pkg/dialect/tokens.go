package dialect

import "github.com/leapstack-labs/polysql/pkg/token"

// Keywords shared by several dialects. They are dynamic so that dialects
// without them lex the words as identifiers.
var (
	TokenQualify = token.Register("QUALIFY")
	TokenIlike   = token.Register("ILIKE")
)

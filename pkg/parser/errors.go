package parser

import (
	"fmt"

	"github.com/leapstack-labs/polysql/pkg/token"
)

// Common error messages
const (
	ErrUnexpectedToken   = "unexpected token %s, expected %s"
	ErrUnsupportedClause = "%s is not supported in %s dialect"
	ErrNoClauseHandler   = "no definition for clause %s in dialect %s"
	ErrTooDeep           = "statement nested too deeply"
	ErrDanglingOn        = "ON without a join to attach to"
	ErrTrailingInput     = "unexpected token %s after end of statement"
)

// maxDepth bounds expression and subquery nesting.
const maxDepth = 256

// describe returns a token description for error messages.
func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.NUMBER, token.PARAM:
		return fmt.Sprintf("%q", tok.Literal)
	case token.STRING:
		return fmt.Sprintf("string '%s'", tok.Literal)
	case token.ILLEGAL:
		return tok.Literal
	default:
		return tok.Type.String()
	}
}

// Package parser provides dialect-aware SQL tokenizing and parsing.
//
// # Usage
//
//	d, err := dialect.Resolve("duckdb")
//	stmt, err := parser.Parse("SELECT a, b FROM t", d)
//
// Parse reads exactly one statement; ParseScript reads a semicolon separated
// script. Failures are *diag.Diagnostic values of kind LexError or
// ParseError carrying the position and source context.
//
// # Grammar Overview
//
// The parser is recursive descent with Pratt precedence climbing for
// expressions. Clause order, operator precedence, keywords and join types
// come from the dialect:
//
//	statement     → select_stmt | insert | update | delete | create | drop | command
//	select_stmt   → [WITH cte_list] select_body [ORDER BY ...] [LIMIT ...]
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL|DISTINCT] select_body]
//	select_core   → SELECT [DISTINCT] select_list [FROM from_clause]
//	                [clauses in dialect order]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// Parser parses SQL into an AST.
type Parser struct {
	src     string
	lexer   *Lexer
	token   token.Token // current token
	peek    token.Token // lookahead token
	peek2   token.Token // second lookahead token
	prevEnd token.Position
	errors  []*diag.Diagnostic
	dialect *dialect.Dialect
	depth   int

	comments int // comments already attached to a statement
}

var _ spi.ParserOps = (*Parser)(nil)

// NewParser creates a new parser for the given SQL input with dialect support.
func NewParser(sql string, d *dialect.Dialect) *Parser {
	p := &Parser{
		src:     sql,
		lexer:   NewLexer(sql, d),
		dialect: d,
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single statement. Trailing semicolons are allowed; any
// other trailing input is a ParseError.
func Parse(sql string, d *dialect.Dialect) (core.Stmt, error) {
	p := NewParser(sql, d)
	stmt := p.parseStatement()
	if len(p.errors) == 0 {
		p.skipSemicolons()
		if !p.check(token.EOF) {
			p.addError(fmt.Sprintf(ErrTrailingInput, describe(p.token)))
		}
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// ParseScript parses a semicolon separated sequence of statements. A failure
// anywhere discards every statement.
func ParseScript(sql string, d *dialect.Dialect) ([]core.Stmt, error) {
	p := NewParser(sql, d)
	var stmts []core.Stmt
	for {
		p.skipSemicolons()
		if p.check(token.EOF) {
			break
		}
		stmt := p.parseStatement()
		if len(p.errors) > 0 {
			break
		}
		stmts = append(stmts, stmt)
		if !p.check(token.EOF) && !p.check(token.SEMICOLON) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "; or end of input"))
			break
		}
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	return stmts, nil
}

// err returns the earliest failure: a lexical error wins over parse errors
// that occur at or after its position.
func (p *Parser) err() error {
	lexErr := p.lexer.Err()
	if len(p.errors) == 0 {
		if lexErr != nil {
			return lexErr
		}
		return nil
	}
	first := p.errors[0]
	if lexErr != nil && lexErr.Offset <= first.Offset {
		return lexErr
	}
	return first
}

// Dialect returns the parser's dialect.
func (p *Parser) Dialect() *dialect.Dialect {
	return p.dialect
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.token.End.IsValid() {
		p.prevEnd = p.token.End
	}
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// skipSemicolons consumes empty statements.
func (p *Parser) skipSemicolons() {
	for p.check(token.SEMICOLON) {
		p.nextToken()
	}
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t token.TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), t))
	return false
}

// failed reports whether a parse error has been recorded.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// addError records a parse error at the current token.
func (p *Parser) addError(msg string) {
	p.errorAt(p.token.Span(), msg)
}

func (p *Parser) errorAt(span token.Span, msg string) {
	if p.token.Type == token.ILLEGAL {
		// The lexer already reported this position.
		msg = p.token.Literal
	}
	p.errors = append(p.errors, diag.At(diag.ParseError, p.src, span, msg))
}

// unexpected records the standard "unexpected token" error.
func (p *Parser) unexpected(expected string) {
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), expected))
}

// span returns the span from start to the end of the last consumed token.
func (p *Parser) span(start token.Position) token.Span {
	return token.Span{Start: start, End: p.prevEnd}
}

type spanned interface {
	SetSpan(token.Span)
}

// finish sets a node's span from start to the last consumed token.
func (p *Parser) finish(n spanned, start token.Position) {
	n.SetSpan(p.span(start))
}

// enter guards recursion depth; callers defer leave when it returns true.
func (p *Parser) enter() bool {
	p.depth++
	if p.depth > maxDepth {
		if !p.failed() {
			p.addError(ErrTooDeep)
		}
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}

// takeComments returns the comments that end before offset and have not been
// attached to an earlier statement.
func (p *Parser) takeComments(offset int) []*token.Comment {
	var out []*token.Comment
	all := p.lexer.Comments
	for p.comments < len(all) && all[p.comments].Span.End.Offset <= offset {
		out = append(out, all[p.comments])
		p.comments++
	}
	return out
}

// ---------- Keyword Helpers ----------

// isName returns true if tok can be used as an identifier.
func (p *Parser) isName(tok token.Token) bool {
	if tok.Type == token.IDENT {
		return !p.isReservedIdent(tok)
	}
	return token.IsSoftKeyword(tok.Type)
}

// isReservedIdent reports whether an unquoted IDENT spells a clause keyword
// of some registered dialect (QUALIFY in Postgres). Such words are not taken
// as implicit aliases so the clause gets a precise error.
func (p *Parser) isReservedIdent(tok token.Token) bool {
	if tok.Quoted {
		return false
	}
	if t, ok := token.LookupDynamicKeyword(tok.Literal); ok {
		_, known := dialect.IsKnownClause(t)
		return known
	}
	return false
}

// isAliasCandidate reports whether tok may start an implicit alias.
func (p *Parser) isAliasCandidate(tok token.Token) bool {
	if tok.Type == token.STRING {
		return false
	}
	if !p.isName(tok) {
		return false
	}
	// Soft keywords that begin a following construct are not aliases.
	switch tok.Type {
	case token.FILTER, token.ROWS, token.RANGE, token.GROUPS:
		return false
	}
	return true
}

// ident converts the current name token to an Ident and consumes it.
func (p *Parser) ident() core.Ident {
	id := core.Ident{Name: p.token.Literal, Quoted: p.token.Quoted}
	p.nextToken()
	return id
}

// expectIdent consumes a name token or records an error.
func (p *Parser) expectIdent(what string) (core.Ident, bool) {
	if !p.isName(p.token) {
		p.unexpected(what)
		return core.Ident{}, false
	}
	return p.ident(), true
}

// ---------- spi.ParserOps Implementation ----------
// These methods implement the spi.ParserOps interface for dialect clause handlers.

// Token returns the current token (implements spi.ParserOps).
func (p *Parser) Token() token.Token {
	return p.token
}

// Peek returns the lookahead token (implements spi.ParserOps).
func (p *Parser) Peek() token.Token {
	return p.peek
}

// Match consumes the current token if it matches (implements spi.ParserOps).
func (p *Parser) Match(t token.TokenType) bool {
	return p.match(t)
}

// Expect consumes the current token or returns an error (implements spi.ParserOps).
func (p *Parser) Expect(t token.TokenType) error {
	n := len(p.errors)
	if p.expect(t) {
		return nil
	}
	return p.errors[n]
}

// NextToken advances to the next token (implements spi.ParserOps).
func (p *Parser) NextToken() {
	p.nextToken()
}

// Check returns true if the current token matches (implements spi.ParserOps).
func (p *Parser) Check(t token.TokenType) bool {
	return p.check(t)
}

// errorSince returns the first error recorded after mark.
func (p *Parser) errorSince(mark int) error {
	if len(p.errors) > mark {
		return p.errors[mark]
	}
	return nil
}

// ParseExpression parses an expression (implements spi.ParserOps).
func (p *Parser) ParseExpression() (core.Expr, error) {
	mark := len(p.errors)
	e := p.parseExpression()
	return e, p.errorSince(mark)
}

// ParseExpressionList parses a comma-separated expression list (implements spi.ParserOps).
func (p *Parser) ParseExpressionList() ([]core.Expr, error) {
	mark := len(p.errors)
	list := p.parseExpressionList()
	return list, p.errorSince(mark)
}

// ParseOrderByList parses ORDER BY items (implements spi.ParserOps).
func (p *Parser) ParseOrderByList() ([]*core.OrderByItem, error) {
	mark := len(p.errors)
	items := p.parseOrderByList()
	return items, p.errorSince(mark)
}

// ParseWindowDefs parses named window definitions (implements spi.ParserOps).
func (p *Parser) ParseWindowDefs() ([]*core.WindowDef, error) {
	mark := len(p.errors)
	defs := p.parseWindowDefs()
	return defs, p.errorSince(mark)
}

// ParseDataType parses a type name (implements spi.ParserOps).
func (p *Parser) ParseDataType() (*core.DataType, error) {
	mark := len(p.errors)
	t := p.parseDataType()
	return t, p.errorSince(mark)
}

// AddError adds an error at the current position (implements spi.ParserOps).
func (p *Parser) AddError(msg string) {
	p.addError(msg)
}

// Position returns the current token position (implements spi.ParserOps).
func (p *Parser) Position() token.Position {
	return p.token.Pos
}

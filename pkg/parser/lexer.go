package parser

import (
	"strings"

	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// Lexer tokenizes SQL input according to a dialect's lexical rules.
//
// Columns are 1-based byte columns; offsets are 0-based byte offsets. The
// first malformed construct is recorded as a LexError diagnostic, reported as
// an ILLEGAL token, and every later call returns EOF.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	dialect *dialect.Dialect

	// Comments collected during lexing, in source order.
	Comments []*token.Comment

	err *diag.Diagnostic
}

// NewLexer creates a Lexer for input using the lexical rules of d.
func NewLexer(input string, d *dialect.Dialect) *Lexer {
	l := &Lexer{
		input:   input,
		line:    1,
		col:     0,
		dialect: d,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error, if any.
func (l *Lexer) Err() *diag.Diagnostic {
	return l.err
}

// Tokenize splits text into tokens, ending with an EOF token.
func Tokenize(text string, d *dialect.Dialect) ([]token.Token, error) {
	l := NewLexer(text, d)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		if l.err != nil {
			return nil, l.err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.pos < len(l.input) && l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// advance consumes n bytes.
func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		l.readChar()
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// fail records a lexical error spanning [start, current) and returns the
// ILLEGAL token for it.
func (l *Lexer) fail(start token.Position, msg string) token.Token {
	end := l.currentPos()
	if end.Offset <= start.Offset {
		end = start
		end.Offset++
		end.Column++
	}
	if l.err == nil {
		l.err = diag.At(diag.LexError, l.input, token.Span{Start: start, End: end}, msg)
	}
	// Drain so later calls report EOF.
	l.pos = len(l.input)
	l.readPos = len(l.input) + 1
	l.ch = 0
	return token.Token{Type: token.ILLEGAL, Literal: msg, Pos: start, End: end}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	if l.err != nil {
		pos := l.currentPos()
		return token.Token{Type: token.EOF, Pos: pos, End: pos}
	}
	if tok, failed := l.skipWhitespaceAndComments(); failed {
		return tok
	}

	pos := l.currentPos()
	if l.atEOF() {
		return token.Token{Type: token.EOF, Pos: pos, End: pos}
	}

	// String and quoted identifier delimiters come before symbols.
	if strings.IndexByte(l.stringQuotes(), l.ch) >= 0 {
		return l.readString(pos)
	}
	if open, closing, ok := l.identifierQuote(); ok {
		return l.readQuotedIdentifier(pos, open, closing)
	}

	// Dialect-specific symbols, longest match.
	if tok, ok := l.matchDialectSymbol(pos); ok {
		return tok
	}

	switch l.ch {
	case '+':
		return l.single(token.PLUS, pos)
	case '-':
		return l.single(token.MINUS, pos)
	case '*':
		return l.single(token.STAR, pos)
	case '/':
		return l.single(token.SLASH, pos)
	case '%':
		return l.single(token.PERCENT, pos)
	case '=':
		if l.peekChar() == '=' {
			return l.double(token.EQ, pos)
		}
		return l.single(token.EQ, pos)
	case '<':
		switch l.peekChar() {
		case '=':
			return l.double(token.LE, pos)
		case '>':
			return l.double(token.NE, pos)
		}
		return l.single(token.LT, pos)
	case '>':
		if l.peekChar() == '=' {
			return l.double(token.GE, pos)
		}
		return l.single(token.GT, pos)
	case '!':
		if l.peekChar() == '=' {
			return l.double(token.NE, pos)
		}
	case '|':
		if l.peekChar() == '|' {
			return l.double(token.DPIPE, pos)
		}
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(pos)
		}
		return l.single(token.DOT, pos)
	case ',':
		return l.single(token.COMMA, pos)
	case '(':
		return l.single(token.LPAREN, pos)
	case ')':
		return l.single(token.RPAREN, pos)
	case '[':
		return l.single(token.LBRACKET, pos)
	case ']':
		return l.single(token.RBRACKET, pos)
	case ';':
		return l.single(token.SEMICOLON, pos)
	case '?':
		return l.single(token.PARAM, pos)
	case '$':
		if isDigit(l.peekChar()) {
			return l.readParam(pos, isDigit)
		}
	case ':', '@':
		if isLetter(l.peekChar()) {
			return l.readParam(pos, isIdentChar)
		}
	}

	switch {
	case isLetter(l.ch):
		return l.readIdentifier(pos)
	case isDigit(l.ch):
		return l.readNumber(pos)
	}

	l.readChar()
	return l.fail(pos, "unexpected character "+quoteChar(l.input[pos.Offset]))
}

func (l *Lexer) single(t token.TokenType, pos token.Position) token.Token {
	lit := string(l.ch)
	l.readChar()
	return token.Token{Type: t, Literal: lit, Pos: pos, End: l.currentPos()}
}

func (l *Lexer) double(t token.TokenType, pos token.Position) token.Token {
	lit := l.input[l.pos : l.pos+2]
	l.advance(2)
	return token.Token{Type: t, Literal: lit, Pos: pos, End: l.currentPos()}
}

// matchDialectSymbol checks if the current position matches a dialect-specific symbol.
// Returns the longest matching symbol (e.g., "::" before ":").
func (l *Lexer) matchDialectSymbol(pos token.Position) (token.Token, bool) {
	symbols := l.dialect.Symbols()
	if len(symbols) == 0 {
		return token.Token{}, false
	}

	remaining := l.input[l.pos:]
	best := ""
	for sym := range symbols {
		if len(sym) > len(best) && strings.HasPrefix(remaining, sym) {
			best = sym
		}
	}
	if best == "" {
		return token.Token{}, false
	}

	l.advance(len(best))
	return token.Token{Type: symbols[best], Literal: best, Pos: pos, End: l.currentPos()}, true
}

// skipWhitespaceAndComments skips whitespace and collects comments. It
// reports failure for an unterminated block comment.
func (l *Lexer) skipWhitespaceAndComments() (token.Token, bool) {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}
		switch {
		case l.ch == '-' && l.peekChar() == '-':
			l.readLineComment()
		case l.ch == '#' && l.dialect.HashComments:
			l.readLineComment()
		case l.ch == '/' && l.peekChar() == '*':
			if tok, ok := l.readBlockComment(); !ok {
				return tok, true
			}
		default:
			return token.Token{}, false
		}
	}
}

func (l *Lexer) readLineComment() {
	start := l.currentPos()
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.LineComment,
		Text: strings.TrimRight(l.input[start.Offset:l.pos], "\r"),
		Span: token.Span{Start: start, End: l.currentPos()},
	})
}

func (l *Lexer) readBlockComment() (token.Token, bool) {
	start := l.currentPos()
	l.advance(2) // consume /*
	for {
		if l.atEOF() {
			return l.fail(start, "unterminated block comment"), false
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.advance(2)
			break
		}
		l.readChar()
	}
	l.Comments = append(l.Comments, &token.Comment{
		Kind: token.BlockComment,
		Text: l.input[start.Offset:l.pos],
		Span: token.Span{Start: start, End: l.currentPos()},
	})
	return token.Token{}, true
}

func (l *Lexer) stringQuotes() string {
	if l.dialect.Strings.Quotes == "" {
		return "'"
	}
	return l.dialect.Strings.Quotes
}

// identifierQuote reports whether the current character opens a quoted
// identifier and returns its delimiters.
func (l *Lexer) identifierQuote() (string, string, bool) {
	ids := l.dialect.Identifiers
	rest := l.input[l.pos:]
	if ids.Quote != "" && strings.HasPrefix(rest, ids.Quote) {
		return ids.Quote, ids.QuoteEnd, true
	}
	for _, alt := range ids.Alternates {
		if alt.Open != "" && strings.HasPrefix(rest, alt.Open) {
			return alt.Open, alt.Close, true
		}
	}
	return "", "", false
}

// readString reads a string literal. Doubled quotes always escape the quote;
// backslash escapes apply when the dialect enables them.
func (l *Lexer) readString(pos token.Position) token.Token {
	quote := l.ch
	l.readChar() // skip opening quote

	var b strings.Builder
	for {
		switch {
		case l.atEOF():
			return l.fail(pos, "unterminated string literal")
		case l.ch == quote && l.peekChar() == quote:
			b.WriteByte(quote)
			l.advance(2)
		case l.ch == quote:
			l.readChar()
			return token.Token{Type: token.STRING, Literal: b.String(), Pos: pos, End: l.currentPos()}
		case l.ch == '\\' && l.dialect.Strings.BackslashEscapes:
			l.readChar()
			if l.atEOF() {
				return l.fail(pos, "unterminated string literal")
			}
			b.WriteString(unescape(l.ch))
			l.readChar()
		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func unescape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '0':
		return "\x00"
	case 'b':
		return "\b"
	case 'Z':
		return "\x1a"
	default:
		return string(c)
	}
}

// readQuotedIdentifier reads a delimited identifier. The closing delimiter is
// escaped by doubling it, or by a backslash when the dialect's escape says so.
func (l *Lexer) readQuotedIdentifier(pos token.Position, open, closing string) token.Token {
	l.advance(len(open))
	backslash := strings.HasPrefix(l.dialect.Identifiers.Escape, `\`)

	var b strings.Builder
	for {
		rest := l.input[l.pos:]
		switch {
		case l.atEOF():
			return l.fail(pos, "unterminated quoted identifier")
		case backslash && l.ch == '\\' && strings.HasPrefix(rest[1:], closing):
			b.WriteString(closing)
			l.advance(1 + len(closing))
		case strings.HasPrefix(rest, closing+closing):
			b.WriteString(closing)
			l.advance(2 * len(closing))
		case strings.HasPrefix(rest, closing):
			l.advance(len(closing))
			return token.Token{Type: token.IDENT, Literal: b.String(), Pos: pos, End: l.currentPos(), Quoted: true}
		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readIdentifier reads an identifier or keyword. Builtin keywords are
// resolved first, then the dialect's own keywords.
func (l *Lexer) readIdentifier(pos token.Position) token.Token {
	start := l.pos
	for isIdentChar(l.ch) {
		l.readChar()
	}
	lit := l.input[start:l.pos]

	lowerIdent := strings.ToLower(lit)
	typ := token.LookupIdent(lowerIdent)
	if typ == token.IDENT {
		if dynTok, ok := l.dialect.LookupKeyword(lowerIdent); ok {
			typ = dynTok
		}
	}
	return token.Token{Type: typ, Literal: lit, Pos: pos, End: l.currentPos()}
}

// readNumber reads a numeric literal: digits, optional fraction and
// exponent, and an optional dialect type suffix (10L, 2.5BD).
func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) || l.ch == '.' && !isLetter(l.peekChar()) && l.pos > start {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		exp := l.readPos
		if next == '+' || next == '-' {
			exp++
		}
		if exp < len(l.input) && isDigit(l.input[exp]) {
			l.advance(exp - l.pos)
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	if isLetter(l.ch) {
		end := l.pos
		for end < len(l.input) && isASCIILetter(l.input[end]) {
			end++
		}
		if end < len(l.input) && isIdentChar(l.input[end]) {
			return l.readRest(pos, start, "invalid number literal")
		}
		if _, _, ok := l.dialect.NumericSuffix(l.input[start:end]); ok {
			l.advance(end - l.pos)
		} else {
			return l.readRest(pos, start, "invalid number literal")
		}
	}

	return token.Token{Type: token.NUMBER, Literal: l.input[start:l.pos], Pos: pos, End: l.currentPos()}
}

// readRest consumes the remainder of a malformed word and reports it.
func (l *Lexer) readRest(pos token.Position, start int, msg string) token.Token {
	for isIdentChar(l.ch) {
		l.readChar()
	}
	return l.fail(pos, msg+" "+l.input[start:l.pos])
}

// readParam reads a placeholder: $1, :name or @name.
func (l *Lexer) readParam(pos token.Position, valid func(byte) bool) token.Token {
	start := l.pos
	l.readChar() // sigil
	for valid(l.ch) {
		l.readChar()
	}
	return token.Token{Type: token.PARAM, Literal: l.input[start:l.pos], Pos: pos, End: l.currentPos()}
}

// isLetter reports whether ch can start an identifier. Bytes of multi-byte
// UTF-8 sequences count as letters.
func isLetter(ch byte) bool {
	return isASCIILetter(ch) || ch == '_' || ch >= 0x80
}

func isASCIILetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isIdentChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '$'
}

func quoteChar(c byte) string {
	if c < 0x20 || c >= 0x7f {
		return "0x" + strings.ToUpper(hexByte(c))
	}
	return "'" + string(c) + "'"
}

func hexByte(c byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[c>>4], digits[c&0x0f]})
}

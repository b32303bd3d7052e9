// Package dialect provides SQL dialect configuration, function classification
// and the Builder used by concrete dialects to compose their grammar.
package dialect

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/spi"
	"github.com/leapstack-labs/polysql/pkg/token"
)

// JoinTypeDef defines a join type for the parser.
type JoinTypeDef struct {
	Token         token.TokenType // The trigger token for this join type
	Type          string          // JoinType value (e.g., "LEFT")
	OptionalToken token.TokenType // Optional modifier token (OUTER) - 0 means none
	RequiresOn    bool            // true if ON clause is required
	AllowsUsing   bool            // true if USING clause is allowed
}

// ClauseDef bundles a clause token with its handler and storage slot.
type ClauseDef struct {
	Token    token.TokenType   // The trigger token for this clause (e.g., token.WHERE)
	Handler  spi.ClauseHandler // Handler function to parse the clause
	Slot     spi.ClauseSlot    // Where to store the parsed result
	Keywords []string          // Keywords to print for this clause (e.g. "GROUP", "BY")
	Inline   bool              // true for same-line clauses (LIMIT, OFFSET)
}

// ClauseOption configures a ClauseDef registered through the Builder.
type ClauseOption func(*ClauseDef)

// WithInline marks a clause as printed on the same line as its value.
func WithInline() ClauseOption {
	return func(d *ClauseDef) {
		d.Inline = true
	}
}

// WithKeywords sets the keywords printed for a clause.
func WithKeywords(keywords ...string) ClauseOption {
	return func(d *ClauseDef) {
		d.Keywords = keywords
	}
}

// OperatorDef defines an infix operator: its token, optional lexer symbol and
// binding power. As, when set, is the token the parsed expression carries
// (MySQL parses || as OR).
type OperatorDef struct {
	Token      token.TokenType
	Symbol     string
	Precedence int
	As         token.TokenType
}

// Dialect is an immutable dialect descriptor produced by Builder.Build.
type Dialect struct {
	Config

	// Function classifications (upper-case canonical names)
	aggregates map[string]struct{}
	generators map[string]struct{}
	windows    map[string]struct{}

	reservedWords map[string]struct{} // words that need quoting as identifiers
	commands      map[string]struct{} // leading words of opaque commands

	// Name mappings (upper-case keys)
	typeAliases     map[string]string // dialect spelling -> canonical
	typeNames       map[string]string // canonical -> dialect spelling
	functionAliases map[string]string
	functionNames   map[string]string
	suffixes        map[string]string // numeric literal suffix -> canonical type
	suffixOrder     []string          // suffixes, longest first

	// Parsing behavior (for dialect-aware parsing)
	clauseSequence []token.TokenType                     // Order of clauses in SELECT statement
	clauseDefs     map[token.TokenType]ClauseDef         // Handler + Slot per clause
	symbols        map[string]token.TokenType            // Custom operators: "::" -> DCOLON
	dynamicKw      map[string]token.TokenType            // Custom keywords: "qualify" -> QUALIFY
	precedence     map[token.TokenType]int               // Operator precedence for expressions
	operatorAs     map[token.TokenType]token.TokenType   // Operator token rewrites (|| -> OR)
	infixHandlers  map[token.TokenType]spi.InfixHandler  // Optional custom infix parsing
	prefixHandlers map[token.TokenType]spi.PrefixHandler // Prefix expression handlers (e.g., [ for list literals)
	joinTypes      map[token.TokenType]JoinTypeDef       // Join type keywords
}

// IsAggregate returns true if the function is an aggregate function.
func (d *Dialect) IsAggregate(name string) bool {
	_, ok := d.aggregates[d.CanonicalFunction(name)]
	return ok
}

// IsGenerator returns true if the function generates values without input columns.
func (d *Dialect) IsGenerator(name string) bool {
	_, ok := d.generators[d.CanonicalFunction(name)]
	return ok
}

// IsWindow returns true if the function is a window-only function.
func (d *Dialect) IsWindow(name string) bool {
	_, ok := d.windows[d.CanonicalFunction(name)]
	return ok
}

// AllFunctions returns all classified function names, sorted.
func (d *Dialect) AllFunctions() []string {
	seen := make(map[string]struct{})
	for _, set := range []map[string]struct{}{d.aggregates, d.generators, d.windows} {
		for f := range set {
			seen[f] = struct{}{}
		}
	}
	funcs := make([]string, 0, len(seen))
	for f := range seen {
		funcs = append(funcs, f)
	}
	sort.Strings(funcs)
	return funcs
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToUpper(word)]
	return ok
}

// IsCommand reports whether a statement starting with word is parsed as
// an opaque command.
func (d *Dialect) IsCommand(word string) bool {
	_, ok := d.commands[strings.ToUpper(word)]
	return ok
}

// ReservedWords returns the sorted reserved word list.
func (d *Dialect) ReservedWords() []string {
	words := make([]string, 0, len(d.reservedWords))
	for w := range d.reservedWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// CanonicalType maps a dialect type spelling to its canonical name.
// Unknown names are returned upper-cased.
func (d *Dialect) CanonicalType(name string) string {
	upper := strings.ToUpper(name)
	if c, ok := d.typeAliases[upper]; ok {
		return c
	}
	return upper
}

// TypeName maps a canonical type name to the dialect spelling.
func (d *Dialect) TypeName(canonical string) string {
	if n, ok := d.typeNames[canonical]; ok {
		return n
	}
	return canonical
}

// CanonicalFunction maps a dialect function name to its canonical name.
// Unknown names are returned upper-cased.
func (d *Dialect) CanonicalFunction(name string) string {
	upper := strings.ToUpper(name)
	if c, ok := d.functionAliases[upper]; ok {
		return c
	}
	return upper
}

// FunctionName maps a canonical function name to the dialect spelling.
func (d *Dialect) FunctionName(canonical string) string {
	if n, ok := d.functionNames[canonical]; ok {
		return n
	}
	return canonical
}

// NumericSuffix splits a trailing type suffix off a numeric literal.
// "10L" returns ("10", "BIGINT", true) in dialects declaring the L suffix.
func (d *Dialect) NumericSuffix(text string) (digits, typ string, ok bool) {
	upper := strings.ToUpper(text)
	for _, s := range d.suffixOrder {
		if len(upper) > len(s) && strings.HasSuffix(upper, s) {
			return text[:len(text)-len(s)], d.suffixes[s], true
		}
	}
	return text, "", false
}

// NumericSuffixes returns the declared numeric literal suffixes, longest first.
func (d *Dialect) NumericSuffixes() []string {
	return d.suffixOrder
}

// ---------- Parsing Behavior Methods ----------

// ClauseSequence returns the ordered list of clause token types for this dialect.
func (d *Dialect) ClauseSequence() []token.TokenType {
	return d.clauseSequence
}

// ClauseHandler returns the handler for a clause token type.
func (d *Dialect) ClauseHandler(t token.TokenType) spi.ClauseHandler {
	if def, ok := d.clauseDefs[t]; ok {
		return def.Handler
	}
	return nil
}

// ClauseDef returns the full clause definition for a token type.
func (d *Dialect) ClauseDef(t token.TokenType) (ClauseDef, bool) {
	def, ok := d.clauseDefs[t]
	return def, ok
}

// IsClauseToken returns true if the token starts a clause in this dialect.
func (d *Dialect) IsClauseToken(t token.TokenType) bool {
	_, ok := d.clauseDefs[t]
	return ok
}

// Symbols returns the dialect-specific operator symbols for the lexer.
func (d *Dialect) Symbols() map[string]token.TokenType {
	return d.symbols
}

// LookupKeyword returns the token type for a dialect-specific keyword.
func (d *Dialect) LookupKeyword(name string) (token.TokenType, bool) {
	t, ok := d.dynamicKw[strings.ToLower(name)]
	return t, ok
}

// Precedence returns the binding power of an infix operator, or
// PrecedenceNone when the token is not an operator in this dialect.
func (d *Dialect) Precedence(t token.TokenType) int {
	if p, ok := d.precedence[t]; ok {
		return p
	}
	return spi.PrecedenceNone
}

// OperatorToken returns the token a parsed infix operator carries.
func (d *Dialect) OperatorToken(t token.TokenType) token.TokenType {
	if as, ok := d.operatorAs[t]; ok {
		return as
	}
	return t
}

// InfixHandler returns the custom infix handler for a token, if any.
func (d *Dialect) InfixHandler(t token.TokenType) spi.InfixHandler {
	return d.infixHandlers[t]
}

// PrefixHandler returns the custom prefix handler for a token, if any.
func (d *Dialect) PrefixHandler(t token.TokenType) spi.PrefixHandler {
	return d.prefixHandlers[t]
}

// JoinTypeDef returns the join definition for a token.
func (d *Dialect) JoinTypeDef(t token.TokenType) (JoinTypeDef, bool) {
	def, ok := d.joinTypes[t]
	return def, ok
}

// IsJoinTypeToken returns true if the token starts a typed join.
func (d *Dialect) IsJoinTypeToken(t token.TokenType) bool {
	_, ok := d.joinTypes[t]
	return ok
}

// ---------- Builder ----------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
	config  *Config // Optional config for auto-wiring features
}

// NewDialect creates a new dialect builder with the given name and ANSI
// identifier rules.
func NewDialect(name string) *Builder {
	return newBuilder(Config{
		Name: name,
		Identifiers: IdentifierConfig{
			Quote:         `"`,
			QuoteEnd:      `"`,
			Escape:        `""`,
			Normalization: NormLowercase,
		},
		Strings:        StringConfig{Quotes: "'"},
		ConcatOperator: true,
		Lists:          ListArrayKeyword,
	}, nil)
}

// New creates a dialect builder from a Config.
// The builder auto-wires features based on config flags when Build() is called.
func New(cfg *Config) *Builder {
	return newBuilder(*cfg, cfg)
}

func newBuilder(cfg Config, src *Config) *Builder {
	if cfg.Strings.Quotes == "" {
		cfg.Strings.Quotes = "'"
	}
	return &Builder{
		config: src,
		dialect: &Dialect{
			Config:          cfg,
			aggregates:      make(map[string]struct{}),
			generators:      make(map[string]struct{}),
			windows:         make(map[string]struct{}),
			reservedWords:   make(map[string]struct{}),
			commands:        make(map[string]struct{}),
			typeAliases:     make(map[string]string),
			typeNames:       make(map[string]string),
			functionAliases: make(map[string]string),
			functionNames:   make(map[string]string),
			suffixes:        make(map[string]string),
			clauseDefs:      make(map[token.TokenType]ClauseDef),
			symbols:         make(map[string]token.TokenType),
			dynamicKw:       make(map[string]token.TokenType),
			precedence:      make(map[token.TokenType]int),
			operatorAs:      make(map[token.TokenType]token.TokenType),
			infixHandlers:   make(map[token.TokenType]spi.InfixHandler),
			prefixHandlers:  make(map[token.TokenType]spi.PrefixHandler),
			joinTypes:       make(map[token.TokenType]JoinTypeDef),
		},
	}
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm NormalizationStrategy) *Builder {
	b.dialect.Identifiers.Quote = quote
	b.dialect.Identifiers.QuoteEnd = quoteEnd
	b.dialect.Identifiers.Escape = escape
	b.dialect.Identifiers.Normalization = norm
	return b
}

// Aggregates adds aggregate functions to the dialect.
func (b *Builder) Aggregates(funcs ...string) *Builder {
	for _, f := range funcs {
		b.dialect.aggregates[strings.ToUpper(f)] = struct{}{}
	}
	return b
}

// Generators adds generator functions (no input columns) to the dialect.
func (b *Builder) Generators(funcs ...string) *Builder {
	for _, f := range funcs {
		b.dialect.generators[strings.ToUpper(f)] = struct{}{}
	}
	return b
}

// Windows adds window-only functions to the dialect.
func (b *Builder) Windows(funcs ...string) *Builder {
	for _, f := range funcs {
		b.dialect.windows[strings.ToUpper(f)] = struct{}{}
	}
	return b
}

// WithReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[strings.ToUpper(w)] = struct{}{}
	}
	return b
}

// WithCommands registers leading words of statements parsed as opaque
// commands.
func (b *Builder) WithCommands(words ...string) *Builder {
	for _, w := range words {
		b.dialect.commands[strings.ToUpper(w)] = struct{}{}
	}
	return b
}

// TypeAliases registers dialect type spellings that parse to a canonical name.
func (b *Builder) TypeAliases(m map[string]string) *Builder {
	for k, v := range m {
		b.dialect.typeAliases[strings.ToUpper(k)] = v
	}
	return b
}

// TypeNames registers the dialect spelling rendered for canonical types.
func (b *Builder) TypeNames(m map[string]string) *Builder {
	for k, v := range m {
		b.dialect.typeNames[strings.ToUpper(k)] = v
	}
	return b
}

// FunctionAliases registers dialect function names that parse to a canonical name.
func (b *Builder) FunctionAliases(m map[string]string) *Builder {
	for k, v := range m {
		b.dialect.functionAliases[strings.ToUpper(k)] = v
	}
	return b
}

// FunctionNames registers the dialect spelling rendered for canonical functions.
func (b *Builder) FunctionNames(m map[string]string) *Builder {
	for k, v := range m {
		b.dialect.functionNames[strings.ToUpper(k)] = v
	}
	return b
}

// NumericSuffixes registers numeric literal suffixes (10L -> BIGINT).
func (b *Builder) NumericSuffixes(m map[string]string) *Builder {
	for k, v := range m {
		b.dialect.suffixes[strings.ToUpper(k)] = v
	}
	return b
}

// Build returns the constructed dialect.
// If the builder was created with New(cfg), this auto-wires features based on config flags.
func (b *Builder) Build() *Dialect {
	d := b.dialect

	if len(d.clauseSequence) == 0 {
		b.Clauses(StandardSelectClauses...)
	}
	if len(d.precedence) == 0 {
		b.Operators(ANSIOperators)
	}
	if len(d.joinTypes) == 0 {
		b.JoinTypes(ANSIJoinTypes)
	}

	// Shared tables first so dialect overrides win.
	b.WithReservedWords(StandardReservedWords...)
	b.WithCommands(StandardCommands...)
	b.mergeDefault(d.typeAliases, StandardTypeAliases)
	b.mergeDefault(d.functionAliases, StandardFunctionAliases)

	cfg := b.config
	if cfg == nil {
		b.finish()
		return d
	}

	// ===== Auto-wire function classifications and mappings from config =====
	b.Aggregates(cfg.Aggregates...)
	b.Generators(cfg.Generators...)
	b.Windows(cfg.Windows...)
	b.WithReservedWords(cfg.ReservedWords...)
	b.WithCommands(cfg.Commands...)
	b.TypeAliases(cfg.TypeAliases)
	b.TypeNames(cfg.TypeNames)
	b.FunctionAliases(cfg.FunctionAliases)
	b.FunctionNames(cfg.FunctionNames)
	b.NumericSuffixes(cfg.NumericSuffixes)

	// ===== Auto-wire clause extensions =====
	if cfg.SupportsQualify {
		b.AddKeyword("QUALIFY", TokenQualify)
		b.insertClauseBefore(token.ORDER, StandardQualify)
	}
	if cfg.SupportsLimitComma {
		b.replaceOrAddClause(token.LIMIT, LimitWithComma)
	}

	// ===== Auto-wire operator extensions =====
	if cfg.SupportsIlike {
		b.AddKeyword("ILIKE", TokenIlike)
		d.precedence[TokenIlike] = spi.PrecedenceComparison
	}
	if cfg.SupportsCastOperator {
		b.AddOperator("::", token.DCOLON)
		b.AddInfixWithHandler(token.DCOLON, spi.PrecedencePostfix, ParseCastOperator)
	}
	if !cfg.ConcatOperator {
		d.precedence[token.DPIPE] = spi.PrecedenceOr
		d.operatorAs[token.DPIPE] = token.OR
	}
	if cfg.Lists == ListBracket {
		b.AddPrefix(token.LBRACKET, ParseBracketList)
	}

	b.finish()
	return d
}

func (b *Builder) finish() {
	d := b.dialect
	b.Aggregates(StandardAggregates...)
	b.Windows(StandardWindows...)
	b.Generators(StandardGenerators...)
	// IF is canonical; dialect spellings come from IfFunction.
	if d.IfFunction != "" && d.IfFunction != "IF" {
		d.functionNames["IF"] = d.IfFunction
	}
	d.suffixOrder = d.suffixOrder[:0]
	for s := range d.suffixes {
		d.suffixOrder = append(d.suffixOrder, s)
	}
	sort.Slice(d.suffixOrder, func(i, j int) bool {
		if len(d.suffixOrder[i]) != len(d.suffixOrder[j]) {
			return len(d.suffixOrder[i]) > len(d.suffixOrder[j])
		}
		return d.suffixOrder[i] < d.suffixOrder[j]
	})
}

func (b *Builder) mergeDefault(dst, src map[string]string) {
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

// replaceOrAddClause replaces an existing clause handler or adds a new one.
// Use this when a config flag requires a specific handler variant.
func (b *Builder) replaceOrAddClause(t token.TokenType, def ClauseDef) {
	def.Token = t
	b.dialect.clauseDefs[t] = def
	recordClause(t, clauseName(def))
	for _, tok := range b.dialect.clauseSequence {
		if tok == t {
			return
		}
	}
	b.dialect.clauseSequence = append(b.dialect.clauseSequence, t)
}

// insertClauseBefore adds a clause ahead of another one in the sequence,
// or at the end when the anchor is absent.
func (b *Builder) insertClauseBefore(before token.TokenType, def ClauseDef) {
	if _, exists := b.dialect.clauseDefs[def.Token]; exists {
		return
	}
	b.dialect.clauseDefs[def.Token] = def
	recordClause(def.Token, clauseName(def))

	seq := b.dialect.clauseSequence
	for i, tok := range seq {
		if tok == before {
			out := make([]token.TokenType, 0, len(seq)+1)
			out = append(out, seq[:i]...)
			out = append(out, def.Token)
			b.dialect.clauseSequence = append(out, seq[i:]...)
			return
		}
	}
	b.dialect.clauseSequence = append(seq, def.Token)
}

func clauseName(def ClauseDef) string {
	if len(def.Keywords) > 0 {
		return strings.Join(def.Keywords, " ")
	}
	return def.Token.String()
}

// ---------- Parsing Behavior Builder Methods ----------

// AddOperator registers a custom operator symbol for the lexer.
func (b *Builder) AddOperator(symbol string, t token.TokenType) *Builder {
	b.dialect.symbols[symbol] = t
	return b
}

// AddKeyword registers a dynamic keyword for the lexer.
func (b *Builder) AddKeyword(name string, t token.TokenType) *Builder {
	b.dialect.dynamicKw[strings.ToLower(name)] = t
	return b
}

// ClauseHandler registers a clause handler and appends it to the sequence.
func (b *Builder) ClauseHandler(t token.TokenType, handler spi.ClauseHandler, slot spi.ClauseSlot, opts ...ClauseOption) *Builder {
	def := ClauseDef{Token: t, Handler: handler, Slot: slot}
	for _, opt := range opts {
		opt(&def)
	}
	b.replaceOrAddClause(t, def)
	return b
}

// RemoveClause removes a clause from the sequence.
func (b *Builder) RemoveClause(t token.TokenType) *Builder {
	delete(b.dialect.clauseDefs, t)
	seq := b.dialect.clauseSequence[:0]
	for _, tok := range b.dialect.clauseSequence {
		if tok != t {
			seq = append(seq, tok)
		}
	}
	b.dialect.clauseSequence = seq
	return b
}

// AddInfix registers an infix operator with its precedence.
func (b *Builder) AddInfix(t token.TokenType, precedence int) *Builder {
	b.dialect.precedence[t] = precedence
	return b
}

// AddInfixWithHandler registers an infix operator with a custom handler.
func (b *Builder) AddInfixWithHandler(t token.TokenType, precedence int, handler spi.InfixHandler) *Builder {
	b.dialect.precedence[t] = precedence
	b.dialect.infixHandlers[t] = handler
	return b
}

// AddPrefix registers a prefix expression handler.
func (b *Builder) AddPrefix(t token.TokenType, handler spi.PrefixHandler) *Builder {
	b.dialect.prefixHandlers[t] = handler
	return b
}

// AddJoinType registers a join type.
func (b *Builder) AddJoinType(t token.TokenType, def JoinTypeDef) *Builder {
	b.dialect.joinTypes[t] = def
	return b
}

// Clauses sets the clause sequence from definitions, in order.
func (b *Builder) Clauses(defs ...ClauseDef) *Builder {
	for _, def := range defs {
		b.replaceOrAddClause(def.Token, def)
	}
	return b
}

// Operators registers operator sets; later sets override earlier ones.
func (b *Builder) Operators(sets ...[]OperatorDef) *Builder {
	for _, set := range sets {
		for _, op := range set {
			b.dialect.precedence[op.Token] = op.Precedence
			if op.Symbol != "" {
				b.dialect.symbols[op.Symbol] = op.Token
			}
			if op.As != 0 {
				b.dialect.operatorAs[op.Token] = op.As
			}
		}
	}
	return b
}

// JoinTypes registers join type sets.
func (b *Builder) JoinTypes(sets ...[]JoinTypeDef) *Builder {
	for _, set := range sets {
		for _, def := range set {
			b.dialect.joinTypes[def.Token] = def
		}
	}
	return b
}

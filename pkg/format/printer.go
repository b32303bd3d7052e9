package format

import (
	"bytes"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/core"
	"github.com/leapstack-labs/polysql/pkg/dialect"
	"github.com/leapstack-labs/polysql/pkg/token"
)

const indentSize = 2

// Printer handles SQL rendering with proper indentation and style.
// In single-line mode line breaks collapse to single spaces.
type Printer struct {
	dialect     *dialect.Dialect
	opts        Options
	output      *bytes.Buffer
	depth       int
	atLineStart bool
}

func newPrinter(d *dialect.Dialect, opts Options) *Printer {
	return &Printer{
		dialect:     d,
		opts:        opts,
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the rendered output without trailing whitespace.
func (p *Printer) String() string {
	return strings.TrimRight(p.output.String(), " \n")
}

func (p *Printer) write(s string) {
	if s == "" {
		return
	}
	if p.atLineStart {
		if p.opts.Pretty {
			p.writeIndent()
		} else if p.output.Len() > 0 && p.needsSeparator(s[0]) {
			p.output.WriteByte(' ')
		}
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

// needsSeparator reports whether a collapsed line break before next must
// become a space.
func (p *Printer) needsSeparator(next byte) bool {
	b := p.output.Bytes()
	last := b[len(b)-1]
	if last == ' ' || last == '(' {
		return false
	}
	return next != ')' && next != ','
}

func (p *Printer) writeln() {
	if p.opts.Pretty && !p.atLineStart {
		p.output.WriteByte('\n')
	}
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *Printer) keyword(s string) {
	p.write(strings.ToUpper(s))
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	if p.atLineStart {
		return
	}
	p.output.WriteByte(' ')
}

// kw prints keywords for the given token types, space separated.
func (p *Printer) kw(tokens ...token.TokenType) {
	for i, t := range tokens {
		if i > 0 {
			p.space()
		}
		p.write(t.String())
	}
}

// formatComments prints leading statement comments. Single-line output
// turns line comments into block comments so they cannot swallow the
// statement.
func (p *Printer) formatComments(comments []*token.Comment) {
	for _, c := range comments {
		switch {
		case !p.opts.Pretty && c.IsLineComment():
			p.write("/*" + strings.ReplaceAll(c.Body(), "*/", "* /") + "*/")
		case p.dialect.HashComments:
			p.write(c.Text)
		default:
			p.write(c.Portable())
		}
		p.writeln()
	}
}

// formatList prints a list of items with separators.
// count is the number of items, format is called for each index,
// sep is the separator string, multiline adds newlines after separators.
func (p *Printer) formatList(count int, format func(i int), sep string, multiline bool) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			}
		}
	}
}

// ---------- Identifiers ----------

// ident renders an identifier, quoting it when the options or the target
// dialect require it.
func (p *Printer) ident(id core.Ident) {
	p.write(p.identText(id))
}

func (p *Printer) identText(id core.Ident) string {
	name := id.Name
	if !id.Quoted && p.opts.Normalize {
		name = p.dialect.NormalizeName(name)
	}
	if !p.opts.Identify && !p.needsQuote(core.Ident{Name: name, Quoted: id.Quoted}) {
		return name
	}
	if !id.Quoted {
		// Quoting freezes the spelling, so write what the name folds to.
		name = p.dialect.FoldIdentifier(name)
	}
	return p.dialect.QuoteIdentifier(name)
}

// needsQuote extends the dialect rule with keywords the lexer would not
// read back as a name.
func (p *Printer) needsQuote(id core.Ident) bool {
	if p.dialect.NeedsQuote(id) {
		return true
	}
	if t := token.LookupIdent(strings.ToLower(id.Name)); t != token.IDENT && !token.IsSoftKeyword(t) {
		return true
	}
	_, dynamic := p.dialect.LookupKeyword(id.Name)
	return dynamic
}

func (p *Printer) identList(ids []core.Ident) {
	p.formatList(len(ids), func(i int) { p.ident(ids[i]) }, ", ", false)
}

// Package diag defines the structured failure value returned by every public
// entry point of the SQL engine.
//
// A Diagnostic is created where the failure is detected (lexer, parser,
// dialect lookup, table loader, executor) and travels unchanged to the host,
// which decides how to render it.
package diag

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/polysql/pkg/token"
)

// ContextSize is the number of bytes of source kept on each side of the
// highlighted region.
const ContextSize = 100

// Kind classifies a Diagnostic.
type Kind int

// Diagnostic kinds.
const (
	LexError Kind = iota + 1
	ParseError
	UnknownDialect
	SchemaParseError
	EvaluationError
	UnsupportedConstruct
)

var kindNames = map[Kind]string{
	LexError:             "LexError",
	ParseError:           "ParseError",
	UnknownDialect:       "UnknownDialect",
	SchemaParseError:     "SchemaParseError",
	EvaluationError:      "EvaluationError",
	UnsupportedConstruct: "UnsupportedConstruct",
}

// String returns the kind name, e.g. "ParseError".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown diagnostic kind %q", string(b))
}

// phrase is the lower-case form used in error strings.
func (k Kind) phrase() string {
	switch k {
	case LexError:
		return "lexer error"
	case ParseError:
		return "parse error"
	case UnknownDialect:
		return "unknown dialect"
	case SchemaParseError:
		return "schema parse error"
	case EvaluationError:
		return "evaluation error"
	case UnsupportedConstruct:
		return "unsupported construct"
	default:
		return "error"
	}
}

// Context is the source window around a failure point.
type Context struct {
	Before    string `json:"start_context"`
	Highlight string `json:"highlight"`
	After     string `json:"end_context"`
}

// Diagnostic is a structured failure: kind, message and, for source-level
// failures, the position and context window.
type Diagnostic struct {
	Kind    Kind     `json:"kind"`
	Message string   `json:"description"`
	Line    int      `json:"line,omitempty"` // 1-based, 0 when unknown
	Column  int      `json:"col,omitempty"`  // 1-based, 0 when unknown
	Offset  int      `json:"offset"`         // 0-based byte offset of the highlight
	Context *Context `json:"context,omitempty"`
}

// New creates a Diagnostic without source position.
func New(kind Kind, msg string) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: msg, Offset: -1}
}

// Newf creates a Diagnostic without source position using a format string.
func Newf(kind Kind, format string, args ...any) *Diagnostic {
	return New(kind, fmt.Sprintf(format, args...))
}

// At creates a Diagnostic positioned at span within src, capturing the
// context window around it.
func At(kind Kind, src string, span token.Span, msg string) *Diagnostic {
	d := &Diagnostic{
		Kind:    kind,
		Message: msg,
		Line:    span.Start.Line,
		Column:  span.Start.Column,
		Offset:  span.Start.Offset,
	}
	d.Context = window(src, span.Start.Offset, span.End.Offset)
	return d
}

// window slices src into before/highlight/after around [start, end).
func window(src string, start, end int) *Context {
	start = clamp(start, 0, len(src))
	end = clamp(end, start, len(src))

	before := clamp(start-ContextSize, 0, start)
	after := clamp(end+ContextSize, end, len(src))

	// Keep slices on rune boundaries.
	for before > 0 && !utf8.RuneStart(src[before]) {
		before++
	}
	for after < len(src) && !utf8.RuneStart(src[after]) {
		after--
	}

	return &Context{
		Before:    src[before:start],
		Highlight: src[start:end],
		After:     src[end:after],
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Error implements error.
func (d *Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s at line %d, column %d: %s", d.Kind.phrase(), d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind.phrase(), d.Message)
}

// HasPosition reports whether the diagnostic points into the source text.
func (d *Diagnostic) HasPosition() bool {
	return d.Line > 0 && d.Context != nil
}

// Format renders the error line followed by the offending source line and a
// caret underline beneath the highlighted token.
func (d *Diagnostic) Format() string {
	var b strings.Builder
	b.WriteString(d.Error())
	if !d.HasPosition() {
		return b.String()
	}

	lead := d.Context.Before
	if i := strings.LastIndexByte(lead, '\n'); i >= 0 {
		lead = lead[i+1:]
	}
	highlight := d.Context.Highlight
	if i := strings.IndexByte(highlight, '\n'); i >= 0 {
		highlight = highlight[:i]
	}
	tail := d.Context.After
	if i := strings.IndexByte(tail, '\n'); i >= 0 {
		tail = tail[:i]
	}
	if highlight != d.Context.Highlight {
		tail = ""
	}

	width := utf8.RuneCountInString(highlight)
	if width == 0 {
		width = 1
	}

	b.WriteString("\n  ")
	b.WriteString(lead + highlight + tail)
	b.WriteString("\n  ")
	b.WriteString(strings.Repeat(" ", utf8.RuneCountInString(lead)))
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}

// As extracts a *Diagnostic from err.
func As(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// Is reports whether err carries a Diagnostic of the given kind.
func Is(err error, kind Kind) bool {
	d, ok := As(err)
	return ok && d.Kind == kind
}

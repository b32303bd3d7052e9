package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/polysql/pkg/diag"
)

// ErrorOutput is the JSON form of a failed command. It matches the HTTP
// API's error body.
type ErrorOutput struct {
	Success      bool             `json:"success"`
	ErrorType    string           `json:"error_type"`
	ErrorMessage string           `json:"error_message"`
	Details      *diag.Diagnostic `json:"details,omitempty"`
}

// Diagnostic writes d with the offending source line and the highlighted
// token underlined. JSON mode writes ErrorOutput to standard output.
func (r *Renderer) Diagnostic(d *diag.Diagnostic) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(ErrorOutput{
			ErrorType:    d.Kind.String(),
			ErrorMessage: d.Message,
			Details:      d,
		})
	case ModeMarkdown:
		_, _ = fmt.Fprintf(r.errOut, "**%s**: %s\n", d.Kind, d.Error())
		if lead, hl, tail, ok := sourceLine(d); ok {
			_, _ = fmt.Fprintln(r.errOut, FormatCodeBlock("", lead+hl+tail+"\n"+caretLine(lead, hl)))
		}
		return nil
	}

	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render(d.Error()))
	if lead, hl, tail, ok := sourceLine(d); ok {
		_, _ = fmt.Fprintln(r.errOut, "  "+lead+r.styles.Highlight.Render(hl)+tail)
		_, _ = fmt.Fprintln(r.errOut, "  "+r.styles.Caret.Render(caretLine(lead, hl)))
	}
	return nil
}

// Error writes a non-diagnostic error.
func (r *Renderer) Error(err error) error {
	if d, ok := diag.As(err); ok {
		return r.Diagnostic(d)
	}
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(ErrorOutput{ErrorType: "Error", ErrorMessage: err.Error()})
	}
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error:")+" "+err.Error())
	return nil
}

// sourceLine cuts the diagnostic context down to the line holding the
// highlight.
func sourceLine(d *diag.Diagnostic) (lead, highlight, tail string, ok bool) {
	if !d.HasPosition() {
		return "", "", "", false
	}
	lead = d.Context.Before
	if i := strings.LastIndexByte(lead, '\n'); i >= 0 {
		lead = lead[i+1:]
	}
	highlight = d.Context.Highlight
	tail = d.Context.After
	if i := strings.IndexByte(highlight, '\n'); i >= 0 {
		highlight, tail = highlight[:i], ""
	}
	if i := strings.IndexByte(tail, '\n'); i >= 0 {
		tail = tail[:i]
	}
	return lead, highlight, tail, true
}

func caretLine(lead, highlight string) string {
	width := utf8.RuneCountInString(highlight)
	if width == 0 {
		width = 1
	}
	return strings.Repeat(" ", utf8.RuneCountInString(lead)) + strings.Repeat("^", width)
}

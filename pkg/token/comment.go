package token

import "strings"

// CommentKind distinguishes line vs block comments.
type CommentKind int

// Comment kinds.
const (
	LineComment  CommentKind = iota // -- comment (or # in MySQL)
	BlockComment                    // /* comment */
)

// Comment represents a SQL comment with position.
type Comment struct {
	Kind CommentKind
	Text string // includes delimiters (--, # or /* */)
	Span Span
}

// IsLineComment returns true if this is a line comment.
func (c *Comment) IsLineComment() bool {
	return c.Kind == LineComment
}

// Body returns the comment text without its delimiters.
func (c *Comment) Body() string {
	switch c.Kind {
	case BlockComment:
		return strings.TrimSuffix(strings.TrimPrefix(c.Text, "/*"), "*/")
	default:
		if strings.HasPrefix(c.Text, "#") {
			return c.Text[1:]
		}
		return strings.TrimPrefix(c.Text, "--")
	}
}

// Portable returns the comment rewritten with ANSI delimiters.
func (c *Comment) Portable() string {
	if c.Kind == BlockComment {
		return c.Text
	}
	return "--" + c.Body()
}

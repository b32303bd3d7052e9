package core

import "github.com/leapstack-labs/polysql/pkg/token"

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
	// End returns the position of the character immediately after the node.
	End() token.Position
	// Kind returns the node's variant tag.
	Kind() Kind
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
	// LeadingComments returns comments that appeared before the statement.
	LeadingComments() []*token.Comment
}

// TableRef is a marker interface for FROM clause items.
type TableRef interface {
	Node
	tableRefNode()
}

// NodeInfo carries the source span of a node. The zero value marks a
// synthesized node.
type NodeInfo struct {
	Span token.Span
}

// Pos implements Node.
func (n *NodeInfo) Pos() token.Position { return n.Span.Start }

// End implements Node.
func (n *NodeInfo) End() token.Position { return n.Span.End }

// Loc returns the node's source span.
func (n *NodeInfo) Loc() token.Span { return n.Span }

// SetSpan replaces the node's source span.
func (n *NodeInfo) SetSpan(s token.Span) { n.Span = s }

// StmtInfo is embedded by statement nodes.
type StmtInfo struct {
	NodeInfo
	Comments []*token.Comment
}

// LeadingComments implements Stmt.
func (s *StmtInfo) LeadingComments() []*token.Comment { return s.Comments }

// Ident is an identifier as written: its text (unescaped) and whether it was
// delimited by quote characters.
type Ident struct {
	Name   string
	Quoted bool
}

// NewIdent returns an unquoted identifier.
func NewIdent(name string) Ident { return Ident{Name: name} }

// IsZero reports whether the identifier is empty.
func (i Ident) IsZero() bool { return i.Name == "" }

// String returns the identifier text without quotes.
func (i Ident) String() string { return i.Name }

// Names returns the text of each identifier.
func Names(ids []Ident) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Name
	}
	return out
}

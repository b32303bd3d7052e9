package core

// ---------- Table Reference Types ----------

// TableName represents a table name reference.
type TableName struct {
	NodeInfo
	Catalog Ident
	Schema  Ident
	Name    Ident
	Alias   Ident
}

func (*TableName) tableRefNode() {}

// Kind implements Node.
func (*TableName) Kind() Kind { return KindTableName }

// Qualified returns the dotted name without alias, e.g. "db.orders".
func (t *TableName) Qualified() string {
	name := t.Name.Name
	if !t.Schema.IsZero() {
		name = t.Schema.Name + "." + name
	}
	if !t.Catalog.IsZero() {
		name = t.Catalog.Name + "." + name
	}
	return name
}

// RefName returns the name other clauses use to refer to the table: its
// alias when present, otherwise its bare name.
func (t *TableName) RefName() string {
	if !t.Alias.IsZero() {
		return t.Alias.Name
	}
	return t.Name.Name
}

// DerivedTable represents a subquery in FROM clause, optionally LATERAL.
type DerivedTable struct {
	NodeInfo
	Lateral bool
	Select  *SelectStmt
	Alias   Ident
}

func (*DerivedTable) tableRefNode() {}

// Kind implements Node.
func (*DerivedTable) Kind() Kind { return KindDerivedTable }

// JoinedTable is a join tree used as one FROM item, as in
// a LEFT JOIN (b JOIN c ON x) ON y. Its joins are applied to Source
// before the item takes part in the enclosing join.
type JoinedTable struct {
	NodeInfo
	Source TableRef
	Joins  []*Join
}

func (*JoinedTable) tableRefNode() {}

// Kind implements Node.
func (*JoinedTable) Kind() Kind { return KindJoinedTable }

// TableRefName returns the name a FROM item is referenced by.
func TableRefName(ref TableRef) string {
	switch t := ref.(type) {
	case *TableName:
		return t.RefName()
	case *DerivedTable:
		return t.Alias.Name
	default:
		return ""
	}
}

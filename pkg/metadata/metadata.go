// Package metadata extracts structured facts from a parsed statement: the
// tables and columns it references, projection aliases, function calls,
// joins, subqueries and the text of its filter, grouping and ordering
// clauses.
//
// Extraction never mutates the tree, so one statement may be analyzed from
// several goroutines at once.
package metadata

// Query types reported in Result.QueryType.
const (
	QueryTypeSelect    = "Select"
	QueryTypeUnion     = "Union"
	QueryTypeIntersect = "Intersect"
	QueryTypeExcept    = "Except"
	QueryTypeInsert    = "Insert"
	QueryTypeUpdate    = "Update"
	QueryTypeDelete    = "Delete"
	QueryTypeCreate    = "Create"
	QueryTypeDrop      = "Drop"
	QueryTypeCommand   = "Command"
)

// DefaultJoinType is reported for joins written without a type keyword.
const DefaultJoinType = "INNER"

// Result holds the deduplicated facts of one statement.
type Result struct {
	QueryType       string      `json:"query_type"`
	Tables          []*Table    `json:"tables"`
	Columns         []*Column   `json:"columns"`
	Aliases         []*Alias    `json:"aliases"`
	Functions       []*Function `json:"functions"`
	Joins           []*Join     `json:"joins"`
	Subqueries      []*Subquery `json:"subqueries"`
	WhereConditions []string    `json:"where_conditions"`
	GroupBy         []string    `json:"group_by"`
	OrderBy         []*OrderBy  `json:"order_by"`
}

// Table is a referenced relation. Unset parts are nil.
type Table struct {
	Name    string  `json:"name"`
	Alias   *string `json:"alias"`
	DB      *string `json:"db"`
	Catalog *string `json:"catalog"`
}

// Column is a column reference. Table is nil for unqualified references.
// AliasOrName is the projection alias when the reference is aliased
// directly in a select list, otherwise the column name.
type Column struct {
	Name        string  `json:"name"`
	Table       *string `json:"table"`
	AliasOrName string  `json:"alias_or_name"`
}

// Alias is an aliased projection of the top-level query.
type Alias struct {
	Alias      string `json:"alias"`
	Expression string `json:"expression"`
}

// Function is the first call of a function name.
type Function struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// Join describes one join node.
type Join struct {
	Type        string   `json:"type"`
	Table       string   `json:"table"`
	OnCondition *string  `json:"on_condition"`
	Natural     bool     `json:"natural"`
	Using       []string `json:"using"`
}

// Subquery is one nested SELECT: a derived table, a CTE body or a
// subquery expression.
type Subquery struct {
	Alias *string `json:"alias"`
	SQL   string  `json:"sql"`
}

// OrderBy is one ORDER BY item.
type OrderBy struct {
	Expression string `json:"expression"`
	Desc       bool   `json:"desc"`
}

// TableNames returns the distinct table names in extraction order.
func (r *Result) TableNames() []string {
	seen := make(map[string]struct{}, len(r.Tables))
	var names []string
	for _, t := range r.Tables {
		if _, ok := seen[t.Name]; ok {
			continue
		}
		seen[t.Name] = struct{}{}
		names = append(names, t.Name)
	}
	return names
}

func newResult() *Result {
	return &Result{
		Tables:          []*Table{},
		Columns:         []*Column{},
		Aliases:         []*Alias{},
		Functions:       []*Function{},
		Joins:           []*Join{},
		Subqueries:      []*Subquery{},
		WhereConditions: []string{},
		GroupBy:         []string{},
		OrderBy:         []*OrderBy{},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/pkg/diag"
	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/lineage"
	"github.com/leapstack-labs/polysql/pkg/token"
)

func newTestRenderer(mode OutputMode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestMode(t *testing.T) {
	assert.Equal(t, ModeJSON, Mode("json"))
	assert.Equal(t, ModeText, Mode("text"))
	assert.Equal(t, ModeMarkdown, Mode("markdown"))
	assert.Equal(t, ModeAuto, Mode(""))
	assert.Equal(t, ModeAuto, Mode("xml"))
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
	}
	for _, tt := range tests {
		r, _, _ := newTestRenderer(tt.mode, tt.isTTY)
		assert.Equal(t, tt.want, r.EffectiveMode(), "mode %s tty %v", tt.mode, tt.isTTY)
	}
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Tables", FormatHeader(2, "Tables"))
	assert.Equal(t, "# x", FormatHeader(0, "x"))
	assert.Equal(t, "```sql\nSELECT 1\n```", FormatCodeBlock("sql", "SELECT 1\n"))
	assert.Equal(t, "- **Query type:** Select", FormatKeyValue("Query type", "Select"))
}

func testRelation(t *testing.T) *executor.Relation {
	t.Helper()
	rel, err := executor.NewRelation([]string{"id", "name"}, [][]any{{1, "a"}, {2, nil}})
	require.NoError(t, err)
	return rel
}

func TestRelation_Text(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)
	require.NoError(t, r.Relation(testRelation(t)))

	s := out.String()
	assert.Contains(t, s, "id")
	assert.Contains(t, s, "name")
	assert.Contains(t, s, "NULL")
	assert.Contains(t, s, "(2 rows)")
	assert.NotContains(t, s, "\x1b[", "no styling without a terminal")
}

func TestRelation_Markdown(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)
	require.NoError(t, r.Relation(testRelation(t)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, "| id | name |", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "| ---"))
	assert.Equal(t, "(2 rows)", lines[len(lines)-1])
}

func TestRelation_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.Relation(testRelation(t)))

	var got struct {
		Success  bool             `json:"success"`
		RowCount int              `json:"row_count"`
		Columns  []string         `json:"columns"`
		Data     []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, 2, got.RowCount)
	assert.Equal(t, []string{"id", "name"}, got.Columns)
	assert.Equal(t, map[string]any{"id": float64(2), "name": nil}, got.Data[1])
}

func TestRelation_SingleRow(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)
	rel, err := executor.NewRelation([]string{"x"}, [][]any{{1}})
	require.NoError(t, err)
	require.NoError(t, r.Relation(rel))
	assert.Contains(t, out.String(), "(1 row)")
}

func TestDialects(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.Dialects([]string{"ansi", "duckdb"}, "ansi"))
	assert.JSONEq(t, `{"dialects": ["ansi", "duckdb"], "default": "ansi"}`, out.String())

	r, out, _ = newTestRenderer(ModeText, false)
	require.NoError(t, r.Dialects([]string{"ansi", "duckdb"}, "ansi"))
	assert.Contains(t, out.String(), "duckdb")
	assert.Contains(t, out.String(), "yes")
}

func TestKeyValues_SkipsEmpty(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)
	r.KeyValues([][2]string{{"Query type", "Select"}, {"Joins", ""}})
	assert.Equal(t, "- **Query type:** Select\n", out.String())
}

func selectFromDiagnostic() *diag.Diagnostic {
	src := "SELECT FROM t"
	span := token.Span{
		Start: token.Position{Offset: 7, Line: 1, Column: 8},
		End:   token.Position{Offset: 11, Line: 1, Column: 12},
	}
	return diag.At(diag.ParseError, src, span, "expected expression")
}

func TestLineage_Text(t *testing.T) {
	r, out, _ := newTestRenderer(ModeText, false)
	r.Lineage(&lineage.QueryLineage{
		Sources: []string{"users"},
		Columns: []*lineage.ColumnLineage{
			{Name: "id", Sources: []lineage.SourceColumn{{Table: "users", Column: "id"}}},
			{Name: "n", Sources: []lineage.SourceColumn{{Table: "users", Column: "id"}}, Transform: lineage.TransformExpression, Function: "COUNT"},
		},
	})

	s := out.String()
	assert.Contains(t, s, "Column")
	assert.Contains(t, s, "users.id")
	assert.Contains(t, s, "EXPR COUNT")
}

func TestDiagnostic_Text(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)
	require.NoError(t, r.Diagnostic(selectFromDiagnostic()))

	assert.Empty(t, out.String())
	lines := strings.Split(strings.TrimRight(errOut.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "parse error at line 1, column 8: expected expression", lines[0])
	assert.Equal(t, "  SELECT FROM t", lines[1])
	assert.Equal(t, "         ^^^^", lines[2])
}

func TestDiagnostic_Markdown(t *testing.T) {
	r, _, errOut := newTestRenderer(ModeMarkdown, false)
	require.NoError(t, r.Diagnostic(selectFromDiagnostic()))

	s := errOut.String()
	assert.Contains(t, s, "**ParseError**")
	assert.Contains(t, s, "```\nSELECT FROM t\n       ^^^^\n```")
}

func TestDiagnostic_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.Diagnostic(selectFromDiagnostic()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "ParseError", got["error_type"])
	assert.Equal(t, "expected expression", got["error_message"])
	details, ok := got["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(8), details["col"])
}

func TestError_PlainError(t *testing.T) {
	r, _, errOut := newTestRenderer(ModeText, false)
	require.NoError(t, r.Error(errors.New("boom")))
	assert.Equal(t, "Error: boom\n", errOut.String())

	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.Error(errors.New("boom")))
	assert.JSONEq(t, `{"success": false, "error_type": "Error", "error_message": "boom"}`, out.String())
}

func TestSQLAndSuccess(t *testing.T) {
	r, out, _ := newTestRenderer(ModeMarkdown, false)
	r.SQL("SELECT 1")
	r.Success("valid")
	assert.Equal(t, "```sql\nSELECT 1\n```\n**OK** valid\n", out.String())
}

package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/leapstack-labs/polysql/pkg/executor"
	"github.com/leapstack-labs/polysql/pkg/lineage"
)

// ExecuteOutput is the JSON form of a query result.
type ExecuteOutput struct {
	Success  bool               `json:"success"`
	RowCount int                `json:"row_count"`
	Columns  []string           `json:"columns"`
	Data     *executor.Relation `json:"data"`
}

// DialectsOutput is the JSON form of the dialect list.
type DialectsOutput struct {
	Dialects []string `json:"dialects"`
	Default  string   `json:"default"`
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)
	return t
}

func (r *Renderer) flush(t table.Writer) {
	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

// Relation writes a query result as a table, or as ExecuteOutput in JSON
// mode.
func (r *Renderer) Relation(rel *executor.Relation) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(ExecuteOutput{
			Success:  true,
			RowCount: rel.Len(),
			Columns:  rel.Columns,
			Data:     rel,
		})
	}

	if len(rel.Columns) > 0 {
		t := r.newTable()
		header := make(table.Row, len(rel.Columns))
		for i, c := range rel.Columns {
			header[i] = c
		}
		t.AppendHeader(header)
		for _, row := range rel.Rows {
			cells := make(table.Row, len(row))
			for i, v := range row {
				cells[i] = executor.Text(v)
			}
			t.AppendRow(cells)
		}
		r.flush(t)
	}
	r.Println(r.Muted(rowCount(rel.Len())))
	return nil
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}

// KeyValues writes labelled values as a two-column table. Rows with an
// empty value are skipped.
func (r *Renderer) KeyValues(rows [][2]string) {
	if r.EffectiveMode() == ModeMarkdown {
		for _, kv := range rows {
			if kv[1] != "" {
				r.Println(FormatKeyValue(kv[0], kv[1]))
			}
		}
		return
	}
	t := r.newTable()
	for _, kv := range rows {
		if kv[1] != "" {
			t.AppendRow(table.Row{r.styles.Bold.Render(kv[0]), kv[1]})
		}
	}
	t.Render()
}

// Dialects writes the registered dialect names, marking the default.
func (r *Renderer) Dialects(names []string, def string) error {
	if r.EffectiveMode() == ModeJSON {
		return r.JSON(DialectsOutput{Dialects: names, Default: def})
	}
	t := r.newTable()
	t.AppendHeader(table.Row{"Dialect", "Default"})
	for _, name := range names {
		mark := ""
		if name == def {
			mark = "yes"
		}
		t.AppendRow(table.Row{name, mark})
	}
	r.flush(t)
	return nil
}

// Lineage writes one row per output column with its source columns.
func (r *Renderer) Lineage(res *lineage.QueryLineage) {
	t := r.newTable()
	t.AppendHeader(table.Row{"Column", "Sources", "Transform"})
	for _, c := range res.Columns {
		sources := make([]string, len(c.Sources))
		for i, s := range c.Sources {
			sources[i] = s.String()
		}
		transform := string(c.Transform)
		if c.Function != "" {
			transform = strings.TrimSpace(transform + " " + c.Function)
		}
		t.AppendRow(table.Row{c.Name, strings.Join(sources, ", "), transform})
	}
	r.flush(t)
}

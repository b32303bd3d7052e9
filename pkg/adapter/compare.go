package adapter

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/leapstack-labs/polysql/pkg/executor"
)

// floatTolerance is the relative difference under which two numbers match.
const floatTolerance = 1e-9

// MismatchError reports where a backend result differs from the executor's.
type MismatchError struct {
	Row    int
	Column int
	Want   executor.Value
	Got    executor.Value
	Reason string
}

func (e *MismatchError) Error() string {
	if e.Reason != "" {
		return "result mismatch: " + e.Reason
	}
	return fmt.Sprintf("result mismatch at row %d, column %d: want %s, got %s",
		e.Row+1, e.Column+1, executor.Text(e.Want), executor.Text(e.Got))
}

// Compare checks that two relations hold the same rows. Column names are
// not compared since backends name unaliased expressions differently.
// Unless ordered is set, rows are compared as multisets. Integers and
// floats compare numerically and booleans match 0/1 integers.
func Compare(want, got *executor.Relation, ordered bool) error {
	if len(want.Columns) != len(got.Columns) {
		return &MismatchError{Reason: fmt.Sprintf("want %d columns, got %d", len(want.Columns), len(got.Columns))}
	}
	if len(want.Rows) != len(got.Rows) {
		return &MismatchError{Reason: fmt.Sprintf("want %d rows, got %d", len(want.Rows), len(got.Rows))}
	}

	wantRows, gotRows := want.Rows, got.Rows
	if !ordered {
		wantRows, gotRows = sortedRows(wantRows), sortedRows(gotRows)
	}

	for i := range wantRows {
		for j := range wantRows[i] {
			if !ValuesMatch(wantRows[i][j], gotRows[i][j]) {
				return &MismatchError{Row: i, Column: j, Want: wantRows[i][j], Got: gotRows[i][j]}
			}
		}
	}
	return nil
}

// ValuesMatch compares two cells loosely across backend representations.
func ValuesMatch(a, b executor.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return numbersMatch(x, y)
		}
	}
	switch x := a.(type) {
	case string:
		return x == executor.Text(b)
	case []executor.Value:
		y, ok := b.([]executor.Value)
		if !ok {
			return executor.Text(a) == executor.Text(b)
		}
		return slices.EqualFunc(x, y, ValuesMatch)
	}
	return executor.Text(a) == executor.Text(b)
}

func number(v executor.Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func numbersMatch(x, y float64) bool {
	if x == y {
		return true
	}
	diff := math.Abs(x - y)
	scale := math.Max(math.Abs(x), math.Abs(y))
	return diff <= floatTolerance*math.Max(scale, 1)
}

// sortedRows orders a copy of rows by a canonical text key. Numbers are
// keyed by their float value so 1 and 1.0 sort together.
func sortedRows(rows [][]executor.Value) [][]executor.Value {
	type keyed struct {
		key string
		row []executor.Value
	}
	ks := make([]keyed, len(rows))
	for i, row := range rows {
		var b strings.Builder
		for _, v := range row {
			if n, ok := number(v); ok {
				fmt.Fprintf(&b, "n%.9g", n)
			} else if v == nil {
				b.WriteString("\x00")
			} else {
				b.WriteString("s" + executor.Text(v))
			}
			b.WriteByte('\x1f')
		}
		ks[i] = keyed{key: b.String(), row: row}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int { return strings.Compare(a.key, b.key) })

	out := make([][]executor.Value, len(ks))
	for i, k := range ks {
		out[i] = k.row
	}
	return out
}

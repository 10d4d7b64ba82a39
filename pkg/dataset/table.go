package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a 2-D labeled matrix: ordered row labels crossed with ordered
// column labels. Every cell keeps both a numeric view (NaN when missing or
// non-numeric) and the raw text, so categorical tables such as the sample
// annotation table keep their string values without a separate type.
type Table struct {
	Name string

	rows []string
	cols []string

	rowIdx map[string]int
	colIdx map[string]int

	vals [][]float64 // row-major
	text [][]string  // row-major, "" when missing
}

// NewTable allocates a table with every cell missing.
func NewTable(name string, rows, cols []string) *Table {
	t := &Table{
		Name:   name,
		rows:   append([]string(nil), rows...),
		cols:   append([]string(nil), cols...),
		rowIdx: make(map[string]int, len(rows)),
		colIdx: make(map[string]int, len(cols)),
		vals:   make([][]float64, len(rows)),
		text:   make([][]string, len(rows)),
	}
	for i, r := range t.rows {
		t.rowIdx[r] = i
		t.vals[i] = make([]float64, len(cols))
		t.text[i] = make([]string, len(cols))
		for j := range t.vals[i] {
			t.vals[i][j] = math.NaN()
		}
	}
	for j, c := range t.cols {
		t.colIdx[c] = j
	}
	return t
}

// FromValues builds a numeric table from row-major values. The values are
// copied.
func FromValues(name string, rows, cols []string, vals [][]float64) (*Table, error) {
	if len(vals) != len(rows) {
		return nil, fmt.Errorf("dataset: %d rows but %d value rows", len(rows), len(vals))
	}
	t := NewTable(name, rows, cols)
	for i := range vals {
		if len(vals[i]) != len(cols) {
			return nil, fmt.Errorf("dataset: row %q has %d values, want %d", rows[i], len(vals[i]), len(cols))
		}
		for j, v := range vals[i] {
			t.Set(i, j, v)
		}
	}
	return t, nil
}

// Rows returns the ordered row labels. The slice is shared; callers must not
// modify it.
func (t *Table) Rows() []string { return t.rows }

// Cols returns the ordered column labels. The slice is shared.
func (t *Table) Cols() []string { return t.cols }

// Shape returns (number of rows, number of columns).
func (t *Table) Shape() (int, int) { return len(t.rows), len(t.cols) }

// RowIndex reports the position of a row label.
func (t *Table) RowIndex(label string) (int, bool) {
	i, ok := t.rowIdx[label]
	return i, ok
}

// ColIndex reports the position of a column label.
func (t *Table) ColIndex(label string) (int, bool) {
	j, ok := t.colIdx[label]
	return j, ok
}

// HasCol reports whether the column label exists.
func (t *Table) HasCol(label string) bool {
	_, ok := t.colIdx[label]
	return ok
}

// HasRow reports whether the row label exists.
func (t *Table) HasRow(label string) bool {
	_, ok := t.rowIdx[label]
	return ok
}

// At returns the numeric value at (i, j).
func (t *Table) At(i, j int) float64 { return t.vals[i][j] }

// TextAt returns the raw cell text at (i, j).
func (t *Table) TextAt(i, j int) string { return t.text[i][j] }

// Set stores a numeric value, keeping the text view in sync.
func (t *Table) Set(i, j int, v float64) {
	t.vals[i][j] = v
	if math.IsNaN(v) {
		t.text[i][j] = ""
	} else {
		t.text[i][j] = strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// SetText stores a raw cell, parsing a numeric view when possible.
func (t *Table) SetText(i, j int, s string) {
	t.text[i][j] = s
	t.vals[i][j] = parseCell(s)
}

// parseCell maps text to its numeric view. Empty strings and the usual
// missing markers become NaN.
func parseCell(s string) float64 {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "na", "nan", "null", "none":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// RowAt returns the numeric values of row i. The slice is shared.
func (t *Table) RowAt(i int) []float64 { return t.vals[i] }

// Row returns a copy of the numeric values of the labeled row.
func (t *Table) Row(label string) ([]float64, bool) {
	i, ok := t.rowIdx[label]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(t.cols))
	copy(out, t.vals[i])
	return out, true
}

// Col returns a copy of the numeric values of the labeled column.
func (t *Table) Col(label string) ([]float64, bool) {
	j, ok := t.colIdx[label]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(t.rows))
	for i := range t.rows {
		out[i] = t.vals[i][j]
	}
	return out, true
}

// TextCol returns a copy of the raw text of the labeled column.
func (t *Table) TextCol(label string) ([]string, bool) {
	j, ok := t.colIdx[label]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.rows))
	for i := range t.rows {
		out[i] = t.text[i][j]
	}
	return out, true
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := NewTable(t.Name, t.rows, t.cols)
	for i := range t.vals {
		copy(out.vals[i], t.vals[i])
		copy(out.text[i], t.text[i])
	}
	return out
}

// Transpose returns a new table with rows and columns swapped.
func (t *Table) Transpose() *Table {
	out := NewTable(t.Name, t.cols, t.rows)
	for i := range t.rows {
		for j := range t.cols {
			out.vals[j][i] = t.vals[i][j]
			out.text[j][i] = t.text[i][j]
		}
	}
	return out
}

// SelectRows returns a table restricted to the given row labels in the given
// order. A label that does not exist is an error.
func (t *Table) SelectRows(labels []string) (*Table, error) {
	out := NewTable(t.Name, labels, t.cols)
	for k, label := range labels {
		i, ok := t.rowIdx[label]
		if !ok {
			return nil, fmt.Errorf("dataset: row %q not in table %q", label, t.Name)
		}
		copy(out.vals[k], t.vals[i])
		copy(out.text[k], t.text[i])
	}
	return out, nil
}

// RestrictCols returns a table with only the requested column labels that
// exist, preserving the requested order.
func (t *Table) RestrictCols(labels []string) *Table {
	keep := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := t.colIdx[label]; ok {
			keep = append(keep, label)
		}
	}
	out := NewTable(t.Name, t.rows, keep)
	for i := range t.rows {
		for k, label := range keep {
			j := t.colIdx[label]
			out.vals[i][k] = t.vals[i][j]
			out.text[i][k] = t.text[i][j]
		}
	}
	return out
}

// DropAllNaNCols removes columns whose numeric view is entirely missing.
func (t *Table) DropAllNaNCols() *Table {
	keep := make([]string, 0, len(t.cols))
	for j, c := range t.cols {
		for i := range t.rows {
			if !math.IsNaN(t.vals[i][j]) {
				keep = append(keep, c)
				break
			}
		}
	}
	if len(keep) == len(t.cols) {
		return t
	}
	return t.RestrictCols(keep)
}

// DropAllNaNRows removes rows whose numeric view is entirely missing.
func (t *Table) DropAllNaNRows() *Table {
	keep := make([]string, 0, len(t.rows))
	for i, r := range t.rows {
		for j := range t.cols {
			if !math.IsNaN(t.vals[i][j]) {
				keep = append(keep, r)
				break
			}
		}
	}
	if len(keep) == len(t.rows) {
		return t
	}
	out, _ := t.SelectRows(keep)
	return out
}

// DropConstantRows removes rows whose non-missing values are all identical,
// unless every row is constant, in which case the table is returned as is.
func (t *Table) DropConstantRows() *Table {
	constant := func(row []float64) bool {
		lo, hi := math.Inf(1), math.Inf(-1)
		n := 0
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			n++
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		return n > 0 && lo == hi
	}
	allConst := true
	for i := range t.rows {
		if !constant(t.vals[i]) {
			allConst = false
			break
		}
	}
	if allConst {
		return t
	}
	keep := make([]string, 0, len(t.rows))
	for i, r := range t.rows {
		if !constant(t.vals[i]) {
			keep = append(keep, r)
		}
	}
	out, _ := t.SelectRows(keep)
	return out
}

// DropSparseRows removes rows with too many missing values. A threshold of
// at most 1 is the minimum allowed fraction of non-missing entries; above 1
// it is the minimum allowed count.
func (t *Table) DropSparseRows(thresh float64) *Table {
	if len(t.cols) == 0 {
		return t
	}
	keep := make([]string, 0, len(t.rows))
	for i, r := range t.rows {
		n := 0
		for _, v := range t.vals[i] {
			if !math.IsNaN(v) {
				n++
			}
		}
		if thresh <= 1 {
			if float64(n)/float64(len(t.cols)) >= thresh {
				keep = append(keep, r)
			}
		} else if float64(n) >= thresh {
			keep = append(keep, r)
		}
	}
	if len(keep) == len(t.rows) {
		return t
	}
	out, _ := t.SelectRows(keep)
	return out
}

// NonMissingCount counts the non-NaN entries of row i.
func (t *Table) NonMissingCount(i int) int {
	n := 0
	for _, v := range t.vals[i] {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Intersect returns the labels present in both ordered label sets, keeping
// the order of a.
func Intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

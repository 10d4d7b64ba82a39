package dataset

import "strings"

// DefaultPalette is the fallback group color cycle, used whenever the color
// table does not cover a grouping column.
var DefaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// ColorMap returns the mapping from category column to group value to display
// color, derived from the color table. The outer map is empty when no color
// table is loaded.
func (d *Dataset) ColorMap() map[string]map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]map[string]string, len(d.colorMap))
	for col, m := range d.colorMap {
		inner := make(map[string]string, len(m))
		for k, v := range m {
			inner[k] = v
		}
		out[col] = inner
	}
	return out
}

// rebuildColorMap derives the color map from the color table (rows indexed
// by category-column + group value) restricted to columns the category table
// actually carries.
func (d *Dataset) rebuildColorMap() {
	d.mu.Lock()
	defer d.mu.Unlock()

	color, ok := d.tables["color"]
	if !ok {
		return
	}
	category := d.tables["category"]

	m := make(map[string]map[string]string)
	for i, label := range color.Rows() {
		parts := strings.SplitN(label, indexJoin, 2)
		if len(parts) != 2 {
			continue
		}
		col, value := parts[0], parts[1]
		if category != nil && !category.HasCol(col) {
			continue
		}
		hex := ""
		for j := range color.Cols() {
			if s := color.TextAt(i, j); s != "" {
				hex = s
				break
			}
		}
		if hex == "" {
			continue
		}
		if m[col] == nil {
			m[col] = make(map[string]string)
		}
		m[col][value] = hex
	}
	d.colorMap = m
}

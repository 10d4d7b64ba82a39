package group

import (
	"fmt"
	"math"
	"strings"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// assemble builds the result table. For two groups the ratio column always
// reads dividend-over/minus-divisor regardless of discovery order; when any
// summary value is negative the "ratio" degrades to a difference so division
// cannot flip signs.
func (c *Comparator) assemble() error {
	summary := c.params[c.cfg.ParamMethod]
	nr, _ := c.data.Shape()

	var cols []string
	var blocks [][]float64

	for g, key := range c.groupValues {
		cols = append(cols, key+"_"+c.cfg.ParamMethod)
		blocks = append(blocks, summary[g])
	}

	if len(c.groupValues) == 2 {
		negative := false
		for g := range summary {
			for _, v := range summary[g] {
				if v < 0 {
					negative = true
					break
				}
			}
		}
		c.divisor, c.dividend = c.groupValues[0], c.groupValues[1]
		c.inverted = true
		if c.cfg.Dividend == c.groupValues[0] {
			c.dividend, c.divisor = c.groupValues[0], c.groupValues[1]
			c.inverted = false
		}

		ratio := make([]float64, nr)
		for i := 0; i < nr; i++ {
			if negative {
				ratio[i] = summary[0][i] - summary[1][i]
				if c.inverted {
					ratio[i] = -ratio[i]
				}
			} else {
				ratio[i] = summary[0][i] / summary[1][i]
				if c.inverted {
					ratio[i] = 1 / ratio[i]
				}
			}
		}
		cols = append(cols, c.dividend+"_vs_"+c.divisor)
		blocks = append(blocks, ratio)
	}

	cols = append(cols, c.inferNames...)
	blocks = append(blocks, c.infer...)

	for g, key := range c.groupValues {
		cols = append(cols, key+"_percentage")
		blocks = append(blocks, c.params["percentage"][g])
	}

	vals := make([][]float64, nr)
	for i := 0; i < nr; i++ {
		row := make([]float64, len(blocks))
		for j, b := range blocks {
			row[j] = b[i]
		}
		vals[i] = row
	}
	name := c.cfg.TableName + "_" + strings.Join(c.cfg.GroupName, "_")
	t, err := dataset.FromValues(name, c.data.Rows(), cols, vals)
	if err != nil {
		return fmt.Errorf("group: assemble result table: %w", err)
	}
	c.table = t
	return nil
}

// Table returns the assembled result table restricted to features whose
// non-missing fraction exceeds the threshold in at least one group. It is
// nil before Run or when only one group was resolved.
func (c *Comparator) Table() *dataset.Table {
	if c.table == nil {
		return nil
	}
	keep := make([]string, 0, len(c.outMask))
	for i, row := range c.table.Rows() {
		if c.outMask[i] {
			keep = append(keep, row)
		}
	}
	out, _ := c.table.SelectRows(keep)
	return out
}

// ParamTable exposes every per-group summary block (mean, median, standard
// deviation, cv, count, percentage) without the retained-feature mask.
func (c *Comparator) ParamTable() *dataset.Table {
	if c.data == nil {
		return nil
	}
	kinds := []string{"mean", "median", "std", "cv", "count", "percentage"}
	var cols []string
	var blocks [][]float64
	for _, kind := range kinds {
		for g, key := range c.groupValues {
			cols = append(cols, key+"_"+kind)
			blocks = append(blocks, c.params[kind][g])
		}
	}
	nr, _ := c.data.Shape()
	vals := make([][]float64, nr)
	for i := 0; i < nr; i++ {
		row := make([]float64, len(blocks))
		for j, b := range blocks {
			row[j] = b[i]
		}
		vals[i] = row
	}
	t, _ := dataset.FromValues("param", c.data.Rows(), cols, vals)
	return t
}

// Data returns the restricted target table the statistics were computed on.
func (c *Comparator) Data() *dataset.Table { return c.data }

// GroupValues returns the group keys in first-appearance order.
func (c *Comparator) GroupValues() []string {
	return append([]string(nil), c.groupValues...)
}

// SampleGroups maps each retained sample to its group key.
func (c *Comparator) SampleGroups() map[string]string {
	out := make(map[string]string, len(c.sampleKeys))
	for _, sample := range c.data.Cols() {
		out[sample] = c.sampleKeys[sample]
	}
	return out
}

// Dividend returns the numerator/minuend group of the ratio column.
func (c *Comparator) Dividend() string { return c.dividend }

// RetainedMask reports, per feature of Data, whether the feature passes the
// non-missing threshold in at least one group.
func (c *Comparator) RetainedMask() []bool {
	return append([]bool(nil), c.outMask...)
}

// MergeDataGroup returns a long-form table of the selected features joined
// with the group key, rows = samples, for the plotting layer. Unknown
// features are skipped.
func (c *Comparator) MergeDataGroup(features ...string) *dataset.Table {
	if c.data == nil {
		return nil
	}
	var kept []string
	for _, f := range features {
		if c.data.HasRow(f) {
			kept = append(kept, f)
		}
	}
	samples := c.data.Cols()
	cols := append(append([]string(nil), kept...), "group")
	out := dataset.NewTable("merged", samples, cols)
	for i, sample := range samples {
		for k, f := range kept {
			ri, _ := c.data.RowIndex(f)
			v := c.data.At(ri, i)
			if !math.IsNaN(v) {
				out.Set(i, k, v)
			}
		}
		out.SetText(i, len(kept), c.sampleKeys[sample])
	}
	return out
}

// Palette returns the group-to-color mapping.
func (c *Comparator) Palette() map[string]string {
	out := make(map[string]string, len(c.palette))
	for k, v := range c.palette {
		out[k] = v
	}
	return out
}

// derivePalette resolves group colors: an explicit palette wins; otherwise
// the dataset color map is used when exactly one label column pivots the
// grouping (matching keys either exactly or as a component of a combined
// key); the default cycle covers the rest.
func (c *Comparator) derivePalette() {
	if len(c.cfg.Palette) > 0 {
		c.palette = c.cfg.Palette
		return
	}
	pivot := ""
	pivots := 0
	if len(c.cfg.PartElements) == 0 {
		if len(c.cfg.GroupName) == 1 {
			pivot, pivots = c.cfg.GroupName[0], 1
		}
	} else {
		for k, allowed := range c.cfg.PartElements {
			if len(allowed) != 1 {
				pivots++
				pivot = c.cfg.GroupName[k]
			}
		}
	}

	c.palette = make(map[string]string, len(c.groupValues))
	if pivots == 1 {
		if fromFile, ok := c.ds.ColorMap()[pivot]; ok {
			for _, key := range c.groupValues {
				if color, ok := fromFile[key]; ok {
					c.palette[key] = color
					continue
				}
				for value, color := range fromFile {
					if strings.Contains(key, value) {
						c.palette[key] = color
						break
					}
				}
			}
		}
	}
	for i, key := range c.groupValues {
		if _, ok := c.palette[key]; !ok {
			c.palette[key] = dataset.DefaultPalette[i%len(dataset.DefaultPalette)]
		}
	}
}

package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// Count table kinds.
const (
	CountPlain        = "count"
	CountAccumulative = "accumulative"
	CountRange        = "range"
)

// CountTable summarizes one column of a named table for plotting:
//
//	count         frequency of each distinct text value
//	accumulative  frequencies plus a running total, sorted descending
//	range         ten equal-width bins over the numeric values
func (s *Session) CountTable(tableName, column, kind string) (*dataset.Table, error) {
	t, err := s.ds.MustTable(tableName)
	if err != nil {
		return nil, err
	}
	switch kind {
	case CountPlain, CountAccumulative:
		return countDistinct(t, column, kind == CountAccumulative)
	case CountRange:
		return countRanges(t, column)
	default:
		return nil, fmt.Errorf("analysis: unknown count kind %q", kind)
	}
}

func countDistinct(t *dataset.Table, column string, accumulative bool) (*dataset.Table, error) {
	texts, ok := t.TextCol(column)
	if !ok {
		return nil, fmt.Errorf("analysis: no column %q in %q", column, t.Name)
	}
	counts := make(map[string]int)
	for _, v := range texts {
		if v != "" {
			counts[v]++
		}
	}
	labels := make([]string, 0, len(counts))
	for v := range counts {
		labels = append(labels, v)
	}
	sort.Slice(labels, func(a, b int) bool {
		if counts[labels[a]] != counts[labels[b]] {
			return counts[labels[a]] > counts[labels[b]]
		}
		return labels[a] < labels[b]
	})

	cols := []string{"count"}
	if accumulative {
		cols = append(cols, "accumulative")
	}
	vals := make([][]float64, len(labels))
	running := 0
	for i, label := range labels {
		running += counts[label]
		row := []float64{float64(counts[label])}
		if accumulative {
			row = append(row, float64(running))
		}
		vals[i] = row
	}
	return dataset.FromValues(t.Name+"_"+column+"_count", labels, cols, vals)
}

func countRanges(t *dataset.Table, column string) (*dataset.Table, error) {
	const bins = 10
	col, ok := t.Col(column)
	if !ok {
		return nil, fmt.Errorf("analysis: no column %q in %q", column, t.Name)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	var clean []float64
	for _, v := range col {
		if math.IsNaN(v) {
			continue
		}
		clean = append(clean, v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("analysis: column %q of %q is entirely missing", column, t.Name)
	}
	width := (hi - lo) / bins
	if width == 0 {
		width = 1
	}
	counts := make([]int, bins)
	for _, v := range clean {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
	}
	labels := make([]string, bins)
	vals := make([][]float64, bins)
	for b := 0; b < bins; b++ {
		labels[b] = fmt.Sprintf("%.3g-%.3g", lo+float64(b)*width, lo+float64(b+1)*width)
		vals[b] = []float64{float64(counts[b])}
	}
	return dataset.FromValues(t.Name+"_"+column+"_range", labels, []string{"count"}, vals)
}

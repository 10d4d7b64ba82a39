package correlate

import (
	"fmt"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// ResultTable assembles the combined single results table: one row per
// compared element, one column per computed statistic. It is only valid for
// the pairwise paths (one-vs-many, corresponding); cross-product runs and
// globally corrected many-vs-many runs return ErrMatrixOnly.
func (c *Correlator) ResultTable() (*dataset.Table, error) {
	if !c.pairwise || (len(c.rows1) > 1 && c.cfg.FDRType != "local") {
		return nil, ErrMatrixOnly
	}
	cols := append([]string(nil), c.order...)
	nr := len(c.index)
	vals := make([][]float64, nr)
	for i := 0; i < nr; i++ {
		row := make([]float64, len(cols))
		for j, name := range cols {
			row[j] = c.vectors[name][i]
		}
		vals[i] = row
	}
	name := c.name1 + "_" + c.name2
	return dataset.FromValues(name, c.index, cols, vals)
}

// Matrix returns one per-statistic result by name (for example
// "pearson_corr", "spearman_fdr"). Pairwise runs expose their vectors as
// single-column matrices.
func (c *Correlator) Matrix(name string) (*dataset.Table, error) {
	if m, ok := c.matrices[name]; ok {
		return m, nil
	}
	if v, ok := c.vectors[name]; ok {
		vals := make([][]float64, len(v))
		for i := range v {
			vals[i] = []float64{v[i]}
		}
		return dataset.FromValues(name, c.index, []string{name}, vals)
	}
	return nil, fmt.Errorf("correlate: no computed statistic %q", name)
}

// Statistics lists the computed statistic names in computation order.
func (c *Correlator) Statistics() []string {
	return append([]string(nil), c.order...)
}

// FrequencyMask flags, per comparison of the pairwise paths, whether the
// valid-pair frequency exceeds the configured threshold. Flagged-false
// comparisons stay in the tables for downstream filtering.
func (c *Correlator) FrequencyMask() []bool {
	return append([]bool(nil), c.freqMask...)
}

// writeOut serializes every computed statistic into the project document
// directory as <name1>_<name2>_<stat>.<format>.
func (c *Correlator) writeOut() error {
	for _, name := range c.order {
		t, err := c.Matrix(name)
		if err != nil {
			return err
		}
		out := c.name1 + "_" + c.name2 + "_" + name
		if err := c.ds.Write(t, out, c.cfg.WriteOut); err != nil {
			return fmt.Errorf("correlate: write %s: %w", out, err)
		}
	}
	return nil
}

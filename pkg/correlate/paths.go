package correlate

import (
	"fmt"
	"math"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/stats"
)

// oneVsMany correlates the single selected row of the first table against
// every selected row of the second, over the aligned sample columns.
func (c *Correlator) oneVsMany(t1, t2 *dataset.Table, e1, e2, universe []string) error {
	d1, err := t1.SelectRows(e1)
	if err != nil {
		return err
	}
	d1 = d1.DropAllNaNCols()
	cols := dataset.Intersect(universe, d1.Cols())

	d2, err := t2.SelectRows(e2)
	if err != nil {
		return err
	}
	d2 = d2.RestrictCols(cols).
		DropAllNaNCols().
		DropConstantRows().
		DropSparseRows(c.cfg.Thresh)
	cols = dataset.Intersect(cols, d2.Cols())
	d1 = d1.RestrictCols(cols)
	d2 = d2.RestrictCols(cols)

	c.rows1, c.rows2 = d1.Rows(), d2.Rows()
	c.index = d2.Rows()
	c.pairwise = true

	base := d1.RowAt(0)
	baseValid := float64(stats.Count(base))
	n := len(c.rows2)

	counts := make([]float64, n)
	freq := make([]float64, n)
	for i := 0; i < n; i++ {
		res := stats.Pearson(base, d2.RowAt(i))
		counts[i] = float64(res.Count)
		freq[i] = counts[i] / baseValid
	}
	c.pushVector("count", counts)
	c.pushVector("frequence", freq)
	c.freqMask = make([]bool, n)
	for i := range freq {
		c.freqMask[i] = freq[i] > c.cfg.Thresh
	}

	for _, algorithm := range c.algorithms() {
		corr := make([]float64, n)
		prob := make([]float64, n)
		for i := 0; i < n; i++ {
			var res stats.PairwiseResult
			if algorithm == "spearman" {
				res = stats.Spearman(base, d2.RowAt(i))
			} else {
				res = stats.Pearson(base, d2.RowAt(i))
			}
			corr[i] = res.Coefficient
			prob[i] = stats.CorrPValue(res.Coefficient, res.DF)
		}
		fdr, err := stats.AdjustPValues(prob, c.cfg.FDRMethod)
		if err != nil {
			return err
		}
		c.pushVector(corrColumnName(algorithm), corr)
		c.pushVector(algorithm+"_pvalues", prob)
		c.pushVector(algorithm+"_fdr", fdr)
	}
	return nil
}

// corresponding correlates the shared row index of both selections, one
// comparison per shared element over the aligned sample columns.
func (c *Correlator) corresponding(t1, t2 *dataset.Table, e1, e2, universe []string) error {
	cols := dataset.Intersect(dataset.Intersect(t1.Cols(), t2.Cols()), universe)

	d1, err := t1.SelectRows(e1)
	if err != nil {
		return err
	}
	d1 = d1.RestrictCols(cols).DropConstantRows().DropSparseRows(c.cfg.Thresh)
	d2, err := t2.SelectRows(e2)
	if err != nil {
		return err
	}
	d2 = d2.RestrictCols(cols).DropConstantRows().DropSparseRows(c.cfg.Thresh)

	shared := dataset.Intersect(d1.Rows(), d2.Rows())
	if len(shared) == 0 {
		return fmt.Errorf("correlate: %s and %s have no overlapped index", c.name1, c.name2)
	}
	d1, err = d1.SelectRows(shared)
	if err != nil {
		return err
	}
	d2, err = d2.SelectRows(shared)
	if err != nil {
		return err
	}

	c.rows1, c.rows2 = shared, shared
	c.index = shared
	c.pairwise = true
	n := len(shared)

	counts := make([]float64, n)
	freq1 := make([]float64, n)
	freq2 := make([]float64, n)
	for i := 0; i < n; i++ {
		res := stats.Pearson(d1.RowAt(i), d2.RowAt(i))
		counts[i] = float64(res.Count)
		freq1[i] = counts[i] / float64(stats.Count(d1.RowAt(i)))
		freq2[i] = counts[i] / float64(stats.Count(d2.RowAt(i)))
	}
	c.pushVector("count", counts)
	c.pushVector("frequence_"+c.name1, freq1)
	c.pushVector("frequence_"+c.name2, freq2)
	c.freqMask = make([]bool, n)
	for i := range freq1 {
		c.freqMask[i] = freq1[i] > c.cfg.Thresh && freq2[i] > c.cfg.Thresh
	}

	for _, algorithm := range c.algorithms() {
		corr := make([]float64, n)
		prob := make([]float64, n)
		for i := 0; i < n; i++ {
			var res stats.PairwiseResult
			if algorithm == "spearman" {
				res = stats.Spearman(d1.RowAt(i), d2.RowAt(i))
			} else {
				res = stats.Pearson(d1.RowAt(i), d2.RowAt(i))
			}
			corr[i] = res.Coefficient
			prob[i] = stats.CorrPValue(res.Coefficient, res.DF)
		}
		fdr, err := stats.AdjustPValues(prob, c.cfg.FDRMethod)
		if err != nil {
			return err
		}
		c.pushVector(corrColumnName(algorithm), corr)
		c.pushVector(algorithm+"_pvalues", prob)
		c.pushVector(algorithm+"_fdr", fdr)
	}
	return nil
}

// crossProduct computes the full element-pairwise correlation matrices with
// the batched path: missing values are zero-substituted and the
// standardized-product matrix is taken in one multiplication.
func (c *Correlator) crossProduct(t1, t2 *dataset.Table, e1, e2, universe []string) error {
	cols := dataset.Intersect(dataset.Intersect(t1.Cols(), t2.Cols()), universe)

	d1, err := t1.SelectRows(e1)
	if err != nil {
		return err
	}
	d1 = d1.RestrictCols(cols).DropConstantRows().DropSparseRows(c.cfg.Thresh)
	d2, err := t2.SelectRows(e2)
	if err != nil {
		return err
	}
	d2 = d2.RestrictCols(cols).DropConstantRows().DropSparseRows(c.cfg.Thresh)

	c.rows1, c.rows2 = d1.Rows(), d2.Rows()
	c.pairwise = false

	rows1 := zeroFilled(d1)
	rows2 := zeroFilled(d2)
	for _, algorithm := range c.algorithms() {
		corr, dof := stats.CorrMatrix(rows1, rows2, algorithm)
		nr, nc := corr.Dims()
		corrVals := make([][]float64, nr)
		probVals := make([][]float64, nr)
		flatProb := make([]float64, 0, nr*nc)
		for i := 0; i < nr; i++ {
			corrVals[i] = make([]float64, nc)
			probVals[i] = make([]float64, nc)
			for j := 0; j < nc; j++ {
				r := math.Max(-1, math.Min(1, corr.At(i, j)))
				corrVals[i][j] = r
				probVals[i][j] = stats.CorrPValue(r, dof)
				flatProb = append(flatProb, probVals[i][j])
			}
		}

		fdrVals := make([][]float64, nr)
		if c.cfg.FDRType == "global" {
			flat, err := stats.AdjustPValues(flatProb, c.cfg.FDRMethod)
			if err != nil {
				return err
			}
			for i := 0; i < nr; i++ {
				fdrVals[i] = flat[i*nc : (i+1)*nc]
			}
		} else {
			for i := 0; i < nr; i++ {
				adj, err := stats.AdjustPValues(probVals[i], c.cfg.FDRMethod)
				if err != nil {
					return err
				}
				fdrVals[i] = adj
			}
		}

		c.pushMatrix(corrColumnName(algorithm), d1.Rows(), d2.Rows(), corrVals)
		c.pushMatrix(algorithm+"_pvalues", d1.Rows(), d2.Rows(), probVals)
		c.pushMatrix(algorithm+"_fdr", d1.Rows(), d2.Rows(), fdrVals)
	}
	return nil
}

func zeroFilled(t *dataset.Table) [][]float64 {
	nr, nc := t.Shape()
	out := make([][]float64, nr)
	for i := 0; i < nr; i++ {
		row := make([]float64, nc)
		for j, v := range t.RowAt(i) {
			if math.IsNaN(v) {
				row[j] = 0
			} else {
				row[j] = v
			}
		}
		out[i] = row
	}
	return out
}

func (c *Correlator) pushVector(name string, v []float64) {
	if _, ok := c.vectors[name]; !ok {
		c.order = append(c.order, name)
	}
	c.vectors[name] = v
}

func (c *Correlator) pushMatrix(name string, rows, cols []string, vals [][]float64) {
	t, _ := dataset.FromValues(name, rows, cols, vals)
	if _, ok := c.matrices[name]; !ok {
		c.order = append(c.order, name)
	}
	c.matrices[name] = t
}

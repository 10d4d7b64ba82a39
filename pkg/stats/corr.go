package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// PairwiseResult is one pairwise correlation over the co-valid observations
// of two vectors.
type PairwiseResult struct {
	Coefficient float64
	Count       int // co-valid (both non-missing) observations
	DF          float64
}

// Pearson computes the Pearson correlation of x and y over pairwise-complete
// observations.
func Pearson(x, y []float64) PairwiseResult {
	xs, ys := pairwiseComplete(x, y)
	return pearsonClean(xs, ys)
}

// Spearman computes the Spearman rank correlation of x and y over
// pairwise-complete observations.
func Spearman(x, y []float64) PairwiseResult {
	xs, ys := pairwiseComplete(x, y)
	return pearsonClean(Ranks(xs), Ranks(ys))
}

func pairwiseComplete(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	return xs, ys
}

func pearsonClean(x, y []float64) PairwiseResult {
	n := len(x)
	if n < 3 {
		return PairwiseResult{Coefficient: math.NaN(), Count: n, DF: math.NaN()}
	}
	mx, my := Mean(x), Mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return PairwiseResult{Coefficient: math.NaN(), Count: n, DF: float64(n - 2)}
	}
	r := sxy / math.Sqrt(sxx*syy)
	// Guard rounding past the closed interval.
	r = math.Max(-1, math.Min(1, r))
	return PairwiseResult{Coefficient: r, Count: n, DF: float64(n - 2)}
}

// CorrPValue is the closed-form two-tailed p-value of a correlation
// coefficient via the t-distribution, shared by Pearson and Spearman.
func CorrPValue(r, df float64) float64 {
	if math.IsNaN(r) || df <= 0 {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(df/(1-r*r))
	return studentTwoSided(t, df)
}

// CorrMatrix computes the full cross-product correlation matrix between the
// rows of a and the rows of b, both over the same column set. Missing values
// must already be substituted (the caller zero-fills, matching the batched
// path of the correlation engine). method is "pearson" or "spearman"; the
// latter rank-transforms each row first. The returned matrix is
// len(a) x len(b); dof is n-2 where n is the shared column count.
func CorrMatrix(a, b [][]float64, method string) (*mat.Dense, float64) {
	n := 0
	if len(a) > 0 {
		n = len(a[0])
	}
	za := standardizeRows(a, method)
	zb := standardizeRows(b, method)

	var out mat.Dense
	out.Mul(za, zb.T())
	out.Scale(1/float64(n-1), &out)
	return &out, float64(n - 2)
}

// standardizeRows returns the row-standardized matrix (zero mean, unit
// sample variance per row), rank-transforming first for spearman.
func standardizeRows(rows [][]float64, method string) *mat.Dense {
	r := len(rows)
	c := 0
	if r > 0 {
		c = len(rows[0])
	}
	z := mat.NewDense(r, c, nil)
	for i, row := range rows {
		vals := row
		if method == "spearman" {
			vals = Ranks(row)
		}
		m := Mean(vals)
		sd := Std(vals)
		for j, v := range vals {
			if sd == 0 || math.IsNaN(sd) {
				z.Set(i, j, 0)
				continue
			}
			z.Set(i, j, (v-m)/sd)
		}
	}
	return z
}

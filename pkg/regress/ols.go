package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Fit is one fitted model: coefficient and p-value per design column, plus
// the pieces the ANOVA decomposition and the result table need.
type Fit struct {
	Outcome  string
	Family   string
	Formula  string
	Design   *Design
	Coef     []float64
	StdErr   []float64
	PValues  []float64
	ResidSS  float64 // OLS only
	ResidDF  float64
	RowNames []string // coefficient labels of the result table
}

// fitOLS solves the least-squares problem by QR and derives the classical
// coefficient covariance.
func fitOLS(d *Design, y []float64) (*Fit, error) {
	n, p := d.X.Dims()
	if n <= p {
		return nil, fmt.Errorf("regress: %d observations for %d parameters", n, p)
	}
	yv := mat.NewVecDense(n, y)
	var beta mat.VecDense
	if err := beta.SolveVec(d.X, yv); err != nil {
		return nil, fmt.Errorf("regress: singular design: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(d.X, &beta)
	var rss float64
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	dfResid := float64(n - p)
	sigma2 := rss / dfResid

	var xtx mat.Dense
	xtx.Mul(d.X.T(), d.X)
	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("regress: X'X not invertible: %w", err)
	}

	coef := make([]float64, p)
	se := make([]float64, p)
	pv := make([]float64, p)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dfResid}
	for j := 0; j < p; j++ {
		coef[j] = beta.AtVec(j)
		se[j] = math.Sqrt(sigma2 * xtxInv.At(j, j))
		if se[j] == 0 {
			pv[j] = math.NaN()
			continue
		}
		t := coef[j] / se[j]
		pv[j] = 2 * tdist.CDF(-math.Abs(t))
	}

	return &Fit{
		Family:   FamilyOLS,
		Formula:  d.Formula,
		Design:   d,
		Coef:     coef,
		StdErr:   se,
		PValues:  pv,
		ResidSS:  rss,
		ResidDF:  dfResid,
		RowNames: d.ColNames,
	}, nil
}

// residualSS refits y on a column subset of the design and returns the
// residual sum of squares; used by the type II decomposition.
func residualSS(d *Design, y []float64, dropTerm int) (float64, error) {
	drop := make(map[int]struct{})
	for _, c := range d.Terms[dropTerm].Columns {
		drop[c] = struct{}{}
	}
	n, p := d.X.Dims()
	keep := make([]int, 0, p)
	for j := 0; j < p; j++ {
		if _, ok := drop[j]; !ok {
			keep = append(keep, j)
		}
	}
	if len(keep) == 0 {
		// Null model: residuals around zero.
		var ss float64
		for _, v := range y {
			ss += v * v
		}
		return ss, nil
	}
	x := mat.NewDense(n, len(keep), nil)
	for i := 0; i < n; i++ {
		for k, j := range keep {
			x.Set(i, k, d.X.At(i, j))
		}
	}
	yv := mat.NewVecDense(n, y)
	var beta mat.VecDense
	if err := beta.SolveVec(x, yv); err != nil {
		return 0, err
	}
	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	var rss float64
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
	}
	return rss, nil
}

// outcomeVector extracts and validates the numeric outcome for the retained
// rows.
func outcomeVector(col []float64, frame rowIndexer, rows []string) []float64 {
	out := make([]float64, len(rows))
	for i, sample := range rows {
		ri, _ := frame.RowIndex(sample)
		out[i] = col[ri]
	}
	return out
}

type rowIndexer interface {
	RowIndex(label string) (int, bool)
}

// numericOutcomeOK reports whether a sample has a non-missing numeric
// outcome value.
func numericOutcomeOK(col []float64, frame rowIndexer) func(string) bool {
	return func(sample string) bool {
		i, ok := frame.RowIndex(sample)
		return ok && !math.IsNaN(col[i])
	}
}

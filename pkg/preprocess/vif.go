package preprocess

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// CalculateVIF iteratively removes collinear predictor columns. Each round
// scores every column with its variance inflation factor (an appended
// constant column participates in the regressions but is never scored) and
// drops the single highest-scoring column when it exceeds thresh, the first
// occurrence winning ties. The loop ends when every remaining column scores
// at or below thresh; a very low threshold can prune the table down to zero
// columns. Re-running on its own output with the same threshold is a no-op.
func CalculateVIF(t *dataset.Table, thresh float64, logger *zap.Logger) *dataset.Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	cur := t
	for {
		cols := cur.Cols()
		if len(cols) < 2 {
			return cur
		}
		scores := vifScores(cur)
		maxIdx, maxVIF := 0, math.Inf(-1)
		for j, v := range scores {
			if v > maxVIF {
				maxIdx, maxVIF = j, v
			}
		}
		if !(maxVIF > thresh) {
			return cur
		}
		logger.Info("dropping collinear column",
			zap.String("column", cols[maxIdx]),
			zap.Float64("vif", maxVIF))
		keep := make([]string, 0, len(cols)-1)
		for j, c := range cols {
			if j != maxIdx {
				keep = append(keep, c)
			}
		}
		cur = cur.RestrictCols(keep)
	}
}

// vifScores returns one VIF per column: 1/(1-R^2) of regressing the column
// on all the others plus an intercept, over complete rows only.
func vifScores(t *dataset.Table) []float64 {
	cols := t.Cols()
	nr, nc := t.Shape()

	// Complete rows only; a VIF over rows with holes is meaningless.
	var rows []int
	for i := 0; i < nr; i++ {
		ok := true
		for j := 0; j < nc; j++ {
			if math.IsNaN(t.At(i, j)) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, i)
		}
	}

	scores := make([]float64, nc)
	for target := range cols {
		if len(rows) <= nc {
			scores[target] = math.Inf(1)
			continue
		}
		x := mat.NewDense(len(rows), nc, nil) // others + constant
		y := mat.NewVecDense(len(rows), nil)
		for r, i := range rows {
			k := 0
			for j := 0; j < nc; j++ {
				if j == target {
					continue
				}
				x.Set(r, k, t.At(i, j))
				k++
			}
			x.Set(r, nc-1, 1)
			y.SetVec(r, t.At(i, target))
		}
		scores[target] = 1 / (1 - rSquared(x, y))
	}
	return scores
}

// rSquared is the coefficient of determination of the least-squares fit of y
// on x.
func rSquared(x *mat.Dense, y *mat.VecDense) float64 {
	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		return 0
	}
	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	n := y.Len()
	var mean float64
	for i := 0; i < n; i++ {
		mean += y.AtVec(i)
	}
	mean /= float64(n)

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		d := y.AtVec(i) - fitted.AtVec(i)
		ssRes += d * d
		dt := y.AtVec(i) - mean
		ssTot += dt * dt
	}
	if ssTot == 0 {
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if r2 >= 1 {
		return 1 - 1e-12
	}
	return r2
}

package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	glmMaxIter = 25
	glmTol     = 1e-8
)

// fitLogit fits a binomial model by iteratively reweighted least squares.
// labels must hold exactly two distinct values; the larger sorted level is
// coded 1.
func fitLogit(d *Design, labels []string) (*Fit, error) {
	levels := distinctSorted(labels)
	if len(levels) != 2 {
		return nil, fmt.Errorf("regress: logit outcome needs two levels, got %d", len(levels))
	}
	n, p := d.X.Dims()
	y := make([]float64, n)
	for i, l := range labels {
		if l == levels[1] {
			y[i] = 1
		}
	}

	beta := mat.NewVecDense(p, nil)
	w := make([]float64, n)
	z := make([]float64, n)
	var converged bool
	for iter := 0; iter < glmMaxIter; iter++ {
		var eta mat.VecDense
		eta.MulVec(d.X, beta)
		for i := 0; i < n; i++ {
			mu := 1 / (1 + math.Exp(-eta.AtVec(i)))
			// Clamp away from the boundary to keep the weights finite.
			if mu < 1e-10 {
				mu = 1e-10
			} else if mu > 1-1e-10 {
				mu = 1 - 1e-10
			}
			w[i] = mu * (1 - mu)
			z[i] = eta.AtVec(i) + (y[i]-mu)/w[i]
		}
		next, err := weightedSolve(d.X, w, z)
		if err != nil {
			return nil, fmt.Errorf("regress: logit iteration %d: %w", iter, err)
		}
		var delta float64
		for j := 0; j < p; j++ {
			delta += math.Abs(next.AtVec(j) - beta.AtVec(j))
		}
		beta = next
		if delta < glmTol {
			converged = true
			break
		}
	}
	if !converged {
		// Separation or near-separation; report what we have but flag it.
		return nil, fmt.Errorf("regress: logit did not converge in %d iterations", glmMaxIter)
	}

	cov, err := weightedCovariance(d.X, w)
	if err != nil {
		return nil, err
	}
	coef := make([]float64, p)
	se := make([]float64, p)
	pv := make([]float64, p)
	norm := distuv.UnitNormal
	for j := 0; j < p; j++ {
		coef[j] = beta.AtVec(j)
		se[j] = math.Sqrt(cov.At(j, j))
		if se[j] == 0 {
			pv[j] = math.NaN()
			continue
		}
		zj := coef[j] / se[j]
		pv[j] = 2 * norm.CDF(-math.Abs(zj))
	}
	return &Fit{
		Family:   FamilyLogit,
		Formula:  d.Formula,
		Design:   d,
		Coef:     coef,
		StdErr:   se,
		PValues:  pv,
		ResidDF:  float64(n - p),
		RowNames: d.ColNames,
	}, nil
}

// fitSoftmax fits a multinomial model by Newton-Raphson on the full block
// Hessian. The first sorted level is the reference class; coefficients and
// p-values are reported per non-reference class with the class name appended
// to the column label.
func fitSoftmax(d *Design, labels []string) (*Fit, error) {
	levels := distinctSorted(labels)
	k := len(levels)
	if k < 2 {
		return nil, fmt.Errorf("regress: softmax outcome needs at least two levels, got %d", k)
	}
	if k == 2 {
		fit, err := fitLogit(d, labels)
		if err != nil {
			return nil, err
		}
		fit.Family = FamilySoftmax
		return fit, nil
	}
	n, p := d.X.Dims()
	km := k - 1 // free classes
	dim := p * km

	y := make([]int, n)
	levelIdx := make(map[string]int, k)
	for i, l := range levels {
		levelIdx[l] = i
	}
	for i, l := range labels {
		y[i] = levelIdx[l]
	}

	beta := mat.NewVecDense(dim, nil)
	prob := mat.NewDense(n, k, nil)
	grad := mat.NewVecDense(dim, nil)
	hess := mat.NewDense(dim, dim, nil)
	var converged bool
	for iter := 0; iter < glmMaxIter; iter++ {
		softmaxProbs(d.X, beta, prob)

		grad.Zero()
		hess.Zero()
		for i := 0; i < n; i++ {
			for c := 1; c < k; c++ {
				ind := 0.0
				if y[i] == c {
					ind = 1
				}
				resid := ind - prob.At(i, c)
				for j := 0; j < p; j++ {
					gi := (c-1)*p + j
					grad.SetVec(gi, grad.AtVec(gi)+resid*d.X.At(i, j))
				}
			}
			for c1 := 1; c1 < k; c1++ {
				for c2 := 1; c2 < k; c2++ {
					wcc := -prob.At(i, c1) * prob.At(i, c2)
					if c1 == c2 {
						wcc += prob.At(i, c1)
					}
					for j1 := 0; j1 < p; j1++ {
						for j2 := 0; j2 < p; j2++ {
							r := (c1-1)*p + j1
							q := (c2-1)*p + j2
							hess.Set(r, q, hess.At(r, q)+wcc*d.X.At(i, j1)*d.X.At(i, j2))
						}
					}
				}
			}
		}

		var step mat.VecDense
		if err := step.SolveVec(hess, grad); err != nil {
			return nil, fmt.Errorf("regress: softmax iteration %d: %w", iter, err)
		}
		var delta float64
		for j := 0; j < dim; j++ {
			beta.SetVec(j, beta.AtVec(j)+step.AtVec(j))
			delta += math.Abs(step.AtVec(j))
		}
		if delta < glmTol {
			converged = true
			break
		}
	}
	if !converged {
		return nil, fmt.Errorf("regress: softmax did not converge in %d iterations", glmMaxIter)
	}

	softmaxProbs(d.X, beta, prob)
	hess.Zero()
	for i := 0; i < n; i++ {
		for c1 := 1; c1 < k; c1++ {
			for c2 := 1; c2 < k; c2++ {
				wcc := -prob.At(i, c1) * prob.At(i, c2)
				if c1 == c2 {
					wcc += prob.At(i, c1)
				}
				for j1 := 0; j1 < p; j1++ {
					for j2 := 0; j2 < p; j2++ {
						r := (c1-1)*p + j1
						q := (c2-1)*p + j2
						hess.Set(r, q, hess.At(r, q)+wcc*d.X.At(i, j1)*d.X.At(i, j2))
					}
				}
			}
		}
	}
	var cov mat.Dense
	if err := cov.Inverse(hess); err != nil {
		return nil, fmt.Errorf("regress: softmax information matrix not invertible: %w", err)
	}

	coef := make([]float64, dim)
	se := make([]float64, dim)
	pv := make([]float64, dim)
	names := make([]string, dim)
	norm := distuv.UnitNormal
	for c := 1; c < k; c++ {
		for j := 0; j < p; j++ {
			g := (c-1)*p + j
			coef[g] = beta.AtVec(g)
			se[g] = math.Sqrt(cov.At(g, g))
			if se[g] == 0 {
				pv[g] = math.NaN()
			} else {
				zg := coef[g] / se[g]
				pv[g] = 2 * norm.CDF(-math.Abs(zg))
			}
			names[g] = d.ColNames[j] + "[" + levels[c] + "]"
		}
	}
	return &Fit{
		Family:   FamilySoftmax,
		Formula:  d.Formula,
		Design:   d,
		Coef:     coef,
		StdErr:   se,
		PValues:  pv,
		ResidDF:  float64(n*km - dim),
		RowNames: names,
	}, nil
}

// softmaxProbs fills prob with class probabilities for the stacked
// coefficient vector (reference class 0 has an implicit zero score).
func softmaxProbs(x *mat.Dense, beta *mat.VecDense, prob *mat.Dense) {
	n, p := x.Dims()
	_, k := prob.Dims()
	for i := 0; i < n; i++ {
		var max float64
		scores := make([]float64, k)
		for c := 1; c < k; c++ {
			var s float64
			for j := 0; j < p; j++ {
				s += x.At(i, j) * beta.AtVec((c-1)*p+j)
			}
			scores[c] = s
			if s > max {
				max = s
			}
		}
		var sum float64
		for c := 0; c < k; c++ {
			scores[c] = math.Exp(scores[c] - max)
			sum += scores[c]
		}
		for c := 0; c < k; c++ {
			prob.Set(i, c, scores[c]/sum)
		}
	}
}

// weightedSolve solves the weighted least squares system (X'WX) b = X'Wz.
func weightedSolve(x *mat.Dense, w, z []float64) (*mat.VecDense, error) {
	xtwx, err := weightedGram(x, w)
	if err != nil {
		return nil, err
	}
	n, p := x.Dims()
	rhs := mat.NewVecDense(p, nil)
	for j := 0; j < p; j++ {
		var s float64
		for i := 0; i < n; i++ {
			s += x.At(i, j) * w[i] * z[i]
		}
		rhs.SetVec(j, s)
	}
	var beta mat.VecDense
	if err := beta.SolveVec(xtwx, rhs); err != nil {
		return nil, err
	}
	return &beta, nil
}

// weightedCovariance inverts the Fisher information X'WX.
func weightedCovariance(x *mat.Dense, w []float64) (*mat.Dense, error) {
	xtwx, err := weightedGram(x, w)
	if err != nil {
		return nil, err
	}
	var cov mat.Dense
	if err := cov.Inverse(xtwx); err != nil {
		return nil, fmt.Errorf("regress: information matrix not invertible: %w", err)
	}
	return &cov, nil
}

func weightedGram(x *mat.Dense, w []float64) (*mat.Dense, error) {
	n, p := x.Dims()
	if len(w) != n {
		return nil, fmt.Errorf("regress: %d weights for %d rows", len(w), n)
	}
	g := mat.NewDense(p, p, nil)
	for j1 := 0; j1 < p; j1++ {
		for j2 := j1; j2 < p; j2++ {
			var s float64
			for i := 0; i < n; i++ {
				s += x.At(i, j1) * w[i] * x.At(i, j2)
			}
			g.Set(j1, j2, s)
			g.Set(j2, j1, s)
		}
	}
	return g, nil
}

package regress

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TermStat is one row of the type II decomposition.
type TermStat struct {
	Term   string
	SS     float64
	DF     float64
	F      float64
	PValue float64
	Eta    float64 // SS over total SS
}

// anovaTypeII decomposes an OLS fit by refitting without each non-intercept
// term: SS(term) = RSS(reduced) - RSS(full). Eta is the term share of the
// total sum of squares.
func anovaTypeII(fit *Fit, y []float64) ([]TermStat, error) {
	d := fit.Design
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	var totalSS float64
	for _, v := range y {
		totalSS += (v - mean) * (v - mean)
	}

	mse := fit.ResidSS / fit.ResidDF
	fdist := distuv.F{D1: 1, D2: fit.ResidDF}

	var out []TermStat
	for ti, term := range d.Terms {
		if term.Name == "Intercept" {
			continue
		}
		reduced, err := residualSS(d, y, ti)
		if err != nil {
			return nil, err
		}
		ss := reduced - fit.ResidSS
		if ss < 0 {
			ss = 0
		}
		df := float64(len(term.Columns))
		fdist.D1 = df
		f := (ss / df) / mse
		p := math.NaN()
		if !math.IsNaN(f) && f >= 0 {
			p = 1 - fdist.CDF(f)
		}
		eta := math.NaN()
		if totalSS > 0 {
			eta = ss / totalSS
		}
		out = append(out, TermStat{Term: term.Name, SS: ss, DF: df, F: f, PValue: p, Eta: eta})
	}
	return out, nil
}

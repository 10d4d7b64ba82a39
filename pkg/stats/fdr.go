package stats

import (
	"fmt"
	"math"
	"sort"
)

// FDR method identifiers. "i" assumes independent (or positively dependent)
// p-values and is the Benjamini-Hochberg procedure; "n" is the
// Benjamini-Yekutieli variant for negative dependence.
const (
	FDRIndependent = "i"
	FDRNegative    = "n"
	FDRBonferroni  = "bonferroni"
	FDRHolm        = "holm"
)

// AdjustPValues applies multiple-testing correction and returns the adjusted
// p-values in the input order. NaN entries stay NaN and do not count toward
// the number of tests. Adjusted values are clipped to 1 and, for the
// step-up/step-down methods, kept monotone.
func AdjustPValues(p []float64, method string) ([]float64, error) {
	if method == "" {
		method = FDRIndependent
	}
	valid := make([]int, 0, len(p))
	for i, v := range p {
		if !math.IsNaN(v) {
			valid = append(valid, i)
		}
	}
	out := make([]float64, len(p))
	for i := range out {
		out[i] = math.NaN()
	}
	m := float64(len(valid))
	if m == 0 {
		return out, nil
	}

	switch method {
	case FDRIndependent, FDRNegative:
		// Step-up: ascending order, p*m/rank, cumulative minimum from the top.
		sort.Slice(valid, func(a, b int) bool { return p[valid[a]] < p[valid[b]] })
		scale := 1.0
		if method == FDRNegative {
			scale = 0
			for k := 1; k <= len(valid); k++ {
				scale += 1 / float64(k)
			}
		}
		adj := make([]float64, len(valid))
		for r, i := range valid {
			adj[r] = p[i] * m / float64(r+1)
			if method == FDRNegative {
				adj[r] *= scale
			}
		}
		for r := len(adj) - 2; r >= 0; r-- {
			adj[r] = math.Min(adj[r], adj[r+1])
		}
		for r, i := range valid {
			out[i] = math.Min(adj[r], 1)
		}
	case FDRBonferroni:
		for _, i := range valid {
			out[i] = math.Min(p[i]*m, 1)
		}
	case FDRHolm:
		sort.Slice(valid, func(a, b int) bool { return p[valid[a]] < p[valid[b]] })
		running := 0.0
		for r, i := range valid {
			v := p[i] * (m - float64(r))
			running = math.Max(running, v)
			out[i] = math.Min(running, 1)
		}
	default:
		return nil, fmt.Errorf("stats: unknown FDR method %q", method)
	}
	return out, nil
}

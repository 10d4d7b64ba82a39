// Package stats implements the NaN-aware statistical primitives shared by the
// group comparator, the correlation engine and the regression engine:
// descriptive summaries, two-sample and k-sample hypothesis tests,
// correlation coefficients with closed-form p-values, and multiple-testing
// correction.
package stats

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
)

// Omit returns the non-NaN values of xs.
func Omit(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of non-NaN values.
func Count(xs []float64) int {
	n := 0
	for _, v := range xs {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Fraction returns the non-missing fraction of xs, NaN for empty input.
func Fraction(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return float64(Count(xs)) / float64(len(xs))
}

// Mean is the NaN-omitting arithmetic mean.
func Mean(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range xs {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Median is the NaN-omitting median.
func Median(xs []float64) float64 {
	clean := Omit(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	m, err := mstats.Median(clean)
	if err != nil {
		return math.NaN()
	}
	return m
}

// Std is the NaN-omitting sample standard deviation (N-1 denominator).
func Std(xs []float64) float64 {
	clean := Omit(xs)
	if len(clean) < 2 {
		return math.NaN()
	}
	mean := Mean(clean)
	var ss float64
	for _, v := range clean {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(clean)-1))
}

// Quantile is the NaN-omitting empirical quantile in [0, 1].
func Quantile(xs []float64, q float64) float64 {
	clean := Omit(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	v, err := mstats.Percentile(clean, q*100)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Ranks assigns 1-based ranks with ties averaged, matching the rank-sum and
// Spearman conventions.
func Ranks(xs []float64) []float64 {
	n := len(xs)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2 // mean of 1-based positions i+1..j+1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

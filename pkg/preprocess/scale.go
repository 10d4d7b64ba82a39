// Package preprocess applies scaling transforms and collinearity pruning to
// tables before statistical modeling.
package preprocess

import (
	"fmt"
	"math"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/stats"
)

// Scale method names. None is the identity. The scaler variants are fit and
// applied in the same call; no fit state persists.
const (
	ScaleNone       = "none"
	ScaleStandard   = "standard"
	ScaleZScore     = "zscore"
	ScaleMinMax     = "minmax"
	ScaleNormalizer = "normalizer"
	ScaleRobust     = "robust"
	ScaleLog2       = "log2"
	ScaleLog10      = "log10"
)

// Scale returns a scaled copy of t. Column-wise methods (standard, zscore,
// minmax, robust) treat columns as features; normalizer rescales each row to
// unit L2 norm; log2/log10 are pure elementwise transforms and silently
// produce NaN or -Inf on non-positive input.
func Scale(t *dataset.Table, method string) (*dataset.Table, error) {
	switch method {
	case "", ScaleNone:
		return t, nil
	case ScaleLog2, ScaleLog10:
		out := t.Clone()
		log := math.Log2
		if method == ScaleLog10 {
			log = math.Log10
		}
		nr, nc := t.Shape()
		for i := 0; i < nr; i++ {
			for j := 0; j < nc; j++ {
				if v := t.At(i, j); !math.IsNaN(v) {
					out.Set(i, j, log(v))
				}
			}
		}
		return out, nil
	case ScaleStandard, ScaleZScore:
		return scaleColumns(t, func(col []float64) (float64, float64) {
			return stats.Mean(col), populationStd(col)
		}), nil
	case ScaleMinMax:
		return scaleColumns(t, func(col []float64) (float64, float64) {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range col {
				if math.IsNaN(v) {
					continue
				}
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			return lo, hi - lo
		}), nil
	case ScaleRobust:
		return scaleColumns(t, func(col []float64) (float64, float64) {
			med := stats.Median(col)
			iqr := stats.Quantile(col, 0.75) - stats.Quantile(col, 0.25)
			return med, iqr
		}), nil
	case ScaleNormalizer:
		out := t.Clone()
		nr, nc := t.Shape()
		for i := 0; i < nr; i++ {
			var norm float64
			for j := 0; j < nc; j++ {
				if v := t.At(i, j); !math.IsNaN(v) {
					norm += v * v
				}
			}
			norm = math.Sqrt(norm)
			if norm == 0 {
				continue
			}
			for j := 0; j < nc; j++ {
				if v := t.At(i, j); !math.IsNaN(v) {
					out.Set(i, j, v/norm)
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("preprocess: unknown scale method %q", method)
	}
}

// scaleColumns applies (x - center) / spread per column; a zero spread
// collapses the column to zero.
func scaleColumns(t *dataset.Table, fit func(col []float64) (center, spread float64)) *dataset.Table {
	out := t.Clone()
	nr, _ := t.Shape()
	for _, name := range t.Cols() {
		col, _ := t.Col(name)
		center, spread := fit(col)
		j, _ := t.ColIndex(name)
		for i := 0; i < nr; i++ {
			v := t.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			if spread == 0 || math.IsNaN(spread) {
				out.Set(i, j, 0)
			} else {
				out.Set(i, j, (v-center)/spread)
			}
		}
	}
	return out
}

// populationStd is the N-denominator standard deviation used by the
// standard/zscore scaler.
func populationStd(xs []float64) float64 {
	clean := stats.Omit(xs)
	if len(clean) == 0 {
		return math.NaN()
	}
	m := stats.Mean(clean)
	var ss float64
	for _, v := range clean {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(clean)))
}

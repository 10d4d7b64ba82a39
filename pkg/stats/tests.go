package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult carries a test statistic with its two-sided p-value.
type TestResult struct {
	Statistic float64
	PValue    float64
	DF        float64
}

var nanResult = TestResult{Statistic: math.NaN(), PValue: math.NaN(), DF: math.NaN()}

// TTestInd is the two-sample t-test on NaN-omitted values. equalVar selects
// the pooled-variance Student form; otherwise Welch with the
// Satterthwaite degrees of freedom is used.
func TTestInd(a, b []float64, equalVar bool) TestResult {
	x, y := Omit(a), Omit(b)
	n1, n2 := float64(len(x)), float64(len(y))
	if n1 < 2 || n2 < 2 {
		return nanResult
	}
	m1, m2 := Mean(x), Mean(y)
	v1, v2 := variance(x, m1), variance(y, m2)

	var t, df float64
	if equalVar {
		df = n1 + n2 - 2
		sp := ((n1-1)*v1 + (n2-1)*v2) / df
		t = (m1 - m2) / math.Sqrt(sp*(1/n1+1/n2))
	} else {
		se1, se2 := v1/n1, v2/n2
		t = (m1 - m2) / math.Sqrt(se1+se2)
		df = (se1 + se2) * (se1 + se2) / (se1*se1/(n1-1) + se2*se2/(n2-1))
	}
	return TestResult{Statistic: t, PValue: studentTwoSided(t, df), DF: df}
}

// RankSums is the Wilcoxon rank-sum test with the normal approximation and
// tie-averaged ranks, on NaN-omitted values.
func RankSums(a, b []float64) TestResult {
	x, y := Omit(a), Omit(b)
	n1, n2 := float64(len(x)), float64(len(y))
	if n1 == 0 || n2 == 0 {
		return nanResult
	}
	combined := make([]float64, 0, len(x)+len(y))
	combined = append(combined, x...)
	combined = append(combined, y...)
	ranks := Ranks(combined)

	var w float64
	for i := range x {
		w += ranks[i]
	}
	n := n1 + n2
	expected := n1 * (n + 1) / 2
	sd := math.Sqrt(n1 * n2 * (n + 1) / 12)
	z := (w - expected) / sd
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	p := 2 * norm.CDF(-math.Abs(z))
	return TestResult{Statistic: z, PValue: p, DF: n - 2}
}

// OneWayANOVA is the one-way fixed-effects F test across NaN-omitted groups.
func OneWayANOVA(groups [][]float64) TestResult {
	clean := omitGroups(groups)
	k := len(clean)
	if k < 2 {
		return nanResult
	}
	var total, n float64
	for _, g := range clean {
		if len(g) < 1 {
			return nanResult
		}
		for _, v := range g {
			total += v
		}
		n += float64(len(g))
	}
	grand := total / n

	var ssb, ssw float64
	for _, g := range clean {
		m := Mean(g)
		ssb += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			ssw += (v - m) * (v - m)
		}
	}
	dfb := float64(k - 1)
	dfw := n - float64(k)
	if dfw <= 0 || ssw == 0 {
		return nanResult
	}
	f := (ssb / dfb) / (ssw / dfw)
	dist := distuv.F{D1: dfb, D2: dfw}
	return TestResult{Statistic: f, PValue: 1 - dist.CDF(f), DF: dfb}
}

// AlexanderGovern tests equality of means without assuming equal variances,
// following the normalized-t formulation. Groups need at least two
// non-missing values each.
func AlexanderGovern(groups [][]float64) TestResult {
	clean := omitGroups(groups)
	k := len(clean)
	if k < 2 {
		return nanResult
	}
	means := make([]float64, k)
	se := make([]float64, k)
	var wsum float64
	weights := make([]float64, k)
	for i, g := range clean {
		n := float64(len(g))
		if n < 2 {
			return nanResult
		}
		means[i] = Mean(g)
		se[i] = math.Sqrt(variance(g, means[i]) / n)
		if se[i] == 0 {
			return nanResult
		}
		weights[i] = 1 / (se[i] * se[i])
		wsum += weights[i]
	}
	var grand float64
	for i := range weights {
		grand += weights[i] / wsum * means[i]
	}

	var a float64
	for i, g := range clean {
		t := (means[i] - grand) / se[i]
		nu := float64(len(g) - 1)
		aa := nu - 0.5
		b := 48 * aa * aa
		c := math.Sqrt(aa * math.Log(1+t*t/nu))
		z := c + (c*c*c+3*c)/b -
			(4*math.Pow(c, 7)+33*math.Pow(c, 5)+240*math.Pow(c, 3)+855*c)/
				(10*b*b+8*b*math.Pow(c, 4)+1000*b)
		a += z * z
	}
	dist := distuv.ChiSquared{K: float64(k - 1)}
	return TestResult{Statistic: a, PValue: 1 - dist.CDF(a), DF: float64(k - 1)}
}

// KruskalWallis is the rank-based k-sample test with tie correction.
func KruskalWallis(groups [][]float64) TestResult {
	clean := omitGroups(groups)
	k := len(clean)
	if k < 2 {
		return nanResult
	}
	var combined []float64
	sizes := make([]int, k)
	for i, g := range clean {
		if len(g) == 0 {
			return nanResult
		}
		sizes[i] = len(g)
		combined = append(combined, g...)
	}
	n := float64(len(combined))
	ranks := Ranks(combined)

	var h float64
	offset := 0
	for i := range clean {
		var rsum float64
		for j := 0; j < sizes[i]; j++ {
			rsum += ranks[offset+j]
		}
		offset += sizes[i]
		h += rsum * rsum / float64(sizes[i])
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	// Tie correction.
	counts := make(map[float64]int)
	for _, v := range combined {
		counts[v]++
	}
	var tie float64
	for _, c := range counts {
		if c > 1 {
			fc := float64(c)
			tie += fc*fc*fc - fc
		}
	}
	if corr := 1 - tie/(n*n*n-n); corr > 0 {
		h /= corr
	}
	dist := distuv.ChiSquared{K: float64(k - 1)}
	return TestResult{Statistic: h, PValue: 1 - dist.CDF(h), DF: float64(k - 1)}
}

func variance(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}

func omitGroups(groups [][]float64) [][]float64 {
	out := make([][]float64, len(groups))
	for i, g := range groups {
		out[i] = Omit(g)
	}
	return out
}

// studentTwoSided is the two-sided p-value of a t statistic with df degrees
// of freedom.
func studentTwoSided(t, df float64) float64 {
	if math.IsNaN(t) || df <= 0 {
		return math.NaN()
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

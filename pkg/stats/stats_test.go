package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustPValuesSingleIdentity(t *testing.T) {
	for _, method := range []string{FDRIndependent, FDRBonferroni, FDRHolm} {
		adj, err := AdjustPValues([]float64{0.03}, method)
		require.NoError(t, err)
		assert.InDelta(t, 0.03, adj[0], 1e-12, "method %s", method)
	}
}

func TestAdjustPValuesBH(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03, 0.005}
	adj, err := AdjustPValues(p, FDRIndependent)
	require.NoError(t, err)

	// Matches the classical step-up computation.
	assert.InDelta(t, 0.02, adj[0], 1e-9)
	assert.InDelta(t, 0.04, adj[1], 1e-9)
	assert.InDelta(t, 0.04, adj[2], 1e-9)
	assert.InDelta(t, 0.02, adj[3], 1e-9)
}

func TestAdjustPValuesMonotone(t *testing.T) {
	p := []float64{0.001, 0.01, 0.02, 0.2, 0.5, 0.9}
	for _, method := range []string{FDRIndependent, FDRNegative, FDRHolm} {
		adj, err := AdjustPValues(p, method)
		require.NoError(t, err)
		for i := 1; i < len(adj); i++ {
			assert.GreaterOrEqual(t, adj[i], adj[i-1], "method %s at %d", method, i)
		}
		for _, v := range adj {
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestAdjustPValuesKeepsNaN(t *testing.T) {
	adj, err := AdjustPValues([]float64{0.01, math.NaN(), 0.04}, FDRIndependent)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(adj[0]))
	assert.True(t, math.IsNaN(adj[1]))
	assert.False(t, math.IsNaN(adj[2]))
}

func TestAdjustPValuesUnknownMethod(t *testing.T) {
	_, err := AdjustPValues([]float64{0.5}, "bogus")
	assert.Error(t, err)
}

func TestTTestIndDetectsShift(t *testing.T) {
	a := []float64{5.1, 5.3, 4.9, 5.2, 5.0, 5.1, 4.8, 5.2}
	b := []float64{7.0, 7.2, 6.9, 7.1, 7.3, 6.8, 7.0, 7.1}
	res := TTestInd(a, b, true)
	assert.Less(t, res.PValue, 0.05)
	assert.Less(t, res.Statistic, 0.0)

	welch := TTestInd(a, b, false)
	assert.Less(t, welch.PValue, 0.05)
}

func TestTTestIndIdenticalGroups(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	res := TTestInd(a, a, true)
	assert.InDelta(t, 0, res.Statistic, 1e-12)
	assert.InDelta(t, 1, res.PValue, 1e-9)
}

func TestRankSumsDetectsShift(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}
	b := []float64{10, 11, 12, 13, 14, 15}
	res := RankSums(a, b)
	assert.Less(t, res.PValue, 0.01)
}

func TestOneWayANOVA(t *testing.T) {
	same := [][]float64{{1, 2, 3, 4}, {1.1, 2.1, 2.9, 4.2}, {0.9, 2.2, 3.1, 3.8}}
	res := OneWayANOVA(same)
	assert.Greater(t, res.PValue, 0.5)

	shifted := [][]float64{{1, 2, 3, 4}, {11, 12, 13, 14}, {21, 22, 23, 24}}
	res = OneWayANOVA(shifted)
	assert.Less(t, res.PValue, 1e-6)
}

func TestKruskalWallisShifted(t *testing.T) {
	groups := [][]float64{{1, 2, 3, 4, 5}, {11, 12, 13, 14, 15}, {21, 22, 23, 24, 25}}
	res := KruskalWallis(groups)
	assert.Less(t, res.PValue, 0.01)
}

func TestAlexanderGovernShifted(t *testing.T) {
	groups := [][]float64{
		{1, 2, 3, 4, 5, 6},
		{1.5, 2.5, 3.5, 2.8, 4.1, 3.3},
		{21, 22, 23, 24, 25, 26},
	}
	res := AlexanderGovern(groups)
	assert.Less(t, res.PValue, 0.01)
}

func TestPearsonSelfCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	res := Pearson(x, x)
	assert.InDelta(t, 1, res.Coefficient, 1e-12)
	p := CorrPValue(res.Coefficient, res.DF)
	assert.InDelta(t, 0, p, 1e-9)
}

func TestPearsonPairwiseComplete(t *testing.T) {
	x := []float64{1, 2, math.NaN(), 4, 5}
	y := []float64{2, 4, 6, 8, math.NaN()}
	res := Pearson(x, y)
	assert.Equal(t, 3, res.Count)
	assert.InDelta(t, 1, res.Coefficient, 1e-9)
}

func TestSpearmanMonotone(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 8, 27, 64, 125} // monotone but nonlinear
	res := Spearman(x, y)
	assert.InDelta(t, 1, res.Coefficient, 1e-9)
}

func TestRanksTieAveraging(t *testing.T) {
	ranks := Ranks([]float64{10, 20, 20, 30})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks)
}

func TestDescriptivesOmitMissing(t *testing.T) {
	xs := []float64{1, math.NaN(), 3}
	assert.Equal(t, 2, Count(xs))
	assert.InDelta(t, 2, Mean(xs), 1e-12)
	assert.InDelta(t, 2.0/3.0, Fraction(xs), 1e-12)
}

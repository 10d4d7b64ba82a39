package preprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

func numTable(t *testing.T, rows, cols []string, vals [][]float64) *dataset.Table {
	t.Helper()
	tab, err := dataset.FromValues("fixture", rows, cols, vals)
	require.NoError(t, err)
	return tab
}

func TestScaleZScoreCentersColumns(t *testing.T) {
	tab := numTable(t,
		[]string{"s1", "s2", "s3", "s4"},
		[]string{"a", "b"},
		[][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}})

	scaled, err := Scale(tab, ScaleZScore)
	require.NoError(t, err)
	for _, name := range scaled.Cols() {
		col, _ := scaled.Col(name)
		var sum float64
		for _, v := range col {
			sum += v
		}
		assert.InDelta(t, 0, sum/float64(len(col)), 1e-9)
	}
}

func TestScaleMinMaxRange(t *testing.T) {
	tab := numTable(t, []string{"s1", "s2", "s3"}, []string{"a"},
		[][]float64{{5}, {10}, {15}})
	scaled, err := Scale(tab, ScaleMinMax)
	require.NoError(t, err)
	col, _ := scaled.Col("a")
	assert.InDelta(t, 0, col[0], 1e-12)
	assert.InDelta(t, 0.5, col[1], 1e-12)
	assert.InDelta(t, 1, col[2], 1e-12)
}

func TestScaleLog2KeepsMissing(t *testing.T) {
	tab := numTable(t, []string{"s1", "s2"}, []string{"a"},
		[][]float64{{8}, {math.NaN()}})
	scaled, err := Scale(tab, ScaleLog2)
	require.NoError(t, err)
	assert.InDelta(t, 3, scaled.At(0, 0), 1e-12)
	assert.True(t, math.IsNaN(scaled.At(1, 0)))
}

func TestScaleNormalizerUnitRows(t *testing.T) {
	tab := numTable(t, []string{"s1"}, []string{"a", "b"},
		[][]float64{{3, 4}})
	scaled, err := Scale(tab, ScaleNormalizer)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, scaled.At(0, 0), 1e-12)
	assert.InDelta(t, 0.8, scaled.At(0, 1), 1e-12)
}

func TestScaleUnknownMethod(t *testing.T) {
	tab := numTable(t, []string{"s1"}, []string{"a"}, [][]float64{{1}})
	_, err := Scale(tab, "quantile")
	assert.Error(t, err)
}

func TestCalculateVIFDropsCollinearColumn(t *testing.T) {
	rows := make([]string, 20)
	vals := make([][]float64, 20)
	for i := range rows {
		rows[i] = string(rune('a' + i))
		x := float64(i)
		noise := math.Sin(float64(i) * 12.9898)
		// c is an exact linear combination of a and b.
		vals[i] = []float64{x, 3*x + noise, 2*x + (3*x + noise)}
	}
	tab := numTable(t, rows, []string{"a", "b", "c"}, vals)

	pruned := CalculateVIF(tab, 5, zap.NewNop())
	assert.Less(t, len(pruned.Cols()), 3)

	// Re-running on the pruned output is a no-op.
	again := CalculateVIF(pruned, 5, zap.NewNop())
	assert.Equal(t, pruned.Cols(), again.Cols())
}

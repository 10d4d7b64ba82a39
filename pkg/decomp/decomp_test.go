package decomp

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// clusterTable builds a features x samples matrix with two well separated
// sample clusters and one incomplete feature row.
func clusterTable(t *testing.T) *dataset.Table {
	t.Helper()
	cols := make([]string, 12)
	for j := range cols {
		cols[j] = fmt.Sprintf("s%d", j+1)
	}
	rows := []string{"f1", "f2", "f3", "f4", "f5", "fmissing"}
	vals := make([][]float64, len(rows))
	for i := range rows {
		row := make([]float64, len(cols))
		for j := range row {
			base := 0.0
			if j >= 6 {
				base = 10.0
			}
			row[j] = base + 0.3*math.Sin(float64((i+1)*(j+1)))
		}
		vals[i] = row
	}
	vals[5][3] = math.NaN()

	tab, err := dataset.FromValues("protein", rows, cols, vals)
	require.NoError(t, err)
	return tab
}

func TestPCASeparatesClusters(t *testing.T) {
	tab := clusterTable(t)
	emb, err := PCA(tab, Config{})
	require.NoError(t, err)

	coords := emb.Table
	assert.Equal(t, "protein_pca", coords.Name)
	assert.Equal(t, []string{"pc1", "pc2"}, coords.Cols())
	assert.Len(t, coords.Rows(), 12)

	require.Len(t, emb.Explained, 2)
	assert.Greater(t, emb.Explained[0], emb.Explained[1])
	assert.Greater(t, emb.Explained[0], 0.9)
	assert.LessOrEqual(t, emb.Explained[0]+emb.Explained[1], 1.0+1e-9)

	// The dominant axis splits the two sample clusters.
	var a, b float64
	for i := 0; i < 6; i++ {
		a += coords.At(i, 0)
		b += coords.At(i+6, 0)
	}
	assert.Greater(t, math.Abs(a-b)/6, 5.0)
}

func TestPCAComponentsCappedByRank(t *testing.T) {
	tab := clusterTable(t)
	emb, err := PCA(tab, Config{Components: 10})
	require.NoError(t, err)
	// Only five complete feature rows survive.
	assert.Len(t, emb.Table.Cols(), 5)
}

func TestPCAAllRowsIncomplete(t *testing.T) {
	tab, err := dataset.FromValues("protein", []string{"f1"}, []string{"s1", "s2"},
		[][]float64{{1, math.NaN()}})
	require.NoError(t, err)
	_, err = PCA(tab, Config{})
	assert.Error(t, err)
}

func TestTSNEShape(t *testing.T) {
	tab := clusterTable(t)
	emb, err := TSNE(tab, Config{Perplexity: 3, Iterations: 60, Seed: 1})
	require.NoError(t, err)

	coords := emb.Table
	assert.Equal(t, []string{"tsne1", "tsne2"}, coords.Cols())
	assert.Len(t, coords.Rows(), 12)
	assert.Nil(t, emb.Explained)
	for i := range coords.Rows() {
		for j := 0; j < 2; j++ {
			assert.False(t, math.IsNaN(coords.At(i, j)))
		}
	}
}

func TestUMAPShape(t *testing.T) {
	tab := clusterTable(t)
	emb, err := UMAP(tab, Config{Neighbors: 4, Seed: 3})
	require.NoError(t, err)

	coords := emb.Table
	assert.Equal(t, []string{"umap1", "umap2"}, coords.Cols())
	assert.Len(t, coords.Rows(), 12)
	for i := range coords.Rows() {
		for j := 0; j < 2; j++ {
			assert.False(t, math.IsNaN(coords.At(i, j)))
		}
	}
}

func TestScalePropagatesToEmbedding(t *testing.T) {
	tab := clusterTable(t)
	_, err := PCA(tab, Config{Scale: "nosuchmethod"})
	assert.Error(t, err)

	emb, err := PCA(tab, Config{Scale: "zscore"})
	require.NoError(t, err)
	assert.Len(t, emb.Table.Rows(), 12)
}

// Package decomp projects sample profiles into low-dimensional embeddings
// for visualization: PCA, t-SNE and UMAP.
package decomp

import (
	"fmt"
	"math"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/preprocess"
)

// Config is shared across the embedding methods; method-specific knobs are
// ignored by the others.
type Config struct {
	// Components is the output dimensionality; default 2.
	Components int

	// Scale optionally pre-transforms the samples x features matrix with a
	// preprocess method before embedding.
	Scale string

	// Perplexity and Iterations drive t-SNE; defaults 30 and 1000.
	Perplexity float64
	Iterations int

	// Neighbors and MinDist drive UMAP; defaults 15 and 0.1.
	Neighbors int
	MinDist   float64

	Seed int64
}

func (c Config) withDefaults() Config {
	if c.Components == 0 {
		c.Components = 2
	}
	if c.Perplexity == 0 {
		c.Perplexity = 30
	}
	if c.Iterations == 0 {
		c.Iterations = 1000
	}
	if c.Neighbors == 0 {
		c.Neighbors = 15
	}
	if c.MinDist == 0 {
		c.MinDist = 0.1
	}
	return c
}

// Embedding is one projected coordinate table (samples x components) plus
// the per-component explained-variance ratios when the method defines them.
type Embedding struct {
	Table     *dataset.Table
	Explained []float64
}

// prepare turns a features x samples table into a dense samples x features
// matrix: features with any missing value are dropped, the result is
// transposed and optionally scaled.
func prepare(t *dataset.Table, cfg Config) (*dataset.Table, [][]float64, error) {
	nr, nc := t.Shape()
	var keep []string
	for i, label := range t.Rows() {
		complete := true
		for j := 0; j < nc; j++ {
			if math.IsNaN(t.At(i, j)) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, label)
		}
	}
	if len(keep) == 0 {
		return nil, nil, fmt.Errorf("decomp: no complete feature rows in table %q (%d rows)", t.Name, nr)
	}
	sub, err := t.SelectRows(keep)
	if err != nil {
		return nil, nil, err
	}
	samples := sub.Transpose()
	if samples, err = preprocess.Scale(samples, cfg.Scale); err != nil {
		return nil, nil, err
	}
	ns, nf := samples.Shape()
	m := make([][]float64, ns)
	for i := 0; i < ns; i++ {
		row := make([]float64, nf)
		for j := 0; j < nf; j++ {
			row[j] = samples.At(i, j)
		}
		m[i] = row
	}
	return samples, m, nil
}

// coordTable wraps an embedding matrix as a samples x components table with
// prefixed column names (for example pc1, pc2).
func coordTable(name, prefix string, samples []string, coords [][]float64, k int) (*dataset.Table, error) {
	cols := make([]string, k)
	for j := 0; j < k; j++ {
		cols[j] = fmt.Sprintf("%s%d", prefix, j+1)
	}
	vals := make([][]float64, len(samples))
	for i := range samples {
		vals[i] = coords[i][:k]
	}
	return dataset.FromValues(name, samples, cols, vals)
}

package decomp

import (
	"github.com/danaugrs/go-tsne/tsne"
	"gonum.org/v1/gonum/mat"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// tsneLearningRate matches the common default of the reference
// implementations.
const tsneLearningRate = 200

// TSNE embeds a features x samples table with t-distributed stochastic
// neighbor embedding. Perplexity should stay below a third of the sample
// count; iterations default to 1000.
func TSNE(t *dataset.Table, cfg Config) (*Embedding, error) {
	cfg = cfg.withDefaults()
	samples, m, err := prepare(t, cfg)
	if err != nil {
		return nil, err
	}
	ns, nf := len(m), len(m[0])

	x := mat.NewDense(ns, nf, nil)
	for i, row := range m {
		x.SetRow(i, row)
	}

	perplexity := cfg.Perplexity
	if limit := float64(ns-1) / 3; perplexity > limit {
		perplexity = limit
	}
	embedder := tsne.NewTSNE(cfg.Components, perplexity, tsneLearningRate, cfg.Iterations, false)
	y := embedder.EmbedData(x, func(int, float64, mat.Matrix) bool { return false })

	coords := make([][]float64, ns)
	for i := 0; i < ns; i++ {
		row := make([]float64, cfg.Components)
		for c := 0; c < cfg.Components; c++ {
			row[c] = y.At(i, c)
		}
		coords[i] = row
	}
	table, err := coordTable(t.Name+"_tsne", "tsne", samples.Rows(), coords, cfg.Components)
	if err != nil {
		return nil, err
	}
	return &Embedding{Table: table}, nil
}

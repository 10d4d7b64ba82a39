package decomp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// PCA projects a features x samples table onto its leading principal
// components. Explained holds the per-component variance ratios.
func PCA(t *dataset.Table, cfg Config) (*Embedding, error) {
	cfg = cfg.withDefaults()
	samples, m, err := prepare(t, cfg)
	if err != nil {
		return nil, err
	}
	ns, nf := len(m), len(m[0])
	k := cfg.Components
	if max := min(ns, nf); k > max {
		k = max
	}

	x := mat.NewDense(ns, nf, nil)
	for i, row := range m {
		x.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, fmt.Errorf("decomp: principal component decomposition failed for %q", t.Name)
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	// Center, then project onto the leading eigenvectors.
	means := make([]float64, nf)
	for j := 0; j < nf; j++ {
		var s float64
		for i := 0; i < ns; i++ {
			s += x.At(i, j)
		}
		means[j] = s / float64(ns)
	}
	coords := make([][]float64, ns)
	for i := 0; i < ns; i++ {
		row := make([]float64, k)
		for c := 0; c < k; c++ {
			var s float64
			for j := 0; j < nf; j++ {
				s += (x.At(i, j) - means[j]) * vecs.At(j, c)
			}
			row[c] = s
		}
		coords[i] = row
	}

	var total float64
	for _, v := range vars {
		total += v
	}
	explained := make([]float64, k)
	for c := 0; c < k; c++ {
		if total > 0 {
			explained[c] = vars[c] / total
		}
	}

	table, err := coordTable(t.Name+"_pca", "pc", samples.Rows(), coords, k)
	if err != nil {
		return nil, err
	}
	return &Embedding{Table: table, Explained: explained}, nil
}

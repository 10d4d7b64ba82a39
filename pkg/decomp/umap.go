package decomp

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// UMAP embeds a features x samples table with a compact uniform manifold
// approximation: exact k-nearest-neighbor graph, fuzzy membership weights
// with per-point bandwidth calibration, and stochastic gradient descent on
// the cross-entropy layout objective.
func UMAP(t *dataset.Table, cfg Config) (*Embedding, error) {
	cfg = cfg.withDefaults()
	samples, m, err := prepare(t, cfg)
	if err != nil {
		return nil, err
	}
	ns := len(m)
	k := cfg.Neighbors
	if k >= ns {
		k = ns - 1
	}

	graph := fuzzyGraph(m, k)
	coords := layout(graph, ns, cfg)

	table, err := coordTable(t.Name+"_umap", "umap", samples.Rows(), coords, cfg.Components)
	if err != nil {
		return nil, err
	}
	return &Embedding{Table: table}, nil
}

type umapEdge struct {
	from, to int
	weight   float64
}

// fuzzyGraph builds the symmetrized fuzzy neighborhood graph. Per point, the
// bandwidth sigma is binary-searched so the neighbor weights sum to
// log2(k), after subtracting the distance to the nearest neighbor.
func fuzzyGraph(m [][]float64, k int) []umapEdge {
	ns := len(m)
	target := math.Log2(float64(k))

	weights := make(map[[2]int]float64)
	for i := 0; i < ns; i++ {
		dists := make([]float64, ns)
		order := make([]int, 0, ns-1)
		for j := 0; j < ns; j++ {
			if j == i {
				continue
			}
			dists[j] = euclidean(m[i], m[j])
			order = append(order, j)
		}
		sort.Slice(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
		neighbors := order[:k]
		rho := dists[neighbors[0]]

		lo, hi := 1e-3, 1e3
		var sigma float64
		for it := 0; it < 64; it++ {
			sigma = (lo + hi) / 2
			var sum float64
			for _, j := range neighbors {
				d := dists[j] - rho
				if d <= 0 {
					sum++
				} else {
					sum += math.Exp(-d / sigma)
				}
			}
			if sum > target {
				hi = sigma
			} else {
				lo = sigma
			}
		}
		for _, j := range neighbors {
			d := dists[j] - rho
			w := 1.0
			if d > 0 {
				w = math.Exp(-d / sigma)
			}
			weights[[2]int{i, j}] = w
		}
	}

	// Fuzzy union: w = a + b - a*b.
	var edges []umapEdge
	for key, a := range weights {
		i, j := key[0], key[1]
		if i > j {
			continue
		}
		b := weights[[2]int{j, i}]
		w := a + b - a*b
		if w > 0 {
			edges = append(edges, umapEdge{from: i, to: j, weight: w})
		}
	}
	return edges
}

// layout runs negative-sampling SGD on the membership graph. The attractive
// and repulsive kernels use the standard curve fit constants for
// min_dist 0.1 (a=1.58, b=0.9); other min_dist values rescale a.
func layout(edges []umapEdge, ns int, cfg Config) [][]float64 {
	const negSamples = 5
	a := 1.58 * (0.1 / cfg.MinDist)
	b := 0.9
	dims := cfg.Components
	epochs := cfg.Iterations
	if epochs > 500 {
		epochs = 500
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	coords := make([][]float64, ns)
	for i := range coords {
		row := make([]float64, dims)
		for d := range row {
			row[d] = rng.Float64()*20 - 10
		}
		coords[i] = row
	}

	var maxW float64
	for _, e := range edges {
		if e.weight > maxW {
			maxW = e.weight
		}
	}

	for epoch := 0; epoch < epochs; epoch++ {
		alpha := 1.0 * (1 - float64(epoch)/float64(epochs))
		for _, e := range edges {
			if rng.Float64() > e.weight/maxW {
				continue
			}
			moveEdge(coords[e.from], coords[e.to], a, b, alpha, true)
			for s := 0; s < negSamples; s++ {
				j := rng.Intn(ns)
				if j == e.from {
					continue
				}
				moveEdge(coords[e.from], coords[j], a, b, alpha, false)
			}
		}
	}
	return coords
}

// moveEdge applies one attractive or repulsive gradient step to p (and, for
// attraction, the mirrored step to q).
func moveEdge(p, q []float64, a, b, alpha float64, attract bool) {
	var d2 float64
	for i := range p {
		diff := p[i] - q[i]
		d2 += diff * diff
	}
	var grad float64
	if attract {
		grad = -2 * a * b * math.Pow(d2, b-1) / (1 + a*math.Pow(d2, b))
	} else {
		grad = 2 * b / ((0.001 + d2) * (1 + a*math.Pow(d2, b)))
	}
	for i := range p {
		diff := p[i] - q[i]
		step := clip(grad*diff, 4) * alpha
		p[i] += step
		if attract {
			q[i] -= step
		}
	}
}

func clip(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func euclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

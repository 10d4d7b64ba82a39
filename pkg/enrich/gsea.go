package enrich

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/stats"
)

// GSEAConfig parameterizes one gene-set enrichment run.
type GSEAConfig struct {
	Sets []GeneSet

	// Permutations is the null-distribution size; default 1000.
	Permutations int

	// Threads bounds the concurrent permutation batches; default 4.
	Threads int

	// MinSize/MaxSize bound tested set sizes after restriction to the
	// ranked universe; defaults 5 and 500.
	MinSize int
	MaxSize int

	// Weight is the hit-increment exponent of the running-sum statistic;
	// default 1 (classic weighted).
	Weight float64

	Seed int64
}

func (c GSEAConfig) withDefaults() GSEAConfig {
	if c.Permutations == 0 {
		c.Permutations = 1000
	}
	if c.Threads == 0 {
		c.Threads = 4
	}
	if c.MinSize == 0 {
		c.MinSize = 5
	}
	if c.MaxSize == 0 {
		c.MaxSize = 500
	}
	if c.Weight == 0 {
		c.Weight = 1
	}
	return c
}

// GSEAPrerank runs gene-set enrichment on an externally ranked list. genes
// and metric are parallel; higher metric means stronger association with the
// phenotype of interest. The null distribution permutes the gene-to-metric
// assignment.
func (e *Enricher) GSEAPrerank(genes []string, metric []float64, cfg GSEAConfig) (*dataset.Table, error) {
	if len(genes) != len(metric) {
		return nil, fmt.Errorf("enrich: %d genes for %d metric values", len(genes), len(metric))
	}
	cfg = cfg.withDefaults()

	order := rankOrder(metric)
	ranked := make([]string, len(genes))
	sorted := make([]float64, len(genes))
	for k, i := range order {
		ranked[k] = genes[i]
		sorted[k] = metric[i]
	}

	sets, members := prepareSets(cfg, ranked)
	if len(sets) == 0 {
		return nil, fmt.Errorf("enrich: no gene set fits the ranked universe")
	}

	es := make([]float64, len(sets))
	for si := range sets {
		es[si] = enrichmentScore(ranked, sorted, members[si], cfg.Weight)
	}

	perm := make([][]float64, cfg.Permutations)
	g := new(errgroup.Group)
	g.SetLimit(cfg.Threads)
	for pi := 0; pi < cfg.Permutations; pi++ {
		pi := pi
		g.Go(func() error {
			rng := rand.New(rand.NewSource(cfg.Seed + int64(pi)))
			shuffled := append([]string(nil), ranked...)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			row := make([]float64, len(sets))
			for si := range sets {
				row[si] = enrichmentScore(shuffled, sorted, members[si], cfg.Weight)
			}
			perm[pi] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := e.assembleGSEA("prerank", sets, members, es, perm)
	e.logger.Info("gene-set enrichment finished",
		zap.String("mode", "prerank"),
		zap.Int("sets", len(sets)),
		zap.Int("permutations", cfg.Permutations))
	return out, nil
}

// GSEAPhenotype runs two-class gene-set enrichment on a genes x samples
// matrix. labels holds one of exactly two phenotype labels per sample column;
// genes are ranked by signal-to-noise and the null distribution permutes the
// sample labels.
func (e *Enricher) GSEAPhenotype(data *dataset.Table, labels []string, cfg GSEAConfig) (*dataset.Table, error) {
	nr, nc := data.Shape()
	if len(labels) != nc {
		return nil, fmt.Errorf("enrich: %d labels for %d samples", len(labels), nc)
	}
	levels := distinctLabels(labels)
	if len(levels) != 2 {
		return nil, fmt.Errorf("enrich: phenotype mode needs two classes, got %d", len(levels))
	}
	cfg = cfg.withDefaults()

	classA := make([]bool, nc)
	for j, l := range labels {
		classA[j] = l == levels[0]
	}
	matrix := make([][]float64, nr)
	for i := 0; i < nr; i++ {
		row := make([]float64, nc)
		for j := 0; j < nc; j++ {
			row[j] = data.At(i, j)
		}
		matrix[i] = row
	}
	genes := data.Rows()

	ranked, sorted := rankBySignalToNoise(genes, matrix, classA)
	sets, members := prepareSets(cfg, genes)
	if len(sets) == 0 {
		return nil, fmt.Errorf("enrich: no gene set fits the expression matrix")
	}

	es := make([]float64, len(sets))
	for si := range sets {
		es[si] = enrichmentScore(ranked, sorted, members[si], cfg.Weight)
	}

	perm := make([][]float64, cfg.Permutations)
	g := new(errgroup.Group)
	g.SetLimit(cfg.Threads)
	for pi := 0; pi < cfg.Permutations; pi++ {
		pi := pi
		g.Go(func() error {
			rng := rand.New(rand.NewSource(cfg.Seed + int64(pi)))
			shuffled := append([]bool(nil), classA...)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			pr, ps := rankBySignalToNoise(genes, matrix, shuffled)
			row := make([]float64, len(sets))
			for si := range sets {
				row[si] = enrichmentScore(pr, ps, members[si], cfg.Weight)
			}
			perm[pi] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := e.assembleGSEA("phenotype", sets, members, es, perm)
	e.logger.Info("gene-set enrichment finished",
		zap.String("mode", "phenotype"),
		zap.Strings("classes", levels),
		zap.Int("sets", len(sets)),
		zap.Int("permutations", cfg.Permutations))
	return out, nil
}

// assembleGSEA normalizes scores against the permutation null and builds the
// result table, recording it for gene extraction.
func (e *Enricher) assembleGSEA(mode string, sets []GeneSet, members []map[string]struct{}, es []float64, perm [][]float64) *dataset.Table {
	n := len(sets)
	nes := make([]float64, n)
	pvals := make([]float64, n)
	for si := 0; si < n; si++ {
		var posSum, negSum float64
		var posN, negN, extreme, sameSign int
		for _, row := range perm {
			v := row[si]
			if v >= 0 {
				posSum += v
				posN++
			} else {
				negSum += v
				negN++
			}
			if sameSignGE(v, es[si]) {
				extreme++
			}
			if (v >= 0) == (es[si] >= 0) {
				sameSign++
			}
		}
		switch {
		case es[si] >= 0 && posN > 0 && posSum > 0:
			nes[si] = es[si] / (posSum / float64(posN))
		case es[si] < 0 && negN > 0 && negSum < 0:
			nes[si] = es[si] / math.Abs(negSum/float64(negN))
		default:
			nes[si] = math.NaN()
		}
		if sameSign == 0 {
			pvals[si] = 1.0 / float64(len(perm)+1)
		} else {
			pvals[si] = float64(extreme) / float64(sameSign)
		}
	}
	fdr, _ := stats.AdjustPValues(pvals, stats.FDRIndependent)

	terms := make([]string, n)
	for i, s := range sets {
		terms[i] = s.Name
	}
	cols := []string{"es", "nes", "pvalues", "fdr", "set_size", "genes"}
	out := dataset.NewTable(mode+"_gsea", terms, cols)
	for i := range sets {
		hits := make([]string, 0, len(members[i]))
		for g := range members[i] {
			hits = append(hits, g)
		}
		sort.Strings(hits)
		out.Set(i, 0, es[i])
		out.Set(i, 1, nes[i])
		out.Set(i, 2, pvals[i])
		out.Set(i, 3, fdr[i])
		out.Set(i, 4, float64(len(members[i])))
		out.SetText(i, 5, strings.Join(hits, geneSeparator))
	}
	e.last = &adapterRecord{kind: "gsea", table: out, geneColumn: "genes", separator: geneSeparator}
	return out
}

// enrichmentScore walks the ranked list accumulating |metric|^weight for
// hits and a constant decrement for misses, returning the extreme of the
// running sum.
func enrichmentScore(ranked []string, sorted []float64, member map[string]struct{}, weight float64) float64 {
	n := len(ranked)
	nh := len(member)
	if nh == 0 || nh == n {
		return 0
	}
	var nr float64
	for k, g := range ranked {
		if _, ok := member[g]; ok {
			nr += math.Pow(math.Abs(sorted[k]), weight)
		}
	}
	if nr == 0 {
		return 0
	}
	miss := 1 / float64(n-nh)
	var running, best float64
	for k, g := range ranked {
		if _, ok := member[g]; ok {
			running += math.Pow(math.Abs(sorted[k]), weight) / nr
		} else {
			running -= miss
		}
		if math.Abs(running) > math.Abs(best) {
			best = running
		}
	}
	return best
}

// rankBySignalToNoise orders genes by (meanA-meanB)/(stdA+stdB) descending.
// Standard deviations are floored GSEA-style at 0.2*|mean|.
func rankBySignalToNoise(genes []string, matrix [][]float64, classA []bool) ([]string, []float64) {
	s2n := make([]float64, len(genes))
	for i, row := range matrix {
		var a, b []float64
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if classA[j] {
				a = append(a, v)
			} else {
				b = append(b, v)
			}
		}
		s2n[i] = signalToNoise(a, b)
	}
	order := rankOrder(s2n)
	ranked := make([]string, len(genes))
	sorted := make([]float64, len(genes))
	for k, i := range order {
		ranked[k] = genes[i]
		sorted[k] = s2n[i]
	}
	return ranked, sorted
}

func signalToNoise(a, b []float64) float64 {
	if len(a) < 2 || len(b) < 2 {
		return 0
	}
	ma, sa := meanStd(a)
	mb, sb := meanStd(b)
	sa = math.Max(sa, 0.2*math.Abs(ma))
	sb = math.Max(sb, 0.2*math.Abs(mb))
	if sa+sb == 0 {
		return 0
	}
	return (ma - mb) / (sa + sb)
}

func meanStd(xs []float64) (float64, float64) {
	m := stats.Mean(xs)
	var ss float64
	for _, v := range xs {
		ss += (v - m) * (v - m)
	}
	return m, math.Sqrt(ss / float64(len(xs)-1))
}

// rankOrder returns index order by value descending, NaN last, ties stable.
func rankOrder(xs []float64) []int {
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := xs[order[a]], xs[order[b]]
		if math.IsNaN(vb) {
			return !math.IsNaN(va)
		}
		if math.IsNaN(va) {
			return false
		}
		return va > vb
	})
	return order
}

// prepareSets restricts the configured sets to the ranked universe and
// precomputes membership lookups.
func prepareSets(cfg GSEAConfig, universe []string) ([]GeneSet, []map[string]struct{}) {
	u := make(map[string]struct{}, len(universe))
	for _, g := range universe {
		u[g] = struct{}{}
	}
	sets := sizeFilter(cfg.Sets, u, cfg.MinSize, cfg.MaxSize)
	members := make([]map[string]struct{}, len(sets))
	for i, s := range sets {
		m := make(map[string]struct{}, len(s.Genes))
		for _, g := range s.Genes {
			m[g] = struct{}{}
		}
		members[i] = m
	}
	return sets, members
}

func distinctLabels(labels []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

// sameSignGE reports whether v is at least as extreme as es on the same
// side of zero.
func sameSignGE(v, es float64) bool {
	if es >= 0 {
		return v >= es
	}
	return v <= es
}

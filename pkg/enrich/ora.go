package enrich

import (
	"fmt"
	"sort"
	"strings"

	fet "github.com/glycerine/golang-fisher-exact"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/stats"
)

// geneSeparator joins member genes in result tables.
const geneSeparator = "/"

// adapterRecord remembers which routine produced the most recent result and
// its table conventions, so term-to-gene lookups read the right columns.
type adapterRecord struct {
	kind       string // "ora" or "gsea"
	table      *dataset.Table
	geneColumn string
	separator  string
}

// Enricher wraps the enrichment routines over one dataset and tracks the
// most recent result for gene extraction.
type Enricher struct {
	ds     *dataset.Dataset
	logger *zap.Logger
	last   *adapterRecord
}

// New builds an enricher over the dataset.
func New(ds *dataset.Dataset, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{ds: ds, logger: logger}
}

// ORAConfig parameterizes one over-representation run.
type ORAConfig struct {
	// Table names the result table to select genes from; Query filters its
	// rows (`col op value` joined with & and |). The matching row labels are
	// the gene list.
	Table string
	Query string

	// Sets are the annotation terms to test.
	Sets []GeneSet

	// Background is the gene universe; empty means the full row set of
	// Table.
	Background []string

	// MinSize/MaxSize bound tested set sizes after background restriction;
	// zero values default to 2 and no upper bound.
	MinSize int
	MaxSize int
}

// ORA filters the configured table by the query expression and runs a Fisher
// exact test of the selected gene list against every gene set, with BH
// correction across terms. The result table has one row per tested term.
func (e *Enricher) ORA(cfg ORAConfig) (*dataset.Table, error) {
	t, err := e.ds.MustTable(cfg.Table)
	if err != nil {
		return nil, err
	}
	q, err := ParseQuery(cfg.Query)
	if err != nil {
		return nil, err
	}
	selected, err := q.Filter(t)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("enrich: query %q selected no rows of %q", cfg.Query, cfg.Table)
	}

	background := cfg.Background
	if len(background) == 0 {
		background = t.Rows()
	}
	universe := make(map[string]struct{}, len(background))
	for _, g := range background {
		universe[g] = struct{}{}
	}
	listed := make(map[string]struct{}, len(selected))
	for _, g := range selected {
		if _, ok := universe[g]; ok {
			listed[g] = struct{}{}
		}
	}
	if len(listed) == 0 {
		return nil, fmt.Errorf("enrich: no selected gene is in the background")
	}

	minSize := cfg.MinSize
	if minSize == 0 {
		minSize = 2
	}
	sets := sizeFilter(cfg.Sets, universe, minSize, cfg.MaxSize)
	if len(sets) == 0 {
		return nil, fmt.Errorf("enrich: no gene set overlaps the background")
	}

	nBg := len(universe)
	nList := len(listed)
	terms := make([]string, 0, len(sets))
	pvals := make([]float64, 0, len(sets))
	overlaps := make([]int, 0, len(sets))
	setSizes := make([]int, 0, len(sets))
	hitGenes := make([]string, 0, len(sets))
	for _, s := range sets {
		var hits []string
		for _, g := range s.Genes {
			if _, ok := listed[g]; ok {
				hits = append(hits, g)
			}
		}
		n11 := len(hits)
		n12 := nList - n11
		n21 := len(s.Genes) - n11
		n22 := nBg - nList - n21
		_, _, rightp, _ := fet.FisherExactTest(n11, n12, n21, n22)
		sort.Strings(hits)

		terms = append(terms, s.Name)
		pvals = append(pvals, rightp)
		overlaps = append(overlaps, n11)
		setSizes = append(setSizes, len(s.Genes))
		hitGenes = append(hitGenes, strings.Join(hits, geneSeparator))
	}
	fdr, err := stats.AdjustPValues(pvals, stats.FDRIndependent)
	if err != nil {
		return nil, err
	}

	cols := []string{"overlap", "set_size", "list_size", "pvalues", "fdr", "genes"}
	out := dataset.NewTable(cfg.Table+"_ora", terms, cols)
	for i := range terms {
		out.Set(i, 0, float64(overlaps[i]))
		out.Set(i, 1, float64(setSizes[i]))
		out.Set(i, 2, float64(nList))
		out.Set(i, 3, pvals[i])
		out.Set(i, 4, fdr[i])
		out.SetText(i, 5, hitGenes[i])
	}
	e.last = &adapterRecord{kind: "ora", table: out, geneColumn: "genes", separator: geneSeparator}
	e.logger.Info("over-representation finished",
		zap.String("table", cfg.Table),
		zap.Int("genes", nList),
		zap.Int("terms", len(terms)))
	return out, nil
}

// GenesFromTerms collects the member genes recorded for the named terms of
// the most recent enrichment result, deduplicated and sorted. It errors when
// no enrichment has run yet or a term is unknown.
func (e *Enricher) GenesFromTerms(terms ...string) ([]string, error) {
	if e.last == nil {
		return nil, fmt.Errorf("enrich: no enrichment result to extract genes from")
	}
	j, ok := e.last.table.ColIndex(e.last.geneColumn)
	if !ok {
		return nil, fmt.Errorf("enrich: recorded result has no %q column", e.last.geneColumn)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, term := range terms {
		i, ok := e.last.table.RowIndex(term)
		if !ok {
			return nil, fmt.Errorf("enrich: term %q not in the recorded %s result", term, e.last.kind)
		}
		for _, g := range strings.Split(e.last.table.TextAt(i, j), e.last.separator) {
			if g == "" {
				continue
			}
			if _, dup := seen[g]; !dup {
				seen[g] = struct{}{}
				out = append(out, g)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Last exposes the most recent result table, or nil.
func (e *Enricher) Last() *dataset.Table {
	if e.last == nil {
		return nil
	}
	return e.last.table
}

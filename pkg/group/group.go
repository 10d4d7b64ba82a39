// Package group partitions the samples of a target table into named groups
// by categorical label columns and computes per-group summary and inferential
// statistics with multiple-testing correction.
package group

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/stats"
)

// Comparator runs the group comparison pipeline against a dataset. It moves
// from configured to pipeline-run via Run; Update resets the derived state
// (dividend orientation, element filter, palette) and re-runs.
type Comparator struct {
	ds     *dataset.Dataset
	logger *zap.Logger
	cfg    Config

	groupValues    []string          // group keys, first-appearance order
	sampleKeys     map[string]string // sample -> group key
	orderedSamples []string
	data        *dataset.Table      // restricted target table
	matrices    map[string][][]float64 // group key -> per-feature values
	params      map[string][][]float64 // summary name -> [group][feature]
	inferNames  []string
	infer       [][]float64 // [column][feature]
	outMask     []bool
	table       *dataset.Table
	dividend    string
	divisor     string
	inverted    bool
	palette     map[string]string
}

// New builds a comparator. Run must be called before the result accessors.
func New(ds *dataset.Dataset, cfg Config, logger *zap.Logger) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{ds: ds, logger: logger, cfg: cfg.withDefaults()}
}

// Update replaces the configuration, drops derived state and re-runs the
// pipeline.
func (c *Comparator) Update(cfg Config) error {
	c.cfg = cfg.withDefaults()
	c.dividend, c.divisor, c.inverted = "", "", false
	c.palette = nil
	c.table = nil
	return c.Run()
}

// Config returns the active configuration.
func (c *Comparator) Config() Config { return c.cfg }

// Run executes the whole pipeline: group resolution, target restriction,
// summary statistics, inference and table assembly.
func (c *Comparator) Run() error {
	if err := c.cfg.validate(); err != nil {
		return err
	}
	if err := c.resolveGroups(); err != nil {
		return err
	}
	if err := c.restrictTarget(); err != nil {
		return err
	}
	c.summarize()
	if err := c.infer2OrK(); err != nil {
		return err
	}
	if len(c.groupValues) > 1 {
		if err := c.assemble(); err != nil {
			return err
		}
	}
	c.derivePalette()
	c.logger.Info("group pipeline finished",
		zap.String("table", c.cfg.TableName),
		zap.Strings("groups", c.groupValues),
		zap.Int("features", len(c.data.Rows())))
	return nil
}

// resolveGroups validates the label columns, applies the optional value
// filter and assigns one underscore-joined group key per sample.
func (c *Comparator) resolveGroups() error {
	gt, err := c.ds.MustTable(c.cfg.FileType)
	if err != nil {
		return err
	}
	for _, name := range c.cfg.GroupName {
		if !gt.HasCol(name) {
			return fmt.Errorf("group: %q is not in the %s table", name, c.cfg.FileType)
		}
	}

	labels := make([][]string, len(c.cfg.GroupName))
	for k, name := range c.cfg.GroupName {
		labels[k], _ = gt.TextCol(name)
	}

	// Validate the filter against observed values before using it.
	if len(c.cfg.PartElements) > 0 {
		for k, allowed := range c.cfg.PartElements {
			observed := make(map[string]struct{})
			for _, v := range labels[k] {
				if v != "" {
					observed[v] = struct{}{}
				}
			}
			for _, v := range allowed {
				if _, ok := observed[v]; !ok {
					return fmt.Errorf("group: %q with wrong elements for column %q", v, c.cfg.GroupName[k])
				}
			}
		}
	}

	type labeled struct {
		sample string
		parts  []string
		order  []int // filter-order rank per label column
	}
	var kept []labeled
	for i, sample := range gt.Rows() {
		parts := make([]string, len(labels))
		missing := false
		for k := range labels {
			parts[k] = labels[k][i]
			if parts[k] == "" {
				missing = true
			}
		}
		if missing {
			continue
		}
		order := make([]int, len(parts))
		if len(c.cfg.PartElements) > 0 {
			ok := true
			for k, allowed := range c.cfg.PartElements {
				pos := indexOf(allowed, parts[k])
				if pos < 0 {
					ok = false
					break
				}
				order[k] = pos
			}
			if !ok {
				continue
			}
		}
		kept = append(kept, labeled{sample: sample, parts: parts, order: order})
	}
	if len(c.cfg.PartElements) > 0 {
		sort.SliceStable(kept, func(a, b int) bool {
			for k := range kept[a].order {
				if kept[a].order[k] != kept[b].order[k] {
					return kept[a].order[k] < kept[b].order[k]
				}
			}
			return false
		})
	}

	c.sampleKeys = make(map[string]string, len(kept))
	orderedSamples := make([]string, 0, len(kept))
	for _, l := range kept {
		c.sampleKeys[l.sample] = strings.Join(l.parts, "_")
		orderedSamples = append(orderedSamples, l.sample)
	}
	c.orderedSamples = orderedSamples
	return nil
}

// restrictTarget reduces the target table to the labeled samples and applies
// the missing-value housekeeping, then splits one matrix per group.
func (c *Comparator) restrictTarget() error {
	target, err := c.ds.MustTable(c.cfg.TableName)
	if err != nil {
		return err
	}
	t := target.RestrictCols(c.orderedSamples).
		DropAllNaNCols().
		DropConstantRows().
		DropSparseRows(c.cfg.Thresh)
	if len(t.Cols()) == 0 {
		return fmt.Errorf("group: no samples of %q carry a group label", c.cfg.TableName)
	}
	c.data = t

	c.groupValues = nil
	seen := make(map[string]struct{})
	groupCols := make(map[string][]int)
	for j, sample := range t.Cols() {
		key := c.sampleKeys[sample]
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			c.groupValues = append(c.groupValues, key)
		}
		groupCols[key] = append(groupCols[key], j)
	}

	c.matrices = make(map[string][][]float64, len(c.groupValues))
	nr, _ := t.Shape()
	for _, key := range c.groupValues {
		cols := groupCols[key]
		m := make([][]float64, nr)
		for i := 0; i < nr; i++ {
			row := make([]float64, len(cols))
			for k, j := range cols {
				row[k] = t.At(i, j)
			}
			m[i] = row
		}
		c.matrices[key] = m
	}
	return nil
}

// summarize computes the per-group per-feature summary blocks and the
// retained-feature mask.
func (c *Comparator) summarize() {
	nr, _ := c.data.Shape()
	kinds := []string{"mean", "median", "std", "cv", "count", "percentage"}
	c.params = make(map[string][][]float64, len(kinds))
	for _, k := range kinds {
		c.params[k] = make([][]float64, len(c.groupValues))
	}
	for g, key := range c.groupValues {
		m := c.matrices[key]
		mean := make([]float64, nr)
		median := make([]float64, nr)
		std := make([]float64, nr)
		cv := make([]float64, nr)
		count := make([]float64, nr)
		pct := make([]float64, nr)
		for i := 0; i < nr; i++ {
			mean[i] = stats.Mean(m[i])
			median[i] = stats.Median(m[i])
			std[i] = stats.Std(m[i])
			cv[i] = std[i] / mean[i]
			count[i] = float64(stats.Count(m[i]))
			pct[i] = stats.Fraction(m[i])
		}
		c.params["mean"][g] = mean
		c.params["median"][g] = median
		c.params["std"][g] = std
		c.params["cv"][g] = cv
		c.params["count"][g] = count
		c.params["percentage"][g] = pct
	}

	c.outMask = make([]bool, nr)
	for i := 0; i < nr; i++ {
		for g := range c.groupValues {
			if c.params["percentage"][g][i] > c.cfg.Thresh {
				c.outMask[i] = true
				break
			}
		}
	}
}

// statisticInput optionally log-transforms the group matrices before testing
// when configured and every value is strictly positive.
func (c *Comparator) statisticInput() map[string][][]float64 {
	var log func(float64) float64
	switch c.cfg.StatisticMethod {
	case "log2":
		log = math.Log2
	case "log10":
		log = math.Log10
	default:
		return c.matrices
	}
	min := math.Inf(1)
	for _, m := range c.matrices {
		for _, row := range m {
			for _, v := range row {
				if !math.IsNaN(v) && v < min {
					min = v
				}
			}
		}
	}
	if !(min > 0) {
		return c.matrices
	}
	out := make(map[string][][]float64, len(c.matrices))
	for key, m := range c.matrices {
		tm := make([][]float64, len(m))
		for i, row := range m {
			tr := make([]float64, len(row))
			for j, v := range row {
				if math.IsNaN(v) {
					tr[j] = v
				} else {
					tr[j] = log(v)
				}
			}
			tm[i] = tr
		}
		out[key] = tm
	}
	return out
}

// infer2OrK dispatches the inferential statistics by group count.
func (c *Comparator) infer2OrK() error {
	switch len(c.groupValues) {
	case 0:
		return fmt.Errorf("group: no groups resolved")
	case 1:
		c.inferNames, c.infer = nil, nil
		return nil
	case 2:
		return c.twoGroupInference()
	default:
		return c.multiGroupInference()
	}
}

func (c *Comparator) twoGroupInference() error {
	in := c.statisticInput()
	a, b := in[c.groupValues[0]], in[c.groupValues[1]]
	n1, n2 := c.params["count"][0], c.params["count"][1]
	nr := len(a)

	tStat := make([]float64, nr)
	tP := make([]float64, nr)
	cohenD := make([]float64, nr)
	wStat := make([]float64, nr)
	wP := make([]float64, nr)
	wES := make([]float64, nr)
	for i := 0; i < nr; i++ {
		tt := stats.TTestInd(a[i], b[i], c.cfg.EqualVar)
		tStat[i], tP[i] = tt.Statistic, tt.PValue
		cohenD[i] = tt.Statistic * math.Sqrt(1/n1[i]+1/n2[i])
		rs := stats.RankSums(a[i], b[i])
		wStat[i], wP[i] = rs.Statistic, rs.PValue
		wES[i] = rs.Statistic / math.Sqrt(n1[i]+n2[i])
	}
	tFDR, err := stats.AdjustPValues(tP, c.cfg.FDRMethod)
	if err != nil {
		return err
	}
	wFDR, err := stats.AdjustPValues(wP, c.cfg.FDRMethod)
	if err != nil {
		return err
	}
	c.inferNames = []string{
		"ttest_statistics", "cohen_d", "ttest_pvalues", "ttest_fdr",
		"ranksums_statistics", "wilcoxon_es", "ranksums_pvalues", "ranksums_fdr",
	}
	c.infer = [][]float64{tStat, cohenD, tP, tFDR, wStat, wES, wP, wFDR}
	return nil
}

func (c *Comparator) multiGroupInference() error {
	in := c.statisticInput()
	nr, _ := c.data.Shape()
	kinds := []struct {
		name string
		test func([][]float64) stats.TestResult
	}{
		{"anova", stats.OneWayANOVA},
		{"alexandergovern", stats.AlexanderGovern},
		{"kruskal", stats.KruskalWallis},
	}
	c.inferNames = nil
	c.infer = nil
	for _, kind := range kinds {
		statCol := make([]float64, nr)
		pCol := make([]float64, nr)
		for i := 0; i < nr; i++ {
			feature := make([][]float64, len(c.groupValues))
			for g, key := range c.groupValues {
				feature[g] = in[key][i]
			}
			res := kind.test(feature)
			statCol[i], pCol[i] = res.Statistic, res.PValue
		}
		fdr, err := stats.AdjustPValues(pCol, c.cfg.FDRMethod)
		if err != nil {
			return err
		}
		c.inferNames = append(c.inferNames,
			kind.name+"_statistics", kind.name+"_pvalues", kind.name+"_fdr")
		c.infer = append(c.infer, statCol, pCol, fdr)
	}
	return nil
}

func indexOf(xs []string, v string) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}

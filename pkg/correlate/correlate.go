// Package correlate computes pairwise and element-vs-all correlations
// between the rows of two named tables, with significance and FDR-corrected
// p-values.
package correlate

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// ErrMatrixOnly distinguishes correlation runs that do not admit a single
// combined results table; callers must use the per-statistic Matrix
// accessors instead.
var ErrMatrixOnly = errors.New(
	"correlate: combined table only suits one-vs-many data or locally corrected corresponding runs; " +
		"use the per-statistic matrix accessors")

// Config is the typed parameter bundle of the correlation engine.
type Config struct {
	Name1, Name2       string
	Element1, Element2 []string // nil or ["all"] selects every row
	FileType           string   // grouping table restricting the sample universe
	GroupName          []string // optional label columns for that restriction
	PartElements       [][]string
	Thresh             float64 // minimum valid-pair frequency; below it the comparison is flagged
	CalType            string  // "corresponding" (shared-index) or "other" (cross product)
	FDRMethod          string
	FDRType            string // "local" (row-wise) or "global" (flattened)
	Algorithm          string // "pearson", "spearman" or "all"
	WriteOut           string // output format; empty disables the write side effect
}

func (c Config) withDefaults() Config {
	if c.FileType == "" {
		c.FileType = "category"
	}
	if c.CalType == "" {
		c.CalType = "other"
	}
	if c.FDRMethod == "" {
		c.FDRMethod = "i"
	}
	if c.FDRType == "" {
		c.FDRType = "local"
	}
	if c.Algorithm == "" {
		c.Algorithm = "all"
	}
	return c
}

// Correlator resolves two row selections and correlates them, holding the
// per-statistic vectors or matrices of the latest run.
type Correlator struct {
	ds     *dataset.Dataset
	logger *zap.Logger
	cfg    Config

	name1, name2 string
	rows1, rows2 []string
	pairwise     bool // vectors (one-vs-many or corresponding) vs matrices
	order        []string
	vectors      map[string][]float64
	matrices     map[string]*dataset.Table
	index        []string // combined-table row labels
	freqMask     []bool
}

// New builds a correlator; Run executes the pipeline.
func New(ds *dataset.Dataset, cfg Config, logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{ds: ds, logger: logger, cfg: cfg.withDefaults()}
}

// Update replaces the configuration and re-runs.
func (c *Correlator) Update(cfg Config) error {
	c.cfg = cfg.withDefaults()
	return c.Run()
}

// Config returns the active configuration.
func (c *Correlator) Config() Config { return c.cfg }

// Run resolves elements, correlates and optionally writes the matrices out.
func (c *Correlator) Run() error {
	if c.cfg.Name1 == "" || c.cfg.Name2 == "" {
		return fmt.Errorf("correlate: both table names are required")
	}
	t1, err := c.ds.MustTable(c.cfg.Name1)
	if err != nil {
		return err
	}
	t2, err := c.ds.MustTable(c.cfg.Name2)
	if err != nil {
		return err
	}
	e1, err := resolveElements(t1, c.cfg.Element1)
	if err != nil {
		return fmt.Errorf("correlate: element1: %w", err)
	}
	e2, err := resolveElements(t2, c.cfg.Element2)
	if err != nil {
		return fmt.Errorf("correlate: element2: %w", err)
	}
	if len(e1) == 0 || len(e2) == 0 {
		return fmt.Errorf("correlate: empty element selection")
	}

	c.name1, c.name2 = c.cfg.Name1, c.cfg.Name2
	// Canonical convention: the smaller selection is first, so the
	// one-vs-many optimization always sees the single element on the left.
	if len(e2) < len(e1) {
		t1, t2 = t2, t1
		e1, e2 = e2, e1
		c.name1, c.name2 = c.name2, c.name1
	}

	universe, err := c.sampleUniverse()
	if err != nil {
		return err
	}

	c.vectors = make(map[string][]float64)
	c.matrices = make(map[string]*dataset.Table)
	c.order = nil
	c.freqMask = nil

	if len(e1) == 1 {
		err = c.oneVsMany(t1, t2, e1, e2, universe)
	} else if startsWithCo(c.cfg.CalType) {
		err = c.corresponding(t1, t2, e1, e2, universe)
	} else {
		err = c.crossProduct(t1, t2, e1, e2, universe)
	}
	if err != nil {
		return err
	}

	if c.cfg.WriteOut != "" {
		if err := c.writeOut(); err != nil {
			return err
		}
	}
	c.logger.Info("correlation finished",
		zap.String("name1", c.name1), zap.String("name2", c.name2),
		zap.Int("elements1", len(c.rows1)), zap.Int("elements2", len(c.rows2)))
	return nil
}

// resolveElements expands an element selection against a table's rows.
func resolveElements(t *dataset.Table, sel []string) ([]string, error) {
	if len(sel) == 0 || (len(sel) == 1 && sel[0] == "all") {
		return append([]string(nil), t.Rows()...), nil
	}
	for _, s := range sel {
		if !t.HasRow(s) {
			return nil, fmt.Errorf("row %q not in table %q", s, t.Name)
		}
	}
	return append([]string(nil), sel...), nil
}

// sampleUniverse returns the sample ids admitted by the optional grouping
// restriction, or every sample of the grouping table.
func (c *Correlator) sampleUniverse() ([]string, error) {
	gt, err := c.ds.MustTable(c.cfg.FileType)
	if err != nil {
		return nil, err
	}
	if len(c.cfg.GroupName) == 0 {
		return append([]string(nil), gt.Rows()...), nil
	}
	labels := make([][]string, len(c.cfg.GroupName))
	for k, name := range c.cfg.GroupName {
		col, ok := gt.TextCol(name)
		if !ok {
			return nil, fmt.Errorf("correlate: %q is not in the %s table", name, c.cfg.FileType)
		}
		labels[k] = col
	}
	var out []string
	for i, sample := range gt.Rows() {
		ok := true
		for k := range labels {
			v := labels[k][i]
			if v == "" {
				ok = false
				break
			}
			if len(c.cfg.PartElements) > k && len(c.cfg.PartElements[k]) > 0 && !contains(c.cfg.PartElements[k], v) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, sample)
		}
	}
	return out, nil
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func startsWithCo(s string) bool {
	return len(s) >= 2 && s[:2] == "co"
}

func (c *Correlator) algorithms() []string {
	switch c.cfg.Algorithm {
	case "all":
		return []string{"spearman", "pearson"}
	default:
		return []string{c.cfg.Algorithm}
	}
}

func corrColumnName(algorithm string) string {
	if algorithm == "spearman" {
		return "spearman_rho"
	}
	return algorithm + "_corr"
}

// Package regress fits linear, logistic and multinomial models over dataset
// tables, one model per outcome column, with optional scaling, collinearity
// pruning and a type II variance decomposition.
package regress

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/preprocess"
)

// FitResult carries one outcome's fit. A failed fit keeps its slot with Err
// set so one degenerate outcome never aborts the batch.
type FitResult struct {
	Outcome string
	Fit     *Fit
	Anova   []TermStat
	Err     error
}

// Regressor runs the configured model family over every outcome column.
type Regressor struct {
	ds     *dataset.Dataset
	logger *zap.Logger
	cfg    Config

	xFrame      *dataset.Table // samples x predictors, scaled and pruned
	yFrame      *dataset.Table // samples x outcomes
	categorical map[string]bool
	fits        []FitResult
	table       *dataset.Table
}

// New builds a regressor; Run executes the pipeline.
func New(ds *dataset.Dataset, cfg Config, logger *zap.Logger) *Regressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Regressor{ds: ds, logger: logger, cfg: cfg.withDefaults()}
}

// Config returns the active configuration.
func (r *Regressor) Config() Config { return r.cfg }

// Update replaces the configuration and re-runs.
func (r *Regressor) Update(cfg Config) error {
	r.cfg = cfg.withDefaults()
	return r.Run()
}

// Run rebuilds the frames and refits every outcome.
func (r *Regressor) Run() error {
	if err := r.cfg.validate(); err != nil {
		return err
	}
	filter, err := r.sampleFilter()
	if err != nil {
		return err
	}
	xf, err := buildFrame(r.ds, r.cfg.X, filter)
	if err != nil {
		return err
	}
	yf, err := buildFrame(r.ds, r.cfg.Y, filter)
	if err != nil {
		return err
	}

	shared := dataset.Intersect(xf.Rows(), yf.Rows())
	if len(shared) == 0 {
		return fmt.Errorf("regress: no shared samples between X and Y selections")
	}
	if xf, err = xf.SelectRows(shared); err != nil {
		return err
	}
	if yf, err = yf.SelectRows(shared); err != nil {
		return err
	}

	r.categorical = detectCategorical(xf, r.cfg.Categorical)
	if xf, err = r.prepareX(xf); err != nil {
		return err
	}
	if yf, err = r.prepareY(yf); err != nil {
		return err
	}
	r.xFrame, r.yFrame = xf, yf

	r.fits = r.fits[:0]
	for _, outcome := range yf.Cols() {
		res := r.fitOutcome(outcome)
		if res.Err != nil {
			r.logger.Warn("model fit skipped",
				zap.String("outcome", outcome),
				zap.Error(res.Err))
		}
		r.fits = append(r.fits, res)
	}
	r.table = nil
	return nil
}

// prepareX scales the numeric predictors and applies the VIF pruning loop.
// Categorical columns pass through untouched.
func (r *Regressor) prepareX(xf *dataset.Table) (*dataset.Table, error) {
	var numeric []string
	for _, name := range xf.Cols() {
		if !r.categorical[name] {
			numeric = append(numeric, name)
		}
	}
	if len(numeric) == 0 {
		return xf, nil
	}

	num := xf.RestrictCols(numeric)
	num, err := preprocess.Scale(num, r.cfg.ScalerX)
	if err != nil {
		return nil, err
	}
	if r.cfg.VIFCutoff > 0 {
		num = preprocess.CalculateVIF(num, r.cfg.VIFCutoff, r.logger)
	}

	surviving := make(map[string]bool, len(num.Cols()))
	for _, c := range num.Cols() {
		surviving[c] = true
	}
	keep := make([]string, 0, len(xf.Cols()))
	for _, name := range xf.Cols() {
		if r.categorical[name] || surviving[name] {
			keep = append(keep, name)
		}
	}
	out := xf.RestrictCols(keep)
	for _, name := range num.Cols() {
		col, _ := num.Col(name)
		j, _ := out.ColIndex(name)
		for i, v := range col {
			out.Set(i, j, v)
		}
	}
	return out, nil
}

// prepareY scales numeric outcomes and drops sparse outcome columns. Label
// outcomes (logit/softmax) only get the sparsity filter, counting non-empty
// cells.
func (r *Regressor) prepareY(yf *dataset.Table) (*dataset.Table, error) {
	if r.cfg.Type == FamilyOLS {
		var err error
		if yf, err = preprocess.Scale(yf, r.cfg.ScalerY); err != nil {
			return nil, err
		}
		if r.cfg.Thresh > 0 {
			yf = yf.Transpose().DropSparseRows(r.cfg.Thresh).Transpose()
		}
		return yf, nil
	}
	if r.cfg.Thresh <= 0 {
		return yf, nil
	}
	n := len(yf.Rows())
	keep := make([]string, 0, len(yf.Cols()))
	for _, name := range yf.Cols() {
		texts, _ := yf.TextCol(name)
		filled := 0
		for _, s := range texts {
			if s != "" {
				filled++
			}
		}
		cutoff := r.cfg.Thresh
		if cutoff <= 1 {
			cutoff *= float64(n)
		}
		if float64(filled) >= cutoff {
			keep = append(keep, name)
		}
	}
	return yf.RestrictCols(keep), nil
}

// fitOutcome fits one outcome column against the shared predictor frame.
func (r *Regressor) fitOutcome(outcome string) FitResult {
	res := FitResult{Outcome: outcome}

	var outcomeOK func(string) bool
	var yCol []float64
	var yText []string
	if r.cfg.Type == FamilyOLS {
		yCol, _ = r.yFrame.Col(outcome)
		outcomeOK = numericOutcomeOK(yCol, r.yFrame)
	} else {
		yText, _ = r.yFrame.TextCol(outcome)
		outcomeOK = func(sample string) bool {
			i, ok := r.yFrame.RowIndex(sample)
			return ok && yText[i] != ""
		}
	}

	rows := completeRows(r.xFrame, r.categorical, outcomeOK)
	if len(rows) < 3 {
		res.Err = fmt.Errorf("regress: %d complete observations for %q", len(rows), outcome)
		return res
	}
	design, err := buildDesign(r.xFrame, rows, outcome, r.categorical, !r.cfg.NoIntercept)
	if err != nil {
		res.Err = err
		return res
	}

	switch r.cfg.Type {
	case FamilyOLS:
		y := outcomeVector(yCol, r.yFrame, rows)
		fit, err := fitOLS(design, y)
		if err != nil {
			res.Err = err
			return res
		}
		fit.Outcome = outcome
		res.Fit = fit
		if r.cfg.ANOVA || wantsOutput(r.cfg.Output, "eta") {
			stats, err := anovaTypeII(fit, y)
			if err != nil {
				res.Err = fmt.Errorf("regress: anova for %q: %w", outcome, err)
				return res
			}
			res.Anova = stats
		}
	case FamilyLogit, FamilySoftmax:
		labels := make([]string, len(rows))
		for i, sample := range rows {
			ri, _ := r.yFrame.RowIndex(sample)
			labels[i] = yText[ri]
		}
		var fit *Fit
		if r.cfg.Type == FamilyLogit {
			fit, err = fitLogit(design, labels)
		} else {
			fit, err = fitSoftmax(design, labels)
		}
		if err != nil {
			res.Err = err
			return res
		}
		fit.Outcome = outcome
		res.Fit = fit
	}
	return res
}

// Fits returns the per-outcome results in outcome order, including failed
// slots.
func (r *Regressor) Fits() []FitResult {
	return append([]FitResult(nil), r.fits...)
}

// Frames exposes the aligned predictor and outcome frames of the last run.
func (r *Regressor) Frames() (x, y *dataset.Table) { return r.xFrame, r.yFrame }

func wantsOutput(outputs []string, name string) bool {
	for _, o := range outputs {
		if o == name {
			return true
		}
	}
	return false
}

// nanSlice is a NaN-filled column used when a fit failed but its outcome
// still occupies a block in the assembled table.
func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

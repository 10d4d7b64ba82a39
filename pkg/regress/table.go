package regress

import (
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// ResultTable assembles all requested output blocks into one table: a column
// per outcome and output kind, named <outcome>_<output>, over the union of
// coefficient (and, for eta, term) labels. Outcomes whose fit failed keep
// NaN columns.
func (r *Regressor) ResultTable() (*dataset.Table, error) {
	if r.table != nil {
		return r.table, nil
	}

	var rowLabels []string
	seen := make(map[string]int)
	addRow := func(label string) int {
		if i, ok := seen[label]; ok {
			return i
		}
		seen[label] = len(rowLabels)
		rowLabels = append(rowLabels, label)
		return len(rowLabels) - 1
	}
	for _, res := range r.fits {
		if res.Fit != nil {
			for _, name := range res.Fit.RowNames {
				addRow(name)
			}
		}
		for _, ts := range res.Anova {
			addRow(ts.Term)
		}
	}

	var cols []string
	var columns [][]float64
	push := func(name string, fill func(col []float64)) {
		col := nanSlice(len(rowLabels))
		fill(col)
		cols = append(cols, name)
		columns = append(columns, col)
	}

	for _, res := range r.fits {
		res := res
		for _, out := range r.cfg.Output {
			switch out {
			case "params":
				push(res.Outcome+"_params", func(col []float64) {
					if res.Fit == nil {
						return
					}
					for k, name := range res.Fit.RowNames {
						col[seen[name]] = res.Fit.Coef[k]
					}
				})
			case "pvalues":
				push(res.Outcome+"_pvalues", func(col []float64) {
					if res.Fit == nil {
						return
					}
					for k, name := range res.Fit.RowNames {
						col[seen[name]] = res.Fit.PValues[k]
					}
				})
			case "eta":
				push(res.Outcome+"_eta", func(col []float64) {
					for _, ts := range res.Anova {
						col[seen[ts.Term]] = ts.Eta
					}
				})
			}
		}
	}

	vals := make([][]float64, len(rowLabels))
	for i := range rowLabels {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = columns[j][i]
		}
		vals[i] = row
	}
	t, err := dataset.FromValues("regression", rowLabels, cols, vals)
	if err != nil {
		return nil, err
	}
	r.table = t
	return t, nil
}

// AnovaTable reports the full type II decomposition, one row per outcome and
// term, with the classical columns.
func (r *Regressor) AnovaTable() (*dataset.Table, error) {
	var rows []string
	var vals [][]float64
	for _, res := range r.fits {
		for _, ts := range res.Anova {
			rows = append(rows, res.Outcome+"|"+ts.Term)
			vals = append(vals, []float64{ts.SS, ts.DF, ts.F, ts.PValue, ts.Eta})
		}
	}
	cols := []string{"sum_sq", "df", "F", "PR(>F)", "eta_sq"}
	if len(rows) == 0 {
		return dataset.FromValues("anova", nil, cols, nil)
	}
	return dataset.FromValues("anova", rows, cols, vals)
}

// Formulas lists the rendered model formula per successfully fitted outcome.
func (r *Regressor) Formulas() map[string]string {
	out := make(map[string]string, len(r.fits))
	for _, res := range r.fits {
		if res.Fit != nil {
			out[res.Outcome] = res.Fit.Formula
		}
	}
	return out
}

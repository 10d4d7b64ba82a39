package regress

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// Term is one formula term: a numeric predictor, a dummy-encoded categorical
// predictor, or the intercept. Categorical terms span several design
// columns.
type Term struct {
	Name        string
	Categorical bool
	Columns     []int // design-matrix column positions
}

// Design is a fully encoded design matrix over complete rows.
type Design struct {
	X        *mat.Dense
	ColNames []string
	Terms    []Term
	Rows     []string // retained sample labels
	Formula  string
}

// buildDesign encodes the predictor frame for the given sample rows.
// Categorical predictors use treatment coding with the first sorted level as
// reference and appear in the formula wrapped as C(name). outcome is only
// used to render the formula.
func buildDesign(frame *dataset.Table, rows []string, outcome string, categorical map[string]bool, intercept bool) (*Design, error) {
	sub, err := frame.SelectRows(rows)
	if err != nil {
		return nil, err
	}

	var colNames []string
	var terms []Term
	var encoders []func(i int) []float64
	var formulaTerms []string

	if intercept {
		terms = append(terms, Term{Name: "Intercept", Columns: []int{0}})
		colNames = append(colNames, "Intercept")
		encoders = append(encoders, func(int) []float64 { return []float64{1} })
	}

	for _, name := range frame.Cols() {
		name := name
		j, _ := sub.ColIndex(name)
		if categorical[name] {
			texts, _ := sub.TextCol(name)
			levels := distinctSorted(texts)
			if len(levels) < 2 {
				continue
			}
			start := len(colNames)
			cols := make([]int, 0, len(levels)-1)
			for k, level := range levels[1:] {
				colNames = append(colNames, fmt.Sprintf("C(%s)[T.%s]", name, level))
				cols = append(cols, start+k)
			}
			terms = append(terms, Term{Name: "C(" + name + ")", Categorical: true, Columns: cols})
			levelSet := levels[1:]
			encoders = append(encoders, func(i int) []float64 {
				out := make([]float64, len(levelSet))
				for k, level := range levelSet {
					if texts[i] == level {
						out[k] = 1
					}
				}
				return out
			})
			formulaTerms = append(formulaTerms, "C("+name+")")
		} else {
			col := len(colNames)
			colNames = append(colNames, name)
			terms = append(terms, Term{Name: name, Columns: []int{col}})
			encoders = append(encoders, func(i int) []float64 { return []float64{sub.At(i, j)} })
			formulaTerms = append(formulaTerms, name)
		}
	}

	n := len(rows)
	p := len(colNames)
	if p == 0 {
		return nil, fmt.Errorf("regress: empty design for %q", outcome)
	}
	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		col := 0
		for _, enc := range encoders {
			for _, v := range enc(i) {
				x.Set(i, col, v)
				col++
			}
		}
	}

	formula := outcome + " ~ " + strings.Join(formulaTerms, " + ")
	if !intercept {
		formula += " -1"
	}
	return &Design{X: x, ColNames: colNames, Terms: terms, Rows: rows, Formula: formula}, nil
}

// detectCategorical marks the explicitly listed predictors, or, with no
// list, every predictor with fewer than autoCategoricalCutoff distinct
// non-missing values.
func detectCategorical(frame *dataset.Table, listed []string) map[string]bool {
	out := make(map[string]bool)
	if listed != nil {
		for _, name := range listed {
			out[name] = true
		}
		return out
	}
	for _, name := range frame.Cols() {
		texts, _ := frame.TextCol(name)
		if n := len(distinctSorted(texts)); n > 0 && n < autoCategoricalCutoff {
			out[name] = true
		}
	}
	return out
}

func distinctSorted(texts []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range texts {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// completeRows returns the samples with a usable outcome and no missing
// predictor. Categorical predictors need non-empty text; numeric ones a
// parseable value.
func completeRows(frame *dataset.Table, categorical map[string]bool, outcomeOK func(sample string) bool) []string {
	var rows []string
	for i, sample := range frame.Rows() {
		if !outcomeOK(sample) {
			continue
		}
		ok := true
		for j, name := range frame.Cols() {
			if categorical[name] {
				if frame.TextAt(i, j) == "" {
					ok = false
					break
				}
			} else if math.IsNaN(frame.At(i, j)) {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, sample)
		}
	}
	return rows
}

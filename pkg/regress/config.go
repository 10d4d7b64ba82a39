package regress

import "fmt"

// Model family identifiers.
const (
	FamilyOLS     = "ols"
	FamilyLogit   = "logit"
	FamilySoftmax = "softmax"
)

// Selection declares columns taken from one named table. Data tables are
// features x samples, so selected feature rows are transposed into predictor
// columns; category-like tables (name starting with "cate") are transposed
// before selection instead.
type Selection struct {
	Table   string
	Columns []string // nil or ["all"] selects everything
}

// Config is the typed parameter bundle of the regression engine.
type Config struct {
	Type string // ols, logit or softmax

	Y []Selection // outcome columns; one model is fit per column
	X []Selection // predictor columns, shared across outcomes

	// ScalerX and ScalerY independently scale predictors and outcomes with a
	// preprocess method; empty means none.
	ScalerX string
	ScalerY string

	// VIFCutoff enables iterative collinearity pruning of the predictors
	// when positive.
	VIFCutoff float64

	// FileType/GroupName/PartElements optionally restrict samples the way
	// the comparator does.
	FileType     string
	GroupName    []string
	PartElements [][]string

	// Thresh drops sparse outcome columns before fitting (fraction when at
	// most 1, count above 1); zero disables.
	Thresh float64

	// NoIntercept removes the constant term from every formula.
	NoIntercept bool

	// Categorical lists predictor columns to dummy-encode. When nil,
	// predictors with fewer than 8 distinct values are treated as
	// categorical.
	Categorical []string

	// ANOVA adds a type II decomposition per outcome.
	ANOVA bool

	// Output selects the assembled blocks: "params" (coefficients),
	// "pvalues", "eta" (term sum of squares over total sum of squares).
	Output []string
}

func (c Config) withDefaults() Config {
	if c.Type == "" {
		c.Type = FamilyOLS
	}
	if c.FileType == "" {
		c.FileType = "category"
	}
	if len(c.Output) == 0 {
		c.Output = []string{"params", "pvalues"}
	}
	return c
}

func (c Config) validate() error {
	switch c.Type {
	case FamilyOLS, FamilyLogit, FamilySoftmax:
	default:
		return fmt.Errorf("regress: unknown model type %q", c.Type)
	}
	if len(c.X) == 0 || len(c.Y) == 0 {
		return fmt.Errorf("regress: both X and Y selections are required")
	}
	for _, out := range c.Output {
		switch out {
		case "params", "pvalues", "eta":
		default:
			return fmt.Errorf("regress: unknown output %q", out)
		}
	}
	return nil
}

// autoCategoricalCutoff is the distinct-value count below which a predictor
// is treated as categorical when no explicit list is given.
const autoCategoricalCutoff = 8

package regress

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

const fixtureSamples = 30

// fixture builds a project with numeric predictors (x3 exactly collinear
// with x1), a linear outcome y = 1 + 2*x1 + noise, and a phenotype table
// with a categorical predictor and a binary response.
func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "document")
	require.NoError(t, os.MkdirAll(doc, 0o755))

	samples := make([]string, fixtureSamples)
	for i := range samples {
		samples[i] = fmt.Sprintf("s%d", i+1)
	}

	var x1, x2, x3, y strings.Builder
	x1.WriteString("x1")
	x2.WriteString("x2")
	x3.WriteString("x3")
	y.WriteString("y")
	empty := "empty" + strings.Repeat(",", fixtureSamples)
	for i := 1; i <= fixtureSamples; i++ {
		xv := float64(i)
		x1.WriteString(fmt.Sprintf(",%g", xv))
		x2.WriteString(fmt.Sprintf(",%.6f", 50-0.5*xv+math.Cos(float64(i))))
		x3.WriteString(fmt.Sprintf(",%g", 2*xv))
		y.WriteString(fmt.Sprintf(",%.6f", 1+2*xv+0.01*math.Sin(float64(i))))
	}
	xdata := "," + strings.Join(samples, ",") + "\n" +
		x1.String() + "\n" + x2.String() + "\n" + x3.String() + "\n"
	ydata := "," + strings.Join(samples, ",") + "\n" +
		y.String() + "\n" + empty + "\n"

	var pheno strings.Builder
	pheno.WriteString(",sex,response\n")
	for i := 1; i <= fixtureSamples; i++ {
		sex := "F"
		if i%2 == 0 {
			sex = "M"
		}
		response := "no"
		switch {
		case i <= 10:
			if i == 8 || i == 10 {
				response = "yes"
			}
		case i <= 20:
			if i%2 == 0 {
				response = "yes"
			}
		default:
			response = "yes"
			if i == 21 || i == 23 {
				response = "no"
			}
		}
		pheno.WriteString(fmt.Sprintf("s%d,%s,%s\n", i, sex, response))
	}

	require.NoError(t, os.WriteFile(filepath.Join(doc, "xdata.csv"), []byte(xdata), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(doc, "ydata.csv"), []byte(ydata), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(doc, "catepheno.csv"), []byte(pheno.String()), 0o644))

	ds, err := dataset.Open(dir, zap.NewNop())
	require.NoError(t, err)
	for _, res := range ds.LoadAll() {
		require.NoError(t, res.Err)
	}
	return ds
}

func TestOLSRecoversSlope(t *testing.T) {
	ds := fixture(t)
	r := New(ds, Config{
		X: []Selection{{Table: "xdata", Columns: []string{"x1"}}},
		Y: []Selection{{Table: "ydata", Columns: []string{"y"}}},
	}, zap.NewNop())
	require.NoError(t, r.Run())

	fits := r.Fits()
	require.Len(t, fits, 1)
	require.NoError(t, fits[0].Err)
	fit := fits[0].Fit
	assert.Equal(t, "y ~ x1", fit.Formula)

	slope := coefOf(t, fit, "x1")
	intercept := coefOf(t, fit, "Intercept")
	assert.InDelta(t, 2.0, slope, 0.01)
	assert.InDelta(t, 1.0, intercept, 0.1)
	assert.Less(t, pvalueOf(t, fit, "x1"), 1e-9)

	table, err := r.ResultTable()
	require.NoError(t, err)
	assert.True(t, table.HasCol("y_params"))
	assert.True(t, table.HasCol("y_pvalues"))
}

func TestCategoricalPredictorFormula(t *testing.T) {
	ds := fixture(t)
	r := New(ds, Config{
		X: []Selection{
			{Table: "xdata", Columns: []string{"x1"}},
			{Table: "catepheno", Columns: []string{"sex"}},
		},
		Y: []Selection{{Table: "ydata", Columns: []string{"y"}}},
	}, zap.NewNop())
	require.NoError(t, r.Run())

	fit := r.Fits()[0].Fit
	require.NotNil(t, fit)
	assert.Equal(t, "y ~ x1 + C(sex)", fit.Formula)
	assert.Contains(t, fit.RowNames, "C(sex)[T.M]")
}

func TestNoInterceptFormulaSuffix(t *testing.T) {
	ds := fixture(t)
	r := New(ds, Config{
		X:           []Selection{{Table: "xdata", Columns: []string{"x1"}}},
		Y:           []Selection{{Table: "ydata", Columns: []string{"y"}}},
		NoIntercept: true,
	}, zap.NewNop())
	require.NoError(t, r.Run())

	fit := r.Fits()[0].Fit
	require.NotNil(t, fit)
	assert.Equal(t, "y ~ x1 -1", fit.Formula)
	assert.NotContains(t, fit.RowNames, "Intercept")
}

func TestVIFPrunesCollinearPredictor(t *testing.T) {
	ds := fixture(t)
	r := New(ds, Config{
		X:         []Selection{{Table: "xdata", Columns: []string{"x1", "x2", "x3"}}},
		Y:         []Selection{{Table: "ydata", Columns: []string{"y"}}},
		VIFCutoff: 5,
	}, zap.NewNop())
	require.NoError(t, r.Run())

	x, _ := r.Frames()
	assert.Less(t, len(x.Cols()), 3)
	require.NoError(t, r.Fits()[0].Err)
}

func TestFailedOutcomeDoesNotAbortBatch(t *testing.T) {
	ds := fixture(t)
	r := New(ds, Config{
		X: []Selection{{Table: "xdata", Columns: []string{"x1"}}},
		Y: []Selection{{Table: "ydata"}},
	}, zap.NewNop())
	require.NoError(t, r.Run())

	fits := r.Fits()
	require.Len(t, fits, 2)
	byOutcome := map[string]FitResult{}
	for _, f := range fits {
		byOutcome[f.Outcome] = f
	}
	assert.NoError(t, byOutcome["y"].Err)
	assert.Error(t, byOutcome["empty"].Err)

	table, err := r.ResultTable()
	require.NoError(t, err)
	assert.True(t, table.HasCol("empty_params"))
	i, _ := table.RowIndex("x1")
	j, _ := table.ColIndex("empty_params")
	assert.True(t, math.IsNaN(table.At(i, j)))
}

func TestAnovaEtaDominantTerm(t *testing.T) {
	ds := fixture(t)
	r := New(ds, Config{
		X: []Selection{
			{Table: "xdata", Columns: []string{"x1"}},
			{Table: "catepheno", Columns: []string{"sex"}},
		},
		Y:      []Selection{{Table: "ydata", Columns: []string{"y"}}},
		ANOVA:  true,
		Output: []string{"params", "pvalues", "eta"},
	}, zap.NewNop())
	require.NoError(t, r.Run())

	res := r.Fits()[0]
	require.NoError(t, res.Err)
	require.NotEmpty(t, res.Anova)

	etas := map[string]float64{}
	for _, ts := range res.Anova {
		etas[ts.Term] = ts.Eta
		assert.GreaterOrEqual(t, ts.Eta, 0.0)
		assert.LessOrEqual(t, ts.Eta, 1.0)
	}
	assert.Greater(t, etas["x1"], 0.9)
	assert.Greater(t, etas["x1"], etas["C(sex)"])

	table, err := r.ResultTable()
	require.NoError(t, err)
	assert.True(t, table.HasCol("y_eta"))
}

func TestLogitPositiveAssociation(t *testing.T) {
	ds := fixture(t)
	r := New(ds, Config{
		Type: FamilyLogit,
		X:    []Selection{{Table: "xdata", Columns: []string{"x1"}}},
		Y:    []Selection{{Table: "catepheno", Columns: []string{"response"}}},
	}, zap.NewNop())
	require.NoError(t, r.Run())

	res := r.Fits()[0]
	require.NoError(t, res.Err)
	assert.Greater(t, coefOf(t, res.Fit, "x1"), 0.0)
}

func TestUnknownFamilyRejected(t *testing.T) {
	ds := fixture(t)
	r := New(ds, Config{
		Type: "poisson",
		X:    []Selection{{Table: "xdata", Columns: []string{"x1"}}},
		Y:    []Selection{{Table: "ydata", Columns: []string{"y"}}},
	}, zap.NewNop())
	assert.Error(t, r.Run())
}

func coefOf(t *testing.T, fit *Fit, name string) float64 {
	t.Helper()
	for i, n := range fit.RowNames {
		if n == name {
			return fit.Coef[i]
		}
	}
	t.Fatalf("no coefficient %q in %v", name, fit.RowNames)
	return 0
}

func pvalueOf(t *testing.T, fit *Fit, name string) float64 {
	t.Helper()
	for i, n := range fit.RowNames {
		if n == name {
			return fit.PValues[i]
		}
	}
	t.Fatalf("no p-value %q in %v", name, fit.RowNames)
	return 0
}

package group

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// fixture builds a project with a 12-sample category table (subtypes A, B,
// C) and a protein matrix holding one strongly shifted feature, one flat
// feature and one indifferent feature.
func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "document")
	require.NoError(t, os.MkdirAll(doc, 0o755))

	category := ",subtype\n" +
		"s1,A\ns2,A\ns3,A\ns4,A\n" +
		"s5,B\ns6,B\ns7,B\ns8,B\n" +
		"s9,C\ns10,C\ns11,C\ns12,C\n"
	protein := ",s1,s2,s3,s4,s5,s6,s7,s8,s9,s10,s11,s12\n" +
		"up,30.1,31.2,29.8,30.9,2.1,2.3,1.9,2.2,2.5,2.4,2.6,2.3\n" +
		"same,5.1,4.9,5.2,5.0,5.1,4.8,5.3,5.0,4.9,5.2,5.1,5.0\n" +
		"flat,1,1,1,1,1,1,1,1,1,1,1,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(doc, "category.csv"), []byte(category), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(doc, "protein.csv"), []byte(protein), 0o644))

	ds, err := dataset.Open(dir, zap.NewNop())
	require.NoError(t, err)
	for _, res := range ds.LoadAll() {
		require.NoError(t, res.Err)
	}
	return ds
}

func twoGroupConfig() Config {
	return Config{
		GroupName:    []string{"subtype"},
		TableName:    "protein",
		PartElements: [][]string{{"A", "B"}},
	}
}

func TestTwoGroupComparison(t *testing.T) {
	ds := fixture(t)
	c := New(ds, twoGroupConfig(), zap.NewNop())
	require.NoError(t, c.Run())

	assert.Equal(t, []string{"A", "B"}, c.GroupValues())

	// The constant feature is removed by the restriction housekeeping.
	assert.False(t, c.Data().HasRow("flat"))

	table := c.Table()
	require.NotNil(t, table)
	for _, col := range []string{
		"A_mean", "B_mean", "B_vs_A",
		"ttest_statistics", "cohen_d", "ttest_pvalues", "ttest_fdr",
		"ranksums_statistics", "wilcoxon_es", "ranksums_pvalues", "ranksums_fdr",
		"A_percentage", "B_percentage",
	} {
		assert.True(t, table.HasCol(col), "missing column %s", col)
	}

	up, _ := table.RowIndex("up")
	j, _ := table.ColIndex("ttest_pvalues")
	assert.Less(t, table.At(up, j), 0.05)

	same, _ := table.RowIndex("same")
	assert.Greater(t, table.At(same, j), 0.05)
}

func TestRatioOrientationInvariance(t *testing.T) {
	ds := fixture(t)

	cfg := twoGroupConfig()
	cfg.Dividend = "A"
	c := New(ds, cfg, zap.NewNop())
	require.NoError(t, c.Run())
	assert.Equal(t, "A", c.Dividend())
	forward := c.Table()
	jF, ok := forward.ColIndex("A_vs_B")
	require.True(t, ok)
	up, _ := forward.RowIndex("up")
	rF := forward.At(up, jF)

	cfg.Dividend = "B"
	require.NoError(t, c.Update(cfg))
	assert.Equal(t, "B", c.Dividend())
	backward := c.Table()
	jB, ok := backward.ColIndex("B_vs_A")
	require.True(t, ok)
	up, _ = backward.RowIndex("up")
	rB := backward.At(up, jB)

	// All summaries are positive, so the two orientations are reciprocal.
	assert.InDelta(t, 1, rF*rB, 1e-9)
	assert.Greater(t, rF, 1.0)
}

func TestWrongFilterElements(t *testing.T) {
	ds := fixture(t)
	cfg := twoGroupConfig()
	cfg.PartElements = [][]string{{"A", "Z"}}
	c := New(ds, cfg, zap.NewNop())
	err := c.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong elements")
}

func TestUnknownGroupColumn(t *testing.T) {
	ds := fixture(t)
	cfg := twoGroupConfig()
	cfg.GroupName = []string{"stage"}
	cfg.PartElements = nil
	c := New(ds, cfg, zap.NewNop())
	assert.Error(t, c.Run())
}

func TestThreeGroupInference(t *testing.T) {
	ds := fixture(t)
	cfg := Config{
		GroupName: []string{"subtype"},
		TableName: "protein",
	}
	c := New(ds, cfg, zap.NewNop())
	require.NoError(t, c.Run())

	assert.Len(t, c.GroupValues(), 3)
	table := c.Table()
	require.NotNil(t, table)
	for _, col := range []string{
		"anova_statistics", "anova_pvalues", "anova_fdr",
		"alexandergovern_pvalues", "kruskal_pvalues",
	} {
		assert.True(t, table.HasCol(col), "missing column %s", col)
	}
	up, _ := table.RowIndex("up")
	j, _ := table.ColIndex("anova_pvalues")
	assert.Less(t, table.At(up, j), 0.01)
}

func TestMergeDataGroupLongForm(t *testing.T) {
	ds := fixture(t)
	c := New(ds, twoGroupConfig(), zap.NewNop())
	require.NoError(t, c.Run())

	long := c.MergeDataGroup("up", "nosuch")
	require.NotNil(t, long)
	assert.Equal(t, []string{"up", "group"}, long.Cols())
	assert.Len(t, long.Rows(), 8)

	groups, _ := long.TextCol("group")
	seen := map[string]bool{}
	for _, g := range groups {
		seen[g] = true
	}
	assert.True(t, seen["A"] && seen["B"])
}

func TestCohenDMatchesStatistic(t *testing.T) {
	ds := fixture(t)
	c := New(ds, twoGroupConfig(), zap.NewNop())
	require.NoError(t, c.Run())

	table := c.Table()
	up, _ := table.RowIndex("up")
	jT, _ := table.ColIndex("ttest_statistics")
	jD, _ := table.ColIndex("cohen_d")
	want := table.At(up, jT) * math.Sqrt(1.0/4+1.0/4)
	assert.InDelta(t, want, table.At(up, jD), 1e-9)
}

func TestPaletteFallsBackToDefaultCycle(t *testing.T) {
	ds := fixture(t)
	c := New(ds, twoGroupConfig(), zap.NewNop())
	require.NoError(t, c.Run())

	palette := c.Palette()
	assert.Equal(t, dataset.DefaultPalette[0], palette["A"])
	assert.Equal(t, dataset.DefaultPalette[1], palette["B"])
}

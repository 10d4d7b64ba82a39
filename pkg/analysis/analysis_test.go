package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/correlate"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/group"
	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/regress"
)

func projectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "document")
	require.NoError(t, os.MkdirAll(doc, 0o755))

	category := ",subtype,age\n" +
		"s1,A,21\ns2,A,30\ns3,A,44\ns4,A,52\n" +
		"s5,B,33\ns6,B,61\ns7,B,47\ns8,B,58\n" +
		"s9,C,39\ns10,C,45\ns11,C,50\ns12,C,64\n"
	protein := ",s1,s2,s3,s4,s5,s6,s7,s8,s9,s10,s11,s12\n" +
		"up,30.1,31.2,29.8,30.9,2.1,2.3,1.9,2.2,2.5,2.4,2.6,2.3\n" +
		"same,5.1,4.9,5.2,5.0,5.1,4.8,5.3,5.0,4.9,5.2,5.1,5.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(doc, "category.csv"), []byte(category), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(doc, "protein.csv"), []byte(protein), 0o644))
	return dir
}

func TestOpenRequiresProjectLayout(t *testing.T) {
	_, err := Open(t.TempDir(), zap.NewNop())
	assert.Error(t, err)
}

func TestOpenSurvivesUnreadableTable(t *testing.T) {
	dir := projectDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document", "weird.json"), []byte("{}"), 0o644))

	s, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	_, ok := s.Dataset().Table("protein")
	assert.True(t, ok)
	_, ok = s.Dataset().Table("weird")
	assert.False(t, ok)
}

func TestEnginesBuiltOnFirstConfig(t *testing.T) {
	s, err := Open(projectDir(t), zap.NewNop())
	require.NoError(t, err)

	assert.Nil(t, s.Comparator())
	assert.Nil(t, s.Correlator())
	assert.Nil(t, s.Regressor())

	require.NoError(t, s.SetGroupConfig(group.Config{
		GroupName:    []string{"subtype"},
		TableName:    "protein",
		PartElements: [][]string{{"A", "B"}},
	}))
	require.NotNil(t, s.Comparator())
	require.NotNil(t, s.Comparator().Table())

	require.NoError(t, s.SetCorrelateConfig(correlate.Config{
		Name1:    "protein",
		Name2:    "protein",
		Element1: []string{"up"},
	}))
	require.NotNil(t, s.Correlator())

	require.NoError(t, s.SetRegressConfig(regress.Config{
		X: []regress.Selection{{Table: "protein", Columns: []string{"up"}}},
		Y: []regress.Selection{{Table: "protein", Columns: []string{"same"}}},
	}))
	require.NotNil(t, s.Regressor())
	require.Len(t, s.Regressor().Fits(), 1)

	assert.NotNil(t, s.Enricher())
	assert.NotNil(t, s.Plotter())

	params := s.Params()
	for _, key := range []string{"project", "tables", "group", "correlate", "regress"} {
		assert.Contains(t, params, key)
	}
}

func TestSetGroupConfigRerunsExistingEngine(t *testing.T) {
	s, err := Open(projectDir(t), zap.NewNop())
	require.NoError(t, err)

	cfg := group.Config{
		GroupName:    []string{"subtype"},
		TableName:    "protein",
		PartElements: [][]string{{"A", "B"}},
		Dividend:     "A",
	}
	require.NoError(t, s.SetGroupConfig(cfg))
	first := s.Comparator()
	assert.True(t, first.Table().HasCol("A_vs_B"))

	cfg.Dividend = "B"
	require.NoError(t, s.SetGroupConfig(cfg))
	assert.Same(t, first, s.Comparator())
	assert.True(t, s.Comparator().Table().HasCol("B_vs_A"))
}

func TestCountTableKinds(t *testing.T) {
	s, err := Open(projectDir(t), zap.NewNop())
	require.NoError(t, err)

	plain, err := s.CountTable("category", "subtype", CountPlain)
	require.NoError(t, err)
	assert.Equal(t, "category_subtype_count", plain.Name)
	// Equal frequencies fall back to alphabetical order.
	assert.Equal(t, []string{"A", "B", "C"}, plain.Rows())
	j, _ := plain.ColIndex("count")
	assert.InDelta(t, 4, plain.At(0, j), 1e-12)

	acc, err := s.CountTable("category", "subtype", CountAccumulative)
	require.NoError(t, err)
	ja, _ := acc.ColIndex("accumulative")
	assert.InDelta(t, 4, acc.At(0, ja), 1e-12)
	assert.InDelta(t, 8, acc.At(1, ja), 1e-12)
	assert.InDelta(t, 12, acc.At(2, ja), 1e-12)

	ranges, err := s.CountTable("category", "age", CountRange)
	require.NoError(t, err)
	assert.Len(t, ranges.Rows(), 10)
	jc, _ := ranges.ColIndex("count")
	var total float64
	for i := range ranges.Rows() {
		total += ranges.At(i, jc)
	}
	assert.InDelta(t, 12, total, 1e-12)

	_, err = s.CountTable("category", "subtype", "histogram")
	assert.Error(t, err)
	_, err = s.CountTable("category", "nosuch", CountPlain)
	assert.Error(t, err)
	_, err = s.CountTable("nosuch", "subtype", CountPlain)
	assert.Error(t, err)
}

func TestWriteForwardsToDataset(t *testing.T) {
	s, err := Open(projectDir(t), zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, s.Write(nil, "result", "csv"))

	tab, err := dataset.FromValues("result", []string{"f1"}, []string{"a"}, [][]float64{{1}})
	require.NoError(t, err)
	require.NoError(t, s.Write(tab, "result", "csv"))
	_, err = os.Stat(filepath.Join(s.Dataset().DocumentDir(), "result.csv"))
	assert.NoError(t, err)
}

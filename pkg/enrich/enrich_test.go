package enrich

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// fixture builds a project with a differential-expression style table: genes
// g1..g5 significant, g6..g20 not.
func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "document")
	require.NoError(t, os.MkdirAll(doc, 0o755))

	content := ",pvalues,ratio\n"
	for i := 1; i <= 20; i++ {
		p, ratio := 0.5, 1.0
		if i <= 5 {
			p, ratio = 0.001*float64(i), 2.5
		}
		content += fmt.Sprintf("g%d,%g,%g\n", i, p, ratio)
	}
	require.NoError(t, os.WriteFile(filepath.Join(doc, "degenes.csv"), []byte(content), 0o644))

	ds, err := dataset.Open(dir, zap.NewNop())
	require.NoError(t, err)
	for _, res := range ds.LoadAll() {
		require.NoError(t, res.Err)
	}
	return ds
}

func queryTable(t *testing.T) *dataset.Table {
	t.Helper()
	tab := dataset.NewTable("hits", []string{"r1", "r2", "r3", "r4"}, []string{"score", "class"})
	for i, v := range []float64{2, 0.5, 3, 0.1} {
		tab.Set(i, 0, v)
	}
	for i, s := range []string{"A", "A", "B", "B"} {
		tab.SetText(i, 1, s)
	}
	return tab
}

func TestQueryPrecedence(t *testing.T) {
	tab := queryTable(t)

	// & binds tighter than |: (class==A & score>1) | class==B.
	q, err := ParseQuery("class == A & score > 1 | class == B")
	require.NoError(t, err)
	rows, err := q.Filter(tab)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3", "r4"}, rows)

	q, err = ParseQuery("class == A & (score > 1 | class == B)")
	require.NoError(t, err)
	rows, err = q.Filter(tab)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, rows)
}

func TestQueryQuotedStrings(t *testing.T) {
	tab := queryTable(t)
	q, err := ParseQuery("class != 'A'")
	require.NoError(t, err)
	rows, err := q.Filter(tab)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r4"}, rows)
}

func TestQueryMissingValuesNeverMatch(t *testing.T) {
	tab := dataset.NewTable("hits", []string{"r1", "r2"}, []string{"score"})
	tab.Set(0, 0, 1)

	q, err := ParseQuery("score <= 1")
	require.NoError(t, err)
	rows, err := q.Filter(tab)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, rows)
}

func TestQueryParseErrors(t *testing.T) {
	for _, expr := range []string{
		"score >",
		"score => 1",
		"'unterminated",
		"score > 1 extra",
		"(score > 1",
	} {
		_, err := ParseQuery(expr)
		assert.Error(t, err, expr)
	}

	q, err := ParseQuery("nosuch > 1")
	require.NoError(t, err)
	_, err = q.Filter(queryTable(t))
	assert.Error(t, err)
}

func TestORAOverRepresentation(t *testing.T) {
	ds := fixture(t)
	e := New(ds, zap.NewNop())

	sets := []GeneSet{
		{Name: "hitset", Genes: []string{"g1", "g2", "g3", "g4", "g5"}},
		{Name: "coldset", Genes: []string{"g16", "g17", "g18", "g19", "g20"}},
	}
	out, err := e.ORA(ORAConfig{Table: "degenes", Query: "pvalues < 0.05", Sets: sets})
	require.NoError(t, err)

	assert.Equal(t, "degenes_ora", out.Name)
	assert.Equal(t, []string{"hitset", "coldset"}, out.Rows())
	for _, col := range []string{"overlap", "set_size", "list_size", "pvalues", "fdr", "genes"} {
		assert.True(t, out.HasCol(col), "missing column %s", col)
	}

	jO, _ := out.ColIndex("overlap")
	jL, _ := out.ColIndex("list_size")
	jP, _ := out.ColIndex("pvalues")
	jG, _ := out.ColIndex("genes")

	hit, _ := out.RowIndex("hitset")
	assert.InDelta(t, 5, out.At(hit, jO), 1e-12)
	assert.InDelta(t, 5, out.At(hit, jL), 1e-12)
	assert.Less(t, out.At(hit, jP), 0.001)
	assert.Equal(t, "g1/g2/g3/g4/g5", out.TextAt(hit, jG))

	cold, _ := out.RowIndex("coldset")
	assert.InDelta(t, 0, out.At(cold, jO), 1e-12)
	assert.Greater(t, out.At(cold, jP), 0.5)
}

func TestORAEmptySelectionErrors(t *testing.T) {
	ds := fixture(t)
	e := New(ds, zap.NewNop())
	_, err := e.ORA(ORAConfig{
		Table: "degenes",
		Query: "pvalues < 0",
		Sets:  []GeneSet{{Name: "s", Genes: []string{"g1", "g2"}}},
	})
	assert.Error(t, err)
}

func TestGenesFromTerms(t *testing.T) {
	ds := fixture(t)
	e := New(ds, zap.NewNop())

	_, err := e.GenesFromTerms("hitset")
	assert.Error(t, err)

	sets := []GeneSet{
		{Name: "hitset", Genes: []string{"g1", "g2", "g3", "g4", "g5"}},
		{Name: "coldset", Genes: []string{"g16", "g17", "g18", "g19", "g20"}},
	}
	_, err = e.ORA(ORAConfig{Table: "degenes", Query: "pvalues < 0.05", Sets: sets})
	require.NoError(t, err)
	require.NotNil(t, e.Last())

	genes, err := e.GenesFromTerms("hitset", "coldset")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2", "g3", "g4", "g5"}, genes)

	_, err = e.GenesFromTerms("nosuch")
	assert.Error(t, err)
}

func TestGSEAPrerank(t *testing.T) {
	e := New(nil, zap.NewNop())

	genes := make([]string, 20)
	metric := make([]float64, 20)
	for i := range genes {
		genes[i] = fmt.Sprintf("g%d", i+1)
		metric[i] = float64(20 - i)
	}
	sets := []GeneSet{
		{Name: "top", Genes: []string{"g1", "g2", "g3", "g4", "g5"}},
		{Name: "bottom", Genes: []string{"g16", "g17", "g18", "g19", "g20"}},
	}
	out, err := e.GSEAPrerank(genes, metric, GSEAConfig{Sets: sets, Permutations: 200, Seed: 1})
	require.NoError(t, err)

	for _, col := range []string{"es", "nes", "pvalues", "fdr", "set_size", "genes"} {
		assert.True(t, out.HasCol(col), "missing column %s", col)
	}
	jE, _ := out.ColIndex("es")
	jN, _ := out.ColIndex("nes")
	jP, _ := out.ColIndex("pvalues")
	jS, _ := out.ColIndex("set_size")

	top, _ := out.RowIndex("top")
	assert.Greater(t, out.At(top, jE), 0.9)
	assert.Greater(t, out.At(top, jN), 1.0)
	assert.Less(t, out.At(top, jP), 0.05)
	assert.InDelta(t, 5, out.At(top, jS), 1e-12)

	bottom, _ := out.RowIndex("bottom")
	assert.Less(t, out.At(bottom, jE), -0.9)
}

func TestGSEAPrerankLengthMismatch(t *testing.T) {
	e := New(nil, zap.NewNop())
	_, err := e.GSEAPrerank([]string{"g1"}, []float64{1, 2}, GSEAConfig{})
	assert.Error(t, err)
}

func TestGSEAPhenotype(t *testing.T) {
	e := New(nil, zap.NewNop())

	rows := make([]string, 12)
	vals := make([][]float64, 12)
	for i := range rows {
		rows[i] = fmt.Sprintf("g%d", i+1)
		row := make([]float64, 8)
		for j := range row {
			base := 5.0
			if i < 5 && j < 4 {
				base = 12.0 // elevated in the first class
			}
			row[j] = base + 0.2*float64(j)
		}
		vals[i] = row
	}
	data, err := dataset.FromValues("expr", rows,
		[]string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"}, vals)
	require.NoError(t, err)

	labels := []string{"N", "N", "N", "N", "T", "T", "T", "T"}
	sets := []GeneSet{{Name: "upinN", Genes: []string{"g1", "g2", "g3", "g4", "g5"}}}
	out, err := e.GSEAPhenotype(data, labels, GSEAConfig{Sets: sets, Permutations: 100, Seed: 7})
	require.NoError(t, err)

	i, _ := out.RowIndex("upinN")
	jE, _ := out.ColIndex("es")
	assert.Greater(t, out.At(i, jE), 0.5)
}

func TestGSEAPhenotypeNeedsTwoClasses(t *testing.T) {
	e := New(nil, zap.NewNop())
	data, err := dataset.FromValues("expr", []string{"g1"}, []string{"s1", "s2"}, [][]float64{{1, 2}})
	require.NoError(t, err)
	_, err = e.GSEAPhenotype(data, []string{"A", "A"}, GSEAConfig{})
	assert.Error(t, err)
}

func TestReadGMT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.gmt")
	content := "pathway_a\tdesc a\tg1\tg2\tg3\n" +
		"\n" +
		"pathway_b\thttp://example.org\tg4\tg5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	sets, err := ReadGMT(path)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "pathway_a", sets[0].Name)
	assert.Equal(t, []string{"g1", "g2", "g3"}, sets[0].Genes)
	assert.Equal(t, "http://example.org", sets[1].Description)

	bad := filepath.Join(t.TempDir(), "bad.gmt")
	require.NoError(t, os.WriteFile(bad, []byte("only\ttwo\n"), 0o644))
	_, err = ReadGMT(bad)
	assert.Error(t, err)

	_, err = ReadGMT(filepath.Join(t.TempDir(), "missing.gmt"))
	assert.Error(t, err)
}

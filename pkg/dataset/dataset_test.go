package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "document"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "document", name), []byte(content), 0o644))
}

func TestOpenRequiresDocumentDir(t *testing.T) {
	_, err := Open(t.TempDir(), zap.NewNop())
	assert.Error(t, err)
}

func TestLoadCSVWithMissingValues(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "protein.csv", ",s1,s2,s3\nP1,1.5,NA,3.5\nP2,,2.0,4.0\n")

	ds, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	for _, res := range ds.Load("protein") {
		require.NoError(t, res.Err)
	}

	tab, ok := ds.Table("protein")
	require.True(t, ok)
	nr, nc := tab.Shape()
	assert.Equal(t, 2, nr)
	assert.Equal(t, 3, nc)
	assert.Equal(t, []string{"P1", "P2"}, tab.Rows())
	assert.InDelta(t, 1.5, tab.At(0, 0), 1e-12)
	assert.True(t, math.IsNaN(tab.At(0, 1)))
	assert.True(t, math.IsNaN(tab.At(1, 0)))
}

func TestLoadMAFNumbersRows(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "mutation.maf", "gene\tsample\tclass\nTP53\ts1\tMissense\nKRAS\ts2\tNonsense\n")

	ds, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, ds.Load("mutation")[0].Err)

	tab, _ := ds.Table("mutation")
	assert.Equal(t, []string{"0", "1"}, tab.Rows())
	assert.Equal(t, []string{"gene", "sample", "class"}, tab.Cols())
	j, _ := tab.ColIndex("gene")
	assert.Equal(t, "TP53", tab.TextAt(0, j))
}

func TestLoadColorJoinsTwoIndexColumns(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "color.txt", "column\tvalue\tcolor\nsubtype\tA\t#ff0000\nsubtype\tB\t#0000ff\n")
	writeDoc(t, dir, "category.csv", ",subtype\ns1,A\ns2,B\n")

	ds, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	for _, res := range ds.Load("color", "category") {
		require.NoError(t, res.Err)
	}

	tab, _ := ds.Table("color")
	assert.Equal(t, []string{"subtype|A", "subtype|B"}, tab.Rows())

	colors := ds.ColorMap()
	require.Contains(t, colors, "subtype")
	assert.Equal(t, "#ff0000", colors["subtype"]["A"])
	assert.Equal(t, "#0000ff", colors["subtype"]["B"])
}

func TestLoadPartialSuccess(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.csv", ",s1\nf1,1\n")

	ds, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	results := ds.Load("good", "missing")
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)

	_, ok := ds.Table("good")
	assert.True(t, ok)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "weird.json", "{}")

	ds, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, ds.Load("weird")[0].Err)
}

func TestWriteRoundTripCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "document"), 0o755))
	ds, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	orig, err := FromValues("result", []string{"f1", "f2"}, []string{"a", "b"},
		[][]float64{{1.25, math.NaN()}, {-3, 4}})
	require.NoError(t, err)
	require.NoError(t, ds.Write(orig, "result", "csv"))

	require.NoError(t, ds.Load("result")[0].Err)
	got, _ := ds.Table("result")
	assert.Equal(t, orig.Rows(), got.Rows())
	assert.Equal(t, orig.Cols(), got.Cols())
	assert.InDelta(t, 1.25, got.At(0, 0), 1e-12)
	assert.True(t, math.IsNaN(got.At(0, 1)))
	assert.InDelta(t, -3, got.At(1, 0), 1e-12)
}

func TestTableSelectRowsMissingLabel(t *testing.T) {
	tab := NewTable("x", []string{"r1"}, []string{"c1"})
	_, err := tab.SelectRows([]string{"r1", "nope"})
	assert.Error(t, err)
}

func TestTableTranspose(t *testing.T) {
	tab, err := FromValues("x", []string{"r1", "r2"}, []string{"c1"}, [][]float64{{1}, {2}})
	require.NoError(t, err)
	tr := tab.Transpose()
	assert.Equal(t, []string{"c1"}, tr.Rows())
	assert.Equal(t, []string{"r1", "r2"}, tr.Cols())
	assert.InDelta(t, 2.0, tr.At(0, 1), 1e-12)
}

func TestDropSparseRowsThreshold(t *testing.T) {
	tab, err := FromValues("x",
		[]string{"dense", "half", "sparse"},
		[]string{"a", "b", "c", "d"},
		[][]float64{
			{1, 2, 3, 4},
			{1, 2, math.NaN(), math.NaN()},
			{1, math.NaN(), math.NaN(), math.NaN()},
		})
	require.NoError(t, err)

	// Fraction threshold.
	kept := tab.DropSparseRows(0.5)
	assert.Equal(t, []string{"dense", "half"}, kept.Rows())

	// Count threshold.
	kept = tab.DropSparseRows(3)
	assert.Equal(t, []string{"dense"}, kept.Rows())
}

func TestIntersectKeepsFirstOrder(t *testing.T) {
	got := Intersect([]string{"a", "b", "c"}, []string{"c", "b", "x"})
	assert.Equal(t, []string{"b", "c"}, got)
}

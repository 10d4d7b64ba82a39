package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Write serializes a table into the project's document directory as
// document/<name>.<format>, creating the directory when absent. Supported
// formats: csv, tsv (or txt), parquet.
func (d *Dataset) Write(t *Table, name, format string) error {
	dir := d.DocumentDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("dataset: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+"."+format)
	switch strings.ToLower(format) {
	case "csv":
		return writeDelimited(t, path, ',')
	case "tsv", "txt":
		return writeDelimited(t, path, '\t')
	case "parquet":
		return writeParquet(t, path)
	default:
		return fmt.Errorf("dataset: unsupported output format %q, want csv, tsv, txt or parquet", format)
	}
}

func writeDelimited(t *Table, path string, comma rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma
	defer w.Flush()

	header := append([]string{""}, t.Cols()...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, row := range t.Rows() {
		rec := make([]string, 0, len(t.Cols())+1)
		rec = append(rec, row)
		for j := range t.Cols() {
			rec = append(rec, t.TextAt(i, j))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func writeParquet(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := parquet.NewGenericWriter[parquetCell](f)
	defer w.Close()

	cells := make([]parquetCell, 0, len(t.Rows())*len(t.Cols()))
	for i, row := range t.Rows() {
		for j, col := range t.Cols() {
			v := t.At(i, j)
			cell := parquetCell{Row: row, Col: col, Val: v}
			if math.IsNaN(v) {
				cell.Val = 0
				cell.Text = t.TextAt(i, j)
				if cell.Text == "" {
					cell.Text = "NaN"
				}
			}
			cells = append(cells, cell)
		}
	}
	_, err = w.Write(cells)
	return err
}

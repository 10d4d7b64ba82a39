package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// indexJoin separates the components of a multi-column row index, as used by
// the color table.
const indexJoin = "|"

// indexColumns picks the row-index convention for a named table. The
// mutation-annotation format carries no row index, the phospho table uses its
// first column, and the color table uses its first two.
func indexColumns(name, ext string) int {
	switch {
	case ext == ".maf":
		return 0
	case name == "color":
		return 2
	default:
		return 1
	}
}

// loadOne locates document/<name>.<ext>, parses it by extension and registers
// the table under name.
func (d *Dataset) loadOne(name string) error {
	matches, err := filepath.Glob(filepath.Join(d.DocumentDir(), name+".*"))
	if err != nil || len(matches) == 0 {
		return fmt.Errorf("dataset: no file matching %s.*", name)
	}
	path := matches[0]
	ext := strings.ToLower(filepath.Ext(path))
	idx := indexColumns(name, ext)

	var t *Table
	switch ext {
	case ".csv":
		t, err = readDelimited(path, ',', idx)
	case ".txt", ".tsv", ".maf":
		t, err = readDelimited(path, '\t', idx)
	case ".xlsx":
		t, err = readXLSX(path, idx)
	case ".parquet":
		t, err = readParquet(path)
	default:
		return fmt.Errorf("dataset: unsupported extension %q, want one of csv, tsv, txt, maf, xlsx, parquet", ext)
	}
	if err != nil {
		return fmt.Errorf("dataset: read %s: %w", path, err)
	}
	t.Name = name
	d.register(t)
	return nil
}

// readDelimited parses a delimited file with a single header row. idx leading
// columns form the row index; zero means rows are numbered by position.
func readDelimited(path string, comma rune, idx int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return tableFromRecords(records, idx)
}

// readXLSX parses the first sheet of a workbook laid out like a delimited
// table: header row first, idx leading index columns reconstructed into row
// labels.
func readXLSX(path string, idx int) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	return tableFromRecords(records, idx)
}

func tableFromRecords(records [][]string, idx int) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	header := records[0]
	if len(header) <= idx {
		return nil, fmt.Errorf("header narrower than %d index columns", idx)
	}
	cols := append([]string(nil), header[idx:]...)

	rows := make([]string, 0, len(records)-1)
	cells := make([][]string, 0, len(records)-1)
	for n, rec := range records[1:] {
		var label string
		switch {
		case idx == 0:
			label = strconv.Itoa(n)
		case len(rec) >= idx:
			parts := rec[:idx]
			label = strings.Join(parts, indexJoin)
		default:
			continue
		}
		row := make([]string, len(cols))
		for j := range cols {
			if idx+j < len(rec) {
				row[j] = rec[idx+j]
			}
		}
		rows = append(rows, label)
		cells = append(cells, row)
	}

	t := NewTable("", rows, cols)
	for i := range cells {
		for j := range cols {
			t.SetText(i, j, cells[i][j])
		}
	}
	return t, nil
}

// parquetCell is the long-format row stored in parquet files. The wide table
// is reconstructed by pivoting on the row and column labels.
type parquetCell struct {
	Row  string  `parquet:"row"`
	Col  string  `parquet:"col"`
	Val  float64 `parquet:"value"`
	Text string  `parquet:"text,optional"`
}

func readParquet(path string) (*Table, error) {
	cells, err := parquet.ReadFile[parquetCell](path)
	if err != nil {
		return nil, err
	}
	var rows, cols []string
	rowSeen := make(map[string]struct{})
	colSeen := make(map[string]struct{})
	for _, c := range cells {
		if _, ok := rowSeen[c.Row]; !ok {
			rowSeen[c.Row] = struct{}{}
			rows = append(rows, c.Row)
		}
		if _, ok := colSeen[c.Col]; !ok {
			colSeen[c.Col] = struct{}{}
			cols = append(cols, c.Col)
		}
	}
	t := NewTable("", rows, cols)
	for _, c := range cells {
		i, _ := t.RowIndex(c.Row)
		j, _ := t.ColIndex(c.Col)
		if c.Text != "" {
			t.SetText(i, j, c.Text)
		} else {
			t.Set(i, j, c.Val)
		}
	}
	return t, nil
}

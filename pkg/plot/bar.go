package plot

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// Bar renders one numeric column of a table as a bar chart, one bar per row
// label, colored through the palette when the row names match groups.
func (p *Plotter) Bar(t *dataset.Table, column string, palette map[string]string) ([]byte, error) {
	col, ok := t.Col(column)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", column, t.Name)
	}
	rows := t.Rows()
	bars := make([]chart.Value, 0, len(rows))
	for i, label := range rows {
		bars = append(bars, chart.Value{
			Label: label,
			Value: col[i],
			Style: chart.Style{FillColor: groupColor(palette, label, i)},
		})
	}
	width := 60 * len(bars)
	if width < 480 {
		width = 480
	}
	c := chart.BarChart{
		Width:    width,
		Height:   480,
		BarWidth: 36,
		YAxis:    chart.YAxis{Name: column},
		Bars:     bars,
	}
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("plot: render bar: %w", err)
	}
	return buf.Bytes(), nil
}

package plot

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// BubbleConfig maps three numeric columns onto position and dot size.
// Typical use: enrichment terms with overlap on x, -log10 FDR on y and set
// size as the bubble area.
type BubbleConfig struct {
	XColumn    string
	YColumn    string
	SizeColumn string

	// MinDot/MaxDot bound the rendered dot widths; defaults 4 and 18.
	MinDot float64
	MaxDot float64
}

// Bubble renders a sized scatter, binning the size column into a handful of
// dot widths so each bin gets a legend entry.
func (p *Plotter) Bubble(t *dataset.Table, cfg BubbleConfig) ([]byte, error) {
	if cfg.MinDot == 0 {
		cfg.MinDot = 4
	}
	if cfg.MaxDot == 0 {
		cfg.MaxDot = 18
	}
	xs, ok := t.Col(cfg.XColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.XColumn, t.Name)
	}
	ys, ok := t.Col(cfg.YColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.YColumn, t.Name)
	}
	sizes, ok := t.Col(cfg.SizeColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.SizeColumn, t.Name)
	}

	sMin, sMax := math.Inf(1), math.Inf(-1)
	for _, s := range sizes {
		if math.IsNaN(s) {
			continue
		}
		sMin = math.Min(sMin, s)
		sMax = math.Max(sMax, s)
	}
	if math.IsInf(sMin, 1) {
		return nil, fmt.Errorf("plot: size column %q is entirely missing", cfg.SizeColumn)
	}

	const bins = 4
	type bucket struct{ xs, ys []float64 }
	buckets := make([]bucket, bins)
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsNaN(sizes[i]) {
			continue
		}
		b := 0
		if sMax > sMin {
			b = int(float64(bins) * (sizes[i] - sMin) / (sMax - sMin))
			if b >= bins {
				b = bins - 1
			}
		}
		buckets[b].xs = append(buckets[b].xs, xs[i])
		buckets[b].ys = append(buckets[b].ys, ys[i])
	}

	col := drawing.Color{R: 31, G: 119, B: 180, A: 200}
	var series []chart.Series
	for b := 0; b < bins; b++ {
		if len(buckets[b].xs) == 0 {
			continue
		}
		width := cfg.MinDot + (cfg.MaxDot-cfg.MinDot)*float64(b)/float64(bins-1)
		lo := sMin + (sMax-sMin)*float64(b)/bins
		hi := sMin + (sMax-sMin)*float64(b+1)/bins
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s %.3g-%.3g", cfg.SizeColumn, lo, hi),
			XValues: buckets[b].xs,
			YValues: buckets[b].ys,
			Style:   pointStyle(col, width),
		})
	}

	c := chart.Chart{
		Width:  680,
		Height: 560,
		XAxis:  chart.XAxis{Name: cfg.XColumn},
		YAxis:  chart.YAxis{Name: cfg.YColumn},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}
	return render(c)
}

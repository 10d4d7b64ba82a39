package plot

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// VolcanoConfig maps a comparison result table onto the volcano axes.
// RatioColumn is expected on a log2 scale already when Log2 is false.
type VolcanoConfig struct {
	RatioColumn string
	FDRColumn   string

	// Log2 applies a log2 transform to the ratio column first (for ratio
	// columns stored as quotients).
	Log2 bool

	// FoldCutoff is the |log2 ratio| significance threshold, default 1;
	// FDRCutoff the significance level, default 0.05.
	FoldCutoff float64
	FDRCutoff  float64
}

var (
	volcanoUp   = drawing.Color{R: 214, G: 39, B: 40, A: 255}
	volcanoDown = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	volcanoNS   = drawing.Color{R: 170, G: 170, B: 170, A: 255}
)

// Volcano renders log2 ratio against -log10 FDR with threshold guides,
// coloring significant features by direction.
func (p *Plotter) Volcano(t *dataset.Table, cfg VolcanoConfig) ([]byte, error) {
	if cfg.FoldCutoff == 0 {
		cfg.FoldCutoff = 1
	}
	if cfg.FDRCutoff == 0 {
		cfg.FDRCutoff = 0.05
	}
	ratios, ok := t.Col(cfg.RatioColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.RatioColumn, t.Name)
	}
	fdrs, ok := t.Col(cfg.FDRColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.FDRColumn, t.Name)
	}

	buckets := map[string][][2]float64{}
	var xMin, xMax, yMax float64
	for i := range ratios {
		x := ratios[i]
		if cfg.Log2 {
			x = math.Log2(x)
		}
		y := -math.Log10(fdrs[i])
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		key := "ns"
		if fdrs[i] < cfg.FDRCutoff && math.Abs(x) > cfg.FoldCutoff {
			if x > 0 {
				key = "up"
			} else {
				key = "down"
			}
		}
		buckets[key] = append(buckets[key], [2]float64{x, y})
		xMin = math.Min(xMin, x)
		xMax = math.Max(xMax, x)
		yMax = math.Max(yMax, y)
	}

	var series []chart.Series
	for _, b := range []struct {
		key string
		col drawing.Color
	}{{"ns", volcanoNS}, {"down", volcanoDown}, {"up", volcanoUp}} {
		pts := buckets[b.key]
		if len(pts) == 0 {
			continue
		}
		xs := make([]float64, len(pts))
		ys := make([]float64, len(pts))
		for i, pt := range pts {
			xs[i], ys[i] = pt[0], pt[1]
		}
		series = append(series, chart.ContinuousSeries{
			Name:    b.key,
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(b.col, 4),
		})
	}

	guide := volcanoNS.WithAlpha(200)
	yGuide := -math.Log10(cfg.FDRCutoff)
	series = append(series,
		chart.ContinuousSeries{XValues: []float64{xMin, xMax}, YValues: []float64{yGuide, yGuide}, Style: lineStyle(guide, 1)},
		chart.ContinuousSeries{XValues: []float64{-cfg.FoldCutoff, -cfg.FoldCutoff}, YValues: []float64{0, yMax}, Style: lineStyle(guide, 1)},
		chart.ContinuousSeries{XValues: []float64{cfg.FoldCutoff, cfg.FoldCutoff}, YValues: []float64{0, yMax}, Style: lineStyle(guide, 1)},
	)

	c := chart.Chart{
		Width:  640,
		Height: 560,
		XAxis:  chart.XAxis{Name: "log2 ratio"},
		YAxis:  chart.YAxis{Name: "-log10 FDR"},
		Series: series,
	}
	return render(c)
}

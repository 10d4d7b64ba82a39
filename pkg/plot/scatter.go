package plot

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// ScatterConfig drives Scatter: coords is a samples x components table (two
// columns used), groups maps sample label to group, palette maps group to
// hex color. Ellipse overlays a 95% confidence ellipse per group.
type ScatterConfig struct {
	XColumn string
	YColumn string
	Groups  map[string]string
	Palette map[string]string
	Ellipse bool
	XLabel  string
	YLabel  string
}

// Scatter renders grouped sample coordinates and returns PNG bytes.
func (p *Plotter) Scatter(coords *dataset.Table, cfg ScatterConfig) ([]byte, error) {
	cols := coords.Cols()
	if cfg.XColumn == "" && len(cols) > 0 {
		cfg.XColumn = cols[0]
	}
	if cfg.YColumn == "" && len(cols) > 1 {
		cfg.YColumn = cols[1]
	}
	xs, ok := coords.Col(cfg.XColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.XColumn, coords.Name)
	}
	ys, ok := coords.Col(cfg.YColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.YColumn, coords.Name)
	}

	byGroup := make(map[string][][2]float64)
	var groupOrder []string
	for i, sample := range coords.Rows() {
		g := cfg.Groups[sample]
		if g == "" {
			g = "all"
		}
		if _, seen := byGroup[g]; !seen {
			groupOrder = append(groupOrder, g)
		}
		byGroup[g] = append(byGroup[g], [2]float64{xs[i], ys[i]})
	}

	var series []chart.Series
	for ordinal, g := range groupOrder {
		pts := byGroup[g]
		col := groupColor(cfg.Palette, g, ordinal)
		gx := make([]float64, len(pts))
		gy := make([]float64, len(pts))
		for i, pt := range pts {
			gx[i], gy[i] = pt[0], pt[1]
		}
		series = append(series, chart.ContinuousSeries{
			Name:    g,
			XValues: gx,
			YValues: gy,
			Style:   pointStyle(col, 5),
		})
		if cfg.Ellipse && len(pts) > 2 {
			ex, ey := confidenceEllipse(pts)
			series = append(series, chart.ContinuousSeries{
				XValues: ex,
				YValues: ey,
				Style:   lineStyle(col.WithAlpha(160), 1.5),
			})
		}
	}

	xLabel, yLabel := cfg.XLabel, cfg.YLabel
	if xLabel == "" {
		xLabel = cfg.XColumn
	}
	if yLabel == "" {
		yLabel = cfg.YColumn
	}
	c := chart.Chart{
		Width:  720,
		Height: 560,
		XAxis:  chart.XAxis{Name: xLabel},
		YAxis:  chart.YAxis{Name: yLabel},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.Legend(&c)}
	return render(c)
}

// confidenceEllipse traces the 95% normal confidence ellipse of 2-D points
// from the eigendecomposition of their covariance.
func confidenceEllipse(pts [][2]float64) (xs, ys []float64) {
	n := float64(len(pts))
	var mx, my float64
	for _, p := range pts {
		mx += p[0]
		my += p[1]
	}
	mx /= n
	my /= n
	var sxx, syy, sxy float64
	for _, p := range pts {
		dx, dy := p[0]-mx, p[1]-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	sxx /= n - 1
	syy /= n - 1
	sxy /= n - 1

	// Closed-form 2x2 eigendecomposition.
	tr := sxx + syy
	det := sxx*syy - sxy*sxy
	disc := math.Sqrt(math.Max(tr*tr/4-det, 0))
	l1 := tr/2 + disc
	l2 := tr/2 - disc
	theta := 0.0
	if sxy != 0 {
		theta = math.Atan2(l1-sxx, sxy)
	} else if syy > sxx {
		theta = math.Pi / 2
	}

	// chi-squared 0.95 quantile with 2 degrees of freedom.
	const scale2 = 5.991
	a := math.Sqrt(math.Max(l1, 0) * scale2)
	b := math.Sqrt(math.Max(l2, 0) * scale2)

	const steps = 64
	xs = make([]float64, steps+1)
	ys = make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		t := 2 * math.Pi * float64(i) / steps
		px := a * math.Cos(t)
		py := b * math.Sin(t)
		xs[i] = mx + px*math.Cos(theta) - py*math.Sin(theta)
		ys[i] = my + px*math.Sin(theta) + py*math.Cos(theta)
	}
	return xs, ys
}

package plot

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// StripConfig draws per-group value distributions as jittered categorical
// scatter. The long-form table needs one numeric value column and one text
// group column (the comparator's MergeDataGroup layout).
type StripConfig struct {
	ValueColumn string
	GroupColumn string
	Palette     map[string]string
	Jitter      float64 // default 0.18
	Seed        int64
}

// Strip renders one strip per group with group means as short horizontal
// segments.
func (p *Plotter) Strip(t *dataset.Table, cfg StripConfig) ([]byte, error) {
	if cfg.Jitter == 0 {
		cfg.Jitter = 0.18
	}
	vals, ok := t.Col(cfg.ValueColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.ValueColumn, t.Name)
	}
	groups, ok := t.TextCol(cfg.GroupColumn)
	if !ok {
		return nil, fmt.Errorf("plot: no column %q in %q", cfg.GroupColumn, t.Name)
	}

	byGroup := make(map[string][]float64)
	var order []string
	for i, g := range groups {
		if g == "" || math.IsNaN(vals[i]) {
			continue
		}
		if _, seen := byGroup[g]; !seen {
			order = append(order, g)
		}
		byGroup[g] = append(byGroup[g], vals[i])
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("plot: no grouped values in %q", t.Name)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	var series []chart.Series
	ticks := []chart.Tick{{Value: 0, Label: ""}}
	for ordinal, g := range order {
		center := float64(ordinal + 1)
		col := groupColor(cfg.Palette, g, ordinal)
		points := byGroup[g]
		xs := make([]float64, len(points))
		var mean float64
		for i, v := range points {
			xs[i] = center + (rng.Float64()*2-1)*cfg.Jitter
			mean += v
		}
		mean /= float64(len(points))
		series = append(series,
			chart.ContinuousSeries{
				Name:    g,
				XValues: xs,
				YValues: points,
				Style:   pointStyle(col.WithAlpha(190), 4.5),
			},
			chart.ContinuousSeries{
				XValues: []float64{center - 0.25, center + 0.25},
				YValues: []float64{mean, mean},
				Style:   lineStyle(col, 2),
			},
		)
		ticks = append(ticks, chart.Tick{Value: center, Label: g})
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(order) + 1), Label: ""})

	c := chart.Chart{
		Width:  560,
		Height: 520,
		XAxis: chart.XAxis{
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(order) + 1)},
		},
		YAxis:  chart.YAxis{Name: cfg.ValueColumn},
		Series: series,
	}
	return render(c)
}

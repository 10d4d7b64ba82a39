package plot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// HeatmapConfig controls the raster heatmap. Values are mapped onto a
// blue-white-red gradient centered on zero unless Low/High override the
// range; missing cells render gray.
type HeatmapConfig struct {
	CellWidth  int // default 12
	CellHeight int // default 12
	Low, High  float64
}

// Heatmap rasterizes a numeric table cell grid into PNG bytes. Row and
// column ordering follow the table; callers cluster beforehand if they want
// a clustered layout.
func (p *Plotter) Heatmap(t *dataset.Table, cfg HeatmapConfig) ([]byte, error) {
	if cfg.CellWidth == 0 {
		cfg.CellWidth = 12
	}
	if cfg.CellHeight == 0 {
		cfg.CellHeight = 12
	}
	nr, nc := t.Shape()
	if nr == 0 || nc == 0 {
		return nil, fmt.Errorf("plot: empty table %q", t.Name)
	}

	low, high := cfg.Low, cfg.High
	if low == 0 && high == 0 {
		var extreme float64
		for i := 0; i < nr; i++ {
			for j := 0; j < nc; j++ {
				if v := t.At(i, j); !math.IsNaN(v) {
					extreme = math.Max(extreme, math.Abs(v))
				}
			}
		}
		if extreme == 0 {
			extreme = 1
		}
		low, high = -extreme, extreme
	}

	img := image.NewRGBA(image.Rect(0, 0, nc*cfg.CellWidth, nr*cfg.CellHeight))
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			c := divergingColor(t.At(i, j), low, high)
			for y := i * cfg.CellHeight; y < (i+1)*cfg.CellHeight; y++ {
				for x := j * cfg.CellWidth; x < (j+1)*cfg.CellWidth; x++ {
					img.Set(x, y, c)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("plot: encode heatmap: %w", err)
	}
	return buf.Bytes(), nil
}

// divergingColor interpolates blue -> white -> red across [low, high]; NaN
// maps to gray.
func divergingColor(v, low, high float64) color.RGBA {
	if math.IsNaN(v) {
		return color.RGBA{R: 200, G: 200, B: 200, A: 255}
	}
	mid := (low + high) / 2
	var frac float64
	if high > low {
		frac = (v - low) / (high - low)
	}
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	blue := color.RGBA{R: 33, G: 102, B: 172, A: 255}
	white := color.RGBA{R: 247, G: 247, B: 247, A: 255}
	red := color.RGBA{R: 178, G: 24, B: 43, A: 255}
	if v <= mid {
		return lerpColor(blue, white, frac*2)
	}
	return lerpColor(white, red, frac*2-1)
}

func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

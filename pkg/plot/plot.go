// Package plot renders result tables into figure files: scatter, bar,
// volcano, bubble and strip charts plus a raster heatmap.
package plot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// Plotter renders charts into the project figure directory.
type Plotter struct {
	ds     *dataset.Dataset
	logger *zap.Logger
}

// New builds a plotter over the dataset's figure directory.
func New(ds *dataset.Dataset, logger *zap.Logger) *Plotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plotter{ds: ds, logger: logger}
}

// SaveFig writes rendered PNG bytes as <project>/figure/<name>_<kind>.png,
// creating the directory on first use.
func (p *Plotter) SaveFig(name, kind string, png []byte) (string, error) {
	dir := p.ds.FigureDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("plot: create figure directory: %w", err)
	}
	path := filepath.Join(dir, name+"_"+kind+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("plot: write figure: %w", err)
	}
	p.logger.Info("figure written", zap.String("path", path))
	return path, nil
}

// render draws a go-chart graph into PNG bytes.
func render(c chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("plot: render: %w", err)
	}
	return buf.Bytes(), nil
}

// parseHex maps "#RRGGBB" to a drawing color; bad input falls back to gray.
func parseHex(s string) drawing.Color {
	if len(s) == 7 && s[0] == '#' {
		r, er := strconv.ParseUint(s[1:3], 16, 8)
		g, eg := strconv.ParseUint(s[3:5], 16, 8)
		b, eb := strconv.ParseUint(s[5:7], 16, 8)
		if er == nil && eg == nil && eb == nil {
			return drawing.Color{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
		}
	}
	return drawing.Color{R: 128, G: 128, B: 128, A: 255}
}

// groupColor resolves a group's color from an explicit palette, falling back
// to the default palette cycle.
func groupColor(palette map[string]string, group string, ordinal int) drawing.Color {
	if hex, ok := palette[group]; ok {
		return parseHex(hex)
	}
	cycle := dataset.DefaultPalette
	return parseHex(cycle[ordinal%len(cycle)])
}

func pointStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    width,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeWidth: width,
		StrokeColor: col,
	}
}

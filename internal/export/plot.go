package export

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/san-kum/braketilt/internal/sim"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	ErrEmptyTrace        = errors.New("export: trace has no steps")
	ErrUnsupportedFormat = errors.New("export: unsupported plot format")
)

var (
	targetColor   = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	setpointColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	pitchColor    = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	holdColor     = color.RGBA{R: 0xff, G: 0xbb, B: 0x55, A: 0x60}
)

var plotFormats = map[string]bool{".png": true, ".svg": true, ".pdf": true}

// PlotTrace renders target, setpoint and pitch over time, with hold-tilt
// intervals shaded. The image format follows the file extension.
func PlotTrace(path, title string, steps []sim.Step) error {
	if len(steps) == 0 {
		return ErrEmptyTrace
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !plotFormats[ext] {
		return fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}

	p, err := TracePlot(title, steps)
	if err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

// TracePlot builds the plot without saving it.
func TracePlot(title string, steps []sim.Step) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "angle (deg)"
	p.Add(plotter.NewGrid())

	target := make(plotter.XYs, len(steps))
	setpoint := make(plotter.XYs, len(steps))
	pitch := make(plotter.XYs, 0, len(steps))
	lo, hi := 0.0, 0.0
	for i, s := range steps {
		target[i] = plotter.XY{X: s.Time, Y: float64(s.State.Target)}
		setpoint[i] = plotter.XY{X: s.Time, Y: float64(s.State.Setpoint)}
		if s.HasIMU {
			pitch = append(pitch, plotter.XY{X: s.Time, Y: float64(s.Pitch)})
		}
		for _, v := range []float32{s.State.Target, s.State.Setpoint, s.Pitch} {
			lo = min(lo, float64(v))
			hi = max(hi, float64(v))
		}
	}

	for _, band := range holdBands(steps, lo, hi) {
		poly, err := plotter.NewPolygon(band)
		if err != nil {
			return nil, err
		}
		poly.Color = holdColor
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	series := []struct {
		name  string
		xys   plotter.XYs
		color color.Color
		width vg.Length
	}{
		{"target", target, targetColor, 1},
		{"setpoint", setpoint, setpointColor, 2},
		{"pitch", pitch, pitchColor, 1},
	}
	for _, s := range series {
		if len(s.xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = s.color
		line.LineStyle.Width = vg.Points(float64(s.width))
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true

	return p, nil
}

// holdBands returns one rectangle per contiguous run of hold-tilt cycles.
func holdBands(steps []sim.Step, lo, hi float64) []plotter.XYs {
	var bands []plotter.XYs
	start := -1
	closeBand := func(end int) {
		x0, x1 := steps[start].Time, steps[end].Time
		bands = append(bands, plotter.XYs{{X: x0, Y: lo}, {X: x1, Y: lo}, {X: x1, Y: hi}, {X: x0, Y: hi}})
		start = -1
	}
	for i, s := range steps {
		switch {
		case s.State.HoldTiltActive && start < 0:
			start = i
		case !s.State.HoldTiltActive && start >= 0:
			closeBand(i - 1)
		}
	}
	if start >= 0 {
		closeBand(len(steps) - 1)
	}
	return bands
}

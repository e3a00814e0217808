// Package plot draws the energy history of a solve as PNG line charts.
//
// The total energy and the weighted energy of every constraint kind are
// plotted per iteration. A log-scale variant makes late convergence visible;
// zero energies are clamped to [LogFloor] there.
package plot

import (
	"bytes"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/floorsolve/pkg/constraint"
	"github.com/matzehuels/floorsolve/pkg/solver"
)

// LogFloor is the smallest value drawn on a log axis.
const LogFloor = 1e-6

// Default image size.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

// Options configures a loss chart.
type Options struct {
	Title  string
	Log    bool
	Width  vg.Length
	Height vg.Length
	// Kinds limits the per-kind series. Empty means every kind present in
	// the history.
	Kinds []constraint.Kind
}

// Loss renders history as a PNG.
func Loss(history []solver.Record, opts Options) ([]byte, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("plot loss: empty history")
	}
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultHeight
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = "Energy"
	}
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Energy"
	if opts.Log {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
		p.Y.Label.Text = "Energy (log)"
	}

	series := []struct {
		name string
		val  func(solver.Record) float64
	}{
		{"total", func(r solver.Record) float64 { return r.Energy }},
	}
	for _, k := range kinds(history, opts.Kinds) {
		series = append(series, struct {
			name string
			val  func(solver.Record) float64
		}{string(k), func(r solver.Record) float64 { return r.ByKind[k] }})
	}

	for i, s := range series {
		pts := make(plotter.XYs, len(history))
		for j, r := range history {
			y := s.val(r)
			if opts.Log {
				y = math.Max(y, LogFloor)
			}
			pts[j] = plotter.XY{X: float64(r.Iteration), Y: y}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("plot loss %s: %w", s.name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		if i == 0 {
			line.Width = vg.Points(2)
		}
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	w, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("plot loss: %w", err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("plot loss: %w", err)
	}
	return buf.Bytes(), nil
}

// kinds returns the kinds to plot in constraint.Kinds order.
func kinds(history []solver.Record, only []constraint.Kind) []constraint.Kind {
	var out []constraint.Kind
	for _, k := range constraint.Kinds {
		if len(only) > 0 && !slices.Contains(only, k) {
			continue
		}
		for _, r := range history {
			if _, ok := r.ByKind[k]; ok {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

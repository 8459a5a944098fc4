package chart

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/accel.report/internal/accel"
)

const (
	pngWidth  = 10 * vg.Inch
	pngHeight = 5 * vg.Inch
)

// newPlot draws the min and max curves of every profiled personality on
// one set of axes.
func newPlot(ps *accel.ProfileSet, vMax float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Acceleration limits by personality"
	p.X.Label.Text = "Speed (m/s)"
	p.Y.Label.Text = "Acceleration (m/s²)"
	p.Add(plotter.NewGrid())

	for _, pers := range Profiled {
		pts, err := SampleCurves(ps, pers, vMax, DefaultStep)
		if err != nil {
			return nil, err
		}
		minPts := make(plotter.XYs, len(pts))
		maxPts := make(plotter.XYs, len(pts))
		for i, pt := range pts {
			minPts[i] = plotter.XY{X: pt.Speed, Y: pt.Min}
			maxPts[i] = plotter.XY{X: pt.Speed, Y: pt.Max}
		}

		maxLine, err := plotter.NewLine(maxPts)
		if err != nil {
			return nil, fmt.Errorf("%s max line: %w", pers, err)
		}
		maxLine.Color = lineColors[pers]
		maxLine.Width = vg.Points(1.5)

		minLine, err := plotter.NewLine(minPts)
		if err != nil {
			return nil, fmt.Errorf("%s min line: %w", pers, err)
		}
		minLine.Color = lineColors[pers]
		minLine.Width = vg.Points(1.5)
		minLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

		p.Add(maxLine, minLine)
		p.Legend.Add(pers.String()+" max", maxLine)
		p.Legend.Add(pers.String()+" min", minLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the profile plot as a PNG to w.
func WritePNG(w io.Writer, ps *accel.ProfileSet, vMax float64) error {
	p, err := newPlot(ps, vMax)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG renders the profile plot to a file. The format follows the
// file extension.
func SavePNG(path string, ps *accel.ProfileSet, vMax float64) error {
	p, err := newPlot(ps, vMax)
	if err != nil {
		return err
	}
	if err := p.Save(pngWidth, pngHeight, path); err != nil {
		return fmt.Errorf("save profile plot: %w", err)
	}
	return nil
}

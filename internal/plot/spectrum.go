// Package plot renders calibration spectra with their fitted peaks.
package plot

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/brillouin/internal/entity"
)

var (
	sampleColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	leftColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	rightColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Size is the output size in inches.
type Size struct {
	Width, Height float64
}

// Spectrum builds a plot of samples against channel index with any stored
// peak fits drawn over it.
func Spectrum(title string, samples []int64, left, right entity.PeakFit) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Channel"
	p.Y.Label.Text = "Counts"

	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i] = plotter.XY{X: float64(i), Y: float64(s)}
	}
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = sampleColor
		line.Width = vg.Points(0.75)
		p.Add(line)
		p.Legend.Add("spectrum", line)
	}

	for _, f := range []struct {
		label string
		fit   entity.PeakFit
		color color.Color
	}{
		{"left fit", left, leftColor},
		{"right fit", right, rightColor},
	} {
		if !f.fit.Present() || len(f.fit.XFit) == 0 {
			continue
		}
		if len(f.fit.XFit) != len(f.fit.YFit) {
			return nil, fmt.Errorf("%s: %d x values for %d y values", f.label, len(f.fit.XFit), len(f.fit.YFit))
		}
		fitPts := make(plotter.XYs, len(f.fit.XFit))
		for i := range f.fit.XFit {
			fitPts[i] = plotter.XY{X: f.fit.XFit[i], Y: f.fit.YFit[i]}
		}
		line, err := plotter.NewLine(fitPts)
		if err != nil {
			return nil, err
		}
		line.Color = f.color
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%.2f)", f.label, f.fit.Center), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// CalibrationFile plots one calibration file.
func CalibrationFile(cf entity.CalibrationFile, samples []int64) (*plot.Plot, error) {
	title := fmt.Sprintf("%s / %s", cf.Calibration, cf.Filename)
	return Spectrum(title, samples, cf.Left, cf.Right)
}

// SavePNG writes p to path as a PNG.
func SavePNG(p *plot.Plot, size Size, path string) error {
	if err := p.Save(vg.Length(size.Width)*vg.Inch, vg.Length(size.Height)*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// WritePNG encodes p as a PNG to w.
func WritePNG(p *plot.Plot, size Size, w io.Writer) error {
	wt, err := p.WriterTo(vg.Length(size.Width)*vg.Inch, vg.Length(size.Height)*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// Copyright (C) 2025 The photostat authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/anmikhno/photostat/internal/flatfield"
	"github.com/anmikhno/photostat/internal/gain"
	"github.com/anmikhno/photostat/internal/logx"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	dataColor  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	modelColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	bandColor  = color.RGBA{R: 255, G: 165, B: 0, A: 255}
)

// SavePage renders a plot as the next numbered page of the run report
func (r *Report) SavePage(p *plot.Plot, name string) error {
	r.page++
	fileName := fmt.Sprintf("Plots_analysis_run%s_p%02d_%s.png", r.RunNumber, r.page, name)
	logx.Printf("Saving plot page %s ...\n", fileName)
	return p.Save(6*vg.Inch, 5*vg.Inch, fileName)
}

// PlotDataScan plots the observed illumination profile: photoelectron count
// per pixel against angular distance from the camera center
func (r *Report) PlotDataScan(theta []float64, set *gain.PixelSet) error {
	p := plot.New()
	p.Title.Text = "Data"
	p.X.Label.Text = "theta [deg]"
	p.Y.Label.Text = "Illumination, n_pe"

	pts := make(plotter.XYs, 0, len(theta))
	for i := range theta {
		if set.Valid[i] {
			pts = append(pts, plotter.XY{X: theta[i], Y: set.NPE[i]})
		}
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = dataColor
	sc.GlyphStyle.Radius = vg.Points(1.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)
	return r.SavePage(p, "data")
}

// PlotModelProfile plots the fitted model profile over the data: a scatter of
// observed counts vs theta, the rebinned model curve, and a dashed band at
// model +/- propagated sigma. NaN bins (empty) are skipped.
func (r *Report) PlotModelProfile(name, title string, theta, data []float64, valid []bool,
	centers, binnedY, binnedErr []float64) error {

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "theta [deg]"
	p.Y.Label.Text = "Number of photoelectrons"

	pts := make(plotter.XYs, 0, len(theta))
	for i := range theta {
		if valid[i] {
			pts = append(pts, plotter.XY{X: theta[i], Y: data[i]})
		}
	}
	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = dataColor
	sc.GlyphStyle.Radius = vg.Points(1.5)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)
	p.Legend.Add("data", sc)

	curve := func(offset float64, src []float64) plotter.XYs {
		xy := make(plotter.XYs, 0, len(centers))
		for b := range centers {
			if math.IsNaN(src[b]) || math.IsNaN(binnedErr[b]) {
				continue
			}
			xy = append(xy, plotter.XY{X: centers[b], Y: src[b] + offset*binnedErr[b]})
		}
		return xy
	}
	model, err := plotter.NewLine(curve(0, binnedY))
	if err != nil {
		return err
	}
	model.LineStyle.Color = modelColor
	model.LineStyle.Width = vg.Points(2)
	p.Add(model)
	p.Legend.Add("model", model)

	for _, offset := range []float64{-1, +1} {
		band, err := plotter.NewLine(curve(offset, binnedY))
		if err != nil {
			return err
		}
		band.LineStyle.Color = bandColor
		band.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(band)
	}
	return r.SavePage(p, name)
}

// PlotResidualHist plots the distribution of relative fit residuals in percent
func (r *Report) PlotResidualHist(name, title string, residuals []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "residual [%]"
	p.Y.Label.Text = "Count"

	vals := make(plotter.Values, 0, len(residuals))
	for _, v := range residuals {
		if !math.IsNaN(v) {
			vals = append(vals, v*100)
		}
	}
	h, err := plotter.NewHist(vals, 50)
	if err != nil {
		return err
	}
	p.Add(h)
	return r.SavePage(p, name)
}

// PlotAccounting plots the masked-pixel accounting: missing pixels, zero
// high-gain pixels and rejected outliers
func (r *Report) PlotAccounting(name string, t *gain.Tally) error {
	p := plot.New()
	p.Title.Text = "Masked pixels"
	p.Y.Label.Text = "Pixels"

	bars, err := plotter.NewBarChart(plotter.Values{
		float64(t.Missing), float64(t.HighGainZero), float64(t.RejectedOutliers),
	}, vg.Points(40))
	if err != nil {
		return err
	}
	bars.Color = dataColor
	p.Add(bars)
	p.NominalX(
		fmt.Sprintf("missing, #%d", t.Missing),
		fmt.Sprintf("high gain = 0, #%d", t.HighGainZero),
		fmt.Sprintf("rejected outliers, #%d", t.RejectedOutliers),
	)
	return r.SavePage(p, name)
}

// PlotFFHistogram plots the distribution of a flat-field coefficient set with
// vertical rules at the mean and +/- one standard deviation
func (r *Report) PlotFFHistogram(name, title string, coefs []float64, valid []bool, s *flatfield.Summary) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "FF coefficient"
	p.Y.Label.Text = "Count"

	vals := make(plotter.Values, 0, len(coefs))
	for i, v := range coefs {
		if (valid == nil || valid[i]) && !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	h, err := plotter.NewHist(vals, 50)
	if err != nil {
		return err
	}
	p.Add(h)

	// height of the rule lines from the precomputed histogram
	top := 0.0
	for _, c := range s.Histogram.Counts {
		if f := float64(c); f > top {
			top = f
		}
	}
	for _, rule := range []struct {
		x      float64
		label  string
		dashed bool
	}{
		{s.Mean, fmt.Sprintf("Mean = %.2f", s.Mean), false},
		{s.Mean - s.StdDev, fmt.Sprintf("+/-1 sigma = %.2f", s.StdDev), true},
		{s.Mean + s.StdDev, "", true},
	} {
		line, err := plotter.NewLine(plotter.XYs{{X: rule.x, Y: 0}, {X: rule.x, Y: top}})
		if err != nil {
			return err
		}
		line.LineStyle.Color = modelColor
		line.LineStyle.Width = vg.Points(1.5)
		if rule.dashed {
			line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(line)
		if rule.label != "" {
			p.Legend.Add(rule.label, line)
		}
	}
	return r.SavePage(p, name)
}

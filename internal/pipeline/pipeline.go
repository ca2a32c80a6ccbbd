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

// Package pipeline ties the analysis together: read the gain container,
// normalize it to the full camera, fit the illumination spot, propagate
// uncertainties, derive flat-field coefficients and emit the report.
package pipeline

import (
	"fmt"

	"github.com/anmikhno/photostat/internal/camera"
	"github.com/anmikhno/photostat/internal/fitting"
	"github.com/anmikhno/photostat/internal/flatfield"
	"github.com/anmikhno/photostat/internal/gain"
	"github.com/anmikhno/photostat/internal/logx"
	"github.com/anmikhno/photostat/internal/propagate"
	"github.com/anmikhno/photostat/internal/report"
	"github.com/pbnjay/memory"
)

// Width of the angular rebinning for the profile plots, in degrees
const thetaBinWidth = 0.1

// Context holds the external inputs and shared state of one analysis run
type Context struct {
	RunNumber    string // Flat-field run, doubles as pedestal run
	SPERunNumber string // Single photoelectron calibration run
	RunPath      string // Directory holding the raw run data
	AnalysisFile string // Path of the precomputed gain container

	AddVariance bool // Also fit with the intrinsic-variance nuisance parameter

	MemoryMB int // Physical memory available, for diagnostics

	Geom *camera.Geometry
	Rep  *report.Report
}

// NewContext prepares an analysis context for one run
func NewContext(runNumber, speRunNumber, runPath, analysisFile string, addVariance bool) *Context {
	c := &Context{
		RunNumber:    runNumber,
		SPERunNumber: speRunNumber,
		RunPath:      runPath,
		AnalysisFile: analysisFile,
		AddVariance:  addVariance,
		MemoryMB:     int(memory.TotalMemory() / 1024 / 1024),
		Geom:         camera.New(camera.NumPixels),
		Rep:          report.New(runNumber),
	}
	logx.Printf("Physical memory: %d MB\n", c.MemoryMB)
	return c
}

// Run executes the full analysis for the context's run
func Run(c *Context) error {
	cont, err := gain.Read(c.AnalysisFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.AnalysisFile, err)
	}
	logx.Printf("Read gain container with %d pixels from %s\n", cont.Len(), c.AnalysisFile)

	set, err := gain.Normalize(cont, c.Geom.NumPixels)
	if err != nil {
		return fmt.Errorf("normalizing run %s: %w", c.RunNumber, err)
	}
	logx.Printf("Normalized to %d pixels: %d missing, %d with zero high gain, %d usable\n",
		c.Geom.NumPixels, set.Tally.Missing, set.Tally.HighGainZero, set.UsableCount())

	thetaOrigin := make([]float64, c.Geom.NumPixels)
	for i := range thetaOrigin {
		thetaOrigin[i] = c.Geom.Theta(i, 0, 0)
	}
	if err := c.Rep.PlotDataScan(thetaOrigin, set); err != nil {
		return err
	}

	logx.Printf("Fitting 2D Gaussian illumination model ...\n")
	res := fitting.FitSpot(set, c.Geom)
	if err := runFitOutputs(c, set, res, "Gaussian_2D", "fit"); err != nil {
		return err
	}
	final := res
	finalY, finalErr := propagateModel(c, res)

	if c.AddVariance {
		logx.Printf("Fitting 2D Gaussian illumination model with intrinsic variance ...\n")
		vres := fitting.FitSpotVariance(set, c.Geom, res)
		if err := runFitOutputs(c, set, vres, "Gaussian_2D_variance", "fit_var"); err != nil {
			return err
		}
		final = vres
		finalY, finalErr = propagateModel(c, vres)
	}

	effInd := flatfield.Independent(set.Charge, set.HighGain, set.Valid)
	effMod, effModErr := flatfield.ModelBased(set.NPE, set.StdNPE, finalY, finalErr)

	usable := usableMask(set, final)
	sumInd := flatfield.Summarize(effInd, usable, 50)
	logx.Printf("Independent FF coefficients: mean = %.4f, std = %.4f, median = %.4f, Qn = %.4f\n",
		sumInd.Mean, sumInd.StdDev, sumInd.Location, sumInd.Scale)
	if err := c.Rep.PlotFFHistogram("ff_independent", "FF coefficients, independent way", effInd, usable, sumInd); err != nil {
		return err
	}
	sumMod := flatfield.Summarize(effMod, usable, 50)
	logx.Printf("Model-based FF coefficients: mean = %.4f, std = %.4f, median = %.4f, Qn = %.4f\n",
		sumMod.Mean, sumMod.StdDev, sumMod.Location, sumMod.Scale)
	if err := c.Rep.PlotFFHistogram("ff_model", "FF coefficients, model way", effMod, usable, sumMod); err != nil {
		return err
	}

	if err := c.Rep.WriteTable(c.Geom, set, finalY, finalErr, effInd, effMod, effModErr); err != nil {
		return fmt.Errorf("writing calibration table: %w", err)
	}
	return nil
}

// Produces the per-fit outputs shared by both fit flavors: propagated model
// profile with angular rebinning, peak diagnostics, residual histogram,
// masked-pixel accounting, tally verification and the fit log row.
func runFitOutputs(c *Context, set *gain.PixelSet, res *fitting.Result, model, pageName string) error {
	if err := set.Tally.Check(c.Geom.NumPixels, res.Usable); err != nil {
		return err
	}

	y, yerr := propagateModel(c, res)
	meanRelErr := propagate.MeanRelativeError(y, yerr)
	logx.Printf("Mean relative model error: %.4f\n", meanRelErr)

	cx, cy := res.Params[fitting.ParamCenterX], res.Params[fitting.ParamCenterY]
	theta := make([]float64, c.Geom.NumPixels)
	for i := range theta {
		theta[i] = c.Geom.Theta(i, cx, cy)
	}
	centers, binnedY, binnedErr := propagate.RebinByTheta(theta, y, yerr, thetaBinWidth)

	fitting.CharacterizePeak(c.Geom, res)

	usable := usableMask(set, res)
	if err := c.Rep.PlotModelProfile(pageName, "Gaussian 2D fit", theta, set.NPE, usable,
		centers, binnedY, binnedErr); err != nil {
		return err
	}
	if err := c.Rep.PlotResidualHist(pageName+"_residuals", "Fit residuals", res.Residuals); err != nil {
		return err
	}
	if err := c.Rep.PlotAccounting(pageName+"_masked", set.Tally); err != nil {
		return err
	}

	var vint, vintErr *float64
	if len(res.Params) > fitting.ParamVariance {
		vint = &res.Params[fitting.ParamVariance]
		vintErr = &res.Errs[fitting.ParamVariance]
	}
	return c.Rep.AppendFitLog(model, res.Params[:4], res.Errs[:4], vint, vintErr, meanRelErr)
}

// Model values and propagated uncertainties over the full camera
func propagateModel(c *Context, res *fitting.Result) (y, yerr []float64) {
	modelFn := func(p, out []float64) {
		fitting.SpotModel(p, c.Geom.PixX, c.Geom.PixY, out)
	}
	return propagate.Propagate(modelFn, res.Params, res.Cov, c.Geom.NumPixels)
}

// Pixels that survived both the validity mask and the outlier clip
func usableMask(set *gain.PixelSet, res *fitting.Result) []bool {
	usable := make([]bool, len(set.Valid))
	for i := range usable {
		usable[i] = set.Valid[i] && !res.Clipped[i]
	}
	return usable
}

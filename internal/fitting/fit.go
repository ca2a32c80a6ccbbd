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

package fitting

import (
	"math"

	"github.com/anmikhno/photostat/internal/camera"
	"github.com/anmikhno/photostat/internal/gain"
	"github.com/anmikhno/photostat/internal/logx"
	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// The outcome of one fit attempt. Immutable once produced; each attempt
// returns a fresh Result.
type Result struct {
	Params []float64     // Best-fit parameter vector: A, cx, cy, w and optionally v
	Errs   []float64     // Standard error per parameter; NaN if the Hessian was singular
	Cov    *mat.SymDense // Covariance over all fitted parameters

	Converged bool // False on optimizer failure; Params still hold the best effort

	Model       []float64 // Model prediction per pixel, over the full camera
	Residuals   []float64 // (n_pe - model) / model per pixel; NaN where unusable
	MaxResidual float64   // Max absolute residual fraction over usable pixels

	Clipped []bool // Outlier mask applied for this attempt
	Usable  int    // Number of pixels that entered the fit
}

// FitSpot fits the 2D Gaussian illumination model to the photoelectron map
// with a weighted least-squares objective, after one round of 3-sigma outlier
// removal. Non-convergence is a soft failure: a warning is logged and the
// best-effort parameters are returned.
func FitSpot(set *gain.PixelSet, geom *camera.Geometry) *Result {
	clipped, numClipped := ClipOutliers(set.NPE, set.Valid)
	logx.Printf("Masking %d outliers beyond 3 sigma\n", numClipped)

	idx := usableIndices(set, clipped)
	res := &Result{Clipped: clipped, Usable: len(idx), Converged: true}

	// Weighted residuals over the usable pixels only
	f := func(dst, p []float64) {
		for k, i := range idx {
			dst[k] = (set.NPE[i] - SpotValue(p, geom.PixX[i], geom.PixY[i])) / set.StdNPE[i]
		}
	}
	jac := lm.NumJac{Func: f}
	problem := lm.LMProblem{
		Dim:        4,
		Size:       len(idx),
		Func:       f,
		Jac:        jac.Jac,
		InitParams: append([]float64{}, spotSeed...),
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}
	lmRes, err := lm.LM(problem, &lm.Settings{Iterations: 200, ObjectiveTol: 1e-16})
	if err != nil || lmRes == nil {
		logx.Printf("Warning: fit did not converge: %v\n", err)
		res.Converged = false
	}
	if lmRes != nil {
		res.Params = append([]float64{}, lmRes.X...)
	} else {
		res.Params = append([]float64{}, spotSeed...)
	}

	chi2 := func(p []float64) float64 {
		sum := 0.0
		for _, i := range idx {
			d := (set.NPE[i] - SpotValue(p, geom.PixX[i], geom.PixY[i])) / set.StdNPE[i]
			sum += d * d
		}
		return sum
	}
	res.Cov, res.Errs = covarianceAt(chi2, res.Params)

	finishResult(res, set, geom)
	set.Tally.RejectedOutliers = geom.NumPixels - res.Usable - set.Tally.Missing - set.Tally.HighGainZero

	logx.Printf("Fit parameters: amplitude = %.6g, x = %.6g, y = %.6g, width = %.6g\n",
		res.Params[ParamAmplitude], res.Params[ParamCenterX], res.Params[ParamCenterY], res.Params[ParamWidth])
	logCovariance(res.Cov)
	logx.Printf("Max residual: %.2f%%\n", res.MaxResidual*100)
	return res
}

// Computes model image, residual map and max absolute residual fraction
func finishResult(res *Result, set *gain.PixelSet, geom *camera.Geometry) {
	res.Model = make([]float64, geom.NumPixels)
	SpotModel(res.Params, geom.PixX, geom.PixY, res.Model)

	res.Residuals = make([]float64, geom.NumPixels)
	res.MaxResidual = 0
	for i := range res.Residuals {
		if !set.Valid[i] || res.Clipped[i] {
			res.Residuals[i] = math.NaN()
			continue
		}
		r := (set.NPE[i] - res.Model[i]) / res.Model[i]
		res.Residuals[i] = r
		if a := math.Abs(r); a > res.MaxResidual {
			res.MaxResidual = a
		}
	}
}

// Indices of pixels that are valid and not clipped as outliers
func usableIndices(set *gain.PixelSet, clipped []bool) []int {
	idx := make([]int, 0, len(set.NPE))
	for i := range set.NPE {
		if set.Valid[i] && !clipped[i] {
			idx = append(idx, i)
		}
	}
	return idx
}

// Parameter covariance from the numeric Hessian of the objective at the
// optimum: cov = 2 H^-1 for a chi-square-like objective. A singular Hessian
// yields a zero covariance and NaN errors rather than a hard failure.
func covarianceAt(obj func([]float64) float64, p []float64) (*mat.SymDense, []float64) {
	n := len(p)
	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, obj, p, nil)

	cov := mat.NewSymDense(n, nil)
	errs := make([]float64, n)
	var inv mat.Dense
	if err := inv.Inverse(hess); err != nil {
		logx.Printf("Warning: singular Hessian, parameter errors unavailable: %s\n", err.Error())
		for i := range errs {
			errs[i] = math.NaN()
		}
		return cov, errs
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			cov.SetSym(i, j, inv.At(i, j)+inv.At(j, i)) // 2 x symmetrized inverse
		}
	}
	for i := 0; i < n; i++ {
		if v := cov.At(i, i); v >= 0 {
			errs[i] = math.Sqrt(v)
		} else {
			errs[i] = math.NaN()
		}
	}
	return cov, errs
}

// Prints the covariance table
func logCovariance(cov *mat.SymDense) {
	n, _ := cov.Dims()
	logx.Printf("Covariance table:\n")
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			logx.Printf(" %12.4g", cov.At(i, j))
		}
		logx.Printf("\n")
	}
}

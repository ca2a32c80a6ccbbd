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
	"gonum.org/v1/gonum/optimize"
)

// FitSpotVariance refits the illumination model with an intrinsic-variance
// nuisance parameter v that inflates the per-pixel variance. The objective is
// the Gaussian negative log likelihood
//
//	sum (d-f)^2/(sigma^2+v) + ln((sigma^2+v)/sigma^2)
//
// where the log term keeps v from growing without bound. Box constraints
// A > 0, w > 0, v >= 0 are enforced by returning +Inf outside the box, which
// Nelder-Mead handles by reflecting away. Seeded from a previous fit, with
// v starting at 0; the 3-sigma clip is re-applied before fitting.
func FitSpotVariance(set *gain.PixelSet, geom *camera.Geometry, seed *Result) *Result {
	clipped, numClipped := ClipOutliers(set.NPE, set.Valid)
	logx.Printf("Masking %d outliers beyond 3 sigma\n", numClipped)

	idx := usableIndices(set, clipped)
	res := &Result{Clipped: clipped, Usable: len(idx), Converged: true}

	obj := func(p []float64) float64 {
		a, w, v := p[ParamAmplitude], p[ParamWidth], p[ParamVariance]
		if a <= 0 || w <= 0 || v < 0 {
			return math.Inf(1)
		}
		sum := 0.0
		for _, i := range idx {
			s2 := set.StdNPE[i]*set.StdNPE[i] + v // > 0: sigma > 0 on usable pixels, v >= 0
			d := set.NPE[i] - SpotValue(p, geom.PixX[i], geom.PixY[i])
			sum += d*d/s2 - math.Log(set.StdNPE[i]*set.StdNPE[i]/s2)
		}
		return sum
	}

	x0 := []float64{
		seed.Params[ParamAmplitude],
		seed.Params[ParamCenterX],
		seed.Params[ParamCenterY],
		seed.Params[ParamWidth],
		0.0,
	}
	problem := optimize.Problem{Func: obj}
	result, err := optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		logx.Printf("Warning: fit did not converge: %v\n", err)
		res.Converged = false
	}
	if result != nil {
		res.Params = append([]float64{}, result.X...)
	} else {
		res.Params = append([]float64{}, x0...)
	}
	if res.Params[ParamVariance] < 0 { // clamp boundary jitter
		res.Params[ParamVariance] = 0
	}

	// The optimum can sit on the v=0 boundary where obj jumps to +Inf for
	// v<0. Mirror v for the finite-difference Hessian so the covariance
	// stays finite there.
	hobj := func(p []float64) float64 {
		q := append([]float64{}, p...)
		q[ParamVariance] = math.Abs(q[ParamVariance])
		v := q[ParamVariance]
		sum := 0.0
		for _, i := range idx {
			s2 := set.StdNPE[i]*set.StdNPE[i] + v
			d := set.NPE[i] - SpotValue(q, geom.PixX[i], geom.PixY[i])
			sum += d*d/s2 - math.Log(set.StdNPE[i]*set.StdNPE[i]/s2)
		}
		return sum
	}
	res.Cov, res.Errs = covarianceAt(hobj, res.Params)

	finishResult(res, set, geom)
	set.Tally.RejectedOutliers = geom.NumPixels - res.Usable - set.Tally.Missing - set.Tally.HighGainZero

	logx.Printf("Fit parameters: amplitude = %.6g, x = %.6g, y = %.6g, width = %.6g, intrinsic variance = %.6g\n",
		res.Params[ParamAmplitude], res.Params[ParamCenterX], res.Params[ParamCenterY],
		res.Params[ParamWidth], res.Params[ParamVariance])
	logCovariance(res.Cov)
	logx.Printf("Max residual: %.2f%%\n", res.MaxResidual*100)
	return res
}

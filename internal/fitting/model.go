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
)

// Parameter vector layout for the illumination model
const (
	ParamAmplitude = iota
	ParamCenterX
	ParamCenterY
	ParamWidth
	ParamVariance // intrinsic variance, present only in the extended fit
)

// Required initial guesses for the spot fit. Not caller-tunable.
var spotSeed = []float64{1000.0, 0.0, 0.0, 1.5}

// SpotValue evaluates the isotropic 2D Gaussian illumination model at (x, y).
// The width parameter is shared between both axes by construction, so the
// model is A times the normalized symmetric Gaussian density.
func SpotValue(p []float64, x, y float64) float64 {
	a, cx, cy, w := p[ParamAmplitude], p[ParamCenterX], p[ParamCenterY], p[ParamWidth]
	dx, dy := x-cx, y-cy
	norm := 1.0 / (2 * math.Pi * w * w)
	return a * norm * math.Exp(-(dx*dx+dy*dy)/(2*w*w))
}

// SpotModel evaluates the illumination model at every coordinate pair,
// writing into out. out must have the same length as xs and ys.
func SpotModel(p []float64, xs, ys, out []float64) {
	for i := range xs {
		out[i] = SpotValue(p, xs[i], ys[i])
	}
}

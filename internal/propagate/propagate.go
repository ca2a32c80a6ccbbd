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

// Package propagate carries fit-parameter uncertainty through an opaque
// model function to per-pixel predictions, by first-order Jacobian
// propagation with finite differences. The model needs no instrumentation.
package propagate

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// A vector-valued model: evaluates predictions for parameter vector p into out
type ModelFunc func(p []float64, out []float64)

// Propagate computes the model prediction at params and its 1-sigma
// uncertainty per output, as the diagonal of J Cov J^T with the Jacobian J
// taken by forward finite differences.
func Propagate(model ModelFunc, params []float64, cov *mat.SymDense, numOut int) (y, yerr []float64) {
	y = make([]float64, numOut)
	model(params, y)

	jac := mat.NewDense(numOut, len(params), nil)
	fd.Jacobian(jac, func(dst, x []float64) { model(x, dst) }, params,
		&fd.JacobianSettings{Formula: fd.Forward})

	var jc mat.Dense
	jc.Mul(jac, cov)

	yerr = make([]float64, numOut)
	for i := 0; i < numOut; i++ {
		sum := 0.0
		for j := 0; j < len(params); j++ {
			sum += jc.At(i, j) * jac.At(i, j)
		}
		if sum >= 0 {
			yerr[i] = math.Sqrt(sum)
		} else {
			yerr[i] = math.NaN()
		}
	}
	return y, yerr
}

// RebinByTheta partitions values by their angular coordinate theta into bins
// of the given width and averages values and errors per bin. Bins with no
// members are reported as NaN, not zero. Returns bin centers and the binned
// averages.
func RebinByTheta(theta, y, yerr []float64, binWidth float64) (centers, binnedY, binnedErr []float64) {
	if len(theta) == 0 {
		return nil, nil, nil
	}
	minT, maxT := theta[0], theta[0]
	for _, t := range theta {
		if t < minT {
			minT = t
		}
		if t > maxT {
			maxT = t
		}
	}
	numBins := int((maxT-minT)/binWidth) + 1

	sumY := make([]float64, numBins)
	sumE := make([]float64, numBins)
	count := make([]int, numBins)
	for i, t := range theta {
		b := int((t - minT) / binWidth)
		if b >= numBins {
			b = numBins - 1
		}
		sumY[b] += y[i]
		sumE[b] += yerr[i]
		count[b]++
	}

	centers = make([]float64, numBins)
	binnedY = make([]float64, numBins)
	binnedErr = make([]float64, numBins)
	for b := 0; b < numBins; b++ {
		centers[b] = minT + (float64(b)+0.5)*binWidth
		if count[b] > 0 {
			binnedY[b] = sumY[b] / float64(count[b])
			binnedErr[b] = sumE[b] / float64(count[b])
		} else {
			binnedY[b] = math.NaN()
			binnedErr[b] = math.NaN()
		}
	}
	return centers, binnedY, binnedErr
}

// MeanRelativeError returns mean(yerr/y) over entries with y != 0, the
// headline model quality figure for the fit log
func MeanRelativeError(y, yerr []float64) float64 {
	sum, n := 0.0, 0
	for i := range y {
		if y[i] != 0 && !math.IsNaN(yerr[i]) {
			sum += yerr[i] / y[i]
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

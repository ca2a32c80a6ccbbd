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

// Package flatfield derives per-pixel relative-response coefficients from
// the calibration run, by a model-independent raw-ratio method and by a
// model-based method with propagated uncertainty.
package flatfield

import (
	"math"

	photostats "github.com/anmikhno/photostat/internal/stats"
	"gonum.org/v1/gonum/stat"
)

// Independent computes the model-free flat-field coefficients: the per-pixel
// charge/gain ratio normalized to its own mean, so mean(eff)==1 by
// construction. Entries are masked consistently with the charge mask.
func Independent(charge []float64, highGain [][]float64, valid []bool) (eff []float64) {
	signal := make([]float64, len(charge))
	for i := range charge {
		if valid[i] && highGain[i][0] != 0 {
			signal[i] = charge[i] / highGain[i][0]
		}
	}
	mean, _ := photostats.MeanStdDev(signal, valid)

	eff = make([]float64, len(signal))
	for i := range signal {
		if valid[i] {
			eff[i] = signal[i] / mean
		} else {
			eff[i] = math.NaN()
		}
	}
	return eff
}

// ModelBased computes flat-field coefficients as the ratio of observed to
// model-predicted photoelectron counts, with the standard
// ratio-of-uncertain-quantities error:
//
//	sigma_FF = sqrt((obsStd/model)^2 + (obs*modelStd/model^2)^2)
func ModelBased(obs, obsStd, model, modelStd []float64) (coefs, coefErrs []float64) {
	coefs = make([]float64, len(obs))
	coefErrs = make([]float64, len(obs))
	for i := range obs {
		if model[i] == 0 {
			coefs[i], coefErrs[i] = math.NaN(), math.NaN()
			continue
		}
		coefs[i] = obs[i] / model[i]
		a := obsStd[i] / model[i]
		b := obs[i] * modelStd[i] / (model[i] * model[i])
		coefErrs[i] = math.Sqrt(a*a + b*b)
	}
	return coefs, coefErrs
}

// Summary statistics for a coefficient set: plain moments plus robust
// sampled location and scale for the report
type Summary struct {
	Mean, StdDev    float64
	Location, Scale float64 // sampled median and Qn
	Histogram       *photostats.Histogram
}

// Summarize computes mean/std and robust location/scale of the unmasked
// coefficients, plus a histogram for visualization
func Summarize(coefs []float64, valid []bool, numBins int) *Summary {
	compacted := photostats.Compact(coefs, valid)
	mean, std := stat.MeanStdDev(compacted, nil)
	return &Summary{
		Mean:      mean,
		StdDev:    std,
		Location:  photostats.FastApproxMedian(compacted, 1024),
		Scale:     photostats.FastApproxQn(compacted, 1024),
		Histogram: photostats.NewHistogram(coefs, valid, numBins),
	}
}

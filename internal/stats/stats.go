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

package stats

import (
	"math"

	"github.com/anmikhno/photostat/internal/qsort"
	"github.com/valyala/fastrand"
)

// Population mean and standard deviation over the unmasked entries.
// valid may be nil, in which case all entries count.
func MeanStdDev(values []float64, valid []bool) (mean, stdDev float64) {
	n := 0
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		mean += v
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	mean /= float64(n)

	variance := float64(0)
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(n)
	return mean, math.Sqrt(variance)
}

// Compacts the unmasked entries of values into a fresh slice
func Compact(values []float64, valid []bool) []float64 {
	if valid == nil {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// Calculates a fast approximate median of the data by subsampling the given
// number of values and taking the median of that
func FastApproxMedian(data []float64, numSamples int) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	samples := make([]float64, numSamples)
	max := uint32(len(data))
	rng := fastrand.RNG{}
	for i := range samples {
		samples[i] = data[rng.Uint32n(max)]
	}
	return qsort.QSelectMedianFloat64(samples)
}

// Calculates a fast approximate Qn scale estimate of the data by subsampling
// the given number of pairs and taking the first quartile of their absolute
// differences. Normalized to the Gaussian standard deviation.
func FastApproxQn(data []float64, numSamples int) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	samples := make([]float64, numSamples)
	max := uint32(len(data))
	rng := fastrand.RNG{}
	for i := range samples {
		index1 := 1 + rng.Uint32n(max-1)
		index2 := rng.Uint32n(index1)
		samples[i] = math.Abs(data[index1] - data[index2])
	}
	return qsort.QSelectFirstQuartileFloat64(samples) * 2.21914
}

// A fixed-width histogram of the unmasked entries
type Histogram struct {
	Min, Max float64
	Counts   []int
}

// Calculates a histogram of the unmasked entries of values with the given
// number of fixed-width bins spanning [min(values), max(values)]
func NewHistogram(values []float64, valid []bool, numBins int) *Histogram {
	h := &Histogram{Min: math.Inf(1), Max: math.Inf(-1), Counts: make([]int, numBins)}
	n := 0
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		if v < h.Min {
			h.Min = v
		}
		if v > h.Max {
			h.Max = v
		}
		n++
	}
	if n == 0 || h.Min == h.Max {
		return h
	}
	scale := float64(numBins-1) / (h.Max - h.Min)
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		h.Counts[int((v-h.Min)*scale)]++
	}
	return h
}

// Returns the center of bin i
func (h *Histogram) BinCenter(i int) float64 {
	width := (h.Max - h.Min) / float64(len(h.Counts))
	return h.Min + (float64(i)+0.5)*width
}

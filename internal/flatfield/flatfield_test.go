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

package flatfield

import (
	"math"
	"testing"
)

func TestIndependentMeanIsOne(t *testing.T) {
	charge := []float64{100, 200, 300, 400}
	highGain := [][]float64{{50}, {50}, {50}, {50}}
	valid := []bool{true, true, true, true}
	eff := Independent(charge, highGain, valid)

	sum := 0.0
	for _, e := range eff {
		sum += e
	}
	if mean := sum / float64(len(eff)); math.Abs(mean-1) > 1e-12 {
		t.Errorf("mean coefficient got %f, want 1", mean)
	}
	// coefficients keep the charge proportions
	if math.Abs(eff[3]/eff[0]-4) > 1e-12 {
		t.Errorf("ratio got %f, want 4", eff[3]/eff[0])
	}
}

func TestIndependentMasked(t *testing.T) {
	charge := []float64{100, 300, 1e9}
	highGain := [][]float64{{50}, {50}, {50}}
	valid := []bool{true, true, false}
	eff := Independent(charge, highGain, valid)

	if !math.IsNaN(eff[2]) {
		t.Errorf("masked pixel got %f, want NaN", eff[2])
	}
	// the masked pixel does not pull the normalization
	if math.Abs(eff[0]-0.5) > 1e-12 || math.Abs(eff[1]-1.5) > 1e-12 {
		t.Errorf("coefficients got %v, want [0.5 1.5 NaN]", eff)
	}
}

func TestModelBased(t *testing.T) {
	coefs, coefErrs := ModelBased(
		[]float64{1}, []float64{0.1}, []float64{1}, []float64{0.05})
	if coefs[0] != 1 {
		t.Errorf("coefficient got %f, want 1", coefs[0])
	}
	// sqrt(0.1^2 + 0.05^2) = 0.111803...
	want := math.Sqrt(0.1*0.1 + 0.05*0.05)
	if math.Abs(coefErrs[0]-want) > 1e-9 {
		t.Errorf("coefficient error got %f, want %f", coefErrs[0], want)
	}
}

func TestModelBasedZeroModel(t *testing.T) {
	coefs, coefErrs := ModelBased(
		[]float64{1}, []float64{0.1}, []float64{0}, []float64{0.05})
	if !math.IsNaN(coefs[0]) || !math.IsNaN(coefErrs[0]) {
		t.Errorf("zero model prediction got (%f, %f), want NaN", coefs[0], coefErrs[0])
	}
}

func TestSummarize(t *testing.T) {
	coefs := make([]float64, 4096)
	valid := make([]bool, 4096)
	for i := range coefs {
		coefs[i] = 0.9 + 0.2*float64(i)/4096 // uniform on [0.9, 1.1)
		valid[i] = true
	}
	s := Summarize(coefs, valid, 50)
	if math.Abs(s.Mean-1) > 0.01 {
		t.Errorf("mean got %f, want near 1", s.Mean)
	}
	if math.Abs(s.Location-1) > 0.05 {
		t.Errorf("median got %f, want near 1", s.Location)
	}
	// uniform width 0.2: sigma = 0.2/sqrt(12)
	if want := 0.2 / math.Sqrt(12); math.Abs(s.StdDev-want) > 0.01 {
		t.Errorf("stddev got %f, want near %f", s.StdDev, want)
	}
	if s.Scale <= 0 {
		t.Errorf("scale got %f, want > 0", s.Scale)
	}
	sum := 0
	for _, c := range s.Histogram.Counts {
		sum += c
	}
	if sum != 4096 {
		t.Errorf("histogram counts sum to %d, want 4096", sum)
	}
}

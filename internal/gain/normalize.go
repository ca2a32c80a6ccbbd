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

package gain

import (
	"fmt"
	"math"
	"sort"
)

// A dense, ordered per-pixel dataset with derived photoelectron estimates.
// Arithmetic downstream works on (value, validity mask) pairs; entries are
// masked, never deleted.
type PixelSet struct {
	PixelsID  []int32     // 0..N-1, strictly increasing
	HighGain  [][]float64 // One row per pixel, zero-filled for missing pixels
	LowGain   [][]float64
	Charge    []float64
	ChargeStd []float64

	NPE    []float64 // Photoelectron estimate, charge / highGain[ch0]; 0 where highGain <= 0
	StdNPE []float64 // Propagated uncertainty; 0 where highGain == 0
	Valid  []bool    // Usable for fitting: false wherever StdNPE == 0

	Tally *Tally
}

// Pixel accounting for reporting. The counts must sum to the total pixel
// count together with the usable count.
type Tally struct {
	Missing          int // Pixel ids absent from the raw input
	HighGainZero     int // Present pixels with highGain[ch0] <= 0
	RejectedOutliers int // Pixels removed by 3-sigma clipping; set after fitting
}

// Verifies the tally against the total pixel count n given the number of
// pixels that remained usable for the fit
func (t *Tally) Check(n, usable int) error {
	if sum := t.Missing + t.HighGainZero + t.RejectedOutliers + usable; sum != n {
		return fmt.Errorf("tally mismatch: %d missing + %d hgZero + %d outliers + %d usable = %d, want %d",
			t.Missing, t.HighGainZero, t.RejectedOutliers, usable, sum, n)
	}
	return nil
}

// Normalize reconstructs a complete, ordered per-pixel dataset of length
// numPixels from the sparse container: missing pixel ids are synthesized as
// zero-filled records whose column shapes are derived from the data present,
// the result is sorted by pixel id, and photoelectron estimates with their
// uncertainties are computed per pixel.
func Normalize(c *Container, numPixels int) (*PixelSet, error) {
	for _, id := range c.PixelsID {
		if int(id) < 0 || int(id) >= numPixels {
			return nil, fmt.Errorf("pixel id %d out of range [0,%d)", id, numPixels)
		}
	}

	present := make([]bool, numPixels)
	for _, id := range c.PixelsID {
		if present[id] {
			return nil, fmt.Errorf("duplicate pixel id %d in input", id)
		}
		present[id] = true
	}

	// Column shapes for the zero fill come from the observed data, not from
	// a fixed assumption
	hgShape, lgShape := 1, 1
	if len(c.HighGain) > 0 {
		hgShape = len(c.HighGain[0])
	}
	if len(c.LowGain) > 0 {
		lgShape = len(c.LowGain[0])
	}
	for i := range c.HighGain {
		if len(c.HighGain[i]) != hgShape || len(c.LowGain[i]) != lgShape {
			return nil, fmt.Errorf("ragged gain columns at row %d", i)
		}
	}

	s := &PixelSet{
		PixelsID:  make([]int32, 0, numPixels),
		HighGain:  make([][]float64, 0, numPixels),
		LowGain:   make([][]float64, 0, numPixels),
		Charge:    make([]float64, 0, numPixels),
		ChargeStd: make([]float64, 0, numPixels),
		Tally:     &Tally{},
	}

	// Merge original and synthetic records
	s.PixelsID = append(s.PixelsID, c.PixelsID...)
	s.HighGain = append(s.HighGain, c.HighGain...)
	s.LowGain = append(s.LowGain, c.LowGain...)
	s.Charge = append(s.Charge, c.Charge...)
	s.ChargeStd = append(s.ChargeStd, c.ChargeStd...)
	for id := 0; id < numPixels; id++ {
		if present[id] {
			continue
		}
		s.PixelsID = append(s.PixelsID, int32(id))
		s.HighGain = append(s.HighGain, make([]float64, hgShape))
		s.LowGain = append(s.LowGain, make([]float64, lgShape))
		s.Charge = append(s.Charge, 0)
		s.ChargeStd = append(s.ChargeStd, 0)
		s.Tally.Missing++
	}

	// Sort by pixel id to restore canonical ordering
	order := make([]int, numPixels)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return s.PixelsID[order[a]] < s.PixelsID[order[b]] })
	s.PixelsID = permuteInt32(s.PixelsID, order)
	s.HighGain = permuteRows(s.HighGain, order)
	s.LowGain = permuteRows(s.LowGain, order)
	s.Charge = permuteFloat64(s.Charge, order)
	s.ChargeStd = permuteFloat64(s.ChargeStd, order)

	// High-gain-zero accounting counts only pixels that were present in the
	// input; the zero-filled missing records are already counted above
	for i := range c.PixelsID {
		if c.HighGain[i][0] <= 0 {
			s.Tally.HighGainZero++
		}
	}

	// Photoelectron estimate and its uncertainty, with divide guards: the
	// division is skipped for invalid denominators and the output forced to 0
	s.NPE = make([]float64, numPixels)
	s.StdNPE = make([]float64, numPixels)
	s.Valid = make([]bool, numPixels)
	for i := range s.NPE {
		hg0 := s.HighGain[i][0]
		if hg0 > 0 {
			s.NPE[i] = s.Charge[i] / hg0
		}
		if hg0 != 0 && s.Charge[i] != 0 {
			s.StdNPE[i] = math.Sqrt(s.ChargeStd[i] * s.NPE[i] / s.Charge[i])
		}
		s.Valid[i] = s.StdNPE[i] != 0 && !math.IsNaN(s.StdNPE[i])
	}
	return s, nil
}

// Number of pixels currently usable for fitting
func (s *PixelSet) UsableCount() (n int) {
	for _, v := range s.Valid {
		if v {
			n++
		}
	}
	return n
}

func permuteInt32(a []int32, order []int) []int32 {
	out := make([]int32, len(a))
	for i, o := range order {
		out[i] = a[o]
	}
	return out
}

func permuteFloat64(a []float64, order []int) []float64 {
	out := make([]float64, len(a))
	for i, o := range order {
		out[i] = a[o]
	}
	return out
}

func permuteRows(a [][]float64, order []int) [][]float64 {
	out := make([][]float64, len(a))
	for i, o := range order {
		out[i] = a[o]
	}
	return out
}

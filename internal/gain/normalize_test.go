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
	"math"
	"testing"
)

// Container with pixels 0..n-1 minus the given ids, gain hg, charge per pixel
func makeContainer(n int, skip map[int]bool, hg, charge float64) *Container {
	c := &Container{}
	for id := 0; id < n; id++ {
		if skip[id] {
			continue
		}
		c.PixelsID = append(c.PixelsID, int32(id))
		c.HighGain = append(c.HighGain, []float64{hg, hg, hg})
		c.LowGain = append(c.LowGain, []float64{hg / 15, hg / 15, hg / 15})
		c.Charge = append(c.Charge, charge)
		c.ChargeStd = append(c.ChargeStd, math.Sqrt(charge))
		c.IsValid = append(c.IsValid, true)
	}
	return c
}

func TestNormalizeComplete(t *testing.T) {
	c := makeContainer(10, nil, 58, 580)
	s, err := Normalize(c, 10)
	if err != nil {
		t.Fatal(err)
	}
	if s.Tally.Missing != 0 || s.Tally.HighGainZero != 0 {
		t.Errorf("tally got %+v, want all zero", *s.Tally)
	}
	for i := range s.NPE {
		if s.NPE[i] != 10 {
			t.Errorf("pixel %d NPE got %f, want 10", i, s.NPE[i])
		}
		if !s.Valid[i] {
			t.Errorf("pixel %d unexpectedly invalid", i)
		}
	}
	if got := s.UsableCount(); got != 10 {
		t.Errorf("usable count got %d, want 10", got)
	}
}

func TestNormalizeMissing(t *testing.T) {
	skip := map[int]bool{3: true, 7: true}
	c := makeContainer(10, skip, 58, 580)
	s, err := Normalize(c, 10)
	if err != nil {
		t.Fatal(err)
	}
	if s.Tally.Missing != 2 {
		t.Errorf("missing got %d, want 2", s.Tally.Missing)
	}
	// ordering restored and synthesized records zero-filled with the shape
	// of the present data
	for i := 0; i < 10; i++ {
		if int(s.PixelsID[i]) != i {
			t.Fatalf("position %d has id %d", i, s.PixelsID[i])
		}
	}
	for id := range skip {
		if len(s.HighGain[id]) != 3 || s.HighGain[id][0] != 0 {
			t.Errorf("pixel %d high gain got %v, want zero-filled length 3", id, s.HighGain[id])
		}
		if s.Charge[id] != 0 || s.NPE[id] != 0 || s.StdNPE[id] != 0 {
			t.Errorf("pixel %d not zero-filled", id)
		}
		if s.Valid[id] {
			t.Errorf("pixel %d should be invalid", id)
		}
	}
	if got := s.UsableCount(); got != 8 {
		t.Errorf("usable count got %d, want 8", got)
	}
}

func TestNormalizeZeroHighGain(t *testing.T) {
	c := makeContainer(10, nil, 58, 580)
	c.HighGain[4][0] = 0
	s, err := Normalize(c, 10)
	if err != nil {
		t.Fatal(err)
	}
	if s.Tally.HighGainZero != 1 {
		t.Errorf("highGainZero got %d, want 1", s.Tally.HighGainZero)
	}
	// no division happened, outputs forced to zero
	if s.NPE[4] != 0 || s.StdNPE[4] != 0 {
		t.Errorf("pixel 4 got NPE %f StdNPE %f, want 0", s.NPE[4], s.StdNPE[4])
	}
	if s.Valid[4] {
		t.Errorf("pixel 4 should be invalid")
	}
	if err := s.Tally.Check(10, s.UsableCount()); err != nil {
		t.Error(err)
	}
}

func TestNormalizeUnsorted(t *testing.T) {
	c := makeContainer(5, nil, 58, 580)
	// shuffle the input rows
	for _, swap := range [][2]int{{0, 4}, {1, 3}} {
		i, j := swap[0], swap[1]
		c.PixelsID[i], c.PixelsID[j] = c.PixelsID[j], c.PixelsID[i]
		c.Charge[i], c.Charge[j] = c.Charge[j], c.Charge[i]
	}
	c.Charge[2] = 1160 // pixel id 2 keeps its own charge
	s, err := Normalize(c, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if int(s.PixelsID[i]) != i {
			t.Fatalf("position %d has id %d after sort", i, s.PixelsID[i])
		}
	}
	if s.NPE[2] != 20 {
		t.Errorf("pixel 2 NPE got %f, want 20", s.NPE[2])
	}
}

func TestNormalizeRejectsBadIds(t *testing.T) {
	c := makeContainer(5, nil, 58, 580)
	c.PixelsID[0] = 99
	if _, err := Normalize(c, 5); err == nil {
		t.Errorf("out-of-range id not rejected")
	}

	c = makeContainer(5, nil, 58, 580)
	c.PixelsID[1] = 0
	if _, err := Normalize(c, 5); err == nil {
		t.Errorf("duplicate id not rejected")
	}
}

func TestNormalizeRejectsRagged(t *testing.T) {
	c := makeContainer(5, nil, 58, 580)
	c.HighGain[2] = []float64{58}
	if _, err := Normalize(c, 5); err == nil {
		t.Errorf("ragged gain column not rejected")
	}
}

func TestTallyCheck(t *testing.T) {
	tally := &Tally{Missing: 2, HighGainZero: 1, RejectedOutliers: 3}
	if err := tally.Check(10, 4); err != nil {
		t.Errorf("consistent tally rejected: %s", err.Error())
	}
	if err := tally.Check(10, 5); err == nil {
		t.Errorf("inconsistent tally accepted")
	}
}

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

package camera

import (
	"math"
	"testing"
)

func TestLayout(t *testing.T) {
	g := New(NumPixels)
	if g.NumPixels != NumPixels {
		t.Fatalf("got %d pixels, want %d", g.NumPixels, NumPixels)
	}
	if len(g.PixID) != NumPixels || len(g.PixX) != NumPixels || len(g.PixY) != NumPixels {
		t.Fatalf("coordinate slices have wrong length")
	}
	for i := range g.PixID {
		if g.PixID[i] != i {
			t.Fatalf("pixel %d has id %d", i, g.PixID[i])
		}
	}

	// the first pixel sits at the camera center
	if g.PixX[0] != 0 || g.PixY[0] != 0 {
		t.Errorf("pixel 0 at (%g, %g), want origin", g.PixX[0], g.PixY[0])
	}

	// all pixel pairs keep at least one pitch distance
	for i := 1; i < 100; i++ {
		for j := 0; j < i; j++ {
			dx, dy := g.PixX[i]-g.PixX[j], g.PixY[i]-g.PixY[j]
			if d := math.Sqrt(dx*dx + dy*dy); d < PixelPitch*0.999 {
				t.Fatalf("pixels %d and %d only %g apart", i, j, d)
			}
		}
	}
}

func TestLayoutNeighbors(t *testing.T) {
	g := New(NumPixels)
	// every pixel on the first ring is exactly one pitch from the center
	for i := 1; i <= 6; i++ {
		d := math.Hypot(g.PixX[i], g.PixY[i])
		if math.Abs(d-PixelPitch) > 1e-12 {
			t.Errorf("ring-1 pixel %d at distance %g, want %g", i, d, PixelPitch)
		}
	}
}

func TestTheta(t *testing.T) {
	g := New(NumPixels)
	if got := g.Theta(0, 0, 0); got != 0 {
		t.Errorf("theta of center pixel got %g, want 0", got)
	}
	// one pitch off axis: atan(0.05/12) in degrees
	want := math.Atan(PixelPitch/FocalLength) * 180 / math.Pi
	got := g.Theta(1, 0, 0)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("theta of ring-1 pixel got %g, want %g", got, want)
	}
}

func TestClosestPixel(t *testing.T) {
	g := New(NumPixels)
	for _, i := range []int{0, 1, 6, 100, 1000, NumPixels - 1} {
		id, dist := g.ClosestPixel(g.PixX[i], g.PixY[i])
		if id != i || dist != 0 {
			t.Errorf("closest to pixel %d got id %d dist %g", i, id, dist)
		}
	}
	// a small offset keeps the same winner
	id, _ := g.ClosestPixel(g.PixX[42]+PixelPitch/10, g.PixY[42])
	if id != 42 {
		t.Errorf("closest with offset got %d, want 42", id)
	}
}

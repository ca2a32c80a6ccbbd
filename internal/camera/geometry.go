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
)

// Total number of pixels in the camera
const NumPixels = 1855

// Center-to-center pixel spacing in meters
const PixelPitch = 0.05

// Effective focal length of the telescope in meters
const FocalLength = 12.0

// Per-pixel camera geometry in the engineering frame. Read-only after construction.
type Geometry struct {
	PixID []int     // Pixel ids, 0..NumPixels-1
	PixX  []float64 // Pixel center x coordinates in meters
	PixY  []float64 // Pixel center y coordinates in meters

	NumPixels   int     // Total pixel count
	FocalLength float64 // Focal length in meters, for angular transforms
}

// Axial step directions for walking a hexagonal ring
var hexDirs = [6][2]int{{1, 0}, {1, -1}, {0, -1}, {-1, 0}, {-1, 1}, {0, 1}}

// Creates the camera geometry for the given pixel count. Pixels are laid out
// on a hexagonal lattice in ring-spiral order from the camera center, then
// transformed into the engineering camera frame.
func New(numPixels int) *Geometry {
	g := &Geometry{
		PixID:       make([]int, numPixels),
		PixX:        make([]float64, numPixels),
		PixY:        make([]float64, numPixels),
		NumPixels:   numPixels,
		FocalLength: FocalLength,
	}

	i := 0
	place := func(q, r int) {
		if i >= numPixels {
			return
		}
		x := PixelPitch * (float64(q) + 0.5*float64(r))
		y := PixelPitch * (math.Sqrt(3) / 2) * float64(r)
		g.PixID[i] = i
		g.PixX[i], g.PixY[i] = engineeringFrame(x, y)
		i++
	}

	place(0, 0)
	for ring := 1; i < numPixels; ring++ {
		q, r := -ring, ring // start at direction 4 corner
		for _, d := range hexDirs {
			for s := 0; s < ring; s++ {
				place(q, r)
				q, r = q+d[0], r+d[1]
			}
		}
	}
	return g
}

// Transforms camera frame coordinates into the engineering frame
func engineeringFrame(x, y float64) (xe, ye float64) {
	return -y, -x
}

// Returns the angular distance in degrees between pixel i and the point (cx, cy),
// using the small-field atan(r/f) transform.
func (g *Geometry) Theta(i int, cx, cy float64) float64 {
	dx, dy := g.PixX[i]-cx, g.PixY[i]-cy
	r := math.Sqrt(dx*dx + dy*dy)
	return math.Atan(r/g.FocalLength) * 180 / math.Pi
}

// Returns the id of the pixel closest to (x, y), and its Euclidean distance
// from that point
func (g *Geometry) ClosestPixel(x, y float64) (id int, dist float64) {
	id, best := -1, math.MaxFloat64
	for i := range g.PixX {
		dx, dy := g.PixX[i]-x, g.PixY[i]-y
		d2 := dx*dx + dy*dy
		if d2 < best {
			id, best = i, d2
		}
	}
	return id, math.Sqrt(best)
}

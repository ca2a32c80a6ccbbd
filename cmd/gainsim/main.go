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

// Gainsim generates a synthetic gain container with a Gaussian illumination
// spot, for exercising the analysis without camera data.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/anmikhno/photostat/internal/camera"
	"github.com/anmikhno/photostat/internal/fitting"
	"github.com/anmikhno/photostat/internal/gain"
	"github.com/anmikhno/photostat/internal/logx"
	"github.com/valyala/fastrand"
)

var out = flag.String("out", "gainsim.fits", "save synthetic gain container to `file`")
var amplitude = flag.Float64("amplitude", 1200, "total spot intensity in photoelectrons")
var centerX = flag.Float64("center-x", 0, "spot center x in meters")
var centerY = flag.Float64("center-y", 0, "spot center y in meters")
var width = flag.Float64("width", 1.5, "spot width in meters")
var highGain = flag.Float64("high-gain", 58.0, "high gain in ADC counts per photoelectron")
var noise = flag.Float64("noise", 0.02, "relative Gaussian noise on the charge")
var numMissing = flag.Int("missing", 8, "number of pixel ids to drop from the container")
var numDead = flag.Int("dead", 4, "number of pixels with zero high gain")
var seed = flag.Uint("seed", 1, "random seed")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-flag value]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	rng := &fastrand.RNG{}
	rng.Seed(uint32(*seed))

	geom := camera.New(camera.NumPixels)
	params := []float64{*amplitude, *centerX, *centerY, *width}

	missing := pickDistinct(rng, geom.NumPixels, *numMissing, nil)
	dead := pickDistinct(rng, geom.NumPixels, *numDead, missing)

	c := &gain.Container{}
	for i := 0; i < geom.NumPixels; i++ {
		if missing[i] {
			continue
		}
		hg := *highGain
		if dead[i] {
			hg = 0
		}
		npe := fitting.SpotValue(params, geom.PixX[i], geom.PixY[i])
		charge := npe * *highGain * (1 + *noise*normFloat(rng))
		chargeStd := math.Sqrt(npe) * *highGain

		c.PixelsID = append(c.PixelsID, int32(i))
		c.HighGain = append(c.HighGain, []float64{hg, hg * 0.95, hg * 1.05})
		c.LowGain = append(c.LowGain, []float64{hg / 15, hg / 15 * 0.95, hg / 15 * 1.05})
		c.Charge = append(c.Charge, charge)
		c.ChargeStd = append(c.ChargeStd, chargeStd)
		c.IsValid = append(c.IsValid, !dead[i])
	}

	if err := gain.Write(*out, c); err != nil {
		logx.Fatalf("Writing %s: %s\n", *out, err.Error())
	}
	logx.Printf("Wrote %d of %d pixels to %s (%d missing, %d dead)\n",
		c.Len(), geom.NumPixels, *out, *numMissing, *numDead)
}

// Marks count distinct pixel ids, avoiding ids already taken
func pickDistinct(rng *fastrand.RNG, n, count int, taken map[int]bool) map[int]bool {
	picked := map[int]bool{}
	for len(picked) < count {
		id := int(rng.Uint32n(uint32(n)))
		if !picked[id] && !taken[id] {
			picked[id] = true
		}
	}
	return picked
}

// Standard normal deviate by Box-Muller over two uniform draws
func normFloat(rng *fastrand.RNG) float64 {
	u1 := (float64(rng.Uint32n(1<<24)) + 1) / float64(1<<24)
	u2 := float64(rng.Uint32n(1<<24)) / float64(1<<24)
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

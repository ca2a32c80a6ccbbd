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

package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/anmikhno/photostat/internal/camera"
	"github.com/anmikhno/photostat/internal/fitting"
	"github.com/anmikhno/photostat/internal/gain"
)

func TestRunEndToEnd(t *testing.T) {
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })

	// synthetic noise-free container following the illumination model
	geom := camera.New(camera.NumPixels)
	truth := []float64{1200, 0.1, -0.05, 1.4}
	c := &gain.Container{}
	for i := 0; i < geom.NumPixels; i++ {
		if i == 100 || i == 500 { // leave a couple of pixels missing
			continue
		}
		hg := 58.0
		npe := fitting.SpotValue(truth, geom.PixX[i], geom.PixY[i])
		c.PixelsID = append(c.PixelsID, int32(i))
		c.HighGain = append(c.HighGain, []float64{hg, hg, hg})
		c.LowGain = append(c.LowGain, []float64{4, 4, 4})
		c.Charge = append(c.Charge, npe*hg)
		c.ChargeStd = append(c.ChargeStd, math.Sqrt(npe)*hg)
		c.IsValid = append(c.IsValid, true)
	}
	analysisFile := filepath.Join(dir, "gain.fits")
	if err := gain.Write(analysisFile, c); err != nil {
		t.Fatal(err)
	}

	ctx := NewContext("9999", "3000", dir, analysisFile, false)
	defer ctx.Rep.Close()
	if err := Run(ctx); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"FF_calibration_run9999.dat",
		"Log_info_run_9999.txt",
		"Plots_analysis_run9999_p01_data.png",
	} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected output %s missing: %s", name, err.Error())
		}
	}
}

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

// Package report emits the analysis outputs: a numbered sequence of plot
// pages, a cumulative per-run fit log, and the final calibration table.
package report

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/anmikhno/photostat/internal/camera"
	"github.com/anmikhno/photostat/internal/gain"
	"github.com/anmikhno/photostat/internal/logx"
)

// Header of the cumulative fit log, written once per file
const fitLogHeader = "Run,Model,A,x0(rad),y0(rad),width(rad),v_int," +
	"A_err,x0_err(rad),y0_err(rad),width_err(rad),v_int_err,model_error\n"

// A report writer for one analysis run. Owns the open fit log handle;
// construct once, Close guaranteed by the caller.
type Report struct {
	RunNumber string

	page    int
	fitLog  *os.File
	fitLogW *bufio.Writer
}

func New(runNumber string) *Report {
	return &Report{RunNumber: runNumber}
}

// Releases the open fit log handle, if any
func (r *Report) Close() (err error) {
	if r.fitLogW != nil {
		if err = r.fitLogW.Flush(); err != nil {
			return err
		}
		err = r.fitLog.Close()
		r.fitLog, r.fitLogW = nil, nil
	}
	return err
}

// AppendFitLog writes one row per fit variant to the append-only per-run log
// file, creating it with a fixed header on first use. Center and width
// columns are converted from meters to radians through the focal length.
// Pass nil for vint and vintErr on the variant without intrinsic variance.
func (r *Report) AppendFitLog(model string, params, errs []float64, vint, vintErr *float64, modelErr float64) error {
	if r.fitLogW == nil {
		name := fmt.Sprintf("Log_info_run_%s.txt", r.RunNumber)
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
		if err != nil {
			return err
		}
		pos, err := f.Seek(0, 2)
		if err != nil {
			f.Close()
			return err
		}
		r.fitLog, r.fitLogW = f, bufio.NewWriter(f)
		if pos == 0 {
			r.fitLogW.WriteString(fitLogHeader)
		}
	}

	rad := func(m float64) float64 { return math.Atan(m / camera.FocalLength) }

	vintStr, vintErrStr := "", ""
	if vint != nil {
		vintStr = fmt.Sprintf("%g", *vint)
	}
	if vintErr != nil {
		vintErrStr = fmt.Sprintf("%g", *vintErr)
	}
	_, err := fmt.Fprintf(r.fitLogW, "%s,%s,%g,%g,%g,%g,%s,%g,%g,%g,%g,%s,%g\n",
		r.RunNumber, model,
		params[0], rad(params[1]), rad(params[2]), rad(params[3]), vintStr,
		errs[0], rad(errs[1]), rad(errs[2]), rad(errs[3]), vintErrStr,
		modelErr)
	if err != nil {
		return err
	}
	return r.fitLogW.Flush()
}

// WriteTable writes the final calibration table: one row per pixel with
// geometry, fitted photoelectron counts, both flat-field coefficient sets,
// and the initial pre-fit quantities.
func (r *Report) WriteTable(geom *camera.Geometry, set *gain.PixelSet,
	fitted, fittedStd, effInd, effMod, effModErr []float64) error {

	name := fmt.Sprintf("FF_calibration_run%s.dat", r.RunNumber)
	logx.Printf("Writing calibration table to %s ...\n", name)

	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "pixel_id x y N_photoelectrons_fited N_photoelectrons_std_fited "+
		"FF_coef_independent_way FF_coef_model_way FF_coef_model_way_err "+
		"high_gain_init low_gain_init Charge_init N_photoelectrons_init N_photoelectrons_std_init\n")
	for i := 0; i < geom.NumPixels; i++ {
		fmt.Fprintf(w, "%d %g %g %g %g %g %g %g %g %g %g %g %g\n",
			set.PixelsID[i], geom.PixX[i], geom.PixY[i],
			fitted[i], fittedStd[i],
			effInd[i], effMod[i], effModErr[i],
			set.HighGain[i][0], set.LowGain[i][0], set.Charge[i],
			set.NPE[i], set.StdNPE[i])
	}
	return w.Flush()
}

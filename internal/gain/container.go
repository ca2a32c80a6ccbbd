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
	"os"

	"github.com/astrogo/fitsio"
)

// Name of the binary table extension holding the per-pixel gain data
const ContainerHDU = "GainContainer_0"

// A sparse per-pixel gain/charge container, as written by the photo-statistics
// gain producer. Gain columns may carry multiple channels per pixel; the first
// channel is the one used downstream.
type Container struct {
	PixelsID  []int32     // Pixel ids present in the input, not necessarily dense
	HighGain  [][]float64 // Per-pixel high gain, one row per pixel, one column per channel
	LowGain   [][]float64 // Per-pixel low gain, same shape convention
	Charge    []float64   // Integrated signal per pixel
	ChargeStd []float64   // Spread of the integrated signal per pixel
	IsValid   []bool      // Whether the pixel had usable input data
}

// Number of rows in the container
func (c *Container) Len() int { return len(c.PixelsID) }

// Reads a gain container from the named binary table in a FITS file.
// The file handle is released on all return paths.
func Read(fileName string) (c *Container, err error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fits, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("%s: not a FITS file: %s", fileName, err.Error())
	}
	defer fits.Close()

	var tbl *fitsio.Table
	for _, hdu := range fits.HDUs() {
		if t, ok := hdu.(*fitsio.Table); ok && t.Name() == ContainerHDU {
			tbl = t
			break
		}
	}
	if tbl == nil {
		return nil, fmt.Errorf("%s: no %s table extension", fileName, ContainerHDU)
	}

	n := int(tbl.NumRows())
	c = &Container{
		PixelsID:  make([]int32, 0, n),
		HighGain:  make([][]float64, 0, n),
		LowGain:   make([][]float64, 0, n),
		Charge:    make([]float64, 0, n),
		ChargeStd: make([]float64, 0, n),
		IsValid:   make([]bool, 0, n),
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int32
			hg, lg   []float64
			ch, chSd float64
			valid    bool
		)
		if err := rows.Scan(&id, &hg, &lg, &ch, &chSd, &valid); err != nil {
			return nil, err
		}
		c.PixelsID = append(c.PixelsID, id)
		c.HighGain = append(c.HighGain, hg)
		c.LowGain = append(c.LowGain, lg)
		c.Charge = append(c.Charge, ch)
		c.ChargeStd = append(c.ChargeStd, chSd)
		c.IsValid = append(c.IsValid, valid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Writes a gain container as the named binary table extension of a fresh FITS
// file. Used by tests and the synthetic data generator.
func Write(fileName string, c *Container) (err error) {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	fits, err := fitsio.Create(f)
	if err != nil {
		return err
	}
	defer fits.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err = fits.Write(phdu); err != nil {
		return err
	}

	nch := 1
	if len(c.HighGain) > 0 {
		nch = len(c.HighGain[0])
	}
	cols := []fitsio.Column{
		{Name: "pixels_id", Format: "J"},
		{Name: "high_gain", Format: fmt.Sprintf("%dD", nch)},
		{Name: "low_gain", Format: fmt.Sprintf("%dD", nch)},
		{Name: "charge", Format: "D"},
		{Name: "charge_std", Format: "D"},
		{Name: "is_valid", Format: "L"},
	}
	tbl, err := fitsio.NewTable(ContainerHDU, cols, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer tbl.Close()

	for i := range c.PixelsID {
		err = tbl.Write(&c.PixelsID[i], &c.HighGain[i], &c.LowGain[i],
			&c.Charge[i], &c.ChargeStd[i], &c.IsValid[i])
		if err != nil {
			return err
		}
	}
	return fits.Write(tbl)
}

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

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anmikhno/photostat/internal/logx"
	"github.com/anmikhno/photostat/internal/pipeline"
	"github.com/anmikhno/photostat/internal/precompute"
)

const version = "0.1.0"

var runNumber = flag.String("run-number", "", "flat-field `run` to analyze (required); doubles as the pedestal run")
var speRunNumber = flag.String("spe-run-number", "", "single photoelectron calibration `run` (required)")
var runPath = flag.String("run-path", os.Getenv("NECTARCAMDATA"), "`directory` holding the raw run data, default $NECTARCAMDATA")
var analysisPath = flag.String("analysis-file", os.Getenv("NECTARCAMDATA"), "`directory` holding precomputed analysis containers, default $NECTARCAMDATA")
var addVariance = flag.String("add-variance", "false", "also fit with an intrinsic-variance term, `true` or false")
var logFile = flag.String("log", "", "save log output to `file` in addition to stdout")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Photostat %s
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s -run-number N -spe-run-number M [-flag value]

Flags:
`, version, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *logFile != "" {
		if err := logx.AlsoToFile(*logFile); err != nil {
			logx.Fatalf("Unable to open logfile '%s'\n", *logFile)
		}
	}
	defer logx.Sync()

	if *runNumber == "" || *speRunNumber == "" {
		flag.Usage()
		logx.Fatalf("Missing required -run-number or -spe-run-number\n")
	}
	withVariance := parseBoolFlag("add-variance", *addVariance)

	analysisFile := analysisFileName(*analysisPath, *runNumber)
	if _, err := os.Stat(analysisFile); err != nil {
		if err := precompute.Run(*runNumber, *speRunNumber); err != nil {
			logx.Fatalf("Gain computation for run %s failed: %s\n", *runNumber, err.Error())
		}
		if _, err := os.Stat(analysisFile); err != nil {
			logx.Fatalf("Analysis container still missing after gain computation: %s\n", analysisFile)
		}
	}

	ctx := pipeline.NewContext(*runNumber, *speRunNumber, *runPath, analysisFile, withVariance)
	defer ctx.Rep.Close()

	if err := pipeline.Run(ctx); err != nil {
		logx.Fatalf("Analysis of run %s failed: %s\n", *runNumber, err.Error())
	}
	logx.Printf("Analysis of run %s complete\n", *runNumber)
}

// Location of the precomputed gain container for one flat-field run
func analysisFileName(dir, run string) string {
	name := fmt.Sprintf("PhotoStatisticNectarCAM_FFrun%s_GlobalPeakWindowSum_window_width_8_Pedrun%s_FullWaveformSum.fits",
		run, run)
	return filepath.Join(dir, "PhotoStat", name)
}

// Accepts the usual spellings of a boolean argument, case-insensitively.
// Anything else is a fatal usage error.
func parseBoolFlag(name, value string) bool {
	switch strings.ToLower(value) {
	case "true", "t", "1", "yes":
		return true
	case "false", "f", "0", "no":
		return false
	}
	logx.Fatalf("Invalid -%s value '%s': want true or false\n", name, value)
	return false
}

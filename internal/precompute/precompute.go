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

// Package precompute shells out to the gain extraction tool when the
// per-run photon statistics container is not on disk yet.
package precompute

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/anmikhno/photostat/internal/logx"
)

const defaultScript = "local/src/nectarchain/src/nectarchain/user_scripts/ggrolleron/gain_PhotoStat_computation.py"

// ScriptPath resolves the extraction script location. PHOTOSTAT_GAIN_SCRIPT
// overrides the default location under the user's home directory.
func ScriptPath() string {
	if s := os.Getenv("PHOTOSTAT_GAIN_SCRIPT"); s != "" {
		return s
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, defaultScript)
}

// Run invokes the gain extraction for one flat-field run, producing the
// analysis container this tool reads. The flat-field run doubles as the
// pedestal run. Output goes straight through to the terminal.
func Run(runNumber, speRunNumber string) error {
	script := ScriptPath()
	logx.Printf("Analysis container missing, computing gain for run %s (SPE run %s)\n", runNumber, speRunNumber)
	cmd := exec.Command("python3", script,
		"--FF_run_number", runNumber,
		"--Ped_run_number", runNumber,
		"--SPE_run_number", speRunNumber,
		"--method", "GlobalPeakWindowSum",
		"--extractor_kwargs", `{"window_width":8}`,
		"--overwrite",
		"-v", "INFO",
		"--reload_events",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

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
	"strings"
	"testing"
)

func TestParseBoolFlag(t *testing.T) {
	for _, s := range []string{"true", "True", "TRUE", "t", "1", "yes", "YES"} {
		if !parseBoolFlag("add-variance", s) {
			t.Errorf("%q parsed as false", s)
		}
	}
	for _, s := range []string{"false", "False", "FALSE", "f", "0", "no", "No"} {
		if parseBoolFlag("add-variance", s) {
			t.Errorf("%q parsed as true", s)
		}
	}
}

func TestAnalysisFileName(t *testing.T) {
	got := analysisFileName("/data", "3936")
	if !strings.HasPrefix(got, "/data/PhotoStat/") {
		t.Errorf("path got %q", got)
	}
	if !strings.Contains(got, "FFrun3936") || !strings.Contains(got, "Pedrun3936") {
		t.Errorf("run number missing from %q", got)
	}
}

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

package fitting

import (
	"math"

	"github.com/anmikhno/photostat/internal/stats"
)

// ClipOutliers marks entries whose deviation from the sample mean exceeds
// three standard deviations, with mean and std computed from the currently
// valid population. A single pass only; the mask is recomputed per fit
// attempt, not iterated to convergence. A value at exactly 3 sigma survives.
func ClipOutliers(values []float64, valid []bool) (clipped []bool, numClipped int) {
	mean, stdDev := stats.MeanStdDev(values, valid)
	clipped = make([]bool, len(values))
	for i, v := range values {
		if !valid[i] {
			continue
		}
		if math.Abs(v-mean) > 3*stdDev {
			clipped[i] = true
			numClipped++
		}
	}
	return clipped, numClipped
}

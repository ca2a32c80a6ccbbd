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

	"github.com/anmikhno/photostat/internal/camera"
	"github.com/anmikhno/photostat/internal/logx"
)

// CharacterizePeak finds the pixel geometrically closest to the fitted spot
// center and reports its id together with that pixel's distance from the
// camera origin. Purely diagnostic.
func CharacterizePeak(geom *camera.Geometry, res *Result) (pixelID int, distance float64) {
	cx, cy := res.Params[ParamCenterX], res.Params[ParamCenterY]
	pixelID, _ = geom.ClosestPixel(cx, cy)
	px, py := geom.PixX[pixelID], geom.PixY[pixelID]
	distance = math.Sqrt(px*px + py*py)

	logx.Printf("Closest pixel ID: %d\n", pixelID)
	logx.Printf("Coordinates: (%g, %g)\n", px, py)
	logx.Printf("Distance between the camera center and the fitted peak: %.3f meters\n", distance)
	return pixelID, distance
}

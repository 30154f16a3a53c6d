/*
Copyright © 2026 the popcover authors.
This file is part of popcover.

popcover is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

popcover is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with popcover.  If not, see <http://www.gnu.org/licenses/>.
*/

package popcover

import (
	"math"

	"github.com/ctessum/geom/proj"
)

// PixelArea holds the ground area of the pixels of a grid in km².
// For geographic grids the area varies by row; for projected grids it is
// the same for every pixel.
type PixelArea struct {
	// Rows holds the area of the pixels in each row for geographic grids.
	// It is nil for projected grids.
	Rows []float64

	// Scalar holds the area of every pixel for projected grids.
	Scalar float64
}

// At returns the area of a pixel in row.
func (a *PixelArea) At(row int) float64 {
	if a.Rows != nil {
		return a.Rows[row]
	}
	return a.Scalar
}

// KmPerDegLon returns the length of one degree of longitude at lat
// (degrees) in km.
func KmPerDegLon(lat float64) float64 {
	return 111.320 * math.Cos(lat*math.Pi/180)
}

// KmPerDegLat returns the length of one degree of latitude at lat
// (degrees) in km, using an approximation of the meridian arc length.
func KmPerDegLat(lat float64) float64 {
	s := math.Sin(lat * math.Pi / 180)
	s2 := s * s
	return 111.132 - 0.559*s2 + 0.0012*s2*s2
}

// NewPixelArea calculates pixel areas for a grid with the given transform,
// number of rows and spatial reference.
// For geographic grids each row's area is evaluated at the latitude of the
// row's pixel centers; for projected grids it is the product of the pixel
// dimensions converted from map units to km.
func NewPixelArea(t Affine, rows int, sr *proj.SR) *PixelArea {
	res := t.Resolution()
	if !IsGeographic(sr) {
		m := toMeter(sr)
		return &PixelArea{Scalar: math.Abs(res[0]*res[1]) * m * m / 1e6}
	}
	a := &PixelArea{Rows: make([]float64, rows)}
	for r := range a.Rows {
		_, lat := t.Forward(0.5, float64(r)+0.5)
		v := res[0] * KmPerDegLon(lat) * res[1] * KmPerDegLat(lat)
		if v < 0 {
			v = 0
		}
		a.Rows[r] = v
	}
	return a
}

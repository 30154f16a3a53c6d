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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Density units accepted by Normalize.
const (
	// UnitsPerKm2 means the density grid holds people per km² and
	// must be multiplied by pixel area.
	UnitsPerKm2 = "per_km2"

	// UnitsPerPixel means the density grid already holds people per pixel.
	UnitsPerPixel = "per_pixel"
)

// DefaultTargetPopulation is the total population the count raster is
// scaled to when no other target is given.
const DefaultTargetPopulation = 7e9

// CheckUnits returns an error if units is not a supported density unit.
func CheckUnits(units string) error {
	switch units {
	case UnitsPerKm2, UnitsPerPixel:
		return nil
	default:
		return fmt.Errorf("%w %q: must be %q or %q", ErrUnsupportedUnits, units, UnitsPerKm2, UnitsPerPixel)
	}
}

// CountRaster holds the number of people in each pixel of a grid,
// scaled so that the total matches a target population.
type CountRaster struct {
	// Data has shape [rows, cols]. Non-land and missing pixels are zero.
	Data *sparse.DenseArray

	Transform Affine
	CRS       string

	// TotalRaw is the total before scaling.
	TotalRaw float64

	// TotalAdjusted is the total after scaling.
	TotalAdjusted float64

	// ScaleFactor is TargetPopulation / TotalRaw.
	ScaleFactor float64

	// TargetPopulation is the total the raster was scaled to.
	TargetPopulation float64
}

// Rows returns the number of rows in the grid.
func (c *CountRaster) Rows() int { return c.Data.Shape[0] }

// Cols returns the number of columns in the grid.
func (c *CountRaster) Cols() int { return c.Data.Shape[1] }

// Normalize converts density into a count raster. Pixels that are not land,
// are missing, or are negative become zero. Densities in units of
// UnitsPerKm2 are multiplied by pixel area. The result is then scaled so
// that its total equals target.
func Normalize(density *Raster, mask *LandMask, area *PixelArea, units string, target float64) (*CountRaster, error) {
	if err := CheckUnits(units); err != nil {
		return nil, err
	}
	if !(target > 0) || math.IsInf(target, 0) {
		return nil, fmt.Errorf("popcover: target population must be positive and finite but is %g", target)
	}
	rows, cols := density.Rows(), density.Cols()
	if mask != nil && (mask.Rows != rows || mask.Cols != cols) {
		return nil, fmt.Errorf("%w: density %dx%d, land mask %dx%d", ErrShapeMismatch, rows, cols, mask.Rows, mask.Cols)
	}
	if units == UnitsPerKm2 && area == nil {
		return nil, fmt.Errorf("popcover: density in %s requires pixel areas", UnitsPerKm2)
	}
	if units == UnitsPerKm2 && area.Rows != nil && len(area.Rows) != rows {
		return nil, fmt.Errorf("%w: density has %d rows, pixel area has %d", ErrShapeMismatch, rows, len(area.Rows))
	}

	counts := sparse.ZerosDense(rows, cols)
	for r := 0; r < rows; r++ {
		a := 1.
		if units == UnitsPerKm2 {
			a = area.At(r)
		}
		for c := 0; c < cols; c++ {
			i := r*cols + c
			v := density.Data.Elements[i]
			if density.isNoData(v) || v < 0 || (mask != nil && !mask.Land[i]) {
				continue
			}
			counts.Elements[i] = v * a
		}
	}

	raw := floats.Sum(counts.Elements)
	if raw == 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return nil, fmt.Errorf("%w (%g)", ErrDegenerateTotal, raw)
	}
	scale := target / raw
	floats.Scale(scale, counts.Elements)

	return &CountRaster{
		Data:             counts,
		Transform:        density.Transform,
		CRS:              density.CRS,
		TotalRaw:         raw,
		TotalAdjusted:    floats.Sum(counts.Elements),
		ScaleFactor:      scale,
		TargetPopulation: target,
	}, nil
}

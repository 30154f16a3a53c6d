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
)

// Affine is a six-coefficient affine transform from pixel (col, row)
// space to map (x, y) space, stored in GDAL order:
//
//	x = C + A*col + B*row
//	y = F + D*col + E*row
//
// For a north-up grid B and D are zero and E is negative.
type Affine struct {
	C, A, B, F, D, E float64
}

// NewAffine creates an Affine from its six coefficients in GDAL order
// (x origin, pixel width, row rotation, y origin, column rotation,
// pixel height).
func NewAffine(gt []float64) (Affine, error) {
	if len(gt) != 6 {
		return Affine{}, fmt.Errorf("popcover: affine transform needs 6 coefficients but has %d", len(gt))
	}
	return Affine{C: gt[0], A: gt[1], B: gt[2], F: gt[3], D: gt[4], E: gt[5]}, nil
}

// Coefficients returns the transform coefficients in GDAL order.
func (t Affine) Coefficients() []float64 {
	return []float64{t.C, t.A, t.B, t.F, t.D, t.E}
}

// Forward maps fractional pixel coordinates to map coordinates.
func (t Affine) Forward(col, row float64) (x, y float64) {
	return t.C + t.A*col + t.B*row, t.F + t.D*col + t.E*row
}

// Inverse returns the transform that maps map coordinates back to
// fractional pixel coordinates.
func (t Affine) Inverse() (Affine, error) {
	det := t.A*t.E - t.B*t.D
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Affine{}, ErrNonInvertible
	}
	ia := t.E / det
	ib := -t.B / det
	id := -t.D / det
	ie := t.A / det
	return Affine{
		A: ia, B: ib, C: -t.C*ia - t.F*ib,
		D: id, E: ie, F: -t.C*id - t.F*ie,
	}, nil
}

// Resolution returns the absolute pixel width and height in map units.
func (t Affine) Resolution() [2]float64 {
	return [2]float64{math.Hypot(t.A, t.D), math.Hypot(t.B, t.E)}
}

// Box is a half-open rectangle of pixel indices:
// rows [Row0, Row1) and columns [Col0, Col1).
type Box struct {
	Row0, Row1, Col0, Col1 int
}

// Empty returns whether b contains no pixels.
func (b Box) Empty() bool { return b.Row1 <= b.Row0 || b.Col1 <= b.Col0 }

// Len returns the number of pixels in b.
func (b Box) Len() int {
	if b.Empty() {
		return 0
	}
	return (b.Row1 - b.Row0) * (b.Col1 - b.Col0)
}

// Mapper converts between geographic coordinates and indices of a grid
// with a fixed number of rows and columns.
type Mapper struct {
	Rows, Cols int
	fwd, inv   Affine
}

// NewMapper creates a Mapper for a grid with the given transform and shape.
func NewMapper(t Affine, rows, cols int) (*Mapper, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("popcover: invalid grid shape %dx%d", rows, cols)
	}
	inv, err := t.Inverse()
	if err != nil {
		return nil, err
	}
	return &Mapper{Rows: rows, Cols: cols, fwd: t, inv: inv}, nil
}

// Transform returns the forward transform of the grid.
func (m *Mapper) Transform() Affine { return m.fwd }

// GeoToPixel returns the integer (col, row) of the pixel containing
// (x, y). Fractional indices are truncated toward zero. The result is not
// clamped and may lie outside the grid. ok is false for coordinates that
// are not finite.
func (m *Mapper) GeoToPixel(x, y float64) (col, row int, ok bool) {
	fc, fr := m.inv.Forward(x, y)
	if !finite(fc) || !finite(fr) || math.Abs(fc) > math.MaxInt32 || math.Abs(fr) > math.MaxInt32 {
		return 0, 0, false
	}
	return int(fc), int(fr), true
}

// PixelCenter returns the map coordinates of the center of pixel (col, row).
func (m *Mapper) PixelCenter(col, row int) (x, y float64) {
	return m.fwd.Forward(float64(col)+0.5, float64(row)+0.5)
}

// Clamp restricts b to the extent of the grid.
func (m *Mapper) Clamp(b Box) Box {
	return Box{
		Row0: clampInt(b.Row0, 0, m.Rows), Row1: clampInt(b.Row1, 0, m.Rows),
		Col0: clampInt(b.Col0, 0, m.Cols), Col1: clampInt(b.Col1, 0, m.Cols),
	}
}

// Around returns the clamped box of pixels within rowR rows and colR
// columns of (col, row).
func (m *Mapper) Around(col, row, colR, rowR int) Box {
	return m.Clamp(Box{Row0: row - rowR, Row1: row + rowR + 1, Col0: col - colR, Col1: col + colR + 1})
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

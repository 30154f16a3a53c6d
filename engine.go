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
	"strings"

	"github.com/ctessum/requestcache"
)

// Simplified degree lengths used to size query boxes.
const (
	queryKmPerDegLat = 111.0
	queryKmPerDegLon = 111.32
)

// Engine answers population queries against a count raster.
// It is not modified after it is created, so it can be used by
// many goroutines at once.
type Engine struct {
	counts     []float64
	rows, cols int
	m          *Mapper

	// pixW and pixH are the pixel width and height in degrees.
	pixW, pixH float64

	cache *requestcache.Cache
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCoverageCache keeps the results of up to n recent coverage
// requests in memory for CachedSweep.
func WithCoverageCache(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.cache = newCoverageCache(e, n)
		}
	}
}

// NewEngine creates a query engine for c, which must be a geographic
// (longitude, latitude) grid. An empty CRS is taken to be geographic.
func NewEngine(c *CountRaster, opts ...EngineOption) (*Engine, error) {
	if len(c.Data.Shape) != 2 {
		return nil, fmt.Errorf("popcover: count raster must have 2 dimensions but has %d", len(c.Data.Shape))
	}
	if strings.TrimSpace(c.CRS) != "" {
		sr, err := ParseCRS(c.CRS)
		if err != nil {
			return nil, err
		}
		if !IsGeographic(sr) {
			return nil, fmt.Errorf("popcover: queries require a geographic grid but the count raster is projected")
		}
	}
	m, err := NewMapper(c.Transform, c.Rows(), c.Cols())
	if err != nil {
		return nil, err
	}
	res := c.Transform.Resolution()
	e := &Engine{
		counts: c.Data.Elements,
		rows:   c.Rows(),
		cols:   c.Cols(),
		m:      m,
		pixW:   res[0],
		pixH:   res[1],
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Rows returns the number of rows in the grid.
func (e *Engine) Rows() int { return e.rows }

// Cols returns the number of columns in the grid.
func (e *Engine) Cols() int { return e.cols }

// box returns the clamped box of pixels around (lat, lon) whose half
// extent approximates radiusKm.
func (e *Engine) box(lat, lon, radiusKm float64) (Box, bool) {
	col, row, ok := e.m.GeoToPixel(lon, lat)
	if !ok {
		return Box{}, false
	}
	colR := 1
	if kmLon := queryKmPerDegLon * math.Cos(lat*deg2rad); kmLon > 0 {
		colR = pixelRadius(radiusKm / (kmLon * e.pixW))
	}
	rowR := pixelRadius(radiusKm / (queryKmPerDegLat * e.pixH))
	return e.m.Around(col, row, colR, rowR), true
}

// pixelRadius rounds a fractional pixel radius half to even, with a
// minimum of one. Radii are not limited to the grid size because the
// query location may lie outside the grid; the box is clamped instead.
func pixelRadius(v float64) int {
	r := math.RoundToEven(v)
	if !(r >= 1) {
		return 1
	}
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(r)
}

// Estimate returns the approximate number of people within radiusKm of
// (lat, lon), summed over an axis-aligned box of pixels around the
// location. The box overestimates a circle of the same radius by
// about 4/π. Invalid or out-of-range input gives zero.
func (e *Engine) Estimate(lat, lon, radiusKm float64) (n int64) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	if !finite(lat) || !finite(lon) || !finite(radiusKm) || radiusKm < 0 || math.Abs(lat) > 90 {
		return 0
	}
	b, ok := e.box(lat, lon, radiusKm)
	if !ok || b.Empty() {
		return 0
	}
	var sum float64
	for r := b.Row0; r < b.Row1; r++ {
		for _, v := range e.counts[r*e.cols+b.Col0 : r*e.cols+b.Col1] {
			if !math.IsNaN(v) {
				sum += v
			}
		}
	}
	return int64(sum)
}

// Count returns the number of people in pixel (row, col).
func (e *Engine) Count(row, col int) float64 {
	return e.counts[row*e.cols+col]
}

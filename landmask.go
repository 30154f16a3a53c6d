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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// LandMask marks which pixels of a grid fall on land.
type LandMask struct {
	Rows, Cols int

	// Land holds one value per pixel in row-major order;
	// true means land.
	Land []bool

	// Source is the location of the land boundary polygons.
	Source string

	// DefaultCRSApplied is true if the land polygons had no spatial
	// reference and were assumed to share the grid's.
	DefaultCRSApplied bool
}

// IsLand returns whether pixel (row, col) is on land.
func (m *LandMask) IsLand(row, col int) bool {
	return m.Land[row*m.Cols+col]
}

// Count returns the number of land pixels.
func (m *LandMask) Count() int {
	var n int
	for _, l := range m.Land {
		if l {
			n++
		}
	}
	return n
}

// LandPolygons holds land boundary polygons in a spatial index.
type LandPolygons struct {
	index *rtree.Rtree
	n     int

	// DefaultCRSApplied is true if the source shapefile had no .prj file.
	DefaultCRSApplied bool
}

// Len returns the number of polygons.
func (lp *LandPolygons) Len() int { return lp.n }

// NewLandPolygons indexes the given polygons, which must already be in
// the grid's spatial reference.
func NewLandPolygons(polys ...geom.Polygonal) *LandPolygons {
	lp := &LandPolygons{index: rtree.NewTree(25, 50)}
	for _, p := range polys {
		lp.index.Insert(p)
		lp.n++
	}
	return lp
}

// ReadLandPolygons reads the polygons in the given shapefile and
// reprojects them into dst. If the shapefile has no .prj file, the
// polygons are assumed to already be in dst.
func ReadLandPolygons(filename string, dst *proj.SR, log logrus.FieldLogger) (*LandPolygons, error) {
	f := strings.TrimSuffix(filename, ".shp")
	dec, err := shp.NewDecoder(f + ".shp")
	if err != nil {
		return nil, fmt.Errorf("popcover: opening land shapefile: %w", err)
	}
	defer dec.Close()

	var ct proj.Transformer
	var defaulted bool
	src, err := dec.SR()
	switch {
	case os.IsNotExist(err):
		log.WithField("shapefile", filename).Warn("land shapefile has no .prj file; assuming it matches the density grid")
		defaulted = true
	case err != nil:
		return nil, fmt.Errorf("popcover: reading land shapefile spatial reference: %w", err)
	case !sameCRS(src, dst):
		log.WithField("shapefile", filename).Info("reprojecting land polygons to the density grid spatial reference")
		if ct, err = src.NewTransform(dst); err != nil {
			return nil, fmt.Errorf("popcover: creating land polygon reprojection: %w", err)
		}
	}

	var polys []geom.Polygonal
	var skipped int
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		if ct != nil {
			if g, err = g.Transform(ct); err != nil {
				return nil, fmt.Errorf("popcover: reprojecting land polygon: %w", err)
			}
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			skipped++
			continue
		}
		polys = append(polys, p)
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("popcover: decoding land shapefile: %w", err)
	}
	if skipped > 0 {
		log.WithFields(logrus.Fields{
			"shapefile": filename,
			"skipped":   skipped,
		}).Warn("skipped non-polygon land shapes")
	}
	lp := NewLandPolygons(polys...)
	lp.DefaultCRSApplied = defaulted
	return lp, nil
}

// contains returns whether p lies inside or on the edge of any polygon.
func (lp *LandPolygons) contains(p geom.Point) bool {
	for _, x := range lp.index.SearchIntersect(p.Bounds()) {
		if p.Within(x.(geom.Polygonal)) != geom.Outside {
			return true
		}
	}
	return false
}

// Rasterize marks every pixel of the grid described by m whose center
// falls inside or on the edge of a land polygon. Rows are processed by up
// to workers goroutines.
func (lp *LandPolygons) Rasterize(ctx context.Context, m *Mapper, workers int) (*LandMask, error) {
	mask := &LandMask{
		Rows:              m.Rows,
		Cols:              m.Cols,
		Land:              make([]bool, m.Rows*m.Cols),
		DefaultCRSApplied: lp.DefaultCRSApplied,
	}
	if lp.n == 0 {
		return mask, nil
	}
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for row := 0; row < m.Rows; row++ {
		row := row
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			land := mask.Land[row*m.Cols : (row+1)*m.Cols]
			for col := range land {
				x, y := m.PixelCenter(col, row)
				land[col] = lp.contains(geom.Point{X: x, Y: y})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("popcover: rasterizing land mask: %w", err)
	}
	return mask, nil
}

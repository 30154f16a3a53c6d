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
	"path/filepath"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Raster is a two dimensional grid of values with georeferencing
// information.
type Raster struct {
	// Data holds the grid values with shape [rows, cols], in row-major order.
	Data *sparse.DenseArray

	// Transform maps pixel indices to map coordinates.
	Transform Affine

	// CRS is the proj4 or WKT definition of the grid's spatial reference.
	// It is empty if the source did not specify one.
	CRS string

	// SR is the parsed form of CRS.
	SR *proj.SR

	// NoData is the value that marks missing data, or NaN if the source
	// does not define one.
	NoData float64

	// Units holds the units attribute of the source, if any.
	Units string

	// Source is the location the raster was read from.
	Source string

	// DefaultCRSApplied is true if CRS was substituted because the source
	// did not specify one.
	DefaultCRSApplied bool
}

// Rows returns the number of rows in the grid.
func (r *Raster) Rows() int { return r.Data.Shape[0] }

// Cols returns the number of columns in the grid.
func (r *Raster) Cols() int { return r.Data.Shape[1] }

// Mapper returns a coordinate mapper for the grid.
func (r *Raster) Mapper() (*Mapper, error) {
	return NewMapper(r.Transform, r.Rows(), r.Cols())
}

// isNoData returns whether v is a missing value in r.
func (r *Raster) isNoData(v float64) bool {
	return math.IsNaN(v) || (!math.IsNaN(r.NoData) && v == r.NoData)
}

// ReadDensity reads a density grid from filename. NetCDF files
// (.nc, .ncf, .cdf) are read from the named variable; Esri ASCII grids
// (.asc) have a single band and variable is ignored.
func ReadDensity(filename, variable string) (*Raster, error) {
	var r *Raster
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".nc", ".ncf", ".cdf":
		r, err = readDensityNCF(filename, variable)
	case ".asc":
		r, err = readASCIIGrid(filename)
	default:
		return nil, fmt.Errorf("popcover: unsupported density file format %q", filename)
	}
	if err != nil {
		return nil, err
	}
	r.Source = filename
	return r, nil
}

// resolveCRS parses the spatial reference of r, substituting defaultCRS
// when r has none.
func (r *Raster) resolveCRS(defaultCRS string, log logrus.FieldLogger) error {
	if strings.TrimSpace(r.CRS) == "" {
		log.WithFields(logrus.Fields{
			"source":      r.Source,
			"default_crs": defaultCRS,
		}).Warn("density grid has no spatial reference; assuming default")
		r.CRS = ExpandCRS(defaultCRS)
		r.DefaultCRSApplied = true
	}
	sr, err := ParseCRS(r.CRS)
	if err != nil {
		return err
	}
	r.SR = sr
	return nil
}

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
	"strings"

	"github.com/ctessum/geom/proj"
)

// WGS84 is the proj4 definition of geographic WGS84 coordinates, which is
// used when a density grid does not specify its own spatial reference.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// epsgAliases holds proj4 definitions for the EPSG codes that can be given
// by name. The projection library only understands proj4 and WKT.
var epsgAliases = map[string]string{
	"EPSG:4326": WGS84,
	"EPSG:4269": "+proj=longlat +datum=NAD83 +no_defs",
	"EPSG:3857": "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs",
}

// ExpandCRS returns the proj4 or WKT definition for crs, resolving
// known EPSG aliases.
func ExpandCRS(crs string) string {
	crs = strings.TrimSpace(crs)
	if def, ok := epsgAliases[strings.ToUpper(crs)]; ok {
		return def
	}
	return crs
}

// ParseCRS parses a spatial reference given as a proj4 string, a WKT
// string, or a known EPSG alias.
func ParseCRS(crs string) (*proj.SR, error) {
	def := ExpandCRS(crs)
	if def == "" {
		return nil, fmt.Errorf("popcover: empty spatial reference")
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, fmt.Errorf("popcover: parsing spatial reference %q: %w", crs, err)
	}
	return sr, nil
}

// IsGeographic returns whether sr has coordinates in degrees of
// longitude and latitude.
func IsGeographic(sr *proj.SR) bool {
	return sr.Name == "longlat" || sr.Name == "identity"
}

// toMeter returns the size of one projected unit of sr in meters.
func toMeter(sr *proj.SR) float64 {
	if sr.ToMeter == 0 {
		return 1
	}
	return sr.ToMeter
}

// sameCRS returns whether two spatial references are equivalent.
func sameCRS(a, b *proj.SR) bool {
	return a.Equal(b, 3)
}

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

	"github.com/ctessum/geom"
)

// EarthRadiusKm is the mean radius of the Earth used for
// great-circle distances.
const EarthRadiusKm = 6371.009

const deg2rad = math.Pi / 180

// LatLon is a geographic location in degrees.
type LatLon struct {
	Lat, Lon float64
}

// GreatCircleKm returns the great-circle distance in km between two
// locations on a spherical Earth.
func GreatCircleKm(a, b LatLon) float64 {
	lat1, lat2 := a.Lat*deg2rad, b.Lat*deg2rad
	dLon := (b.Lon - a.Lon) * deg2rad
	sinLat1, cosLat1 := math.Sincos(lat1)
	sinLat2, cosLat2 := math.Sincos(lat2)
	sinDLon, cosDLon := math.Sincos(dLon)

	y := math.Hypot(cosLat2*sinDLon, cosLat1*sinLat2-sinLat1*cosLat2*cosDLon)
	x := sinLat1*sinLat2 + cosLat1*cosLat2*cosDLon
	return math.Atan2(y, x) * EarthRadiusKm
}

// Destination returns the location reached by traveling distKm from
// start along the great circle with initial bearing bearingDeg
// (clockwise from north).
func Destination(start LatLon, bearingDeg, distKm float64) LatLon {
	lat1, lon1 := start.Lat*deg2rad, start.Lon*deg2rad
	brng := bearingDeg * deg2rad
	d := distKm / EarthRadiusKm

	sinLat1, cosLat1 := math.Sincos(lat1)
	sinD, cosD := math.Sincos(d)
	sinB, cosB := math.Sincos(brng)

	lat2 := math.Asin(sinLat1*cosD + cosLat1*sinD*cosB)
	lon2 := lon1 + math.Atan2(sinB*sinD*cosLat1, cosD-sinLat1*math.Sin(lat2))
	return LatLon{Lat: lat2 / deg2rad, Lon: NormalizeLon(lon2 / deg2rad)}
}

// NormalizeLon wraps a longitude in degrees into [-180, 180).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// DefaultFootprintPoints is the number of vertices used for footprint
// outlines when none is specified.
const DefaultFootprintPoints = 50

// Footprint returns the outline of the circle of radius radiusKm around
// center as a closed polygon ring with n vertices at equal bearings plus
// a closing vertex. Vertices are (lon, lat) points.
func Footprint(center LatLon, radiusKm float64, n int) geom.Polygon {
	if n < 3 {
		n = DefaultFootprintPoints
	}
	ring := make([]geom.Point, 0, n+1)
	for i := 0; i < n; i++ {
		p := Destination(center, float64(i)*360/float64(n), radiusKm)
		ring = append(ring, geom.Point{X: p.Lon, Y: p.Lat})
	}
	ring = append(ring, ring[0])
	return geom.Polygon{ring}
}

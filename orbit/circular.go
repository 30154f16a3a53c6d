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

package orbit

import (
	"fmt"
	"math"
	"time"

	"github.com/spatialmodel/popcover"
)

// Propagator gives the sub-satellite point at a time after the
// element epoch.
type Propagator interface {
	SubPoint(elapsedSeconds float64) popcover.LatLon
	Epoch() time.Time
}

// Circular models an orbit as a circle at constant angular rate in a
// fixed plane, with the Earth rotating underneath it. It ignores
// eccentricity and perturbations.
type Circular struct {
	el Elements

	// n is the mean motion in rad/s.
	n float64
}

// NewCircular creates a circular-orbit propagator from el.
func NewCircular(el Elements) (*Circular, error) {
	if !(el.MeanMotion > 0) || math.IsInf(el.MeanMotion, 0) {
		return nil, fmt.Errorf("orbit: invalid mean motion %g", el.MeanMotion)
	}
	return &Circular{el: el, n: el.MeanMotion * 2 * math.Pi / 86400}, nil
}

// Epoch returns the epoch of the orbital elements.
func (c *Circular) Epoch() time.Time { return c.el.Epoch }

// SubPoint returns the latitude and longitude directly below the
// satellite elapsedSeconds after the epoch.
func (c *Circular) SubPoint(elapsedSeconds float64) popcover.LatLon {
	const d2r = math.Pi / 180
	inc := c.el.Inclination * d2r
	u := (c.el.ArgPerigee+c.el.MeanAnomaly)*d2r + c.n*elapsedSeconds

	sinU, cosU := math.Sincos(u)
	lat := math.Asin(math.Sin(inc) * sinU)
	ra := math.Atan2(math.Cos(inc)*sinU, cosU) + c.el.RAAN*d2r

	t := c.el.Epoch.Add(time.Duration(elapsedSeconds * float64(time.Second)))
	lon := ra - GMST(t)
	return popcover.LatLon{Lat: lat / d2r, Lon: popcover.NormalizeLon(lon / d2r)}
}

// j2000 is the Julian Date of the J2000.0 epoch.
const j2000 = 2451545.0

// JulianDate converts a UTC time to a Julian Date.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour()) + float64(t.Minute())/60 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600

	if m <= 2 {
		y--
		m += 12
	}
	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5 + h/24
}

// GMST returns the Greenwich Mean Sidereal Time in radians, using the
// IAU-82 model.
func GMST(t time.Time) float64 {
	tu := (JulianDate(t) - j2000) / 36525
	sec := 67310.54841 +
		(876600*3600+8640184.812866)*tu +
		0.093104*tu*tu -
		6.2e-6*tu*tu*tu
	sec = math.Mod(sec, 86400)
	if sec < 0 {
		sec += 86400
	}
	return sec / 86400 * 2 * math.Pi
}

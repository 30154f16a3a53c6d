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
	"context"
	"fmt"
	"math"

	"github.com/spatialmodel/popcover"
)

// Default sweep settings.
const (
	DefaultStepSeconds = 10.
	DefaultRadiusKm    = 1300.
)

// GroundTrack samples the sub-satellite point of p every stepSeconds
// over [0, periodSeconds).
func GroundTrack(ctx context.Context, p Propagator, periodSeconds, stepSeconds float64) ([]popcover.LatLon, error) {
	if !(periodSeconds > 0) || math.IsInf(periodSeconds, 0) {
		return nil, fmt.Errorf("orbit: invalid period %g s", periodSeconds)
	}
	if !(stepSeconds > 0) || math.IsInf(stepSeconds, 0) {
		return nil, fmt.Errorf("orbit: invalid time step %g s", stepSeconds)
	}
	n := int(math.Ceil(periodSeconds / stepSeconds))
	track := make([]popcover.LatLon, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("orbit: ground track: %w", err)
		}
		track = append(track, p.SubPoint(float64(i)*stepSeconds))
	}
	return track, nil
}

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

// Package popcover converts gridded population density into a normalized
// population count raster and answers spatial aggregation queries against it:
// a fast rectangular estimate around a point, and the number of unique people
// covered by a circular footprint swept along a satellite ground track.
package popcover

import "errors"

// Version gives the version number.
const Version = "0.1.0"

// These errors classify failures that callers may want to handle specially.
var (
	// ErrUnsupportedUnits is returned when the density units are not
	// one of the values accepted by Normalize.
	ErrUnsupportedUnits = errors.New("popcover: unsupported density units")

	// ErrDegenerateTotal is returned when the raw population total is zero
	// or not finite, so no scale factor can be computed.
	ErrDegenerateTotal = errors.New("popcover: raw population total is zero or not finite")

	// ErrShapeMismatch is returned when two grids that should line up do not.
	ErrShapeMismatch = errors.New("popcover: grid shapes do not match")

	// ErrNonInvertible is returned for a degenerate affine transform.
	ErrNonInvertible = errors.New("popcover: affine transform is not invertible")

	// ErrEmptyTrack is returned when a coverage sweep has no samples.
	ErrEmptyTrack = errors.New("popcover: ground track has no samples")

	// ErrInvalidRadius is returned for a footprint radius that is not a
	// positive finite number.
	ErrInvalidRadius = errors.New("popcover: invalid footprint radius")

	// ErrInvalidSample is returned when a ground track sample is not a
	// finite latitude/longitude pair.
	ErrInvalidSample = errors.New("popcover: invalid ground track sample")

	// ErrBudgetExceeded is returned when a coverage sweep would perform
	// more distance evaluations than allowed.
	ErrBudgetExceeded = errors.New("popcover: coverage sweep exceeded its evaluation budget")
)

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
	"math"
)

// SweepOptions control a coverage sweep.
type SweepOptions struct {
	// MaxEvaluations limits the number of pixel distance evaluations.
	// Zero means no limit.
	MaxEvaluations int64

	// Set selects the coverage set implementation.
	Set SetKind
}

// SweepResult holds the outcome of a coverage sweep.
type SweepResult struct {
	// Population is the number of unique people covered.
	Population int64

	// Pixels is the number of unique pixels covered.
	Pixels int

	// Evaluations is the number of pixel distance tests performed.
	Evaluations int64
}

// CoverageScore returns the number of unique people within radiusKm
// (great-circle distance) of at least one location in track.
// Each pixel is counted once no matter how many samples cover it.
func (e *Engine) CoverageScore(ctx context.Context, track []LatLon, radiusKm float64) (int64, error) {
	r, err := e.Sweep(ctx, track, radiusKm, SweepOptions{})
	if err != nil {
		return 0, err
	}
	return r.Population, nil
}

// Sweep moves a circular footprint of radius radiusKm along track and
// totals the population of the unique pixels whose centers fall within
// the footprint at any sample. Candidate pixels for each sample are those
// in the same box used by Estimate.
func (e *Engine) Sweep(ctx context.Context, track []LatLon, radiusKm float64, opts SweepOptions) (SweepResult, error) {
	if len(track) == 0 {
		return SweepResult{}, ErrEmptyTrack
	}
	if !(radiusKm > 0) || math.IsInf(radiusKm, 0) {
		return SweepResult{}, fmt.Errorf("%w: %g km", ErrInvalidRadius, radiusKm)
	}

	boxes := make([]Box, len(track))
	var work int64
	for i, s := range track {
		if !finite(s.Lat) || !finite(s.Lon) || math.Abs(s.Lat) > 90 {
			return SweepResult{}, fmt.Errorf("%w: sample %d is (%g, %g)", ErrInvalidSample, i, s.Lat, s.Lon)
		}
		b, ok := e.box(s.Lat, s.Lon, radiusKm)
		if !ok {
			return SweepResult{}, fmt.Errorf("%w: sample %d is (%g, %g)", ErrInvalidSample, i, s.Lat, s.Lon)
		}
		boxes[i] = b
		work += int64(b.Len())
	}
	if opts.MaxEvaluations > 0 && work > opts.MaxEvaluations {
		return SweepResult{}, fmt.Errorf("%w: %d evaluations needed, %d allowed", ErrBudgetExceeded, work, opts.MaxEvaluations)
	}

	size := e.rows * e.cols
	expected := work
	if expected > int64(size) {
		expected = int64(size)
	}
	set := newCoverageSet(opts.Set, size, int(expected))

	for i, s := range track {
		if err := ctx.Err(); err != nil {
			return SweepResult{}, fmt.Errorf("popcover: coverage sweep stopped at sample %d of %d: %w", i, len(track), err)
		}
		b := boxes[i]
		for r := b.Row0; r < b.Row1; r++ {
			for c := b.Col0; c < b.Col1; c++ {
				lon, lat := e.m.PixelCenter(c, r)
				if GreatCircleKm(s, LatLon{Lat: lat, Lon: lon}) <= radiusKm {
					set.add(r*e.cols + c)
				}
			}
		}
	}

	var sum float64
	set.each(func(i int) {
		if v := e.counts[i]; !math.IsNaN(v) {
			sum += v
		}
	})
	return SweepResult{
		Population:  int64(sum),
		Pixels:      set.len(),
		Evaluations: work,
	}, nil
}

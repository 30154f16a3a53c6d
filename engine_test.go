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
	"testing"

	"github.com/ctessum/sparse"
)

// testEngine creates an engine for a grid of 1-degree pixels with every
// pixel holding one person.
func testEngine(t *testing.T, c Affine, rows, cols int, opts ...EngineOption) *Engine {
	t.Helper()
	d := sparse.ZerosDense(rows, cols)
	for i := range d.Elements {
		d.Elements[i] = 1
	}
	e, err := NewEngine(&CountRaster{Data: d, Transform: c, CRS: WGS84}, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestEstimate(t *testing.T) {
	e := testEngine(t, worldTransform, 180, 360)
	tests := []struct {
		name          string
		lat, lon, rad float64
		want          int64
	}{
		{name: "minimum box", lat: 0.5, lon: 0.5, rad: 1, want: 9},
		{name: "zero radius", lat: 0.5, lon: 0.5, rad: 0, want: 9},
		{name: "1000 km", lat: 0.5, lon: 0.5, rad: 1000, want: 19 * 19},
		{name: "north edge", lat: 89.9, lon: 0, rad: 1, want: 2 * 11},
		{name: "west edge", lat: 0.5, lon: -180, rad: 1, want: 3 * 2},
		{name: "whole grid", lat: 0, lon: 0, rad: 1e9, want: 180 * 360},
		{name: "off grid", lat: 0, lon: 200, rad: 1},
		{name: "latitude too large", lat: 95, lon: 0, rad: 1},
		{name: "negative radius", lat: 0, lon: 0, rad: -1},
		{name: "nan", lat: math.NaN(), lon: 0, rad: 1},
		{name: "inf", lat: 0, lon: math.Inf(-1), rad: 1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := e.Estimate(test.lat, test.lon, test.rad); got != test.want {
				t.Errorf("have %d, want %d", got, test.want)
			}
		})
	}
}

func TestEstimateSkipsNaN(t *testing.T) {
	d := sparse.ZerosDense(3, 3)
	copy(d.Elements, []float64{1, 2, 3, 4, math.NaN(), 6, 7, 8, 9.9})
	e, err := NewEngine(&CountRaster{Data: d, Transform: Affine{A: 1, F: 3, E: -1}})
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Estimate(1.5, 1.5, 1); got != 40 {
		t.Errorf("have %d, want 40", got)
	}
}

func TestPixelRadius(t *testing.T) {
	tests := []struct {
		v    float64
		want int
	}{
		{v: 2.5, want: 2},
		{v: 3.5, want: 4},
		{v: 2.6, want: 3},
		{v: 0.4, want: 1},
		{v: 0, want: 1},
		{v: math.NaN(), want: 1},
		{v: 1e12, want: math.MaxInt32},
		{v: math.Inf(1), want: math.MaxInt32},
	}
	for _, test := range tests {
		if got := pixelRadius(test.v); got != test.want {
			t.Errorf("pixelRadius(%g): have %d, want %d", test.v, got, test.want)
		}
	}
}

// A location west of a regional grid still reaches the pixels within
// the radius.
func TestEstimateOffGrid(t *testing.T) {
	e := testEngine(t, Affine{A: 1, F: 10, E: -1}, 10, 10)
	// 1500 km is about 13.5 degrees at this latitude, so the whole grid
	// is inside the box.
	if got := e.Estimate(5.5, -3, 1500); got != 100 {
		t.Errorf("have %d, want 100", got)
	}
}

func TestNewEngineProjected(t *testing.T) {
	d := sparse.ZerosDense(2, 2)
	_, err := NewEngine(&CountRaster{Data: d, Transform: Affine{A: 1000, F: 0, E: -1000}, CRS: "EPSG:3857"})
	if err == nil {
		t.Error("expected an error for a projected grid")
	}
}

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
)

func TestPixelAreaGeographic(t *testing.T) {
	sr, err := ParseCRS("EPSG:4326")
	if err != nil {
		t.Fatal(err)
	}
	a := NewPixelArea(worldTransform, 180, sr)
	if len(a.Rows) != 180 {
		t.Fatalf("have %d rows, want 180", len(a.Rows))
	}
	// Row 89 is centered at 0.5°N.
	want := KmPerDegLon(0.5) * KmPerDegLat(0.5)
	if different(a.At(89), want, testTolerance) {
		t.Errorf("equatorial area: have %g, want %g", a.At(89), want)
	}
	if different(a.At(89), a.At(90), testTolerance) {
		t.Errorf("areas should be symmetric about the equator: %g, %g", a.At(89), a.At(90))
	}
	for r := 1; r < 90; r++ {
		if a.At(r) <= a.At(r-1) {
			t.Errorf("row %d: area %g should be larger than row %d area %g", r, a.At(r), r-1, a.At(r-1))
		}
	}
	// Row 0 is centered at 89.5°N.
	if want := KmPerDegLon(89.5) * KmPerDegLat(89.5); different(a.At(0), want, testTolerance) {
		t.Errorf("polar row area: have %g, want %g", a.At(0), want)
	}
}

func TestPixelAreaProjected(t *testing.T) {
	sr, err := ParseCRS("EPSG:3857")
	if err != nil {
		t.Fatal(err)
	}
	a := NewPixelArea(Affine{A: 1000, F: 5000, E: -1000}, 5, sr)
	if a.Rows != nil {
		t.Errorf("projected grid should have a single area")
	}
	for r := 0; r < 5; r++ {
		if different(a.At(r), 1, testTolerance) {
			t.Errorf("row %d: have %g km², want 1", r, a.At(r))
		}
	}

	sr, err = ParseCRS("+proj=merc +lat_ts=0 +lon_0=0 +x_0=0 +y_0=0 +ellps=WGS84 +to_meter=1000 +no_defs")
	if err != nil {
		t.Fatal(err)
	}
	a = NewPixelArea(Affine{A: 2, F: 10, E: -3}, 5, sr)
	if different(a.Scalar, 6, testTolerance) {
		t.Errorf("km units: have %g km², want 6", a.Scalar)
	}
}

func TestDegreeLengths(t *testing.T) {
	if different(KmPerDegLon(0), 111.32, testTolerance) {
		t.Errorf("equator longitude degree: %g", KmPerDegLon(0))
	}
	if math.Abs(KmPerDegLon(90)) > 1e-10 {
		t.Errorf("pole longitude degree: %g", KmPerDegLon(90))
	}
	if different(KmPerDegLat(0), 111.132, testTolerance) {
		t.Errorf("equator latitude degree: %g", KmPerDegLat(0))
	}
	if different(KmPerDegLat(90), 110.5742, testTolerance) {
		t.Errorf("pole latitude degree: %g", KmPerDegLat(90))
	}
}

func TestIsGeographic(t *testing.T) {
	tests := []struct {
		crs  string
		want bool
	}{
		{crs: "EPSG:4326", want: true},
		{crs: "epsg:4269", want: true},
		{crs: WGS84, want: true},
		{crs: "EPSG:3857", want: false},
		{crs: "+proj=lcc +lat_1=33 +lat_2=45 +lat_0=40 +lon_0=-97 +x_0=0 +y_0=0 +a=6370997 +b=6370997 +to_meter=1 +no_defs", want: false},
	}
	for _, test := range tests {
		sr, err := ParseCRS(test.crs)
		if err != nil {
			t.Fatalf("%s: %v", test.crs, err)
		}
		if IsGeographic(sr) != test.want {
			t.Errorf("%s: have %v, want %v", test.crs, IsGeographic(sr), test.want)
		}
	}
	if _, err := ParseCRS(""); err == nil {
		t.Error("expected an error for an empty CRS")
	}
	if _, err := ParseCRS("not a projection"); err == nil {
		t.Error("expected an error for an invalid CRS")
	}
}

func TestPixelAreaLatitudeRatio(t *testing.T) {
	sr, err := ParseCRS("EPSG:4326")
	if err != nil {
		t.Fatal(err)
	}
	// Two rows of 0.01° pixels centered at 0° and 60°.
	a := NewPixelArea(Affine{A: 0.01, F: 60.005, E: -0.01}, 1, sr)
	b := NewPixelArea(Affine{A: 0.01, F: 0.005, E: -0.01}, 1, sr)
	lonRatio := KmPerDegLon(60) / KmPerDegLon(0)
	if math.Abs(lonRatio-0.5) > 1e-9 {
		t.Errorf("longitude factor ratio: have %g, want 0.5", lonRatio)
	}
	ratio := a.At(0) / b.At(0)
	if want := lonRatio * KmPerDegLat(60) / KmPerDegLat(0); different(ratio, want, 1e-6) {
		t.Errorf("area ratio: have %g, want %g", ratio, want)
	}
	if math.Abs(ratio-0.5) > 0.01 {
		t.Errorf("area ratio %g should be close to 0.5", ratio)
	}
}

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
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

const testASCIIGrid = `ncols        4
nrows        2
xllcorner    -180
yllcorner    -90
cellsize     90
NODATA_value -9999
1 2 3 4
5 -9999 7 8
`

func TestDecodeASCIIGrid(t *testing.T) {
	r, err := decodeASCIIGrid(strings.NewReader(testASCIIGrid))
	if err != nil {
		t.Fatal(err)
	}
	if r.Rows() != 2 || r.Cols() != 4 {
		t.Fatalf("shape: have %dx%d, want 2x4", r.Rows(), r.Cols())
	}
	want := []float64{1, 2, 3, 4, 5, -9999, 7, 8}
	if !reflect.DeepEqual(r.Data.Elements, want) {
		t.Errorf("values: have %v, want %v", r.Data.Elements, want)
	}
	if r.Transform != (Affine{C: -180, A: 90, F: 90, E: -90}) {
		t.Errorf("transform: %+v", r.Transform)
	}
	if r.NoData != -9999 || !r.isNoData(-9999) || r.isNoData(1) {
		t.Errorf("nodata: %g", r.NoData)
	}
}

func TestDecodeASCIIGridCenter(t *testing.T) {
	const g = "ncols 2\nnrows 1\nxllcenter 0.5\nyllcenter 10.5\ncellsize 1\n3 4\n"
	r, err := decodeASCIIGrid(strings.NewReader(g))
	if err != nil {
		t.Fatal(err)
	}
	if r.Transform != (Affine{C: 0, A: 1, F: 11, E: -1}) {
		t.Errorf("transform: %+v", r.Transform)
	}
	if !math.IsNaN(r.NoData) {
		t.Errorf("nodata should be NaN but is %g", r.NoData)
	}
}

func TestDecodeASCIIGridErrors(t *testing.T) {
	for name, g := range map[string]string{
		"short":      "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n",
		"no origin":  "ncols 1\nnrows 1\ncellsize 1\n1\n",
		"no size":    "ncols 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1\n",
		"bad value":  "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\nabc\n",
		"bad header": "ncols x\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := decodeASCIIGrid(strings.NewReader(g)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadDensityASCII(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "density.asc")
	if err := os.WriteFile(f, []byte(testASCIIGrid), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := ReadDensity(f, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.CRS != "" || r.Source != f {
		t.Errorf("crs %q, source %q", r.CRS, r.Source)
	}
	if err := r.resolveCRS("EPSG:4326", logrus.StandardLogger()); err != nil {
		t.Fatal(err)
	}
	if !r.DefaultCRSApplied || r.CRS != WGS84 || !IsGeographic(r.SR) {
		t.Errorf("default CRS not applied: %+v", r)
	}

	if err := os.WriteFile(filepath.Join(dir, "density.prj"), []byte(epsgAliases["EPSG:3857"]+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r, err = ReadDensity(f, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.resolveCRS("EPSG:4326", logrus.StandardLogger()); err != nil {
		t.Fatal(err)
	}
	if r.DefaultCRSApplied || IsGeographic(r.SR) {
		t.Errorf("expected the projected CRS from the .prj file, got %q", r.CRS)
	}
}

func TestDensityNCFRoundTrip(t *testing.T) {
	r := testRaster(3, 2, 1, 2, 3, 4, 5, -1)
	r.NoData = -1
	r.Units = "people/km2"

	f, err := os.Create(filepath.Join(t.TempDir(), "density.ncf"))
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteDensityNCF(f, r, "pop"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := ReadDensity(f.Name(), "missing"); err == nil {
		t.Error("expected an error for a missing variable")
	}
	r2, err := ReadDensity(f.Name(), "pop")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r2.Data.Elements, r.Data.Elements) {
		t.Errorf("values: have %v, want %v", r2.Data.Elements, r.Data.Elements)
	}
	if !reflect.DeepEqual(r2.Data.Shape, []int{3, 2}) {
		t.Errorf("shape: %v", r2.Data.Shape)
	}
	if r2.Transform != r.Transform {
		t.Errorf("transform: have %+v, want %+v", r2.Transform, r.Transform)
	}
	if r2.CRS != r.CRS || r2.Units != r.Units || r2.NoData != -1 {
		t.Errorf("attributes: crs %q, units %q, nodata %g", r2.CRS, r2.Units, r2.NoData)
	}
}

func TestReadDensityUnsupported(t *testing.T) {
	if _, err := ReadDensity("density.tif", ""); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

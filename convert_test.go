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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func writeTestDensity(t *testing.T, dir string, r *Raster) string {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "density.ncf"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := WriteDensityNCF(f, r, ""); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestConversion(t *testing.T) {
	dir := t.TempDir()
	r := testRaster(2, 4,
		1, 1, 1, 1,
		1, 1, 1, 1,
	)
	r.CRS = ""
	density := writeTestDensity(t, dir, r)
	land := writeLandShapefile(t, dir, "", rect(-180, -90, 0, 90))
	out := filepath.Join(dir, "pop.bin")

	c := NewConversion(context.Background(), ConvertConfig{
		DensityFile:      density,
		LandShapefile:    land,
		DefaultCRS:       "EPSG:4326",
		DensityUnits:     UnitsPerPixel,
		TargetPopulation: 100,
		Output:           out,
		Workers:          2,
	}, logrus.StandardLogger())
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}

	want := []float64{25, 25, 0, 0, 25, 25, 0, 0}
	for i, v := range c.Counts.Data.Elements {
		if different(v, want[i], testTolerance) {
			t.Errorf("pixel %d: have %g, want %g", i, v, want[i])
		}
	}
	md := c.Metadata
	if md.LandPixels != 4 || !md.DefaultCRSApplied || md.CRS != WGS84 {
		t.Errorf("metadata: %+v", md)
	}
	if md.TotalRaw != 4 || md.ScaleFactor != 25 || md.TargetPopulation != 100 {
		t.Errorf("totals: %+v", md)
	}
	if md.RasterSource != density || md.LandMaskSource != land {
		t.Errorf("sources: %s, %s", md.RasterSource, md.LandMaskSource)
	}

	counts, md2, err := LoadStore(out)
	if err != nil {
		t.Fatal(err)
	}
	if md2.Rows != 2 || md2.Cols != 4 || counts.Data.Elements[0] != c.Counts.Data.Elements[0] {
		t.Errorf("saved store differs: %+v", md2)
	}
}

func TestConversionPerKm2(t *testing.T) {
	r := testRaster(2, 1, 1, 1)
	c := &Conversion{
		Steps: []ConversionStep{
			SetDensity(r, ""),
			SetLandPolygons(context.Background(), NewLandPolygons(rect(-180, -90, 180, 90)), "world", 1),
			CalculatePixelArea(),
			NormalizeCounts(UnitsPerKm2, 0),
		},
	}
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	if different(c.Counts.TotalAdjusted, DefaultTargetPopulation, 1e-9) {
		t.Errorf("total: have %g, want %g", c.Counts.TotalAdjusted, DefaultTargetPopulation)
	}
	// Both rows have the same area, so they get the same count.
	e := c.Counts.Data.Elements
	if different(e[0], e[1], testTolerance) {
		t.Errorf("have %v", e)
	}
	if c.Metadata.DensityUnits != UnitsPerKm2 || c.Metadata.LandMaskSource != "world" {
		t.Errorf("metadata: %+v", c.Metadata)
	}
}

func TestConversionErrors(t *testing.T) {
	r := testRaster(1, 2, 1, 1)
	c := &Conversion{
		Steps: []ConversionStep{
			SetDensity(r, ""),
			SetLandPolygons(context.Background(), NewLandPolygons(), "ocean", 1),
			NormalizeCounts(UnitsPerPixel, 0),
		},
	}
	if err := c.Run(); !errors.Is(err, ErrDegenerateTotal) {
		t.Errorf("have %v, want %v", err, ErrDegenerateTotal)
	}

	c = &Conversion{Steps: []ConversionStep{NormalizeCounts(UnitsPerPixel, 0)}}
	if err := c.Run(); err == nil {
		t.Error("expected an error without a density grid")
	}

	c = &Conversion{Steps: []ConversionStep{SaveStore(filepath.Join(t.TempDir(), "pop"))}}
	if err := c.Run(); err == nil {
		t.Error("expected an error when saving without counts")
	}

	c = &Conversion{Steps: []ConversionStep{LoadDensity("missing.ncf", "", "")}}
	if err := c.Run(); err == nil {
		t.Error("expected an error for a missing density file")
	}
}

func TestConversionDeterministic(t *testing.T) {
	dir := t.TempDir()
	vals := make([]float64, 6*12)
	for i := range vals {
		vals[i] = float64(i%7) + 0.1*float64(i)
	}
	density := writeTestDensity(t, dir, testRaster(6, 12, vals...))
	land := writeLandShapefile(t, dir, "", rect(-180, -60, -30, 90), rect(20, -90, 170, 30))

	var stores [2]string
	for i := range stores {
		stores[i] = filepath.Join(dir, fmt.Sprintf("run%d", i))
		c := NewConversion(context.Background(), ConvertConfig{
			DensityFile:      density,
			LandShapefile:    land,
			DensityUnits:     UnitsPerKm2,
			TargetPopulation: 1e6,
			Output:           stores[i],
			Workers:          4,
		}, logrus.StandardLogger())
		if err := c.Run(); err != nil {
			t.Fatal(err)
		}
	}
	bin0, meta0 := StorePaths(stores[0])
	bin1, meta1 := StorePaths(stores[1])
	for _, pair := range [][2]string{{bin0, bin1}, {meta0, meta1}} {
		a, err := os.ReadFile(pair[0])
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("%s and %s differ", pair[0], pair[1])
		}
	}
}

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


package popcoverutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/sparse"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/popcover"
	"github.com/spatialmodel/popcover/orbit"
)

// worldTransform maps a 180x360 grid of 1-degree pixels onto the globe.
var worldTransform = popcover.Affine{C: -180, A: 1, F: 90, E: -1}

// writeWorldStore writes a global count store with one person per pixel.
func writeWorldStore(t *testing.T, dir string) string {
	t.Helper()
	d := sparse.ZerosDense(180, 360)
	for i := range d.Elements {
		d.Elements[i] = 1
	}
	c := &popcover.CountRaster{
		Data:             d,
		Transform:        worldTransform,
		CRS:              popcover.WGS84,
		TotalRaw:         180 * 360,
		TotalAdjusted:    180 * 360,
		ScaleFactor:      1,
		TargetPopulation: 180 * 360,
	}
	md := &popcover.Metadata{
		RasterSource:     "world.asc",
		TotalRaw:         c.TotalRaw,
		TotalAdjusted:    c.TotalAdjusted,
		ScaleFactor:      1,
		TargetPopulation: c.TargetPopulation,
		CRS:              c.CRS,
		Resolution:       worldTransform.Resolution(),
		Rows:             180,
		Cols:             360,
		Transform:        worldTransform.Coefficients(),
		DensityUnits:     popcover.UnitsPerPixel,
	}
	base := filepath.Join(dir, "world.bin")
	if err := popcover.WriteStore(base, c, md); err != nil {
		t.Fatal(err)
	}
	return base
}

const testDensityGrid = `ncols        4
nrows        2
xllcorner    -180
yllcorner    -90
cellsize     90
NODATA_value -9999
1 1 1 1
1 1 1 1
`

// writeConvertInputs writes a density grid and a shapefile whose single
// polygon covers the western hemisphere.
func writeConvertInputs(t *testing.T, dir string) (density, land string) {
	t.Helper()
	density = filepath.Join(dir, "density.asc")
	if err := os.WriteFile(density, []byte(testDensityGrid), 0644); err != nil {
		t.Fatal(err)
	}
	land = filepath.Join(dir, "land.shp")
	e, err := shp.NewEncoderFromFields(land, goshp.POLYGON, goshp.StringField("NAME", 20))
	if err != nil {
		t.Fatal(err)
	}
	west := geom.Polygon{{{X: -180, Y: -90}, {X: 0, Y: -90}, {X: 0, Y: 90}, {X: -180, Y: 90}, {X: -180, Y: -90}}}
	if err := e.EncodeFields(west, "west"); err != nil {
		t.Fatal(err)
	}
	e.Close()
	return density, land
}

// run executes the command line args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := InitializeConfig()
	var buf bytes.Buffer
	cfg.Root.SetOutput(&buf)
	cfg.Root.SetArgs(args)
	err := cfg.Root.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if want := "popcover v" + popcover.Version + "\n"; out != want {
		t.Errorf("have %q, want %q", out, want)
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	density, land := writeConvertInputs(t, dir)
	store := filepath.Join(dir, "pop")
	logFile := filepath.Join(dir, "popcover.log")

	out, err := run(t, "convert",
		"--Convert.DensityFile="+density,
		"--Convert.LandShapefile="+land,
		"--Convert.DensityUnits=per_pixel",
		"--Convert.TargetPopulation=100",
		"--Store="+store,
		"--LogFile="+logFile,
	)
	if err != nil {
		t.Fatal(err)
	}
	var md popcover.Metadata
	if err := json.Unmarshal([]byte(out), &md); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if md.TotalAdjusted != 100 || md.LandPixels != 4 || md.Rows != 2 || md.Cols != 4 {
		t.Errorf("metadata: %+v", md)
	}
	if md.RasterSource != density || md.LandMaskSource != land || !md.DefaultCRSApplied {
		t.Errorf("sources: %+v", md)
	}

	c, _, err := popcover.LoadStore(store)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{25, 25, 0, 0, 25, 25, 0, 0}
	for i, v := range c.Data.Elements {
		if v != want[i] {
			t.Errorf("pixel %d: have %g, want %g", i, v, want[i])
		}
	}

	b, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "saved count store") {
		t.Errorf("log file is missing messages: %s", b)
	}
}

func TestConvertCommandErrors(t *testing.T) {
	dir := t.TempDir()
	density, land := writeConvertInputs(t, dir)
	tests := []struct {
		name string
		args []string
	}{
		{name: "no density", args: []string{"--Convert.LandShapefile=" + land}},
		{name: "no land", args: []string{"--Convert.DensityFile=" + density}},
		{name: "units", args: []string{"--Convert.DensityFile=" + density, "--Convert.LandShapefile=" + land, "--Convert.DensityUnits=per_acre"}},
		{name: "target", args: []string{"--Convert.DensityFile=" + density, "--Convert.LandShapefile=" + land, "--Convert.TargetPopulation=-1"}},
		{name: "workers", args: []string{"--Convert.DensityFile=" + density, "--Convert.LandShapefile=" + land, "--Convert.Workers=-1"}},
		{name: "store dir", args: []string{"--Convert.DensityFile=" + density, "--Convert.LandShapefile=" + land, "--Store=" + filepath.Join(dir, "missing", "pop.bin")}},
		{name: "log level", args: []string{"--LogLevel=loud"}},
	}
	for _, test := range tests {
		args := append([]string{"convert", "--Store=" + filepath.Join(dir, "pop.bin")}, test.args...)
		if _, err := run(t, args...); err == nil {
			t.Errorf("%s: expected an error", test.name)
		}
	}
}

func TestEstimateCommand(t *testing.T) {
	store := writeWorldStore(t, t.TempDir())
	out, err := run(t, "estimate", "--Store="+store, "--Query.Lat=0.5", "--Query.Lon=0.5", "--Query.RadiusKm=1000")
	if err != nil {
		t.Fatal(err)
	}
	var r estimateResponse
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	want := estimateResponse{Latitude: 0.5, Longitude: 0.5, RadiusKm: 1000, EstimatedPopulation: 19 * 19}
	if r != want {
		t.Errorf("have %+v, want %+v", r, want)
	}

	os.Setenv("POPCOVER_QUERY_RADIUSKM", "1")
	defer os.Unsetenv("POPCOVER_QUERY_RADIUSKM")
	out, err = run(t, "estimate", "--Store="+store, "--Query.Lat=0.5", "--Query.Lon=0.5")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if r.RadiusKm != 1 || r.EstimatedPopulation != 9 {
		t.Errorf("environment radius: %+v", r)
	}

	if _, err := run(t, "estimate", "--Store="+filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing store")
	}
}

func TestCoverageCommand(t *testing.T) {
	dir := t.TempDir()
	store := writeWorldStore(t, dir)
	out, err := run(t, "coverage", "--Store="+store, "--Sweep.StepSeconds=60")
	if err != nil {
		t.Fatal(err)
	}
	var r coverageResponse
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if r.CoverageScore <= 0 || r.CoverageScore > 180*360 {
		t.Errorf("coverage score %d out of range", r.CoverageScore)
	}

	// The same satellite read from a file gives the same score.
	tle := filepath.Join(dir, "iss.tle")
	if err := os.WriteFile(tle, []byte(orbit.ISS), 0644); err != nil {
		t.Fatal(err)
	}
	out2, err := run(t, "coverage", "--Store="+store, "--Sweep.StepSeconds=60", "--Sweep.TLEFile="+tle)
	if err != nil {
		t.Fatal(err)
	}
	if out2 != out {
		t.Errorf("have %s, want %s", out2, out)
	}

	for _, args := range [][]string{
		{"--Sweep.MaxEvaluations=10"},
		{"--Sweep.RadiusKm=0"},
		{"--Sweep.StepSeconds=-1"},
		{"--Sweep.Timeout=soon"},
		{"--Sweep.TLEFile=" + filepath.Join(dir, "missing.tle")},
	} {
		if _, err := run(t, append([]string{"coverage", "--Store=" + store}, args...)...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	store := writeWorldStore(t, dir)
	f := filepath.Join(dir, "popcover.toml")
	conf := "Store = \"" + filepath.ToSlash(store) + "\"\n\n[Query]\nLat = 0.5\nLon = 0.5\nRadiusKm = 1\n"
	if err := os.WriteFile(f, []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "estimate", "--config="+f)
	if err != nil {
		t.Fatal(err)
	}
	var r estimateResponse
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if r.EstimatedPopulation != 9 {
		t.Errorf("have %d, want 9", r.EstimatedPopulation)
	}

	if _, err := run(t, "estimate", "--config="+filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected an error for a missing configuration file")
	}
}

func TestCheckStoreFile(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("POPCOVER_TEST_DIR", dir)
	defer os.Unsetenv("POPCOVER_TEST_DIR")

	f, err := checkStoreFile("${POPCOVER_TEST_DIR}/pop", true)
	if err != nil {
		t.Fatal(err)
	}
	if want := dir + "/pop.bin"; f != want {
		t.Errorf("have %s, want %s", f, want)
	}
	if _, err := checkStoreFile("", false); err == nil {
		t.Error("expected an error for an empty store")
	}
	if _, err := checkStoreFile(filepath.Join(dir, "missing", "pop.bin"), true); err == nil {
		t.Error("expected an error for a missing directory")
	}
	if _, err := checkStoreFile(filepath.Join(dir, "missing", "pop.bin"), false); err != nil {
		t.Errorf("input stores are not checked: %v", err)
	}
	if _, err := checkStoreFile("file://"+filepath.ToSlash(dir)+"/pop.bin", true); err != nil {
		t.Error(err)
	}
}

func TestCheckDensityUnits(t *testing.T) {
	for _, u := range []string{popcover.UnitsPerKm2, popcover.UnitsPerPixel} {
		if _, err := checkDensityUnits(u); err != nil {
			t.Errorf("%s: %v", u, err)
		}
	}
	if _, err := checkDensityUnits("per_acre"); err == nil {
		t.Error("expected an error")
	}
}

func TestDuration(t *testing.T) {
	cfg := InitializeConfig()
	tests := []struct {
		v    interface{}
		want time.Duration
	}{
		{v: "90s", want: 90 * time.Second},
		{v: "2m", want: 2 * time.Minute},
		{v: 1.5, want: 1500 * time.Millisecond},
		{v: 0, want: 0},
	}
	for _, test := range tests {
		cfg.Set("Sweep.Timeout", test.v)
		d, err := cfg.duration("Sweep.Timeout")
		if err != nil {
			t.Fatalf("%v: %v", test.v, err)
		}
		if d != test.want {
			t.Errorf("%v: have %v, want %v", test.v, d, test.want)
		}
	}
	cfg.Set("Sweep.Timeout", "soon")
	if _, err := cfg.duration("Sweep.Timeout"); err == nil {
		t.Error("expected an error")
	}
}

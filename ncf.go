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
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// DefaultDensityVariable is the name of the netCDF variable that holds
// population density when none is specified.
const DefaultDensityVariable = "density"

// readDensityNCF reads a two dimensional density variable from a netCDF
// file. The georeferencing is read from the global "transform" (six
// coefficients in GDAL order) and "crs" attributes, and the missing value
// from the variable's "_FillValue" or "nodata" attribute.
func readDensityNCF(filename, variable string) (*Raster, error) {
	if variable == "" {
		variable = DefaultDensityVariable
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("popcover: opening density file: %w", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("popcover: reading netcdf header of %s: %w", filename, err)
	}

	dims := ff.Header.Lengths(variable)
	if len(dims) == 0 {
		return nil, fmt.Errorf("popcover: variable %s not in density file %s", variable, filename)
	}
	if len(dims) != 2 {
		return nil, fmt.Errorf("popcover: density variable %s has %d dimensions; it should have 2", variable, len(dims))
	}

	r := ff.Reader(variable, nil, nil)
	buf := r.Zero(-1)
	if _, err = r.Read(buf); err != nil {
		return nil, fmt.Errorf("popcover: reading netcdf variable %s: %w", variable, err)
	}
	data := sparse.ZerosDense(dims...)
	switch v := buf.(type) {
	case []float32:
		for i, val := range v {
			data.Elements[i] = float64(val)
		}
	case []float64:
		copy(data.Elements, v)
	default:
		return nil, fmt.Errorf("popcover: density variable %s has unsupported type %T", variable, buf)
	}

	gt, ok := attrFloats(ff.Header.GetAttribute("", "transform"))
	if !ok {
		return nil, fmt.Errorf("popcover: density file %s is missing the 'transform' attribute", filename)
	}
	t, err := NewAffine(gt)
	if err != nil {
		return nil, err
	}

	o := &Raster{
		Data:      data,
		Transform: t,
		NoData:    math.NaN(),
	}
	if crs, ok := ff.Header.GetAttribute("", "crs").(string); ok {
		o.CRS = crs
	}
	if units, ok := ff.Header.GetAttribute(variable, "units").(string); ok {
		o.Units = units
	}
	for _, name := range []string{"_FillValue", "nodata"} {
		if nd, ok := attrFloats(ff.Header.GetAttribute(variable, name)); ok && len(nd) > 0 {
			o.NoData = nd[0]
			break
		}
	}
	return o, nil
}

// WriteDensityNCF writes r to f as a netCDF file, in the layout read by
// ReadDensity.
func WriteDensityNCF(f *os.File, r *Raster, variable string) error {
	if variable == "" {
		variable = DefaultDensityVariable
	}
	dims := []string{"y", "x"}
	h := cdf.NewHeader(dims, []int{r.Rows(), r.Cols()})
	h.AddVariable(variable, dims, []float64{0})
	if r.Units != "" {
		h.AddAttribute(variable, "units", r.Units)
	}
	if !math.IsNaN(r.NoData) {
		h.AddAttribute(variable, "_FillValue", []float64{r.NoData})
	}
	h.AddAttribute("", "transform", r.Transform.Coefficients())
	if r.CRS != "" {
		h.AddAttribute("", "crs", r.CRS)
	}
	h.Define()

	ff, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("popcover: creating netcdf file: %w", err)
	}
	end := ff.Header.Lengths(variable)
	w := ff.Writer(variable, make([]int, len(end)), end)
	if _, err = w.Write(r.Data.Elements); err != nil {
		return fmt.Errorf("popcover: writing netcdf variable %s: %w", variable, err)
	}
	return nil
}

// attrFloats converts a numeric netCDF attribute value to []float64.
func attrFloats(v interface{}) ([]float64, bool) {
	switch vv := v.(type) {
	case []float64:
		return vv, true
	case []float32:
		o := make([]float64, len(vv))
		for i, x := range vv {
			o[i] = float64(x)
		}
		return o, true
	case []int32:
		o := make([]float64, len(vv))
		for i, x := range vv {
			o[i] = float64(x)
		}
		return o, true
	case []int16:
		o := make([]float64, len(vv))
		for i, x := range vv {
			o[i] = float64(x)
		}
		return o, true
	default:
		return nil, false
	}
}

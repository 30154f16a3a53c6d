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
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// readASCIIGrid reads an Esri ASCII grid. The spatial reference is read
// from a sibling .prj file if one exists.
func readASCIIGrid(filename string) (*Raster, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("popcover: opening density file: %w", err)
	}
	defer f.Close()
	r, err := decodeASCIIGrid(f)
	if err != nil {
		return nil, fmt.Errorf("popcover: reading ascii grid %s: %w", filename, err)
	}
	prj := strings.TrimSuffix(filename, ".asc") + ".prj"
	if b, err := os.ReadFile(prj); err == nil {
		r.CRS = strings.TrimSpace(string(b))
	}
	return r, nil
}

// decodeASCIIGrid parses the header and cell values of an Esri ASCII grid.
func decodeASCIIGrid(rd io.Reader) (*Raster, error) {
	s := bufio.NewScanner(rd)
	s.Buffer(make([]byte, 0, 1<<20), 1<<26)
	s.Split(bufio.ScanWords)

	next := func() (string, error) {
		if !s.Scan() {
			if err := s.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return s.Text(), nil
	}

	hdr := make(map[string]float64)
	var first string
	for {
		key, err := next()
		if err != nil {
			return nil, err
		}
		k := strings.ToLower(key)
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			first = key
			break
		}
		val, err := next()
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", key, err)
		}
		hdr[k] = v
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := hdr[k]; !ok {
			return nil, fmt.Errorf("missing header field %s", k)
		}
	}
	cols, rows, cell := int(hdr["ncols"]), int(hdr["nrows"]), hdr["cellsize"]
	if cols <= 0 || rows <= 0 || cell <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%d with cell size %g", rows, cols, cell)
	}

	var x0, y0 float64
	switch {
	case hasKeys(hdr, "xllcorner", "yllcorner"):
		x0, y0 = hdr["xllcorner"], hdr["yllcorner"]
	case hasKeys(hdr, "xllcenter", "yllcenter"):
		x0, y0 = hdr["xllcenter"]-cell/2, hdr["yllcenter"]-cell/2
	default:
		return nil, fmt.Errorf("missing lower-left corner or center coordinates")
	}

	o := &Raster{
		Data:      sparse.ZerosDense(rows, cols),
		Transform: Affine{C: x0, A: cell, F: y0 + float64(rows)*cell, E: -cell},
		NoData:    math.NaN(),
	}
	if nd, ok := hdr["nodata_value"]; ok {
		o.NoData = nd
	}

	tok := first
	for i := range o.Data.Elements {
		if i > 0 {
			var err error
			if tok, err = next(); err != nil {
				return nil, fmt.Errorf("reading cell %d of %d: %w", i, len(o.Data.Elements), err)
			}
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		o.Data.Elements[i] = v
	}
	return o, nil
}

func hasKeys(m map[string]float64, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}

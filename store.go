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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"
)

// StorePaths returns the locations of the count array and the metadata
// sidecar for a count store named base. A ".bin" suffix on base is
// optional.
func StorePaths(base string) (bin, meta string) {
	base = strings.TrimSuffix(base, ".bin")
	return base + ".bin", base + "_meta.json"
}

// WriteCounts writes data to w as little-endian float64 values.
func WriteCounts(w io.Writer, data []float64) error {
	bw := bufio.NewWriter(w)
	var b [8]byte
	for _, v := range data {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		if _, err := bw.Write(b[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadCounts reads n little-endian float64 values from r.
func ReadCounts(r io.Reader, n int) ([]float64, error) {
	br := bufio.NewReader(r)
	o := make([]float64, n)
	var b [8]byte
	for i := range o {
		if _, err := io.ReadFull(br, b[:]); err != nil {
			return nil, fmt.Errorf("reading count %d of %d: %w", i, n, err)
		}
		o[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("count array is longer than %d values", n)
	}
	return o, nil
}

// WriteStore saves counts and md to the count store named base.
// Both files are written to temporary locations and moved into place only
// after they are complete, so a failed write leaves no partial store.
func WriteStore(base string, counts *CountRaster, md *Metadata) error {
	bin, meta := StorePaths(base)
	dir := filepath.Dir(bin)

	tmpBin, err := writeTemp(dir, filepath.Base(bin), func(w io.Writer) error {
		return WriteCounts(w, counts.Data.Elements)
	})
	if err != nil {
		return fmt.Errorf("popcover: writing count array: %w", err)
	}
	tmpMeta, err := writeTemp(dir, filepath.Base(meta), md.encode)
	if err != nil {
		os.Remove(tmpBin)
		return fmt.Errorf("popcover: writing metadata: %w", err)
	}
	if err := os.Rename(tmpBin, bin); err != nil {
		os.Remove(tmpBin)
		os.Remove(tmpMeta)
		return fmt.Errorf("popcover: saving count array: %w", err)
	}
	if err := os.Rename(tmpMeta, meta); err != nil {
		os.Remove(bin)
		os.Remove(tmpMeta)
		return fmt.Errorf("popcover: saving metadata: %w", err)
	}
	return nil
}

func writeTemp(dir, name string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", err
	}
	err = f.Chmod(0644)
	if err == nil {
		err = write(f)
	}
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// LoadStore reads the count store named base.
func LoadStore(base string) (*CountRaster, *Metadata, error) {
	bin, meta := StorePaths(base)
	mf, err := os.Open(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("popcover: opening metadata: %w", err)
	}
	defer mf.Close()
	md, err := decodeMetadata(mf)
	if err != nil {
		return nil, nil, err
	}
	t, err := NewAffine(md.Transform)
	if err != nil {
		return nil, nil, err
	}

	bf, err := os.Open(bin)
	if err != nil {
		return nil, nil, fmt.Errorf("popcover: opening count array: %w", err)
	}
	defer bf.Close()
	data, err := ReadCounts(bf, md.Rows*md.Cols)
	if err != nil {
		return nil, nil, fmt.Errorf("popcover: %s: %w", bin, err)
	}

	arr := &sparse.DenseArray{Elements: data, Shape: []int{md.Rows, md.Cols}}
	arr.Fix()
	c := &CountRaster{
		Data:             arr,
		Transform:        t,
		CRS:              md.CRS,
		TotalRaw:         md.TotalRaw,
		TotalAdjusted:    md.TotalAdjusted,
		ScaleFactor:      md.ScaleFactor,
		TargetPopulation: md.TargetPopulation,
	}
	return c, md, nil
}

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
	"encoding/json"
	"fmt"
	"io"
)

// Metadata describes how a count store was produced.
type Metadata struct {
	RasterSource      string     `json:"raster_source"`
	LandMaskSource    string     `json:"land_mask_source"`
	TotalRaw          float64    `json:"total_raw"`
	TotalAdjusted     float64    `json:"total_adjusted"`
	ScaleFactor       float64    `json:"scale_factor"`
	TargetPopulation  float64    `json:"target_population"`
	CRS               string     `json:"crs"`
	Resolution        [2]float64 `json:"resolution"`
	DefaultCRSApplied bool       `json:"default_crs_applied"`

	Rows         int       `json:"rows"`
	Cols         int       `json:"cols"`
	Transform    []float64 `json:"transform"`
	DensityUnits string    `json:"density_units"`
	LandPixels   int       `json:"land_pixels"`
	CreatedWith  string    `json:"created_with"`
}

// newMetadata summarizes a finished conversion.
func newMetadata(density *Raster, mask *LandMask, counts *CountRaster, units string) *Metadata {
	md := &Metadata{
		RasterSource:      density.Source,
		TotalRaw:          counts.TotalRaw,
		TotalAdjusted:     counts.TotalAdjusted,
		ScaleFactor:       counts.ScaleFactor,
		TargetPopulation:  counts.TargetPopulation,
		CRS:               counts.CRS,
		Resolution:        counts.Transform.Resolution(),
		DefaultCRSApplied: density.DefaultCRSApplied,
		Rows:              counts.Rows(),
		Cols:              counts.Cols(),
		Transform:         counts.Transform.Coefficients(),
		DensityUnits:      units,
		CreatedWith:       "popcover " + Version,
	}
	if mask != nil {
		md.LandMaskSource = mask.Source
		md.LandPixels = mask.Count()
		md.DefaultCRSApplied = md.DefaultCRSApplied || mask.DefaultCRSApplied
	}
	return md
}

func (md *Metadata) encode(w io.Writer) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(md); err != nil {
		return fmt.Errorf("popcover: encoding metadata: %w", err)
	}
	return nil
}

func decodeMetadata(r io.Reader) (*Metadata, error) {
	md := new(Metadata)
	if err := json.NewDecoder(r).Decode(md); err != nil {
		return nil, fmt.Errorf("popcover: decoding metadata: %w", err)
	}
	if md.Rows <= 0 || md.Cols <= 0 {
		return nil, fmt.Errorf("popcover: metadata has invalid grid shape %dx%d", md.Rows, md.Cols)
	}
	return md, nil
}

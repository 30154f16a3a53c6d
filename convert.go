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
	"runtime"

	"github.com/sirupsen/logrus"
)

// ConversionStep performs one stage of converting a density grid into a
// count store.
type ConversionStep func(c *Conversion) error

// Conversion holds the state of a density-to-count conversion.
// Steps are run in order by Run and the first error stops the run.
type Conversion struct {
	// Steps are the stages to run.
	Steps []ConversionStep

	// Log receives progress messages. If nil, the standard logger is used.
	Log logrus.FieldLogger

	Density  *Raster
	Mask     *LandMask
	Area     *PixelArea
	Counts   *CountRaster
	Metadata *Metadata

	// Units holds the density units used by the normalization step.
	Units string
}

// ConvertConfig collects the settings of a standard conversion.
type ConvertConfig struct {
	DensityFile      string
	DensityVariable  string
	LandShapefile    string
	DefaultCRS       string
	DensityUnits     string
	TargetPopulation float64

	// Output is the name of the count store to write. If it is empty
	// the store is not saved.
	Output string

	// Workers is the number of goroutines used to rasterize the land mask.
	// If zero, GOMAXPROCS is used.
	Workers int
}

// NewConversion returns a Conversion that loads the density grid,
// masks it to land, calculates pixel areas, normalizes the counts and,
// if cfg.Output is set, saves the result.
func NewConversion(ctx context.Context, cfg ConvertConfig, log logrus.FieldLogger) *Conversion {
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	c := &Conversion{
		Log: log,
		Steps: []ConversionStep{
			LoadDensity(cfg.DensityFile, cfg.DensityVariable, cfg.DefaultCRS),
			ApplyLandMask(ctx, cfg.LandShapefile, workers),
			CalculatePixelArea(),
			NormalizeCounts(cfg.DensityUnits, cfg.TargetPopulation),
		},
	}
	if cfg.Output != "" {
		c.Steps = append(c.Steps, SaveStore(cfg.Output))
	}
	return c
}

// Run runs the conversion steps in order.
func (c *Conversion) Run() error {
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	for _, s := range c.Steps {
		if err := s(c); err != nil {
			return err
		}
	}
	return nil
}

// LoadDensity returns a step that reads the density grid from filename,
// substituting defaultCRS if the grid has no spatial reference.
func LoadDensity(filename, variable, defaultCRS string) ConversionStep {
	return func(c *Conversion) error {
		r, err := ReadDensity(filename, variable)
		if err != nil {
			return err
		}
		return SetDensity(r, defaultCRS)(c)
	}
}

// SetDensity returns a step that uses r as the density grid,
// substituting defaultCRS if r has no spatial reference.
func SetDensity(r *Raster, defaultCRS string) ConversionStep {
	return func(c *Conversion) error {
		if defaultCRS == "" {
			defaultCRS = WGS84
		}
		if err := r.resolveCRS(defaultCRS, c.Log); err != nil {
			return err
		}
		c.Density = r
		c.Log.WithFields(logrus.Fields{
			"source": r.Source,
			"rows":   r.Rows(),
			"cols":   r.Cols(),
		}).Info("loaded density grid")
		return nil
	}
}

// ApplyLandMask returns a step that reads land polygons from shapefile
// and marks the density grid pixels whose centers are on land.
func ApplyLandMask(ctx context.Context, shapefile string, workers int) ConversionStep {
	return func(c *Conversion) error {
		if c.Density == nil {
			return fmt.Errorf("popcover: land mask requires a density grid")
		}
		lp, err := ReadLandPolygons(shapefile, c.Density.SR, c.Log)
		if err != nil {
			return err
		}
		return SetLandPolygons(ctx, lp, shapefile, workers)(c)
	}
}

// SetLandPolygons returns a step that rasterizes lp onto the density grid.
// source is recorded as the origin of the mask.
func SetLandPolygons(ctx context.Context, lp *LandPolygons, source string, workers int) ConversionStep {
	return func(c *Conversion) error {
		if c.Density == nil {
			return fmt.Errorf("popcover: land mask requires a density grid")
		}
		m, err := c.Density.Mapper()
		if err != nil {
			return err
		}
		mask, err := lp.Rasterize(ctx, m, workers)
		if err != nil {
			return err
		}
		mask.Source = source
		c.Mask = mask
		c.Log.WithFields(logrus.Fields{
			"polygons":    lp.Len(),
			"land_pixels": mask.Count(),
		}).Info("created land mask")
		return nil
	}
}

// CalculatePixelArea returns a step that calculates the ground area of
// the density grid pixels.
func CalculatePixelArea() ConversionStep {
	return func(c *Conversion) error {
		if c.Density == nil {
			return fmt.Errorf("popcover: pixel area requires a density grid")
		}
		c.Area = NewPixelArea(c.Density.Transform, c.Density.Rows(), c.Density.SR)
		return nil
	}
}

// relTol is the relative tolerance allowed between the adjusted total
// and the target population.
const relTol = 1e-6

// NormalizeCounts returns a step that converts the masked density grid
// to counts scaled to target. A target of zero means
// DefaultTargetPopulation.
func NormalizeCounts(units string, target float64) ConversionStep {
	return func(c *Conversion) error {
		if target == 0 {
			target = DefaultTargetPopulation
		}
		if c.Density == nil {
			return fmt.Errorf("popcover: normalization requires a density grid")
		}
		if c.Area == nil {
			c.Area = NewPixelArea(c.Density.Transform, c.Density.Rows(), c.Density.SR)
		}
		counts, err := Normalize(c.Density, c.Mask, c.Area, units, target)
		if err != nil {
			return err
		}
		if math.Abs(counts.TotalAdjusted-target) > relTol*target {
			return fmt.Errorf("popcover: adjusted total %g differs from target %g", counts.TotalAdjusted, target)
		}
		c.Counts = counts
		c.Units = units
		c.Metadata = newMetadata(c.Density, c.Mask, counts, units)
		c.Log.WithFields(logrus.Fields{
			"total_raw":      counts.TotalRaw,
			"total_adjusted": counts.TotalAdjusted,
			"scale_factor":   counts.ScaleFactor,
		}).Info("normalized population counts")
		return nil
	}
}

// SaveStore returns a step that writes the count store named base.
func SaveStore(base string) ConversionStep {
	return func(c *Conversion) error {
		if c.Counts == nil || c.Metadata == nil {
			return fmt.Errorf("popcover: nothing to save; counts have not been normalized")
		}
		if err := WriteStore(base, c.Counts, c.Metadata); err != nil {
			return err
		}
		bin, meta := StorePaths(base)
		c.Log.WithFields(logrus.Fields{
			"counts":   bin,
			"metadata": meta,
		}).Info("saved count store")
		return nil
	}
}

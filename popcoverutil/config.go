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
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spatialmodel/popcover"
	"github.com/spatialmodel/popcover/cloud"
)

// checkStoreFile makes sure that the count store location is specified and,
// for a store that will be written, that its directory or bucket exists.
// Environment variables are expanded, and a .bin extension is added if it
// is missing.
func checkStoreFile(f string, output bool) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`popcover: you need to specify a Store configuration variable (for example: Store="population_count.bin")`)
	}
	f = os.ExpandEnv(f)
	if !strings.HasSuffix(f, ".bin") {
		f += ".bin"
	}
	if !output {
		return f, nil
	}
	if cloud.IsBlob(f) {
		u, err := url.Parse(f)
		if err != nil {
			return f, err
		}
		if err = cloud.CheckBucket(context.TODO(), u.Scheme+"://"+u.Host); err != nil {
			return f, fmt.Errorf("popcover: error when checking Store location: %v", err)
		}
		return f, nil
	}
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return f, fmt.Errorf("popcover: the Store directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkInputFile makes sure that a required input file is specified and
// expands any environment variables in it.
func checkInputFile(name, f string) (string, error) {
	f = os.ExpandEnv(f)
	if f == "" {
		return "", fmt.Errorf("popcover: the %s configuration variable must be set", name)
	}
	return f, nil
}

// checkDensityUnits expands any environment variables in the density
// units and ensures that an acceptable value was specified.
func checkDensityUnits(u string) (string, error) {
	u = os.ExpandEnv(u)
	if err := popcover.CheckUnits(u); err != nil {
		return u, fmt.Errorf("the Convert.DensityUnits variable needs to be set to either %s or %s, "+
			"but is currently set to `%s`", popcover.UnitsPerKm2, popcover.UnitsPerPixel, u)
	}
	return u, nil
}

// checkPositive ensures that the named option is a positive number.
func checkPositive(name string, v float64) error {
	if !(v > 0) {
		return fmt.Errorf("popcover: %s must be positive but is %g", name, v)
	}
	return nil
}

// convertConfig creates a conversion configuration from cfg.
func convertConfig(cfg *Cfg) (popcover.ConvertConfig, error) {
	var c popcover.ConvertConfig
	var err error
	if c.DensityFile, err = checkInputFile("Convert.DensityFile", cfg.GetString("Convert.DensityFile")); err != nil {
		return c, err
	}
	if c.LandShapefile, err = checkInputFile("Convert.LandShapefile", cfg.GetString("Convert.LandShapefile")); err != nil {
		return c, err
	}
	if c.DensityUnits, err = checkDensityUnits(cfg.GetString("Convert.DensityUnits")); err != nil {
		return c, err
	}
	if c.Output, err = checkStoreFile(cfg.GetString("Store"), true); err != nil {
		return c, err
	}
	c.TargetPopulation = cfg.GetFloat64("Convert.TargetPopulation")
	if err = checkPositive("Convert.TargetPopulation", c.TargetPopulation); err != nil {
		return c, err
	}
	c.DensityVariable = os.ExpandEnv(cfg.GetString("Convert.DensityVariable"))
	c.DefaultCRS = os.ExpandEnv(cfg.GetString("Convert.DefaultCRS"))
	c.Workers = cfg.GetInt("Convert.Workers")
	if c.Workers < 0 {
		return c, fmt.Errorf("popcover: Convert.Workers must not be negative but is %d", c.Workers)
	}
	return c, nil
}

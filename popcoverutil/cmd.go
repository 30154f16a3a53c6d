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

// Package popcoverutil holds the command-line interface and HTTP server
// for popcover.
package popcoverutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/popcover"
	"github.com/spatialmodel/popcover/orbit"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
type Cfg struct {
	*viper.Viper

	Root, versionCmd, convertCmd, estimateCmd, coverageCmd, serveCmd *cobra.Command

	options []option
}

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

// InitializeConfig creates the command tree and its configuration
// options. Configuration can be set with command-line flags, environment
// variables in the format 'POPCOVER_var', or a configuration file.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Root = &cobra.Command{
		Use:   "popcover",
		Short: "Population coverage of gridded data and satellite footprints.",
		Long: `popcover converts gridded population density into a normalized population
count raster and answers queries against it: the approximate population near a
point, and the number of unique people covered by a satellite footprint over one
orbit.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'POPCOVER_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return cfg.setConfig() },
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of popcover.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("popcover v%s\n", popcover.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.convertCmd = &cobra.Command{
		Use:   "convert",
		Short: "Create a population count store from a density grid.",
		Long: `convert reads a population density grid and a land boundary shapefile,
masks the grid to land, converts density to people per pixel, scales the result to
the target population, and saves it as a count array with a JSON metadata sidecar.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := cfg.logger()
			if err != nil {
				return err
			}
			defer closeLog()
			md, err := Convert(context.Background(), cfg, log)
			if err != nil {
				return err
			}
			return writeJSON(cmd, md)
		},
		DisableAutoGenTag: true,
	}

	cfg.estimateCmd = &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the population near a location.",
		Long: `estimate prints the approximate number of people within Query.RadiusKm of
(Query.Lat, Query.Lon), summed over a rectangular box of grid cells. Invalid or
out-of-range locations give an estimate of zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := cfg.loadEngine(context.Background())
			if err != nil {
				return err
			}
			lat, lon := cfg.GetFloat64("Query.Lat"), cfg.GetFloat64("Query.Lon")
			r := cfg.GetFloat64("Query.RadiusKm")
			return writeJSON(cmd, estimateResponse{
				Latitude:            lat,
				Longitude:           lon,
				RadiusKm:            r,
				EstimatedPopulation: e.Estimate(lat, lon, r),
			})
		},
		DisableAutoGenTag: true,
	}

	cfg.coverageCmd = &cobra.Command{
		Use:   "coverage",
		Short: "Calculate the population covered over one orbit.",
		Long: `coverage propagates the satellite described by Sweep.TLEFile over one
orbital period, sampling its ground track every Sweep.StepSeconds, and prints the
number of unique people within Sweep.RadiusKm of any sample.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := cfg.logger()
			if err != nil {
				return err
			}
			defer closeLog()
			e, _, err := cfg.loadEngine(context.Background())
			if err != nil {
				return err
			}
			sat, err := cfg.satellite(log)
			if err != nil {
				return err
			}
			opts, err := cfg.sweepOptions()
			if err != nil {
				return err
			}
			score, err := opts.coverage(context.Background(), e, sat)
			if err != nil {
				return err
			}
			return writeJSON(cmd, coverageResponse{CoverageScore: score})
		},
		DisableAutoGenTag: true,
	}

	cfg.serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query server.",
		Long: `serve loads the count store and starts an HTTP server at HTTP.Address with
the endpoints /api/population-estimate, /api/coverage-score, /api/position and
/metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := cfg.logger()
			if err != nil {
				return err
			}
			defer closeLog()
			s, err := cfg.NewServer(context.Background(), log)
			if err != nil {
				return err
			}
			return s.ListenAndServe(cfg.GetString("HTTP.Address"))
		},
		DisableAutoGenTag: true,
	}

	cfg.Root.AddCommand(cfg.versionCmd, cfg.convertCmd, cfg.estimateCmd, cfg.coverageCmd, cfg.serveCmd)

	sweepSets := []*pflag.FlagSet{cfg.coverageCmd.Flags(), cfg.serveCmd.Flags()}

	cfg.options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to a file where log messages are
              copied in addition to standard error. The file is rotated when it
              grows large. If empty, messages are only written to standard error.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the lowest severity of log messages that are written:
              one of debug, info, warn, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{cfg.Root.PersistentFlags()},
		},
		{
			name: "Convert.DensityFile",
			usage: `
              Convert.DensityFile is the path to the population density grid:
              a netCDF file (.nc, .ncf) or an Esri ASCII grid (.asc). It can be
              a local path, an HTTP(S) URL, or a blob storage URL
              (gs://, s3://, file://).`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.convertCmd.Flags()},
		},
		{
			name: "Convert.DensityVariable",
			usage: `
              Convert.DensityVariable is the name of the density variable in a
              netCDF density file.`,
			defaultVal: popcover.DefaultDensityVariable,
			flagsets:   []*pflag.FlagSet{cfg.convertCmd.Flags()},
		},
		{
			name: "Convert.LandShapefile",
			usage: `
              Convert.LandShapefile is the path to the shapefile of land boundary
              polygons. Grid cells whose centers are not on land are set to zero.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{cfg.convertCmd.Flags()},
		},
		{
			name: "Convert.DefaultCRS",
			usage: `
              Convert.DefaultCRS is the spatial reference assumed for a density
              grid that does not specify one, as a proj4 string, WKT, or EPSG:4326.`,
			defaultVal: "EPSG:4326",
			flagsets:   []*pflag.FlagSet{cfg.convertCmd.Flags()},
		},
		{
			name: "Convert.DensityUnits",
			usage: `
              Convert.DensityUnits gives the units of the density grid: either
              per_km2 (people per square kilometer) or per_pixel (people per grid cell).`,
			defaultVal: popcover.UnitsPerKm2,
			flagsets:   []*pflag.FlagSet{cfg.convertCmd.Flags()},
		},
		{
			name: "Convert.TargetPopulation",
			usage: `
              Convert.TargetPopulation is the total population the counts are
              scaled to.`,
			defaultVal: popcover.DefaultTargetPopulation,
			flagsets:   []*pflag.FlagSet{cfg.convertCmd.Flags()},
		},
		{
			name: "Convert.Workers",
			usage: `
              Convert.Workers is the number of goroutines used to create the
              land mask. Zero means one per processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{cfg.convertCmd.Flags()},
		},
		{
			name: "Store",
			usage: `
              Store is the location of the population count store: the path to
              its .bin file, with the metadata in the matching _meta.json file.
              convert writes it and the query commands read it. It can be a blob
              storage URL.`,
			shorthand:  "o",
			defaultVal: "population_count.bin",
			flagsets:   []*pflag.FlagSet{cfg.convertCmd.Flags(), cfg.estimateCmd.Flags(), cfg.coverageCmd.Flags(), cfg.serveCmd.Flags()},
		},
		{
			name: "Query.Lat",
			usage: `
              Query.Lat is the latitude of the estimate location in degrees.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.estimateCmd.Flags()},
		},
		{
			name: "Query.Lon",
			usage: `
              Query.Lon is the longitude of the estimate location in degrees.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{cfg.estimateCmd.Flags()},
		},
		{
			name: "Query.RadiusKm",
			usage: `
              Query.RadiusKm is the radius of the estimate in km.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{cfg.estimateCmd.Flags()},
		},
		{
			name: "Sweep.TLEFile",
			usage: `
              Sweep.TLEFile is the path to a file of satellite orbital elements in
              three-line (name, line 1, line 2) format. The first satellite in the
              file is used. If empty, built-in elements for the International
              Space Station are used.`,
			defaultVal: "",
			flagsets:   sweepSets,
		},
		{
			name: "Sweep.RadiusKm",
			usage: `
              Sweep.RadiusKm is the radius of the satellite footprint in km.`,
			defaultVal: orbit.DefaultRadiusKm,
			flagsets:   sweepSets,
		},
		{
			name: "Sweep.StepSeconds",
			usage: `
              Sweep.StepSeconds is the time between ground track samples in seconds.`,
			defaultVal: orbit.DefaultStepSeconds,
			flagsets:   sweepSets,
		},
		{
			name: "Sweep.Timeout",
			usage: `
              Sweep.Timeout is the longest a coverage calculation may run,
              for example "30s" or "2m". Zero means no limit.`,
			defaultVal: "30s",
			flagsets:   sweepSets,
		},
		{
			name: "Sweep.MaxEvaluations",
			usage: `
              Sweep.MaxEvaluations limits the number of grid cell distance tests
              in one coverage calculation. Zero means no limit.`,
			defaultVal: 0,
			flagsets:   sweepSets,
		},
		{
			name: "Sweep.CacheSize",
			usage: `
              Sweep.CacheSize is the number of recent coverage results kept in
              memory by the server. Zero disables the cache.`,
			defaultVal: 64,
			flagsets:   []*pflag.FlagSet{cfg.serveCmd.Flags()},
		},
		{
			name: "HTTP.Address",
			usage: `
              HTTP.Address is the address the server listens on.`,
			defaultVal: ":5000",
			flagsets:   []*pflag.FlagSet{cfg.serveCmd.Flags()},
		},
	}

	// Set the prefix for configuration environment variables.
	cfg.SetEnvPrefix("POPCOVER")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	for _, option := range cfg.options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic(fmt.Errorf("invalid argument type %T", option.defaultVal))
			}
		}
		cfg.BindPFlag(option.name, option.flagsets[0].Lookup(option.name))
	}
	return cfg
}

// setConfig finds and reads in the configuration file, if there is one.
func (cfg *Cfg) setConfig() error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("popcover: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// duration reads a duration option, which may be given as a string such
// as "30s" or as a number of seconds.
func (cfg *Cfg) duration(name string) (time.Duration, error) {
	v := cfg.Get(name)
	if s, ok := v.(string); ok {
		return time.ParseDuration(s)
	}
	sec, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("popcover: invalid %s %v: %v", name, v, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	e := json.NewEncoder(cmd.OutOrStdout())
	e.SetIndent("", "  ")
	return e.Encode(v)
}

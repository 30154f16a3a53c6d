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
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/popcover"
	"github.com/spatialmodel/popcover/cloud"
	"github.com/spatialmodel/popcover/orbit"
)

type estimateResponse struct {
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	RadiusKm            float64 `json:"radius_km"`
	EstimatedPopulation int64   `json:"estimated_population"`
}

type coverageResponse struct {
	CoverageScore int64 `json:"coverage_score"`
}

// loadEngine loads the count store and creates a query engine for it.
func (cfg *Cfg) loadEngine(ctx context.Context, opts ...popcover.EngineOption) (*popcover.Engine, *popcover.Metadata, error) {
	f, err := checkStoreFile(cfg.GetString("Store"), false)
	if err != nil {
		return nil, nil, err
	}
	var d cloud.Downloader
	defer d.Cleanup()
	local, err := d.MaybeDownload(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	c, md, err := popcover.LoadStore(local)
	if err != nil {
		return nil, nil, err
	}
	e, err := popcover.NewEngine(c, opts...)
	if err != nil {
		return nil, nil, err
	}
	return e, md, nil
}

// satellite is the satellite whose footprint is swept.
type satellite struct {
	orbit.Elements
	prop orbit.Propagator
}

// satellite reads the first satellite in Sweep.TLEFile, or the built-in
// elements if no file is set.
func (cfg *Cfg) satellite(log logrus.FieldLogger) (*satellite, error) {
	var r io.Reader = strings.NewReader(orbit.ISS)
	if f := os.ExpandEnv(cfg.GetString("Sweep.TLEFile")); f != "" {
		var d cloud.Downloader
		defer d.Cleanup()
		local, err := d.MaybeDownload(context.TODO(), f)
		if err != nil {
			return nil, err
		}
		fh, err := os.Open(local)
		if err != nil {
			return nil, fmt.Errorf("popcover: opening Sweep.TLEFile: %v", err)
		}
		defer fh.Close()
		r = fh
	}
	els, err := orbit.ParseTLE(r, log)
	if err != nil {
		return nil, err
	}
	p, err := orbit.NewCircular(els[0])
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"name":           els[0].Name,
		"norad_id":       els[0].NoradID,
		"period_seconds": els[0].PeriodSeconds(),
	}).Info("loaded satellite")
	return &satellite{Elements: els[0], prop: p}, nil
}

// sweepConfig holds the settings of a coverage calculation.
type sweepConfig struct {
	radiusKm, stepSeconds float64
	timeout               time.Duration
	opts                  popcover.SweepOptions
}

func (cfg *Cfg) sweepOptions() (*sweepConfig, error) {
	s := &sweepConfig{
		radiusKm:    cfg.GetFloat64("Sweep.RadiusKm"),
		stepSeconds: cfg.GetFloat64("Sweep.StepSeconds"),
		opts: popcover.SweepOptions{
			MaxEvaluations: int64(cfg.GetInt("Sweep.MaxEvaluations")),
		},
	}
	if err := checkPositive("Sweep.RadiusKm", s.radiusKm); err != nil {
		return nil, err
	}
	if err := checkPositive("Sweep.StepSeconds", s.stepSeconds); err != nil {
		return nil, err
	}
	if s.opts.MaxEvaluations < 0 {
		return nil, fmt.Errorf("popcover: Sweep.MaxEvaluations must not be negative but is %d", s.opts.MaxEvaluations)
	}
	var err error
	if s.timeout, err = cfg.duration("Sweep.Timeout"); err != nil {
		return nil, err
	}
	if s.timeout < 0 {
		return nil, fmt.Errorf("popcover: Sweep.Timeout must not be negative but is %v", s.timeout)
	}
	return s, nil
}

// coverage returns the number of unique people covered by sat's footprint
// over one orbital period.
func (s *sweepConfig) coverage(ctx context.Context, e *popcover.Engine, sat *satellite) (int64, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	period := sat.PeriodSeconds()
	if math.IsInf(period, 0) || math.IsNaN(period) {
		return 0, fmt.Errorf("popcover: invalid orbital period for %s", sat.Name)
	}
	track, err := orbit.GroundTrack(ctx, sat.prop, period, s.stepSeconds)
	if err != nil {
		return 0, err
	}
	r, err := e.CachedSweep(ctx, track, s.radiusKm, s.opts)
	if err != nil {
		return 0, err
	}
	return r.Population, nil
}

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
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/popcover"
)

// Server answers population and coverage queries over HTTP.
type Server struct {
	engine *popcover.Engine
	sat    *satellite
	sweep  *sweepConfig
	log    logrus.FieldLogger

	metrics *serverMetrics
	handler http.Handler
}

// NewServer loads the count store and satellite described by cfg and
// creates a server for them.
func (cfg *Cfg) NewServer(ctx context.Context, log logrus.FieldLogger) (*Server, error) {
	e, md, err := cfg.loadEngine(ctx, popcover.WithCoverageCache(cfg.GetInt("Sweep.CacheSize")))
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"rows":           md.Rows,
		"cols":           md.Cols,
		"total_adjusted": md.TotalAdjusted,
		"source":         md.RasterSource,
	}).Info("loaded count store")
	sat, err := cfg.satellite(log)
	if err != nil {
		return nil, err
	}
	sweep, err := cfg.sweepOptions()
	if err != nil {
		return nil, err
	}
	return newServer(e, sat, sweep, log), nil
}

func newServer(e *popcover.Engine, sat *satellite, sweep *sweepConfig, log logrus.FieldLogger) *Server {
	s := &Server{
		engine:  e,
		sat:     sat,
		sweep:   sweep,
		log:     log,
		metrics: newServerMetrics(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/population-estimate", s.estimateHandler)
	mux.HandleFunc("GET /api/coverage-score", s.coverageHandler)
	mux.HandleFunc("GET /api/position", s.positionHandler)
	mux.Handle("GET /metrics", s.metrics.handler())

	var handler http.Handler = mux
	handler = cors.Default().Handler(handler)
	handler = s.logging(handler)
	s.handler = s.metrics.middleware(handler)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe starts the server at addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.log.WithField("address", addr).Info("starting server")
	return srv.ListenAndServe()
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   r.RemoteAddr,
		}).Debug("request")
	})
}

func writeResponse(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// floatParam returns the named query parameter, or def if it is absent.
// Non-finite values are rejected.
func floatParam(r *http.Request, name string, def *float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		if def == nil {
			return 0, fmt.Errorf("missing parameter %s", name)
		}
		return *def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid parameter %s: %q", name, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid parameter %s: %q", name, v)
	}
	return f, nil
}

func floatPtr(v float64) *float64 { return &v }

// estimateHandler returns the approximate population near a point. Bad
// input gives an estimate of zero rather than an error.
func (s *Server) estimateHandler(w http.ResponseWriter, r *http.Request) {
	lat, err1 := floatParam(r, "lat", nil)
	lon, err2 := floatParam(r, "lon", nil)
	radius, err3 := floatParam(r, "radius_km", floatPtr(1))
	for _, err := range []error{err1, err2, err3} {
		if err != nil {
			s.log.WithError(err).Debug("population estimate")
			writeResponse(w, http.StatusOK, map[string]int64{"estimated_population": 0})
			return
		}
	}
	writeResponse(w, http.StatusOK, estimateResponse{
		Latitude:            lat,
		Longitude:           lon,
		RadiusKm:            radius,
		EstimatedPopulation: s.engine.Estimate(lat, lon, radius),
	})
}

// coverageHandler returns the number of unique people covered over one
// orbit. The footprint radius may be given with radius_km.
func (s *Server) coverageHandler(w http.ResponseWriter, r *http.Request) {
	radius, err := floatParam(r, "radius_km", floatPtr(s.sweep.radiusKm))
	if err == nil {
		err = checkPositive("radius_km", radius)
	}
	if err != nil {
		s.metrics.coverageTotal.WithLabelValues("error").Inc()
		writeResponse(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	sweep := *s.sweep
	sweep.radiusKm = radius
	score, err := sweep.coverage(r.Context(), s.engine, s.sat)
	if err != nil {
		s.log.WithError(err).Warn("coverage score")
		s.metrics.coverageTotal.WithLabelValues("error").Inc()
		writeResponse(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.metrics.coverageTotal.WithLabelValues("ok").Inc()
	writeResponse(w, http.StatusOK, coverageResponse{CoverageScore: score})
}

type positionResponse struct {
	SimulationTime  string       `json:"simulation_time_iso"`
	ElapsedSeconds  float64      `json:"elapsed_seconds"`
	Latitude        float64      `json:"latitude"`
	Longitude       float64      `json:"longitude"`
	SpotbeamPolygon [][2]float64 `json:"spotbeam_polygon"`
}

// isoFormat matches the ISO 8601 times with numeric UTC offsets used by
// existing clients.
const isoFormat = "2006-01-02T15:04:05.999999-07:00"

// positionHandler returns the sub-satellite point elapsed_seconds after
// the element epoch, with the footprint polygon of radius radius_km.
func (s *Server) positionHandler(w http.ResponseWriter, r *http.Request) {
	elapsed, err := floatParam(r, "elapsed_seconds", floatPtr(0))
	var radius float64
	if err == nil {
		radius, err = floatParam(r, "radius_km", floatPtr(1000))
	}
	if err == nil {
		err = checkPositive("radius_km", radius)
	}
	if err != nil {
		writeResponse(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	p := s.sat.prop.SubPoint(elapsed)
	ring := popcover.Footprint(p, radius, popcover.DefaultFootprintPoints)[0]
	poly := make([][2]float64, len(ring))
	for i, pt := range ring {
		poly[i] = [2]float64{pt.X, pt.Y}
	}
	t := s.sat.Epoch.Add(time.Duration(elapsed * float64(time.Second))).UTC()
	writeResponse(w, http.StatusOK, positionResponse{
		SimulationTime:  t.Format(isoFormat),
		ElapsedSeconds:  elapsed,
		Latitude:        p.Lat,
		Longitude:       p.Lon,
		SpotbeamPolygon: poly,
	})
}

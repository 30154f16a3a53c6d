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
	"runtime"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/popcover/internal/hash"
)

// coverageRequest is the payload of a cached coverage score request.
type coverageRequest struct {
	Track    []LatLon
	RadiusKm float64
	Options  SweepOptions
}

// newCoverageCache creates a cache of coverage scores computed by e.
// Failed requests are not stored.
func newCoverageCache(e *Engine, n int) *requestcache.Cache {
	return requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
		r := req.(*coverageRequest)
		return e.Sweep(ctx, r.Track, r.RadiusKm, r.Options)
	}, runtime.GOMAXPROCS(-1), requestcache.Memory(n))
}

// CachedSweep is like Sweep, but reuses the result of a recent identical
// request if the engine was created with WithCoverageCache.
func (e *Engine) CachedSweep(ctx context.Context, track []LatLon, radiusKm float64, opts SweepOptions) (SweepResult, error) {
	if e.cache == nil {
		return e.Sweep(ctx, track, radiusKm, opts)
	}
	req := &coverageRequest{Track: track, RadiusKm: radiusKm, Options: opts}
	r := e.cache.NewRequest(ctx, req, hash.Hash(req))
	v, err := r.Result()
	if err != nil {
		return SweepResult{}, err
	}
	return v.(SweepResult), nil
}

// CacheRequests returns the number of coverage requests received by the
// cache and by the underlying sweep, or nil if there is no cache.
func (e *Engine) CacheRequests() []int {
	if e.cache == nil {
		return nil
	}
	return e.cache.Requests()
}

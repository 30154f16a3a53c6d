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

// Package hash creates the keys under which coverage results are cached.
// Two requests get the same key when they have the same Go type and
// equal contents, so a cached result is never returned for a request of
// a different kind.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// dump prints values whose encoding must not depend on map order or
// pointer addresses.
var dump = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Hash returns the cache key for a request.
func Hash(request interface{}) string {
	h := fnv.New128a()
	fmt.Fprintf(h, "%T\x00", request)
	if err := gob.NewEncoder(h).Encode(request); err != nil {
		// gob rejects values without exported fields.
		h = fnv.New128a()
		fmt.Fprintf(h, "%T\x00", request)
		dump.Fprintf(h, "%#v", request)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

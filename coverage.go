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
	"math/bits"
	"sort"
)

// coverageSet is a set of pixel indices, where a pixel's index is
// row*cols + col.
type coverageSet interface {
	add(i int)
	len() int

	// each calls f for every member in ascending order.
	each(f func(i int))
}

// SetKind selects the coverage set used by a sweep.
type SetKind int

// Coverage set kinds.
const (
	// SetAuto chooses a set based on the expected number of members.
	SetAuto SetKind = iota

	// SetDense uses a bitset with one bit per grid pixel.
	SetDense

	// SetSparse uses a hash set.
	SetSparse
)

// newCoverageSet returns a set for a grid of size pixels that is expected
// to receive up to expected insertions.
func newCoverageSet(kind SetKind, size, expected int) coverageSet {
	switch kind {
	case SetDense:
		return newBitset(size)
	case SetSparse:
		return make(hashSet)
	}
	// A map entry costs tens of bytes; a bitset costs size/8 bytes.
	if expected*32 >= size/8 {
		return newBitset(size)
	}
	return make(hashSet, expected)
}

type bitset struct {
	words []uint64
	n     int
}

func newBitset(size int) *bitset {
	return &bitset{words: make([]uint64, (size+63)/64)}
}

func (b *bitset) add(i int) {
	w, m := i/64, uint64(1)<<(uint(i)%64)
	if b.words[w]&m == 0 {
		b.words[w] |= m
		b.n++
	}
}

func (b *bitset) len() int { return b.n }

func (b *bitset) each(f func(i int)) {
	for w, word := range b.words {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			f(w*64 + bit)
			word &= word - 1
		}
	}
}

type hashSet map[int]struct{}

func (h hashSet) add(i int) { h[i] = struct{}{} }

func (h hashSet) len() int { return len(h) }

func (h hashSet) each(f func(i int)) {
	idx := make([]int, 0, len(h))
	for i := range h {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		f(i)
	}
}

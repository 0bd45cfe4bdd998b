// Copyright 2026 The phashist Authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package scramble builds the fixed pseudo-random permutation table
// consulted by the assignment engine's tab[] indirection.
package scramble

import "math/bits"

// Len is the fixed size of a Table: the engine only ever indexes it
// with values in [0, 4096), the width of a tab[] entry.
const Len = 4096

// Table is a bijective permutation of [0, smax) materialized into Len
// entries (the assignment engine consults only the first min(Len,
// smax) entries, or the first 256 once blen reaches 2048, but the
// whole table is filled so its contents are independent of blen).
type Table []uint32

// New fills a Table for the given smax. The result is deterministic:
// identical smax always produces identical table contents, which
// matters because the table is baked into the emitted hash.
func New(smax uint32) Table {
	nbits := ilog2(smax)
	t := make(Table, Len)
	for i := range t {
		t[i] = permute(uint32(i), nbits)
	}
	return t
}

// ilog2 returns ceil(log2(n)) for n >= 1, and 0 for n == 0.
func ilog2(n uint32) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len32(n - 1))
}

// permute computes p(x) where p is a permutation of [0, 1<<nbits).
// The round constants and iteration count are fixed by spec, not
// tunable, because the table must reproduce byte-for-byte across
// runs and across the C original this engine's output is interchangeable with.
func permute(x uint32, nbits uint) uint32 {
	msk := uint32(1)<<nbits - 1
	c2 := uint32(1 + nbits/2)
	c3 := uint32(1 + nbits/3)
	c4 := uint32(1 + nbits/4)
	c5 := uint32(1 + nbits/5)

	for i := 0; i < 20; i++ {
		x = (x + (x << c2)) & msk
		x ^= x >> c3
		x = (x + (x << c4)) & msk
		x ^= x >> c5
	}
	return x
}

// Distinct reports whether t[0:count] contains count pairwise-distinct
// values, each within [0, bound), the scramble-integrity property of
// spec §8. count and bound are separate because count can't exceed
// len(t) (only Len entries are ever materialized), while bound is the
// table's real permutation domain, smax, which for smax > Len is
// larger than count: a legitimate entry among the first Len can still
// be as large as smax-1.
func (t Table) Distinct(count, bound uint32) bool {
	seen := make(map[uint32]struct{}, count)
	for i := uint32(0); i < count; i++ {
		v := t[i]
		if v >= bound {
			return false
		}
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}

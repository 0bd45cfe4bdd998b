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

// Package phash implements the perfect-hash construction engine: the
// tuple stage, the graph-augmentation assignment engine, and the
// salt/parameter search Driver built on top of them.
package phash

import (
	"math/bits"

	"github.com/arrufat/phashist/hash"
	"github.com/arrufat/phashist/keys"
	"github.com/arrufat/phashist/scramble"
)

// goldenRatio32 is the fixed multiplier that turns a trial salt into
// the initial value handed to the general hash, Bob Jenkins' initnorm
// constant.
const goldenRatio32 = 0x9e3779b9

// nilIndex marks an unoccupied hash-table slot. It is -1, which is
// never a valid key index.
const nilIndex = -1

// Tuple is a key's (a, b) projection under the current salt.
type Tuple struct {
	A uint32
	B uint32
}

// Collision names two key indices that share an (a, b) tuple, the
// condition build_bucket_table is scanning for.
type Collision struct {
	I, J  int
	Exact bool // true if Keys.Equal(I, J): a true duplicate key, not just a hash clash
}

// Engine holds everything the assignment algorithm needs for one
// parameter trial: the key set, the chosen hash strategy, the current
// (alen, blen, smax) and the scratch buffers §5 requires be reused
// across calls rather than reallocated. A zero Engine is not usable;
// construct one with New.
type Engine struct {
	Keys     *keys.Set
	Strategy hash.Strategy
	Scramble scramble.Table

	Alen, Blen, Smax uint32
	// MaxPerSlot is the k-perfect cap; 1 means strict perfect (default).
	// k > 1 is best-effort: ht remembers only the most recently placed
	// key of a shared slot, and a slot claimed tentatively within one
	// augment attempt is never shared with another bucket.
	MaxPerSlot int

	T   []Tuple  // length Keys.Len(), recomputed by ComputeTuples
	B   []int    // length Blen, bucket occupancy counts
	Tab []uint32 // length Blen, the solved output: index into Scramble

	ht       []int    // length Smax, nilIndex when unoccupied, else the most recently placed key at that slot
	cnt      []int    // length Smax, occupancy count per slot; a slot is full once cnt[h] == MaxPerSlot
	assigned []bool   // length Blen, whether Tab[b] currently holds a committed value
	tabq     []qitem  // length Blen+1, reused as the per-augment-call change log
	water    []uint32 // length Blen, revisit guard: water[b]==gen means b is already part of the current augment attempt
	gen      uint32   // monotonically increasing per-candidate attempt id backing water
	order    []uint32 // length Blen, bucket ids sorted by descending occupancy, rebuilt per perfp
	buckets  [][]int  // length Blen, key indices grouped by b, rebuilt per BuildBucketTable
}

// qitem is one entry in an augment attempt's change log: bucket B was
// (or would be) moved to tab value New, on behalf of Par (B itself
// for the root of the attempt, the requesting bucket for a displaced
// one), having previously held Old (tabUnset if B was unassigned).
type qitem struct {
	B   uint32
	Par uint32
	New uint32
	Old uint32
}

// tabUnset marks a qitem.Old (or a bucket with no committed Tab
// value yet) as having no prior placement to restore on rollback.
const tabUnset = ^uint32(0)

// New constructs an Engine for the given key set, hash strategy and
// initial smax. Callers still need to set Alen/Blen (see
// GuessLengths) and call Grow before the first ComputeTuples.
func New(ks *keys.Set, strat hash.Strategy, smax uint32) *Engine {
	e := &Engine{
		Keys:       ks,
		Strategy:   strat,
		Smax:       smax,
		MaxPerSlot: 1,
	}
	e.T = make([]Tuple, ks.Len())
	return e
}

// Grow enlarges the buffers that depend on Blen and Smax. B, Tab and
// buckets keep their retained prefix and get a zero-filled tail; the
// other scratch buffers (tabq, water, assigned, order, ht, cnt) are
// reallocated zeroed, since perfp and augment reset them before use.
// It is a no-op for dimensions that haven't grown, so calling it
// speculatively on every driver iteration is cheap.
func (e *Engine) Grow() {
	if int(e.Blen) > len(e.B) {
		grown := make([]int, e.Blen)
		copy(grown, e.B)
		e.B = grown
	}
	if int(e.Blen) > len(e.Tab) {
		grown := make([]uint32, e.Blen)
		copy(grown, e.Tab)
		e.Tab = grown
	}
	if int(e.Blen)+1 > len(e.tabq) {
		e.tabq = make([]qitem, e.Blen+1)
	}
	if int(e.Blen) > len(e.water) {
		e.water = make([]uint32, e.Blen)
	}
	if int(e.Blen) > len(e.buckets) {
		grown := make([][]int, e.Blen)
		copy(grown, e.buckets)
		e.buckets = grown
	}
	if int(e.Blen) > len(e.assigned) {
		e.assigned = make([]bool, e.Blen)
	}
	if int(e.Blen) > len(e.order) {
		e.order = make([]uint32, e.Blen)
	}
	if int(e.Smax) > len(e.ht) {
		e.ht = make([]int, e.Smax)
	}
	if int(e.Smax) > len(e.cnt) {
		e.cnt = make([]int, e.Smax)
	}
}

// alog, blog are log2(Alen), log2(Blen); both Alen and Blen are
// powers of two by construction (driver.go enforces this), so
// bits.Len32(n-1) gives an exact log2 for n >= 1.
func (e *Engine) alog() uint { return ilog2(e.Alen) }
func (e *Engine) blog() uint { return ilog2(e.Blen) }

func ilog2(n uint32) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len32(n - 1))
}

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

package phash

import (
	"golang.org/x/exp/slices"

	"github.com/arrufat/phashist/scramble"
)

// perfp runs one full assignment pass over the current tuples: every
// bucket gets a tab[] value such that H(key) = A(key) XOR
// Scramble[tab[B(key)]] is injective across all keys. It assumes
// BuildBucketTable already ran clean (zero hash collisions) for the
// current salt; buckets sharing an A-value would make this stage
// unsolvable by construction, not just hard.
//
// perfp owns ht, assigned, Tab and order: every call resets them, so
// the Engine's bucket-occupancy scratch (e.B, e.buckets) must already
// reflect the trial being perfected.
func (e *Engine) perfp() (ok bool, nleft int) {
	for i := range e.ht {
		e.ht[i] = nilIndex
	}
	for i := range e.cnt {
		e.cnt[i] = 0
	}
	for i := range e.assigned[:e.Blen] {
		e.assigned[i] = false
	}
	for i := range e.Tab[:e.Blen] {
		e.Tab[i] = 0
	}

	order := e.bucketOrder()

	for _, b := range order {
		if e.B[b] == 0 {
			e.assigned[b] = true
			continue
		}
		if !e.augment(b) {
			nleft = 0
			for _, bb := range order {
				if !e.assigned[bb] {
					nleft++
				}
			}
			return false, nleft
		}
	}
	return true, 0
}

// bucketOrder returns bucket ids [0, Blen) sorted by descending
// occupancy. Larger buckets are harder to place the more slots
// already taken by earlier buckets, so the classic CHM heuristic
// places them first while the hash table is still mostly empty.
func (e *Engine) bucketOrder() []uint32 {
	order := e.order[:e.Blen]
	for b := range order {
		order[b] = uint32(b)
	}
	slices.SortFunc(order, func(x, y uint32) bool {
		return e.B[x] > e.B[y]
	})
	return order
}

// augment finds a tab[] value for bucket rootB, growing a full
// breadth-first augmenting path when the direct candidate's slots are
// already taken by other, already-placed buckets: each blocking
// bucket is pushed onto a queue and, in turn, searches its own entire
// candidate range for a placement, which may itself displace further
// buckets. The queue keeps growing and draining until either every
// displaced bucket finds a home (success: commit the whole chain) or
// some displaced bucket runs through its whole candidate range without
// a placement (this candidate v fails, not the whole augment call). A
// placement that would displace a bucket already touched this attempt
// is a cycle: water catches it and that placement is skipped. The
// chain can run arbitrarily deep — this
// is the hard part of the construction the one-at-a-time bucket
// placement alone can't do, since bounding the search to the root's
// immediate neighbors would leave exactly the slot-starved tables a
// deeper augmenting path can still resolve unsolved.
//
// augment never mutates e.ht/e.Tab speculatively: a trial for a given
// v is built entirely inside tentative and log, and only committed
// via apply once the whole chain has a resolved placement.
// candidateLimit bounds the tab-value search range: once blen grows
// past 2048 the scramble table's higher entries are never consulted
// by the emitted lookup (only S[tab[b]] for b < blen, and the useful
// region collapses below 256 once bucket count dwarfs smax), so
// widening the search past 256 only burns time for no extra reach.
// The limit never exceeds scramble.Len, the number of entries a Table
// materializes.
func (e *Engine) candidateLimit() uint32 {
	if e.Blen >= 2048 && e.Smax > 256 {
		return 256
	}
	if e.Smax > scramble.Len {
		return scramble.Len
	}
	return e.Smax
}

// displaced names a bucket pushed onto the augmenting-path queue
// because evictor's placement claimed a slot it used to hold.
type displaced struct {
	bucket, evictor uint32
}

func (e *Engine) augment(rootB uint32) bool {
	tentative := make(map[uint32]uint32, len(e.buckets[rootB])*4)
	// log backs onto e.tabq: water bounds a single attempt to at most
	// Blen distinct buckets, so Blen+1 capacity never needs to grow.
	log := e.tabq[:0]
	var queue []displaced
	limit := e.candidateLimit()

	for v := uint32(0); v < limit; v++ {
		for k := range tentative {
			delete(tentative, k)
		}
		log = log[:0]
		queue = queue[:0]
		e.gen++
		e.water[rootB] = e.gen

		if e.seat(rootB, rootB, v, tentative, &log, &queue) && e.drainQueue(tentative, &log, &queue) {
			return e.apply(log, uint32(len(log)), false)
		}
	}
	return false
}

// drainQueue processes buckets displaced by seat, in FIFO order, until
// the queue empties (success) or some bucket exhausts its entire
// candidate range without finding a collision-free (or cycle-free)
// placement (failure). Buckets displaced while draining are appended
// to the same queue, so one augment call can chain across arbitrarily
// many buckets, each only ever entering the queue once per attempt
// (water guards re-entry, which also bounds this loop to at most Blen
// iterations).
func (e *Engine) drainQueue(tentative map[uint32]uint32, log *[]qitem, queue *[]displaced) bool {
	limit := e.candidateLimit()
	for len(*queue) > 0 {
		item := (*queue)[0]
		*queue = (*queue)[1:]

		placed := false
		for v2 := uint32(0); v2 < limit; v2++ {
			if e.assigned[item.bucket] && v2 == e.Tab[item.bucket] {
				continue // its current placement, not a real displacement
			}
			if e.seat(item.bucket, item.evictor, v2, tentative, log, queue) {
				placed = true
				break
			}
		}
		if !placed {
			return false
		}
	}
	return true
}

// seat attempts to place bucket b at tab value v, logging the move on
// behalf of evictor (b itself, for the root of an augment call). Any
// bucket currently holding one of b's target slots — real, or
// tentatively claimed earlier this attempt — is queued to find its
// own new placement, unless it's already been touched this attempt
// (water == gen), in which case that's a cycle and seat fails
// entirely without recording anything: a partial commit here would
// corrupt later candidates in the same augment call. seat checks every
// blocker before mutating log/tentative/queue for exactly that reason.
func (e *Engine) seat(b, evictor, v uint32, tentative map[uint32]uint32, log *[]qitem, queue *[]displaced) bool {
	members := e.buckets[b]
	sc := e.Scramble[v]
	slots := make([]uint32, 0, len(members))

	blockers := make(map[uint32]bool)
	for _, idx := range members {
		s := e.T[idx].A ^ sc
		if owner, ok := tentative[s]; ok {
			if owner != b {
				blockers[owner] = true
			}
		} else if e.cnt[s] >= e.MaxPerSlot {
			if owner := e.T[e.ht[s]].B; owner != b {
				blockers[owner] = true
			}
		}
		slots = append(slots, s)
	}

	for owner := range blockers {
		if e.water[owner] == e.gen {
			return false
		}
	}

	old := tabUnset
	if e.assigned[b] {
		old = e.Tab[b]
	}
	*log = append(*log, qitem{B: b, Par: evictor, New: v, Old: old})
	for _, s := range slots {
		tentative[s] = b
	}
	for owner := range blockers {
		e.water[owner] = e.gen
		*queue = append(*queue, displaced{bucket: owner, evictor: b})
	}
	return true
}

// apply commits (rollback==false) or undoes (rollback==true) a change
// log built by augment/seat/drainQueue. Committing walks the log
// forward, vacating each bucket's old slot before occupying its new
// one; rolling back walks it in reverse, restoring each bucket's
// prior placement (or un-assigning it if it had none). apply always
// returns false when rollback is true, so callers can write
// `return e.apply(log, n, true)` as a one-line "fail and undo".
func (e *Engine) apply(q []qitem, tail uint32, rollback bool) bool {
	if rollback {
		for i := int(tail) - 1; i >= 0; i-- {
			item := q[i]
			e.clearBucket(item.B, item.New)
			if item.Old != tabUnset {
				e.occupyBucket(item.B, item.Old)
				e.Tab[item.B] = item.Old
			} else {
				e.assigned[item.B] = false
			}
		}
		return false
	}

	for i := 0; i < int(tail); i++ {
		item := q[i]
		if item.Old != tabUnset {
			e.clearBucket(item.B, item.Old)
		}
		e.occupyBucket(item.B, item.New)
		e.Tab[item.B] = item.New
		e.assigned[item.B] = true
	}
	return true
}

func (e *Engine) clearBucket(b, v uint32) {
	sc := e.Scramble[v]
	for _, idx := range e.buckets[b] {
		s := e.T[idx].A ^ sc
		if e.cnt[s] > 0 {
			e.cnt[s]--
		}
		if e.cnt[s] == 0 {
			e.ht[s] = nilIndex
		}
	}
}

func (e *Engine) occupyBucket(b, v uint32) {
	sc := e.Scramble[v]
	for _, idx := range e.buckets[b] {
		s := e.T[idx].A ^ sc
		e.ht[s] = idx
		e.cnt[s]++
	}
}

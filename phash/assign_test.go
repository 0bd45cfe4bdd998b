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
	"testing"

	"github.com/arrufat/phashist/hash"
)

// findCleanSalt scans salts until BuildBucketTable reports zero
// collisions, so perfp tests don't depend on salt 0 happening to work.
func findCleanSalt(t *testing.T, e *Engine) uint32 {
	t.Helper()
	for salt := uint32(0); salt < 10000; salt++ {
		e.ComputeTuples(salt)
		if ncoll, _ := e.BuildBucketTable(false); ncoll == 0 {
			return salt
		}
	}
	t.Fatal("no collision-free salt found in 10000 tries")
	return 0
}

func TestPerfpProducesInjectiveTab(t *testing.T) {
	e := newEngine(t, "GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS")
	findCleanSalt(t, e)

	ok, nleft := e.perfp()
	if !ok {
		t.Fatalf("perfp failed with %d buckets unplaced", nleft)
	}

	seen := make(map[uint32]int, e.Keys.Len())
	for i, tp := range e.T {
		out := tp.A ^ e.Scramble[e.Tab[tp.B]]
		if prev, dup := seen[out]; dup {
			t.Fatalf("keys %d and %d collide at H=%d after perfp", prev, i, out)
		}
		seen[out] = i
	}
}

// TestPerfpEveryNonEmptyBucketAssigned drives a real Driver to
// completion (rather than a single perfp call at a hand-picked salt,
// which can legitimately need a larger blen to succeed) and inspects
// the winning Engine's internal state directly, since the test is
// package phash and Driver.e isn't exported.
func TestPerfpEveryNonEmptyBucketAssigned(t *testing.T) {
	ks := keysFrom("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
	strat, err := hash.ByName("icke2")
	if err != nil {
		t.Fatal(err)
	}
	d := NewDriver(ks, strat, DefaultBudget, nil)
	if _, err := d.Run(); err != nil {
		t.Fatal(err)
	}
	e := d.e
	for b := uint32(0); b < e.Blen; b++ {
		if e.B[b] > 0 && !e.assigned[b] {
			t.Errorf("bucket %d has %d members but was never assigned a tab value", b, e.B[b])
		}
	}
}

func TestBucketOrderDescendingOccupancy(t *testing.T) {
	e := newEngine(t, "a", "b", "c", "d", "e", "f", "g", "h")
	findCleanSalt(t, e)
	order := e.bucketOrder()
	for i := 1; i < len(order); i++ {
		if e.B[order[i-1]] < e.B[order[i]] {
			t.Fatalf("bucketOrder not descending at index %d: B[%d]=%d < B[%d]=%d",
				i, order[i-1], e.B[order[i-1]], order[i], e.B[order[i]])
		}
	}
}

func TestCandidateLimitCapsAtLargeBlen(t *testing.T) {
	e := &Engine{Smax: 4096, Blen: 4096}
	if got := e.candidateLimit(); got != 256 {
		t.Errorf("candidateLimit() = %d, want 256 for blen=4096 smax=4096", got)
	}
	e.Blen = 512
	if got := e.candidateLimit(); got != e.Smax {
		t.Errorf("candidateLimit() = %d, want smax=%d for blen=512", got, e.Smax)
	}
}

func TestApplyRollbackRestoresPriorState(t *testing.T) {
	e := newEngine(t, "a", "b", "c", "d")
	findCleanSalt(t, e)
	e.perfp()

	// Hand-build a tiny log that moves bucket 0 to some other value and
	// then rolls it back; the committed Tab/ht state must return to
	// exactly what it was before.
	if e.Blen == 0 {
		t.Skip("degenerate blen for this key count")
	}
	before := append([]uint32(nil), e.Tab[:e.Blen]...)
	beforeHt := append([]int(nil), e.ht...)

	oldVal := tabUnset
	if e.assigned[0] {
		oldVal = e.Tab[0]
	}
	newVal := (oldVal + 1) % e.Smax
	if newVal == oldVal {
		t.Skip("smax too small to pick a distinct probe value")
	}

	log := []qitem{{B: 0, Par: 0, New: newVal, Old: oldVal}}
	e.clearBucket(0, oldVal)
	e.occupyBucket(0, newVal)
	e.Tab[0] = newVal

	e.apply(log, 1, true)

	for i, v := range e.Tab[:e.Blen] {
		if v != before[i] {
			t.Errorf("Tab[%d] = %d after rollback, want %d", i, v, before[i])
		}
	}
	for i, v := range e.ht {
		if v != beforeHt[i] {
			t.Errorf("ht[%d] = %d after rollback, want %d", i, v, beforeHt[i])
		}
	}
}

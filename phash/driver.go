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
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/google/uuid"

	"github.com/arrufat/phashist/hash"
	"github.com/arrufat/phashist/keys"
	"github.com/arrufat/phashist/scramble"
)

// ErrExhausted is returned by Run when the outer search reaches
// alen == blen == smax without finding a perfect assignment, the
// "search exhaustion" error kind.
var ErrExhausted = errors.New("phash: search exhausted at smax limit")

// state is the driver's outer state machine position.
type state int

const (
	stateSearching state = iota
	statePerfecting
	stateDone
	stateFatal
)

// Budget configures the driver's retry thresholds. The zero value is
// not usable; use DefaultBudget.
type Budget struct {
	BadKMax int // bad-tuple retries tolerated before growing a or b, §4.6
	BadPMax int // failed perfecting passes tolerated before growing blen, §4.6
}

// DefaultBudget matches the thresholds named in §4.6: 4096 salt
// retries per (alen, blen) before growing; with BadPMax 1, blen is
// widened right after the first failed perfecting pass, which is not
// repeated.
var DefaultBudget = Budget{BadKMax: 4096, BadPMax: 1}

// Result is the Driver's successful output: the found parameters plus
// the tab array and the scramble table the emitter needs.
type Result struct {
	Salt     uint32
	Alen     uint32
	Blen     uint32
	Smax     uint32
	Tab      []uint32
	Scramble scramble.Table
	Strategy string
}

// Driver runs the outer salt/parameter search to completion. ID tags
// every diagnostic line this run writes, so repeated `build`
// invocations in a CI log can be told apart.
type Driver struct {
	ID     uuid.UUID
	Budget Budget
	Diag   io.Writer // receives progress diagnostics; nil discards them

	e         *Engine
	cache     *scramble.DiskCache
	trysalt   uint32
	badk      int
	badp      int
}

// NewDriver constructs a Driver for ks under strategy, with smax,
// alen and blen already set to their initial guess (see GuessLengths)
// on a fresh Engine.
func NewDriver(ks *keys.Set, strategy hash.Strategy, budget Budget, cache *scramble.DiskCache) *Driver {
	alen, blen, smax := GuessLengths(ks.Len())
	e := New(ks, strategy, smax)
	e.Alen, e.Blen = alen, blen
	e.Scramble = scramble.Get(cache, smax)
	e.Grow()

	return &Driver{
		ID:     uuid.New(),
		Budget: budget,
		e:      e,
		cache:  cache,
	}
}

// SetInitialBlen overrides the blen GuessLengths picked, for
// diagnostic use (the -buckets flag). Must be called before Run.
func (d *Driver) SetInitialBlen(blen uint32) {
	d.e.Blen = blen
	d.e.Grow()
}

// SetMaxPerSlot configures k-perfect mode (the -k flag). See
// Engine.MaxPerSlot for the best-effort caveat on k > 1.
func (d *Driver) SetMaxPerSlot(k int) {
	d.e.MaxPerSlot = k
}

// GuessLengths computes the initial (alen, blen, smax) for n keys: an
// empty set collapses to all-zero (blen=0, per §6's "the core then
// returns trivially"). Otherwise smax is the next power of two at
// least n, alen starts at smax (blog+alog using the full width), and
// blen starts small and grows with key density, the empirically-tuned
// table from the original heuristic: small blen keeps the assignment
// table cheap, but too small never converges, so denser key sets get
// proportionally more buckets.
func GuessLengths(n int) (alen, blen, smax uint32) {
	if n == 0 {
		return 0, 0, 0
	}
	smax = nextPow2(uint32(n))
	density := float64(n) / float64(smax)

	alen = smax
	switch {
	case smax/4 <= 1<<14:
		switch {
		case density <= 0.56:
			blen = smax / 32
		case density <= 0.74:
			blen = smax / 16
		default:
			blen = smax / 8
		}
	default:
		switch {
		case density <= 0.6:
			blen = smax / 16
		case density <= 0.8:
			blen = smax / 8
		default:
			blen = smax / 4
		}
	}
	if alen < 1 {
		alen = 1
	}
	if blen < 1 {
		blen = 1
	}
	return alen, blen, smax
}

func nextPow2(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len32(n-1)
}

// Run executes the Searching/Perfecting/Done/Fatal state machine
// described in §4.6 to completion.
func (d *Driver) Run() (*Result, error) {
	e := d.e
	if e.Keys.Len() == 0 {
		return &Result{Strategy: e.Strategy.Name()}, nil
	}

	st := stateSearching
	for {
		switch st {
		case stateSearching:
			d.trysalt++
			e.ComputeTuples(d.trysalt)
			ncoll, _ := e.BuildBucketTable(false)
			if ncoll > 0 {
				d.badk++
				d.diagf("salt=%d tuple collision, badk=%d", d.trysalt, d.badk)
				if d.badk < d.Budget.BadKMax {
					continue
				}
				if grown := d.growAB(); !grown {
					st = stateFatal
					continue
				}
				d.badk, d.badp = 0, 0
				continue
			}
			st = statePerfecting

		case statePerfecting:
			e.Grow()
			ok, nleft := e.perfp()
			if ok {
				st = stateDone
				continue
			}
			d.badp++
			d.diagf("salt=%d perfecting failed, %d buckets unplaced, badp=%d", d.trysalt, nleft, d.badp)
			if d.badp < d.Budget.BadPMax {
				st = statePerfecting
				continue
			}
			if e.Blen < e.Smax {
				e.Blen *= 2
				d.trysalt--
				d.badp = 0
				e.Grow()
				st = stateSearching
				continue
			}
			st = stateFatal

		case stateDone:
			d.diagf("salt=%d alen=%d blen=%d smax=%d done", d.trysalt, e.Alen, e.Blen, e.Smax)
			return &Result{
				Salt:     d.trysalt,
				Alen:     e.Alen,
				Blen:     e.Blen,
				Smax:     e.Smax,
				Tab:      append([]uint32(nil), e.Tab[:e.Blen]...),
				Scramble: e.Scramble,
				Strategy: e.Strategy.Name(),
			}, nil

		case stateFatal:
			ncoll, _ := e.BuildBucketTable(true)
			d.diagf("exhausted search at alen=%d blen=%d smax=%d, last collision count=%d", e.Alen, e.Blen, e.Smax, ncoll)
			return nil, fmt.Errorf("%w (alen=%d blen=%d smax=%d)", ErrExhausted, e.Alen, e.Blen, e.Smax)
		}
	}
}

// growAB applies the Searching state's growth priority: widen alen
// before blen, and only declare Fatal once both have reached smax.
func (d *Driver) growAB() bool {
	e := d.e
	switch {
	case e.Alen < e.Smax:
		e.Alen *= 2
	case e.Blen < e.Smax:
		e.Blen *= 2
		e.Grow()
	default:
		return false
	}
	return true
}

func (d *Driver) diagf(format string, args ...any) {
	if d.Diag == nil {
		return
	}
	fmt.Fprintf(d.Diag, "[%s] "+format+"\n", append([]any{d.ID}, args...)...)
}

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

// ComputeTuples derives (a, b) for every key under trial salt: ilev =
// salt * goldenRatio32 feeds the chosen Strategy, and the result is
// split into an alen-wide a and a blen-wide b.
func (e *Engine) ComputeTuples(salt uint32) {
	ilev := salt * goldenRatio32
	alog, blog := e.alog(), e.blog()

	for i := 0; i < e.Keys.Len(); i++ {
		h := e.Strategy.Hash(e.Keys.Key(i), ilev)

		var a, b uint32
		if alog > 0 {
			a = (h >> blog) & (e.Alen - 1)
		}
		if blog > 0 {
			b = h & (e.Blen - 1)
		}
		e.T[i] = Tuple{A: a, B: b}
	}
}

// BuildBucketTable groups keys by b and, within each bucket, compares
// a-values pairwise: two keys sharing (a, b) guarantee a hash
// collision. This is the bucket-first O(N + Sum(B[b]^2)) strategy
// flagged as the production fix for the naive O(N^2) scan over all
// unordered pairs (see DESIGN.md).
//
// When thorough is false, BuildBucketTable returns as soon as it
// finds the first collision. When true, it keeps scanning to report
// the total collision count (used only for the final diagnostic on
// search exhaustion). B is populated with final bucket occupancy
// counts only when the scan finds zero collisions, matching the "on
// success" contract of spec §4.4.
func (e *Engine) BuildBucketTable(thorough bool) (ncoll int, first *Collision) {
	for i := range e.buckets[:e.Blen] {
		e.buckets[i] = e.buckets[i][:0]
	}
	for i := 0; i < e.Keys.Len(); i++ {
		b := e.T[i].B
		e.buckets[b] = append(e.buckets[b], i)
	}

	for b := uint32(0); b < e.Blen; b++ {
		members := e.buckets[b]
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				i, j := members[x], members[y]
				if e.T[i].A != e.T[j].A {
					continue
				}
				ncoll++
				if first == nil {
					first = &Collision{I: i, J: j, Exact: e.Keys.Equal(i, j)}
				}
				if !thorough {
					return ncoll, first
				}
			}
		}
	}

	if ncoll == 0 {
		for b := uint32(0); b < e.Blen; b++ {
			e.B[b] = len(e.buckets[b])
		}
	}
	return ncoll, first
}

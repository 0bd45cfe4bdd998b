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

// Package keys holds the immutable, indexed collection of byte-string
// keys that the perfect-hash engine searches over.
package keys

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Set is an ordered sequence of byte strings packed into a single
// arena. Duplicate lines stay in the Set as separate keys; ReadLines
// reports them as Duplicate diagnostics. It is built once by ReadLines
// and borrowed read-only by every component of the engine for the
// lifetime of a search.
type Set struct {
	arena   []byte
	offsets []int // len(offsets) == Len()+1, a sentinel bounds the last key
}

// Duplicate names two 1-based line numbers that produced byte-equal
// keys, the user error described in spec §7 kind 2.
type Duplicate struct {
	Key       string
	FirstLine int
	DupLine   int
}

// Len returns the number of keys in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.offsets) - 1
}

// Key returns the i-th key's bytes. The returned slice aliases the
// set's arena and must not be mutated.
func (s *Set) Key(i int) []byte {
	return s.arena[s.offsets[i]:s.offsets[i+1]]
}

// KeyLen returns the length in bytes of the i-th key.
func (s *Set) KeyLen(i int) int {
	return s.offsets[i+1] - s.offsets[i]
}

// Cmp lexicographically compares the i-th and j-th keys, like
// bytes.Compare.
func (s *Set) Cmp(i, j int) int {
	return bytes.Compare(s.Key(i), s.Key(j))
}

// Equal reports whether the i-th and j-th keys are byte-identical.
func (s *Set) Equal(i, j int) bool {
	return bytes.Equal(s.Key(i), s.Key(j))
}

// ReadLines reads newline-delimited keys from r, one per line, with
// the line terminator stripped. An empty input yields a Set of length
// zero. Exact byte-equal duplicate lines are reported as Duplicate
// diagnostics (by first-seen-line vs. every later repeat) but never
// as an error: the caller decides whether a degenerate perfect hash
// over duplicated keys is acceptable.
func ReadLines(r io.Reader) (*Set, []Duplicate, error) {
	set := &Set{offsets: []int{0}}
	seen := make(map[string]int) // key -> 1-based line of first occurrence
	var dups []Duplicate

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Bytes()
		set.arena = append(set.arena, text...)
		set.offsets = append(set.offsets, len(set.arena))

		if first, ok := seen[string(text)]; ok {
			dups = append(dups, Duplicate{
				Key:       string(text),
				FirstLine: first,
				DupLine:   line,
			})
		} else {
			seen[string(text)] = line
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading keys: %w", err)
	}
	return set, dups, nil
}

// LineNumbers returns the first-seen line for every duplicated key,
// sorted by that line number. It exists mainly so callers can print a
// deterministic diagnostic order regardless of map iteration order.
func LineNumbers(dups []Duplicate) []int {
	lines := make(map[int]struct{}, len(dups))
	for _, d := range dups {
		lines[d.FirstLine] = struct{}{}
	}
	out := maps.Keys(lines)
	slices.Sort(out)
	return out
}

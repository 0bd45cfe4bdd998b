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

// Package emit serializes a found perfect hash (the phash.Result
// Done-state tuple) as compilable C source: the scramble entries
// actually referenced, the tab array, the defining constants and an
// inline lookup function, per the emitter contract.
package emit

import (
	"fmt"
	"io"
	"sort"
)

// Input is everything the emitter needs; it mirrors phash.Result so
// package emit has no import-time dependency on package phash.
type Input struct {
	Name     string // C identifier prefix, e.g. "myhash"
	Strategy string // hash.Strategy.Name(), emitted as a comment only
	Salt     uint32
	Alen     uint32
	Blen     uint32
	Smax     uint32
	Tab      []uint32
	Scramble []uint32 // full table; only entries referenced by Tab are emitted
}

// widthRule is one entry of the tagged-width table Design Notes item 3
// calls for: the first rule whose predicate matches an Input picks the
// C integer type used for the emitted tab[] array.
type widthRule struct {
	ctype     string
	predicate func(in Input) bool
}

var tabWidths = []widthRule{
	{"uint8_t", func(in Input) bool { return in.Smax <= 256 || in.Blen >= 4096 }},
	{"uint16_t", func(Input) bool { return true }},
}

func (in Input) tabType() string {
	for _, r := range tabWidths {
		if r.predicate(in) {
			return r.ctype
		}
	}
	panic("emit: no width rule matched") // unreachable: the last rule is unconditional
}

// Write renders in as C source onto w. Two calls with equal Input
// values produce byte-identical output: every map-free pass over Tab
// is index order, and the referenced-scramble-entries pass is sorted.
func Write(w io.Writer, in Input) error {
	bw := &errWriter{w: w}

	fmt.Fprintf(bw, "/* generated by phashist; do not edit by hand */\n")
	fmt.Fprintf(bw, "/* hash strategy: %s */\n\n", in.Strategy)

	fmt.Fprintf(bw, "#define %s_SALT  %dU\n", in.Name, in.Salt)
	fmt.Fprintf(bw, "#define %s_ALEN  %dU\n", in.Name, in.Alen)
	fmt.Fprintf(bw, "#define %s_BLEN  %dU\n", in.Name, in.Blen)
	fmt.Fprintf(bw, "#define %s_SMAX  %dU\n", in.Name, in.Smax)
	fmt.Fprintf(bw, "#define %s_BLOG  %dU\n\n", in.Name, ilog2(in.Blen))

	if in.Blen == 0 {
		fmt.Fprintf(bw, "/* empty key set: no tab, no scramble entries */\n")
		writeLookup(bw, in)
		return bw.err
	}

	refs := referencedScramble(in.Tab)
	fmt.Fprintf(bw, "static const uint32_t %s_scramble[] = {\n", in.Name)
	for _, idx := range refs {
		fmt.Fprintf(bw, "\t[%d] = %#xU,\n", idx, in.Scramble[idx])
	}
	fmt.Fprintf(bw, "};\n\n")

	ctype := in.tabType()
	fmt.Fprintf(bw, "static const %s %s_tab[%d] = {\n", ctype, in.Name, in.Blen)
	for b, v := range in.Tab {
		fmt.Fprintf(bw, "\t%d,", v)
		if (b+1)%8 == 0 || b == len(in.Tab)-1 {
			fmt.Fprintf(bw, "\n")
		}
	}
	fmt.Fprintf(bw, "};\n\n")

	writeLookup(bw, in)
	return bw.err
}

func writeLookup(w io.Writer, in Input) {
	fmt.Fprintf(w, "/* %s_phash is the %s general hash; link it in separately. */\n", in.Name, in.Strategy)
	fmt.Fprintf(w, "extern uint32_t %s_phash(const uint8_t *key, size_t len, uint32_t seed);\n\n", in.Name)
	fmt.Fprintf(w, "static inline uint32_t\n%s_hash(const uint8_t *key, size_t len)\n{\n", in.Name)
	if in.Blen == 0 {
		fmt.Fprintf(w, "\treturn 0;\n}\n")
		return
	}
	fmt.Fprintf(w, "\tuint32_t h = %s_phash(key, len, %s_SALT * 0x9e3779b9U);\n", in.Name, in.Name)
	fmt.Fprintf(w, "\tuint32_t a = (h >> %s_BLOG) & (%s_ALEN - 1U);\n", in.Name, in.Name)
	fmt.Fprintf(w, "\tuint32_t b = h & (%s_BLEN - 1U);\n", in.Name)
	fmt.Fprintf(w, "\treturn a ^ %s_scramble[%s_tab[b]];\n}\n", in.Name, in.Name)
}

// referencedScramble returns the distinct scramble indices tab[]
// actually uses, sorted ascending, so the emitted scramble array is
// sparse (only entries a compiled lookup can reach are defined) and
// deterministic across runs regardless of tab's original order.
func referencedScramble(tab []uint32) []uint32 {
	seen := make(map[uint32]bool, len(tab))
	out := make([]uint32, 0, len(tab))
	for _, v := range tab {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ilog2(n uint32) uint32 {
	var l uint32
	for (uint32(1) << l) < n {
		l++
	}
	return l
}

// errWriter lets Write use repeated Fprintf calls without checking
// every return individually; the first error sticks and suppresses
// further writes, so the caller only needs to check err once at the
// end of the write sequence.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

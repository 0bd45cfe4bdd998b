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

// Package hash provides the family of general-purpose byte-string
// hash functions consumed by the perfect-hash construction engine in
// package phash. Every Strategy is pure and deterministic: same
// bytes, same seed, same uint32 out, forever.
package hash

import "fmt"

// Strategy is a pluggable byte-string hash. The engine consults a
// single Strategy for the lifetime of a search; it never mixes
// strategies mid-run.
type Strategy interface {
	// Name returns the strategy's flag-selectable name.
	Name() string
	// Hash returns a 32-bit digest of key under seed.
	Hash(key []byte, seed uint32) uint32
}

// Default is the strategy phashist falls back to when -hash is unset.
const Default = "icke2"

var registry = map[string]Strategy{
	"bingo":  bingoHash{},
	"murmur": murmurHash{},
	"oat":    oatHash{},
	"jsw":    jswHash{},
	"bob":    bobHash{},
	"icke2":  icke2Hash{},
}

// ByName resolves one of the six built-in strategies by its flag
// name. The result is immutable and may be shared across goroutines,
// but phashist only ever constructs one engine at a time.
func ByName(name string) (Strategy, error) {
	if name == "" {
		name = Default
	}
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown hash strategy %q (want one of bingo, murmur, oat, jsw, bob, icke2)", name)
	}
	return s, nil
}

// Names returns the built-in strategy names in the canonical order
// used by usage text, bingo first, icke2 (the default) last.
func Names() []string {
	return []string{"bingo", "murmur", "oat", "jsw", "bob", "icke2"}
}

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

package hash

import "math/bits"

// bingoHash is v <- seed; per byte v = (v*33) ^ c.
type bingoHash struct{}

func (bingoHash) Name() string { return "bingo" }

func (bingoHash) Hash(key []byte, seed uint32) uint32 {
	v := seed
	for _, c := range key {
		v *= 33
		v ^= uint32(c)
	}
	return v
}

// murmurHash is tokyocabinet's hasher: v <- seed (or a fixed constant
// when seed is zero); per byte v = v*37 + c.
type murmurHash struct{}

func (murmurHash) Name() string { return "murmur" }

func (murmurHash) Hash(key []byte, seed uint32) uint32 {
	v := seed
	if v == 0 {
		v = 19780211
	}
	for _, c := range key {
		v *= 37
		v += uint32(c)
	}
	return v
}

// oatHash is Bob Jenkins' one-at-a-time hash.
type oatHash struct{}

func (oatHash) Name() string { return "oat" }

func (oatHash) Hash(key []byte, seed uint32) uint32 {
	h := seed
	for _, c := range key {
		h += uint32(c)
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}

// jswHash is v <- seed (or a fixed constant when seed is zero); per
// byte v = rotl32(v, 1) ^ c.
type jswHash struct{}

func (jswHash) Name() string { return "jsw" }

func (jswHash) Hash(key []byte, seed uint32) uint32 {
	v := seed
	if v == 0 {
		v = 16777551
	}
	for _, c := range key {
		v = bits.RotateLeft32(v, 1) ^ uint32(c)
	}
	return v
}

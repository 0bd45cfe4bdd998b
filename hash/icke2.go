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

import "encoding/binary"

// icke2Hash forms the low bits of its result from the low bits of the
// key and the high bits from the high bits of the key: each 32-bit
// word of the key contributes its low 3 bits into an accumulator l
// and its high 5 bits into an accumulator h, the two accumulators
// rotating in opposite directions between words so that later words
// land in different bit positions than earlier ones. This is the
// default strategy.
//
// Key bytes are read as little-endian 32-bit words so the result is
// reproducible independent of host byte order.
type icke2Hash struct{}

func (icke2Hash) Name() string { return "icke2" }

func (icke2Hash) Hash(key []byte, seed uint32) uint32 {
	x := seed
	var l, h uint32

	n := len(key) / 4
	for i := 0; i < n; i++ {
		word := binary.LittleEndian.Uint32(key[i*4:])
		l ^= word & 0x07070707
		h ^= word & 0xfefefefe
		l <<= 1
		h >>= 1
	}
	for i := n * 4; i < len(key); i++ {
		l ^= uint32(key[i]) & 0x07
		h ^= uint32(key[i]) & 0xfe
		l <<= 1
		h >>= 1
	}

	l ^= l >> 6
	l ^= l >> 12
	l ^= l >> 18
	h ^= h >> 3
	h ^= h >> 11
	h ^= h >> 17
	x ^= l ^ (h << 8)
	return x
}

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

package scramble

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dchest/siphash"
	"github.com/klauspost/compress/s2"
)

// cache key constants: arbitrary but fixed, since CacheKey only needs
// to be collision-resistant across the narrow space of smax values a
// single machine will ever ask for, not cryptographically secret.
const (
	cacheK0 = 0x70686173686973ff
	cacheK1 = 0x7363616d626c6500
)

// CacheKey content-addresses a Table by the parameter it was built
// from, so a DiskCache can hand a table computed by an earlier run back
// to a later run with the same smax without recomputing permute().
func CacheKey(smax uint32) uint64 {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], smax)
	return siphash.Hash(cacheK0, cacheK1, buf[:])
}

// DiskCache persists Tables as compressed blobs under a directory,
// one file per distinct smax. It is an optimization only: every
// method degrades to "not found" rather than failing the search when
// the directory is missing, unwritable, or the blob is corrupt.
type DiskCache struct {
	dir string
}

// NewDiskCache returns a DiskCache rooted at dir. Dir is created
// lazily on first Store.
func NewDiskCache(dir string) *DiskCache {
	return &DiskCache{dir: dir}
}

// DefaultDir returns $XDG_CACHE_HOME/phashist (or the OS equivalent
// via os.UserCacheDir), or "" if neither is available.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "phashist")
}

func (c *DiskCache) path(smax uint32) string {
	return filepath.Join(c.dir, fmt.Sprintf("scramble-%016x.s2", CacheKey(smax)))
}

// Load returns the cached Table for smax, or ok=false if it is
// absent, unreadable, or does not decompress to exactly Len entries.
func (c *DiskCache) Load(smax uint32) (t Table, ok bool) {
	if c == nil || c.dir == "" {
		return nil, false
	}
	raw, err := os.ReadFile(c.path(smax))
	if err != nil {
		return nil, false
	}
	dst := make([]byte, Len*4)
	decoded, err := s2.Decode(dst, raw)
	if err != nil || len(decoded) != Len*4 {
		return nil, false
	}
	t = make(Table, Len)
	for i := range t {
		t[i] = binary.LittleEndian.Uint32(decoded[i*4:])
	}
	return t, true
}

// Store compresses and writes t under the cache directory, creating
// it if necessary. Errors are returned for callers that want to
// -no-cache on failure, but a Store failure never invalidates an
// already-found perfect hash.
func (c *DiskCache) Store(smax uint32, t Table) error {
	if c == nil || c.dir == "" {
		return fmt.Errorf("scramble: no cache directory configured")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("scramble: creating cache dir: %w", err)
	}
	raw := make([]byte, len(t)*4)
	for i, v := range t {
		binary.LittleEndian.PutUint32(raw[i*4:], v)
	}
	enc := s2.Encode(nil, raw)
	tmp := c.path(smax) + ".tmp"
	if err := os.WriteFile(tmp, enc, 0o644); err != nil {
		return fmt.Errorf("scramble: writing cache entry: %w", err)
	}
	return os.Rename(tmp, c.path(smax))
}

// Get returns a Table for smax, consulting the cache first and
// falling back to New (and populating the cache) on a miss.
func Get(c *DiskCache, smax uint32) Table {
	if t, ok := c.Load(smax); ok && t.Distinct(min32(smax, Len), smax) {
		return t
	}
	t := New(smax)
	_ = c.Store(smax, t) // best-effort; a cache write failure is not fatal
	return t
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

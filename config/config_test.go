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

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "phashist.yaml")
	writeFile(t, path, "hash: bob\nbuckets: 64\nbadKMax: 100\n")

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Hash == nil || *f.Hash != "bob" {
		t.Errorf("Hash = %v, want bob", f.Hash)
	}
	if f.Buckets == nil || *f.Buckets != 64 {
		t.Errorf("Buckets = %v, want 64", f.Buckets)
	}
	if f.BadKMax == nil || *f.BadKMax != 100 {
		t.Errorf("BadKMax = %v, want 100", f.BadKMax)
	}
	if f.BadPMax != nil {
		t.Errorf("BadPMax = %v, want nil", f.BadPMax)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestOverrides(t *testing.T) {
	hash := "murmur"
	if got := OverrideString("icke2", false, &hash); got != "murmur" {
		t.Errorf("OverrideString unset flag = %s, want murmur", got)
	}
	if got := OverrideString("icke2", true, &hash); got != "icke2" {
		t.Errorf("OverrideString set flag = %s, want icke2", got)
	}
	if got := OverrideUint32(16, false, nil); got != 16 {
		t.Errorf("OverrideUint32 nil cfg = %d, want 16", got)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

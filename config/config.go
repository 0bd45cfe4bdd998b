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

// Package config loads the optional YAML file named by phashist's
// -config flag: hash-family default, initial bucket count, and
// retry-budget overrides. Every field is a pointer so Load can report
// exactly what the file set, leaving CLI flags free to win over an
// unset field without config needing to know the flags' own defaults.
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// File is the decoded shape of a -config document.
type File struct {
	Hash     *string `json:"hash,omitempty"`
	Buckets  *uint32 `json:"buckets,omitempty"`
	BadKMax  *int    `json:"badKMax,omitempty"`
	BadPMax  *int    `json:"badPMax,omitempty"`
	CacheDir *string `json:"cacheDir,omitempty"`
	NoCache  *bool   `json:"noCache,omitempty"`
}

// Load reads and decodes path. sigs.k8s.io/yaml round-trips through
// JSON, so the file may be written as either YAML or JSON.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &f, nil
}

// OverrideString returns cfg's value if flagSet is false (the flag
// was left at its zero value) and cfg is non-nil, else cur.
func OverrideString(cur string, flagSet bool, cfg *string) string {
	if !flagSet && cfg != nil {
		return *cfg
	}
	return cur
}

// OverrideUint32 is OverrideString for uint32-valued fields.
func OverrideUint32(cur uint32, flagSet bool, cfg *uint32) uint32 {
	if !flagSet && cfg != nil {
		return *cfg
	}
	return cur
}

// OverrideInt is OverrideString for int-valued fields.
func OverrideInt(cur int, flagSet bool, cfg *int) int {
	if !flagSet && cfg != nil {
		return *cfg
	}
	return cur
}

// OverrideBool is OverrideString for bool-valued fields.
func OverrideBool(cur bool, flagSet bool, cfg *bool) bool {
	if !flagSet && cfg != nil {
		return *cfg
	}
	return cur
}

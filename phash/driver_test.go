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
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/arrufat/phashist/hash"
	"github.com/arrufat/phashist/keys"
)

func keysFrom(lines ...string) *keys.Set {
	ks, _, err := keys.ReadLines(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		panic(err)
	}
	return ks
}

// checkPerfect replays H(key) for every key under the result's
// parameters and fails the test if any two keys collide, or if any
// emitted value falls outside [0, alen).
func checkPerfect(t *testing.T, ks *keys.Set, strat hash.Strategy, res *Result) {
	t.Helper()
	if ks.Len() == 0 {
		return
	}
	ilev := res.Salt * goldenRatio32
	alog := ilog2(res.Alen)
	blog := ilog2(res.Blen)

	seen := make(map[uint32]int, ks.Len())
	for i := 0; i < ks.Len(); i++ {
		h := strat.Hash(ks.Key(i), ilev)
		var a, b uint32
		if alog > 0 {
			a = (h >> blog) & (res.Alen - 1)
		}
		if blog > 0 {
			b = h & (res.Blen - 1)
		}
		out := a ^ res.Scramble[res.Tab[b]]
		if out >= res.Alen {
			t.Fatalf("key %q: H=%d out of range [0, %d)", ks.Key(i), out, res.Alen)
		}
		if prev, ok := seen[out]; ok {
			t.Fatalf("keys %q and %q (indices %d, %d) collide at H=%d", ks.Key(prev), ks.Key(i), prev, i, out)
		}
		seen[out] = i
	}
}

func mustBuild(t *testing.T, ks *keys.Set, strategyName string) *Result {
	t.Helper()
	strat, err := hash.ByName(strategyName)
	if err != nil {
		t.Fatal(err)
	}
	d := NewDriver(ks, strat, DefaultBudget, nil)
	res, err := d.Run()
	if err != nil {
		t.Fatalf("Run: %s", err)
	}
	return res
}

func TestRunEmptySet(t *testing.T) {
	ks := keysFrom()
	res := mustBuild(t, ks, "icke2")
	if res.Blen != 0 || res.Alen != 0 {
		t.Errorf("empty key set should collapse to all-zero parameters, got alen=%d blen=%d", res.Alen, res.Blen)
	}
	if len(res.Tab) != 0 {
		t.Errorf("empty key set should emit no tab entries, got %d", len(res.Tab))
	}
}

func TestRunSingleKey(t *testing.T) {
	ks := keysFrom("GET")
	strat, _ := hash.ByName("icke2")
	res := mustBuild(t, ks, "icke2")
	checkPerfect(t, ks, strat, res)
}

func TestRunHTTPVerbs(t *testing.T) {
	verbs := []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS", "PATCH", "TRACE", "CONNECT"}
	ks := keysFrom(verbs...)
	for _, name := range hash.Names() {
		strat, _ := hash.ByName(name)
		res := mustBuild(t, ks, name)
		checkPerfect(t, ks, strat, res)
	}
}

func TestRunIsPowerOfTwoInvariant(t *testing.T) {
	ks := keysFrom("GET", "PUT", "POST", "DELETE", "HEAD")
	res := mustBuild(t, ks, "icke2")
	for _, n := range []uint32{res.Alen, res.Blen, res.Smax} {
		if n&(n-1) != 0 {
			t.Errorf("%d is not a power of two", n)
		}
	}
}

func TestRunDuplicateKeysFailCleanly(t *testing.T) {
	ks, dups, err := keys.ReadLines(strings.NewReader("foo\nbar\nfoo\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(dups) != 1 {
		t.Fatalf("expected 1 duplicate diagnostic, got %d", len(dups))
	}
	if ks.Len() != 3 {
		t.Fatalf("ReadLines should keep every line including the repeat, got %d keys", ks.Len())
	}
	// A perfect hash over a literal duplicate is unsolvable (two
	// identical keys always produce the same a, b, and therefore the
	// same H), so construction must fail cleanly rather than hang or
	// silently drop the repeat.
	strat, _ := hash.ByName("icke2")
	d := NewDriver(ks, strat, Budget{BadKMax: 64, BadPMax: 1}, nil)
	if _, err := d.Run(); err == nil {
		t.Fatal("expected ErrExhausted for an unresolvable duplicate key, got nil")
	}
}

func TestRunRandomKeySet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	lines := make([]string, 1024)
	seen := make(map[string]bool, 1024)
	for i := range lines {
		for {
			buf := make([]byte, 8)
			rng.Read(buf)
			if bytes.IndexByte(buf, '\n') >= 0 {
				continue // keysFrom is newline-delimited; a stray \n would split the key
			}
			s := string(buf)
			if !seen[s] {
				seen[s] = true
				lines[i] = s
				break
			}
		}
	}
	ks := keysFrom(lines...)
	if ks.Len() != 1024 {
		t.Fatalf("built %d keys, want 1024", ks.Len())
	}
	strat, _ := hash.ByName("icke2")
	res := mustBuild(t, ks, "icke2")
	checkPerfect(t, ks, strat, res)
	if res.Smax != 1024 {
		t.Errorf("Smax = %d, want 1024 (next power of two at least n, and n is already a power of two)", res.Smax)
	}
}

func TestRunDeterministicAcrossRuns(t *testing.T) {
	ks := keysFrom("alpha", "bravo", "charlie", "delta", "echo", "foxtrot")
	a := mustBuild(t, ks, "icke2")
	b := mustBuild(t, ks, "icke2")
	if a.Salt != b.Salt || a.Alen != b.Alen || a.Blen != b.Blen {
		t.Fatalf("two runs over identical input diverged: %+v vs %+v", a, b)
	}
	for i := range a.Tab {
		if a.Tab[i] != b.Tab[i] {
			t.Fatalf("tab[%d] differs between runs: %d vs %d", i, a.Tab[i], b.Tab[i])
		}
	}
}

func TestGuessLengthsPowersOfTwo(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 9, 100, 1000, 100000} {
		alen, blen, smax := GuessLengths(n)
		for name, v := range map[string]uint32{"alen": alen, "blen": blen, "smax": smax} {
			if v != 0 && v&(v-1) != 0 {
				t.Errorf("GuessLengths(%d).%s = %d, not a power of two", n, name, v)
			}
		}
		if n > 0 && smax < uint32(n) {
			t.Errorf("GuessLengths(%d).smax = %d, want >= %d", n, smax, n)
		}
	}
}

func TestDiagWritesToConfiguredWriter(t *testing.T) {
	ks := keysFrom("a", "b", "c")
	strat, _ := hash.ByName("icke2")
	d := NewDriver(ks, strat, DefaultBudget, nil)
	var buf bytes.Buffer
	d.Diag = &buf
	if _, err := d.Run(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), fmt.Sprintf("[%s]", d.ID)) {
		t.Errorf("diagnostic output missing driver ID prefix: %q", buf.String())
	}
}

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

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/cpu"

	"github.com/arrufat/phashist/config"
	"github.com/arrufat/phashist/emit"
	"github.com/arrufat/phashist/hash"
	"github.com/arrufat/phashist/keys"
	"github.com/arrufat/phashist/phash"
	"github.com/arrufat/phashist/scramble"
)

var (
	dashHash     string
	dashBuckets  uint
	dashK        int
	dashLower    uint
	dashConfig   string
	dashNoCache  bool
	dashCacheDir string
	dashName     string
)

func init() {
	flag.StringVar(&dashHash, "hash", "", "hash family: "+strings.Join(hash.Names(), "|")+" (default icke2)")
	flag.UintVar(&dashBuckets, "buckets", 0, "override the initial blen guess (diagnostic use)")
	flag.IntVar(&dashK, "k", 1, "k-perfect mode: allow up to k keys per slot")
	flag.UintVar(&dashLower, "lower", 32, "print: mask phash(key,0) to the low N bits")
	flag.StringVar(&dashConfig, "config", "", "YAML config file overriding hash family, buckets and retry budgets")
	flag.BoolVar(&dashNoCache, "no-cache", false, "disable the on-disk scramble table cache")
	flag.StringVar(&dashCacheDir, "cache-dir", "", "override the scramble table cache directory")
	flag.StringVar(&dashName, "name", "phashist", "C identifier prefix for build's emitted symbols")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	if !strings.HasSuffix(f, "\n") {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(1)
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func loadKeys(path string) *keys.Set {
	var r *os.File = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			exitf("opening %s: %s", path, err)
		}
		defer f.Close()
		r = f
	}
	ks, dups, err := keys.ReadLines(r)
	if err != nil {
		exitf("reading keys: %s", err)
	}
	for _, d := range dups {
		fmt.Fprintf(os.Stderr, "duplicate key %q: lines %d and %d\n", d.Key, d.FirstLine, d.DupLine)
	}
	return ks
}

func loadConfig() *config.File {
	if dashConfig == "" {
		return &config.File{}
	}
	cfg, err := config.Load(dashConfig)
	if err != nil {
		exitf("%s", err)
	}
	return cfg
}

func resolveStrategy(cfg *config.File) hash.Strategy {
	name := config.OverrideString(dashHash, flagWasSet("hash"), cfg.Hash)
	strat, err := hash.ByName(name)
	if err != nil {
		exitf("%s", err)
	}
	return strat
}

func cacheDir(cfg *config.File) string {
	noCache := config.OverrideBool(dashNoCache, flagWasSet("no-cache"), cfg.NoCache)
	if noCache {
		return ""
	}
	dir := config.OverrideString(dashCacheDir, flagWasSet("cache-dir"), cfg.CacheDir)
	if dir != "" {
		return dir
	}
	return scramble.DefaultDir()
}

func cmdBuild(path string) {
	ks := loadKeys(path)
	cfg := loadConfig()
	strat := resolveStrategy(cfg)

	budget := phash.DefaultBudget
	budget.BadKMax = config.OverrideInt(budget.BadKMax, false, cfg.BadKMax)
	budget.BadPMax = config.OverrideInt(budget.BadPMax, false, cfg.BadPMax)

	var cache *scramble.DiskCache
	if dir := cacheDir(cfg); dir != "" {
		cache = scramble.NewDiskCache(dir)
	}

	d := phash.NewDriver(ks, strat, budget, cache)
	d.Diag = os.Stderr
	buckets := config.OverrideUint32(uint32(dashBuckets), flagWasSet("buckets"), cfg.Buckets)
	if buckets > 0 {
		d.SetInitialBlen(buckets)
	}
	if dashK > 1 {
		d.SetMaxPerSlot(dashK)
	}

	res, err := d.Run()
	if err != nil {
		exitf("%s", err)
	}

	if err := emit.Write(os.Stdout, emit.Input{
		Name:     dashName,
		Strategy: res.Strategy,
		Salt:     res.Salt,
		Alen:     res.Alen,
		Blen:     res.Blen,
		Smax:     res.Smax,
		Tab:      res.Tab,
		Scramble: res.Scramble,
	}); err != nil {
		exitf("emitting hash: %s", err)
	}
}

func cmdPrint(path string) {
	ks := loadKeys(path)
	strat := resolveStrategy(loadConfig())

	var mask uint32 = 0xffffffff
	if dashLower < 32 {
		mask = 1<<dashLower - 1
	}
	for i := 0; i < ks.Len(); i++ {
		h := strat.Hash(ks.Key(i), 0) & mask
		width := (dashLower + 3) / 4
		if width == 0 {
			width = 8
		}
		fmt.Printf("%0*x\t%s\n", width, h, ks.Key(i))
	}
}

func cmdPerf(path string) {
	ks := loadKeys(path)
	strat := resolveStrategy(loadConfig())

	fmt.Fprintf(os.Stderr, "cpu: avx2=%v sse42=%v\n", cpu.X86.HasAVX2, cpu.X86.HasSSE42)

	const rounds = 1000000
	var sum uint64
	start := time.Now()
	for r := 0; r < rounds; r++ {
		for i := 0; i < ks.Len(); i++ {
			sum += uint64(strat.Hash(ks.Key(i), uint32(r)))
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("%d\n", sum)
	fmt.Fprintf(os.Stderr, "%d hashes in %s\n", rounds*ks.Len(), elapsed)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "    %s build [keyfile]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        find a perfect hash and emit C source\n")
	fmt.Fprintf(os.Stderr, "    %s print [--lower N] [keyfile]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        print phash(key, 0) masked to the low N bits\n")
	fmt.Fprintf(os.Stderr, "    %s perf [keyfile]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        hash every key 1,000,000 times and print the sum\n")
	fmt.Fprintf(os.Stderr, "flag usage:\n")
	flag.Usage()
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	// flags may also follow the subcommand, e.g. `print --lower 8 keys`
	cmd := args[0]
	flag.CommandLine.Parse(args[1:])
	args = flag.Args()

	var path string
	if len(args) > 0 {
		path = args[0]
	}

	switch cmd {
	case "build":
		cmdBuild(path)
	case "print":
		cmdPrint(path)
	case "perf":
		cmdPerf(path)
	default:
		usage()
		os.Exit(1)
	}
}

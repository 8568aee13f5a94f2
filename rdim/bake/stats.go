// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aclements/go-moremath/stats"

	"github.com/aclements/go-rdi/internal/intern"
	"github.com/aclements/go-rdi/rdi"
)

// Stats describes a bake.
type Stats struct {
	Workers       int
	ResolvedTypes int

	// String interning. StringInserts counts duplicates; Strings
	// does not include the empty string.
	StringSlots   int
	StringInserts int
	Strings       int
	StringBytes   int

	// Chains is the distribution of distinct strings per non-empty
	// slot. Long chains mean the slot estimate was too small.
	Chains          Dist
	ChainMean       float64
	ChainStdDev     float64
	ChainMin        float64
	ChainMax        float64
	EmptySlotsRatio float64

	IndexRuns int

	Sections [rdi.SectionCount]SectionStats
}

// SectionStats are the sizes of one section.
type SectionStats struct {
	Encoding     rdi.Encoding
	EncodedSize  uint64
	UnpackedSize uint64
}

func (s *Stats) setStrings(top intern.Topology, strs *intern.Tight[string], chains []int) {
	s.StringSlots = top.Slots
	s.Strings = strs.Count() - 1
	strs.Each(func(_ uint32, v string) {
		s.StringBytes += len(v)
	})
	if len(chains) == 0 {
		s.EmptySlotsRatio = 1
		return
	}
	xs := make([]float64, len(chains))
	for i, c := range chains {
		xs[i] = float64(c)
		s.Chains.Add(c)
	}
	s.ChainMean = stats.Mean(xs)
	if len(xs) > 1 {
		s.ChainStdDev = stats.StdDev(xs)
	}
	s.ChainMin, s.ChainMax = stats.Bounds(xs)
	s.EmptySlotsRatio = 1 - float64(len(chains))/float64(top.Slots)
}

func (s *Stats) setSections(b *rdi.Bundle) {
	for k, sec := range b.Sections {
		s.Sections[k] = SectionStats{
			Encoding:     sec.Encoding,
			EncodedSize:  sec.EncodedSize,
			UnpackedSize: sec.UnpackedSize,
		}
	}
}

// Fprint writes a report of s to w.
func (s *Stats) Fprint(w io.Writer) {
	fmt.Fprintf(w, "workers: %d\n", s.Workers)
	fmt.Fprintf(w, "resolved incomplete types: %d\n", s.ResolvedTypes)
	fmt.Fprintf(w, "strings: %d distinct (%d bytes) from %d inserts in %d slots\n", s.Strings, s.StringBytes, s.StringInserts, s.StringSlots)
	if len(s.Chains.vals) > 0 {
		fmt.Fprintf(w, "slot chains: mean %.2f stddev %.2f range [%g, %g], %.1f%% slots empty\n", s.ChainMean, s.ChainStdDev, s.ChainMin, s.ChainMax, 100*s.EmptySlotsRatio)
		fmt.Fprintf(w, "%s\n", s.Chains.StringSummary())
	}
	fmt.Fprintf(w, "index runs: %d\n", s.IndexRuns)
	var enc, unpacked uint64
	for k, sec := range s.Sections {
		if sec.UnpackedSize == 0 {
			continue
		}
		fmt.Fprintf(w, "%-22s %-5v %10d %10d\n", rdi.SectionKind(k), sec.Encoding, sec.EncodedSize, sec.UnpackedSize)
		enc += sec.EncodedSize
		unpacked += sec.UnpackedSize
	}
	fmt.Fprintf(w, "%-22s %-5s %10d %10d\n", "total", "", enc, unpacked)
}

// Dist is a distribution of integer values.
type Dist struct {
	vals   []int
	sorted bool
}

func (d *Dist) Add(val int) {
	d.vals = append(d.vals, val)
	d.sorted = false
}

// Len returns the number of values in d.
func (d *Dist) Len() int {
	return len(d.vals)
}

// Quantile returns the q'th quantile of d. d must not be empty.
func (d *Dist) Quantile(q float64) int {
	if !d.sorted {
		sort.Ints(d.vals)
		d.sorted = true
	}
	i := int((q * float64(len(d.vals)-1)) + 0.5)
	return d.vals[i]
}

// StringSummary returns the deciles of d as two table rows.
func (d *Dist) StringSummary() string {
	const qs = 10
	var out strings.Builder
	for i := 0; i <= qs; i++ {
		fmt.Fprintf(&out, " %7s", fmt.Sprintf("p%d", i*100/qs))
	}
	out.WriteByte('\n')
	for i := 0; i <= qs; i++ {
		v := d.Quantile(float64(i) / qs)
		fmt.Fprintf(&out, " %7d", v)
	}
	fmt.Fprintf(&out, " N=%d", len(d.vals))
	return out.String()
}

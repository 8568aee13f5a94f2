// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"golang.org/x/exp/slices"

	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

// vmapRange is a range owned by the entity with index idx.
type vmapRange struct {
	r   rdim.Rng1U64
	idx uint32
}

type vmapMarker struct {
	voff  uint64
	id    int // Index of the range in the input
	begin bool
	size  uint64
}

// bakeVMap returns the virtual-address map of ranges. Each address
// maps to the innermost range containing it: the most recently begun
// range that has not ended. Where ranges begin at the same address,
// the shorter range is the inner one. Gaps map to 0, adjacent entries
// never share an index, and the map ends with an entry mapping the end
// of the last range to 0.
func bakeVMap(ranges []vmapRange) []rdi.VMapEntry {
	markers := make([]vmapMarker, 0, 2*len(ranges))
	for i, r := range ranges {
		if r.r.Len() == 0 {
			continue
		}
		markers = append(markers,
			vmapMarker{voff: r.r.Min, id: i, begin: true, size: r.r.Len()},
			vmapMarker{voff: r.r.Max, id: i, begin: false, size: r.r.Len()})
	}
	slices.SortStableFunc(markers, func(a, b vmapMarker) int {
		switch {
		case a.voff != b.voff:
			if a.voff < b.voff {
				return -1
			}
			return 1
		case a.begin != b.begin:
			// Ends before begins.
			if !a.begin {
				return -1
			}
			return 1
		case a.begin && a.size != b.size:
			// Longer (outer) ranges begin first.
			if a.size > b.size {
				return -1
			}
			return 1
		}
		return 0
	})

	var out []rdi.VMapEntry
	ended := make([]bool, len(ranges))
	var stack []int
	owner := func() uint64 {
		for len(stack) > 0 && ended[stack[len(stack)-1]] {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			return 0
		}
		return uint64(ranges[stack[len(stack)-1]].idx)
	}
	for i := 0; i < len(markers); {
		voff := markers[i].voff
		for ; i < len(markers) && markers[i].voff == voff; i++ {
			if markers[i].begin {
				stack = append(stack, markers[i].id)
			} else {
				ended[markers[i].id] = true
			}
		}
		idx := owner()
		switch {
		case len(out) > 0 && out[len(out)-1].Idx == idx:
			// Same owner continues.
		case len(out) == 0 && idx == 0:
		default:
			out = append(out, rdi.VMapEntry{Voff: voff, Idx: idx})
		}
	}
	return out
}

func bakeUnitVMap(e *env) []rdi.VMapEntry {
	var ranges []vmapRange
	e.model.Units.Each(func(u *rdim.Unit) {
		for _, r := range u.VoffRanges {
			ranges = append(ranges, vmapRange{r, u.Idx})
		}
	})
	return bakeVMap(ranges)
}

// bakeGlobalVMap maps each global variable's storage. A variable of
// unknown size covers one byte.
func bakeGlobalVMap(e *env) []rdi.VMapEntry {
	var ranges []vmapRange
	e.model.GlobalVariables.Each(func(s *rdim.Symbol) {
		size := uint64(1)
		if s.Type != nil && s.Type.ByteSize > 0 {
			size = uint64(s.Type.ByteSize)
		}
		ranges = append(ranges, vmapRange{rdim.Rng1U64{Min: s.Offset, Max: s.Offset + size}, s.Idx})
	})
	return bakeVMap(ranges)
}

func bakeScopeVMap(e *env) []rdi.VMapEntry {
	var ranges []vmapRange
	e.model.Scopes.Each(func(s *rdim.Scope) {
		for _, r := range s.VoffRanges {
			ranges = append(ranges, vmapRange{r, s.Idx})
		}
	})
	return bakeVMap(ranges)
}

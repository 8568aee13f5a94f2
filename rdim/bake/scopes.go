// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"math"

	"github.com/aclements/go-rdi/internal/intern"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

// locationBuffer is the private location output of one task. Block
// indexes and data offsets are relative to the buffer until
// relocateLocations places it in the final tables.
type locationBuffer struct {
	blocks []rdi.LocationBlock
	data   []byte
}

// add appends the blocks of cases, with ranges relative to base, and
// returns their index range in b. An empty range means cases is
// empty.
func (b *locationBuffer) add(base uint64, cases []rdim.LocationCase) (first, opl uint32) {
	first = u32(len(b.blocks))
	for _, c := range cases {
		if c.Location == nil {
			continue
		}
		blk := rdi.LocationBlock{LocationDataOff: u32(len(b.data))}
		if c.VoffRange.Len() == 0 {
			blk.ScopeOffFirst, blk.ScopeOffOpl = 0, math.MaxUint32
		} else {
			blk.ScopeOffFirst = u32(c.VoffRange.Min - base)
			blk.ScopeOffOpl = u32(c.VoffRange.Max - base)
		}
		b.blocks = append(b.blocks, blk)
		b.data = c.Location.AppendEncoded(b.data)
	}
	return first, u32(len(b.blocks))
}

type scopesResult struct {
	scopes []rdi.Scope
	voffs  []uint64 // Flattened [min, max) pairs
	locals []rdi.Local
	locs   locationBuffer
}

func bakeScopes(e *env, strs *intern.Tight[string]) scopesResult {
	m := e.model
	ntypes, nprocs, nsites := m.Types.Len(), m.Procedures.Len(), m.InlineSites.Len()
	out := scopesResult{
		scopes: make([]rdi.Scope, 1, m.Scopes.Len()+1),
		locals: make([]rdi.Local, 1),
	}
	m.Scopes.Each(func(s *rdim.Scope) {
		sc := rdi.Scope{
			ProcIdx:             rdim.SymbolIdx(s.Symbol),
			ParentScopeIdx:      rdim.ScopeIdx(s.Parent),
			FirstChildScopeIdx:  rdim.ScopeIdx(s.FirstChild),
			NextSiblingScopeIdx: rdim.ScopeIdx(s.NextSibling),
			InlineSiteIdx:       rdim.InlineSiteIdx(s.InlineSite),
		}
		idxCheck("scope procedure", sc.ProcIdx, nprocs)
		idxCheck("inline site", sc.InlineSiteIdx, nsites)

		sc.VoffRangeFirst = u32(len(out.voffs))
		for _, r := range s.VoffRanges {
			out.voffs = append(out.voffs, r.Min, r.Max)
		}
		sc.VoffRangeOpl = u32(len(out.voffs))

		base := s.VoffBase()
		sc.LocalFirst = u32(len(out.locals))
		sc.LocalCount = u32(len(s.Locals))
		for _, l := range s.Locals {
			loc := rdi.Local{
				Kind:          l.Kind,
				NameStringIdx: strs.Index(l.Name),
				TypeIdx:       rdim.TypeIdx(l.Type),
			}
			idxCheck("local type", loc.TypeIdx, ntypes)
			loc.LocationFirst, loc.LocationOpl = out.locs.add(base, l.Locations)
			out.locals = append(out.locals, loc)
		}
		out.scopes = append(out.scopes, sc)
	})
	return out
}

type locationsResult struct {
	blocks []rdi.LocationBlock
	data   []byte
}

// relocateLocations concatenates the location buffers of scopes and
// procedures into the final tables, laid out as the null block, then
// the scope blocks, then the procedure blocks. It rewrites the
// location ranges of locals and procedures to final block indexes.
func relocateLocations(scopes *scopesResult, procs *proceduresResult) locationsResult {
	out := locationsResult{blocks: make([]rdi.LocationBlock, 1)}
	place := func(buf *locationBuffer) (blockBase uint32) {
		blockBase = u32(len(out.blocks))
		dataBase := u32(len(out.data))
		for _, blk := range buf.blocks {
			blk.LocationDataOff += dataBase
			out.blocks = append(out.blocks, blk)
		}
		out.data = append(out.data, buf.data...)
		return blockBase
	}
	reloc := func(first, opl *uint32, base uint32) {
		if *first == *opl {
			*first, *opl = 0, 0
			return
		}
		*first += base
		*opl += base
	}

	base := place(&scopes.locs)
	for i := 1; i < len(scopes.locals); i++ {
		l := &scopes.locals[i]
		reloc(&l.LocationFirst, &l.LocationOpl, base)
	}
	base = place(&procs.locs)
	for i := 1; i < len(procs.procs); i++ {
		p := &procs.procs[i]
		reloc(&p.FrameBaseLocationFirst, &p.FrameBaseLocationOpl, base)
	}
	return out
}

func bakeInlineSites(e *env, strs *intern.Tight[string]) []rdi.InlineSite {
	m := e.model
	ntypes := m.Types.Len()
	out := make([]rdi.InlineSite, 1, m.InlineSites.Len()+1)
	m.InlineSites.Each(func(s *rdim.InlineSite) {
		site := rdi.InlineSite{
			NameStringIdx: strs.Index(s.Name),
			TypeIdx:       rdim.TypeIdx(s.Type),
			OwnerTypeIdx:  rdim.TypeIdx(s.Owner),
			LineTableIdx:  rdim.LineTableIdx(s.LineTable),
		}
		idxCheck("inline site type", site.TypeIdx, ntypes)
		idxCheck("inline site owner", site.OwnerTypeIdx, ntypes)
		out = append(out, site)
	})
	return out
}

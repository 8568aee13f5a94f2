// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"github.com/aclements/go-rdi/internal/intern"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

func bakeGlobalVariables(e *env, strs *intern.Tight[string]) []rdi.GlobalVariable {
	m := e.model
	ntypes := m.Types.Len()
	out := make([]rdi.GlobalVariable, 1, m.GlobalVariables.Len()+1)
	m.GlobalVariables.Each(func(s *rdim.Symbol) {
		g := rdi.GlobalVariable{
			NameStringIdx: strs.Index(s.Name),
			LinkFlags:     s.LinkFlags(),
			Voff:          s.Offset,
			TypeIdx:       rdim.TypeIdx(s.Type),
			ContainerIdx:  s.ContainerIdx(),
		}
		idxCheck("global type", g.TypeIdx, ntypes)
		out = append(out, g)
	})
	return out
}

func bakeThreadVariables(e *env, strs *intern.Tight[string]) []rdi.ThreadVariable {
	m := e.model
	ntypes := m.Types.Len()
	out := make([]rdi.ThreadVariable, 1, m.ThreadVariables.Len()+1)
	m.ThreadVariables.Each(func(s *rdim.Symbol) {
		tv := rdi.ThreadVariable{
			NameStringIdx: strs.Index(s.Name),
			LinkFlags:     s.LinkFlags(),
			TLSOff:        u32(s.Offset),
			TypeIdx:       rdim.TypeIdx(s.Type),
			ContainerIdx:  s.ContainerIdx(),
		}
		idxCheck("thread variable type", tv.TypeIdx, ntypes)
		out = append(out, tv)
	})
	return out
}

type constantsResult struct {
	constants []rdi.Constant
	data      []byte
	table     []uint32
}

// bakeConstants lays out constants and their values. Constant i's
// value is data[table[i]:table[i+1]]; the null constant's value is
// empty.
func bakeConstants(e *env, strs *intern.Tight[string]) constantsResult {
	m := e.model
	n := m.Constants.Len()
	ntypes := m.Types.Len()
	out := constantsResult{
		constants: make([]rdi.Constant, 1, n+1),
		table:     make([]uint32, 1, n+2),
	}
	m.Constants.Each(func(s *rdim.Symbol) {
		rec := rdi.Constant{
			NameStringIdx:    strs.Index(s.Name),
			TypeIdx:          rdim.TypeIdx(s.Type),
			ConstantValueIdx: s.Idx,
		}
		idxCheck("constant type", rec.TypeIdx, ntypes)
		out.table = append(out.table, u32(len(out.data)))
		out.data = append(out.data, s.Value...)
		out.constants = append(out.constants, rec)
	})
	out.table = append(out.table, u32(len(out.data)))
	return out
}

type proceduresResult struct {
	procs []rdi.Procedure
	locs  locationBuffer
}

// bakeProcedures lays out procedures. Frame base locations go to a
// private location buffer; relocateLocations fixes up their indexes.
func bakeProcedures(e *env, strs *intern.Tight[string]) proceduresResult {
	m := e.model
	ntypes, nscopes := m.Types.Len(), m.Scopes.Len()
	out := proceduresResult{procs: make([]rdi.Procedure, 1, m.Procedures.Len()+1)}
	m.Procedures.Each(func(s *rdim.Symbol) {
		p := rdi.Procedure{
			NameStringIdx:     strs.Index(s.Name),
			LinkNameStringIdx: strs.Index(s.LinkName),
			LinkFlags:         s.LinkFlags(),
			TypeIdx:           rdim.TypeIdx(s.Type),
			RootScopeIdx:      rdim.ScopeIdx(s.RootScope),
			ContainerIdx:      s.ContainerIdx(),
		}
		idxCheck("procedure type", p.TypeIdx, ntypes)
		idxCheck("root scope", p.RootScopeIdx, nscopes)
		p.FrameBaseLocationFirst, p.FrameBaseLocationOpl = out.locs.add(s.RootScope.VoffBase(), s.FrameBase)
		out.procs = append(out.procs, p)
	})
	return out
}

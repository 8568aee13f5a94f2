// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"github.com/aclements/go-rdi/internal/intern"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

func bakeTypeNodes(e *env, strs *intern.Tight[string], runs *intern.Tight[[]uint32], runFirst []uint32) []rdi.TypeNode {
	m := e.model
	ntypes, nudts := m.Types.Len(), m.UDTs.Len()
	out := make([]rdi.TypeNode, 1, ntypes+1)
	m.Types.Each(func(t *rdim.Type) {
		node := rdi.TypeNode{
			Kind:          t.Kind,
			Flags:         t.Flags,
			ByteSize:      t.ByteSize,
			NameStringIdx: strs.Index(t.Name),
			DirectTypeIdx: rdim.TypeIdx(t.DirectType),
			Count:         t.Count,
			UDTIdx:        rdim.UDTIdx(t.UDT),
			Off:           t.Off,
		}
		idxCheck("direct type", node.DirectTypeIdx, ntypes)
		idxCheck("UDT", node.UDTIdx, nudts)
		if run := paramRun(t); len(run) > 0 {
			for _, p := range run {
				idxCheck("parameter type", p, ntypes)
			}
			node.IdxRunFirst = runFirst[runs.Index(run)]
			if t.Kind == rdi.TypeKindFunction || t.Kind == rdi.TypeKindMethod {
				node.Count = u32(len(run))
			}
		}
		out = append(out, node)
	})
	return out
}

type udtsResult struct {
	udts        []rdi.UDT
	members     []rdi.Member
	enumMembers []rdi.EnumMember
}

// bakeUDTs lays out every UDT with its members. A UDT with enum
// values indexes EnumMembers instead of Members.
func bakeUDTs(e *env, strs *intern.Tight[string]) udtsResult {
	m := e.model
	ntypes := m.Types.Len()
	out := udtsResult{
		udts:        make([]rdi.UDT, 1, m.UDTs.Len()+1),
		members:     make([]rdi.Member, 1),
		enumMembers: make([]rdi.EnumMember, 1),
	}
	m.UDTs.Each(func(u *rdim.UDT) {
		rec := rdi.UDT{
			SelfTypeIdx: rdim.TypeIdx(u.SelfType),
			FileIdx:     rdim.SrcFileIdx(u.SrcFile),
			Line:        u.Line,
			Col:         u.Col,
		}
		idxCheck("UDT self type", rec.SelfTypeIdx, ntypes)
		if len(u.EnumVals) > 0 {
			rec.Flags |= rdi.UDTEnumMembers
			rec.MemberFirst = u32(len(out.enumMembers))
			rec.MemberCount = u32(len(u.EnumVals))
			for _, v := range u.EnumVals {
				out.enumMembers = append(out.enumMembers, rdi.EnumMember{
					NameStringIdx: strs.Index(v.Name),
					Val:           v.Val,
				})
			}
		} else if len(u.Members) > 0 {
			rec.MemberFirst = u32(len(out.members))
			rec.MemberCount = u32(len(u.Members))
			for _, mem := range u.Members {
				rm := rdi.Member{
					Kind:          mem.Kind,
					NameStringIdx: strs.Index(mem.Name),
					TypeIdx:       rdim.TypeIdx(mem.Type),
					Off:           mem.Off,
				}
				idxCheck("member type", rm.TypeIdx, ntypes)
				out.members = append(out.members, rm)
			}
		}
		out.udts = append(out.udts, rec)
	})
	return out
}

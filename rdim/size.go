// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdim

import (
	"fmt"

	"github.com/aclements/go-rdi/internal/typegraph"
	"github.com/aclements/go-rdi/rdi"
)

// TypeGraph returns the reference graph of m's types. Node i is the
// type with index i; node 0 is the null type. Edges follow direct and
// parameter types, so the graph may have cycles through pointers and
// functions.
func TypeGraph(m *Model) typegraph.IntGraph {
	g := make(typegraph.IntGraph, m.Types.Len()+1)
	g[0] = []int{}
	m.Types.Each(func(t *Type) {
		var out []int
		if t.DirectType != nil {
			out = append(out, int(t.DirectType.Idx))
		}
		for _, p := range t.ParamTypes {
			if p != nil {
				out = append(out, int(p.Idx))
			}
		}
		g[t.Idx] = out
	})
	return g
}

// sizeFromDirect reports whether the size of a type of kind k is
// derived from its direct type.
func sizeFromDirect(k rdi.TypeKind) bool {
	switch k {
	case rdi.TypeKindModifier, rdi.TypeKindAlias, rdi.TypeKindEnum, rdi.TypeKindBitfield, rdi.TypeKindArray:
		return true
	}
	return false
}

// SizeGraph returns the size dependency graph of m's types. It is the
// subgraph of TypeGraph with only the direct type edges of types whose
// size derives from their direct type. Pointers, references, and
// functions have no out edges, so it is acyclic unless a type contains
// itself.
func SizeGraph(m *Model) typegraph.IntGraph {
	g := make(typegraph.IntGraph, m.Types.Len()+1)
	g[0] = []int{}
	m.Types.Each(func(t *Type) {
		if t.DirectType != nil && sizeFromDirect(t.Kind) {
			g[t.Idx] = []int{int(t.DirectType.Idx)}
		} else {
			g[t.Idx] = []int{}
		}
	})
	return g
}

// ComputeTypeSizes fills in the byte size of every type whose size is
// zero and can be derived: built-in sizes, pointer sizes from arch,
// the size of the direct type for modifiers, aliases, enums, and
// bitfields, and count times the element size for arrays. Types are
// visited in post-order so a type's dependencies are sized first.
//
// Null and incomplete types have size 0. A cycle in SizeGraph, such
// as two aliases of each other, panics.
func ComputeTypeSizes(m *Model, arch rdi.Arch) {
	order, err := typegraph.PostOrder(SizeGraph(m))
	if err != nil {
		panic(fmt.Sprintf("rdim: computing type sizes: %v", err))
	}
	types := make([]*Type, m.Types.Len()+1)
	m.Types.Each(func(t *Type) { types[t.Idx] = t })

	addr := arch.AddrSize()
	for _, idx := range order {
		t := types[idx]
		if t == nil {
			continue
		}
		if t.Kind.IsNull() || t.Kind.IsIncomplete() {
			t.ByteSize = 0
			continue
		}
		if t.ByteSize != 0 {
			continue
		}
		direct := uint32(0)
		if t.DirectType != nil {
			direct = t.DirectType.ByteSize
		}
		switch k := t.Kind; {
		case k.IsBuiltIn():
			t.ByteSize = k.BuiltInSize(addr)
		case k == rdi.TypeKindPtr, k == rdi.TypeKindLRef, k == rdi.TypeKindRRef, k == rdi.TypeKindMemberPtr:
			t.ByteSize = addr
		case k == rdi.TypeKindArray:
			t.ByteSize = t.Count * direct
		case sizeFromDirect(k):
			t.ByteSize = direct
		}
	}
}

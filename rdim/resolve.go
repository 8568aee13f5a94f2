// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdim

import (
	"fmt"

	"github.com/aclements/go-rdi/rdi"
)

// ResolveIncompleteTypes points every reference to a forward-declared
// type at the complete record type of the same name.
//
// A type's name for matching is its link name if it has one, and its
// plain name otherwise. Only record kinds (struct, class, union) can
// complete a forward declaration, so incomplete enums never resolve.
// When several records share a name, the first in type order wins.
//
// Each resolved incomplete type gets kind Null and stays in the table
// so existing indexes remain valid. Unresolved incomplete types are
// left alone. It returns the number of resolved types.
func ResolveIncompleteTypes(m *Model) int {
	total := m.Types.Len()
	if total == 0 {
		return 0
	}
	ht := newNameTable(total + 1)

	m.Types.Each(func(t *Type) {
		if t.Kind.IsRecord() {
			ht.insert(t)
		}
	})

	// fwd[i] is the completion of the type with index i.
	fwd := make([]*Type, total+1)
	resolved := 0
	m.Types.Each(func(t *Type) {
		if !t.Kind.IsIncomplete() {
			return
		}
		if match := ht.lookup(t); match != nil {
			t.Kind = rdi.TypeKindNull
			fwd[t.Idx] = match
			resolved++
		}
	})
	if resolved == 0 {
		return 0
	}

	remap := func(t *Type) *Type {
		if t != nil && fwd[t.Idx] != nil {
			return fwd[t.Idx]
		}
		return t
	}
	m.Types.Each(func(t *Type) {
		t.DirectType = remap(t.DirectType)
		for i, p := range t.ParamTypes {
			t.ParamTypes[i] = remap(p)
		}
	})
	m.UDTs.Each(func(u *UDT) {
		u.SelfType = remap(u.SelfType)
		for i := range u.Members {
			u.Members[i].Type = remap(u.Members[i].Type)
		}
	})
	return resolved
}

// resolveName returns the name t is matched by.
func resolveName(t *Type) string {
	if t.LinkName != "" {
		return t.LinkName
	}
	return t.Name
}

// sameName reports whether complete type s is a match for t. A type
// with a link name only matches by link name.
func sameName(s, t *Type) bool {
	if s.LinkName != "" {
		return s.LinkName == t.LinkName
	}
	return s.Name == t.Name
}

// nameTable is an open-addressing hash table of types with linear
// probing. It is built once and never deleted from.
type nameTable struct {
	slots []*Type
}

func newNameTable(size int) *nameTable {
	return &nameTable{slots: make([]*Type, size)}
}

// probe returns the slot holding a match for t, or the first empty
// slot on t's probe sequence. It panics if the probe visits every slot.
func (h *nameTable) probe(t *Type) int {
	n := uint64(len(h.slots))
	start := rdi.HashString(resolveName(t)) % n
	slot := start
	for {
		s := h.slots[slot]
		if s == nil || sameName(s, t) {
			return int(slot)
		}
		slot = (slot + 1) % n
		if slot == start {
			panic(fmt.Sprintf("rdim: name table of %d slots is full probing for %q", n, resolveName(t)))
		}
	}
}

// insert adds t unless a type of the same name is already present.
// Anonymous types are never inserted.
func (h *nameTable) insert(t *Type) {
	if resolveName(t) == "" {
		return
	}
	slot := h.probe(t)
	if h.slots[slot] == nil {
		h.slots[slot] = t
	}
}

// lookup returns the type matching t, or nil.
func (h *nameTable) lookup(t *Type) *Type {
	if resolveName(t) == "" {
		return nil
	}
	return h.slots[h.probe(t)]
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package intern deduplicates values contributed by many concurrent
// producers.
//
// Interning happens in phases. Each worker inserts candidates into its
// own Loose map without checking for duplicates. Join merges the
// per-worker maps slot by slot, Sort orders and deduplicates every
// slot, and NewTight assigns every distinct value a final index.
// Index 0 is reserved for the zero value (the empty string, the empty
// run).
//
// Join and Sort split the slot space into disjoint ranges, one per
// task, so no two tasks ever write the same slot.
package intern

import (
	"fmt"

	"fortio.org/safecast"
	"golang.org/x/exp/slices"

	"github.com/aclements/go-rdi/internal/chunk"
	"github.com/aclements/go-rdi/internal/pool"
)

// Key hashes and orders values of type T.
type Key[T any] interface {
	Hash(v T) uint64
	Compare(a, b T) int
}

// Topology is the slot layout shared by every map of one interning
// pass.
type Topology struct {
	Slots int
}

// slotCap is the segment size of per-slot lists. Most slots hold a
// handful of values.
const slotCap = 8

// Loose is a hash-slotted map that may hold duplicates.
type Loose[T any] struct {
	top   Topology
	key   Key[T]
	slots []*chunk.List[T]
}

// NewLoose returns an empty loose map with top's slot layout.
func NewLoose[T any](top Topology, key Key[T]) *Loose[T] {
	if top.Slots <= 0 {
		panic(fmt.Sprintf("intern: bad slot count %d", top.Slots))
	}
	return &Loose[T]{top: top, key: key, slots: make([]*chunk.List[T], top.Slots)}
}

func (m *Loose[T]) slot(v T) int {
	return int(m.key.Hash(v) % uint64(m.top.Slots))
}

func isZero[T any](key Key[T], v T) bool {
	var zero T
	return key.Compare(v, zero) == 0
}

// Insert adds v to m. Zero values are ignored since they always have
// index 0.
func (m *Loose[T]) Insert(v T) {
	if isZero(m.key, v) {
		return
	}
	i := m.slot(v)
	l := m.slots[i]
	if l == nil {
		l = &chunk.List[T]{Cap: slotCap}
		m.slots[i] = l
	}
	l.Append(v)
}

// Len returns the number of values in m, counting duplicates.
func (m *Loose[T]) Len() int {
	n := 0
	for _, l := range m.slots {
		n += l.Len()
	}
	return n
}

// ChainLengths returns the number of values in each non-empty slot.
func (m *Loose[T]) ChainLengths() []int {
	var out []int
	for _, l := range m.slots {
		if l.Len() > 0 {
			out = append(out, l.Len())
		}
	}
	return out
}

// ranges splits [0, n) into ranges of at most per elements.
func ranges(n, per int) [][2]int {
	var out [][2]int
	for lo := 0; lo < n; lo += per {
		out = append(out, [2]int{lo, min(lo+per, n)})
	}
	return out
}

// Slot range sizes of join and sort tasks.
const (
	joinSlotsPerTask = 16384
	sortSlotsPerTask = 256
)

// Join merges srcs into a new loose map. Entries of srcs may be nil.
// The slot lists of srcs are consumed: srcs must not be used
// afterwards.
func Join[T any](p *pool.Pool, top Topology, key Key[T], srcs []*Loose[T]) *Loose[T] {
	dst := NewLoose(top, key)
	var tasks []*pool.Task[struct{}]
	for _, r := range ranges(top.Slots, joinSlotsPerTask) {
		lo, hi := r[0], r[1]
		tasks = append(tasks, pool.Launch(p, func(int) struct{} {
			for _, src := range srcs {
				if src == nil {
					continue
				}
				if src.top != top {
					panic("intern: joining maps with different topologies")
				}
				for i := lo; i < hi; i++ {
					switch {
					case src.slots[i] == nil:
					case dst.slots[i] == nil:
						dst.slots[i] = src.slots[i]
					default:
						dst.slots[i].Concat(src.slots[i])
					}
				}
			}
			return struct{}{}
		}))
	}
	pool.JoinAll(tasks)
	return dst
}

// Sort returns a copy of src in which every slot is sorted and free of
// duplicates. Slots holding a single value are shared with src.
func Sort[T any](p *pool.Pool, src *Loose[T]) *Loose[T] {
	dst := NewLoose(src.top, src.key)
	var tasks []*pool.Task[struct{}]
	for _, r := range ranges(src.top.Slots, sortSlotsPerTask) {
		lo, hi := r[0], r[1]
		tasks = append(tasks, pool.Launch(p, func(int) struct{} {
			for i := lo; i < hi; i++ {
				l := src.slots[i]
				if l.Len() > 1 {
					dst.slots[i] = sortedList(src.key, l)
				} else {
					dst.slots[i] = l
				}
			}
			return struct{}{}
		}))
	}
	pool.JoinAll(tasks)
	return dst
}

func sortedList[T any](key Key[T], l *chunk.List[T]) *chunk.List[T] {
	vs := l.Slice()
	slices.SortFunc(vs, key.Compare)
	vs = slices.CompactFunc(vs, func(a, b T) bool { return key.Compare(a, b) == 0 })
	out := &chunk.List[T]{Cap: len(vs)}
	for _, v := range vs {
		out.Append(v)
	}
	return out
}

// BaseIndices returns, for each slot of a sorted map, the final index
// of the slot's first value. Index 0 is reserved, so slot 0 starts at
// 1. The extra final element is the total value count including the
// reserved index.
func BaseIndices[T any](m *Loose[T]) []uint32 {
	base := make([]uint32, len(m.slots)+1)
	next := uint64(1)
	for i, l := range m.slots {
		base[i] = mustU32(next)
		next += uint64(l.Len())
	}
	base[len(m.slots)] = mustU32(next)
	return base
}

func mustU32(v uint64) uint32 {
	out, err := safecast.Conv[uint32](v)
	if err != nil {
		panic(fmt.Errorf("intern: index overflow: %w", err))
	}
	return out
}

// Tight is the finalized, read-only form of an interning map.
type Tight[T any] struct {
	key   Key[T]
	slots [][]T
	base  []uint32
}

// NewTight builds the final map from a sorted loose map and its base
// indices.
func NewTight[T any](m *Loose[T], base []uint32) *Tight[T] {
	if len(base) != len(m.slots)+1 {
		panic("intern: base indices do not match map")
	}
	t := &Tight[T]{key: m.key, slots: make([][]T, len(m.slots)), base: base}
	for i, l := range m.slots {
		t.slots[i] = l.Slice()
	}
	return t
}

// Count returns the number of indexes in t, including the reserved
// index 0.
func (t *Tight[T]) Count() int {
	return int(t.base[len(t.base)-1])
}

// Index returns the final index of v. The zero value has index 0.
// Looking up a value that was never interned is an invariant
// violation.
func (t *Tight[T]) Index(v T) uint32 {
	if isZero(t.key, v) {
		return 0
	}
	slot := int(t.key.Hash(v) % uint64(len(t.slots)))
	vs := t.slots[slot]
	i, ok := slices.BinarySearchFunc(vs, v, t.key.Compare)
	if !ok {
		panic(fmt.Sprintf("intern: value %v was never interned", v))
	}
	return t.base[slot] + uint32(i)
}

// Each calls fn for every distinct value in index order, starting at
// index 1.
func (t *Tight[T]) Each(fn func(idx uint32, v T)) {
	for s, vs := range t.slots {
		for i, v := range vs {
			fn(t.base[s]+uint32(i), v)
		}
	}
}

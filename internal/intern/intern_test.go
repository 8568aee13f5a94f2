// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package intern

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/aclements/go-rdi/internal/pool"
)

// build interns words sharded round-robin across nshards maps.
func build(p *pool.Pool, top Topology, nshards int, words []string) *Tight[string] {
	shards := make([]*Loose[string], nshards)
	for i, w := range words {
		s := i % nshards
		if shards[s] == nil {
			shards[s] = NewLoose[string](top, Strings{})
		}
		shards[s].Insert(w)
	}
	joined := Join[string](p, top, Strings{}, shards)
	sorted := Sort(p, joined)
	return NewTight(sorted, BaseIndices(sorted))
}

func contents(t *Tight[string]) []string {
	var out []string
	t.Each(func(idx uint32, v string) {
		out = append(out, v)
	})
	return out
}

func words(n int) []string {
	var out []string
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("sym%d", i%(n/3+1)), "main", "")
	}
	return out
}

func TestUnique(t *testing.T) {
	p := pool.New(4)
	defer p.Close()

	in := words(300)
	tight := build(p, Topology{Slots: 7}, 4, in)

	seen := map[string]uint32{}
	tight.Each(func(idx uint32, v string) {
		if prev, ok := seen[v]; ok {
			t.Errorf("%q interned twice, at %d and %d", v, prev, idx)
		}
		seen[v] = idx
	})
	for _, w := range in {
		idx := tight.Index(w)
		if w == "" {
			if idx != 0 {
				t.Errorf("empty string: want index 0, got %d", idx)
			}
			continue
		}
		if seen[w] != idx {
			t.Errorf("%q: Each reports %d, Index reports %d", w, seen[w], idx)
		}
	}
	if want := len(seen) + 1; tight.Count() != want {
		t.Errorf("want count %d, got %d", want, tight.Count())
	}
}

func TestTwoWorkersMain(t *testing.T) {
	p := pool.New(2)
	defer p.Close()

	top := Topology{Slots: 64}
	a := NewLoose[string](top, Strings{})
	b := NewLoose[string](top, Strings{})
	a.Insert("main")
	b.Insert("main")
	sorted := Sort(p, Join(p, top, Strings{}, []*Loose[string]{a, nil, b}))
	tight := NewTight(sorted, BaseIndices(sorted))

	if got := contents(tight); !reflect.DeepEqual(got, []string{"main"}) {
		t.Errorf("want [main], got %v", got)
	}
	if tight.Index("main") != 1 {
		t.Errorf("want index 1, got %d", tight.Index("main"))
	}
}

func TestOrderIndependent(t *testing.T) {
	in := words(1000)
	top := Topology{Slots: 31}
	var want []string
	for _, workers := range []int{1, 2, 3, 8} {
		p := pool.New(workers)
		got := contents(build(p, top, workers, in))
		p.Close()
		if want == nil {
			want = got
			continue
		}
		if !reflect.DeepEqual(want, got) {
			t.Errorf("%d shards: content differs from 1 shard", workers)
		}
	}
}

func TestManyTaskRanges(t *testing.T) {
	// Enough slots that Join and Sort each split the slot space
	// across several tasks.
	top := Topology{Slots: 40000}
	if n := len(ranges(top.Slots, joinSlotsPerTask)); n < 2 {
		t.Fatalf("want several join ranges, got %d", n)
	}
	in := words(60000)
	var want []string
	var wantIdx map[string]uint32
	for _, workers := range []int{1, 3, 8} {
		p := pool.New(workers)
		tight := build(p, top, workers+1, in)
		p.Close()

		idx := map[string]uint32{}
		tight.Each(func(i uint32, v string) {
			if _, ok := idx[v]; ok {
				t.Errorf("%d workers: %q interned twice", workers, v)
			}
			idx[v] = i
		})
		for _, w := range in {
			if w != "" && tight.Index(w) != idx[w] {
				t.Errorf("%d workers: %q: Each reports %d, Index reports %d", workers, w, idx[w], tight.Index(w))
			}
		}
		got := contents(tight)
		if want == nil {
			want, wantIdx = got, idx
			if len(want) != 60000/3+2 {
				t.Errorf("want %d distinct strings, got %d", 60000/3+2, len(want))
			}
			continue
		}
		if !reflect.DeepEqual(want, got) || !reflect.DeepEqual(wantIdx, idx) {
			t.Errorf("%d workers: content differs from 1 worker", workers)
		}
	}
}

func TestRuns(t *testing.T) {
	p := pool.New(2)
	defer p.Close()

	top := Topology{Slots: 5}
	m := NewLoose[[]uint32](top, Runs{})
	m.Insert([]uint32{1, 2, 3})
	m.Insert([]uint32{4})
	m.Insert([]uint32{1, 2, 3})
	m.Insert(nil)
	sorted := Sort(p, Join(p, top, Runs{}, []*Loose[[]uint32]{m}))
	tight := NewTight(sorted, BaseIndices(sorted))

	if tight.Count() != 3 {
		t.Errorf("want 3 indexes, got %d", tight.Count())
	}
	if tight.Index(nil) != 0 || tight.Index([]uint32{}) != 0 {
		t.Errorf("empty run must have index 0")
	}
	if tight.Index([]uint32{1, 2, 3}) == tight.Index([]uint32{4}) {
		t.Errorf("distinct runs share an index")
	}
}

func TestIndexMissingPanics(t *testing.T) {
	p := pool.New(1)
	defer p.Close()

	tight := build(p, Topology{Slots: 3}, 1, []string{"a"})
	defer func() {
		if recover() == nil {
			t.Errorf("want panic for value never interned")
		}
	}()
	tight.Index("b")
}

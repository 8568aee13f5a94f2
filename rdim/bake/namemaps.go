// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aclements/go-rdi/internal/chunk"
	"github.com/aclements/go-rdi/internal/intern"
	"github.com/aclements/go-rdi/internal/pathtree"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

// nameMap maps the names of one kind to the indexes of the entities
// with that name.
type nameMap struct {
	kind  rdi.NameMapKind
	names []string // Sorted
	idxs  map[string][]uint32
}

func (nm *nameMap) add(name string, idx uint32) {
	if name == "" {
		return
	}
	nm.idxs[name] = append(nm.idxs[name], idx)
}

func symbolNames(l *chunk.List[rdim.Symbol], nm *nameMap, link bool) {
	l.Each(func(s *rdim.Symbol) {
		if link {
			nm.add(s.LinkName, s.Idx)
		} else {
			nm.add(s.Name, s.Idx)
		}
	})
}

// buildNameMap collects the names of kind k. Match indexes are in
// ascending order.
func buildNameMap(e *env, k rdi.NameMapKind) *nameMap {
	m := e.model
	nm := &nameMap{kind: k, idxs: make(map[string][]uint32)}
	switch k {
	case rdi.NameMapGlobalVariables:
		symbolNames(&m.GlobalVariables, nm, false)
	case rdi.NameMapThreadVariables:
		symbolNames(&m.ThreadVariables, nm, false)
	case rdi.NameMapConstants:
		symbolNames(&m.Constants, nm, false)
	case rdi.NameMapProcedures:
		symbolNames(&m.Procedures, nm, false)
	case rdi.NameMapLinkNameProcedures:
		symbolNames(&m.Procedures, nm, true)
	case rdi.NameMapTypes:
		m.Types.Each(func(t *rdim.Type) {
			if t.Kind.IsBuiltIn() || t.Kind.IsUserDefined() {
				nm.add(t.Name, t.Idx)
			}
		})
	case rdi.NameMapNormalSourcePaths:
		m.SrcFiles.Each(func(f *rdim.SrcFile) {
			nm.add(pathtree.Normalize(f.Path), f.Idx)
		})
	default:
		panic(fmt.Sprintf("bake: unknown name map kind %v", k))
	}
	nm.names = maps.Keys(nm.idxs)
	slices.Sort(nm.names)
	return nm
}

// buildIdxRunMap interns every index run: the parameter types of each
// type and the matches of every name with more than one match.
func buildIdxRunMap(e *env, nameMaps []*nameMap) *intern.Tight[[]uint32] {
	m := e.model
	names := 0
	for _, nm := range nameMaps {
		if nm != nil {
			names += len(nm.names)
		}
	}
	top := intern.Topology{Slots: 64 + m.Types.Len()/2 + names/4}
	loose := intern.NewLoose(top, intern.Runs{})
	m.Types.Each(func(t *rdim.Type) {
		loose.Insert(paramRun(t))
	})
	for _, nm := range nameMaps {
		if nm == nil {
			continue
		}
		for _, name := range nm.names {
			if idxs := nm.idxs[name]; len(idxs) > 1 {
				loose.Insert(idxs)
			}
		}
	}
	sorted := intern.Sort(e.pool, loose)
	return intern.NewTight(sorted, intern.BaseIndices(sorted))
}

// paramRun returns the index run of t's parameter types.
func paramRun(t *rdim.Type) []uint32 {
	if len(t.ParamTypes) == 0 {
		return nil
	}
	run := make([]uint32, len(t.ParamTypes))
	for i, p := range t.ParamTypes {
		run[i] = rdim.TypeIdx(p)
	}
	return run
}

// runOffsets returns the offset in the IndexRuns section of each run
// index.
func runOffsets(runs *intern.Tight[[]uint32]) []uint32 {
	offs := make([]uint32, runs.Count())
	off := 0
	runs.Each(func(idx uint32, run []uint32) {
		offs[idx] = u32(off)
		off += len(run)
	})
	return offs
}

// bakeIdxRuns concatenates every run in index order.
func bakeIdxRuns(runs *intern.Tight[[]uint32]) []uint32 {
	var out []uint32
	runs.Each(func(_ uint32, run []uint32) {
		out = append(out, run...)
	})
	return out
}

type nameMapBake struct {
	buckets []rdi.NameMapBucket
	nodes   []rdi.NameMapNode
}

// bakeNameMap lays out nm as a hash table with one bucket per name.
// Nodes are grouped by bucket; FirstNode is relative to the map's
// first node.
func bakeNameMap(nm *nameMap, strs *intern.Tight[string], runs *intern.Tight[[]uint32], runFirst []uint32) nameMapBake {
	nbuckets := uint64(len(nm.names))
	byBucket := make([][]string, nbuckets)
	for _, name := range nm.names {
		b := rdi.HashString(name) % nbuckets
		byBucket[b] = append(byBucket[b], name)
	}

	out := nameMapBake{buckets: make([]rdi.NameMapBucket, nbuckets)}
	for b, names := range byBucket {
		out.buckets[b] = rdi.NameMapBucket{FirstNode: u32(len(out.nodes)), NodeCount: u32(len(names))}
		for _, name := range names {
			idxs := nm.idxs[name]
			node := rdi.NameMapNode{StringIdx: strs.Index(name), MatchCount: u32(len(idxs))}
			if len(idxs) == 1 {
				node.MatchIdxOrIdxRunFirst = idxs[0]
			} else {
				node.MatchIdxOrIdxRunFirst = runFirst[runs.Index(idxs)]
			}
			out.nodes = append(out.nodes, node)
		}
	}
	return out
}

type nameMapsResult struct {
	maps    []rdi.NameMap
	buckets []rdi.NameMapBucket
	nodes   []rdi.NameMapNode
}

// combineNameMaps concatenates the buckets and nodes of every name
// map. maps has one entry per name map kind; empty kinds have no
// buckets.
func combineNameMaps(bakes []nameMapBake) nameMapsResult {
	out := nameMapsResult{maps: make([]rdi.NameMap, rdi.NameMapCount)}
	for k, b := range bakes {
		out.maps[k] = rdi.NameMap{
			BucketBaseIdx: u32(len(out.buckets)),
			NodeBaseIdx:   u32(len(out.nodes)),
			BucketCount:   u32(len(b.buckets)),
			NodeCount:     u32(len(b.nodes)),
		}
		out.buckets = append(out.buckets, b.buckets...)
		out.nodes = append(out.nodes, b.nodes...)
	}
	return out
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bake converts an rdim.Model into an rdi section bundle.
//
// Baking runs in passes on a fixed pool of workers. The first pass
// collects every string of the model into per-worker interning maps
// and builds the name maps. Once the strings are interned, the second
// pass bakes each entity category independently. The third pass
// bakes what depends on interned index runs: type nodes and name
// maps. Finally the location blocks of scopes and procedures are
// relocated into one table and every result is assembled into a
// Bundle.
//
// Tasks communicate only through their results. Every task takes its
// inputs from an *env passed to it and returns what it built.
package bake

import (
	"fmt"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/aclements/go-rdi/internal/intern"
	"github.com/aclements/go-rdi/internal/pathtree"
	"github.com/aclements/go-rdi/internal/pool"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

// Options configure a bake.
type Options struct {
	// Workers is the number of worker goroutines. If <= 0, it uses
	// GOMAXPROCS.
	Workers int

	// Codec, if non-nil, compresses every section.
	Codec rdi.Codec

	// Logger, if non-nil, receives the time taken by each stage.
	Logger *log.Logger

	// Stats, if non-nil, is filled in with bake statistics.
	Stats *Stats
}

// env is the state shared by the tasks of one bake. It is read-only
// once tasks are launched.
type env struct {
	pool  *pool.Pool
	log   *log.Logger
	model *rdim.Model
	arch  rdi.Arch
	top   intern.Topology
	paths *pathtree.Tree
}

// timed logs the time since it was called when the returned function
// is called.
func (e *env) timed(stage string) func() {
	if e.log == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		e.log.Printf("bake: %s: %v", stage, time.Since(start))
	}
}

// itemsPerTask is the number of entities each string-collection task
// handles.
const itemsPerTask = 4096

// stringTopology sizes the string map for m. Slots bound the expected
// chain length; collisions are handled within slots.
func stringTopology(m *rdim.Model) intern.Topology {
	return intern.Topology{Slots: 64 +
		m.Procedures.Len() +
		m.GlobalVariables.Len() +
		m.ThreadVariables.Len() +
		m.Types.Len()/2}
}

// Run is like Bake, but returns an invariant violation inside the
// pipeline as an error instead of panicking.
func Run(m *rdim.Model, opts Options) (b *rdi.Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = errors.Wrap(e, "bake")
			} else {
				err = errors.Errorf("bake: %v", r)
			}
			b = nil
		}
	}()
	return Bake(m, opts), nil
}

// Bake resolves incomplete types of m, computes type sizes, and bakes
// m into a section bundle. The bundle has exactly one section of every
// kind. Baking the same model twice gives identical bundles regardless
// of opts.Workers.
//
// Bake panics if m violates an invariant, such as a reference to an
// entity that is not in m.
func Bake(m *rdim.Model, opts Options) *rdi.Bundle {
	p := pool.New(opts.Workers)
	defer p.Close()
	e := &env{pool: p, log: opts.Logger, model: m, arch: m.TopLevel.Arch}
	done := e.timed("total")
	defer done()

	var st Stats
	st.Workers = p.Workers()

	t := e.timed("resolve types")
	st.ResolvedTypes = rdim.ResolveIncompleteTypes(m)
	rdim.ComputeTypeSizes(m, e.arch)
	t()

	// Line tables depend on nothing but the model.
	lineTablesTask := pool.Launch(p, func(int) lineTablesResult {
		return bakeLineTables(e)
	})

	t = e.timed("path tree")
	e.paths = buildPathTree(m)
	t()

	//
	// Pass 1: collect strings and build name maps.
	//
	t = e.timed("strings")
	e.top = stringTopology(m)
	shards := make([]*intern.Loose[string], p.Workers())
	stringTasks := launchStringTasks(e, shards)

	var nameMapTasks [rdi.NameMapCount]*pool.Task[*nameMap]
	for k := rdi.NameMapNull + 1; k < rdi.NameMapCount; k++ {
		nameMapTasks[k] = pool.Launch(p, func(int) *nameMap {
			return buildNameMap(e, k)
		})
	}

	pool.JoinAll(stringTasks)
	loose := intern.Join(p, e.top, intern.Strings{}, shards)
	pushTopLevelStrings(loose, &m.TopLevel)
	pushBinarySectionStrings(loose, m.BinarySections)
	pushPathTreeStrings(loose, e.paths)
	st.StringInserts = loose.Len()
	sorted := intern.Sort(p, loose)
	strs := intern.NewTight(sorted, intern.BaseIndices(sorted))
	st.setStrings(e.top, strs, sorted.ChainLengths())
	t()

	//
	// Pass 2: bake every category that needs only strings.
	//
	t = e.timed("pass 2")
	unitsTask := pool.Launch(p, func(int) []rdi.Unit { return bakeUnits(e, strs) })
	unitVMapTask := pool.Launch(p, func(int) []rdi.VMapEntry { return bakeUnitVMap(e) })
	srcFilesTask := pool.Launch(p, func(int) srcFilesResult { return bakeSrcFiles(e, strs) })
	udtsTask := pool.Launch(p, func(int) udtsResult { return bakeUDTs(e, strs) })
	globalVMapTask := pool.Launch(p, func(int) []rdi.VMapEntry { return bakeGlobalVMap(e) })
	scopeVMapTask := pool.Launch(p, func(int) []rdi.VMapEntry { return bakeScopeVMap(e) })
	inlineSitesTask := pool.Launch(p, func(int) []rdi.InlineSite { return bakeInlineSites(e, strs) })
	filePathsTask := pool.Launch(p, func(int) []rdi.FilePathNode { return bakeFilePaths(e, strs) })
	stringsTask := pool.Launch(p, func(int) stringsResult { return bakeStrings(strs) })
	constantsTask := pool.Launch(p, func(int) constantsResult { return bakeConstants(e, strs) })
	globalsTask := pool.Launch(p, func(int) []rdi.GlobalVariable { return bakeGlobalVariables(e, strs) })
	threadsTask := pool.Launch(p, func(int) []rdi.ThreadVariable { return bakeThreadVariables(e, strs) })
	scopesTask := pool.Launch(p, func(int) scopesResult { return bakeScopes(e, strs) })
	procsTask := pool.Launch(p, func(int) proceduresResult { return bakeProcedures(e, strs) })

	//
	// Index runs: type parameter lists and multi-match name map
	// entries.
	//
	var nameMaps [rdi.NameMapCount]*nameMap
	for k := rdi.NameMapNull + 1; k < rdi.NameMapCount; k++ {
		nameMaps[k] = nameMapTasks[k].Join()
	}
	runs := buildIdxRunMap(e, nameMaps[:])
	st.IndexRuns = runs.Count() - 1

	b := new(rdi.Bundle)
	b.Set(rdi.SectionNull, nil)
	setTable(b, rdi.SectionTopLevelInfo, []rdi.TopLevelInfo{bakeTopLevelInfo(&m.TopLevel, strs)})
	setTable(b, rdi.SectionBinarySections, bakeBinarySections(m.BinarySections, strs))
	t()

	//
	// Pass 3: everything that needs index runs.
	//
	t = e.timed("pass 3")
	runFirst := runOffsets(runs)
	typeNodesTask := pool.Launch(p, func(int) []rdi.TypeNode { return bakeTypeNodes(e, strs, runs, runFirst) })
	var nameMapBakeTasks [rdi.NameMapCount]*pool.Task[nameMapBake]
	for k := rdi.NameMapNull + 1; k < rdi.NameMapCount; k++ {
		if nameMaps[k] == nil || len(nameMaps[k].names) == 0 {
			continue
		}
		nm := nameMaps[k]
		nameMapBakeTasks[k] = pool.Launch(p, func(int) nameMapBake {
			return bakeNameMap(nm, strs, runs, runFirst)
		})
	}
	idxRunsTask := pool.Launch(p, func(int) []uint32 { return bakeIdxRuns(runs) })

	//
	// Join everything and assemble.
	//
	var nameMapBakes [rdi.NameMapCount]nameMapBake
	for k, task := range nameMapBakeTasks {
		if task != nil {
			nameMapBakes[k] = task.Join()
		}
	}
	nameMapsOut := combineNameMaps(nameMapBakes[:])

	scopes := scopesTask.Join()
	procs := procsTask.Join()
	locs := relocateLocations(&scopes, &procs)
	t()

	t = e.timed("assemble")
	lt := lineTablesTask.Join()
	setTable(b, rdi.SectionLineTables, lt.tables)
	setTable(b, rdi.SectionLineInfoVOffs, lt.voffs)
	setTable(b, rdi.SectionLineInfoLines, lt.lines)
	setTable(b, rdi.SectionLineInfoColumns, lt.cols)

	sf := srcFilesTask.Join()
	setTable(b, rdi.SectionSourceFiles, sf.files)
	setTable(b, rdi.SectionSourceLineMaps, sf.maps)
	setTable(b, rdi.SectionSourceLineMapNumbers, sf.numbers)
	setTable(b, rdi.SectionSourceLineMapRanges, sf.ranges)
	setTable(b, rdi.SectionSourceLineMapVOffs, sf.voffs)

	setTable(b, rdi.SectionUnits, unitsTask.Join())
	setTable(b, rdi.SectionUnitVMap, unitVMapTask.Join())
	setTable(b, rdi.SectionFilePathNodes, filePathsTask.Join())

	sr := stringsTask.Join()
	b.Set(rdi.SectionStringData, sr.data)
	setTable(b, rdi.SectionStringTable, sr.offs)
	setTable(b, rdi.SectionIndexRuns, idxRunsTask.Join())

	setTable(b, rdi.SectionTypeNodes, typeNodesTask.Join())
	ud := udtsTask.Join()
	setTable(b, rdi.SectionUDTs, ud.udts)
	setTable(b, rdi.SectionMembers, ud.members)
	setTable(b, rdi.SectionEnumMembers, ud.enumMembers)

	setTable(b, rdi.SectionGlobalVariables, globalsTask.Join())
	setTable(b, rdi.SectionGlobalVMap, globalVMapTask.Join())
	setTable(b, rdi.SectionThreadVariables, threadsTask.Join())
	cs := constantsTask.Join()
	setTable(b, rdi.SectionConstants, cs.constants)
	b.Set(rdi.SectionConstantValueData, cs.data)
	setTable(b, rdi.SectionConstantValueTable, cs.table)

	setTable(b, rdi.SectionProcedures, procs.procs)
	setTable(b, rdi.SectionScopes, scopes.scopes)
	setTable(b, rdi.SectionScopeVOffData, scopes.voffs)
	setTable(b, rdi.SectionScopeVMap, scopeVMapTask.Join())
	setTable(b, rdi.SectionInlineSites, inlineSitesTask.Join())
	setTable(b, rdi.SectionLocals, scopes.locals)
	setTable(b, rdi.SectionLocationBlocks, locs.blocks)
	b.Set(rdi.SectionLocationData, locs.data)

	setTable(b, rdi.SectionNameMaps, nameMapsOut.maps)
	setTable(b, rdi.SectionNameMapBuckets, nameMapsOut.buckets)
	setTable(b, rdi.SectionNameMapNodes, nameMapsOut.nodes)
	t()

	if opts.Codec != nil {
		t = e.timed("compress")
		b = rdi.Compress(b, opts.Codec)
		t()
	}
	st.setSections(b)
	if e.log != nil {
		e.log.Printf("bake: %d strings (%d inserts), %d index runs, %d types resolved", st.Strings, st.StringInserts, st.IndexRuns, st.ResolvedTypes)
	}
	if opts.Stats != nil {
		*opts.Stats = st
	}
	return b
}

// setTable stores the packed encoding of table as section k.
func setTable[T any](b *rdi.Bundle, k rdi.SectionKind, table []T) {
	b.Set(k, rdi.Append(nil, table))
}

// idxCheck panics if idx is not a valid 1-based index into a list of
// n entities.
func idxCheck(what string, idx uint32, n int) {
	if int(idx) > n {
		panic(fmt.Sprintf("bake: %s index %d out of range [0, %d]", what, idx, n))
	}
}

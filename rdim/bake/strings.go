// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"github.com/aclements/go-rdi/internal/chunk"
	"github.com/aclements/go-rdi/internal/intern"
	"github.com/aclements/go-rdi/internal/pathtree"
	"github.com/aclements/go-rdi/internal/pool"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

type stringMap = intern.Loose[string]

// launchStrings launches tasks that push the strings of every element
// of l, itemsPerTask elements per task. Each task inserts into the
// shard of the worker running it, creating the shard on first use.
func launchStrings[T any](e *env, tasks []*pool.Task[struct{}], shards []*stringMap, l *chunk.List[T], push func(*stringMap, *T)) []*pool.Task[struct{}] {
	for _, span := range l.Spans(itemsPerTask) {
		tasks = append(tasks, pool.Launch(e.pool, func(worker int) struct{} {
			m := shards[worker]
			if m == nil {
				m = intern.NewLoose(e.top, intern.Strings{})
				shards[worker] = m
			}
			for _, part := range span.Parts {
				for i := range part {
					push(m, &part[i])
				}
			}
			return struct{}{}
		}))
	}
	return tasks
}

// launchStringTasks launches the string collection tasks of every
// entity category of the model.
func launchStringTasks(e *env, shards []*stringMap) []*pool.Task[struct{}] {
	m := e.model
	var tasks []*pool.Task[struct{}]
	tasks = launchStrings(e, tasks, shards, &m.SrcFiles, pushSrcFileStrings)
	tasks = launchStrings(e, tasks, shards, &m.Units, pushUnitStrings)
	tasks = launchStrings(e, tasks, shards, &m.Types, pushTypeStrings)
	tasks = launchStrings(e, tasks, shards, &m.UDTs, pushUDTStrings)
	for _, l := range []*chunk.List[rdim.Symbol]{&m.GlobalVariables, &m.ThreadVariables, &m.Procedures, &m.Constants} {
		tasks = launchStrings(e, tasks, shards, l, pushSymbolStrings)
	}
	tasks = launchStrings(e, tasks, shards, &m.InlineSites, pushInlineSiteStrings)
	tasks = launchStrings(e, tasks, shards, &m.Scopes, pushScopeStrings)
	return tasks
}

func pushSrcFileStrings(m *stringMap, f *rdim.SrcFile) {
	m.Insert(pathtree.Normalize(f.Path))
}

func pushUnitStrings(m *stringMap, u *rdim.Unit) {
	m.Insert(u.UnitName)
	m.Insert(u.CompilerName)
}

func pushTypeStrings(m *stringMap, t *rdim.Type) {
	m.Insert(t.Name)
}

func pushUDTStrings(m *stringMap, u *rdim.UDT) {
	for i := range u.Members {
		m.Insert(u.Members[i].Name)
	}
	for i := range u.EnumVals {
		m.Insert(u.EnumVals[i].Name)
	}
}

func pushSymbolStrings(m *stringMap, s *rdim.Symbol) {
	m.Insert(s.Name)
	m.Insert(s.LinkName)
}

func pushInlineSiteStrings(m *stringMap, s *rdim.InlineSite) {
	m.Insert(s.Name)
}

func pushScopeStrings(m *stringMap, s *rdim.Scope) {
	for i := range s.Locals {
		m.Insert(s.Locals[i].Name)
	}
}

func pushTopLevelStrings(m *stringMap, tli *rdim.TopLevelInfo) {
	m.Insert(tli.ExeName)
	m.Insert(tli.ProducerName)
}

func pushBinarySectionStrings(m *stringMap, secs []rdim.BinarySection) {
	for i := range secs {
		m.Insert(secs[i].Name)
	}
}

func pushPathTreeStrings(m *stringMap, t *pathtree.Tree) {
	for _, n := range t.Nodes() {
		m.Insert(n.Name)
	}
}

// buildPathTree interns the paths of every source file and unit. A
// source file's node records the file's index.
func buildPathTree(m *rdim.Model) *pathtree.Tree {
	t := pathtree.New()
	m.SrcFiles.Each(func(f *rdim.SrcFile) {
		n := t.Insert(f.Path)
		if n.SrcFile == 0 {
			n.SrcFile = f.Idx
		}
	})
	m.Units.Each(func(u *rdim.Unit) {
		for _, path := range []string{u.SourceFile, u.ObjectFile, u.ArchiveFile, u.BuildPath} {
			if path != "" {
				t.Insert(path)
			}
		}
	})
	return t
}

type stringsResult struct {
	data []byte
	offs []uint32
}

// bakeStrings lays out every interned string in index order. offs has
// one more entry than there are strings: string i is
// data[offs[i]:offs[i+1]].
func bakeStrings(strs *intern.Tight[string]) stringsResult {
	n := strs.Count()
	offs := make([]uint32, n+1)
	var data []byte
	strs.Each(func(idx uint32, s string) {
		offs[idx] = u32(len(data))
		data = append(data, s...)
	})
	offs[n] = u32(len(data))
	return stringsResult{data, offs}
}

func bakeTopLevelInfo(tli *rdim.TopLevelInfo, strs *intern.Tight[string]) rdi.TopLevelInfo {
	return rdi.TopLevelInfo{
		Arch:                  tli.Arch,
		ExeNameStringIdx:      strs.Index(tli.ExeName),
		ExeHash:               tli.ExeHash,
		VoffMax:               tli.VoffMax,
		ProducerNameStringIdx: strs.Index(tli.ProducerName),
	}
}

func bakeBinarySections(secs []rdim.BinarySection, strs *intern.Tight[string]) []rdi.BinarySection {
	out := make([]rdi.BinarySection, 1, len(secs)+1)
	for _, s := range secs {
		out = append(out, rdi.BinarySection{
			NameStringIdx: strs.Index(s.Name),
			Flags:         s.Flags,
			VoffFirst:     s.VoffFirst,
			VoffOpl:       s.VoffOpl,
			FoffFirst:     s.FoffFirst,
			FoffOpl:       s.FoffOpl,
		})
	}
	return out
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/aclements/go-rdi/internal/intern"
	"github.com/aclements/go-rdi/internal/pathtree"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

type lineTablesResult struct {
	tables []rdi.LineTable
	voffs  []uint64
	lines  []rdi.Line
	cols   []rdi.Column
}

type lineRec struct {
	voff uint64
	line rdi.Line
	col  rdi.Column
}

func checkSeq(seq *rdim.LineSequence) {
	if len(seq.Voffs) != len(seq.Lines)+1 {
		panic(fmt.Sprintf("bake: line sequence has %d voffs for %d lines", len(seq.Voffs), len(seq.Lines)))
	}
	if len(seq.Cols) != 0 && len(seq.Cols) != len(seq.Lines) {
		panic(fmt.Sprintf("bake: line sequence has %d columns for %d lines", len(seq.Cols), len(seq.Lines)))
	}
}

// bakeLineTables merges the sequences of each line table into one
// voff-sorted record list. Each sequence ends with a terminator record
// of file 0, line 0 at its end voff. Voffs has one more entry per
// table than Lines, repeating the final voff. Columns are stored only
// for tables where some sequence has them.
func bakeLineTables(e *env) lineTablesResult {
	m := e.model
	nfiles := m.SrcFiles.Len()
	out := lineTablesResult{tables: make([]rdi.LineTable, 1, m.LineTables.Len()+1)}
	var recs []lineRec
	m.LineTables.Each(func(lt *rdim.LineTable) {
		recs = recs[:0]
		hasCols := false
		for i := range lt.Seqs {
			seq := &lt.Seqs[i]
			checkSeq(seq)
			if len(seq.Lines) == 0 {
				continue
			}
			file := rdim.SrcFileIdx(seq.SrcFile)
			idxCheck("line sequence file", file, nfiles)
			hasCols = hasCols || len(seq.Cols) > 0
			for j, line := range seq.Lines {
				r := lineRec{voff: seq.Voffs[j], line: rdi.Line{FileIdx: file, LineNum: line}}
				if len(seq.Cols) > 0 {
					r.col = seq.Cols[j]
				}
				recs = append(recs, r)
			}
			recs = append(recs, lineRec{voff: seq.Voffs[len(seq.Lines)]})
		}
		slices.SortStableFunc(recs, func(a, b lineRec) int {
			switch {
			case a.voff < b.voff:
				return -1
			case a.voff > b.voff:
				return 1
			}
			return 0
		})

		tab := rdi.LineTable{
			VoffsBaseIdx: u32(len(out.voffs)),
			LinesBaseIdx: u32(len(out.lines)),
			ColsBaseIdx:  u32(len(out.cols)),
			LinesCount:   u32(len(recs)),
		}
		for _, r := range recs {
			out.voffs = append(out.voffs, r.voff)
			out.lines = append(out.lines, r.line)
			if hasCols {
				out.cols = append(out.cols, r.col)
			}
		}
		if len(recs) > 0 {
			out.voffs = append(out.voffs, recs[len(recs)-1].voff)
		}
		if hasCols {
			tab.ColsCount = tab.LinesCount
		}
		out.tables = append(out.tables, tab)
	})
	return out
}

type srcFilesResult struct {
	files   []rdi.SourceFile
	maps    []rdi.SourceLineMap
	numbers []uint32
	ranges  []uint32
	voffs   []uint64
}

type lineVoff struct {
	line uint32
	voff uint64
}

// bakeSrcFiles lays out source files and, for every file that line
// info refers to, its source line map: the sorted distinct line
// numbers of the file, and for each line the voffs of code generated
// from it.
func bakeSrcFiles(e *env, strs *intern.Tight[string]) srcFilesResult {
	m := e.model
	nfiles := m.SrcFiles.Len()

	byFile := make([][]lineVoff, nfiles+1)
	m.LineTables.Each(func(lt *rdim.LineTable) {
		for i := range lt.Seqs {
			seq := &lt.Seqs[i]
			f := rdim.SrcFileIdx(seq.SrcFile)
			idxCheck("line sequence file", f, nfiles)
			if f == 0 {
				continue
			}
			for j, line := range seq.Lines {
				byFile[f] = append(byFile[f], lineVoff{line, seq.Voffs[j]})
			}
		}
	})

	out := srcFilesResult{
		files: make([]rdi.SourceFile, 1, nfiles+1),
		maps:  make([]rdi.SourceLineMap, 1),
	}
	m.SrcFiles.Each(func(f *rdim.SrcFile) {
		rec := rdi.SourceFile{
			FilePathNodeIdx:         e.paths.Index(f.Path),
			NormalFullPathStringIdx: strs.Index(pathtree.Normalize(f.Path)),
		}
		if lvs := byFile[f.Idx]; len(lvs) > 0 {
			rec.SourceLineMapIdx = u32(len(out.maps))
			out.maps = append(out.maps, bakeSrcLineMap(&out, lvs))
		}
		out.files = append(out.files, rec)
	})
	return out
}

func bakeSrcLineMap(out *srcFilesResult, lvs []lineVoff) rdi.SourceLineMap {
	slices.SortFunc(lvs, func(a, b lineVoff) int {
		switch {
		case a.line != b.line:
			if a.line < b.line {
				return -1
			}
			return 1
		case a.voff < b.voff:
			return -1
		case a.voff > b.voff:
			return 1
		}
		return 0
	})
	lvs = slices.Compact(lvs)

	slm := rdi.SourceLineMap{
		LineMapNumsBaseIdx:  u32(len(out.numbers)),
		LineMapRangeBaseIdx: u32(len(out.ranges)),
		LineMapVoffBaseIdx:  u32(len(out.voffs)),
	}
	voffBase := len(out.voffs)
	for i, lv := range lvs {
		if i == 0 || lv.line != lvs[i-1].line {
			out.numbers = append(out.numbers, lv.line)
			out.ranges = append(out.ranges, u32(len(out.voffs)-voffBase))
		}
		out.voffs = append(out.voffs, lv.voff)
	}
	out.ranges = append(out.ranges, u32(len(out.voffs)-voffBase))
	slm.LineCount = u32(len(out.numbers)) - slm.LineMapNumsBaseIdx
	slm.VoffCount = u32(len(out.voffs) - voffBase)
	return slm
}

func bakeUnits(e *env, strs *intern.Tight[string]) []rdi.Unit {
	m := e.model
	nlts := m.LineTables.Len()
	out := make([]rdi.Unit, 1, m.Units.Len()+1)
	m.Units.Each(func(u *rdim.Unit) {
		rec := rdi.Unit{
			UnitNameStringIdx:     strs.Index(u.UnitName),
			CompilerNameStringIdx: strs.Index(u.CompilerName),
			SourceFilePathNode:    e.paths.Index(u.SourceFile),
			ObjectFilePathNode:    e.paths.Index(u.ObjectFile),
			ArchiveFilePathNode:   e.paths.Index(u.ArchiveFile),
			BuildPathNode:         e.paths.Index(u.BuildPath),
			Language:              u.Language,
			LineTableIdx:          rdim.LineTableIdx(u.LineTable),
		}
		idxCheck("unit line table", rec.LineTableIdx, nlts)
		out = append(out, rec)
	})
	return out
}

// bakeFilePaths lays out the path tree. Node indexes are the tree's
// own indexes, with the root at 1.
func bakeFilePaths(e *env, strs *intern.Tight[string]) []rdi.FilePathNode {
	nodes := e.paths.Nodes()
	out := make([]rdi.FilePathNode, 1, len(nodes)+1)
	for _, n := range nodes {
		rec := rdi.FilePathNode{
			NameStringIdx: strs.Index(n.Name),
			SourceFileIdx: n.SrcFile,
		}
		if n.Parent != nil {
			rec.ParentPathNode = n.Parent.Idx
		}
		if n.FirstChild != nil {
			rec.FirstChild = n.FirstChild.Idx
		}
		if n.NextSibling != nil {
			rec.NextSibling = n.NextSibling.Idx
		}
		out = append(out, rec)
	}
	return out
}

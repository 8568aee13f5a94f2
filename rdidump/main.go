// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// rdidump prints the contents of an RDI debug info file.
//
// Usage: rdidump [flags] file.rdi
//
// By default rdidump prints the file header, the section table, the
// top-level info, the image sections, and a summary of the name maps.
// When standard output is a terminal, tables are aligned in columns.
// Otherwise they are written as tab-separated values.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/aclements/go-rdi/rdi"
)

var (
	flagStrings = flag.Bool("strings", false, "print the string table")
	flagLocs    = flag.Bool("locations", false, "print the locations of procedure frame bases and locals")
	flagLookup  = flag.String("lookup", "", "look up `name` in every name map")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("rdidump: ")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file.rdi\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	f, err := rdi.Parse(data)
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}

	d := &dumper{f: f, w: os.Stdout, aligned: term.IsTerminal(int(os.Stdout.Fd()))}
	d.header()
	d.sections()
	d.topLevel()
	d.binarySections()
	d.nameMaps()
	if *flagLookup != "" {
		d.lookup(*flagLookup)
	}
	if *flagStrings {
		d.strings()
	}
	if *flagLocs {
		d.locations()
	}
	if d.err != nil {
		log.Fatal(d.err)
	}
}

// dumper prints the tables of f. The first error stops all further
// output and is kept in err.
type dumper struct {
	f       *rdi.File
	w       io.Writer
	aligned bool
	err     error
}

func (d *dumper) write(t *Table) {
	if d.err == nil {
		d.err = t.Write(d.w, d.aligned)
	}
}

func (d *dumper) fail(err error) bool {
	if err != nil && d.err == nil {
		d.err = err
	}
	return d.err != nil
}

func (d *dumper) str(idx uint32) string {
	s, err := d.f.String(idx)
	d.fail(err)
	return s
}

func (d *dumper) header() {
	h := d.f.Header
	t := NewTable("header", "magic", "version", "sections")
	t.AddRow(fmt.Sprintf("%#x", h.Magic), fmt.Sprintf("%d.%d.%d", h.VersionMajor, h.VersionMinor, h.VersionPatch), h.SectionCount)
	d.write(t)
}

func (d *dumper) sections() {
	t := NewTable("sections", "section", "encoding", "offset", "encoded", "unpacked")
	for k, e := range d.f.Entries {
		t.AddRow(rdi.SectionKind(k), e.Encoding, e.Off, e.EncodedSize, e.UnpackedSize)
	}
	d.write(t)
}

func (d *dumper) topLevel() {
	tlis, err := rdi.Table[rdi.TopLevelInfo](d.f, rdi.SectionTopLevelInfo)
	if d.fail(err) {
		return
	}
	t := NewTable("top-level info", "arch", "exe", "hash", "voff max", "producer")
	for _, tli := range tlis {
		t.AddRow(tli.Arch, d.str(tli.ExeNameStringIdx), fmt.Sprintf("%#016x", tli.ExeHash), fmt.Sprintf("%#x", tli.VoffMax), d.str(tli.ProducerNameStringIdx))
	}
	d.write(t)
}

func flagString(f rdi.BinarySectionFlags) string {
	b := []byte("---")
	if f&rdi.BinarySectionRead != 0 {
		b[0] = 'r'
	}
	if f&rdi.BinarySectionWrite != 0 {
		b[1] = 'w'
	}
	if f&rdi.BinarySectionExecute != 0 {
		b[2] = 'x'
	}
	return string(b)
}

func (d *dumper) binarySections() {
	secs, err := rdi.Table[rdi.BinarySection](d.f, rdi.SectionBinarySections)
	if d.fail(err) {
		return
	}
	t := NewTable("binary sections", "idx", "name", "flags", "voff", "voff opl", "foff", "foff opl")
	for i, s := range secs {
		if i == 0 {
			continue
		}
		t.AddRow(i, d.str(s.NameStringIdx), flagString(s.Flags), fmt.Sprintf("%#x", s.VoffFirst), fmt.Sprintf("%#x", s.VoffOpl), fmt.Sprintf("%#x", s.FoffFirst), fmt.Sprintf("%#x", s.FoffOpl))
	}
	d.write(t)
}

func (d *dumper) nameMaps() {
	maps, err := rdi.Table[rdi.NameMap](d.f, rdi.SectionNameMaps)
	if d.fail(err) {
		return
	}
	t := NewTable("name maps", "map", "buckets", "nodes")
	for k, m := range maps {
		if rdi.NameMapKind(k) == rdi.NameMapNull {
			continue
		}
		t.AddRow(rdi.NameMapKind(k), m.BucketCount, m.NodeCount)
	}
	d.write(t)
}

func (d *dumper) lookup(name string) {
	t := NewTable(fmt.Sprintf("matches of %q", name), "map", "indexes")
	for k := rdi.NameMapNull + 1; k < rdi.NameMapCount; k++ {
		idxs, err := d.f.LookupName(k, name)
		if d.fail(err) {
			return
		}
		if len(idxs) > 0 {
			t.AddRow(k, fmt.Sprint(idxs))
		}
	}
	d.write(t)
}

func (d *dumper) strings() {
	strs, err := d.f.Strings()
	if d.fail(err) {
		return
	}
	t := NewTable("strings", "idx", "string")
	for i, s := range strs {
		if i == 0 {
			continue
		}
		t.AddRow(i, fmt.Sprintf("%q", s))
	}
	d.write(t)
}

func localKind(k rdi.LocalKind) string {
	switch k {
	case rdi.LocalParameter:
		return "param"
	case rdi.LocalVariable:
		return "var"
	}
	return fmt.Sprint(uint32(k))
}

// locations prints every location block of procedure frame bases and
// locals. Block ranges are relative to the owning scope's first voff.
func (d *dumper) locations() {
	blocks, err := rdi.Table[rdi.LocationBlock](d.f, rdi.SectionLocationBlocks)
	if d.fail(err) {
		return
	}
	procs, err := rdi.Table[rdi.Procedure](d.f, rdi.SectionProcedures)
	if d.fail(err) {
		return
	}
	locals, err := rdi.Table[rdi.Local](d.f, rdi.SectionLocals)
	if d.fail(err) {
		return
	}
	data := d.f.Sections[rdi.SectionLocationData]

	t := NewTable("locations", "owner", "name", "range", "location")
	add := func(owner, name string, first, opl uint32) {
		if first > opl || int(opl) > len(blocks) {
			d.fail(fmt.Errorf("%s %s: location blocks [%d,%d) out of range", owner, name, first, opl))
			return
		}
		for _, b := range blocks[first:opl] {
			loc := "<bad offset>"
			if int(b.LocationDataOff) < len(data) {
				var err error
				loc, err = rdi.DecodeLocation(data[b.LocationDataOff:])
				if err != nil {
					loc = "<" + err.Error() + ">"
				}
			}
			t.AddRow(owner, name, fmt.Sprintf("[%#x,%#x)", b.ScopeOffFirst, b.ScopeOffOpl), loc)
		}
	}
	for i, p := range procs {
		if i > 0 {
			add("frame base", d.str(p.NameStringIdx), p.FrameBaseLocationFirst, p.FrameBaseLocationOpl)
		}
	}
	for i, l := range locals {
		if i > 0 {
			add(localKind(l.Kind), d.str(l.NameStringIdx), l.LocationFirst, l.LocationOpl)
		}
	}
	d.write(t)
}

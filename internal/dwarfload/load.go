// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwarfload builds a debug-info model from DWARF.
//
// Addresses are converted to voffs by subtracting the image base.
// Location lists are not read; a variable whose location is a list
// gets no location.
package dwarfload

import (
	"debug/dwarf"
	"io"
	"log"
	"math"

	"github.com/pkg/errors"

	"github.com/aclements/go-rdi/internal/obj"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

type Config struct {
	ImageBase uint64
	Arch      rdi.Arch
	OS        rdim.OS

	// LinkNames maps procedure voffs to symbol names. It supplies link
	// names that the DWARF omits.
	LinkNames map[uint64]string

	// Logger, if non-nil, receives a summary of what was loaded.
	Logger *log.Logger
}

// LoadObj loads the DWARF of o along with its image sections.
func LoadObj(o obj.Obj, exeName string, exeHash uint64, logger *log.Logger) (*rdim.Model, error) {
	d, err := o.DWARF()
	if err != nil {
		return nil, errors.Wrap(err, "reading DWARF")
	}
	names, err := obj.TextSymbols(o)
	if err != nil {
		return nil, errors.Wrap(err, "reading symbols")
	}
	info := o.Info()
	m, err := Load(d, Config{
		ImageBase: info.ImageBase,
		Arch:      info.Arch,
		OS:        info.OS,
		LinkNames: names,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	m.BinarySections = o.Sections()
	m.TopLevel = rdim.MakeTopLevelInfo(exeName, info.Arch, exeHash, m.BinarySections)
	return m, nil
}

// Load builds a model from d.
func Load(d *dwarf.Data, cfg Config) (*rdim.Model, error) {
	l := &loader{
		d:        d,
		cfg:      cfg,
		m:        new(rdim.Model),
		addrSize: cfg.Arch.AddrSize(),
		dm:       rdim.InferDataModel(cfg.OS, cfg.Arch),
		tr:       d.Reader(),
		types:    make(map[dwarf.Offset]*rdim.Type),
		builtins: make(map[rdi.TypeKind]*rdim.Type),
		files:    make(map[string]*rdim.SrcFile),
	}
	if l.addrSize == 0 {
		return nil, errors.Errorf("unsupported architecture %v", cfg.Arch)
	}
	l.m.TopLevel = rdim.MakeTopLevelInfo("", cfg.Arch, 0, nil)

	r := d.Reader()
	for {
		cu, err := r.Next()
		if err != nil {
			return nil, errors.Wrap(err, "reading DWARF")
		}
		if cu == nil {
			break
		}
		if cu.Tag != dwarf.TagCompileUnit && cu.Tag != dwarf.TagPartialUnit {
			r.SkipChildren()
			continue
		}
		if err := l.unit(r, cu); err != nil {
			return nil, errors.Wrapf(err, "unit at %#x", cu.Offset)
		}
	}

	if lg := cfg.Logger; lg != nil {
		m := l.m
		lg.Printf("dwarfload: %d units, %d files, %d types, %d procedures, %d globals, %d thread variables, %d constants",
			m.Units.Len(), m.SrcFiles.Len(), m.Types.Len(), m.Procedures.Len(), m.GlobalVariables.Len(), m.ThreadVariables.Len(), m.Constants.Len())
		if l.unsupported > 0 {
			lg.Printf("dwarfload: %d locations have no bytecode equivalent", l.unsupported)
		}
	}
	return l.m, nil
}

type loader struct {
	d        *dwarf.Data
	cfg      Config
	m        *rdim.Model
	addrSize uint32
	dm       rdim.DataModel

	// tr reads entries out of walk order: types and abstract origins.
	tr *dwarf.Reader

	types    map[dwarf.Offset]*rdim.Type
	builtins map[rdi.TypeKind]*rdim.Type
	variadic *rdim.Type
	files    map[string]*rdim.SrcFile

	// cuFiles is the file table of the current unit's line program.
	cuFiles []*dwarf.LineFile

	unsupported int
}

// walkCtx is where an entry appears.
type walkCtx struct {
	unit  *rdim.Unit
	ns    string // Namespace prefix of names
	proc  *rdim.Symbol
	scope *rdim.Scope

	// params collects the parameter types of proc while walking its
	// root scope.
	params *[]*rdim.Type
}

func (l *loader) unit(r *dwarf.Reader, cu *dwarf.Entry) error {
	u := l.m.NewUnit()
	u.UnitName, _ = cu.Val(dwarf.AttrName).(string)
	u.CompilerName, _ = cu.Val(dwarf.AttrProducer).(string)
	u.BuildPath, _ = cu.Val(dwarf.AttrCompDir).(string)
	if u.UnitName != "" {
		u.SourceFile = joinPath(u.BuildPath, u.UnitName)
	}
	lang, _ := cu.Val(dwarf.AttrLanguage).(int64)
	u.Language = language(lang)

	ranges, err := l.d.Ranges(cu)
	if err != nil {
		return err
	}
	u.VoffRanges = l.voffRanges(ranges)
	if u.LineTable, err = l.lineTable(cu); err != nil {
		return err
	}
	return l.children(r, cu, walkCtx{unit: u})
}

// joinPath joins a relative name to dir. Names that are absolute on
// either Unix or Windows are returned as is.
func joinPath(dir, name string) string {
	if dir == "" || name == "" || name[0] == '/' || name[0] == '\\' || (len(name) >= 2 && name[1] == ':') {
		return name
	}
	return dir + "/" + name
}

func language(lang int64) rdi.Language {
	switch lang {
	case 0x1, 0x2, 0xc, 0x1d: // C89, C, C99, C11
		return rdi.LanguageC
	case 0x4, 0x19, 0x1a, 0x21: // C++, C++03, C++11, C++14
		return rdi.LanguageCPlusPlus
	case 0x16:
		return rdi.LanguageGo
	case 0x1c:
		return rdi.LanguageRust
	case 0x8001: // Mips_Assembler, used for assembly in general
		return rdi.LanguageMasm
	}
	return rdi.LanguageNull
}

func (l *loader) voffRanges(ranges [][2]uint64) []rdim.Rng1U64 {
	var out []rdim.Rng1U64
	for _, r := range ranges {
		if r[0] < l.cfg.ImageBase || r[1] <= r[0] {
			// Discarded code, or empty.
			continue
		}
		out = append(out, rdim.Rng1U64{Min: r[0] - l.cfg.ImageBase, Max: r[1] - l.cfg.ImageBase})
	}
	return out
}

func (l *loader) srcFile(path string) *rdim.SrcFile {
	f, ok := l.files[path]
	if !ok {
		f = l.m.NewSrcFile(path)
		l.files[path] = f
	}
	return f
}

// lineTable converts the line program of cu. Each DWARF sequence is
// split into one sequence per run of rows from the same file.
func (l *loader) lineTable(cu *dwarf.Entry) (*rdim.LineTable, error) {
	l.cuFiles = nil
	lr, err := l.d.LineReader(cu)
	if err != nil || lr == nil {
		return nil, err
	}
	l.cuFiles = lr.Files()

	var seqs []rdim.LineSequence
	var cur *rdim.LineSequence
	finish := func(end uint64) {
		if cur == nil {
			return
		}
		cur.Voffs = append(cur.Voffs, end)
		hasCols := false
		for _, c := range cur.Cols {
			hasCols = hasCols || c.ColFirst != 0
		}
		if !hasCols {
			cur.Cols = nil
		}
		seqs = append(seqs, *cur)
		cur = nil
	}

	var ent dwarf.LineEntry
	for {
		if err := lr.Next(&ent); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if ent.Address < l.cfg.ImageBase {
			// Code discarded by the linker.
			cur = nil
			continue
		}
		voff := ent.Address - l.cfg.ImageBase
		if ent.EndSequence || ent.File == nil {
			finish(voff)
			continue
		}
		f := l.srcFile(ent.File.Name)
		if cur != nil && cur.SrcFile != f {
			finish(voff)
		}
		if cur == nil {
			cur = &rdim.LineSequence{SrcFile: f}
		}
		cur.Voffs = append(cur.Voffs, voff)
		cur.Lines = append(cur.Lines, uint32(max(ent.Line, 0)))
		cur.Cols = append(cur.Cols, rdi.Column{ColFirst: uint16(min(max(ent.Column, 0), math.MaxUint16))})
	}
	// A sequence without an end row is malformed and dropped.

	if len(seqs) == 0 {
		return nil, nil
	}
	lt := l.m.NewLineTable()
	lt.Seqs = seqs
	return lt, nil
}

// children walks the children of e, which r has just returned.
func (l *loader) children(r *dwarf.Reader, e *dwarf.Entry, ctx walkCtx) error {
	if !e.Children {
		return nil
	}
	for {
		c, err := r.Next()
		if err != nil {
			return err
		}
		if c == nil || c.Tag == 0 {
			return nil
		}
		if err := l.entry(r, c, ctx); err != nil {
			return err
		}
	}
}

func (l *loader) entry(r *dwarf.Reader, e *dwarf.Entry, ctx walkCtx) error {
	switch e.Tag {
	case dwarf.TagNamespace:
		name, _ := e.Val(dwarf.AttrName).(string)
		if name == "" {
			name = "(anonymous namespace)"
		}
		ctx.ns += name + "::"
		return l.children(r, e, ctx)

	case dwarf.TagSubprogram:
		return l.subprogram(r, e, ctx)

	case dwarf.TagLexDwarfBlock, dwarf.TagInlinedSubroutine:
		if ctx.scope == nil {
			r.SkipChildren()
			return nil
		}
		return l.block(r, e, ctx)

	case dwarf.TagVariable, dwarf.TagFormalParameter, dwarf.TagConstant:
		r.SkipChildren()
		return l.variable(e, ctx)

	case dwarf.TagUnspecifiedParameters:
		if ctx.params != nil && ctx.scope == ctx.proc.RootScope {
			*ctx.params = append(*ctx.params, l.variadicType())
		}
		r.SkipChildren()
		return nil
	}

	r.SkipChildren()
	if isTypeTag(e.Tag) {
		// Convert types even if nothing refers to them, so they are
		// found by name.
		_, err := l.typeAt(e.Offset)
		return err
	}
	return nil
}

// entryAt returns the entry at off and its children.
func (l *loader) entryAt(off dwarf.Offset) (*dwarf.Entry, []*dwarf.Entry, error) {
	l.tr.Seek(off)
	e, err := l.tr.Next()
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, nil, errors.Errorf("no entry at %#x", off)
	}
	if !e.Children {
		return e, nil, nil
	}
	var kids []*dwarf.Entry
	for {
		c, err := l.tr.Next()
		if err != nil {
			return nil, nil, err
		}
		if c == nil || c.Tag == 0 {
			return e, kids, nil
		}
		kids = append(kids, c)
		if c.Children {
			l.tr.SkipChildren()
		}
	}
}

// declAttrs are the attributes of an entry, including those inherited
// from its specification or abstract origin.
type declAttrs struct {
	name     string
	linkName string
	external bool
	decl     bool
	typ      dwarf.Offset
	hasType  bool
	origin   dwarf.Offset // The last entry followed, or 0
}

// attrMIPSLinkageName is DW_AT_MIPS_linkage_name, which older
// compilers emit instead of DW_AT_linkage_name.
const attrMIPSLinkageName dwarf.Attr = 0x2007

func (l *loader) attrs(e *dwarf.Entry) declAttrs {
	var a declAttrs
	a.decl, _ = e.Val(dwarf.AttrDeclaration).(bool)
	for depth := 0; e != nil && depth < 8; depth++ {
		if a.name == "" {
			a.name, _ = e.Val(dwarf.AttrName).(string)
		}
		if a.linkName == "" {
			if a.linkName, _ = e.Val(dwarf.AttrLinkageName).(string); a.linkName == "" {
				a.linkName, _ = e.Val(attrMIPSLinkageName).(string)
			}
		}
		if ext, _ := e.Val(dwarf.AttrExternal).(bool); ext {
			a.external = true
		}
		if !a.hasType {
			a.typ, a.hasType = e.Val(dwarf.AttrType).(dwarf.Offset)
		}
		next, ok := e.Val(dwarf.AttrAbstractOrigin).(dwarf.Offset)
		if !ok {
			next, ok = e.Val(dwarf.AttrSpecification).(dwarf.Offset)
		}
		if !ok {
			break
		}
		a.origin = next
		e, _, _ = l.entryAt(next)
	}
	return a
}

func (l *loader) typeRef(a declAttrs) (*rdim.Type, error) {
	if !a.hasType {
		return nil, nil
	}
	return l.typeAt(a.typ)
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rdim is the in-memory debug-info model that is baked into an
// rdi file.
//
// A Model holds one chunked list per entity category. Entities refer
// to each other by pointer; every entity also records its 1-based
// index in its list, which is the index it is baked at. Index 0 means
// "none" in every baked table.
//
// Once built, a Model is read-only with one exception:
// ResolveIncompleteTypes and ComputeTypeSizes rewrite type link fields
// and sizes in place.
package rdim

import (
	"github.com/aclements/go-rdi/internal/chunk"
	"github.com/aclements/go-rdi/rdi"
)

// Rng1U64 is the half-open range [Min, Max).
type Rng1U64 struct {
	Min, Max uint64
}

func (r Rng1U64) Len() uint64 {
	if r.Max < r.Min {
		return 0
	}
	return r.Max - r.Min
}

// TopLevelInfo describes the executable as a whole.
type TopLevelInfo struct {
	Arch         rdi.Arch
	ExeName      string
	ExeHash      uint64
	VoffMax      uint64
	ProducerName string
}

// BinarySection is a section of the executable image.
type BinarySection struct {
	Name      string
	Flags     rdi.BinarySectionFlags
	VoffFirst uint64
	VoffOpl   uint64
	FoffFirst uint64
	FoffOpl   uint64
}

// Unit is a compilation unit.
type Unit struct {
	Idx uint32

	UnitName     string
	CompilerName string
	SourceFile   string
	ObjectFile   string
	ArchiveFile  string
	BuildPath    string
	Language     rdi.Language
	LineTable    *LineTable
	VoffRanges   []Rng1U64
}

// SrcFile is a source file referenced by line info.
type SrcFile struct {
	Idx uint32

	Path string
}

// LineTable is the line info of a unit or an inline site.
type LineTable struct {
	Idx uint32

	Seqs []LineSequence
}

// LineSequence is a run of contiguous code from one source file.
// Voffs has one more element than Lines: Voffs[i] through Voffs[i+1]
// is the code of Lines[i]. Cols is empty or parallel to Lines.
type LineSequence struct {
	SrcFile *SrcFile
	Voffs   []uint64
	Lines   []uint32
	Cols    []rdi.Column
}

// Type is a type node.
type Type struct {
	Idx uint32

	Kind     rdi.TypeKind
	Flags    rdi.TypeModifierFlags
	Name     string
	LinkName string
	ByteSize uint32

	// Count is the element count of an array, the parameter count of
	// a function, or the bit size of a bitfield.
	Count uint32

	// Off is the bit offset of a bitfield.
	Off uint32

	DirectType *Type
	ParamTypes []*Type
	UDT        *UDT
}

// UDT holds the members of a user-defined type.
type UDT struct {
	Idx uint32

	SelfType *Type
	Members  []UDTMember
	EnumVals []UDTEnumVal
	SrcFile  *SrcFile
	Line     uint32
	Col      uint32
}

// UDTMember is a member of a struct, class, or union.
type UDTMember struct {
	Kind rdi.MemberKind
	Name string
	Type *Type
	Off  uint32
}

// UDTEnumVal is a member of an enum.
type UDTEnumVal struct {
	Name string
	Val  uint64
}

// Symbol is a global variable, thread variable, constant, or
// procedure, depending on the list it lives in.
type Symbol struct {
	Idx uint32

	IsExtern bool
	Name     string
	LinkName string
	Type     *Type

	// Offset is the voff of a global variable or procedure, or the TLS
	// offset of a thread variable.
	Offset uint64

	// At most one container is set. A symbol nested in a type or a
	// procedure is scoped to it.
	ContainerSymbol *Symbol
	ContainerType   *Type

	// Procedures only.
	RootScope *Scope
	FrameBase []LocationCase

	// Constants only.
	Value []byte
}

// LinkFlags returns the baked link flags of s.
func (s *Symbol) LinkFlags() rdi.LinkFlags {
	var f rdi.LinkFlags
	if s.IsExtern {
		f |= rdi.LinkExternal
	}
	if s.ContainerType != nil {
		f |= rdi.LinkTypeScoped
	} else if s.ContainerSymbol != nil {
		f |= rdi.LinkProcScoped
	}
	return f
}

// ContainerIdx returns the index of s's container, or 0.
func (s *Symbol) ContainerIdx() uint32 {
	if s.ContainerType != nil {
		return s.ContainerType.Idx
	}
	return SymbolIdx(s.ContainerSymbol)
}

// Scope is a lexical block of a procedure.
type Scope struct {
	Idx uint32

	Symbol      *Symbol // Owning procedure
	Parent      *Scope
	FirstChild  *Scope
	LastChild   *Scope
	NextSibling *Scope
	VoffRanges  []Rng1U64
	Locals      []Local
	InlineSite  *InlineSite
}

// VoffBase returns the lowest voff of s, which location blocks of s
// are relative to.
func (s *Scope) VoffBase() uint64 {
	if s == nil || len(s.VoffRanges) == 0 {
		return 0
	}
	base := s.VoffRanges[0].Min
	for _, r := range s.VoffRanges[1:] {
		base = min(base, r.Min)
	}
	return base
}

// Local is a parameter or variable of a scope.
type Local struct {
	Kind      rdi.LocalKind
	Name      string
	Type      *Type
	Locations []LocationCase
}

// InlineSite is an inlined call.
type InlineSite struct {
	Idx uint32

	Name      string
	Type      *Type
	Owner     *Type
	LineTable *LineTable
}

// Model is a complete debug-info model.
type Model struct {
	TopLevel       TopLevelInfo
	BinarySections []BinarySection

	Units           chunk.List[Unit]
	SrcFiles        chunk.List[SrcFile]
	LineTables      chunk.List[LineTable]
	Types           chunk.List[Type]
	UDTs            chunk.List[UDT]
	GlobalVariables chunk.List[Symbol]
	ThreadVariables chunk.List[Symbol]
	Constants       chunk.List[Symbol]
	Procedures      chunk.List[Symbol]
	Scopes          chunk.List[Scope]
	InlineSites     chunk.List[InlineSite]
}

// push appends a zero element to l and returns it with its 1-based
// index.
func push[T any](l *chunk.List[T]) (*T, uint32) {
	v := l.Push()
	return v, uint32(l.Len())
}

func (m *Model) NewUnit() *Unit {
	u, idx := push(&m.Units)
	u.Idx = idx
	return u
}

func (m *Model) NewSrcFile(path string) *SrcFile {
	f, idx := push(&m.SrcFiles)
	f.Idx = idx
	f.Path = path
	return f
}

func (m *Model) NewLineTable() *LineTable {
	lt, idx := push(&m.LineTables)
	lt.Idx = idx
	return lt
}

func (m *Model) NewType(kind rdi.TypeKind) *Type {
	t, idx := push(&m.Types)
	t.Idx = idx
	t.Kind = kind
	return t
}

// NewUDT creates the UDT of self.
func (m *Model) NewUDT(self *Type) *UDT {
	u, idx := push(&m.UDTs)
	u.Idx = idx
	u.SelfType = self
	if self != nil {
		self.UDT = u
	}
	return u
}

func (m *Model) NewGlobalVariable() *Symbol { return newSymbol(&m.GlobalVariables) }
func (m *Model) NewThreadVariable() *Symbol { return newSymbol(&m.ThreadVariables) }
func (m *Model) NewConstant() *Symbol       { return newSymbol(&m.Constants) }
func (m *Model) NewProcedure() *Symbol      { return newSymbol(&m.Procedures) }

func newSymbol(l *chunk.List[Symbol]) *Symbol {
	s, idx := push(l)
	s.Idx = idx
	return s
}

// NewScope creates a scope of proc nested in parent. A nil parent
// makes the scope proc's root scope.
func (m *Model) NewScope(proc *Symbol, parent *Scope) *Scope {
	s, idx := push(&m.Scopes)
	s.Idx = idx
	s.Symbol = proc
	s.Parent = parent
	if parent == nil {
		if proc != nil && proc.RootScope == nil {
			proc.RootScope = s
		}
		return s
	}
	if parent.LastChild == nil {
		parent.FirstChild = s
	} else {
		parent.LastChild.NextSibling = s
	}
	parent.LastChild = s
	return s
}

func (m *Model) NewInlineSite() *InlineSite {
	s, idx := push(&m.InlineSites)
	s.Idx = idx
	return s
}

// Index helpers return 0 for nil.

func TypeIdx(t *Type) uint32 {
	if t == nil {
		return 0
	}
	return t.Idx
}

func UDTIdx(u *UDT) uint32 {
	if u == nil {
		return 0
	}
	return u.Idx
}

func SymbolIdx(s *Symbol) uint32 {
	if s == nil {
		return 0
	}
	return s.Idx
}

func ScopeIdx(s *Scope) uint32 {
	if s == nil {
		return 0
	}
	return s.Idx
}

func SrcFileIdx(f *SrcFile) uint32 {
	if f == nil {
		return 0
	}
	return f.Idx
}

func LineTableIdx(lt *LineTable) uint32 {
	if lt == nil {
		return 0
	}
	return lt.Idx
}

func InlineSiteIdx(s *InlineSite) uint32 {
	if s == nil {
		return 0
	}
	return s.Idx
}

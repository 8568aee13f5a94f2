// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rdi defines the baked debug-info file format.
//
// A baked file is a header, a section table, and the data of every
// section in SectionKind order. Every record table is a packed
// little-endian array of one of the record types below. Tables that
// are referenced by index reserve element 0 as a null record, so index
// 0 always means "none".
package rdi

type TopLevelInfo struct {
	Arch                  Arch
	ExeNameStringIdx      uint32
	ExeHash               uint64
	VoffMax               uint64
	ProducerNameStringIdx uint32
}

type BinarySection struct {
	NameStringIdx uint32
	Flags         BinarySectionFlags
	VoffFirst     uint64
	VoffOpl       uint64
	FoffFirst     uint64
	FoffOpl       uint64
}

type FilePathNode struct {
	NameStringIdx  uint32
	ParentPathNode uint32
	FirstChild     uint32
	NextSibling    uint32
	SourceFileIdx  uint32
}

type SourceFile struct {
	FilePathNodeIdx         uint32
	NormalFullPathStringIdx uint32
	SourceLineMapIdx        uint32
}

// LineTable indexes the LineInfo sections. Voffs has LinesCount+1
// entries: the last is the end of the final line.
type LineTable struct {
	VoffsBaseIdx uint32
	LinesBaseIdx uint32
	ColsBaseIdx  uint32
	LinesCount   uint32
	ColsCount    uint32
}

type Line struct {
	FileIdx uint32
	LineNum uint32
}

type Column struct {
	ColFirst uint16
	ColOpl   uint16
}

// SourceLineMap maps the lines of one source file to code. Numbers
// holds LineCount sorted line numbers. Ranges holds LineCount+1
// indexes into VOffs delimiting the voffs of each line.
type SourceLineMap struct {
	LineCount           uint32
	VoffCount           uint32
	LineMapNumsBaseIdx  uint32
	LineMapRangeBaseIdx uint32
	LineMapVoffBaseIdx  uint32
}

type Unit struct {
	UnitNameStringIdx     uint32
	CompilerNameStringIdx uint32
	SourceFilePathNode    uint32
	ObjectFilePathNode    uint32
	ArchiveFilePathNode   uint32
	BuildPathNode         uint32
	Language              Language
	LineTableIdx          uint32
}

// VMapEntry is one entry of a virtual-address map. An address maps to
// the Idx of the last entry whose Voff is <= the address.
type VMapEntry struct {
	Voff uint64
	Idx  uint64
}

// TypeNode is a type record. Which fields are meaningful depends on
// Kind:
//
//	built-in:     NameStringIdx
//	constructed:  DirectTypeIdx, Count (array length or parameter
//	              count), IdxRunFirst (parameter types), Flags
//	user-defined: NameStringIdx, DirectTypeIdx (enum base, alias
//	              target), UDTIdx
//	bitfield:     DirectTypeIdx, Off, Count (bit size)
type TypeNode struct {
	Kind          TypeKind
	Flags         TypeModifierFlags
	ByteSize      uint32
	NameStringIdx uint32
	DirectTypeIdx uint32
	Count         uint32
	IdxRunFirst   uint32
	UDTIdx        uint32
	Off           uint32
}

type UDT struct {
	SelfTypeIdx uint32
	Flags       UDTFlags
	MemberFirst uint32
	MemberCount uint32
	FileIdx     uint32
	Line        uint32
	Col         uint32
}

type Member struct {
	Kind          MemberKind
	NameStringIdx uint32
	TypeIdx       uint32
	Off           uint32
}

type EnumMember struct {
	NameStringIdx uint32
	Val           uint64
}

type GlobalVariable struct {
	NameStringIdx uint32
	LinkFlags     LinkFlags
	Voff          uint64
	TypeIdx       uint32
	ContainerIdx  uint32
}

type ThreadVariable struct {
	NameStringIdx uint32
	LinkFlags     LinkFlags
	TLSOff        uint32
	TypeIdx       uint32
	ContainerIdx  uint32
}

// Constant values are stored in ConstantValueData; ConstantValueTable
// holds the offset of each value, with one extra final offset.
type Constant struct {
	NameStringIdx    uint32
	TypeIdx          uint32
	ConstantValueIdx uint32
}

type Procedure struct {
	NameStringIdx          uint32
	LinkNameStringIdx      uint32
	LinkFlags              LinkFlags
	TypeIdx                uint32
	RootScopeIdx           uint32
	ContainerIdx           uint32
	FrameBaseLocationFirst uint32
	FrameBaseLocationOpl   uint32
}

// Scope covers the voff ranges ScopeVOffData[VoffRangeFirst:VoffRangeOpl],
// taken in pairs.
type Scope struct {
	ProcIdx             uint32
	ParentScopeIdx      uint32
	FirstChildScopeIdx  uint32
	NextSiblingScopeIdx uint32
	VoffRangeFirst      uint32
	VoffRangeOpl        uint32
	LocalFirst          uint32
	LocalCount          uint32
	InlineSiteIdx       uint32
}

type InlineSite struct {
	NameStringIdx uint32
	TypeIdx       uint32
	OwnerTypeIdx  uint32
	LineTableIdx  uint32
}

type Local struct {
	Kind          LocalKind
	NameStringIdx uint32
	TypeIdx       uint32
	LocationFirst uint32
	LocationOpl   uint32
}

// LocationBlock says where a value lives while the program counter is
// within [ScopeOffFirst, ScopeOffOpl) of the owning scope's first
// voff. The location itself is encoded at LocationDataOff.
type LocationBlock struct {
	ScopeOffFirst   uint32
	ScopeOffOpl     uint32
	LocationDataOff uint32
}

// NameMap locates one name map's buckets and nodes. The NameMaps
// section holds one NameMap per NameMapKind.
type NameMap struct {
	BucketBaseIdx uint32
	NodeBaseIdx   uint32
	BucketCount   uint32
	NodeCount     uint32
}

type NameMapBucket struct {
	FirstNode uint32
	NodeCount uint32
}

// NameMapNode maps a name to its matches. With one match,
// MatchIdxOrIdxRunFirst is the match; otherwise it is the first
// element of an index run of MatchCount matches.
type NameMapNode struct {
	StringIdx             uint32
	MatchCount            uint32
	MatchIdxOrIdxRunFirst uint32
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdi

import "fmt"

// SectionKind identifies a section of a baked file. The order of this
// enumeration is the order sections are laid out in a file.
type SectionKind uint32

const (
	SectionNull SectionKind = iota
	SectionTopLevelInfo
	SectionStringData
	SectionStringTable
	SectionIndexRuns
	SectionBinarySections
	SectionFilePathNodes
	SectionSourceFiles
	SectionLineTables
	SectionLineInfoVOffs
	SectionLineInfoLines
	SectionLineInfoColumns
	SectionSourceLineMaps
	SectionSourceLineMapNumbers
	SectionSourceLineMapRanges
	SectionSourceLineMapVOffs
	SectionUnits
	SectionUnitVMap
	SectionTypeNodes
	SectionUDTs
	SectionMembers
	SectionEnumMembers
	SectionGlobalVariables
	SectionGlobalVMap
	SectionThreadVariables
	SectionConstants
	SectionConstantValueData
	SectionConstantValueTable
	SectionProcedures
	SectionScopes
	SectionScopeVOffData
	SectionScopeVMap
	SectionInlineSites
	SectionLocals
	SectionLocationBlocks
	SectionLocationData
	SectionNameMaps
	SectionNameMapBuckets
	SectionNameMapNodes

	SectionCount
)

var sectionNames = [SectionCount]string{
	"Null",
	"TopLevelInfo",
	"StringData",
	"StringTable",
	"IndexRuns",
	"BinarySections",
	"FilePathNodes",
	"SourceFiles",
	"LineTables",
	"LineInfoVOffs",
	"LineInfoLines",
	"LineInfoColumns",
	"SourceLineMaps",
	"SourceLineMapNumbers",
	"SourceLineMapRanges",
	"SourceLineMapVOffs",
	"Units",
	"UnitVMap",
	"TypeNodes",
	"UDTs",
	"Members",
	"EnumMembers",
	"GlobalVariables",
	"GlobalVMap",
	"ThreadVariables",
	"Constants",
	"ConstantValueData",
	"ConstantValueTable",
	"Procedures",
	"Scopes",
	"ScopeVOffData",
	"ScopeVMap",
	"InlineSites",
	"Locals",
	"LocationBlocks",
	"LocationData",
	"NameMaps",
	"NameMapBuckets",
	"NameMapNodes",
}

func (k SectionKind) String() string {
	if k < SectionCount {
		return sectionNames[k]
	}
	return fmt.Sprintf("SectionKind(%d)", uint32(k))
}

// TypeKind classifies a type node. Kinds are grouped in contiguous
// ranges; use the Is* predicates rather than comparing values.
type TypeKind uint16

const (
	TypeKindNull TypeKind = iota

	// Built-in kinds.
	TypeKindVoid
	TypeKindHandle
	TypeKindHResult
	TypeKindChar8
	TypeKindChar16
	TypeKindChar32
	TypeKindUChar8
	TypeKindUChar16
	TypeKindUChar32
	TypeKindU8
	TypeKindU16
	TypeKindU32
	TypeKindU64
	TypeKindU128
	TypeKindU256
	TypeKindU512
	TypeKindS8
	TypeKindS16
	TypeKindS32
	TypeKindS64
	TypeKindS128
	TypeKindS256
	TypeKindS512
	TypeKindBool
	TypeKindF16
	TypeKindF32
	TypeKindF32PP
	TypeKindF48
	TypeKindF64
	TypeKindF80
	TypeKindF128
	TypeKindComplexF32
	TypeKindComplexF64
	TypeKindComplexF80
	TypeKindComplexF128

	// Constructed kinds.
	TypeKindModifier
	TypeKindPtr
	TypeKindLRef
	TypeKindRRef
	TypeKindArray
	TypeKindFunction
	TypeKindMethod
	TypeKindMemberPtr

	// User-defined kinds. Struct through Union are records.
	TypeKindStruct
	TypeKindClass
	TypeKindUnion
	TypeKindEnum
	TypeKindAlias
	TypeKindIncompleteStruct
	TypeKindIncompleteUnion
	TypeKindIncompleteClass
	TypeKindIncompleteEnum

	// Bitfield and variadic are neither built-in nor user-defined.
	TypeKindBitfield
	TypeKindVariadic

	TypeKindCount
)

// Range boundaries of TypeKind.
const (
	TypeKindFirstBuiltIn     = TypeKindVoid
	TypeKindLastBuiltIn      = TypeKindComplexF128
	TypeKindFirstConstructed = TypeKindModifier
	TypeKindLastConstructed  = TypeKindMemberPtr
	TypeKindFirstUserDefined = TypeKindStruct
	TypeKindLastUserDefined  = TypeKindIncompleteEnum
	TypeKindFirstRecord      = TypeKindStruct
	TypeKindLastRecord       = TypeKindUnion
	TypeKindFirstIncomplete  = TypeKindIncompleteStruct
	TypeKindLastIncomplete   = TypeKindIncompleteEnum
)

func (k TypeKind) IsNull() bool { return k == TypeKindNull }

func (k TypeKind) IsBuiltIn() bool {
	return TypeKindFirstBuiltIn <= k && k <= TypeKindLastBuiltIn
}

func (k TypeKind) IsConstructed() bool {
	return TypeKindFirstConstructed <= k && k <= TypeKindLastConstructed
}

func (k TypeKind) IsUserDefined() bool {
	return TypeKindFirstUserDefined <= k && k <= TypeKindLastUserDefined
}

// IsRecord reports whether k is a complete struct, class, or union.
// These are the kinds that forward declarations resolve to.
func (k TypeKind) IsRecord() bool {
	return TypeKindFirstRecord <= k && k <= TypeKindLastRecord
}

// IsIncomplete reports whether k is a forward declaration.
func (k TypeKind) IsIncomplete() bool {
	return TypeKindFirstIncomplete <= k && k <= TypeKindLastIncomplete
}

var builtInSizes = [...]uint32{
	TypeKindVoid:        0,
	TypeKindHandle:      0xFFFFFFFF, // pointer sized
	TypeKindHResult:     4,
	TypeKindChar8:       1,
	TypeKindChar16:      2,
	TypeKindChar32:      4,
	TypeKindUChar8:      1,
	TypeKindUChar16:     2,
	TypeKindUChar32:     4,
	TypeKindU8:          1,
	TypeKindU16:         2,
	TypeKindU32:         4,
	TypeKindU64:         8,
	TypeKindU128:        16,
	TypeKindU256:        32,
	TypeKindU512:        64,
	TypeKindS8:          1,
	TypeKindS16:         2,
	TypeKindS32:         4,
	TypeKindS64:         8,
	TypeKindS128:        16,
	TypeKindS256:        32,
	TypeKindS512:        64,
	TypeKindBool:        1,
	TypeKindF16:         2,
	TypeKindF32:         4,
	TypeKindF32PP:       4,
	TypeKindF48:         6,
	TypeKindF64:         8,
	TypeKindF80:         10,
	TypeKindF128:        16,
	TypeKindComplexF32:  8,
	TypeKindComplexF64:  16,
	TypeKindComplexF80:  20,
	TypeKindComplexF128: 32,
}

// BuiltInSize returns the byte size of built-in kind k for an
// architecture with the given address size.
func (k TypeKind) BuiltInSize(addrSize uint32) uint32 {
	if !k.IsBuiltIn() {
		panic(fmt.Sprintf("rdi: %v is not a built-in type kind", k))
	}
	if sz := builtInSizes[k]; sz != 0xFFFFFFFF {
		return sz
	}
	return addrSize
}

var typeKindNames = [TypeKindCount]string{
	"Null", "Void", "Handle", "HResult",
	"Char8", "Char16", "Char32", "UChar8", "UChar16", "UChar32",
	"U8", "U16", "U32", "U64", "U128", "U256", "U512",
	"S8", "S16", "S32", "S64", "S128", "S256", "S512",
	"Bool", "F16", "F32", "F32PP", "F48", "F64", "F80", "F128",
	"ComplexF32", "ComplexF64", "ComplexF80", "ComplexF128",
	"Modifier", "Ptr", "LRef", "RRef", "Array", "Function", "Method", "MemberPtr",
	"Struct", "Class", "Union", "Enum", "Alias",
	"IncompleteStruct", "IncompleteUnion", "IncompleteClass", "IncompleteEnum",
	"Bitfield", "Variadic",
}

func (k TypeKind) String() string {
	if k < TypeKindCount {
		return typeKindNames[k]
	}
	return fmt.Sprintf("TypeKind(%d)", uint16(k))
}

// TypeModifierFlags qualify a Modifier type.
type TypeModifierFlags uint16

const (
	TypeModifierConst TypeModifierFlags = 1 << iota
	TypeModifierVolatile
)

// NameMapKind identifies a name lookup table.
type NameMapKind uint32

const (
	NameMapNull NameMapKind = iota
	NameMapGlobalVariables
	NameMapThreadVariables
	NameMapConstants
	NameMapProcedures
	NameMapTypes
	NameMapLinkNameProcedures
	NameMapNormalSourcePaths

	NameMapCount
)

var nameMapNames = [NameMapCount]string{
	"Null", "GlobalVariables", "ThreadVariables", "Constants",
	"Procedures", "Types", "LinkNameProcedures", "NormalSourcePaths",
}

func (k NameMapKind) String() string {
	if k < NameMapCount {
		return nameMapNames[k]
	}
	return fmt.Sprintf("NameMapKind(%d)", uint32(k))
}

// Arch is a target architecture.
type Arch uint32

const (
	ArchNull Arch = iota
	ArchX86
	ArchX64
)

// AddrSize returns the size in bytes of an address on a.
func (a Arch) AddrSize() uint32 {
	switch a {
	case ArchX86:
		return 4
	case ArchX64:
		return 8
	}
	return 0
}

func (a Arch) String() string {
	switch a {
	case ArchNull:
		return "null"
	case ArchX86:
		return "x86"
	case ArchX64:
		return "x64"
	}
	return fmt.Sprintf("Arch(%d)", uint32(a))
}

// Encoding is the transform applied to a section's bytes.
type Encoding uint32

const (
	EncodingNone Encoding = iota
	EncodingLZ4
)

func (e Encoding) String() string {
	switch e {
	case EncodingNone:
		return "none"
	case EncodingLZ4:
		return "lz4"
	}
	return fmt.Sprintf("Encoding(%d)", uint32(e))
}

// Language is the source language of a unit.
type Language uint32

const (
	LanguageNull Language = iota
	LanguageC
	LanguageCPlusPlus
	LanguageMasm
	LanguageRust
	LanguageGo
)

// BinarySectionFlags describe the access of an image section.
type BinarySectionFlags uint32

const (
	BinarySectionRead BinarySectionFlags = 1 << iota
	BinarySectionWrite
	BinarySectionExecute
)

// LinkFlags describe the linkage of a symbol.
type LinkFlags uint32

const (
	LinkExternal LinkFlags = 1 << iota
	LinkTypeScoped
	LinkProcScoped
)

// UDTFlags describe a user-defined type.
type UDTFlags uint32

const (
	// UDTEnumMembers is set when a UDT's members index the
	// EnumMembers section rather than Members.
	UDTEnumMembers UDTFlags = 1 << iota
)

// MemberKind classifies a UDT member.
type MemberKind uint16

const (
	MemberNull MemberKind = iota
	MemberDataField
	MemberStaticData
	MemberMethod
	MemberStaticMethod
	MemberVirtualMethod
	MemberVTablePtr
	MemberBase
	MemberVirtualBase
	MemberNestedType
)

// LocalKind classifies a local variable.
type LocalKind uint32

const (
	LocalNull LocalKind = iota
	LocalParameter
	LocalVariable
)

// LocationKind classifies an encoded location in LocationData.
type LocationKind uint8

const (
	LocationNull LocationKind = iota
	LocationAddrBytecodeStream
	LocationValBytecodeStream
	LocationAddrRegPlusU16
	LocationAddrAddrRegPlusU16
	LocationValReg
)

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfload

import (
	"debug/dwarf"
	"strings"

	"github.com/aclements/go-rdi/internal/varint"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

func isTypeTag(tag dwarf.Tag) bool {
	switch tag {
	case dwarf.TagBaseType, dwarf.TagPointerType, dwarf.TagReferenceType,
		dwarf.TagRvalueReferenceType, dwarf.TagConstType, dwarf.TagVolatileType,
		dwarf.TagRestrictType, dwarf.TagTypedef, dwarf.TagArrayType,
		dwarf.TagSubroutineType, dwarf.TagStructType, dwarf.TagClassType,
		dwarf.TagUnionType, dwarf.TagEnumerationType, dwarf.TagPtrToMemberType,
		dwarf.TagUnspecifiedType:
		return true
	}
	return false
}

var (
	recordKinds = map[dwarf.Tag]rdi.TypeKind{
		dwarf.TagStructType: rdi.TypeKindStruct,
		dwarf.TagClassType:  rdi.TypeKindClass,
		dwarf.TagUnionType:  rdi.TypeKindUnion,
	}
	incompleteKinds = map[dwarf.Tag]rdi.TypeKind{
		dwarf.TagStructType: rdi.TypeKindIncompleteStruct,
		dwarf.TagClassType:  rdi.TypeKindIncompleteClass,
		dwarf.TagUnionType:  rdi.TypeKindIncompleteUnion,
	}
)

// typeAt returns the type at off, converting it on first use. Every
// DWARF type entry becomes exactly one model type.
func (l *loader) typeAt(off dwarf.Offset) (*rdim.Type, error) {
	if t, ok := l.types[off]; ok {
		return t, nil
	}
	e, kids, err := l.entryAt(off)
	if err != nil {
		return nil, err
	}
	return l.convertType(e, kids)
}

func (l *loader) typeOf(e *dwarf.Entry) (*rdim.Type, error) {
	off, ok := e.Val(dwarf.AttrType).(dwarf.Offset)
	if !ok {
		// void
		return nil, nil
	}
	return l.typeAt(off)
}

// newType creates the type of the entry at off. It is registered
// before its references are converted, so cycles through pointers
// terminate.
func (l *loader) newType(off dwarf.Offset, kind rdi.TypeKind) *rdim.Type {
	t := l.m.NewType(kind)
	l.types[off] = t
	return t
}

func (l *loader) convertType(e *dwarf.Entry, kids []*dwarf.Entry) (*rdim.Type, error) {
	name, _ := e.Val(dwarf.AttrName).(string)
	size, _ := e.Val(dwarf.AttrByteSize).(int64)
	decl, _ := e.Val(dwarf.AttrDeclaration).(bool)
	var err error

	switch e.Tag {
	case dwarf.TagBaseType:
		enc, _ := e.Val(dwarf.AttrEncoding).(int64)
		if size == 0 {
			size = int64(l.implicitSize(name))
		}
		t := l.newType(e.Offset, baseKind(enc, size))
		t.Name = name
		t.ByteSize = uint32(size)
		return t, nil

	case dwarf.TagPointerType, dwarf.TagReferenceType, dwarf.TagRvalueReferenceType, dwarf.TagPtrToMemberType:
		kind := rdi.TypeKindPtr
		switch e.Tag {
		case dwarf.TagReferenceType:
			kind = rdi.TypeKindLRef
		case dwarf.TagRvalueReferenceType:
			kind = rdi.TypeKindRRef
		case dwarf.TagPtrToMemberType:
			kind = rdi.TypeKindMemberPtr
		}
		t := l.newType(e.Offset, kind)
		t.ByteSize = uint32(size)
		t.DirectType, err = l.typeOf(e)
		return t, err

	case dwarf.TagConstType, dwarf.TagVolatileType, dwarf.TagRestrictType:
		t := l.newType(e.Offset, rdi.TypeKindModifier)
		switch e.Tag {
		case dwarf.TagConstType:
			t.Flags = rdi.TypeModifierConst
		case dwarf.TagVolatileType:
			t.Flags = rdi.TypeModifierVolatile
		}
		t.DirectType, err = l.typeOf(e)
		return t, err

	case dwarf.TagTypedef:
		t := l.newType(e.Offset, rdi.TypeKindAlias)
		t.Name = name
		t.DirectType, err = l.typeOf(e)
		return t, err

	case dwarf.TagUnspecifiedType:
		t := l.newType(e.Offset, rdi.TypeKindVoid)
		t.Name = name
		return t, nil

	case dwarf.TagArrayType:
		return l.arrayType(e, kids)

	case dwarf.TagSubroutineType:
		t := l.newType(e.Offset, rdi.TypeKindFunction)
		if t.DirectType, err = l.typeOf(e); err != nil {
			return nil, err
		}
		t.ParamTypes, err = l.paramTypes(kids)
		return t, err

	case dwarf.TagStructType, dwarf.TagClassType, dwarf.TagUnionType:
		kind := recordKinds[e.Tag]
		if decl {
			kind = incompleteKinds[e.Tag]
		}
		t := l.newType(e.Offset, kind)
		t.Name = name
		if decl {
			return t, nil
		}
		t.ByteSize = uint32(size)
		udt := l.m.NewUDT(t)
		l.declPos(udt, e)
		udt.Members, err = l.members(kids)
		return t, err

	case dwarf.TagEnumerationType:
		if decl {
			t := l.newType(e.Offset, rdi.TypeKindIncompleteEnum)
			t.Name = name
			return t, nil
		}
		t := l.newType(e.Offset, rdi.TypeKindEnum)
		t.Name = name
		t.ByteSize = uint32(size)
		if t.DirectType, err = l.typeOf(e); err != nil {
			return nil, err
		}
		if t.DirectType == nil {
			t.DirectType = l.builtin(intKind(size, true))
		}
		udt := l.m.NewUDT(t)
		l.declPos(udt, e)
		for _, k := range kids {
			if k.Tag != dwarf.TagEnumerator {
				continue
			}
			v := rdim.UDTEnumVal{}
			v.Name, _ = k.Val(dwarf.AttrName).(string)
			switch c := k.Val(dwarf.AttrConstValue).(type) {
			case int64:
				v.Val = uint64(c)
			case uint64:
				v.Val = c
			}
			udt.EnumVals = append(udt.EnumVals, v)
		}
		return t, nil
	}
	return nil, nil
}

// arrayType converts an array. Each subrange is one dimension, the
// first outermost.
func (l *loader) arrayType(e *dwarf.Entry, kids []*dwarf.Entry) (*rdim.Type, error) {
	t := l.newType(e.Offset, rdi.TypeKindArray)
	elem, err := l.typeOf(e)
	if err != nil {
		return nil, err
	}
	var dims []uint32
	for _, k := range kids {
		if k.Tag != dwarf.TagSubrangeType {
			continue
		}
		var n int64
		if c, ok := k.Val(dwarf.AttrCount).(int64); ok {
			n = c
		} else if ub, ok := k.Val(dwarf.AttrUpperBound).(int64); ok {
			lb, _ := k.Val(dwarf.AttrLowerBound).(int64)
			n = ub - lb + 1
		}
		dims = append(dims, uint32(max(n, 0)))
	}
	if len(dims) == 0 {
		// Flexible array member.
		dims = []uint32{0}
	}
	for i := len(dims) - 1; i > 0; i-- {
		inner := l.m.NewType(rdi.TypeKindArray)
		inner.DirectType = elem
		inner.Count = dims[i]
		elem = inner
	}
	t.DirectType = elem
	t.Count = dims[0]
	return t, nil
}

func (l *loader) paramTypes(kids []*dwarf.Entry) ([]*rdim.Type, error) {
	var params []*rdim.Type
	for _, k := range kids {
		switch k.Tag {
		case dwarf.TagFormalParameter:
			p, err := l.typeOf(k)
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		case dwarf.TagUnspecifiedParameters:
			params = append(params, l.variadicType())
		}
	}
	return params, nil
}

func (l *loader) members(kids []*dwarf.Entry) ([]rdim.UDTMember, error) {
	var out []rdim.UDTMember
	for _, k := range kids {
		mem := rdim.UDTMember{}
		mem.Name, _ = k.Val(dwarf.AttrName).(string)
		var err error
		switch k.Tag {
		case dwarf.TagMember:
			mem.Kind = rdi.MemberDataField
			if mem.Type, err = l.typeOf(k); err != nil {
				return nil, err
			}
			if ext, _ := k.Val(dwarf.AttrExternal).(bool); ext {
				mem.Kind = rdi.MemberStaticData
				break
			}
			mem.Off = memberOffset(k)
			if bits, ok := k.Val(dwarf.AttrBitSize).(int64); ok {
				mem.Type = l.bitfield(k, mem.Type, bits, &mem.Off)
			}
		case dwarf.TagVariable:
			// DWARF 5 static data member.
			mem.Kind = rdi.MemberStaticData
			if mem.Type, err = l.typeOf(k); err != nil {
				return nil, err
			}
		case dwarf.TagInheritance:
			mem.Kind = rdi.MemberBase
			if v, _ := k.Val(dwarf.AttrVirtuality).(int64); v != 0 {
				mem.Kind = rdi.MemberVirtualBase
			}
			if mem.Type, err = l.typeOf(k); err != nil {
				return nil, err
			}
			mem.Off = memberOffset(k)
		case dwarf.TagSubprogram:
			mem.Kind = rdi.MemberMethod
			if v, _ := k.Val(dwarf.AttrVirtuality).(int64); v != 0 {
				mem.Kind = rdi.MemberVirtualMethod
			}
		default:
			if !isTypeTag(k.Tag) {
				continue
			}
			mem.Kind = rdi.MemberNestedType
			if mem.Type, err = l.typeAt(k.Offset); err != nil {
				return nil, err
			}
		}
		out = append(out, mem)
	}
	return out, nil
}

// memberOffset returns the byte offset of a member, given either as a
// constant or, in DWARF 2, as a DW_OP_plus_uconst expression.
func memberOffset(e *dwarf.Entry) uint32 {
	switch v := e.Val(dwarf.AttrDataMemberLoc).(type) {
	case int64:
		return uint32(v)
	case []byte:
		if len(v) > 1 && v[0] == opPlusUconst {
			off, n := varint.Uvarint(v[1:])
			if n > 0 {
				return uint32(off)
			}
		}
	}
	return 0
}

// bitfield returns a bitfield type of bits bits of storage type typ.
// Its bit offset is counted from the least significant bit of the
// storage unit at *off.
func (l *loader) bitfield(e *dwarf.Entry, typ *rdim.Type, bits int64, off *uint32) *rdim.Type {
	bf := l.m.NewType(rdi.TypeKindBitfield)
	bf.DirectType = typ
	bf.Count = uint32(bits)
	if dbo, ok := e.Val(dwarf.AttrDataBitOffset).(int64); ok {
		*off = uint32(dbo / 8)
		bf.Off = uint32(dbo % 8)
	} else if bo, ok := e.Val(dwarf.AttrBitOffset).(int64); ok {
		// DWARF 2 counts from the most significant bit of a storage
		// unit of DW_AT_byte_size bytes.
		unit, _ := e.Val(dwarf.AttrByteSize).(int64)
		if unit == 0 && typ != nil {
			unit = int64(typ.ByteSize)
		}
		bf.Off = uint32(max(unit*8-bo-bits, 0))
	}
	return bf
}

func (l *loader) declPos(udt *rdim.UDT, e *dwarf.Entry) {
	if i, ok := e.Val(dwarf.AttrDeclFile).(int64); ok && i >= 0 && int(i) < len(l.cuFiles) && l.cuFiles[i] != nil {
		udt.SrcFile = l.srcFile(l.cuFiles[i].Name)
	}
	if line, ok := e.Val(dwarf.AttrDeclLine).(int64); ok {
		udt.Line = uint32(line)
	}
	if col, ok := e.Val(dwarf.AttrDeclColumn).(int64); ok {
		udt.Col = uint32(col)
	}
}

// builtin returns a synthesized built-in type of kind.
func (l *loader) builtin(kind rdi.TypeKind) *rdim.Type {
	t, ok := l.builtins[kind]
	if !ok {
		t = l.m.NewType(kind)
		l.builtins[kind] = t
	}
	return t
}

func (l *loader) variadicType() *rdim.Type {
	if l.variadic == nil {
		l.variadic = l.m.NewType(rdi.TypeKindVariadic)
	}
	return l.variadic
}

// implicitSize returns the size of a C integer type from the target's
// data model, for base types that omit their size.
func (l *loader) implicitSize(name string) uint32 {
	short, integer, long, longLong, _ := l.dm.IntSizes()
	name = strings.TrimPrefix(name, "unsigned ")
	name = strings.TrimPrefix(name, "signed ")
	name = strings.TrimSuffix(name, " int")
	switch name {
	case "short":
		return short
	case "int", "unsigned", "signed":
		return integer
	case "long":
		return long
	case "long long":
		return longLong
	}
	return 0
}

// DWARF base type encodings.
const (
	ateAddress      = 0x1
	ateBoolean      = 0x2
	ateComplexFloat = 0x3
	ateFloat        = 0x4
	ateSigned       = 0x5
	ateSignedChar   = 0x6
	ateUnsigned     = 0x7
	ateUnsignedChar = 0x8
	ateUTF          = 0x10
)

func baseKind(enc, size int64) rdi.TypeKind {
	switch enc {
	case ateBoolean:
		return rdi.TypeKindBool
	case ateFloat:
		switch size {
		case 2:
			return rdi.TypeKindF16
		case 4:
			return rdi.TypeKindF32
		case 6:
			return rdi.TypeKindF48
		case 8:
			return rdi.TypeKindF64
		case 10, 12:
			return rdi.TypeKindF80
		case 16:
			return rdi.TypeKindF128
		}
	case ateComplexFloat:
		switch size {
		case 8:
			return rdi.TypeKindComplexF32
		case 16:
			return rdi.TypeKindComplexF64
		case 20, 24:
			return rdi.TypeKindComplexF80
		case 32:
			return rdi.TypeKindComplexF128
		}
	case ateSigned:
		return intKind(size, true)
	case ateSignedChar:
		if size == 1 {
			return rdi.TypeKindChar8
		}
		return intKind(size, true)
	case ateUnsigned, ateAddress:
		return intKind(size, false)
	case ateUnsignedChar:
		if size == 1 {
			return rdi.TypeKindUChar8
		}
		return intKind(size, false)
	case ateUTF:
		switch size {
		case 1:
			return rdi.TypeKindChar8
		case 2:
			return rdi.TypeKindChar16
		case 4:
			return rdi.TypeKindChar32
		}
	}
	if size == 0 {
		return rdi.TypeKindVoid
	}
	return intKind(size, false)
}

func intKind(size int64, signed bool) rdi.TypeKind {
	kinds := [...]rdi.TypeKind{rdi.TypeKindU8, rdi.TypeKindU16, rdi.TypeKindU32, rdi.TypeKindU64, rdi.TypeKindU128}
	if signed {
		kinds = [...]rdi.TypeKind{rdi.TypeKindS8, rdi.TypeKindS16, rdi.TypeKindS32, rdi.TypeKindS64, rdi.TypeKindS128}
	}
	switch size {
	case 1:
		return kinds[0]
	case 2:
		return kinds[1]
	case 4:
		return kinds[2]
	case 8:
		return kinds[3]
	case 16:
		return kinds[4]
	}
	return kinds[0]
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfload

import (
	"bytes"
	"debug/dwarf"
	"encoding/binary"
	"testing"

	"github.com/aclements/go-rdi/internal/varint"
)

// DWARF forms used by the test builder.
const (
	formAddr        = 0x01
	formData1       = 0x0b
	formData4       = 0x06
	formString      = 0x08
	formSdata       = 0x0d
	formRef4        = 0x13
	formSecOffset   = 0x17
	formExprloc     = 0x18
	formFlagPresent = 0x19
)

// die is a debugging information entry under construction.
type die struct {
	tag   dwarf.Tag
	attrs []dieAttr
	kids  []*die
	off   uint32 // Offset in .debug_info, set by build
}

type dieAttr struct {
	attr dwarf.Attr
	form int
	val  any
}

func newDie(tag dwarf.Tag, name string) *die {
	d := &die{tag: tag}
	if name != "" {
		d.str(dwarf.AttrName, name)
	}
	return d
}

func (d *die) add(kids ...*die) *die {
	d.kids = append(d.kids, kids...)
	return d
}

func (d *die) attr(a dwarf.Attr, form int, val any) *die {
	d.attrs = append(d.attrs, dieAttr{a, form, val})
	return d
}

func (d *die) str(a dwarf.Attr, s string) *die  { return d.attr(a, formString, s) }
func (d *die) u8(a dwarf.Attr, v uint8) *die    { return d.attr(a, formData1, v) }
func (d *die) u32(a dwarf.Attr, v uint32) *die  { return d.attr(a, formData4, v) }
func (d *die) addr(a dwarf.Attr, v uint64) *die { return d.attr(a, formAddr, v) }
func (d *die) sdata(a dwarf.Attr, v int64) *die { return d.attr(a, formSdata, v) }
func (d *die) ref(a dwarf.Attr, to *die) *die   { return d.attr(a, formRef4, to) }
func (d *die) expr(a dwarf.Attr, e []byte) *die { return d.attr(a, formExprloc, e) }
func (d *die) flag(a dwarf.Attr) *die           { return d.attr(a, formFlagPresent, nil) }
func (d *die) typ(to *die) *die                 { return d.ref(dwarf.AttrType, to) }
func (d *die) lines(off uint32) *die            { return d.attr(dwarf.AttrStmtList, formSecOffset, off) }
func (d *die) pcs(low uint64, size uint32) *die { return d.addr(dwarf.AttrLowpc, low).u32(dwarf.AttrHighpc, size) }

const cuHeaderSize = 11

// layout assigns offsets to d and its descendants, starting at off.
func (d *die) layout(off uint32) uint32 {
	d.off = off
	off += uint32(len(varint.AppendUvarint(nil, uint64(d.off)))) // Abbrev code is the offset
	for _, a := range d.attrs {
		off += uint32(len(encodeAttr(nil, a)))
	}
	for _, k := range d.kids {
		off = k.layout(off)
	}
	if len(d.kids) > 0 {
		off++
	}
	return off
}

func encodeAttr(buf []byte, a dieAttr) []byte {
	switch a.form {
	case formAddr:
		return binary.LittleEndian.AppendUint64(buf, a.val.(uint64))
	case formData1:
		return append(buf, a.val.(uint8))
	case formData4:
		return binary.LittleEndian.AppendUint32(buf, a.val.(uint32))
	case formString:
		return append(append(buf, a.val.(string)...), 0)
	case formSdata:
		return varint.AppendVarint(buf, a.val.(int64))
	case formRef4:
		var off uint32
		if to := a.val.(*die); to != nil {
			off = to.off
		}
		return binary.LittleEndian.AppendUint32(buf, off)
	case formSecOffset:
		return binary.LittleEndian.AppendUint32(buf, a.val.(uint32))
	case formExprloc:
		e := a.val.([]byte)
		return append(varint.AppendUvarint(buf, uint64(len(e))), e...)
	case formFlagPresent:
		return buf
	}
	panic("bad form")
}

// encode appends d's abbrev to abbrev and its entry to info. Every
// entry gets its own abbrev, with the entry's offset as the code.
func (d *die) encode(abbrev, info []byte) ([]byte, []byte) {
	code := uint64(d.off)
	abbrev = varint.AppendUvarint(abbrev, code)
	abbrev = varint.AppendUvarint(abbrev, uint64(d.tag))
	if len(d.kids) > 0 {
		abbrev = append(abbrev, 1)
	} else {
		abbrev = append(abbrev, 0)
	}
	info = varint.AppendUvarint(info, code)
	for _, a := range d.attrs {
		abbrev = varint.AppendUvarint(abbrev, uint64(a.attr))
		abbrev = varint.AppendUvarint(abbrev, uint64(a.form))
		info = encodeAttr(info, a)
	}
	abbrev = append(abbrev, 0, 0)
	for _, k := range d.kids {
		abbrev, info = k.encode(abbrev, info)
	}
	if len(d.kids) > 0 {
		info = append(info, 0)
	}
	return abbrev, info
}

// buildDWARF returns DWARF data with the single compile unit cu and
// line program line.
func buildDWARF(t *testing.T, cu *die, line []byte) *dwarf.Data {
	t.Helper()
	end := cu.layout(cuHeaderSize)
	var info []byte
	info = binary.LittleEndian.AppendUint32(info, end-4)
	info = binary.LittleEndian.AppendUint16(info, 4)
	info = binary.LittleEndian.AppendUint32(info, 0) // abbrev offset
	info = append(info, 8)                           // address size
	abbrev, info := cu.encode(nil, info)
	abbrev = append(abbrev, 0)
	if len(info) != int(end) {
		t.Fatalf("laid out %d bytes of info, encoded %d", end, len(info))
	}
	d, err := dwarf.New(abbrev, nil, nil, info, line, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// lineProgram builds a DWARF 4 line program.
type lineProgram struct {
	files []string
	ops   bytes.Buffer
}

func (p *lineProgram) setAddress(addr uint64) {
	p.ops.Write([]byte{0, 9, 2})
	p.ops.Write(binary.LittleEndian.AppendUint64(nil, addr))
}

func (p *lineProgram) setFile(f int) {
	p.ops.WriteByte(4)
	p.ops.Write(varint.AppendUvarint(nil, uint64(f)))
}

func (p *lineProgram) advanceLine(n int64) {
	p.ops.WriteByte(3)
	p.ops.Write(varint.AppendVarint(nil, n))
}

func (p *lineProgram) advancePC(n uint64) {
	p.ops.WriteByte(2)
	p.ops.Write(varint.AppendUvarint(nil, n))
}

func (p *lineProgram) row() { p.ops.WriteByte(1) }

func (p *lineProgram) endSequence() { p.ops.Write([]byte{0, 1, 1}) }

func (p *lineProgram) bytes() []byte {
	var hdr []byte
	hdr = append(hdr, 1, 1, 1) // min inst length, max ops, default is_stmt
	hdr = append(hdr, 0xfb)    // line base -5
	hdr = append(hdr, 14, 13)  // line range, opcode base
	hdr = append(hdr, 0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1)
	hdr = append(hdr, 0) // no include directories
	for _, f := range p.files {
		hdr = append(hdr, f...)
		hdr = append(hdr, 0, 0, 0, 0)
	}
	hdr = append(hdr, 0)

	var out []byte
	out = binary.LittleEndian.AppendUint32(out, uint32(2+4+len(hdr)+p.ops.Len()))
	out = binary.LittleEndian.AppendUint16(out, 4)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, p.ops.Bytes()...)
}

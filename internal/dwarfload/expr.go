// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfload

import (
	"encoding/binary"
	"math"

	"github.com/aclements/go-rdi/internal/varint"
	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

// DWARF expression ops.
const (
	opAddr            = 0x03
	opDeref           = 0x06
	opConst1u         = 0x08
	opConst1s         = 0x09
	opConst2u         = 0x0a
	opConst2s         = 0x0b
	opConst4u         = 0x0c
	opConst4s         = 0x0d
	opConst8u         = 0x0e
	opConst8s         = 0x0f
	opConstu          = 0x10
	opConsts          = 0x11
	opMinus           = 0x1c
	opPlus            = 0x22
	opPlusUconst      = 0x23
	opLit0            = 0x30
	opLit31           = 0x4f
	opReg0            = 0x50
	opReg31           = 0x6f
	opBreg0           = 0x70
	opBreg31          = 0x8f
	opRegx            = 0x90
	opFbreg           = 0x91
	opBregx           = 0x92
	opDerefSize       = 0x94
	opFormTLSAddress  = 0x9b
	opCallFrameCFA    = 0x9c
	opStackValue      = 0x9f
	opGNUPushTLSAddrs = 0xe0
)

var le = binary.LittleEndian

// readFixed reads a little-endian value of size bytes.
func readFixed(b []byte, size int) (uint64, bool) {
	if len(b) < size {
		return 0, false
	}
	switch size {
	case 1:
		return uint64(b[0]), true
	case 2:
		return uint64(le.Uint16(b)), true
	case 4:
		return uint64(le.Uint32(b)), true
	case 8:
		return le.Uint64(b), true
	}
	return 0, false
}

func signExtend(v uint64, size int) int64 {
	shift := 64 - 8*size
	return int64(v<<shift) >> shift
}

// staticAddr returns the address of a variable whose location is a
// single DW_OP_addr.
func (l *loader) staticAddr(expr []byte) (uint64, bool) {
	size := int(l.addrSize)
	if len(expr) != 1+size || expr[0] != opAddr {
		return 0, false
	}
	return readFixed(expr[1:], size)
}

// tlsOffset returns the TLS offset of a variable whose location is a
// constant followed by a TLS address op.
func tlsOffset(expr []byte) (uint64, bool) {
	if len(expr) < 2 {
		return 0, false
	}
	last := expr[len(expr)-1]
	if last != opFormTLSAddress && last != opGNUPushTLSAddrs {
		return 0, false
	}
	body := expr[1 : len(expr)-1]
	switch expr[0] {
	case opConst1u, opConst2u, opConst4u, opConst8u:
		size := 1 << (int(expr[0]-opConst1u) / 2)
		if len(body) != size {
			return 0, false
		}
		return readFixed(body, size)
	case opConstu:
		v, n := varint.Uvarint(body)
		return v, n > 0 && n == len(body)
	case opAddr:
		// Some toolchains encode the DTP offset as an address.
		if len(body) != 4 && len(body) != 8 {
			return 0, false
		}
		return readFixed(body, len(body))
	}
	return 0, false
}

// convertExpr translates a DWARF location expression into a location.
// It returns nil if expr uses an op with no bytecode equivalent.
// Register codes are DWARF register numbers.
func (l *loader) convertExpr(expr []byte) *rdim.Location {
	if len(expr) == 0 {
		return nil
	}
	op := expr[0]
	switch {
	case op >= opReg0 && op <= opReg31 && len(expr) == 1:
		return &rdim.Location{Kind: rdi.LocationValReg, Reg: op - opReg0}
	case op == opRegx:
		reg, n := varint.Uvarint(expr[1:])
		if n > 0 && 1+n == len(expr) && reg <= math.MaxUint8 {
			return &rdim.Location{Kind: rdi.LocationValReg, Reg: uint8(reg)}
		}
		return nil
	case op >= opBreg0 && op <= opBreg31:
		off, n := varint.Varint(expr[1:])
		if n > 0 && 1+n == len(expr) && off >= 0 && off <= math.MaxUint16 {
			return &rdim.Location{Kind: rdi.LocationAddrRegPlusU16, Reg: op - opBreg0, Offset: uint16(off)}
		}
	}

	var bc rdim.Bytecode
	val := false
	for pos := 0; pos < len(expr); {
		if val {
			// DW_OP_stack_value must be last.
			return nil
		}
		op := expr[pos]
		pos++
		switch {
		case op == opAddr:
			size := int(l.addrSize)
			addr, ok := readFixed(expr[pos:], size)
			if !ok || addr < l.cfg.ImageBase {
				return nil
			}
			pos += size
			bc.Op(rdi.EvalOpModuleOff, addr-l.cfg.ImageBase, 0)
		case op >= opLit0 && op <= opLit31:
			bc.Op(rdi.EvalOpConstU, uint64(op-opLit0), 0)
		case op >= opConst1u && op <= opConst8s:
			size := 1 << (int(op-opConst1u) / 2)
			v, ok := readFixed(expr[pos:], size)
			if !ok {
				return nil
			}
			pos += size
			if (op-opConst1u)%2 == 0 {
				bc.Op(rdi.EvalOpConstU, v, 0)
			} else {
				bc.Op(rdi.EvalOpConstS, 0, signExtend(v, size))
			}
		case op == opConstu, op == opPlusUconst:
			v, n := varint.Uvarint(expr[pos:])
			if n == 0 {
				return nil
			}
			pos += n
			bc.Op(rdi.EvalOpConstU, v, 0)
			if op == opPlusUconst {
				bc.Op(rdi.EvalOpAdd, 0, 0)
			}
		case op == opConsts:
			v, n := varint.Varint(expr[pos:])
			if n == 0 {
				return nil
			}
			pos += n
			bc.Op(rdi.EvalOpConstS, 0, v)
		case op == opPlus:
			bc.Op(rdi.EvalOpAdd, 0, 0)
		case op == opMinus:
			bc.Op(rdi.EvalOpSub, 0, 0)
		case op == opDeref:
			bc.Op(rdi.EvalOpMemRead, uint64(l.addrSize), 0)
		case op == opDerefSize:
			if pos >= len(expr) {
				return nil
			}
			bc.Op(rdi.EvalOpMemRead, uint64(expr[pos]), 0)
			pos++
		case op >= opBreg0 && op <= opBreg31:
			off, n := varint.Varint(expr[pos:])
			if n == 0 {
				return nil
			}
			pos += n
			bc.Op(rdi.EvalOpRegReadOff, uint64(op-opBreg0), off)
		case op == opBregx:
			reg, n := varint.Uvarint(expr[pos:])
			if n == 0 || reg > math.MaxUint8 {
				return nil
			}
			pos += n
			off, n := varint.Varint(expr[pos:])
			if n == 0 {
				return nil
			}
			pos += n
			bc.Op(rdi.EvalOpRegReadOff, reg, off)
		case op == opFbreg:
			off, n := varint.Varint(expr[pos:])
			if n == 0 {
				return nil
			}
			pos += n
			bc.Op(rdi.EvalOpFrameOff, 0, off)
		case op == opStackValue:
			val = true
		default:
			// Includes register ops in composite expressions and
			// DW_OP_call_frame_cfa.
			return nil
		}
	}
	if val {
		return rdim.ValBytecode(&bc)
	}
	return rdim.AddrBytecode(&bc)
}

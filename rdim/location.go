// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdim

import (
	"encoding/binary"
	"fmt"

	"github.com/aclements/go-rdi/rdi"
)

// Location says where a value lives.
type Location struct {
	Kind rdi.LocationKind

	// Bytecode is the encoded program of a bytecode stream location,
	// without the final stop op.
	Bytecode []byte

	// Reg and Offset are used by the register kinds.
	Reg    uint8
	Offset uint16
}

// LocationCase is a location that applies while the program counter
// is in VoffRange. An empty range applies everywhere.
type LocationCase struct {
	VoffRange Rng1U64
	Location  *Location
}

// Bytecode builds a location bytecode program.
type Bytecode struct {
	buf []byte
}

// Op appends an op with its operand. u is the unsigned operand or
// register code, s the signed operand.
func (b *Bytecode) Op(op rdi.EvalOp, u uint64, s int64) *Bytecode {
	if op == rdi.EvalOpStop {
		panic("rdim: stop is implicit in bytecode")
	}
	b.buf = rdi.AppendEvalOp(b.buf, op, u, s)
	return b
}

// Bytes returns the program built so far.
func (b *Bytecode) Bytes() []byte {
	return b.buf
}

// AddrBytecode returns a location whose address is computed by bc.
func AddrBytecode(bc *Bytecode) *Location {
	return &Location{Kind: rdi.LocationAddrBytecodeStream, Bytecode: bc.Bytes()}
}

// ValBytecode returns a location whose value is computed by bc.
func ValBytecode(bc *Bytecode) *Location {
	return &Location{Kind: rdi.LocationValBytecodeStream, Bytecode: bc.Bytes()}
}

// AppendEncoded appends the LocationData encoding of l to buf.
func (l *Location) AppendEncoded(buf []byte) []byte {
	buf = append(buf, uint8(l.Kind))
	switch l.Kind {
	case rdi.LocationAddrBytecodeStream, rdi.LocationValBytecodeStream:
		buf = append(buf, l.Bytecode...)
		buf = append(buf, uint8(rdi.EvalOpStop))
	case rdi.LocationAddrRegPlusU16, rdi.LocationAddrAddrRegPlusU16:
		buf = append(buf, l.Reg)
		buf = binary.LittleEndian.AppendUint16(buf, l.Offset)
	case rdi.LocationValReg:
		buf = append(buf, l.Reg)
	default:
		panic(fmt.Sprintf("rdim: bad location kind %d", l.Kind))
	}
	return buf
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdi

import (
	"fmt"
	"strings"

	"github.com/aclements/go-rdi/internal/varint"
)

// EvalOp is an operation of location bytecode. A bytecode stream is a
// sequence of ops, each followed by its operand, ending in
// EvalOpStop.
type EvalOp uint8

const (
	EvalOpStop        EvalOp = iota
	EvalOpConstU      // ULEB128 operand
	EvalOpConstS      // SLEB128 operand
	EvalOpModuleOff   // ULEB128 voff operand
	EvalOpTLSOff      // ULEB128 operand
	EvalOpFrameOff    // SLEB128 operand, relative to the frame base
	EvalOpRegRead     // u8 register code
	EvalOpRegReadOff  // u8 register code, SLEB128 offset
	EvalOpMemRead     // u8 byte size
	EvalOpAdd
	EvalOpSub
	EvalOpCount
)

// evalOperand is the operand encoding of an op.
type evalOperand uint8

const (
	operandNone evalOperand = iota
	operandU
	operandS
	operandReg
	operandRegS
	operandU8
)

var evalOps = [EvalOpCount]struct {
	name    string
	operand evalOperand
}{
	EvalOpStop:       {"stop", operandNone},
	EvalOpConstU:     {"constu", operandU},
	EvalOpConstS:     {"consts", operandS},
	EvalOpModuleOff:  {"moduleoff", operandU},
	EvalOpTLSOff:     {"tlsoff", operandU},
	EvalOpFrameOff:   {"frameoff", operandS},
	EvalOpRegRead:    {"regread", operandReg},
	EvalOpRegReadOff: {"regreadoff", operandRegS},
	EvalOpMemRead:    {"memread", operandU8},
	EvalOpAdd:        {"add", operandNone},
	EvalOpSub:        {"sub", operandNone},
}

func (op EvalOp) String() string {
	if op < EvalOpCount {
		return evalOps[op].name
	}
	return fmt.Sprintf("EvalOp(%d)", uint8(op))
}

// EvalInst is a decoded bytecode instruction.
type EvalInst struct {
	Op  EvalOp
	U   uint64 // Unsigned operand, register code, or size
	S   int64  // Signed operand
	Len int    // Encoded length
}

func (in EvalInst) String() string {
	switch evalOps[in.Op].operand {
	case operandU, operandU8:
		return fmt.Sprintf("%v %#x", in.Op, in.U)
	case operandS:
		return fmt.Sprintf("%v %d", in.Op, in.S)
	case operandReg:
		return fmt.Sprintf("%v r%d", in.Op, in.U)
	case operandRegS:
		return fmt.Sprintf("%v r%d%+d", in.Op, in.U, in.S)
	}
	return in.Op.String()
}

// AppendEvalOp appends op and its operands to buf. Operands the op
// does not take are ignored.
func AppendEvalOp(buf []byte, op EvalOp, u uint64, s int64) []byte {
	if op >= EvalOpCount {
		panic(fmt.Sprintf("rdi: bad eval op %d", op))
	}
	buf = append(buf, uint8(op))
	switch evalOps[op].operand {
	case operandU:
		buf = varint.AppendUvarint(buf, u)
	case operandS:
		buf = varint.AppendVarint(buf, s)
	case operandReg, operandU8:
		buf = append(buf, uint8(u))
	case operandRegS:
		buf = append(buf, uint8(u))
		buf = varint.AppendVarint(buf, s)
	}
	return buf
}

// DecodeBytecode decodes a bytecode stream up to and including its
// EvalOpStop.
func DecodeBytecode(data []byte) ([]EvalInst, error) {
	var out []EvalInst
	pos := 0
	for {
		if pos >= len(data) {
			return out, fmt.Errorf("bytecode without stop: %w", ErrTruncated)
		}
		in := EvalInst{Op: EvalOp(data[pos])}
		if in.Op >= EvalOpCount {
			return out, fmt.Errorf("rdi: bad eval op %d at offset %d", data[pos], pos)
		}
		n := 1
		var m int
		switch evalOps[in.Op].operand {
		case operandU:
			in.U, m = varint.Uvarint(data[pos+n:])
			if m == 0 {
				return out, ErrTruncated
			}
			n += m
		case operandS:
			in.S, m = varint.Varint(data[pos+n:])
			if m == 0 {
				return out, ErrTruncated
			}
			n += m
		case operandReg, operandU8:
			if pos+n >= len(data) {
				return out, ErrTruncated
			}
			in.U = uint64(data[pos+n])
			n++
		case operandRegS:
			if pos+n >= len(data) {
				return out, ErrTruncated
			}
			in.U = uint64(data[pos+n])
			n++
			in.S, m = varint.Varint(data[pos+n:])
			if m == 0 {
				return out, ErrTruncated
			}
			n += m
		}
		in.Len = n
		out = append(out, in)
		pos += n
		if in.Op == EvalOpStop {
			return out, nil
		}
	}
}

// DecodeLocation decodes the location at the start of data, as stored
// in the LocationData section, and returns a readable form of it.
func DecodeLocation(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrTruncated
	}
	kind := LocationKind(data[0])
	data = data[1:]
	switch kind {
	case LocationAddrBytecodeStream, LocationValBytecodeStream:
		insts, err := DecodeBytecode(data)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		if kind == LocationAddrBytecodeStream {
			sb.WriteString("addr{")
		} else {
			sb.WriteString("val{")
		}
		for i, in := range insts[:len(insts)-1] {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(in.String())
		}
		sb.WriteString("}")
		return sb.String(), nil
	case LocationAddrRegPlusU16, LocationAddrAddrRegPlusU16:
		if len(data) < 3 {
			return "", ErrTruncated
		}
		off := order.Uint16(data[1:])
		if kind == LocationAddrRegPlusU16 {
			return fmt.Sprintf("[r%d+%#x]", data[0], off), nil
		}
		return fmt.Sprintf("[[r%d+%#x]]", data[0], off), nil
	case LocationValReg:
		if len(data) < 1 {
			return "", ErrTruncated
		}
		return fmt.Sprintf("r%d", data[0]), nil
	}
	return "", fmt.Errorf("rdi: bad location kind %d", kind)
}

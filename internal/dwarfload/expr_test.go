// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwarfload

import (
	"reflect"
	"testing"

	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

func TestConvertExpr(t *testing.T) {
	l := &loader{cfg: testConfig, addrSize: 8}
	bc := func() *rdim.Bytecode { return new(rdim.Bytecode) }
	tests := []struct {
		expr []byte
		want *rdim.Location
	}{
		{[]byte{opReg0 + 3}, &rdim.Location{Kind: rdi.LocationValReg, Reg: 3}},
		{[]byte{opRegx, 17}, &rdim.Location{Kind: rdi.LocationValReg, Reg: 17}},
		{[]byte{opBreg0 + 6, 0x10}, &rdim.Location{Kind: rdi.LocationAddrRegPlusU16, Reg: 6, Offset: 0x10}},
		// Negative offsets do not fit the compact form.
		{[]byte{opBreg0 + 6, 0x78}, rdim.AddrBytecode(bc().Op(rdi.EvalOpRegReadOff, 6, -8))},
		{[]byte{opFbreg, 0x10}, rdim.AddrBytecode(bc().Op(rdi.EvalOpFrameOff, 0, 16))},
		{addrExpr(testImageBase + 0x4000), rdim.AddrBytecode(bc().Op(rdi.EvalOpModuleOff, 0x4000, 0))},
		{
			[]byte{opBreg0 + 5, 0, opDeref, opPlusUconst, 8},
			rdim.AddrBytecode(bc().Op(rdi.EvalOpRegReadOff, 5, 0).Op(rdi.EvalOpMemRead, 8, 0).Op(rdi.EvalOpConstU, 8, 0).Op(rdi.EvalOpAdd, 0, 0)),
		},
		{
			[]byte{opLit0 + 7, opConst1s, 0xff, opMinus, opStackValue},
			rdim.ValBytecode(bc().Op(rdi.EvalOpConstU, 7, 0).Op(rdi.EvalOpConstS, 0, -1).Op(rdi.EvalOpSub, 0, 0)),
		},
		{[]byte{opStackValue, opPlus}, nil},
		{[]byte{opCallFrameCFA}, nil},
		{[]byte{opReg0, opReg0 + 1}, nil},
		{[]byte{opFbreg}, nil},
		{addrExpr(0x1000), nil},
		{nil, nil},
	}
	for _, test := range tests {
		got := l.convertExpr(test.expr)
		if !reflect.DeepEqual(test.want, got) {
			t.Errorf("%x: want %+v, got %+v", test.expr, test.want, got)
		}
	}
}

func TestTLSOffset(t *testing.T) {
	tests := []struct {
		expr []byte
		want uint64
		ok   bool
	}{
		{[]byte{opConst4u, 0x10, 0, 0, 0, opFormTLSAddress}, 0x10, true},
		{[]byte{opConst8u, 8, 0, 0, 0, 0, 0, 0, 0, opGNUPushTLSAddrs}, 8, true},
		{[]byte{opConstu, 0x80, 0x01, opFormTLSAddress}, 0x80, true},
		{[]byte{opConst4u, 0x10, 0, 0, opFormTLSAddress}, 0, false},
		{addrExpr(0x1000), 0, false},
	}
	for _, test := range tests {
		got, ok := tlsOffset(test.expr)
		if got != test.want || ok != test.ok {
			t.Errorf("%x: want %#x, %v, got %#x, %v", test.expr, test.want, test.ok, got, ok)
		}
	}
}

func TestBaseKind(t *testing.T) {
	tests := []struct {
		enc, size int64
		want      rdi.TypeKind
	}{
		{ateSigned, 4, rdi.TypeKindS32},
		{ateUnsigned, 8, rdi.TypeKindU64},
		{ateSignedChar, 1, rdi.TypeKindChar8},
		{ateUnsignedChar, 1, rdi.TypeKindUChar8},
		{ateBoolean, 1, rdi.TypeKindBool},
		{ateFloat, 8, rdi.TypeKindF64},
		{ateFloat, 16, rdi.TypeKindF128},
		{ateComplexFloat, 16, rdi.TypeKindComplexF64},
		{ateUTF, 2, rdi.TypeKindChar16},
		{0x80, 0, rdi.TypeKindVoid},
	}
	for _, test := range tests {
		if got := baseKind(test.enc, test.size); got != test.want {
			t.Errorf("encoding %#x size %d: want %v, got %v", test.enc, test.size, test.want, got)
		}
	}
}

func TestImplicitSize(t *testing.T) {
	l := &loader{dm: rdim.InferDataModel(rdim.OSMac, rdi.ArchX64)}
	for name, want := range map[string]uint32{
		"short":                  2,
		"unsigned int":           4,
		"long int":               8,
		"long long unsigned int": 0,
		"unsigned long long":     8,
		"float":                  0,
	} {
		if got := l.implicitSize(name); got != want {
			t.Errorf("%s: want %d, got %d", name, want, got)
		}
	}
}

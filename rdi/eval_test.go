// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdi

import (
	"errors"
	"reflect"
	"testing"
)

func TestBytecode(t *testing.T) {
	var buf []byte
	buf = AppendEvalOp(buf, EvalOpRegReadOff, 7, -16)
	buf = AppendEvalOp(buf, EvalOpConstU, 624485, 0)
	buf = AppendEvalOp(buf, EvalOpAdd, 0, 0)
	buf = AppendEvalOp(buf, EvalOpMemRead, 8, 0)
	buf = AppendEvalOp(buf, EvalOpStop, 0, 0)

	got, err := DecodeBytecode(buf)
	if err != nil {
		t.Fatal(err)
	}
	want := []EvalInst{
		{Op: EvalOpRegReadOff, U: 7, S: -16, Len: 3},
		{Op: EvalOpConstU, U: 624485, Len: 4},
		{Op: EvalOpAdd, Len: 1},
		{Op: EvalOpMemRead, U: 8, Len: 2},
		{Op: EvalOpStop, Len: 1},
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}

	if _, err := DecodeBytecode(buf[:len(buf)-1]); !errors.Is(err, ErrTruncated) {
		t.Errorf("want ErrTruncated without stop, got %v", err)
	}
	if _, err := DecodeBytecode(buf[:2]); !errors.Is(err, ErrTruncated) {
		t.Errorf("want ErrTruncated for partial operand, got %v", err)
	}
	if _, err := DecodeBytecode([]byte{byte(EvalOpCount)}); err == nil {
		t.Errorf("want error for bad op")
	}
}

func TestDecodeLocation(t *testing.T) {
	bc := func(kind LocationKind, ops ...[]byte) []byte {
		buf := []byte{byte(kind)}
		for _, op := range ops {
			buf = append(buf, op...)
		}
		return append(buf, byte(EvalOpStop))
	}
	tests := []struct {
		data []byte
		want string
	}{
		{bc(LocationAddrBytecodeStream, AppendEvalOp(nil, EvalOpModuleOff, 0x4000, 0)), "addr{moduleoff 0x4000}"},
		{bc(LocationValBytecodeStream, AppendEvalOp(nil, EvalOpRegRead, 3, 0), AppendEvalOp(nil, EvalOpConstS, 0, -1), AppendEvalOp(nil, EvalOpSub, 0, 0)), "val{regread r3; consts -1; sub}"},
		{[]byte{byte(LocationAddrRegPlusU16), 6, 0x10, 0}, "[r6+0x10]"},
		{[]byte{byte(LocationAddrAddrRegPlusU16), 7, 0, 1}, "[[r7+0x100]]"},
		{[]byte{byte(LocationValReg), 2}, "r2"},
	}
	for _, test := range tests {
		got, err := DecodeLocation(test.data)
		if err != nil {
			t.Errorf("%s: %v", test.want, err)
		} else if got != test.want {
			t.Errorf("want %s, got %s", test.want, got)
		}
	}

	for _, bad := range [][]byte{nil, {byte(LocationAddrRegPlusU16), 6}, {byte(LocationValReg)}} {
		if _, err := DecodeLocation(bad); !errors.Is(err, ErrTruncated) {
			t.Errorf("%x: want ErrTruncated, got %v", bad, err)
		}
	}
}

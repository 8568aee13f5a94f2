// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package varint encodes LEB128 integers as used by location
// bytecode.
package varint

const maxVarintBytes = 10

// AppendUvarint appends the unsigned LEB128 encoding of x to buf.
func AppendUvarint(buf []byte, x uint64) []byte {
	for x > 127 {
		buf = append(buf, 0x80|uint8(x&0x7F))
		x >>= 7
	}
	return append(buf, uint8(x))
}

// AppendVarint appends the signed LEB128 encoding of x to buf.
func AppendVarint(buf []byte, x int64) []byte {
	for {
		b := uint8(x & 0x7F)
		x >>= 7
		if (x == 0 && b&0x40 == 0) || (x == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, 0x80|b)
	}
}

// Uvarint decodes an unsigned LEB128 integer from buf. It returns the
// value and the number of bytes consumed, or n == 0 if buf is
// truncated or the value overflows 64 bits.
func Uvarint(buf []byte) (x uint64, n int) {
	for shift := uint(0); shift < 64; shift += 7 {
		if n >= len(buf) || n >= maxVarintBytes {
			return 0, 0
		}
		b := uint64(buf[n])
		n++
		x |= (b & 0x7F) << shift
		if (b & 0x80) == 0 {
			return x, n
		}
	}

	return 0, 0
}

// Varint decodes a signed LEB128 integer from buf. It returns n == 0
// on error, like Uvarint.
func Varint(buf []byte) (x int64, n int) {
	var shift uint
	for {
		if n >= len(buf) || n >= maxVarintBytes {
			return 0, 0
		}
		b := buf[n]
		n++
		x |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				// Sign extend.
				x |= -1 << shift
			}
			return x, n
		}
	}
}

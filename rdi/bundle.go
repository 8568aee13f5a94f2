// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdi

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Section is one encoded section of a Bundle.
type Section struct {
	Data         []byte // Encoded bytes
	Encoding     Encoding
	EncodedSize  uint64 // len(Data)
	UnpackedSize uint64 // Size after decoding
}

// Bundle holds every section of a baked file, indexed by SectionKind.
// A bundle is never modified once assembled; Compress returns a new
// one.
type Bundle struct {
	Sections [SectionCount]Section
}

// Set stores unencoded data as section k.
func (b *Bundle) Set(k SectionKind, data []byte) {
	b.Sections[k] = Section{
		Data:         data,
		Encoding:     EncodingNone,
		EncodedSize:  uint64(len(data)),
		UnpackedSize: uint64(len(data)),
	}
}

// A Codec is a section transform.
type Codec interface {
	Encoding() Encoding

	// Encode returns the encoding of src. It returns ok == false if
	// the encoding would not be smaller than src, in which case the
	// section is stored unencoded.
	Encode(src []byte) (enc []byte, ok bool)

	// Decode decodes src into dst, which has the unpacked size.
	Decode(dst, src []byte) error
}

// CodecFor returns the codec for encoding e.
func CodecFor(e Encoding) (Codec, error) {
	switch e {
	case EncodingLZ4:
		return LZ4{}, nil
	}
	return nil, fmt.Errorf("rdi: no codec for encoding %v", e)
}

// LZ4 encodes sections as raw LZ4 blocks.
type LZ4 struct{}

func (LZ4) Encoding() Encoding { return EncodingLZ4 }

func (LZ4) Encode(src []byte) ([]byte, bool) {
	if len(src) == 0 {
		return nil, false
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil || n == 0 || n >= len(src) {
		// Incompressible.
		return nil, false
	}
	return dst[:n], true
}

func (LZ4) Decode(dst, src []byte) error {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return fmt.Errorf("rdi: lz4 block decoded to %d bytes, want %d", n, len(dst))
	}
	return nil
}

// Compress returns a copy of b with every section passed through c.
// Sections c cannot shrink are kept unencoded, so Compress never
// fails. A nil c returns b unchanged.
func Compress(b *Bundle, c Codec) *Bundle {
	if c == nil {
		return b
	}
	out := new(Bundle)
	for k := range b.Sections {
		src := b.Sections[k]
		if src.Encoding != EncodingNone {
			out.Sections[k] = src
			continue
		}
		enc, ok := c.Encode(src.Data)
		if !ok {
			out.Sections[k] = src
			continue
		}
		out.Sections[k] = Section{
			Data:         enc,
			Encoding:     c.Encoding(),
			EncodedSize:  uint64(len(enc)),
			UnpackedSize: src.UnpackedSize,
		}
	}
	return out
}

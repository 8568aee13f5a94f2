// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdi

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestLayout(t *testing.T) {
	if got := Size[Header](); got != 24 {
		t.Errorf("want header size 24, got %d", got)
	}
	if got := Size[VMapEntry](); got != 16 {
		t.Errorf("want VMapEntry size 16, got %d", got)
	}

	want := []TypeNode{
		{},
		{Kind: TypeKindS32, ByteSize: 4, NameStringIdx: 3},
		{Kind: TypeKindPtr, ByteSize: 8, DirectTypeIdx: 1},
	}
	data := Append(nil, want)
	if len(data) != len(want)*Size[TypeNode]() {
		t.Fatalf("want %d bytes, got %d", len(want)*Size[TypeNode](), len(data))
	}
	got, err := DecodeTable[TypeNode](data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("want %v, got %v", want, got)
	}

	if _, err := DecodeTable[TypeNode](data[:len(data)-1]); !errors.Is(err, ErrTruncated) {
		t.Errorf("want ErrTruncated for partial record, got %v", err)
	}
	var h Header
	if _, err := Read(data[:3], &h); !errors.Is(err, ErrTruncated) {
		t.Errorf("want ErrTruncated for short header, got %v", err)
	}
}

func TestHash(t *testing.T) {
	for _, s := range []string{"", "a", "main", "c:/src/main.c"} {
		if Hash([]byte(s)) != HashString(s) {
			t.Errorf("Hash and HashString disagree on %q", s)
		}
	}
	// djb2: h = h*33 + c starting from 5381.
	if got := HashString("a"); got != 5381*33+'a' {
		t.Errorf("want %d, got %d", 5381*33+'a', got)
	}
}

func testBundle() *Bundle {
	b := new(Bundle)
	b.Set(SectionStringData, []byte("mainhelper"))
	b.Set(SectionStringTable, Append(nil, []uint32{0, 0, 4, 10}))
	b.Set(SectionScopeVOffData, bytes.Repeat([]byte("0123456789abcdef"), 64))
	b.Set(SectionUnitVMap, Append(nil, []VMapEntry{{0x1000, 1}, {0x2000, 0}}))
	return b
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []Codec{nil, LZ4{}} {
		b := Compress(testBundle(), c)
		var buf bytes.Buffer
		if _, err := b.WriteTo(&buf); err != nil {
			t.Fatal(err)
		}
		if buf.Len()%8 != 0 {
			t.Errorf("file size %d is not 8-byte aligned", buf.Len())
		}
		f, err := Parse(buf.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		want := testBundle()
		for k := range want.Sections {
			if !bytes.Equal(want.Sections[k].Data, f.Sections[k]) {
				t.Errorf("codec %v: section %v differs", c, SectionKind(k))
			}
			if f.Entries[k].Off%8 != 0 {
				t.Errorf("section %v at unaligned offset %d", SectionKind(k), f.Entries[k].Off)
			}
		}
		if c != nil && f.Entries[SectionScopeVOffData].Encoding != EncodingLZ4 {
			t.Errorf("want repetitive section compressed")
		}
		if f.Entries[SectionStringTable].Encoding != EncodingNone {
			t.Errorf("want tiny section stored unencoded")
		}

		strs, err := f.Strings()
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{"", "main", "helper"}; !reflect.DeepEqual(want, strs) {
			t.Errorf("want strings %q, got %q", want, strs)
		}
		if s, err := f.String(2); err != nil || s != "helper" {
			t.Errorf("want \"helper\", got %q, %v", s, err)
		}
		if _, err := f.String(3); err == nil {
			t.Errorf("want error for string index past end")
		}
		vmap, err := Table[VMapEntry](f, SectionUnitVMap)
		if err != nil || len(vmap) != 2 || vmap[1].Voff != 0x2000 {
			t.Errorf("bad unit vmap %v, %v", vmap, err)
		}
	}
}

func TestEqual(t *testing.T) {
	a, b := testBundle(), testBundle()
	if !Equal(a, b) {
		t.Errorf("identical bundles are not equal")
	}
	b.Set(SectionStringData, []byte("mainhelpeR"))
	if Equal(a, b) {
		t.Errorf("different bundles are equal")
	}
}

func TestParseErrors(t *testing.T) {
	good := testBundle().Bytes()
	corrupt := func(fn func([]byte)) []byte {
		data := append([]byte(nil), good...)
		fn(data)
		return data
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"magic", corrupt(func(d []byte) { d[0] = 'X' }), ErrBadMagic},
		{"major", corrupt(func(d []byte) { d[8] = 1 }), ErrVersion},
		{"minor", corrupt(func(d []byte) { d[10] = 1 }), ErrVersion},
		{"truncated", good[:len(good)-16], ErrTruncated},
	}
	for _, test := range tests {
		_, err := Parse(test.data)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: want %v, got %v", test.name, test.want, err)
		}
	}

	// Header fields that would make Parse allocate far more than the
	// file holds.
	lz4 := Compress(testBundle(), LZ4{}).Bytes()
	patchEntry := func(k SectionKind, fn func(*SectionEntry)) []byte {
		data := append([]byte(nil), lz4...)
		var h Header
		if _, err := Read(data, &h); err != nil {
			t.Fatal(err)
		}
		off := int(h.SectionTableOff) + int(k)*Size[SectionEntry]()
		var e SectionEntry
		if _, err := Read(data[off:], &e); err != nil {
			t.Fatal(err)
		}
		fn(&e)
		copy(data[off:], Append(nil, e))
		return data
	}
	bomb := patchEntry(SectionScopeVOffData, func(e *SectionEntry) {
		if e.Encoding != EncodingLZ4 {
			t.Fatalf("want %v encoded with LZ4, got %v", SectionScopeVOffData, e.Encoding)
		}
		e.UnpackedSize = 1 << 40
	})
	if _, err := Parse(bomb); !errors.Is(err, ErrCorrupt) {
		t.Errorf("huge unpacked size: want %v, got %v", ErrCorrupt, err)
	}
	manySections := corrupt(func(d []byte) { d[16], d[17], d[18], d[19] = 0xff, 0xff, 0xff, 0x7f })
	if _, err := Parse(manySections); !errors.Is(err, ErrTruncated) {
		t.Errorf("huge section count: want %v, got %v", ErrTruncated, err)
	}

	// A newer patch version is readable.
	if _, err := Parse(corrupt(func(d []byte) { d[12] = 7 })); err != nil {
		t.Errorf("newer patch version: %v", err)
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		major, minor, patch uint16
		ok                  bool
	}{
		{0, 9, 0, true},
		{0, 9, 3, true},
		{0, 8, 0, false},
		{0, 10, 0, false},
		{1, 9, 0, false},
	}
	for _, test := range tests {
		err := CheckVersion(test.major, test.minor, test.patch)
		if (err == nil) != test.ok {
			t.Errorf("%d.%d.%d: want ok=%v, got %v", test.major, test.minor, test.patch, test.ok, err)
		}
	}
}

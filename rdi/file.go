// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdi

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"
)

// Magic begins every baked file ("RADRDI\0\0" little-endian).
const Magic uint64 = 0x0000494452444152

// VersionString is the format version written by this package. Files
// are readable if they share its major and minor version.
const VersionString = "0.9.0"

// Version is VersionString parsed.
var Version = semver.MustParse(VersionString)

var (
	ErrBadMagic = errors.New("rdi: bad magic")
	ErrVersion  = errors.New("rdi: unsupported format version")
	ErrCorrupt  = errors.New("rdi: corrupt section table")
)

// maxExpansion bounds the ratio of a section's unpacked size to its
// encoded size. It is the largest LZ4 block compression ratio.
const maxExpansion = 255

// Header is the start of a baked file.
type Header struct {
	Magic           uint64
	VersionMajor    uint16
	VersionMinor    uint16
	VersionPatch    uint16
	Pad             uint16
	SectionCount    uint32
	SectionTableOff uint32
}

// SectionEntry is an element of the section table.
type SectionEntry struct {
	Encoding     Encoding
	Off          uint64
	EncodedSize  uint64
	UnpackedSize uint64
}

const dataAlign = 8

func align(n int) int {
	return (n + dataAlign - 1) &^ (dataAlign - 1)
}

// Bytes returns the file image of b. Sections are laid out in
// SectionKind order, so equal bundles produce identical bytes.
func (b *Bundle) Bytes() []byte {
	hdrSize := Size[Header]()
	tabOff := align(hdrSize)
	dataOff := align(tabOff + int(SectionCount)*Size[SectionEntry]())

	entries := make([]SectionEntry, SectionCount)
	off := dataOff
	for k, s := range b.Sections {
		entries[k] = SectionEntry{
			Encoding:     s.Encoding,
			Off:          uint64(off),
			EncodedSize:  uint64(len(s.Data)),
			UnpackedSize: s.UnpackedSize,
		}
		off = align(off + len(s.Data))
	}

	buf := make([]byte, 0, off)
	buf = Append(buf, Header{
		Magic:           Magic,
		VersionMajor:    uint16(Version.Major()),
		VersionMinor:    uint16(Version.Minor()),
		VersionPatch:    uint16(Version.Patch()),
		SectionCount:    uint32(SectionCount),
		SectionTableOff: uint32(tabOff),
	})
	buf = pad(buf, tabOff)
	buf = Append(buf, entries)
	for k, s := range b.Sections {
		buf = pad(buf, int(entries[k].Off))
		buf = append(buf, s.Data...)
	}
	return pad(buf, off)
}

func pad(buf []byte, n int) []byte {
	for len(buf) < n {
		buf = append(buf, 0)
	}
	return buf
}

// WriteTo writes the file image of b to w.
func (b *Bundle) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes())
	return int64(n), err
}

// CheckVersion reports whether a file of the given version can be read.
func CheckVersion(major, minor, patch uint16) error {
	v := semver.New(uint64(major), uint64(minor), uint64(patch), "", "")
	c, err := semver.NewConstraint(fmt.Sprintf("^%d.%d.0", Version.Major(), Version.Minor()))
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: file is %s, reader is %s", ErrVersion, v, Version)
	}
	return nil
}

// Parse decodes a file image produced by Bundle.Bytes. The returned
// File holds decoded section data; encoded sections are decompressed.
func Parse(data []byte) (*File, error) {
	var h Header
	if _, err := Read(data, &h); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if h.Magic != Magic {
		return nil, ErrBadMagic
	}
	if err := CheckVersion(h.VersionMajor, h.VersionMinor, h.VersionPatch); err != nil {
		return nil, err
	}
	if int(h.SectionTableOff) > len(data) ||
		uint64(h.SectionCount)*uint64(Size[SectionEntry]()) > uint64(len(data)-int(h.SectionTableOff)) {
		return nil, fmt.Errorf("section table: %w", ErrTruncated)
	}
	entries := make([]SectionEntry, h.SectionCount)
	if _, err := Read(data[h.SectionTableOff:], entries); err != nil {
		return nil, fmt.Errorf("reading section table: %w", err)
	}

	f := &File{Header: h}
	for k, e := range entries {
		if k >= int(SectionCount) {
			// Sections from a newer minor version.
			break
		}
		if e.Off > uint64(len(data)) || e.EncodedSize > uint64(len(data))-e.Off {
			return nil, fmt.Errorf("section %v: %w", SectionKind(k), ErrTruncated)
		}
		raw := data[e.Off : e.Off+e.EncodedSize]
		f.Entries[k] = e
		if e.Encoding == EncodingNone {
			f.Sections[k] = raw
			continue
		}
		if e.UnpackedSize/maxExpansion > e.EncodedSize {
			return nil, fmt.Errorf("section %v: unpacked size %d from %d bytes: %w", SectionKind(k), e.UnpackedSize, e.EncodedSize, ErrCorrupt)
		}
		c, err := CodecFor(e.Encoding)
		if err != nil {
			return nil, fmt.Errorf("section %v: %w", SectionKind(k), err)
		}
		dst := make([]byte, e.UnpackedSize)
		if err := c.Decode(dst, raw); err != nil {
			return nil, fmt.Errorf("section %v: %w", SectionKind(k), err)
		}
		f.Sections[k] = dst
	}
	return f, nil
}

// File is a parsed baked file.
type File struct {
	Header   Header
	Entries  [SectionCount]SectionEntry
	Sections [SectionCount][]byte // Decoded section data
}

// Table decodes section k of f as an array of T.
func Table[T any](f *File, k SectionKind) ([]T, error) {
	out, err := DecodeTable[T](f.Sections[k])
	if err != nil {
		return nil, fmt.Errorf("section %v: %w", k, err)
	}
	return out, nil
}

// String returns the string with index idx. Index 0 is the empty
// string.
func (f *File) String(idx uint32) (string, error) {
	offs, err := Table[uint32](f, SectionStringTable)
	if err != nil {
		return "", err
	}
	if idx == 0 {
		return "", nil
	}
	if int(idx)+1 >= len(offs) {
		return "", fmt.Errorf("rdi: string index %d out of range", idx)
	}
	lo, hi := offs[idx], offs[idx+1]
	blob := f.Sections[SectionStringData]
	if lo > hi || int(hi) > len(blob) {
		return "", fmt.Errorf("rdi: string %d: %w", idx, ErrTruncated)
	}
	return string(blob[lo:hi]), nil
}

// Strings returns every string of f in index order, starting with the
// empty string at index 0.
func (f *File) Strings() ([]string, error) {
	offs, err := Table[uint32](f, SectionStringTable)
	if err != nil {
		return nil, err
	}
	blob := f.Sections[SectionStringData]
	var out []string
	for i := 0; i+1 < len(offs); i++ {
		lo, hi := offs[i], offs[i+1]
		if lo > hi || int(hi) > len(blob) {
			return nil, fmt.Errorf("rdi: string %d: %w", i, ErrTruncated)
		}
		out = append(out, string(blob[lo:hi]))
	}
	return out, nil
}

// LookupName returns the matches of name in name map kind k.
func (f *File) LookupName(k NameMapKind, name string) ([]uint32, error) {
	maps, err := Table[NameMap](f, SectionNameMaps)
	if err != nil {
		return nil, err
	}
	if int(k) >= len(maps) {
		return nil, nil
	}
	m := maps[k]
	if m.BucketCount == 0 {
		return nil, nil
	}
	buckets, err := Table[NameMapBucket](f, SectionNameMapBuckets)
	if err != nil {
		return nil, err
	}
	nodes, err := Table[NameMapNode](f, SectionNameMapNodes)
	if err != nil {
		return nil, err
	}
	runs, err := Table[uint32](f, SectionIndexRuns)
	if err != nil {
		return nil, err
	}
	bi := m.BucketBaseIdx + uint32(HashString(name)%uint64(m.BucketCount))
	if int(bi) >= len(buckets) {
		return nil, fmt.Errorf("rdi: name map %v: bucket out of range", k)
	}
	b := buckets[bi]
	for i := b.FirstNode; i < b.FirstNode+b.NodeCount; i++ {
		ni := m.NodeBaseIdx + i
		if int(ni) >= len(nodes) {
			return nil, fmt.Errorf("rdi: name map %v: node out of range", k)
		}
		n := nodes[ni]
		s, err := f.String(n.StringIdx)
		if err != nil {
			return nil, err
		}
		if s != name {
			continue
		}
		if n.MatchCount == 1 {
			return []uint32{n.MatchIdxOrIdxRunFirst}, nil
		}
		lo, hi := n.MatchIdxOrIdxRunFirst, n.MatchIdxOrIdxRunFirst+n.MatchCount
		if int(hi) > len(runs) {
			return nil, fmt.Errorf("rdi: name map %v: index run out of range", k)
		}
		return append([]uint32(nil), runs[lo:hi]...), nil
	}
	return nil, nil
}

// Equal reports whether a and b have identical section data and
// encodings.
func Equal(a, b *Bundle) bool {
	for k := range a.Sections {
		sa, sb := a.Sections[k], b.Sections[k]
		if sa.Encoding != sb.Encoding || sa.UnpackedSize != sb.UnpackedSize || !bytes.Equal(sa.Data, sb.Data) {
			return false
		}
	}
	return true
}

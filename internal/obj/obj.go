// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package obj reads the parts of executable images that a debug-info
// bake needs: the image sections, the target, the symbol table, and
// the DWARF data.
package obj

import (
	"debug/dwarf"
	"fmt"
	"io"

	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

type Obj interface {
	// Info returns the target of the image.
	Info() Info

	// Sections returns the sections that are mapped into memory.
	// Voffs are relative to Info().ImageBase.
	Sections() []rdim.BinarySection

	// Symbols returns the symbol table sorted by value.
	Symbols() ([]Sym, error)

	// DWARF returns the image's DWARF data. Addresses in it are
	// absolute, not voffs.
	DWARF() (*dwarf.Data, error)
}

type Info struct {
	Arch      rdi.Arch
	OS        rdim.OS
	ImageBase uint64
}

type Sym struct {
	Name        string
	Value, Size uint64
	Kind        SymKind
	Local       bool
}

type SymKind uint8

const (
	SymUnknown SymKind = '?'
	SymText    SymKind = 'T'
	SymData    SymKind = 'D'
	SymROData  SymKind = 'R'
	SymBSS     SymKind = 'B'
	SymUndef   SymKind = 'U'
)

// Open attempts to open r as a known object file format.
func Open(r io.ReaderAt) (Obj, error) {
	if f, err := openElf(r); err == nil {
		return f, nil
	}
	if f, err := openPE(r); err == nil {
		return f, nil
	}
	if f, err := openMachO(r); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("unrecognized object file format")
}

// TextSymbols returns a map from the voff of each defined text symbol
// to its name. Where several symbols share an address, the first
// global one wins.
func TextSymbols(o Obj) (map[uint64]string, error) {
	syms, err := o.Symbols()
	if err != nil {
		return nil, err
	}
	base := o.Info().ImageBase
	out := make(map[uint64]string)
	local := make(map[uint64]bool)
	for _, s := range syms {
		if s.Kind != SymText || s.Name == "" || s.Value < base {
			continue
		}
		voff := s.Value - base
		if _, ok := out[voff]; ok && !(local[voff] && !s.Local) {
			continue
		}
		out[voff] = s.Name
		local[voff] = s.Local
	}
	return out, nil
}

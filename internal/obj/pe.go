// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"debug/dwarf"
	"debug/pe"
	"fmt"
	"io"
	"sort"

	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

type peFile struct {
	pe   *pe.File
	info Info
}

func openPE(r io.ReaderAt) (Obj, error) {
	f, err := pe.NewFile(r)
	if err != nil {
		return nil, err
	}

	info := Info{OS: rdim.OSWindows}
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		info.ImageBase = uint64(oh.ImageBase)
	case *pe.OptionalHeader64:
		info.ImageBase = oh.ImageBase
	default:
		return nil, fmt.Errorf("PE header has unexpected type")
	}
	switch f.Machine {
	case pe.IMAGE_FILE_MACHINE_AMD64:
		info.Arch = rdi.ArchX64
	case pe.IMAGE_FILE_MACHINE_I386:
		info.Arch = rdi.ArchX86
	default:
		return nil, fmt.Errorf("unsupported PE machine %#x", f.Machine)
	}
	return &peFile{f, info}, nil
}

func (f *peFile) Info() Info { return f.info }

func (f *peFile) Sections() []rdim.BinarySection {
	var out []rdim.BinarySection
	for _, s := range f.pe.Sections {
		c := s.Characteristics
		bs := rdim.BinarySection{
			Name:      s.Name,
			VoffFirst: uint64(s.VirtualAddress),
			VoffOpl:   uint64(s.VirtualAddress) + uint64(s.VirtualSize),
			FoffFirst: uint64(s.Offset),
			FoffOpl:   uint64(s.Offset) + uint64(s.Size),
		}
		if c&pe.IMAGE_SCN_MEM_READ != 0 {
			bs.Flags |= rdi.BinarySectionRead
		}
		if c&pe.IMAGE_SCN_MEM_WRITE != 0 {
			bs.Flags |= rdi.BinarySectionWrite
		}
		if c&pe.IMAGE_SCN_MEM_EXECUTE != 0 {
			bs.Flags |= rdi.BinarySectionExecute
		}
		out = append(out, bs)
	}
	return out
}

func (f *peFile) Symbols() ([]Sym, error) {
	const (
		IMAGE_SYM_UNDEFINED = 0
		IMAGE_SYM_ABSOLUTE  = -1
		IMAGE_SYM_DEBUG     = -2

		IMAGE_SYM_CLASS_STATIC = 3
	)

	type psym struct {
		Sym
		section int
	}
	var out []psym
	for _, s := range f.pe.Symbols {
		sym := psym{Sym{s.Name, uint64(s.Value), 0, SymUnknown, false}, int(s.SectionNumber)}
		switch s.SectionNumber {
		case IMAGE_SYM_UNDEFINED:
			sym.Kind = SymUndef
		case IMAGE_SYM_ABSOLUTE, IMAGE_SYM_DEBUG:
			// Leave unknown
		default:
			if int(s.SectionNumber)-1 < 0 || int(s.SectionNumber)-1 >= len(f.pe.Sections) {
				// Ignore symbol.
				continue
			}
			sect := f.pe.Sections[int(s.SectionNumber)-1]
			c := sect.Characteristics
			switch {
			case c&pe.IMAGE_SCN_CNT_CODE != 0:
				sym.Kind = SymText
			case c&pe.IMAGE_SCN_CNT_INITIALIZED_DATA != 0:
				if c&pe.IMAGE_SCN_MEM_WRITE != 0 {
					sym.Kind = SymData
				} else {
					sym.Kind = SymROData
				}
			case c&pe.IMAGE_SCN_CNT_UNINITIALIZED_DATA != 0:
				sym.Kind = SymBSS
			}
			sym.Local = s.StorageClass == IMAGE_SYM_CLASS_STATIC
			sym.Value += f.info.ImageBase + uint64(sect.VirtualAddress)
		}
		out = append(out, sym)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	syms := make([]Sym, len(out))
	for i := range out {
		sym1 := &out[i]
		if i+1 < len(out) && sym1.section == out[i+1].section {
			sym1.Size = out[i+1].Value - sym1.Value
		} else if sym1.section > 0 && sym1.section <= len(f.pe.Sections) {
			// Symbol is the last in its section.
			sect := f.pe.Sections[sym1.section-1]
			sym1.Size = f.info.ImageBase + uint64(sect.VirtualAddress) + uint64(sect.VirtualSize) - sym1.Value
		}
		syms[i] = sym1.Sym
	}
	return syms, nil
}

func (f *peFile) DWARF() (*dwarf.Data, error) {
	return f.pe.DWARF()
}

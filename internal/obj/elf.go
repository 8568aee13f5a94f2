// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

type elfFile struct {
	elf  *elf.File
	info Info
}

func openElf(r io.ReaderAt) (Obj, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	info := Info{OS: rdim.OSLinux}
	switch f.Machine {
	case elf.EM_X86_64:
		info.Arch = rdi.ArchX64
	case elf.EM_386:
		info.Arch = rdi.ArchX86
	default:
		return nil, fmt.Errorf("unsupported ELF machine %v", f.Machine)
	}

	// The image base is the lowest loaded address.
	base := uint64(math.MaxUint64)
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			base = min(base, p.Vaddr-p.Off)
		}
	}
	if base == math.MaxUint64 {
		base = 0
	}
	info.ImageBase = base
	return &elfFile{f, info}, nil
}

func (f *elfFile) Info() Info { return f.info }

func (f *elfFile) Sections() []rdim.BinarySection {
	var out []rdim.BinarySection
	for _, s := range f.elf.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Addr < f.info.ImageBase {
			continue
		}
		bs := rdim.BinarySection{
			Name:      s.Name,
			Flags:     rdi.BinarySectionRead,
			VoffFirst: s.Addr - f.info.ImageBase,
			VoffOpl:   s.Addr - f.info.ImageBase + s.Size,
			FoffFirst: s.Offset,
			FoffOpl:   s.Offset + s.FileSize,
		}
		if s.Flags&elf.SHF_WRITE != 0 {
			bs.Flags |= rdi.BinarySectionWrite
		}
		if s.Flags&elf.SHF_EXECINSTR != 0 {
			bs.Flags |= rdi.BinarySectionExecute
		}
		out = append(out, bs)
	}
	return out
}

func (f *elfFile) Symbols() ([]Sym, error) {
	syms, err := f.elf.Symbols()
	if err != nil {
		return nil, err
	}

	var out []Sym
	for _, s := range syms {
		kind := SymUnknown
		switch s.Section {
		case elf.SHN_UNDEF:
			kind = SymUndef
		case elf.SHN_COMMON:
			kind = SymBSS
		default:
			if s.Section < 0 || s.Section >= elf.SectionIndex(len(f.elf.Sections)) {
				// Ignore symbol.
				continue
			}
			sect := f.elf.Sections[s.Section]
			switch sect.Flags & (elf.SHF_WRITE | elf.SHF_ALLOC | elf.SHF_EXECINSTR) {
			case elf.SHF_ALLOC | elf.SHF_EXECINSTR:
				kind = SymText
			case elf.SHF_ALLOC:
				kind = SymROData
			case elf.SHF_ALLOC | elf.SHF_WRITE:
				kind = SymData
				if sect.Type == elf.SHT_NOBITS {
					kind = SymBSS
				}
			}
		}
		local := elf.ST_BIND(s.Info) == elf.STB_LOCAL
		out = append(out, Sym{s.Name, s.Value, s.Size, kind, local})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (f *elfFile) DWARF() (*dwarf.Data, error) {
	return f.elf.DWARF()
}

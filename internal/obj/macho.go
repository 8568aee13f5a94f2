// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package obj

import (
	"debug/dwarf"
	"debug/macho"
	"fmt"
	"io"
	"sort"

	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

type machoFile struct {
	macho *macho.File
	info  Info
}

func openMachO(r io.ReaderAt) (Obj, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		return nil, err
	}
	info := Info{OS: rdim.OSMac}
	switch f.Cpu {
	case macho.CpuAmd64:
		info.Arch = rdi.ArchX64
	case macho.Cpu386:
		info.Arch = rdi.ArchX86
	default:
		return nil, fmt.Errorf("unsupported Mach-O cpu %v", f.Cpu)
	}
	if text := f.Segment("__TEXT"); text != nil {
		info.ImageBase = text.Addr
	}
	return &machoFile{f, info}, nil
}

func (f *machoFile) Info() Info { return f.info }

func (f *machoFile) Sections() []rdim.BinarySection {
	var out []rdim.BinarySection
	for _, s := range f.macho.Sections {
		if s.Addr < f.info.ImageBase {
			continue
		}
		bs := rdim.BinarySection{
			Name:      s.Seg + "," + s.Name,
			Flags:     rdi.BinarySectionRead,
			VoffFirst: s.Addr - f.info.ImageBase,
			VoffOpl:   s.Addr - f.info.ImageBase + s.Size,
			FoffFirst: uint64(s.Offset),
			FoffOpl:   uint64(s.Offset) + s.Size,
		}
		switch s.Seg {
		case "__TEXT":
			bs.Flags |= rdi.BinarySectionExecute
		case "__DATA":
			bs.Flags |= rdi.BinarySectionWrite
		}
		out = append(out, bs)
	}
	return out
}

func (f *machoFile) Symbols() ([]Sym, error) {
	const (
		N_TYPE = 0x0e
		N_EXT  = 0x01
		N_SECT = 0x0e
		N_STAB = 0xe0
	)
	if f.macho.Symtab == nil {
		return nil, nil
	}
	var out []Sym
	for _, s := range f.macho.Symtab.Syms {
		if s.Type&N_STAB != 0 {
			continue
		}
		sym := Sym{Name: s.Name, Value: s.Value, Kind: SymUndef, Local: s.Type&N_EXT == 0}
		if s.Type&N_TYPE == N_SECT && int(s.Sect)-1 < len(f.macho.Sections) && s.Sect > 0 {
			sect := f.macho.Sections[s.Sect-1]
			switch {
			case sect.Seg == "__TEXT" && sect.Name == "__text":
				sym.Kind = SymText
			case sect.Seg == "__TEXT":
				sym.Kind = SymROData
			case sect.Name == "__bss" || sect.Name == "__common":
				sym.Kind = SymBSS
			default:
				sym.Kind = SymData
			}
		}
		out = append(out, sym)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (f *machoFile) DWARF() (*dwarf.Data, error) {
	return f.macho.DWARF()
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rdim

import (
	"fmt"

	"github.com/aclements/go-rdi/rdi"
)

// ProducerName is recorded in every baked file.
const ProducerName = "go-rdi rdibake"

// MakeTopLevelInfo returns the top-level info of an executable with
// the given sections. VoffMax is the end of the highest section.
func MakeTopLevelInfo(exeName string, arch rdi.Arch, exeHash uint64, sections []BinarySection) TopLevelInfo {
	var voffMax uint64
	for _, s := range sections {
		voffMax = max(voffMax, s.VoffOpl)
	}
	return TopLevelInfo{
		Arch:         arch,
		ExeName:      exeName,
		ExeHash:      exeHash,
		VoffMax:      voffMax,
		ProducerName: ProducerName,
	}
}

// OS is the operating system an executable targets.
type OS int

const (
	OSNull OS = iota
	OSWindows
	OSLinux
	OSMac
)

func (o OS) String() string {
	switch o {
	case OSNull:
		return "null"
	case OSWindows:
		return "windows"
	case OSLinux:
		return "linux"
	case OSMac:
		return "mac"
	}
	return fmt.Sprintf("OS(%d)", int(o))
}

// DataModel gives the sizes of C integer types.
type DataModel int

const (
	DataModelNull DataModel = iota
	DataModelILP32
	DataModelLLP64
	DataModelLP64
	DataModelILP64
	DataModelSILP64
)

func (d DataModel) String() string {
	switch d {
	case DataModelNull:
		return "null"
	case DataModelILP32:
		return "ILP32"
	case DataModelLLP64:
		return "LLP64"
	case DataModelLP64:
		return "LP64"
	case DataModelILP64:
		return "ILP64"
	case DataModelSILP64:
		return "SILP64"
	}
	return fmt.Sprintf("DataModel(%d)", int(d))
}

// InferDataModel returns the data model of code for os on arch, or
// DataModelNull if the pair is not known.
//
// Linux x64 reports LLP64 rather than LP64. Baked files have always
// recorded it that way and readers depend on it.
func InferDataModel(os OS, arch rdi.Arch) DataModel {
	switch {
	case os == OSWindows && (arch == rdi.ArchX86 || arch == rdi.ArchX64):
		return DataModelLLP64
	case os == OSLinux && arch == rdi.ArchX86:
		return DataModelILP32
	case os == OSLinux && arch == rdi.ArchX64:
		return DataModelLLP64
	case os == OSMac && arch == rdi.ArchX64:
		return DataModelLP64
	}
	return DataModelNull
}

// IntSizes returns the byte sizes of short, int, long, long long and
// pointers under d. All sizes are 0 for DataModelNull.
func (d DataModel) IntSizes() (short, integer, long, longLong, ptr uint32) {
	switch d {
	case DataModelILP32:
		return 2, 4, 4, 8, 4
	case DataModelLLP64:
		return 2, 4, 4, 8, 8
	case DataModelLP64:
		return 2, 4, 8, 8, 8
	case DataModelILP64:
		return 2, 8, 8, 8, 8
	case DataModelSILP64:
		return 8, 8, 8, 8, 8
	}
	return 0, 0, 0, 0, 0
}

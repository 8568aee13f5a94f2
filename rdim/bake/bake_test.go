// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bake

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/aclements/go-rdi/rdi"
	"github.com/aclements/go-rdi/rdim"
)

// testEntities are handles to interesting parts of the test model.
type testEntities struct {
	s32, fwd, pfwd, foo, fn, fn2 *rdim.Type
	main, helper               *rdim.Symbol
	mainGlobal                 *rdim.Symbol
	dup1, dup2                 *rdim.Symbol
}

func testModel() (*rdim.Model, *testEntities) {
	m := new(rdim.Model)
	var h testEntities

	m.BinarySections = []rdim.BinarySection{
		{Name: ".text", Flags: rdi.BinarySectionRead | rdi.BinarySectionExecute, VoffFirst: 0x1000, VoffOpl: 0x3000, FoffFirst: 0x400, FoffOpl: 0x2400},
		{Name: ".data", Flags: rdi.BinarySectionRead | rdi.BinarySectionWrite, VoffFirst: 0x4000, VoffOpl: 0x5000, FoffFirst: 0x2400, FoffOpl: 0x3400},
	}
	m.TopLevel = rdim.MakeTopLevelInfo("prog.exe", rdi.ArchX64, 0x1234, m.BinarySections)

	mainC := m.NewSrcFile(`C:\src\main.c`)
	utilC := m.NewSrcFile("C:/src/util.c")
	lt := m.NewLineTable()
	lt.Seqs = []rdim.LineSequence{
		{SrcFile: utilC, Voffs: []uint64{0x1100, 0x1108}, Lines: []uint32{5}},
		{SrcFile: mainC, Voffs: []uint64{0x1000, 0x1010, 0x1020}, Lines: []uint32{10, 11}},
	}
	u := m.NewUnit()
	u.UnitName = "main.obj"
	u.CompilerName = "cc 1.0"
	u.SourceFile = `C:\src\main.c`
	u.ObjectFile = "C:/build/main.obj"
	u.Language = rdi.LanguageC
	u.LineTable = lt
	u.VoffRanges = []rdim.Rng1U64{{Min: 0x1000, Max: 0x1200}}

	h.s32 = m.NewType(rdi.TypeKindS32)
	h.s32.Name = "int"
	h.fwd = m.NewType(rdi.TypeKindIncompleteStruct)
	h.fwd.Name = "Foo"
	h.pfwd = m.NewType(rdi.TypeKindPtr)
	h.pfwd.DirectType = h.fwd
	h.foo = m.NewType(rdi.TypeKindStruct)
	h.foo.Name = "Foo"
	h.foo.ByteSize = 8
	udt := m.NewUDT(h.foo)
	udt.Members = []rdim.UDTMember{
		{Kind: rdi.MemberDataField, Name: "a", Type: h.s32, Off: 0},
		{Kind: rdi.MemberDataField, Name: "b", Type: h.s32, Off: 4},
	}
	udt.SrcFile = mainC
	udt.Line = 3
	h.fn = m.NewType(rdi.TypeKindFunction)
	h.fn.DirectType = h.s32
	h.fn.ParamTypes = []*rdim.Type{h.pfwd, h.s32}
	h.fn2 = m.NewType(rdi.TypeKindFunction)
	h.fn2.DirectType = h.s32
	h.fn2.ParamTypes = []*rdim.Type{h.pfwd, h.s32}
	color := m.NewType(rdi.TypeKindEnum)
	color.Name = "Color"
	color.DirectType = h.s32
	m.NewUDT(color).EnumVals = []rdim.UDTEnumVal{{Name: "Red", Val: 0}, {Name: "Green", Val: 1}}

	g := m.NewGlobalVariable()
	g.Name = "counter"
	g.IsExtern = true
	g.Type = h.s32
	g.Offset = 0x4000
	h.mainGlobal = m.NewGlobalVariable()
	h.mainGlobal.Name = "main"
	h.mainGlobal.Type = h.s32
	h.mainGlobal.Offset = 0x4010
	tv := m.NewThreadVariable()
	tv.Name = "tls_x"
	tv.Type = h.s32
	tv.Offset = 8
	c := m.NewConstant()
	c.Name = "kMax"
	c.Type = h.s32
	c.Value = []byte{0x10, 0, 0, 0}
	h.dup1 = m.NewConstant()
	h.dup1.Name = "dup"
	h.dup1.Value = []byte{1}
	h.dup2 = m.NewConstant()
	h.dup2.Name = "dup"
	h.dup2.Value = []byte{2}

	h.main = m.NewProcedure()
	h.main.Name = "main"
	h.main.LinkName = "main"
	h.main.IsExtern = true
	h.main.Type = h.fn
	h.main.Offset = 0x1000
	h.main.FrameBase = []rdim.LocationCase{{Location: &rdim.Location{Kind: rdi.LocationValReg, Reg: 6}}}
	h.helper = m.NewProcedure()
	h.helper.Name = "helper"
	h.helper.LinkName = "helper"
	h.helper.Type = h.fn2
	h.helper.Offset = 0x1100

	root := m.NewScope(h.main, nil)
	root.VoffRanges = []rdim.Rng1U64{{Min: 0x1000, Max: 0x1100}}
	root.Locals = []rdim.Local{{
		Kind: rdi.LocalParameter,
		Name: "argc",
		Type: h.s32,
		Locations: []rdim.LocationCase{{
			VoffRange: rdim.Rng1U64{Min: 0x1000, Max: 0x1010},
			Location:  &rdim.Location{Kind: rdi.LocationAddrRegPlusU16, Reg: 6, Offset: 16},
		}},
	}}
	inner := m.NewScope(h.main, root)
	inner.VoffRanges = []rdim.Rng1U64{{Min: 0x1010, Max: 0x1020}}
	inner.Locals = []rdim.Local{{
		Kind: rdi.LocalVariable,
		Name: "i",
		Type: h.s32,
		Locations: []rdim.LocationCase{{
			Location: rdim.AddrBytecode(new(rdim.Bytecode).Op(rdi.EvalOpFrameOff, 0, -8)),
		}},
	}}
	hroot := m.NewScope(h.helper, nil)
	hroot.VoffRanges = []rdim.Rng1U64{{Min: 0x1100, Max: 0x1108}}

	site := m.NewInlineSite()
	site.Name = "inlined"
	site.Type = h.fn
	site.LineTable = lt
	inner.InlineSite = site

	return m, &h
}

func bakeAndParse(t *testing.T, m *rdim.Model, opts Options) *rdi.File {
	t.Helper()
	f, err := rdi.Parse(Bake(m, opts).Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func table[T any](t *testing.T, f *rdi.File, k rdi.SectionKind) []T {
	t.Helper()
	out, err := rdi.Table[T](f, k)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestDeterministic(t *testing.T) {
	var want []byte
	for _, workers := range []int{1, 2, 3, 8} {
		m, _ := testModel()
		got := Bake(m, Options{Workers: workers}).Bytes()
		if want == nil {
			want = got
			continue
		}
		if !bytes.Equal(want, got) {
			t.Errorf("bake with %d workers differs from bake with 1 worker", workers)
		}
	}

	// Baking the same model again (after it has been resolved in
	// place) gives the same bundle.
	m, _ := testModel()
	a := Bake(m, Options{Workers: 4})
	b := Bake(m, Options{Workers: 2})
	if !rdi.Equal(a, b) {
		t.Errorf("second bake of the same model differs")
	}
}

func TestSectionsComplete(t *testing.T) {
	m, _ := testModel()
	f := bakeAndParse(t, m, Options{})
	if f.Header.SectionCount != uint32(rdi.SectionCount) {
		t.Fatalf("want %d sections, got %d", rdi.SectionCount, f.Header.SectionCount)
	}
	for k := rdi.SectionNull + 1; k < rdi.SectionCount; k++ {
		if k == rdi.SectionLineInfoColumns {
			// The test model has no columns.
			continue
		}
		if len(f.Sections[k]) == 0 {
			t.Errorf("section %v is empty", k)
		}
	}
}

func TestStringsUnique(t *testing.T) {
	m, h := testModel()
	f := bakeAndParse(t, m, Options{Workers: 4})
	strs, err := f.Strings()
	if err != nil {
		t.Fatal(err)
	}
	if strs[0] != "" {
		t.Errorf("want empty string at index 0, got %q", strs[0])
	}
	seen := make(map[string]int)
	for i, s := range strs[1:] {
		if j, ok := seen[s]; ok {
			t.Errorf("string %q at indexes %d and %d", s, j, i+1)
		}
		seen[s] = i + 1
	}
	for _, want := range []string{"main", "helper", "counter", "int", "Foo", "argc", "c:/src/main.c", "src", "prog.exe", ".text", rdim.ProducerName} {
		if _, ok := seen[want]; !ok {
			t.Errorf("string %q missing", want)
		}
	}

	// The global and the procedure named "main" share one string.
	procs := table[rdi.Procedure](t, f, rdi.SectionProcedures)
	globals := table[rdi.GlobalVariable](t, f, rdi.SectionGlobalVariables)
	pi, gi := procs[h.main.Idx].NameStringIdx, globals[h.mainGlobal.Idx].NameStringIdx
	if pi != gi {
		t.Errorf("want one index for \"main\", got %d and %d", pi, gi)
	}
	if s, _ := f.String(pi); s != "main" {
		t.Errorf("want \"main\", got %q", s)
	}
}

func TestResolvedTypeNodes(t *testing.T) {
	m, h := testModel()
	var st Stats
	f := bakeAndParse(t, m, Options{Stats: &st})
	if st.ResolvedTypes != 1 {
		t.Errorf("want 1 resolved type, got %d", st.ResolvedTypes)
	}
	nodes := table[rdi.TypeNode](t, f, rdi.SectionTypeNodes)
	if got := nodes[h.fwd.Idx].Kind; got != rdi.TypeKindNull {
		t.Errorf("want forward declaration kind Null, got %v", got)
	}
	if got := nodes[h.pfwd.Idx].DirectTypeIdx; got != h.foo.Idx {
		t.Errorf("want pointer to type %d, got %d", h.foo.Idx, got)
	}
	if got := nodes[h.pfwd.Idx].ByteSize; got != 8 {
		t.Errorf("want pointer size 8, got %d", got)
	}

	fn, fn2 := nodes[h.fn.Idx], nodes[h.fn2.Idx]
	if fn.IdxRunFirst != fn2.IdxRunFirst {
		t.Errorf("want identical parameter runs interned once, got offsets %d and %d", fn.IdxRunFirst, fn2.IdxRunFirst)
	}
	runs := table[uint32](t, f, rdi.SectionIndexRuns)
	got := runs[fn.IdxRunFirst : fn.IdxRunFirst+fn.Count]
	want := []uint32{h.pfwd.Idx, h.s32.Idx}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("want parameters %v, got %v", want, got)
	}

	udts := table[rdi.UDT](t, f, rdi.SectionUDTs)
	members := table[rdi.Member](t, f, rdi.SectionMembers)
	foo := udts[nodes[h.foo.Idx].UDTIdx]
	if foo.SelfTypeIdx != h.foo.Idx || foo.MemberCount != 2 {
		t.Fatalf("bad UDT for Foo: %+v", foo)
	}
	if s, _ := f.String(members[foo.MemberFirst+1].NameStringIdx); s != "b" {
		t.Errorf("want second member \"b\", got %q", s)
	}
	enums := table[rdi.EnumMember](t, f, rdi.SectionEnumMembers)
	color := udts[2]
	if color.Flags&rdi.UDTEnumMembers == 0 || enums[color.MemberFirst+1].Val != 1 {
		t.Errorf("bad enum UDT: %+v", color)
	}
}

func TestNameMaps(t *testing.T) {
	m, h := testModel()
	f := bakeAndParse(t, m, Options{Workers: 3})
	tests := []struct {
		kind rdi.NameMapKind
		name string
		want []uint32
	}{
		{rdi.NameMapProcedures, "main", []uint32{h.main.Idx}},
		{rdi.NameMapProcedures, "helper", []uint32{h.helper.Idx}},
		{rdi.NameMapLinkNameProcedures, "helper", []uint32{h.helper.Idx}},
		{rdi.NameMapGlobalVariables, "main", []uint32{h.mainGlobal.Idx}},
		{rdi.NameMapGlobalVariables, "counter", []uint32{1}},
		{rdi.NameMapThreadVariables, "tls_x", []uint32{1}},
		{rdi.NameMapConstants, "dup", []uint32{h.dup1.Idx, h.dup2.Idx}},
		{rdi.NameMapTypes, "Foo", []uint32{h.foo.Idx}},
		{rdi.NameMapTypes, "int", []uint32{h.s32.Idx}},
		{rdi.NameMapNormalSourcePaths, "c:/src/util.c", []uint32{2}},
		{rdi.NameMapProcedures, "missing", nil},
	}
	for _, test := range tests {
		got, err := f.LookupName(test.kind, test.name)
		if err != nil {
			t.Errorf("%v %q: %v", test.kind, test.name, err)
			continue
		}
		if !reflect.DeepEqual(test.want, got) {
			t.Errorf("%v %q: want %v, got %v", test.kind, test.name, test.want, got)
		}
	}
}

func TestLocations(t *testing.T) {
	m, h := testModel()
	f := bakeAndParse(t, m, Options{Workers: 2})
	blocks := table[rdi.LocationBlock](t, f, rdi.SectionLocationBlocks)
	locals := table[rdi.Local](t, f, rdi.SectionLocals)
	procs := table[rdi.Procedure](t, f, rdi.SectionProcedures)
	data := f.Sections[rdi.SectionLocationData]

	if len(blocks) != 4 || blocks[0] != (rdi.LocationBlock{}) {
		t.Fatalf("want null block and 3 blocks, got %+v", blocks)
	}
	wantBlocks := []rdi.LocationBlock{
		{},
		{ScopeOffFirst: 0, ScopeOffOpl: 0x10, LocationDataOff: 0},
		{ScopeOffFirst: 0, ScopeOffOpl: math.MaxUint32, LocationDataOff: 4},
		{ScopeOffFirst: 0, ScopeOffOpl: math.MaxUint32, LocationDataOff: 8},
	}
	if !reflect.DeepEqual(wantBlocks, blocks) {
		t.Errorf("want blocks %+v, got %+v", wantBlocks, blocks)
	}

	tests := []struct {
		first, opl uint32
		want       string
	}{
		{locals[1].LocationFirst, locals[1].LocationOpl, "[r6+0x10]"},
		{locals[2].LocationFirst, locals[2].LocationOpl, "addr{frameoff -8}"},
		{procs[h.main.Idx].FrameBaseLocationFirst, procs[h.main.Idx].FrameBaseLocationOpl, "r6"},
	}
	for _, test := range tests {
		if test.opl != test.first+1 {
			t.Errorf("%s: want one block, got [%d, %d)", test.want, test.first, test.opl)
			continue
		}
		got, err := rdi.DecodeLocation(data[blocks[test.first].LocationDataOff:])
		if err != nil {
			t.Errorf("%s: %v", test.want, err)
		} else if got != test.want {
			t.Errorf("want %s, got %s", test.want, got)
		}
	}
	if p := procs[h.helper.Idx]; p.FrameBaseLocationFirst != 0 || p.FrameBaseLocationOpl != 0 {
		t.Errorf("want no frame base blocks for helper, got [%d, %d)", p.FrameBaseLocationFirst, p.FrameBaseLocationOpl)
	}
}

func TestLineInfo(t *testing.T) {
	m, _ := testModel()
	f := bakeAndParse(t, m, Options{})
	tables := table[rdi.LineTable](t, f, rdi.SectionLineTables)
	voffs := table[uint64](t, f, rdi.SectionLineInfoVOffs)
	lines := table[rdi.Line](t, f, rdi.SectionLineInfoLines)

	lt := tables[1]
	wantVoffs := []uint64{0x1000, 0x1010, 0x1020, 0x1100, 0x1108, 0x1108}
	wantLines := []rdi.Line{{FileIdx: 1, LineNum: 10}, {FileIdx: 1, LineNum: 11}, {}, {FileIdx: 2, LineNum: 5}, {}}
	if got := voffs[lt.VoffsBaseIdx : lt.VoffsBaseIdx+lt.LinesCount+1]; !reflect.DeepEqual(wantVoffs, got) {
		t.Errorf("want voffs %#x, got %#x", wantVoffs, got)
	}
	if got := lines[lt.LinesBaseIdx : lt.LinesBaseIdx+lt.LinesCount]; !reflect.DeepEqual(wantLines, got) {
		t.Errorf("want lines %v, got %v", wantLines, got)
	}

	files := table[rdi.SourceFile](t, f, rdi.SectionSourceFiles)
	maps := table[rdi.SourceLineMap](t, f, rdi.SectionSourceLineMaps)
	nums := table[uint32](t, f, rdi.SectionSourceLineMapNumbers)
	ranges := table[uint32](t, f, rdi.SectionSourceLineMapRanges)
	mvoffs := table[uint64](t, f, rdi.SectionSourceLineMapVOffs)
	slm := maps[files[1].SourceLineMapIdx]
	if got := nums[slm.LineMapNumsBaseIdx : slm.LineMapNumsBaseIdx+slm.LineCount]; !reflect.DeepEqual([]uint32{10, 11}, got) {
		t.Errorf("want line numbers [10 11], got %v", got)
	}
	if got := ranges[slm.LineMapRangeBaseIdx : slm.LineMapRangeBaseIdx+slm.LineCount+1]; !reflect.DeepEqual([]uint32{0, 1, 2}, got) {
		t.Errorf("want ranges [0 1 2], got %v", got)
	}
	if got := mvoffs[slm.LineMapVoffBaseIdx : slm.LineMapVoffBaseIdx+slm.VoffCount]; !reflect.DeepEqual([]uint64{0x1000, 0x1010}, got) {
		t.Errorf("want voffs [0x1000 0x1010], got %#x", got)
	}

	nodes := table[rdi.FilePathNode](t, f, rdi.SectionFilePathNodes)
	if n := nodes[files[2].FilePathNodeIdx]; n.SourceFileIdx != 2 {
		t.Errorf("want path node of util.c to point at file 2, got %d", n.SourceFileIdx)
	} else if s, _ := f.String(n.NameStringIdx); s != "util.c" {
		t.Errorf("want path node name \"util.c\", got %q", s)
	}
}

func TestVMap(t *testing.T) {
	r := func(min, max uint64, idx uint32) vmapRange {
		return vmapRange{rdim.Rng1U64{Min: min, Max: max}, idx}
	}
	tests := []struct {
		ranges []vmapRange
		want   []rdi.VMapEntry
	}{
		{
			[]vmapRange{r(0, 100, 1), r(10, 20, 2), r(20, 30, 3), r(200, 210, 4)},
			[]rdi.VMapEntry{{Voff: 0, Idx: 1}, {Voff: 10, Idx: 2}, {Voff: 20, Idx: 3}, {Voff: 30, Idx: 1}, {Voff: 100, Idx: 0}, {Voff: 200, Idx: 4}, {Voff: 210, Idx: 0}},
		},
		{
			[]vmapRange{r(0, 10, 2), r(0, 50, 1)},
			[]rdi.VMapEntry{{Voff: 0, Idx: 2}, {Voff: 10, Idx: 1}, {Voff: 50, Idx: 0}},
		},
		{
			// Adjacent ranges of the same owner merge.
			[]vmapRange{r(0x10, 0x20, 5), r(0x20, 0x30, 5), r(0x40, 0x40, 6)},
			[]rdi.VMapEntry{{Voff: 0x10, Idx: 5}, {Voff: 0x30, Idx: 0}},
		},
		{nil, nil},
	}
	for _, test := range tests {
		got := bakeVMap(test.ranges)
		if !reflect.DeepEqual(test.want, got) {
			t.Errorf("%v: want %v, got %v", test.ranges, test.want, got)
		}
	}
}

func TestCompressed(t *testing.T) {
	m, _ := testModel()
	plain := Bake(m, Options{})
	m, _ = testModel()
	var st Stats
	packed := Bake(m, Options{Codec: rdi.LZ4{}, Stats: &st})
	f, err := rdi.Parse(packed.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	for k := range plain.Sections {
		if !bytes.Equal(plain.Sections[k].Data, f.Sections[k]) {
			t.Errorf("section %v differs after compression round trip", rdi.SectionKind(k))
		}
		if st.Sections[k].UnpackedSize != uint64(len(plain.Sections[k].Data)) {
			t.Errorf("section %v: want unpacked size %d, got %d", rdi.SectionKind(k), len(plain.Sections[k].Data), st.Sections[k].UnpackedSize)
		}
	}

	var sb strings.Builder
	st.Fprint(&sb)
	if !strings.Contains(sb.String(), "StringData") {
		t.Errorf("stats report missing sections:\n%s", sb.String())
	}
}

func TestRunError(t *testing.T) {
	m, h := testModel()
	h.helper.Type = &rdim.Type{Idx: 999, Kind: rdi.TypeKindFunction}
	b, err := Run(m, Options{Workers: 2})
	if err == nil || b != nil {
		t.Fatalf("want error for dangling type reference, got bundle %v", b != nil)
	}
	if !strings.Contains(err.Error(), "procedure type index 999") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRunErrorDanglingType(t *testing.T) {
	dangling := &rdim.Type{Idx: 999, Kind: rdi.TypeKindS32}
	for _, test := range []struct {
		name string
		set  func(t *testing.T, m *rdim.Model, h *testEntities)
		want string
	}{
		{"constant", func(t *testing.T, m *rdim.Model, h *testEntities) {
			h.dup1.Type = dangling
		}, "constant type index 999"},
		{"member", func(t *testing.T, m *rdim.Model, h *testEntities) {
			u := m.UDTs.At(0)
			if u.SelfType != h.foo {
				t.Fatalf("want first UDT to be Foo")
			}
			u.Members[1].Type = dangling
		}, "member type index 999"},
	} {
		t.Run(test.name, func(t *testing.T) {
			m, h := testModel()
			test.set(t, m, h)
			b, err := Run(m, Options{Workers: 2})
			if err == nil || b != nil {
				t.Fatalf("want error for dangling type reference, got bundle %v", b != nil)
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("want error containing %q, got %v", test.want, err)
			}
		})
	}
}

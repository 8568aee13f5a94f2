// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pathtree

import (
	"reflect"
	"testing"
)

func TestInsert(t *testing.T) {
	tr := New()
	a := tr.Insert(`C:\src\Main.c`)
	b := tr.Insert("c:/src/util/str.c")
	c := tr.Insert("c:/src/main.c")
	if a != c {
		t.Errorf("want paths differing in case and slashes to share a node")
	}
	if got, want := a.Path(), "c:/src/main.c"; got != want {
		t.Errorf("want %q, got %q", want, got)
	}
	if got, want := b.Path(), "c:/src/util/str.c"; got != want {
		t.Errorf("want %q, got %q", want, got)
	}

	var names []string
	for _, n := range tr.Nodes() {
		names = append(names, n.Name)
	}
	want := []string{"", "c:", "src", "main.c", "util", "str.c"}
	if !reflect.DeepEqual(want, names) {
		t.Errorf("want %v, got %v", want, names)
	}
	for i, n := range tr.Nodes() {
		if n.Idx != uint32(i+1) {
			t.Errorf("node %q: want index %d, got %d", n.Name, i+1, n.Idx)
		}
	}

	src := tr.Lookup("c:/src")
	if src.FirstChild != a || a.NextSibling != src.LastChild || src.LastChild.Name != "util" {
		t.Errorf("bad child links under %q", src.Path())
	}
}

func TestLookup(t *testing.T) {
	tr := New()
	tr.Insert("/usr/include/stdio.h")
	if n := tr.Lookup("/usr/include/stdlib.h"); n != nil {
		t.Errorf("want nil for missing path, got %q", n.Path())
	}
	if idx := tr.Index("/USR/include/./stdio.h"); idx != 5 {
		t.Errorf("want index 5, got %d", idx)
	}
	if idx := tr.Index(""); idx != 0 {
		t.Errorf("want index 0 for empty path, got %d", idx)
	}
}

func TestAbsolute(t *testing.T) {
	tr := New()
	abs := tr.Insert("/usr/src/a.c")
	rel := tr.Insert("usr/src/a.c")
	if abs == rel {
		t.Fatalf("want /usr/src/a.c and usr/src/a.c in different nodes")
	}
	if abs.Idx == rel.Idx {
		t.Errorf("want different indexes, got %d for both", abs.Idx)
	}
	if got, want := abs.Path(), "/usr/src/a.c"; got != want {
		t.Errorf("want %q, got %q", want, got)
	}
	if got, want := rel.Path(), "usr/src/a.c"; got != want {
		t.Errorf("want %q, got %q", want, got)
	}
	if got, want := tr.Index(`\usr\src\a.c`), abs.Idx; got != want {
		t.Errorf("want index %d, got %d", want, got)
	}
	if got, want := tr.Lookup("/").Path(), "/"; got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

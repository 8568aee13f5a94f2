// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package typegraph

import (
	"bufio"
	"fmt"
	"io"
)

// Dot contains options for generating a Graphviz Dot graph from a
// Graph.
type Dot struct {
	// Name is the name given to the graph. Usually this can be
	// left blank.
	Name string

	// Label returns the string to use as a label for the given
	// node. If nil, nodes are labeled with their node numbers.
	Label func(node int) string

	// Style, if non-nil, returns extra Dot attributes for node,
	// such as `style=dashed`, or "" for none.
	Style func(node int) string

	// EdgeLabel, if non-nil, labels the i'th out edge of node.
	EdgeLabel func(node, i int) string

	// Omit, if non-nil, reports nodes to leave out of the output
	// along with their edges.
	Omit func(node int) bool
}

// Fprint writes the Dot form of g to w.
func (d Dot) Fprint(g Graph, w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\n", dotString(d.Name))
	for i := 0; i < g.NumNodes(); i++ {
		if d.omit(i) {
			continue
		}
		label := fmt.Sprintf("%d", i)
		if d.Label != nil {
			label = d.Label(i)
		}
		fmt.Fprintf(bw, "n%d [label=%s", i, dotString(label))
		if d.Style != nil {
			if s := d.Style(i); s != "" {
				fmt.Fprintf(bw, ",%s", s)
			}
		}
		bw.WriteString("];\n")

		for j, out := range g.Out(i) {
			if d.omit(out) {
				continue
			}
			fmt.Fprintf(bw, "n%d -> n%d", i, out)
			if d.EdgeLabel != nil {
				if l := d.EdgeLabel(i, j); l != "" {
					fmt.Fprintf(bw, " [label=%s]", dotString(l))
				}
			}
			bw.WriteString(";\n")
		}
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

func (d Dot) omit(node int) bool {
	return d.Omit != nil && d.Omit(node)
}

// dotString returns s as a quoted dot string.
func dotString(s string) string {
	buf := []byte{'"'}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			buf = append(buf, `\n`...)
		case '\\', '"', '{', '}', '<', '>', '|':
			buf = append(buf, '\\', c)
		default:
			buf = append(buf, c)
		}
	}
	return string(append(buf, '"'))
}

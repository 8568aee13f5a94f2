// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table is a titled table of rows.
type Table struct {
	Title    string
	ColNames []string
	Rows     [][]any
}

func NewTable(title string, cols ...string) *Table {
	return &Table{Title: title, ColNames: cols}
}

func (t *Table) AddRow(vals ...any) {
	if len(vals) != len(t.ColNames) {
		panic(fmt.Sprintf("row has %d values for %d columns", len(vals), len(t.ColNames)))
	}
	t.Rows = append(t.Rows, vals)
}

// Write writes t to w, aligned for reading if aligned is set and as
// tab-separated values otherwise.
func (t *Table) Write(w io.Writer, aligned bool) error {
	if aligned {
		return t.WriteAligned(w)
	}
	return t.WriteTSV(w, true)
}

func (t *Table) WriteTSV(w io.Writer, withHeader bool) (err error) {
	buf := bufio.NewWriter(w)
	defer func() {
		err = buf.Flush()
	}()

	// Write header.
	if withHeader {
		fmt.Fprintf(buf, "# %s\n", t.Title)
		fmt.Fprintf(buf, "%s\n", strings.Join(t.ColNames, "\t"))
	}

	// Write body.
	for _, row := range t.Rows {
		for j, v := range row {
			if j > 0 {
				buf.WriteString("\t")
			}
			fmt.Fprint(buf, v)
		}
		buf.WriteString("\n")
	}
	return
}

func (t *Table) WriteAligned(w io.Writer) error {
	fmt.Fprintf(w, "%s:\n", t.Title)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(t.ColNames, "\t"))
	for _, row := range t.Rows {
		for _, v := range row {
			fmt.Fprintf(tw, "\t%v", v)
		}
		fmt.Fprint(tw, "\t\n")
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pathtree interns file paths into a tree of path
// components.
package pathtree

import "strings"

// Node is one path component. Node indexes are assigned in insertion
// order starting at 1 for the root, so a Tree built from the same
// paths in the same order always has the same layout.
type Node struct {
	Idx  uint32
	Name string

	Parent      *Node
	FirstChild  *Node
	LastChild   *Node
	NextSibling *Node

	// SrcFile is the index of the source file at this path, or 0.
	SrcFile uint32

	children map[string]*Node
}

// Path returns the normalized path of n.
func (n *Node) Path() string {
	if n.Parent == nil {
		return ""
	}
	parent := n.Parent.Path()
	if parent == "" || strings.HasSuffix(parent, "/") {
		return parent + n.Name
	}
	return parent + "/" + n.Name
}

// Tree is a path tree. Its zero value is not usable; use New.
type Tree struct {
	Root  *Node
	nodes []*Node
}

// New returns a tree holding only the root node.
func New() *Tree {
	root := &Node{Idx: 1}
	return &Tree{Root: root, nodes: []*Node{root}}
}

// Normalize returns the normal form of path: lower case with forward
// slashes.
func Normalize(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, `\`, "/"))
}

// rootName is the name of the node under the tree root that holds
// every absolute POSIX path, so /a and a stay distinct.
const rootName = "/"

// components splits a normalized path. Empty and "." components are
// dropped. An absolute path starts with rootName.
func components(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	if strings.HasPrefix(path, "/") {
		out = append(out, rootName)
	}
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

// Insert adds path to t and returns its node. Inserting the empty
// path returns the root.
func (t *Tree) Insert(path string) *Node {
	n := t.Root
	for _, name := range components(Normalize(path)) {
		child := n.children[name]
		if child == nil {
			child = &Node{Idx: uint32(len(t.nodes) + 1), Name: name, Parent: n}
			if n.children == nil {
				n.children = make(map[string]*Node)
			}
			n.children[name] = child
			if n.LastChild == nil {
				n.FirstChild = child
			} else {
				n.LastChild.NextSibling = child
			}
			n.LastChild = child
			t.nodes = append(t.nodes, child)
		}
		n = child
	}
	return n
}

// Lookup returns the node of path, or nil if path was never inserted.
func (t *Tree) Lookup(path string) *Node {
	n := t.Root
	for _, name := range components(Normalize(path)) {
		if n = n.children[name]; n == nil {
			return nil
		}
	}
	return n
}

// Index returns the node index of path, or 0 if path is empty or was
// never inserted.
func (t *Tree) Index(path string) uint32 {
	if path == "" {
		return 0
	}
	if n := t.Lookup(path); n != nil {
		return n.Idx
	}
	return 0
}

// Nodes returns the nodes of t in index order. Nodes()[i] has index
// i+1.
func (t *Tree) Nodes() []*Node {
	return t.nodes
}

// Len returns the number of nodes in t, including the root.
func (t *Tree) Len() int {
	return len(t.nodes)
}

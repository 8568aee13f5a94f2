// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package typegraph orders the reference graph of a type table.
//
// Node i of a type graph is the type with index i; edges go from a
// type to the types whose layout it depends on.
package typegraph

import "fmt"

// Graph represents a directed graph. The nodes of the graph must be
// densely numbered starting at 0.
type Graph interface {
	// NumNodes returns the number of nodes in this graph.
	NumNodes() int

	// Out returns the nodes to which node i points.
	Out(i int) []int
}

// IntGraph is a basic Graph g where g[i] is the list of out-edge
// indexes of node i.
type IntGraph [][]int

func (g IntGraph) NumNodes() int {
	return len(g)
}

func (g IntGraph) Out(i int) []int {
	return g[i]
}

// A CycleError reports a cycle found while ordering a graph.
type CycleError struct {
	Nodes []int // Nodes of the cycle in edge order
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("typegraph: cycle through nodes %v", e.Nodes)
}

const (
	white = iota // Not visited
	gray         // On the DFS stack
	black        // Finished
)

// PostOrder returns every node of g in post-order: each node appears
// after all nodes it points to. Roots are taken in increasing node
// order. If g has a cycle, PostOrder returns a *CycleError.
func PostOrder(g Graph) ([]int, error) {
	n := g.NumNodes()
	color := make([]uint8, n)
	out := make([]int, 0, n)

	type frame struct {
		node int
		edge int
	}
	var stack []frame
	for root := 0; root < n; root++ {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack = append(stack[:0], frame{root, 0})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succs := g.Out(top.node)
			if top.edge == len(succs) {
				color[top.node] = black
				out = append(out, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			succ := succs[top.edge]
			top.edge++
			switch color[succ] {
			case white:
				color[succ] = gray
				stack = append(stack, frame{succ, 0})
			case gray:
				var cycle []int
				for i := len(stack) - 1; i >= 0; i-- {
					cycle = append(cycle, stack[i].node)
					if stack[i].node == succ {
						break
					}
				}
				return nil, &CycleError{Reverse(cycle)}
			}
		}
	}
	return out, nil
}

// Reverse reverses xs in place and returns the slice.
func Reverse(xs []int) []int {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
	return xs
}

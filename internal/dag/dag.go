// SPDX-License-Identifier: MPL-2.0

// Package dag orders named nodes under "must come before" constraints. The
// registry uses it to turn package ordering hints into a processing sequence.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError reports nodes whose constraints could not all be satisfied.
	CycleError struct {
		// Cycle lists the nodes left with unsatisfied constraints when ordering
		// stalled, in insertion order.
		Cycle []string
	}

	// Graph is a directed graph of string nodes. An edge from A to B means A
	// must come before B.
	Graph struct {
		adjacency map[string][]string
		nodes     []string
		nodeSet   map[string]struct{}
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("ordering cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]struct{}),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if _, ok := g.nodeSet[name]; ok {
		return
	}
	g.nodeSet[name] = struct{}{}
	g.nodes = append(g.nodes, name)
}

// AddEdge records that before must come before after. Both nodes are added
// if missing; repeated edges are ignored.
func (g *Graph) AddEdge(before, after string) {
	g.AddNode(before)
	g.AddNode(after)
	for _, n := range g.adjacency[before] {
		if n == after {
			return
		}
	}
	g.adjacency[before] = append(g.adjacency[before], after)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns an order satisfying every edge, or a *CycleError.
// Among nodes whose constraints are met, the one added first is emitted
// first, so an unconstrained graph keeps insertion order.
func (g *Graph) TopologicalSort() ([]string, error) {
	order, cycle := g.Order()
	if cycle != nil {
		return nil, cycle
	}
	return order, nil
}

// Order always returns every node once. When the graph has a cycle the
// earliest-inserted blocked node is emitted anyway and ordering resumes, so
// all constraints outside the cycle still hold; the returned *CycleError
// lists the blocked nodes at the first stall.
func (g *Graph) Order() ([]string, *CycleError) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, neighbors := range g.adjacency {
		for _, n := range neighbors {
			inDegree[n]++
		}
	}

	emitted := make([]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))
	var cycle *CycleError

	emit := func(i int) {
		emitted[i] = true
		node := g.nodes[i]
		result = append(result, node)
		for _, n := range g.adjacency[node] {
			inDegree[n]--
		}
	}

	for len(result) < len(g.nodes) {
		next := -1
		for i, node := range g.nodes {
			if !emitted[i] && inDegree[node] <= 0 {
				next = i
				break
			}
		}
		if next >= 0 {
			emit(next)
			continue
		}

		// Stalled: every remaining node waits on another remaining node.
		if cycle == nil {
			cycle = &CycleError{}
			for i, node := range g.nodes {
				if !emitted[i] {
					cycle.Cycle = append(cycle.Cycle, node)
				}
			}
		}
		for i := range g.nodes {
			if !emitted[i] {
				emit(i)
				break
			}
		}
	}

	return result, cycle
}

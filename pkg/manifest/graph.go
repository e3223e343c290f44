// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package manifest

import (
	"fmt"
	"sort"
)

// Graph is the executable form of a Manifest: nodes indexed by id, adjacency
// in both directions, a deterministic topological order, and precomputed
// source/sink sets.
type Graph struct {
	Nodes map[string]Node

	// Children/Parents are adjacency lists, each kept sorted by id so that
	// iteration order never depends on map or slice insertion order.
	Children map[string][]string
	Parents  map[string][]string

	// Order is the deterministic topological order produced by Kahn's
	// algorithm: within a layer, nodes are ordered by (in_degree, id), so two
	// manifests with the same node set and edges always produce the same
	// order.
	Order []string

	// Sources are nodes with no incoming edges; Sinks are nodes with no
	// outgoing edges.
	Sources []string
	Sinks   []string
}

// CycleError is returned by BuildGraph when the connections contain a cycle.
// Cycle holds one minimal (shortest) cycle found, as a sequence of node ids
// starting and ending at the same id, for actionable diagnostics.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("manifest graph contains a cycle: %v", e.Cycle)
}

// BuildGraph constructs the executable Graph from a parsed Manifest. It
// performs Kahn's algorithm over the node/connection set; if the graph is
// not a DAG it returns a *CycleError carrying the shortest cycle found.
func BuildGraph(m Manifest) (Graph, error) {
	g := Graph{
		Nodes:    make(map[string]Node, len(m.Nodes)),
		Children: make(map[string][]string, len(m.Nodes)),
		Parents:  make(map[string][]string, len(m.Nodes)),
	}
	for _, n := range m.Nodes {
		g.Nodes[n.ID] = n
		if g.Children[n.ID] == nil {
			g.Children[n.ID] = []string{}
		}
		if g.Parents[n.ID] == nil {
			g.Parents[n.ID] = []string{}
		}
	}
	for _, c := range m.Connections {
		g.Children[c.From] = append(g.Children[c.From], c.To)
		g.Parents[c.To] = append(g.Parents[c.To], c.From)
	}
	for id := range g.Children {
		sort.Strings(g.Children[id])
	}
	for id := range g.Parents {
		sort.Strings(g.Parents[id])
	}

	order, err := kahnOrder(g)
	if err != nil {
		cycle := shortestCycle(g)
		return Graph{}, &CycleError{Cycle: cycle}
	}
	g.Order = order

	for id := range g.Nodes {
		if len(g.Parents[id]) == 0 {
			g.Sources = append(g.Sources, id)
		}
		if len(g.Children[id]) == 0 {
			g.Sinks = append(g.Sinks, id)
		}
	}
	sort.Strings(g.Sources)
	sort.Strings(g.Sinks)

	return g, nil
}

// kahnOrder runs Kahn's algorithm with deterministic (in_degree, id)
// tie-breaking within each ready layer: at every step the ready set (nodes
// whose in-degree has dropped to zero) is sorted lexicographically by id
// before being peeled off, so two structurally-equal manifests always yield
// the same order regardless of map iteration order.
func kahnOrder(g Graph) ([]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		inDegree[id] = len(g.Parents[id])
	}

	var ready []string
	for id, d := range inDegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var newlyReady []string
		for _, child := range g.Children[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				newlyReady = append(newlyReady, child)
			}
		}
		sort.Strings(newlyReady)
		ready = append(ready, newlyReady...)
	}

	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("cycle detected: processed %d of %d nodes", len(order), len(g.Nodes))
	}
	return order, nil
}

// shortestCycle runs a BFS from every node that Kahn's algorithm could not
// retire, returning the shortest directed cycle reachable from the
// remaining subgraph. Used only on the error path, so simplicity is
// preferred over asymptotic optimality.
func shortestCycle(g Graph) []string {
	inDegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		inDegree[id] = len(g.Parents[id])
	}
	var ready []string
	for id, d := range inDegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		delete(inDegree, id)
		var newlyReady []string
		for _, child := range g.Children[id] {
			if _, ok := inDegree[child]; !ok {
				continue
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				newlyReady = append(newlyReady, child)
			}
		}
		ready = append(ready, newlyReady...)
	}

	remaining := make([]string, 0, len(inDegree))
	for id := range inDegree {
		remaining = append(remaining, id)
	}
	sort.Strings(remaining)
	if len(remaining) == 0 {
		return nil
	}

	remainingSet := make(map[string]struct{}, len(remaining))
	for _, id := range remaining {
		remainingSet[id] = struct{}{}
	}

	var best []string
	for _, start := range remaining {
		cycle := bfsShortestCycleFrom(g, start, remainingSet)
		if cycle == nil {
			continue
		}
		if best == nil || len(cycle) < len(best) {
			best = cycle
		}
	}
	return best
}

// bfsShortestCycleFrom finds the shortest cycle through start using BFS over
// predecessor links, restricted to the still-cyclic node set.
func bfsShortestCycleFrom(g Graph, start string, within map[string]struct{}) []string {
	type step struct {
		id   string
		path []string
	}
	visited := map[string]bool{start: true}
	queue := []step{{id: start, path: []string{start}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, child := range g.Children[cur.id] {
			if _, ok := within[child]; !ok {
				continue
			}
			if child == start {
				return append(append([]string(nil), cur.path...), start)
			}
			if visited[child] {
				continue
			}
			visited[child] = true
			nextPath := append(append([]string(nil), cur.path...), child)
			queue = append(queue, step{id: child, path: nextPath})
		}
	}
	return nil
}

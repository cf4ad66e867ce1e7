// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traversal

import (
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
)

// Predecessor is the previous hop on a shortest path.
//
// The source of a query has a Predecessor with Valid == false. Nodes that
// were not reached have no entry at all.
type Predecessor struct {
	Node  graph.NodeID `json:"node"`
	Valid bool         `json:"valid"`
}

// RecursionStats describes the work done by BMSSP. Zero for Dijkstra runs.
type RecursionStats struct {
	// Levels is the number of recursive levels entered below the entry call.
	Levels int `json:"levels"`

	// BaseCases counts invocations that fell through to per-source Dijkstra.
	BaseCases int `json:"base_cases"`

	// PivotsSampled is the total number of pivots recursed on.
	PivotsSampled int `json:"pivots_sampled"`
}

// PathResult holds the outcome of one shortest-path query.
//
// Description:
//
//	Distances contains only nodes reached within the bound; a missing key
//	means unreached, never infinity. Predecessors has an entry for every
//	key in Distances. The result holds no reference to the graph and is
//	owned by the caller.
//
// Thread Safety:
//
//	Safe for concurrent reads. Not safe for concurrent modification.
type PathResult struct {
	Source   graph.NodeID       `json:"source"`
	Bound    float32            `json:"bound"`
	Strategy heuristic.Strategy `json:"strategy"`

	Distances    map[graph.NodeID]float32     `json:"distances"`
	Predecessors map[graph.NodeID]Predecessor `json:"predecessors"`

	// VerticesProcessed counts label-setting extractions plus relaxation
	// scans performed while warming frontiers.
	VerticesProcessed uint32 `json:"vertices_processed"`

	ComputationTime time.Duration `json:"computation_time_ns"`

	Recursion RecursionStats `json:"recursion"`
}

func newPathResult(source graph.NodeID, bound float32, strategy heuristic.Strategy, labels map[graph.NodeID]label) *PathResult {
	r := &PathResult{
		Source:       source,
		Bound:        bound,
		Strategy:     strategy,
		Distances:    make(map[graph.NodeID]float32, len(labels)),
		Predecessors: make(map[graph.NodeID]Predecessor, len(labels)),
	}
	for node, l := range labels {
		r.Distances[node] = l.dist
		r.Predecessors[node] = l.pred
	}
	return r
}

// Distance returns the shortest distance to node and whether it was reached.
func (r *PathResult) Distance(node graph.NodeID) (float32, bool) {
	d, ok := r.Distances[node]
	return d, ok
}

// Reached reports whether node is within the bound.
func (r *PathResult) Reached(node graph.NodeID) bool {
	_, ok := r.Distances[node]
	return ok
}

// PredecessorOf returns the predecessor entry for node.
func (r *PathResult) PredecessorOf(node graph.NodeID) (Predecessor, bool) {
	p, ok := r.Predecessors[node]
	return p, ok
}

// Len returns the number of reached nodes, the source included.
func (r *PathResult) Len() int {
	return len(r.Distances)
}

// PathTo reconstructs the path from the source to node, both inclusive.
//
// Outputs:
//
//	[]graph.NodeID - Source first, node last.
//	error - ErrUnreached if node is absent from the result.
func (r *PathResult) PathTo(node graph.NodeID) ([]graph.NodeID, error) {
	if !r.Reached(node) {
		return nil, fmt.Errorf("%w: %d", ErrUnreached, node)
	}

	path := []graph.NodeID{node}
	cur := node
	for steps := 0; ; steps++ {
		// A chain longer than the result can only come from a cycle.
		if steps > len(r.Predecessors) {
			return nil, fmt.Errorf("predecessor cycle through node %d", cur)
		}
		p, ok := r.Predecessors[cur]
		if !ok || !p.Valid {
			break
		}
		cur = p.Node
		path = append(path, cur)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Nodes returns reached nodes ordered by distance, then by id.
func (r *PathResult) Nodes() []graph.NodeID {
	nodes := make([]graph.NodeID, 0, len(r.Distances))
	for n := range r.Distances {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		di, dj := r.Distances[nodes[i]], r.Distances[nodes[j]]
		if di != dj {
			return di < dj
		}
		return nodes[i] < nodes[j]
	})
	return nodes
}

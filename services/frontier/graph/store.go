// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
)

// Store is the adjacency-list graph used for traversal.
//
// Thread Safety:
//
//	Store is NOT safe for concurrent use while AddEdge may run. Reads
//	(Neighbors, HasNode, counts, Stats) are safe from multiple goroutines
//	once mutation has stopped.
type Store struct {
	// adjacency maps every known node to its outgoing edges, in insertion
	// order. A node with no outgoing edges maps to an empty slice.
	adjacency map[NodeID][]Edge

	// edgeCount is the running total of inserted edges, multi-edges included.
	edgeCount int

	// params are recomputed whenever the node count changes.
	params heuristic.Parameters

	options StoreOptions
}

// NewStore creates an empty store.
//
// Example:
//
//	s := NewStore()
//	s := NewStore(WithMaxNodes(100_000), WithWeightAssertions())
func NewStore(opts ...StoreOption) *Store {
	options := DefaultStoreOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Store{
		adjacency: make(map[NodeID][]Edge),
		params:    heuristic.ComputeParameters(0),
		options:   options,
	}
}

// AddEdge inserts a directed edge.
//
// Description:
//
//	Appends the edge to from's outgoing list and registers both endpoints,
//	creating an empty outgoing list for to if it is new. Duplicate edges
//	are kept; both take part in relaxation. Parameters are recomputed when
//	the node count changes.
//
// Inputs:
//
//	from - Source node.
//	to - Target node. May equal from (self-loop).
//	weight - Non-negative cost. Not validated unless WithWeightAssertions.
//
// Outputs:
//
//	error - ErrAllocation if the insertion would exceed configured node or
//	  edge capacity. The store is unchanged in that case.
func (s *Store) AddEdge(from, to NodeID, weight float32) error {
	if s.options.AssertWeights && !(weight >= 0) {
		panic(fmt.Sprintf("graph: edge %d->%d has invalid weight %v", from, to, weight))
	}

	if s.edgeCount >= s.options.MaxEdges {
		return fmt.Errorf("%w: edge capacity %d reached", ErrAllocation, s.options.MaxEdges)
	}

	newNodes := 0
	if _, ok := s.adjacency[from]; !ok {
		newNodes++
	}
	if _, ok := s.adjacency[to]; !ok && to != from {
		newNodes++
	}
	if len(s.adjacency)+newNodes > s.options.MaxNodes {
		return fmt.Errorf("%w: node capacity %d reached", ErrAllocation, s.options.MaxNodes)
	}

	s.adjacency[from] = append(s.adjacency[from], Edge{From: from, To: to, Weight: weight})
	if _, ok := s.adjacency[to]; !ok {
		s.adjacency[to] = []Edge{}
	}
	s.edgeCount++

	if newNodes > 0 {
		s.params = heuristic.ComputeParameters(len(s.adjacency))
	}
	return nil
}

// Neighbors returns the outgoing edges of node in insertion order.
//
// Description:
//
//	Returns an empty slice for a known node with no outgoing edges and
//	ErrUnknownNode for a node never inserted. The returned slice shares
//	storage with the store and must be treated as read-only; its capacity
//	is clipped so an append by the caller cannot corrupt the store.
func (s *Store) Neighbors(node NodeID) ([]Edge, error) {
	edges, ok := s.adjacency[node]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	return edges[:len(edges):len(edges)], nil
}

// HasNode reports whether node was registered by any AddEdge call.
func (s *Store) HasNode(node NodeID) bool {
	_, ok := s.adjacency[node]
	return ok
}

// NodeCount returns the number of known nodes.
func (s *Store) NodeCount() int {
	return len(s.adjacency)
}

// EdgeCount returns the number of inserted edges, multi-edges included.
func (s *Store) EdgeCount() int {
	return s.edgeCount
}

// Parameters returns the k/t parameters for the current node count.
func (s *Store) Parameters() heuristic.Parameters {
	return s.params
}

// Nodes returns all known node ids in ascending order.
func (s *Store) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(s.adjacency))
	for id := range s.adjacency {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Stats returns counts, parameters and the cost-model verdict.
//
// Read-only with no side effects. AvgDegree is the mean out-degree
// (edges / nodes), 0 for an empty store.
func (s *Store) Stats() Stats {
	nodes := len(s.adjacency)
	st := Stats{
		Nodes:        nodes,
		Edges:        s.edgeCount,
		K:            s.params.K,
		T:            s.params.T,
		ShouldUseFRE: heuristic.ShouldUseFRE(nodes, s.edgeCount),
	}
	if nodes > 0 {
		st.AvgDegree = float64(s.edgeCount) / float64(nodes)
	}
	return st
}

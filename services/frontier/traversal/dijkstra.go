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
	"math"
	"sort"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
)

// GraphView is the read-only graph surface traversal needs.
//
// *graph.Store satisfies it.
type GraphView interface {
	Neighbors(node graph.NodeID) ([]graph.Edge, error)
	HasNode(node graph.NodeID) bool
	NodeCount() int
	EdgeCount() int
}

// label is a tentative distance plus the hop that produced it.
type label struct {
	dist float32
	pred Predecessor
}

// seed is a starting label for a (possibly multi-source) search.
type seed struct {
	node graph.NodeID
	label
}

// validateQuery checks the arguments shared by every entry point.
func validateQuery(view GraphView, source graph.NodeID, bound float32) error {
	if math.IsNaN(float64(bound)) || bound < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBound, bound)
	}
	if !view.HasNode(source) {
		return fmt.Errorf("%w: source %d", graph.ErrUnknownNode, source)
	}
	return nil
}

// boundedDijkstra runs label-setting search from seeds, never labelling a
// node beyond bound.
//
// Description:
//
//	Seeds with dist > bound are ignored. When several seeds name the same
//	node the smallest distance wins. A node is relaxed from only on strict
//	improvement, so a self-loop or zero-weight cycle never replaces an
//	existing predecessor.
//
// Outputs:
//
//	map[graph.NodeID]label - Final labels of every reached node.
//	int - Number of extractions (settled nodes).
//	error - Non-nil only if the view fails a neighbor lookup.
func boundedDijkstra(view GraphView, seeds []seed, bound float32) (map[graph.NodeID]label, int, error) {
	labels := make(map[graph.NodeID]label, len(seeds))
	settled := make(map[graph.NodeID]struct{}, len(seeds))
	h := &distHeap{items: make([]heapItem, 0, len(seeds))}

	for _, s := range seeds {
		if s.dist > bound {
			continue
		}
		if cur, ok := labels[s.node]; ok && cur.dist <= s.dist {
			continue
		}
		labels[s.node] = s.label
		h.Push(s.node, s.dist)
	}

	processed := 0
	for h.Len() > 0 {
		item := h.Pop()
		if _, done := settled[item.node]; done {
			continue
		}
		if item.dist > labels[item.node].dist {
			continue
		}
		settled[item.node] = struct{}{}
		processed++

		edges, err := view.Neighbors(item.node)
		if err != nil {
			return nil, processed, err
		}
		for _, e := range edges {
			if _, done := settled[e.To]; done {
				continue
			}
			nd := item.dist + e.Weight
			if nd > bound {
				continue
			}
			if cur, ok := labels[e.To]; ok && cur.dist <= nd {
				continue
			}
			labels[e.To] = label{dist: nd, pred: Predecessor{Node: item.node, Valid: true}}
			h.Push(e.To, nd)
		}
	}
	return labels, processed, nil
}

// sortSeeds orders seeds by node id so map-derived inputs run identically.
func sortSeeds(seeds []seed) {
	sort.Slice(seeds, func(i, j int) bool { return seeds[i].node < seeds[j].node })
}

// Dijkstra is the classical bounded single-source shortest-path engine.
//
// Thread Safety:
//
//	Safe for concurrent use while the graph is not being mutated.
type Dijkstra struct {
	view GraphView
}

// NewDijkstra creates a Dijkstra engine over view.
func NewDijkstra(view GraphView) (*Dijkstra, error) {
	if view == nil {
		return nil, ErrNilGraph
	}
	return &Dijkstra{view: view}, nil
}

// ShortestPaths computes exact distances from source to every node within
// bound.
//
// Description:
//
//	Uses a binary heap keyed by (distance, node id). Nodes at exactly the
//	bound are included; nodes strictly beyond it are absent from the
//	result. A bound of +Inf explores everything reachable.
//
// Inputs:
//
//	source - Start node. Must exist in the graph.
//	bound - Non-negative search radius.
//
// Outputs:
//
//	*PathResult - Distances, predecessors and counters. Nil on error.
//	error - ErrInvalidBound, or graph.ErrUnknownNode for an unknown source.
//
// Example:
//
//	d, _ := NewDijkstra(store)
//	res, err := d.ShortestPaths(0, 10)
//	dist, ok := res.Distance(4)
func (d *Dijkstra) ShortestPaths(source graph.NodeID, bound float32) (*PathResult, error) {
	if err := validateQuery(d.view, source, bound); err != nil {
		return nil, err
	}

	start := time.Now()
	labels, processed, err := boundedDijkstra(d.view, []seed{{node: source}}, bound)
	if err != nil {
		return nil, err
	}

	res := newPathResult(source, bound, heuristic.StrategyDijkstra, labels)
	res.VerticesProcessed = saturateUint32(processed)
	res.ComputationTime = time.Since(start)
	return res, nil
}

func saturateUint32(n int) uint32 {
	if uint64(n) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

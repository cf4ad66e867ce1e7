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
	"math/rand/v2"
	"sort"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
)

// BMSSP is the bounded multi-source shortest-path engine behind FRE.
//
// Description:
//
//	A query starts from a frontier made of the source and its direct
//	successors. Each recursion level warms the frontier with k rounds of
//	bounded relaxation, samples up to min(t, MaxPivots) pivots, recurses
//	on them with the bound scaled by BoundShrink, then settles the level
//	with a Dijkstra pass seeded by every label found so far. A level with
//	at most k live sources, or at depth zero, runs Dijkstra from each
//	source and keeps the minimum distance per node.
//
//	Recursive levels only ever supply upper bounds that correspond to real
//	paths; the settling pass at the top level includes the source at
//	distance zero, so returned distances equal Dijkstra's.
//
// Thread Safety:
//
//	Safe for concurrent use while the graph is not being mutated. Each
//	query draws from its own generator seeded with (Config.Seed, source),
//	so results are reproducible regardless of call order.
type BMSSP struct {
	view GraphView
	cfg  Config
}

// NewBMSSP creates a BMSSP engine over view.
func NewBMSSP(view GraphView, opts ...Option) (*BMSSP, error) {
	if view == nil {
		return nil, ErrNilGraph
	}
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BMSSP{view: view, cfg: cfg}, nil
}

// bmsspRun holds the owned state of one query.
type bmsspRun struct {
	view      GraphView
	cfg       Config
	k         int
	t         int
	rng       *rand.Rand
	processed int
	stats     RecursionStats
}

// SingleSourceShortestPaths computes distances from source within bound.
//
// Inputs:
//
//	source - Start node. Must exist in the graph.
//	bound - Non-negative search radius; +Inf is allowed.
//
// Outputs:
//
//	*PathResult - Same distances Dijkstra would return. Nil on error.
//	error - ErrInvalidBound, graph.ErrUnknownNode, or a neighbor lookup
//	  failure. No partial result is returned.
func (b *BMSSP) SingleSourceShortestPaths(source graph.NodeID, bound float32) (*PathResult, error) {
	if err := validateQuery(b.view, source, bound); err != nil {
		return nil, err
	}

	start := time.Now()
	params := heuristic.ComputeParameters(b.view.NodeCount())
	run := &bmsspRun{
		view: b.view,
		cfg:  b.cfg,
		k:    int(params.K),
		t:    int(params.T),
		rng:  rand.New(rand.NewPCG(b.cfg.Seed, uint64(source))),
	}

	frontier, err := run.initialFrontier(source, bound)
	if err != nil {
		return nil, err
	}
	labels, err := run.recurse(frontier, bound, b.cfg.MaxDepth)
	if err != nil {
		return nil, err
	}

	res := newPathResult(source, bound, heuristic.StrategyFRE, labels)
	res.VerticesProcessed = saturateUint32(run.processed)
	res.ComputationTime = time.Since(start)
	res.Recursion = run.stats
	return res, nil
}

// initialFrontier is the source plus each direct successor within bound.
func (r *bmsspRun) initialFrontier(source graph.NodeID, bound float32) ([]seed, error) {
	edges, err := r.view.Neighbors(source)
	if err != nil {
		return nil, err
	}
	r.processed++

	best := map[graph.NodeID]label{source: {}}
	for _, e := range edges {
		if e.To == source || e.Weight > bound {
			continue
		}
		if cur, ok := best[e.To]; ok && cur.dist <= e.Weight {
			continue
		}
		best[e.To] = label{dist: e.Weight, pred: Predecessor{Node: source, Valid: true}}
	}
	return seedsFrom(best), nil
}

// recurse returns labels for everything reachable from frontier within
// bound. Entries beyond bound are dropped first; an empty frontier is an
// empty contribution.
func (r *bmsspRun) recurse(frontier []seed, bound float32, depth int) (map[graph.NodeID]label, error) {
	live := make([]seed, 0, len(frontier))
	for _, s := range frontier {
		if s.dist <= bound {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return map[graph.NodeID]label{}, nil
	}

	if depth == 0 || len(live) <= r.k {
		return r.baseCase(live, bound)
	}
	r.stats.Levels++

	scan, err := findPivots(r.view, live, bound, r.k)
	if err != nil {
		return nil, err
	}
	r.processed += scan.scanned

	limit := min(r.t, r.cfg.MaxPivots)
	pivots := samplePivots(scan.pivots, limit, r.rng)
	r.stats.PivotsSampled += len(pivots)

	next := make([]seed, 0, len(pivots))
	for _, p := range pivots {
		next = append(next, seed{node: p, label: scan.warm[p]})
	}
	sub, err := r.recurse(next, bound*r.cfg.BoundShrink, depth-1)
	if err != nil {
		return nil, err
	}

	for node, l := range sub {
		if cur, ok := scan.warm[node]; !ok || l.dist < cur.dist {
			scan.warm[node] = l
		}
	}
	labels, processed, err := boundedDijkstra(r.view, seedsFrom(scan.warm), bound)
	if err != nil {
		return nil, err
	}
	r.processed += processed
	return labels, nil
}

// baseCase runs Dijkstra from each source independently and merges with
// minimum-distance-wins.
//
// Sources run closest first, origins (no predecessor) before derived
// labels, so on equal distance the earlier run keeps the node. This keeps
// the query source its own root and every predecessor chain acyclic.
func (r *bmsspRun) baseCase(sources []seed, bound float32) (map[graph.NodeID]label, error) {
	r.stats.BaseCases++

	ordered := make([]seed, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.pred.Valid != b.pred.Valid {
			return !a.pred.Valid
		}
		return a.node < b.node
	})

	merged := make(map[graph.NodeID]label)
	for _, s := range ordered {
		labels, processed, err := boundedDijkstra(r.view, []seed{s}, bound)
		if err != nil {
			return nil, err
		}
		r.processed += processed

		for node, l := range labels {
			if cur, ok := merged[node]; !ok || l.dist < cur.dist {
				merged[node] = l
			}
		}
	}
	return merged, nil
}

// seedsFrom flattens a label map into seeds ascending by node id.
func seedsFrom(labels map[graph.NodeID]label) []seed {
	seeds := make([]seed, 0, len(labels))
	for node, l := range labels {
		seeds = append(seeds, seed{node: node, label: l})
	}
	sortSeeds(seeds)
	return seeds
}

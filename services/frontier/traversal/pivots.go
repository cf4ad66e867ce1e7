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

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
)

// pivotScan is the outcome of warming a frontier.
type pivotScan struct {
	// warm holds every label discovered, frontier entries included.
	warm map[graph.NodeID]label

	// pivots are the frontier nodes worth recursing on, ascending by id.
	pivots []graph.NodeID

	// scanned counts nodes whose edges were relaxed.
	scanned int
}

// findPivots runs k rounds of bounded Bellman-Ford relaxation from frontier.
//
// Description:
//
//	Each round relaxes the edges of nodes improved in the previous round.
//	Every discovered node is attributed to the frontier root whose tree it
//	was reached through. If the warmed set grows beyond k·|frontier| the
//	frontier is too spread out to reduce and every frontier node is a
//	pivot. Otherwise pivots are the roots whose trees hold at least k
//	nodes; if none qualify the full frontier is used.
//
// Inputs:
//
//	frontier - Live entries, all within bound, ascending by node id.
//	bound - Inclusive distance limit.
//	k - Relaxation rounds and tree-size threshold. Must be >= 1.
func findPivots(view GraphView, frontier []seed, bound float32, k int) (pivotScan, error) {
	warm := make(map[graph.NodeID]label, len(frontier)*(k+1))
	root := make(map[graph.NodeID]graph.NodeID, len(frontier)*(k+1))
	roots := make([]graph.NodeID, 0, len(frontier))

	for _, s := range frontier {
		warm[s.node] = s.label
		root[s.node] = s.node
		roots = append(roots, s.node)
	}

	scan := pivotScan{warm: warm}
	layer := roots
	limit := k * len(frontier)

	for round := 0; round < k && len(layer) > 0; round++ {
		improved := make(map[graph.NodeID]struct{})
		for _, u := range layer {
			du := warm[u].dist
			edges, err := view.Neighbors(u)
			if err != nil {
				return pivotScan{}, err
			}
			scan.scanned++

			for _, e := range edges {
				nd := du + e.Weight
				if nd > bound {
					continue
				}
				if cur, ok := warm[e.To]; ok && cur.dist <= nd {
					continue
				}
				warm[e.To] = label{dist: nd, pred: Predecessor{Node: u, Valid: true}}
				root[e.To] = root[u]
				improved[e.To] = struct{}{}
			}
		}

		if len(warm) > limit {
			scan.pivots = roots
			return scan, nil
		}
		layer = sortedKeys(improved)
	}

	treeSize := make(map[graph.NodeID]int, len(roots))
	for _, r := range root {
		treeSize[r]++
	}
	for _, r := range roots {
		if treeSize[r] >= k {
			scan.pivots = append(scan.pivots, r)
		}
	}
	if len(scan.pivots) == 0 {
		scan.pivots = roots
	}
	return scan, nil
}

// samplePivots picks up to limit pivots uniformly without replacement.
//
// The input must be sorted; the output is sorted too, so only membership
// depends on rng.
func samplePivots(pivots []graph.NodeID, limit int, rng *rand.Rand) []graph.NodeID {
	if len(pivots) <= limit {
		return pivots
	}

	picked := make([]graph.NodeID, len(pivots))
	copy(picked, pivots)
	// Partial Fisher-Yates: the first limit slots end up a uniform sample.
	for i := 0; i < limit; i++ {
		j := i + rng.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	picked = picked[:limit]
	sort.Slice(picked, func(i, j int) bool { return picked[i] < picked[j] })
	return picked
}

func sortedKeys[V any](m map[graph.NodeID]V) []graph.NodeID {
	keys := make([]graph.NodeID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package heuristic derives traversal parameters and chooses between the
// frontier-reduction engine and Dijkstra from the current graph shape.
//
// Everything in this package is a pure function of node and edge counts.
// There is no state, no locking and no allocation, so it is safe to call
// from any goroutine and cheap enough to call after every edge insertion.
//
// # Parameters
//
// For a graph with n nodes and L = log2(n):
//
//	k = max(1, floor(L^(1/3)))
//	t = max(1, floor(L^(2/3)))
//
// k bounds the base-case frontier size and the number of relaxation rounds
// used when locating pivots. t bounds the number of pivots per level.
//
// # Cost Model
//
//	FRE      = m * L^(2/3)
//	Dijkstra = m + n * L
//
// The model ignores constant factors, which dominate below roughly a hundred
// nodes. SelectStrategy therefore applies a node-count floor before
// consulting the model.
package heuristic

import "math"

// Parameters holds the recursion parameters derived from the node count.
type Parameters struct {
	// K is the base-case frontier size and the number of bounded relaxation
	// rounds used to find pivots. Always >= 1.
	K uint32 `json:"k"`

	// T caps the number of pivots sampled per recursion level. Always >= 1.
	T uint32 `json:"t"`
}

// ComputeParameters derives k and t from the node count.
//
// Description:
//
//	For n <= 1 both parameters are 1. Otherwise k = floor(log2(n)^(1/3))
//	and t = floor(log2(n)^(2/3)), each clamped to a minimum of 1.
//
//	t is computed as the square of the cube root rather than through
//	math.Pow so that exact cubes (log2(n) = 8, 27, ...) floor to the
//	mathematically exact integer.
//
// Inputs:
//
//	nodeCount - Number of nodes currently in the graph.
//
// Outputs:
//
//	Parameters - The derived parameters. Never zero-valued.
func ComputeParameters(nodeCount int) Parameters {
	if nodeCount <= 1 {
		return Parameters{K: 1, T: 1}
	}

	cube := math.Cbrt(math.Log2(float64(nodeCount)))

	return Parameters{
		K: clampMinOne(math.Floor(cube)),
		T: clampMinOne(math.Floor(cube * cube)),
	}
}

func clampMinOne(v float64) uint32 {
	if v < 1 {
		return 1
	}
	return uint32(v)
}

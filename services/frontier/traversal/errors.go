// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package traversal computes bounded single-source shortest paths over a
// graph.Store.
//
// Two algorithms are provided. Dijkstra is the classical label-setting
// search. BMSSP is the frontier-reduction procedure (FRE): it warms a
// frontier with k rounds of bounded relaxation, samples pivots from it,
// recurses on the pivots with a shrunken bound and finishes each level
// with a seeded Dijkstra pass. Both return identical distances for the
// same (source, bound).
//
// Engine picks between them once per query using the density heuristic in
// package heuristic.
//
// # Thread Safety
//
// All types here are safe for concurrent queries provided the underlying
// GraphView is not mutated while a query is running. Nothing in this
// package locks the graph.
package traversal

import "errors"

// Sentinel errors for traversal operations.
var (
	// ErrInvalidBound is returned when the distance bound is NaN or negative.
	ErrInvalidBound = errors.New("invalid distance bound")

	// ErrNilGraph is returned when an engine is constructed without a graph.
	ErrNilGraph = errors.New("graph must not be nil")

	// ErrInvalidConfig is returned when engine tuning values are out of range.
	ErrInvalidConfig = errors.New("invalid traversal config")

	// ErrUnreached is returned by PathTo for a node absent from the result.
	ErrUnreached = errors.New("node not reached within bound")
)

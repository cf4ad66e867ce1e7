// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the adjacency-list store used by shortest-path
// traversal.
//
// The store maps each NodeID to its outgoing edges in insertion order.
// Nodes come into existence only through AddEdge: both endpoints of every
// inserted edge are registered, so "isolated but known" is distinguishable
// from "never seen".
//
// # Thread Safety
//
// Store is NOT safe for concurrent mutation. Concurrent reads are safe as
// long as no AddEdge call is in flight. The owning database layer
// serializes insertion against traversal.
//
// # Lifecycle
//
//  1. Create with NewStore()
//  2. Insert with AddEdge() as relationships are discovered
//  3. Query with Neighbors(), Stats(), or hand the store to a traversal engine
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrUnknownNode is returned when a lookup references a node id that was
	// never inserted through AddEdge.
	ErrUnknownNode = errors.New("unknown node")

	// ErrAllocation is returned when an insertion cannot be satisfied
	// because the store has reached its configured node or edge capacity.
	// The store is left unchanged.
	ErrAllocation = errors.New("allocation failure")
)

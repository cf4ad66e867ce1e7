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

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a store can hold.
	DefaultMaxNodes = 10_000_000

	// DefaultMaxEdges is the default maximum number of edges a store can hold.
	DefaultMaxEdges = 100_000_000
)

// NodeID identifies a node. Ids are dense but not necessarily contiguous.
type NodeID uint32

// Edge is a directed, weighted relationship.
//
// Weight must be non-negative. Negative weights are an invariant violation,
// not a runtime error: the store never rewrites them and traversal results
// for such graphs are unspecified.
type Edge struct {
	// From is the source node.
	From NodeID `json:"from"`

	// To is the target node.
	To NodeID `json:"to"`

	// Weight is the traversal cost of the edge.
	Weight float32 `json:"weight"`
}

// Stats is a read-only snapshot of store shape and derived parameters.
type Stats struct {
	Nodes        int     `json:"nodes"`
	Edges        int     `json:"edges"`
	K            uint32  `json:"k"`
	T            uint32  `json:"t"`
	AvgDegree    float64 `json:"avg_degree"`
	ShouldUseFRE bool    `json:"should_use_fre"`
}

// StoreOptions configures Store limits and assertions.
type StoreOptions struct {
	// MaxNodes is the maximum number of nodes the store can hold.
	// Default: 10,000,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the store can hold.
	// Default: 100,000,000
	MaxEdges int

	// AssertWeights panics on negative or NaN weights at insertion.
	// Default: false
	AssertWeights bool
}

// DefaultStoreOptions returns sensible defaults for store configuration.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// StoreOption is a functional option for configuring Store.
type StoreOption func(*StoreOptions)

// WithMaxNodes sets the maximum number of nodes the store can hold.
func WithMaxNodes(n int) StoreOption {
	return func(o *StoreOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the store can hold.
func WithMaxEdges(n int) StoreOption {
	return func(o *StoreOptions) {
		o.MaxEdges = n
	}
}

// WithWeightAssertions enables a debug assertion on edge weights.
//
// With assertions on, AddEdge panics when given a negative or NaN weight.
// Without them the weight is stored as given.
func WithWeightAssertions() StoreOption {
	return func(o *StoreOptions) {
		o.AssertWeights = true
	}
}

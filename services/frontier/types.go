// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package frontier

import (
	"math"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
	"github.com/AleutianAI/FrontierGraph/services/frontier/traversal"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "1.0.0"

// AddEdgeRequest is the body of POST /v1/frontier/edges.
type AddEdgeRequest struct {
	From   *uint32  `json:"from" binding:"required"`
	To     *uint32  `json:"to" binding:"required"`
	Weight *float32 `json:"weight" binding:"required,gte=0"`
}

// AddRelationRequest is the body of POST /v1/frontier/relations.
type AddRelationRequest struct {
	Source string `json:"source" binding:"required"`
	Target string `json:"target" binding:"required"`

	// Weight defaults to 1.
	Weight *float32 `json:"weight" binding:"omitempty,gte=0"`
}

// AddRelationResponse returns the ids the names resolved to.
type AddRelationResponse struct {
	From graph.NodeID `json:"from"`
	To   graph.NodeID `json:"to"`
}

// ImpactRequest is the body of POST /v1/frontier/impact.
//
// Exactly one of Source and SourceName should be set; Source wins if both
// are. A missing Bound means unbounded.
type ImpactRequest struct {
	Source     *uint32  `json:"source"`
	SourceName string   `json:"source_name"`
	Bound      *float32 `json:"bound"`
	Limit      int      `json:"limit" binding:"gte=0"`
}

// ExpandRequest is the body of POST /v1/frontier/expand.
type ExpandRequest struct {
	Seeds     []uint32 `json:"seeds"`
	SeedNames []string `json:"seed_names"`
	Bound     *float32 `json:"bound"`
}

// NodeDistance is one reached node in a paths response.
type NodeDistance struct {
	Node        graph.NodeID  `json:"node"`
	Name        string        `json:"name,omitempty"`
	Distance    float32       `json:"distance"`
	Predecessor *graph.NodeID `json:"predecessor,omitempty"`
}

// PathsResponse is the body of GET /v1/frontier/paths.
type PathsResponse struct {
	Source graph.NodeID `json:"source"`

	// Bound is omitted for unbounded queries; JSON has no infinity.
	Bound *float32 `json:"bound,omitempty"`

	Strategy          heuristic.Strategy       `json:"strategy"`
	Cached            bool                     `json:"cached"`
	Reached           int                      `json:"reached"`
	VerticesProcessed uint32                   `json:"vertices_processed"`
	ComputationTimeMs float64                  `json:"computation_time_ms"`
	Recursion         traversal.RecursionStats `json:"recursion"`
	Nodes             []NodeDistance           `json:"nodes"`
}

// NewPathsResponse converts a query result, naming nodes through name.
func NewPathsResponse(res *traversal.PathResult, cached bool, name func(graph.NodeID) string) PathsResponse {
	resp := PathsResponse{
		Source:            res.Source,
		Bound:             finiteOrNil(res.Bound),
		Strategy:          res.Strategy,
		Cached:            cached,
		Reached:           res.Len(),
		VerticesProcessed: res.VerticesProcessed,
		ComputationTimeMs: float64(res.ComputationTime.Microseconds()) / 1000,
		Recursion:         res.Recursion,
		Nodes:             make([]NodeDistance, 0, res.Len()),
	}
	for _, node := range res.Nodes() {
		nd := NodeDistance{Node: node, Name: name(node), Distance: res.Distances[node]}
		if p := res.Predecessors[node]; p.Valid {
			pred := p.Node
			nd.Predecessor = &pred
		}
		resp.Nodes = append(resp.Nodes, nd)
	}
	return resp
}

func finiteOrNil(f float32) *float32 {
	if math.IsInf(float64(f), 0) {
		return nil
	}
	return &f
}

func boundOrInf(b *float32) float32 {
	if b == nil {
		return float32(math.Inf(1))
	}
	return *b
}

// HealthResponse is the body of GET /v1/frontier/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the body of GET /v1/frontier/ready.
type ReadyResponse struct {
	Ready bool `json:"ready"`
	Nodes int  `json:"nodes"`
	Edges int  `json:"edges"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`

	// RequestID echoes the X-Request-ID header.
	RequestID string `json:"request_id,omitempty"`
}

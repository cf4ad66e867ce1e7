// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package heuristic

import (
	"fmt"
	"math"
)

// DefaultSmallGraphThreshold is the node count below which queries always
// run Dijkstra, regardless of the cost model.
const DefaultSmallGraphThreshold = 100

// Strategy is the algorithm chosen for a single query.
type Strategy int

const (
	// StrategyDijkstra runs classical bounded Dijkstra from the source.
	StrategyDijkstra Strategy = iota

	// StrategyFRE runs the recursive frontier-reduction engine.
	StrategyFRE
)

// String returns the string representation of the Strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyDijkstra:
		return "dijkstra"
	case StrategyFRE:
		return "fre"
	default:
		return "unknown"
	}
}

// MarshalText encodes the strategy by name for JSON and YAML output.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Strategy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "dijkstra":
		*s = StrategyDijkstra
	case "fre":
		*s = StrategyFRE
	default:
		return fmt.Errorf("unknown strategy %q", text)
	}
	return nil
}

// Reasons recorded on a Decision.
const (
	ReasonTrivialGraph = "trivial_graph"
	ReasonSmallGraph   = "small_graph"
	ReasonCostModel    = "cost_model"
)

// Decision is the outcome of strategy selection for one query.
type Decision struct {
	// Strategy is the selected algorithm.
	Strategy Strategy `json:"strategy"`

	// Reason names the rule that produced the choice.
	Reason string `json:"reason"`

	// FRECost and DijkstraCost are the model estimates at decision time.
	FRECost      float64 `json:"fre_cost"`
	DijkstraCost float64 `json:"dijkstra_cost"`
}

// FRECost returns m * log2(n)^(2/3), or 0 when n <= 1.
func FRECost(nodeCount, edgeCount int) float64 {
	if nodeCount <= 1 {
		return 0
	}
	cube := math.Cbrt(math.Log2(float64(nodeCount)))
	return float64(edgeCount) * cube * cube
}

// DijkstraCost returns m + n * log2(n), or m when n <= 1.
func DijkstraCost(nodeCount, edgeCount int) float64 {
	if nodeCount <= 1 {
		return float64(edgeCount)
	}
	n := float64(nodeCount)
	return float64(edgeCount) + n*math.Log2(n)
}

// ShouldUseFRE reports whether the cost model favors the frontier-reduction
// engine for a graph with the given counts.
//
// Description:
//
//	Returns false when nodeCount <= 1. Otherwise returns
//	FRECost(n, m) < DijkstraCost(n, m) with no further adjustment.
//
// Limitations:
//
//	This is an asymptotic estimate. It does not predict wall-clock time for
//	small graphs; use SelectStrategy for query routing.
func ShouldUseFRE(nodeCount, edgeCount int) bool {
	if nodeCount <= 1 {
		return false
	}
	return FRECost(nodeCount, edgeCount) < DijkstraCost(nodeCount, edgeCount)
}

// CrossoverEdgeCount returns the edge count at which both cost estimates are
// equal for a fixed node count.
//
// Description:
//
//	Solves m * L^(2/3) = m + n * L for m. Returns +Inf when L^(2/3) <= 1
//	(n <= 2), where the FRE estimate never exceeds Dijkstra's.
func CrossoverEdgeCount(nodeCount int) float64 {
	if nodeCount <= 2 {
		return math.Inf(1)
	}
	n := float64(nodeCount)
	logN := math.Log2(n)
	cube := math.Cbrt(logN)
	return n * logN / (cube*cube - 1)
}

// SelectStrategy chooses the algorithm for one query.
//
// Description:
//
//	Applies, in order:
//	  1. nodeCount <= 1: Dijkstra (ReasonTrivialGraph)
//	  2. nodeCount < smallGraphThreshold: Dijkstra (ReasonSmallGraph)
//	  3. ShouldUseFRE: FRE, else Dijkstra (ReasonCostModel)
//
// Inputs:
//
//	nodeCount - Current node count.
//	edgeCount - Current edge count.
//	smallGraphThreshold - Node-count floor. Values <= 0 use
//	  DefaultSmallGraphThreshold.
//
// Outputs:
//
//	Decision - The tagged choice with both cost estimates.
func SelectStrategy(nodeCount, edgeCount, smallGraphThreshold int) Decision {
	if smallGraphThreshold <= 0 {
		smallGraphThreshold = DefaultSmallGraphThreshold
	}

	d := Decision{
		Strategy:     StrategyDijkstra,
		FRECost:      FRECost(nodeCount, edgeCount),
		DijkstraCost: DijkstraCost(nodeCount, edgeCount),
	}

	switch {
	case nodeCount <= 1:
		d.Reason = ReasonTrivialGraph
	case nodeCount < smallGraphThreshold:
		d.Reason = ReasonSmallGraph
	default:
		d.Reason = ReasonCostModel
		if d.FRECost < d.DijkstraCost {
			d.Strategy = StrategyFRE
		}
	}
	return d
}

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
	"context"
	"errors"
	"sync"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for traversal operations.
var (
	tracer = otel.Tracer("frontier.traversal")
	meter  = otel.Meter("frontier.traversal")
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	// strategySelections counts queries by chosen strategy and rule.
	strategySelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontier_strategy_selections_total",
		Help: "Shortest-path queries by selected strategy and reason",
	}, []string{"strategy", "reason"})

	// recursionLevels tracks BMSSP levels entered per FRE query.
	recursionLevels = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frontier_bmssp_recursion_levels",
		Help:    "BMSSP recursion levels entered per query",
		Buckets: []float64{0, 1, 2, 3, 4, 6, 8},
	})

	// pivotsSampled tracks pivots recursed on per FRE query.
	pivotsSampled = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frontier_bmssp_pivots_sampled",
		Help:    "Pivots sampled across all levels per query",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	// queryErrors counts failed queries by error type.
	queryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontier_query_errors_total",
		Help: "Failed shortest-path queries by error type",
	}, []string{"error_type"})
)

// ==============================================================================
// OpenTelemetry Metrics
// ==============================================================================

var (
	queryLatency      metric.Float64Histogram
	verticesProcessed metric.Int64Histogram
	nodesReached      metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		queryLatency, err = meter.Float64Histogram(
			"traversal_query_duration_seconds",
			metric.WithDescription("Duration of shortest-path queries"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		verticesProcessed, err = meter.Int64Histogram(
			"traversal_vertices_processed",
			metric.WithDescription("Vertices processed per shortest-path query"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesReached, err = meter.Int64Histogram(
			"traversal_nodes_reached",
			metric.WithDescription("Nodes reached within bound per query"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordQueryMetrics records metrics for a successful query.
func recordQueryMetrics(ctx context.Context, decision heuristic.Decision, res *PathResult) {
	strategy := decision.Strategy.String()
	strategySelections.WithLabelValues(strategy, decision.Reason).Inc()
	if decision.Strategy == heuristic.StrategyFRE {
		recursionLevels.Observe(float64(res.Recursion.Levels))
		pivotsSampled.Observe(float64(res.Recursion.PivotsSampled))
	}

	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", strategy))
	queryLatency.Record(ctx, res.ComputationTime.Seconds(), attrs)
	verticesProcessed.Record(ctx, int64(res.VerticesProcessed), attrs)
	nodesReached.Record(ctx, int64(res.Len()), attrs)
}

// recordQueryError counts a failed query.
func recordQueryError(_ context.Context, decision heuristic.Decision, err error) {
	strategySelections.WithLabelValues(decision.Strategy.String(), decision.Reason).Inc()
	queryErrors.WithLabelValues(errorType(err)).Inc()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrInvalidBound):
		return "invalid_bound"
	case errors.Is(err, graph.ErrUnknownNode):
		return "unknown_node"
	default:
		return "internal"
	}
}

// startQuerySpan creates a span for a shortest-path query.
func startQuerySpan(ctx context.Context, source graph.NodeID, bound float32, decision heuristic.Decision) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Query",
		trace.WithAttributes(
			attribute.Int64("traversal.source", int64(source)),
			attribute.Float64("traversal.bound", float64(bound)),
			attribute.String("traversal.strategy", decision.Strategy.String()),
			attribute.String("traversal.reason", decision.Reason),
		),
	)
}

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
	"fmt"
	"log/slog"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Default tuning values.
const (
	// DefaultMaxDepth is the recursion depth of a BMSSP query.
	DefaultMaxDepth = 3

	// DefaultBoundShrink scales the bound at each recursion level.
	DefaultBoundShrink = 0.8

	// DefaultMaxPivots caps pivots per level, in addition to t.
	DefaultMaxPivots = 5
)

// Config holds engine tuning values.
//
// BoundShrink and MaxPivots are tuning constants, not correctness
// parameters: any value passing Validate yields exact distances.
type Config struct {
	// SmallGraphThreshold routes graphs with fewer nodes to Dijkstra.
	// Default: 100
	SmallGraphThreshold int

	// MaxDepth bounds BMSSP recursion. Zero means base case only.
	// Default: 3
	MaxDepth int

	// BoundShrink is the per-level bound multiplier, in (0, 1].
	// Default: 0.8
	BoundShrink float32

	// MaxPivots caps pivots sampled per level. Must be >= 1.
	// Default: 5
	MaxPivots int

	// Seed seeds pivot sampling.
	// Default: 0
	Seed uint64
}

// DefaultConfig returns the benchmarked defaults.
func DefaultConfig() Config {
	return Config{
		SmallGraphThreshold: heuristic.DefaultSmallGraphThreshold,
		MaxDepth:            DefaultMaxDepth,
		BoundShrink:         DefaultBoundShrink,
		MaxPivots:           DefaultMaxPivots,
	}
}

// Validate checks that every tuning value is in range.
func (c Config) Validate() error {
	switch {
	case c.SmallGraphThreshold < 0:
		return fmt.Errorf("%w: small graph threshold %d is negative", ErrInvalidConfig, c.SmallGraphThreshold)
	case c.MaxDepth < 0:
		return fmt.Errorf("%w: max depth %d is negative", ErrInvalidConfig, c.MaxDepth)
	case !(c.BoundShrink > 0 && c.BoundShrink <= 1):
		return fmt.Errorf("%w: bound shrink %v outside (0, 1]", ErrInvalidConfig, c.BoundShrink)
	case c.MaxPivots < 1:
		return fmt.Errorf("%w: max pivots %d below 1", ErrInvalidConfig, c.MaxPivots)
	}
	return nil
}

// Option is a functional option for configuring engines.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithSeed sets the pivot sampling seed.
func WithSeed(seed uint64) Option {
	return func(c *Config) {
		c.Seed = seed
	}
}

// WithMaxDepth sets the BMSSP recursion depth.
func WithMaxDepth(depth int) Option {
	return func(c *Config) {
		c.MaxDepth = depth
	}
}

// WithBoundShrink sets the per-level bound multiplier.
func WithBoundShrink(f float32) Option {
	return func(c *Config) {
		c.BoundShrink = f
	}
}

// WithMaxPivots sets the per-level pivot cap.
func WithMaxPivots(n int) Option {
	return func(c *Config) {
		c.MaxPivots = n
	}
}

// WithSmallGraphThreshold sets the node-count floor below which Dijkstra
// is always used.
func WithSmallGraphThreshold(n int) Option {
	return func(c *Config) {
		c.SmallGraphThreshold = n
	}
}

// Engine answers shortest-path queries, choosing Dijkstra or FRE per query.
//
// Description:
//
//	The choice is made once per query from the graph's current node and
//	edge counts (see heuristic.SelectStrategy), logged at debug level and
//	recorded on the span and the strategy counter.
//
// Thread Safety:
//
//	Safe for concurrent queries while the graph is not being mutated. The
//	owning layer must serialize AddEdge against Query.
type Engine struct {
	view     GraphView
	cfg      Config
	dijkstra *Dijkstra
	bmssp    *BMSSP
	logger   *slog.Logger
}

// NewEngine creates an engine over view.
//
// Example:
//
//	store := graph.NewStore()
//	engine, err := traversal.NewEngine(store, traversal.WithSeed(42))
//	res, err := engine.Query(ctx, 0, 10)
func NewEngine(view GraphView, opts ...Option) (*Engine, error) {
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

	return &Engine{
		view:     view,
		cfg:      cfg,
		dijkstra: &Dijkstra{view: view},
		bmssp:    &BMSSP{view: view, cfg: cfg},
		logger:   slog.Default(),
	}, nil
}

// SetLogger replaces the engine logger. Nil restores slog.Default().
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// Config returns the engine's tuning values.
func (e *Engine) Config() Config {
	return e.cfg
}

// Decide returns the strategy a query would use on the graph as it is now.
func (e *Engine) Decide() heuristic.Decision {
	return heuristic.SelectStrategy(e.view.NodeCount(), e.view.EdgeCount(), e.cfg.SmallGraphThreshold)
}

// Query computes shortest paths from source within bound.
//
// Description:
//
//	Selects a strategy, then delegates to Dijkstra or BMSSP. ctx carries
//	tracing only; a query runs to completion once started.
//
// Inputs:
//
//	ctx - Context for tracing.
//	source - Start node. Must exist in the graph.
//	bound - Non-negative search radius; +Inf is allowed.
//
// Outputs:
//
//	*PathResult - Result with Strategy set to the algorithm that ran.
//	error - ErrInvalidBound or graph.ErrUnknownNode. Nil result on error.
func (e *Engine) Query(ctx context.Context, source graph.NodeID, bound float32) (*PathResult, error) {
	decision := e.Decide()

	ctx, span := startQuerySpan(ctx, source, bound, decision)
	defer span.End()

	e.logger.Debug("shortest path strategy selected",
		slog.Uint64("source", uint64(source)),
		slog.Float64("bound", float64(bound)),
		slog.String("strategy", decision.Strategy.String()),
		slog.String("reason", decision.Reason),
		slog.Float64("fre_cost", decision.FRECost),
		slog.Float64("dijkstra_cost", decision.DijkstraCost),
	)

	var (
		res *PathResult
		err error
	)
	switch decision.Strategy {
	case heuristic.StrategyFRE:
		res, err = e.bmssp.SingleSourceShortestPaths(source, bound)
	default:
		res, err = e.dijkstra.ShortestPaths(source, bound)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		recordQueryError(ctx, decision, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("traversal.reached", res.Len()),
		attribute.Int64("traversal.vertices_processed", int64(res.VerticesProcessed)),
		attribute.Int("traversal.recursion_levels", res.Recursion.Levels),
	)
	recordQueryMetrics(ctx, decision, res)
	return res, nil
}

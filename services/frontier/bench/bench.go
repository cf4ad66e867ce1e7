// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bench compares FRE against Dijkstra on generated graphs.
//
// Every case builds a synthetic knowledge graph, queries it from several
// sources with both engines, and fails if any distance differs beyond a
// relative tolerance. Timings and work counters are collected per case.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
	"github.com/AleutianAI/FrontierGraph/services/frontier/ingest"
	"github.com/AleutianAI/FrontierGraph/services/frontier/traversal"
	"golang.org/x/sync/errgroup"
)

// ErrEquivalenceViolation means FRE and Dijkstra disagreed.
var ErrEquivalenceViolation = errors.New("fre and dijkstra results differ")

// DefaultTolerance is the relative distance tolerance used by Verify.
const DefaultTolerance = 1e-4

// Options configures Run.
type Options struct {
	// Sizes are entity counts per case.
	// Default: 100, 1000
	Sizes []int

	// Densities are crossed with Sizes.
	// Default: all three
	Densities []ingest.Density

	// Sources is the number of query sources per case.
	// Default: 5
	Sources int

	// Bound is the search radius. Default: +Inf
	Bound float32

	// Connectivity, when positive, is passed to ingest.EnhanceConnectivity.
	Connectivity float64

	// Seed drives graph generation and source choice.
	Seed uint64

	// Parallelism caps concurrently running cases. Default: GOMAXPROCS.
	Parallelism int

	// Tolerance is the relative distance tolerance. Default: 1e-4.
	Tolerance float64

	// Traversal options apply to the BMSSP engine.
	Traversal []traversal.Option

	// Logger receives per-case progress. Default: slog.Default().
	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if len(o.Sizes) == 0 {
		o.Sizes = []int{100, 1000}
	}
	if len(o.Densities) == 0 {
		o.Densities = ingest.Densities
	}
	if o.Sources <= 0 {
		o.Sources = 5
	}
	if o.Bound == 0 {
		o.Bound = float32(math.Inf(1))
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Case identifies one benchmark configuration.
type Case struct {
	Size    int            `json:"size"`
	Density ingest.Density `json:"density"`
}

func (c Case) String() string {
	return fmt.Sprintf("%d/%s", c.Size, c.Density)
}

// CaseResult is the outcome of one case.
type CaseResult struct {
	Case

	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	// Selected is what the density heuristic would pick for this graph.
	Selected heuristic.Strategy `json:"selected"`

	Queries int `json:"queries"`

	// Reached is the mean number of nodes reached per query.
	Reached float64 `json:"reached"`

	DijkstraTime time.Duration `json:"dijkstra_time_ns"`
	FRETime      time.Duration `json:"fre_time_ns"`

	DijkstraVertices uint64 `json:"dijkstra_vertices"`
	FREVertices      uint64 `json:"fre_vertices"`

	RecursionLevels int `json:"recursion_levels"`
}

// Speedup is Dijkstra time over FRE time. Above 1 means FRE was faster.
func (r CaseResult) Speedup() float64 {
	if r.FRETime <= 0 {
		return 0
	}
	return float64(r.DijkstraTime) / float64(r.FRETime)
}

// Report collects every case in Options order.
type Report struct {
	Cases    []CaseResult  `json:"cases"`
	Duration time.Duration `json:"duration_ns"`
}

// Run executes every size x density case.
//
// Description:
//
//	Cases run concurrently up to Parallelism. The first equivalence
//	violation or context cancellation stops the remaining cases.
//
// Outputs:
//
//	*Report - Results in Sizes-major order. Nil on error.
//	error - ErrEquivalenceViolation, a context error, or a build failure.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts.applyDefaults()

	var cases []Case
	for _, size := range opts.Sizes {
		for _, d := range opts.Densities {
			cases = append(cases, Case{Size: size, Density: d})
		}
	}

	start := time.Now()
	results := make([]CaseResult, len(cases))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i, c := range cases {
		g.Go(func() error {
			res, err := runCase(gCtx, c, opts)
			if err != nil {
				return fmt.Errorf("case %s: %w", c, err)
			}
			results[i] = res
			opts.Logger.Info("bench case complete",
				"case", c.String(),
				"nodes", res.Nodes,
				"edges", res.Edges,
				"selected", res.Selected.String(),
				"speedup", res.Speedup(),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{Cases: results, Duration: time.Since(start)}, nil
}

// BuildGraph generates the document for c and loads it into a new store.
func BuildGraph(c Case, seed uint64, connectivity float64) (*graph.Store, error) {
	doc, err := ingest.Generate(ingest.GenerateOptions{Size: c.Size, Density: c.Density, Seed: seed})
	if err != nil {
		return nil, err
	}
	if connectivity > 0 {
		ingest.EnhanceConnectivity(doc, connectivity, rand.New(rand.NewPCG(seed, 1)))
	}
	store := graph.NewStore()
	if _, err := ingest.Import(doc, ingest.NewInterner(), store); err != nil {
		return nil, err
	}
	return store, nil
}

func runCase(ctx context.Context, c Case, opts Options) (CaseResult, error) {
	store, err := BuildGraph(c, opts.Seed, opts.Connectivity)
	if err != nil {
		return CaseResult{}, err
	}

	dijkstra, err := traversal.NewDijkstra(store)
	if err != nil {
		return CaseResult{}, err
	}
	fre, err := traversal.NewBMSSP(store, opts.Traversal...)
	if err != nil {
		return CaseResult{}, err
	}
	engine, err := traversal.NewEngine(store, opts.Traversal...)
	if err != nil {
		return CaseResult{}, err
	}

	res := CaseResult{
		Case:     c,
		Nodes:    store.NodeCount(),
		Edges:    store.EdgeCount(),
		Selected: engine.Decide().Strategy,
	}

	nodes := store.Nodes()
	rng := rand.New(rand.NewPCG(opts.Seed, uint64(c.Size)))
	reached := 0
	for q := 0; q < opts.Sources; q++ {
		if err := ctx.Err(); err != nil {
			return CaseResult{}, err
		}
		source := nodes[rng.IntN(len(nodes))]

		want, err := dijkstra.ShortestPaths(source, opts.Bound)
		if err != nil {
			return CaseResult{}, err
		}
		got, err := fre.SingleSourceShortestPaths(source, opts.Bound)
		if err != nil {
			return CaseResult{}, err
		}
		if err := Verify(want, got, opts.Tolerance); err != nil {
			return CaseResult{}, err
		}

		res.Queries++
		reached += want.Len()
		res.DijkstraTime += want.ComputationTime
		res.FRETime += got.ComputationTime
		res.DijkstraVertices += uint64(want.VerticesProcessed)
		res.FREVertices += uint64(got.VerticesProcessed)
		res.RecursionLevels += got.Recursion.Levels
	}
	if res.Queries > 0 {
		res.Reached = float64(reached) / float64(res.Queries)
	}
	return res, nil
}

// Verify checks that got reaches exactly the nodes want does, at distances
// within a relative tolerance.
//
// Differences are measured against max(1, |want|, |got|) so that
// near-zero distances are compared absolutely.
func Verify(want, got *traversal.PathResult, tolerance float64) error {
	if want.Len() != got.Len() {
		return fmt.Errorf("%w: source %d: %d nodes reached vs %d",
			ErrEquivalenceViolation, want.Source, want.Len(), got.Len())
	}
	for node, wd := range want.Distances {
		gd, ok := got.Distances[node]
		if !ok {
			return fmt.Errorf("%w: source %d: node %d missing", ErrEquivalenceViolation, want.Source, node)
		}
		a, b := float64(wd), float64(gd)
		scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
		if math.Abs(a-b) > tolerance*scale {
			return fmt.Errorf("%w: source %d: node %d distance %g vs %g",
				ErrEquivalenceViolation, want.Source, node, wd, gd)
		}
	}
	return nil
}

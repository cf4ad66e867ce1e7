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
	"context"
	"fmt"
	"sort"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultImpactLimit caps Impact results when no limit is given.
const DefaultImpactLimit = 100

// Affected is one node reachable from an impact source.
type Affected struct {
	Node     graph.NodeID   `json:"node"`
	Name     string         `json:"name,omitempty"`
	Distance float32        `json:"distance"`
	Path     []graph.NodeID `json:"path"`
}

// ImpactReport lists what a change at Source can reach within Bound.
type ImpactReport struct {
	Source     graph.NodeID       `json:"source"`
	SourceName string             `json:"source_name,omitempty"`
	Strategy   heuristic.Strategy `json:"strategy"`

	// Reached counts every node within the bound, source excluded.
	Reached int `json:"reached"`

	// Affected is the closest Limit nodes, nearest first.
	Affected []Affected `json:"affected"`

	Truncated bool `json:"truncated"`
}

// Impact finds the nodes closest to source within bound.
//
// Description:
//
//	Runs one shortest-path query, orders reached nodes by distance then
//	id, drops the source, keeps the first limit and reconstructs each
//	path from the predecessor map.
//
// Inputs:
//
//	limit - Maximum nodes returned. Zero or negative uses DefaultImpactLimit.
func (d *Database) Impact(ctx context.Context, source graph.NodeID, bound float32, limit int) (*ImpactReport, error) {
	ctx, span := tracer.Start(ctx, "Database.Impact",
		trace.WithAttributes(attribute.Int64("source", int64(source))))
	defer span.End()

	if limit <= 0 {
		limit = DefaultImpactLimit
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}

	res, _, err := d.query(ctx, source, bound)
	if err != nil {
		return nil, err
	}

	report := &ImpactReport{
		Source:     source,
		SourceName: d.Name(source),
		Strategy:   res.Strategy,
		Reached:    res.Len() - 1,
	}
	for _, node := range res.Nodes() {
		if node == source {
			continue
		}
		if len(report.Affected) == limit {
			report.Truncated = true
			break
		}
		path, err := res.PathTo(node)
		if err != nil {
			return nil, fmt.Errorf("impact path to %d: %w", node, err)
		}
		report.Affected = append(report.Affected, Affected{
			Node:     node,
			Name:     d.Name(node),
			Distance: res.Distances[node],
			Path:     path,
		})
	}

	span.SetAttributes(attribute.Int("reached", report.Reached), attribute.Int("returned", len(report.Affected)))
	return report, nil
}

// Expanded is one node reached from a seed set.
type Expanded struct {
	Node     graph.NodeID `json:"node"`
	Name     string       `json:"name,omitempty"`
	Distance float32      `json:"distance"`

	// Seed is the seed closest to Node. Ties go to the earlier seed.
	Seed graph.NodeID `json:"seed"`
}

// Expansion is the result of Expand, nearest nodes first.
type Expansion struct {
	Seeds []graph.NodeID `json:"seeds"`
	Nodes []Expanded     `json:"nodes"`
}

// Expand grows a set of seed nodes, such as hits from a text search, into
// everything within bound of any seed.
//
// Description:
//
//	Queries each seed, keeps the minimum distance per node and attributes
//	the node to the seed achieving it. Seeds are themselves included at
//	distance zero. Duplicate seeds are queried once.
//
// Outputs:
//
//	*Expansion - Nodes ordered by distance then id.
//	error - ErrNoSeeds, or the first failing seed's query error.
func (d *Database) Expand(ctx context.Context, seeds []graph.NodeID, bound float32) (*Expansion, error) {
	ctx, span := tracer.Start(ctx, "Database.Expand",
		trace.WithAttributes(attribute.Int("seeds", len(seeds))))
	defer span.End()

	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}

	best := make(map[graph.NodeID]Expanded)
	seen := make(map[graph.NodeID]struct{}, len(seeds))
	var unique []graph.NodeID
	for _, seed := range seeds {
		if _, dup := seen[seed]; dup {
			continue
		}
		seen[seed] = struct{}{}
		unique = append(unique, seed)

		res, _, err := d.query(ctx, seed, bound)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", seed, err)
		}
		for node, dist := range res.Distances {
			if cur, ok := best[node]; ok && cur.Distance <= dist {
				continue
			}
			best[node] = Expanded{Node: node, Distance: dist, Seed: seed}
		}
	}

	out := &Expansion{Seeds: unique, Nodes: make([]Expanded, 0, len(best))}
	for _, e := range best {
		e.Name = d.Name(e.Node)
		out.Nodes = append(out.Nodes, e)
	}
	sort.Slice(out.Nodes, func(i, j int) bool {
		a, b := out.Nodes[i], out.Nodes[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.Node < b.Node
	})

	span.SetAttributes(attribute.Int("reached", len(out.Nodes)))
	return out, nil
}

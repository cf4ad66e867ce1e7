// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AleutianAI/FrontierGraph/services/frontier"
	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// sourceFlags are shared by query and impact.
type sourceFlags struct {
	graphs  []string
	dataDir string
	source  int64
	name    string
	bound   float64
	json    bool
	limit   int
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.graphs, "graph", "g", nil, "knowledge-graph document(s) to load")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "load a persisted graph from this directory")
	cmd.Flags().Int64VarP(&f.source, "source", "s", -1, "source node id")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "source entity name")
	cmd.Flags().Float64VarP(&f.bound, "bound", "b", math.Inf(1), "search radius (default unbounded)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum rows printed (0 = all for query, 100 for impact)")
}

func (f *sourceFlags) resolve(db *frontier.Database) (graph.NodeID, error) {
	if f.name != "" {
		return db.Resolve(f.name)
	}
	if f.source < 0 || f.source > math.MaxUint32 {
		return 0, fmt.Errorf("pass --source ID or --name NAME")
	}
	return graph.NodeID(f.source), nil
}

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

func newQueryCmd(a *app) *cobra.Command {
	f := &sourceFlags{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Shortest paths from one source within a bound",
		Long: `Compute bounded single-source shortest paths.

The strategy (dijkstra or fre) is chosen from the graph's density.
Only nodes within the bound (inclusive) are printed.

Examples:
  frontier query --graph kg.json --name AuthService --bound 4
  frontier query --data-dir ./data --source 0 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.loadGraph(ctx, f.graphs, f.dataDir)
			if err != nil {
				return a.fail(err)
			}
			defer db.Close()

			source, err := f.resolve(db)
			if err != nil {
				return a.fail(err)
			}
			res, _, err := db.ShortestPaths(ctx, source, float32(f.bound))
			if err != nil {
				return a.fail(err)
			}

			resp := frontier.NewPathsResponse(res, false, db.Name)
			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			a.printer.Title(fmt.Sprintf("Shortest paths from %s", nodeLabel(source, db.Name(source))))
			a.printer.KeyValues([][2]string{
				{"strategy", resp.Strategy.String()},
				{"reached", strconv.Itoa(resp.Reached)},
				{"vertices processed", strconv.FormatUint(uint64(resp.VerticesProcessed), 10)},
				{"time", res.ComputationTime.String()},
			})

			nodes := resp.Nodes
			if f.limit > 0 && len(nodes) > f.limit {
				nodes = nodes[:f.limit]
			}
			rows := make([][]string, 0, len(nodes))
			for _, n := range nodes {
				pred := "-"
				if n.Predecessor != nil {
					pred = strconv.FormatUint(uint64(*n.Predecessor), 10)
				}
				rows = append(rows, []string{
					strconv.FormatUint(uint64(n.Node), 10), n.Name, formatDistance(n.Distance), pred,
				})
			}
			a.printer.Table([]string{"NODE", "NAME", "DISTANCE", "PREDECESSOR"}, rows)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newImpactCmd(a *app) *cobra.Command {
	f := &sourceFlags{}
	cmd := &cobra.Command{
		Use:   "impact",
		Short: "Nearest nodes a change at the source can reach",
		Long: `List the nodes closest to the source within the bound, nearest first,
each with the path that reaches it.

Examples:
  frontier impact --graph kg.json --name UserRepository --bound 3
  frontier impact --data-dir ./data --source 12 --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.loadGraph(ctx, f.graphs, f.dataDir)
			if err != nil {
				return a.fail(err)
			}
			defer db.Close()

			source, err := f.resolve(db)
			if err != nil {
				return a.fail(err)
			}
			report, err := db.Impact(ctx, source, float32(f.bound), f.limit)
			if err != nil {
				return a.fail(err)
			}

			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			a.printer.Title(fmt.Sprintf("Impact of %s", nodeLabel(source, report.SourceName)))
			rows := make([][]string, 0, len(report.Affected))
			for _, af := range report.Affected {
				rows = append(rows, []string{
					nodeLabel(af.Node, af.Name), formatDistance(af.Distance), formatPath(af.Path, db.Name),
				})
			}
			a.printer.Table([]string{"NODE", "DISTANCE", "PATH"}, rows)

			summary := fmt.Sprintf("%d reachable via %s", report.Reached, report.Strategy)
			if report.Truncated {
				summary += fmt.Sprintf(", showing %d", len(report.Affected))
			}
			a.printer.Info(summary)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		graphs  []string
		dataDir string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Graph size, parameters and strategy decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.loadGraph(cmd.Context(), graphs, dataDir)
			if err != nil {
				return a.fail(err)
			}
			defer db.Close()

			s := db.Stats()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			a.printer.Title("Graph statistics")
			a.printer.KeyValues([][2]string{
				{"nodes", strconv.Itoa(s.Graph.Nodes)},
				{"edges", strconv.Itoa(s.Graph.Edges)},
				{"avg degree", strconv.FormatFloat(s.Graph.AvgDegree, 'f', 2, 64)},
				{"k", strconv.FormatUint(uint64(s.Graph.K), 10)},
				{"t", strconv.FormatUint(uint64(s.Graph.T), 10)},
				{"named entities", strconv.Itoa(s.Names)},
				{"strategy", fmt.Sprintf("%s (%s)", s.Decision.Strategy, s.Decision.Reason)},
				{"fre cost", strconv.FormatFloat(s.Decision.FRECost, 'f', 0, 64)},
				{"dijkstra cost", strconv.FormatFloat(s.Decision.DijkstraCost, 'f', 0, 64)},
				{"persistent", strconv.FormatBool(s.Persistent)},
			})
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&graphs, "graph", "g", nil, "knowledge-graph document(s) to load")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "load a persisted graph from this directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func nodeLabel(id graph.NodeID, name string) string {
	if name == "" {
		return strconv.FormatUint(uint64(id), 10)
	}
	return fmt.Sprintf("%s (%d)", name, id)
}

func formatPath(path []graph.NodeID, name func(graph.NodeID) string) string {
	parts := make([]string, len(path))
	for i, n := range path {
		if s := name(n); s != "" {
			parts[i] = s
		} else {
			parts[i] = strconv.FormatUint(uint64(n), 10)
		}
	}
	return strings.Join(parts, " → ")
}

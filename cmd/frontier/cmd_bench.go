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
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/bench"
	"github.com/AleutianAI/FrontierGraph/services/frontier/ingest"
	"github.com/spf13/cobra"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		sizes        []int
		densities    []string
		sources      int
		bound        float64
		connectivity float64
		seed         uint64
		parallel     int
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare FRE and Dijkstra on generated graphs",
		Long: `Generate one graph per size and density, run both engines from the
same sources, verify they agree, and report timings.

A disagreement beyond the relative tolerance fails the command.

Examples:
  frontier bench
  frontier bench --sizes 1000,10000 --densities sparse --sources 10
  frontier bench --json > report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := bench.Options{
				Sizes:        sizes,
				Sources:      sources,
				Bound:        float32(bound),
				Connectivity: connectivity,
				Seed:         seed,
				Parallelism:  parallel,
				Traversal:    a.cfg.Engine.TraversalOptions(),
				Logger:       a.logger.Slog(),
			}
			for _, d := range densities {
				density, err := ingest.ParseDensity(d)
				if err != nil {
					return a.fail(err)
				}
				opts.Densities = append(opts.Densities, density)
			}

			report, err := bench.Run(cmd.Context(), opts)
			if err != nil {
				return a.fail(err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			a.printer.Title("FRE vs Dijkstra")
			rows := make([][]string, 0, len(report.Cases))
			for _, c := range report.Cases {
				rows = append(rows, []string{
					c.Case.String(),
					strconv.Itoa(c.Nodes),
					strconv.Itoa(c.Edges),
					c.Selected.String(),
					formatMillis(c.DijkstraTime),
					formatMillis(c.FRETime),
					fmt.Sprintf("%.2fx", c.Speedup()),
					strconv.Itoa(c.RecursionLevels),
				})
			}
			a.printer.Table([]string{"CASE", "NODES", "EDGES", "SELECTED", "DIJKSTRA", "FRE", "SPEEDUP", "LEVELS"}, rows)
			a.printer.Success(fmt.Sprintf("%d cases verified in %s", len(report.Cases), report.Duration.Round(time.Millisecond)))
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&sizes, "sizes", nil, "entity counts (default 100,1000)")
	cmd.Flags().StringSliceVar(&densities, "densities", nil, "sparse, medium, dense (default all)")
	cmd.Flags().IntVar(&sources, "sources", 5, "query sources per case")
	cmd.Flags().Float64Var(&bound, "bound", math.Inf(1), "search radius")
	cmd.Flags().Float64Var(&connectivity, "connectivity", 0, "raise edge density to this fraction of n(n-1)")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "generator seed")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent cases (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Microseconds())/1000, 'f', 2, 64) + "ms"
}

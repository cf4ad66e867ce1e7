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
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/AleutianAI/FrontierGraph/services/frontier/config"
	"github.com/AleutianAI/FrontierGraph/services/frontier/ingest"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		size         int
		density      string
		seed         uint64
		connectivity float64
		out          string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic knowledge-graph document",
		Long: `Generate a synthetic document with code-entity names and
sparse (2n), medium (6n) or dense (15n) relationships.

Without --out the document is written to stdout.

Examples:
  frontier generate --size 1000 --density sparse --out kg.json
  frontier generate --size 200 --density dense --connectivity 0.3 > kg.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ingest.ParseDensity(density)
			if err != nil {
				return a.fail(err)
			}
			doc, err := ingest.Generate(ingest.GenerateOptions{Size: size, Density: d, Seed: seed})
			if err != nil {
				return a.fail(err)
			}
			if connectivity > 0 {
				added := ingest.EnhanceConnectivity(doc, connectivity, rand.New(rand.NewPCG(seed, uint64(size))))
				a.logger.Info("connectivity enhanced", "added", added, "connectivity", ingest.Connectivity(doc))
			}

			if out == "" {
				return doc.Encode(cmd.OutOrStdout())
			}
			if err := doc.WriteFile(out); err != nil {
				return a.fail(err)
			}
			a.printer.Success(fmt.Sprintf("wrote %d entities and %d relationships to %s",
				len(doc.Entities), len(doc.Relationships), out))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 100, "number of entities")
	cmd.Flags().StringVar(&density, "density", "sparse", "sparse, medium or dense")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "generator seed")
	cmd.Flags().Float64Var(&connectivity, "connectivity", 0, "raise edge density to this fraction of n(n-1)")
	cmd.Flags().StringVarP(&out, "out", "O", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		graphs  []string
		dataDir string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import documents into a persistent data directory",
		Long: `Import knowledge-graph documents into a data directory. Edges are
additive: importing the same document twice doubles its edges.

Examples:
  frontier import --graph kg.json --data-dir ./data
  frontier import -g a.json -g b.json --data-dir ./data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" && !a.cfg.Storage.Enabled {
				return a.fail(errors.New("--data-dir is required unless storage is enabled in the config"))
			}
			db, err := a.openDatabase(cmd.Context(), dataDir)
			if err != nil {
				return a.fail(err)
			}
			defer db.Close()

			for _, path := range graphs {
				doc, err := ingest.LoadFile(path)
				if err != nil {
					return a.fail(err)
				}
				summary, err := db.Import(cmd.Context(), doc)
				if err != nil {
					return a.fail(fmt.Errorf("%s: %w", path, err))
				}
				a.printer.Success(fmt.Sprintf("%s: %d relationships, %d new entities",
					path, summary.Inserted, summary.NewEntities))
			}

			s := db.Stats()
			a.printer.KeyValues([][2]string{
				{"nodes", fmt.Sprint(s.Graph.Nodes)},
				{"edges", fmt.Sprint(s.Graph.Edges)},
				{"journaled", fmt.Sprint(s.Journaled)},
			})
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&graphs, "graph", "g", nil, "document(s) to import")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "persistent data directory")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "frontier.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return a.fail(fmt.Errorf("%s exists; use --force to overwrite", path))
			}
			if err := config.Default().Write(path); err != nil {
				return a.fail(err)
			}
			a.printer.Success("wrote " + path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the --config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// setup already loaded and validated it.
			a.printer.Success("configuration valid")
			a.printer.KeyValues([][2]string{
				{"addr", a.cfg.Server.Addr},
				{"storage", fmt.Sprint(a.cfg.Storage.Enabled)},
				{"trace exporter", a.cfg.Telemetry.TraceExporter},
				{"metrics exporter", a.cfg.Telemetry.MetricsExporter},
			})
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

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
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/FrontierGraph/pkg/logging"
	"github.com/AleutianAI/FrontierGraph/pkg/ux"
	"github.com/AleutianAI/FrontierGraph/services/frontier"
	"github.com/AleutianAI/FrontierGraph/services/frontier/config"
	"github.com/AleutianAI/FrontierGraph/services/frontier/ingest"
	edgestore "github.com/AleutianAI/FrontierGraph/services/frontier/storage/badger"
	"github.com/spf13/cobra"
)

// app carries persistent flags and per-invocation state.
type app struct {
	configPath string
	logLevel   string
	output     string

	cfg     config.Config
	logger  *logging.Logger
	printer *ux.Printer
}

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "frontier",
		Short: "Bounded shortest paths over large directed graphs",
		Long: `FrontierGraph answers bounded single-source shortest-path queries,
choosing between classical Dijkstra and recursive frontier reduction
from the graph's density.

Graphs come from knowledge-graph documents (--graph FILE) or from a
persistent data directory written by 'frontier import' or 'frontier serve'.

Examples:
  frontier generate --size 1000 --density sparse --out kg.json
  frontier query --graph kg.json --name main --bound 5
  frontier serve --config frontier.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML config file (defaults plus FRONTIER_* env when empty)")
	pf.StringVar(&a.logLevel, "log-level", "", "override log level: debug, info, warn, error")
	pf.StringVarP(&a.output, "output", "o", "", "output style: rich, plain, machine (default: detect)")

	root.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newImpactCmd(a),
		newStatsCmd(a),
		newBenchCmd(a),
		newGenerateCmd(a),
		newImportCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger and printer. Errors are
// printed here so SilenceErrors does not hide them.
func (a *app) setup(cmd *cobra.Command) error {
	mode := ux.ParseMode(a.output)
	if a.output == "" {
		mode = ux.DetectMode(os.Stdout)
	}
	a.printer = ux.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		a.printer.Error(err.Error())
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			a.printer.Error(err.Error())
			return err
		}
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "frontier",
		JSON:    cfg.Log.JSON,
		Output:  cmd.ErrOrStderr(),
	})
	slog.SetDefault(a.logger.Slog())
	return nil
}

// fail prints err and returns it for cobra.
func (a *app) fail(err error) error {
	a.printer.Error(err.Error())
	return err
}

// =============================================================================
// Database helpers
// =============================================================================

// openDatabase opens a database from the loaded configuration. A non-empty
// dataDir enables persistence at that directory.
func (a *app) openDatabase(ctx context.Context, dataDir string) (*frontier.Database, error) {
	cfg := a.cfg
	if dataDir != "" {
		cfg.Storage.Enabled = true
		cfg.Storage.InMemory = false
		cfg.Storage.DataDir = dataDir
	}
	logger := a.logger.Slog()

	opts := []frontier.Option{
		frontier.WithLogger(logger),
		frontier.WithStoreOptions(cfg.Engine.StoreOptions()...),
		frontier.WithTraversalOptions(cfg.Engine.TraversalOptions()...),
		frontier.WithCache(cfg.Cache.Capacity),
	}

	var store *edgestore.DB
	if cfg.Storage.Enabled {
		bc := edgestore.DefaultConfig(cfg.Storage.DataDir)
		if cfg.Storage.InMemory {
			bc = edgestore.InMemoryConfig()
		}
		bc.SyncWrites = cfg.Storage.SyncWrites
		bc.GCInterval = cfg.Storage.GCInterval
		bc.Logger = logger

		var err error
		store, err = edgestore.Open(bc)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		opts = append(opts, frontier.WithPersistence(store))
	}

	db, err := frontier.Open(ctx, opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return db, nil
}

// loadGraph opens a database and imports every document in paths.
func (a *app) loadGraph(ctx context.Context, paths []string, dataDir string) (*frontier.Database, error) {
	if len(paths) == 0 && dataDir == "" && !a.cfg.Storage.Enabled {
		return nil, fmt.Errorf("no graph: pass --graph FILE or --data-dir DIR")
	}
	db, err := a.openDatabase(ctx, dataDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return db, nil
	}

	docs := make([]*ingest.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := ingest.LoadFile(p)
		if err != nil {
			db.Close()
			return nil, err
		}
		docs = append(docs, doc)
	}
	doc := docs[0]
	if len(docs) > 1 {
		doc = ingest.Merge(docs...)
	}
	if _, err := db.Import(ctx, doc); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func formatDistance(d float32) string {
	return strconv.FormatFloat(float64(d), 'g', 6, 32)
}

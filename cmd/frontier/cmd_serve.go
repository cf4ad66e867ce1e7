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
	"errors"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier"
	"github.com/AleutianAI/FrontierGraph/services/frontier/ingest"
	"github.com/AleutianAI/FrontierGraph/services/frontier/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type serveFlags struct {
	addr    string
	dataDir string
	graphs  []string
	watch   string
}

func newServeCmd(a *app) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the /v1/frontier HTTP API and the /metrics endpoint.

With --data-dir (or storage.enabled in the config) every insertion is
journaled and replayed on the next start. --graph preloads documents;
--watch re-imports a document whenever it changes, adding only the
relationships appended since the last import.

Examples:
  frontier serve
  frontier serve --config frontier.yaml --data-dir ./data
  frontier serve --graph kg.json --watch kg.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runServe(cmd.Context(), a, f); err != nil {
				return a.fail(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "persist the graph in this directory")
	cmd.Flags().StringSliceVarP(&f.graphs, "graph", "g", nil, "document(s) to import at startup")
	cmd.Flags().StringVar(&f.watch, "watch", "", "document to watch and re-import on change")
	return cmd
}

func runServe(ctx context.Context, a *app, f *serveFlags) error {
	cfg := a.cfg
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	logger := a.logger.Slog()

	tcfg := telemetry.FromConfig(cfg.Telemetry)
	tcfg.ServiceVersion = frontier.ServiceVersion
	shutdownTelemetry, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	a.cfg = cfg
	db, err := a.openDatabase(ctx, f.dataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, path := range f.graphs {
		if path == f.watch {
			continue
		}
		doc, err := ingest.LoadFile(path)
		if err != nil {
			return err
		}
		if _, err := db.Import(ctx, doc); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return frontier.Serve(gctx, cfg, db, logger)
	})
	if f.watch != "" {
		w := ingest.NewWatcher(f.watch, func(ctx context.Context, doc *ingest.Document) (int, error) {
			summary, err := db.Import(ctx, doc)
			return summary.Inserted, err
		}, ingest.WithWatcherLogger(logger))
		g.Go(func() error {
			if err := w.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	a.printer.Success("frontier listening on " + cfg.Server.Addr)
	return g.Wait()
}

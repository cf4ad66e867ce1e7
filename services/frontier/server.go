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
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/FrontierGraph/services/frontier/config"
	"github.com/AleutianAI/FrontierGraph/services/frontier/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
)

// NewRouter builds the gin engine with middleware and every route.
//
// Middleware order: recovery, tracing, metrics, request id, rate limit,
// body limit.
func NewRouter(cfg config.Config, db *Database, logger *slog.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	httpMetrics, err := telemetry.NewHTTPMetrics(otel.Meter("frontier.http"))
	if err != nil {
		return nil, fmt.Errorf("create http metrics: %w", err)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.Telemetry.ServiceName),
		telemetry.GinMetrics(httpMetrics),
		RequestID(),
		RateLimit(cfg.Server.RateLimit, cfg.Server.Burst),
		MaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	metricsHandler := telemetry.MetricsHandler()
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	RegisterRoutes(router.Group("/v1"), NewHandlers(db, logger))
	return router, nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// within the configured timeout.
func Serve(ctx context.Context, cfg config.Config, db *Database, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	router, err := NewRouter(cfg, db, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("frontier server listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("frontier server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads FrontierGraph server configuration.
//
// Configuration comes from, in increasing precedence: Default(), a YAML
// file, then FRONTIER_* environment variables. The result is validated
// with struct tags before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
	"github.com/AleutianAI/FrontierGraph/services/frontier/traversal"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every load or validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`

	// RateLimit is requests per second across all clients. Zero disables.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`

	// MaxBodyBytes caps request bodies, imports included.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gt=0"`
}

// EngineConfig holds graph limits and traversal tuning.
type EngineConfig struct {
	SmallGraphThreshold int     `yaml:"small_graph_threshold" validate:"gte=0"`
	MaxDepth            int     `yaml:"max_depth" validate:"gte=0,lte=32"`
	BoundShrink         float32 `yaml:"bound_shrink" validate:"gt=0,lte=1"`
	MaxPivots           int     `yaml:"max_pivots" validate:"gte=1"`
	Seed                uint64  `yaml:"seed"`
	MaxNodes            int     `yaml:"max_nodes" validate:"gt=0"`
	MaxEdges            int     `yaml:"max_edges" validate:"gt=0"`
	AssertWeights       bool    `yaml:"assert_weights"`
}

// StorageConfig configures edge-log persistence.
type StorageConfig struct {
	// Enabled turns on BadgerDB persistence. Disabled servers are
	// memory-only.
	Enabled    bool          `yaml:"enabled"`
	DataDir    string        `yaml:"data_dir" validate:"required_if=Enabled true InMemory false"`
	InMemory   bool          `yaml:"in_memory"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

// CacheConfig sizes the query result cache. Zero capacity disables it.
type CacheConfig struct {
	Capacity int `yaml:"capacity" validate:"gte=0"`
}

// TelemetryConfig selects trace and metric exporters.
type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" validate:"required"`
	TraceExporter   string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	OTLPEndpoint    string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	MetricsExporter string `yaml:"metrics_exporter" validate:"oneof=none stdout prometheus"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// Default returns a configuration that validates as-is.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8095",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       0,
			Burst:           50,
			MaxBodyBytes:    32 << 20,
		},
		Engine: EngineConfig{
			SmallGraphThreshold: heuristic.DefaultSmallGraphThreshold,
			MaxDepth:            traversal.DefaultMaxDepth,
			BoundShrink:         traversal.DefaultBoundShrink,
			MaxPivots:           traversal.DefaultMaxPivots,
			MaxNodes:            graph.DefaultMaxNodes,
			MaxEdges:            graph.DefaultMaxEdges,
		},
		Storage: StorageConfig{
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Cache: CacheConfig{Capacity: 512},
		Telemetry: TelemetryConfig{
			ServiceName:     "frontier",
			TraceExporter:   "none",
			MetricsExporter: "prometheus",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the process environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays FRONTIER_* variables read through getenv.
//
// Recognised: FRONTIER_ADDR, FRONTIER_DATA_DIR (also enables storage),
// FRONTIER_LOG_LEVEL, FRONTIER_SEED, FRONTIER_SMALL_GRAPH_THRESHOLD,
// FRONTIER_MAX_DEPTH, FRONTIER_BOUND_SHRINK, FRONTIER_MAX_PIVOTS.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("FRONTIER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("FRONTIER_DATA_DIR"); v != "" {
		c.Storage.Enabled = true
		c.Storage.DataDir = v
	}
	if v := getenv("FRONTIER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"FRONTIER_SMALL_GRAPH_THRESHOLD", &c.Engine.SmallGraphThreshold},
		{"FRONTIER_MAX_DEPTH", &c.Engine.MaxDepth},
		{"FRONTIER_MAX_PIVOTS", &c.Engine.MaxPivots},
	}
	for _, e := range ints {
		if v := getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, e.name, v, err)
			}
			*e.dst = n
		}
	}

	if v := getenv("FRONTIER_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: FRONTIER_SEED=%q: %w", ErrInvalidConfig, v, err)
		}
		c.Engine.Seed = n
	}
	if v := getenv("FRONTIER_BOUND_SHRINK"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%w: FRONTIER_BOUND_SHRINK=%q: %w", ErrInvalidConfig, v, err)
		}
		c.Engine.BoundShrink = float32(f)
	}
	return nil
}

// Validate checks struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Write saves c as YAML at path, creating parent directories.
func (c Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// TraversalOptions converts engine settings to traversal options.
func (e EngineConfig) TraversalOptions() []traversal.Option {
	return []traversal.Option{
		traversal.WithSmallGraphThreshold(e.SmallGraphThreshold),
		traversal.WithMaxDepth(e.MaxDepth),
		traversal.WithBoundShrink(e.BoundShrink),
		traversal.WithMaxPivots(e.MaxPivots),
		traversal.WithSeed(e.Seed),
	}
}

// StoreOptions converts engine limits to graph store options.
func (e EngineConfig) StoreOptions() []graph.StoreOption {
	opts := []graph.StoreOption{
		graph.WithMaxNodes(e.MaxNodes),
		graph.WithMaxEdges(e.MaxEdges),
	}
	if e.AssertWeights {
		opts = append(opts, graph.WithWeightAssertions())
	}
	return opts
}

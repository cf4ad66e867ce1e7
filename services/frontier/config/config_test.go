// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/traversal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("FRONTIER_ADDR", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Engine, cfg.Engine)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frontier.yaml")
	yamlDoc := `
server:
  addr: "0.0.0.0:9000"
  read_timeout: 5s
engine:
  max_depth: 2
  bound_shrink: 0.5
  seed: 42
cache:
  capacity: 16
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2, cfg.Engine.MaxDepth)
	assert.InDelta(t, 0.5, cfg.Engine.BoundShrink, 1e-6)
	assert.Equal(t, uint64(42), cfg.Engine.Seed)
	assert.Equal(t, 16, cfg.Cache.Capacity)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched keys keep defaults.
	assert.Equal(t, traversal.DefaultMaxPivots, cfg.Engine.MaxPivots)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("engine: [unclosed"), 0600))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("engine:\n  bound_shrink: 1.5\n"), 0600))
	_, err = Load(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"FRONTIER_ADDR":                  "localhost:7000",
		"FRONTIER_DATA_DIR":              "/tmp/frontier",
		"FRONTIER_LOG_LEVEL":             "warn",
		"FRONTIER_SEED":                  "7",
		"FRONTIER_SMALL_GRAPH_THRESHOLD": "10",
		"FRONTIER_MAX_DEPTH":             "4",
		"FRONTIER_BOUND_SHRINK":          "0.9",
		"FRONTIER_MAX_PIVOTS":            "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, "localhost:7000", cfg.Server.Addr)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "/tmp/frontier", cfg.Storage.DataDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, uint64(7), cfg.Engine.Seed)
	assert.Equal(t, 10, cfg.Engine.SmallGraphThreshold)
	assert.Equal(t, 4, cfg.Engine.MaxDepth)
	assert.InDelta(t, 0.9, cfg.Engine.BoundShrink, 1e-6)
	assert.Equal(t, 3, cfg.Engine.MaxPivots)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnv_RejectsMalformedNumbers(t *testing.T) {
	for _, name := range []string{"FRONTIER_SEED", "FRONTIER_MAX_DEPTH", "FRONTIER_BOUND_SHRINK"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(envMap(map[string]string{name: "lots"}))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad addr", func(c *Config) { c.Server.Addr = "no-port" }},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
		{"negative depth", func(c *Config) { c.Engine.MaxDepth = -1 }},
		{"shrink zero", func(c *Config) { c.Engine.BoundShrink = 0 }},
		{"no pivots", func(c *Config) { c.Engine.MaxPivots = 0 }},
		{"storage without dir", func(c *Config) { c.Storage.Enabled = true }},
		{"otlp without endpoint", func(c *Config) { c.Telemetry.TraceExporter = "otlp" }},
		{"unknown exporter", func(c *Config) { c.Telemetry.MetricsExporter = "statsd" }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("in-memory storage needs no dir", func(t *testing.T) {
		cfg := Default()
		cfg.Storage.Enabled = true
		cfg.Storage.InMemory = true
		assert.NoError(t, cfg.Validate())
	})
}

func TestWrite_RoundTripsThroughLoad(t *testing.T) {
	t.Setenv("FRONTIER_ADDR", "")
	path := filepath.Join(t.TempDir(), "nested", "frontier.yaml")
	cfg := Default()
	cfg.Engine.Seed = 99
	require.NoError(t, cfg.Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEngineConfig_Options(t *testing.T) {
	ec := Default().Engine
	ec.MaxDepth = 1
	ec.Seed = 5
	ec.MaxNodes = 3

	tc := traversal.DefaultConfig()
	for _, opt := range ec.TraversalOptions() {
		opt(&tc)
	}
	assert.Equal(t, 1, tc.MaxDepth)
	assert.Equal(t, uint64(5), tc.Seed)

	store := graph.NewStore(ec.StoreOptions()...)
	require.NoError(t, store.AddEdge(0, 1, 1))
	require.NoError(t, store.AddEdge(1, 2, 1))
	assert.ErrorIs(t, store.AddEdge(2, 3, 1), graph.ErrAllocation)
}

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
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/FrontierGraph/services/frontier"
	"github.com/AleutianAI/FrontierGraph/services/frontier/bench"
	"github.com/AleutianAI/FrontierGraph/services/frontier/config"
	"github.com/AleutianAI/FrontierGraph/services/frontier/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the command tree in machine output mode.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--output", "machine", "--log-level", "error"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeTestDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kg.json")
	doc := &ingest.Document{
		ID:       "cli-test",
		Entities: []ingest.Entity{{Name: "api"}, {Name: "service"}, {Name: "db"}},
		Relationships: []ingest.Relationship{
			{Source: "api", Target: "service", Confidence: 1},
			{Source: "service", Target: "db", Confidence: 0.5},
			{Source: "api", Target: "db", Confidence: 0.25},
		},
	}
	require.NoError(t, doc.WriteFile(path))
	return path
}

func TestQueryCommand_JSON(t *testing.T) {
	path := writeTestDocument(t)

	out, _, err := runCLI(t, "query", "--graph", path, "--name", "api", "--json")
	require.NoError(t, err)

	var resp frontier.PathsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Nil(t, resp.Bound)
	assert.Equal(t, 3, resp.Reached)
	last := resp.Nodes[len(resp.Nodes)-1]
	assert.Equal(t, "db", last.Name)
	assert.Equal(t, float32(3), last.Distance)
}

func TestQueryCommand_Table(t *testing.T) {
	path := writeTestDocument(t)

	out, _, err := runCLI(t, "query", "--graph", path, "--source", "0", "--bound", "1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy=dijkstra")
	assert.Contains(t, out, "NODE\tNAME\tDISTANCE\tPREDECESSOR")
	assert.Contains(t, out, "1\tservice\t1\t0")
	assert.NotContains(t, out, "\tdb\t")
}

func TestQueryCommand_Errors(t *testing.T) {
	path := writeTestDocument(t)

	_, errOut, err := runCLI(t, "query", "--source", "0")
	assert.Error(t, err)
	assert.Contains(t, errOut, "ERROR: no graph")

	_, _, err = runCLI(t, "query", "--graph", path)
	assert.Error(t, err)

	_, errOut, err = runCLI(t, "query", "--graph", path, "--name", "ghost")
	assert.ErrorIs(t, err, frontier.ErrUnknownEntity)
	assert.Contains(t, errOut, "ghost")

	_, _, err = runCLI(t, "query", "--graph", filepath.Join(t.TempDir(), "missing.json"), "--source", "0")
	assert.Error(t, err)
}

func TestImpactCommand(t *testing.T) {
	path := writeTestDocument(t)

	out, _, err := runCLI(t, "impact", "--graph", path, "--name", "api", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "NODE\tDISTANCE\tPATH")
	assert.Contains(t, out, "service (1)\t1\tapi → service")
	assert.Contains(t, out, "2 reachable via dijkstra, showing 1")
}

func TestGenerateImportStats(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "gen.json")
	dataDir := filepath.Join(dir, "data")

	out, _, err := runCLI(t, "generate", "--size", "40", "--density", "medium", "--out", docPath)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: wrote 40 entities and 240 relationships")

	out, _, err = runCLI(t, "import", "--graph", docPath, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, out, "240 relationships, 40 new entities")
	assert.Contains(t, out, "journaled=240")

	out, _, err = runCLI(t, "stats", "--data-dir", dataDir, "--json")
	require.NoError(t, err)
	var stats frontier.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 240, stats.Graph.Edges)
	assert.Equal(t, 40, stats.Names)
	assert.True(t, stats.Persistent)
}

func TestGenerateCommand_Stdout(t *testing.T) {
	out, _, err := runCLI(t, "generate", "--size", "10", "--density", "sparse", "--seed", "7")
	require.NoError(t, err)

	doc, err := ingest.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, doc.Entities, 10)
	assert.Len(t, doc.Relationships, 20)

	_, _, err = runCLI(t, "generate", "--density", "galactic")
	assert.Error(t, err)
}

func TestImportCommand_RequiresDataDir(t *testing.T) {
	path := writeTestDocument(t)
	_, errOut, err := runCLI(t, "import", "--graph", path)
	assert.Error(t, err)
	assert.Contains(t, errOut, "--data-dir is required")
}

func TestBenchCommand_JSON(t *testing.T) {
	out, _, err := runCLI(t, "bench", "--sizes", "30", "--densities", "sparse,dense", "--sources", "2", "--json")
	require.NoError(t, err)

	var report bench.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Cases, 2)
	assert.Equal(t, ingest.DensitySparse, report.Cases[0].Density)
	assert.Equal(t, 2, report.Cases[0].Queries)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frontier.yaml")

	out, _, err := runCLI(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: wrote "+path)

	_, _, err = runCLI(t, "config", "init", path)
	assert.Error(t, err)
	_, _, err = runCLI(t, "config", "init", path, "--force")
	assert.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Addr, cfg.Server.Addr)

	out, _, err = runCLI(t, "--config", path, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "addr="+cfg.Server.Addr)

	_, _, err = runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "config", "validate")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRootCommand_BadLogLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"--output", "machine", "--log-level", "loud", "stats"})
	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

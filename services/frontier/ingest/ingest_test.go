// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "entities": [
    {"name": "api", "type": "component"},
    {"name": "db", "type": "service"}
  ],
  "relationships": [
    {"source": "api", "target": "db", "type": "uses", "confidence": 0.5},
    {"source": "db", "target": "cache", "type": "calls"}
  ],
  "metadata": {"origin": "test"}
}`

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Len(t, doc.Entities, 2)
	assert.Len(t, doc.Relationships, 2)
	assert.Equal(t, "test", doc.Metadata["origin"])
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"entities": [`},
		{"missing target", `{"relationships": [{"source": "a"}]}`},
		{"confidence above one", `{"relationships": [{"source": "a", "target": "b", "confidence": 1.5}]}`},
		{"negative confidence", `{"relationships": [{"source": "a", "target": "b", "confidence": -0.1}]}`},
		{"unnamed entity", `{"entities": [{"type": "file"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.body))
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestValidate_NaNConfidence(t *testing.T) {
	doc := &Document{Relationships: []Relationship{{Source: "a", Target: "b", Confidence: math.NaN()}}}
	assert.ErrorIs(t, doc.Validate(), ErrInvalidDocument)

	var nilDoc *Document
	assert.ErrorIs(t, nilDoc.Validate(), ErrInvalidDocument)
}

func TestRelationship_Weight(t *testing.T) {
	assert.Equal(t, float32(1), Relationship{}.Weight())
	assert.Equal(t, float32(2), Relationship{Confidence: 0.5}.Weight())
	assert.Equal(t, float32(1), Relationship{Confidence: 1}.Weight())
}

func TestInterner(t *testing.T) {
	in := NewInterner()
	a, fresh, err := in.Intern("a")
	require.NoError(t, err)
	assert.True(t, fresh)
	b, _, err := in.Intern("b")
	require.NoError(t, err)
	again, fresh, err := in.Intern("a")
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, a, again)
	assert.Equal(t, graph.NodeID(0), a)
	assert.Equal(t, graph.NodeID(1), b)

	in.Reserve(10)
	c, _, err := in.Intern("c")
	require.NoError(t, err)
	assert.Equal(t, graph.NodeID(11), c)

	name, ok := in.Name(c)
	assert.True(t, ok)
	assert.Equal(t, "c", name)
	_, ok = in.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, in.Names())
	assert.Equal(t, 3, in.Len())
}

func TestInterner_Restore(t *testing.T) {
	in := NewInterner()
	require.NoError(t, in.Restore(5, "x"))
	require.NoError(t, in.Restore(5, "x"))
	assert.Error(t, in.Restore(6, "x"))
	assert.Error(t, in.Restore(5, "y"))

	id, _, err := in.Intern("y")
	require.NoError(t, err)
	assert.Equal(t, graph.NodeID(6), id)
}

func TestInterner_ExhaustedIDSpace(t *testing.T) {
	t.Run("reserve max id", func(t *testing.T) {
		in := NewInterner()
		alpha, _, err := in.Intern("alpha")
		require.NoError(t, err)

		in.Reserve(math.MaxUint32)
		_, fresh, err := in.Intern("gamma")
		assert.ErrorIs(t, err, ErrIDsExhausted)
		assert.ErrorIs(t, err, graph.ErrAllocation)
		assert.False(t, fresh)

		name, ok := in.Name(alpha)
		require.True(t, ok)
		assert.Equal(t, "alpha", name)
		_, ok = in.Lookup("gamma")
		assert.False(t, ok)

		again, _, err := in.Intern("alpha")
		require.NoError(t, err, "existing names still resolve")
		assert.Equal(t, alpha, again)
	})

	t.Run("restore max id", func(t *testing.T) {
		in := NewInterner()
		require.NoError(t, in.Restore(math.MaxUint32, "last"))
		_, _, err := in.Intern("next")
		assert.ErrorIs(t, err, ErrIDsExhausted)
	})

	t.Run("last id is assignable", func(t *testing.T) {
		in := NewInterner()
		in.Reserve(math.MaxUint32 - 1)
		id, fresh, err := in.Intern("edge")
		require.NoError(t, err)
		assert.True(t, fresh)
		assert.Equal(t, graph.NodeID(math.MaxUint32), id)
		_, _, err = in.Intern("over")
		assert.ErrorIs(t, err, ErrIDsExhausted)
	})
}

func TestConvert_ExhaustedIDSpace(t *testing.T) {
	in := NewInterner()
	in.Reserve(math.MaxUint32 - 1)
	doc := &Document{
		Entities:      []Entity{{Name: "a"}},
		Relationships: []Relationship{{Source: "a", Target: "b"}},
	}
	b, err := Convert(doc, in)
	assert.ErrorIs(t, err, graph.ErrAllocation)
	require.NotNil(t, b)
	assert.Equal(t, map[graph.NodeID]string{math.MaxUint32: "a"}, b.NewNames)
	assert.Empty(t, b.Edges)
}

func TestInterner_ConcurrentIntern(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	ids := make([]graph.NodeID, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _, _ = in.Intern("shared")
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, in.Len())
}

func TestImport(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	in := NewInterner()
	store := graph.NewStore()
	n, err := Import(doc, in, store)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	api, _ := in.Lookup("api")
	db, _ := in.Lookup("db")
	cache, ok := in.Lookup("cache")
	require.True(t, ok, "relationship endpoints are interned even without an entity")
	assert.Equal(t, graph.NodeID(2), cache)

	edges, err := store.Neighbors(api)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, db, edges[0].To)
	assert.Equal(t, float32(2), edges[0].Weight)

	edges, err = store.Neighbors(db)
	require.NoError(t, err)
	assert.Equal(t, float32(1), edges[0].Weight)
}

func TestConvert_ReportsNewNamesOnce(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	in := NewInterner()

	first, err := Convert(doc, in)
	require.NoError(t, err)
	assert.Len(t, first.NewNames, 3)
	assert.Equal(t, 2, first.Entities)

	second, err := Convert(doc, in)
	require.NoError(t, err)
	assert.Empty(t, second.NewNames)
	assert.Equal(t, first.Edges, second.Edges)
}

type failingSink struct{ after int }

func (s *failingSink) AddEdge(graph.NodeID, graph.NodeID, float32) error {
	if s.after == 0 {
		return graph.ErrAllocation
	}
	s.after--
	return nil
}

func TestImport_StopsAtSinkError(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	n, err := Import(doc, NewInterner(), &failingSink{after: 1})
	assert.ErrorIs(t, err, graph.ErrAllocation)
	assert.Equal(t, 1, n)
}

func TestMerge(t *testing.T) {
	a := &Document{
		Entities:      []Entity{{Name: "x", Type: "first"}},
		Relationships: []Relationship{{Source: "x", Target: "y"}},
	}
	b := &Document{
		Entities:      []Entity{{Name: "x", Type: "second"}, {Name: "y"}},
		Relationships: []Relationship{{Source: "y", Target: "x"}},
	}
	m := Merge(a, nil, b)
	require.Len(t, m.Entities, 2)
	assert.Equal(t, "first", m.Entities[0].Type)
	assert.Len(t, m.Relationships, 2)
	assert.NoError(t, m.Validate())
}

func TestEncode_RoundTrip(t *testing.T) {
	doc, err := Generate(GenerateOptions{Size: 10, Density: DensitySparse, Seed: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	back, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, doc.Entities, back.Entities)
	assert.Equal(t, doc.Relationships, back.Relationships)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		density Density
		perNode int
	}{
		{DensitySparse, 2},
		{DensityMedium, 6},
		{DensityDense, 15},
	}
	for _, tt := range tests {
		t.Run(string(tt.density), func(t *testing.T) {
			doc, err := Generate(GenerateOptions{Size: 50, Density: tt.density, Seed: 3})
			require.NoError(t, err)
			assert.Len(t, doc.Entities, 50)
			assert.Len(t, doc.Relationships, 50*tt.perNode)

			names := map[string]bool{}
			for _, e := range doc.Entities {
				assert.False(t, names[e.Name], "duplicate name %s", e.Name)
				names[e.Name] = true
			}
			for _, r := range doc.Relationships {
				assert.NotEqual(t, r.Source, r.Target)
				assert.GreaterOrEqual(t, r.Confidence, 0.7)
				assert.LessOrEqual(t, r.Confidence, 1.0)
			}
			require.NoError(t, doc.Validate())
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := GenerateOptions{Size: 30, Density: DensityMedium, Seed: 9}
	a, err := Generate(opts)
	require.NoError(t, err)
	b, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, a.Entities, b.Entities)
	assert.Equal(t, a.Relationships, b.Relationships)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(GenerateOptions{Size: 1, Density: DensitySparse})
	assert.Error(t, err)
	_, err = Generate(GenerateOptions{Size: 10, Density: "thick"})
	assert.Error(t, err)
}

func TestParseDensity(t *testing.T) {
	d, err := ParseDensity(" Dense ")
	require.NoError(t, err)
	assert.Equal(t, DensityDense, d)
	_, err = ParseDensity("thick")
	assert.Error(t, err)
}

func TestEnhanceConnectivity(t *testing.T) {
	doc, err := Generate(GenerateOptions{Size: 40, Density: DensitySparse, Seed: 5})
	require.NoError(t, err)
	before := len(doc.Relationships)

	added := EnhanceConnectivity(doc, 0.15, rand.New(rand.NewPCG(1, 2)))
	assert.Positive(t, added)
	assert.Equal(t, before+added, len(doc.Relationships))
	assert.GreaterOrEqual(t, Connectivity(doc), 0.149)

	for _, r := range doc.Relationships[before:] {
		assert.NotEqual(t, r.Source, r.Target)
		assert.GreaterOrEqual(t, r.Confidence, 0.6)
		assert.LessOrEqual(t, r.Confidence, 0.9)
	}

	assert.Zero(t, EnhanceConnectivity(doc, 0.01, rand.New(rand.NewPCG(1, 2))))
}

type collector struct {
	mu    sync.Mutex
	calls [][]Relationship
	fail  error

	// applied is how many relationships a failing call reports as applied.
	applied int
}

func (c *collector) handle(_ context.Context, doc *Document) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		c.calls = append(c.calls, doc.Relationships[:c.applied])
		return c.applied, c.fail
	}
	c.calls = append(c.calls, doc.Relationships)
	return len(doc.Relationships), nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestWatcher_SyncImportsOnlyTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	doc := &Document{Relationships: []Relationship{{Source: "a", Target: "b"}}}
	require.NoError(t, doc.WriteFile(path))

	c := &collector{}
	w := NewWatcher(path, c.handle)

	n, err := w.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = w.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	doc.Relationships = append(doc.Relationships, Relationship{Source: "b", Target: "c"})
	require.NoError(t, doc.WriteFile(path))
	n, err = w.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, c.calls, 2)
	assert.Equal(t, "c", c.calls[1][0].Target)

	doc.Relationships = doc.Relationships[:1]
	require.NoError(t, doc.WriteFile(path))
	n, err = w.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, w.Imported())
}

func TestWatcher_HandlerErrorKeepsOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	doc := &Document{Relationships: []Relationship{{Source: "a", Target: "b"}}}
	require.NoError(t, doc.WriteFile(path))

	boom := errors.New("boom")
	c := &collector{fail: boom}
	w := NewWatcher(path, c.handle)
	_, err := w.Sync(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, w.Imported())
}

func TestWatcher_PartialImportAdvancesOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	doc := &Document{Relationships: []Relationship{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
		{Source: "c", Target: "d"},
	}}
	require.NoError(t, doc.WriteFile(path))

	c := &collector{fail: graph.ErrAllocation, applied: 2}
	w := NewWatcher(path, c.handle)
	n, err := w.Sync(context.Background())
	assert.ErrorIs(t, err, graph.ErrAllocation)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, w.Imported())

	c.mu.Lock()
	c.fail = nil
	c.mu.Unlock()
	n, err = w.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, c.calls, 2)
	require.Len(t, c.calls[1], 1, "the applied prefix is not handed off again")
	assert.Equal(t, "c", c.calls[1][0].Source)
	assert.Equal(t, 3, w.Imported())
}

func TestWatcher_RunPicksUpWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	doc := &Document{Relationships: []Relationship{{Source: "a", Target: "b"}}}
	require.NoError(t, doc.WriteFile(path))

	c := &collector{}
	w := NewWatcher(path, c.handle, WithDebounce(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	doc.Relationships = append(doc.Relationships, Relationship{Source: "b", Target: "c"})
	require.NoError(t, doc.WriteFile(path))
	require.Eventually(t, func() bool { return c.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_MissingFile(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope.json"), (&collector{}).handle)
	_, err := w.Sync(context.Background())
	assert.Error(t, err)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/traversal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a") // a is now most recent
	require.True(t, ok)
	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	st := c.Stats()
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, int64(1), st.Evictions)
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
}

func TestLRU_UpdateAndPurge(t *testing.T) {
	c := NewLRU[int, string](0)
	assert.Equal(t, DefaultCapacity, c.Stats().Capacity)

	c.Set(1, "x")
	c.Set(1, "y")
	v, _ := c.Get(1)
	assert.Equal(t, "y", v)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestQueryCache_HitsAfterCompute(t *testing.T) {
	c := NewQueryCache(8)
	key := NewKey(3, 10, 1)
	want := &traversal.PathResult{Source: 3}

	calls := 0
	compute := func() (*traversal.PathResult, error) {
		calls++
		return want, nil
	}

	got, cached, err := c.GetOrCompute(key, compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Same(t, want, got)

	got, cached, err = c.GetOrCompute(key, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Same(t, want, got)
	assert.Equal(t, 1, calls)

	// A new generation is a different key.
	_, cached, err = c.GetOrCompute(NewKey(3, 10, 2), compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, calls)
}

func TestQueryCache_ErrorsAreNotCached(t *testing.T) {
	c := NewQueryCache(8)
	key := NewKey(1, 1, 0)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(key, func() (*traversal.PathResult, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	res, cached, err := c.GetOrCompute(key, func() (*traversal.PathResult, error) {
		return &traversal.PathResult{}, nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotNil(t, res)
}

func TestQueryCache_CollapsesConcurrentMisses(t *testing.T) {
	c := NewQueryCache(8)
	key := NewKey(7, 5, 0)

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*traversal.PathResult, error) {
		calls.Add(1)
		<-release
		return &traversal.PathResult{Source: 7}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*traversal.PathResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, _, err := c.GetOrCompute(key, compute)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	// Give the callers time to pile onto the in-flight computation.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestNewKey_DistinguishesBounds(t *testing.T) {
	assert.NotEqual(t, NewKey(1, 1.0, 0), NewKey(1, 1.0000001, 0))
	assert.Equal(t, NewKey(1, 2.5, 4), NewKey(1, 2.5, 4))
}

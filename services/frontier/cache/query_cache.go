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
	"fmt"
	"math"
	"sync/atomic"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/traversal"
	"golang.org/x/sync/singleflight"
)

// Key identifies one query against one version of the graph.
type Key struct {
	Source     graph.NodeID
	Bound      uint32 // math.Float32bits of the bound
	Generation uint64
}

// NewKey builds a cache key. Bounds compare bit-for-bit.
func NewKey(source graph.NodeID, bound float32, generation uint64) Key {
	return Key{Source: source, Bound: math.Float32bits(bound), Generation: generation}
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%08x/%d", k.Source, k.Bound, k.Generation)
}

// ComputeFunc produces a result on a cache miss.
type ComputeFunc func() (*traversal.PathResult, error)

// QueryCache memoizes shortest-path results and collapses concurrent
// identical misses into one computation.
//
// Cached results are shared between callers and must be treated as
// read-only. Errors are never cached.
//
// Thread Safety: Safe for concurrent use.
type QueryCache struct {
	lru    *LRU[Key, *traversal.PathResult]
	flight singleflight.Group
	shared atomic.Int64
}

// NewQueryCache creates a cache holding up to capacity results.
func NewQueryCache(capacity int) *QueryCache {
	return &QueryCache{lru: NewLRU[Key, *traversal.PathResult](capacity)}
}

// GetOrCompute returns the cached result for key or runs compute.
//
// Outputs:
//
//	*traversal.PathResult - Cached or freshly computed result.
//	bool - True if served from cache or from another caller's computation.
//	error - compute's error, unmodified.
func (c *QueryCache) GetOrCompute(key Key, compute ComputeFunc) (*traversal.PathResult, bool, error) {
	if res, ok := c.lru.Get(key); ok {
		return res, true, nil
	}

	v, err, shared := c.flight.Do(key.String(), func() (interface{}, error) {
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.lru.Set(key, res)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		c.shared.Add(1)
	}
	return v.(*traversal.PathResult), shared, nil
}

// Purge drops every cached result.
func (c *QueryCache) Purge() {
	c.lru.Purge()
}

// QueryStats extends LRU stats with collapsed concurrent computations.
type QueryStats struct {
	Stats
	Shared int64 `json:"shared"`
}

// Stats returns current counters.
func (c *QueryCache) Stats() QueryStats {
	return QueryStats{Stats: c.lru.Stats(), Shared: c.shared.Load()}
}

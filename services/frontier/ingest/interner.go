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
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
)

// Interner maps entity names to node ids in first-seen order.
//
// Ids below the high-water mark may belong to numeric nodes added without a
// name; Reserve moves the mark past them so later names never collide.
//
// Thread Safety: Safe for concurrent use.
type Interner struct {
	mu    sync.RWMutex
	ids   map[string]graph.NodeID
	names map[graph.NodeID]string

	// next is one past the highest used id. It is wider than NodeID so a
	// reservation of math.MaxUint32 exhausts the space instead of wrapping.
	next uint64
}

// idSpace is the number of distinct NodeIDs.
const idSpace = uint64(math.MaxUint32) + 1

// ErrIDsExhausted is returned by Intern once every NodeID is in use.
// It wraps graph.ErrAllocation.
var ErrIDsExhausted = fmt.Errorf("%w: node id space exhausted", graph.ErrAllocation)

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{
		ids:   make(map[string]graph.NodeID),
		names: make(map[graph.NodeID]string),
	}
}

// Intern returns the id for name, assigning the next free id if new.
//
// Outputs:
//
//	graph.NodeID - The id bound to name.
//	bool - True if the id was assigned by this call.
//	error - ErrIDsExhausted if name is new and no id above the high-water
//	  mark is left.
func (in *Interner) Intern(name string) (graph.NodeID, bool, error) {
	in.mu.RLock()
	id, ok := in.ids[name]
	in.mu.RUnlock()
	if ok {
		return id, false, nil
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.ids[name]; ok {
		return id, false, nil
	}
	if in.next >= idSpace {
		return 0, false, fmt.Errorf("%w: cannot intern %q", ErrIDsExhausted, name)
	}
	id = graph.NodeID(in.next)
	in.next++
	in.ids[name] = id
	in.names[id] = name
	return id, true, nil
}

// Lookup returns the id for name without assigning one.
func (in *Interner) Lookup(name string) (graph.NodeID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.ids[name]
	return id, ok
}

// Name returns the entity name of id.
func (in *Interner) Name(id graph.NodeID) (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	name, ok := in.names[id]
	return name, ok
}

// Reserve marks id as used so Intern never hands it out.
func (in *Interner) Reserve(id graph.NodeID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.reserve(id)
}

// reserve moves the high-water mark past id. Callers hold the write lock.
func (in *Interner) reserve(id graph.NodeID) {
	if uint64(id) >= in.next {
		in.next = uint64(id) + 1
	}
}

// Restore binds name to id, as read back from persistent storage.
//
// Restoring a name already bound to a different id is an error.
func (in *Interner) Restore(id graph.NodeID, name string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if existing, ok := in.ids[name]; ok && existing != id {
		return fmt.Errorf("name %q bound to %d, cannot restore as %d", name, existing, id)
	}
	if existing, ok := in.names[id]; ok && existing != name {
		return fmt.Errorf("id %d bound to %q, cannot restore as %q", id, existing, name)
	}
	in.ids[name] = id
	in.names[id] = name
	in.reserve(id)
	return nil
}

// Len returns the number of named ids.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.ids)
}

// Names returns all names sorted by id.
func (in *Interner) Names() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()

	ids := make([]graph.NodeID, 0, len(in.names))
	for id := range in.names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, in.names[id])
	}
	return out
}

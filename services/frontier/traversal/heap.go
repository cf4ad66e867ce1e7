// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traversal

import "github.com/AleutianAI/FrontierGraph/services/frontier/graph"

type heapItem struct {
	node graph.NodeID
	dist float32
}

// distHeap is a binary min-heap ordered by (dist, node).
//
// Entries are never decreased in place; callers push a new entry and skip
// stale ones on pop. Ordering ties by node id keeps extraction order, and
// therefore predecessor choice, independent of push order.
type distHeap struct {
	items []heapItem
}

func (h *distHeap) Len() int { return len(h.items) }

func (h *distHeap) less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.node < b.node
}

func (h *distHeap) Push(node graph.NodeID, dist float32) {
	h.items = append(h.items, heapItem{node: node, dist: dist})
	i := len(h.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

// Pop removes and returns the minimum entry. The heap must be non-empty.
func (h *distHeap) Pop() heapItem {
	top := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]

	i := 0
	for {
		left := 2*i + 1
		if left >= last {
			break
		}
		smallest := left
		if right := left + 1; right < last && h.less(right, left) {
			smallest = right
		}
		if !h.less(smallest, i) {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
	return top
}

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

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
)

// Sink receives imported edges. graph.Store satisfies it.
type Sink interface {
	AddEdge(from, to graph.NodeID, weight float32) error
}

// Batch is a document converted to edges.
type Batch struct {
	// Edges in relationship order.
	Edges []graph.Edge

	// NewNames holds names interned for the first time by this batch.
	NewNames map[graph.NodeID]string

	// Entities is the number of entities declared by the document.
	Entities int
}

// Convert validates doc and interns its names, producing one edge per
// relationship.
//
// Entities are interned before relationships so declared entities get the
// lowest ids in declaration order. Relationship endpoints missing from the
// entity list are interned on first use.
//
// If interning fails, the returned batch is non-nil and carries the names
// interned so far, with no edges.
func Convert(doc *Document, in *Interner) (*Batch, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	b := &Batch{
		Edges:    make([]graph.Edge, 0, len(doc.Relationships)),
		NewNames: make(map[graph.NodeID]string),
		Entities: len(doc.Entities),
	}
	intern := func(name string) (graph.NodeID, error) {
		id, fresh, err := in.Intern(name)
		if err != nil {
			return 0, err
		}
		if fresh {
			b.NewNames[id] = name
		}
		return id, nil
	}

	for _, e := range doc.Entities {
		if _, err := intern(e.Name); err != nil {
			return b, err
		}
	}
	for i, r := range doc.Relationships {
		from, err := intern(r.Source)
		if err != nil {
			b.Edges = b.Edges[:0]
			return b, fmt.Errorf("relationship %d: %w", i, err)
		}
		to, err := intern(r.Target)
		if err != nil {
			b.Edges = b.Edges[:0]
			return b, fmt.Errorf("relationship %d: %w", i, err)
		}
		b.Edges = append(b.Edges, graph.Edge{From: from, To: to, Weight: r.Weight()})
	}
	return b, nil
}

// Import converts doc and inserts its edges into sink.
//
// Outputs:
//
//	int - Edges inserted before any error.
//	error - ErrInvalidDocument, or the sink's error wrapped with the
//	failing relationship index.
func Import(doc *Document, in *Interner, sink Sink) (int, error) {
	b, err := Convert(doc, in)
	if err != nil {
		return 0, err
	}
	for i, e := range b.Edges {
		if err := sink.AddEdge(e.From, e.To, e.Weight); err != nil {
			return i, fmt.Errorf("relationship %d: %w", i, err)
		}
	}
	return len(b.Edges), nil
}

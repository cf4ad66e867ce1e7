// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest turns knowledge-graph documents into weighted edges.
//
// A document is JSON with named entities and typed relationships between
// them. Entity names are interned to dense node ids; a relationship with
// confidence c becomes an edge of weight 1/c, so confident links are
// short. The package also generates synthetic documents for benchmarks
// and watches document files for appended relationships.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalidDocument is returned for documents that cannot be imported.
var ErrInvalidDocument = errors.New("invalid document")

var validate = validator.New()

// Entity is a named thing in the knowledge graph.
type Entity struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Relationship is a directed link from Source to Target.
//
// Confidence is in [0, 1]. Zero means unspecified.
type Relationship struct {
	Source     string  `json:"source" validate:"required"`
	Target     string  `json:"target" validate:"required"`
	Type       string  `json:"type,omitempty"`
	Confidence float64 `json:"confidence,omitempty" validate:"gte=0,lte=1"`
	Context    string  `json:"context,omitempty"`
}

// Weight is the edge weight for this relationship: 1/Confidence, or 1
// when confidence is unspecified.
func (r Relationship) Weight() float32 {
	if r.Confidence <= 0 {
		return 1
	}
	return float32(1 / r.Confidence)
}

// Document is one knowledge-graph file.
type Document struct {
	// ID identifies the document in logs. Assigned on parse if absent.
	ID string `json:"id,omitempty"`

	Entities      []Entity       `json:"entities" validate:"dive"`
	Relationships []Relationship `json:"relationships" validate:"dive"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Validate checks required names and confidence ranges.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	for i, r := range d.Relationships {
		if math.IsNaN(r.Confidence) {
			return fmt.Errorf("%w: relationship %d has NaN confidence", ErrInvalidDocument, i)
		}
	}
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// Parse decodes and validates a document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	return &doc, nil
}

// LoadFile parses the document at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Encode writes the document as indented JSON.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// WriteFile saves the document at path, replacing any existing file.
func (d *Document) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if err := d.Encode(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close document: %w", err)
	}
	return os.Rename(tmp, path)
}

// Merge combines documents. Entities are unioned by name with the first
// occurrence kept; relationships are concatenated in order.
func Merge(docs ...*Document) *Document {
	out := &Document{ID: uuid.NewString(), Metadata: map[string]any{"merged_from": len(docs)}}
	seen := make(map[string]struct{})
	for _, d := range docs {
		if d == nil {
			continue
		}
		for _, e := range d.Entities {
			if _, ok := seen[e.Name]; ok {
				continue
			}
			seen[e.Name] = struct{}{}
			out.Entities = append(out.Entities, e)
		}
		out.Relationships = append(out.Relationships, d.Relationships...)
	}
	return out
}

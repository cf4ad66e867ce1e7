// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package frontier is the FrontierGraph database and its HTTP API.
//
// A Database owns one graph.Store and serializes insertions against
// queries with a read/write lock. Inserted edges and entity names can be
// journaled to BadgerDB and replayed on open. Query results are cached per
// graph generation; any insertion starts a new generation.
package frontier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/FrontierGraph/services/frontier/cache"
	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/AleutianAI/FrontierGraph/services/frontier/heuristic"
	"github.com/AleutianAI/FrontierGraph/services/frontier/ingest"
	edgestore "github.com/AleutianAI/FrontierGraph/services/frontier/storage/badger"
	"github.com/AleutianAI/FrontierGraph/services/frontier/traversal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("frontier.db")

// =============================================================================
// Options
// =============================================================================

type options struct {
	logger        *slog.Logger
	store         []graph.StoreOption
	traversal     []traversal.Option
	cacheCapacity int
	persistence   *edgestore.DB
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStoreOptions passes capacity and assertion options to the store.
func WithStoreOptions(opts ...graph.StoreOption) Option {
	return func(o *options) {
		o.store = append(o.store, opts...)
	}
}

// WithTraversalOptions passes tuning options to the query engine.
func WithTraversalOptions(opts ...traversal.Option) Option {
	return func(o *options) {
		o.traversal = append(o.traversal, opts...)
	}
}

// WithCache enables the query result cache. Zero or negative disables it.
func WithCache(capacity int) Option {
	return func(o *options) {
		o.cacheCapacity = capacity
	}
}

// WithPersistence journals insertions to db and replays them on Open.
// The Database takes ownership of db and closes it on Close.
func WithPersistence(db *edgestore.DB) Option {
	return func(o *options) {
		o.persistence = db
	}
}

// =============================================================================
// Database
// =============================================================================

// Database is the owning session around one graph.
//
// Description:
//
//	Insertions take the write lock, bump the generation and journal the
//	change when persistence is enabled. Queries take the read lock for the
//	whole computation, so they always see a graph that is not changing.
//
// Thread Safety: Safe for concurrent use.
type Database struct {
	mu         sync.RWMutex
	store      *graph.Store
	engine     *traversal.Engine
	names      *ingest.Interner
	cache      *cache.QueryCache
	db         *edgestore.DB
	journal    *edgestore.EdgeLog
	generation uint64
	closed     bool
	logger     *slog.Logger
}

// Open creates a database, replaying the journal if persistence is set.
//
// Description:
//
//	Names are restored before edges so ids in the journal keep their
//	names. Replay re-inserts every edge in journal order, which rebuilds
//	identical adjacency lists.
//
// Outputs:
//
//	*Database - Ready database. Caller must Close it.
//	error - Invalid traversal options, or a journal read failure.
func Open(ctx context.Context, opts ...Option) (*Database, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	store := graph.NewStore(o.store...)
	engine, err := traversal.NewEngine(store, o.traversal...)
	if err != nil {
		return nil, err
	}
	engine.SetLogger(o.logger)

	d := &Database{
		store:  store,
		engine: engine,
		names:  ingest.NewInterner(),
		db:     o.persistence,
		logger: o.logger,
	}
	if o.cacheCapacity > 0 {
		d.cache = cache.NewQueryCache(o.cacheCapacity)
	}

	if d.db != nil {
		if err := d.replay(ctx); err != nil {
			if cerr := d.db.Close(); cerr != nil {
				d.logger.Warn("close after failed replay", "error", cerr)
			}
			return nil, err
		}
	}
	return d, nil
}

func (d *Database) replay(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Database.replay")
	defer span.End()
	start := time.Now()

	journal, err := edgestore.NewEdgeLog(d.db, d.logger)
	if err != nil {
		return err
	}

	names, err := journal.Names(ctx)
	if err != nil {
		return fmt.Errorf("replay names: %w", err)
	}
	for id, name := range names {
		if err := d.names.Restore(id, name); err != nil {
			return fmt.Errorf("replay names: %w", err)
		}
	}

	n, err := journal.Replay(ctx, func(e graph.Edge) error {
		d.names.Reserve(e.From)
		d.names.Reserve(e.To)
		return d.store.AddEdge(e.From, e.To, e.Weight)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replay failed")
		return fmt.Errorf("replay edges after %d: %w", n, err)
	}

	d.journal = journal
	d.generation = uint64(n)
	span.SetAttributes(attribute.Int("edges", n), attribute.Int("names", len(names)))
	d.logger.Info("edge journal replayed",
		"edges", n,
		"names", len(names),
		"nodes", d.store.NodeCount(),
		"duration", time.Since(start),
	)
	return nil
}

// Close stops accepting calls and closes the persistence store.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// =============================================================================
// Insertion
// =============================================================================

// AddEdge inserts a directed edge between numeric node ids.
//
// The edge is journaled after the store accepts it. A journal failure is
// returned, but the edge stays in memory.
func (d *Database) AddEdge(ctx context.Context, from, to graph.NodeID, weight float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	if err := d.store.AddEdge(from, to, weight); err != nil {
		return err
	}
	d.names.Reserve(from)
	d.names.Reserve(to)
	d.generation++
	return d.persist(ctx, []graph.Edge{{From: from, To: to, Weight: weight}}, nil)
}

// AddRelation inserts an edge between named entities, interning new names.
func (d *Database) AddRelation(ctx context.Context, fromName, toName string, weight float32) (graph.NodeID, graph.NodeID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, 0, ErrClosed
	}

	fresh := make(map[graph.NodeID]string, 2)
	from, isNew, err := d.names.Intern(fromName)
	if err != nil {
		return 0, 0, err
	}
	if isNew {
		fresh[from] = fromName
	}
	to, isNew, err := d.names.Intern(toName)
	if err == nil && isNew {
		fresh[to] = toName
	}
	if err == nil {
		err = d.store.AddEdge(from, to, weight)
	}
	if err != nil {
		// Names stay interned; journal them so ids are stable across restarts.
		if perr := d.persist(ctx, nil, fresh); perr != nil {
			d.logger.Warn("journal names failed", "error", perr)
		}
		return 0, 0, err
	}
	d.generation++
	return from, to, d.persist(ctx, []graph.Edge{{From: from, To: to, Weight: weight}}, fresh)
}

// ImportSummary reports what Import inserted.
type ImportSummary struct {
	DocumentID    string `json:"document_id"`
	Entities      int    `json:"entities"`
	NewEntities   int    `json:"new_entities"`
	Relationships int    `json:"relationships"`
	Inserted      int    `json:"inserted"`
}

// Import inserts every relationship of doc as an edge.
//
// Description:
//
//	Runs as one write-locked batch. If the store rejects an edge, the
//	edges before it stay inserted and journaled and the error is returned
//	with the summary of what was inserted.
func (d *Database) Import(ctx context.Context, doc *ingest.Document) (ImportSummary, error) {
	ctx, span := tracer.Start(ctx, "Database.Import")
	defer span.End()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ImportSummary{}, ErrClosed
	}

	batch, err := ingest.Convert(doc, d.names)
	if err != nil {
		if batch != nil {
			if perr := d.persist(ctx, nil, batch.NewNames); perr != nil {
				d.logger.Warn("journal names failed", "error", perr)
			}
		}
		return ImportSummary{DocumentID: doc.ID}, err
	}
	summary := ImportSummary{
		DocumentID:    doc.ID,
		Entities:      batch.Entities,
		NewEntities:   len(batch.NewNames),
		Relationships: len(batch.Edges),
	}

	var insertErr error
	for _, e := range batch.Edges {
		if insertErr = d.store.AddEdge(e.From, e.To, e.Weight); insertErr != nil {
			break
		}
		summary.Inserted++
	}
	if summary.Inserted > 0 {
		d.generation++
	}

	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.Int("relationships", summary.Relationships),
		attribute.Int("inserted", summary.Inserted),
	)

	if err := d.persist(ctx, batch.Edges[:summary.Inserted], batch.NewNames); err != nil {
		return summary, err
	}
	if insertErr != nil {
		span.RecordError(insertErr)
		span.SetStatus(codes.Error, "import incomplete")
		return summary, fmt.Errorf("import %s: relationship %d: %w", doc.ID, summary.Inserted, insertErr)
	}

	d.logger.Info("document imported",
		"document_id", doc.ID,
		"relationships", summary.Inserted,
		"new_entities", summary.NewEntities,
	)
	return summary, nil
}

// persist journals edges and names. Callers hold the write lock.
func (d *Database) persist(ctx context.Context, edges []graph.Edge, names map[graph.NodeID]string) error {
	if d.journal == nil || (len(edges) == 0 && len(names) == 0) {
		return nil
	}
	if err := d.journal.Append(ctx, edges, names); err != nil {
		d.logger.Error("edge journal append failed", "edges", len(edges), "error", err)
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// ShortestPaths answers a bounded shortest-path query.
//
// Outputs:
//
//	*traversal.PathResult - The result. When cached is true it is shared
//	  with other callers and must not be modified.
//	bool - True if served from cache or another caller's computation.
//	error - ErrClosed, traversal.ErrInvalidBound, graph.ErrUnknownNode.
func (d *Database) ShortestPaths(ctx context.Context, source graph.NodeID, bound float32) (*traversal.PathResult, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, false, ErrClosed
	}
	return d.query(ctx, source, bound)
}

// query runs or fetches one query. Callers hold at least the read lock.
func (d *Database) query(ctx context.Context, source graph.NodeID, bound float32) (*traversal.PathResult, bool, error) {
	if d.cache == nil {
		res, err := d.engine.Query(ctx, source, bound)
		return res, false, err
	}
	key := cache.NewKey(source, bound, d.generation)
	res, cached, err := d.cache.GetOrCompute(key, func() (*traversal.PathResult, error) {
		return d.engine.Query(ctx, source, bound)
	})
	if cached {
		trace.SpanFromContext(ctx).AddEvent("query cache hit",
			trace.WithAttributes(attribute.String("key", key.String())))
	}
	return res, cached, err
}

// Resolve returns the node id interned for name.
func (d *Database) Resolve(name string) (graph.NodeID, error) {
	id, ok := d.names.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return id, nil
}

// Name returns the entity name for id, or "" for unnamed nodes.
func (d *Database) Name(id graph.NodeID) string {
	name, _ := d.names.Name(id)
	return name
}

// Stats is a snapshot of database state.
type Stats struct {
	Graph      graph.Stats        `json:"graph"`
	Decision   heuristic.Decision `json:"decision"`
	Names      int                `json:"names"`
	Generation uint64             `json:"generation"`
	Journaled  uint64             `json:"journaled"`
	Persistent bool               `json:"persistent"`
	Cache      *cache.QueryStats  `json:"cache,omitempty"`
}

// Stats returns current counters.
func (d *Database) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Stats{
		Graph:      d.store.Stats(),
		Decision:   d.engine.Decide(),
		Names:      d.names.Len(),
		Generation: d.generation,
		Persistent: d.journal != nil,
	}
	if d.journal != nil {
		s.Journaled = d.journal.Len()
	}
	if d.cache != nil {
		cs := d.cache.Stats()
		s.Cache = &cs
	}
	return s
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log/slog"
	"math"
	"sync"

	"github.com/AleutianAI/FrontierGraph/services/frontier/graph"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("frontier.storage")

const (
	edgePrefix = "edge:"
	namePrefix = "name:"

	// edgeEntrySize is [crc32][from][to][weight bits], 4 bytes each.
	edgeEntrySize = 16

	// maxEntriesPerTxn keeps a single append below BadgerDB's txn limits.
	maxEntriesPerTxn = 1000
)

// EdgeLog is an append-only journal of inserted edges plus the entity-name
// table.
//
// Description:
//
//	Edges are stored under "edge:<seq>" with an 8-byte big-endian sequence
//	so that prefix iteration returns them in insertion order. Each value
//	carries a CRC32 of its payload. Replaying the log into an empty
//	graph.Store reproduces the original adjacency lists exactly, multi-edges
//	and insertion order included.
//
// Thread Safety:
//
//	Safe for concurrent use. Appends are serialized so sequence numbers are
//	assigned in commit order.
type EdgeLog struct {
	db     *DB
	logger *slog.Logger

	mu      sync.Mutex
	nextSeq uint64
}

// NewEdgeLog opens the journal stored in db.
//
// Description:
//
//	Finds the highest existing sequence number with a reverse prefix scan
//	so new appends continue after it. The caller keeps ownership of db.
func NewEdgeLog(db *DB, logger *slog.Logger) (*EdgeLog, error) {
	if db == nil {
		return nil, fmt.Errorf("edge log: db must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &EdgeLog{db: db, logger: logger}
	if err := l.initSeq(); err != nil {
		return nil, fmt.Errorf("edge log: scan sequence: %w", err)
	}
	return l, nil
}

func (l *EdgeLog) initSeq() error {
	prefix := []byte(edgePrefix)
	return l.db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seek)
		if it.ValidForPrefix(prefix) {
			key := it.Item().Key()
			if len(key) == len(prefix)+8 {
				l.nextSeq = binary.BigEndian.Uint64(key[len(prefix):]) + 1
			}
		}
		return nil
	})
}

// Len returns the number of edges appended so far.
func (l *EdgeLog) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq
}

// Append journals edges and entity names.
//
// Description:
//
//	Writes in transactions of at most maxEntriesPerTxn entries. Names
//	overwrite any previous name for the same id. On error, entries from
//	already committed transactions stay in the log.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	edges - Edges in insertion order.
//	names - Optional id -> entity name entries. May be nil.
func (l *EdgeLog) Append(ctx context.Context, edges []graph.Edge, names map[graph.NodeID]string) error {
	ctx, span := tracer.Start(ctx, "EdgeLog.Append",
		trace.WithAttributes(
			attribute.Int("edges", len(edges)),
			attribute.Int("names", len(names)),
		),
	)
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	for start := 0; start < len(edges); start += maxEntriesPerTxn {
		end := min(start+maxEntriesPerTxn, len(edges))
		chunk := edges[start:end]
		seq := l.nextSeq

		err := l.db.WithTxn(ctx, func(txn *badger.Txn) error {
			for i, e := range chunk {
				if err := txn.Set(edgeKey(seq+uint64(i)), encodeEdge(e)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "edge write failed")
			return fmt.Errorf("append edges at seq %d: %w", seq, err)
		}
		l.nextSeq += uint64(len(chunk))
	}

	if len(names) > 0 {
		ids := make([]graph.NodeID, 0, len(names))
		for id := range names {
			ids = append(ids, id)
		}
		for start := 0; start < len(ids); start += maxEntriesPerTxn {
			chunk := ids[start:min(start+maxEntriesPerTxn, len(ids))]
			err := l.db.WithTxn(ctx, func(txn *badger.Txn) error {
				for _, id := range chunk {
					if err := txn.Set(nameKey(id), []byte(names[id])); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "name write failed")
				return fmt.Errorf("append names: %w", err)
			}
		}
	}

	l.logger.Debug("edge log appended",
		slog.Int("edges", len(edges)),
		slog.Int("names", len(names)),
		slog.Uint64("next_seq", l.nextSeq))
	return nil
}

// Replay calls fn for every journaled edge in insertion order.
//
// Outputs:
//
//	int - Number of edges delivered to fn.
//	error - ErrCorrupted for a damaged entry, fn's error, or a read error.
//	  Replay stops at the first error.
func (l *EdgeLog) Replay(ctx context.Context, fn func(graph.Edge) error) (int, error) {
	ctx, span := tracer.Start(ctx, "EdgeLog.Replay")
	defer span.End()

	count := 0
	prefix := []byte(edgePrefix)
	err := l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var e graph.Edge
			err := item.Value(func(val []byte) error {
				var derr error
				e, derr = decodeEdge(val)
				return derr
			})
			if err != nil {
				return fmt.Errorf("key %x: %w", item.Key(), err)
			}
			if err := fn(e); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replay failed")
		return count, err
	}

	span.SetAttributes(attribute.Int("edges", count))
	return count, nil
}

// Names returns the stored entity-name table.
func (l *EdgeLog) Names(ctx context.Context) (map[graph.NodeID]string, error) {
	names := make(map[graph.NodeID]string)
	prefix := []byte(namePrefix)
	err := l.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != len(prefix)+4 {
				return fmt.Errorf("%w: name key %x", ErrCorrupted, key)
			}
			id := graph.NodeID(binary.BigEndian.Uint32(key[len(prefix):]))
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			names[id] = string(val)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func edgeKey(seq uint64) []byte {
	key := make([]byte, len(edgePrefix)+8)
	copy(key, edgePrefix)
	binary.BigEndian.PutUint64(key[len(edgePrefix):], seq)
	return key
}

func nameKey(id graph.NodeID) []byte {
	key := make([]byte, len(namePrefix)+4)
	copy(key, namePrefix)
	binary.BigEndian.PutUint32(key[len(namePrefix):], uint32(id))
	return key
}

func encodeEdge(e graph.Edge) []byte {
	buf := make([]byte, edgeEntrySize)
	binary.BigEndian.PutUint32(buf[4:8], uint32(e.From))
	binary.BigEndian.PutUint32(buf[8:12], uint32(e.To))
	binary.BigEndian.PutUint32(buf[12:16], math.Float32bits(e.Weight))
	binary.BigEndian.PutUint32(buf[0:4], crc32.ChecksumIEEE(buf[4:]))
	return buf
}

func decodeEdge(buf []byte) (graph.Edge, error) {
	if len(buf) != edgeEntrySize {
		return graph.Edge{}, fmt.Errorf("%w: %d bytes", ErrCorrupted, len(buf))
	}
	stored := binary.BigEndian.Uint32(buf[0:4])
	if computed := crc32.ChecksumIEEE(buf[4:]); stored != computed {
		return graph.Edge{}, fmt.Errorf("%w: stored=%08x computed=%08x", ErrCorrupted, stored, computed)
	}
	return graph.Edge{
		From:   graph.NodeID(binary.BigEndian.Uint32(buf[4:8])),
		To:     graph.NodeID(binary.BigEndian.Uint32(buf[8:12])),
		Weight: math.Float32frombits(binary.BigEndian.Uint32(buf[12:16])),
	}, nil
}

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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Handler receives the part of a document not yet imported and returns how
// many of its relationships were applied, counted from the start, even when
// it also returns an error.
type Handler func(ctx context.Context, doc *Document) (int, error)

// Watcher re-imports a document file whenever it changes.
//
// Description:
//
//	Inserting an edge twice adds a parallel edge, so re-importing a whole
//	file would double it. The watcher remembers how many relationships the
//	handler has applied and passes only the tail on each change,
//	along with the full entity list. A file that shrinks resets the count
//	without importing anything.
//
//	The parent directory is watched rather than the file so editors that
//	replace files by rename are still seen.
//
// Thread Safety: Sync and Run may be called concurrently; syncs are
// serialized.
type Watcher struct {
	path     string
	handler  Handler
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	imported int
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger. Default: slog.Default().
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDebounce sets the settle window. Default: DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for the document at path.
func NewWatcher(path string, handler Handler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		handler:  handler,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Imported returns how many relationships the handler has applied.
func (w *Watcher) Imported() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.imported
}

// Sync loads the file and hands new relationships to the handler.
//
// Outputs:
//
//	int - Relationships applied by this call.
//	error - Load or handler error. On a handler error the count still
//	  advances past the relationships the handler reported as applied, so
//	  they are not applied twice.
func (w *Watcher) Sync(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, err := LoadFile(w.path)
	if err != nil {
		return 0, err
	}

	total := len(doc.Relationships)
	if total < w.imported {
		w.logger.Warn("document shrank, resetting import offset",
			"path", w.path, "was", w.imported, "now", total)
		w.imported = total
		return 0, nil
	}
	if total == w.imported {
		return 0, nil
	}

	tail := &Document{
		ID:            doc.ID,
		Entities:      doc.Entities,
		Relationships: doc.Relationships[w.imported:],
		Metadata:      doc.Metadata,
	}
	n, err := w.handler(ctx, tail)
	n = max(0, min(n, len(tail.Relationships)))
	w.imported += n
	if err != nil {
		return n, fmt.Errorf("import %s: %w", w.path, err)
	}
	w.logger.Info("document imported", "path", w.path, "relationships", n, "total", total)
	return n, nil
}

// Run syncs once, then on every change until ctx is cancelled.
//
// Sync errors after the first are logged and do not stop the watcher;
// a half-written file is retried on the next event.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	if _, err := w.Sync(ctx); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if _, err := w.Sync(ctx); err != nil {
				w.logger.Warn("document sync failed", "path", w.path, "error", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "path", w.path, "error", err)
		}
	}
}

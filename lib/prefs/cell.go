// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package prefs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/parley-foundation/parley/lib/codec"
)

// WatcherChannelSize is the buffer size for per-watcher update
// channels. Preference cells change rarely (the pending legal-hold
// request cell changes a handful of times per request lifecycle), so
// a small buffer absorbs any realistic burst. If a watcher's channel
// is full, the update is dropped and the watcher's Missed flag is set.
const WatcherChannelSize = 16

// Update is a single change notification from a cell. Present is
// false when the cell was deleted; Value is the zero value in that
// case.
type Update[T any] struct {
	Value   T
	Present bool
}

// Watcher receives change notifications for a cell. Read updates from
// C. A watcher that falls behind has updates dropped and Missed set —
// it should re-read the cell with Get rather than trust its channel
// history. Call Close to unregister.
type Watcher[T any] struct {
	// C delivers updates in write order.
	C <-chan Update[T]

	// Missed is set when an update was dropped because C was full.
	Missed atomic.Bool

	cell *Cell[T]
	ch   chan Update[T]
	once sync.Once
}

// Close unregisters the watcher. After Close, C stops receiving
// updates and is eventually closed. Idempotent.
func (w *Watcher[T]) Close() {
	w.once.Do(func() {
		w.cell.unregister(w)
		close(w.ch)
	})
}

// Cell is a persisted, observable single-value preference. A cell is
// the process-wide handle for its key: create it once during client
// assembly and share it — watchers registered on one handle do not
// see writes made through a different handle for the same key.
//
// Values are CBOR-encoded via lib/codec; the zero value of T plus
// present=false represents "unset". Cell is safe for concurrent use.
type Cell[T any] struct {
	store *Store
	key   string

	mu       sync.Mutex
	watchers []*Watcher[T]
}

// NewCell binds a cell to a key in the store. The key must be unique
// per logical preference; the convention is a dotted path such as
// "legalhold.request".
func NewCell[T any](store *Store, key string) *Cell[T] {
	return &Cell[T]{store: store, key: key}
}

// Get reads the current value. The second return value is false when
// the cell is unset; the first is then the zero value of T.
func (c *Cell[T]) Get(ctx context.Context) (T, bool, error) {
	var value T

	data, present, err := c.store.getRaw(ctx, c.key)
	if err != nil {
		return value, false, err
	}
	if !present {
		return value, false, nil
	}

	if err := codec.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("prefs: decoding %q: %w", c.key, err)
	}
	return value, true, nil
}

// Set persists a new value, overwriting any previous one, and
// notifies watchers.
func (c *Cell[T]) Set(ctx context.Context, value T) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("prefs: encoding %q: %w", c.key, err)
	}
	if err := c.store.setRaw(ctx, c.key, data); err != nil {
		return err
	}
	c.notify(Update[T]{Value: value, Present: true})
	return nil
}

// Delete clears the cell and notifies watchers with present=false.
// Deleting an unset cell is a no-op apart from the notification.
func (c *Cell[T]) Delete(ctx context.Context) error {
	if err := c.store.deleteRaw(ctx, c.key); err != nil {
		return err
	}
	c.notify(Update[T]{})
	return nil
}

// Watch registers a new watcher for the cell. The watcher only sees
// changes made after registration; callers wanting the current value
// should Get after Watch (not before, or a write in the gap is lost).
func (c *Cell[T]) Watch() *Watcher[T] {
	ch := make(chan Update[T], WatcherChannelSize)
	watcher := &Watcher[T]{C: ch, ch: ch, cell: c}

	c.mu.Lock()
	c.watchers = append(c.watchers, watcher)
	c.mu.Unlock()
	return watcher
}

// notify fans an update out to all watchers. Non-blocking: a full
// watcher channel drops the update and sets Missed.
func (c *Cell[T]) notify(update Update[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, watcher := range c.watchers {
		select {
		case watcher.ch <- update:
		default:
			watcher.Missed.Store(true)
		}
	}
}

// unregister removes a watcher from the fanout list.
func (c *Cell[T]) unregister(target *Watcher[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, watcher := range c.watchers {
		if watcher == target {
			c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
			return
		}
	}
}

// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package legalhold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/parley-foundation/parley/lib/ref"
)

// LifecycleEvent is a legal-hold lifecycle marker from the sync
// stream. Events address a user; the dispatcher only acts on events
// for the local user — the authoritative hold status of other users
// comes from device discovery, not from lifecycle markers.
type LifecycleEvent interface {
	// EventUser is the user the event addresses.
	EventUser() ref.UserID
}

// RequestEvent asks the addressed user to approve a legal hold
// through the named device.
type RequestEvent struct {
	UserID     ref.UserID
	ClientID   ref.ClientID
	LastPrekey string
}

// EventUser implements [LifecycleEvent].
func (e RequestEvent) EventUser() ref.UserID { return e.UserID }

// EnableEvent marks the addressed user's legal hold as active.
type EnableEvent struct {
	UserID ref.UserID
}

// EventUser implements [LifecycleEvent].
func (e EnableEvent) EventUser() ref.UserID { return e.UserID }

// DisableEvent marks the addressed user's legal hold as lifted.
type DisableEvent struct {
	UserID ref.UserID
}

// EventUser implements [LifecycleEvent].
func (e DisableEvent) EventUser() ref.UserID { return e.UserID }

// MessageHint is a per-message annotation claiming the legal-hold
// status of its conversation. Hints are corroboration only: a hint
// that disagrees with the materialized flag triggers a recompute, it
// never writes the flag directly.
type MessageHint struct {
	ConvID    ref.ConvID
	LegalHold bool
}

// BatchError reports the failed events of a lifecycle batch. The
// batch never aborts: every event is processed and the failures are
// collected by batch index.
type BatchError struct {
	// Failures maps batch index to the event's error.
	Failures map[int]error
}

func (e *BatchError) Error() string {
	indexes := make([]int, 0, len(e.Failures))
	for index := range e.Failures {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	var b strings.Builder
	fmt.Fprintf(&b, "legalhold: %d of batch failed:", len(e.Failures))
	for _, index := range indexes {
		fmt.Fprintf(&b, " [%d] %v;", index, e.Failures[index])
	}
	return strings.TrimSuffix(b.String(), ";")
}

// DispatcherConfig holds the collaborators of the event dispatcher.
type DispatcherConfig struct {
	// SelfUser is the local user. Lifecycle events for anyone else
	// are no-ops. Required.
	SelfUser ref.UserID

	// Requests is the pending-request store. Required.
	Requests *RequestStore

	// Engine answers flag queries and runs recomputes. Required.
	Engine *Engine

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Dispatcher feeds event batches from the sync layer into the
// legal-hold subsystem.
type Dispatcher struct {
	selfUser ref.UserID
	requests *RequestStore
	engine   *Engine
	logger   *slog.Logger
}

// NewDispatcher creates the event dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.SelfUser.IsZero() {
		return nil, fmt.Errorf("legalhold: dispatcher: SelfUser is required")
	}
	if cfg.Requests == nil {
		return nil, fmt.Errorf("legalhold: dispatcher: Requests is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("legalhold: dispatcher: Engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		selfUser: cfg.SelfUser,
		requests: cfg.Requests,
		engine:   cfg.Engine,
		logger:   logger,
	}, nil
}

// ProcessLifecycle applies a batch of lifecycle events. Events are
// independent and processed concurrently; a failing event never stops
// the others. When any event fails the returned error is a
// [*BatchError] naming the failed indexes.
func (d *Dispatcher) ProcessLifecycle(ctx context.Context, events []LifecycleEvent) error {
	if len(events) == 0 {
		return nil
	}

	failures := make([]error, len(events))
	var wg sync.WaitGroup
	for index, event := range events {
		wg.Add(1)
		go func() {
			defer wg.Done()
			failures[index] = d.processOne(ctx, event)
		}()
	}
	wg.Wait()

	batchFailures := make(map[int]error)
	for index, err := range failures {
		if err != nil {
			batchFailures[index] = err
		}
	}
	if len(batchFailures) == 0 {
		return nil
	}
	return &BatchError{Failures: batchFailures}
}

// processOne applies a single lifecycle event.
func (d *Dispatcher) processOne(ctx context.Context, event LifecycleEvent) error {
	if event.EventUser() != d.selfUser {
		return nil
	}

	switch event := event.(type) {
	case RequestEvent:
		d.logger.Info("legal hold requested",
			"client_id", event.ClientID.String(),
		)
		return d.requests.Store(ctx, Request{
			ClientID:   event.ClientID,
			LastPrekey: event.LastPrekey,
		})
	case EnableEvent:
		// Enablement means the backend considers the hold active — the
		// request is no longer actionable. The hold status itself comes
		// from device discovery.
		d.logger.Info("legal hold enabled")
		return d.requests.Delete(ctx)
	case DisableEvent:
		d.logger.Info("legal hold disabled")
		return d.requests.Delete(ctx)
	default:
		return fmt.Errorf("legalhold: unknown lifecycle event %T", event)
	}
}

// ProcessHints checks a batch of message hints against the
// materialized flags. Each conversation whose hint disagrees with its
// flag is recomputed once; agreeing hints are no-ops. Failures are
// collected, never aborting the batch.
func (d *Dispatcher) ProcessHints(ctx context.Context, hints []MessageHint) error {
	recomputed := make(map[ref.ConvID]bool)

	var failures []error
	for _, hint := range hints {
		if recomputed[hint.ConvID] {
			continue
		}

		flagged, err := d.engine.ConversationUnderLegalHold(ctx, hint.ConvID)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if flagged == hint.LegalHold {
			continue
		}

		d.logger.Info("message hint disagrees with flag, recomputing",
			"conv_id", hint.ConvID.String(),
			"hint", hint.LegalHold,
			"flag", flagged,
		)
		recomputed[hint.ConvID] = true
		if err := d.engine.RecomputeForConversations(ctx, hint.ConvID); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package legalhold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/parley-foundation/parley/directory"
	"github.com/parley-foundation/parley/lib/ref"
)

// EngineConfig holds the collaborators of the status engine.
type EngineConfig struct {
	// Devices is the device directory. Required.
	Devices *directory.Devices

	// Members is the membership directory. Required.
	Members *directory.Members

	// Conversations is the conversation directory owning the
	// materialized flag. Required.
	Conversations *directory.Conversations

	// Gate suppresses incremental triggers during bulk resync. If
	// nil, the engine creates its own.
	Gate *ResyncGate

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Engine maintains the per-conversation legal-hold flag: conversation
// c is flagged exactly when some active member of c owns a legal-hold
// device. The flag is recomputed, never incrementally patched — a
// recompute is cheap (one membership read plus one device read per
// participant) and immune to drift.
//
// Start wires the engine to the directory change streams; every
// device change and every membership change triggers a recompute of
// the affected conversations, unless the resync gate is held.
type Engine struct {
	devices       *directory.Devices
	members       *directory.Members
	conversations *directory.Conversations
	gate          *ResyncGate
	logger        *slog.Logger

	deviceSub *directory.Subscription[directory.DeviceChange]
	joinSub   *directory.Subscription[directory.MembershipChange]
	leaveSub  *directory.Subscription[directory.MembershipChange]

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewEngine creates the status engine. Call Start to begin processing
// directory changes.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Devices == nil {
		return nil, fmt.Errorf("legalhold: engine: Devices is required")
	}
	if cfg.Members == nil {
		return nil, fmt.Errorf("legalhold: engine: Members is required")
	}
	if cfg.Conversations == nil {
		return nil, fmt.Errorf("legalhold: engine: Conversations is required")
	}
	gate := cfg.Gate
	if gate == nil {
		gate = &ResyncGate{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		devices:       cfg.Devices,
		members:       cfg.Members,
		conversations: cfg.Conversations,
		gate:          gate,
		logger:        logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// Gate returns the engine's resync gate.
func (e *Engine) Gate() *ResyncGate { return e.gate }

// Start subscribes to the directory change streams and launches the
// trigger loop. All recomputes run on the loop goroutine; ctx bounds
// their directory operations. Call Close to stop.
func (e *Engine) Start(ctx context.Context) {
	e.deviceSub = e.devices.Watch()
	e.joinSub = e.members.WatchJoins()
	e.leaveSub = e.members.WatchLeaves()

	go e.run(ctx)
}

// Close stops the trigger loop and unsubscribes from the directories.
// Blocks until the loop has drained. Idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.stop)
		<-e.done
		e.deviceSub.Close()
		e.joinSub.Close()
		e.leaveSub.Close()
	})
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	for {
		// An overflowed subscription means missed triggers: the cheap
		// repair is a full recompute, same as after a resync.
		if e.deviceSub.Missed.Swap(false) || e.joinSub.Missed.Swap(false) || e.leaveSub.Missed.Swap(false) {
			if !e.gate.Held() {
				e.logger.Warn("trigger stream overflowed, recomputing all conversations")
				if err := e.RecomputeAllConversations(ctx); err != nil {
					e.logger.Error("full recompute after overflow failed", "error", err)
				}
			}
		}

		select {
		case <-e.stop:
			return
		case <-ctx.Done():
			return
		case change := <-e.deviceSub.C:
			e.trigger(ctx, "device change", func() error {
				return e.RecomputeForUsers(ctx, change.UserID)
			})
		case change := <-e.joinSub.C:
			e.trigger(ctx, "membership join", func() error {
				return e.RecomputeForConversations(ctx, change.ConvID)
			})
		case change := <-e.leaveSub.C:
			e.trigger(ctx, "membership leave", func() error {
				return e.RecomputeForConversations(ctx, change.ConvID)
			})
		}
	}
}

// trigger runs one incremental recompute unless the gate is held.
// Trigger errors are logged, not fatal: the next trigger or resync
// repairs the flags.
func (e *Engine) trigger(ctx context.Context, cause string, recompute func() error) {
	if e.gate.Held() {
		return
	}
	if err := recompute(); err != nil {
		e.logger.Error("recompute trigger failed", "cause", cause, "error", err)
	}
}

// Resync runs a caller-provided authoritative refresh with the gate
// held, then recomputes every conversation. The refresh replaces
// directory state wholesale (devices, membership) from the backend;
// holding the gate keeps the flood of individual change notices from
// triggering per-change recomputes against half-replaced state.
func (e *Engine) Resync(ctx context.Context, refresh func(context.Context) error) error {
	e.gate.Begin()
	err := refresh(ctx)
	e.gate.End()
	if err != nil {
		return fmt.Errorf("legalhold: resync refresh: %w", err)
	}
	return e.RecomputeAllConversations(ctx)
}

// UserUnderLegalHold reports whether the user owns at least one
// legal-hold device.
func (e *Engine) UserUnderLegalHold(ctx context.Context, userID ref.UserID) (bool, error) {
	devices, err := e.devices.Devices(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("legalhold: checking user %s: %w", userID, err)
	}
	for _, device := range devices {
		if device.IsLegalHold() {
			return true, nil
		}
	}
	return false, nil
}

// ConversationUnderLegalHold reports the conversation's materialized
// flag. An unknown conversation is not under legal hold.
func (e *Engine) ConversationUnderLegalHold(ctx context.Context, convID ref.ConvID) (bool, error) {
	conv, found, err := e.conversations.Get(ctx, convID)
	if err != nil {
		return false, fmt.Errorf("legalhold: checking conversation %s: %w", convID, err)
	}
	return found && conv.LegalHold, nil
}

// LegalHoldParticipants returns the active members of the conversation
// that are under legal hold, in membership order.
func (e *Engine) LegalHoldParticipants(ctx context.Context, convID ref.ConvID) ([]ref.UserID, error) {
	users, err := e.members.ActiveUsers(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("legalhold: participants of %s: %w", convID, err)
	}

	var held []ref.UserID
	for _, userID := range users {
		underHold, err := e.UserUnderLegalHold(ctx, userID)
		if err != nil {
			return nil, err
		}
		if underHold {
			held = append(held, userID)
		}
	}
	return held, nil
}

// RecomputeForUsers recomputes the flag of every conversation any of
// the given users is an active member of.
func (e *Engine) RecomputeForUsers(ctx context.Context, userIDs ...ref.UserID) error {
	seen := make(map[ref.UserID]bool, len(userIDs))
	var convs []ref.ConvID
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true

		userConvs, err := e.members.ActiveConversations(ctx, userID)
		if err != nil {
			return fmt.Errorf("legalhold: conversations of %s: %w", userID, err)
		}
		convs = append(convs, userConvs...)
	}
	return e.RecomputeForConversations(ctx, convs...)
}

// RecomputeForConversations re-derives and writes the flag for each
// conversation. Duplicates are recomputed once. A failing conversation
// does not stop the others: all failures are joined into the returned
// error.
func (e *Engine) RecomputeForConversations(ctx context.Context, convIDs ...ref.ConvID) error {
	seen := make(map[ref.ConvID]bool, len(convIDs))
	// Device lookups repeat across conversations that share members;
	// one batch shares the answers.
	userHeld := make(map[ref.UserID]bool)

	var failures []error
	for _, convID := range convIDs {
		if seen[convID] {
			continue
		}
		seen[convID] = true

		if err := e.recomputeOne(ctx, convID, userHeld); err != nil {
			e.logger.Error("recompute failed", "conv_id", convID.String(), "error", err)
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

// RecomputeAllConversations recomputes the flag of every conversation
// with at least one active member.
func (e *Engine) RecomputeAllConversations(ctx context.Context) error {
	convs, err := e.members.AllConversations(ctx)
	if err != nil {
		return fmt.Errorf("legalhold: listing conversations: %w", err)
	}
	return e.RecomputeForConversations(ctx, convs...)
}

// recomputeOne derives and writes one conversation's flag. userHeld
// caches per-user hold status across a batch.
func (e *Engine) recomputeOne(ctx context.Context, convID ref.ConvID, userHeld map[ref.UserID]bool) error {
	users, err := e.members.ActiveUsers(ctx, convID)
	if err != nil {
		return fmt.Errorf("legalhold: members of %s: %w", convID, err)
	}

	flagged := false
	for _, userID := range users {
		held, cached := userHeld[userID]
		if !cached {
			held, err = e.UserUnderLegalHold(ctx, userID)
			if err != nil {
				return err
			}
			userHeld[userID] = held
		}
		if held {
			flagged = true
			break
		}
	}

	if err := e.conversations.SetLegalHold(ctx, convID, flagged); err != nil {
		return fmt.Errorf("legalhold: writing flag of %s: %w", convID, err)
	}
	return nil
}

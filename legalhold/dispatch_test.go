// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package legalhold

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parley-foundation/parley/directory"
	"github.com/parley-foundation/parley/lib/ref"
	"github.com/parley-foundation/parley/lib/testutil"
)

func newDispatcher(t *testing.T, h *harness, selfUser ref.UserID) *Dispatcher {
	t.Helper()
	engine, err := NewEngine(EngineConfig{
		Devices:       h.devices,
		Members:       h.members,
		Conversations: h.conversations,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	dispatcher, err := NewDispatcher(DispatcherConfig{
		SelfUser: selfUser,
		Requests: h.requests,
		Engine:   engine,
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return dispatcher
}

func TestProcessLifecycle(t *testing.T) {
	ctx := context.Background()
	alice := mustUser(t, "alice")
	bob := mustUser(t, "bob")

	t.Run("request event stores pending request", func(t *testing.T) {
		h := newHarness(t)
		dispatcher := newDispatcher(t, h, alice)

		clientID := mustClient(t, "0a0a0a0a")
		err := dispatcher.ProcessLifecycle(ctx, []LifecycleEvent{
			RequestEvent{UserID: alice, ClientID: clientID, LastPrekey: "cHJla2V5"},
		})
		if err != nil {
			t.Fatalf("ProcessLifecycle: %v", err)
		}

		request, pending, err := h.requests.Pending(ctx)
		if err != nil {
			t.Fatalf("Pending: %v", err)
		}
		if !pending || request.ClientID != clientID || request.LastPrekey != "cHJla2V5" {
			t.Errorf("stored request: %+v pending=%v", request, pending)
		}
	})

	t.Run("foreign user events are no-ops", func(t *testing.T) {
		h := newHarness(t)
		dispatcher := newDispatcher(t, h, alice)

		err := dispatcher.ProcessLifecycle(ctx, []LifecycleEvent{
			RequestEvent{UserID: bob, ClientID: mustClient(t, "0b0b0b0b"), LastPrekey: "cHJla2V5"},
			EnableEvent{UserID: bob},
			DisableEvent{UserID: bob},
		})
		if err != nil {
			t.Fatalf("ProcessLifecycle: %v", err)
		}

		_, pending, err := h.requests.Pending(ctx)
		if err != nil {
			t.Fatalf("Pending: %v", err)
		}
		if pending {
			t.Error("foreign request event stored a pending request")
		}
	})

	t.Run("enable clears pending request", func(t *testing.T) {
		h := newHarness(t)
		dispatcher := newDispatcher(t, h, alice)

		if err := h.requests.Store(ctx, Request{ClientID: mustClient(t, "0a0a0a0a")}); err != nil {
			t.Fatalf("Store: %v", err)
		}
		if err := dispatcher.ProcessLifecycle(ctx, []LifecycleEvent{EnableEvent{UserID: alice}}); err != nil {
			t.Fatalf("ProcessLifecycle: %v", err)
		}
		_, pending, err := h.requests.Pending(ctx)
		if err != nil {
			t.Fatalf("Pending: %v", err)
		}
		if pending {
			t.Error("enable event left the request pending")
		}
	})

	t.Run("disable clears pending request", func(t *testing.T) {
		h := newHarness(t)
		dispatcher := newDispatcher(t, h, alice)

		if err := h.requests.Store(ctx, Request{ClientID: mustClient(t, "0a0a0a0a")}); err != nil {
			t.Fatalf("Store: %v", err)
		}
		if err := dispatcher.ProcessLifecycle(ctx, []LifecycleEvent{DisableEvent{UserID: alice}}); err != nil {
			t.Fatalf("ProcessLifecycle: %v", err)
		}
		_, pending, err := h.requests.Pending(ctx)
		if err != nil {
			t.Fatalf("Pending: %v", err)
		}
		if pending {
			t.Error("disable event left the request pending")
		}
	})

	t.Run("batch partial failure", func(t *testing.T) {
		h := newHarness(t)
		dispatcher := newDispatcher(t, h, alice)

		clientID := mustClient(t, "0a0a0a0a")
		err := dispatcher.ProcessLifecycle(ctx, []LifecycleEvent{
			RequestEvent{UserID: alice, ClientID: clientID, LastPrekey: "cHJla2V5"},
			RequestEvent{UserID: alice}, // no client ID: fails validation
			EnableEvent{UserID: bob},    // foreign: no-op, succeeds
		})

		var batchErr *BatchError
		if !errors.As(err, &batchErr) {
			t.Fatalf("expected *BatchError, got %v", err)
		}
		if len(batchErr.Failures) != 1 {
			t.Fatalf("failures: %v", batchErr.Failures)
		}
		if _, failed := batchErr.Failures[1]; !failed {
			t.Errorf("expected index 1 to fail, got %v", batchErr.Failures)
		}

		// The surviving events were fully applied.
		request, pending, err := h.requests.Pending(ctx)
		if err != nil {
			t.Fatalf("Pending: %v", err)
		}
		if !pending || request.ClientID != clientID {
			t.Errorf("event 0 not applied: %+v pending=%v", request, pending)
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		h := newHarness(t)
		dispatcher := newDispatcher(t, h, alice)
		if err := dispatcher.ProcessLifecycle(ctx, nil); err != nil {
			t.Fatalf("ProcessLifecycle(nil): %v", err)
		}
	})
}

func TestProcessHints(t *testing.T) {
	ctx := context.Background()
	alice := mustUser(t, "alice")
	standup := mustConv(t, "conv-standup")

	h := newHarness(t)
	dispatcher := newDispatcher(t, h, alice)

	// Alice is under hold but the flag was never computed: the
	// materialized view is stale.
	if err := h.members.Add(ctx, standup, alice); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := h.devices.Update(ctx, alice, []directory.Device{holdDevice(alice, mustClient(t, "0a0a0a0a"))}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	flags := h.conversations.WatchFlags()
	defer flags.Close()

	t.Run("disagreeing hint triggers recompute", func(t *testing.T) {
		err := dispatcher.ProcessHints(ctx, []MessageHint{{ConvID: standup, LegalHold: true}})
		if err != nil {
			t.Fatalf("ProcessHints: %v", err)
		}
		change := testutil.RequireReceive(t, flags.C, 5*time.Second, "waiting for hint recompute")
		if change.ConvID != standup || !change.LegalHold {
			t.Fatalf("unexpected flag change: %+v", change)
		}
	})

	t.Run("agreeing hint is a no-op", func(t *testing.T) {
		err := dispatcher.ProcessHints(ctx, []MessageHint{{ConvID: standup, LegalHold: true}})
		if err != nil {
			t.Fatalf("ProcessHints: %v", err)
		}
		testutil.RequireNoReceive(t, flags.C, 200*time.Millisecond, "agreeing hint recomputed the flag")
	})

	t.Run("hint is corroboration, not truth", func(t *testing.T) {
		// A hint claiming the hold was lifted disagrees with the flag,
		// so the conversation is recomputed — and the recompute, not
		// the hint, decides: alice still holds a legal-hold device, so
		// the flag stays set.
		err := dispatcher.ProcessHints(ctx, []MessageHint{{ConvID: standup, LegalHold: false}})
		if err != nil {
			t.Fatalf("ProcessHints: %v", err)
		}
		change := testutil.RequireReceive(t, flags.C, 5*time.Second, "waiting for hint recompute")
		if !change.LegalHold {
			t.Error("hint overrode the derived flag")
		}
	})
}

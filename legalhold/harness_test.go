// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package legalhold

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/parley-foundation/parley/directory"
	"github.com/parley-foundation/parley/lib/clock"
	"github.com/parley-foundation/parley/lib/prefs"
	"github.com/parley-foundation/parley/lib/ref"
	"github.com/parley-foundation/parley/lib/sqlitepool"
)

// harness assembles the legal-hold subsystem on a throwaway cache
// database: the three directories, a preference store, and a request
// store, all sharing one pool.
type harness struct {
	pool          *sqlitepool.Pool
	devices       *directory.Devices
	members       *directory.Members
	conversations *directory.Conversations
	requests      *RequestStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path: filepath.Join(t.TempDir(), "cache.db"),
	})
	if err != nil {
		t.Fatalf("opening pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	devices, err := directory.OpenDevices(ctx, directory.DevicesConfig{Pool: pool})
	if err != nil {
		t.Fatalf("OpenDevices: %v", err)
	}
	members, err := directory.OpenMembers(ctx, directory.MembersConfig{Pool: pool})
	if err != nil {
		t.Fatalf("OpenMembers: %v", err)
	}
	conversations, err := directory.OpenConversations(ctx, directory.ConversationsConfig{Pool: pool})
	if err != nil {
		t.Fatalf("OpenConversations: %v", err)
	}
	store, err := prefs.OpenStore(ctx, prefs.StoreConfig{
		Pool:  pool,
		Clock: clock.Fake(),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	return &harness{
		pool:          pool,
		devices:       devices,
		members:       members,
		conversations: conversations,
		requests:      NewRequestStore(store),
	}
}

// newEngine builds and starts an engine over the harness directories.
// The engine is closed at test cleanup.
func (h *harness) newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineConfig{
		Devices:       h.devices,
		Members:       h.members,
		Conversations: h.conversations,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	engine.Start(context.Background())
	t.Cleanup(engine.Close)
	return engine
}

func mustUser(t *testing.T, raw string) ref.UserID {
	t.Helper()
	id, err := ref.ParseUserID(raw)
	if err != nil {
		t.Fatalf("ParseUserID(%q): %v", raw, err)
	}
	return id
}

func mustClient(t *testing.T, raw string) ref.ClientID {
	t.Helper()
	id, err := ref.ParseClientID(raw)
	if err != nil {
		t.Fatalf("ParseClientID(%q): %v", raw, err)
	}
	return id
}

func mustConv(t *testing.T, raw string) ref.ConvID {
	t.Helper()
	id, err := ref.ParseConvID(raw)
	if err != nil {
		t.Fatalf("ParseConvID(%q): %v", raw, err)
	}
	return id
}

func mustTeam(t *testing.T, raw string) ref.TeamID {
	t.Helper()
	id, err := ref.ParseTeamID(raw)
	if err != nil {
		t.Fatalf("ParseTeamID(%q): %v", raw, err)
	}
	return id
}

// holdDevice returns a legal-hold device record for the user.
func holdDevice(userID ref.UserID, clientID ref.ClientID) directory.Device {
	return directory.Device{
		UserID:   userID,
		ClientID: clientID,
		Type:     directory.DeviceLegalHold,
		Label:    "Legal Hold",
	}
}

// normalDevice returns an ordinary device record for the user.
func normalDevice(userID ref.UserID, clientID ref.ClientID) directory.Device {
	return directory.Device{
		UserID:   userID,
		ClientID: clientID,
		Type:     directory.DeviceNormal,
	}
}

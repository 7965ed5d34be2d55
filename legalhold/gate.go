// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package legalhold

import "sync/atomic"

// ResyncGate suppresses the engine's incremental recompute triggers
// while a bulk resync replaces directory state wholesale. Triggers
// read the gate without blocking: a held gate means "skip this
// trigger", not "queue it" — the resync path ends with a full
// recompute that subsumes every skipped trigger.
//
// The gate is advisory and not reentrant: Begin while held and End
// while released are programming errors that the gate tolerates
// silently (it is a flag, not a lock).
type ResyncGate struct {
	held atomic.Bool
}

// Begin holds the gate. Incremental triggers observed after Begin
// returns are suppressed.
func (g *ResyncGate) Begin() { g.held.Store(true) }

// End releases the gate.
func (g *ResyncGate) End() { g.held.Store(false) }

// Held reports whether the gate is currently held.
func (g *ResyncGate) Held() bool { return g.held.Load() }

// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package session establishes and tracks encrypted sessions with peer
// devices.
//
// A session is identified by an [ID] derived from the peer's user and
// client identifiers. Establishment bootstraps from a [Prekey]: an
// ephemeral X25519 exchange against the prekey produces a shared
// secret, HKDF-SHA256 stretches it into a session root key, and the
// root key lives in guarded memory (lib/secret) until the session is
// deleted.
//
// The [Gateway] interface is what consumers program against; [Store]
// is the in-process implementation. Fingerprint derivation is
// advisory — it feeds identity-verification UI and is never required
// for session correctness.
package session

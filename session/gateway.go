// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"

	"github.com/parley-foundation/parley/lib/ref"
)

// ID identifies one session: the pairing of a peer user and one of
// their devices. The string form is "user_client", matching the
// backend's session addressing.
type ID struct {
	id string
}

// NewID derives the session ID for a peer device.
func NewID(userID ref.UserID, clientID ref.ClientID) ID {
	return ID{id: userID.String() + "_" + clientID.String()}
}

// String returns the session ID in "user_client" form.
func (i ID) String() string { return i.id }

// IsZero reports whether the ID is the zero value.
func (i ID) IsZero() bool { return i.id == "" }

// Gateway establishes and tears down encrypted sessions with peer
// devices. Implementations must make GetOrCreate idempotent: calling
// it for an already-established session is a no-op, not an error.
//
// FingerprintFromPrekey derives the identity-verification fingerprint
// for a prekey. It fails only when the prekey itself is unusable;
// callers treat the fingerprint as advisory.
type Gateway interface {
	GetOrCreate(ctx context.Context, sessionID ID, prekey Prekey) error
	Delete(ctx context.Context, sessionID ID) error
	FingerprintFromPrekey(prekey Prekey) ([]byte, error)
}

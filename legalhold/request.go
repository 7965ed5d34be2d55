// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package legalhold

import (
	"context"
	"fmt"

	"github.com/parley-foundation/parley/lib/prefs"
	"github.com/parley-foundation/parley/lib/ref"
)

// requestPreferenceKey is the preference cell holding the pending
// legal-hold request.
const requestPreferenceKey = "legalhold.request"

// Request is a pending legal-hold request for the local user: the
// backend asks the client to approve monitoring through the device
// identified by ClientID. Immutable once created.
type Request struct {
	// ClientID identifies the legal-hold device awaiting approval.
	ClientID ref.ClientID `cbor:"client_id"`

	// LastPrekey is the device's current prekey in the backend's
	// base64 wire form, used to establish the session and derive the
	// verification fingerprint.
	LastPrekey string `cbor:"last_prekey"`
}

// RequestStore persists the single pending legal-hold request. At most
// one request is outstanding at a time: storing a new one overwrites
// any previous one. The request contains key material, so the backing
// preference store should be opened with an encryption identity.
type RequestStore struct {
	cell *prefs.Cell[Request]
}

// NewRequestStore binds the request store to a preference store.
func NewRequestStore(store *prefs.Store) *RequestStore {
	return &RequestStore{cell: prefs.NewCell[Request](store, requestPreferenceKey)}
}

// Store persists a request as the pending one, overwriting any
// previous request.
func (r *RequestStore) Store(ctx context.Context, request Request) error {
	if request.ClientID.IsZero() {
		return fmt.Errorf("legalhold: storing request: client ID is required")
	}
	return r.cell.Set(ctx, request)
}

// Pending returns the pending request. The second return value is
// false when none is pending.
func (r *RequestStore) Pending(ctx context.Context) (Request, bool, error) {
	return r.cell.Get(ctx)
}

// Delete clears the pending request. A no-op when none is pending.
func (r *RequestStore) Delete(ctx context.Context) error {
	return r.cell.Delete(ctx)
}

// Watch subscribes to pending-request changes. An update with
// Present=false means the request was cleared.
func (r *RequestStore) Watch() *prefs.Watcher[Request] {
	return r.cell.Watch()
}

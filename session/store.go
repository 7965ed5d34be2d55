// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/parley-foundation/parley/lib/secret"
)

// RootKeySize is the size in bytes of a session root key.
const RootKeySize = 32

// hkdfInfoSessionRoot is the HKDF-SHA256 info prefix for session root
// key derivation. The session ID is appended, binding each root key to
// its session. Changing this invalidates all established sessions.
var hkdfInfoSessionRoot = []byte("parley.session.root.v1")

// fingerprintDomainKey is the BLAKE3 key for fingerprint derivation.
// ASCII domain name zero-padded to 32 bytes, readable in hex dumps
// without weakening the keyed hash.
var fingerprintDomainKey = [32]byte{
	'p', 'a', 'r', 'l', 'e', 'y', '.', 's', 'e', 's', 's', 'i', 'o', 'n', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0, 0, 0,
}

// probePlaintext is sealed and reopened with every freshly derived
// root key. A key that cannot round-trip an AEAD probe is unusable,
// and failing at establishment beats failing on the first message.
var probePlaintext = []byte("parley.session.probe.v1")

// StoreConfig holds the parameters for creating a session store.
type StoreConfig struct {
	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Store is the in-process [Gateway] implementation. Root keys live in
// guarded memory and are zeroed when their session is deleted or the
// store is closed.
//
// Store is safe for concurrent use.
type Store struct {
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[ID]*secret.Buffer
}

// NewStore creates an empty session store.
func NewStore(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		logger:   logger,
		sessions: make(map[ID]*secret.Buffer),
	}
}

// GetOrCreate establishes a session with the peer device if none
// exists. Establishment runs an ephemeral X25519 exchange against the
// prekey, derives the session root key with HKDF-SHA256, and verifies
// the key with an AEAD probe. Calling GetOrCreate for an established
// session is a no-op.
func (s *Store) GetOrCreate(ctx context.Context, sessionID ID, prekey Prekey) error {
	if sessionID.IsZero() {
		return fmt.Errorf("session: get-or-create: zero session ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, established := s.sessions[sessionID]; established {
		return nil
	}

	rootKey, err := deriveRootKey(sessionID, prekey)
	if err != nil {
		return fmt.Errorf("session: establishing %s: %w", sessionID, err)
	}

	if err := probeRootKey(rootKey); err != nil {
		rootKey.Close()
		return fmt.Errorf("session: establishing %s: %w", sessionID, err)
	}

	s.sessions[sessionID] = rootKey
	s.logger.Info("session established",
		"session_id", sessionID.String(),
		"prekey_id", prekey.ID,
	)
	return nil
}

// Delete tears down a session and zeros its root key. Deleting an
// unknown session is a no-op.
func (s *Store) Delete(ctx context.Context, sessionID ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rootKey, established := s.sessions[sessionID]
	if !established {
		return nil
	}
	delete(s.sessions, sessionID)
	if err := rootKey.Close(); err != nil {
		return fmt.Errorf("session: deleting %s: %w", sessionID, err)
	}
	s.logger.Info("session deleted", "session_id", sessionID.String())
	return nil
}

// Established reports whether a session exists for the given ID.
func (s *Store) Established(sessionID ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, established := s.sessions[sessionID]
	return established
}

// FingerprintFromPrekey derives the identity-verification fingerprint
// for a prekey: a keyed BLAKE3 hash over the prekey's wire encoding.
// The fingerprint is stable across sessions — the same prekey always
// produces the same fingerprint.
func (s *Store) FingerprintFromPrekey(prekey Prekey) ([]byte, error) {
	if prekey.Key == [PrekeyKeySize]byte{} {
		return nil, fmt.Errorf("session: fingerprint: prekey has zero public key")
	}

	hasher, err := blake3.NewKeyed(fingerprintDomainKey[:])
	if err != nil {
		panic("session: BLAKE3 keyed hash initialization failed (key must be 32 bytes): " + err.Error())
	}
	var keyID [2]byte
	keyID[0] = byte(prekey.ID >> 8)
	keyID[1] = byte(prekey.ID)
	hasher.Write(keyID[:])
	hasher.Write(prekey.Key[:])
	return hasher.Sum(nil), nil
}

// Close tears down all sessions and zeros their root keys.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstError error
	for sessionID, rootKey := range s.sessions {
		if err := rootKey.Close(); err != nil && firstError == nil {
			firstError = fmt.Errorf("session: closing %s: %w", sessionID, err)
		}
	}
	s.sessions = make(map[ID]*secret.Buffer)
	return firstError
}

// deriveRootKey runs the establishment exchange: an ephemeral X25519
// scalar multiplied into the prekey's public point yields the shared
// secret, and HKDF-SHA256 (info: domain prefix + session ID) stretches
// it to the root key. The ephemeral scalar and shared secret are
// zeroed before returning.
func deriveRootKey(sessionID ID, prekey Prekey) (*secret.Buffer, error) {
	ephemeral := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand.Reader, ephemeral); err != nil {
		return nil, fmt.Errorf("generating ephemeral scalar: %w", err)
	}
	defer secret.Zero(ephemeral)

	shared, err := curve25519.X25519(ephemeral, prekey.Key[:])
	if err != nil {
		return nil, fmt.Errorf("X25519 exchange: %w", err)
	}
	defer secret.Zero(shared)

	info := make([]byte, 0, len(hkdfInfoSessionRoot)+len(sessionID.String()))
	info = append(info, hkdfInfoSessionRoot...)
	info = append(info, sessionID.String()...)

	reader := hkdf.New(sha256.New, shared, nil, info)
	derived := make([]byte, RootKeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("HKDF root key derivation: %w", err)
	}
	// NewFromBytes copies into guarded memory and zeros the heap slice.
	return secret.NewFromBytes(derived)
}

// probeRootKey seals and reopens a fixed plaintext under the root key.
func probeRootKey(rootKey *secret.Buffer) error {
	aead, err := chacha20poly1305.NewX(rootKey.Bytes())
	if err != nil {
		return fmt.Errorf("creating session cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating probe nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, probePlaintext, nil)
	opened, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return fmt.Errorf("session cipher probe failed: %w", err)
	}
	if !bytes.Equal(opened, probePlaintext) {
		return fmt.Errorf("session cipher probe returned wrong plaintext")
	}
	return nil
}

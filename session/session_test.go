// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"golang.org/x/crypto/curve25519"

	"github.com/parley-foundation/parley/lib/ref"
)

// testPrekey generates a prekey with a real X25519 public point so
// the establishment exchange succeeds.
func testPrekey(t *testing.T, id uint16) Prekey {
	t.Helper()
	private := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand.Reader, private); err != nil {
		t.Fatalf("generating private scalar: %v", err)
	}
	public, err := curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		t.Fatalf("deriving public point: %v", err)
	}

	prekey := Prekey{ID: id}
	copy(prekey.Key[:], public)
	return prekey
}

func testID(t *testing.T) ID {
	t.Helper()
	userID, err := ref.ParseUserID("alice")
	if err != nil {
		t.Fatalf("ParseUserID: %v", err)
	}
	clientID, err := ref.ParseClientID("0a0a0a0a")
	if err != nil {
		t.Fatalf("ParseClientID: %v", err)
	}
	return NewID(userID, clientID)
}

func TestPrekeyBlobRoundTrip(t *testing.T) {
	original := testPrekey(t, 517)

	parsed, err := ParsePrekey(original.Blob())
	if err != nil {
		t.Fatalf("ParsePrekey failed: %v", err)
	}
	if parsed != original {
		t.Errorf("round trip mismatch: %+v != %+v", parsed, original)
	}
}

func TestParsePrekeyRejectsBadBlobs(t *testing.T) {
	for _, test := range []struct {
		name string
		blob string
	}{
		{"not base64", "!!not-base64!!"},
		{"empty", ""},
		{"truncated", base64.StdEncoding.EncodeToString(make([]byte, 10))},
		{"oversized", base64.StdEncoding.EncodeToString(make([]byte, 64))},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ParsePrekey(test.blob); err == nil {
				t.Errorf("ParsePrekey(%q) succeeded", test.blob)
			}
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore(StoreConfig{})
	defer store.Close()

	sessionID := testID(t)
	prekey := testPrekey(t, 1)

	t.Run("establish", func(t *testing.T) {
		if err := store.GetOrCreate(ctx, sessionID, prekey); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if !store.Established(sessionID) {
			t.Error("session not reported established")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		// A second call with a different prekey must not re-establish.
		if err := store.GetOrCreate(ctx, sessionID, testPrekey(t, 2)); err != nil {
			t.Fatalf("repeat GetOrCreate failed: %v", err)
		}
		if !store.Established(sessionID) {
			t.Error("session lost after repeat GetOrCreate")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := store.Delete(ctx, sessionID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if store.Established(sessionID) {
			t.Error("session still established after delete")
		}
		// Deleting again is a no-op.
		if err := store.Delete(ctx, sessionID); err != nil {
			t.Fatalf("repeat Delete failed: %v", err)
		}
	})
}

func TestGetOrCreateRejectsLowOrderPoint(t *testing.T) {
	ctx := context.Background()
	store := NewStore(StoreConfig{})
	defer store.Close()

	// The all-zero point is low order: X25519 returns an error, which
	// must surface as a failed establishment, not a stored session.
	sessionID := testID(t)
	err := store.GetOrCreate(ctx, sessionID, Prekey{ID: 9})
	if err == nil {
		t.Fatal("establishment with zero public key succeeded")
	}
	if store.Established(sessionID) {
		t.Error("failed establishment left a session behind")
	}
}

func TestFingerprint(t *testing.T) {
	store := NewStore(StoreConfig{})
	defer store.Close()

	prekey := testPrekey(t, 42)

	t.Run("stable", func(t *testing.T) {
		first, err := store.FingerprintFromPrekey(prekey)
		if err != nil {
			t.Fatalf("FingerprintFromPrekey failed: %v", err)
		}
		second, err := store.FingerprintFromPrekey(prekey)
		if err != nil {
			t.Fatalf("FingerprintFromPrekey failed: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Error("fingerprint not stable across calls")
		}
	})

	t.Run("distinct per prekey", func(t *testing.T) {
		first, err := store.FingerprintFromPrekey(prekey)
		if err != nil {
			t.Fatalf("FingerprintFromPrekey failed: %v", err)
		}
		other, err := store.FingerprintFromPrekey(testPrekey(t, 42))
		if err != nil {
			t.Fatalf("FingerprintFromPrekey failed: %v", err)
		}
		if bytes.Equal(first, other) {
			t.Error("different prekeys produced the same fingerprint")
		}
	})

	t.Run("rejects zero key", func(t *testing.T) {
		if _, err := store.FingerprintFromPrekey(Prekey{ID: 1}); err == nil {
			t.Error("fingerprint of zero public key succeeded")
		}
	})
}

func TestFormatFingerprint(t *testing.T) {
	got := FormatFingerprint([]byte{0x3f, 0x2a, 0x91, 0xcc, 0x04})
	want := "3f2a 91cc 04"
	if got != want {
		t.Errorf("FormatFingerprint = %q, want %q", got, want)
	}
}

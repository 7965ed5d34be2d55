// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseUserID(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		id, err := ParseUserID("5fd2c163-9b1e-42c4-a6ae-fc4e0f2a0c31")
		if err != nil {
			t.Fatalf("ParseUserID failed: %v", err)
		}
		if id.String() != "5fd2c163-9b1e-42c4-a6ae-fc4e0f2a0c31" {
			t.Errorf("unexpected String(): %q", id.String())
		}
		if id.IsZero() {
			t.Error("parsed ID reported IsZero")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := ParseUserID(""); err == nil {
			t.Fatal("expected error for empty user ID")
		}
	})

	t.Run("whitespace", func(t *testing.T) {
		if _, err := ParseUserID("user id"); err == nil {
			t.Fatal("expected error for user ID with space")
		}
	})

	t.Run("control byte", func(t *testing.T) {
		if _, err := ParseUserID("user\x00id"); err == nil {
			t.Fatal("expected error for user ID with NUL")
		}
	})

	t.Run("too long", func(t *testing.T) {
		if _, err := ParseUserID(strings.Repeat("a", 257)); err == nil {
			t.Fatal("expected error for over-long user ID")
		}
	})
}

func TestParseClientID(t *testing.T) {
	t.Run("valid hex", func(t *testing.T) {
		id, err := ParseClientID("a1b2c3d4e5f60718")
		if err != nil {
			t.Fatalf("ParseClientID failed: %v", err)
		}
		if id.String() != "a1b2c3d4e5f60718" {
			t.Errorf("unexpected String(): %q", id.String())
		}
	})

	t.Run("upper-case rejected", func(t *testing.T) {
		if _, err := ParseClientID("A1B2C3D4"); err == nil {
			t.Fatal("expected error for upper-case client ID")
		}
	})

	t.Run("non-hex rejected", func(t *testing.T) {
		if _, err := ParseClientID("not-hex"); err == nil {
			t.Fatal("expected error for non-hex client ID")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := ParseClientID(""); err == nil {
			t.Fatal("expected error for empty client ID")
		}
	})
}

func TestZeroValues(t *testing.T) {
	if !(UserID{}).IsZero() {
		t.Error("zero UserID not IsZero")
	}
	if !(ClientID{}).IsZero() {
		t.Error("zero ClientID not IsZero")
	}
	if !(ConvID{}).IsZero() {
		t.Error("zero ConvID not IsZero")
	}
	if !(TeamID{}).IsZero() {
		t.Error("zero TeamID not IsZero")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		User   UserID   `json:"user"`
		Client ClientID `json:"client"`
		Conv   ConvID   `json:"conv"`
		Team   TeamID   `json:"team,omitempty"`
	}

	user, err := ParseUserID("user-1")
	if err != nil {
		t.Fatalf("ParseUserID failed: %v", err)
	}
	client, err := ParseClientID("deadbeef")
	if err != nil {
		t.Fatalf("ParseClientID failed: %v", err)
	}
	conv, err := ParseConvID("conv-1")
	if err != nil {
		t.Fatalf("ParseConvID failed: %v", err)
	}

	// Team left zero: it must survive as the zero value, since zero
	// TeamID means "not in a team".
	original := payload{User: user, Client: client, Conv: conv}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
	if !decoded.Team.IsZero() {
		t.Error("zero TeamID did not survive round trip")
	}

	t.Run("invalid input rejected", func(t *testing.T) {
		var p payload
		if err := json.Unmarshal([]byte(`{"client":"NOT HEX"}`), &p); err == nil {
			t.Fatal("expected unmarshal error for invalid client ID")
		}
	})
}

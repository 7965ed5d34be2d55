// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// PrekeyKeySize is the size in bytes of a prekey's public key
// (X25519 point).
const PrekeyKeySize = 32

// prekeyBlobSize is the decoded size of a prekey blob: a 2-byte
// big-endian key ID followed by the 32-byte public key.
const prekeyBlobSize = 2 + PrekeyKeySize

// Prekey is a one-time public key published by a peer device to
// bootstrap an encrypted session. The backend ships prekeys as opaque
// base64 blobs; [ParsePrekey] decodes them.
type Prekey struct {
	ID  uint16
	Key [PrekeyKeySize]byte
}

// ParsePrekey decodes a base64 prekey blob as shipped by the backend:
// 2-byte big-endian key ID followed by the 32-byte X25519 public key.
func ParsePrekey(blob string) (Prekey, error) {
	decoded, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return Prekey{}, fmt.Errorf("session: decoding prekey blob: %w", err)
	}
	if len(decoded) != prekeyBlobSize {
		return Prekey{}, fmt.Errorf("session: prekey blob is %d bytes, want %d", len(decoded), prekeyBlobSize)
	}

	var prekey Prekey
	prekey.ID = binary.BigEndian.Uint16(decoded[:2])
	copy(prekey.Key[:], decoded[2:])
	return prekey, nil
}

// Blob re-encodes the prekey in the backend's base64 wire form.
func (p Prekey) Blob() string {
	encoded := make([]byte, prekeyBlobSize)
	binary.BigEndian.PutUint16(encoded[:2], p.ID)
	copy(encoded[2:], p.Key[:])
	return base64.StdEncoding.EncodeToString(encoded)
}

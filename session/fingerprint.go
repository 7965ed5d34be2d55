// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"encoding/hex"
	"strings"
)

// FormatFingerprint renders a fingerprint for identity-verification
// UI: lower-case hex in space-separated groups of four characters.
//
//	3f2a 91cc 04de ...
func FormatFingerprint(fingerprint []byte) string {
	encoded := hex.EncodeToString(fingerprint)

	var b strings.Builder
	b.Grow(len(encoded) + len(encoded)/4)
	for i := 0; i < len(encoded); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(encoded) {
			end = len(encoded)
		}
		b.WriteString(encoded[i:end])
	}
	return b.String()
}

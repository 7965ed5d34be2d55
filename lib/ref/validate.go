// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// maxIDLength bounds every identifier accepted by this package. The
// backend never issues IDs anywhere near this long; the limit exists so
// a corrupt or hostile input cannot smuggle megabytes through an ID
// field into logs and storage.
const maxIDLength = 256

// validateOpaque checks the shared rules for backend-assigned opaque
// identifiers: non-empty, bounded length, printable ASCII with no
// whitespace. kind names the identifier type in error messages.
func validateOpaque(kind, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is empty", kind)
	}
	if len(raw) > maxIDLength {
		return fmt.Errorf("%s exceeds %d bytes", kind, maxIDLength)
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c <= 0x20 || c >= 0x7f {
			return fmt.Errorf("%s contains invalid byte 0x%02x at offset %d", kind, c, i)
		}
	}
	return nil
}

// isLowerHex reports whether raw consists solely of lower-case
// hexadecimal digits.
func isLowerHex(raw string) bool {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

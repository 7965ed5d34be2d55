// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// ClientID identifies a single device (client) registered under a user
// account. The backend derives it from the device's long-term key, so
// it is always lower-case hexadecimal. A user may have many clients;
// the pair (UserID, ClientID) is globally unique.
//
// ClientID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type ClientID struct {
	id string
}

// ParseClientID validates and wraps a raw client ID string. Returns an
// error if the string is empty, too long, or not lower-case hex.
func ParseClientID(raw string) (ClientID, error) {
	if err := validateOpaque("client ID", raw); err != nil {
		return ClientID{}, err
	}
	if !isLowerHex(raw) {
		return ClientID{}, fmt.Errorf("client ID %q is not lower-case hexadecimal", raw)
	}
	return ClientID{id: raw}, nil
}

// String returns the raw client ID string.
func (c ClientID) String() string { return c.id }

// IsZero reports whether the ClientID is the zero value (uninitialized).
func (c ClientID) IsZero() bool { return c.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (c ClientID) MarshalText() ([]byte, error) {
	return []byte(c.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value (unset client ID).
func (c *ClientID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*c = ClientID{}
		return nil
	}
	parsed, err := ParseClientID(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

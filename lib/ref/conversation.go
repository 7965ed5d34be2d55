// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// ConvID identifies a conversation. Like user IDs, conversation IDs
// are backend-assigned opaque tokens.
//
// ConvID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type ConvID struct {
	id string
}

// ParseConvID validates and wraps a raw conversation ID string.
func ParseConvID(raw string) (ConvID, error) {
	if err := validateOpaque("conversation ID", raw); err != nil {
		return ConvID{}, err
	}
	return ConvID{id: raw}, nil
}

// String returns the raw conversation ID string.
func (c ConvID) String() string { return c.id }

// IsZero reports whether the ConvID is the zero value (uninitialized).
func (c ConvID) IsZero() bool { return c.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (c ConvID) MarshalText() ([]byte, error) {
	return []byte(c.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value (unset conversation ID).
func (c *ConvID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*c = ConvID{}
		return nil
	}
	parsed, err := ParseConvID(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

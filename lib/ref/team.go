// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// TeamID identifies the team (organization) an account belongs to.
// Personal accounts have no team; code modeling an optional team uses
// the zero value to mean "not in a team".
//
// TeamID is an immutable value type. Use IsZero to check for the
// "no team" case before treating the value as an identifier.
type TeamID struct {
	id string
}

// ParseTeamID validates and wraps a raw team ID string.
func ParseTeamID(raw string) (TeamID, error) {
	if err := validateOpaque("team ID", raw); err != nil {
		return TeamID{}, err
	}
	return TeamID{id: raw}, nil
}

// String returns the raw team ID string.
func (t TeamID) String() string { return t.id }

// IsZero reports whether the TeamID is the zero value (no team).
func (t TeamID) IsZero() bool { return t.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (t TeamID) MarshalText() ([]byte, error) {
	return []byte(t.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value (no team).
func (t *TeamID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*t = TeamID{}
		return nil
	}
	parsed, err := ParseTeamID(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

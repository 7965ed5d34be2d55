// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated identifier value types for Parley.
//
// Every identifier that crosses a package boundary is a typed value
// rather than a bare string: [UserID], [ClientID], [ConvID], and
// [TeamID]. The types exist to prevent accidental confusion between
// identifier kinds at compile time — passing a conversation ID where a
// user ID is expected is a type error, not a runtime surprise.
//
// All types follow the same shape: an unexported string field, a
// Parse constructor that validates the raw form, String and IsZero
// accessors, and MarshalText/UnmarshalText so the values serialize as
// plain strings in JSON, CBOR, and YAML. The zero value of every type
// is "unset" and never valid as an identifier.
//
// User, conversation, and team IDs are backend-assigned opaque tokens
// (UUIDs in practice, but this package does not enforce UUID syntax —
// only that the value is non-empty and printable). Client IDs are the
// per-device identifiers the backend derives from a device's long-term
// key and are always lower-case hexadecimal.
//
// This package depends on no other Parley packages.
package ref

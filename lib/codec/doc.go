// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Parley's standard CBOR encoding.
//
// All persisted binary values (preference cells, the pending
// legal-hold request) go through [Marshal] and [Unmarshal] so that
// every component agrees on one configuration: Core Deterministic
// Encoding on the way out, lenient standard decoding on the way in.
// Deterministic encoding means re-persisting unchanged data produces
// identical bytes; lenient decoding means new fields can be added to
// persisted structs without breaking old readers.
//
// The ref identifier types serialize as CBOR text strings via their
// TextMarshaler implementations, matching their JSON and YAML forms.
//
// This package depends on no other Parley packages.
package codec

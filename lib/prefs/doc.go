// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package prefs provides persisted, observable preference cells.
//
// A [Cell] is a single named value with three operations — Get, Set,
// Delete — plus a change-notification stream ([Cell.Watch]). Cells are
// rows in the preference table of the client cache database, sharing
// the [lib/sqlitepool] pool with the directory caches. Values are
// CBOR-encoded; a [Store] opened with an age identity additionally
// encrypts every value at rest, which is mandatory in practice for
// the pending legal-hold request cell since the request embeds a
// prekey.
//
// The watch mechanism follows the same fanout rules as the directory
// change streams: per-watcher buffered channels, non-blocking sends,
// and a Missed flag instead of backpressure. A watcher that observes
// Missed re-reads the cell; it never reconstructs state from channel
// history.
//
// The cell abstraction deliberately has no list, scan, or transaction
// surface. Components that need more than "one value, observable" use
// SQL directly.
package prefs

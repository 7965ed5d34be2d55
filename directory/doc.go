// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package directory provides the client's local caches of backend
// state: devices, conversation membership, and conversation records.
//
// The three directories — [Devices], [Members], [Conversations] —
// share one SQLite database (via [lib/sqlitepool]) and are each the
// single source of truth for their records on this client. Consumers
// never cache directory state themselves; they read on demand and
// subscribe to change notices.
//
// Change notices are deliberately thin. A [DeviceChange] says "this
// user's device set changed", not what changed; a [MembershipChange]
// names the conversation and the users that joined or left; a
// [FlagChange] carries the written legal-hold flag. Subscribers that
// need record data re-read the directory, which makes notices safe to
// drop under overflow: the [Subscription] Missed flag tells a
// subscriber its channel overflowed and its view is stale.
//
// The legal-hold flag on [Conversation] is a materialized view owned
// by the status engine in package legalhold. [Conversations.Put]
// deliberately does not touch it; only
// [Conversations.SetLegalHold] writes it.
package directory

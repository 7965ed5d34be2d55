// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package legalhold detects and manages legal holds: backend-enforced
// monitoring of a user's communications through a shadow device.
//
// The package has four moving parts:
//
//   - [Engine] keeps the per-conversation legal-hold flag consistent
//     with device and membership state. The flag is a materialized
//     view — a conversation is under legal hold exactly when one of
//     its active members owns a legal-hold device — and the engine
//     recomputes it whenever devices or membership change.
//
//   - [Dispatcher] feeds ordered event batches from the sync layer
//     into the engine and the request store: lifecycle events (a
//     legal-hold request, enablement, disablement for the local user)
//     and per-message hints that corroborate the materialized flag.
//
//   - [Coordinator] runs the user-approval protocol: provision the
//     legal-hold device record, establish an encrypted session with
//     it, confirm with the backend, and roll the first two stages
//     back if confirmation fails.
//
//   - [RequestStore] persists the single pending legal-hold request
//     (at most one outstanding at a time).
//
// During a bulk resync the [ResyncGate] suppresses incremental
// recompute triggers; the resync path refreshes the directories
// authoritatively and then recomputes every conversation once.
package legalhold

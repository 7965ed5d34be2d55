// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data.
//
// In this client the buffers hold two kinds of material: the account
// password supplied when approving a legal-hold request, and the root
// keys of established encryption sessions. Both must never reach swap
// or a core dump.
//
// [Buffer] allocates memory outside the Go heap via
// mmap(MAP_ANONYMOUS), locks it into physical RAM via mlock
// (preventing swap), and marks it excluded from core dumps via
// madvise(MADV_DONTDUMP). On Close, the memory is zeroed, unlocked,
// and unmapped. Because the memory is outside the Go heap, the garbage
// collector never sees it and cannot copy or relocate it — the only
// way to guarantee secret material does not persist after use.
//
// [ReadFromPath] is the standard way CLI tooling accepts secrets:
// from a file, or from stdin when the path is "-". There is no
// interactive terminal prompt; piping from a secret manager keeps the
// secret out of shell history and process listings.
//
// This package depends on no other Parley packages.
package secret

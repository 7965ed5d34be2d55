// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the Parley-standard SQLite connection
// pool.
//
// The client keeps its local cache — device records, conversation
// membership, conversation flags, preference cells — in a single
// SQLite database. This package wraps zombiezen.com/go/sqlite with
// the pragmas that workload wants: WAL journal mode so flag reads
// never block recompute writes, NORMAL synchronous for process-crash
// durability without fsync-per-commit overhead (the backend is the
// source of truth for everything in the cache), and a busy timeout so
// concurrent recomputes degrade to waiting instead of SQLITE_BUSY
// errors.
//
// The pool is built on zombiezen's sqlitex.Pool, which manages a
// fixed-size set of connections. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are NOT safe for
// concurrent use — each goroutine must hold its own connection for
// the duration of its work.
//
// This package is intentionally thin: it applies standard pragmas and
// exposes the underlying zombiezen types directly. Components write
// SQL, use sqlitex.Execute for cached statements, and manage
// transactions with sqlitex.ImmediateTransaction. There is no query
// builder and no ORM layer.
package sqlitepool

// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package prefs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"filippo.io/age"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/parley-foundation/parley/lib/clock"
	"github.com/parley-foundation/parley/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS preference (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// StoreConfig holds the parameters for opening a preference store.
type StoreConfig struct {
	// Pool is the client cache connection pool. Required. The store
	// shares the pool with the directories; it owns only the
	// preference table.
	Pool *sqlitepool.Pool

	// Clock provides timestamps for the updated_at column. Required.
	Clock clock.Clock

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger

	// Identity, when non-nil, enables encryption at rest: values are
	// age-encrypted to the identity's recipient before hitting the
	// BLOB column and decrypted on read. Cells that hold key material
	// (the pending legal-hold request carries a prekey) should always
	// run over an encrypted store.
	Identity *age.X25519Identity
}

// Store persists preference cells in the client cache database. Each
// cell is a single row in the preference table, keyed by name, with a
// CBOR-encoded (and optionally age-encrypted) value.
//
// Store is safe for concurrent use.
type Store struct {
	pool     *sqlitepool.Pool
	clock    clock.Clock
	logger   *slog.Logger
	identity *age.X25519Identity
}

// OpenStore prepares the preference table and returns a store. The
// pool stays owned by the caller; closing the store is the caller
// closing the pool.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("prefs: Pool is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("prefs: Clock is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := cfg.Pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("prefs: preparing schema: %w", err)
	}
	defer cfg.Pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, fmt.Errorf("prefs: creating preference table: %w", err)
	}

	return &Store{
		pool:     cfg.Pool,
		clock:    cfg.Clock,
		logger:   logger,
		identity: cfg.Identity,
	}, nil
}

// getRaw reads the stored bytes for a key. The second return value is
// false when the key has never been set (or has been deleted).
func (s *Store) getRaw(ctx context.Context, key string) ([]byte, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("prefs: get %q: %w", key, err)
	}
	defer s.pool.Put(conn)

	var value []byte
	found := false
	err = sqlitex.Execute(conn, "SELECT value FROM preference WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			value = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, value)
			return nil
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("prefs: get %q: %w", key, err)
	}
	if !found {
		return nil, false, nil
	}

	plaintext, err := s.decrypt(value)
	if err != nil {
		return nil, false, fmt.Errorf("prefs: get %q: %w", key, err)
	}
	return plaintext, true, nil
}

// setRaw stores bytes under a key, overwriting any previous value.
func (s *Store) setRaw(ctx context.Context, key string, data []byte) error {
	stored, err := s.encrypt(data)
	if err != nil {
		return fmt.Errorf("prefs: set %q: %w", key, err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("prefs: set %q: %w", key, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO preference (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{key, stored, s.clock.Now().UnixMilli()},
		})
	if err != nil {
		return fmt.Errorf("prefs: set %q: %w", key, err)
	}
	return nil
}

// deleteRaw removes a key. Deleting an absent key is a no-op.
func (s *Store) deleteRaw(ctx context.Context, key string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("prefs: delete %q: %w", key, err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM preference WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
	})
	if err != nil {
		return fmt.Errorf("prefs: delete %q: %w", key, err)
	}
	return nil
}

// encrypt seals data to the store's identity, or returns it unchanged
// when the store is unencrypted.
func (s *Store) encrypt(data []byte) ([]byte, error) {
	if s.identity == nil {
		return data, nil
	}

	var sealed bytes.Buffer
	writer, err := age.Encrypt(&sealed, s.identity.Recipient())
	if err != nil {
		return nil, fmt.Errorf("encrypting value: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("encrypting value: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("encrypting value: %w", err)
	}
	return sealed.Bytes(), nil
}

// decrypt opens data with the store's identity, or returns it
// unchanged when the store is unencrypted.
func (s *Store) decrypt(data []byte) ([]byte, error) {
	if s.identity == nil {
		return data, nil
	}

	reader, err := age.Decrypt(bytes.NewReader(data), s.identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting value: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decrypting value: %w", err)
	}
	return plaintext, nil
}

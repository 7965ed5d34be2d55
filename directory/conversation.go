// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/parley-foundation/parley/lib/ref"
	"github.com/parley-foundation/parley/lib/sqlitepool"
)

// Conversation is one record in the conversation directory. LegalHold
// is a materialized view — derived from device and membership state by
// the status engine, never edited by hand — so readers treat it as
// possibly stale until the next recompute.
type Conversation struct {
	ConvID    ref.ConvID
	Name      string
	LegalHold bool
}

// FlagChange is a change notice from the conversation directory's
// legal-hold flag stream. It fires on every flag write, including
// idempotent rewrites of the same value, so subscribers see recompute
// activity rather than just transitions.
type FlagChange struct {
	ConvID    ref.ConvID
	LegalHold bool
}

const conversationSchema = `
CREATE TABLE IF NOT EXISTS conversation (
	conv_id    TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	legal_hold INTEGER NOT NULL DEFAULT 0
);
`

// Conversations is the conversation directory: per-conversation
// metadata plus the materialized legal-hold flag.
//
// Conversations is safe for concurrent use.
type Conversations struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
	flags  stream[FlagChange]
}

// ConversationsConfig holds the parameters for opening the
// conversation directory.
type ConversationsConfig struct {
	// Pool is the client cache connection pool. Required.
	Pool *sqlitepool.Pool

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// OpenConversations prepares the conversation table and returns the
// directory.
func OpenConversations(ctx context.Context, cfg ConversationsConfig) (*Conversations, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("directory: conversations: Pool is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := cfg.Pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: conversations: preparing schema: %w", err)
	}
	defer cfg.Pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, conversationSchema, nil); err != nil {
		return nil, fmt.Errorf("directory: conversations: creating table: %w", err)
	}

	return &Conversations{pool: cfg.Pool, logger: logger}, nil
}

// Put upserts a conversation record, preserving an existing legal-hold
// flag (the flag is owned by the recompute path, not by metadata
// updates).
func (c *Conversations) Put(ctx context.Context, conv Conversation) error {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("directory: conversations: put: %w", err)
	}
	defer c.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO conversation (conv_id, name, legal_hold) VALUES (?, ?, ?)
		 ON CONFLICT(conv_id) DO UPDATE SET name = excluded.name`,
		&sqlitex.ExecOptions{
			Args: []any{conv.ConvID.String(), conv.Name, boolToInt(conv.LegalHold)},
		})
	if err != nil {
		return fmt.Errorf("directory: conversations: put: %w", err)
	}
	return nil
}

// Get reads a conversation record. The second return value is false
// when the conversation is unknown.
func (c *Conversations) Get(ctx context.Context, convID ref.ConvID) (Conversation, bool, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return Conversation{}, false, fmt.Errorf("directory: conversations: get: %w", err)
	}
	defer c.pool.Put(conn)

	var conv Conversation
	found := false
	err = sqlitex.Execute(conn,
		"SELECT name, legal_hold FROM conversation WHERE conv_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{convID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				conv = Conversation{
					ConvID:    convID,
					Name:      stmt.ColumnText(0),
					LegalHold: stmt.ColumnInt64(1) != 0,
				}
				return nil
			},
		})
	if err != nil {
		return Conversation{}, false, fmt.Errorf("directory: conversations: get: %w", err)
	}
	return conv, found, nil
}

// SetLegalHold writes the materialized legal-hold flag and publishes
// a flag notice. The write is unconditional — recomputing an unchanged
// flag is idempotent and safe. An unknown conversation gets a bare
// record so the flag is never lost to ordering (flag recompute racing
// ahead of conversation metadata sync).
func (c *Conversations) SetLegalHold(ctx context.Context, convID ref.ConvID, legalHold bool) error {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("directory: conversations: set legal hold: %w", err)
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO conversation (conv_id, legal_hold) VALUES (?, ?)
		 ON CONFLICT(conv_id) DO UPDATE SET legal_hold = excluded.legal_hold`,
		&sqlitex.ExecOptions{
			Args: []any{convID.String(), boolToInt(legalHold)},
		})
	c.pool.Put(conn)
	if err != nil {
		return fmt.Errorf("directory: conversations: set legal hold: %w", err)
	}

	c.flags.publish(FlagChange{ConvID: convID, LegalHold: legalHold})
	return nil
}

// WatchFlags subscribes to legal-hold flag notices.
func (c *Conversations) WatchFlags() *Subscription[FlagChange] {
	return c.flags.subscribe()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

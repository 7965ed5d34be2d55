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

// MembershipChange is a change notice from the membership directory:
// the named users joined (on the join stream) or left (on the leave
// stream) the named conversation.
type MembershipChange struct {
	ConvID  ref.ConvID
	UserIDs []ref.UserID
}

const memberSchema = `
CREATE TABLE IF NOT EXISTS member (
	conv_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (conv_id, user_id)
);
CREATE INDEX IF NOT EXISTS member_by_user ON member (user_id);
`

// Members is the per-conversation active participant directory.
// Joins and leaves publish on separate streams because consumers
// react to them differently (a leave can clear a conversation's
// legal-hold flag; a join can only set it).
//
// Members is safe for concurrent use.
type Members struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
	joins  stream[MembershipChange]
	leaves stream[MembershipChange]
}

// MembersConfig holds the parameters for opening the membership
// directory.
type MembersConfig struct {
	// Pool is the client cache connection pool. Required.
	Pool *sqlitepool.Pool

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// OpenMembers prepares the member table and returns the directory.
func OpenMembers(ctx context.Context, cfg MembersConfig) (*Members, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("directory: members: Pool is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := cfg.Pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: members: preparing schema: %w", err)
	}
	defer cfg.Pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, memberSchema, nil); err != nil {
		return nil, fmt.Errorf("directory: members: creating table: %w", err)
	}

	return &Members{pool: cfg.Pool, logger: logger}, nil
}

// Add records users as active members of a conversation and publishes
// a join notice. Adding an existing member is a no-op row-wise but the
// notice still fires (the backend resends membership on resync).
func (m *Members) Add(ctx context.Context, convID ref.ConvID, userIDs ...ref.UserID) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := m.write(ctx,
		"INSERT INTO member (conv_id, user_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		convID, userIDs); err != nil {
		return fmt.Errorf("directory: members: add: %w", err)
	}
	m.joins.publish(MembershipChange{ConvID: convID, UserIDs: userIDs})
	return nil
}

// Remove deletes users from a conversation's active membership and
// publishes a leave notice.
func (m *Members) Remove(ctx context.Context, convID ref.ConvID, userIDs ...ref.UserID) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := m.write(ctx,
		"DELETE FROM member WHERE conv_id = ? AND user_id = ?",
		convID, userIDs); err != nil {
		return fmt.Errorf("directory: members: remove: %w", err)
	}
	m.leaves.publish(MembershipChange{ConvID: convID, UserIDs: userIDs})
	return nil
}

// write executes one statement per user inside a single transaction.
func (m *Members) write(ctx context.Context, query string, convID ref.ConvID, userIDs []ref.UserID) (err error) {
	conn, err := m.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer m.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return err
	}
	defer endTransaction(&err)

	for _, userID := range userIDs {
		err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{convID.String(), userID.String()},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ActiveUsers returns the active members of a conversation, ordered
// by user ID.
func (m *Members) ActiveUsers(ctx context.Context, convID ref.ConvID) ([]ref.UserID, error) {
	conn, err := m.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: members: active users: %w", err)
	}
	defer m.pool.Put(conn)

	var users []ref.UserID
	err = sqlitex.Execute(conn,
		"SELECT user_id FROM member WHERE conv_id = ? ORDER BY user_id",
		&sqlitex.ExecOptions{
			Args: []any{convID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				userID, err := ref.ParseUserID(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("corrupt user ID in cache: %w", err)
				}
				users = append(users, userID)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("directory: members: active users: %w", err)
	}
	return users, nil
}

// ActiveConversations returns the conversations where the user is an
// active member, ordered by conversation ID.
func (m *Members) ActiveConversations(ctx context.Context, userID ref.UserID) ([]ref.ConvID, error) {
	conn, err := m.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: members: active conversations: %w", err)
	}
	defer m.pool.Put(conn)

	var convs []ref.ConvID
	err = sqlitex.Execute(conn,
		"SELECT conv_id FROM member WHERE user_id = ? ORDER BY conv_id",
		&sqlitex.ExecOptions{
			Args: []any{userID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				convID, err := ref.ParseConvID(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("corrupt conversation ID in cache: %w", err)
				}
				convs = append(convs, convID)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("directory: members: active conversations: %w", err)
	}
	return convs, nil
}

// AllConversations returns every conversation with at least one active
// member, ordered by conversation ID. This is the recompute universe
// after a bulk resync: a conversation with no members cannot have a
// legal-hold participant.
func (m *Members) AllConversations(ctx context.Context) ([]ref.ConvID, error) {
	conn, err := m.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: members: all conversations: %w", err)
	}
	defer m.pool.Put(conn)

	var convs []ref.ConvID
	err = sqlitex.Execute(conn,
		"SELECT DISTINCT conv_id FROM member ORDER BY conv_id",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				convID, err := ref.ParseConvID(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("corrupt conversation ID in cache: %w", err)
				}
				convs = append(convs, convID)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("directory: members: all conversations: %w", err)
	}
	return convs, nil
}

// WatchJoins subscribes to join notices.
func (m *Members) WatchJoins() *Subscription[MembershipChange] {
	return m.joins.subscribe()
}

// WatchLeaves subscribes to leave notices.
func (m *Members) WatchLeaves() *Subscription[MembershipChange] {
	return m.leaves.subscribe()
}

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

// DeviceType classifies a device record. The legal-hold type marks a
// shadow device that receives a copy of all traffic for compliance
// monitoring; a user is under legal hold exactly when they own at
// least one such device.
type DeviceType string

const (
	// DeviceNormal is an ordinary end-user device.
	DeviceNormal DeviceType = "normal"

	// DeviceLegalHold is a compliance shadow device.
	DeviceLegalHold DeviceType = "legalhold"
)

// Device is one client record in the device directory, keyed by
// (UserID, ClientID).
type Device struct {
	UserID   ref.UserID
	ClientID ref.ClientID
	Type     DeviceType

	// Label is the backend-supplied human-readable device name
	// ("Desktop", "Legal Hold"). Informational only.
	Label string
}

// IsLegalHold reports whether the device is a compliance shadow
// device.
func (d Device) IsLegalHold() bool { return d.Type == DeviceLegalHold }

// DeviceChange is a change notice from the device directory: the
// device set of the named user changed (created, updated, or removed
// records). The notice carries no record data — consumers re-read
// Devices for current state.
type DeviceChange struct {
	UserID ref.UserID
}

const deviceSchema = `
CREATE TABLE IF NOT EXISTS device (
	user_id   TEXT NOT NULL,
	client_id TEXT NOT NULL,
	type      TEXT NOT NULL,
	label     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (user_id, client_id)
);
`

// Devices is the per-user device (client) directory, the single
// source of truth for which devices each user has and of what type.
// Records live in the client cache database; change notices fan out
// in-process to subscribers.
//
// Devices is safe for concurrent use.
type Devices struct {
	pool    *sqlitepool.Pool
	logger  *slog.Logger
	changes stream[DeviceChange]
}

// DevicesConfig holds the parameters for opening the device
// directory.
type DevicesConfig struct {
	// Pool is the client cache connection pool. Required.
	Pool *sqlitepool.Pool

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// OpenDevices prepares the device table and returns the directory.
func OpenDevices(ctx context.Context, cfg DevicesConfig) (*Devices, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("directory: devices: Pool is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, err := cfg.Pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: devices: preparing schema: %w", err)
	}
	defer cfg.Pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, deviceSchema, nil); err != nil {
		return nil, fmt.Errorf("directory: devices: creating table: %w", err)
	}

	return &Devices{pool: cfg.Pool, logger: logger}, nil
}

// GetOrCreate returns the device record for (userID, clientID),
// creating a DeviceNormal record if none exists. Creation publishes a
// change notice; a plain read does not.
func (d *Devices) GetOrCreate(ctx context.Context, userID ref.UserID, clientID ref.ClientID) (Device, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return Device{}, fmt.Errorf("directory: devices: get-or-create: %w", err)
	}

	var device Device
	found := false
	err = sqlitex.Execute(conn,
		"SELECT type, label FROM device WHERE user_id = ? AND client_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{userID.String(), clientID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				device = Device{
					UserID:   userID,
					ClientID: clientID,
					Type:     DeviceType(stmt.ColumnText(0)),
					Label:    stmt.ColumnText(1),
				}
				return nil
			},
		})
	if err != nil {
		d.pool.Put(conn)
		return Device{}, fmt.Errorf("directory: devices: get-or-create: %w", err)
	}
	if found {
		d.pool.Put(conn)
		return device, nil
	}

	device = Device{UserID: userID, ClientID: clientID, Type: DeviceNormal}
	err = sqlitex.Execute(conn,
		"INSERT INTO device (user_id, client_id, type, label) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{userID.String(), clientID.String(), string(device.Type), device.Label},
		})
	d.pool.Put(conn)
	if err != nil {
		return Device{}, fmt.Errorf("directory: devices: get-or-create: %w", err)
	}

	d.changes.publish(DeviceChange{UserID: userID})
	return device, nil
}

// Update upserts device records for one user and publishes a change
// notice. Records for other users in the slice are rejected — bulk
// refresh across users is one Update call per user.
func (d *Devices) Update(ctx context.Context, userID ref.UserID, devices []Device) error {
	for _, device := range devices {
		if device.UserID != userID {
			return fmt.Errorf("directory: devices: update for %s contains record owned by %s", userID, device.UserID)
		}
	}

	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("directory: devices: update: %w", err)
	}

	err = func() (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		defer endTransaction(&err)

		for _, device := range devices {
			err = sqlitex.Execute(conn,
				`INSERT INTO device (user_id, client_id, type, label) VALUES (?, ?, ?, ?)
				 ON CONFLICT(user_id, client_id) DO UPDATE SET type = excluded.type, label = excluded.label`,
				&sqlitex.ExecOptions{
					Args: []any{device.UserID.String(), device.ClientID.String(), string(device.Type), device.Label},
				})
			if err != nil {
				return err
			}
		}
		return nil
	}()
	d.pool.Put(conn)
	if err != nil {
		return fmt.Errorf("directory: devices: update: %w", err)
	}

	d.changes.publish(DeviceChange{UserID: userID})
	return nil
}

// Remove deletes device records for one user and publishes a change
// notice. Removing absent records is a no-op apart from the notice.
func (d *Devices) Remove(ctx context.Context, userID ref.UserID, clientIDs []ref.ClientID) error {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("directory: devices: remove: %w", err)
	}

	err = func() (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return err
		}
		defer endTransaction(&err)

		for _, clientID := range clientIDs {
			err = sqlitex.Execute(conn,
				"DELETE FROM device WHERE user_id = ? AND client_id = ?",
				&sqlitex.ExecOptions{
					Args: []any{userID.String(), clientID.String()},
				})
			if err != nil {
				return err
			}
		}
		return nil
	}()
	d.pool.Put(conn)
	if err != nil {
		return fmt.Errorf("directory: devices: remove: %w", err)
	}

	d.changes.publish(DeviceChange{UserID: userID})
	return nil
}

// Devices returns all device records for a user, ordered by client
// ID. A user with no records yields an empty slice, not an error.
func (d *Devices) Devices(ctx context.Context, userID ref.UserID) ([]Device, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory: devices: list: %w", err)
	}
	defer d.pool.Put(conn)

	var devices []Device
	err = sqlitex.Execute(conn,
		"SELECT client_id, type, label FROM device WHERE user_id = ? ORDER BY client_id",
		&sqlitex.ExecOptions{
			Args: []any{userID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				clientID, err := ref.ParseClientID(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("corrupt client ID in cache: %w", err)
				}
				devices = append(devices, Device{
					UserID:   userID,
					ClientID: clientID,
					Type:     DeviceType(stmt.ColumnText(1)),
					Label:    stmt.ColumnText(2),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("directory: devices: list: %w", err)
	}
	return devices, nil
}

// Watch subscribes to device change notices.
func (d *Devices) Watch() *Subscription[DeviceChange] {
	return d.changes.subscribe()
}

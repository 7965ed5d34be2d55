// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package legalhold

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/parley-foundation/parley/backend"
	"github.com/parley-foundation/parley/directory"
	"github.com/parley-foundation/parley/lib/ref"
	"github.com/parley-foundation/parley/lib/secret"
	"github.com/parley-foundation/parley/session"
)

// Approver is the backend operation the coordinator needs. Satisfied
// by [backend.Client].
type Approver interface {
	ApproveLegalHold(ctx context.Context, teamID ref.TeamID, userID ref.UserID, password *secret.Buffer) error
}

// CoordinatorConfig holds the collaborators of the approval
// coordinator.
type CoordinatorConfig struct {
	// SelfUser is the local user approving their own hold. Required.
	SelfUser ref.UserID

	// TeamID is the local user's team. Zero means the user is not in
	// a team, in which case every approval fails with ErrNotInTeam.
	TeamID ref.TeamID

	// Devices is the device directory. Required.
	Devices *directory.Devices

	// Sessions establishes sessions with the legal-hold device.
	// Required.
	Sessions session.Gateway

	// Backend confirms approvals with the server. Required.
	Backend Approver

	// Requests is the pending-request store. Required.
	Requests *RequestStore

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Coordinator runs the legal-hold approval protocol. Approval is
// staged: provision the legal-hold device record, establish a session
// with it, then confirm with the backend. The first two stages are
// local and cheap; if the backend refuses, they are rolled back so a
// failed approval leaves no trace beyond the still-pending request.
//
// Coordinator is safe for concurrent use; Approve is single-flight.
type Coordinator struct {
	selfUser ref.UserID
	teamID   ref.TeamID
	devices  *directory.Devices
	sessions session.Gateway
	backend  Approver
	requests *RequestStore
	logger   *slog.Logger

	// approveMu serializes Approve: a second invocation waits for the
	// first rather than racing it through the stages.
	approveMu sync.Mutex
}

// NewCoordinator creates the approval coordinator.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.SelfUser.IsZero() {
		return nil, fmt.Errorf("legalhold: coordinator: SelfUser is required")
	}
	if cfg.Devices == nil {
		return nil, fmt.Errorf("legalhold: coordinator: Devices is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("legalhold: coordinator: Sessions is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("legalhold: coordinator: Backend is required")
	}
	if cfg.Requests == nil {
		return nil, fmt.Errorf("legalhold: coordinator: Requests is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		selfUser: cfg.SelfUser,
		teamID:   cfg.TeamID,
		devices:  cfg.Devices,
		sessions: cfg.Sessions,
		backend:  cfg.Backend,
		requests: cfg.Requests,
		logger:   logger,
	}, nil
}

// Approve runs the approval protocol for a pending request. The
// password Buffer may be nil when the backend requires none; when
// present it is read but not closed — the caller retains ownership.
//
// On success the pending request is cleared, the legal-hold device
// record exists, and a session with it is established. On failure the
// provisioned device and session are rolled back and the pending
// request is left untouched, so the user can retry. Failures map to
// the taxonomy in errors.go: use errors.Is against ErrNotInTeam,
// ErrInvalidPassword, and ErrInvalidResponse.
func (c *Coordinator) Approve(ctx context.Context, request Request, password *secret.Buffer) error {
	c.approveMu.Lock()
	defer c.approveMu.Unlock()

	prekey, err := session.ParsePrekey(request.LastPrekey)
	if err != nil {
		return fmt.Errorf("legalhold: approve: %w", err)
	}

	// Stage 1: provision the legal-hold device record.
	device := directory.Device{
		UserID:   c.selfUser,
		ClientID: request.ClientID,
		Type:     directory.DeviceLegalHold,
		Label:    "Legal Hold",
	}
	if err := c.devices.Update(ctx, c.selfUser, []directory.Device{device}); err != nil {
		return fmt.Errorf("legalhold: approve: provisioning device: %w", err)
	}

	// Stage 2: establish the session with the legal-hold device.
	sessionID := session.NewID(c.selfUser, request.ClientID)
	if err := c.sessions.GetOrCreate(ctx, sessionID, prekey); err != nil {
		c.rollback(ctx, request.ClientID, sessionID)
		return fmt.Errorf("legalhold: approve: establishing session: %w", err)
	}

	// Stage 3: backend confirmation. A user without a team has no
	// backend authority to ask — the network is never contacted, but
	// the provisioned stages still come back out.
	if c.teamID.IsZero() {
		c.rollback(ctx, request.ClientID, sessionID)
		return ErrNotInTeam
	}
	if err := c.backend.ApproveLegalHold(ctx, c.teamID, c.selfUser, password); err != nil {
		c.rollback(ctx, request.ClientID, sessionID)
		return approvalError(err)
	}

	// Stage 4: the hold is confirmed; the request is no longer
	// pending.
	if err := c.requests.Delete(ctx); err != nil {
		return fmt.Errorf("legalhold: approve: clearing pending request: %w", err)
	}

	c.logger.Info("legal hold approved",
		"client_id", request.ClientID.String(),
	)
	return nil
}

// Fingerprint derives the human-readable fingerprint of the request's
// prekey for verification UI. The fingerprint is advisory: the second
// return value is false when derivation fails, and that is not an
// error — approval never depends on it.
func (c *Coordinator) Fingerprint(request Request) (string, bool) {
	prekey, err := session.ParsePrekey(request.LastPrekey)
	if err != nil {
		c.logger.Debug("fingerprint derivation skipped", "error", err)
		return "", false
	}
	fingerprint, err := c.sessions.FingerprintFromPrekey(prekey)
	if err != nil {
		c.logger.Debug("fingerprint derivation skipped", "error", err)
		return "", false
	}
	return session.FormatFingerprint(fingerprint), true
}

// rollback compensates stages 1 and 2: the device record is removed
// and the session deleted. Best effort — rollback failures are logged
// and the original approval error is what surfaces to the caller.
func (c *Coordinator) rollback(ctx context.Context, clientID ref.ClientID, sessionID session.ID) {
	if err := c.devices.Remove(ctx, c.selfUser, []ref.ClientID{clientID}); err != nil {
		c.logger.Error("rollback: removing device record failed",
			"client_id", clientID.String(),
			"error", err,
		)
	}
	if err := c.sessions.Delete(ctx, sessionID); err != nil {
		c.logger.Error("rollback: deleting session failed",
			"session_id", sessionID.String(),
			"error", err,
		)
	}
}

// approvalError maps a backend failure onto the approval taxonomy.
// Credential-shaped refusals (access denied, payload rejected) mean
// the password was wrong; everything else is an unexpected response.
func approvalError(err error) error {
	if backend.IsBackendError(err, backend.LabelAccessDenied) ||
		backend.IsBackendError(err, backend.LabelInvalidPayload) {
		return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
}

// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package legalhold

import "errors"

// Approval errors. These are the complete user-facing taxonomy of
// [Coordinator.Approve] failures: everything that can go wrong maps to
// one of the three, and the UI branches on errors.Is.
var (
	// ErrNotInTeam means the local user has no team, so there is no
	// backend authority that could confirm the approval.
	ErrNotInTeam = errors.New("legalhold: user is not in a team")

	// ErrInvalidPassword means the backend rejected the approval
	// because of the supplied credentials (or a malformed payload,
	// which the backend reports the same way).
	ErrInvalidPassword = errors.New("legalhold: backend rejected password")

	// ErrInvalidResponse means the backend call failed for any other
	// reason: transport failure, unexpected status, malformed body.
	ErrInvalidResponse = errors.New("legalhold: unexpected backend response")
)

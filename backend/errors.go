// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"errors"
	"fmt"
)

// BackendError represents a structured error response from the Parley
// backend. Callers can use errors.As to extract the structured
// information:
//
//	var backendErr *BackendError
//	if errors.As(err, &backendErr) {
//	    if backendErr.Label == LabelAccessDenied { ... }
//	}
type BackendError struct {
	// Label is the backend error label (e.g., "access-denied").
	Label string `json:"label"`
	// Message is the human-readable error description from the server.
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend: %s (%d): %s", e.Label, e.StatusCode, e.Message)
}

// Backend error labels for the legal-hold API.
const (
	LabelAccessDenied   = "access-denied"
	LabelInvalidPayload = "invalid-payload"
	LabelNoTeamMember   = "no-team-member"
)

// IsBackendError checks whether err is a *BackendError with the given
// label.
func IsBackendError(err error, label string) bool {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Label == label
	}
	return false
}

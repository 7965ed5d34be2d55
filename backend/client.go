// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend is the HTTP client for the Parley backend's
// legal-hold API. Error responses decode into [BackendError]; callers
// branch on the label, never on status codes or message text.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/parley-foundation/parley/lib/netutil"
	"github.com/parley-foundation/parley/lib/ref"
	"github.com/parley-foundation/parley/lib/secret"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the base URL of the Parley backend (e.g.,
	// "https://backend.parley.example").
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client talks to the Parley backend's legal-hold endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend: BaseURL is required")
	}

	// Validate the URL structure. The string form (trailing slash
	// stripped) is stored and request URLs are built by direct
	// concatenation, which avoids double-encoding issues with Go's
	// url.URL.String().
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("backend: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// approveRequest is the JSON body of the approval call. The password
// field is omitted when the backend does not require one.
type approveRequest struct {
	Password string `json:"password,omitempty"`
}

// ApproveLegalHold confirms the legal-hold request for userID with the
// backend. The password Buffer may be nil when the backend requires
// none; when present it is read but not closed — the caller retains
// ownership.
func (c *Client) ApproveLegalHold(ctx context.Context, teamID ref.TeamID, userID ref.UserID, password *secret.Buffer) error {
	if teamID.IsZero() {
		return fmt.Errorf("backend: approve legal hold: team ID is required")
	}
	if userID.IsZero() {
		return fmt.Errorf("backend: approve legal hold: user ID is required")
	}

	// Password is converted to string at the JSON serialization
	// boundary. The heap copy is short-lived — it exists only during
	// the HTTP call.
	var request approveRequest
	if password != nil {
		request.Password = password.String()
	}

	path := "/client/v1/teams/" + url.PathEscape(teamID.String()) +
		"/legalhold/" + url.PathEscape(userID.String()) + "/approve"
	if _, err := c.doRequest(ctx, http.MethodPut, path, request); err != nil {
		return fmt.Errorf("backend: approve legal hold: %w", err)
	}

	c.logger.Info("legal hold approved with backend",
		"team_id", teamID.String(),
		"user_id", userID.String(),
	)
	return nil
}

// doRequest performs an HTTP request and returns the response body.
// On 2xx, returns the body. On 4xx/5xx, returns a *BackendError.
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	// All backend error responses use the same JSON shape.
	var backendErr BackendError
	if jsonErr := json.Unmarshal(responseBody, &backendErr); jsonErr != nil || backendErr.Label == "" {
		// Server returned a non-JSON or unlabeled error. Fail loud
		// with the raw body.
		return nil, fmt.Errorf("unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	backendErr.StatusCode = response.StatusCode

	return responseBody, &backendErr
}

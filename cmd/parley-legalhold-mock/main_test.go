// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/parley-foundation/parley/lib/clock"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing scenario: %v", err)
	}
	return path
}

func newMock(t *testing.T, scenarioYAML string) *httptest.Server {
	t.Helper()
	s, err := loadScenario(writeScenario(t, scenarioYAML))
	if err != nil {
		t.Fatalf("loadScenario: %v", err)
	}
	server := httptest.NewServer(&approvalMock{
		scenario: s,
		clock:    clock.Real(),
		logger:   slog.New(slog.DiscardHandler),
	})
	t.Cleanup(server.Close)
	return server
}

func approve(t *testing.T, server *httptest.Server, team, user string) *http.Response {
	t.Helper()
	request, err := http.NewRequest(http.MethodPut,
		server.URL+"/client/v1/teams/"+team+"/legalhold/"+user+"/approve", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { response.Body.Close() })
	return response
}

func TestScriptedOutcomes(t *testing.T) {
	server := newMock(t, `
default:
  outcome: success
users:
  bob:
    outcome: error
    label: access-denied
    status: 403
    message: wrong password
`)

	t.Run("default success", func(t *testing.T) {
		response := approve(t, server, "acme", "alice")
		if response.StatusCode != http.StatusOK {
			t.Errorf("status: %d", response.StatusCode)
		}
	})

	t.Run("scripted refusal", func(t *testing.T) {
		response := approve(t, server, "acme", "bob")
		if response.StatusCode != http.StatusForbidden {
			t.Errorf("status: %d", response.StatusCode)
		}
		var body errorBody
		if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body.Label != "access-denied" || body.Message != "wrong password" {
			t.Errorf("body: %+v", body)
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		response, err := http.Get(server.URL + "/healthz")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer response.Body.Close()
		if response.StatusCode != http.StatusNotFound {
			t.Errorf("status: %d", response.StatusCode)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		response, err := http.Post(server.URL+"/client/v1/teams/acme/legalhold/alice/approve", "application/json", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer response.Body.Close()
		if response.StatusCode != http.StatusNotFound {
			t.Errorf("status: %d", response.StatusCode)
		}
	})
}

func TestLoadScenario(t *testing.T) {
	t.Run("empty path approves everything", func(t *testing.T) {
		s, err := loadScenario("")
		if err != nil {
			t.Fatalf("loadScenario: %v", err)
		}
		if s.outcomeFor("anyone").Outcome != "success" {
			t.Error("default scenario is not approve-everything")
		}
	})

	t.Run("delay parses", func(t *testing.T) {
		s, err := loadScenario(writeScenario(t, `
default:
  outcome: success
  delay: 250ms
`))
		if err != nil {
			t.Fatalf("loadScenario: %v", err)
		}
		if s.Default.delay.Milliseconds() != 250 {
			t.Errorf("delay: %v", s.Default.delay)
		}
	})

	t.Run("bad outcome rejected", func(t *testing.T) {
		_, err := loadScenario(writeScenario(t, `
default:
  outcome: maybe
`))
		if err == nil {
			t.Error("bad outcome accepted")
		}
	})

	t.Run("error without label rejected", func(t *testing.T) {
		_, err := loadScenario(writeScenario(t, `
default:
  outcome: error
`))
		if err == nil {
			t.Error("unlabeled error outcome accepted")
		}
	})
}

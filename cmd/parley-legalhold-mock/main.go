// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Parley-legalhold-mock is a stand-in for the backend's legal-hold
// approval endpoint in tests and demos. It serves the approve route
// with per-user outcomes scripted in a YAML scenario file, so the
// whole approval flow can run end to end without a real backend.
//
//	parley-legalhold-mock --listen 127.0.0.1:8642 --scenario scenario.yaml
//
// A scenario maps user IDs to outcomes; users without an entry get
// the default:
//
//	default:
//	  outcome: success
//	users:
//	  bob:
//	    outcome: error
//	    label: access-denied
//	    status: 403
//	    message: wrong password
//	  carol:
//	    outcome: success
//	    delay: 250ms
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/parley-foundation/parley/lib/clock"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("parley-legalhold-mock", pflag.ContinueOnError)
	listen := flags.String("listen", "127.0.0.1:8642", "address to serve on")
	scenarioPath := flags.String("scenario", "", "YAML scenario file (default: approve everything)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 2
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	scenario, err := loadScenario(*scenarioPath)
	if err != nil {
		logger.Error("loading scenario", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mock := &approvalMock{
		scenario: scenario,
		clock:    clock.Real(),
		logger:   logger,
	}
	server := &http.Server{
		Addr:    *listen,
		Handler: mock,
	}

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.ListenAndServe()
	}()
	logger.Info("mock approval backend listening", "addr", *listen)

	select {
	case err := <-serveDone:
		logger.Error("server failed", "error", err)
		return 1
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
		return 1
	}
	logger.Info("mock approval backend stopped")
	return 0
}

// outcome scripts one user's approval response.
type outcome struct {
	// Outcome is "success" or "error".
	Outcome string `yaml:"outcome"`

	// Label and Message form the error body when Outcome is "error".
	Label   string `yaml:"label,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Status is the HTTP status for an error outcome. Defaults to 403.
	Status int `yaml:"status,omitempty"`

	// Delay postpones the response, for exercising slow-backend
	// paths. Go duration syntax ("250ms").
	Delay string `yaml:"delay,omitempty"`

	// delay is Delay parsed at scenario load.
	delay time.Duration
}

// scenario maps users to scripted outcomes.
type scenario struct {
	Default outcome            `yaml:"default"`
	Users   map[string]outcome `yaml:"users"`
}

// loadScenario reads the scenario file. An empty path yields the
// approve-everything scenario.
func loadScenario(path string) (*scenario, error) {
	result := &scenario{Default: outcome{Outcome: "success"}}
	if path == "" {
		return result, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}

	if err := finishOutcome("default", &result.Default); err != nil {
		return nil, err
	}
	for user, o := range result.Users {
		if err := finishOutcome(user, &o); err != nil {
			return nil, err
		}
		result.Users[user] = o
	}
	return result, nil
}

// finishOutcome validates an outcome and parses its delay.
func finishOutcome(name string, o *outcome) error {
	if o.Delay != "" {
		delay, err := time.ParseDuration(o.Delay)
		if err != nil {
			return fmt.Errorf("scenario: %s: parsing delay: %w", name, err)
		}
		o.delay = delay
	}

	switch o.Outcome {
	case "success":
		return nil
	case "error":
		if o.Label == "" {
			return fmt.Errorf("scenario: %s: error outcome requires a label", name)
		}
		return nil
	default:
		return fmt.Errorf("scenario: %s: outcome must be success or error, got %q", name, o.Outcome)
	}
}

// outcomeFor returns the scripted outcome for a user.
func (s *scenario) outcomeFor(user string) outcome {
	if o, scripted := s.Users[user]; scripted {
		return o
	}
	return s.Default
}

type approvalMock struct {
	scenario *scenario
	clock    clock.Clock
	logger   *slog.Logger
}

// errorBody matches the backend's error response shape.
type errorBody struct {
	Label   string `json:"label"`
	Message string `json:"message"`
}

func (m *approvalMock) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	teamID, userID, err := parseApprovePath(r)
	if err != nil {
		m.logger.Warn("rejected request", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusNotFound, errorBody{Label: "not-found", Message: err.Error()})
		return
	}

	o := m.scenario.outcomeFor(userID)
	if o.delay > 0 {
		m.clock.Sleep(o.delay)
	}

	if o.Outcome == "success" {
		m.logger.Info("approval accepted", "team", teamID, "user", userID)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}\n"))
		return
	}

	status := o.Status
	if status == 0 {
		status = http.StatusForbidden
	}
	m.logger.Info("approval refused",
		"team", teamID,
		"user", userID,
		"label", o.Label,
		"status", status,
	)
	writeError(w, status, errorBody{Label: o.Label, Message: o.Message})
}

// parseApprovePath matches PUT /client/v1/teams/{team}/legalhold/{user}/approve.
func parseApprovePath(r *http.Request) (teamID, userID string, err error) {
	if r.Method != http.MethodPut {
		return "", "", fmt.Errorf("method %s not supported", r.Method)
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 7 || parts[0] != "client" || parts[1] != "v1" ||
		parts[2] != "teams" || parts[4] != "legalhold" || parts[6] != "approve" {
		return "", "", errors.New("unknown route")
	}
	if parts[3] == "" || parts[5] == "" {
		return "", "", errors.New("empty team or user")
	}
	return parts[3], parts[5], nil
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

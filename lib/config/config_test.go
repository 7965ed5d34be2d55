// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

const validConfig = `
paths:
  state_dir: /var/lib/parley
backend:
  url: https://api.parley.example
identity:
  user: 5fd2c163-9b1e-42c4-a6ae-fc4e0f2a0c31
  team: team-1
`

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Backend.URL != "https://api.parley.example" {
		t.Errorf("unexpected backend URL: %q", cfg.Backend.URL)
	}
	if cfg.Identity.User.String() != "5fd2c163-9b1e-42c4-a6ae-fc4e0f2a0c31" {
		t.Errorf("unexpected user: %q", cfg.Identity.User)
	}
	if cfg.Identity.Team.String() != "team-1" {
		t.Errorf("unexpected team: %q", cfg.Identity.Team)
	}
	if got := cfg.CacheDatabasePath(); got != "/var/lib/parley/cache.db" {
		t.Errorf("unexpected cache path: %q", got)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("PARLEY_TEST_STATE", "/tmp/parley-state")
	cfg, err := LoadFile(writeConfig(t, `
paths:
  state_dir: ${PARLEY_TEST_STATE}
backend:
  url: https://api.parley.example
identity:
  user: user-1
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Paths.StateDir != "/tmp/parley-state" {
		t.Errorf("env not expanded: %q", cfg.Paths.StateDir)
	}
}

func TestLoadFileValidation(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"missing state_dir", `
backend:
  url: https://api.parley.example
identity:
  user: user-1
`},
		{"relative state_dir", `
paths:
  state_dir: relative/path
backend:
  url: https://api.parley.example
identity:
  user: user-1
`},
		{"missing backend url", `
paths:
  state_dir: /var/lib/parley
identity:
  user: user-1
`},
		{"missing user", `
paths:
  state_dir: /var/lib/parley
backend:
  url: https://api.parley.example
`},
		{"malformed yaml", `paths: [`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, tc.contents)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadRequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error with unset PARLEY_CONFIG")
	}
}

func TestLoadUsesEnvVar(t *testing.T) {
	path := writeConfig(t, validConfig)
	t.Setenv(EnvVar, path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Identity.Team.IsZero() {
		t.Error("team missing from loaded config")
	}
}

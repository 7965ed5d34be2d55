// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/parley-foundation/parley/lib/ref"
)

// EnvVar is the environment variable naming the config file for
// [Load]. There are no fallbacks and no search paths.
const EnvVar = "PARLEY_CONFIG"

// Config is the client configuration for the Parley legal-hold
// subsystem: where the local cache lives, which backend to talk to,
// and who the local user is.
type Config struct {
	// Paths configures local storage locations.
	Paths PathsConfig `yaml:"paths"`

	// Backend configures the Parley backend connection.
	Backend BackendConfig `yaml:"backend"`

	// Identity names the local account.
	Identity IdentityConfig `yaml:"identity"`
}

// PathsConfig holds local storage locations. Environment variables in
// path values (${HOME} and friends) are expanded at load time.
type PathsConfig struct {
	// StateDir is the directory holding the client cache database
	// and preference store. Created by the client on first use.
	StateDir string `yaml:"state_dir"`

	// PrefsIdentity is an optional path to an age identity file. When
	// set, preference cell values (including the pending legal-hold
	// request, which carries a prekey) are encrypted at rest.
	PrefsIdentity string `yaml:"prefs_identity,omitempty"`
}

// BackendConfig holds the backend connection parameters.
type BackendConfig struct {
	// URL is the base URL of the Parley backend
	// (e.g., "https://api.parley.example").
	URL string `yaml:"url"`
}

// IdentityConfig names the local account.
type IdentityConfig struct {
	// User is the local account's user ID. Required.
	User ref.UserID `yaml:"user"`

	// Team is the team the account belongs to. Empty for personal
	// accounts — legal hold cannot be approved without a team, so a
	// personal account always fails approval with "not in a team".
	Team ref.TeamID `yaml:"team,omitempty"`
}

// Load reads the config file named by the PARLEY_CONFIG environment
// variable. Returns an error if the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("config: %s is not set", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile reads and validates a config file from an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.Paths.StateDir = os.ExpandEnv(cfg.Paths.StateDir)
	cfg.Paths.PrefsIdentity = os.ExpandEnv(cfg.Paths.PrefsIdentity)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// validate checks that required fields are present and well-formed.
func (c *Config) validate() error {
	if c.Paths.StateDir == "" {
		return fmt.Errorf("paths.state_dir is required")
	}
	if !filepath.IsAbs(c.Paths.StateDir) {
		return fmt.Errorf("paths.state_dir must be absolute, got %q", c.Paths.StateDir)
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Identity.User.IsZero() {
		return fmt.Errorf("identity.user is required")
	}
	return nil
}

// CacheDatabasePath returns the path of the client cache database
// inside the state directory.
func (c *Config) CacheDatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "cache.db")
}

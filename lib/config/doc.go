// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Parley client
// tooling.
//
// Configuration is loaded from a single file specified by either the
// PARLEY_CONFIG environment variable (via [Load]) or an explicit path
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This keeps configuration deterministic
// and auditable with no hidden overrides.
//
// Environment variable expansion (${HOME} and friends) is performed on
// path fields after loading. No other environment variables override
// config values.
//
// Key exports:
//
//   - [Config] — paths, backend URL, local identity
//   - [Load] and [LoadFile] — the two entry points for loading
//
// This package depends only on lib/ref.
package config

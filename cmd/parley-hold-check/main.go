// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Parley-hold-check is an exit-code probe against the local client
// cache: is a conversation under legal hold, is a user under legal
// hold, is a legal-hold request pending. Scripts branch on the exit
// code.
//
//	parley-hold-check --conversation conv-standup && echo "held"
//	parley-hold-check --user alice
//	parley-hold-check --pending-request
//
// Exit codes: 0 = the condition holds, 1 = it does not, 2 = usage or
// I/O error. The probe reads the same cache database the client
// writes, so answers reflect the client's last recompute.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/parley-foundation/parley/directory"
	"github.com/parley-foundation/parley/legalhold"
	"github.com/parley-foundation/parley/lib/clock"
	"github.com/parley-foundation/parley/lib/config"
	"github.com/parley-foundation/parley/lib/prefs"
	"github.com/parley-foundation/parley/lib/ref"
	"github.com/parley-foundation/parley/lib/sqlitepool"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("parley-hold-check", pflag.ContinueOnError)
	configPath := flags.String("config", "", "config file path (default: $"+config.EnvVar+")")
	conversation := flags.String("conversation", "", "check whether this conversation is under legal hold")
	user := flags.String("user", "", "check whether this user is under legal hold")
	pendingRequest := flags.Bool("pending-request", false, "check whether a legal-hold request is pending")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 2
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	conditions := 0
	if *conversation != "" {
		conditions++
	}
	if *user != "" {
		conditions++
	}
	if *pendingRequest {
		conditions++
	}
	if conditions != 1 {
		fmt.Fprintf(os.Stderr, "error: exactly one of --conversation, --user, --pending-request is required\n")
		flags.PrintDefaults()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.CacheDatabasePath(),
		PoolSize: 1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	defer pool.Close()

	ctx := context.Background()
	switch {
	case *conversation != "":
		return checkConversation(ctx, pool, *conversation)
	case *user != "":
		return checkUser(ctx, pool, *user)
	default:
		return checkPendingRequest(ctx, pool, cfg)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func checkConversation(ctx context.Context, pool *sqlitepool.Pool, raw string) int {
	convID, err := ref.ParseConvID(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	conversations, err := directory.OpenConversations(ctx, directory.ConversationsConfig{Pool: pool})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	conv, found, err := conversations.Get(ctx, convID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if !found || !conv.LegalHold {
		fmt.Fprintf(os.Stderr, "conversation %s is not under legal hold\n", convID)
		return 1
	}
	return 0
}

func checkUser(ctx context.Context, pool *sqlitepool.Pool, raw string) int {
	userID, err := ref.ParseUserID(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	devices, err := directory.OpenDevices(ctx, directory.DevicesConfig{Pool: pool})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	records, err := devices.Devices(ctx, userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	for _, device := range records {
		if device.IsLegalHold() {
			return 0
		}
	}
	fmt.Fprintf(os.Stderr, "user %s is not under legal hold\n", userID)
	return 1
}

func checkPendingRequest(ctx context.Context, pool *sqlitepool.Pool, cfg *config.Config) int {
	identity, err := loadPrefsIdentity(cfg.Paths.PrefsIdentity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	store, err := prefs.OpenStore(ctx, prefs.StoreConfig{
		Pool:     pool,
		Clock:    clock.Real(),
		Identity: identity,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	_, pending, err := legalhold.NewRequestStore(store).Pending(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if !pending {
		fmt.Fprintf(os.Stderr, "no legal-hold request is pending\n")
		return 1
	}
	return 0
}

// loadPrefsIdentity reads an age identity file. Returns nil (no
// encryption) when no path is configured.
func loadPrefsIdentity(path string) (*age.X25519Identity, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prefs identity: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "AGE-SECRET-KEY-") {
			identity, err := age.ParseX25519Identity(line)
			if err != nil {
				return nil, fmt.Errorf("parsing prefs identity: %w", err)
			}
			return identity, nil
		}
	}
	return nil, fmt.Errorf("no age secret key found in %s", path)
}

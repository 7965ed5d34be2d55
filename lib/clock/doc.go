// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Production code uses [Real], a thin pass-through to the time
// package. Tests use [Fake], whose time only moves when the test calls
// Advance or Set. Anything in Parley that reads the current time or
// waits for a duration takes a [Clock] rather than calling the time
// package directly, so tests never depend on wall-clock timing.
//
// The interface is deliberately small — Now, After, Sleep — covering
// exactly the operations the client subsystems use. Tickers and timer
// cancellation are not part of the surface; nothing here runs periodic
// work.
//
// This package depends on no other Parley packages.
package clock

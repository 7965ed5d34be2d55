// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when the test calls
// Advance or Set. After channels fire when the fake time passes their
// deadline, never from wall-clock progress.
//
// FakeClock is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

// Fake returns a FakeClock starting at a fixed, arbitrary instant
// (2026-01-01T00:00:00Z). The starting point is deterministic so tests
// that snapshot timestamps are reproducible.
func Fake() *FakeClock {
	return &FakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After returns a channel that receives the fake time once it reaches
// now+d. If d <= 0, the channel receives immediately.
func (f *FakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.waiters = append(f.waiters, &fakeWaiter{deadline: f.now.Add(d), ch: ch})
	return ch
}

// Sleep blocks until the fake time advances past now+d. A test that
// calls Sleep on the same goroutine that would call Advance will
// deadlock; run the sleeper on its own goroutine.
func (f *FakeClock) Sleep(d time.Duration) {
	<-f.After(d)
}

// Advance moves the fake time forward by d and fires every waiter
// whose deadline has been reached.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(f.now.Add(d))
}

// Set moves the fake time to the given instant. Panics if t is before
// the current fake time — time never runs backward, even in tests.
func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Before(f.now) {
		panic("clock: FakeClock.Set called with a time in the past")
	}
	f.setLocked(t)
}

func (f *FakeClock) setLocked(t time.Time) {
	f.now = t

	remaining := f.waiters[:0]
	for _, waiter := range f.waiters {
		if !waiter.deadline.After(t) {
			waiter.ch <- t
		} else {
			remaining = append(remaining, waiter)
		}
	}
	f.waiters = remaining
}

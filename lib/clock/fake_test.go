// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNow(t *testing.T) {
	fake := Fake()
	start := fake.Now()

	fake.Advance(5 * time.Second)
	if got := fake.Now().Sub(start); got != 5*time.Second {
		t.Errorf("after Advance(5s): Now moved by %v", got)
	}

	// Now is stable without Advance.
	if !fake.Now().Equal(start.Add(5 * time.Second)) {
		t.Error("Now drifted without Advance")
	}
}

func TestFakeAfter(t *testing.T) {
	t.Run("fires at deadline", func(t *testing.T) {
		fake := Fake()
		ch := fake.After(10 * time.Second)

		fake.Advance(9 * time.Second)
		select {
		case <-ch:
			t.Fatal("After fired before deadline")
		default:
		}

		fake.Advance(time.Second)
		select {
		case <-ch:
		default:
			t.Fatal("After did not fire at deadline")
		}
	})

	t.Run("non-positive fires immediately", func(t *testing.T) {
		fake := Fake()
		select {
		case <-fake.After(0):
		default:
			t.Fatal("After(0) did not fire immediately")
		}
	})

	t.Run("multiple waiters", func(t *testing.T) {
		fake := Fake()
		early := fake.After(time.Second)
		late := fake.After(time.Minute)

		fake.Advance(time.Second)
		select {
		case <-early:
		default:
			t.Fatal("early waiter did not fire")
		}
		select {
		case <-late:
			t.Fatal("late waiter fired early")
		default:
		}

		fake.Advance(time.Minute)
		select {
		case <-late:
		default:
			t.Fatal("late waiter did not fire")
		}
	})
}

func TestFakeSet(t *testing.T) {
	fake := Fake()
	target := fake.Now().Add(time.Hour)
	fake.Set(target)
	if !fake.Now().Equal(target) {
		t.Errorf("Set did not move time: %v", fake.Now())
	}

	defer func() {
		if recover() == nil {
			t.Error("Set into the past did not panic")
		}
	}()
	fake.Set(target.Add(-time.Minute))
}

func TestFakeSleep(t *testing.T) {
	fake := Fake()
	done := make(chan struct{})
	go func() {
		fake.Sleep(time.Second)
		close(done)
	}()

	// The sleeper must not return before time advances. Give the
	// goroutine a moment to register its waiter, then advance.
	for {
		fake.mu.Lock()
		registered := len(fake.waiters) == 1
		fake.mu.Unlock()
		if registered {
			break
		}
		time.Sleep(time.Millisecond)
	}

	fake.Advance(time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

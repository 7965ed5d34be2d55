// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package directory

import (
	"sync"
	"sync/atomic"
)

// SubscriptionChannelSize is the buffer size for per-subscriber
// change-notice channels. Must absorb burst updates (a bulk device
// refresh touching many users) without drops. If a subscriber's
// channel is full, the notice is dropped and the subscriber's Missed
// flag is set.
const SubscriptionChannelSize = 64

// Subscription is one listener on a directory change stream. Read
// notices from C. A subscriber that falls behind has notices dropped
// and Missed set — it must treat its view as stale and re-read the
// directory rather than trust channel history. Call Close to
// unregister.
type Subscription[T any] struct {
	// C delivers change notices in publish order.
	C <-chan T

	// Missed is set when a notice was dropped because C was full.
	Missed atomic.Bool

	stream *stream[T]
	ch     chan T
	once   sync.Once
}

// Close unregisters the subscription and closes C. Idempotent.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.stream.unregister(s)
		close(s.ch)
	})
}

// stream is a fanout registry of subscriptions. The zero value is
// ready to use.
type stream[T any] struct {
	mu   sync.Mutex
	subs []*Subscription[T]
}

// subscribe registers a new subscription.
func (s *stream[T]) subscribe() *Subscription[T] {
	ch := make(chan T, SubscriptionChannelSize)
	sub := &Subscription[T]{C: ch, ch: ch, stream: s}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub
}

// publish fans a notice out to all subscriptions. Non-blocking: a
// full channel drops the notice and sets Missed.
func (s *stream[T]) publish(notice T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		select {
		case sub.ch <- notice:
		default:
			sub.Missed.Store(true)
		}
	}
}

// unregister removes a subscription from the fanout list.
func (s *stream[T]) unregister(target *Subscription[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub == target {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

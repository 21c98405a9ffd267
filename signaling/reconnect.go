// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import "time"

// ReconnectPolicy bounds how a client redials a lost relay: the first
// attempt waits Delay, each later one twice the previous wait up to
// MaxDelay, and the client gives up after Attempts attempts. Zero
// Attempts disables redialing.
type ReconnectPolicy struct {
	Delay    time.Duration
	MaxDelay time.Duration
	Attempts int
}

// DefaultReconnectPolicy is 1s doubling to 5s, five attempts.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{Delay: time.Second, MaxDelay: 5 * time.Second, Attempts: 5}
}

// Backoff returns the wait before the given zero-based attempt.
func (p ReconnectPolicy) Backoff(attempt int) time.Duration {
	delay := p.Delay
	for range attempt {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

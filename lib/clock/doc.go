// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that schedule work (the reconnect supervisor, the guest's
// init-request timers, the signaling client's redial backoff) take a
// Clock instead of calling time.AfterFunc directly. Production code
// passes Real(); tests pass Fake() and move time with Advance:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	supervisor := transport.NewSupervisor(fake, 3*time.Second, rebuild, logger)
//	supervisor.Observe(transport.StateDisconnected)
//	fake.Advance(3 * time.Second) // rebuild runs here, synchronously
//
// AfterFunc callbacks registered on a FakeClock run synchronously
// inside Advance, in deadline order.
package clock

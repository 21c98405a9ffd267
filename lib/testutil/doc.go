// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests that wait on goroutines (pion callbacks, websocket
// readers, the event loop) do not each carry their own time.After.
// These helpers are the only place tests use wall-clock timeouts; timer
// behavior under test goes through lib/clock's fake instead.
//
// [Logger] returns a slog.Logger that writes through t.Log, so log
// output shows up only for failing or verbose test runs.
//
// All helpers call t.Fatalf on failure.
package testutil

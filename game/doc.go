// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package game implements the replicated two-player card game.
//
// The package has three layers:
//
//   - [Validate] checks an action's preconditions against the actor's
//     view of a [State]. It runs only on the peer that originates the
//     action.
//   - [Apply] is the pure transition function. It never mutates its
//     input; every call returns a new State that shares untouched
//     slices with the old one. Both peers run Apply on the same
//     sequence of actions and must reach identical states, so Apply
//     uses no clock, no randomness and no map iteration order.
//   - [Replica] owns the authoritative State for one peer. The host
//     builds the opening state with [NewGame]; the guest stays
//     uninitialized until the host's state arrives, buffering remote
//     actions in receipt order and replaying them on initialization.
//
// The receiving peer applies remote actions without validating them.
// A peer that sends an action its own validator would reject
// desynchronizes the replicas permanently; there is no reconciliation.
// [Fingerprint] hashes a State's deterministic CBOR encoding so that
// logs from both peers can be compared after the fact.
package game

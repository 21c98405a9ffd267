// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package session plays one game against one opponent. A [Session]
// joins the signaling relay, negotiates a peer connection, keeps the
// replicated game state and exposes the game as intents (DrawCard,
// PlayCard, ...) and observables (GameState, ConnectionState, ...).
//
// The room's creator is the host: it deals the game, offers the peer
// connection, and re-sends the opening state whenever the guest
// joins, reconnects or asks for it. The joiner is the guest: it
// answers, buffers any actions that arrive before the opening state,
// and asks for the state if it has not arrived shortly after joining.
//
// Every reaction runs on one event loop, so a local intent and a
// remote action are applied strictly in the order the loop sees them.
// Intent methods post to the loop and wait. Observable getters read a
// snapshot published after each change and never wait. [Observer]
// callbacks run on the loop and must not call the intent methods.
package session

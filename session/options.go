// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"log/slog"
	"math/rand/v2"

	"github.com/peerduel/peerduel/game"
	"github.com/peerduel/peerduel/lib/clock"
	"github.com/peerduel/peerduel/lib/config"
	"github.com/peerduel/peerduel/signaling"
	"github.com/peerduel/peerduel/transport"
)

// Options configures New.
type Options struct {
	// UserID names this player to the relay. Defaults to a random
	// UUID.
	UserID string

	// Signaler is the relay connection. Required. The session takes
	// ownership and closes it in Close.
	Signaler signaling.Signaler

	// NewPeer builds the peer connection for each negotiation.
	// Defaults to a pion peer configured by ICE.
	NewPeer func(role transport.Role) (transport.Peer, error)

	ICE transport.ICEConfig

	// Settings holds timer delays and buffer marks. Zero fields take
	// the configuration defaults.
	Settings config.SessionConfig

	// Rules are the setup constants used when this session hosts.
	// The zero value means game.DefaultRules.
	Rules game.Rules

	// Source shuffles the host's decks and names the game. Defaults to
	// a randomly seeded ChaCha8.
	Source *rand.ChaCha8

	Clock    clock.Clock
	Observer Observer
	Logger   *slog.Logger
}

// Observer receives session events on the session's event loop. Nil
// fields are skipped. Callbacks must return promptly and must not call
// Session intent methods, which wait on the same loop.
type Observer struct {
	OnConnectionState func(state transport.ConnectionState)

	// OnGameState is called with each new game state: the opening
	// state and every state after a local or remote action.
	OnGameState func(state game.State)

	// OnGameEnd is called once when a winner is decided.
	OnGameEnd func(winner game.PlayerID, totalTurns int)

	// OnOpponentLeft is called when the relay reports that the other
	// player disconnected.
	OnOpponentLeft func()

	// OnError reports problems that have no caller to return to:
	// relay error events, and a peer connection that failed for good.
	OnError func(err error)
}

// withDefaults fills the zero fields of settings from the
// configuration defaults.
func withDefaults(settings config.SessionConfig) config.SessionConfig {
	defaults := config.Default().Session
	if settings.ReconnectDelay <= 0 {
		settings.ReconnectDelay = defaults.ReconnectDelay
	}
	if settings.InitRequestDelay <= 0 {
		settings.InitRequestDelay = defaults.InitRequestDelay
	}
	if settings.InitRetryDelay <= 0 {
		settings.InitRetryDelay = defaults.InitRetryDelay
	}
	if settings.BufferedAmountHigh == 0 {
		settings.BufferedAmountHigh = defaults.BufferedAmountHigh
		settings.BufferedAmountLow = defaults.BufferedAmountLow
	}
	return settings
}

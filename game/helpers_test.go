// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededSource(seed byte) *rand.ChaCha8 {
	var key [32]byte
	key[0] = seed
	return rand.NewChaCha8(key)
}

func mustNewGame(t *testing.T, seed byte) State {
	t.Helper()
	state, err := NewGame(DefaultRules(), seededSource(seed))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return state
}

func mustCard(t *testing.T, id string) Card {
	t.Helper()
	card, ok := CardByID(id)
	if !ok {
		t.Fatalf("card %q not in catalog", id)
	}
	return card
}

func creature(name string, attack, health int) *CreatureInstance {
	return &CreatureInstance{
		Card: Card{
			ID:     "test_" + name,
			Name:   name,
			Type:   CardCreature,
			Attack: attack,
			Health: health,
		},
		CurrentHealth: health,
		InstanceID:    "instance-" + name,
	}
}

// withPlayer returns state with player id replaced by edit's result.
// The players map is rebuilt so the caller's state is untouched.
func withPlayer(state State, id PlayerID, edit func(*PlayerState)) State {
	players := make(map[PlayerID]PlayerState, len(state.Players))
	for key, value := range state.Players {
		players[key] = value
	}
	player := players[id]
	edit(&player)
	players[id] = player
	state.Players = players
	return state
}

// atPhase returns state with player1 to act in phase.
func atPhase(state State, phase Phase) State {
	state.CurrentPlayer = Player1
	state.Phase = phase
	return state
}

func mustFingerprint(t *testing.T, state State) string {
	t.Helper()
	fingerprint, err := Fingerprint(state)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	return fingerprint
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

// candidateActions lists every action shape the current player could
// try, legal or not.
func candidateActions(state State) []Action {
	actor := state.CurrentPlayer
	player := state.Players[actor]
	actions := []Action{
		DrawCard(actor),
		EndTurn(actor),
		ChangePhase(actor, PhaseMain),
		ChangePhase(actor, PhaseCombat),
	}
	for index := range player.Hand {
		actions = append(actions, PlaySpell(actor, index, nil))
		for slot := range FieldSlots {
			actions = append(actions,
				PlayCreature(actor, index, slot),
				PlaySpell(actor, index, Slot(slot)),
			)
		}
	}
	for attacker := range FieldSlots {
		actions = append(actions, Attack(actor, attacker, nil))
		for defender := range FieldSlots {
			actions = append(actions, Attack(actor, attacker, Slot(defender)))
		}
	}
	return actions
}

func legalActions(state State) []Action {
	var legal []Action
	for _, action := range candidateActions(state) {
		if Validate(state, action, state.CurrentPlayer) == nil {
			legal = append(legal, action)
		}
	}
	return legal
}

// TestRandomPlayouts drives full games with random legal moves and
// checks after every step that Apply is deterministic, leaves its
// input untouched, and preserves the game's invariants.
func TestRandomPlayouts(t *testing.T) {
	seeds := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if testing.Short() {
		seeds = seeds[:2]
	}

	for _, seed := range seeds {
		state := mustNewGame(t, seed)
		chooser := rand.New(rand.NewPCG(uint64(seed), 0))
		host := NewReplica(Player1, discardLogger())
		host.InitializeHost(state)
		guest := NewReplica(Player2, discardLogger())
		guest.Initialize(state)

		for step := 0; step < 400 && !state.IsOver(); step++ {
			legal := legalActions(state)
			if len(legal) == 0 {
				t.Fatalf("seed %d step %d: no legal action for %s", seed, step, state.CurrentPlayer)
			}
			action := legal[chooser.IntN(len(legal))]

			before := mustFingerprint(t, state)
			next := Apply(state, action)
			again := Apply(state, action)
			if !reflect.DeepEqual(next, again) {
				t.Fatalf("seed %d step %d: Apply(%s) is not deterministic", seed, step, action)
			}
			if mustFingerprint(t, state) != before {
				t.Fatalf("seed %d step %d: Apply(%s) modified its input", seed, step, action)
			}
			if err := CheckInvariants(next); err != nil {
				t.Fatalf("seed %d step %d: %s broke an invariant: %v", seed, step, action, err)
			}
			if next.Turn < state.Turn {
				t.Fatalf("seed %d step %d: turn went from %d to %d", seed, step, state.Turn, next.Turn)
			}
			if state.IsOver() && next.Winner != state.Winner {
				t.Fatalf("seed %d step %d: winner changed", seed, step)
			}

			// The acting peer validates and applies locally; the other
			// applies the same action as a remote one.
			local, remote := host, guest
			if action.Player == Player2 {
				local, remote = guest, host
			}
			localState, err := local.ApplyLocal(action)
			if err != nil {
				t.Fatalf("seed %d step %d: ApplyLocal(%s): %v", seed, step, action, err)
			}
			remoteState, _ := remote.ApplyRemote(action)
			if mustFingerprint(t, localState) != mustFingerprint(t, remoteState) {
				t.Fatalf("seed %d step %d: replicas diverged after %s", seed, step, action)
			}

			state = next
		}
	}
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"errors"
	"fmt"
	"slices"
)

// CheckInvariants reports every structural rule state violates. A
// state built by NewGame and advanced only by validated actions always
// passes; a failure after a remote action means the peer sent
// something its own validator should have rejected.
func CheckInvariants(state State) error {
	var errs []error
	if state.Turn < 1 {
		errs = append(errs, fmt.Errorf("turn %d is below 1", state.Turn))
	}
	if !state.CurrentPlayer.Valid() {
		errs = append(errs, fmt.Errorf("current player %q is not a seat", state.CurrentPlayer))
	}
	if !state.Phase.Valid() {
		errs = append(errs, fmt.Errorf("unknown phase %q", state.Phase))
	}
	if state.Winner != "" && !state.Winner.Valid() {
		errs = append(errs, fmt.Errorf("winner %q is not a seat", state.Winner))
	}
	if state.Winner.Valid() {
		if loser, ok := state.Players[state.Winner.Opponent()]; ok && loser.Health > 0 {
			errs = append(errs, fmt.Errorf("winner %s decided while %s has health %d",
				state.Winner, state.Winner.Opponent(), loser.Health))
		}
	}
	if len(state.Players) != 2 {
		errs = append(errs, fmt.Errorf("%d players, want 2", len(state.Players)))
	}
	for _, id := range []PlayerID{Player1, Player2} {
		player, ok := state.Players[id]
		if !ok {
			errs = append(errs, fmt.Errorf("%s: missing", id))
			continue
		}
		if player.Health > MaxHealth {
			errs = append(errs, fmt.Errorf("%s: health %d above %d", id, player.Health, MaxHealth))
		}
		if player.Health <= 0 && state.Winner != id.Opponent() {
			errs = append(errs, fmt.Errorf("%s: health %d but %s is not the winner", id, player.Health, id.Opponent()))
		}
		if player.Mana < 0 || player.Mana > player.MaxMana {
			errs = append(errs, fmt.Errorf("%s: mana %d outside [0, %d]", id, player.Mana, player.MaxMana))
		}
		if player.MaxMana > ManaCap {
			errs = append(errs, fmt.Errorf("%s: max mana %d above %d", id, player.MaxMana, ManaCap))
		}
		if !slices.IsSorted(player.AttackedThisTurn) {
			errs = append(errs, fmt.Errorf("%s: attacked slots %v not ascending", id, player.AttackedThisTurn))
		}
		for _, slot := range player.AttackedThisTurn {
			if !inRange(slot, FieldSlots) || player.Field[slot] == nil {
				errs = append(errs, fmt.Errorf("%s: slot %d attacked but empty", id, slot))
			}
		}
	}
	return errors.Join(errs...)
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import "fmt"

// ValidationError is returned by Validate when an action's
// preconditions do not hold. Reason is suitable for showing to the
// player.
type ValidationError struct {
	Action ActionType
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Action, e.Reason)
}

func reject(action Action, format string, args ...any) error {
	return &ValidationError{Action: action.Type, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks action against state from actor's point of view. It
// returns nil when the action may be applied, or a *ValidationError.
// Validate runs only on the originating peer.
func Validate(state State, action Action, actor PlayerID) error {
	if action.Player != actor {
		return reject(action, "action belongs to %q, not %q", action.Player, actor)
	}
	player, ok := state.Player(actor)
	if !ok {
		return reject(action, "unknown player %q", actor)
	}
	if state.IsOver() {
		return reject(action, "the game is over")
	}
	if state.CurrentPlayer != actor {
		return reject(action, "not your turn")
	}
	opponent, _ := state.Player(actor.Opponent())

	switch action.Type {
	case ActionDrawCard:
		if state.Phase != PhaseDraw {
			return reject(action, "cards can only be drawn in the draw phase")
		}
		if len(player.Deck) == 0 {
			return reject(action, "deck is empty")
		}

	case ActionPlayCreature:
		if state.Phase != PhaseMain {
			return reject(action, "creatures can only be played in the main phase")
		}
		if !inRange(action.CardIndex, len(player.Hand)) {
			return reject(action, "no card at hand index %d", action.CardIndex)
		}
		card := player.Hand[action.CardIndex]
		if !card.IsCreature() {
			return reject(action, "%s is not a creature", card.Name)
		}
		if card.Cost > player.Mana {
			return reject(action, "not enough mana: %s costs %d, have %d", card.Name, card.Cost, player.Mana)
		}
		if !inRange(action.Slot, FieldSlots) {
			return reject(action, "field slot %d out of range", action.Slot)
		}
		if player.Field[action.Slot] != nil {
			return reject(action, "field slot %d is occupied", action.Slot)
		}

	case ActionPlaySpell:
		if state.Phase != PhaseMain {
			return reject(action, "spells can only be cast in the main phase")
		}
		if !inRange(action.CardIndex, len(player.Hand)) {
			return reject(action, "no card at hand index %d", action.CardIndex)
		}
		card := player.Hand[action.CardIndex]
		if !card.IsSpell() {
			return reject(action, "%s is not a spell", card.Name)
		}
		if card.Cost > player.Mana {
			return reject(action, "not enough mana: %s costs %d, have %d", card.Name, card.Cost, player.Mana)
		}
		if card.Target == TargetCreature {
			if action.TargetSlot == nil {
				return reject(action, "%s needs a target creature", card.Name)
			}
			if !inRange(*action.TargetSlot, FieldSlots) {
				return reject(action, "target slot %d out of range", *action.TargetSlot)
			}
			if opponent.Field[*action.TargetSlot] == nil {
				return reject(action, "no creature in target slot %d", *action.TargetSlot)
			}
		}

	case ActionAttack:
		if state.Phase != PhaseCombat {
			return reject(action, "attacks can only be made in the combat phase")
		}
		if !inRange(action.AttackerSlot, FieldSlots) || player.Field[action.AttackerSlot] == nil {
			return reject(action, "no creature in slot %d", action.AttackerSlot)
		}
		if player.HasAttacked(action.AttackerSlot) {
			return reject(action, "the creature in slot %d already attacked this turn", action.AttackerSlot)
		}
		if action.DefenderSlot != nil && !inRange(*action.DefenderSlot, FieldSlots) {
			return reject(action, "defender slot %d out of range", *action.DefenderSlot)
		}

	case ActionPhaseChange:
		if !action.Phase.Valid() {
			return reject(action, "unknown phase %q", action.Phase)
		}

	case ActionEndTurn:

	default:
		return reject(action, "unknown action type")
	}
	return nil
}

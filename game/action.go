// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"encoding/json"
	"fmt"
)

// ActionType discriminates the Action union.
type ActionType string

const (
	ActionDrawCard     ActionType = "DRAW_CARD"
	ActionPlayCreature ActionType = "PLAY_CREATURE"
	ActionPlaySpell    ActionType = "PLAY_SPELL"
	ActionAttack       ActionType = "ATTACK"
	ActionPhaseChange  ActionType = "PHASE_CHANGE"
	ActionEndTurn      ActionType = "END_TURN"
)

// Action is a player's intent to change the game. Only the fields of
// its Type are meaningful:
//
//	PLAY_CREATURE  CardIndex, Slot
//	PLAY_SPELL     CardIndex, TargetSlot (nil when untargeted)
//	ATTACK         AttackerSlot, DefenderSlot (nil for a direct attack)
//	PHASE_CHANGE   Phase
type Action struct {
	Type   ActionType
	Player PlayerID

	CardIndex    int
	Slot         int
	TargetSlot   *int
	AttackerSlot int
	DefenderSlot *int
	Phase        Phase
}

// DrawCard returns a DRAW_CARD action for player.
func DrawCard(player PlayerID) Action {
	return Action{Type: ActionDrawCard, Player: player}
}

// PlayCreature returns a PLAY_CREATURE action.
func PlayCreature(player PlayerID, cardIndex, slot int) Action {
	return Action{Type: ActionPlayCreature, Player: player, CardIndex: cardIndex, Slot: slot}
}

// PlaySpell returns a PLAY_SPELL action. targetSlot may be nil.
func PlaySpell(player PlayerID, cardIndex int, targetSlot *int) Action {
	return Action{Type: ActionPlaySpell, Player: player, CardIndex: cardIndex, TargetSlot: targetSlot}
}

// Attack returns an ATTACK action. A nil defenderSlot attacks the
// opposing player directly.
func Attack(player PlayerID, attackerSlot int, defenderSlot *int) Action {
	return Action{Type: ActionAttack, Player: player, AttackerSlot: attackerSlot, DefenderSlot: defenderSlot}
}

// ChangePhase returns a PHASE_CHANGE action.
func ChangePhase(player PlayerID, phase Phase) Action {
	return Action{Type: ActionPhaseChange, Player: player, Phase: phase}
}

// EndTurn returns an END_TURN action.
func EndTurn(player PlayerID) Action {
	return Action{Type: ActionEndTurn, Player: player}
}

// Slot returns a pointer to slot, for the optional slot fields.
func Slot(slot int) *int { return &slot }

// String renders the action for logs.
func (a Action) String() string {
	switch a.Type {
	case ActionPlayCreature:
		return fmt.Sprintf("%s %s card=%d slot=%d", a.Player, a.Type, a.CardIndex, a.Slot)
	case ActionPlaySpell:
		return fmt.Sprintf("%s %s card=%d target=%s", a.Player, a.Type, a.CardIndex, optionalSlot(a.TargetSlot))
	case ActionAttack:
		return fmt.Sprintf("%s %s attacker=%d defender=%s", a.Player, a.Type, a.AttackerSlot, optionalSlot(a.DefenderSlot))
	case ActionPhaseChange:
		return fmt.Sprintf("%s %s phase=%s", a.Player, a.Type, a.Phase)
	default:
		return fmt.Sprintf("%s %s", a.Player, a.Type)
	}
}

func optionalSlot(slot *int) string {
	if slot == nil {
		return "none"
	}
	return fmt.Sprint(*slot)
}

// actionWire is the JSON shape of an Action: only the fields of the
// action's type are present.
type actionWire struct {
	Type         ActionType `json:"type"`
	Player       PlayerID   `json:"player"`
	CardIndex    *int       `json:"cardIndex,omitempty"`
	Slot         *int       `json:"slot,omitempty"`
	TargetSlot   *int       `json:"targetSlot,omitempty"`
	AttackerSlot *int       `json:"attackerSlot,omitempty"`
	DefenderSlot *int       `json:"defenderSlot,omitempty"`
	Phase        Phase      `json:"phase,omitempty"`
}

// MarshalJSON encodes the fields relevant to the action's type.
func (a Action) MarshalJSON() ([]byte, error) {
	wire := actionWire{Type: a.Type, Player: a.Player}
	switch a.Type {
	case ActionPlayCreature:
		wire.CardIndex = Slot(a.CardIndex)
		wire.Slot = Slot(a.Slot)
	case ActionPlaySpell:
		wire.CardIndex = Slot(a.CardIndex)
		wire.TargetSlot = a.TargetSlot
	case ActionAttack:
		wire.AttackerSlot = Slot(a.AttackerSlot)
		wire.DefenderSlot = a.DefenderSlot
	case ActionPhaseChange:
		wire.Phase = a.Phase
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes an action. A missing index field that the
// action's type requires decodes as -1, which Apply treats as out of
// range.
func (a *Action) UnmarshalJSON(data []byte) error {
	var wire actionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Type == "" {
		return fmt.Errorf("action has no type")
	}
	*a = Action{Type: wire.Type, Player: wire.Player}
	switch wire.Type {
	case ActionPlayCreature:
		a.CardIndex = intOr(wire.CardIndex, -1)
		a.Slot = intOr(wire.Slot, -1)
	case ActionPlaySpell:
		a.CardIndex = intOr(wire.CardIndex, -1)
		a.TargetSlot = wire.TargetSlot
	case ActionAttack:
		a.AttackerSlot = intOr(wire.AttackerSlot, -1)
		a.DefenderSlot = wire.DefenderSlot
	case ActionPhaseChange:
		a.Phase = wire.Phase
	}
	return nil
}

func intOr(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

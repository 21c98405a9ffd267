// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"slices"

	"github.com/google/uuid"
)

// Rule constants read by Apply and Validate. They are not
// configurable: both replicas must agree on them without negotiating.
const (
	FieldSlots = 5
	MaxHealth  = 20
	ManaCap    = 10
)

// PlayerID names a seat. The host always plays Player1.
type PlayerID string

const (
	Player1 PlayerID = "player1"
	Player2 PlayerID = "player2"
)

// Valid reports whether p is one of the two seats.
func (p PlayerID) Valid() bool { return p == Player1 || p == Player2 }

// Opponent returns the other seat.
func (p PlayerID) Opponent() PlayerID {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Phase is the step within a turn.
type Phase string

const (
	PhaseDraw   Phase = "draw"
	PhaseMain   Phase = "main"
	PhaseCombat Phase = "combat"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseDraw, PhaseMain, PhaseCombat:
		return true
	}
	return false
}

// State is the full replicated game. It is a value: transitions build
// a new State rather than editing one, and slices reachable from a
// State are never written after the State is returned.
type State struct {
	GameID        string                   `json:"gameId"`
	Turn          int                      `json:"turn"`
	CurrentPlayer PlayerID                 `json:"currentPlayer"`
	Phase         Phase                    `json:"phase"`
	Winner        PlayerID                 `json:"winner,omitempty"`
	Players       map[PlayerID]PlayerState `json:"players"`

	// NextInstance is the serial for the next creature placed on
	// the field. It feeds CreatureInstance.InstanceID.
	NextInstance uint64 `json:"nextInstance"`
}

// PlayerState is one seat's resources and zones.
type PlayerState struct {
	Health  int    `json:"health"`
	Mana    int    `json:"mana"`
	MaxMana int    `json:"maxMana"`
	Deck    []Card `json:"deck"`
	Hand    []Card `json:"hand"`

	Field     [FieldSlots]*CreatureInstance `json:"field"`
	Graveyard []Card                        `json:"graveyard"`

	// AttackedThisTurn holds the field slots that have attacked
	// during the current turn, ascending.
	AttackedThisTurn []int `json:"attackedThisTurn"`
}

// Player returns the state of seat id.
func (s State) Player(id PlayerID) (PlayerState, bool) {
	player, ok := s.Players[id]
	return player, ok
}

// IsOver reports whether a winner has been decided.
func (s State) IsOver() bool { return s.Winner != "" }

// HasAttacked reports whether the creature in slot has already
// attacked this turn.
func (p PlayerState) HasAttacked(slot int) bool {
	_, found := slices.BinarySearch(p.AttackedThisTurn, slot)
	return found
}

// instanceID derives the ID of the serial-th creature placed in a
// game. Both replicas hold the same GameID and serial, so they derive
// the same ID.
func instanceID(gameID string, serial uint64) string {
	namespace, err := uuid.Parse(gameID)
	if err != nil {
		namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte(gameID))
	}
	return uuid.NewSHA1(namespace, []byte{
		byte(serial >> 56), byte(serial >> 48), byte(serial >> 40), byte(serial >> 32),
		byte(serial >> 24), byte(serial >> 16), byte(serial >> 8), byte(serial),
	}).String()
}

// Copy-on-write helpers. Each returns a fresh backing array so the
// input slice, which may be shared with an earlier State, is never
// written.

func withCard(cards []Card, card Card) []Card {
	out := make([]Card, len(cards), len(cards)+1)
	copy(out, cards)
	return append(out, card)
}

func withoutCard(cards []Card, index int) []Card {
	out := make([]Card, 0, len(cards)-1)
	out = append(out, cards[:index]...)
	return append(out, cards[index+1:]...)
}

func withSlot(slots []int, slot int) []int {
	position, found := slices.BinarySearch(slots, slot)
	if found {
		return slots
	}
	out := make([]int, 0, len(slots)+1)
	out = append(out, slots[:position]...)
	out = append(out, slot)
	return append(out, slots[position:]...)
}

func withoutSlot(slots []int, slot int) []int {
	position, found := slices.BinarySearch(slots, slot)
	if !found {
		return slots
	}
	out := make([]int, 0, len(slots)-1)
	out = append(out, slots[:position]...)
	return append(out, slots[position+1:]...)
}

func inRange(index, length int) bool { return index >= 0 && index < length }

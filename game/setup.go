// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// Rules are the setup constants for a new game. They only affect
// NewGame, which runs on the host; the guest receives the resulting
// state and never consults them.
type Rules struct {
	StartingHealth  int `yaml:"starting_health"`
	StartingMana    int `yaml:"starting_mana"`
	StartingMaxMana int `yaml:"starting_max_mana"`
	HandSize        int `yaml:"hand_size"`
	DeckCreatures   int `yaml:"deck_creatures"`
	DeckSpells      int `yaml:"deck_spells"`
}

// DefaultRules returns the standard setup: 20 health, 5 of 10 mana, a
// 30-card deck of 20 creatures and 10 spells, and a 5-card hand.
func DefaultRules() Rules {
	return Rules{
		StartingHealth:  20,
		StartingMana:    5,
		StartingMaxMana: 10,
		HandSize:        5,
		DeckCreatures:   20,
		DeckSpells:      10,
	}
}

// Validate reports every rule that would produce an unplayable game.
func (r Rules) Validate() error {
	var errs []error
	if r.StartingHealth < 1 || r.StartingHealth > MaxHealth {
		errs = append(errs, fmt.Errorf("starting_health must be between 1 and %d, got %d", MaxHealth, r.StartingHealth))
	}
	if r.StartingMaxMana < 0 || r.StartingMaxMana > ManaCap {
		errs = append(errs, fmt.Errorf("starting_max_mana must be between 0 and %d, got %d", ManaCap, r.StartingMaxMana))
	}
	if r.StartingMana < 0 || r.StartingMana > r.StartingMaxMana {
		errs = append(errs, fmt.Errorf("starting_mana must be between 0 and starting_max_mana, got %d", r.StartingMana))
	}
	if r.DeckCreatures < 0 || r.DeckSpells < 0 {
		errs = append(errs, errors.New("deck_creatures and deck_spells must not be negative"))
	}
	if r.HandSize < 0 || r.HandSize > r.DeckCreatures+r.DeckSpells {
		errs = append(errs, fmt.Errorf("hand_size must be between 0 and the deck size, got %d", r.HandSize))
	}
	return errors.Join(errs...)
}

// NewDeck builds a deck of the catalog's creatures and spells, each
// cycled in catalog order up to the rule counts, then shuffles it.
func NewDeck(rules Rules, rng *rand.Rand) []Card {
	deck := make([]Card, 0, rules.DeckCreatures+rules.DeckSpells)
	for index := range rules.DeckCreatures {
		deck = append(deck, catalogCreatures[index%len(catalogCreatures)])
	}
	for index := range rules.DeckSpells {
		deck = append(deck, catalogSpells[index%len(catalogSpells)])
	}
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// NewGame deals a fresh game: an independently shuffled deck per
// player, an opening hand drawn from the top of each, player1 to act
// in the draw phase of turn 1. All randomness comes from source, so a
// fixed seed reproduces the same game.
func NewGame(rules Rules, source *rand.ChaCha8) (State, error) {
	gameID, err := uuid.NewRandomFromReader(source)
	if err != nil {
		return State{}, fmt.Errorf("generating game ID: %w", err)
	}
	rng := rand.New(source)

	players := make(map[PlayerID]PlayerState, 2)
	for _, id := range []PlayerID{Player1, Player2} {
		deck := NewDeck(rules, rng)
		handSize := min(rules.HandSize, len(deck))
		players[id] = PlayerState{
			Health:           rules.StartingHealth,
			Mana:             rules.StartingMana,
			MaxMana:          rules.StartingMaxMana,
			Hand:             append([]Card{}, deck[:handSize]...),
			Deck:             append([]Card{}, deck[handSize:]...),
			Graveyard:        []Card{},
			AttackedThisTurn: []int{},
		}
	}

	return State{
		GameID:        gameID.String(),
		Turn:          1,
		CurrentPlayer: Player1,
		Phase:         PhaseDraw,
		Players:       players,
	}, nil
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewGameOpeningState(t *testing.T) {
	state := mustNewGame(t, 7)

	if _, err := uuid.Parse(state.GameID); err != nil {
		t.Errorf("GameID %q is not a UUID: %v", state.GameID, err)
	}
	if state.Turn != 1 || state.CurrentPlayer != Player1 || state.Phase != PhaseDraw {
		t.Errorf("opening turn %d %s %s, want turn 1 player1 draw", state.Turn, state.CurrentPlayer, state.Phase)
	}
	if state.IsOver() {
		t.Errorf("opening winner = %q", state.Winner)
	}
	for _, id := range []PlayerID{Player1, Player2} {
		player, ok := state.Player(id)
		if !ok {
			t.Fatalf("%s missing", id)
		}
		if player.Health != 20 || player.Mana != 5 || player.MaxMana != 10 {
			t.Errorf("%s health=%d mana=%d/%d, want 20 and 5/10", id, player.Health, player.Mana, player.MaxMana)
		}
		if len(player.Hand) != 5 || len(player.Deck) != 25 {
			t.Errorf("%s hand=%d deck=%d, want 5 and 25", id, len(player.Hand), len(player.Deck))
		}
		if player.Field != ([FieldSlots]*CreatureInstance{}) {
			t.Errorf("%s field not empty", id)
		}
	}
	if err := CheckInvariants(state); err != nil {
		t.Errorf("CheckInvariants: %v", err)
	}
}

func TestNewGameIsReproducibleFromSeed(t *testing.T) {
	first := mustNewGame(t, 9)
	second := mustNewGame(t, 9)
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed dealt different games")
	}

	other := mustNewGame(t, 10)
	if other.GameID == first.GameID {
		t.Error("different seeds produced the same game ID")
	}
}

func TestNewGameShufflesDecksIndependently(t *testing.T) {
	// Two equal decks from independent shuffles are possible but
	// vanishingly unlikely for 30 cards; a match means both players
	// were dealt from one shuffle.
	state := mustNewGame(t, 11)
	first := slices.Concat(state.Players[Player1].Hand, state.Players[Player1].Deck)
	second := slices.Concat(state.Players[Player2].Hand, state.Players[Player2].Deck)
	if reflect.DeepEqual(first, second) {
		t.Error("both players received the same card order")
	}
}

func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck(DefaultRules(), rand.New(seededSource(1)))
	if len(deck) != 30 {
		t.Fatalf("deck size = %d, want 30", len(deck))
	}

	counts := map[string]int{}
	creatures, spells := 0, 0
	for _, card := range deck {
		counts[card.ID]++
		switch card.Type {
		case CardCreature:
			creatures++
		case CardSpell:
			spells++
		}
	}
	if creatures != 20 || spells != 10 {
		t.Errorf("creatures=%d spells=%d, want 20 and 10", creatures, spells)
	}

	// 20 creatures cycle through 13 entries: the first 7 appear twice.
	for index, card := range Creatures() {
		want := 1
		if index < 20-13 {
			want = 2
		}
		if counts[card.ID] != want {
			t.Errorf("%s appears %d times, want %d", card.ID, counts[card.ID], want)
		}
	}
	// 10 spells cycle through 7 entries: the first 3 appear twice.
	for index, card := range Spells() {
		want := 1
		if index < 10-7 {
			want = 2
		}
		if counts[card.ID] != want {
			t.Errorf("%s appears %d times, want %d", card.ID, counts[card.ID], want)
		}
	}
}

func TestCatalog(t *testing.T) {
	if len(Creatures()) != 13 || len(Spells()) != 7 {
		t.Fatalf("catalog has %d creatures and %d spells, want 13 and 7", len(Creatures()), len(Spells()))
	}
	fireball, ok := CardByID("spell_001")
	if !ok {
		t.Fatal("spell_001 missing")
	}
	if fireball.Effect != EffectDealDamage || fireball.Target != TargetCreature || fireball.Value != 3 || fireball.Cost != 2 {
		t.Errorf("spell_001 = %+v", fireball)
	}
	if _, ok := CardByID("creature_999"); ok {
		t.Error("CardByID found a card that does not exist")
	}

	// Callers get copies.
	creatures := Creatures()
	creatures[0].Attack = 99
	if again, _ := CardByID(creatures[0].ID); again.Attack == 99 {
		t.Error("modifying Creatures() changed the catalog")
	}
}

func TestRulesValidate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("DefaultRules().Validate: %v", err)
	}

	rules := DefaultRules()
	rules.StartingHealth = 0
	rules.StartingMana = 11
	rules.HandSize = 31
	err := rules.Validate()
	if err == nil {
		t.Fatal("Validate accepted broken rules")
	}
	for _, want := range []string{"starting_health", "starting_mana", "hand_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

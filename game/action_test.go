// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestActionJSON(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{DrawCard(Player1), `{"type":"DRAW_CARD","player":"player1"}`},
		{PlayCreature(Player2, 0, 3), `{"type":"PLAY_CREATURE","player":"player2","cardIndex":0,"slot":3}`},
		{PlaySpell(Player1, 2, nil), `{"type":"PLAY_SPELL","player":"player1","cardIndex":2}`},
		{PlaySpell(Player1, 2, Slot(0)), `{"type":"PLAY_SPELL","player":"player1","cardIndex":2,"targetSlot":0}`},
		{Attack(Player2, 4, nil), `{"type":"ATTACK","player":"player2","attackerSlot":4}`},
		{Attack(Player2, 4, Slot(1)), `{"type":"ATTACK","player":"player2","attackerSlot":4,"defenderSlot":1}`},
		{ChangePhase(Player1, PhaseCombat), `{"type":"PHASE_CHANGE","player":"player1","phase":"combat"}`},
		{EndTurn(Player2), `{"type":"END_TURN","player":"player2"}`},
	}

	for _, test := range tests {
		t.Run(string(test.action.Type), func(t *testing.T) {
			encoded, err := json.Marshal(test.action)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(encoded) != test.want {
				t.Errorf("Marshal = %s, want %s", encoded, test.want)
			}

			var decoded Action
			if err := json.Unmarshal(encoded, &decoded); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(decoded, test.action) {
				t.Errorf("decoded %+v, want %+v", decoded, test.action)
			}
		})
	}
}

func TestActionUnmarshalMissingFields(t *testing.T) {
	var action Action
	if err := json.Unmarshal([]byte(`{"player":"player1"}`), &action); err == nil {
		t.Error("action without a type decoded")
	}

	if err := json.Unmarshal([]byte(`{"type":"PLAY_CREATURE","player":"player1"}`), &action); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if action.CardIndex != -1 || action.Slot != -1 {
		t.Errorf("missing indices decoded as card=%d slot=%d, want -1", action.CardIndex, action.Slot)
	}
	// Such an action is a no-op rather than a play of card 0.
	state := atPhase(mustNewGame(t, 1), PhaseMain)
	if next := Apply(state, action); !reflect.DeepEqual(next, state) {
		t.Error("action with missing indices changed the state")
	}
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/peerduel/peerduel/game"
)

// renderState draws the board as seen by self: its own hand face up,
// the opponent's as a count.
func renderState(state game.State, self game.PlayerID) string {
	var b strings.Builder
	if state.IsOver() {
		fmt.Fprintf(&b, "turn %d, game over, %s wins\n", state.Turn, state.Winner)
	} else {
		fmt.Fprintf(&b, "turn %d, %s phase, %s to act", state.Turn, state.Phase, state.CurrentPlayer)
		if state.CurrentPlayer == self {
			b.WriteString(", your turn")
		}
		b.WriteString("\n")
	}

	opponent := self.Opponent()
	renderPlayer(&b, "you", self, state.Players[self], true)
	renderPlayer(&b, "opponent", opponent, state.Players[opponent], false)
	return b.String()
}

func renderPlayer(b *strings.Builder, label string, id game.PlayerID, player game.PlayerState, showHand bool) {
	fmt.Fprintf(b, "%s (%s): health %d, mana %d/%d, deck %d, graveyard %d\n",
		label, id, player.Health, player.Mana, player.MaxMana, len(player.Deck), len(player.Graveyard))

	b.WriteString("  field:")
	for slot, creature := range player.Field {
		fmt.Fprintf(b, " [%d] ", slot)
		if creature == nil {
			b.WriteString("-")
			continue
		}
		fmt.Fprintf(b, "%s %d/%d", creature.Name, creature.Attack, creature.CurrentHealth)
		if player.HasAttacked(slot) {
			b.WriteString(" (attacked)")
		}
	}
	b.WriteString("\n")

	switch {
	case !showHand:
		fmt.Fprintf(b, "  hand: %d cards\n", len(player.Hand))
	case len(player.Hand) == 0:
		b.WriteString("  hand: empty\n")
	default:
		b.WriteString("  hand:\n")
		for index, card := range player.Hand {
			fmt.Fprintf(b, "    (%d) %s\n", index, describeCard(card))
		}
	}
}

func describeCard(card game.Card) string {
	if card.IsCreature() {
		return fmt.Sprintf("%s, cost %d, %d/%d", card.Name, card.Cost, card.Attack, card.Health)
	}
	var effect string
	switch card.Effect {
	case game.EffectDealDamage:
		if card.Target == game.TargetPlayer {
			effect = fmt.Sprintf("%d damage to the opponent", card.Value)
		} else {
			effect = fmt.Sprintf("%d damage to a creature", card.Value)
		}
	case game.EffectHeal:
		effect = fmt.Sprintf("heal %d", card.Value)
	case game.EffectDrawCards:
		effect = fmt.Sprintf("draw %d", card.Value)
	default:
		effect = string(card.Effect)
	}
	return fmt.Sprintf("%s, cost %d, %s", card.Name, card.Cost, effect)
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

// Apply returns the state that results from action. The input state
// is not modified. Apply does not validate: an action whose indices
// are out of range, or whose card is of the wrong type, yields the
// input state unchanged. An action for an unknown player or of an
// unknown type is likewise a no-op.
func Apply(state State, action Action) State {
	actorID := action.Player
	actor, ok := state.Players[actorID]
	if !ok {
		return state
	}
	opponentID := actorID.Opponent()
	opponent := state.Players[opponentID]

	next := state
	switch action.Type {
	case ActionDrawCard:
		actor = drawCards(actor, 1)
		next.Phase = PhaseMain

	case ActionPlayCreature:
		if !inRange(action.CardIndex, len(actor.Hand)) || !inRange(action.Slot, FieldSlots) {
			return state
		}
		card := actor.Hand[action.CardIndex]
		if !card.IsCreature() || actor.Field[action.Slot] != nil {
			return state
		}
		actor.Hand = withoutCard(actor.Hand, action.CardIndex)
		actor.Field[action.Slot] = &CreatureInstance{
			Card:          card,
			CurrentHealth: card.Health,
			InstanceID:    instanceID(state.GameID, state.NextInstance),
		}
		actor.Mana -= card.Cost
		next.NextInstance++

	case ActionPlaySpell:
		if !inRange(action.CardIndex, len(actor.Hand)) {
			return state
		}
		card := actor.Hand[action.CardIndex]
		if !card.IsSpell() {
			return state
		}
		actor.Hand = withoutCard(actor.Hand, action.CardIndex)
		switch card.Effect {
		case EffectDealDamage:
			switch card.Target {
			case TargetCreature:
				if action.TargetSlot != nil {
					opponent = damageCreature(opponent, *action.TargetSlot, card.Value)
				}
			case TargetPlayer:
				opponent.Health -= card.Value
				if opponent.Health <= 0 && !next.IsOver() {
					next.Winner = actorID
				}
			}
		case EffectHeal:
			actor.Health = min(actor.Health+card.Value, MaxHealth)
		case EffectDrawCards:
			actor = drawCards(actor, card.Value)
		}
		actor.Graveyard = withCard(actor.Graveyard, card)
		actor.Mana -= card.Cost

	case ActionAttack:
		if !inRange(action.AttackerSlot, FieldSlots) {
			return state
		}
		attacker := actor.Field[action.AttackerSlot]
		if attacker == nil {
			return state
		}
		actor.AttackedThisTurn = withSlot(actor.AttackedThisTurn, action.AttackerSlot)
		if action.DefenderSlot != nil {
			// A named but empty defender slot deals no damage; the
			// attack is still spent.
			defenderSlot := *action.DefenderSlot
			if inRange(defenderSlot, FieldSlots) && opponent.Field[defenderSlot] != nil {
				defender := opponent.Field[defenderSlot]
				opponent = damageCreature(opponent, defenderSlot, attacker.Attack)
				actor = damageCreature(actor, action.AttackerSlot, defender.Attack)
			}
		} else {
			opponent.Health -= attacker.Attack
			if opponent.Health <= 0 && !next.IsOver() {
				next.Winner = actorID
			}
		}

	case ActionPhaseChange:
		next.Phase = action.Phase

	case ActionEndTurn:
		actor.AttackedThisTurn = []int{}
		opponent.MaxMana = min(opponent.MaxMana+1, ManaCap)
		opponent.Mana = opponent.MaxMana
		next.CurrentPlayer = opponentID
		next.Turn++
		next.Phase = PhaseDraw

	default:
		return state
	}

	next.Players = map[PlayerID]PlayerState{
		actorID:    actor,
		opponentID: opponent,
	}
	return next
}

// drawCards moves up to count cards from the top of the deck to the
// end of the hand.
func drawCards(player PlayerState, count int) PlayerState {
	for drawn := 0; drawn < count && len(player.Deck) > 0; drawn++ {
		player.Hand = withCard(player.Hand, player.Deck[0])
		player.Deck = player.Deck[1:]
	}
	return player
}

// damageCreature reduces the health of the creature in slot by amount.
// A creature at zero health or below moves to the graveyard as its
// base card, and its slot leaves AttackedThisTurn. An empty or
// out-of-range slot is left alone.
func damageCreature(player PlayerState, slot, amount int) PlayerState {
	if !inRange(slot, FieldSlots) || player.Field[slot] == nil {
		return player
	}
	creature := player.Field[slot]
	health := creature.CurrentHealth - amount
	if health > 0 {
		player.Field[slot] = creature.withHealth(health)
		return player
	}
	player.Field[slot] = nil
	player.Graveyard = withCard(player.Graveyard, creature.Card)
	player.AttackedThisTurn = withoutSlot(player.AttackedThisTurn, slot)
	return player
}

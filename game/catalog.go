// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

var catalogCreatures = []Card{
	{ID: "creature_001", Name: "Forest Scout", Type: CardCreature, Cost: 1, Attack: 1, Health: 2},
	{ID: "creature_002", Name: "Brave Knight", Type: CardCreature, Cost: 1, Attack: 2, Health: 1},
	{ID: "creature_003", Name: "Forest Archer", Type: CardCreature, Cost: 2, Attack: 2, Health: 2},
	{ID: "creature_004", Name: "Apprentice Mage", Type: CardCreature, Cost: 2, Attack: 1, Health: 3},
	{ID: "creature_005", Name: "Wolf", Type: CardCreature, Cost: 2, Attack: 3, Health: 1},
	{ID: "creature_006", Name: "Forest Spirit", Type: CardCreature, Cost: 3, Attack: 3, Health: 3},
	{ID: "creature_007", Name: "Dragon Whelp", Type: CardCreature, Cost: 3, Attack: 4, Health: 2},
	{ID: "creature_008", Name: "Battle Mage", Type: CardCreature, Cost: 3, Attack: 2, Health: 4},
	{ID: "creature_009", Name: "Elite Knight", Type: CardCreature, Cost: 4, Attack: 4, Health: 4},
	{ID: "creature_010", Name: "Fire Elemental", Type: CardCreature, Cost: 4, Attack: 5, Health: 3},
	{ID: "creature_011", Name: "Ancient Dragon", Type: CardCreature, Cost: 5, Attack: 5, Health: 5},
	{ID: "creature_012", Name: "Giant Golem", Type: CardCreature, Cost: 6, Attack: 6, Health: 6},
	{ID: "creature_013", Name: "Frost Giant", Type: CardCreature, Cost: 7, Attack: 7, Health: 7},
}

var catalogSpells = []Card{
	{ID: "spell_001", Name: "Fireball", Type: CardSpell, Cost: 2, Effect: EffectDealDamage, Target: TargetCreature, Value: 3},
	{ID: "spell_002", Name: "Lightning", Type: CardSpell, Cost: 1, Effect: EffectDealDamage, Target: TargetCreature, Value: 2},
	{ID: "spell_003", Name: "Firestorm", Type: CardSpell, Cost: 4, Effect: EffectDealDamage, Target: TargetPlayer, Value: 5},
	{ID: "spell_004", Name: "Tome of Wisdom", Type: CardSpell, Cost: 2, Effect: EffectDrawCards, Target: TargetNone, Value: 2},
	{ID: "spell_005", Name: "Arcane Insight", Type: CardSpell, Cost: 3, Effect: EffectDrawCards, Target: TargetNone, Value: 3},
	{ID: "spell_006", Name: "Heal", Type: CardSpell, Cost: 2, Effect: EffectHeal, Target: TargetNone, Value: 5},
	{ID: "spell_007", Name: "Holy Light", Type: CardSpell, Cost: 3, Effect: EffectHeal, Target: TargetNone, Value: 8},
}

// Creatures returns the creature catalog in catalog order.
func Creatures() []Card {
	return append([]Card(nil), catalogCreatures...)
}

// Spells returns the spell catalog in catalog order.
func Spells() []Card {
	return append([]Card(nil), catalogSpells...)
}

// CardByID looks a card up in the catalog.
func CardByID(id string) (Card, bool) {
	for _, card := range catalogCreatures {
		if card.ID == id {
			return card, true
		}
	}
	for _, card := range catalogSpells {
		if card.ID == id {
			return card, true
		}
	}
	return Card{}, false
}

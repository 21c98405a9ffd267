// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

// CardType discriminates the Card union.
type CardType string

const (
	CardCreature CardType = "creature"
	CardSpell    CardType = "spell"
)

// Effect is what a spell does when cast.
type Effect string

const (
	EffectDealDamage Effect = "deal_damage"
	EffectHeal       Effect = "heal"
	EffectDrawCards  Effect = "draw_cards"
)

// Target is what a spell's effect is aimed at.
type Target string

const (
	TargetCreature Target = "creature"
	TargetPlayer   Target = "player"
	TargetNone     Target = "none"
)

// Card is either a creature (Attack, Health) or a spell (Effect,
// Target, Value), as selected by Type.
type Card struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Type   CardType `json:"type"`
	Cost   int      `json:"cost"`
	Attack int      `json:"attack,omitempty"`
	Health int      `json:"health,omitempty"`
	Effect Effect   `json:"effect,omitempty"`
	Target Target   `json:"target,omitempty"`
	Value  int      `json:"value,omitempty"`
}

// IsCreature reports whether the card can be placed on the field.
func (c Card) IsCreature() bool { return c.Type == CardCreature }

// IsSpell reports whether the card is cast and discarded.
func (c Card) IsSpell() bool { return c.Type == CardSpell }

// CreatureInstance is a creature card on the field. Instances are
// never modified in place; damage replaces the instance.
type CreatureInstance struct {
	Card
	CurrentHealth int    `json:"currentHealth"`
	InstanceID    string `json:"instanceId"`
}

// withHealth returns a copy of the instance at the given health.
func (c *CreatureInstance) withHealth(health int) *CreatureInstance {
	damaged := *c
	damaged.CurrentHealth = health
	return &damaged
}

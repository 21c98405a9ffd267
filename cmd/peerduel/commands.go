// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/peerduel/peerduel/game"
)

// player is the part of a session the console drives.
type player interface {
	DrawCard(ctx context.Context) error
	PlayCard(ctx context.Context, cardIndex int, targetSlot *int) error
	AttackWithCreature(ctx context.Context, attackerSlot int, defenderSlot *int) error
	ChangePhase(ctx context.Context, phase game.Phase) error
	EndTurn(ctx context.Context) error
}

// command is one parsed console line.
type command struct {
	verb  string
	index int
	slot  *int
	phase game.Phase
}

const commandHelp = `commands:
  draw                    draw a card (draw phase)
  play CARD [SLOT]        play hand card CARD; creatures need a field SLOT,
                          targeted spells aim at the opponent's SLOT
  attack SLOT [TARGET]    attack with your creature in SLOT, at the
                          opponent's creature in TARGET or at the opponent
  phase draw|main|combat  change phase
  end                     end your turn
  state                   show the board
  help                    show this help
  quit                    leave the game`

// parseCommand parses a console line. Console-only verbs (state,
// help, quit) parse to a command with no arguments.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	cmd := command{verb: strings.ToLower(fields[0])}
	args := fields[1:]

	switch cmd.verb {
	case "draw", "end", "state", "help", "quit":
		if len(args) != 0 {
			return command{}, fmt.Errorf("%s takes no arguments", cmd.verb)
		}
	case "play", "attack":
		if len(args) < 1 || len(args) > 2 {
			return command{}, fmt.Errorf("usage: %s N [SLOT]", cmd.verb)
		}
		index, err := parseNumber(args[0])
		if err != nil {
			return command{}, err
		}
		cmd.index = index
		if len(args) == 2 {
			slot, err := parseNumber(args[1])
			if err != nil {
				return command{}, err
			}
			cmd.slot = game.Slot(slot)
		}
	case "phase":
		if len(args) != 1 {
			return command{}, fmt.Errorf("usage: phase draw|main|combat")
		}
		cmd.phase = game.Phase(strings.ToLower(args[0]))
		if !cmd.phase.Valid() {
			return command{}, fmt.Errorf("unknown phase %q", args[0])
		}
	default:
		return command{}, fmt.Errorf("unknown command %q (try help)", cmd.verb)
	}
	return cmd, nil
}

func parseNumber(arg string) (int, error) {
	number, err := strconv.Atoi(arg)
	if err != nil || number < 0 {
		return 0, fmt.Errorf("%q is not a card or slot number", arg)
	}
	return number, nil
}

// apply runs a game command against p.
func (c command) apply(ctx context.Context, p player) error {
	switch c.verb {
	case "draw":
		return p.DrawCard(ctx)
	case "play":
		return p.PlayCard(ctx, c.index, c.slot)
	case "attack":
		return p.AttackWithCreature(ctx, c.index, c.slot)
	case "phase":
		return p.ChangePhase(ctx, c.phase)
	case "end":
		return p.EndTurn(ctx)
	default:
		return fmt.Errorf("%s is not a game command", c.verb)
	}
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"

	"github.com/peerduel/peerduel/game"
	"github.com/peerduel/peerduel/signaling"
	"github.com/peerduel/peerduel/transport"
)

// DrawCard draws the top card of this player's deck.
func (s *Session) DrawCard(ctx context.Context) error {
	return s.act(ctx, func(_ game.State, self game.PlayerID) game.Action {
		return game.DrawCard(self)
	})
}

// PlayCard plays the card at cardIndex in this player's hand. A
// creature goes to the field slot targetSlot, which is required. A
// spell aims at targetSlot if it needs a target.
func (s *Session) PlayCard(ctx context.Context, cardIndex int, targetSlot *int) error {
	return s.act(ctx, func(state game.State, self game.PlayerID) game.Action {
		player, _ := state.Player(self)
		if cardIndex >= 0 && cardIndex < len(player.Hand) && player.Hand[cardIndex].IsSpell() {
			return game.PlaySpell(self, cardIndex, targetSlot)
		}
		slot := -1
		if targetSlot != nil {
			slot = *targetSlot
		}
		return game.PlayCreature(self, cardIndex, slot)
	})
}

// AttackWithCreature attacks with the creature in attackerSlot, at
// the defending creature in defenderSlot or, if nil, at the opponent.
func (s *Session) AttackWithCreature(ctx context.Context, attackerSlot int, defenderSlot *int) error {
	return s.act(ctx, func(_ game.State, self game.PlayerID) game.Action {
		return game.Attack(self, attackerSlot, defenderSlot)
	})
}

// ChangePhase moves this player's turn to phase.
func (s *Session) ChangePhase(ctx context.Context, phase game.Phase) error {
	return s.act(ctx, func(_ game.State, self game.PlayerID) game.Action {
		return game.ChangePhase(self, phase)
	})
}

// EndTurn passes the turn to the opponent.
func (s *Session) EndTurn(ctx context.Context) error {
	return s.act(ctx, func(_ game.State, self game.PlayerID) game.Action {
		return game.EndTurn(self)
	})
}

// act validates and applies a local action, then sends it to the
// peer. A *game.ValidationError leaves the state untouched and sends
// nothing.
func (s *Session) act(ctx context.Context, build func(state game.State, self game.PlayerID) game.Action) error {
	return s.do(ctx, func() error {
		if s.replica == nil {
			return ErrNotInRoom
		}
		current, _ := s.replica.State()
		action := build(current, s.replica.Self())
		state, err := s.replica.ApplyLocal(action)
		if err != nil {
			s.logger.Debug("local action rejected", "action", action.String(), "error", err)
			return err
		}
		s.channel.Send(transport.ActionEnvelope(action, s.clock.Now()))
		s.transitioned(state)
		return nil
	})
}

// handleEnvelope reacts to a message from the peer.
func (s *Session) handleEnvelope(envelope transport.Envelope) {
	if s.closed || s.replica == nil {
		return
	}
	switch envelope.Type {
	case transport.EnvelopeGameInit:
		if s.role == transport.RoleGuest {
			s.initialize(*envelope.State, "data channel")
		}
	case transport.EnvelopeGameAction:
		state, applied := s.replica.ApplyRemote(*envelope.Action)
		if applied {
			s.transitioned(state)
		}
	case transport.EnvelopeGameEnd:
		turns := 0
		if envelope.GameData != nil {
			turns = envelope.GameData.TotalTurns
		}
		s.reportEnd(envelope.WinnerID, turns)
	case transport.EnvelopeRequestGameInit:
		if s.role == transport.RoleHost {
			s.sendGameInit("requested over the data channel")
		}
	}
}

func (s *Session) handleGameInit(data json.RawMessage) {
	if s.role != transport.RoleGuest {
		return
	}
	payload, err := signaling.Decode[signaling.GameInit](data)
	if err != nil {
		s.logger.Warn("malformed game-init", "error", err)
		return
	}
	var state game.State
	if err := json.Unmarshal(payload.State, &state); err != nil {
		s.logger.Warn("malformed game-init state", "error", err)
		return
	}
	s.initialize(state, "relay")
}

func (s *Session) handleRequestGameInit(data json.RawMessage) {
	if s.role != transport.RoleHost {
		return
	}
	request, err := signaling.Decode[signaling.RequestGameInit](data)
	if err != nil {
		s.logger.Warn("malformed request-game-init", "error", err)
		return
	}
	s.logger.Info("guest requested game init", "requester", request.Requester, "retry", request.Retry)
	s.sendGameInit("requested over the relay")
}

// initialize installs the host's opening state on the guest and
// replays any actions that arrived first.
func (s *Session) initialize(state game.State, via string) {
	state, ok := s.replica.Initialize(state)
	if !ok {
		return
	}
	s.logger.Info("received game init", "via", via, "game", state.GameID)
	s.transitioned(state)
}

// sendGameInit sends the opening state to the guest over both the
// data channel and the relay. Whichever arrives first initializes the
// guest; later copies are ignored.
func (s *Session) sendGameInit(reason string) {
	if s.role != transport.RoleHost || s.replica == nil {
		return
	}
	encoded, err := json.Marshal(s.initState)
	if err != nil {
		s.logger.Error("encoding game init", "error", err)
		return
	}
	s.logger.Info("sending game init", "reason", reason, "game", s.initState.GameID)
	s.channel.Send(transport.InitEnvelope(s.initState))
	s.emit(signaling.EventGameInit, signaling.GameInit{RoomID: s.roomID, State: encoded})
}

// requestGameInit asks the host for the opening state if it has not
// arrived. The retry also asks over the data channel.
func (s *Session) requestGameInit(retry bool) {
	if s.role != transport.RoleGuest || s.replica.Initialized() {
		return
	}
	s.logger.Info("requesting game init", "retry", retry)
	s.emit(signaling.EventRequestGameInit, signaling.RequestGameInit{
		RoomID:    s.roomID,
		Requester: s.userID,
		Retry:     retry,
	})
	if retry {
		s.channel.Send(transport.RequestInitEnvelope())
	}
}

// transitioned publishes a new game state and, on the host, announces
// the end of the game once a winner is decided.
func (s *Session) transitioned(state game.State) {
	s.publish()
	if s.observer.OnGameState != nil {
		s.observer.OnGameState(state)
	}
	if !state.IsOver() || s.endReported {
		return
	}
	if s.role == transport.RoleHost {
		s.channel.Send(transport.EndEnvelope(state.Winner, state.Turn))
	}
	s.reportEnd(state.Winner, state.Turn)
}

func (s *Session) reportEnd(winner game.PlayerID, totalTurns int) {
	if s.endReported {
		return
	}
	s.endReported = true
	s.logger.Info("game over", "winner", string(winner), "turns", totalTurns)
	if s.observer.OnGameEnd != nil {
		s.observer.OnGameEnd(winner, totalTurns)
	}
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/peerduel/peerduel/game"
)

// EnvelopeType discriminates application messages on the data
// channel.
type EnvelopeType string

const (
	EnvelopeGameInit        EnvelopeType = "GAME_INIT"
	EnvelopeGameAction      EnvelopeType = "GAME_ACTION"
	EnvelopeGameEnd         EnvelopeType = "GAME_END"
	EnvelopeRequestGameInit EnvelopeType = "REQUEST_GAME_INIT"
)

// Envelope is one application message, sent as a JSON text frame.
// Which fields are set depends on Type:
//
//	GAME_INIT          State
//	GAME_ACTION        Action, Timestamp
//	GAME_END           WinnerID, GameData
//	REQUEST_GAME_INIT  none
type Envelope struct {
	Type   EnvelopeType `json:"type"`
	State  *game.State  `json:"state,omitempty"`
	Action *game.Action `json:"action,omitempty"`

	// Timestamp is the sender's clock in Unix milliseconds. It is
	// informational; ordering comes from the channel.
	Timestamp int64 `json:"timestamp,omitempty"`

	WinnerID game.PlayerID `json:"winnerId,omitempty"`
	GameData *GameSummary  `json:"gameData,omitempty"`
}

// GameSummary is the summary carried by GAME_END.
type GameSummary struct {
	TotalTurns int `json:"totalTurns"`
}

// InitEnvelope carries the host's game state.
func InitEnvelope(state game.State) Envelope {
	return Envelope{Type: EnvelopeGameInit, State: &state}
}

// ActionEnvelope carries one action, stamped with sentAt.
func ActionEnvelope(action game.Action, sentAt time.Time) Envelope {
	return Envelope{Type: EnvelopeGameAction, Action: &action, Timestamp: sentAt.UnixMilli()}
}

// EndEnvelope announces the winner.
func EndEnvelope(winner game.PlayerID, totalTurns int) Envelope {
	return Envelope{Type: EnvelopeGameEnd, WinnerID: winner, GameData: &GameSummary{TotalTurns: totalTurns}}
}

// RequestInitEnvelope asks the host to resend GAME_INIT.
func RequestInitEnvelope() Envelope {
	return Envelope{Type: EnvelopeRequestGameInit}
}

// DeserializationError reports an inbound frame that is not a valid
// envelope. The frame is dropped and the channel stays open.
type DeserializationError struct {
	// Payload is the start of the offending frame.
	Payload string
	Err     error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("malformed envelope %q: %v", e.Payload, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// payloadExcerpt bounds the frame text kept in a DeserializationError.
const payloadExcerpt = 64

// EncodeEnvelope encodes envelope as JSON.
func EncodeEnvelope(envelope Envelope) ([]byte, error) {
	return json.Marshal(envelope)
}

// DecodeEnvelope parses a frame and checks that the fields its type
// requires are present. Failures are *DeserializationError.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var envelope Envelope
	err := json.Unmarshal(data, &envelope)
	if err == nil {
		err = envelope.check()
	}
	if err != nil {
		excerpt := string(data)
		if len(excerpt) > payloadExcerpt {
			excerpt = excerpt[:payloadExcerpt]
		}
		return Envelope{}, &DeserializationError{Payload: excerpt, Err: err}
	}
	return envelope, nil
}

func (e Envelope) check() error {
	switch e.Type {
	case EnvelopeGameInit:
		if e.State == nil {
			return fmt.Errorf("%s without state", e.Type)
		}
	case EnvelopeGameAction:
		if e.Action == nil {
			return fmt.Errorf("%s without action", e.Type)
		}
	case EnvelopeGameEnd:
		if e.WinnerID == "" {
			return fmt.Errorf("%s without winnerId", e.Type)
		}
	case EnvelopeRequestGameInit:
	case "":
		return fmt.Errorf("missing type")
	default:
		return fmt.Errorf("unknown type %q", e.Type)
	}
	return nil
}

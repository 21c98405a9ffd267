// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"encoding/json"
	"fmt"
)

// Frame is the unit exchanged with a relay.
type Frame struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewFrame encodes payload as the data of an event frame. A nil
// payload encodes as an empty object.
func NewFrame(event Event, payload any) (Frame, error) {
	if payload == nil {
		return Frame{Event: event, Data: json.RawMessage("{}")}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return Frame{Event: event, Data: data}, nil
}

// EncodeFrame returns the wire bytes of an event frame.
func EncodeFrame(event Event, payload any) ([]byte, error) {
	frame, err := NewFrame(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame)
}

// DecodeFrame parses wire bytes into a Frame. The payload stays raw
// until a handler decodes it with Decode.
func DecodeFrame(data []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("decoding signaling frame: %w", err)
	}
	if frame.Event == "" {
		return Frame{}, fmt.Errorf("decoding signaling frame: missing event")
	}
	if len(frame.Data) == 0 || string(frame.Data) == "null" {
		frame.Data = json.RawMessage("{}")
	}
	return frame, nil
}

// Decode unmarshals a frame payload into T.
func Decode[T any](data json.RawMessage) (T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("decoding %T: %w", payload, err)
	}
	return payload, nil
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package game

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/peerduel/peerduel/lib/codec"
)

// Fingerprint returns a short hex digest of state. Two states with
// equal contents have equal fingerprints regardless of map order or
// nil-versus-empty slices, so the value can be logged on both peers
// and compared to spot a desync.
func Fingerprint(state State) (string, error) {
	encoded, err := codec.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encoding state for fingerprint: %w", err)
	}
	digest := blake3.Sum256(encoded)
	return hex.EncodeToString(digest[:8]), nil
}

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"github.com/pion/webrtc/v4"

	"github.com/peerduel/peerduel/lib/config"
)

// ICEConfig holds ICE server configuration for a PeerConnection.
type ICEConfig struct {
	// Servers is the list of STUN and TURN servers used during
	// candidate gathering. An empty list gathers host candidates only,
	// which is enough for two peers on one machine or LAN.
	Servers []webrtc.ICEServer

	// CandidatePoolSize is the number of candidates prefetched before
	// an offer is made.
	CandidatePoolSize uint8

	// IncludeLoopback gathers loopback candidates.
	IncludeLoopback bool
}

// ICEConfigFromSettings converts the ice section of the configuration
// file into pion ICE server entries. Servers without URLs are skipped.
func ICEConfigFromSettings(settings config.ICEConfig) ICEConfig {
	ice := ICEConfig{
		CandidatePoolSize: settings.CandidatePoolSize,
		IncludeLoopback:   settings.IncludeLoopback,
	}
	for _, server := range settings.Servers {
		if len(server.URLs) == 0 {
			continue
		}
		entry := webrtc.ICEServer{
			URLs:     server.URLs,
			Username: server.Username,
		}
		if server.Credential != "" {
			entry.Credential = server.Credential
		}
		ice.Servers = append(ice.Servers, entry)
	}
	return ice
}

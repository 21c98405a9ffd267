// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for peerduel binaries.
//
// Configuration is loaded from a single file named by either the
// --config flag (via [LoadFile]) or the PEERDUEL_CONFIG environment
// variable (via [Load]). [Resolve] applies that precedence and falls
// back to [Default] when neither is set, which is enough for a local
// game against the development relay. There is no ~/.config discovery
// and no automatic file search.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas allowed; anything else is YAML. Durations are
// written as Go duration strings ("3s", "500ms").
//
// Variable expansion runs on URL fields after loading:
// ${VAR} and ${VAR:-default} patterns are expanded from the
// environment. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Log, Signaling, ICE, Session,
//     Rules and Relay sections
//   - [Default] -- returns a Config with development defaults
//   - [Load], [LoadFile] and [Resolve] -- the entry points for loading
//
// This package depends on no other peerduel packages.
package config

// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers shared by the peerduel
// binaries: building the structured logger from configuration, and
// reporting a fatal error from main() when no logger exists yet.
package process

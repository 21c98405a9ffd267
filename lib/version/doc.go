// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the peerduel
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/peerduel/peerduel/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// They default to "unknown" / "0.1.0-dev" in development builds and
// test runs. [Info] formats them for --version; [Full] adds the Go
// version and platform.
package version

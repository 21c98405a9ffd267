// Copyright 2026 The Peerduel Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the module's CBOR configuration.
//
// JSON is the wire format between peers and toward the signaling
// relay. CBOR is used where identical logical values must produce
// identical bytes: the encoder runs in Core Deterministic Encoding
// mode (RFC 8949 §4.2), with sorted map keys and shortest integer
// forms. The game package hashes these bytes to fingerprint a replica
// after every transition, so two peers holding the same state log the
// same fingerprint.
//
// Struct fields without a cbor tag fall back to their json tag, so
// wire types need only one set of tags.
package codec

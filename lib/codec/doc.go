// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides deterministic CBOR encoding for on-disk state
// files such as the routing-table snapshot. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2) so the same logical state
// always produces identical bytes; the decoder ignores unknown fields
// for forward compatibility.
package codec

// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides MindInsight's standard CBOR encoding
// configuration for training-record streams.
//
// Every record type in lib/schema/record serializes as a CBOR map with
// small integer keys (the `keyasint` struct tag form). Integer keys are
// the wire-stable field positions of the record format: they never
// change meaning, gaps are preserved for future fields, and a decoder
// built against an older field set tolerates keys it does not know.
//
// This package provides the shared encoding and decoding modes so that
// every package encodes identically without duplicating configuration.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same logical record always produces identical bytes within one
// build, which keeps encode→decode round-trips stable and makes frame
// checksums meaningful.
//
// The decoder raises the nesting limit well above the library default:
// dataset pipeline graphs are recursive trees and a legitimate graph
// can be hundreds of levels deep. Depth abuse is handled above this
// layer by record.DecodeOptions bounds, not by the CBOR well-formedness
// check, so that callers see the record-level error taxonomy
// (ErrMaxDepthExceeded) instead of a generic parse failure.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
package codec

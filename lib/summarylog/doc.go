// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

// Package summarylog frames encoded training records into an
// append-only log stream and recovers them.
//
// Each record is stored as one self-delimiting frame:
//
//	uint32 LE  stored payload length
//	uint8      compression tag (0 none, 1 lz4, 2 zstd)
//	uint32 LE  uncompressed payload length
//	bytes      stored payload
//	8 bytes    checksum (leading bytes of the BLAKE3 hash of the
//	           stored payload)
//
// The reader distinguishes two failure classes. A stream that ends in
// the middle of a frame yields ErrTruncatedRecord: everything before
// the cut is intact, and the usual cause is a producer that died
// mid-write. A frame whose bytes are present but inconsistent (bad
// checksum, unknown compression tag, oversized length) yields
// ErrMalformedRecord: the stream cannot be trusted past that point.
// A frame that reads back cleanly but whose record content violates
// the schema is neither — the decode error is returned and the reader
// continues with the next frame.
//
// A Writer is single-owner: one producing goroutine per Writer.
// Readers over distinct streams are independent.
package summarylog

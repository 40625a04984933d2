// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package summarylog

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Frame layout constants. The header is fixed-size; the stored payload
// and trailing checksum follow it.
const (
	// frameHeaderSize is 4 bytes stored-payload length, 1 byte
	// compression tag, 4 bytes uncompressed-payload length.
	frameHeaderSize = 4 + 1 + 4

	// frameChecksumSize is the truncated BLAKE3 digest appended after
	// the stored payload. Eight bytes keeps per-record overhead small
	// while making silent bit rot in a multi-gigabyte log vanishingly
	// unlikely to pass.
	frameChecksumSize = 8

	headerOffsetStoredLen       = 0
	headerOffsetTag             = 4
	headerOffsetUncompressedLen = 5
)

// DefaultMaxPayloadBytes bounds the stored-payload length a reader
// accepts before allocating. A length field past this bound is treated
// as frame corruption rather than an allocation request.
const DefaultMaxPayloadBytes = 256 << 20

// frameChecksum computes the trailing checksum over the stored
// (post-compression) payload bytes.
func frameChecksum(stored []byte) [frameChecksumSize]byte {
	digest := blake3.Sum256(stored)
	var checksum [frameChecksumSize]byte
	copy(checksum[:], digest[:frameChecksumSize])
	return checksum
}

// encodeFrameHeader fills a frame header in place.
func encodeFrameHeader(header []byte, storedLen int, tag CompressionTag, uncompressedLen int) {
	binary.LittleEndian.PutUint32(header[headerOffsetStoredLen:], uint32(storedLen))
	header[headerOffsetTag] = byte(tag)
	binary.LittleEndian.PutUint32(header[headerOffsetUncompressedLen:], uint32(uncompressedLen))
}

// decodeFrameHeader extracts the header fields.
func decodeFrameHeader(header []byte) (storedLen int, tag CompressionTag, uncompressedLen int) {
	storedLen = int(binary.LittleEndian.Uint32(header[headerOffsetStoredLen:]))
	tag = CompressionTag(header[headerOffsetTag])
	uncompressedLen = int(binary.LittleEndian.Uint32(header[headerOffsetUncompressedLen:]))
	return storedLen, tag, uncompressedLen
}

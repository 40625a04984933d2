// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package summarylog

import "errors"

var (
	// ErrTruncatedRecord reports that the stream ended partway through
	// a frame. All frames before the truncation point were returned
	// intact; the partial frame is unrecoverable but implies no
	// corruption. Match with errors.Is.
	ErrTruncatedRecord = errors.New("truncated record")

	// ErrMalformedRecord reports a frame whose bytes are present but
	// inconsistent: checksum mismatch, unknown compression tag, or a
	// length field that violates the frame contract. The stream is not
	// trustworthy past this point. Match with errors.Is.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrBadVersionMarker reports that a stream opened with
	// ReaderOptions.ExpectVersion does not begin with a version marker
	// this build can honor. Match with errors.Is.
	ErrBadVersionMarker = errors.New("bad version marker")
)

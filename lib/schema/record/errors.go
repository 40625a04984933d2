// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

import "errors"

// Decode error taxonomy. Each sentinel classifies a structural
// violation local to a single record; all are surfaced wrapped with
// context and matched via errors.Is. None of them implies the
// surrounding stream is misaligned — stream-level errors
// (TruncatedRecord, MalformedRecord) live in lib/summarylog, which
// owns the framing.
var (
	// ErrMissingRequiredField means a record or sub-record omits a
	// field the schema requires (the envelope's wall_time, a summary
	// value's tag, an image's dimensions).
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrNoPayloadSet means the envelope carries none of the payload
	// variants. Such a record is malformed: every event describes
	// exactly one thing.
	ErrNoPayloadSet = errors.New("no payload set")

	// ErrMultiplePayloadsSet means the envelope carries more than one
	// known payload variant. The encoder cannot produce this state;
	// hand-constructed or corrupt bytes can.
	ErrMultiplePayloadsSet = errors.New("multiple payloads set")

	// ErrInvalidValueVariant means a summary value carries zero or
	// several of its scalar/image/tensor variants.
	ErrInvalidValueVariant = errors.New("invalid summary value variant")

	// ErrInvalidColorspace means an image's colorspace tag is outside
	// the closed enumeration. Downstream image decoding dispatches on
	// this tag, so out-of-range values are rejected rather than
	// silently carried.
	ErrInvalidColorspace = errors.New("invalid image colorspace")

	// ErrMaxDepthExceeded means a dataset graph nests deeper than
	// DecodeOptions.MaxGraphDepth. A guard against stack exhaustion
	// from corrupt or adversarial input.
	ErrMaxDepthExceeded = errors.New("dataset graph depth limit exceeded")

	// ErrMaxNodesExceeded means a dataset graph contains more nodes
	// than DecodeOptions.MaxGraphNodes.
	ErrMaxNodesExceeded = errors.New("dataset graph node limit exceeded")
)

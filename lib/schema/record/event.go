// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"

	"github.com/TommyLike/mindinsight/lib/codec"
)

// Wire keys of the Event envelope. These are protocol constants —
// changing them breaks every deployed summary log.
const (
	keyWallTime = 1
	keyStep     = 2

	keyVersion           = 3
	keyGraph             = 4
	keySummary           = 5
	keyTrainLineage      = 6
	keyEvaluationLineage = 7
	keyDatasetGraph      = 9

	// Key 8 sits unused between evaluation_lineage and dataset_graph.
	// It is reserved: the encoder never emits it, and the decoder
	// treats it like any other unrecognized payload kind so that a
	// future assignment does not collide with deployed readers.
)

// firstPayloadKey is the lowest envelope key that can carry a payload.
// Keys 1 and 2 are the timestamp and step; everything at or above this
// key is a payload variant, known or not.
const firstPayloadKey = 3

// Payload is one of the six mutually exclusive record kinds carried by
// an Event, or an UnknownPayload preserved for forward compatibility.
// The interface is closed: only types in this package implement it, so
// an Event holds exactly one well-defined variant by construction.
type Payload interface {
	// PayloadKey returns the wire key (stable field position) of this
	// payload kind.
	PayloadKey() int64

	isPayload()
}

// Event is the outermost record unit: a producer timestamp, an
// optional training step, and exactly one payload. Events are
// constructed once at emission time and immutable thereafter.
type Event struct {
	// WallTime is the producer-clock timestamp in seconds since the
	// Unix epoch. Required. Not guaranteed monotonic across processes.
	WallTime float64

	// Step is the training iteration index. Optional: nil means "not
	// recorded", which is distinct from step zero.
	Step *int64

	// Payload is the single variant this event carries. Must be
	// non-nil for the event to encode.
	Payload Payload

	// unknown holds envelope keys the decoder did not recognize and
	// that did not become the event's payload. They are re-emitted on
	// encode so a rewrite cycle through an older build loses nothing.
	unknown map[int64]codec.RawMessage
}

// NewEvent returns an Event carrying the given payload at the given
// wall-clock timestamp.
func NewEvent(wallTime float64, payload Payload) *Event {
	return &Event{WallTime: wallTime, Payload: payload}
}

// WithStep returns the event with its step counter set. Step zero is a
// valid, present value.
func (e *Event) WithStep(step int64) *Event {
	e.Step = &step
	return e
}

// DecodeOptions bounds the decoder's resource use on untrusted input.
// The zero value selects the defaults.
type DecodeOptions struct {
	// MaxGraphDepth is the maximum nesting depth of a dataset graph.
	// Zero selects DefaultMaxGraphDepth.
	MaxGraphDepth int

	// MaxGraphNodes is the maximum total node count of a dataset
	// graph. Zero selects DefaultMaxGraphNodes.
	MaxGraphNodes int
}

// Default dataset-graph decode bounds. Generous for real pipelines
// (tens of operations, nesting in the dozens) while keeping recursive
// decode of hostile input bounded.
const (
	DefaultMaxGraphDepth = 128
	DefaultMaxGraphNodes = 100000
)

func (o DecodeOptions) withDefaults() DecodeOptions {
	if o.MaxGraphDepth <= 0 {
		o.MaxGraphDepth = DefaultMaxGraphDepth
	}
	if o.MaxGraphNodes <= 0 {
		o.MaxGraphNodes = DefaultMaxGraphNodes
	}
	return o
}

// Encode serializes the event to its wire form. Encoding fails only on
// states a constructor cannot produce: a nil payload.
func Encode(event *Event) ([]byte, error) {
	return event.MarshalCBOR()
}

// Decode deserializes an event using the default decode bounds.
func Decode(data []byte) (*Event, error) {
	return DecodeWithOptions(data, DecodeOptions{})
}

// DecodeWithOptions deserializes an event with explicit decode bounds.
//
// Structural violations (missing wall_time, zero or multiple payload
// variants, invalid enums, graph bounds) are reported as typed errors
// from the taxonomy in errors.go. An unrecognized payload kind is not
// an error: the event decodes with an UnknownPayload so callers can
// skip it and later records decode normally.
func DecodeWithOptions(data []byte, opts DecodeOptions) (*Event, error) {
	opts = opts.withDefaults()

	var fields map[int64]codec.RawMessage
	if err := codec.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("record: decoding envelope: %w", err)
	}

	event := &Event{}

	rawWallTime, ok := fields[keyWallTime]
	if !ok {
		return nil, fmt.Errorf("record: wall_time: %w", ErrMissingRequiredField)
	}
	if err := codec.Unmarshal(rawWallTime, &event.WallTime); err != nil {
		return nil, fmt.Errorf("record: decoding wall_time: %w", err)
	}

	if rawStep, ok := fields[keyStep]; ok {
		var step int64
		if err := codec.Unmarshal(rawStep, &step); err != nil {
			return nil, fmt.Errorf("record: decoding step: %w", err)
		}
		event.Step = &step
	}

	payload, unknown, err := decodePayload(fields, opts)
	if err != nil {
		return nil, err
	}
	event.Payload = payload
	event.unknown = unknown

	return event, nil
}

// knownPayloadKeys lists the payload variants this build understands,
// in wire-key order.
var knownPayloadKeys = []int64{
	keyVersion,
	keyGraph,
	keySummary,
	keyTrainLineage,
	keyEvaluationLineage,
	keyDatasetGraph,
}

// decodePayload selects and decodes the event's single payload variant
// from the envelope's raw field map. Returns the payload plus any
// leftover unrecognized keys to preserve.
//
// Selection rules, in order:
//   - more than one known variant present → ErrMultiplePayloadsSet
//   - exactly one known variant → decode it; unrecognized keys are
//     preserved as opaque envelope fields
//   - no known variant but unrecognized keys at or above the payload
//     key range → the lowest such key becomes an UnknownPayload
//     (forward compatibility); the rest are preserved
//   - nothing at all → ErrNoPayloadSet
func decodePayload(fields map[int64]codec.RawMessage, opts DecodeOptions) (Payload, map[int64]codec.RawMessage, error) {
	var presentKnown []int64
	for _, key := range knownPayloadKeys {
		if _, ok := fields[key]; ok {
			presentKnown = append(presentKnown, key)
		}
	}
	if len(presentKnown) > 1 {
		return nil, nil, fmt.Errorf("record: payload keys %v: %w", presentKnown, ErrMultiplePayloadsSet)
	}

	var unknown map[int64]codec.RawMessage
	for key, raw := range fields {
		if key == keyWallTime || key == keyStep || isKnownPayloadKey(key) {
			continue
		}
		if unknown == nil {
			unknown = make(map[int64]codec.RawMessage)
		}
		unknown[key] = raw
	}

	if len(presentKnown) == 1 {
		key := presentKnown[0]
		payload, err := decodeKnownPayload(key, fields[key], opts)
		if err != nil {
			return nil, nil, err
		}
		return payload, unknown, nil
	}

	// No known variant. Promote the lowest unrecognized payload-range
	// key to an UnknownPayload so callers can observe and skip it.
	var unknownPayloadKey int64
	for key := range unknown {
		if key < firstPayloadKey {
			continue
		}
		if unknownPayloadKey == 0 || key < unknownPayloadKey {
			unknownPayloadKey = key
		}
	}
	if unknownPayloadKey != 0 {
		payload := &UnknownPayload{Key: unknownPayloadKey, Raw: unknown[unknownPayloadKey]}
		delete(unknown, unknownPayloadKey)
		if len(unknown) == 0 {
			unknown = nil
		}
		return payload, unknown, nil
	}

	return nil, nil, fmt.Errorf("record: %w", ErrNoPayloadSet)
}

func isKnownPayloadKey(key int64) bool {
	for _, known := range knownPayloadKeys {
		if key == known {
			return true
		}
	}
	return false
}

// decodeKnownPayload decodes the raw bytes of a recognized payload
// variant into its concrete type.
func decodeKnownPayload(key int64, raw codec.RawMessage, opts DecodeOptions) (Payload, error) {
	switch key {
	case keyVersion:
		var version Version
		if err := codec.Unmarshal(raw, &version); err != nil {
			return nil, fmt.Errorf("record: decoding version: %w", err)
		}
		return version, nil

	case keyGraph:
		var graph Graph
		if err := codec.Unmarshal(raw, &graph); err != nil {
			return nil, fmt.Errorf("record: decoding graph: %w", err)
		}
		return graph, nil

	case keySummary:
		summary, err := decodeSummary(raw)
		if err != nil {
			return nil, err
		}
		return summary, nil

	case keyTrainLineage:
		var lineage TrainLineage
		if err := codec.Unmarshal(raw, &lineage); err != nil {
			return nil, fmt.Errorf("record: decoding train lineage: %w", err)
		}
		return &lineage, nil

	case keyEvaluationLineage:
		var lineage EvaluationLineage
		if err := codec.Unmarshal(raw, &lineage); err != nil {
			return nil, fmt.Errorf("record: decoding evaluation lineage: %w", err)
		}
		return &lineage, nil

	case keyDatasetGraph:
		return decodeDatasetGraph(raw, opts)

	default:
		// Unreachable: callers pass keys from knownPayloadKeys.
		return nil, fmt.Errorf("record: payload key %d is not a known variant", key)
	}
}

// MarshalCBOR implements cbor.Marshaler. The envelope encodes as a
// CBOR map with integer keys; Core Deterministic Encoding sorts the
// keys, so the emission order is fixed within one build.
func (e *Event) MarshalCBOR() ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("record: encoding event: %w", ErrNoPayloadSet)
	}

	fields := make(map[int64]codec.RawMessage, 3+len(e.unknown))

	rawWallTime, err := codec.Marshal(e.WallTime)
	if err != nil {
		return nil, fmt.Errorf("record: encoding wall_time: %w", err)
	}
	fields[keyWallTime] = rawWallTime

	if e.Step != nil {
		rawStep, err := codec.Marshal(*e.Step)
		if err != nil {
			return nil, fmt.Errorf("record: encoding step: %w", err)
		}
		fields[keyStep] = rawStep
	}

	rawPayload, err := encodePayload(e.Payload)
	if err != nil {
		return nil, err
	}
	fields[e.Payload.PayloadKey()] = rawPayload

	for key, raw := range e.unknown {
		if _, taken := fields[key]; !taken {
			fields[key] = raw
		}
	}

	return codec.Marshal(fields)
}

// UnmarshalCBOR implements cbor.Unmarshaler using the default decode
// bounds. Use DecodeWithOptions to decode with explicit bounds.
func (e *Event) UnmarshalCBOR(data []byte) error {
	decoded, err := DecodeWithOptions(data, DecodeOptions{})
	if err != nil {
		return err
	}
	*e = *decoded
	return nil
}

// encodePayload serializes a payload variant's content (without its
// envelope key).
func encodePayload(payload Payload) (codec.RawMessage, error) {
	if unknown, ok := payload.(*UnknownPayload); ok {
		// Forward unrecognized payloads byte-identically.
		return unknown.Raw, nil
	}
	raw, err := codec.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("record: encoding payload key %d: %w", payload.PayloadKey(), err)
	}
	return raw, nil
}

// UnknownPayload preserves a payload variant this build does not
// recognize: the reserved key 8 or any kind added after this decoder
// was built. It is a forward-compatibility signal, not an error —
// callers that meet one should skip the record. Re-encoding an event
// with an UnknownPayload reproduces the original bytes.
type UnknownPayload struct {
	// Key is the envelope wire key the payload arrived under.
	Key int64

	// Raw is the payload's encoded content, byte-identical to what
	// was received.
	Raw codec.RawMessage
}

// PayloadKey returns the wire key the unrecognized payload arrived
// under.
func (p *UnknownPayload) PayloadKey() int64 { return p.Key }

func (p *UnknownPayload) isPayload() {}

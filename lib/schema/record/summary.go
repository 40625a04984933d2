// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"

	"github.com/TommyLike/mindinsight/lib/codec"
)

// Wire keys of a summary Value. The gap between tag (1) and the first
// variant (3) and the jump to tensor (8) mirror the stable field
// positions of the record format.
const (
	valueKeyTag    = 1
	valueKeyScalar = 3
	valueKeyImage  = 4
	valueKeyTensor = 8
)

// Summary is an ordered sequence of tagged metric values emitted
// periodically during training.
type Summary struct {
	// Values holds the tagged entries in emission order. Tags are not
	// required to be unique within a summary.
	Values []Value `cbor:"1,keyasint,omitempty"`
}

// PayloadKey returns the summary's envelope wire key.
func (s *Summary) PayloadKey() int64 { return keySummary }

func (s *Summary) isPayload() {}

// Value is a single tagged metric: a required tag plus exactly one of
// a scalar, an image, or an externally defined tensor.
type Value struct {
	// Tag names the metric (e.g. "loss", "input_images"). Required.
	Tag string

	// Content is the value's single variant. Must be non-nil for the
	// value to encode.
	Content ValueContent
}

// ValueContent is the three-way union a summary Value carries. The
// interface is closed to Scalar, *Image, and Tensor.
type ValueContent interface {
	// ValueKey returns the variant's wire key within a Value.
	ValueKey() int64

	isValueContent()
}

// Scalar is a single float metric sample.
type Scalar float32

// ValueKey returns the scalar variant's wire key.
func (s Scalar) ValueKey() int64 { return valueKeyScalar }

func (s Scalar) isValueContent() {}

// Tensor is an opaque tensor owned by the external graph-model
// library, stored and forwarded without interpretation.
type Tensor []byte

// ValueKey returns the tensor variant's wire key.
func (t Tensor) ValueKey() int64 { return valueKeyTensor }

func (t Tensor) isValueContent() {}

// MarshalCBOR implements cbor.Marshaler. A Value encodes as a map of
// its tag plus its single variant.
func (v Value) MarshalCBOR() ([]byte, error) {
	if v.Content == nil {
		return nil, fmt.Errorf("record: encoding value %q: %w", v.Tag, ErrInvalidValueVariant)
	}

	rawTag, err := codec.Marshal(v.Tag)
	if err != nil {
		return nil, fmt.Errorf("record: encoding value tag: %w", err)
	}
	rawContent, err := codec.Marshal(v.Content)
	if err != nil {
		return nil, fmt.Errorf("record: encoding value %q: %w", v.Tag, err)
	}

	return codec.Marshal(map[int64]codec.RawMessage{
		valueKeyTag:          rawTag,
		v.Content.ValueKey(): rawContent,
	})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (v *Value) UnmarshalCBOR(data []byte) error {
	decoded, err := decodeValue(data)
	if err != nil {
		return err
	}
	*v = *decoded
	return nil
}

// decodeValue decodes a single summary value, enforcing the required
// tag and the exactly-one-variant rule.
func decodeValue(raw codec.RawMessage) (*Value, error) {
	var fields map[int64]codec.RawMessage
	if err := codec.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}

	rawTag, ok := fields[valueKeyTag]
	if !ok {
		return nil, fmt.Errorf("value tag: %w", ErrMissingRequiredField)
	}
	value := &Value{}
	if err := codec.Unmarshal(rawTag, &value.Tag); err != nil {
		return nil, fmt.Errorf("decoding value tag: %w", err)
	}

	var variants []int64
	for _, key := range []int64{valueKeyScalar, valueKeyImage, valueKeyTensor} {
		if _, ok := fields[key]; ok {
			variants = append(variants, key)
		}
	}
	if len(variants) != 1 {
		return nil, fmt.Errorf("value %q has %d variants set: %w", value.Tag, len(variants), ErrInvalidValueVariant)
	}

	switch variants[0] {
	case valueKeyScalar:
		var scalar Scalar
		if err := codec.Unmarshal(fields[valueKeyScalar], &scalar); err != nil {
			return nil, fmt.Errorf("decoding scalar %q: %w", value.Tag, err)
		}
		value.Content = scalar

	case valueKeyImage:
		image, err := decodeImage(fields[valueKeyImage])
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", value.Tag, err)
		}
		value.Content = image

	case valueKeyTensor:
		var tensor Tensor
		if err := codec.Unmarshal(fields[valueKeyTensor], &tensor); err != nil {
			return nil, fmt.Errorf("decoding tensor %q: %w", value.Tag, err)
		}
		value.Content = tensor
	}

	return value, nil
}

// summaryWire is the decode intermediate for Summary: values stay raw
// so each entry decodes through decodeValue with proper error context.
type summaryWire struct {
	Values []codec.RawMessage `cbor:"1,keyasint,omitempty"`
}

func decodeSummary(raw codec.RawMessage) (*Summary, error) {
	var wire summaryWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("record: decoding summary: %w", err)
	}

	summary := &Summary{}
	if len(wire.Values) > 0 {
		summary.Values = make([]Value, 0, len(wire.Values))
	}
	for i, rawValue := range wire.Values {
		value, err := decodeValue(rawValue)
		if err != nil {
			return nil, fmt.Errorf("record: summary value %d: %w", i, err)
		}
		summary.Values = append(summary.Values, *value)
	}
	return summary, nil
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (s *Summary) UnmarshalCBOR(data []byte) error {
	decoded, err := decodeSummary(data)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

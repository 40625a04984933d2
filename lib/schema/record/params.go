// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"

	"github.com/TommyLike/mindinsight/lib/codec"
)

// Wire keys of the five parallel parameter maps. The wire format keeps
// string, string-list, bool, int, and double entries in separate maps
// (a single union-valued map does not exist at the wire level); the
// in-memory model below collapses them into one keyspace.
const (
	paramKeyStrings = 1
	paramKeyLists   = 2
	paramKeyBools   = 3
	paramKeyInts    = 4
	paramKeyDoubles = 5
)

// OperationParameter is the configuration of a pipeline operation: a
// single mapping from parameter name to a five-way typed value.
//
// The wire format carries five independent maps, one per value kind,
// and does not enforce key uniqueness across them — that is producer
// discipline. This in-memory model has one keyspace, which narrows the
// representable states: if corrupt or undisciplined input repeats a
// key across wire maps, decode keeps the entry from the highest-
// numbered map (string < string-list < bool < int < double). Encoding
// a decoded parameter therefore reproduces the disciplined subset of
// the input exactly.
//
// Within one wire map, duplicate keys are last-write-wins during
// construction, never an error. Iteration order carries no meaning;
// only presence and value are contractual.
type OperationParameter map[string]ParamValue

// ParamValue is the five-way union a parameter maps to. The interface
// is closed to ParamString, StrList, ParamBool, ParamInt, and
// ParamDouble.
type ParamValue interface {
	isParamValue()
}

// ParamString is a string-valued parameter.
type ParamString string

func (ParamString) isParamValue() {}

// StrList is an ordered sequence of strings. It exists as a named type
// because the wire format's map values must be single-valued entries;
// it doubles as the string-list parameter kind.
type StrList []string

func (StrList) isParamValue() {}

// ParamBool is a bool-valued parameter.
type ParamBool bool

func (ParamBool) isParamValue() {}

// ParamInt is an int32-valued parameter.
type ParamInt int32

func (ParamInt) isParamValue() {}

// ParamDouble is a float64-valued parameter.
type ParamDouble float64

func (ParamDouble) isParamValue() {}

// StringValue looks up a string-kind parameter. The second result is
// false when the key is absent or holds a different kind.
func (p OperationParameter) StringValue(key string) (string, bool) {
	value, ok := p[key].(ParamString)
	return string(value), ok
}

// ListValue looks up a string-list-kind parameter.
func (p OperationParameter) ListValue(key string) (StrList, bool) {
	value, ok := p[key].(StrList)
	return value, ok
}

// BoolValue looks up a bool-kind parameter.
func (p OperationParameter) BoolValue(key string) (bool, bool) {
	value, ok := p[key].(ParamBool)
	return bool(value), ok
}

// IntValue looks up an int32-kind parameter.
func (p OperationParameter) IntValue(key string) (int32, bool) {
	value, ok := p[key].(ParamInt)
	return int32(value), ok
}

// DoubleValue looks up a float64-kind parameter.
func (p OperationParameter) DoubleValue(key string) (float64, bool) {
	value, ok := p[key].(ParamDouble)
	return float64(value), ok
}

// operationParameterWire is the five-map wire form.
type operationParameterWire struct {
	Strings map[string]string  `cbor:"1,keyasint,omitempty"`
	Lists   map[string]StrList `cbor:"2,keyasint,omitempty"`
	Bools   map[string]bool    `cbor:"3,keyasint,omitempty"`
	Ints    map[string]int32   `cbor:"4,keyasint,omitempty"`
	Doubles map[string]float64 `cbor:"5,keyasint,omitempty"`
}

// MarshalCBOR implements cbor.Marshaler, splitting the single keyspace
// back into the five wire maps.
func (p OperationParameter) MarshalCBOR() ([]byte, error) {
	var wire operationParameterWire
	for key, value := range p {
		switch v := value.(type) {
		case ParamString:
			if wire.Strings == nil {
				wire.Strings = make(map[string]string)
			}
			wire.Strings[key] = string(v)
		case StrList:
			if wire.Lists == nil {
				wire.Lists = make(map[string]StrList)
			}
			wire.Lists[key] = v
		case ParamBool:
			if wire.Bools == nil {
				wire.Bools = make(map[string]bool)
			}
			wire.Bools[key] = bool(v)
		case ParamInt:
			if wire.Ints == nil {
				wire.Ints = make(map[string]int32)
			}
			wire.Ints[key] = int32(v)
		case ParamDouble:
			if wire.Doubles == nil {
				wire.Doubles = make(map[string]float64)
			}
			wire.Doubles[key] = float64(v)
		case nil:
			return nil, fmt.Errorf("record: parameter %q has nil value", key)
		default:
			// Unreachable: ParamValue is closed to the cases above.
			return nil, fmt.Errorf("record: parameter %q has unsupported kind %T", key, value)
		}
	}
	return codec.Marshal(wire)
}

// UnmarshalCBOR implements cbor.Unmarshaler, merging the five wire
// maps into the single keyspace (highest-numbered map wins on a
// cross-map duplicate).
func (p *OperationParameter) UnmarshalCBOR(data []byte) error {
	var wire operationParameterWire
	if err := codec.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("record: decoding operation parameter: %w", err)
	}

	total := len(wire.Strings) + len(wire.Lists) + len(wire.Bools) + len(wire.Ints) + len(wire.Doubles)
	merged := make(OperationParameter, total)
	for key, value := range wire.Strings {
		merged[key] = ParamString(value)
	}
	for key, value := range wire.Lists {
		merged[key] = value
	}
	for key, value := range wire.Bools {
		merged[key] = ParamBool(value)
	}
	for key, value := range wire.Ints {
		merged[key] = ParamInt(value)
	}
	for key, value := range wire.Doubles {
		merged[key] = ParamDouble(value)
	}
	*p = merged
	return nil
}

// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[int64]any{
		1: 1740000000.25,
		2: int64(400),
		5: map[int64]any{1: []any{"loss", float32(0.125)}},
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding produced differing bytes:\n%x\n%x", first, second)
	}
}

func TestUnmarshalIgnoresUnknownStructFields(t *testing.T) {
	type narrow struct {
		Height int32 `cbor:"1,keyasint"`
		Width  int32 `cbor:"2,keyasint"`
	}

	// Encode a wider map than the struct knows about.
	data, err := Marshal(map[int64]any{1: int32(32), 2: int32(64), 3: int32(3), 4: []byte{0xff}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded narrow
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal with unknown keys: %v", err)
	}
	if decoded.Height != 32 || decoded.Width != 64 {
		t.Errorf("decoded = %+v, want Height=32 Width=64", decoded)
	}
}

func TestDecodeDeepNesting(t *testing.T) {
	// 500 levels of nested arrays: far beyond the CBOR library default
	// of 32, well within the configured limit. The record layer relies
	// on this headroom for deep dataset graphs.
	var buffer bytes.Buffer
	for i := 0; i < 500; i++ {
		buffer.WriteByte(0x81) // array of length 1
	}
	buffer.WriteByte(0x00) // innermost element: 0

	var decoded any
	if err := Unmarshal(buffer.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal of 500-level nesting: %v", err)
	}
}

func TestDefaultMapTypeIsStringKeyed(t *testing.T) {
	data, err := Marshal(map[string]any{"accuracy": 0.78})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	asMap, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if asMap["accuracy"] != 0.78 {
		t.Errorf("accuracy = %v, want 0.78", asMap["accuracy"])
	}
}

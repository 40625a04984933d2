// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"errors"
	"reflect"
	"testing"

	"github.com/TommyLike/mindinsight/lib/codec"
)

// chainGraph builds a dataset graph nested to the given depth, each
// level holding a single child.
func chainGraph(depth int) *DatasetGraph {
	graph := &DatasetGraph{}
	for i := 1; i < depth; i++ {
		graph = &DatasetGraph{Children: []*DatasetGraph{graph}}
	}
	return graph
}

func TestDatasetGraphDepthBound(t *testing.T) {
	// A synthetically constructed 10,000-level graph must be rejected
	// by the depth bound, not crash the decoder.
	deep := chainGraph(10000)
	if got := deep.Depth(); got != 10000 {
		t.Fatalf("Depth = %d, want 10000", got)
	}

	encoded, err := Encode(NewEvent(1.0, deep))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = Decode(encoded)
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("Decode of 10000-level graph = %v, want ErrMaxDepthExceeded", err)
	}
}

func TestDatasetGraphDepthBoundConfigurable(t *testing.T) {
	encoded, err := Encode(NewEvent(1.0, chainGraph(10)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := DecodeWithOptions(encoded, DecodeOptions{MaxGraphDepth: 10}); err != nil {
		t.Errorf("depth-10 graph with MaxGraphDepth=10: %v", err)
	}

	_, err = DecodeWithOptions(encoded, DecodeOptions{MaxGraphDepth: 9})
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("depth-10 graph with MaxGraphDepth=9 = %v, want ErrMaxDepthExceeded", err)
	}
}

func TestDatasetGraphNodeBound(t *testing.T) {
	// A wide, shallow graph: one root with 50 children.
	root := &DatasetGraph{}
	for i := 0; i < 50; i++ {
		root.Children = append(root.Children, &DatasetGraph{})
	}
	if got := root.NodeCount(); got != 51 {
		t.Fatalf("NodeCount = %d, want 51", got)
	}

	encoded, err := Encode(NewEvent(1.0, root))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := DecodeWithOptions(encoded, DecodeOptions{MaxGraphNodes: 51}); err != nil {
		t.Errorf("51-node graph with MaxGraphNodes=51: %v", err)
	}

	_, err = DecodeWithOptions(encoded, DecodeOptions{MaxGraphNodes: 50})
	if !errors.Is(err, ErrMaxNodesExceeded) {
		t.Errorf("51-node graph with MaxGraphNodes=50 = %v, want ErrMaxNodesExceeded", err)
	}
}

func TestDatasetGraphRoundTrip(t *testing.T) {
	original := &DatasetGraph{
		Children: []*DatasetGraph{
			{
				Parameter: OperationParameter{"dataset_path": ParamString("/data/imagenet")},
				Operations: []Operation{
					{
						Parameter: OperationParameter{"operation": ParamString("Decode")},
					},
					{
						Parameter: OperationParameter{"operation": ParamString("Resize")},
						Size:      []int32{224, 224},
					},
				},
			},
		},
		Parameter: OperationParameter{
			"shuffle":    ParamBool(true),
			"batch_size": ParamInt(64),
		},
		Sampler: &Operation{
			Parameter: OperationParameter{"sampler": ParamString("RandomSampler")},
			Weights:   []float32{0.3, 0.7},
		},
	}

	encoded, err := Encode(NewEvent(1.0, original))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	graph, ok := decoded.Payload.(*DatasetGraph)
	if !ok {
		t.Fatalf("payload type = %T, want *DatasetGraph", decoded.Payload)
	}
	if !reflect.DeepEqual(original, graph) {
		t.Errorf("round trip mismatch:\noriginal: %#v\ndecoded:  %#v", original, graph)
	}
}

func TestOperationParameterLookup(t *testing.T) {
	params := OperationParameter{
		"dataset_path": ParamString("/data/mnist"),
		"columns":      StrList{"image", "label"},
		"shuffle":      ParamBool(true),
		"num_workers":  ParamInt(8),
		"ratio":        ParamDouble(0.8),
	}

	if path, ok := params.StringValue("dataset_path"); !ok || path != "/data/mnist" {
		t.Errorf("StringValue(dataset_path) = %q, %v", path, ok)
	}
	if columns, ok := params.ListValue("columns"); !ok || len(columns) != 2 {
		t.Errorf("ListValue(columns) = %v, %v", columns, ok)
	}
	if shuffle, ok := params.BoolValue("shuffle"); !ok || !shuffle {
		t.Errorf("BoolValue(shuffle) = %v, %v", shuffle, ok)
	}
	if workers, ok := params.IntValue("num_workers"); !ok || workers != 8 {
		t.Errorf("IntValue(num_workers) = %d, %v", workers, ok)
	}
	if ratio, ok := params.DoubleValue("ratio"); !ok || ratio != 0.8 {
		t.Errorf("DoubleValue(ratio) = %v, %v", ratio, ok)
	}

	// Lookup is by (kind, key): asking for the wrong kind misses.
	if _, ok := params.StringValue("shuffle"); ok {
		t.Error("StringValue(shuffle) matched a bool parameter")
	}
	if _, ok := params.BoolValue("missing"); ok {
		t.Error("BoolValue(missing) matched an absent key")
	}
}

func TestOperationParameterRoundTrip(t *testing.T) {
	original := OperationParameter{
		"dataset_path": ParamString("/data/mnist"),
		"columns":      StrList{"image", "label"},
		"shuffle":      ParamBool(false),
		"num_workers":  ParamInt(8),
		"ratio":        ParamDouble(0.8),
	}

	encoded, err := codec.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded OperationParameter
	if err := codec.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\noriginal: %#v\ndecoded:  %#v", original, decoded)
	}
}

func TestOperationParameterCrossMapDuplicate(t *testing.T) {
	// The wire format cannot forbid the same key appearing in two of
	// the five maps. The merged keyspace keeps the entry from the
	// highest-numbered map.
	data, err := codec.Marshal(map[int64]any{
		paramKeyStrings: map[string]string{"shuffle": "yes"},
		paramKeyBools:   map[string]bool{"shuffle": true},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded OperationParameter
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("merged keyspace has %d entries, want 1", len(decoded))
	}
	shuffle, ok := decoded.BoolValue("shuffle")
	if !ok || !shuffle {
		t.Errorf("BoolValue(shuffle) = %v, %v; bool map should win over string map", shuffle, ok)
	}
}

func TestDatasetGraphDirectUnmarshal(t *testing.T) {
	// Unmarshaling a graph outside an event envelope applies the
	// default bounds.
	encoded, err := codec.Marshal(chainGraph(DefaultMaxGraphDepth + 1))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var graph DatasetGraph
	err = codec.Unmarshal(encoded, &graph)
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("Unmarshal = %v, want ErrMaxDepthExceeded", err)
	}
}

// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"

	"github.com/TommyLike/mindinsight/lib/codec"
)

// DatasetGraph describes a data-loading pipeline as a tree of
// operation nodes. Producers build it bottom-up — leaf operations
// first, parents wrapping children — so the structure is acyclic by
// construction: a node never references an ancestor. Ownership is
// strict parent-owns-child with no sharing.
//
// Decoding is bounded by DecodeOptions (depth and node count) as a
// defense against corrupt or adversarial input; see decodeDatasetGraph.
type DatasetGraph struct {
	// Children are the nested sub-pipelines feeding this node.
	Children []*DatasetGraph `cbor:"1,keyasint,omitempty"`

	// Parameter configures this pipeline stage. A nil map means the
	// stage carries no configuration.
	Parameter OperationParameter `cbor:"2,keyasint,omitempty"`

	// Operations are the transforms applied at this stage, in order.
	Operations []Operation `cbor:"3,keyasint,omitempty"`

	// Sampler is the optional sampling operation for this stage.
	Sampler *Operation `cbor:"4,keyasint,omitempty"`
}

// PayloadKey returns the dataset graph's envelope wire key.
func (g *DatasetGraph) PayloadKey() int64 { return keyDatasetGraph }

func (g *DatasetGraph) isPayload() {}

// UnmarshalCBOR implements cbor.Unmarshaler using the default decode
// bounds. Use DecodeWithOptions on the enclosing event to decode with
// explicit bounds.
func (g *DatasetGraph) UnmarshalCBOR(data []byte) error {
	decoded, err := decodeDatasetGraph(data, DecodeOptions{}.withDefaults())
	if err != nil {
		return err
	}
	*g = *decoded
	return nil
}

// Operation is a single pipeline transform: its configuration plus raw
// numeric arrays. Size and Weights have no enforced length relation to
// each other or to sibling operations — that is a producer concern.
type Operation struct {
	Parameter OperationParameter `cbor:"1,keyasint,omitempty"`
	Size      []int32            `cbor:"2,keyasint,omitempty"`
	Weights   []float32          `cbor:"3,keyasint,omitempty"`
}

// datasetGraphWire is the decode intermediate for DatasetGraph:
// children stay raw so the bounded walker controls recursion instead
// of the CBOR library.
type datasetGraphWire struct {
	Children   []codec.RawMessage `cbor:"1,keyasint,omitempty"`
	Parameter  OperationParameter `cbor:"2,keyasint,omitempty"`
	Operations []Operation        `cbor:"3,keyasint,omitempty"`
	Sampler    *Operation         `cbor:"4,keyasint,omitempty"`
}

// decodeDatasetGraph decodes a dataset graph with depth and node-count
// bounds. The depth bound is checked before each descent, so the Go
// call stack never grows past MaxGraphDepth frames regardless of how
// deep the input nests.
func decodeDatasetGraph(raw codec.RawMessage, opts DecodeOptions) (*DatasetGraph, error) {
	state := &graphDecodeState{opts: opts}
	return state.decode(raw, 1)
}

type graphDecodeState struct {
	opts  DecodeOptions
	nodes int
}

func (s *graphDecodeState) decode(raw codec.RawMessage, depth int) (*DatasetGraph, error) {
	if depth > s.opts.MaxGraphDepth {
		return nil, fmt.Errorf("record: dataset graph nests past %d levels: %w",
			s.opts.MaxGraphDepth, ErrMaxDepthExceeded)
	}
	s.nodes++
	if s.nodes > s.opts.MaxGraphNodes {
		return nil, fmt.Errorf("record: dataset graph exceeds %d nodes: %w",
			s.opts.MaxGraphNodes, ErrMaxNodesExceeded)
	}

	var wire datasetGraphWire
	if err := codec.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("record: decoding dataset graph node: %w", err)
	}

	graph := &DatasetGraph{
		Parameter:  wire.Parameter,
		Operations: wire.Operations,
		Sampler:    wire.Sampler,
	}
	if len(wire.Children) > 0 {
		graph.Children = make([]*DatasetGraph, 0, len(wire.Children))
	}
	for i, rawChild := range wire.Children {
		child, err := s.decode(rawChild, depth+1)
		if err != nil {
			return nil, fmt.Errorf("record: dataset graph child %d: %w", i, err)
		}
		graph.Children = append(graph.Children, child)
	}
	return graph, nil
}

// Depth returns the nesting depth of the graph (1 for a leaf). Useful
// to producers checking a graph against decode bounds before emission.
func (g *DatasetGraph) Depth() int {
	deepest := 0
	for _, child := range g.Children {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// NodeCount returns the total number of graph nodes in the tree.
func (g *DatasetGraph) NodeCount() int {
	count := 1
	for _, child := range g.Children {
		count += child.NodeCount()
	}
	return count
}

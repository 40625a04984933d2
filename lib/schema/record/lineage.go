// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

// Lineage records are pure descriptive metadata emitted once at run
// start/end for experiment reproducibility. Every field is optional
// and pointer-typed: absence means "not recorded" and is observably
// distinct from a present zero value — encode/decode reproduces
// exactly the set of fields that were present. There are no cross-
// field invariants and no validation beyond type conformance.

// TrainLineage describes a training run: its hyperparameters, input
// dataset, algorithm, and produced model artifact.
type TrainLineage struct {
	HyperParameters *HyperParameters `cbor:"1,keyasint,omitempty"`
	TrainDataset    *LineageDataset  `cbor:"2,keyasint,omitempty"`
	Algorithm       *Algorithm       `cbor:"3,keyasint,omitempty"`
	Model           *Model           `cbor:"4,keyasint,omitempty"`
}

// PayloadKey returns the train lineage's envelope wire key.
func (l *TrainLineage) PayloadKey() int64 { return keyTrainLineage }

func (l *TrainLineage) isPayload() {}

// EvaluationLineage describes an evaluation run: the dataset it ran
// against and the resulting metric.
//
// Wire key 1 is unused. It is preserved as a gap: this build neither
// emits nor interprets it.
type EvaluationLineage struct {
	ValidDataset *LineageDataset `cbor:"2,keyasint,omitempty"`

	// Metric is the evaluation result. By producer convention the
	// string holds a JSON object mapping metric names to numbers
	// (e.g. `{"accuracy": 0.78}`); this layer does not parse it.
	Metric *string `cbor:"3,keyasint,omitempty"`
}

// PayloadKey returns the evaluation lineage's envelope wire key.
func (l *EvaluationLineage) PayloadKey() int64 { return keyEvaluationLineage }

func (l *EvaluationLineage) isPayload() {}

// HyperParameters captures the training configuration knobs a run was
// launched with.
type HyperParameters struct {
	Optimizer    *string  `cbor:"1,keyasint,omitempty"`
	LearningRate *float32 `cbor:"2,keyasint,omitempty"`
	LossFunction *string  `cbor:"3,keyasint,omitempty"`
	Epoch        *int32   `cbor:"4,keyasint,omitempty"`
	ParallelMode *string  `cbor:"5,keyasint,omitempty"`
	DeviceNum    *int32   `cbor:"6,keyasint,omitempty"`
	BatchSize    *int32   `cbor:"7,keyasint,omitempty"`
}

// LineageDataset identifies a dataset consumed by a training or
// evaluation run.
type LineageDataset struct {
	// Path locates the dataset (filesystem path or storage URI).
	Path *string `cbor:"1,keyasint,omitempty"`

	// Size is the dataset's record count.
	Size *int32 `cbor:"2,keyasint,omitempty"`
}

// Algorithm names the network and its final training loss.
type Algorithm struct {
	Network *string  `cbor:"1,keyasint,omitempty"`
	Loss    *float32 `cbor:"2,keyasint,omitempty"`
}

// Model locates the produced model artifact.
type Model struct {
	Path *string `cbor:"1,keyasint,omitempty"`

	// Size is the artifact size in bytes.
	Size *int64 `cbor:"2,keyasint,omitempty"`
}

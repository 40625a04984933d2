// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package lineage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/TommyLike/mindinsight/lib/schema/record"
	"github.com/TommyLike/mindinsight/lib/summarylog"
)

// Run is the lineage of one training run, merged from the records of
// one summary log. When a log carries a lineage kind more than once
// (resumed training overwriting its earlier emission), the latest
// record wins.
type Run struct {
	// SummaryDir identifies the run; by convention the directory
	// holding its summary log.
	SummaryDir string

	// Train, Evaluation, and Graph are the merged lineage records.
	// Each may be nil when the log never emitted that kind.
	Train      *record.TrainLineage
	Evaluation *record.EvaluationLineage
	Graph      *record.DatasetGraph

	// Metrics is the evaluation metric map parsed from the lineage's
	// JSON metric text. Nil when the metric is absent or not valid
	// JSON.
	Metrics map[string]any

	// DatasetMark groups runs that trained on an identical dataset
	// graph; assigned by the Querier.
	DatasetMark string
}

// metricFieldPrefix namespaces per-metric fields in filter and sort
// conditions: "metric_accuracy" reads Metrics["accuracy"].
const metricFieldPrefix = "metric_"

// runFields lists the flattened field names usable in filter and sort
// conditions, besides the metric_ namespace.
var runFields = map[string]func(*Run) any{
	"summary_dir":         func(r *Run) any { return r.SummaryDir },
	"dataset_mark":        func(r *Run) any { return r.DatasetMark },
	"optimizer":           func(r *Run) any { return stringField(hyper(r), func(h *record.HyperParameters) *string { return h.Optimizer }) },
	"loss_function":       func(r *Run) any { return stringField(hyper(r), func(h *record.HyperParameters) *string { return h.LossFunction }) },
	"learning_rate":       func(r *Run) any { return float32Field(hyper(r), func(h *record.HyperParameters) *float32 { return h.LearningRate }) },
	"epoch":               func(r *Run) any { return int32Field(hyper(r), func(h *record.HyperParameters) *int32 { return h.Epoch }) },
	"batch_size":          func(r *Run) any { return int32Field(hyper(r), func(h *record.HyperParameters) *int32 { return h.BatchSize }) },
	"device_num":          func(r *Run) any { return int32Field(hyper(r), func(h *record.HyperParameters) *int32 { return h.DeviceNum }) },
	"network":             func(r *Run) any { return stringField(algorithm(r), func(a *record.Algorithm) *string { return a.Network }) },
	"loss":                func(r *Run) any { return float32Field(algorithm(r), func(a *record.Algorithm) *float32 { return a.Loss }) },
	"train_dataset_path":  func(r *Run) any { return stringField(trainDataset(r), func(d *record.LineageDataset) *string { return d.Path }) },
	"train_dataset_count": func(r *Run) any { return int32Field(trainDataset(r), func(d *record.LineageDataset) *int32 { return d.Size }) },
	"test_dataset_path":   func(r *Run) any { return stringField(validDataset(r), func(d *record.LineageDataset) *string { return d.Path }) },
	"test_dataset_count":  func(r *Run) any { return int32Field(validDataset(r), func(d *record.LineageDataset) *int32 { return d.Size }) },
	"model_path":          func(r *Run) any { return stringField(model(r), func(m *record.Model) *string { return m.Path }) },
	"model_size":          func(r *Run) any { return int64Field(model(r), func(m *record.Model) *int64 { return m.Size }) },
}

func hyper(r *Run) *record.HyperParameters {
	if r.Train == nil {
		return nil
	}
	return r.Train.HyperParameters
}

func algorithm(r *Run) *record.Algorithm {
	if r.Train == nil {
		return nil
	}
	return r.Train.Algorithm
}

func trainDataset(r *Run) *record.LineageDataset {
	if r.Train == nil {
		return nil
	}
	return r.Train.TrainDataset
}

func validDataset(r *Run) *record.LineageDataset {
	if r.Evaluation == nil {
		return nil
	}
	return r.Evaluation.ValidDataset
}

func model(r *Run) *record.Model {
	if r.Train == nil {
		return nil
	}
	return r.Train.Model
}

// The field accessors normalize every present value to string or
// float64 so that filter comparison needs exactly two kinds. Absent
// values are nil.

func stringField[T any](section *T, get func(*T) *string) any {
	if section == nil {
		return nil
	}
	if value := get(section); value != nil {
		return *value
	}
	return nil
}

func float32Field[T any](section *T, get func(*T) *float32) any {
	if section == nil {
		return nil
	}
	if value := get(section); value != nil {
		return float64(*value)
	}
	return nil
}

func int32Field[T any](section *T, get func(*T) *int32) any {
	if section == nil {
		return nil
	}
	if value := get(section); value != nil {
		return float64(*value)
	}
	return nil
}

func int64Field[T any](section *T, get func(*T) *int64) any {
	if section == nil {
		return nil
	}
	if value := get(section); value != nil {
		return float64(*value)
	}
	return nil
}

// Field returns the flattened value of a filterable field, or nil
// when the field is absent in this run. The second result is false
// for field names outside the flattened set and the metric_
// namespace.
func (r *Run) Field(name string) (any, bool) {
	if metric, ok := strings.CutPrefix(name, metricFieldPrefix); ok {
		value, present := r.Metrics[metric]
		if !present {
			return nil, true
		}
		switch v := value.(type) {
		case float64:
			return v, true
		case string:
			return v, true
		default:
			// JSON bools/arrays/objects are not filterable values.
			return nil, true
		}
	}
	accessor, ok := runFields[name]
	if !ok {
		return nil, false
	}
	return accessor(r), true
}

// validField reports whether a name can appear in filter or sort
// conditions.
func validField(name string) bool {
	if strings.HasPrefix(name, metricFieldPrefix) {
		return true
	}
	_, ok := runFields[name]
	return ok
}

// CollectRun reads a summary log and merges its lineage records into
// a Run. Non-lineage records are skipped. Records that fail schema
// decoding are logged and skipped. A truncated log yields whatever
// lineage preceded the cut; a malformed log is an error, as is a log
// with no lineage records at all.
func CollectRun(summaryDir string, reader *summarylog.Reader, logger *slog.Logger) (*Run, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	run := &Run{SummaryDir: summaryDir}
	found := false

	for {
		event, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, summarylog.ErrTruncatedRecord) {
				logger.Warn("summary log truncated; using lineage collected so far",
					"summary_dir", summaryDir)
				break
			}
			if errors.Is(err, summarylog.ErrMalformedRecord) {
				return nil, fmt.Errorf("lineage: reading %s: %w", summaryDir, err)
			}
			logger.Debug("skipping undecodable record",
				"summary_dir", summaryDir, "error", err)
			continue
		}

		switch payload := event.Payload.(type) {
		case *record.TrainLineage:
			run.Train = payload
			found = true
		case *record.EvaluationLineage:
			run.Evaluation = payload
			found = true
		case *record.DatasetGraph:
			run.Graph = payload
			found = true
		case *record.UnknownPayload:
			logger.Debug("skipping unrecognized payload kind",
				"summary_dir", summaryDir, "payload_key", payload.Key)
		default:
			// Scalar summaries, graphs, version markers: not lineage.
		}
	}

	if !found {
		return nil, fmt.Errorf("lineage: %s: %w", summaryDir, ErrNoLineageEvents)
	}

	run.Metrics = parseMetrics(run.Evaluation, logger)
	return run, nil
}

// parseMetrics decodes the evaluation metric text, which producers
// emit as a JSON object by convention.
func parseMetrics(evaluation *record.EvaluationLineage, logger *slog.Logger) map[string]any {
	if evaluation == nil || evaluation.Metric == nil {
		return nil
	}
	var metrics map[string]any
	if err := json.Unmarshal([]byte(*evaluation.Metric), &metrics); err != nil {
		logger.Debug("metric text is not a JSON object", "error", err)
		return nil
	}
	return metrics
}

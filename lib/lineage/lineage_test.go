// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package lineage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/TommyLike/mindinsight/lib/schema/record"
	"github.com/TommyLike/mindinsight/lib/summarylog"
)

func strPtr(s string) *string   { return &s }
func f32Ptr(f float32) *float32 { return &f }
func i32Ptr(i int32) *int32     { return &i }

func trainEvent(step int64, learningRate float32, optimizer string) *record.Event {
	lineage := &record.TrainLineage{
		HyperParameters: &record.HyperParameters{
			Optimizer:    strPtr(optimizer),
			LearningRate: f32Ptr(learningRate),
			Epoch:        i32Ptr(10),
			BatchSize:    i32Ptr(32),
		},
		TrainDataset: &record.LineageDataset{Path: strPtr("/data/train"), Size: i32Ptr(60000)},
		Algorithm:    &record.Algorithm{Network: strPtr("LeNet5"), Loss: f32Ptr(0.11)},
		Model:        &record.Model{Path: strPtr("/ckpt/model.ckpt")},
	}
	return record.NewEvent(float64(step), lineage).WithStep(step)
}

func evalEvent(step int64, metricJSON string) *record.Event {
	lineage := &record.EvaluationLineage{
		ValidDataset: &record.LineageDataset{Path: strPtr("/data/test"), Size: i32Ptr(10000)},
		Metric:       strPtr(metricJSON),
	}
	return record.NewEvent(float64(step), lineage).WithStep(step)
}

func scalarEvent(step int64) *record.Event {
	summary := &record.Summary{Values: []record.Value{{Tag: "loss", Content: record.Scalar(1.5)}}}
	return record.NewEvent(float64(step), summary).WithStep(step)
}

// buildLog frames events into an in-memory summary log.
func buildLog(t *testing.T, events ...*record.Event) *bytes.Buffer {
	t.Helper()
	var buffer bytes.Buffer
	writer, err := summarylog.NewWriter(&buffer, summarylog.WriterOptions{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for i, event := range events {
		if err := writer.Append(event); err != nil {
			t.Fatalf("Append record %d: %v", i, err)
		}
	}
	return &buffer
}

func collect(t *testing.T, events ...*record.Event) *Run {
	t.Helper()
	reader := summarylog.NewReader(buildLog(t, events...), summarylog.ReaderOptions{})
	run, err := CollectRun("run", reader, nil)
	if err != nil {
		t.Fatalf("CollectRun: %v", err)
	}
	return run
}

func TestCollectRunMergesLatest(t *testing.T) {
	run := collect(t,
		record.NewEvent(1.0, record.CurrentVersion()),
		scalarEvent(1),
		trainEvent(2, 0.1, "SGD"),
		scalarEvent(3),
		trainEvent(4, 0.01, "Momentum"),
		evalEvent(5, `{"accuracy": 0.9, "stage": "final"}`),
	)

	if run.Train == nil || run.Train.HyperParameters == nil {
		t.Fatal("train lineage missing")
	}
	if got := *run.Train.HyperParameters.Optimizer; got != "Momentum" {
		t.Errorf("optimizer = %q, want the later record's Momentum", got)
	}
	if run.Evaluation == nil {
		t.Fatal("evaluation lineage missing")
	}
	if run.Metrics["accuracy"] != 0.9 {
		t.Errorf("Metrics[accuracy] = %v, want 0.9", run.Metrics["accuracy"])
	}
	if run.Metrics["stage"] != "final" {
		t.Errorf("Metrics[stage] = %v, want final", run.Metrics["stage"])
	}
}

func TestCollectRunNoLineage(t *testing.T) {
	reader := summarylog.NewReader(buildLog(t, scalarEvent(1), scalarEvent(2)), summarylog.ReaderOptions{})
	_, err := CollectRun("run", reader, nil)
	if !errors.Is(err, ErrNoLineageEvents) {
		t.Errorf("CollectRun = %v, want ErrNoLineageEvents", err)
	}
}

func TestCollectRunToleratesTruncation(t *testing.T) {
	stream := buildLog(t, trainEvent(1, 0.1, "SGD"), evalEvent(2, `{"accuracy": 0.8}`)).Bytes()

	// Cut inside the second frame: the train lineage survives.
	reader := summarylog.NewReader(bytes.NewReader(stream[:len(stream)-5]), summarylog.ReaderOptions{})
	run, err := CollectRun("run", reader, nil)
	if err != nil {
		t.Fatalf("CollectRun on truncated log: %v", err)
	}
	if run.Train == nil {
		t.Error("train lineage lost to truncation")
	}
	if run.Evaluation != nil {
		t.Error("truncated evaluation lineage should be absent")
	}
}

func TestCollectRunRejectsMalformedStream(t *testing.T) {
	stream := buildLog(t, trainEvent(1, 0.1, "SGD")).Bytes()
	corrupted := bytes.Clone(stream)
	corrupted[len(corrupted)-1] ^= 0xff // break the checksum

	reader := summarylog.NewReader(bytes.NewReader(corrupted), summarylog.ReaderOptions{})
	_, err := CollectRun("run", reader, nil)
	if !errors.Is(err, summarylog.ErrMalformedRecord) {
		t.Errorf("CollectRun = %v, want ErrMalformedRecord", err)
	}
}

func TestOpenSkipsBadLogs(t *testing.T) {
	dir := t.TempDir()

	goodPath := filepath.Join(dir, "good", "events.summary")
	if err := os.MkdirAll(filepath.Dir(goodPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(goodPath, buildLog(t, trainEvent(1, 0.1, "SGD")).Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	scalarPath := filepath.Join(dir, "scalars", "events.summary")
	if err := os.MkdirAll(filepath.Dir(scalarPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(scalarPath, buildLog(t, scalarEvent(1)).Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	missingPath := filepath.Join(dir, "missing", "events.summary")

	querier, err := Open([]string{goodPath, scalarPath, missingPath}, Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(querier.Runs()) != 1 {
		t.Errorf("Runs = %d, want 1", len(querier.Runs()))
	}
	if len(querier.DroppedLogs()) != 2 {
		t.Errorf("DroppedLogs = %v, want the scalar-only and missing paths", querier.DroppedLogs())
	}

	_, err = Open([]string{scalarPath, missingPath}, Config{})
	if !errors.Is(err, ErrNoRuns) {
		t.Errorf("Open with no usable logs = %v, want ErrNoRuns", err)
	}
}

// queryRuns builds a Querier over hand-assembled runs.
func queryRuns(t *testing.T) *Querier {
	t.Helper()
	graph := &record.DatasetGraph{
		Parameter: record.OperationParameter{"batch_size": record.ParamInt(32)},
	}
	runs := []*Run{
		{
			SummaryDir: "/runs/a",
			Train: &record.TrainLineage{
				HyperParameters: &record.HyperParameters{
					Optimizer:    strPtr("SGD"),
					LearningRate: f32Ptr(0.1),
					Epoch:        i32Ptr(10),
				},
			},
			Metrics: map[string]any{"accuracy": 0.72},
			Graph:   graph,
		},
		{
			SummaryDir: "/runs/b",
			Train: &record.TrainLineage{
				HyperParameters: &record.HyperParameters{
					Optimizer:    strPtr("Momentum"),
					LearningRate: f32Ptr(0.01),
					Epoch:        i32Ptr(20),
				},
			},
			Metrics: map[string]any{"accuracy": 0.91},
			Graph:   graph,
		},
		{
			SummaryDir: "/runs/c",
			Train: &record.TrainLineage{
				HyperParameters: &record.HyperParameters{
					Optimizer: strPtr("Adam"),
					Epoch:     i32Ptr(15),
				},
			},
			Metrics: map[string]any{"accuracy": 0.85},
		},
	}
	return NewQuerier(runs)
}

func TestFilterExpressions(t *testing.T) {
	querier := queryRuns(t)

	tests := []struct {
		name    string
		filters map[string]map[Expression]any
		want    []string
	}{
		{
			name:    "eq string",
			filters: map[string]map[Expression]any{"optimizer": {ExpEQ: "SGD"}},
			want:    []string{"/runs/a"},
		},
		{
			name:    "numeric range",
			filters: map[string]map[Expression]any{"epoch": {ExpGE: 10, ExpLT: 20}},
			want:    []string{"/runs/a", "/runs/c"},
		},
		{
			name:    "metric field",
			filters: map[string]map[Expression]any{"metric_accuracy": {ExpGT: 0.8}},
			want:    []string{"/runs/b", "/runs/c"},
		},
		{
			name:    "in list",
			filters: map[string]map[Expression]any{"optimizer": {ExpIn: []string{"Adam", "Momentum"}}},
			want:    []string{"/runs/b", "/runs/c"},
		},
		{
			// learning_rate is absent in run c; ordering expressions
			// never match an absent value.
			name:    "absent value fails ordering",
			filters: map[string]map[Expression]any{"learning_rate": {ExpLE: 1.0}},
			want:    []string{"/runs/a", "/runs/b"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result, err := querier.Filter(Condition{Filters: test.filters})
			if err != nil {
				t.Fatalf("Filter: %v", err)
			}
			var got []string
			for _, run := range result.Runs {
				got = append(got, run.SummaryDir)
			}
			if len(got) != len(test.want) {
				t.Fatalf("matched %v, want %v", got, test.want)
			}
			for i := range test.want {
				if got[i] != test.want[i] {
					t.Errorf("matched %v, want %v", got, test.want)
					break
				}
			}
			if result.Count != len(test.want) {
				t.Errorf("Count = %d, want %d", result.Count, len(test.want))
			}
		})
	}
}

func TestFilterValidation(t *testing.T) {
	querier := queryRuns(t)

	_, err := querier.Filter(Condition{Filters: map[string]map[Expression]any{
		"no_such_field": {ExpEQ: 1},
	}})
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("unknown field: Filter = %v, want ErrInvalidField", err)
	}

	_, err = querier.Filter(Condition{Filters: map[string]map[Expression]any{
		"epoch": {Expression("like"): 1},
	}})
	if !errors.Is(err, ErrInvalidExpression) {
		t.Errorf("unknown expression: Filter = %v, want ErrInvalidExpression", err)
	}

	_, err = querier.Filter(Condition{SortedName: "no_such_field"})
	if !errors.Is(err, ErrInvalidField) {
		t.Errorf("unknown sort field: Filter = %v, want ErrInvalidField", err)
	}
}

func TestFilterSort(t *testing.T) {
	querier := queryRuns(t)

	ascending, err := querier.Filter(Condition{SortedName: "learning_rate"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	// Absent learning_rate (run c) sorts first, then 0.01, then 0.1.
	wantAscending := []string{"/runs/c", "/runs/b", "/runs/a"}
	for i, want := range wantAscending {
		if ascending.Runs[i].SummaryDir != want {
			t.Fatalf("ascending[%d] = %s, want %s", i, ascending.Runs[i].SummaryDir, want)
		}
	}

	descending, err := querier.Filter(Condition{SortedName: "metric_accuracy", Descending: true})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	wantDescending := []string{"/runs/b", "/runs/c", "/runs/a"}
	for i, want := range wantDescending {
		if descending.Runs[i].SummaryDir != want {
			t.Fatalf("descending[%d] = %s, want %s", i, descending.Runs[i].SummaryDir, want)
		}
	}
}

func TestFilterPagination(t *testing.T) {
	runs := make([]*Run, 25)
	for i := range runs {
		epoch := int32(i)
		runs[i] = &Run{
			SummaryDir: filepath.Join("/runs", string(rune('a'+i))),
			Train: &record.TrainLineage{
				HyperParameters: &record.HyperParameters{Epoch: &epoch},
			},
		}
	}
	querier := NewQuerier(runs)

	all, err := querier.Filter(Condition{})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(all.Runs) != 25 || all.Count != 25 {
		t.Errorf("unpaginated: %d runs, count %d; want 25, 25", len(all.Runs), all.Count)
	}

	// Offset with no limit pages by the default 10.
	secondPage, err := querier.Filter(Condition{Offset: 2})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(secondPage.Runs) != 5 {
		t.Errorf("page 2 with default limit: %d runs, want 5", len(secondPage.Runs))
	}
	if secondPage.Count != 25 {
		t.Errorf("Count = %d, want the pre-pagination total 25", secondPage.Count)
	}

	page, err := querier.Filter(Condition{Offset: 1, Limit: 7})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(page.Runs) != 7 {
		t.Errorf("page 1 limit 7: %d runs, want 7", len(page.Runs))
	}
	if epoch, _ := page.Runs[0].Field("epoch"); epoch != float64(7) {
		t.Errorf("page 1 starts at epoch %v, want 7", epoch)
	}

	past, err := querier.Filter(Condition{Offset: 9, Limit: 10})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(past.Runs) != 0 {
		t.Errorf("page past the end: %d runs, want 0", len(past.Runs))
	}
}

func TestDatasetMarks(t *testing.T) {
	querier := queryRuns(t)
	runs := querier.Runs()

	if runs[0].DatasetMark != runs[1].DatasetMark {
		t.Errorf("identical graphs got marks %s and %s", runs[0].DatasetMark, runs[1].DatasetMark)
	}
	if runs[2].DatasetMark == runs[0].DatasetMark {
		t.Error("graph-less run shares a mark with a graphed run")
	}
	if runs[2].DatasetMark != "1" {
		t.Errorf("graph-less run mark = %s, want 1", runs[2].DatasetMark)
	}
}

func TestSummarySections(t *testing.T) {
	querier := queryRuns(t)

	summaries, err := querier.Summary("/runs/a", []string{"hyper_parameters", "metric"})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Summary returned %d entries, want 1", len(summaries))
	}
	info := summaries[0]
	if info["summary_dir"] != "/runs/a" {
		t.Errorf("summary_dir = %v", info["summary_dir"])
	}
	hyper, ok := info["hyper_parameters"].(map[string]any)
	if !ok {
		t.Fatalf("hyper_parameters section missing: %v", info)
	}
	if hyper["optimizer"] != "SGD" {
		t.Errorf("optimizer = %v, want SGD", hyper["optimizer"])
	}
	if _, present := info["model"]; present {
		t.Error("unrequested section present in summary")
	}

	if _, err := querier.Summary("", nil); err != nil {
		t.Errorf("Summary over all runs: %v", err)
	}

	_, err = querier.Summary("/runs/missing", nil)
	if !errors.Is(err, ErrUnknownSummaryDir) {
		t.Errorf("Summary of unknown dir = %v, want ErrUnknownSummaryDir", err)
	}

	_, err = querier.Summary("", []string{"bogus"})
	if !errors.Is(err, ErrInvalidFilterKey) {
		t.Errorf("Summary with bad filter key = %v, want ErrInvalidFilterKey", err)
	}
}

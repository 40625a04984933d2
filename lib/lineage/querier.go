// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package lineage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/TommyLike/mindinsight/lib/codec"
	"github.com/TommyLike/mindinsight/lib/summarylog"
)

// Config holds the parameters for building a Querier from summary
// logs.
type Config struct {
	// Logger receives skip diagnostics (unparseable logs, undecodable
	// records). If nil, a no-op logger is used.
	Logger *slog.Logger

	// Reader configures the underlying summary-log readers.
	Reader summarylog.ReaderOptions
}

// Querier answers lineage queries over the runs of one or more
// summary logs. It is immutable after construction and safe for
// concurrent use.
type Querier struct {
	runs    []*Run
	byDir   map[string]*Run
	dropped []string
}

// Open builds a Querier from summary log files. A log that cannot be
// opened or yields no lineage is logged and skipped — a training
// directory full of scalar-only logs is normal. Only when every log
// is skipped does Open fail with ErrNoRuns.
func Open(logPaths []string, cfg Config) (*Querier, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var runs []*Run
	var dropped []string
	for _, logPath := range logPaths {
		run, err := collectFromFile(logPath, cfg.Reader, logger)
		if err != nil {
			logger.Info("skipping summary log", "path", logPath, "error", err)
			dropped = append(dropped, logPath)
			continue
		}
		runs = append(runs, run)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("lineage: %d summary logs: %w", len(logPaths), ErrNoRuns)
	}

	querier := NewQuerier(runs)
	querier.dropped = dropped
	return querier, nil
}

func collectFromFile(logPath string, opts summarylog.ReaderOptions, logger *slog.Logger) (*Run, error) {
	file, err := os.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return CollectRun(filepath.Dir(logPath), summarylog.NewReader(file, opts), logger)
}

// NewQuerier builds a Querier over already-collected runs and assigns
// dataset marks. When two logs map to the same summary dir, the later
// run wins the dir lookup; both still appear in query results.
func NewQuerier(runs []*Run) *Querier {
	byDir := make(map[string]*Run, len(runs))
	for _, run := range runs {
		byDir[run.SummaryDir] = run
	}
	querier := &Querier{runs: runs, byDir: byDir}
	querier.assignDatasetMarks()
	return querier
}

// assignDatasetMarks gives every run a mark such that two runs share a
// mark exactly when their dataset graphs are identical. Graph identity
// is byte identity of the deterministic encoding. Runs without a graph
// share mark "1".
func (q *Querier) assignDatasetMarks() {
	marks := map[string]string{"": "1"}
	next := 2
	for _, run := range q.runs {
		key := ""
		if run.Graph != nil {
			encoded, err := codec.Marshal(run.Graph)
			if err != nil {
				// Graphs that round-tripped through decode always
				// re-encode; an unencodable one gets a unique mark.
				key = fmt.Sprintf("unencodable:%p", run)
			} else {
				key = string(encoded)
			}
		}
		mark, ok := marks[key]
		if !ok {
			mark = strconv.Itoa(next)
			next++
			marks[key] = mark
		}
		run.DatasetMark = mark
	}
}

// Runs returns every collected run in input order.
func (q *Querier) Runs() []*Run {
	return q.runs
}

// DroppedLogs returns the paths Open skipped.
func (q *Querier) DroppedLogs() []string {
	return q.dropped
}

// Summary filter keys: the sections a summary can be restricted to.
var summaryFilterKeys = map[string]bool{
	"metric":           true,
	"hyper_parameters": true,
	"algorithm":        true,
	"train_dataset":    true,
	"valid_dataset":    true,
	"model":            true,
	"dataset_graph":    true,
}

// Summary returns per-run lineage info restricted to the requested
// sections. An empty summaryDir selects every run; an empty filterKeys
// selects every section. Absent sections appear as empty maps so that
// consumers see a stable shape.
func (q *Querier) Summary(summaryDir string, filterKeys []string) ([]map[string]any, error) {
	if len(filterKeys) == 0 {
		filterKeys = make([]string, 0, len(summaryFilterKeys))
		for key := range summaryFilterKeys {
			filterKeys = append(filterKeys, key)
		}
		sort.Strings(filterKeys)
	} else {
		for _, key := range filterKeys {
			if !summaryFilterKeys[key] {
				return nil, fmt.Errorf("lineage: filter key %q: %w", key, ErrInvalidFilterKey)
			}
		}
	}

	selected := q.runs
	if summaryDir != "" {
		run, ok := q.byDir[summaryDir]
		if !ok {
			return nil, fmt.Errorf("lineage: %q: %w", summaryDir, ErrUnknownSummaryDir)
		}
		selected = []*Run{run}
	}

	summaries := make([]map[string]any, 0, len(selected))
	for _, run := range selected {
		summaries = append(summaries, run.summaryInfo(filterKeys))
	}
	return summaries, nil
}

func (r *Run) summaryInfo(filterKeys []string) map[string]any {
	info := map[string]any{"summary_dir": r.SummaryDir}
	for _, key := range filterKeys {
		switch key {
		case "metric":
			info[key] = r.Metrics
		case "hyper_parameters":
			info[key] = presentFields(r, "optimizer", "loss_function", "learning_rate",
				"epoch", "batch_size", "device_num")
		case "algorithm":
			info[key] = presentFields(r, "network", "loss")
		case "train_dataset":
			info[key] = sectionFields(r, map[string]string{
				"train_dataset_path":  "dataset_path",
				"train_dataset_count": "dataset_count",
			})
		case "valid_dataset":
			info[key] = sectionFields(r, map[string]string{
				"test_dataset_path":  "dataset_path",
				"test_dataset_count": "dataset_count",
			})
		case "model":
			info[key] = sectionFields(r, map[string]string{
				"model_path": "path",
				"model_size": "size",
			})
		case "dataset_graph":
			info[key] = r.Graph
		}
	}
	return info
}

func presentFields(r *Run, names ...string) map[string]any {
	section := make(map[string]any)
	for _, name := range names {
		if value, _ := r.Field(name); value != nil {
			section[name] = value
		}
	}
	return section
}

func sectionFields(r *Run, rename map[string]string) map[string]any {
	section := make(map[string]any)
	for field, key := range rename {
		if value, _ := r.Field(field); value != nil {
			section[key] = value
		}
	}
	return section
}

// Expression is a filter comparison operator.
type Expression string

const (
	ExpEQ Expression = "eq"
	ExpLT Expression = "lt"
	ExpGT Expression = "gt"
	ExpLE Expression = "le"
	ExpGE Expression = "ge"
	// ExpIn matches when the field value equals any element of the
	// expected list ([]any, []string, or []float64).
	ExpIn Expression = "in"
)

func (e Expression) valid() bool {
	switch e {
	case ExpEQ, ExpLT, ExpGT, ExpLE, ExpGE, ExpIn:
		return true
	}
	return false
}

// Condition filters, sorts, and paginates lineage runs.
type Condition struct {
	// Filters maps a flattened field name (or metric_<name>) to the
	// expressions its value must satisfy. A run matches when every
	// expression of every field holds.
	Filters map[string]map[Expression]any

	// SortedName orders the result by the named field. Runs where the
	// field is absent sort before every present value. Empty means
	// input order.
	SortedName string

	// Descending reverses the sort order.
	Descending bool

	// Offset is the zero-based page number and Limit the page size.
	// When both are zero the full result is returned; otherwise a
	// zero Limit defaults to 10 runs per page.
	Offset int
	Limit  int
}

// FilterResult is one page of filtered runs plus the pre-pagination
// total.
type FilterResult struct {
	Runs  []*Run
	Count int
}

// Filter applies a condition. The zero Condition returns every run.
func (q *Querier) Filter(condition Condition) (*FilterResult, error) {
	for field, expressions := range condition.Filters {
		if !validField(field) {
			return nil, fmt.Errorf("lineage: filter field %q: %w", field, ErrInvalidField)
		}
		for expression := range expressions {
			if !expression.valid() {
				return nil, fmt.Errorf("lineage: expression %q: %w", expression, ErrInvalidExpression)
			}
		}
	}
	if condition.SortedName != "" && !validField(condition.SortedName) {
		return nil, fmt.Errorf("lineage: sort field %q: %w", condition.SortedName, ErrInvalidField)
	}

	var matched []*Run
	for _, run := range q.runs {
		ok, err := matches(run, condition.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, run)
		}
	}

	if condition.SortedName != "" {
		sortRuns(matched, condition.SortedName, condition.Descending)
	}

	page := paginate(matched, condition.Offset, condition.Limit)
	return &FilterResult{Runs: page, Count: len(matched)}, nil
}

func matches(run *Run, filters map[string]map[Expression]any) (bool, error) {
	for field, expressions := range filters {
		value, _ := run.Field(field)
		for expression, expected := range expressions {
			ok, err := evaluate(expression, expected, value)
			if err != nil {
				return false, fmt.Errorf("lineage: field %q: %w", field, err)
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

// evaluate applies one expression. An absent value never satisfies an
// ordering expression; it satisfies eq/in only against an explicit
// nil expectation.
func evaluate(expression Expression, expected, actual any) (bool, error) {
	switch expression {
	case ExpEQ:
		return valuesEqual(expected, actual), nil

	case ExpIn:
		elements, err := expectedList(expected)
		if err != nil {
			return false, err
		}
		for _, element := range elements {
			if valuesEqual(element, actual) {
				return true, nil
			}
		}
		return false, nil

	case ExpLT, ExpGT, ExpLE, ExpGE:
		if actual == nil {
			return false, nil
		}
		ordering, ok := compareValues(actual, expected)
		if !ok {
			return false, nil
		}
		switch expression {
		case ExpLT:
			return ordering < 0, nil
		case ExpGT:
			return ordering > 0, nil
		case ExpLE:
			return ordering <= 0, nil
		default:
			return ordering >= 0, nil
		}

	default:
		return false, fmt.Errorf("expression %q: %w", expression, ErrInvalidExpression)
	}
}

func expectedList(expected any) ([]any, error) {
	switch list := expected.(type) {
	case []any:
		return list, nil
	case []string:
		elements := make([]any, len(list))
		for i, element := range list {
			elements[i] = element
		}
		return elements, nil
	case []float64:
		elements := make([]any, len(list))
		for i, element := range list {
			elements[i] = element
		}
		return elements, nil
	default:
		return nil, fmt.Errorf("in expects a list, got %T: %w", expected, ErrInvalidExpression)
	}
}

// valuesEqual compares a field value against an expectation. Numeric
// expectations of any Go kind compare numerically.
func valuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}
	if ordering, ok := compareValues(actual, expected); ok {
		return ordering == 0
	}
	return false
}

// compareValues orders two values of the normalized field kinds. The
// second result is false when the kinds are not mutually comparable.
func compareValues(a, b any) (int, bool) {
	if aNumber, ok := asFloat(a); ok {
		bNumber, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case aNumber < bNumber:
			return -1, true
		case aNumber > bNumber:
			return 1, true
		default:
			return 0, true
		}
	}
	aString, aOK := a.(string)
	bString, bOK := b.(string)
	if aOK && bOK {
		switch {
		case aString < bString:
			return -1, true
		case aString > bString:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// sortRuns orders runs by a field, absent values first (last when
// descending). The sort is stable so equal keys keep input order.
func sortRuns(runs []*Run, field string, descending bool) {
	sort.SliceStable(runs, func(i, j int) bool {
		left, _ := runs[i].Field(field)
		right, _ := runs[j].Field(field)

		var ordering int
		switch {
		case left == nil && right == nil:
			ordering = 0
		case left == nil:
			ordering = -1
		case right == nil:
			ordering = 1
		default:
			result, ok := compareValues(left, right)
			if !ok {
				result = 0
			}
			ordering = result
		}
		if descending {
			return ordering > 0
		}
		return ordering < 0
	})
}

// paginate slices one page out of the result. Offset is a page
// number, not a run index.
func paginate(runs []*Run, offset, limit int) []*Run {
	if offset == 0 && limit == 0 {
		return runs
	}
	if limit <= 0 {
		limit = 10
	}
	start := offset * limit
	if start >= len(runs) {
		return nil
	}
	end := start + limit
	if end > len(runs) {
		end = len(runs)
	}
	return runs[start:end]
}

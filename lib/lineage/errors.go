// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package lineage

import "errors"

var (
	// ErrNoLineageEvents reports that a summary log contained no
	// train-lineage, evaluation-lineage, or dataset-graph records.
	ErrNoLineageEvents = errors.New("no lineage events in summary log")

	// ErrNoRuns reports that every supplied summary log failed to
	// yield lineage. A Querier needs at least one run.
	ErrNoRuns = errors.New("no summary log yielded lineage")

	// ErrInvalidField reports a filter or sort field outside the
	// flattened lineage fields and the metric_ namespace.
	ErrInvalidField = errors.New("invalid lineage field")

	// ErrInvalidExpression reports an unrecognized filter expression;
	// the supported set is eq, lt, gt, le, ge, in.
	ErrInvalidExpression = errors.New("invalid filter expression")

	// ErrInvalidFilterKey reports a summary filter key outside the
	// known sections.
	ErrInvalidFilterKey = errors.New("invalid summary filter key")

	// ErrUnknownSummaryDir reports a summary-dir lookup for a
	// directory the Querier has no run for.
	ErrUnknownSummaryDir = errors.New("unknown summary dir")
)

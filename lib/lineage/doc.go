// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

// Package lineage collects training-lineage records out of summary
// logs and answers queries over them.
//
// A summary log may interleave many record kinds; this package cares
// about three — train lineage, evaluation lineage, and the dataset
// graph — and merges the latest of each into a Run. A Querier holds
// the runs from one or more logs and supports section-filtered
// summaries, field-expression filtering (eq/lt/gt/le/ge/in), sorting,
// and pagination.
//
// Collection is tolerant by design: records that fail schema decoding
// and unrecognized payload kinds are skipped, and a log truncated by a
// dying producer still yields the lineage collected before the cut.
// Only a malformed stream (corrupt frames) fails a log outright.
package lineage

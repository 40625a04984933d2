// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

// Package record defines the training-record envelope: the
// self-contained unit a training process appends to a summary log and
// an offline analysis tool reads back.
//
// An Event couples a producer wall-clock timestamp and an optional
// step counter with exactly one payload: a stream version marker, a
// computation-graph snapshot, a summary (scalar/image/tensor metric
// bundle), train or evaluation lineage metadata, or a data-loading
// pipeline graph. The payload is a closed tagged union — an Event with
// zero or several payloads is not constructible, and a decoder
// consuming untrusted bytes rejects such states explicitly.
//
// Wire form is a CBOR map with integer keys (see lib/codec). The keys
// are wire-stable field positions:
//
//	1 wall_time    2 step
//	3 version      4 graph               5 summary
//	6 train_lineage    7 evaluation_lineage    9 dataset_graph
//
// Key 8 is reserved and never emitted. A decoder that meets a payload
// key it does not recognize (8 or anything newer) returns the record
// with an UnknownPayload rather than an error, so older readers skip
// newer record kinds and re-encode them byte-identically.
//
// Encode and Decode are pure and synchronous: no I/O, no shared
// mutable state. Each Event is an independently immutable value, so
// any number of producer goroutines may encode their own events
// concurrently without locking. Framing, durability, and transport
// belong to lib/summarylog and beyond.
package record

// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Product is the producer name embedded in version markers written by
// this module.
const Product = "MindInsight"

// StreamVersion is the record-stream format version this build writes
// and understands.
const StreamVersion = 1

// Version is the stream version marker payload: the literal form is
// "<Product>.Event:<integer>". By convention it is the first record of
// every summary log; consumers parse the trailing integer as the
// stream-format version and reject streams that do not lead with a
// recognized marker.
type Version string

// CurrentVersion returns the version marker this build writes, e.g.
// "MindInsight.Event:1".
func CurrentVersion() Version {
	return Version(fmt.Sprintf("%s.Event:%d", Product, StreamVersion))
}

// Number parses the trailing stream-format version integer. The
// producer name before ".Event:" is not constrained — streams written
// by other producers in the same format remain readable.
func (v Version) Number() (int, error) {
	_, suffix, found := strings.Cut(string(v), ".Event:")
	if !found {
		return 0, fmt.Errorf("version marker %q: missing \".Event:\" separator", string(v))
	}
	number, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("version marker %q: trailing version is not an integer", string(v))
	}
	return number, nil
}

// ProducerName returns the producer portion of the marker (the text
// before ".Event:"), or an empty string if the marker is malformed.
func (v Version) ProducerName() string {
	prefix, _, found := strings.Cut(string(v), ".Event:")
	if !found {
		return ""
	}
	return prefix
}

// PayloadKey returns the version marker's envelope wire key.
func (v Version) PayloadKey() int64 { return keyVersion }

func (v Version) isPayload() {}

// Graph is an opaque computation-graph snapshot owned by the external
// graph-model library. This layer stores and forwards the encoded
// bytes without interpreting them.
type Graph []byte

// PayloadKey returns the graph snapshot's envelope wire key.
func (g Graph) PayloadKey() int64 { return keyGraph }

func (g Graph) isPayload() {}

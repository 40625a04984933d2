// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package summarylog

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/TommyLike/mindinsight/lib/schema/record"
)

// ReaderOptions configures a Reader. The zero value uses the default
// payload bound and decode bounds and performs no version check.
type ReaderOptions struct {
	// MaxPayloadBytes bounds the stored and uncompressed payload
	// lengths a frame header may claim. Zero selects
	// DefaultMaxPayloadBytes.
	MaxPayloadBytes int

	// Decode bounds the record decoder (dataset-graph depth and node
	// count). The zero value selects the record package defaults.
	Decode record.DecodeOptions

	// ExpectVersion requires the first record of the stream to be a
	// version marker no newer than this build understands. Streams
	// that start with any other record fail with ErrBadVersionMarker.
	ExpectVersion bool
}

// Reader recovers framed records from a stream.
//
// Next returns records in order. Three terminal conditions stop the
// stream: io.EOF (clean end exactly at a frame boundary),
// ErrTruncatedRecord (the stream ends inside a frame), and
// ErrMalformedRecord (a frame is internally inconsistent). All three
// are sticky — every later Next returns the same error. A record whose
// frame is intact but whose content fails schema decoding is NOT
// terminal: Next returns the decode error and the following call moves
// on to the next frame.
type Reader struct {
	in    io.Reader
	opts  ReaderOptions
	fatal error
	// versionChecked flips after the first intact frame when
	// ExpectVersion is set.
	versionChecked bool
}

// NewReader returns a Reader over the given stream. The Reader issues
// exact-size reads; wrap a raw file in a bufio.Reader when syscall
// overhead matters.
func NewReader(in io.Reader, opts ReaderOptions) *Reader {
	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	return &Reader{in: in, opts: opts}
}

// Next returns the next record in the stream.
func (r *Reader) Next() (*record.Event, error) {
	encoded, err := r.nextPayload()
	if err != nil {
		return nil, err
	}

	event, err := record.DecodeWithOptions(encoded, r.opts.Decode)
	if err != nil {
		// Frame intact, content bad: the stream continues.
		return nil, err
	}

	if r.opts.ExpectVersion && !r.versionChecked {
		r.versionChecked = true
		if err := checkVersionMarker(event); err != nil {
			return nil, r.fail(err)
		}
	}
	return event, nil
}

// nextPayload reads one frame and returns the record's encoded bytes.
func (r *Reader) nextPayload() ([]byte, error) {
	if r.fatal != nil {
		return nil, r.fatal
	}

	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r.in, header); err != nil {
		if err == io.EOF {
			// Clean end exactly at a frame boundary.
			return nil, r.fail(io.EOF)
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, r.fail(fmt.Errorf("summarylog: stream ends inside a frame header: %w", ErrTruncatedRecord))
		}
		return nil, r.fail(fmt.Errorf("summarylog: reading frame header: %w", err))
	}

	storedLen, tag, uncompressedLen := decodeFrameHeader(header)
	if !tag.valid() {
		return nil, r.fail(fmt.Errorf("summarylog: compression tag %d: %w", tag, ErrMalformedRecord))
	}
	if storedLen > r.opts.MaxPayloadBytes || uncompressedLen > r.opts.MaxPayloadBytes {
		return nil, r.fail(fmt.Errorf("summarylog: frame claims %d/%d bytes, limit %d: %w",
			storedLen, uncompressedLen, r.opts.MaxPayloadBytes, ErrMalformedRecord))
	}

	body := make([]byte, storedLen+frameChecksumSize)
	if _, err := io.ReadFull(r.in, body); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, r.fail(fmt.Errorf("summarylog: stream ends inside a frame body: %w", ErrTruncatedRecord))
		}
		return nil, r.fail(fmt.Errorf("summarylog: reading frame body: %w", err))
	}

	stored := body[:storedLen]
	want := frameChecksum(stored)
	if !bytes.Equal(body[storedLen:], want[:]) {
		return nil, r.fail(fmt.Errorf("summarylog: frame checksum mismatch: %w", ErrMalformedRecord))
	}

	encoded, err := decompress(stored, tag, uncompressedLen)
	if err != nil {
		return nil, r.fail(fmt.Errorf("summarylog: %v: %w", err, ErrMalformedRecord))
	}
	return encoded, nil
}

// ReadAll drains the stream. Records whose frames are intact but whose
// content fails schema decoding are skipped. The returned error is nil
// on a clean end of stream; otherwise it is the terminal stream error
// (truncation or malformation), with every record recovered before the
// failure point still returned.
func (r *Reader) ReadAll() ([]*record.Event, error) {
	var events []*record.Event
	for {
		event, err := r.Next()
		if err == nil {
			events = append(events, event)
			continue
		}
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if r.fatal != nil {
			return events, err
		}
		// Record-local decode failure: keep reading.
	}
}

func (r *Reader) fail(err error) error {
	r.fatal = err
	return err
}

// checkVersionMarker enforces the ExpectVersion contract on the
// stream's first record.
func checkVersionMarker(event *record.Event) error {
	version, ok := event.Payload.(record.Version)
	if !ok {
		return fmt.Errorf("summarylog: first record is %T, not a version marker: %w",
			event.Payload, ErrBadVersionMarker)
	}
	number, err := version.Number()
	if err != nil {
		return fmt.Errorf("summarylog: version marker %q: %v: %w", version, err, ErrBadVersionMarker)
	}
	if number > record.StreamVersion {
		return fmt.Errorf("summarylog: stream version %d is newer than supported %d: %w",
			number, record.StreamVersion, ErrBadVersionMarker)
	}
	return nil
}

// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package summarylog

import (
	"errors"
	"fmt"
	"io"

	"github.com/TommyLike/mindinsight/lib/schema/record"
)

// WriterOptions configures a Writer. The zero value writes
// uncompressed frames.
type WriterOptions struct {
	// Compression selects the algorithm attempted for each record.
	// When the compressed form is not smaller than the original, the
	// frame is written uncompressed regardless of this setting.
	Compression CompressionTag
}

// Writer appends framed records to an underlying stream. It is
// single-owner: exactly one goroutine appends to a given Writer. The
// Writer never seeks, so the underlying stream may be an os.File
// opened with O_APPEND, a network pipe, or a bytes.Buffer.
//
// The Writer does not buffer: every Append hands a complete frame to
// the underlying writer, so a crash between Appends loses at most the
// record being written (which a Reader reports as truncation, not
// corruption).
type Writer struct {
	out  io.Writer
	opts WriterOptions
}

// NewWriter returns a Writer appending frames to out.
func NewWriter(out io.Writer, opts WriterOptions) (*Writer, error) {
	if !opts.Compression.valid() {
		return nil, fmt.Errorf("summarylog: unsupported compression tag %d", opts.Compression)
	}
	return &Writer{out: out, opts: opts}, nil
}

// Append encodes the event and writes it as one frame.
func (w *Writer) Append(event *record.Event) error {
	encoded, err := record.Encode(event)
	if err != nil {
		return err
	}
	return w.AppendBytes(encoded)
}

// AppendBytes writes an already-encoded record as one frame. The
// caller owns the encoding; AppendBytes does not validate it, so a
// reader of the stream may later surface a record-level decode error
// for this frame.
func (w *Writer) AppendBytes(encoded []byte) error {
	stored := encoded
	tag := w.opts.Compression

	if tag != CompressionNone {
		compressed, err := compress(encoded, tag)
		switch {
		case err == nil:
			stored = compressed
		case errors.Is(err, errIncompressible):
			tag = CompressionNone
		default:
			return fmt.Errorf("summarylog: compressing record: %w", err)
		}
	}

	// Assemble the whole frame before writing so the underlying
	// writer sees one Write call per record.
	frame := make([]byte, frameHeaderSize+len(stored)+frameChecksumSize)
	encodeFrameHeader(frame, len(stored), tag, len(encoded))
	copy(frame[frameHeaderSize:], stored)
	checksum := frameChecksum(stored)
	copy(frame[frameHeaderSize+len(stored):], checksum[:])

	if _, err := w.out.Write(frame); err != nil {
		return fmt.Errorf("summarylog: writing frame: %w", err)
	}
	return nil
}

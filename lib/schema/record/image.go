// Copyright 2026 The MindInsight Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"

	"github.com/TommyLike/mindinsight/lib/codec"
)

// Wire keys of an Image. All four fields are required.
const (
	imageKeyHeight     = 1
	imageKeyWidth      = 2
	imageKeyColorspace = 3
	imageKeyEncoded    = 4
)

// Colorspace is the closed enumeration of image channel layouts. The
// integer values are wire-stable. Only RGB is guaranteed supported by
// current consumers; the others are reserved for producers that emit
// them and consumers that grow support.
type Colorspace int32

const (
	ColorspaceGrayscale      Colorspace = 1
	ColorspaceGrayscaleAlpha Colorspace = 2
	ColorspaceRGB            Colorspace = 3
	ColorspaceRGBA           Colorspace = 4
	ColorspaceYUV            Colorspace = 5
	ColorspaceBGRA           Colorspace = 6
)

// Valid reports whether the colorspace is inside the closed
// enumeration.
func (c Colorspace) Valid() bool {
	return c >= ColorspaceGrayscale && c <= ColorspaceBGRA
}

// String returns the human-readable name of the colorspace.
func (c Colorspace) String() string {
	switch c {
	case ColorspaceGrayscale:
		return "grayscale"
	case ColorspaceGrayscaleAlpha:
		return "grayscale+alpha"
	case ColorspaceRGB:
		return "rgb"
	case ColorspaceRGBA:
		return "rgba"
	case ColorspaceYUV:
		return "yuv"
	case ColorspaceBGRA:
		return "bgra"
	default:
		return fmt.Sprintf("unknown(%d)", int32(c))
	}
}

// Image is an encoded image sample attached to a summary value. The
// pixel payload is opaque to this layer: EncodedImage's codec is a
// producer/consumer convention, not part of the record format.
type Image struct {
	// Height and Width are the image dimensions in pixels.
	Height int32 `cbor:"1,keyasint"`
	Width  int32 `cbor:"2,keyasint"`

	// Colorspace tags the channel layout. Downstream image decoding
	// dispatches on this, so decode validates it against the closed
	// enumeration.
	Colorspace Colorspace `cbor:"3,keyasint"`

	// EncodedImage is the opaque encoded pixel payload.
	EncodedImage []byte `cbor:"4,keyasint"`
}

// ValueKey returns the image variant's wire key within a summary
// Value.
func (i *Image) ValueKey() int64 { return valueKeyImage }

func (i *Image) isValueContent() {}

// Validate checks the image's construction-time invariants.
func (i *Image) Validate() error {
	if !i.Colorspace.Valid() {
		return fmt.Errorf("colorspace %d: %w", int32(i.Colorspace), ErrInvalidColorspace)
	}
	return nil
}

// decodeImage decodes an image, enforcing field presence (all four
// fields are required) and the colorspace enumeration.
func decodeImage(raw codec.RawMessage) (*Image, error) {
	var fields map[int64]codec.RawMessage
	if err := codec.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	for _, required := range []struct {
		key  int64
		name string
	}{
		{imageKeyHeight, "image height"},
		{imageKeyWidth, "image width"},
		{imageKeyColorspace, "image colorspace"},
		{imageKeyEncoded, "encoded image"},
	} {
		if _, ok := fields[required.key]; !ok {
			return nil, fmt.Errorf("%s: %w", required.name, ErrMissingRequiredField)
		}
	}

	image := &Image{}
	if err := codec.Unmarshal(raw, image); err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if err := image.Validate(); err != nil {
		return nil, err
	}
	return image, nil
}

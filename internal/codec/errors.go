// SPDX-License-Identifier: MIT
package codec

import "errors"

var (
	ErrUnsupportedFormat   = errors.New("unsupported audio format")
	ErrNotWAV              = errors.New("not a WAV file")
	ErrNotAIFF             = errors.New("not an AIFF file")
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	ErrInvalidFormat       = errors.New("invalid audio format")
)

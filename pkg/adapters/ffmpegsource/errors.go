package ffmpegsource

import "errors"

var (
	// ErrProbeFailed is returned when neither the container reader nor
	// ffprobe could describe the input.
	ErrProbeFailed = errors.New("ffmpegsource: probe failed")

	// ErrDecodeFailed is returned when the ffmpeg decode process fails.
	ErrDecodeFailed = errors.New("ffmpegsource: decode failed")
)

package ffmpegsink

import "errors"

var (
	// ErrNotStarted is returned when frames are appended before Begin.
	ErrNotStarted = errors.New("ffmpegsink: write session not started")

	// ErrFinished is returned when frames are appended after MarkFinished.
	ErrFinished = errors.New("ffmpegsink: input marked finished")

	// ErrFrameGeometry is returned for a frame whose size or format differs
	// from the first frame.
	ErrFrameGeometry = errors.New("ffmpegsink: frame geometry changed")

	// ErrOutOfOrder is returned for a presentation time at or before an
	// earlier frame's.
	ErrOutOfOrder = errors.New("ffmpegsink: presentation time out of order")

	// ErrInvalidSetting is returned by Begin for malformed encoder settings.
	ErrInvalidSetting = errors.New("ffmpegsink: invalid encoder setting")

	// ErrUnsupportedContainer is returned by Begin for unknown container tags.
	ErrUnsupportedContainer = errors.New("ffmpegsink: unsupported container")

	// ErrEncodingFailed is returned when the ffmpeg process fails.
	ErrEncodingFailed = errors.New("ffmpegsink: encoding failed")

	// ErrVerifyFailed is returned when the finalized file has no readable
	// video track.
	ErrVerifyFailed = errors.New("ffmpegsink: output verification failed")
)

package videosource

import (
	"errors"
	"fmt"
)

// ErrDecodeInit matches every *DecodeInitError.
var ErrDecodeInit = errors.New("videosource: decode initialization failed")

// DecodeInitError reports that a video could not be opened for decoding:
// there is no video track, its metadata is unusable or the decoder did not
// start.
type DecodeInitError struct {
	Reason string
	Err    error
}

func (e *DecodeInitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("videosource: %s: %v", e.Reason, e.Err)
	}
	return "videosource: " + e.Reason
}

func (e *DecodeInitError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecodeInit) succeed.
func (e *DecodeInitError) Is(target error) bool { return target == ErrDecodeInit }

// DecodeError reports a decoder failure after the session started.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("videosource: decode frame %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

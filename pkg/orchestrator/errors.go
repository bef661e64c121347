package orchestrator

import "fmt"

// TrackerInvocationError reports that the tracker produced no observation
// for a frame. It is fatal for the run and never retried.
type TrackerInvocationError struct {
	Index int
	Err   error
}

func (e *TrackerInvocationError) Error() string {
	return fmt.Sprintf("tracker failed on frame %d: %v", e.Index, e.Err)
}

func (e *TrackerInvocationError) Unwrap() error { return e.Err }

// BufferAllocationError reports that a working buffer for a frame could not
// be allocated. The run is aborted rather than skipping the frame, since a
// gap would shift every later output timestamp.
type BufferAllocationError struct {
	Index int
	Err   error
}

func (e *BufferAllocationError) Error() string {
	return fmt.Sprintf("buffer allocation failed on frame %d: %v", e.Index, e.Err)
}

func (e *BufferAllocationError) Unwrap() error { return e.Err }

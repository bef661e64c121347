package ports

import (
	"context"

	"github.com/user/objtrack/pkg/pipeline"
)

// TrackRequest is one tracker invocation.
type TrackRequest struct {
	// Frame is the decoded frame, read-only.
	Frame *pipeline.Frame

	// Prior is the box from the previous frame, or the initial box.
	Prior pipeline.BoundingBox

	// Orientation tells the tracker how the frame is rotated relative to
	// the upright image that Prior refers to.
	Orientation pipeline.Orientation
}

// Tracker estimates the new position of a single object.
type Tracker interface {
	// Track returns the new observation. An error means the tracker could
	// not produce an observation for this frame.
	Track(ctx context.Context, req TrackRequest) (pipeline.TrackObservation, error)
}

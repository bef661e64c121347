package mocks

import (
	"context"
	"fmt"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/ports"
)

// Tracker is a mock implementation of ports.Tracker.
type Tracker struct {
	TrackFunc func(ctx context.Context, req ports.TrackRequest) (pipeline.TrackObservation, error)

	// Recorded calls for verification
	Calls []ports.TrackRequest
}

// NewScriptedTracker returns a tracker that reports the prior box with the
// i-th confidence on its i-th call, and fails once the script runs out. failAt, when positive, makes the call for that 1-based frame
// number fail.
func NewScriptedTracker(confidences []float64, failAt int) *Tracker {
	t := &Tracker{}
	t.TrackFunc = func(ctx context.Context, req ports.TrackRequest) (pipeline.TrackObservation, error) {
		n := len(t.Calls)
		if failAt > 0 && n == failAt {
			return pipeline.TrackObservation{}, fmt.Errorf("tracker: no observation for frame %d", n)
		}
		if n > len(confidences) {
			return pipeline.TrackObservation{}, fmt.Errorf("tracker: script exhausted at call %d", n)
		}
		return pipeline.TrackObservation{Box: req.Prior, Confidence: confidences[n-1]}, nil
	}
	return t
}

func (m *Tracker) Track(ctx context.Context, req ports.TrackRequest) (pipeline.TrackObservation, error) {
	m.Calls = append(m.Calls, req)
	if m.TrackFunc != nil {
		return m.TrackFunc(ctx, req)
	}
	return pipeline.TrackObservation{Box: req.Prior, Confidence: 1}, nil
}

var _ ports.Tracker = (*Tracker)(nil)

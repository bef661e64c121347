package orchestrator

import (
	"image"
	"time"

	"github.com/user/objtrack/pkg/pipeline"
)

// FrameEvent describes one tracked frame.
type FrameEvent struct {
	Index       int
	Estimated   int
	Observation pipeline.TrackObservation
	Rect        image.Rectangle

	// Accepted is false when the confidence was below the threshold and the
	// frame was not written.
	Accepted bool

	// Written is false when the encoder rejected the frame.
	Written bool

	TrackLatency time.Duration
}

// Observer receives pipeline progress. Callbacks run on the pipeline's
// goroutine and must not block.
type Observer interface {
	StateChanged(from, to State)
	FrameProcessed(ev FrameEvent)
}

// ObserverFuncs adapts optional functions to the Observer interface.
type ObserverFuncs struct {
	OnStateChanged   func(from, to State)
	OnFrameProcessed func(ev FrameEvent)
}

func (f ObserverFuncs) StateChanged(from, to State) {
	if f.OnStateChanged != nil {
		f.OnStateChanged(from, to)
	}
}

func (f ObserverFuncs) FrameProcessed(ev FrameEvent) {
	if f.OnFrameProcessed != nil {
		f.OnFrameProcessed(ev)
	}
}

// Package summarizer builds and formats summaries of tracking runs.
package summarizer

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/user/objtrack/pkg/orchestrator"
	"github.com/user/objtrack/pkg/pipeline"
)

// Summary contains everything reported about one run.
type Summary struct {
	// Metadata
	RunID       string
	GeneratedAt time.Time

	Input    InputInfo
	Output   OutputInfo
	Tracking TrackingInfo
}

// InputInfo describes the source video.
type InputInfo struct {
	Path            string
	Codec           string
	Width           int
	Height          int
	FrameRate       pipeline.Rational
	Orientation     pipeline.Orientation
	EstimatedFrames int
}

// OutputInfo describes the written video.
type OutputInfo struct {
	Path      string
	Container string
	FileSize  int64
	Settings  map[string]string
}

// TrackingInfo contains the run result.
type TrackingInfo struct {
	Terminal       string
	Level          string
	Threshold      float64
	InitialBox     pipeline.BoundingBox
	FinalBox       pipeline.BoundingBox
	FramesRead     int
	FramesWritten  int
	FramesRejected int
	LastConfidence float64
	MinConfidence  float64
	MeanConfidence float64
	Duration       time.Duration

	// Error is the reason decoding or tracking stopped early, if any.
	Error string
}

// NewSummary creates a new Summary with a fresh run id and the current
// timestamp.
func NewSummary() *Summary {
	return &Summary{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithRunID replaces the generated run id.
func (b *Builder) WithRunID(id string) *Builder {
	b.summary.RunID = id
	return b
}

// WithInput sets source information.
func (b *Builder) WithInput(input InputInfo) *Builder {
	b.summary.Input = input
	return b
}

// WithOutput sets output information.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = output
	return b
}

// WithTracking sets the tracking configuration and copies the run result.
func (b *Builder) WithTracking(cfg orchestrator.Config, level string, result orchestrator.RunResult) *Builder {
	info := TrackingInfo{
		Terminal:       result.Terminal.String(),
		Level:          level,
		Threshold:      cfg.ConfidenceThreshold,
		InitialBox:     cfg.InitialBox,
		FinalBox:       result.FinalBox,
		FramesRead:     result.FramesRead,
		FramesWritten:  result.FramesWritten,
		FramesRejected: result.FramesRejected,
		LastConfidence: result.LastConfidence,
		MinConfidence:  result.MinConfidence,
		MeanConfidence: result.MeanConfidence,
		Duration:       result.Duration,
	}
	if err := errors.Join(result.SourceErr, result.TrackErr); err != nil {
		info.Error = err.Error()
	}
	b.summary.Tracking = info
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}

// Package annotate implements the stage that draws the tracking overlay on a
// private copy of a decoded frame.
package annotate

import (
	"context"
	"fmt"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// Stage copies a frame, strokes the overlay rectangle and converts the result
// into the sink's pixel format. The decoded buffer is never written to.
type Stage struct {
	renderer ports.Renderer
	alloc    pixbuf.Allocator
	sink     ports.DebugSink
	logger   ports.Logger
}

// NewStage creates a new annotate stage. A nil allocator uses
// pixbuf.DefaultAllocator.
func NewStage(renderer ports.Renderer, alloc pixbuf.Allocator, sink ports.DebugSink, logger ports.Logger) *Stage {
	if alloc == nil {
		alloc = pixbuf.DefaultAllocator
	}
	return &Stage{
		renderer: renderer,
		alloc:    alloc,
		sink:     sink,
		logger:   logger.WithComponent("annotate"),
	}
}

// Execute annotates one frame. Allocation failures are returned wrapping
// pixbuf.ErrAllocation.
func (s *Stage) Execute(ctx context.Context, input pipeline.AnnotateInput) (pipeline.AnnotateResult, error) {
	if input.Frame == nil || input.Frame.Buffer == nil {
		return pipeline.AnnotateResult{}, fmt.Errorf("annotate: missing frame")
	}

	working, err := pixbuf.Copy(input.Frame.Buffer, s.alloc)
	if err != nil {
		return pipeline.AnnotateResult{}, fmt.Errorf("copy frame %d: %w", input.Frame.Index, err)
	}

	img, err := pixbuf.ToRenderable(working.View())
	if err != nil {
		return pipeline.AnnotateResult{}, fmt.Errorf("render frame %d: %w", input.Frame.Index, err)
	}

	r := input.Rect
	s.renderer.CanvasFor(img).DrawRectStroke(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), input.Overlay.Color, input.Overlay.StrokeWidth)

	out, err := pixbuf.FromRenderable(img, input.OutputFormat, s.alloc)
	if err != nil {
		return pipeline.AnnotateResult{}, fmt.Errorf("convert frame %d to %v: %w", input.Frame.Index, input.OutputFormat, err)
	}

	if s.sink.Enabled() {
		if err := s.sink.SaveAnnotatedFrame(input.Frame.Index, img); err != nil {
			s.logger.Warn("Failed to save debug frame %d: %v", input.Frame.Index, err)
		}
	}

	return pipeline.AnnotateResult{Buffer: out.View(), Image: img}, nil
}

// Ensure Stage implements pipeline.Stage
var _ pipeline.Stage[pipeline.AnnotateInput, pipeline.AnnotateResult] = (*Stage)(nil)

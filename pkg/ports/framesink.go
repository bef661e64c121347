package ports

import (
	"context"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
)

// SinkOptions configures an output container.
type SinkOptions struct {
	// Path is the output file path.
	Path string

	// Container is the container format tag, e.g. "mp4" or "mov".
	Container string

	// FrameRate is the rate frames are appended at.
	FrameRate pipeline.Rational

	// Settings are encoder settings passed through unvalidated. Recognized
	// keys depend on the implementation.
	Settings map[string]string
}

// FrameSink encodes frames into an output container.
type FrameSink interface {
	// Begin starts a write session.
	Begin(ctx context.Context, opts SinkOptions) error

	// Append encodes buf at the given presentation time. A non-nil error
	// means the encoder rejected the frame.
	Append(buf *pixbuf.Buffer, pts pipeline.Timestamp) error

	// MarkFinished signals that no more frames will be appended.
	MarkFinished()

	// Finish waits until the container has been finalized.
	Finish(ctx context.Context) error
}

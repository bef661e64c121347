package ports

import (
	"context"
	"errors"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
)

// TrackInfo is the metadata of the video track chosen for decoding.
type TrackInfo struct {
	// NaturalWidth and NaturalHeight are the encoded frame dimensions.
	NaturalWidth  int
	NaturalHeight int

	// FrameRate is the nominal frame rate.
	FrameRate pipeline.Rational

	// Duration is the track duration in seconds.
	Duration pipeline.Rational

	// Transform is the preferred display transform from the track header.
	Transform pipeline.Transform

	// PixelFormat is the format of decoded buffers.
	PixelFormat pixbuf.Format

	// Codec is the sample entry type, e.g. "avc1" or "hvc1".
	Codec string
}

// FrameSource demuxes and decodes a video container.
type FrameSource interface {
	// Probe reads the container metadata. It returns an error when the
	// container has no video track.
	Probe(ctx context.Context) (TrackInfo, error)

	// Start opens a new decode session positioned at the first frame.
	Start(ctx context.Context) (DecodeSession, error)
}

// DecodeSession yields decoded frames in presentation order.
type DecodeSession interface {
	// ReadFrame returns the next decoded frame, or io.EOF when the stream is
	// exhausted. The returned buffer may be reused by the decoder after the
	// next call and must not be modified.
	ReadFrame() (*pixbuf.Buffer, error)

	// Close releases the decoder.
	Close() error
}

// ErrNoVideoTrack is returned by FrameSource.Probe when the container holds no
// video track.
var ErrNoVideoTrack = errors.New("no video track")

// Package videosource exposes a decoded video track as a lazy sequence of
// frames together with the metadata the tracking pipeline needs.
package videosource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// Options configures a Source.
type Options struct {
	// Detach copies every decoded buffer so the returned frame stays valid
	// after the decoder reuses its memory.
	Detach bool

	// Allocator is used when Detach is set. Nil means pixbuf.DefaultAllocator.
	Allocator pixbuf.Allocator
}

// Source wraps a FrameSource. It is not safe for concurrent use.
type Source struct {
	src    ports.FrameSource
	opts   Options
	logger ports.Logger

	info       ports.TrackInfo
	descriptor pipeline.FrameDescriptor
	nativeW    int
	nativeH    int
	estimated  int
	angle      float64
	recognized bool

	session ports.DecodeSession
	index   int
	done    bool
}

// Open probes src and starts a decode session. Every failure is reported as
// a *DecodeInitError.
func Open(ctx context.Context, src ports.FrameSource, logger ports.Logger, opts Options) (*Source, error) {
	s := &Source{src: src, opts: opts, logger: logger.WithComponent("source")}

	info, err := src.Probe(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrNoVideoTrack) {
			return nil, &DecodeInitError{Reason: "no video track", Err: err}
		}
		return nil, &DecodeInitError{Reason: "probe", Err: err}
	}
	if info.NaturalWidth <= 0 || info.NaturalHeight <= 0 {
		return nil, &DecodeInitError{Reason: fmt.Sprintf("invalid frame size %dx%d", info.NaturalWidth, info.NaturalHeight)}
	}
	if !info.FrameRate.Positive() {
		return nil, &DecodeInitError{Reason: fmt.Sprintf("invalid frame rate %v", info.FrameRate)}
	}
	s.info = info

	orientation, angle, ok := pipeline.OrientationOf(info.Transform)
	s.angle, s.recognized = angle, ok
	if !ok {
		s.logger.Warn("Unsupported rotation %.1f degrees, assuming identity", angle)
	}
	s.nativeW, s.nativeH = pipeline.UprightSize(info.Transform, info.NaturalWidth, info.NaturalHeight)
	s.estimated = pipeline.EstimateFrameCount(info.Duration, info.FrameRate)
	s.descriptor = pipeline.FrameDescriptor{
		Width:       info.NaturalWidth,
		Height:      info.NaturalHeight,
		PixelFormat: info.PixelFormat,
		Orientation: orientation,
	}

	session, err := src.Start(ctx)
	if err != nil {
		return nil, &DecodeInitError{Reason: "start decode session", Err: err}
	}
	s.session = session

	s.logger.Debug("Opened %dx%d track at %.3f fps (%s), about %d frames",
		info.NaturalWidth, info.NaturalHeight, info.FrameRate.Float64(), orientation, s.estimated)
	return s, nil
}

// FrameRate returns the nominal frame rate of the track.
func (s *Source) FrameRate() pipeline.Rational { return s.info.FrameRate }

// NativeSize returns the upright display size of the track.
func (s *Source) NativeSize() (width, height int) { return s.nativeW, s.nativeH }

// EstimatedFrameCount returns ceil(duration × frame rate). It is an upper
// bound for progress reporting and must not be used as a loop bound.
func (s *Source) EstimatedFrameCount() int { return s.estimated }

// Orientation returns the classified rotation of the encoded frames.
func (s *Source) Orientation() pipeline.Orientation { return s.descriptor.Orientation }

// RotationDegrees returns the raw angle the orientation was classified from
// and whether it matched one of the supported orientations.
func (s *Source) RotationDegrees() (float64, bool) { return s.angle, s.recognized }

// Descriptor returns the per-video frame descriptor.
func (s *Source) Descriptor() pipeline.FrameDescriptor { return s.descriptor }

// TrackInfo returns the probed metadata.
func (s *Source) TrackInfo() ports.TrackInfo { return s.info }

// NextFrame returns the next frame, or io.EOF once the stream is exhausted.
// Frame indices start at 0 and increase by one. After io.EOF or a decode
// error every further call returns io.EOF.
func (s *Source) NextFrame() (*pipeline.Frame, error) {
	if s.done || s.session == nil {
		return nil, io.EOF
	}

	buf, err := s.session.ReadFrame()
	if errors.Is(err, io.EOF) {
		s.done = true
		return nil, io.EOF
	}
	if err != nil {
		s.done = true
		return nil, &DecodeError{Index: s.index, Err: err}
	}
	if buf.Width() != s.descriptor.Width || buf.Height() != s.descriptor.Height {
		s.done = true
		return nil, &DecodeError{Index: s.index, Err: fmt.Errorf("frame is %dx%d, track is %dx%d",
			buf.Width(), buf.Height(), s.descriptor.Width, s.descriptor.Height)}
	}

	if s.opts.Detach {
		w, err := pixbuf.Copy(buf, s.opts.Allocator)
		if err != nil {
			s.done = true
			return nil, &DecodeError{Index: s.index, Err: err}
		}
		buf = w.View()
	}

	frame := &pipeline.Frame{Buffer: buf, Index: s.index}
	s.index++
	return frame, nil
}

// Frames returns an iterator over the remaining frames. A decode error is
// yielded once as the final element.
func (s *Source) Frames() iter.Seq2[*pipeline.Frame, error] {
	return func(yield func(*pipeline.Frame, error) bool) {
		for {
			frame, err := s.NextFrame()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(frame, err) || err != nil {
				return
			}
		}
	}
}

// Restart discards the current decode session and starts a new one at the
// first frame. Calling it repeatedly leaves the source in the same state.
func (s *Source) Restart(ctx context.Context) error {
	if s.session != nil {
		if err := s.session.Close(); err != nil {
			s.logger.Warn("Closing decode session failed: %v", err)
		}
		s.session = nil
	}
	session, err := s.src.Start(ctx)
	if err != nil {
		s.done = true
		return &DecodeInitError{Reason: "restart decode session", Err: err}
	}
	s.session = session
	s.index = 0
	s.done = false
	s.logger.Debug("Decode session restarted")
	return nil
}

// Close releases the decode session.
func (s *Source) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	s.done = true
	return err
}

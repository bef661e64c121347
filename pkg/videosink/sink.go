// Package videosink appends annotated frames to an output container at a
// fixed cadence and finalizes it on close.
package videosink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

var (
	// ErrAlreadyClosed is returned when a sink is closed a second time.
	ErrAlreadyClosed = errors.New("videosink: already closed")

	// ErrInvalidFrameRate is returned by New for a non-positive frame rate.
	ErrInvalidFrameRate = errors.New("videosink: invalid frame rate")
)

// Options configures a Sink.
type Options struct {
	Path      string
	Container string
	FrameRate pipeline.Rational
	Settings  map[string]string
}

// Sink wraps a FrameSink. WriteFrame must be called from a single goroutine.
type Sink struct {
	fs     ports.FrameSink
	opts   Options
	logger ports.Logger

	frameCount int
	rejected   int
	timestamps []pipeline.Timestamp

	mu     sync.Mutex
	closed bool
}

// New starts a write session on fs.
func New(ctx context.Context, fs ports.FrameSink, logger ports.Logger, opts Options) (*Sink, error) {
	if !opts.FrameRate.Positive() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrameRate, opts.FrameRate)
	}
	err := fs.Begin(ctx, ports.SinkOptions{
		Path:      opts.Path,
		Container: opts.Container,
		FrameRate: opts.FrameRate,
		Settings:  opts.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("begin write session: %w", err)
	}
	return &Sink{fs: fs, opts: opts, logger: logger.WithComponent("sink")}, nil
}

// WriteFrame appends buf at the next timestamp slot, frameCount / frameRate.
// The slot is consumed even when the encoder rejects the frame, so later
// frames keep their cadence. It returns false on rejection or after close.
func (s *Sink) WriteFrame(buf *pixbuf.Buffer) bool {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false
	}

	pts := pipeline.FrameTimestamp(s.frameCount, s.opts.FrameRate)
	s.frameCount++
	s.timestamps = append(s.timestamps, pts)

	if err := s.fs.Append(buf, pts); err != nil {
		s.rejected++
		s.logger.Warn("Encoder rejected frame at %.3fs: %v", pts.Seconds(), err)
		return false
	}
	return true
}

// CloseAsync marks the input finished and finalizes the container on a
// separate goroutine. The returned channel receives exactly one result and is
// then closed.
func (s *Sink) CloseAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		done <- ErrAlreadyClosed
		close(done)
		return done
	}
	s.closed = true
	s.mu.Unlock()

	s.fs.MarkFinished()
	go func() {
		defer close(done)
		if err := s.fs.Finish(ctx); err != nil {
			done <- fmt.Errorf("finalize %s: %w", s.opts.Path, err)
			return
		}
		done <- nil
	}()
	return done
}

// CloseSync runs CloseAsync and blocks until finalization completes.
func (s *Sink) CloseSync(ctx context.Context) error {
	err := <-s.CloseAsync(ctx)
	if err == nil {
		s.logger.Debug("Finalized %s with %d frames", s.opts.Path, s.frameCount)
	}
	return err
}

// FramesWritten returns the number of timestamp slots consumed.
func (s *Sink) FramesWritten() int { return s.frameCount }

// FramesRejected returns the number of frames the encoder rejected.
func (s *Sink) FramesRejected() int { return s.rejected }

// Timestamps returns the timestamps assigned so far.
func (s *Sink) Timestamps() []pipeline.Timestamp {
	return append([]pipeline.Timestamp(nil), s.timestamps...)
}

// Path returns the output path.
func (s *Sink) Path() string { return s.opts.Path }

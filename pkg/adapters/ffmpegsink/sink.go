// Package ffmpegsink provides a ports.FrameSink that pipes raw frames into an
// ffmpeg encoder process.
//
// The process starts on the first Append, once the frame size and pixel
// format are known. Frames are written at a constant rate; a gap in
// presentation times left by a rejected frame is filled by repeating the
// previous frame. The finished file is checked with mp4meta.
package ffmpegsink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/exec"
	"sync"

	"github.com/user/objtrack/pkg/adapters/ffmpegpath"
	"github.com/user/objtrack/pkg/adapters/mp4meta"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// Options configures a Sink.
type Options struct {
	// FFmpegPath overrides executable lookup.
	FFmpegPath string

	// SkipVerify disables reading back the finished container.
	SkipVerify bool
}

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Sink encodes frames with ffmpeg.
type Sink struct {
	opts    Options
	logger  ports.Logger
	command commandFunc

	mu       sync.Mutex
	ctx      context.Context
	ffmpeg   string
	session  ports.SinkOptions
	settings encoderSettings
	began    bool
	finished bool

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	width  int
	height int
	format pixbuf.Format

	// slots is the number of frames written to the pipe, repeats included.
	slots   int
	appends int
	last    []byte
}

// New creates a new ffmpeg sink.
func New(logger ports.Logger, opts Options) *Sink {
	return &Sink{
		opts:    opts,
		logger:  logger.WithComponent("ffmpegsink"),
		command: exec.CommandContext,
	}
}

// Begin validates the settings, locates ffmpeg and removes an existing
// output file.
func (s *Sink) Begin(ctx context.Context, opts ports.SinkOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !opts.FrameRate.Positive() {
		return fmt.Errorf("%w: frame rate %v", ErrInvalidSetting, opts.FrameRate)
	}
	if _, err := containerArgs(opts.Container); err != nil {
		return err
	}
	settings, unknown, err := parseSettings(opts.Settings)
	if err != nil {
		return err
	}
	for _, key := range unknown {
		s.logger.Warn("Ignoring unknown encoder setting %q", key)
	}

	ffmpeg, err := ffmpegpath.FFmpeg.Resolve(s.opts.FFmpegPath)
	if err != nil {
		return err
	}

	if err := os.Remove(opts.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove existing output: %w", err)
	}

	// The encoder outlives a cancelled run so the container can still be
	// finalized.
	s.ctx = context.WithoutCancel(ctx)
	s.ffmpeg = ffmpeg
	s.session = opts
	s.settings = settings
	s.began = true
	s.finished = false
	s.cmd, s.stdin = nil, nil
	s.stderr.Reset()
	s.slots, s.appends = 0, 0
	return nil
}

// Append writes buf at the slot given by pts.
func (s *Sink) Append(buf *pixbuf.Buffer, pts pipeline.Timestamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.began:
		return ErrNotStarted
	case s.finished:
		return ErrFinished
	}

	slot := slotIndex(pts, s.session.FrameRate)
	if slot < s.slots {
		return fmt.Errorf("%w: slot %d after %d frames", ErrOutOfOrder, slot, s.slots)
	}

	if s.cmd == nil {
		if err := s.start(buf); err != nil {
			return err
		}
		// Nothing to repeat before the first frame.
		s.slots = slot
	} else if buf.Width() != s.width || buf.Height() != s.height || buf.Format() != s.format {
		return fmt.Errorf("%w: %v %dx%d, want %v %dx%d", ErrFrameGeometry,
			buf.Format(), buf.Width(), buf.Height(), s.format, s.width, s.height)
	}

	for s.slots < slot {
		if _, err := s.stdin.Write(s.last); err != nil {
			return fmt.Errorf("%w: repeat frame: %v", ErrEncodingFailed, err)
		}
		s.slots++
	}

	s.last = buf.AppendPacked(s.last[:0])
	if _, err := s.stdin.Write(s.last); err != nil {
		return fmt.Errorf("%w: write frame: %v", ErrEncodingFailed, err)
	}
	s.slots++
	s.appends++
	return nil
}

func (s *Sink) start(buf *pixbuf.Buffer) error {
	args, err := encodeArgs(buf.Width(), buf.Height(), buf.Format(), s.session.FrameRate,
		s.settings, s.session.Container, s.session.Path)
	if err != nil {
		return err
	}
	s.logger.Debug("Starting encoder: %s %v", s.ffmpeg, args)

	cmd := s.command(s.ctx, s.ffmpeg, args...)
	cmd.Stderr = &s.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s.cmd, s.stdin = cmd, stdin
	s.width, s.height, s.format = buf.Width(), buf.Height(), buf.Format()
	return nil
}

// MarkFinished closes the encoder input.
func (s *Sink) MarkFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return
	}
	s.finished = true
	if s.stdin != nil {
		s.stdin.Close()
	}
}

// Finish waits for ffmpeg to finalize the container. When no frame was ever
// appended no file is written and Finish returns nil.
func (s *Sink) Finish(ctx context.Context) error {
	s.MarkFinished()

	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	if cmd == nil {
		s.logger.Warn("No frames appended, %s was not written", s.session.Path)
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v\nstderr: %s", ErrEncodingFailed, err, s.stderr.String())
		}
	case <-ctx.Done():
		cmd.Process.Kill()
		<-done
		return ctx.Err()
	}

	if s.opts.SkipVerify {
		return nil
	}
	return s.verify()
}

func (s *Sink) verify() error {
	track, err := mp4meta.ReadFile(s.session.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	if track.SampleCount == 0 {
		return fmt.Errorf("%w: no samples in %s", ErrVerifyFailed, s.session.Path)
	}
	if track.SampleCount != s.slots {
		s.logger.Warn("Output has %d samples, %d frames were written", track.SampleCount, s.slots)
	}
	s.logger.Debug("Verified %s: %dx%d %s, %d samples", s.session.Path, track.Width, track.Height, track.Codec, track.SampleCount)
	return nil
}

// FramesAppended returns the number of accepted Append calls.
func (s *Sink) FramesAppended() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appends
}

// slotIndex returns the frame slot nearest to pts at the given rate.
func slotIndex(pts pipeline.Timestamp, rate pipeline.Rational) int {
	if pts.Scale == 0 || !rate.Positive() {
		return 0
	}
	r := big.NewRat(pts.Value, pts.Scale)
	r.Mul(r, big.NewRat(rate.Num, rate.Den))
	r.Add(r, big.NewRat(1, 2))
	q := new(big.Int).Quo(r.Num(), r.Denom())
	return int(q.Int64())
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)

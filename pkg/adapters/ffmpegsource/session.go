package ffmpegsource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// session reads packed NV12 frames from an ffmpeg process.
type session struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	width  int
	height int
	frame  []byte

	done      bool
	waitOnce  sync.Once
	waitErr   error
	closeOnce sync.Once
}

func startSession(cmd *exec.Cmd, width, height int) (*session, error) {
	s := &session{
		cmd:    cmd,
		width:  width,
		height: height,
		frame:  make([]byte, pixbuf.FormatNV12.FrameSize(width, height)),
	}
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	s.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return s, nil
}

// ReadFrame returns the next frame. The buffer is reused by the next call.
func (s *session) ReadFrame() (*pixbuf.Buffer, error) {
	if s.done {
		return nil, io.EOF
	}

	_, err := io.ReadFull(s.stdout, s.frame)
	switch {
	case err == nil:
		return pixbuf.WrapPacked(pixbuf.FormatNV12, s.width, s.height, s.frame)
	case errors.Is(err, io.EOF):
		s.done = true
		if werr := s.wait(); werr != nil {
			return nil, fmt.Errorf("%w: %v\nstderr: %s", ErrDecodeFailed, werr, s.stderr.String())
		}
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
		werr := s.wait()
		return nil, fmt.Errorf("%w: truncated frame (%v)\nstderr: %s", ErrDecodeFailed, werr, s.stderr.String())
	default:
		s.done = true
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
}

func (s *session) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// Close stops the decoder. Frames not yet read are discarded.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.done = true
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		s.wait()
	})
	return nil
}

var _ ports.DecodeSession = (*session)(nil)

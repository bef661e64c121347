// Package processtracker provides a ports.Tracker that delegates to an
// external tracker process.
//
// Requests go to the process on stdin. Responses come back on a dedicated
// pipe that the child sees as file descriptor 3, so anything the tracker
// prints on stdout or stderr cannot corrupt the protocol; those streams are
// forwarded to the logger.
package processtracker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/ports"
)

// Tracking levels understood by tracker processes.
const (
	LevelFast     = "fast"
	LevelAccurate = "accurate"
)

var (
	// ErrInvalidLevel is returned for a tracking level other than fast or accurate.
	ErrInvalidLevel = errors.New("processtracker: invalid tracking level")

	// ErrNoCommand is returned when no tracker command is configured.
	ErrNoCommand = errors.New("processtracker: no tracker command")

	// ErrClosed is returned by Track after Close.
	ErrClosed = errors.New("processtracker: tracker closed")
)

// Options configures the tracker process.
type Options struct {
	// Command is the executable and its arguments.
	Command []string

	// Level is LevelFast or LevelAccurate. Empty means LevelFast.
	Level string

	// Env is appended to the inherited environment.
	Env []string
}

// Tracker is a running tracker process. Track calls are serialized.
type Tracker struct {
	logger ports.Logger

	mu     sync.Mutex
	conn   *conn
	stdin  io.Closer
	data   io.Closer
	cmd    *exec.Cmd
	closed bool
	logs   sync.WaitGroup
}

// ValidateLevel normalizes an empty level to LevelFast.
func ValidateLevel(level string) (string, error) {
	switch level {
	case "":
		return LevelFast, nil
	case LevelFast, LevelAccurate:
		return level, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, level)
}

// Start launches the tracker process and performs the hello exchange.
func Start(ctx context.Context, logger ports.Logger, opts Options) (*Tracker, error) {
	level, err := ValidateLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if len(opts.Command) == 0 || opts.Command[0] == "" {
		return nil, ErrNoCommand
	}
	logger = logger.WithComponent("tracker")

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Env = append(os.Environ(), opts.Env...)

	// Response channel, FD 3 in the child.
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to start tracker %s: %w", opts.Command[0], err)
	}
	// Only the child holds the write end.
	w.Close()

	t := newTracker(logger, stdin, r)
	t.cmd = cmd
	t.forward(stdout)
	t.forward(stderr)

	version, err := t.conn.hello(level)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("tracker handshake: %w", err)
	}
	if version != ProtocolVersion {
		t.Close()
		return nil, fmt.Errorf("%w: tracker speaks version %d, want %d", ErrProtocol, version, ProtocolVersion)
	}
	logger.Debug("Tracker %s started (level %s, protocol %d)", opts.Command[0], level, version)
	return t, nil
}

func newTracker(logger ports.Logger, requests io.WriteCloser, responses io.ReadCloser) *Tracker {
	return &Tracker{
		logger: logger,
		conn:   &conn{w: requests, r: responses},
		stdin:  requests,
		data:   responses,
	}
}

// forward copies tracker output lines to the debug log.
func (t *Tracker) forward(r io.Reader) {
	t.logs.Add(1)
	go func() {
		defer t.logs.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			t.logger.Debug("%s", scanner.Text())
		}
	}()
}

// Track sends the frame and prior box and waits for the observation.
func (t *Tracker) Track(ctx context.Context, req ports.TrackRequest) (pipeline.TrackObservation, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.TrackObservation{}, err
	}
	if req.Frame == nil || req.Frame.Buffer == nil {
		return pipeline.TrackObservation{}, fmt.Errorf("%w: request without frame", ErrProtocol)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return pipeline.TrackObservation{}, ErrClosed
	}
	return t.conn.track(req)
}

// Close ends the session and waits for the process to exit.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	t.stdin.Close()
	t.data.Close()
	var err error
	if t.cmd != nil {
		t.logs.Wait()
		err = t.cmd.Wait()
	}
	if err != nil {
		return fmt.Errorf("tracker exited: %w", err)
	}
	return nil
}

// Ensure Tracker implements ports.Tracker
var _ ports.Tracker = (*Tracker)(nil)

// Package ffmpegsource provides a ports.FrameSource backed by ffmpeg.
//
// Container metadata is read with mp4ff where possible. ffprobe supplies the
// display matrix and describes containers mp4ff cannot parse. Frames are
// decoded by an ffmpeg process writing raw full-range NV12 to a pipe.
package ffmpegsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/user/objtrack/pkg/adapters/ffmpegpath"
	"github.com/user/objtrack/pkg/adapters/mp4meta"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// Options configures a Source.
type Options struct {
	// FFmpegPath and FFprobePath override executable lookup.
	FFmpegPath  string
	FFprobePath string

	// Threads limits decoder threads. Zero lets ffmpeg choose.
	Threads int
}

// commandFunc builds an external command. Tests substitute it.
type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Source decodes the first video track of a file.
type Source struct {
	path    string
	opts    Options
	logger  ports.Logger
	command commandFunc

	mu   sync.Mutex
	info *ports.TrackInfo
}

// New creates a Source for the file at path.
func New(path string, logger ports.Logger, opts Options) *Source {
	return &Source{
		path:    path,
		opts:    opts,
		logger:  logger.WithComponent("ffmpegsource"),
		command: exec.CommandContext,
	}
}

// Probe reads the track metadata. The result is cached.
func (s *Source) Probe(ctx context.Context) (ports.TrackInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.info != nil {
		return *s.info, nil
	}

	if _, err := os.Stat(s.path); err != nil {
		return ports.TrackInfo{}, fmt.Errorf("open input: %w", err)
	}
	container, containerErr := mp4meta.ReadFile(s.path)
	if errors.Is(containerErr, ports.ErrNoVideoTrack) {
		return ports.TrackInfo{}, fmt.Errorf("%w: %s", ports.ErrNoVideoTrack, s.path)
	}
	if containerErr != nil {
		s.logger.Debug("Container not readable with mp4ff, using ffprobe: %v", containerErr)
	}

	probe, probeErr := s.runProbe(ctx)
	if probeErr != nil && containerErr != nil {
		return ports.TrackInfo{}, fmt.Errorf("%w: %v", ErrProbeFailed, errors.Join(containerErr, probeErr))
	}
	if probeErr != nil {
		s.logger.Warn("ffprobe unavailable, assuming identity transform: %v", probeErr)
	}

	info, err := mergeTrackInfo(container, containerErr == nil, probe, probeErr == nil)
	if err != nil {
		return ports.TrackInfo{}, fmt.Errorf("%s: %w", s.path, err)
	}

	s.logger.Debug("Probed %s: %dx%d @ %s fps, %s s, codec %s",
		s.path, info.NaturalWidth, info.NaturalHeight, info.FrameRate, info.Duration, info.Codec)
	s.info = &info
	return info, nil
}

func (s *Source) runProbe(ctx context.Context) (probeOutput, error) {
	ffprobe, err := ffmpegpath.FFprobe.Resolve(s.opts.FFprobePath)
	if err != nil {
		return probeOutput{}, err
	}

	var stderr bytes.Buffer
	cmd := s.command(ctx, ffprobe, probeArgs(s.path)...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return probeOutput{}, fmt.Errorf("ffprobe: %w\nstderr: %s", err, stderr.String())
	}
	return parseProbeOutput(out)
}

// mergeTrackInfo prefers container values and falls back to ffprobe's.
func mergeTrackInfo(c mp4meta.Track, haveContainer bool, p probeOutput, haveProbe bool) (ports.TrackInfo, error) {
	info := ports.TrackInfo{
		Transform:   pipeline.IdentityTransform,
		PixelFormat: pixbuf.FormatNV12,
	}

	var stream probeStream
	if haveProbe {
		var ok bool
		stream, ok = p.videoStream()
		if !ok {
			return info, ports.ErrNoVideoTrack
		}
		if t, ok := stream.transform(); ok {
			info.Transform = t
		}
	}

	if haveContainer {
		info.NaturalWidth, info.NaturalHeight = c.Width, c.Height
		info.FrameRate = c.FrameRate
		info.Duration = c.Duration()
		info.Codec = c.Codec
	}
	if haveProbe {
		if info.NaturalWidth <= 0 || info.NaturalHeight <= 0 {
			info.NaturalWidth, info.NaturalHeight = stream.Width, stream.Height
		}
		if !info.FrameRate.Positive() {
			info.FrameRate = stream.frameRate()
		}
		if !info.Duration.Positive() {
			info.Duration = stream.duration(p.Format.Duration)
		}
		if info.Codec == "" {
			info.Codec = stream.CodecTag
			if info.Codec == "" || info.Codec == "[0][0][0][0]" {
				info.Codec = stream.CodecName
			}
		}
	}

	if info.NaturalWidth <= 0 || info.NaturalHeight <= 0 {
		return info, fmt.Errorf("%w: unknown frame size", ErrProbeFailed)
	}
	return info, nil
}

// Start launches an ffmpeg decode process positioned at the first frame.
func (s *Source) Start(ctx context.Context) (ports.DecodeSession, error) {
	info, err := s.Probe(ctx)
	if err != nil {
		return nil, err
	}

	ffmpeg, err := ffmpegpath.FFmpeg.Resolve(s.opts.FFmpegPath)
	if err != nil {
		return nil, err
	}

	args := decodeArgs(s.path, s.opts.Threads)
	s.logger.Debug("Starting decoder: %s %v", ffmpeg, args)

	sess, err := startSession(s.command(ctx, ffmpeg, args...), info.NaturalWidth, info.NaturalHeight)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// decodeArgs returns ffmpeg arguments writing the first video stream as
// packed full-range NV12 without applying the display matrix.
func decodeArgs(path string, threads int) []string {
	args := []string{"-hide_banner", "-v", "error", "-nostdin", "-noautorotate"}
	if threads > 0 {
		args = append(args, "-threads", strconv.Itoa(threads))
	}
	return append(args,
		"-i", path,
		"-map", "0:v:0",
		"-an", "-sn",
		"-fps_mode", "passthrough",
		"-vf", "scale=out_range=full",
		"-f", "rawvideo",
		"-pix_fmt", "nv12",
		"pipe:1",
	)
}

// Ensure Source implements ports.FrameSource
var _ ports.FrameSource = (*Source)(nil)

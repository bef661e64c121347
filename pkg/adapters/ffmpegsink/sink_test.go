package ffmpegsink

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/objtrack/pkg/adapters/mp4meta"
	"github.com/user/objtrack/pkg/mocks"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// TestHelperProcess stands in for ffmpeg. It reads raw frames from stdin and
// writes a movie with one sample per frame to the last argument.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	arg := func(flag string) string {
		i := slices.Index(args, flag)
		if i < 0 || i+1 >= len(args) {
			return ""
		}
		return args[i+1]
	}
	out := args[len(args)-1]

	mode := os.Getenv("HELPER_ENCODE")
	if mode == "fail" {
		fmt.Fprint(os.Stderr, "Unknown encoder 'libnope'")
		os.Exit(1)
	}

	data, _ := io.ReadAll(os.Stdin)
	switch mode {
	case "hang":
		time.Sleep(time.Minute)
	case "garbage":
		os.WriteFile(out, []byte("not a movie"), 0644)
		return
	}

	ws, hs, _ := strings.Cut(arg("-s"), "x")
	w, _ := strconv.Atoi(ws)
	h, _ := strconv.Atoi(hs)
	format, err := pixbuf.ParseFormat(arg("-pix_fmt"))
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	movie, err := mocks.FragmentedMP4(w, h, 30000, 1001, len(data)/format.FrameSize(w, h))
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(1)
	}
	os.WriteFile(out, movie, 0644)
}

func helperSink(t *testing.T, mode string) (*Sink, *mocks.Logger) {
	t.Helper()
	logger := mocks.NewLogger()
	sink := New(logger, Options{FFmpegPath: os.Args[0]})
	sink.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_ENCODE="+mode)
		return cmd
	}
	return sink, logger
}

var rate30 = pipeline.NewRational(30, 1)

func sinkOptions(t *testing.T) ports.SinkOptions {
	return ports.SinkOptions{
		Path:      filepath.Join(t.TempDir(), "out.mp4"),
		Container: "mp4",
		FrameRate: rate30,
		Settings:  map[string]string{SettingPreset: "1920x1080", SettingCodec: "h264"},
	}
}

func frame(t *testing.T, w, h int, fill byte) *pixbuf.Buffer {
	t.Helper()
	buf, err := mocks.SyntheticFrame(pixbuf.FormatBGRA, w, h, fill)
	require.NoError(t, err)
	return buf
}

func TestSink_EncodesFrames(t *testing.T) {
	sink, _ := helperSink(t, "encode")
	opts := sinkOptions(t)
	ctx := context.Background()

	require.NoError(t, sink.Begin(ctx, opts))
	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Append(frame(t, 4, 2, byte(i)), pipeline.FrameTimestamp(i, rate30)))
	}
	sink.MarkFinished()
	require.NoError(t, sink.Finish(ctx))

	track, err := mp4meta.ReadFile(opts.Path)
	require.NoError(t, err)
	assert.Equal(t, 5, track.SampleCount)
	assert.Equal(t, 5, sink.FramesAppended())
}

func TestSink_RepeatsFrameForSkippedSlot(t *testing.T) {
	sink, _ := helperSink(t, "encode")
	opts := sinkOptions(t)
	ctx := context.Background()

	require.NoError(t, sink.Begin(ctx, opts))
	for _, slot := range []int{0, 1, 3} {
		require.NoError(t, sink.Append(frame(t, 4, 2, 9), pipeline.FrameTimestamp(slot, rate30)))
	}
	require.NoError(t, sink.Finish(ctx))

	track, err := mp4meta.ReadFile(opts.Path)
	require.NoError(t, err)
	assert.Equal(t, 4, track.SampleCount)
	assert.Equal(t, 3, sink.FramesAppended())
}

func TestSink_RejectsOutOfOrderAndGeometryChange(t *testing.T) {
	sink, _ := helperSink(t, "encode")
	ctx := context.Background()
	require.NoError(t, sink.Begin(ctx, sinkOptions(t)))

	require.NoError(t, sink.Append(frame(t, 4, 2, 1), pipeline.FrameTimestamp(1, rate30)))
	assert.ErrorIs(t, sink.Append(frame(t, 4, 2, 1), pipeline.FrameTimestamp(0, rate30)), ErrOutOfOrder)
	assert.ErrorIs(t, sink.Append(frame(t, 8, 2, 1), pipeline.FrameTimestamp(2, rate30)), ErrFrameGeometry)
	require.NoError(t, sink.Finish(ctx))
}

func TestSink_AppendOutsideSession(t *testing.T) {
	sink, _ := helperSink(t, "encode")
	ctx := context.Background()

	assert.ErrorIs(t, sink.Append(frame(t, 4, 2, 1), pipeline.Timestamp{}), ErrNotStarted)

	require.NoError(t, sink.Begin(ctx, sinkOptions(t)))
	sink.MarkFinished()
	assert.ErrorIs(t, sink.Append(frame(t, 4, 2, 1), pipeline.Timestamp{}), ErrFinished)
}

func TestSink_BeginRemovesExistingOutput(t *testing.T) {
	sink, _ := helperSink(t, "encode")
	opts := sinkOptions(t)
	require.NoError(t, os.WriteFile(opts.Path, []byte("stale"), 0644))

	require.NoError(t, sink.Begin(context.Background(), opts))

	_, err := os.Stat(opts.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSink_FinishWithoutFrames(t *testing.T) {
	sink, logger := helperSink(t, "encode")
	opts := sinkOptions(t)
	ctx := context.Background()

	require.NoError(t, sink.Begin(ctx, opts))
	require.NoError(t, sink.Finish(ctx))

	_, err := os.Stat(opts.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Len(t, logger.Messages(ports.LevelWarn), 1)
}

func TestSink_EncoderFailureIncludesStderr(t *testing.T) {
	sink, _ := helperSink(t, "fail")
	ctx := context.Background()
	require.NoError(t, sink.Begin(ctx, sinkOptions(t)))

	// The write may or may not race the process exit.
	sink.Append(frame(t, 4, 2, 1), pipeline.FrameTimestamp(0, rate30))

	err := sink.Finish(ctx)
	require.ErrorIs(t, err, ErrEncodingFailed)
	assert.Contains(t, err.Error(), "libnope")
}

func TestSink_VerifyFailure(t *testing.T) {
	sink, _ := helperSink(t, "garbage")
	ctx := context.Background()
	require.NoError(t, sink.Begin(ctx, sinkOptions(t)))
	require.NoError(t, sink.Append(frame(t, 4, 2, 1), pipeline.FrameTimestamp(0, rate30)))

	assert.ErrorIs(t, sink.Finish(ctx), ErrVerifyFailed)
}

func TestSink_FinishHonorsContext(t *testing.T) {
	sink, _ := helperSink(t, "hang")
	require.NoError(t, sink.Begin(context.Background(), sinkOptions(t)))
	require.NoError(t, sink.Append(frame(t, 4, 2, 1), pipeline.FrameTimestamp(0, rate30)))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sink.Finish(ctx), context.DeadlineExceeded)
}

func TestSink_BeginValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ports.SinkOptions)
		want   error
	}{
		{"zero frame rate", func(o *ports.SinkOptions) { o.FrameRate = pipeline.Rational{} }, ErrInvalidSetting},
		{"unknown container", func(o *ports.SinkOptions) { o.Container = "avi" }, ErrUnsupportedContainer},
		{"bad crf", func(o *ports.SinkOptions) { o.Settings = map[string]string{SettingCRF: "80"} }, ErrInvalidSetting},
		{"bad preset", func(o *ports.SinkOptions) { o.Settings = map[string]string{SettingPreset: "huge"} }, ErrInvalidSetting},
		{"bad bitrate", func(o *ports.SinkOptions) { o.Settings = map[string]string{SettingBitrate: "fast"} }, ErrInvalidSetting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, _ := helperSink(t, "encode")
			opts := sinkOptions(t)
			tt.modify(&opts)
			assert.ErrorIs(t, sink.Begin(context.Background(), opts), tt.want)
		})
	}
}

func TestSink_UnknownSettingWarns(t *testing.T) {
	sink, logger := helperSink(t, "encode")
	opts := sinkOptions(t)
	opts.Settings = map[string]string{"tune": "film"}

	require.NoError(t, sink.Begin(context.Background(), opts))
	warnings := logger.Messages(ports.LevelWarn)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "tune")
}

func TestParseSettings(t *testing.T) {
	s, unknown, err := parseSettings(map[string]string{
		SettingCodec:       "hevc",
		SettingPreset:      "1280x720",
		SettingBitrate:     "4M",
		SettingCRF:         "20",
		SettingPixelFormat: "yuv420p10le",
	})
	require.NoError(t, err)
	assert.Empty(t, unknown)
	assert.Equal(t, encoderSettings{
		Encoder: "libx265", Tag: "hvc1",
		Width: 1280, Height: 720,
		Bitrate: "4M", CRF: 20, PixelFormat: "yuv420p10le",
	}, s)

	s, _, err = parseSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, "libx264", s.Encoder)
	assert.Equal(t, -1, s.CRF)

	s, _, err = parseSettings(map[string]string{SettingCodec: "libvpx-vp9"})
	require.NoError(t, err)
	assert.Equal(t, "libvpx-vp9", s.Encoder)
	assert.Empty(t, s.Tag)
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1920x1080", 1920, 1080, false},
		{"640X480", 640, 480, false},
		{"passthrough", 0, 0, false},
		{"", 0, 0, false},
		{"0x480", 0, 0, true},
		{"1920", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		w, h, err := ParsePreset(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, [2]int{tt.w, tt.h}, [2]int{w, h}, tt.in)
	}
}

func TestEncodeArgs(t *testing.T) {
	s, _, err := parseSettings(map[string]string{SettingPreset: "1281x721", SettingCRF: "18", SettingBitrate: "2500k"})
	require.NoError(t, err)

	args, err := encodeArgs(1080, 1920, pixbuf.FormatBGRA, pipeline.NewRational(30000, 1001), s, "mov", "out.mov")
	require.NoError(t, err)
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-f rawvideo -pix_fmt bgra -s 1080x1920 -framerate 30000/1001 -i pipe:0")
	assert.Contains(t, joined, "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720")
	assert.Contains(t, joined, "-c:v libx264 -pix_fmt yuv420p -crf 18 -b:v 2500k -tag:v avc1")
	assert.Contains(t, joined, "-f mov")
	assert.Equal(t, "out.mov", args[len(args)-1])

	_, err = encodeArgs(4, 2, pixbuf.FormatUnknown, rate30, s, "mp4", "out.mp4")
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestSlotIndex(t *testing.T) {
	ntsc := pipeline.NewRational(30000, 1001)
	for n := 0; n < 100; n++ {
		assert.Equal(t, n, slotIndex(pipeline.FrameTimestamp(n, ntsc), ntsc))
	}
	assert.Equal(t, 3, slotIndex(pipeline.Timestamp{Value: 1, Scale: 10}, rate30))
	assert.Equal(t, 0, slotIndex(pipeline.Timestamp{}, rate30))
}

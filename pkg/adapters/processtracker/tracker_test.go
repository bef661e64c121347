package processtracker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/objtrack/pkg/mocks"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// decodedTrack is a track request as a tracker process sees it.
type decodedTrack struct {
	Index       uint32
	EXIF        byte
	Format      pixbuf.Format
	Width       uint32
	Height      uint32
	Prior       [4]float64
	FrameLength uint32
	Frame       []byte
}

func decodeTrack(body []byte) (decodedTrack, error) {
	var d decodedTrack
	r := bytes.NewReader(body)
	kind, _ := r.ReadByte()
	if kind != msgTrack {
		return d, fmt.Errorf("message type %d", kind)
	}
	binary.Read(r, binary.BigEndian, &d.Index)
	d.EXIF, _ = r.ReadByte()
	f, _ := r.ReadByte()
	d.Format = pixbuf.Format(f)
	binary.Read(r, binary.BigEndian, &d.Width)
	binary.Read(r, binary.BigEndian, &d.Height)
	binary.Read(r, binary.BigEndian, &d.Prior)
	if err := binary.Read(r, binary.BigEndian, &d.FrameLength); err != nil {
		return d, err
	}
	d.Frame = make([]byte, d.FrameLength)
	_, err := io.ReadFull(r, d.Frame)
	return d, err
}

func helloReply(version uint16) []byte {
	return binary.BigEndian.AppendUint16([]byte{statusOK}, version)
}

func trackReply(box [4]float64, confidence float64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(statusOK)
	binary.Write(&buf, binary.BigEndian, box)
	binary.Write(&buf, binary.BigEndian, confidence)
	return buf.Bytes()
}

func errorReply(msg string) []byte {
	buf := []byte{statusError}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(msg)))
	return append(buf, msg...)
}

// serveTracker answers one request per handler call until the request pipe
// closes.
func serveTracker(server *conn, handle func(body []byte) []byte) {
	for {
		body, err := server.receive()
		if err != nil {
			return
		}
		if err := server.send(handle(body)); err != nil {
			return
		}
	}
}

// pipeTracker connects a Tracker to an in-memory tracker.
func pipeTracker(t *testing.T, handle func(body []byte) []byte) *Tracker {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	go func() {
		serveTracker(&conn{w: respW, r: reqR}, handle)
		respW.Close()
	}()
	tr := newTracker(mocks.NewLogger(), reqW, respR)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func trackRequest(t *testing.T, index int) ports.TrackRequest {
	t.Helper()
	buf, err := mocks.SyntheticFrame(pixbuf.FormatNV12, 4, 2, 0x40)
	require.NoError(t, err)
	return ports.TrackRequest{
		Frame:       &pipeline.Frame{Buffer: buf, Index: index},
		Prior:       pipeline.BoundingBox{X: 0.25, Y: 0.5, Width: 0.125, Height: 0.0625},
		Orientation: pipeline.Rotate90CCW,
	}
}

func TestTrack_EncodesRequestAndDecodesObservation(t *testing.T) {
	var got decodedTrack
	tr := pipeTracker(t, func(body []byte) []byte {
		var err error
		got, err = decodeTrack(body)
		if err != nil {
			return errorReply(err.Error())
		}
		return trackReply([4]float64{0.3, 0.4, 0.1, 0.2}, 0.87)
	})

	obs, err := tr.Track(context.Background(), trackRequest(t, 7))
	require.NoError(t, err)

	assert.Equal(t, pipeline.BoundingBox{X: 0.3, Y: 0.4, Width: 0.1, Height: 0.2}, obs.Box)
	assert.Equal(t, 0.87, obs.Confidence)

	assert.Equal(t, uint32(7), got.Index)
	assert.Equal(t, byte(6), got.EXIF)
	assert.Equal(t, pixbuf.FormatNV12, got.Format)
	assert.Equal(t, uint32(4), got.Width)
	assert.Equal(t, uint32(2), got.Height)
	assert.Equal(t, [4]float64{0.25, 0.5, 0.125, 0.0625}, got.Prior)
	assert.Equal(t, uint32(12), got.FrameLength)
	assert.Equal(t, byte(0x40), got.Frame[0])
	assert.Equal(t, byte(128), got.Frame[11])
}

func TestTrack_TrackerErrorMessage(t *testing.T) {
	tr := pipeTracker(t, func([]byte) []byte { return errorReply("model not loaded") })

	_, err := tr.Track(context.Background(), trackRequest(t, 0))
	require.ErrorIs(t, err, ErrTrackerReported)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestTrack_MalformedResponses(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
	}{
		{"empty", []byte{}},
		{"unknown status", []byte{9}},
		{"short observation", []byte{statusOK, 1, 2, 3}},
		{"truncated error", []byte{statusError, 0, 0, 0, 50, 'x'}},
		{"nan confidence", trackReply([4]float64{0, 0, 1, 1}, math.NaN())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := pipeTracker(t, func([]byte) []byte { return tt.reply })
			_, err := tr.Track(context.Background(), trackRequest(t, 0))
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestTrack_ProcessGone(t *testing.T) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	go func() {
		// Read the request, then die without answering.
		(&conn{r: reqR}).receive()
		respW.Close()
	}()
	tr := newTracker(mocks.NewLogger(), reqW, respR)
	defer tr.Close()

	_, err := tr.Track(context.Background(), trackRequest(t, 0))
	assert.ErrorIs(t, err, io.EOF)
}

func TestTrack_AfterClose(t *testing.T) {
	tr := pipeTracker(t, func([]byte) []byte { return trackReply([4]float64{}, 1) })
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err := tr.Track(context.Background(), trackRequest(t, 0))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTrack_CancelledContext(t *testing.T) {
	tr := pipeTracker(t, func([]byte) []byte { return trackReply([4]float64{}, 1) })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Track(ctx, trackRequest(t, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHello(t *testing.T) {
	var level string
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	go serveTracker(&conn{w: respW, r: reqR}, func(body []byte) []byte {
		n := binary.BigEndian.Uint16(body[3:5])
		level = string(body[5 : 5+n])
		return helloReply(ProtocolVersion)
	})
	c := &conn{w: reqW, r: respR}

	version, err := c.hello(LevelAccurate)
	require.NoError(t, err)
	assert.Equal(t, uint16(ProtocolVersion), version)
	assert.Equal(t, LevelAccurate, level)
	reqW.Close()
}

func TestValidateLevel(t *testing.T) {
	level, err := ValidateLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelFast, level)

	level, err = ValidateLevel(LevelAccurate)
	require.NoError(t, err)
	assert.Equal(t, LevelAccurate, level)

	_, err = ValidateLevel("turbo")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

// TestHelperProcess is a tracker process: it moves the prior box right by
// 0.01 per frame with confidence 0.9.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	data := os.NewFile(3, "data")
	server := &conn{w: data, r: os.Stdin}
	version, _ := strconv.Atoi(os.Getenv("HELPER_VERSION"))

	serveTracker(server, func(body []byte) []byte {
		if body[0] == msgHello {
			return helloReply(uint16(version))
		}
		req, err := decodeTrack(body)
		if err != nil {
			return errorReply(err.Error())
		}
		fmt.Printf("tracking frame %d\n", req.Index)
		box := req.Prior
		box[0] += 0.01
		return trackReply(box, 0.9)
	})
}

func helperOptions(version int) Options {
	return Options{
		Command: []string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		Env:     []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_VERSION=" + strconv.Itoa(version)},
	}
}

func TestStart_TracksWithProcess(t *testing.T) {
	logger := mocks.NewLogger()
	tr, err := Start(context.Background(), logger, helperOptions(ProtocolVersion))
	require.NoError(t, err)

	req := trackRequest(t, 0)
	for i := 0; i < 3; i++ {
		req.Frame.Index = i
		obs, err := tr.Track(context.Background(), req)
		require.NoError(t, err)
		assert.InDelta(t, req.Prior.X+0.01, obs.Box.X, 1e-12)
		assert.Equal(t, 0.9, obs.Confidence)
		req.Prior = obs.Box
	}
	require.NoError(t, tr.Close())

	assert.Contains(t, logger.Messages(ports.LevelDebug), "tracking frame 2")
}

func TestStart_VersionMismatch(t *testing.T) {
	_, err := Start(context.Background(), mocks.NewLogger(), helperOptions(ProtocolVersion+1))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestStart_InvalidOptions(t *testing.T) {
	_, err := Start(context.Background(), mocks.NewLogger(), Options{})
	assert.ErrorIs(t, err, ErrNoCommand)

	_, err = Start(context.Background(), mocks.NewLogger(), Options{Command: []string{"tracker"}, Level: "slow"})
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = Start(context.Background(), mocks.NewLogger(), Options{Command: []string{"/nonexistent/tracker"}})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrProtocol))
}

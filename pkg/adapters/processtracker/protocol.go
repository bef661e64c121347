package processtracker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/ports"
)

// Wire protocol. Every message in either direction is [u32 length][body],
// big endian. Requests start with a message type byte:
//
//	hello: [1][u16 version][u16 len][level]
//	track: [2][u32 index][u8 exif][u8 format][u32 width][u32 height]
//	       [f64 x][f64 y][f64 w][f64 h][u32 len][packed frame]
//
// Responses start with a status byte:
//
//	ok:    hello → [0][u16 version]
//	       track → [0][f64 x][f64 y][f64 w][f64 h][f64 confidence]
//	error: [1][u32 len][message]
const (
	ProtocolVersion = 1

	msgHello byte = 1
	msgTrack byte = 2

	statusOK    byte = 0
	statusError byte = 1

	// maxMessage bounds a single response body.
	maxMessage = 64 << 20
)

var (
	// ErrProtocol is returned for malformed or unexpected messages.
	ErrProtocol = errors.New("processtracker: protocol error")

	// ErrTrackerReported wraps an error message sent by the tracker.
	ErrTrackerReported = errors.New("processtracker: tracker error")
)

// conn frames messages over a pair of pipes.
type conn struct {
	w   io.Writer
	r   io.Reader
	buf bytes.Buffer
}

func (c *conn) send(body []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := c.w.Write(header[:]); err != nil {
		return err
	}
	_, err := c.w.Write(body)
	return err
}

func (c *conn) receive() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxMessage {
		return nil, fmt.Errorf("%w: %d byte response", ErrProtocol, n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// roundTrip sends a request and returns the response payload after the
// status byte.
func (c *conn) roundTrip(body []byte) ([]byte, error) {
	if err := c.send(body); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	resp, err := c.receive()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrProtocol)
	}

	switch resp[0] {
	case statusOK:
		return resp[1:], nil
	case statusError:
		r := bytes.NewReader(resp[1:])
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil || int(n) > r.Len() {
			return nil, fmt.Errorf("%w: truncated error message", ErrProtocol)
		}
		msg := make([]byte, n)
		r.Read(msg)
		return nil, fmt.Errorf("%w: %s", ErrTrackerReported, msg)
	}
	return nil, fmt.Errorf("%w: status %d", ErrProtocol, resp[0])
}

func (c *conn) hello(level string) (uint16, error) {
	c.buf.Reset()
	c.buf.WriteByte(msgHello)
	binary.Write(&c.buf, binary.BigEndian, uint16(ProtocolVersion))
	binary.Write(&c.buf, binary.BigEndian, uint16(len(level)))
	c.buf.WriteString(level)

	resp, err := c.roundTrip(c.buf.Bytes())
	if err != nil {
		return 0, err
	}
	if len(resp) < 2 {
		return 0, fmt.Errorf("%w: short hello response", ErrProtocol)
	}
	return binary.BigEndian.Uint16(resp), nil
}

func (c *conn) track(req ports.TrackRequest) (pipeline.TrackObservation, error) {
	buf := req.Frame.Buffer

	c.buf.Reset()
	c.buf.WriteByte(msgTrack)
	binary.Write(&c.buf, binary.BigEndian, uint32(req.Frame.Index))
	c.buf.WriteByte(byte(req.Orientation.EXIF()))
	c.buf.WriteByte(byte(buf.Format()))
	binary.Write(&c.buf, binary.BigEndian, uint32(buf.Width()))
	binary.Write(&c.buf, binary.BigEndian, uint32(buf.Height()))
	binary.Write(&c.buf, binary.BigEndian, [4]float64{req.Prior.X, req.Prior.Y, req.Prior.Width, req.Prior.Height})
	binary.Write(&c.buf, binary.BigEndian, uint32(buf.Format().FrameSize(buf.Width(), buf.Height())))
	c.buf.Write(buf.AppendPacked(c.buf.AvailableBuffer()))

	resp, err := c.roundTrip(c.buf.Bytes())
	if err != nil {
		return pipeline.TrackObservation{}, err
	}

	var v [5]float64
	if err := binary.Read(bytes.NewReader(resp), binary.BigEndian, &v); err != nil {
		return pipeline.TrackObservation{}, fmt.Errorf("%w: short track response", ErrProtocol)
	}
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return pipeline.TrackObservation{}, fmt.Errorf("%w: non-finite value in track response", ErrProtocol)
		}
	}
	return pipeline.TrackObservation{
		Box:        pipeline.BoundingBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]},
		Confidence: v[4],
	}, nil
}

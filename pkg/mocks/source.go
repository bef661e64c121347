package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource. By default it
// describes a synthetic NV12 track and each session yields FrameCount frames
// whose luma plane is filled with the frame index.
type FrameSource struct {
	Info       ports.TrackInfo
	FrameCount int

	ProbeFunc func(ctx context.Context) (ports.TrackInfo, error)
	StartFunc func(ctx context.Context) (ports.DecodeSession, error)

	mu         sync.Mutex
	StartCalls int
	Sessions   []*DecodeSession
}

// NewFrameSource creates a synthetic source of n frames.
func NewFrameSource(n, width, height int, rate pipeline.Rational) *FrameSource {
	return &FrameSource{
		Info: ports.TrackInfo{
			NaturalWidth:  width,
			NaturalHeight: height,
			FrameRate:     rate,
			Duration:      pipeline.NewRational(int64(n)*rate.Den, rate.Num),
			Transform:     pipeline.IdentityTransform,
			PixelFormat:   pixbuf.FormatNV12,
			Codec:         "avc1",
		},
		FrameCount: n,
	}
}

func (m *FrameSource) Probe(ctx context.Context) (ports.TrackInfo, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx)
	}
	return m.Info, nil
}

func (m *FrameSource) Start(ctx context.Context) (ports.DecodeSession, error) {
	m.mu.Lock()
	m.StartCalls++
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	s := &DecodeSession{
		Format: m.Info.PixelFormat,
		Width:  m.Info.NaturalWidth,
		Height: m.Info.NaturalHeight,
		Frames: m.FrameCount,
	}
	m.mu.Lock()
	m.Sessions = append(m.Sessions, s)
	m.mu.Unlock()
	return s, nil
}

var _ ports.FrameSource = (*FrameSource)(nil)

// DecodeSession is a mock implementation of ports.DecodeSession.
type DecodeSession struct {
	Format pixbuf.Format
	Width  int
	Height int
	Frames int

	// ReadFrameFunc overrides frame generation when set.
	ReadFrameFunc func(index int) (*pixbuf.Buffer, error)

	Reads  int
	Closed int
}

func (m *DecodeSession) ReadFrame() (*pixbuf.Buffer, error) {
	index := m.Reads
	m.Reads++
	if m.ReadFrameFunc != nil {
		return m.ReadFrameFunc(index)
	}
	if index >= m.Frames {
		return nil, io.EOF
	}
	return SyntheticFrame(m.Format, m.Width, m.Height, byte(index))
}

func (m *DecodeSession) Close() error {
	m.Closed++
	return nil
}

var _ ports.DecodeSession = (*DecodeSession)(nil)

// SyntheticFrame builds a tightly packed buffer with every luma (or packed)
// byte set to fill and neutral chroma.
func SyntheticFrame(format pixbuf.Format, width, height int, fill byte) (*pixbuf.Buffer, error) {
	data := make([]byte, format.FrameSize(width, height))
	luma := width * height
	switch format {
	case pixbuf.FormatNV12, pixbuf.FormatI420:
		for i := range data {
			if i < luma {
				data[i] = fill
			} else {
				data[i] = 128
			}
		}
	default:
		for i := range data {
			data[i] = fill
		}
	}
	return pixbuf.WrapPacked(format, width, height, data)
}

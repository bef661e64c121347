package mocks

import (
	"context"
	"sync"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
	"github.com/user/objtrack/pkg/ports"
)

// FrameSink is a mock implementation of ports.FrameSink.
type FrameSink struct {
	BeginFunc  func(ctx context.Context, opts ports.SinkOptions) error
	AppendFunc func(buf *pixbuf.Buffer, pts pipeline.Timestamp) error
	FinishFunc func(ctx context.Context) error

	mu sync.Mutex

	// Recorded calls for verification
	BeginCalls        []ports.SinkOptions
	AppendCalls       []AppendCall
	MarkFinishedCalls int
	FinishCalls       int
}

// AppendCall records a call to Append.
type AppendCall struct {
	Buffer *pixbuf.Buffer
	PTS    pipeline.Timestamp
}

func (m *FrameSink) Begin(ctx context.Context, opts ports.SinkOptions) error {
	m.mu.Lock()
	m.BeginCalls = append(m.BeginCalls, opts)
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, opts)
	}
	return nil
}

func (m *FrameSink) Append(buf *pixbuf.Buffer, pts pipeline.Timestamp) error {
	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, AppendCall{Buffer: buf, PTS: pts})
	m.mu.Unlock()
	if m.AppendFunc != nil {
		return m.AppendFunc(buf, pts)
	}
	return nil
}

func (m *FrameSink) MarkFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkFinishedCalls++
}

func (m *FrameSink) Finish(ctx context.Context) error {
	m.mu.Lock()
	m.FinishCalls++
	m.mu.Unlock()
	if m.FinishFunc != nil {
		return m.FinishFunc(ctx)
	}
	return nil
}

// Appended returns the number of Append calls.
func (m *FrameSink) Appended() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AppendCalls)
}

var _ ports.FrameSink = (*FrameSink)(nil)

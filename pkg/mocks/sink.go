package mocks

import (
	"image"
	"sync"

	"github.com/user/objtrack/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	AnnotatedFrames map[int]image.Image
	Observations    [][]byte
	RunJSON         []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:         enabled,
		AnnotatedFrames: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveAnnotatedFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AnnotatedFrames[index] = img
	return nil
}

func (m *DebugSink) SaveObservation(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Observations = append(m.Observations, data)
	return nil
}

func (m *DebugSink) SaveRunJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RunJSON = data
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)

// Package nullsink provides a no-op debug sink implementation.
package nullsink

import (
	"image"

	"github.com/user/objtrack/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveAnnotatedFrame does nothing.
func (s *Sink) SaveAnnotatedFrame(index int, img image.Image) error {
	return nil
}

// SaveObservation does nothing.
func (s *Sink) SaveObservation(data []byte) error {
	return nil
}

// SaveRunJSON does nothing.
func (s *Sink) SaveRunJSON(data []byte) error {
	return nil
}

var _ ports.DebugSink = (*Sink)(nil)

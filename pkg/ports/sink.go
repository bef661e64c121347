package ports

import (
	"image"
)

// DebugSink receives intermediate results for offline inspection.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveAnnotatedFrame saves the frame after the overlay was drawn.
	SaveAnnotatedFrame(index int, img image.Image) error

	// SaveObservation records one tracker observation as a JSON line.
	SaveObservation(data []byte) error

	// SaveRunJSON saves the run metadata.
	SaveRunJSON(data []byte) error
}

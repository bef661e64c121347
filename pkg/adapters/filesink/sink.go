// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/objtrack/pkg/ports"
)

// DefaultThumbnailWidth is the width annotated frames are scaled down to.
const DefaultThumbnailWidth = 480

// Sink saves debug output under a base directory:
//
//	frames/frame-0000.png   annotated frames, scaled to the thumbnail width
//	observations.jsonl      one JSON line per tracker observation
//	run.json                run result
type Sink struct {
	baseDir    string
	thumbWidth int
	fs         ports.FileSystem
	renderer   ports.Renderer
}

// New creates a new FileSink. A thumbWidth of zero keeps frames at full size.
func New(baseDir string, thumbWidth int, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:    baseDir,
		thumbWidth: thumbWidth,
		fs:         fs,
		renderer:   renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveAnnotatedFrame saves an annotated frame as PNG.
func (s *Sink) SaveAnnotatedFrame(index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}

	b := img.Bounds()
	if s.thumbWidth > 0 && b.Dx() > s.thumbWidth {
		h := b.Dy() * s.thumbWidth / b.Dx()
		if h < 1 {
			h = 1
		}
		img = s.renderer.ResizeImage(img, s.thumbWidth, h)
	}

	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode annotated frame: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%04d.png", index))
	return s.fs.WriteFile(path, data)
}

// SaveObservation appends one observation line.
func (s *Sink) SaveObservation(data []byte) error {
	return s.fs.AppendFile(filepath.Join(s.baseDir, "observations.jsonl"), data)
}

// SaveRunJSON saves the run result.
func (s *Sink) SaveRunJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "run.json"), data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)

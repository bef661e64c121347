// Package pixbuf provides raw multi-plane pixel buffers and the operations the
// tracking pipeline performs on them: duplication and conversion to and from
// a drawable image.
package pixbuf

import (
	"fmt"
	"strings"
)

// Format identifies the memory layout of a pixel buffer.
type Format int

const (
	// FormatUnknown is the zero value and is never valid.
	FormatUnknown Format = iota
	// FormatNV12 is full-range 4:2:0 YCbCr with a luma plane and an
	// interleaved CbCr plane. This is what the decoder produces.
	FormatNV12
	// FormatI420 is full-range 4:2:0 YCbCr with three planes.
	FormatI420
	// FormatBGRA is packed 8-bit B, G, R, A. This is what the encoder consumes.
	FormatBGRA
	// FormatRGBA is packed 8-bit R, G, B, A.
	FormatRGBA
)

var formatNames = map[Format]string{
	FormatNV12: "nv12",
	FormatI420: "i420",
	FormatBGRA: "bgra",
	FormatRGBA: "rgba",
}

// String returns the lower-case name of the format, matching ffmpeg's
// pix_fmt names.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// ParseFormat parses a format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "yuv420p" {
		return FormatI420, nil
	}
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// PlaneCount returns the number of planes for the format.
func (f Format) PlaneCount() int {
	switch f {
	case FormatNV12:
		return 2
	case FormatI420:
		return 3
	case FormatBGRA, FormatRGBA:
		return 1
	}
	return 0
}

// Planar reports whether the format stores its components in more than one plane.
func (f Format) Planar() bool {
	return f.PlaneCount() > 1
}

// planeGeometry returns the meaningful bytes per row and the number of rows
// of plane p for a width x height image.
func (f Format) planeGeometry(p, width, height int) (rowBytes, rows int) {
	cw, ch := (width+1)/2, (height+1)/2
	switch f {
	case FormatNV12:
		if p == 0 {
			return width, height
		}
		return cw * 2, ch
	case FormatI420:
		if p == 0 {
			return width, height
		}
		return cw, ch
	case FormatBGRA, FormatRGBA:
		return width * 4, height
	}
	return 0, 0
}

// FrameSize returns the size in bytes of a tightly packed width x height frame.
func (f Format) FrameSize(width, height int) int {
	total := 0
	for p := 0; p < f.PlaneCount(); p++ {
		rowBytes, rows := f.planeGeometry(p, width, height)
		total += rowBytes * rows
	}
	return total
}

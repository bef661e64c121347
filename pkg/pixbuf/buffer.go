package pixbuf

import "fmt"

type plane struct {
	data   []byte
	stride int
}

// Buffer is a read-only view of a raw pixel buffer. Buffers handed out by a
// decoder may still be referenced by it, so a Buffer has no mutators; obtain a
// Writable through Copy or FromRenderable before drawing.
type Buffer struct {
	format Format
	width  int
	height int
	planes []plane
}

// Wrap creates a Buffer over existing plane memory without copying. strides
// gives the distance in bytes between rows of each plane and must be at least
// the plane's row width.
func Wrap(format Format, width, height int, planes [][]byte, strides []int) (*Buffer, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, width, height)
	}
	n := format.PlaneCount()
	if len(planes) != n || len(strides) != n {
		return nil, fmt.Errorf("%w: %v needs %d planes, got %d", ErrInvalidGeometry, format, n, len(planes))
	}

	b := &Buffer{format: format, width: width, height: height, planes: make([]plane, n)}
	for p := 0; p < n; p++ {
		rowBytes, rows := format.planeGeometry(p, width, height)
		if strides[p] < rowBytes {
			return nil, fmt.Errorf("%w: plane %d stride %d < row bytes %d", ErrInvalidGeometry, p, strides[p], rowBytes)
		}
		if len(planes[p]) < strides[p]*rows {
			return nil, fmt.Errorf("%w: plane %d has %d bytes, need %d", ErrInvalidGeometry, p, len(planes[p]), strides[p]*rows)
		}
		b.planes[p] = plane{data: planes[p], stride: strides[p]}
	}
	return b, nil
}

// WrapPacked creates a Buffer over a tightly packed frame, such as one read
// from an ffmpeg rawvideo pipe.
func WrapPacked(format Format, width, height int, data []byte) (*Buffer, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if len(data) < format.FrameSize(width, height) {
		return nil, fmt.Errorf("%w: %d bytes for %v %dx%d", ErrInvalidGeometry, len(data), format, width, height)
	}
	n := format.PlaneCount()
	planes := make([][]byte, n)
	strides := make([]int, n)
	off := 0
	for p := 0; p < n; p++ {
		rowBytes, rows := format.planeGeometry(p, width, height)
		planes[p] = data[off : off+rowBytes*rows]
		strides[p] = rowBytes
		off += rowBytes * rows
	}
	return Wrap(format, width, height, planes, strides)
}

// Format returns the pixel format.
func (b *Buffer) Format() Format { return b.format }

// Width returns the width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the height in pixels.
func (b *Buffer) Height() int { return b.height }

// PlaneCount returns the number of planes.
func (b *Buffer) PlaneCount() int { return len(b.planes) }

// Stride returns the row stride of plane p in bytes.
func (b *Buffer) Stride(p int) int { return b.planes[p].stride }

// RowBytes returns the number of meaningful bytes per row of plane p,
// excluding padding.
func (b *Buffer) RowBytes(p int) int {
	rowBytes, _ := b.format.planeGeometry(p, b.width, b.height)
	return rowBytes
}

// Rows returns the number of rows in plane p.
func (b *Buffer) Rows(p int) int {
	_, rows := b.format.planeGeometry(p, b.width, b.height)
	return rows
}

// Row returns the meaningful bytes of row y of plane p. The slice must not be
// modified.
func (b *Buffer) Row(p, y int) []byte {
	pl := b.planes[p]
	start := y * pl.stride
	return pl.data[start : start+b.RowBytes(p)]
}

// PlaneBytes returns the raw memory of plane p including row padding. The
// slice must not be modified.
func (b *Buffer) PlaneBytes(p int) []byte {
	pl := b.planes[p]
	return pl.data[:pl.stride*b.Rows(p)]
}

// AppendPacked appends the frame to dst with row padding removed.
func (b *Buffer) AppendPacked(dst []byte) []byte {
	for p := range b.planes {
		for y := 0; y < b.Rows(p); y++ {
			dst = append(dst, b.Row(p, y)...)
		}
	}
	return dst
}

// Writable is an exclusively owned pixel buffer that may be mutated.
type Writable struct {
	Buffer
}

// MutableRow returns row y of plane p for writing.
func (w *Writable) MutableRow(p, y int) []byte {
	pl := w.planes[p]
	start := y * pl.stride
	return pl.data[start : start+w.RowBytes(p)]
}

// MutablePlane returns the memory of plane p, including padding, for writing.
func (w *Writable) MutablePlane(p int) []byte {
	pl := w.planes[p]
	return pl.data[:pl.stride*w.Rows(p)]
}

// View returns the read-only view of the buffer. The Writable must not be
// mutated after the view has been handed to another stage.
func (w *Writable) View() *Buffer {
	return &w.Buffer
}

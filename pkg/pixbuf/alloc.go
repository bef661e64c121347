package pixbuf

import "fmt"

// Allocator creates writable pixel buffers.
type Allocator interface {
	Allocate(format Format, width, height int) (*Writable, error)
}

// AllocatorFunc adapts a function to the Allocator interface.
type AllocatorFunc func(format Format, width, height int) (*Writable, error)

// Allocate implements Allocator.
func (f AllocatorFunc) Allocate(format Format, width, height int) (*Writable, error) {
	return f(format, width, height)
}

// DefaultAlignment is the row alignment used by DefaultAllocator.
const DefaultAlignment = 64

// DefaultAllocator allocates rows aligned to DefaultAlignment bytes.
var DefaultAllocator Allocator = &HeapAllocator{Alignment: DefaultAlignment}

// HeapAllocator allocates buffers on the Go heap.
type HeapAllocator struct {
	// Alignment rounds each row stride up to a multiple of this many bytes.
	// Zero or one produces tightly packed rows.
	Alignment int

	// MaxBytes rejects allocations larger than this many bytes. Zero means
	// no limit.
	MaxBytes int
}

// Allocate implements Allocator.
func (a *HeapAllocator) Allocate(format Format, width, height int) (*Writable, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrAllocation, width, height)
	}

	n := format.PlaneCount()
	strides := make([]int, n)
	total := 0
	for p := 0; p < n; p++ {
		rowBytes, rows := format.planeGeometry(p, width, height)
		strides[p] = align(rowBytes, a.Alignment)
		total += strides[p] * rows
	}
	if a.MaxBytes > 0 && total > a.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrAllocation, total, a.MaxBytes)
	}

	mem := make([]byte, total)
	w := &Writable{Buffer{format: format, width: width, height: height, planes: make([]plane, n)}}
	off := 0
	for p := 0; p < n; p++ {
		_, rows := format.planeGeometry(p, width, height)
		size := strides[p] * rows
		w.planes[p] = plane{data: mem[off : off+size : off+size], stride: strides[p]}
		off += size
	}
	return w, nil
}

func align(n, to int) int {
	if to <= 1 {
		return n
	}
	return (n + to - 1) / to * to
}

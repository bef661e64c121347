package pixbuf

import (
	"errors"
	"fmt"
)

// Copy duplicates src into a newly allocated Writable with the same format and
// dimensions. When the source and destination strides of a plane match the
// plane is copied in one block; otherwise each row is copied separately,
// min(source stride, destination stride) bytes at a time, so decoder row
// padding is tolerated.
func Copy(src *Buffer, alloc Allocator) (*Writable, error) {
	if alloc == nil {
		alloc = DefaultAllocator
	}
	dst, err := alloc.Allocate(src.format, src.width, src.height)
	if err != nil {
		if errors.Is(err, ErrAllocation) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	if dst == nil || dst.format != src.format || dst.width != src.width || dst.height != src.height {
		return nil, fmt.Errorf("%w: allocator returned mismatched buffer", ErrAllocation)
	}

	for p := range src.planes {
		copyPlane(dst.planes[p], src.planes[p], src.Rows(p))
	}
	return dst, nil
}

func copyPlane(dst, src plane, rows int) {
	if dst.stride == src.stride {
		n := src.stride * rows
		copy(dst.data[:n], src.data[:n])
		return
	}
	n := min(src.stride, dst.stride)
	for y := 0; y < rows; y++ {
		s := y * src.stride
		d := y * dst.stride
		copy(dst.data[d:d+n], src.data[s:s+n])
	}
}

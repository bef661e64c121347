package pixbuf

import "errors"

var (
	// ErrAllocation is returned when a destination buffer cannot be allocated.
	ErrAllocation = errors.New("pixbuf: buffer allocation failed")

	// ErrUnsupportedFormat is returned for unknown or unhandled pixel formats.
	ErrUnsupportedFormat = errors.New("pixbuf: unsupported pixel format")

	// ErrInvalidGeometry is returned when plane data does not match the
	// declared dimensions.
	ErrInvalidGeometry = errors.New("pixbuf: invalid buffer geometry")
)

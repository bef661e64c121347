package pipeline

import (
	"fmt"
	"math"
)

// Orientation describes how the encoded frames are rotated relative to their
// upright display. Only the four axis-aligned cases are modeled.
type Orientation int

const (
	Identity Orientation = iota
	Rotate180
	Rotate90CW
	Rotate90CCW
)

// String returns the orientation name.
func (o Orientation) String() string {
	switch o {
	case Identity:
		return "identity"
	case Rotate180:
		return "rotate180"
	case Rotate90CW:
		return "rotate90cw"
	case Rotate90CCW:
		return "rotate90ccw"
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

// EXIF returns the EXIF orientation code for o.
func (o Orientation) EXIF() int {
	switch o {
	case Rotate180:
		return 3
	case Rotate90CW:
		return 8
	case Rotate90CCW:
		return 6
	}
	return 1
}

// SwapsAxes reports whether o exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	return o == Rotate90CW || o == Rotate90CCW
}

// angleTolerance is the slack in degrees when matching a rotation angle.
const angleTolerance = 1e-6

// ClassifyOrientation maps a rotation angle in degrees onto an Orientation.
// 0 maps to Identity, ±180 to Rotate180, 90 to Rotate90CW and -90 to
// Rotate90CCW. Any other angle maps to Identity with ok set to false.
func ClassifyOrientation(degrees float64) (o Orientation, ok bool) {
	switch {
	case near(degrees, 0):
		return Identity, true
	case near(degrees, 180), near(degrees, -180):
		return Rotate180, true
	case near(degrees, 90):
		return Rotate90CW, true
	case near(degrees, -90):
		return Rotate90CCW, true
	}
	return Identity, false
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= angleTolerance
}

// Transform is a 2-D affine transform mapping (x, y) to
// (A·x + C·y + Tx, B·x + D·y + Ty), the layout used by track header
// matrices.
type Transform struct {
	A, B, C, D float64
	Tx, Ty     float64
}

// IdentityTransform leaves every point unchanged.
var IdentityTransform = Transform{A: 1, D: 1}

// RotationTransform returns a rotation by the given angle in degrees.
func RotationTransform(degrees float64) Transform {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Transform{A: round6(cos), B: round6(sin), C: round6(-sin), D: round6(cos)}
}

// Inverted returns the inverse transform. A singular transform is returned
// unchanged.
func (t Transform) Inverted() Transform {
	det := t.A*t.D - t.B*t.C
	if det == 0 {
		return t
	}
	a, b, c, d := t.D/det, -t.B/det, -t.C/det, t.A/det
	return Transform{
		A: a, B: b, C: c, D: d,
		Tx: -(a*t.Tx + c*t.Ty),
		Ty: -(b*t.Tx + d*t.Ty),
	}
}

// RotationDegrees returns atan2(B, A) in degrees.
func (t Transform) RotationDegrees() float64 {
	return math.Atan2(t.B, t.A) * 180 / math.Pi
}

// ApplySize applies the linear part of t to a size.
func (t Transform) ApplySize(width, height float64) (float64, float64) {
	return t.A*width + t.C*height, t.B*width + t.D*height
}

// OrientationOf classifies the inverse of a track's preferred transform.
func OrientationOf(preferred Transform) (o Orientation, degrees float64, ok bool) {
	degrees = preferred.Inverted().RotationDegrees()
	o, ok = ClassifyOrientation(degrees)
	return o, degrees, ok
}

// UprightSize returns the natural size with the preferred transform applied,
// as absolute values.
func UprightSize(preferred Transform, naturalWidth, naturalHeight int) (int, int) {
	w, h := preferred.ApplySize(float64(naturalWidth), float64(naturalHeight))
	return int(math.Round(math.Abs(w))), int(math.Round(math.Abs(h)))
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

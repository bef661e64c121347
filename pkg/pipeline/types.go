package pipeline

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/user/objtrack/pkg/pixbuf"
)

// =============================================================================
// Rational numbers and timestamps
// =============================================================================

// Rational is an exact fraction used for frame rates and durations.
type Rational struct {
	Num int64
	Den int64
}

// NewRational returns num/den reduced to lowest terms with a positive
// denominator.
func NewRational(num, den int64) Rational {
	if den == 0 {
		return Rational{}
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs64(num), den)
	if g > 1 {
		num, den = num/g, den/g
	}
	return Rational{Num: num, Den: den}
}

// ParseRational parses "30000/1001", "30/1" or a decimal such as "29.97".
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
		d, err := strconv.ParseInt(den, 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("parse rational %q: %w", s, err)
		}
		if d == 0 {
			return Rational{}, fmt.Errorf("parse rational %q: zero denominator", s)
		}
		return NewRational(n, d), nil
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Rational{}, fmt.Errorf("parse rational %q: invalid number", s)
	}
	if !r.Num().IsInt64() || !r.Denom().IsInt64() {
		return Rational{}, fmt.Errorf("parse rational %q: out of range", s)
	}
	return NewRational(r.Num().Int64(), r.Denom().Int64()), nil
}

// Positive reports whether r is a usable, strictly positive value.
func (r Rational) Positive() bool {
	return r.Num > 0 && r.Den > 0
}

// Float64 returns r as a float.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// String returns "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func (r Rational) rat() *big.Rat {
	return big.NewRat(r.Num, r.Den)
}

// EstimateFrameCount returns ceil(duration × rate), where duration is in
// seconds. The result is an upper-bound estimate of the number of frames in
// a track, not an exact count.
func EstimateFrameCount(duration, rate Rational) int {
	if !duration.Positive() || !rate.Positive() {
		return 0
	}
	product := new(big.Rat).Mul(duration.rat(), rate.rat())
	q, m := new(big.Int).QuoRem(product.Num(), product.Denom(), new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() || q.Int64() > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(q.Int64())
}

// Timestamp is a presentation time expressed as Value/Scale seconds.
type Timestamp struct {
	Value int64
	Scale int64
}

// FrameTimestamp returns the presentation time of frame n at the given rate:
// exactly n / rate seconds.
func FrameTimestamp(n int, rate Rational) Timestamp {
	return Timestamp{Value: int64(n) * rate.Den, Scale: rate.Num}
}

// Seconds returns the timestamp in seconds.
func (t Timestamp) Seconds() float64 {
	if t.Scale == 0 {
		return 0
	}
	return float64(t.Value) / float64(t.Scale)
}

// Duration returns the timestamp as a time.Duration, rounded to the nearest
// nanosecond.
func (t Timestamp) Duration() time.Duration {
	if t.Scale == 0 {
		return 0
	}
	ns := new(big.Rat).Mul(big.NewRat(t.Value, t.Scale), big.NewRat(int64(time.Second), 1))
	f, _ := ns.Float64()
	return time.Duration(math.Round(f))
}

// Before reports whether t is strictly earlier than u.
func (t Timestamp) Before(u Timestamp) bool {
	return big.NewRat(t.Value, t.Scale).Cmp(big.NewRat(u.Value, u.Scale)) < 0
}

// =============================================================================
// Bounding boxes and observations
// =============================================================================

// Origin selects where normalized y = 0 lies.
type Origin int

const (
	// OriginTopLeft places y = 0 at the top edge of the upright image.
	OriginTopLeft Origin = iota
	// OriginBottomLeft places y = 0 at the bottom edge of the upright image.
	OriginBottomLeft
)

// String returns the config name of the origin.
func (o Origin) String() string {
	if o == OriginBottomLeft {
		return "bottom-left"
	}
	return "top-left"
}

// ParseOrigin parses "top-left" or "bottom-left".
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "top-left", "topleft":
		return OriginTopLeft, nil
	case "bottom-left", "bottomleft":
		return OriginBottomLeft, nil
	}
	return OriginTopLeft, fmt.Errorf("unknown origin %q", s)
}

// ErrInvalidBox is returned by BoundingBox.Validate.
var ErrInvalidBox = errors.New("pipeline: bounding box outside unit square")

// BoundingBox is a rectangle in normalized unit coordinates of the upright
// image.
type BoundingBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Validate checks that every component lies within [0,1], the box is not
// empty and it does not extend past the unit square.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidBox, b)
		}
	}
	if b.Width == 0 || b.Height == 0 {
		return fmt.Errorf("%w: empty box %v", ErrInvalidBox, b)
	}
	if b.X+b.Width > 1+1e-9 || b.Y+b.Height > 1+1e-9 {
		return fmt.Errorf("%w: %v", ErrInvalidBox, b)
	}
	return nil
}

// Clamp returns b with every component forced into [0,1].
func (b BoundingBox) Clamp() BoundingBox {
	return BoundingBox{
		X:      clampUnit(b.X),
		Y:      clampUnit(b.Y),
		Width:  clampUnit(b.Width),
		Height: clampUnit(b.Height),
	}
}

// String formats the box as (x, y, w, h).
func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f, %.3f)", b.X, b.Y, b.Width, b.Height)
}

// ToPixelRect maps b onto a frame buffer. The box is scaled by the upright
// native size and then carried through the inverse of the orientation, so the
// result addresses pixels of the buffer as the decoder laid it out.
func (b BoundingBox) ToPixelRect(nativeWidth, nativeHeight int, o Orientation, origin Origin) image.Rectangle {
	if origin == OriginBottomLeft {
		b.Y = 1 - b.Y - b.Height
	}
	W, H := float64(nativeWidth), float64(nativeHeight)
	x, y, w, h := b.X*W, b.Y*H, b.Width*W, b.Height*H

	switch o {
	case Rotate180:
		x, y = W-x-w, H-y-h
	case Rotate90CCW:
		x, y, w, h = y, W-x-w, h, w
	case Rotate90CW:
		x, y, w, h = H-y-h, x, h, w
	}
	return image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
}

// TrackObservation is one tracker estimate.
type TrackObservation struct {
	Box        BoundingBox
	Confidence float64
}

// Normalize clamps the box and confidence into [0,1].
func (o TrackObservation) Normalize() TrackObservation {
	return TrackObservation{Box: o.Box.Clamp(), Confidence: clampUnit(o.Confidence)}
}

// =============================================================================
// Frames
// =============================================================================

// FrameDescriptor describes every frame of a video.
type FrameDescriptor struct {
	Width       int
	Height      int
	PixelFormat pixbuf.Format
	Orientation Orientation
}

// Frame is a decoded frame and its position in the stream. The buffer is
// owned by exactly one stage at a time.
type Frame struct {
	Buffer *pixbuf.Buffer
	Index  int
}

// =============================================================================
// Overlay
// =============================================================================

// Overlay describes the marker drawn at each tracked position.
type Overlay struct {
	Color       color.Color
	StrokeWidth float64
}

// DefaultOverlay returns the 10-pixel red stroke.
func DefaultOverlay() Overlay {
	return Overlay{
		Color:       color.RGBA{R: 255, A: 255},
		StrokeWidth: 10,
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// =============================================================================
// Annotate Stage Types
// =============================================================================

// AnnotateInput is one frame to draw the overlay on.
type AnnotateInput struct {
	Frame *Frame

	// Rect is the overlay rectangle in buffer pixel coordinates.
	Rect image.Rectangle

	Overlay Overlay

	// OutputFormat is the pixel format handed to the sink.
	OutputFormat pixbuf.Format
}

// AnnotateResult is the annotated copy of a frame.
type AnnotateResult struct {
	// Buffer is an exclusively owned buffer in the requested output format.
	Buffer *pixbuf.Buffer

	// Image is the rendered image the overlay was drawn on.
	Image *image.RGBA
}

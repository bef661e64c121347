package pixbuf

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func TestRenderableRoundTrip_Packed(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 7)
	}

	for _, format := range []Format{FormatBGRA, FormatRGBA} {
		w, err := FromRenderable(img, format, &HeapAllocator{Alignment: 32})
		require.NoError(t, err)

		back, err := ToRenderable(w.View())
		require.NoError(t, err)
		assert.Equal(t, img.Pix, back.Pix, format.String())
	}
}

func TestFromRenderable_BGRAByteOrder(t *testing.T) {
	img := solidImage(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	w, err := FromRenderable(img, FormatBGRA, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{30, 20, 10, 255}, w.Row(0, 0))
}

func TestRenderableRoundTrip_YCbCr(t *testing.T) {
	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 128, G: 128, B: 128, A: 255},
		{R: 200, G: 100, B: 50, A: 255},
	}

	for _, format := range []Format{FormatNV12, FormatI420} {
		for _, c := range colors {
			img := solidImage(5, 3, c)
			w, err := FromRenderable(img, format, nil)
			require.NoError(t, err)

			back, err := ToRenderable(w.View())
			require.NoError(t, err)
			got := back.RGBAAt(4, 2)
			assert.True(t, near(got.R, c.R, 2) && near(got.G, c.G, 2) && near(got.B, c.B, 2),
				"%v: want %v got %v", format, c, got)
			assert.Equal(t, uint8(255), got.A)
		}
	}
}

func TestToRenderable_NV12FullRange(t *testing.T) {
	// Full-range black and white have luma 0 and 255 with neutral chroma.
	data := []byte{
		0, 255,
		255, 0,
		128, 128,
	}
	b, err := WrapPacked(FormatNV12, 2, 2, data)
	require.NoError(t, err)

	img, err := ToRenderable(b)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(1, 0))
}

func TestFromRenderable_OffsetBounds(t *testing.T) {
	base := solidImage(4, 4, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	sub := base.SubImage(image.Rect(1, 1, 3, 3))

	w, err := FromRenderable(sub, FormatRGBA, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Width())
	assert.Equal(t, 2, w.Height())
	assert.Equal(t, []byte{1, 2, 3, 255, 1, 2, 3, 255}, w.Row(0, 1))
}

func TestFromRenderable_AllocationFailure(t *testing.T) {
	img := solidImage(4, 4, color.RGBA{A: 255})
	_, err := FromRenderable(img, FormatBGRA, &HeapAllocator{MaxBytes: 1})
	assert.ErrorIs(t, err, ErrAllocation)
}

package pixbuf

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ToRenderable converts b into an RGBA image that can be drawn on. YCbCr
// formats are treated as full-range BT.601.
func ToRenderable(b *Buffer) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))

	switch b.format {
	case FormatRGBA:
		for y := 0; y < b.height; y++ {
			copy(img.Pix[y*img.Stride:], b.Row(0, y))
		}
	case FormatBGRA:
		for y := 0; y < b.height; y++ {
			src := b.Row(0, y)
			dst := img.Pix[y*img.Stride : y*img.Stride+b.width*4]
			for i := 0; i < len(dst); i += 4 {
				dst[i+0] = src[i+2]
				dst[i+1] = src[i+1]
				dst[i+2] = src[i+0]
				dst[i+3] = src[i+3]
			}
		}
	case FormatNV12, FormatI420:
		for y := 0; y < b.height; y++ {
			luma := b.Row(0, y)
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < b.width; x++ {
				cb, cr := b.chroma(x, y)
				r, g, bl := color.YCbCrToRGB(luma[x], cb, cr)
				i := x * 4
				dst[i+0] = r
				dst[i+1] = g
				dst[i+2] = bl
				dst[i+3] = 0xff
			}
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, b.format)
	}
	return img, nil
}

func (b *Buffer) chroma(x, y int) (cb, cr byte) {
	cx, cy := x/2, y/2
	if b.format == FormatNV12 {
		row := b.Row(1, cy)
		return row[cx*2], row[cx*2+1]
	}
	return b.Row(1, cy)[cx], b.Row(2, cy)[cx]
}

// FromRenderable converts img into a newly allocated buffer of the given
// format. YCbCr formats are written as full-range BT.601 with each chroma
// sample averaged over its 2x2 block.
func FromRenderable(img image.Image, format Format, alloc Allocator) (*Writable, error) {
	if alloc == nil {
		alloc = DefaultAllocator
	}
	rgba := asRGBA(img)
	width, height := rgba.Rect.Dx(), rgba.Rect.Dy()

	dst, err := alloc.Allocate(format, width, height)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatRGBA:
		for y := 0; y < height; y++ {
			copy(dst.MutableRow(0, y), rgba.Pix[y*rgba.Stride:y*rgba.Stride+width*4])
		}
	case FormatBGRA:
		for y := 0; y < height; y++ {
			src := rgba.Pix[y*rgba.Stride:]
			row := dst.MutableRow(0, y)
			for i := 0; i < len(row); i += 4 {
				row[i+0] = src[i+2]
				row[i+1] = src[i+1]
				row[i+2] = src[i+0]
				row[i+3] = src[i+3]
			}
		}
	case FormatNV12, FormatI420:
		writeYCbCr(dst, rgba)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	return dst, nil
}

func writeYCbCr(dst *Writable, src *image.RGBA) {
	width, height := dst.width, dst.height
	for y := 0; y < height; y++ {
		row := dst.MutableRow(0, y)
		pix := src.Pix[y*src.Stride:]
		for x := 0; x < width; x++ {
			i := x * 4
			row[x], _, _ = color.RGBToYCbCr(pix[i], pix[i+1], pix[i+2])
		}
	}

	cw, ch := (width+1)/2, (height+1)/2
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var sumCb, sumCr, n int
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					x, y := cx*2+dx, cy*2+dy
					if x >= width || y >= height {
						continue
					}
					i := y*src.Stride + x*4
					_, cb, cr := color.RGBToYCbCr(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
					sumCb += int(cb)
					sumCr += int(cr)
					n++
				}
			}
			cb, cr := byte((sumCb+n/2)/n), byte((sumCr+n/2)/n)
			if dst.format == FormatNV12 {
				row := dst.MutableRow(1, cy)
				row[cx*2] = cb
				row[cx*2+1] = cr
			} else {
				dst.MutableRow(1, cy)[cx] = cb
				dst.MutableRow(2, cy)[cx] = cr
			}
		}
	}
}

// asRGBA returns img as an *image.RGBA anchored at the origin, converting it
// if necessary.
func asRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

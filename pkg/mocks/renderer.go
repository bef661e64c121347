package mocks

import (
	"image"
	"image/color"

	"github.com/user/objtrack/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	EncodeImageFunc func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc func(img image.Image, width, height int) image.Image

	// Canvases records every canvas handed out.
	Canvases []*Canvas
}

func (m *Renderer) CanvasFor(img *image.RGBA) ports.Canvas {
	c := &Canvas{img: img}
	m.Canvases = append(m.Canvases, c)
	return c
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

var _ ports.Renderer = (*Renderer)(nil)

// StrokeCall records a call to DrawRectStroke.
type StrokeCall struct {
	Rect        image.Rectangle
	Color       color.Color
	StrokeWidth float64
}

// Canvas is a mock implementation of ports.Canvas.
type Canvas struct {
	img *image.RGBA

	Strokes []StrokeCall
	Fills   []image.Rectangle
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {
	m.Fills = append(m.Fills, image.Rect(x, y, x+w, y+h))
}

func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) {
	m.Strokes = append(m.Strokes, StrokeCall{Rect: image.Rect(x, y, x+w, y+h), Color: c, StrokeWidth: strokeWidth})
}

func (m *Canvas) ToImage() image.Image {
	return m.img
}

var _ ports.Canvas = (*Canvas)(nil)

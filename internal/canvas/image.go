package canvas

import (
	"image"
	"image/color"

	"tools.zach/dev/keycap/internal/rgba"
)

// Image is a finished canvas in 8-bit straight alpha. It implements
// [image.Image] and cannot be modified.
type Image struct {
	pix *image.NRGBA
}

// ColorModel implements [image.Image].
func (m *Image) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements [image.Image].
func (m *Image) Bounds() image.Rectangle { return m.pix.Rect }

// At implements [image.Image].
func (m *Image) At(x, y int) color.Color { return m.pix.NRGBAAt(x, y) }

// Width returns the image width in pixels.
func (m *Image) Width() int { return m.pix.Rect.Dx() }

// Height returns the image height in pixels.
func (m *Image) Height() int { return m.pix.Rect.Dy() }

// Pixel returns the straight-alpha color at (x, y), or transparent outside
// the bounds.
func (m *Image) Pixel(x, y int) rgba.Color {
	c := m.pix.NRGBAAt(x, y)
	return rgba.RGBA(c.R, c.G, c.B, c.A)
}

// NRGBA returns a copy of the pixels.
func (m *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(m.pix.Rect)
	copy(out.Pix, m.pix.Pix)
	return out
}

// Package canvas composites text and border decorations onto a fixed-size
// RGBA pixel buffer.
//
// A Canvas starts fully transparent, accepts any number of draw calls in
// order, and is finished exactly once into an immutable [Image]. Pixels are
// held premultiplied at 16 bits per channel and blended with [rgba.Over];
// [Canvas.Finish] converts them back to 8-bit straight alpha. All drawing is
// clipped to the canvas bounds. A Canvas is not safe for concurrent use.
package canvas

import (
	"errors"
	"fmt"
	"image"

	"tools.zach/dev/keycap/internal/border"
	"tools.zach/dev/keycap/internal/rgba"
)

// Key icon sizes.
const (
	KeyIconSize         = 144
	KeyIconStandardSize = 72
)

var (
	// ErrInvalidDimensions is returned by [New] for a non-positive width or
	// height.
	ErrInvalidDimensions = errors.New("invalid canvas dimensions")
	// ErrCanvasFinished is returned by every operation on a canvas that has
	// already been finished.
	ErrCanvasFinished = errors.New("canvas already finished")
)

// Canvas is a drawable pixel buffer.
type Canvas struct {
	buf      *image.RGBA64
	finished bool
}

// New returns a transparent w x h canvas.
func New(w, h int) (*Canvas, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	return &Canvas{buf: image.NewRGBA64(image.Rect(0, 0, w, h))}, nil
}

// KeyIcon returns a 144x144 canvas for high-DPI keys.
func KeyIcon() *Canvas {
	c, _ := New(KeyIconSize, KeyIconSize)
	return c
}

// KeyIconStandard returns a 72x72 canvas for standard keys.
func KeyIconStandard() *Canvas {
	c, _ := New(KeyIconStandardSize, KeyIconStandardSize)
	return c
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.buf.Rect.Dx() }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.buf.Rect.Dy() }

// Finished reports whether [Canvas.Finish] has been called.
func (c *Canvas) Finished() bool { return c.finished }

func (c *Canvas) check() error {
	if c.finished {
		return ErrCanvasFinished
	}
	return nil
}

// blend composites src over the pixel at (x, y). Out-of-bounds pixels are
// ignored.
func (c *Canvas) blend(x, y int, src rgba.Premultiplied) {
	if !(image.Point{X: x, Y: y}).In(c.buf.Rect) || src.A == 0 {
		return
	}
	dst := rgba.FromRGBA64(c.buf.RGBA64At(x, y))
	c.buf.SetRGBA64(x, y, rgba.Over(src, dst).RGBA64())
}

// ///////////////////////////////////////////////
// Fill and Lines
// ///////////////////////////////////////////////

// Fill composites col over every pixel. Filling with a transparent color
// leaves the canvas unchanged.
func (c *Canvas) Fill(col rgba.Color) error {
	if err := c.check(); err != nil {
		return err
	}
	src := col.Premultiply()
	if src.A == 0 {
		return nil
	}
	b := c.buf.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c.blend(x, y, src)
		}
	}
	return nil
}

// DrawHorizontalLine composites a 1px line of col across row y. Rows
// outside the canvas draw nothing.
func (c *Canvas) DrawHorizontalLine(y int, col rgba.Color) error {
	if err := c.check(); err != nil {
		return err
	}
	if y < 0 || y >= c.Height() {
		return nil
	}
	src := col.Premultiply()
	for x := range c.Width() {
		c.blend(x, y, src)
	}
	return nil
}

// ///////////////////////////////////////////////
// Borders
// ///////////////////////////////////////////////

// DrawBorder composites a border decoration over the canvas. The rounded
// rectangle spans the full canvas; [border.None] draws nothing.
func (c *Canvas) DrawBorder(s border.Style) error {
	if err := c.check(); err != nil {
		return err
	}
	if s == nil || s.Kind() == border.KindNone {
		return nil
	}
	src := s.Paint().Premultiply()
	if src.A == 0 {
		return nil
	}
	w, h := c.Width(), c.Height()
	for y := range h {
		for x := range w {
			if a := s.Alpha(w, h, x, y); a > 0 {
				c.blend(x, y, rgba.Scale(src, a))
			}
		}
	}
	return nil
}

// ///////////////////////////////////////////////
// Finish
// ///////////////////////////////////////////////

// Finish converts the canvas into an immutable [Image]. Every later call,
// including a second Finish, returns [ErrCanvasFinished].
func (c *Canvas) Finish() (*Image, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	c.finished = true

	b := c.buf.Rect
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := rgba.FromRGBA64(c.buf.RGBA64At(x, y)).Unpremultiply()
			out.SetNRGBA(x, y, px.NRGBA())
		}
	}
	return &Image{pix: out}, nil
}

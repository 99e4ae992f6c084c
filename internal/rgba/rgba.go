// Package rgba is the color model shared by every compositing pass.
//
// Colors cross package boundaries in straight alpha ([Color]). Blending works
// on [Premultiplied] values carried at 16 bits per channel, the same scale
// image/color.RGBA64 uses, so an 8-bit color survives a premultiply and
// unpremultiply round trip exactly whenever its alpha is non-zero.
package rgba

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned when a hex color string cannot be parsed.
var ErrInvalidColor = errors.New("invalid hex color")

// ///////////////////////////////////////////////
// Straight Alpha
// ///////////////////////////////////////////////

// Color is an 8-bit straight-alpha color. A = 255 is fully opaque.
type Color struct {
	R, G, B, A uint8
}

// Named colors.
var (
	White       = RGB(255, 255, 255)
	Black       = RGB(0, 0, 0)
	Transparent = RGBA(0, 0, 0, 0)
)

// RGBA returns the color with the given channels.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color {
	return RGBA(r, g, b, 255)
}

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a uint8) Color {
	c.A = a
	return c
}

// ParseHex parses "#RRGGBB" or "#RRGGBBAA". The leading "#" is optional and
// the digits are case-insensitive.
func ParseHex(s string) (Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("%w %q: must be 6 or 8 hex digits", ErrInvalidColor, s)
	}
	var ch [4]uint8
	ch[3] = 255
	for i := 0; i < len(hex); i += 2 {
		v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w %q: %v", ErrInvalidColor, s, err)
		}
		ch[i/2] = uint8(v)
	}
	return RGBA(ch[0], ch[1], ch[2], ch[3]), nil
}

// Hex formats c as "#rrggbb", or "#rrggbbaa" when c is not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// String implements [fmt.Stringer].
func (c Color) String() string { return c.Hex() }

// MarshalText encodes c as a hex string.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText decodes a hex string produced by [Color.MarshalText] or
// accepted by [ParseHex].
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RGBA implements [color.Color], returning 16-bit premultiplied channels.
func (c Color) RGBA() (r, g, b, a uint32) {
	p := c.Premultiply()
	return uint32(p.R), uint32(p.G), uint32(p.B), uint32(p.A)
}

// NRGBA converts c to the standard library's straight-alpha type.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// ///////////////////////////////////////////////
// Premultiplied Alpha
// ///////////////////////////////////////////////

// maxChannel is the full-scale value of a premultiplied channel.
const maxChannel = 0xffff

// Premultiplied is a color whose RGB channels are pre-scaled by alpha,
// stored at 16 bits per channel. R, G and B never exceed A.
type Premultiplied struct {
	R, G, B, A uint16
}

// Premultiply converts c to premultiplied form, rounding half up.
func (c Color) Premultiply() Premultiplied {
	a := uint32(c.A)
	mul := func(v uint8) uint16 {
		// round(v * a * 257 / 255)
		return uint16((uint32(v)*a*257*2 + 255) / 510)
	}
	return Premultiplied{R: mul(c.R), G: mul(c.G), B: mul(c.B), A: uint16(a * 257)}
}

// Unpremultiply converts p back to 8-bit straight alpha. A zero alpha has
// no recoverable color and yields [Transparent].
func (p Premultiplied) Unpremultiply() Color {
	if p.A == 0 {
		return Transparent
	}
	a := uint32(p.A)
	div := func(v uint16) uint8 {
		n := (uint32(v)*255*2 + a) / (2 * a)
		if n > 255 {
			n = 255
		}
		return uint8(n)
	}
	return Color{R: div(p.R), G: div(p.G), B: div(p.B), A: uint8((a*2 + 257) / 514)}
}

// Over composites src over dst: dst' = src + dst*(1 - src.A).
func Over(src, dst Premultiplied) Premultiplied {
	inv := uint32(maxChannel - src.A)
	blend := func(s, d uint16) uint16 {
		n := uint32(s) + (uint32(d)*inv+maxChannel/2)/maxChannel
		if n > maxChannel {
			n = maxChannel
		}
		return uint16(n)
	}
	return Premultiplied{
		R: blend(src.R, dst.R),
		G: blend(src.G, dst.G),
		B: blend(src.B, dst.B),
		A: blend(src.A, dst.A),
	}
}

// Scale multiplies every channel of p by f, clamped to [0, 1]. Coverage
// masks and border falloffs use it as a per-pixel alpha multiplier.
func Scale(p Premultiplied, f float64) Premultiplied {
	switch {
	case f <= 0:
		return Premultiplied{}
	case f >= 1:
		return p
	}
	mul := func(v uint16) uint16 { return uint16(float64(v)*f + 0.5) }
	return Premultiplied{R: mul(p.R), G: mul(p.G), B: mul(p.B), A: mul(p.A)}
}

// RGBA64 converts p to the standard library's premultiplied type.
func (p Premultiplied) RGBA64() color.RGBA64 {
	return color.RGBA64{R: p.R, G: p.G, B: p.B, A: p.A}
}

// FromRGBA64 converts a standard library premultiplied color.
func FromRGBA64(c color.RGBA64) Premultiplied {
	return Premultiplied{R: c.R, G: c.G, B: c.B, A: c.A}
}

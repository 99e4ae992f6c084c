// Package glyph is the boundary between keycap and font rasterization.
//
// Layout and compositing code only ever see the [Source] interface: advance
// widths, coverage masks, and vertical metrics keyed by an opaque [Handle].
// [Registry] is the production Source, backed by golang.org/x/image's
// OpenType rasterizer. Tests substitute the deterministic source in
// glyph/glyphtest.
package glyph

import (
	"errors"
	"image"
)

// ErrFontUnavailable is returned when a [Handle] does not refer to a font
// that is currently registered with the [Source].
var ErrFontUnavailable = errors.New("font unavailable")

// Handle is an opaque reference to a loaded font. The zero Handle is never
// valid. Handles are comparable and cheap to copy.
type Handle struct {
	name string
	id   uint64
}

// NewHandle builds a Handle for a Source implementation living outside this
// package. id must be non-zero.
func NewHandle(name string, id uint64) Handle {
	return Handle{name: name, id: id}
}

// Name returns the name the font was registered under.
func (h Handle) Name() string { return h.name }

// ID returns the source-specific identity of the handle.
func (h Handle) ID() uint64 { return h.id }

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.id == 0 }

// Mask is the coverage of one rasterized glyph. Offset locates the
// top-left corner of Coverage relative to the pen position on the baseline.
type Mask struct {
	Coverage *image.Alpha
	Offset   image.Point
}

// Metrics holds the vertical metrics of a font at one pixel size.
type Metrics struct {
	// Ascent is the distance from the baseline to the top of the line.
	Ascent float64
	// Descent is the distance from the baseline to the bottom of the line,
	// as a positive number.
	Descent float64
	// LineGap is the font's recommended extra spacing between lines.
	LineGap float64
}

// Height returns Ascent + Descent.
func (m Metrics) Height() float64 { return m.Ascent + m.Descent }

// Source produces glyph geometry for a font handle at a pixel size.
//
// Implementations must be safe for concurrent use when renders share fonts.
// A rune the font does not cover yields the font's fallback (notdef) glyph
// or a zero advance; it is never an error.
type Source interface {
	// Valid reports whether h refers to a usable font.
	Valid(h Handle) bool
	// Advance returns the horizontal advance of r in pixels.
	Advance(h Handle, size float64, r rune) float64
	// Rasterize returns the coverage mask for r. ok is false for glyphs
	// with no visible pixels, such as spaces.
	Rasterize(h Handle, size float64, r rune) (m Mask, ok bool)
	// Metrics returns the vertical metrics of the font at size.
	Metrics(h Handle, size float64) Metrics
}

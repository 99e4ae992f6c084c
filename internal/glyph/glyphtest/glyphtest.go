// Package glyphtest provides a deterministic [glyph.Source] for tests.
//
// [Monospace] gives every rune the same advance, proportional to the pixel
// size, and rasterizes every non-space rune as a solid box sitting on the
// baseline. Layout and compositing results computed against it can be
// checked by hand.
package glyphtest

import (
	"image"
	"math"
	"sync"
	"unicode"

	"tools.zach/dev/keycap/internal/glyph"
)

// Monospace is a fixed-advance [glyph.Source].
type Monospace struct {
	// EmAdvance is the advance of every rune as a fraction of the size.
	EmAdvance float64
	// EmAscent and EmDescent are the vertical metrics as fractions of the size.
	EmAscent, EmDescent float64

	mu      sync.Mutex
	next    uint64
	revoked map[uint64]bool
}

// New returns a Monospace source whose glyphs advance half the pixel size,
// so a size of 20 yields 10px per rune.
func New() *Monospace {
	return &Monospace{EmAdvance: 0.5, EmAscent: 0.8, EmDescent: 0.2}
}

// Handle issues a new valid handle named name.
func (m *Monospace) Handle(name string) glyph.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return glyph.NewHandle(name, m.next)
}

// Revoke invalidates h.
func (m *Monospace) Revoke(h glyph.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = make(map[uint64]bool)
	}
	m.revoked[h.ID()] = true
}

// Valid implements [glyph.Source].
func (m *Monospace) Valid(h glyph.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !h.IsZero() && h.ID() <= m.next && !m.revoked[h.ID()]
}

// Advance implements [glyph.Source].
func (m *Monospace) Advance(h glyph.Handle, size float64, r rune) float64 {
	if size <= 0 || !m.Valid(h) {
		return 0
	}
	return size * m.EmAdvance
}

// Rasterize implements [glyph.Source]. Visible runes become a fully covered
// box one advance wide and one ascent tall, resting on the baseline.
func (m *Monospace) Rasterize(h glyph.Handle, size float64, r rune) (glyph.Mask, bool) {
	if size <= 0 || unicode.IsSpace(r) || !m.Valid(h) {
		return glyph.Mask{}, false
	}
	w := int(math.Round(size * m.EmAdvance))
	ht := int(math.Round(size * m.EmAscent))
	if w <= 0 || ht <= 0 {
		return glyph.Mask{}, false
	}
	cov := image.NewAlpha(image.Rect(0, 0, w, ht))
	for i := range cov.Pix {
		cov.Pix[i] = 0xff
	}
	return glyph.Mask{Coverage: cov, Offset: image.Pt(0, -ht)}, true
}

// Metrics implements [glyph.Source].
func (m *Monospace) Metrics(h glyph.Handle, size float64) glyph.Metrics {
	if size <= 0 || !m.Valid(h) {
		return glyph.Metrics{}
	}
	return glyph.Metrics{Ascent: size * m.EmAscent, Descent: size * m.EmDescent}
}

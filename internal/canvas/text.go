package canvas

import (
	"fmt"
	"image"
	"math"
	"strings"

	"tools.zach/dev/keycap/internal/glyph"
	"tools.zach/dev/keycap/internal/layout"
	"tools.zach/dev/keycap/internal/rgba"
)

// maxCoord bounds pen positions before they are converted to pixels.
const maxCoord = 1 << 24

// ///////////////////////////////////////////////
// Alignment
// ///////////////////////////////////////////////

// HAlign positions each line horizontally.
type HAlign int

const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
)

// VAlign positions the text block vertically.
type VAlign int

const (
	AlignTop VAlign = iota
	AlignMiddle
	AlignBottom
	// AlignBaseline puts the first baseline at [TextStyle.Baseline].
	AlignBaseline
)

// ParseHAlign converts left, center, or right.
func ParseHAlign(s string) (HAlign, error) {
	switch strings.ToLower(s) {
	case "left":
		return AlignLeft, nil
	case "", "center", "centre":
		return AlignCenter, nil
	case "right":
		return AlignRight, nil
	}
	return 0, fmt.Errorf("invalid horizontal alignment %q: must be left, center, or right", s)
}

func (a HAlign) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	default:
		return "center"
	}
}

// ParseVAlign converts top, center, bottom, or baseline.
func ParseVAlign(s string) (VAlign, error) {
	switch strings.ToLower(s) {
	case "top":
		return AlignTop, nil
	case "", "center", "centre", "middle":
		return AlignMiddle, nil
	case "bottom":
		return AlignBottom, nil
	case "baseline":
		return AlignBaseline, nil
	}
	return 0, fmt.Errorf("invalid vertical alignment %q: must be top, center, bottom, or baseline", s)
}

func (a VAlign) String() string {
	switch a {
	case AlignTop:
		return "top"
	case AlignBottom:
		return "bottom"
	case AlignBaseline:
		return "baseline"
	default:
		return "center"
	}
}

// TextStyle configures one [Canvas.DrawText] call.
type TextStyle struct {
	Font   glyph.Handle
	Size   float64
	Color  rgba.Color
	HAlign HAlign
	VAlign VAlign
	// Baseline is the y of the first baseline when VAlign is AlignBaseline.
	Baseline float64
	// LineGap is the extra space between consecutive lines, in pixels.
	LineGap float64
	// Inset keeps left- and right-aligned lines this far from the edges.
	Inset float64
}

// NewTextStyle returns white text centered on both axes.
func NewTextStyle(font glyph.Handle, size float64) TextStyle {
	return TextStyle{
		Font:   font,
		Size:   size,
		Color:  rgba.White,
		HAlign: AlignCenter,
		VAlign: AlignMiddle,
	}
}

// ///////////////////////////////////////////////
// Drawing
// ///////////////////////////////////////////////

// DrawText composites lines top to bottom using glyphs from src. Each
// line's x comes from its measured width and the horizontal alignment. The
// block is ascent+descent tall per line plus LineGap between lines and is
// placed by the vertical alignment. Glyph coverage scales the text color.
func (c *Canvas) DrawText(src glyph.Source, lines []layout.Line, st TextStyle) error {
	if err := c.check(); err != nil {
		return err
	}
	if !src.Valid(st.Font) {
		return fmt.Errorf("%w: %q", glyph.ErrFontUnavailable, st.Font.Name())
	}
	if len(lines) == 0 || !validSize(st.Size) {
		return nil
	}
	paint := st.Color.Premultiply()
	if paint.A == 0 {
		return nil
	}

	m := src.Metrics(st.Font, st.Size)
	lineH := m.Height()
	step := lineH + st.LineGap
	n := float64(len(lines))
	blockH := n*lineH + (n-1)*st.LineGap
	w, h := float64(c.Width()), float64(c.Height())

	var first float64
	switch st.VAlign {
	case AlignTop:
		first = m.Ascent
	case AlignBottom:
		first = h - blockH + m.Ascent
	case AlignBaseline:
		first = st.Baseline
	default:
		first = (h-blockH)/2 + m.Ascent
	}

	for i, line := range lines {
		var x float64
		switch st.HAlign {
		case AlignLeft:
			x = st.Inset
		case AlignRight:
			x = w - st.Inset - line.Width
		default:
			x = (w - line.Width) / 2
		}
		c.drawLine(src, line.Text, st, paint, x, first+float64(i)*step)
	}
	return nil
}

// drawLine composites one line with its pen starting at (x, baseline).
func (c *Canvas) drawLine(src glyph.Source, text string, st TextStyle, paint rgba.Premultiplied, x, baseline float64) {
	by, ok := toPixel(baseline)
	if !ok {
		return
	}
	pen := x
	for _, r := range text {
		px, ok := toPixel(pen)
		if !ok {
			return
		}
		if mask, ok := src.Rasterize(st.Font, st.Size, r); ok {
			c.drawMask(mask, image.Pt(px, by), paint)
		}
		pen += src.Advance(st.Font, st.Size, r)
	}
}

// drawMask composites paint through a glyph mask whose pen position is
// origin.
func (c *Canvas) drawMask(mask glyph.Mask, origin image.Point, paint rgba.Premultiplied) {
	cov := mask.Coverage
	if cov == nil {
		return
	}
	src := cov.Rect
	dst := src.Sub(src.Min).Add(origin.Add(mask.Offset))
	clip := dst.Intersect(c.buf.Rect)
	if clip.Empty() {
		return
	}
	shift := src.Min.Sub(dst.Min)
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			a := cov.AlphaAt(x+shift.X, y+shift.Y).A
			if a == 0 {
				continue
			}
			if a == 0xff {
				c.blend(x, y, paint)
				continue
			}
			c.blend(x, y, rgba.Scale(paint, float64(a)/0xff))
		}
	}
}

// toPixel rounds a pen coordinate to the pixel grid, rejecting values that
// cannot be placed.
func toPixel(v float64) (int, bool) {
	if math.IsNaN(v) || math.Abs(v) > maxCoord {
		return 0, false
	}
	return int(math.Round(v)), true
}

func validSize(size float64) bool {
	return size > 0 && !math.IsInf(size, 1)
}

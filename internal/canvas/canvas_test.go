// canvas_test.go tests [Canvas] construction, [Canvas.Fill],
// [Canvas.DrawBorder], [Canvas.DrawText], [Canvas.DrawHorizontalLine], the
// finish transition, and clipping on tiny canvases.

package canvas

import (
	"errors"
	"image"
	"math"
	"testing"

	"tools.zach/dev/keycap/internal/border"
	"tools.zach/dev/keycap/internal/glyph"
	"tools.zach/dev/keycap/internal/glyph/glyphtest"
	"tools.zach/dev/keycap/internal/layout"
	"tools.zach/dev/keycap/internal/rgba"
)

func newCanvas(t *testing.T, w, h int) *Canvas {
	t.Helper()
	c, err := New(w, h)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", w, h, err)
	}
	return c
}

func finish(t *testing.T, c *Canvas) *Image {
	t.Helper()
	img, err := c.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return img
}

// ///////////////////////////////////////////////
// Construction and Finish
// ///////////////////////////////////////////////

func TestNewInvalidDimensions(t *testing.T) {
	for _, d := range [][2]int{{0, 10}, {10, 0}, {-1, 5}, {0, 0}} {
		if _, err := New(d[0], d[1]); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("New(%d, %d) error = %v, want ErrInvalidDimensions", d[0], d[1], err)
		}
	}
}

func TestPresets(t *testing.T) {
	if c := KeyIcon(); c.Width() != 144 || c.Height() != 144 {
		t.Errorf("KeyIcon = %dx%d", c.Width(), c.Height())
	}
	if c := KeyIconStandard(); c.Width() != 72 || c.Height() != 72 {
		t.Errorf("KeyIconStandard = %dx%d", c.Width(), c.Height())
	}
}

func TestNewIsTransparent(t *testing.T) {
	img := finish(t, newCanvas(t, 3, 2))
	if img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("Bounds = %v", img.Bounds())
	}
	for y := range 2 {
		for x := range 3 {
			if got := img.Pixel(x, y); got != rgba.Transparent {
				t.Errorf("pixel (%d,%d) = %v, want transparent", x, y, got)
			}
		}
	}
}

func TestFinishedCanvasRejectsDrawing(t *testing.T) {
	c := newCanvas(t, 4, 4)
	img := finish(t, c)
	src := glyphtest.New()
	h := src.Handle("mono")

	ops := map[string]func() error{
		"Fill":               func() error { return c.Fill(rgba.White) },
		"DrawBorder":         func() error { return c.DrawBorder(border.None{}) },
		"DrawHorizontalLine": func() error { return c.DrawHorizontalLine(0, rgba.White) },
		"DrawText":           func() error { return c.DrawText(src, nil, NewTextStyle(h, 10)) },
		"Finish":             func() error { _, err := c.Finish(); return err },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrCanvasFinished) {
			t.Errorf("%s after Finish: error = %v, want ErrCanvasFinished", name, err)
		}
	}
	if !c.Finished() {
		t.Error("Finished() = false")
	}
	if got := img.Pixel(0, 0); got != rgba.Transparent {
		t.Errorf("image changed after rejected draws: %v", got)
	}
}

func TestImageNRGBAIsCopy(t *testing.T) {
	c := newCanvas(t, 2, 2)
	_ = c.Fill(rgba.Black)
	img := finish(t, c)
	cp := img.NRGBA()
	cp.Pix[0] = 99
	if img.Pixel(0, 0) != rgba.Black {
		t.Error("NRGBA() exposed the image's backing pixels")
	}
}

// ///////////////////////////////////////////////
// Fill and Lines
// ///////////////////////////////////////////////

func TestFill(t *testing.T) {
	tests := []struct {
		name  string
		fills []rgba.Color
		want  rgba.Color
	}{
		{"opaque", []rgba.Color{rgba.Black}, rgba.Black},
		{"half red over nothing", []rgba.Color{rgba.RGBA(255, 0, 0, 128)}, rgba.RGBA(255, 0, 0, 128)},
		{"half white over black", []rgba.Color{rgba.Black, rgba.RGBA(255, 255, 255, 128)}, rgba.RGB(128, 128, 128)},
		{"transparent is a no-op", []rgba.Color{rgba.RGB(10, 20, 30), rgba.Transparent}, rgba.RGB(10, 20, 30)},
		{"transparent colored is a no-op", []rgba.Color{rgba.RGB(10, 20, 30), rgba.RGBA(255, 0, 0, 0)}, rgba.RGB(10, 20, 30)},
		{"opaque replaces", []rgba.Color{rgba.Black, rgba.White}, rgba.White},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCanvas(t, 3, 3)
			for _, f := range tt.fills {
				if err := c.Fill(f); err != nil {
					t.Fatal(err)
				}
			}
			img := finish(t, c)
			if got := img.Pixel(1, 1); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrawHorizontalLine(t *testing.T) {
	c := newCanvas(t, 5, 5)
	_ = c.Fill(rgba.Black)
	for _, y := range []int{2, -1, 5, 1 << 30} {
		if err := c.DrawHorizontalLine(y, rgba.White); err != nil {
			t.Fatal(err)
		}
	}
	img := finish(t, c)
	for x := range 5 {
		if img.Pixel(x, 2) != rgba.White {
			t.Errorf("(%d,2) = %v, want white", x, img.Pixel(x, 2))
		}
		if img.Pixel(x, 1) != rgba.Black || img.Pixel(x, 3) != rgba.Black {
			t.Errorf("line bled outside row 2 at x=%d", x)
		}
	}
}

// ///////////////////////////////////////////////
// Borders
// ///////////////////////////////////////////////

func TestSolidBorderOnBlack(t *testing.T) {
	c := newCanvas(t, 100, 100)
	_ = c.Fill(rgba.Black)
	if err := c.DrawBorder(border.Solid{Thickness: 4, Color: rgba.White}); err != nil {
		t.Fatal(err)
	}
	img := finish(t, c)
	tests := []struct {
		x, y int
		want rgba.Color
	}{
		{0, 50, rgba.White},
		{99, 50, rgba.White},
		{50, 0, rgba.White},
		{3, 50, rgba.White},
		{4, 50, rgba.Black},
		{50, 50, rgba.Black},
	}
	for _, tt := range tests {
		if got := img.Pixel(tt.x, tt.y); got != tt.want {
			t.Errorf("(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestVignetteBorder(t *testing.T) {
	c := newCanvas(t, 100, 100)
	if err := c.DrawBorder(border.Vignette{FadeWidth: 10, Color: rgba.White}); err != nil {
		t.Fatal(err)
	}
	img := finish(t, c)
	if a := img.Pixel(0, 50).A; a != 255 {
		t.Errorf("edge alpha = %d, want 255", a)
	}
	if a := img.Pixel(15, 50).A; a != 0 {
		t.Errorf("alpha beyond fade = %d, want 0", a)
	}
	if a := img.Pixel(5, 50).A; a < 120 || a > 135 {
		t.Errorf("midpoint alpha = %d, want about 128", a)
	}
	if a := img.Pixel(50, 50).A; a != 0 {
		t.Errorf("center alpha = %d, want 0", a)
	}
}

func TestRoundedBorderLeavesCornersClear(t *testing.T) {
	c := newCanvas(t, 144, 144)
	_ = c.DrawBorder(border.Solid{Thickness: 3, Radius: 24, Color: rgba.White})
	img := finish(t, c)
	if a := img.Pixel(0, 0).A; a != 0 {
		t.Errorf("corner alpha = %d, want 0 outside the rounded edge", a)
	}
	if a := img.Pixel(0, 72).A; a != 255 {
		t.Errorf("edge alpha = %d, want 255", a)
	}
}

func TestNoneBorderIsNoop(t *testing.T) {
	c := newCanvas(t, 10, 10)
	_ = c.Fill(rgba.RGB(1, 2, 3))
	_ = c.DrawBorder(border.None{})
	_ = c.DrawBorder(nil)
	_ = c.DrawBorder(border.Solid{Thickness: 4, Color: rgba.Transparent})
	img := finish(t, c)
	if got := img.Pixel(0, 0); got != rgba.RGB(1, 2, 3) {
		t.Errorf("pixel = %v", got)
	}
}

// ///////////////////////////////////////////////
// Text
// ///////////////////////////////////////////////

// At size 20 the glyphtest source gives 10px advances, 16px tall boxes
// resting on the baseline, and 20px lines.
func drawText(t *testing.T, lines []string, mutate func(*TextStyle)) *Image {
	t.Helper()
	src := glyphtest.New()
	h := src.Handle("mono")
	c := newCanvas(t, 100, 100)
	ls := make([]layout.Line, len(lines))
	for i, s := range lines {
		w, _ := layout.Measure(src, h, 20, s)
		ls[i] = layout.Line{Text: s, Width: w}
	}
	st := NewTextStyle(h, 20)
	if mutate != nil {
		mutate(&st)
	}
	if err := c.DrawText(src, ls, st); err != nil {
		t.Fatalf("DrawText: %v", err)
	}
	return finish(t, c)
}

// inked reports which of the given points are opaque.
func inked(img *Image, pts ...image.Point) []bool {
	out := make([]bool, len(pts))
	for i, p := range pts {
		out[i] = img.Pixel(p.X, p.Y).A == 255
	}
	return out
}

func TestDrawTextCentered(t *testing.T) {
	img := drawText(t, []string{"AB"}, nil)
	// Block: one 20px line centered => baseline 56, glyphs span rows 40..55
	// and columns 40..59.
	want := map[image.Point]bool{
		{45, 45}: true,
		{40, 40}: true,
		{59, 55}: true,
		{39, 45}: false,
		{60, 45}: false,
		{45, 39}: false,
		{45, 56}: false,
	}
	for p, w := range want {
		if got := inked(img, p)[0]; got != w {
			t.Errorf("%v inked = %v, want %v", p, got, w)
		}
	}
	if img.Pixel(45, 45) != rgba.White {
		t.Errorf("glyph color = %v, want white", img.Pixel(45, 45))
	}
}

func TestDrawTextAlignment(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TextStyle)
		in     image.Point
		out    image.Point
	}{
		{"left", func(s *TextStyle) { s.HAlign = AlignLeft }, image.Pt(0, 45), image.Pt(20, 45)},
		{"right", func(s *TextStyle) { s.HAlign = AlignRight }, image.Pt(99, 45), image.Pt(79, 45)},
		{"top", func(s *TextStyle) { s.VAlign = AlignTop }, image.Pt(45, 0), image.Pt(45, 16)},
		{"bottom", func(s *TextStyle) { s.VAlign = AlignBottom }, image.Pt(45, 80), image.Pt(45, 79)},
		{"baseline", func(s *TextStyle) { s.VAlign = AlignBaseline; s.Baseline = 30 }, image.Pt(45, 29), image.Pt(45, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := drawText(t, []string{"AB"}, tt.mutate)
			got := inked(img, tt.in, tt.out)
			if !got[0] || got[1] {
				t.Errorf("inked(%v, %v) = %v, want [true false]", tt.in, tt.out, got)
			}
		})
	}
}

func TestDrawTextMultiline(t *testing.T) {
	// Two 20px lines with a 4px gap: block 44px, baselines at 44 and 68.
	img := drawText(t, []string{"A", "B"}, func(s *TextStyle) { s.LineGap = 4 })
	got := inked(img,
		image.Pt(50, 28), // line 1 top row
		image.Pt(50, 43), // line 1 bottom row
		image.Pt(50, 44), // gap
		image.Pt(50, 52), // line 2 top row
		image.Pt(50, 67), // line 2 bottom row
		image.Pt(50, 68), // below
	)
	want := []bool{true, true, false, true, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("inked = %v, want %v", got, want)
			break
		}
	}
}

func TestDrawTextEmptyLineAdvancesBlock(t *testing.T) {
	img := drawText(t, []string{"A", "", "B"}, func(s *TextStyle) { s.VAlign = AlignTop })
	got := inked(img, image.Pt(50, 5), image.Pt(50, 25), image.Pt(50, 45))
	if !got[0] || got[1] || !got[2] {
		t.Errorf("inked = %v, want [true false true]", got)
	}
}

func TestDrawTextColorAndCoverage(t *testing.T) {
	img := drawText(t, []string{"A"}, func(s *TextStyle) { s.Color = rgba.RGBA(255, 0, 0, 128) })
	if got := img.Pixel(50, 50); got != rgba.RGBA(255, 0, 0, 128) {
		t.Errorf("pixel = %v, want half red", got)
	}
}

func TestDrawTextUnavailableFont(t *testing.T) {
	src := glyphtest.New()
	h := src.Handle("mono")
	src.Revoke(h)
	c := newCanvas(t, 10, 10)
	err := c.DrawText(src, []layout.Line{{Text: "x", Width: 10}}, NewTextStyle(h, 20))
	if !errors.Is(err, glyph.ErrFontUnavailable) {
		t.Errorf("error = %v, want ErrFontUnavailable", err)
	}
}

// ///////////////////////////////////////////////
// Clipping
// ///////////////////////////////////////////////

// TestClippingOnTinyCanvases throws out-of-range parameters at small
// canvases. Nothing may panic and no error other than the expected ones may
// surface.
func TestClippingOnTinyCanvases(t *testing.T) {
	src := glyphtest.New()
	h := src.Handle("mono")
	sizes := []float64{-5, 0, 0.1, 1, 20, 400, math.Inf(1), math.NaN()}
	widths := []float64{-1e9, -50, 0, 3, 1e12, math.NaN(), math.Inf(-1)}
	borders := []border.Style{
		border.None{},
		border.Solid{Thickness: 1e6, Radius: 1e6, Color: rgba.White},
		border.Solid{Thickness: -3, Radius: -3, Color: rgba.White},
		border.Solid{Thickness: math.NaN(), Radius: math.NaN(), Color: rgba.White},
		border.Vignette{FadeWidth: 1e-9, Radius: 0.5, Color: rgba.White},
		border.Vignette{FadeWidth: -1, Radius: 1e9, Color: rgba.White},
		border.Vignette{FadeWidth: math.Inf(1), Radius: math.Inf(1), Color: rgba.White},
	}
	for _, dim := range [][2]int{{1, 1}, {1, 7}, {3, 2}} {
		c := newCanvas(t, dim[0], dim[1])
		_ = c.Fill(rgba.RGBA(0, 0, 255, 200))
		for _, b := range borders {
			if err := c.DrawBorder(b); err != nil {
				t.Fatalf("DrawBorder(%#v): %v", b, err)
			}
		}
		for _, y := range []int{-1, 0, 1, 1000} {
			_ = c.DrawHorizontalLine(y, rgba.White)
		}
		for _, size := range sizes {
			for _, w := range widths {
				for _, va := range []VAlign{AlignTop, AlignMiddle, AlignBottom, AlignBaseline} {
					st := NewTextStyle(h, size)
					st.VAlign = va
					st.Baseline = w
					st.LineGap = w
					lines := []layout.Line{{Text: "Wide text", Width: w}, {Text: "x", Width: 10}}
					if err := c.DrawText(src, lines, st); err != nil {
						t.Fatalf("DrawText(size=%v, w=%v): %v", size, w, err)
					}
				}
			}
		}
		img := finish(t, c)
		if img.Width() != dim[0] || img.Height() != dim[1] {
			t.Errorf("image = %dx%d, want %v", img.Width(), img.Height(), dim)
		}
	}
}

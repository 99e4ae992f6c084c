// border_test.go tests the rounded-rectangle distance field, the solid and
// vignette coverage functions, and [Style] construction.

package border

import (
	"math"
	"testing"

	"tools.zach/dev/keycap/internal/rgba"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ///////////////////////////////////////////////
// Distance Field
// ///////////////////////////////////////////////

func TestDistance(t *testing.T) {
	sq := RoundedRect{Width: 100, Height: 100}
	rounded := RoundedRect{Width: 144, Height: 144, Radius: 8}
	tests := []struct {
		name string
		r    RoundedRect
		x, y float64
		want float64
	}{
		{"center", sq, 50, 50, -50},
		{"left edge", sq, 0, 50, 0},
		{"half pixel in", sq, 0.5, 50, -0.5},
		{"outside right", sq, 103, 50, 3},
		{"outside corner", sq, 103, 104, 5},
		{"rounded corner origin", rounded, 0, 0, math.Sqrt2*8 - 8},
		{"rounded straight edge", rounded, 0, 72, 0},
		{"rounded center", rounded, 72, 72, -72},
	}
	for _, tt := range tests {
		if got := tt.r.Distance(tt.x, tt.y); !approx(got, tt.want) {
			t.Errorf("%s: Distance(%v, %v) = %v, want %v", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDistanceSign(t *testing.T) {
	r := NewRoundedRect(144, 144, 20)
	if d := r.PixelDistance(72, 72); d >= 0 {
		t.Errorf("center distance = %v, want negative", d)
	}
	if d := r.Distance(200, 200); d <= 0 {
		t.Errorf("far outside distance = %v, want positive", d)
	}
	// The corner pixel of a rounded rectangle lies outside the curve.
	if d := r.PixelDistance(0, 0); d <= 0 {
		t.Errorf("corner pixel distance = %v, want positive", d)
	}
}

func TestClampRadius(t *testing.T) {
	tests := []struct {
		radius float64
		w, h   int
		want   float64
	}{
		{8, 144, 144, 8},
		{-3, 144, 144, 0},
		{500, 144, 72, 36},
		{math.NaN(), 10, 10, 0},
		{1, 1, 1, 0.5},
	}
	for _, tt := range tests {
		if got := ClampRadius(tt.radius, tt.w, tt.h); got != tt.want {
			t.Errorf("ClampRadius(%v, %d, %d) = %v, want %v", tt.radius, tt.w, tt.h, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// Coverage
// ///////////////////////////////////////////////

func TestSolidCoverage(t *testing.T) {
	tests := []struct {
		d, thickness, want float64
	}{
		{-0.5, 4, 1},  // outermost pixel row
		{-3.5, 4, 1},  // innermost row of the band
		{-4.5, 4, 0},  // just inside the band
		{-4, 4, 0.5},  // straddles the inner edge
		{0, 4, 0.5},   // straddles the boundary
		{0.5, 4, 0},   // outside
		{-50, 4, 0},   // deep inside
		{-0.5, 0, 0},  // no thickness
		{-0.5, -2, 0}, // negative thickness
	}
	for _, tt := range tests {
		if got := SolidCoverage(tt.d, tt.thickness); !approx(got, tt.want) {
			t.Errorf("SolidCoverage(%v, %v) = %v, want %v", tt.d, tt.thickness, got, tt.want)
		}
	}
}

func TestVignetteCoverage(t *testing.T) {
	tests := []struct {
		d, fade, want float64
	}{
		{-0.5, 10, 1},    // edge pixel
		{-5.5, 10, 0.5},  // midpoint
		{-10.5, 10, 0},   // end of the fade
		{-15.5, 10, 0},   // beyond the fade
		{0.25, 10, 0},    // outside
		{-0.5, 0, 0},     // no fade
		{-3, 4, 0.375},   // inset 2.5 of 4
		{-0.25, 10, 0.75}, // anti-aliased edge
	}
	for _, tt := range tests {
		if got := VignetteCoverage(tt.d, tt.fade); !approx(got, tt.want) {
			t.Errorf("VignetteCoverage(%v, %v) = %v, want %v", tt.d, tt.fade, got, tt.want)
		}
	}
}

func TestVignetteMonotonic(t *testing.T) {
	prev := 2.0
	for d := -0.5; d > -20; d -= 0.25 {
		c := VignetteCoverage(d, 12)
		if c > prev {
			t.Fatalf("coverage rose moving inward: %v at d=%v after %v", c, d, prev)
		}
		prev = c
	}
}

func TestSmoothstep(t *testing.T) {
	tests := []struct {
		e0, e1, x, want float64
	}{
		{0, 1, -1, 0},
		{0, 1, 2, 1},
		{0, 1, 0.5, 0.5},
		{1, 0, 1.5, 0},
		{1, 0, -0.5, 1},
		{2, 2, 1, 0},
		{2, 2, 3, 1},
	}
	for _, tt := range tests {
		if got := Smoothstep(tt.e0, tt.e1, tt.x); !approx(got, tt.want) {
			t.Errorf("Smoothstep(%v, %v, %v) = %v, want %v", tt.e0, tt.e1, tt.x, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// Styles
// ///////////////////////////////////////////////

func TestStyleAlpha(t *testing.T) {
	solid := Solid{Thickness: 4, Color: rgba.White}
	if got := solid.Alpha(100, 100, 0, 50); got != 1 {
		t.Errorf("solid edge alpha = %v, want 1", got)
	}
	if got := solid.Alpha(100, 100, 50, 50); got != 0 {
		t.Errorf("solid center alpha = %v, want 0", got)
	}
	vig := Vignette{FadeWidth: 10, Color: rgba.White}
	if got := vig.Alpha(100, 100, 5, 50); !approx(got, 0.5) {
		t.Errorf("vignette midpoint alpha = %v, want 0.5", got)
	}
	for _, s := range []Style{None{}, solid, vig} {
		for _, p := range [][2]int{{-1, 0}, {0, -1}, {100, 0}, {0, 100}} {
			if got := s.Alpha(100, 100, p[0], p[1]); got != 0 {
				t.Errorf("%s alpha at %v = %v, want 0", s.Kind(), p, got)
			}
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"":          KindNone,
		"none":      KindNone,
		"Solid":     KindSolid,
		" vignette": KindVignette,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("dashed"); err == nil {
		t.Error("ParseKind(dashed) should fail")
	}
}

func TestParamsBuild(t *testing.T) {
	red := rgba.RGB(255, 0, 0)
	tests := []struct {
		p    Params
		want Style
	}{
		{Params{Kind: KindNone}, None{}},
		{Params{Kind: KindSolid, Color: red, Thickness: 3, Radius: 8}, Solid{Thickness: 3, Radius: 8, Color: red}},
		{Params{Kind: KindVignette, Color: red, FadeWidth: 12, Radius: 4}, Vignette{FadeWidth: 12, Radius: 4, Color: red}},
	}
	for _, tt := range tests {
		if got := tt.p.Build(); got != tt.want {
			t.Errorf("Build(%+v) = %#v, want %#v", tt.p, got, tt.want)
		}
	}
}

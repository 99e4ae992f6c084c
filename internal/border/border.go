// Package border computes the per-pixel alpha of rounded-rectangle border
// decorations.
//
// Everything here is pure geometry: [RoundedRect.Distance] is the signed
// distance field shared by both decorations, and [SolidCoverage] and
// [VignetteCoverage] turn a distance into a coverage fraction. Colors and
// blending live in the canvas package.
package border

import (
	"fmt"
	"math"
	"strings"

	"tools.zach/dev/keycap/internal/rgba"
)

// ///////////////////////////////////////////////
// Geometry
// ///////////////////////////////////////////////

// RoundedRect is an axis-aligned rectangle anchored at the origin with
// rounded corners.
type RoundedRect struct {
	Width, Height float64
	Radius        float64
}

// NewRoundedRect returns the rectangle covering a w x h canvas with corner
// radius clamped to [0, min(w, h)/2].
func NewRoundedRect(w, h int, radius float64) RoundedRect {
	return RoundedRect{Width: float64(w), Height: float64(h), Radius: ClampRadius(radius, w, h)}
}

// ClampRadius limits radius to what a w x h rectangle can hold.
func ClampRadius(radius float64, w, h int) float64 {
	limit := float64(min(w, h)) / 2
	if math.IsNaN(radius) || radius < 0 {
		return 0
	}
	return math.Min(radius, limit)
}

// Distance returns the signed distance from (x, y) to the rectangle's
// boundary: negative inside, zero on the edge, positive outside.
func (r RoundedRect) Distance(x, y float64) float64 {
	hw, hh := r.Width/2, r.Height/2
	qx := math.Abs(x-hw) - hw + r.Radius
	qy := math.Abs(y-hh) - hh + r.Radius
	outside := math.Hypot(math.Max(qx, 0), math.Max(qy, 0))
	inside := math.Min(math.Max(qx, qy), 0)
	return outside + inside - r.Radius
}

// PixelDistance returns [RoundedRect.Distance] at the center of pixel
// (px, py).
func (r RoundedRect) PixelDistance(px, py int) float64 {
	return r.Distance(float64(px)+0.5, float64(py)+0.5)
}

// Coverage is the anti-aliased fill coverage of the shape at distance d.
func Coverage(d float64) float64 {
	return clamp01(0.5 - d)
}

// SolidCoverage returns the coverage of a stroke that runs along the inside
// of the boundary, thickness pixels wide, at signed distance d.
func SolidCoverage(d, thickness float64) float64 {
	if thickness <= 0 {
		return 0
	}
	half := thickness / 2
	return clamp01(0.5 - (math.Abs(d+half) - half))
}

// VignetteCoverage returns the coverage of an inward fade at signed distance
// d: full at the boundary, falling linearly to zero fade pixels inside.
// Points outside the shape get nothing.
func VignetteCoverage(d, fade float64) float64 {
	if d > 0 || fade <= 0 {
		return 0
	}
	inset := math.Max(0, -d-0.5)
	return clamp01(1-inset/fade) * Coverage(d)
}

// Smoothstep maps x from [e0, e1] onto [0, 1] with a cubic Hermite curve.
func Smoothstep(e0, e1, x float64) float64 {
	if e0 == e1 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 1:
		return 1
	default:
		return v
	}
}

// ///////////////////////////////////////////////
// Styles
// ///////////////////////////////////////////////

// Kind names a border style in configuration and flags.
type Kind string

const (
	KindNone     Kind = "none"
	KindSolid    Kind = "solid"
	KindVignette Kind = "vignette"
)

// ParseKind validates a border style name. The empty string means none.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindNone:
		return KindNone, nil
	case KindSolid, KindVignette:
		return k, nil
	default:
		return "", fmt.Errorf("invalid border style %q: must be none, solid, or vignette", s)
	}
}

// Style is one border decoration: [None], [Solid], or [Vignette].
type Style interface {
	// Kind returns the style's name.
	Kind() Kind
	// Alpha returns the coverage of the style for pixel (px, py) of a
	// w x h canvas. Pixels outside the canvas return 0.
	Alpha(w, h, px, py int) float64
	// Paint returns the style's straight-alpha color.
	Paint() rgba.Color

	sealed()
}

// None draws nothing.
type None struct{}

// Solid strokes the inside of the rounded boundary.
type Solid struct {
	Thickness float64
	Radius    float64
	Color     rgba.Color
}

// Vignette fades Color from the boundary inward over FadeWidth pixels.
type Vignette struct {
	FadeWidth float64
	Radius    float64
	Color     rgba.Color
}

func (None) Kind() Kind     { return KindNone }
func (Solid) Kind() Kind    { return KindSolid }
func (Vignette) Kind() Kind { return KindVignette }

func (None) Paint() rgba.Color       { return rgba.Transparent }
func (s Solid) Paint() rgba.Color    { return s.Color }
func (v Vignette) Paint() rgba.Color { return v.Color }

func (None) sealed()     {}
func (Solid) sealed()    {}
func (Vignette) sealed() {}

// Alpha implements [Style].
func (None) Alpha(w, h, px, py int) float64 { return 0 }

// Alpha implements [Style].
func (s Solid) Alpha(w, h, px, py int) float64 {
	if !inBounds(w, h, px, py) {
		return 0
	}
	d := NewRoundedRect(w, h, s.Radius).PixelDistance(px, py)
	return SolidCoverage(d, s.Thickness)
}

// Alpha implements [Style].
func (v Vignette) Alpha(w, h, px, py int) float64 {
	if !inBounds(w, h, px, py) {
		return 0
	}
	d := NewRoundedRect(w, h, v.Radius).PixelDistance(px, py)
	return VignetteCoverage(d, v.FadeWidth)
}

func inBounds(w, h, px, py int) bool {
	return px >= 0 && py >= 0 && px < w && py < h
}

// Params are the flat, flag-shaped parameters of every style.
type Params struct {
	Kind      Kind
	Color     rgba.Color
	Thickness float64
	Radius    float64
	FadeWidth float64
}

// Build turns p into the matching [Style].
func (p Params) Build() Style {
	switch p.Kind {
	case KindSolid:
		return Solid{Thickness: p.Thickness, Radius: p.Radius, Color: p.Color}
	case KindVignette:
		return Vignette{FadeWidth: p.FadeWidth, Radius: p.Radius, Color: p.Color}
	default:
		return None{}
	}
}

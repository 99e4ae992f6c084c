// Package render turns an [Icon] description into a finished key image.
//
// A render runs the full pipeline on a fresh canvas: label cleanup,
// background fill, word wrap inside the padded area, text, border, and
// finish. [Renderer.LoadFont] brings fonts into the registry on demand from
// local files or Google Fonts.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"tools.zach/dev/keycap/internal/border"
	"tools.zach/dev/keycap/internal/canvas"
	"tools.zach/dev/keycap/internal/encode"
	"tools.zach/dev/keycap/internal/fontfetch"
	"tools.zach/dev/keycap/internal/glyph"
	"tools.zach/dev/keycap/internal/layout"
	"tools.zach/dev/keycap/internal/rgba"
)

// ///////////////////////////////////////////////
// Defaults
// ///////////////////////////////////////////////

const (
	// DefaultSize is the font size in pixels.
	DefaultSize = 28
	// DefaultPadding is the horizontal inset on each side of the text block.
	DefaultPadding = 7
	// DefaultMaxLines caps wrapped output.
	DefaultMaxLines = 3
	// DefaultCanvas is the key icon size as WxH.
	DefaultCanvas = "144x144"

	// MaxCanvasSide bounds each canvas dimension. The buffer holds 8 bytes
	// per pixel.
	MaxCanvasSide = 4096
	// MaxSize bounds the font size in pixels.
	MaxSize = 1024
)

// ErrInvalidIcon is returned by [Icon.Validate] for out-of-range parameters.
var ErrInvalidIcon = errors.New("invalid icon")

// ///////////////////////////////////////////////
// Icon
// ///////////////////////////////////////////////

// Icon holds typed render parameters for one key.
type Icon struct {
	// Text is the label. A literal backslash-n is a hard line break.
	Text string
	// Font is a registry name, a font file path, or a google: spec.
	// Empty means the embedded default font.
	Font string
	// Size is the font size in pixels.
	Size float64
	// Width and Height are the canvas dimensions.
	Width, Height int
	// Color is the text color.
	Color rgba.Color
	// Background fills the canvas first; transparent leaves it clear.
	Background rgba.Color
	// MaxLines caps the wrapped line count.
	MaxLines int
	// Padding is the horizontal inset on each side.
	Padding float64
	HAlign  canvas.HAlign
	VAlign  canvas.VAlign
	// Baseline is the first baseline when VAlign is AlignBaseline.
	Baseline float64
	// LineGap is extra spacing between lines.
	LineGap  float64
	Overflow layout.Overflow
	Border   border.Params
}

// DefaultIcon returns the parameters of a 144x144 icon with white centered
// text on a transparent background and no border.
func DefaultIcon() Icon {
	return Icon{
		Size:       DefaultSize,
		Width:      canvas.KeyIconSize,
		Height:     canvas.KeyIconSize,
		Color:      rgba.White,
		Background: rgba.Transparent,
		MaxLines:   DefaultMaxLines,
		Padding:    DefaultPadding,
		HAlign:     canvas.AlignCenter,
		VAlign:     canvas.AlignMiddle,
		Border: border.Params{
			Kind:      border.KindNone,
			Color:     rgba.White,
			Thickness: 4,
			Radius:    8,
			FadeWidth: 10,
		},
	}
}

// Validate reports the first out-of-range parameter.
func (i Icon) Validate() error {
	switch {
	case i.Width <= 0 || i.Height <= 0 || i.Width > MaxCanvasSide || i.Height > MaxCanvasSide:
		return fmt.Errorf("%w: canvas %dx%d (each side 1 to %d)", ErrInvalidIcon, i.Width, i.Height, MaxCanvasSide)
	case !(i.Size > 0) || i.Size > MaxSize:
		return fmt.Errorf("%w: size %v (0 to %d)", ErrInvalidIcon, i.Size, MaxSize)
	case i.MaxLines < 0:
		return fmt.Errorf("%w: max lines %d", ErrInvalidIcon, i.MaxLines)
	case i.Padding < 0 || math.IsNaN(i.Padding):
		return fmt.Errorf("%w: padding %v", ErrInvalidIcon, i.Padding)
	case i.Border.Thickness < 0 || i.Border.Radius < 0 || i.Border.FadeWidth < 0:
		return fmt.Errorf("%w: negative border dimension", ErrInvalidIcon)
	}
	if _, err := border.ParseKind(string(i.Border.Kind)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIcon, err)
	}
	return nil
}

// ParseCanvas parses a "WxH" canvas size such as "144x144".
func ParseCanvas(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if ok {
		w, err = strconv.Atoi(strings.TrimSpace(ws))
		if err == nil {
			h, err = strconv.Atoi(strings.TrimSpace(hs))
		}
	}
	if !ok || err != nil || w <= 0 || h <= 0 || w > MaxCanvasSide || h > MaxCanvasSide {
		return 0, 0, fmt.Errorf("%w: canvas size %q, expected WxH with sides up to %d (e.g. 144x144)", ErrInvalidIcon, s, MaxCanvasSide)
	}
	return w, h, nil
}

// CleanText replaces literal backslash-n sequences with newlines and
// normalizes the label to NFC so composed and decomposed input render the
// same glyphs.
func CleanText(s string) string {
	return norm.NFC.String(strings.ReplaceAll(s, `\n`, "\n"))
}

// ///////////////////////////////////////////////
// Renderer
// ///////////////////////////////////////////////

// Renderer draws icons with fonts from a shared registry. It is safe for
// concurrent use; each render owns its canvas.
type Renderer struct {
	// Fonts holds every loaded face.
	Fonts *glyph.Registry
	// Fetcher downloads google: fonts; nil uses an uncached Fetcher.
	Fetcher *fontfetch.Fetcher
	// Fallback is tried when an icon's font cannot be loaded.
	Fallback string
	// Encoder writes PNG bytes; the zero value uses default compression.
	Encoder encode.Encoder

	// loadMu serializes on-demand font loads.
	loadMu sync.Mutex
	// aliases maps a font reference to the registry name it loaded as.
	aliases map[string]string
}

// New returns a Renderer over fonts.
func New(fonts *glyph.Registry) *Renderer {
	return &Renderer{Fonts: fonts}
}

// LoadFont makes ref available in the registry and returns its registry
// name. An empty ref loads the embedded default font.
func (r *Renderer) LoadFont(ctx context.Context, ref string) (string, error) {
	if ref == "" || ref == glyph.DefaultName {
		if _, ok := r.Fonts.Get(glyph.DefaultName); !ok {
			if _, err := r.Fonts.LoadDefault(); err != nil {
				return "", err
			}
		}
		return glyph.DefaultName, nil
	}
	if _, ok := r.Fonts.Get(ref); ok {
		return ref, nil
	}

	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if name, ok := r.aliases[ref]; ok {
		if _, ok := r.Fonts.Get(name); ok {
			return name, nil
		}
	}

	fetcher := r.Fetcher
	if fetcher == nil {
		fetcher = &fontfetch.Fetcher{}
	}
	data, src, err := fontfetch.Resolve(ctx, fetcher, ref, r.Fallback)
	if err != nil {
		return "", fmt.Errorf("load font %q: %w", ref, err)
	}
	if _, err := r.Fonts.LoadBytes(src.Name, data); err != nil {
		return "", err
	}
	if r.aliases == nil {
		r.aliases = make(map[string]string)
	}
	r.aliases[ref] = src.Name
	slog.Debug("font loaded", "ref", ref, "name", src.Name, "origin", src.Origin)
	return src.Name, nil
}

// RenderContext loads the icon's font if needed and renders it.
func (r *Renderer) RenderContext(ctx context.Context, icon Icon) (*canvas.Image, error) {
	if err := icon.Validate(); err != nil {
		return nil, err
	}
	name, err := r.LoadFont(ctx, icon.Font)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	icon.Font = name
	return r.Render(icon)
}

// Render draws icon with an already loaded font. An empty Font uses the
// embedded default font.
func (r *Renderer) Render(icon Icon) (*canvas.Image, error) {
	if err := icon.Validate(); err != nil {
		return nil, err
	}
	fontName := icon.Font
	if fontName == "" {
		fontName = glyph.DefaultName
		if _, ok := r.Fonts.Get(fontName); !ok {
			if _, err := r.Fonts.LoadDefault(); err != nil {
				return nil, err
			}
		}
	}
	font, err := r.Fonts.Require(fontName)
	if err != nil {
		return nil, err
	}

	c, err := canvas.New(icon.Width, icon.Height)
	if err != nil {
		return nil, err
	}
	if err := c.Fill(icon.Background); err != nil {
		return nil, err
	}

	res, err := layout.Wrap(r.Fonts, font, icon.Size, CleanText(icon.Text), layout.WrapOptions{
		MaxWidth: float64(icon.Width) - 2*icon.Padding,
		MaxLines: icon.MaxLines,
		Overflow: icon.Overflow,
	})
	if err != nil {
		return nil, fmt.Errorf("wrap text: %w", err)
	}
	if res.Truncated {
		slog.Debug("label truncated", "text", icon.Text, "lines", len(res.Lines))
	}

	st := canvas.NewTextStyle(font, icon.Size)
	st.Color = icon.Color
	st.HAlign = icon.HAlign
	st.VAlign = icon.VAlign
	st.Baseline = icon.Baseline
	st.LineGap = icon.LineGap
	st.Inset = icon.Padding
	if err := c.DrawText(r.Fonts, res.Lines, st); err != nil {
		return nil, fmt.Errorf("draw text: %w", err)
	}

	if err := c.DrawBorder(icon.Border.Build()); err != nil {
		return nil, err
	}
	return c.Finish()
}

// RenderPNG renders icon and encodes it as PNG.
func (r *Renderer) RenderPNG(ctx context.Context, icon Icon) ([]byte, error) {
	img, err := r.RenderContext(ctx, icon)
	if err != nil {
		return nil, err
	}
	return encode.Bytes(r.encoder(), img)
}

func (r *Renderer) encoder() encode.Encoder {
	if r.Encoder != nil {
		return r.Encoder
	}
	return encode.PNG{}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"tools.zach/dev/keycap/internal/canvas"
	"tools.zach/dev/keycap/internal/config"
	"tools.zach/dev/keycap/internal/encode"
	"tools.zach/dev/keycap/internal/fontfetch"
	"tools.zach/dev/keycap/internal/glyph"
	"tools.zach/dev/keycap/internal/layout"
	"tools.zach/dev/keycap/internal/logger"
	"tools.zach/dev/keycap/internal/render"
)

// ///////////////////////////////////////////////
// One-Shot Render
// ///////////////////////////////////////////////

// renderFlags holds the parsed one-shot flags.
type renderFlags struct {
	icon        config.IconConfig
	output      string
	base64      bool
	ellipsis    bool
	compression string
	logLevel    string
}

// parseRenderFlags parses args over the built-in icon defaults, so every
// field of the returned icon is set.
func parseRenderFlags(args []string, stderr io.Writer) (*renderFlags, error) {
	def := config.DefaultConfig().Defaults
	rf := &renderFlags{icon: def}
	ic := &rf.icon

	fs := flag.NewFlagSet("keycap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}

	fs.StringVar(&ic.Font, "font", "", "font file (.ttf, .otf, .woff2) or google:FAMILY:WEIGHT; empty uses Go Regular")
	fs.StringVar(&ic.Text, "text", "", `label text; a literal \n breaks the line`)
	fs.StringVar(&rf.output, "output", "", `output file, or "-" for stdout (required)`)
	fs.Float64Var(&ic.Size, "size", def.Size, "font size in pixels")
	fs.StringVar(&ic.Canvas, "canvas", def.Canvas, "canvas size as WxH, e.g. 144x144 or 72x72")
	fs.StringVar(&ic.Color, "color", def.Color, "text color as #RRGGBB or #RRGGBBAA")
	fs.StringVar(&ic.Background, "bg-color", "", "background color; empty leaves the icon transparent")
	fs.IntVar(ic.MaxLines, "max-lines", *def.MaxLines, "maximum number of wrapped lines")
	fs.Float64Var(ic.Padding, "padding", *def.Padding, "horizontal inset on each side of the text")
	fs.StringVar(&ic.HAlign, "halign", def.HAlign, "horizontal alignment: left, center, right")
	fs.StringVar(&ic.VAlign, "valign", def.VAlign, "vertical alignment: top, center, bottom")
	fs.StringVar(&ic.Border.Style, "border", def.Border.Style, "border style: none, solid, vignette")
	fs.StringVar(&ic.Border.Color, "border-color", def.Border.Color, "border color as #RRGGBB or #RRGGBBAA")
	fs.Float64Var(ic.Border.Thickness, "border-thickness", *def.Border.Thickness, "solid border stroke width")
	fs.Float64Var(ic.Border.Radius, "border-radius", *def.Border.Radius, "corner radius for solid and vignette borders")
	fs.Float64Var(ic.Border.FadeWidth, "vignette-width", *def.Border.FadeWidth, "vignette fade width")
	fs.BoolVar(&rf.ellipsis, "ellipsis", false, "end a truncated label with an ellipsis")
	fs.BoolVar(&rf.base64, "b64", false, "write base64 text instead of PNG bytes")
	fs.StringVar(&rf.compression, "compression", "default", "PNG compression: default, speed, best, none")
	fs.StringVar(&rf.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if rf.output == "" {
		fs.Usage()
		return nil, errors.New("-output is required")
	}
	if rf.ellipsis {
		ic.Overflow = layout.OverflowEllipsis.String()
	}
	return rf, nil
}

// runRender renders one icon described by flags and writes it to -output.
func runRender(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rf, err := parseRenderFlags(args, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger.NewConsole(stderr, logger.ParseLevel(rf.logLevel)))

	icon, err := rf.icon.Icon()
	if err != nil {
		return err
	}
	level, err := encode.ParseCompression(rf.compression)
	if err != nil {
		return err
	}

	r := render.New(glyph.NewRegistry())
	r.Fetcher = &fontfetch.Fetcher{}
	r.Encoder = encode.PNG{Level: level}
	img, err := r.RenderContext(ctx, icon)
	if err != nil {
		return err
	}

	if rf.output == "-" {
		return writeIcon(stdout, r.Encoder, img, rf.base64)
	}
	if rf.base64 {
		err = encode.SaveBase64(r.Encoder, rf.output, img)
	} else {
		err = encode.Save(r.Encoder, rf.output, img)
	}
	if err != nil {
		return fmt.Errorf("failed to save '%s': %w", rf.output, err)
	}
	fmt.Fprintf(stdout, "Saved %dx%d icon to '%s'\n", img.Width(), img.Height(), rf.output)
	return nil
}

// writeIcon streams img to w as PNG bytes or base64 text.
func writeIcon(w io.Writer, enc encode.Encoder, img *canvas.Image, asBase64 bool) error {
	if !asBase64 {
		return enc.Encode(w, img)
	}
	s, err := encode.Base64(enc, img)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

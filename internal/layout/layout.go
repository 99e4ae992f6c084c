// Package layout measures text and breaks it into lines that fit a pixel
// width.
//
// Measurement sums per-rune advances from a [glyph.Source]; there is no
// kerning or shaping. [Wrap] splits on hard breaks first and then wraps
// each segment greedily at whitespace.
package layout

import (
	"fmt"
	"strings"
	"unicode"

	"tools.zach/dev/keycap/internal/glyph"
)

// Ellipsis is appended to the last line by [OverflowEllipsis].
const Ellipsis = "…"

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Line is one laid-out line and its width measured at the wrap size.
type Line struct {
	Text  string
	Width float64
}

// Overflow selects what happens to text beyond [WrapOptions.MaxLines].
type Overflow int

const (
	// OverflowDrop leaves the remaining text unrendered and the last line
	// untouched.
	OverflowDrop Overflow = iota
	// OverflowEllipsis ends the last line with [Ellipsis], dropping trailing
	// words until the marked line fits.
	OverflowEllipsis
)

// ParseOverflow converts "drop" or "ellipsis" to an [Overflow].
func ParseOverflow(s string) (Overflow, error) {
	switch strings.ToLower(s) {
	case "", "drop":
		return OverflowDrop, nil
	case "ellipsis":
		return OverflowEllipsis, nil
	default:
		return 0, fmt.Errorf("invalid overflow %q: must be drop or ellipsis", s)
	}
}

// String returns the config name of o.
func (o Overflow) String() string {
	if o == OverflowEllipsis {
		return "ellipsis"
	}
	return "drop"
}

// WrapOptions bounds the output of [Wrap].
type WrapOptions struct {
	// MaxWidth is the maximum pixel width of a line. Values <= 0 put every
	// word on its own line.
	MaxWidth float64
	// MaxLines is the maximum number of lines produced.
	MaxLines int
	// Overflow marks text dropped by MaxLines.
	Overflow Overflow
}

// DefaultWrapOptions fits a 144px key icon with 7px padding on each side.
func DefaultWrapOptions() WrapOptions {
	return WrapOptions{MaxWidth: 130, MaxLines: 3}
}

// Result is the output of [Wrap].
type Result struct {
	// Lines are in reading order; len(Lines) <= MaxLines.
	Lines []Line
	// Truncated reports whether input was left over after MaxLines.
	Truncated bool
}

// Texts returns the text of every line.
func (r Result) Texts() []string {
	out := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = l.Text
	}
	return out
}

// ///////////////////////////////////////////////
// Measurement
// ///////////////////////////////////////////////

// Measure returns the width of text laid out as a single line. Empty text
// and non-positive sizes measure 0.
func Measure(src glyph.Source, h glyph.Handle, size float64, text string) (float64, error) {
	if !src.Valid(h) {
		return 0, unavailable(h)
	}
	return measure(src, h, size, text), nil
}

// Advances returns the advance of every rune of text, in order.
func Advances(src glyph.Source, h glyph.Handle, size float64, text string) ([]float64, error) {
	if !src.Valid(h) {
		return nil, unavailable(h)
	}
	out := make([]float64, 0, len(text))
	for _, r := range text {
		if size <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, src.Advance(h, size, r))
	}
	return out, nil
}

func measure(src glyph.Source, h glyph.Handle, size float64, text string) float64 {
	if size <= 0 {
		return 0
	}
	var w float64
	for _, r := range text {
		w += src.Advance(h, size, r)
	}
	return w
}

func unavailable(h glyph.Handle) error {
	return fmt.Errorf("%w: %q", glyph.ErrFontUnavailable, h.Name())
}

// ///////////////////////////////////////////////
// Wrapping
// ///////////////////////////////////////////////

// Wrap splits text into lines no wider than opts.MaxWidth. Text is split on
// hard breaks ("\n" or "\r\n") first, and empty segments become empty
// lines; each segment is then wrapped greedily at whitespace. A word wider
// than MaxWidth occupies a line by itself. Empty text yields one empty line.
func Wrap(src glyph.Source, h glyph.Handle, size float64, text string, opts WrapOptions) (Result, error) {
	if !src.Valid(h) {
		return Result{}, unavailable(h)
	}
	if opts.MaxLines <= 0 {
		return Result{Truncated: text != ""}, nil
	}

	w := wrapper{src: src, h: h, size: size, opts: opts}
	segments := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, seg := range segments {
		if w.full() {
			w.truncated = hasContent(segments[i:])
			break
		}
		w.segment(seg)
	}
	if w.truncated && opts.Overflow == OverflowEllipsis {
		w.markEllipsis()
	}
	return Result{Lines: w.lines, Truncated: w.truncated}, nil
}

// hasContent reports whether any segment is non-blank.
func hasContent(segments []string) bool {
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// wrapper accumulates lines for one [Wrap] call.
type wrapper struct {
	src       glyph.Source
	h         glyph.Handle
	size      float64
	opts      WrapOptions
	lines     []Line
	truncated bool
}

func (w *wrapper) full() bool { return len(w.lines) >= w.opts.MaxLines }

func (w *wrapper) emit(text string) {
	w.lines = append(w.lines, Line{Text: text, Width: measure(w.src, w.h, w.size, text)})
}

// segment wraps one hard-break segment.
func (w *wrapper) segment(seg string) {
	words := strings.FieldsFunc(seg, unicode.IsSpace)
	if len(words) == 0 {
		w.emit("")
		return
	}

	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		candidate := current + " " + word
		if w.opts.MaxWidth > 0 && measure(w.src, w.h, w.size, candidate) <= w.opts.MaxWidth {
			current = candidate
			continue
		}
		w.emit(current)
		if w.full() {
			w.truncated = true
			return
		}
		current = word
	}
	w.emit(current)
}

// markEllipsis rewrites the last line so it ends in [Ellipsis], dropping
// trailing words until it fits MaxWidth. A single remaining word keeps the
// marker even if it overflows.
func (w *wrapper) markEllipsis() {
	if len(w.lines) == 0 {
		return
	}
	last := &w.lines[len(w.lines)-1]
	words := strings.Fields(last.Text)
	for {
		text := strings.Join(words, " ") + Ellipsis
		width := measure(w.src, w.h, w.size, text)
		if len(words) <= 1 || w.opts.MaxWidth <= 0 || width <= w.opts.MaxWidth {
			*last = Line{Text: text, Width: width}
			return
		}
		words = words[:len(words)-1]
	}
}

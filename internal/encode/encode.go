// Package encode serializes finished icons.
//
// PNG is the only format: it is lossless, so decoding an encoded icon
// reproduces every 8-bit channel exactly. Every codec or write failure is
// wrapped as [ErrEncodeFailed].
package encode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"tools.zach/dev/keycap/internal/atomicfile"
)

// ErrEncodeFailed wraps every failure to serialize or write an image.
var ErrEncodeFailed = errors.New("encode failed")

// DataURIPrefix precedes the base64 payload of a PNG data URI.
const DataURIPrefix = "data:image/png;base64,"

// Encoder writes an image in some lossless format.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// PNG is the default [Encoder].
type PNG struct {
	// Level trades speed for size; the zero value is png.DefaultCompression.
	Level png.CompressionLevel
}

// ParseCompression maps a level name (default, speed, best, none) to a
// PNG compression level. The empty string means default.
func ParseCompression(s string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed", "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	}
	return 0, fmt.Errorf("unknown compression %q: must be default, speed, best, or none", s)
}

// Encode implements [Encoder].
func (p PNG) Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: p.Level}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("%w: png: %w", ErrEncodeFailed, err)
	}
	return nil
}

// Bytes encodes img in memory.
func Bytes(enc Encoder, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, wrap(err)
	}
	return buf.Bytes(), nil
}

// Base64 encodes img and returns standard base64 without a data URI prefix.
func Base64(enc Encoder, img image.Image) (string, error) {
	data, err := Bytes(enc, img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURI returns img as a PNG data URI, the form button plugins pass to
// their host's setImage call.
func DataURI(img image.Image) (string, error) {
	s, err := Base64(PNG{}, img)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + s, nil
}

// Save atomically writes img to path. Parent directories are not created.
func Save(enc Encoder, path string, img image.Image) error {
	err := atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		return enc.Encode(w, img)
	})
	if err != nil {
		return wrap(fmt.Errorf("save %s: %w", path, err))
	}
	return nil
}

// SaveBase64 atomically writes the base64 text of img to path.
func SaveBase64(enc Encoder, path string, img image.Image) error {
	s, err := Base64(enc, img)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(path, []byte(s), 0o644); err != nil {
		return wrap(fmt.Errorf("save %s: %w", path, err))
	}
	return nil
}

func wrap(err error) error {
	if errors.Is(err, ErrEncodeFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEncodeFailed, err)
}

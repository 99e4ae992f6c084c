package glyph

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	webfont "github.com/tdewolff/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// DefaultName is the name [Registry.LoadDefault] registers the embedded Go
// Regular font under.
const DefaultName = "go-regular"

// ErrFontNotFound is returned by [Registry.Require] for unknown names.
var ErrFontNotFound = errors.New("font not found")

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Registry stores named fonts and rasterizes their glyphs. Load fonts once
// at startup, then hand out handles by name. A Registry is safe for
// concurrent use.
type Registry struct {
	// mu guards fonts and nextID.
	mu sync.RWMutex
	// fonts maps registered names to their parsed font.
	fonts map[string]*entry
	// nextID is the identity given to the next registered font.
	nextID uint64

	// facesMu guards faces.
	facesMu sync.Mutex
	// faces caches one rasterizer per font identity and pixel size, at most
	// maxFaces of them.
	faces map[faceKey]*lockedFace
	// faceClock orders faces by last use for eviction.
	faceClock uint64
}

// maxFaces bounds the face cache; the least recently used face is evicted
// past this many.
const maxFaces = 64

// entry is one registered font.
type entry struct {
	id   uint64
	font *opentype.Font
	path string
}

type faceKey struct {
	id   uint64
	size float64
}

// lockedFace serializes access to a [font.Face]; x/image faces reuse an
// internal mask buffer and are not safe for concurrent use.
type lockedFace struct {
	mu   sync.Mutex
	face font.Face
	// used is the registry's faceClock at the last lookup, guarded by facesMu.
	used uint64
}

// Info describes a registered font.
type Info struct {
	// Name is the registry name.
	Name string
	// Family is the font's family name from its name table, if present.
	Family string
	// Path is the file the font was loaded from; empty for in-memory fonts.
	Path string
	// NumGlyphs is the number of glyphs in the font.
	NumGlyphs int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		fonts: make(map[string]*entry),
		faces: make(map[faceKey]*lockedFace),
	}
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// LoadBytes parses a TrueType, OpenType, WOFF, or WOFF2 font and registers
// it under name, replacing (and invalidating handles to) any previous font
// with the same name.
func (r *Registry) LoadBytes(name string, data []byte) (Handle, error) {
	return r.load(name, data, "")
}

// LoadFile reads a font file and registers it under name.
func (r *Registry) LoadFile(name, path string) (Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Handle{}, fmt.Errorf("read font %s: %w", path, err)
	}
	return r.load(name, data, path)
}

// LoadDefault registers the embedded Go Regular font as [DefaultName].
func (r *Registry) LoadDefault() (Handle, error) {
	return r.LoadBytes(DefaultName, goregular.TTF)
}

// LoadGlob registers every font file matching the doublestar patterns (for
// example "~/fonts/**/*.{ttf,otf}"). Each font is named after its file stem;
// when two files share a stem the first match wins. Files that fail to parse
// are reported in the joined error but do not stop the scan.
func (r *Registry) LoadGlob(patterns ...string) ([]Handle, error) {
	var (
		handles []Handle
		errs    []error
		seen    = map[string]bool{}
	)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(expandHome(pattern), doublestar.WithFilesOnly())
		if err != nil {
			errs = append(errs, fmt.Errorf("glob %q: %w", pattern, err))
			continue
		}
		for _, path := range matches {
			name := FontName(path)
			if seen[name] {
				continue
			}
			seen[name] = true
			h, err := r.LoadFile(name, path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			handles = append(handles, h)
		}
	}
	return handles, errors.Join(errs...)
}

// FontName derives a registry name from a font file path: the lower-cased
// file name without its extension.
func FontName(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(pattern string) string {
	if !strings.HasPrefix(pattern, "~/") {
		return pattern
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return pattern
	}
	return filepath.Join(home, pattern[2:])
}

func (r *Registry) load(name string, data []byte, path string) (Handle, error) {
	if IsWebFont(data) {
		sfntData, err := webfont.ToSFNT(data)
		if err != nil {
			return Handle{}, fmt.Errorf("convert web font %q to sfnt: %w", name, err)
		}
		data = sfntData
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return Handle{}, fmt.Errorf("parse font %q: %w", name, err)
	}

	r.mu.Lock()
	r.nextID++
	e := &entry{id: r.nextID, font: f, path: path}
	old := r.fonts[name]
	r.fonts[name] = e
	r.mu.Unlock()

	if old != nil {
		r.dropFaces(old.id)
	}
	return Handle{name: name, id: e.id}, nil
}

// IsWebFont reports whether data starts with the WOFF or WOFF2 signature.
func IsWebFont(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	sig := string(data[:4])
	return sig == "wOFF" || sig == "wOF2"
}

// ///////////////////////////////////////////////
// Lookup
// ///////////////////////////////////////////////

// Get returns the handle registered under name.
func (r *Registry) Get(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.fonts[name]
	if !ok {
		return Handle{}, false
	}
	return Handle{name: name, id: e.id}, true
}

// Require is like [Registry.Get] but returns [ErrFontNotFound] for unknown
// names.
func (r *Registry) Require(name string) (Handle, error) {
	h, ok := r.Get(name)
	if !ok {
		return Handle{}, fmt.Errorf("%w: %q", ErrFontNotFound, name)
	}
	return h, nil
}

// Unload removes the font registered under name. Outstanding handles to it
// become invalid.
func (r *Registry) Unload(name string) bool {
	r.mu.Lock()
	e, ok := r.fonts[name]
	delete(r.fonts, name)
	r.mu.Unlock()
	if ok {
		r.dropFaces(e.id)
	}
	return ok
}

// Names returns the registered font names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.fonts))
	for name := range r.fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info describes the font behind h.
func (r *Registry) Info(h Handle) (Info, error) {
	e := r.lookup(h)
	if e == nil {
		return Info{}, fmt.Errorf("%w: %q", ErrFontUnavailable, h.name)
	}
	family, _ := e.font.Name(nil, sfnt.NameIDFamily)
	return Info{Name: h.name, Family: family, Path: e.path, NumGlyphs: e.font.NumGlyphs()}, nil
}

func (r *Registry) lookup(h Handle) *entry {
	if h.IsZero() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e := r.fonts[h.name]
	if e == nil || e.id != h.id {
		return nil
	}
	return e
}

// ///////////////////////////////////////////////
// Source
// ///////////////////////////////////////////////

// Valid implements [Source].
func (r *Registry) Valid(h Handle) bool {
	return r.lookup(h) != nil
}

// Advance implements [Source].
func (r *Registry) Advance(h Handle, size float64, ch rune) float64 {
	lf := r.face(h, size)
	if lf == nil {
		return 0
	}
	lf.mu.Lock()
	defer lf.mu.Unlock()
	// ok is false for runes the font does not map; adv is then the notdef
	// advance, or zero when the lookup itself failed.
	adv, _ := lf.face.GlyphAdvance(ch)
	return fixedToFloat(adv)
}

// Rasterize implements [Source]. The returned mask is a private copy.
func (r *Registry) Rasterize(h Handle, size float64, ch rune) (Mask, bool) {
	lf := r.face(h, size)
	if lf == nil {
		return Mask{}, false
	}
	lf.mu.Lock()
	defer lf.mu.Unlock()
	// Unmapped runes rasterize as the notdef glyph with ok false.
	dr, mask, maskp, _, _ := lf.face.Glyph(fixed.Point26_6{}, ch)
	if dr.Empty() || mask == nil {
		return Mask{}, false
	}
	cov := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.Draw(cov, cov.Bounds(), mask, maskp, draw.Src)
	return Mask{Coverage: cov, Offset: dr.Min}, true
}

// Metrics implements [Source].
func (r *Registry) Metrics(h Handle, size float64) Metrics {
	lf := r.face(h, size)
	if lf == nil {
		return Metrics{}
	}
	lf.mu.Lock()
	defer lf.mu.Unlock()
	m := lf.face.Metrics()
	gap := fixedToFloat(m.Height - m.Ascent - m.Descent)
	return Metrics{
		Ascent:  fixedToFloat(m.Ascent),
		Descent: fixedToFloat(m.Descent),
		LineGap: max(gap, 0),
	}
}

// face returns the cached rasterizer for h at size, creating it on first
// use. Returns nil for invalid handles and non-positive sizes.
func (r *Registry) face(h Handle, size float64) *lockedFace {
	if size <= 0 {
		return nil
	}
	e := r.lookup(h)
	if e == nil {
		return nil
	}
	key := faceKey{id: e.id, size: size}

	r.facesMu.Lock()
	defer r.facesMu.Unlock()
	r.faceClock++
	if lf, ok := r.faces[key]; ok {
		lf.used = r.faceClock
		return lf
	}
	face, err := opentype.NewFace(e.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil
	}
	if len(r.faces) >= maxFaces {
		r.evictOldestFace()
	}
	lf := &lockedFace{face: face, used: r.faceClock}
	r.faces[key] = lf
	return lf
}

// evictOldestFace forgets the least recently used face. Callers still
// holding it finish with their own pointer. facesMu must be held.
func (r *Registry) evictOldestFace() {
	var (
		oldest faceKey
		found  bool
		used   uint64
	)
	for key, lf := range r.faces {
		if !found || lf.used < used {
			oldest, used, found = key, lf.used, true
		}
	}
	if found {
		delete(r.faces, oldest)
	}
}

// dropFaces closes and forgets every cached face of the font with id.
func (r *Registry) dropFaces(id uint64) {
	r.facesMu.Lock()
	defer r.facesMu.Unlock()
	for key, lf := range r.faces {
		if key.id != id {
			continue
		}
		lf.mu.Lock()
		lf.face.Close()
		lf.mu.Unlock()
		delete(r.faces, key)
	}
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// registry_test.go tests [Registry] loading (bytes, files, globs), handle
// lifetime across [Registry.Unload] and reloads, and the [Source] methods
// against the embedded Go Regular font.

package glyph

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

func newDefaultRegistry(t *testing.T) (*Registry, Handle) {
	t.Helper()
	r := NewRegistry()
	h, err := r.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	return r, h
}

// ///////////////////////////////////////////////
// Loading and Lookup
// ///////////////////////////////////////////////

func TestLoadDefault(t *testing.T) {
	r, h := newDefaultRegistry(t)
	if h.Name() != DefaultName {
		t.Errorf("Name() = %q, want %q", h.Name(), DefaultName)
	}
	if !r.Valid(h) {
		t.Fatal("default handle should be valid")
	}
	got, ok := r.Get(DefaultName)
	if !ok || got != h {
		t.Errorf("Get(%q) = %v, %v", DefaultName, got, ok)
	}
	info, err := r.Info(h)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Family == "" {
		t.Error("Family is empty")
	}
	if info.NumGlyphs == 0 {
		t.Error("NumGlyphs = 0")
	}
}

func TestLoadBytesInvalid(t *testing.T) {
	r := NewRegistry()
	if _, err := r.LoadBytes("junk", []byte("definitely not a font")); err == nil {
		t.Error("expected error for invalid font data")
	}
	if len(r.Names()) != 0 {
		t.Errorf("Names() = %v, want empty", r.Names())
	}
}

func TestLoadFileMissing(t *testing.T) {
	r := NewRegistry()
	_, err := r.LoadFile("missing", filepath.Join(t.TempDir(), "nope.ttf"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadFile error = %v, want ErrNotExist", err)
	}
}

func TestRequire(t *testing.T) {
	r, _ := newDefaultRegistry(t)
	if _, err := r.Require(DefaultName); err != nil {
		t.Errorf("Require(%q): %v", DefaultName, err)
	}
	if _, err := r.Require("nope"); !errors.Is(err, ErrFontNotFound) {
		t.Errorf("Require(nope) error = %v, want ErrFontNotFound", err)
	}
}

func TestUnloadInvalidatesHandle(t *testing.T) {
	r, h := newDefaultRegistry(t)
	_ = r.Advance(h, 20, 'A') // populate the face cache
	if !r.Unload(DefaultName) {
		t.Fatal("Unload returned false")
	}
	if r.Valid(h) {
		t.Error("handle still valid after Unload")
	}
	if got := r.Advance(h, 20, 'A'); got != 0 {
		t.Errorf("Advance on unloaded handle = %v, want 0", got)
	}
	if _, ok := r.Rasterize(h, 20, 'A'); ok {
		t.Error("Rasterize on unloaded handle returned ok")
	}
	if _, err := r.Info(h); !errors.Is(err, ErrFontUnavailable) {
		t.Errorf("Info error = %v, want ErrFontUnavailable", err)
	}
	if r.Unload(DefaultName) {
		t.Error("second Unload returned true")
	}
}

func TestReloadInvalidatesOldHandle(t *testing.T) {
	r, old := newDefaultRegistry(t)
	fresh, err := r.LoadBytes(DefaultName, goregular.TTF)
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if r.Valid(old) {
		t.Error("old handle still valid after reload")
	}
	if !r.Valid(fresh) {
		t.Error("fresh handle invalid")
	}
	if r.Valid(Handle{}) {
		t.Error("zero handle reported valid")
	}
}

func TestLoadGlob(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string][]byte{
		"Display.ttf":        goregular.TTF,
		"nested/Mono.ttf":    goregular.TTF,
		"nested/broken.ttf":  []byte("nope"),
		"nested/readme.txt":  []byte("ignored"),
		"nested/Display.ttf": goregular.TTF, // duplicate stem
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r := NewRegistry()
	handles, err := r.LoadGlob(filepath.ToSlash(dir) + "/**/*.ttf")
	if err == nil {
		t.Error("expected joined error for broken.ttf")
	}
	if len(handles) != 2 {
		t.Fatalf("loaded %d fonts, want 2", len(handles))
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "display" || names[1] != "mono" {
		t.Errorf("Names() = %v, want [display mono]", names)
	}
}

func TestFontName(t *testing.T) {
	tests := map[string]string{
		"/fonts/Inter-Bold.ttf": "inter-bold",
		"Mono.OTF":              "mono",
		"dir/plain":             "plain",
	}
	for in, want := range tests {
		if got := FontName(in); got != want {
			t.Errorf("FontName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsWebFont(t *testing.T) {
	if !IsWebFont([]byte("wOF2rest")) || !IsWebFont([]byte("wOFFrest")) {
		t.Error("web font signatures not detected")
	}
	if IsWebFont(goregular.TTF) || IsWebFont([]byte("wO")) {
		t.Error("false positive web font detection")
	}
}

// ///////////////////////////////////////////////
// Source Methods
// ///////////////////////////////////////////////

func TestAdvanceScalesWithSize(t *testing.T) {
	r, h := newDefaultRegistry(t)
	prev := 0.0
	for _, size := range []float64{8, 12, 20, 28, 48} {
		adv := r.Advance(h, size, 'W')
		if adv <= prev {
			t.Errorf("Advance(W, %v) = %v, not greater than %v", size, adv, prev)
		}
		prev = adv
	}
	if got := r.Advance(h, 0, 'W'); got != 0 {
		t.Errorf("Advance at size 0 = %v, want 0", got)
	}
}

func TestAdvanceMissingGlyphFallsBack(t *testing.T) {
	r, h := newDefaultRegistry(t)
	f, err := sfnt.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	const size = 28
	var buf sfnt.Buffer
	notdef, err := f.GlyphAdvance(&buf, 0, fixed.Int26_6(size*64), font.HintingNone)
	if err != nil {
		t.Fatal(err)
	}
	want := float64(notdef) / 64
	if want <= 0 {
		t.Fatalf("Go Regular notdef advance = %v, want positive", want)
	}

	// U+E000 (private use) and U+4E2D (CJK) are not mapped by Go Regular.
	for _, ch := range []rune{'\uE000', '中'} {
		if got := r.Advance(h, size, ch); got != want {
			t.Errorf("Advance(%U) = %v, want notdef advance %v", ch, got, want)
		}
		m, ok := r.Rasterize(h, size, ch)
		if !ok || m.Coverage == nil {
			t.Errorf("Rasterize(%U) = %v, want the notdef glyph", ch, ok)
		}
	}
}

func TestRasterize(t *testing.T) {
	r, h := newDefaultRegistry(t)
	m, ok := r.Rasterize(h, 28, 'H')
	if !ok {
		t.Fatal("Rasterize(H) not ok")
	}
	if m.Offset.Y >= 0 {
		t.Errorf("H should sit above the baseline, offset = %v", m.Offset)
	}
	var covered int
	for _, a := range m.Coverage.Pix {
		if a > 0 {
			covered++
		}
	}
	if covered == 0 {
		t.Error("H mask has no coverage")
	}

	// The mask must be a private copy: rasterizing another glyph must not
	// change it.
	before := append([]byte(nil), m.Coverage.Pix...)
	_, _ = r.Rasterize(h, 28, 'o')
	for i := range before {
		if before[i] != m.Coverage.Pix[i] {
			t.Fatal("mask changed after rasterizing another glyph")
		}
	}
}

func TestFaceCacheBounded(t *testing.T) {
	r, h := newDefaultRegistry(t)
	for i := range maxFaces * 3 {
		if adv := r.Advance(h, 8+float64(i)/4, 'W'); adv <= 0 {
			t.Fatalf("Advance at size %v = %v", 8+float64(i)/4, adv)
		}
		r.facesMu.Lock()
		n := len(r.faces)
		r.facesMu.Unlock()
		if n > maxFaces {
			t.Fatalf("face cache holds %d faces, want at most %d", n, maxFaces)
		}
	}

	// Recently used sizes survive eviction.
	r.Advance(h, 12, 'W')
	for i := range maxFaces - 1 {
		r.Advance(h, 100+float64(i), 'W')
	}
	r.facesMu.Lock()
	_, ok := r.faces[faceKey{id: h.ID(), size: 12}]
	r.facesMu.Unlock()
	if !ok {
		t.Error("most recently used face was evicted")
	}
}

func TestMetrics(t *testing.T) {
	r, h := newDefaultRegistry(t)
	m := r.Metrics(h, 20)
	if m.Ascent <= 0 || m.Descent <= 0 {
		t.Errorf("Metrics = %+v, want positive ascent and descent", m)
	}
	if m.Height() != m.Ascent+m.Descent {
		t.Errorf("Height() = %v", m.Height())
	}
	big := r.Metrics(h, 40)
	if big.Ascent <= m.Ascent {
		t.Errorf("Ascent at 40 (%v) not larger than at 20 (%v)", big.Ascent, m.Ascent)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r, h := newDefaultRegistry(t)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for _, ch := range "Hello World" {
				_ = r.Advance(h, float64(12+i%3), ch)
				_, _ = r.Rasterize(h, float64(12+i%3), ch)
			}
		}(i)
	}
	wg.Wait()
}

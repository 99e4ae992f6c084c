// Package fontfetch downloads fonts from the Google Fonts CSS API and caches
// them on disk.
//
// Font specs use the format "google:FAMILY:WEIGHT" (e.g. "google:Inter:800").
// The CSS API answers modern user agents with WOFF2 URLs; downloaded files
// are converted to SFNT with github.com/tdewolff/font before caching, so the
// cache always holds plain TrueType/OpenType data.
package fontfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	webfont "github.com/tdewolff/font"

	"tools.zach/dev/keycap/internal/atomicfile"
)

// DefaultCSSURL is the Google Fonts CSS endpoint.
const DefaultCSSURL = "https://fonts.googleapis.com/css2"

// DefaultFontHost is the only host font files are downloaded from unless
// [Fetcher.FontHosts] says otherwise.
const DefaultFontHost = "fonts.gstatic.com"

const (
	maxCSSBytes  = 1 << 20  // 1 MiB
	maxFontBytes = 10 << 20 // 10 MiB

	// userAgent asks for WOFF2 URLs, which the converter handles.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

var (
	// ErrInvalidSpec is returned for strings that are not google:FAMILY:WEIGHT.
	ErrInvalidSpec = errors.New("invalid font spec")
	// ErrNoFontURL is returned when the CSS response names no font file.
	ErrNoFontURL = errors.New("no font URL in css response")
)

// fontURLRe extracts font file URLs from the CSS response, e.g.
// url(https://fonts.gstatic.com/s/inter/v18/xxx.woff2).
var fontURLRe = regexp.MustCompile(`url\(\s*['"]?(https?://[^)'"\s]+)['"]?\s*\)`)

// httpClient is a lazily-initialized retryablehttp client shared across all
// fetches.
var (
	httpClient     *retryablehttp.Client
	httpClientOnce sync.Once
)

// getHTTPClient returns the shared retryable HTTP client, initializing it on
// first call.
func getHTTPClient() *retryablehttp.Client {
	httpClientOnce.Do(func() {
		httpClient = retryablehttp.NewClient()
		httpClient.RetryMax = 2
		httpClient.HTTPClient.Timeout = 15 * time.Second
		httpClient.Logger = nil // suppress retryablehttp's default logging
	})
	return httpClient
}

// ///////////////////////////////////////////////
// Spec
// ///////////////////////////////////////////////

// Spec identifies one Google Fonts family at one weight.
type Spec struct {
	Family string
	Weight int
}

// IsSpec reports whether s looks like a google: font spec rather than a path.
func IsSpec(s string) bool {
	return strings.HasPrefix(s, "google:")
}

// ParseSpec parses "google:FAMILY:WEIGHT". The weight must be 1..1000.
func ParseSpec(s string) (Spec, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != "google" || strings.TrimSpace(parts[1]) == "" {
		return Spec{}, fmt.Errorf("%w %q: expected google:FAMILY:WEIGHT", ErrInvalidSpec, s)
	}
	w, err := strconv.Atoi(parts[2])
	if err != nil || w < 1 || w > 1000 {
		return Spec{}, fmt.Errorf("%w %q: weight must be 1-1000", ErrInvalidSpec, s)
	}
	return Spec{Family: strings.TrimSpace(parts[1]), Weight: w}, nil
}

// String returns the spec in google:FAMILY:WEIGHT form.
func (s Spec) String() string {
	return fmt.Sprintf("google:%s:%d", s.Family, s.Weight)
}

// Name returns a registry-friendly name such as "inter-800".
func (s Spec) Name() string {
	return strings.ToLower(strings.ReplaceAll(s.Family, " ", "-")) + "-" + strconv.Itoa(s.Weight)
}

// CacheFile returns the file name the spec is cached under.
func (s Spec) CacheFile() string {
	return strings.ReplaceAll(s.Family, " ", "_") + "-" + strconv.Itoa(s.Weight) + ".ttf"
}

// ///////////////////////////////////////////////
// Fetcher
// ///////////////////////////////////////////////

// Fetcher downloads and caches Google Fonts. The zero value uses the shared
// client and the public endpoints and does not cache.
type Fetcher struct {
	// Client overrides the shared retrying client.
	Client *retryablehttp.Client
	// CacheDir holds converted fonts; empty disables caching.
	CacheDir string
	// CSSURL overrides [DefaultCSSURL].
	CSSURL string
	// FontHosts lists the hosts font files may be downloaded from. Empty
	// means [DefaultFontHost].
	FontHosts []string
}

func (f *Fetcher) client() *retryablehttp.Client {
	if f.Client != nil {
		return f.Client
	}
	return getHTTPClient()
}

// Fetch returns SFNT font bytes for spec, from the cache when present.
func (f *Fetcher) Fetch(ctx context.Context, spec Spec) ([]byte, error) {
	var cachePath string
	if f.CacheDir != "" {
		cachePath = filepath.Join(f.CacheDir, spec.CacheFile())
		if data, err := os.ReadFile(cachePath); err == nil {
			slog.Debug("font cache hit", "spec", spec.String(), "path", cachePath)
			return data, nil
		}
	}

	fontURL, err := f.fontURL(ctx, spec)
	if err != nil {
		return nil, err
	}
	data, err := f.get(ctx, fontURL, maxFontBytes)
	if err != nil {
		return nil, fmt.Errorf("download font file: %w", err)
	}
	if isWebFont(fontURL, data) {
		sfnt, err := webfont.ToSFNT(data)
		if err != nil {
			return nil, fmt.Errorf("convert %s to sfnt: %w", spec, err)
		}
		data = sfnt
	}

	if cachePath != "" {
		if err := atomicfile.WriteDir(cachePath, data, 0o644); err != nil {
			slog.Warn("failed to cache font", "spec", spec.String(), "error", err)
		} else {
			slog.Info("font cached", "spec", spec.String(), "path", cachePath, "bytes", len(data))
		}
	}
	return data, nil
}

// fontURL asks the CSS API for spec and returns the first allowed font URL.
func (f *Fetcher) fontURL(ctx context.Context, spec Spec) (string, error) {
	base := f.CSSURL
	if base == "" {
		base = DefaultCSSURL
	}
	cssURL := fmt.Sprintf("%s?family=%s:wght@%d", base, url.QueryEscape(spec.Family), spec.Weight)

	css, err := f.get(ctx, cssURL, maxCSSBytes)
	if err != nil {
		return "", fmt.Errorf("fetch css for %s: %w", spec, err)
	}
	for _, m := range fontURLRe.FindAllSubmatch(css, -1) {
		u := string(m[1])
		if f.allowed(u) {
			return u, nil
		}
		slog.Debug("skipping font url from unexpected host", "url", u)
	}
	return "", fmt.Errorf("%w for %s", ErrNoFontURL, spec)
}

func (f *Fetcher) allowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	hosts := f.FontHosts
	if len(hosts) == 0 {
		hosts = []string{DefaultFontHost}
	}
	for _, h := range hosts {
		if strings.EqualFold(u.Host, h) {
			return true
		}
	}
	return false
}

// get performs a GET and returns at most limit bytes of a 200 response.
func (f *Fetcher) get(ctx context.Context, target string, limit int64) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", target, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", target, limit)
	}
	return body, nil
}

// isWebFont checks whether font data is WOFF or WOFF2 by URL extension or
// magic bytes.
func isWebFont(fontURL string, data []byte) bool {
	lower := strings.ToLower(fontURL)
	if strings.HasSuffix(lower, ".woff2") || strings.HasSuffix(lower, ".woff") {
		return true
	}
	if len(data) < 4 {
		return false
	}
	sig := string(data[:4])
	return sig == "wOF2" || sig == "wOFF"
}

// ///////////////////////////////////////////////
// Resolve
// ///////////////////////////////////////////////

// Source describes where [Resolve] found font data.
type Source struct {
	// Name is a registry name for the font.
	Name string
	// Origin is the local path or google spec that was used.
	Origin string
}

// Resolve loads font bytes from ref, which is either a local file path or a
// google: spec. If ref is empty or cannot be loaded and fallback is non-empty,
// fallback is tried the same way. The returned error joins every failure.
func Resolve(ctx context.Context, f *Fetcher, ref, fallback string) ([]byte, Source, error) {
	var errs []error
	for _, candidate := range []string{ref, fallback} {
		if candidate == "" {
			continue
		}
		data, src, err := load(ctx, f, candidate)
		if err == nil {
			if len(errs) > 0 {
				slog.Warn("using fallback font", "font", src.Origin, "error", errors.Join(errs...))
			}
			return data, src, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, Source{}, errors.New("no font configured")
	}
	return nil, Source{}, errors.Join(errs...)
}

func load(ctx context.Context, f *Fetcher, ref string) ([]byte, Source, error) {
	if IsSpec(ref) {
		spec, err := ParseSpec(ref)
		if err != nil {
			return nil, Source{}, err
		}
		data, err := f.Fetch(ctx, spec)
		if err != nil {
			return nil, Source{}, err
		}
		return data, Source{Name: spec.Name(), Origin: spec.String()}, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, Source{}, fmt.Errorf("read font %s: %w", ref, err)
	}
	base := filepath.Base(ref)
	name := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	return data, Source{Name: name, Origin: ref}, nil
}

// Package config provides configuration loading and defaults for keycap.
//
// Configuration is a TOML file describing fonts, output settings, shared
// icon defaults, and a table of named icons. Each icon inherits every field
// it leaves unset from [defaults]. The package handles schema migration,
// validation, and conversion into typed [render.Icon] values.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/keycap/internal/atomicfile"
	"tools.zach/dev/keycap/internal/border"
	"tools.zach/dev/keycap/internal/canvas"
	"tools.zach/dev/keycap/internal/encode"
	"tools.zach/dev/keycap/internal/layout"
	"tools.zach/dev/keycap/internal/migrate"
	"tools.zach/dev/keycap/internal/render"
	"tools.zach/dev/keycap/internal/rgba"
)

// ErrUnknownIcon is returned when a requested icon name is not configured.
var ErrUnknownIcon = errors.New("unknown icon")

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
	// Fonts holds font discovery settings.
	Fonts FontsConfig `toml:"fonts"`
	// Output holds where and how rendered icons are written.
	Output OutputConfig `toml:"output"`
	// Watch holds settings for `keycap watch`.
	Watch WatchConfig `toml:"watch"`
	// Serve holds settings for `keycap serve`.
	Serve ServeConfig `toml:"serve"`
	// Defaults are inherited by every icon.
	Defaults IconConfig `toml:"defaults"`
	// Icons maps icon names to their overrides.
	Icons map[string]IconConfig `toml:"icons,omitempty"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// FontsConfig holds font discovery settings.
type FontsConfig struct {
	// Search lists doublestar globs of font files to register at startup.
	// Each font is addressable by its lower-cased file stem.
	Search []string `toml:"search"`
	// Fallback is a font path or google: spec used when an icon's font
	// cannot be loaded.
	Fallback string `toml:"fallback"`
	// Cache enables the on-disk cache for downloaded Google Fonts.
	Cache bool `toml:"cache"`
}

// OutputConfig holds where and how rendered icons are written.
type OutputConfig struct {
	// Dir is the output directory, relative to the config file.
	Dir string `toml:"dir"`
	// Base64 writes base64 text files instead of PNG bytes.
	Base64 bool `toml:"base64"`
	// Compression is the PNG compression level: default, speed, best, or none.
	Compression string `toml:"compression"`
}

// WatchConfig holds settings for re-rendering on config changes.
type WatchConfig struct {
	// PollIntervalSeconds is the stat interval when file notifications are
	// unavailable.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// ForcePoll skips native file notifications.
	ForcePoll bool `toml:"force_poll"`
}

// ServeConfig holds settings for the render socket.
type ServeConfig struct {
	// Socket overrides the socket path (or pipe name on Windows).
	Socket string `toml:"socket,omitempty"`
	// RequestTimeoutSeconds bounds each render request, including font
	// downloads.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// IconConfig holds the render parameters of one icon. Unset fields inherit
// from [Config.Defaults]; pointer fields distinguish an explicit zero.
type IconConfig struct {
	// Text is the label. A literal \n is a hard line break.
	Text string `toml:"text,omitempty" json:"text,omitempty"`
	// Output overrides the output file name (default: <name>.png).
	Output string `toml:"output,omitempty" json:"-"`
	// Font is a registered font name, a font file path, or a google: spec.
	Font string `toml:"font,omitempty" json:"font,omitempty"`
	// Size is the font size in pixels.
	Size float64 `toml:"size,omitempty" json:"size,omitempty"`
	// Canvas is the icon size as WxH.
	Canvas string `toml:"canvas,omitempty" json:"canvas,omitempty"`
	// Color is the text color as #RRGGBB or #RRGGBBAA.
	Color string `toml:"color,omitempty" json:"color,omitempty"`
	// Background is the fill color; empty leaves the icon transparent.
	Background string `toml:"background,omitempty" json:"background,omitempty"`
	// MaxLines caps the number of wrapped lines.
	MaxLines *int `toml:"max_lines,omitempty" json:"max_lines,omitempty"`
	// Padding is the horizontal inset on each side of the text.
	Padding *float64 `toml:"padding,omitempty" json:"padding,omitempty"`
	// HAlign is left, center, or right.
	HAlign string `toml:"halign,omitempty" json:"halign,omitempty"`
	// VAlign is top, center, bottom, or baseline.
	VAlign string `toml:"valign,omitempty" json:"valign,omitempty"`
	// Baseline is the first baseline y when VAlign is baseline.
	Baseline *float64 `toml:"baseline,omitempty" json:"baseline,omitempty"`
	// LineGap is extra spacing between lines.
	LineGap *float64 `toml:"line_gap,omitempty" json:"line_gap,omitempty"`
	// Overflow is drop or ellipsis.
	Overflow string `toml:"overflow,omitempty" json:"overflow,omitempty"`
	// Border decorates the icon edge.
	Border BorderConfig `toml:"border,omitempty" json:"border,omitempty"`
}

// BorderConfig holds border settings.
type BorderConfig struct {
	// Style is none, solid, or vignette.
	Style string `toml:"style,omitempty" json:"style,omitempty"`
	// Color is the border color as #RRGGBB or #RRGGBBAA.
	Color string `toml:"color,omitempty" json:"color,omitempty"`
	// Thickness is the solid stroke width.
	Thickness *float64 `toml:"thickness,omitempty" json:"thickness,omitempty"`
	// Radius is the corner radius.
	Radius *float64 `toml:"radius,omitempty" json:"radius,omitempty"`
	// FadeWidth is the vignette fade distance.
	FadeWidth *float64 `toml:"fade_width,omitempty" json:"fade_width,omitempty"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

func ptr[T any](v T) *T { return &v }

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	def := render.DefaultIcon()
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
		Fonts: FontsConfig{
			Search: []string{},
			Cache:  true,
		},
		Output: OutputConfig{
			Dir:         "icons",
			Compression: "default",
		},
		Watch: WatchConfig{
			PollIntervalSeconds: 2,
		},
		Serve: ServeConfig{
			RequestTimeoutSeconds: 30,
		},
		Defaults: IconConfig{
			Size:     def.Size,
			Canvas:   render.DefaultCanvas,
			Color:    def.Color.Hex(),
			MaxLines: ptr(def.MaxLines),
			Padding:  ptr(def.Padding),
			HAlign:   def.HAlign.String(),
			VAlign:   def.VAlign.String(),
			LineGap:  ptr(0.0),
			Overflow: def.Overflow.String(),
			Border: BorderConfig{
				Style:     string(def.Border.Kind),
				Color:     def.Border.Color.Hex(),
				Thickness: ptr(def.Border.Thickness),
				Radius:    ptr(def.Border.Radius),
				FadeWidth: ptr(def.Border.FadeWidth),
			},
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml:
// the defaults plus a few sample icons.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Fonts.Search = []string{"~/.keycap/fonts/**/*.{ttf,otf}"}
	cfg.Fonts.Fallback = "google:Inter:700"
	cfg.Icons = map[string]IconConfig{
		"mute": {
			Text:       "Mic\\nOff",
			Background: "#b00020",
			Border:     BorderConfig{Style: "solid"},
		},
		"scene-live": {
			Text:       "Live",
			Background: "#101010",
			Color:      "#ff3b30",
			Border:     BorderConfig{Style: "vignette", Color: "#ff3b30"},
		},
	}
	return cfg
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file at path.
// If the file doesn't exist, returns DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.dir = filepath.Dir(path)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	// An editor may truncate before writing; never migrate over that.
	if len(bytes.TrimSpace(data)) == 0 {
		cfg := DefaultConfig()
		cfg.dir = filepath.Dir(path)
		return cfg, nil
	}

	version := PeekVersion(data)

	// Apply migrations if needed
	shouldMigrate := version != migrate.Config.CurrentVersion
	if shouldMigrate {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Config.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	if migrate.Config.HasDev() {
		var devErr error
		data, devErr = migrate.Config.RunDev(data)
		if devErr != nil {
			return nil, fmt.Errorf("apply dev transforms: %w", devErr)
		}
		shouldMigrate = true
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.dir = filepath.Dir(path)

	if shouldMigrate {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// Parse decodes and validates current-version TOML over the defaults.
// Relative paths resolve against the working directory.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("unknown config keys ignored", "keys", fmt.Sprint(undecoded))
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
// Every icon is resolved and converted, so malformed colors and sizes are
// reported here before anything is drawn.
func (c *Config) Validate() error {
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}
	if _, err := c.Encoder(); err != nil {
		return err
	}
	if c.Watch.PollIntervalSeconds <= 0 {
		return fmt.Errorf("watch.poll_interval_seconds must be > 0, got %d", c.Watch.PollIntervalSeconds)
	}
	if c.Serve.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("serve.request_timeout_seconds must be >= 0, got %d", c.Serve.RequestTimeoutSeconds)
	}
	for _, pattern := range c.Fonts.Search {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return fmt.Errorf("invalid fonts.search pattern %q", pattern)
		}
	}

	if c.Defaults.Output != "" {
		return fmt.Errorf("defaults.output is only valid per icon")
	}
	if _, err := c.Defaults.Icon(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for _, name := range c.Names() {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("invalid icon name %q: must not contain path separators", name)
		}
		if _, err := c.Icon(name); err != nil {
			return err
		}
	}
	return nil
}

// Encoder returns the PNG encoder for the configured compression level.
func (c *Config) Encoder() (encode.PNG, error) {
	level, err := encode.ParseCompression(c.Output.Compression)
	if err != nil {
		return encode.PNG{}, fmt.Errorf("invalid output.compression: %w", err)
	}
	return encode.PNG{Level: level}, nil
}

// ///////////////////////////////////////////////
// Icons
// ///////////////////////////////////////////////

// Names returns the configured icon names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Icons))
	for name := range c.Icons {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Select returns the sorted icon names matching the doublestar pattern.
// An empty pattern selects every icon.
func (c *Config) Select(pattern string) ([]string, error) {
	if pattern == "" {
		return c.Names(), nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid icon pattern %q", pattern)
	}
	var out []string
	for _, name := range c.Names() {
		if ok, _ := doublestar.Match(pattern, name); ok {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no icon matches %q", ErrUnknownIcon, pattern)
	}
	return out, nil
}

// Resolved returns the icon's settings with defaults applied.
func (c *Config) Resolved(name string) (IconConfig, bool) {
	ic, ok := c.Icons[name]
	if !ok {
		return IconConfig{}, false
	}
	return c.Defaults.Merge(ic), true
}

// Icon resolves and converts the named icon. Its font reference is
// resolved with [Config.FontRef].
func (c *Config) Icon(name string) (render.Icon, error) {
	ic, ok := c.Resolved(name)
	if !ok {
		return render.Icon{}, fmt.Errorf("%w: %q", ErrUnknownIcon, name)
	}
	icon, err := ic.Icon()
	if err != nil {
		return render.Icon{}, fmt.Errorf("icon %q: %w", name, err)
	}
	icon.Font = c.FontRef(icon.Font)
	return icon, nil
}

// OutputPath returns where the named icon is written.
func (c *Config) OutputPath(name string) string {
	file := c.Icons[name].Output
	if file == "" {
		ext := ".png"
		if c.Output.Base64 {
			ext = ".b64"
		}
		file = name + ext
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.ResolvePath(c.Output.Dir), file)
}

// Dir returns the directory relative paths resolve against.
func (c *Config) Dir() string { return c.dir }

// ResolvePath makes a relative path relative to the config file's
// directory and expands a leading ~/.
func (c *Config) ResolvePath(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// fontExts are the extensions that mark a font reference as a file path.
var fontExts = map[string]bool{".ttf": true, ".otf": true, ".ttc": true, ".woff": true, ".woff2": true}

// FontRef resolves a font reference that names a file relative to the
// config file. Registry names and google: specs pass through unchanged.
func (c *Config) FontRef(ref string) string {
	if fontExts[strings.ToLower(filepath.Ext(ref))] {
		return c.ResolvePath(ref)
	}
	return ref
}

// SearchPatterns returns the font search globs with paths resolved.
func (c *Config) SearchPatterns() []string {
	out := make([]string, len(c.Fonts.Search))
	for i, p := range c.Fonts.Search {
		out[i] = c.ResolvePath(p)
	}
	return out
}

// ///////////////////////////////////////////////
// Icon Conversion
// ///////////////////////////////////////////////

// Merge returns c with every field set in o applied on top, following the
// same inheritance as defaults to icon overrides.
func (c IconConfig) Merge(o IconConfig) IconConfig {
	out := c
	setString(&out.Text, o.Text)
	setString(&out.Output, o.Output)
	setString(&out.Font, o.Font)
	if o.Size != 0 {
		out.Size = o.Size
	}
	setString(&out.Canvas, o.Canvas)
	setString(&out.Color, o.Color)
	setString(&out.Background, o.Background)
	setPtr(&out.MaxLines, o.MaxLines)
	setPtr(&out.Padding, o.Padding)
	setString(&out.HAlign, o.HAlign)
	setString(&out.VAlign, o.VAlign)
	setPtr(&out.Baseline, o.Baseline)
	setPtr(&out.LineGap, o.LineGap)
	setString(&out.Overflow, o.Overflow)
	setString(&out.Border.Style, o.Border.Style)
	setString(&out.Border.Color, o.Border.Color)
	setPtr(&out.Border.Thickness, o.Border.Thickness)
	setPtr(&out.Border.Radius, o.Border.Radius)
	setPtr(&out.Border.FadeWidth, o.Border.FadeWidth)
	return out
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func setPtr[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// Icon converts c into typed render parameters. Fields left unset keep
// [render.DefaultIcon] values.
func (c IconConfig) Icon() (render.Icon, error) {
	icon := render.DefaultIcon()
	icon.Text = c.Text
	icon.Font = c.Font
	if c.Size != 0 {
		icon.Size = c.Size
	}

	var err error
	if c.Canvas != "" {
		if icon.Width, icon.Height, err = render.ParseCanvas(c.Canvas); err != nil {
			return render.Icon{}, err
		}
	}
	if err := parseColor(&icon.Color, "color", c.Color); err != nil {
		return render.Icon{}, err
	}
	if err := parseColor(&icon.Background, "background", c.Background); err != nil {
		return render.Icon{}, err
	}
	if c.MaxLines != nil {
		icon.MaxLines = *c.MaxLines
	}
	if c.Padding != nil {
		icon.Padding = *c.Padding
	}
	if c.HAlign != "" {
		if icon.HAlign, err = canvas.ParseHAlign(c.HAlign); err != nil {
			return render.Icon{}, err
		}
	}
	if c.VAlign != "" {
		if icon.VAlign, err = canvas.ParseVAlign(c.VAlign); err != nil {
			return render.Icon{}, err
		}
	}
	if c.Baseline != nil {
		icon.Baseline = *c.Baseline
	}
	if c.LineGap != nil {
		icon.LineGap = *c.LineGap
	}
	if c.Overflow != "" {
		if icon.Overflow, err = layout.ParseOverflow(c.Overflow); err != nil {
			return render.Icon{}, err
		}
	}

	if c.Border.Style != "" {
		if icon.Border.Kind, err = border.ParseKind(c.Border.Style); err != nil {
			return render.Icon{}, err
		}
	}
	if err := parseColor(&icon.Border.Color, "border.color", c.Border.Color); err != nil {
		return render.Icon{}, err
	}
	if c.Border.Thickness != nil {
		icon.Border.Thickness = *c.Border.Thickness
	}
	if c.Border.Radius != nil {
		icon.Border.Radius = *c.Border.Radius
	}
	if c.Border.FadeWidth != nil {
		icon.Border.FadeWidth = *c.Border.FadeWidth
	}

	if err := icon.Validate(); err != nil {
		return render.Icon{}, err
	}
	return icon, nil
}

func parseColor(dst *rgba.Color, field, s string) error {
	if s == "" {
		return nil
	}
	col, err := rgba.ParseHex(s)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = col
	return nil
}

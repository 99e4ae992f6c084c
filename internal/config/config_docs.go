package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "defaults.border.style")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate the
// generated config.default.toml with inline comments and alternative examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Minimum log level: trace, debug, info, warn, error",
	},
	"log.max_size_mb": {
		Comment: "Rotate keycap.log after this many megabytes (watch and serve only).",
	},

	// ── Fonts ────────────────────────────────────────────────────
	"fonts.search": {
		Comment: "Font files registered at startup. Glob patterns supported (** matches\nany depth). Icons refer to these fonts by lower-cased file stem, e.g.\n\"Inter-Bold.ttf\" is font = \"inter-bold\".",
		Alternatives: []string{
			`search = ["fonts/*.ttf", "/usr/share/fonts/**/*.otf"]`,
		},
	},
	"fonts.fallback": {
		Comment: "Font used when an icon's font cannot be loaded. Either a file path or a\nGoogle Fonts spec: google:FAMILY:WEIGHT",
		Alternatives: []string{
			`fallback = "google:Roboto Mono:700"`,
		},
	},
	"fonts.cache": {
		Comment: "Keep downloaded Google Fonts in the data directory.",
	},

	// ── Output ───────────────────────────────────────────────────
	"output.dir": {
		Comment: "Where batch and watch write icons, relative to this file.",
	},
	"output.base64": {
		Comment: "Write base64 text (<name>.b64) instead of PNG files.",
	},
	"output.compression": {
		Comment: "PNG compression: default, speed, best, none",
		Alternatives: []string{
			`compression = "best"`,
		},
	},

	// ── Watch ────────────────────────────────────────────────────
	"watch.poll_interval_seconds": {
		Comment: "How often to check this file when native change notifications are unavailable.",
	},
	"watch.force_poll": {
		Comment: "Always poll instead of using native notifications (network drives).",
	},

	// ── Serve ────────────────────────────────────────────────────
	"serve.socket": {
		Comment: "Socket path for keycap serve (named pipe on Windows). Empty uses the data directory.",
		Alternatives: []string{
			`socket = "/run/user/1000/keycap.sock"`,
		},
	},
	"serve.request_timeout_seconds": {
		Comment: "Upper bound for one render request, including font downloads. 0 disables.",
	},

	// ── Defaults ─────────────────────────────────────────────────
	"defaults": {
		Comment: "Settings inherited by every icon. Any field below may also be set per icon.",
	},
	"defaults.text": {
		Alternatives: []string{
			`text = "Line one\nLine two"`,
		},
	},
	"defaults.output": {
		Comment: "Per icon only: output file name inside output.dir (default <name>.png).",
		Alternatives: []string{
			`output = "mic-off.png"`,
		},
	},
	"defaults.font": {
		Comment: "Registered font name, font file path, or google:FAMILY:WEIGHT.\nEmpty uses the built-in Go Regular font.",
		Alternatives: []string{
			`font = "inter-bold"`,
			`font = "google:Inter:800"`,
		},
	},
	"defaults.size": {
		Comment: "Font size in pixels, at most 1024.",
	},
	"defaults.canvas": {
		Comment: "Icon size as WxH, each side at most 4096. 144x144 for high-DPI keys, 72x72 for standard keys.",
		Alternatives: []string{
			`canvas = "72x72"`,
		},
	},
	"defaults.color": {
		Comment: "Text color as #RRGGBB or #RRGGBBAA.",
	},
	"defaults.background": {
		Comment: "Background fill. Leave unset for a transparent icon.",
		Alternatives: []string{
			`background = "#000000"`,
		},
	},
	"defaults.max_lines": {
		Comment: "Maximum wrapped lines. Text beyond the limit is dropped.",
	},
	"defaults.padding": {
		Comment: "Horizontal inset on each side of the text, in pixels.",
	},
	"defaults.halign": {
		Comment: "Horizontal alignment: left, center, right",
	},
	"defaults.valign": {
		Comment: "Vertical alignment: top, center, bottom, baseline",
	},
	"defaults.baseline": {
		Comment: "First baseline y when valign = \"baseline\".",
		Alternatives: []string{
			`baseline = 60.0`,
		},
	},
	"defaults.line_gap": {
		Comment: "Extra pixels between lines.",
	},
	"defaults.overflow": {
		Comment: "What to do with text beyond max_lines: drop, ellipsis",
		Alternatives: []string{
			`overflow = "ellipsis"`,
		},
	},
	"defaults.border.style": {
		Comment: "Border style: none, solid, vignette",
		Alternatives: []string{
			`style = "solid"`,
			`style = "vignette"`,
		},
	},
	"defaults.border.color": {},
	"defaults.border.thickness": {
		Comment: "Stroke width for solid borders.",
	},
	"defaults.border.radius": {
		Comment: "Corner radius for solid and vignette borders.",
	},
	"defaults.border.fade_width": {
		Comment: "How far a vignette fades inward.",
	},

	// ── Icons ────────────────────────────────────────────────────
	"icons": {
		Comment: "One table per icon. The table name is the output file stem.",
	},
}

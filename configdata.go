// Package keycap provides embedded assets for the keycap CLI.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML], which cmd/keycap writes to the data directory on
// first run.
package keycap

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml. It is
// regenerated by cmd/genconfig.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte

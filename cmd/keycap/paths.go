package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	rootpkg "tools.zach/dev/keycap"
	"tools.zach/dev/keycap/internal/paths"
)

// ///////////////////////////////////////////////
// Data Directory and Config Path
// ///////////////////////////////////////////////

// DataPaths aliases [paths.DataDir] into the main package.
type DataPaths = paths.DataDir

// commonFlags are shared by the config-driven subcommands.
type commonFlags struct {
	dataDir string
	config  string
}

// register adds -data-dir and -config to fs.
func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.dataDir, "data-dir", "", "data directory for logs, locks, and font cache (default $KEYCAP_DIR or ~/.keycap)")
	fs.StringVar(&c.config, "config", "", "config file (default <data-dir>/config.toml)")
}

// dataPaths returns the data directory named by dir, or the default one,
// creating it if needed.
func dataPaths(dir string) (DataPaths, error) {
	dirs := DataPaths{Root: dir}
	if dirs.Root == "" {
		d, err := paths.Default()
		if err != nil {
			return DataPaths{}, fmt.Errorf("resolve data dir: %w", err)
		}
		dirs = d
	}
	if err := os.MkdirAll(dirs.Root, 0o755); err != nil {
		return DataPaths{}, fmt.Errorf("create data dir: %w", err)
	}
	return dirs, nil
}

// resolve returns the data directory and the config path. When -config is
// not given and the data directory has no config yet, the annotated
// default config is written there first.
func (c *commonFlags) resolve() (DataPaths, string, error) {
	dirs, err := dataPaths(c.dataDir)
	if err != nil {
		return DataPaths{}, "", err
	}

	if c.config != "" {
		abs, err := filepath.Abs(c.config)
		if err != nil {
			return DataPaths{}, "", fmt.Errorf("resolve config path: %w", err)
		}
		return dirs, abs, nil
	}

	cfgPath := dirs.Config()
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(cfgPath, rootpkg.DefaultConfigTOML, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", err)
		}
	}
	return dirs, cfgPath, nil
}

// Package paths names the files keycap keeps in its data directory.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	ConfigFile   = "config.toml"
	LogFile      = "keycap.log"
	LockFile     = "keycap.lock"
	SocketFile   = "keycap.sock"
	FontCacheDir = "fonts"
)

const (
	BinaryName = "keycap"
	DataDirRel = ".keycap" // relative to $HOME
	// PipeName is the Windows named pipe `keycap serve` listens on.
	PipeName = `\\.\pipe\keycap`
	// EnvDataDir overrides the data directory.
	EnvDataDir = "KEYCAP_DIR"
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Default returns the data directory from $KEYCAP_DIR, falling back to
// ~/.keycap.
func Default() (DataDir, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return DataDir{Root: dir}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDir{}, err
	}
	return DataDir{Root: filepath.Join(home, DataDirRel)}, nil
}

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Lock returns the full path to the single-instance lock file.
func (d DataDir) Lock() string { return filepath.Join(d.Root, LockFile) }

// Socket returns the full path to the render socket.
func (d DataDir) Socket() string { return filepath.Join(d.Root, SocketFile) }

// FontCache returns the directory downloaded fonts are cached in.
func (d DataDir) FontCache() string { return filepath.Join(d.Root, FontCacheDir) }

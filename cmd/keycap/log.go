package main

import (
	"flag"
	"fmt"
	"io"

	"tools.zach/dev/keycap/internal/logger"
)

// runLog prints the last lines of the watch/serve log file.
func runLog(args []string, stdout, stderr io.Writer) error {
	var (
		dataDir string
		lines   int
	)
	fs := flag.NewFlagSet("keycap log", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&dataDir, "data-dir", "", "data directory (default $KEYCAP_DIR or ~/.keycap)")
	fs.IntVar(&lines, "n", 50, "number of lines to print")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if lines < 1 {
		return fmt.Errorf("-n must be at least 1, got %d", lines)
	}

	dirs, err := dataPaths(dataDir)
	if err != nil {
		return err
	}
	tail, err := logger.ReadTail(dirs.Log(), lines)
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	if tail != "" {
		fmt.Fprintln(stdout, tail)
	}
	return nil
}

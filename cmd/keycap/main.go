// Package main implements keycap, which renders Stream Deck key icons from a
// label and a font.
//
// With no subcommand keycap renders a single icon from flags. The batch,
// watch, and serve subcommands render icons described by a TOML file: once,
// on every change to the file, or on request over a local socket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set, resolveVersion reads the VCS info that Go embeds
// automatically.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags it is returned as-is; otherwise the embedded VCS revision and dirty
// state build a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

const usageText = `Usage:
  keycap -text LABEL -output FILE [flags]   render one icon
  keycap batch [-config FILE] [-only GLOB]  render icons from a config file
  keycap watch [-config FILE] [-only GLOB]  re-render whenever the config changes
  keycap serve [-config FILE]               answer render requests on a local socket
  keycap log [-n LINES]                     print the end of the log file
  keycap version

Render flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches args to a subcommand, defaulting to a one-shot render.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "batch":
			return runBatch(ctx, args[1:], stdout, stderr)
		case "watch":
			return runWatch(ctx, args[1:], stderr)
		case "serve":
			return runServe(ctx, args[1:], stderr)
		case "log":
			return runLog(args[1:], stdout, stderr)
		case "version":
			fmt.Fprintln(stdout, "keycap", resolveVersion())
			return nil
		case "help":
			return runRender(ctx, []string{"-h"}, stdout, stderr)
		}
	}
	return runRender(ctx, args, stdout, stderr)
}

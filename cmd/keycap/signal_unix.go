// Unix/Darwin shutdown signals.
//
// This file is compiled on all non-Windows platforms (Linux, macOS, *BSD).
// SIGTERM is what process managers (systemd, launchd) and container runtimes
// send to request a graceful stop of watch and serve.

//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals cancel the run context: SIGINT (Ctrl+C) and SIGTERM.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

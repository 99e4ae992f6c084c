// Windows shutdown signals.
//
// Windows has no SIGTERM. The Go runtime maps CTRL_BREAK_EVENT and
// console-close events to os.Interrupt, which covers service stops and
// closing the terminal.

//go:build windows

package main

import "os"

// shutdownSignals cancel the run context.
var shutdownSignals = []os.Signal{os.Interrupt}

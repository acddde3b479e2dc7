// Command traymenu shows a tray icon and menu on behalf of another process.
//
// Commands are read from standard input and events written to standard
// output, one JSON object per line. Logs go to standard error.
package main

import (
	"os"
	"runtime"
)

func init() {
	// Cocoa requires the event loop on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

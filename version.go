package main

import (
	"fmt"
	"runtime"
)

// Build-time variables injected via linker flags (ldflags).
//
// Development builds keep the defaults; release builds run
//
//	go build -ldflags "-X main.Version=$(git describe --tags) ..."
//
// which overwrites these strings at link time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// printVersion prints version information to stdout.
func printVersion() {
	fmt.Printf("lattec %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	if Commit != "unknown" {
		fmt.Printf("  commit: %s\n", Commit)
	}
	if BuildDate != "unknown" {
		fmt.Printf("  built:  %s\n", BuildDate)
	}
}
